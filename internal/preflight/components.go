package preflight

import (
	"context"
	"fmt"

	"github.com/Aman-CERP/catmatch/internal/app"
	"github.com/Aman-CERP/catmatch/internal/catalog"
	"github.com/Aman-CERP/catmatch/internal/embed"
)

// CheckConfig validates the loaded configuration.
func (c *Checker) CheckConfig() CheckResult {
	result := CheckResult{Name: "config", Required: true}
	if c.cfg == nil {
		result.Status = StatusFail
		result.Message = "no configuration loaded"
		return result
	}
	if err := c.cfg.Validate(); err != nil {
		result.Status = StatusFail
		result.Message = err.Error()
		return result
	}
	result.Status = StatusPass
	result.Message = "valid"
	return result
}

// CheckCatalog loads the configured taxonomy.
func (c *Checker) CheckCatalog() CheckResult {
	result := CheckResult{Name: "catalog", Required: true}

	path := ""
	if c.cfg != nil {
		path = c.cfg.Catalog.Path
	}
	if path == "" {
		result.Details = "built-in catalog"
	} else {
		result.Details = path
	}

	cat, err := catalog.Load(path)
	if err != nil {
		result.Status = StatusFail
		result.Message = err.Error()
		return result
	}
	result.Status = StatusPass
	result.Message = fmt.Sprintf("%d categories, %d subcategories", cat.NumCategories(), cat.Len())
	return result
}

// CheckEmbedder opens the embedding provider and probes it. Failures only
// warn: search still answers with exact and synonym matches.
func (c *Checker) CheckEmbedder(ctx context.Context) CheckResult {
	result := CheckResult{Name: "embedder", Required: false}

	factory := c.newEmbedder
	if factory == nil {
		if c.cfg == nil {
			result.Status = StatusWarn
			result.Message = "no configuration loaded"
			return result
		}
		opts := app.EmbedderOptions(c.cfg.Embeddings)
		factory = func(ctx context.Context) (embed.Embedder, error) {
			return embed.NewEmbedder(ctx, opts)
		}
	}

	e, err := factory(ctx)
	if err != nil {
		result.Status = StatusWarn
		result.Message = "unavailable (semantic search disabled)"
		result.Details = err.Error()
		return result
	}
	defer func() { _ = e.Close() }()

	if !e.Available(ctx) {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("%s not responding (semantic search disabled)", e.ModelName())
		return result
	}
	result.Status = StatusPass
	result.Message = fmt.Sprintf("%s (%d dims)", e.ModelName(), e.Dimensions())
	return result
}
