package preflight

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/catmatch/internal/config"
	"github.com/Aman-CERP/catmatch/internal/embed"
)

func staticFactory(ctx context.Context) (embed.Embedder, error) {
	return embed.NewStaticEmbedder(64), nil
}

func newTestChecker(t *testing.T, cfg *config.Config, opts ...Option) (*Checker, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	base := []Option{
		WithDataDir(filepath.Join(t.TempDir(), "data")),
		WithEmbedderFactory(staticFactory),
		WithOutput(buf),
	}
	return New(cfg, append(base, opts...)...), buf
}

func TestCheckStatus_String(t *testing.T) {
	tests := []struct {
		status CheckStatus
		want   string
	}{
		{StatusPass, "PASS"},
		{StatusWarn, "WARN"},
		{StatusFail, "FAIL"},
		{CheckStatus(9), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.status.String())
		})
	}
}

func TestCheckResult_JSONStatusName(t *testing.T) {
	data, err := json.Marshal(CheckResult{Name: "catalog", Status: StatusWarn})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"status":"WARN"`)
}

func TestCheckResult_IsCritical(t *testing.T) {
	tests := []struct {
		name     string
		result   CheckResult
		expected bool
	}{
		{"required pass is not critical", CheckResult{Status: StatusPass, Required: true}, false},
		{"required fail is critical", CheckResult{Status: StatusFail, Required: true}, true},
		{"optional fail is not critical", CheckResult{Status: StatusFail}, false},
		{"required warn is not critical", CheckResult{Status: StatusWarn, Required: true}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.result.IsCritical())
		})
	}
}

func TestChecker_RunAll_DefaultConfig(t *testing.T) {
	// Given: default configuration and a static embedder
	checker, _ := newTestChecker(t, config.NewConfig())

	// When: running every check
	results := checker.RunAll(context.Background())

	// Then: all pass and the system is ready
	names := make([]string, 0, len(results))
	for _, r := range results {
		names = append(names, r.Name)
		assert.Equal(t, StatusPass, r.Status, "%s: %s", r.Name, r.Message)
	}
	assert.Equal(t, []string{"config", "catalog", "data_dir", "disk_space", "file_descriptors", "embedder"}, names)
	assert.False(t, checker.HasCriticalFailures(results))
	assert.Equal(t, "ready", checker.SummaryStatus(results))
}

func TestChecker_CheckConfig(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Search.DefaultThreshold = 1.5
	checker, _ := newTestChecker(t, cfg)

	r := checker.CheckConfig()
	assert.Equal(t, StatusFail, r.Status)
	assert.Contains(t, r.Message, "default_threshold")
	assert.True(t, r.IsCritical())

	nilChecker, _ := newTestChecker(t, nil)
	assert.Equal(t, StatusFail, nilChecker.CheckConfig().Status)
}

func TestChecker_CheckCatalog(t *testing.T) {
	t.Run("built-in catalog", func(t *testing.T) {
		checker, _ := newTestChecker(t, config.NewConfig())

		r := checker.CheckCatalog()

		assert.Equal(t, StatusPass, r.Status)
		assert.Equal(t, "3 categories, 8 subcategories", r.Message)
		assert.Equal(t, "built-in catalog", r.Details)
	})

	t.Run("missing file", func(t *testing.T) {
		cfg := config.NewConfig()
		cfg.Catalog.Path = filepath.Join(t.TempDir(), "nope.yaml")
		checker, _ := newTestChecker(t, cfg)

		r := checker.CheckCatalog()

		assert.Equal(t, StatusFail, r.Status)
		assert.True(t, r.IsCritical())
	})
}

func TestChecker_CheckWritePermissions(t *testing.T) {
	// Given: a nested data dir that does not exist yet
	dir := filepath.Join(t.TempDir(), "a", "b")
	checker, _ := newTestChecker(t, config.NewConfig())

	// When: checking permissions
	r := checker.CheckWritePermissions(dir)

	// Then: the dir is created and no probe file is left behind
	assert.Equal(t, StatusPass, r.Status)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestChecker_CheckWritePermissions_ReadOnly(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root ignores directory permissions")
	}
	dir := t.TempDir()
	require.NoError(t, os.Chmod(dir, 0o500))
	t.Cleanup(func() { _ = os.Chmod(dir, 0o755) })
	checker, _ := newTestChecker(t, config.NewConfig())

	r := checker.CheckWritePermissions(dir)

	assert.Equal(t, StatusFail, r.Status)
}

func TestChecker_CheckDiskSpace_MissingDirUsesParent(t *testing.T) {
	checker, _ := newTestChecker(t, config.NewConfig())

	r := checker.CheckDiskSpace(filepath.Join(t.TempDir(), "not", "yet"))

	assert.Contains(t, []CheckStatus{StatusPass, StatusFail}, r.Status)
	assert.Contains(t, r.Message, "free")
}

func TestChecker_CheckEmbedder(t *testing.T) {
	tests := []struct {
		name    string
		factory EmbedderFactory
		status  CheckStatus
		message string
	}{
		{
			name:    "static",
			factory: staticFactory,
			status:  StatusPass,
			message: "static-hash-64 (64 dims)",
		},
		{
			name: "open fails",
			factory: func(context.Context) (embed.Embedder, error) {
				return nil, errors.New("connection refused")
			},
			status:  StatusWarn,
			message: "unavailable (semantic search disabled)",
		},
		{
			name: "not responding",
			factory: func(context.Context) (embed.Embedder, error) {
				e := embed.NewStaticEmbedder(8)
				_ = e.Close()
				return e, nil
			},
			status:  StatusWarn,
			message: "static-hash-8 not responding (semantic search disabled)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker, _ := newTestChecker(t, config.NewConfig(), WithEmbedderFactory(tt.factory))

			r := checker.CheckEmbedder(context.Background())

			assert.Equal(t, tt.status, r.Status)
			assert.Equal(t, tt.message, r.Message)
			assert.False(t, r.IsCritical())
		})
	}
}

func TestChecker_CheckEmbedder_FromConfig(t *testing.T) {
	cfg := config.NewConfig()
	checker := New(cfg, WithDataDir(t.TempDir()), WithOutput(&bytes.Buffer{}))

	r := checker.CheckEmbedder(context.Background())

	assert.Equal(t, StatusPass, r.Status)
	assert.Contains(t, r.Message, "static-hash-256")
}

func TestChecker_SummaryStatus(t *testing.T) {
	checker, _ := newTestChecker(t, config.NewConfig())

	assert.Equal(t, "ready", checker.SummaryStatus([]CheckResult{{Status: StatusPass, Required: true}}))
	assert.Equal(t, "ready_with_warnings", checker.SummaryStatus([]CheckResult{
		{Status: StatusPass, Required: true},
		{Status: StatusWarn},
	}))
	assert.Equal(t, "ready_with_warnings", checker.SummaryStatus([]CheckResult{{Status: StatusFail}}))
	assert.Equal(t, "failed", checker.SummaryStatus([]CheckResult{
		{Status: StatusWarn},
		{Status: StatusFail, Required: true},
	}))
}

func TestChecker_PrintResults(t *testing.T) {
	checker, buf := newTestChecker(t, config.NewConfig(), WithVerbose(true))

	checker.PrintResults([]CheckResult{
		{Name: "config", Status: StatusPass, Message: "valid", Required: true},
		{Name: "catalog", Status: StatusFail, Message: "bad yaml", Details: "/tmp/c.yaml", Required: true},
		{Name: "embedder", Status: StatusWarn, Message: "unavailable"},
	})

	out := buf.String()
	assert.Contains(t, out, "catmatch System Check")
	assert.Contains(t, out, "[PASS] config: valid")
	assert.Contains(t, out, "[FAIL] catalog: bad yaml")
	assert.Contains(t, out, "      /tmp/c.yaml")
	assert.Contains(t, out, "Status: FAILED")
	assert.Contains(t, out, "1 error(s):\n  - catalog: bad yaml")
	assert.Contains(t, out, "1 warning(s):\n  - embedder: unavailable")
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   uint64
		want string
	}{
		{512, "512 bytes"},
		{2048, "2.0 KB"},
		{50 * 1024 * 1024, "50.0 MB"},
		{3 * 1024 * 1024 * 1024, "3.0 GB"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, formatBytes(tt.in))
		})
	}
}
