package mcp

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Aman-CERP/catmatch/internal/catalog"
	"github.com/Aman-CERP/catmatch/internal/search"
	"github.com/Aman-CERP/catmatch/pkg/version"
)

// Service is the search surface the MCP server exposes. *app.Runtime
// satisfies it.
type Service interface {
	NewRequest(query string) search.Request
	Search(ctx context.Context, req search.Request) (*search.Response, error)
	Categories() catalog.TreeView
	Health(ctx context.Context) search.HealthReport
}

// Server is the MCP server for catmatch.
type Server struct {
	mcp    *mcp.Server
	svc    Service
	logger *slog.Logger
}

// ToolInfo contains information about a registered tool.
type ToolInfo struct {
	Name        string
	Description string
}

var tools = []ToolInfo{
	{
		Name: ToolSearchCategories,
		Description: "Classify a product description into the catalog. Combines exact name, synonym, " +
			"full-text and semantic matching and returns categories ranked by score.",
	},
	{
		Name:        ToolListCategories,
		Description: "List the full category tree with subcategories, synonyms and counts.",
	},
	{
		Name:        ToolHealthCheck,
		Description: "Report whether the semantic model and full-text backend are available.",
	},
}

// NewServer creates a new MCP server over svc. A nil logger discards output.
func NewServer(svc Service, logger *slog.Logger) (*Server, error) {
	if svc == nil {
		return nil, errors.New("search service is required")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	s := &Server{svc: svc, logger: logger}
	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    "catmatch",
			Version: version.Version,
		},
		nil,
	)
	s.registerTools()
	return s, nil
}

// MCPServer returns the underlying SDK server.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// ListTools returns all registered tools.
func (s *Server) ListTools() []ToolInfo {
	out := make([]ToolInfo, len(tools))
	copy(out, tools)
	return out
}

// CallTool invokes a tool by name with JSON-decoded arguments. Search and
// list results are rendered as markdown.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (any, error) {
	switch name {
	case ToolSearchCategories:
		return s.handleSearchTool(ctx, args)
	case ToolListCategories:
		return FormatCategoryTree(s.svc.Categories()), nil
	case ToolHealthCheck:
		return ToHealthOutput(s.svc.Health(ctx)), nil
	default:
		return nil, NewMethodNotFoundError(name)
	}
}

func (s *Server) handleSearchTool(ctx context.Context, args map[string]any) (string, error) {
	query, ok := args["query"].(string)
	if !ok {
		return "", NewInvalidParamsError("query parameter is required and must be a string")
	}
	in := SearchInput{Query: query}
	if l, ok := args["limit"].(float64); ok {
		limit := int(l)
		in.Limit = &limit
	}
	if t, ok := args["threshold"].(float64); ok {
		in.Threshold = &t
	}

	resp, err := s.search(ctx, in)
	if err != nil {
		return "", err
	}
	return FormatSearchResults(resp), nil
}

func (s *Server) search(ctx context.Context, in SearchInput) (*search.Response, error) {
	requestID := generateRequestID()
	req := s.svc.NewRequest(in.Query)
	if in.Limit != nil {
		req.Limit = *in.Limit
	}
	if in.Threshold != nil {
		req.Threshold = *in.Threshold
	}

	start := time.Now()
	resp, err := s.svc.Search(ctx, req)
	if err != nil {
		s.logger.Warn("mcp_search_failed",
			slog.String("request_id", requestID),
			slog.Duration("duration", time.Since(start)),
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	s.logger.Debug("mcp_search_completed",
		slog.String("request_id", requestID),
		slog.Int("result_count", resp.Total),
		slog.Duration("duration", time.Since(start)))
	return resp, nil
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        ToolSearchCategories,
		Description: tools[0].Description,
	}, s.mcpSearchHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        ToolListCategories,
		Description: tools[1].Description,
	}, s.mcpListCategoriesHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        ToolHealthCheck,
		Description: tools[2].Description,
	}, s.mcpHealthHandler)

	s.logger.Debug("mcp_tools_registered", slog.Int("count", len(tools)))
}

func (s *Server) mcpSearchHandler(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (
	*mcp.CallToolResult,
	SearchOutput,
	error,
) {
	resp, err := s.search(ctx, input)
	if err != nil {
		return nil, SearchOutput{}, err
	}
	return nil, ToSearchOutput(resp), nil
}

func (s *Server) mcpListCategoriesHandler(_ context.Context, _ *mcp.CallToolRequest, _ ListCategoriesInput) (
	*mcp.CallToolResult,
	catalog.TreeView,
	error,
) {
	return nil, s.svc.Categories(), nil
}

func (s *Server) mcpHealthHandler(ctx context.Context, _ *mcp.CallToolRequest, _ HealthInput) (
	*mcp.CallToolResult,
	HealthOutput,
	error,
) {
	return nil, ToHealthOutput(s.svc.Health(ctx)), nil
}

// Serve runs the server over stdio until ctx is canceled or the client
// disconnects.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("mcp_server_starting", slog.String("transport", "stdio"))
	err := s.mcp.Run(ctx, &mcp.StdioTransport{})
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error("mcp_server_stopped", slog.String("error", err.Error()))
		return err
	}
	s.logger.Info("mcp_server_stopped")
	return nil
}

// generateRequestID creates a short unique request ID for log correlation.
func generateRequestID() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
