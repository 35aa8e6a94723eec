package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/catmatch/internal/app"
	"github.com/Aman-CERP/catmatch/internal/httpapi"
	"github.com/Aman-CERP/catmatch/internal/mcp"
)

func newServeCmd(flags *rootFlags) *cobra.Command {
	var (
		transport string
		addr      string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve category search over MCP or HTTP",
		Long: `Start the search server.

Transports:
  stdio  MCP JSON-RPC over stdin/stdout (for AI assistants)
  http   JSON REST API: GET /search, POST /search, /categories, /health, /stats

With stdio, nothing but protocol frames is written to stdout; logs go to
~/.catmatch/logs/server.log.`,
		Example: `  # MCP server for an assistant
  catmatch serve

  # REST API on port 8000
  catmatch serve --transport http --addr :8000`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("transport") {
				cfg.Server.Transport = transport
			}
			if cmd.Flags().Changed("addr") {
				cfg.Server.Addr = addr
			}

			rt, err := app.New(ctx, cfg, app.WithLogger(slog.Default()))
			if err != nil {
				return err
			}
			defer func() { _ = rt.Close() }()

			return runServe(ctx, rt, cfg.Server.Transport, cfg.Server.Addr)
		},
	}

	cmd.Flags().StringVarP(&transport, "transport", "t", "stdio", "Transport: stdio, http")
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8000", "Listen address for the http transport")

	return cmd
}

func runServe(ctx context.Context, rt *app.Runtime, transport, addr string) error {
	logger := slog.Default()
	switch strings.ToLower(transport) {
	case "stdio":
		srv, err := mcp.NewServer(rt, logger)
		if err != nil {
			return err
		}
		return srv.Serve(ctx)
	case "http":
		srv, err := httpapi.NewServer(rt, addr, logger)
		if err != nil {
			return err
		}
		return srv.ListenAndServe(ctx)
	default:
		return fmt.Errorf("unknown transport: %s (supported: stdio, http)", transport)
	}
}
