// Package cmd provides the CLI commands for catmatch.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/catmatch/internal/app"
	"github.com/Aman-CERP/catmatch/internal/config"
	"github.com/Aman-CERP/catmatch/internal/logging"
	"github.com/Aman-CERP/catmatch/internal/profiling"
	"github.com/Aman-CERP/catmatch/pkg/version"
)

// rootFlags are shared by every subcommand.
type rootFlags struct {
	configPath string
	debug      bool
	logFile    string
	profile    profiling.Options

	loggingCleanup func()
	profiler       *profiling.Session
}

// NewRootCmd creates the root command for the catmatch CLI.
func NewRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:   "catmatch",
		Short: "Hybrid product category search",
		Long: `catmatch maps free-text product descriptions onto a fixed category
catalog. Each query runs exact name matching, synonym matching, full-text
search and semantic similarity, then merges the hits into one ranked list.

Run 'catmatch serve' to expose the search over MCP (stdio) or HTTP.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetVersionTemplate("catmatch version {{.Version}}\n")

	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Configuration file (default: user and project config)")
	cmd.PersistentFlags().BoolVar(&flags.debug, "debug", false, "Enable debug logging")
	cmd.PersistentFlags().StringVar(&flags.logFile, "log-file", "", "Log file path (default: ~/.catmatch/logs/server.log)")

	cmd.PersistentFlags().StringVar(&flags.profile.CPUPath, "profile-cpu", "", "Write CPU profile to file")
	cmd.PersistentFlags().StringVar(&flags.profile.HeapPath, "profile-mem", "", "Write memory profile to file")
	cmd.PersistentFlags().StringVar(&flags.profile.TracePath, "profile-trace", "", "Write execution trace to file")

	cmd.PersistentPreRunE = flags.start
	cmd.PersistentPostRunE = flags.stop

	cmd.AddCommand(newServeCmd(flags))
	cmd.AddCommand(newSearchCmd(flags))
	cmd.AddCommand(newCategoriesCmd(flags))
	cmd.AddCommand(newHealthCmd(flags))
	cmd.AddCommand(newStatsCmd(flags))
	cmd.AddCommand(newConfigCmd(flags))
	cmd.AddCommand(newDoctorCmd(flags))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// start begins profiling when requested, then logging.
func (f *rootFlags) start(cmd *cobra.Command, args []string) error {
	if f.profile.Enabled() {
		s, err := profiling.Start(f.profile)
		if err != nil {
			return err
		}
		f.profiler = s
	}
	if err := f.startLogging(cmd, args); err != nil {
		if f.profiler != nil {
			_ = f.profiler.Stop()
			f.profiler = nil
		}
		return err
	}
	return nil
}

func (f *rootFlags) stop(cmd *cobra.Command, args []string) error {
	_ = f.stopLogging(cmd, args)
	if f.profiler != nil {
		err := f.profiler.Stop()
		f.profiler = nil
		return err
	}
	return nil
}

// startLogging installs a file-only JSON logger. Stdout stays clean for
// command output and MCP frames.
func (f *rootFlags) startLogging(_ *cobra.Command, _ []string) error {
	level := "info"
	if lvl := os.Getenv("CATMATCH_LOG_LEVEL"); lvl != "" && logging.ValidLevel(lvl) {
		level = lvl
	}
	if f.debug {
		level = "debug"
	}
	cfg := logging.StdioSafeConfig(level)
	if f.logFile != "" {
		cfg.FilePath = config.ExpandHome(f.logFile)
	}

	cleanup, err := logging.SetupDefault(cfg)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	f.loggingCleanup = cleanup
	return nil
}

func (f *rootFlags) stopLogging(_ *cobra.Command, _ []string) error {
	if f.loggingCleanup != nil {
		f.loggingCleanup()
		f.loggingCleanup = nil
	}
	return nil
}

// loadConfig reads --config when given, otherwise the layered user and
// project configuration for the working directory.
func (f *rootFlags) loadConfig() (*config.Config, error) {
	if f.configPath != "" {
		return config.LoadFile(config.ExpandHome(f.configPath))
	}
	dir, err := os.Getwd()
	if err != nil {
		dir = "."
	}
	return config.Load(dir)
}

// openRuntime builds the search runtime. Callers must Close it.
func (f *rootFlags) openRuntime(ctx context.Context) (*app.Runtime, error) {
	cfg, err := f.loadConfig()
	if err != nil {
		return nil, err
	}
	return app.New(ctx, cfg, app.WithLogger(slog.Default()))
}

// withRuntime opens a runtime, runs fn, and closes it.
func (f *rootFlags) withRuntime(ctx context.Context, fn func(rt *app.Runtime) error) error {
	rt, err := f.openRuntime(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := rt.Close(); cerr != nil {
			slog.Warn("runtime_close_failed", slog.String("error", cerr.Error()))
		}
	}()
	return fn(rt)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
