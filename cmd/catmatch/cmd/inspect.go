package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Aman-CERP/catmatch/internal/app"
	"github.com/Aman-CERP/catmatch/internal/output"
)

func newCategoriesCmd(flags *rootFlags) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "categories",
		Short: "List the category catalog",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return flags.withRuntime(cmd.Context(), func(rt *app.Runtime) error {
				tree := rt.Categories()
				if jsonOutput {
					return writeJSON(cmd.OutOrStdout(), tree)
				}
				output.New(cmd.OutOrStdout()).CategoryTree(tree)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newHealthCmd(flags *rootFlags) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check the semantic model and full-text backend",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return flags.withRuntime(cmd.Context(), func(rt *app.Runtime) error {
				report := rt.Health(cmd.Context())
				if jsonOutput {
					return writeJSON(cmd.OutOrStdout(), report)
				}
				output.New(cmd.OutOrStdout()).Health(report)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newStatsCmd(flags *rootFlags) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show catalog, model and query log statistics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return flags.withRuntime(cmd.Context(), func(rt *app.Runtime) error {
				st, err := rt.Stats(cmd.Context())
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd.OutOrStdout(), st)
				}
				output.New(cmd.OutOrStdout()).Stats(st)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}
