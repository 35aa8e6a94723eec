package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/catmatch/internal/app"
	"github.com/Aman-CERP/catmatch/internal/output"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	limit      int
	threshold  float64
	jsonOutput bool
}

func newSearchCmd(flags *rootFlags) *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Find categories for a product description",
		Long: `Run one hybrid search and print the ranked categories.

Exact and synonym hits score 1.0 and 0.9. Semantic hits below --threshold
are dropped.`,
		Example: `  catmatch search кафель
  catmatch search "ламинат дуб" --limit 3
  catmatch search шпаклевка --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return flags.withRuntime(cmd.Context(), func(rt *app.Runtime) error {
				req := rt.NewRequest(query)
				if cmd.Flags().Changed("limit") {
					req.Limit = opts.limit
				}
				if cmd.Flags().Changed("threshold") {
					req.Threshold = opts.threshold
				}

				resp, err := rt.Search(cmd.Context(), req)
				if err != nil {
					return err
				}
				if opts.jsonOutput {
					return writeJSON(cmd.OutOrStdout(), resp)
				}
				output.New(cmd.OutOrStdout()).SearchResults(resp)
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 10, "Maximum number of results")
	cmd.Flags().Float64Var(&opts.threshold, "threshold", 0.6, "Minimum semantic similarity in [0, 1]")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output as JSON")

	return cmd
}
