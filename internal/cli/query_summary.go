package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/sourcerack/sourcerack/internal/query"
)

var (
	summaryHotspots     bool
	summaryDependencies bool
	summaryMaxModules   int
	summaryMaxHotspots  int
)

var codebaseSummaryCmd = &cobra.Command{
	Use:   "codebase-summary",
	Short: "Summarize the indexed codebase: languages, modules, hotspots",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return wrapErr(err)
		}
		defer a.Close()

		resp := a.Engine.CodebaseSummary(context.Background(), query.CodebaseSummaryRequest{
			Scope:               scope(),
			IncludeHotspots:     summaryHotspots,
			IncludeDependencies: summaryDependencies,
			MaxModules:          summaryMaxModules,
			MaxHotspots:         summaryMaxHotspots,
		})
		return print(resp.Success, resp.Error, resp)
	},
}

func init() {
	codebaseSummaryCmd.Flags().BoolVar(&summaryHotspots, "hotspots", true, "include most-used symbols")
	codebaseSummaryCmd.Flags().BoolVar(&summaryDependencies, "dependencies", true, "include external dependency aggregation")
	codebaseSummaryCmd.Flags().IntVar(&summaryMaxModules, "max-modules", 20, "maximum number of modules to report")
	codebaseSummaryCmd.Flags().IntVar(&summaryMaxHotspots, "max-hotspots", 20, "maximum number of hotspots to report")
	rootCmd.AddCommand(codebaseSummaryCmd)
}
