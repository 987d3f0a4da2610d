package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/sourcerack/sourcerack/internal/query"
)

var callGraphDirection string

var getCallGraphCmd = &cobra.Command{
	Use:   "get-call-graph NAME",
	Short: "Get a function's callers and/or callees",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return wrapErr(err)
		}
		defer a.Close()

		resp := a.Engine.GetCallGraph(context.Background(), query.GetCallGraphRequest{
			Scope:      scope(),
			SymbolName: args[0],
			Direction:  query.CallGraphDirection(callGraphDirection),
		})
		return print(resp.Success, resp.Error, resp)
	},
}

var dependencyGraphMaxEdges int

var getDependencyGraphCmd = &cobra.Command{
	Use:   "get-dependency-graph",
	Short: "Get the module-level import graph",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return wrapErr(err)
		}
		defer a.Close()

		resp := a.Engine.GetDependencyGraph(context.Background(), query.GetDependencyGraphRequest{
			Scope:    scope(),
			MaxEdges: dependencyGraphMaxEdges,
		})
		return print(resp.Success, resp.Error, resp)
	},
}

var impactMaxDepth int

var analyzeChangeImpactCmd = &cobra.Command{
	Use:   "analyze-change-impact NAME",
	Short: "Find everything transitively affected by changing a symbol",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return wrapErr(err)
		}
		defer a.Close()

		resp := a.Engine.AnalyzeChangeImpact(context.Background(), query.AnalyzeChangeImpactRequest{
			Scope:      scope(),
			SymbolName: args[0],
			MaxDepth:   impactMaxDepth,
		})
		return print(resp.Success, resp.Error, resp)
	},
}

var (
	deadCodeExportedOnly bool
	deadCodeExcludeTests bool
	deadCodeLimit        int
)

var findDeadCodeCmd = &cobra.Command{
	Use:   "find-dead-code",
	Short: "Find symbols with zero recorded usages",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return wrapErr(err)
		}
		defer a.Close()

		resp := a.Engine.FindDeadCode(context.Background(), query.FindDeadCodeRequest{
			Scope:        scope(),
			ExportedOnly: deadCodeExportedOnly,
			ExcludeTests: deadCodeExcludeTests,
			Limit:        deadCodeLimit,
		})
		return print(resp.Success, resp.Error, resp)
	},
}

func init() {
	getCallGraphCmd.Flags().StringVar(&callGraphDirection, "direction", "both", "callers, callees, or both")
	rootCmd.AddCommand(getCallGraphCmd)

	getDependencyGraphCmd.Flags().IntVar(&dependencyGraphMaxEdges, "max-edges", 0, "maximum number of edges to return (0 means the default of 200)")
	rootCmd.AddCommand(getDependencyGraphCmd)

	analyzeChangeImpactCmd.Flags().IntVar(&impactMaxDepth, "max-depth", 3, "maximum BFS depth to traverse")
	rootCmd.AddCommand(analyzeChangeImpactCmd)

	findDeadCodeCmd.Flags().BoolVar(&deadCodeExportedOnly, "exported-only", false, "only report exported/public symbols")
	findDeadCodeCmd.Flags().BoolVar(&deadCodeExcludeTests, "exclude-tests", false, "skip symbols defined in test files")
	findDeadCodeCmd.Flags().IntVar(&deadCodeLimit, "limit", 0, "maximum number of results (0 means unbounded)")
	rootCmd.AddCommand(findDeadCodeCmd)
}
