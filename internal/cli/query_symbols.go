package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/sourcerack/sourcerack/internal/query"
	"github.com/sourcerack/sourcerack/internal/sqi"
)

var (
	findDefKind  string
	findDefFuzzy bool
)

var findDefinitionCmd = &cobra.Command{
	Use:   "find-definition NAME",
	Short: "Find where a symbol is defined",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return wrapErr(err)
		}
		defer a.Close()

		resp := a.Engine.FindDefinition(context.Background(), query.FindDefinitionRequest{
			Scope: scope(),
			Name:  args[0],
			Kind:  sqi.SymbolKind(findDefKind),
			Fuzzy: findDefFuzzy,
		})
		return print(resp.Success, resp.Error, resp)
	},
}

var findUsagesFile string

var findUsagesCmd = &cobra.Command{
	Use:   "find-usages NAME",
	Short: "Find every usage of a symbol",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return wrapErr(err)
		}
		defer a.Close()

		resp := a.Engine.FindUsages(context.Background(), query.FindUsagesRequest{
			Scope:      scope(),
			SymbolName: args[0],
			FilePath:   findUsagesFile,
		})
		return print(resp.Success, resp.Error, resp)
	},
}

var findHierarchyDirection string

var findHierarchyCmd = &cobra.Command{
	Use:   "find-hierarchy NAME",
	Short: "Find a type's parent/child hierarchy",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return wrapErr(err)
		}
		defer a.Close()

		resp := a.Engine.FindHierarchy(context.Background(), query.FindHierarchyRequest{
			Scope:      scope(),
			SymbolName: args[0],
			Direction:  query.HierarchyDirection(findHierarchyDirection),
		})
		return print(resp.Success, resp.Error, resp)
	},
}

var (
	symCtxSource bool
	symCtxUsages bool
	symCtxMax    int
)

var getSymbolContextCmd = &cobra.Command{
	Use:   "get-symbol-context NAME",
	Short: "Get a symbol's definition, docs, and a sample of its usages",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return wrapErr(err)
		}
		defer a.Close()

		resp := a.Engine.GetSymbolContext(context.Background(), query.GetSymbolContextRequest{
			Scope:         scope(),
			SymbolName:    args[0],
			IncludeSource: symCtxSource,
			IncludeUsages: symCtxUsages,
			MaxUsages:     symCtxMax,
		})
		return print(resp.Success, resp.Error, resp)
	},
}

func init() {
	findDefinitionCmd.Flags().StringVar(&findDefKind, "kind", "", "restrict to one symbol kind (function, class, method, ...)")
	findDefinitionCmd.Flags().BoolVar(&findDefFuzzy, "fuzzy", false, "fall back to edit-distance matching when no exact match exists")
	rootCmd.AddCommand(findDefinitionCmd)

	findUsagesCmd.Flags().StringVar(&findUsagesFile, "file", "", "narrow to usages recorded in this file")
	rootCmd.AddCommand(findUsagesCmd)

	findHierarchyCmd.Flags().StringVar(&findHierarchyDirection, "direction", "both", "children, parents, or both")
	rootCmd.AddCommand(findHierarchyCmd)

	getSymbolContextCmd.Flags().BoolVar(&symCtxSource, "source", true, "include the symbol's source snippet")
	getSymbolContextCmd.Flags().BoolVar(&symCtxUsages, "usages", true, "include a sample of the symbol's usages")
	getSymbolContextCmd.Flags().IntVar(&symCtxMax, "max-usages", 10, "maximum number of usages to include")
	rootCmd.AddCommand(getSymbolContextCmd)
}
