package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/sourcerack/sourcerack/internal/query"
	"github.com/sourcerack/sourcerack/internal/sqi"
)

var findImportsCmd = &cobra.Command{
	Use:   "find-imports FILE",
	Short: "List everything a file imports",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return wrapErr(err)
		}
		defer a.Close()

		resp := a.Engine.FindImports(context.Background(), query.FindImportsRequest{
			Scope:    scope(),
			FilePath: args[0],
		})
		return print(resp.Success, resp.Error, resp)
	},
}

var findImportersCmd = &cobra.Command{
	Use:   "find-importers MODULE",
	Short: "Find every file that imports a given module",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return wrapErr(err)
		}
		defer a.Close()

		resp := a.Engine.FindImporters(context.Background(), query.FindImportersRequest{
			Scope:           scope(),
			ModuleSpecifier: args[0],
		})
		return print(resp.Success, resp.Error, resp)
	},
}

var (
	endpointsMethod    string
	endpointsPath      string
	endpointsFramework string
)

var findEndpointsCmd = &cobra.Command{
	Use:   "find-endpoints",
	Short: "Find HTTP endpoints, optionally filtered by method/path/framework",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return wrapErr(err)
		}
		defer a.Close()

		resp := a.Engine.FindEndpoints(context.Background(), query.FindEndpointsRequest{
			Scope:       scope(),
			Method:      endpointsMethod,
			PathPattern: endpointsPath,
			Framework:   sqi.Framework(endpointsFramework),
		})
		return print(resp.Success, resp.Error, resp)
	},
}

func init() {
	rootCmd.AddCommand(findImportsCmd)
	rootCmd.AddCommand(findImportersCmd)

	findEndpointsCmd.Flags().StringVar(&endpointsMethod, "method", "", "HTTP method filter, case-insensitive")
	findEndpointsCmd.Flags().StringVar(&endpointsPath, "path", "", "glob pattern over the endpoint path")
	findEndpointsCmd.Flags().StringVar(&endpointsFramework, "framework", "", "restrict to one web framework")
	rootCmd.AddCommand(findEndpointsCmd)
}
