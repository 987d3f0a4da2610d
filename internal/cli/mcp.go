package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sourcerack/sourcerack/internal/mcpsurface"
)

// mcpCmd represents the mcp command.
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server exposing the query index as tools",
	Long: `Start the Model Context Protocol (MCP) server that exposes SourceRack's
structured query index to LLM-powered coding assistants: one tool per
query operation (find_definition, find_usages, get_call_graph, ...) plus
index and gc, communicating over stdio.

Example:
  sourcerack mcp`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return wrapErr(err)
	}

	fmt.Fprintf(os.Stderr, "SourceRack MCP Server\n")
	fmt.Fprintf(os.Stderr, "Database: %s\n\n", cfg.Storage.DatabasePath)

	srv, err := mcpsurface.NewServer(cfg)
	if err != nil {
		return wrapErr(err)
	}
	defer srv.Close()

	if err := srv.Serve(context.Background()); err != nil {
		return fmt.Errorf("MCP server error: %w", err)
	}

	return nil
}
