package mcpsurface

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/sourcerack/sourcerack/internal/orchestrator"
)

// addIndexTools registers index and gc, the two mutating operations
// alongside the read-only query tools.
func addIndexTools(s *server.MCPServer, srv *Server) {
	s.AddTool(mcp.NewTool(
		"index",
		mcp.WithDescription("Index a git repository into the structured query index: resolve a ref, parse every tracked source file, extract symbols/usages/imports/endpoints, and embed content chunks."),
		mcp.WithString("repo_path", mcp.Required(), mcp.Description("Path to the git repository to index")),
		mcp.WithString("ref", mcp.Description("Git ref to index (default HEAD)")),
		mcp.WithString("group", mcp.Description("Group to tag this repository with")),
		mcp.WithString("display_name", mcp.Description("Human-readable name for this repository")),
		mcp.WithBoolean("force", mcp.Description("Re-index even if this commit was already indexed")),
		mcp.WithBoolean("skip_embeddings", mcp.Description("Skip embedding generation, leaving chunks unembedded")),
		mcp.WithDestructiveHintAnnotation(false),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		argsMap, errResult := parseToolArguments(request)
		if errResult != nil {
			return errResult, nil
		}

		orch, err := srv.orchestratorFor()
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		ref := getStringDefault(argsMap, "ref", "HEAD")
		result, err := orch.Run(ctx, orchestrator.Options{
			RepoPath:       getString(argsMap, "repo_path"),
			Ref:            ref,
			Group:          getString(argsMap, "group"),
			DisplayName:    getString(argsMap, "display_name"),
			Force:          getBool(argsMap, "force", false),
			SkipEmbeddings: getBool(argsMap, "skip_embeddings", false),
		})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("index failed: %s", err)), nil
		}

		return marshalToolResponse(result)
	})

	s.AddTool(mcp.NewTool(
		"gc",
		mcp.WithDescription("Delete commits past the retention horizon and reclaim their chunks."),
		mcp.WithNumber("retention_days", mcp.Description("Override gc.retentionDays from configuration")),
		mcp.WithBoolean("dry_run", mcp.Description("Report what would be deleted without deleting it")),
		mcp.WithDestructiveHintAnnotation(true),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		argsMap, errResult := parseToolArguments(request)
		if errResult != nil {
			return errResult, nil
		}

		retention := getInt(argsMap, "retention_days", srv.config.GC.RetentionDays)
		dryRun := getBool(argsMap, "dry_run", false)

		result, err := srv.collector().Run(ctx, retention, dryRun)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("gc failed: %s", err)), nil
		}

		return marshalToolResponse(result)
	})
}
