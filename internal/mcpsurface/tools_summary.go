package mcpsurface

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/sourcerack/sourcerack/internal/query"
)

// addSummaryTool registers codebase_summary.
func addSummaryTool(s *server.MCPServer, engine *query.Engine) {
	s.AddTool(mcp.NewTool(
		"codebase_summary",
		withScopeArgs(
			mcp.WithDescription("Summarize the indexed codebase: languages, modules, hotspots, external dependencies."),
			mcp.WithBoolean("hotspots", mcp.Description("Include most-used symbols (default true)")),
			mcp.WithBoolean("dependencies", mcp.Description("Include external dependency aggregation (default true)")),
			mcp.WithNumber("max_modules", mcp.Description("Maximum number of modules to report (default 20)")),
			mcp.WithNumber("max_hotspots", mcp.Description("Maximum number of hotspots to report (default 20)")),
			mcp.WithReadOnlyHintAnnotation(true),
			mcp.WithDestructiveHintAnnotation(false),
		)...,
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		argsMap, errResult := parseToolArguments(request)
		if errResult != nil {
			return errResult, nil
		}
		resp := engine.CodebaseSummary(ctx, query.CodebaseSummaryRequest{
			Scope:               scopeFromArgs(argsMap),
			IncludeHotspots:     getBool(argsMap, "hotspots", true),
			IncludeDependencies: getBool(argsMap, "dependencies", true),
			MaxModules:          getInt(argsMap, "max_modules", 20),
			MaxHotspots:         getInt(argsMap, "max_hotspots", 20),
		})
		return marshalToolResponse(resp)
	})
}
