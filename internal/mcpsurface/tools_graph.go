package mcpsurface

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/sourcerack/sourcerack/internal/query"
)

// addGraphTools registers get_call_graph, get_dependency_graph,
// analyze_change_impact, and find_dead_code.
func addGraphTools(s *server.MCPServer, engine *query.Engine) {
	s.AddTool(mcp.NewTool(
		"get_call_graph",
		withScopeArgs(
			mcp.WithDescription("Get a function's callers and/or callees."),
			mcp.WithString("name", mcp.Required(), mcp.Description("Function name to look up")),
			mcp.WithString("direction", mcp.Description("callers, callees, or both (default both)")),
			mcp.WithReadOnlyHintAnnotation(true),
			mcp.WithDestructiveHintAnnotation(false),
		)...,
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		argsMap, errResult := parseToolArguments(request)
		if errResult != nil {
			return errResult, nil
		}
		resp := engine.GetCallGraph(ctx, query.GetCallGraphRequest{
			Scope:      scopeFromArgs(argsMap),
			SymbolName: getString(argsMap, "name"),
			Direction:  query.CallGraphDirection(getStringDefault(argsMap, "direction", "both")),
		})
		return marshalToolResponse(resp)
	})

	s.AddTool(mcp.NewTool(
		"get_dependency_graph",
		withScopeArgs(
			mcp.WithDescription("Get the module-level import graph."),
			mcp.WithNumber("max_edges", mcp.Description("Maximum number of edges to return (0 or unset means the default of 200)")),
			mcp.WithReadOnlyHintAnnotation(true),
			mcp.WithDestructiveHintAnnotation(false),
		)...,
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		argsMap, errResult := parseToolArguments(request)
		if errResult != nil {
			return errResult, nil
		}
		resp := engine.GetDependencyGraph(ctx, query.GetDependencyGraphRequest{
			Scope:    scopeFromArgs(argsMap),
			MaxEdges: getInt(argsMap, "max_edges", 0),
		})
		return marshalToolResponse(resp)
	})

	s.AddTool(mcp.NewTool(
		"analyze_change_impact",
		withScopeArgs(
			mcp.WithDescription("Find everything transitively affected by changing a symbol."),
			mcp.WithString("name", mcp.Required(), mcp.Description("Symbol name to analyze")),
			mcp.WithNumber("max_depth", mcp.Description("Maximum BFS depth to traverse (default 3)")),
			mcp.WithReadOnlyHintAnnotation(true),
			mcp.WithDestructiveHintAnnotation(false),
		)...,
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		argsMap, errResult := parseToolArguments(request)
		if errResult != nil {
			return errResult, nil
		}
		resp := engine.AnalyzeChangeImpact(ctx, query.AnalyzeChangeImpactRequest{
			Scope:      scopeFromArgs(argsMap),
			SymbolName: getString(argsMap, "name"),
			MaxDepth:   getInt(argsMap, "max_depth", 3),
		})
		return marshalToolResponse(resp)
	})

	s.AddTool(mcp.NewTool(
		"find_dead_code",
		withScopeArgs(
			mcp.WithDescription("Find symbols with zero recorded usages."),
			mcp.WithBoolean("exported_only", mcp.Description("Only report exported/public symbols")),
			mcp.WithBoolean("exclude_tests", mcp.Description("Skip symbols defined in test files")),
			mcp.WithNumber("limit", mcp.Description("Maximum number of results (0 means unbounded)")),
			mcp.WithReadOnlyHintAnnotation(true),
			mcp.WithDestructiveHintAnnotation(false),
		)...,
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		argsMap, errResult := parseToolArguments(request)
		if errResult != nil {
			return errResult, nil
		}
		resp := engine.FindDeadCode(ctx, query.FindDeadCodeRequest{
			Scope:        scopeFromArgs(argsMap),
			ExportedOnly: getBool(argsMap, "exported_only", false),
			ExcludeTests: getBool(argsMap, "exclude_tests", false),
			Limit:        getInt(argsMap, "limit", 0),
		})
		return marshalToolResponse(resp)
	})
}
