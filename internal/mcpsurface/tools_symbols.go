package mcpsurface

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/sourcerack/sourcerack/internal/query"
	"github.com/sourcerack/sourcerack/internal/sqi"
)

// addSymbolTools registers find_definition, find_usages, find_hierarchy,
// and get_symbol_context.
func addSymbolTools(s *server.MCPServer, engine *query.Engine) {
	s.AddTool(mcp.NewTool(
		"find_definition",
		withScopeArgs(
			mcp.WithDescription("Find where a symbol is defined, by exact or fuzzy name match."),
			mcp.WithString("name", mcp.Required(), mcp.Description("Symbol name to look up")),
			mcp.WithString("kind", mcp.Description("Restrict to one symbol kind (function, class, method, ...)")),
			mcp.WithBoolean("fuzzy", mcp.Description("Fall back to edit-distance matching when no exact match exists")),
			mcp.WithReadOnlyHintAnnotation(true),
			mcp.WithDestructiveHintAnnotation(false),
		)...,
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		argsMap, errResult := parseToolArguments(request)
		if errResult != nil {
			return errResult, nil
		}
		resp := engine.FindDefinition(ctx, query.FindDefinitionRequest{
			Scope: scopeFromArgs(argsMap),
			Name:  getString(argsMap, "name"),
			Kind:  sqi.SymbolKind(getString(argsMap, "kind")),
			Fuzzy: getBool(argsMap, "fuzzy", false),
		})
		return marshalToolResponse(resp)
	})

	s.AddTool(mcp.NewTool(
		"find_usages",
		withScopeArgs(
			mcp.WithDescription("Find every recorded usage of a symbol."),
			mcp.WithString("name", mcp.Required(), mcp.Description("Symbol name to search for")),
			mcp.WithString("file", mcp.Description("Narrow to usages recorded in this file")),
			mcp.WithReadOnlyHintAnnotation(true),
			mcp.WithDestructiveHintAnnotation(false),
		)...,
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		argsMap, errResult := parseToolArguments(request)
		if errResult != nil {
			return errResult, nil
		}
		resp := engine.FindUsages(ctx, query.FindUsagesRequest{
			Scope:      scopeFromArgs(argsMap),
			SymbolName: getString(argsMap, "name"),
			FilePath:   getString(argsMap, "file"),
		})
		return marshalToolResponse(resp)
	})

	s.AddTool(mcp.NewTool(
		"find_hierarchy",
		withScopeArgs(
			mcp.WithDescription("Find a type's parent/child hierarchy."),
			mcp.WithString("name", mcp.Required(), mcp.Description("Symbol name to look up")),
			mcp.WithString("direction", mcp.Description("children, parents, or both (default both)")),
			mcp.WithReadOnlyHintAnnotation(true),
			mcp.WithDestructiveHintAnnotation(false),
		)...,
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		argsMap, errResult := parseToolArguments(request)
		if errResult != nil {
			return errResult, nil
		}
		resp := engine.FindHierarchy(ctx, query.FindHierarchyRequest{
			Scope:      scopeFromArgs(argsMap),
			SymbolName: getString(argsMap, "name"),
			Direction:  query.HierarchyDirection(getStringDefault(argsMap, "direction", "both")),
		})
		return marshalToolResponse(resp)
	})

	s.AddTool(mcp.NewTool(
		"get_symbol_context",
		withScopeArgs(
			mcp.WithDescription("Get a symbol's definition, docs, and a sample of its usages."),
			mcp.WithString("name", mcp.Required(), mcp.Description("Symbol name to look up")),
			mcp.WithBoolean("include_source", mcp.Description("Include the symbol's source snippet (default true)")),
			mcp.WithBoolean("include_usages", mcp.Description("Include a sample of the symbol's usages (default true)")),
			mcp.WithNumber("max_usages", mcp.Description("Maximum number of usages to include (default 10)")),
			mcp.WithReadOnlyHintAnnotation(true),
			mcp.WithDestructiveHintAnnotation(false),
		)...,
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		argsMap, errResult := parseToolArguments(request)
		if errResult != nil {
			return errResult, nil
		}
		resp := engine.GetSymbolContext(ctx, query.GetSymbolContextRequest{
			Scope:         scopeFromArgs(argsMap),
			SymbolName:    getString(argsMap, "name"),
			IncludeSource: getBool(argsMap, "include_source", true),
			IncludeUsages: getBool(argsMap, "include_usages", true),
			MaxUsages:     getInt(argsMap, "max_usages", 10),
		})
		return marshalToolResponse(resp)
	})
}

func getStringDefault(argsMap map[string]interface{}, key, def string) string {
	if s, ok := argsMap[key].(string); ok && s != "" {
		return s
	}
	return def
}
