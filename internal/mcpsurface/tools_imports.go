package mcpsurface

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/sourcerack/sourcerack/internal/query"
	"github.com/sourcerack/sourcerack/internal/sqi"
)

// addImportTools registers find_imports, find_importers, and find_endpoints.
func addImportTools(s *server.MCPServer, engine *query.Engine) {
	s.AddTool(mcp.NewTool(
		"find_imports",
		withScopeArgs(
			mcp.WithDescription("List everything a file imports."),
			mcp.WithString("file", mcp.Required(), mcp.Description("File path to inspect")),
			mcp.WithReadOnlyHintAnnotation(true),
			mcp.WithDestructiveHintAnnotation(false),
		)...,
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		argsMap, errResult := parseToolArguments(request)
		if errResult != nil {
			return errResult, nil
		}
		resp := engine.FindImports(ctx, query.FindImportsRequest{
			Scope:    scopeFromArgs(argsMap),
			FilePath: getString(argsMap, "file"),
		})
		return marshalToolResponse(resp)
	})

	s.AddTool(mcp.NewTool(
		"find_importers",
		withScopeArgs(
			mcp.WithDescription("Find every file that imports a given module."),
			mcp.WithString("module", mcp.Required(), mcp.Description("Module specifier to search for, matched against each import's resolved path")),
			mcp.WithReadOnlyHintAnnotation(true),
			mcp.WithDestructiveHintAnnotation(false),
		)...,
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		argsMap, errResult := parseToolArguments(request)
		if errResult != nil {
			return errResult, nil
		}
		resp := engine.FindImporters(ctx, query.FindImportersRequest{
			Scope:           scopeFromArgs(argsMap),
			ModuleSpecifier: getString(argsMap, "module"),
		})
		return marshalToolResponse(resp)
	})

	s.AddTool(mcp.NewTool(
		"find_endpoints",
		withScopeArgs(
			mcp.WithDescription("Find HTTP endpoints, optionally filtered by method/path/framework."),
			mcp.WithString("method", mcp.Description("HTTP method filter, case-insensitive")),
			mcp.WithString("path", mcp.Description("Glob pattern over the endpoint path")),
			mcp.WithString("framework", mcp.Description("Restrict to one web framework")),
			mcp.WithReadOnlyHintAnnotation(true),
			mcp.WithDestructiveHintAnnotation(false),
		)...,
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		argsMap, errResult := parseToolArguments(request)
		if errResult != nil {
			return errResult, nil
		}
		resp := engine.FindEndpoints(ctx, query.FindEndpointsRequest{
			Scope:       scopeFromArgs(argsMap),
			Method:      getString(argsMap, "method"),
			PathPattern: getString(argsMap, "path"),
			Framework:   sqi.Framework(getString(argsMap, "framework")),
		})
		return marshalToolResponse(resp)
	})
}
