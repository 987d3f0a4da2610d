package mcpsurface

import (
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/sourcerack/sourcerack/internal/query"
)

// parseToolArguments validates and extracts the arguments map from an MCP
// tool request. Returns the arguments map or an error result if validation
// fails.
func parseToolArguments(request mcp.CallToolRequest) (map[string]interface{}, *mcp.CallToolResult) {
	argsMap, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, mcp.NewToolResultError("invalid arguments format")
	}
	return argsMap, nil
}

// marshalToolResponse marshals a response object to JSON and returns it as
// an MCP tool result.
func marshalToolResponse(response interface{}) (*mcp.CallToolResult, error) {
	jsonData, err := json.Marshal(response)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}
	return mcp.NewToolResultText(string(jsonData)), nil
}

// scopeFromArgs builds a query.Scope from the repo_ids/all_repos/group/
// commit arguments every query tool shares.
func scopeFromArgs(argsMap map[string]interface{}) query.Scope {
	scope := query.Scope{}

	if repoIDs, ok := argsMap["repo_ids"].([]interface{}); ok {
		scope.RepoIDs = make([]string, 0, len(repoIDs))
		for _, id := range repoIDs {
			if s, ok := id.(string); ok {
				scope.RepoIDs = append(scope.RepoIDs, s)
			}
		}
	}
	if allRepos, ok := argsMap["all_repos"].(bool); ok {
		scope.AllRepos = allRepos
	}
	if group, ok := argsMap["group"].(string); ok {
		scope.Group = group
	}
	if commit, ok := argsMap["commit"].(string); ok {
		scope.Commit = commit
	}

	return scope
}

func withScopeArgs(opts ...mcp.ToolOption) []mcp.ToolOption {
	return append(opts,
		mcp.WithArray("repo_ids", mcp.Description("Repository ids to scope the query to (default: all tracked repos)")),
		mcp.WithBoolean("all_repos", mcp.Description("Explicitly scope the query to every tracked repository")),
		mcp.WithString("group", mcp.Description("Restrict the query to one configured group")),
		mcp.WithString("commit", mcp.Description("Ref to resolve per repository (default HEAD)")),
	)
}

func getString(argsMap map[string]interface{}, key string) string {
	if s, ok := argsMap[key].(string); ok {
		return s
	}
	return ""
}

func getBool(argsMap map[string]interface{}, key string, def bool) bool {
	if b, ok := argsMap[key].(bool); ok {
		return b
	}
	return def
}

func getInt(argsMap map[string]interface{}, key string, def int) int {
	if n, ok := argsMap[key].(float64); ok {
		return int(n)
	}
	return def
}
