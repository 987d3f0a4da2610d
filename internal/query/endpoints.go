package query

import (
	"context"
	"strings"
	"time"

	"github.com/gobwas/glob"

	"github.com/sourcerack/sourcerack/internal/sqi"
)

// FindEndpointsRequest is spec §4.11's find_endpoints.
type FindEndpointsRequest struct {
	Scope       Scope
	Method      string // HTTP method, case-insensitive, empty means any
	PathPattern string // glob over endpoint.path, "*" wildcards, empty means any
	Framework   sqi.Framework
}

// EndpointMatch tags an Endpoint with its repo, for multi-repo scopes.
type EndpointMatch struct {
	RepoID   string      `json:"repo_id"`
	Endpoint sqi.Endpoint `json:"endpoint"`
}

// FindEndpointsResponse is find_endpoints's result envelope.
type FindEndpointsResponse struct {
	Response
	Endpoints []EndpointMatch `json:"endpoints"`
}

// FindEndpoints scans every endpoint in scope, filtering by method, glob
// path pattern, and framework.
func (e *Engine) FindEndpoints(ctx context.Context, req FindEndpointsRequest) FindEndpointsResponse {
	start := time.Now()

	var pattern glob.Glob
	if req.PathPattern != "" {
		g, err := glob.Compile(req.PathPattern, '/')
		if err != nil {
			return FindEndpointsResponse{Response: fail(start, invalidArgf("invalid path_pattern: "+err.Error()))}
		}
		pattern = g
	}

	repos, err := e.resolveScope(ctx, req.Scope)
	if err != nil {
		return FindEndpointsResponse{Response: fail(start, err)}
	}

	var matches []EndpointMatch
	for _, r := range repos {
		endpoints, err := e.SQI.EndpointsInCommit(ctx, r.CommitID)
		if err != nil {
			return FindEndpointsResponse{Response: fail(start, err)}
		}
		for _, ep := range endpoints {
			if req.Method != "" && !strings.EqualFold(req.Method, ep.HTTPMethod) {
				continue
			}
			if req.Framework != "" && req.Framework != ep.Framework {
				continue
			}
			if pattern != nil && !pattern.Match(ep.Path) {
				continue
			}
			matches = append(matches, EndpointMatch{RepoID: r.RepoID, Endpoint: ep})
		}
	}

	return FindEndpointsResponse{Response: ok(start), Endpoints: matches}
}
