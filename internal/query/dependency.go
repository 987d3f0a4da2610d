package query

import (
	"context"
	"path"
	"sort"
	"time"
)

const defaultMaxEdges = 200

// GetDependencyGraphRequest is spec §4.11's get_dependency_graph.
type GetDependencyGraphRequest struct {
	Scope    Scope
	MaxEdges int
}

// DependencyEdge is one module-level edge: From depends on To, Count times
// (one per import statement that contributes to the edge).
type DependencyEdge struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Count int    `json:"count"`
}

// GetDependencyGraphResponse is get_dependency_graph's result envelope.
type GetDependencyGraphResponse struct {
	Response
	Nodes []string         `json:"nodes"`
	Edges []DependencyEdge `json:"edges"`
}

// GetDependencyGraph derives module-level edges from every import
// statement in scope: nodes are directory prefixes for internally resolved
// imports and module-root names for external ones.
func (e *Engine) GetDependencyGraph(ctx context.Context, req GetDependencyGraphRequest) GetDependencyGraphResponse {
	start := time.Now()
	maxEdges := req.MaxEdges
	if maxEdges <= 0 {
		maxEdges = defaultMaxEdges
	}

	repos, err := e.resolveScope(ctx, req.Scope)
	if err != nil {
		return GetDependencyGraphResponse{Response: fail(start, err)}
	}

	type edgeKey struct{ from, to string }
	counts := make(map[edgeKey]int)

	for _, r := range repos {
		fileBlobs, err := e.Meta.GetFileBlobs(ctx, r.CommitID)
		if err != nil {
			return GetDependencyGraphResponse{Response: fail(start, err)}
		}
		imports, err := e.SQI.ImportsInCommit(ctx, r.CommitID)
		if err != nil {
			return GetDependencyGraphResponse{Response: fail(start, err)}
		}
		for _, imp := range imports {
			from := path.Dir(imp.FilePath)
			to := moduleRoot(imp.ModuleSpecifier)
			if _, internal := fileBlobs[imp.ResolvedPath]; internal {
				to = path.Dir(imp.ResolvedPath)
			}
			if from == to {
				continue
			}
			counts[edgeKey{from: from, to: to}]++
		}
	}

	var edges []DependencyEdge
	nodeSet := make(map[string]bool)
	for k, count := range counts {
		edges = append(edges, DependencyEdge{From: k.from, To: k.to, Count: count})
		nodeSet[k.from] = true
		nodeSet[k.to] = true
	}
	sort.Slice(edges, func(i, j int) bool { return edges[i].Count > edges[j].Count })
	if len(edges) > maxEdges {
		edges = edges[:maxEdges]
	}

	var nodes []string
	for n := range nodeSet {
		nodes = append(nodes, n)
	}
	sort.Strings(nodes)

	return GetDependencyGraphResponse{Response: ok(start), Nodes: nodes, Edges: edges}
}
