package query

import (
	"context"
	"time"

	"github.com/gammazero/deque"

	"github.com/sourcerack/sourcerack/internal/sqi"
)

// defaultImpactDepth is analyze_change_impact's max_depth default.
const defaultImpactDepth = 3

// AnalyzeChangeImpactRequest is spec §4.11's analyze_change_impact.
type AnalyzeChangeImpactRequest struct {
	Scope      Scope
	SymbolName string
	MaxDepth   int // default 3
}

// ImpactEntry is one symbol reached during the transitive BFS, tagged with
// the depth it was found at.
type ImpactEntry struct {
	RepoID string     `json:"repo_id"`
	Symbol sqi.Symbol `json:"symbol"`
	Depth  int        `json:"depth"`
}

// AnalyzeChangeImpactResponse is analyze_change_impact's result envelope.
type AnalyzeChangeImpactResponse struct {
	Response
	DirectUsages     []UsageMatch  `json:"direct_usages"`
	TransitiveImpact []ImpactEntry `json:"transitive_impact"`
	TotalAffected    int           `json:"total_affected"`
}

type impactQueueItem struct {
	symbol sqi.Symbol
	repoID string
	depth  int
}

// AnalyzeChangeImpact runs a breadth-first search over
// usage -> enclosing_symbol -> outer usages, starting from every direct
// usage of the target symbol, bounded by MaxDepth and deduplicated by
// symbol ID so cycles (mutual recursion, recursive calls) terminate.
func (e *Engine) AnalyzeChangeImpact(ctx context.Context, req AnalyzeChangeImpactRequest) AnalyzeChangeImpactResponse {
	start := time.Now()
	if req.SymbolName == "" {
		return AnalyzeChangeImpactResponse{Response: fail(start, invalidArgf("symbol_name is required"))}
	}
	maxDepth := req.MaxDepth
	if maxDepth <= 0 {
		maxDepth = defaultImpactDepth
	}

	repos, err := e.resolveScope(ctx, req.Scope)
	if err != nil {
		return AnalyzeChangeImpactResponse{Response: fail(start, err)}
	}

	var directUsages []UsageMatch
	var transitive []ImpactEntry

	for _, r := range repos {
		targets, err := e.SQI.SymbolsByName(ctx, r.CommitID, req.SymbolName)
		if err != nil {
			return AnalyzeChangeImpactResponse{Response: fail(start, err)}
		}

		for _, target := range targets {
			visited := map[int64]bool{target.ID: true}
			var queue deque.Deque[impactQueueItem]

			direct, err := e.usagesResolvingTo(ctx, r.CommitID, target)
			if err != nil {
				return AnalyzeChangeImpactResponse{Response: fail(start, err)}
			}
			for _, u := range direct {
				directUsages = append(directUsages, UsageMatch{RepoID: r.RepoID, Usage: u})
				if u.EnclosingSymbolID == nil || visited[*u.EnclosingSymbolID] {
					continue
				}
				visited[*u.EnclosingSymbolID] = true
				enclosing, err := e.SQI.SymbolByID(ctx, *u.EnclosingSymbolID)
				if err != nil {
					return AnalyzeChangeImpactResponse{Response: fail(start, err)}
				}
				if enclosing != nil {
					queue.PushBack(impactQueueItem{symbol: *enclosing, repoID: r.RepoID, depth: 1})
				}
			}

			for queue.Len() > 0 {
				item := queue.PopFront()
				transitive = append(transitive, ImpactEntry{RepoID: item.repoID, Symbol: item.symbol, Depth: item.depth})
				if item.depth >= maxDepth {
					continue
				}
				outer, err := e.usagesResolvingTo(ctx, r.CommitID, item.symbol)
				if err != nil {
					return AnalyzeChangeImpactResponse{Response: fail(start, err)}
				}
				for _, u := range outer {
					if u.EnclosingSymbolID == nil || visited[*u.EnclosingSymbolID] {
						continue
					}
					visited[*u.EnclosingSymbolID] = true
					enclosing, err := e.SQI.SymbolByID(ctx, *u.EnclosingSymbolID)
					if err != nil {
						return AnalyzeChangeImpactResponse{Response: fail(start, err)}
					}
					if enclosing != nil {
						queue.PushBack(impactQueueItem{symbol: *enclosing, repoID: r.RepoID, depth: item.depth + 1})
					}
				}
			}
		}
	}

	return AnalyzeChangeImpactResponse{
		Response:         ok(start),
		DirectUsages:     directUsages,
		TransitiveImpact: transitive,
		TotalAffected:    len(transitive),
	}
}

// usagesResolvingTo returns every usage whose resolved definition is sym,
// filtering UsagesByName's name-keyed result down to the exact symbol ID
// since multiple symbols can share a bare name across files.
func (e *Engine) usagesResolvingTo(ctx context.Context, commitID int64, sym sqi.Symbol) ([]sqi.Usage, error) {
	byName, err := e.SQI.UsagesByName(ctx, commitID, sym.Name)
	if err != nil {
		return nil, err
	}
	var out []sqi.Usage
	for _, u := range byName {
		if u.DefinitionSymbolID != nil && *u.DefinitionSymbolID == sym.ID {
			out = append(out, u)
		}
	}
	return out, nil
}
