package query

import (
	"context"
	"time"

	"github.com/sourcerack/sourcerack/internal/sqi"
)

// HierarchyDirection is find_hierarchy's traversal direction.
type HierarchyDirection string

const (
	DirectionChildren HierarchyDirection = "children"
	DirectionParents  HierarchyDirection = "parents"
	DirectionBoth     HierarchyDirection = "both"
)

// FindHierarchyRequest is spec §4.11's find_hierarchy.
type FindHierarchyRequest struct {
	Scope      Scope
	SymbolName string
	Direction  HierarchyDirection
}

// FindHierarchyResponse is find_hierarchy's result envelope. Parents is the
// qualified_name's ancestor chain (immediate parent first); Children is the
// direct-child symbol set, one level, per repo match.
type FindHierarchyResponse struct {
	Response
	Parents  []sqi.Symbol `json:"parents,omitempty"`
	Children []sqi.Symbol `json:"children,omitempty"`
}

// FindHierarchy walks the parent chain (via parent_symbol_id) and/or the
// direct children of every symbol matching SymbolName across scope.
func (e *Engine) FindHierarchy(ctx context.Context, req FindHierarchyRequest) FindHierarchyResponse {
	start := time.Now()
	if req.SymbolName == "" {
		return FindHierarchyResponse{Response: fail(start, invalidArgf("symbol_name is required"))}
	}
	direction := req.Direction
	if direction == "" {
		direction = DirectionBoth
	}

	repos, err := e.resolveScope(ctx, req.Scope)
	if err != nil {
		return FindHierarchyResponse{Response: fail(start, err)}
	}

	var parents, children []sqi.Symbol
	for _, r := range repos {
		syms, err := e.SQI.SymbolsByName(ctx, r.CommitID, req.SymbolName)
		if err != nil {
			return FindHierarchyResponse{Response: fail(start, err)}
		}
		for _, sym := range syms {
			if direction == DirectionParents || direction == DirectionBoth {
				chain, err := e.parentChain(ctx, sym)
				if err != nil {
					return FindHierarchyResponse{Response: fail(start, err)}
				}
				parents = append(parents, chain...)
			}
			if direction == DirectionChildren || direction == DirectionBoth {
				kids, err := e.SQI.ChildSymbols(ctx, sym.ID)
				if err != nil {
					return FindHierarchyResponse{Response: fail(start, err)}
				}
				children = append(children, kids...)
			}
		}
	}

	return FindHierarchyResponse{Response: ok(start), Parents: parents, Children: children}
}

// parentChain walks parent_symbol_id from sym up to the root, immediate
// parent first.
func (e *Engine) parentChain(ctx context.Context, sym sqi.Symbol) ([]sqi.Symbol, error) {
	var chain []sqi.Symbol
	current := sym
	for current.ParentSymbolID != nil {
		parent, err := e.SQI.SymbolByID(ctx, *current.ParentSymbolID)
		if err != nil {
			return nil, err
		}
		if parent == nil {
			break
		}
		chain = append(chain, *parent)
		current = *parent
	}
	return chain, nil
}
