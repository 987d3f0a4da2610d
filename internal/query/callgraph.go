package query

import (
	"context"
	"time"

	"github.com/sourcerack/sourcerack/internal/sqi"
)

// CallGraphDirection is get_call_graph's traversal direction.
type CallGraphDirection string

const (
	CallGraphCallers CallGraphDirection = "callers"
	CallGraphCallees CallGraphDirection = "callees"
	CallGraphBoth    CallGraphDirection = "both"
)

// GetCallGraphRequest is spec §4.11's get_call_graph.
type GetCallGraphRequest struct {
	Scope      Scope
	SymbolName string
	Direction  CallGraphDirection
}

// GetCallGraphResponse is get_call_graph's result envelope.
type GetCallGraphResponse struct {
	Response
	Callers []sqi.Usage `json:"callers,omitempty"`
	Callees []sqi.Usage `json:"callees,omitempty"`
}

// GetCallGraph finds callers (usages of type call resolving to the target)
// and/or callees (usages whose enclosing symbol is the target, i.e. calls
// made from within its own body).
func (e *Engine) GetCallGraph(ctx context.Context, req GetCallGraphRequest) GetCallGraphResponse {
	start := time.Now()
	if req.SymbolName == "" {
		return GetCallGraphResponse{Response: fail(start, invalidArgf("symbol_name is required"))}
	}
	direction := req.Direction
	if direction == "" {
		direction = CallGraphBoth
	}

	repos, err := e.resolveScope(ctx, req.Scope)
	if err != nil {
		return GetCallGraphResponse{Response: fail(start, err)}
	}

	var callers, callees []sqi.Usage
	for _, r := range repos {
		targets, err := e.SQI.SymbolsByName(ctx, r.CommitID, req.SymbolName)
		if err != nil {
			return GetCallGraphResponse{Response: fail(start, err)}
		}
		for _, target := range targets {
			if direction == CallGraphCallers || direction == CallGraphBoth {
				usages, err := e.SQI.UsagesByName(ctx, r.CommitID, req.SymbolName)
				if err != nil {
					return GetCallGraphResponse{Response: fail(start, err)}
				}
				for _, u := range usages {
					if u.UsageType == sqi.UsageCall && u.DefinitionSymbolID != nil && *u.DefinitionSymbolID == target.ID {
						callers = append(callers, u)
					}
				}
			}
			if direction == CallGraphCallees || direction == CallGraphBoth {
				enclosed, err := e.SQI.UsagesByEnclosing(ctx, r.CommitID, target.ID)
				if err != nil {
					return GetCallGraphResponse{Response: fail(start, err)}
				}
				for _, u := range enclosed {
					if u.UsageType == sqi.UsageCall {
						callees = append(callees, u)
					}
				}
			}
		}
	}

	return GetCallGraphResponse{Response: ok(start), Callers: callers, Callees: callees}
}
