package query

import (
	"context"
	"time"

	"github.com/agnivade/levenshtein"

	"github.com/sourcerack/sourcerack/internal/sqi"
)

// fuzzyThreshold is the minimum normalized similarity (1 - edit_distance /
// max_len) for a fuzzy find_definition match to be reported.
const fuzzyThreshold = 0.6

// FindDefinitionRequest is spec §4.11's find_definition.
type FindDefinitionRequest struct {
	Scope Scope
	Name  string
	Kind  sqi.SymbolKind // empty means any kind
	Fuzzy bool
}

// DefinitionMatch is one find_definition result.
type DefinitionMatch struct {
	RepoID     string     `json:"repo_id"`
	Symbol     sqi.Symbol `json:"symbol"`
	Similarity float64    `json:"similarity,omitempty"` // 0 for exact matches
}

// FindDefinitionResponse is find_definition's result envelope.
type FindDefinitionResponse struct {
	Response
	Matches []DefinitionMatch `json:"matches"`
}

// FindDefinition resolves exact (and, if requested, fuzzy) matches on a
// symbol's name or qualified name across the scoped repositories.
func (e *Engine) FindDefinition(ctx context.Context, req FindDefinitionRequest) FindDefinitionResponse {
	start := time.Now()
	if req.Name == "" {
		return FindDefinitionResponse{Response: fail(start, invalidArgf("name is required"))}
	}

	repos, err := e.resolveScope(ctx, req.Scope)
	if err != nil {
		return FindDefinitionResponse{Response: fail(start, err)}
	}

	var matches []DefinitionMatch
	for _, r := range repos {
		exact, err := e.SQI.SymbolsByName(ctx, r.CommitID, req.Name)
		if err != nil {
			return FindDefinitionResponse{Response: fail(start, err)}
		}
		exactIDs := make(map[int64]struct{}, len(exact))
		for _, sym := range exact {
			exactIDs[sym.ID] = struct{}{}
			if req.Kind != "" && sym.Kind != req.Kind {
				continue
			}
			matches = append(matches, DefinitionMatch{RepoID: r.RepoID, Symbol: sym})
		}

		if !req.Fuzzy {
			continue
		}
		all, err := e.SQI.SymbolsInCommit(ctx, r.CommitID)
		if err != nil {
			return FindDefinitionResponse{Response: fail(start, err)}
		}
		for _, sym := range all {
			if _, seen := exactIDs[sym.ID]; seen {
				continue
			}
			if req.Kind != "" && sym.Kind != req.Kind {
				continue
			}
			if sim := similarity(req.Name, sym.Name); sim >= fuzzyThreshold {
				matches = append(matches, DefinitionMatch{RepoID: r.RepoID, Symbol: sym, Similarity: sim})
			}
		}
	}

	return FindDefinitionResponse{Response: ok(start), Matches: matches}
}

// similarity returns a normalized edit-distance similarity in [0, 1]: 1
// means identical, 0 means completely dissimilar.
func similarity(a, b string) float64 {
	if a == "" && b == "" {
		return 1
	}
	dist := levenshtein.ComputeDistance(a, b)
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	if maxLen == 0 {
		return 1
	}
	return 1 - float64(dist)/float64(maxLen)
}
