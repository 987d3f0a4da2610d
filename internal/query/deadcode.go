package query

import (
	"context"
	"strings"
	"time"

	"github.com/sourcerack/sourcerack/internal/sqi"
)

// testPathMarkers recognizes conventional test file paths across the
// languages the extractor registry supports, for find_dead_code's
// --exclude-tests flag (supplemented from spec §8's boundary-behaviour
// list, promoted here to a first-class parameter).
var testPathMarkers = []string{"_test.go", "test_", ".test.", ".spec.", "_spec.rb"}

func looksLikeTestPath(path string) bool {
	base := path
	for _, marker := range testPathMarkers {
		if strings.Contains(base, marker) {
			return true
		}
	}
	return false
}

// FindDeadCodeRequest is spec §4.11's find_dead_code.
type FindDeadCodeRequest struct {
	Scope        Scope
	ExportedOnly bool
	ExcludeTests bool
	Limit        int // 0 means unbounded
}

// DeadSymbol tags a zero-usage symbol with its repo.
type DeadSymbol struct {
	RepoID string     `json:"repo_id"`
	Symbol sqi.Symbol `json:"symbol"`
}

// FindDeadCodeResponse is find_dead_code's result envelope.
type FindDeadCodeResponse struct {
	Response
	Symbols []DeadSymbol `json:"symbols"`
}

// FindDeadCode reports symbols with zero resolved usages in the scoped
// commits. A cross-repo scope unions the dead-symbol sets across commits,
// per spec §4.11.
func (e *Engine) FindDeadCode(ctx context.Context, req FindDeadCodeRequest) FindDeadCodeResponse {
	start := time.Now()

	repos, err := e.resolveScope(ctx, req.Scope)
	if err != nil {
		return FindDeadCodeResponse{Response: fail(start, err)}
	}

	var dead []DeadSymbol
	for _, r := range repos {
		symbols, err := e.SQI.DeadCodeSymbols(ctx, r.CommitID, req.ExportedOnly)
		if err != nil {
			return FindDeadCodeResponse{Response: fail(start, err)}
		}
		for _, sym := range symbols {
			if req.ExcludeTests && looksLikeTestPath(sym.FilePath) {
				continue
			}
			dead = append(dead, DeadSymbol{RepoID: r.RepoID, Symbol: sym})
			if req.Limit > 0 && len(dead) >= req.Limit {
				return FindDeadCodeResponse{Response: ok(start), Symbols: dead}
			}
		}
	}

	return FindDeadCodeResponse{Response: ok(start), Symbols: dead}
}
