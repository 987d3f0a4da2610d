package query

import (
	"context"
	"time"

	"github.com/sourcerack/sourcerack/internal/sqi"
)

// FindUsagesRequest is spec §4.11's find_usages.
type FindUsagesRequest struct {
	Scope      Scope
	SymbolName string
	FilePath   string // optional, narrows to usages recorded in this file
}

// UsageMatch is one find_usages result: a Usage plus the context line it
// was found at.
type UsageMatch struct {
	RepoID  string    `json:"repo_id"`
	Usage   sqi.Usage `json:"usage"`
	Context string    `json:"context,omitempty"`
}

// FindUsagesResponse is find_usages's result envelope.
type FindUsagesResponse struct {
	Response
	Usages []UsageMatch `json:"usages"`
}

// FindUsages returns every recorded usage of a symbol name, with a one-line
// context snippet extracted from the indexed source around each usage.
func (e *Engine) FindUsages(ctx context.Context, req FindUsagesRequest) FindUsagesResponse {
	start := time.Now()
	if req.SymbolName == "" {
		return FindUsagesResponse{Response: fail(start, invalidArgf("symbol_name is required"))}
	}

	repos, err := e.resolveScope(ctx, req.Scope)
	if err != nil {
		return FindUsagesResponse{Response: fail(start, err)}
	}

	var matches []UsageMatch
	for _, r := range repos {
		usages, err := e.SQI.UsagesByName(ctx, r.CommitID, req.SymbolName)
		if err != nil {
			return FindUsagesResponse{Response: fail(start, err)}
		}
		fileBlobs, err := e.Meta.GetFileBlobs(ctx, r.CommitID)
		if err != nil {
			return FindUsagesResponse{Response: fail(start, err)}
		}
		for _, u := range usages {
			if req.FilePath != "" && u.FilePath != req.FilePath {
				continue
			}
			match := UsageMatch{RepoID: r.RepoID, Usage: u}
			if blobSHA, ok := fileBlobs[u.FilePath]; ok {
				if content, err := e.Git.ReadBlob(ctx, r.RepoPath, blobSHA); err == nil {
					match.Context = snippet(content, u.Line, 0)
				}
			}
			matches = append(matches, match)
		}
	}

	return FindUsagesResponse{Response: ok(start), Usages: matches}
}
