package query

import (
	"context"
	"time"

	"github.com/sourcerack/sourcerack/internal/sqi"
)

// defaultMaxUsages is get_symbol_context's max_usages default.
const defaultMaxUsages = 20

// GetSymbolContextRequest is spec §4.11's get_symbol_context.
type GetSymbolContextRequest struct {
	Scope          Scope
	SymbolName     string
	IncludeSource  bool
	IncludeUsages  bool
	MaxUsages      int
}

// GetSymbolContextResponse is get_symbol_context's composite result
// envelope: the symbol itself plus everything around it a reader would
// want when deciding whether it's safe to change.
type GetSymbolContextResponse struct {
	Response
	RepoID      string       `json:"repo_id,omitempty"`
	Symbol      *sqi.Symbol  `json:"symbol,omitempty"`
	Source      string       `json:"source,omitempty"`
	Usages      []sqi.Usage  `json:"usages,omitempty"`
	FileImports []sqi.Import `json:"file_imports,omitempty"`
	Importers   []sqi.Import `json:"importers,omitempty"`
	Siblings    []sqi.Symbol `json:"siblings,omitempty"`
}

// GetSymbolContext assembles a symbol's definition, source slice, usages,
// the imports its own file depends on, the files that import its module,
// and its sibling symbols in the same file. The first exact name match in
// scope wins, matching the teacher's single-target composite queries.
func (e *Engine) GetSymbolContext(ctx context.Context, req GetSymbolContextRequest) GetSymbolContextResponse {
	start := time.Now()
	if req.SymbolName == "" {
		return GetSymbolContextResponse{Response: fail(start, invalidArgf("symbol_name is required"))}
	}
	maxUsages := req.MaxUsages
	if maxUsages <= 0 {
		maxUsages = defaultMaxUsages
	}

	repos, err := e.resolveScope(ctx, req.Scope)
	if err != nil {
		return GetSymbolContextResponse{Response: fail(start, err)}
	}

	for _, r := range repos {
		matches, err := e.SQI.SymbolsByName(ctx, r.CommitID, req.SymbolName)
		if err != nil {
			return GetSymbolContextResponse{Response: fail(start, err)}
		}
		if len(matches) == 0 {
			continue
		}
		sym := matches[0]
		resp := GetSymbolContextResponse{Response: ok(start), RepoID: r.RepoID, Symbol: &sym}

		if req.IncludeSource {
			if blobSHA, ok, err := e.fileBlobSHA(ctx, r.CommitID, sym.FilePath); err != nil {
				return GetSymbolContextResponse{Response: fail(start, err)}
			} else if ok {
				if content, err := e.Git.ReadBlob(ctx, r.RepoPath, blobSHA); err == nil {
					resp.Source = sliceLines(content, sym.StartLine, sym.EndLine)
				}
			}
		}

		if req.IncludeUsages {
			usages, err := e.usagesResolvingTo(ctx, r.CommitID, sym)
			if err != nil {
				return GetSymbolContextResponse{Response: fail(start, err)}
			}
			if len(usages) > maxUsages {
				usages = usages[:maxUsages]
			}
			resp.Usages = usages
		}

		fileImports, err := e.SQI.ImportsByFile(ctx, r.CommitID, sym.FilePath)
		if err != nil {
			return GetSymbolContextResponse{Response: fail(start, err)}
		}
		resp.FileImports = fileImports

		importers, err := e.SQI.ImportersOf(ctx, r.CommitID, sym.FilePath)
		if err != nil {
			return GetSymbolContextResponse{Response: fail(start, err)}
		}
		resp.Importers = importers

		siblings, err := e.SQI.SymbolsInFile(ctx, r.CommitID, sym.FilePath)
		if err != nil {
			return GetSymbolContextResponse{Response: fail(start, err)}
		}
		var filtered []sqi.Symbol
		for _, s := range siblings {
			if s.ID != sym.ID {
				filtered = append(filtered, s)
			}
		}
		resp.Siblings = filtered

		return resp
	}

	return GetSymbolContextResponse{Response: fail(start, sqerrSymbolNotFound(req.SymbolName))}
}

func (e *Engine) fileBlobSHA(ctx context.Context, commitID int64, filePath string) (string, bool, error) {
	blobs, err := e.Meta.GetFileBlobs(ctx, commitID)
	if err != nil {
		return "", false, err
	}
	sha, ok := blobs[filePath]
	return sha, ok, nil
}

func sliceLines(content []byte, startLine, endLine int) string {
	lines := splitLines(content)
	if startLine < 1 {
		startLine = 1
	}
	if endLine > len(lines) {
		endLine = len(lines)
	}
	if startLine > endLine {
		return ""
	}
	out := ""
	for i := startLine - 1; i < endLine; i++ {
		if i > startLine-1 {
			out += "\n"
		}
		out += lines[i]
	}
	return out
}
