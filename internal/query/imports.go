package query

import (
	"context"
	"time"

	"github.com/sourcerack/sourcerack/internal/sqi"
)

// FindImportsRequest is spec §4.11's find_imports.
type FindImportsRequest struct {
	Scope    Scope
	FilePath string
}

// ImportMatch tags an Import with the repo it came from, for multi-repo
// scopes.
type ImportMatch struct {
	RepoID string    `json:"repo_id"`
	Import sqi.Import `json:"import"`
}

// FindImportsResponse is find_imports's result envelope.
type FindImportsResponse struct {
	Response
	Imports []ImportMatch `json:"imports"`
}

// FindImports lists every import statement recorded in a file.
func (e *Engine) FindImports(ctx context.Context, req FindImportsRequest) FindImportsResponse {
	start := time.Now()
	if req.FilePath == "" {
		return FindImportsResponse{Response: fail(start, invalidArgf("file_path is required"))}
	}

	repos, err := e.resolveScope(ctx, req.Scope)
	if err != nil {
		return FindImportsResponse{Response: fail(start, err)}
	}

	var matches []ImportMatch
	for _, r := range repos {
		imports, err := e.SQI.ImportsByFile(ctx, r.CommitID, req.FilePath)
		if err != nil {
			return FindImportsResponse{Response: fail(start, err)}
		}
		for _, imp := range imports {
			matches = append(matches, ImportMatch{RepoID: r.RepoID, Import: imp})
		}
	}

	return FindImportsResponse{Response: ok(start), Imports: matches}
}

// FindImportersRequest is spec §4.11's find_importers.
type FindImportersRequest struct {
	Scope           Scope
	ModuleSpecifier string // matched against Import.resolved_path
}

// FindImportersResponse is find_importers's result envelope.
type FindImportersResponse struct {
	Response
	Importers []ImportMatch `json:"importers"`
}

// FindImporters lists every file that imports a given resolved module path,
// the inverse lookup of find_imports.
func (e *Engine) FindImporters(ctx context.Context, req FindImportersRequest) FindImportersResponse {
	start := time.Now()
	if req.ModuleSpecifier == "" {
		return FindImportersResponse{Response: fail(start, invalidArgf("module_specifier is required"))}
	}

	repos, err := e.resolveScope(ctx, req.Scope)
	if err != nil {
		return FindImportersResponse{Response: fail(start, err)}
	}

	var matches []ImportMatch
	for _, r := range repos {
		importers, err := e.SQI.ImportersOf(ctx, r.CommitID, req.ModuleSpecifier)
		if err != nil {
			return FindImportersResponse{Response: fail(start, err)}
		}
		for _, imp := range importers {
			matches = append(matches, ImportMatch{RepoID: r.RepoID, Import: imp})
		}
	}

	return FindImportersResponse{Response: ok(start), Importers: matches}
}
