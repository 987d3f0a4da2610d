// Package query implements the Query Engine (spec §4.11, C12): the
// read-only operations a caller runs against an already-indexed commit.
// Grounded on the teacher's internal/graph/searcher.go and searcher_sql.go
// (QueryRequest/QueryResponse shape, SQL-driven traversal, depth-bounded
// BFS with a ResponseMeta{TookMs, Source} envelope), generalized from the
// teacher's Go-only call graph onto the spec's full operation set and onto
// SQI's (repo, commit)-scoped tables instead of an in-memory graph.
//
// Every operation resolves a commit (default HEAD) through gitview before
// reading SQI, and never lets a Go error escape past its own return value:
// failures are reported as Response.Error, classified via sqerr.Kind so a
// caller can map them to spec §6/§7's exit codes.
package query

import (
	"context"
	"time"

	"github.com/sourcerack/sourcerack/internal/gitview"
	"github.com/sourcerack/sourcerack/internal/langreg"
	"github.com/sourcerack/sourcerack/internal/metastore"
	"github.com/sourcerack/sourcerack/internal/sqerr"
	"github.com/sourcerack/sourcerack/internal/sqi"
)

// Engine answers structural queries over already-indexed commits.
type Engine struct {
	SQI       *sqi.Store
	Meta      *metastore.Store
	Git       gitview.View
	Languages *langreg.Registry
}

// New builds a query Engine over an already-open store triple.
func New(sqiStore *sqi.Store, meta *metastore.Store, git gitview.View, languages *langreg.Registry) *Engine {
	return &Engine{SQI: sqiStore, Meta: meta, Git: git, Languages: languages}
}

// Scope selects which repositories and which commit within each to query.
// Per spec §9's Open Question resolution, only the multi-repo shape exists
// here: a single-repo query is just a Scope with one entry in RepoIDs.
type Scope struct {
	RepoIDs  []string // explicit repo_ids[] filter
	AllRepos bool     // query every tracked repository
	Group    string   // restrict to one --group
	Commit   string   // ref to resolve per repo, default "HEAD"
}

// Meta carries the response envelope every operation returns, mirroring
// the teacher's ResponseMeta.
type Meta struct {
	TookMs int    `json:"took_ms"`
	Source string `json:"source"`
}

// Response is embedded in every operation-specific response type. Success
// is false exactly when Error is non-empty; Query methods never return a
// bare Go error, per spec §7.
type Response struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Meta    Meta   `json:"metadata"`
}

func ok(start time.Time) Response {
	return Response{Success: true, Meta: Meta{TookMs: elapsedMs(start), Source: "query"}}
}

func fail(start time.Time, err error) Response {
	return Response{Success: false, Error: err.Error(), Meta: Meta{TookMs: elapsedMs(start), Source: "query"}}
}

func elapsedMs(start time.Time) int {
	return int(time.Since(start) / time.Millisecond)
}

// invalidArgf builds a KindInvalidArgument error for a required-parameter
// check, the common case for every operation's argument validation.
func invalidArgf(message string) error {
	return sqerr.New(sqerr.KindInvalidArgument, message, nil)
}

// sqerrSymbolNotFound builds a KindSymbolNotFound error for composite
// queries that target exactly one symbol.
func sqerrSymbolNotFound(name string) error {
	return sqerr.New(sqerr.KindSymbolNotFound, "no symbol named "+name+" in scope", nil)
}

// resolvedRepo is one repository resolved to a complete, indexed commit.
type resolvedRepo struct {
	RepoID    string
	RepoPath  string
	CommitID  int64
	CommitSHA string
}

// resolveScope expands a Scope into the repositories it names, each
// resolved to the commit its ref currently points at. A repo that does not
// resolve (not on disk, unknown ref, or not yet completely indexed at that
// commit) is silently skipped rather than failing the whole query, so a
// multi-repo query still answers from the repos that do resolve; the
// overall call only fails when none of them do.
func (e *Engine) resolveScope(ctx context.Context, scope Scope) ([]resolvedRepo, error) {
	var repos []metastore.Repository
	if len(scope.RepoIDs) > 0 {
		for _, id := range scope.RepoIDs {
			r, err := e.Meta.GetRepository(ctx, id)
			if err != nil {
				return nil, err
			}
			if r != nil {
				repos = append(repos, *r)
			}
		}
	} else {
		all, err := e.Meta.ListRepositories(ctx, scope.Group)
		if err != nil {
			return nil, err
		}
		repos = all
	}
	if len(repos) == 0 {
		return nil, sqerr.New(sqerr.KindRepoNotIndexed, "no repositories match scope", nil)
	}

	ref := scope.Commit
	if ref == "" {
		ref = "HEAD"
	}

	var out []resolvedRepo
	for _, r := range repos {
		sha, err := e.Git.ResolveRef(ctx, r.Path, ref)
		if err != nil {
			continue
		}
		commit, err := e.Meta.GetIndexedCommit(ctx, r.ID, sha)
		if err != nil {
			return nil, err
		}
		if commit == nil || commit.Status != metastore.StatusComplete {
			continue
		}
		out = append(out, resolvedRepo{RepoID: r.ID, RepoPath: r.Path, CommitID: commit.ID, CommitSHA: sha})
	}
	if len(out) == 0 {
		return nil, sqerr.New(sqerr.KindRepoNotIndexed, "no repository in scope is completely indexed at the requested commit", nil)
	}
	return out, nil
}

// snippet extracts context lines around a 1-indexed line number from a
// blob's content, for find_usages/get_symbol_context's context injection.
func snippet(content []byte, line, contextLines int) string {
	lines := splitLines(content)
	if line < 1 || line > len(lines) {
		return ""
	}
	start := line - 1 - contextLines
	if start < 0 {
		start = 0
	}
	end := line - 1 + contextLines
	if end >= len(lines) {
		end = len(lines) - 1
	}
	out := ""
	for i := start; i <= end; i++ {
		if i > start {
			out += "\n"
		}
		out += lines[i]
	}
	return out
}

func splitLines(content []byte) []string {
	var lines []string
	start := 0
	for i, b := range content {
		if b == '\n' {
			lines = append(lines, string(content[start:i]))
			start = i + 1
		}
	}
	lines = append(lines, string(content[start:]))
	return lines
}
