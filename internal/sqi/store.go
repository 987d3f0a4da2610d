package sqi

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/sourcerack/sourcerack/internal/sqerr"
)

// Store is the Structured Query Index, backed by a shared *sql.DB handle
// (the same handle internal/metastore writes to, per spec §4.8's "one
// transactional database").
type Store struct {
	db *sql.DB
}

// Open wraps an already-opened database handle. Schema must already be
// applied by the caller (see internal/sqlstore.Open, which applies both
// this package's schema and internal/metastore's in one migration step).
func Open(db *sql.DB) *Store {
	return &Store{db: db}
}

// InsertSymbols bulk-inserts symbols for one (repo, commit), returning the
// assigned IDs in input order so callers can resolve parent_symbol_id
// before inserting parameters/docstrings that reference them.
func (s *Store) InsertSymbols(ctx context.Context, tx *sql.Tx, symbols []Symbol) ([]int64, error) {
	ids := make([]int64, len(symbols))
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO symbols (
			repo_id, commit_id, name, qualified_name, kind, file_path,
			start_line, end_line, visibility, is_async, is_static,
			is_exported, return_type, parent_symbol_id, content_hash
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return nil, sqerr.New(sqerr.KindStorageError, "prepare insert symbols", err)
	}
	defer stmt.Close()

	for i, sym := range symbols {
		res, err := stmt.ExecContext(ctx,
			sym.RepoID, sym.CommitID, sym.Name, sym.QualifiedName, string(sym.Kind),
			sym.FilePath, sym.StartLine, sym.EndLine, sym.Visibility,
			boolToInt(sym.IsAsync), boolToInt(sym.IsStatic), boolToInt(sym.IsExported),
			sym.ReturnType, sym.ParentSymbolID, sym.ContentHash,
		)
		if err != nil {
			return nil, sqerr.New(sqerr.KindStorageError, fmt.Sprintf("insert symbol %q", sym.QualifiedName), err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, sqerr.New(sqerr.KindStorageError, "read last insert id", err)
		}
		ids[i] = id
	}
	return ids, nil
}

// InsertSymbolParameters bulk-inserts parameter rows.
func (s *Store) InsertSymbolParameters(ctx context.Context, tx *sql.Tx, params []SymbolParameter) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO symbol_parameters (symbol_id, position, name, type_annotation, is_optional)
		VALUES (?,?,?,?,?)`)
	if err != nil {
		return sqerr.New(sqerr.KindStorageError, "prepare insert symbol parameters", err)
	}
	defer stmt.Close()
	for _, p := range params {
		if _, err := stmt.ExecContext(ctx, p.SymbolID, p.Position, p.Name, p.TypeAnnotation, boolToInt(p.IsOptional)); err != nil {
			return sqerr.New(sqerr.KindStorageError, "insert symbol parameter", err)
		}
	}
	return nil
}

// InsertSymbolDocstrings bulk-inserts docstring rows.
func (s *Store) InsertSymbolDocstrings(ctx context.Context, tx *sql.Tx, docs []SymbolDocstring) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO symbol_docstrings (symbol_id, doc_type, raw_text, description)
		VALUES (?,?,?,?)`)
	if err != nil {
		return sqerr.New(sqerr.KindStorageError, "prepare insert symbol docstrings", err)
	}
	defer stmt.Close()
	for _, d := range docs {
		if _, err := stmt.ExecContext(ctx, d.SymbolID, string(d.DocType), d.RawText, d.Description); err != nil {
			return sqerr.New(sqerr.KindStorageError, "insert symbol docstring", err)
		}
	}
	return nil
}

// InsertUsages bulk-inserts usage rows, returning assigned IDs in order.
func (s *Store) InsertUsages(ctx context.Context, tx *sql.Tx, usages []Usage) ([]int64, error) {
	ids := make([]int64, len(usages))
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO usages (
			commit_id, symbol_name, file_path, line, column, usage_type,
			enclosing_symbol_name, enclosing_symbol_id, definition_symbol_id
		) VALUES (?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return nil, sqerr.New(sqerr.KindStorageError, "prepare insert usages", err)
	}
	defer stmt.Close()
	for i, u := range usages {
		res, err := stmt.ExecContext(ctx,
			u.CommitID, u.SymbolName, u.FilePath, u.Line, u.Column, string(u.UsageType),
			u.EnclosingSymbolName, u.EnclosingSymbolID, u.DefinitionSymbolID,
		)
		if err != nil {
			return nil, sqerr.New(sqerr.KindStorageError, "insert usage", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, sqerr.New(sqerr.KindStorageError, "read last insert id", err)
		}
		ids[i] = id
	}
	return ids, nil
}

// LinkUsageDefinition sets definition_symbol_id for a usage row. Never
// downgrades: callers should only call this once per usage (the linker,
// C10, enforces idempotence at a higher level).
func (s *Store) LinkUsageDefinition(ctx context.Context, tx *sql.Tx, usageID, symbolID int64) error {
	_, err := tx.ExecContext(ctx, `UPDATE usages SET definition_symbol_id = ? WHERE id = ?`, symbolID, usageID)
	if err != nil {
		return sqerr.New(sqerr.KindStorageError, "link usage definition", err)
	}
	return nil
}

// LinkUsageEnclosing sets enclosing_symbol_id for a usage row, resolved
// from its enclosing_symbol_name qualified-name hint.
func (s *Store) LinkUsageEnclosing(ctx context.Context, tx *sql.Tx, usageID, symbolID int64) error {
	_, err := tx.ExecContext(ctx, `UPDATE usages SET enclosing_symbol_id = ? WHERE id = ?`, symbolID, usageID)
	if err != nil {
		return sqerr.New(sqerr.KindStorageError, "link usage enclosing symbol", err)
	}
	return nil
}

// BeginTx starts a transaction on the SQI's shared database handle, for
// callers (e.g. the linker, C10) that need to batch several writes.
func (s *Store) BeginTx(ctx context.Context) (*sql.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, sqerr.New(sqerr.KindStorageError, "begin transaction", err)
	}
	return tx, nil
}

// InsertImports bulk-inserts imports and their bindings.
func (s *Store) InsertImports(ctx context.Context, tx *sql.Tx, imports []Import) error {
	importStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO imports (commit_id, file_path, line, import_type, module_specifier, resolved_path)
		VALUES (?,?,?,?,?,?)`)
	if err != nil {
		return sqerr.New(sqerr.KindStorageError, "prepare insert imports", err)
	}
	defer importStmt.Close()

	bindingStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO import_bindings (import_id, imported_name, local_name, is_type_only)
		VALUES (?,?,?,?)`)
	if err != nil {
		return sqerr.New(sqerr.KindStorageError, "prepare insert import bindings", err)
	}
	defer bindingStmt.Close()

	for _, imp := range imports {
		res, err := importStmt.ExecContext(ctx, imp.CommitID, imp.FilePath, imp.Line, string(imp.ImportType), imp.ModuleSpecifier, imp.ResolvedPath)
		if err != nil {
			return sqerr.New(sqerr.KindStorageError, "insert import", err)
		}
		importID, err := res.LastInsertId()
		if err != nil {
			return sqerr.New(sqerr.KindStorageError, "read last insert id", err)
		}
		for _, b := range imp.Bindings {
			if _, err := bindingStmt.ExecContext(ctx, importID, b.ImportedName, b.LocalName, boolToInt(b.IsTypeOnly)); err != nil {
				return sqerr.New(sqerr.KindStorageError, "insert import binding", err)
			}
		}
	}
	return nil
}

// InsertEndpoints bulk-inserts endpoints and their params.
func (s *Store) InsertEndpoints(ctx context.Context, tx *sql.Tx, endpoints []Endpoint) error {
	epStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO endpoints (
			commit_id, http_method, path, file_path, start_line, end_line,
			framework, handler_symbol_id, handler_type, handler_name,
			middleware, dependencies, summary, tags, response_model,
			body_schema, mcp_tool_name, mcp_input_schema
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return sqerr.New(sqerr.KindStorageError, "prepare insert endpoints", err)
	}
	defer epStmt.Close()

	paramStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO endpoint_params (endpoint_id, name, location, type, required, default_value)
		VALUES (?,?,?,?,?,?)`)
	if err != nil {
		return sqerr.New(sqerr.KindStorageError, "prepare insert endpoint params", err)
	}
	defer paramStmt.Close()

	for _, ep := range endpoints {
		middleware, _ := json.Marshal(ep.Middleware)
		deps, _ := json.Marshal(ep.Dependencies)
		tags, _ := json.Marshal(ep.Tags)

		res, err := epStmt.ExecContext(ctx,
			ep.CommitID, ep.HTTPMethod, ep.Path, ep.FilePath, ep.StartLine, ep.EndLine,
			string(ep.Framework), ep.HandlerSymbolID, string(ep.HandlerType), ep.HandlerName,
			string(middleware), string(deps), ep.Summary, string(tags), ep.ResponseModel,
			ep.BodySchema, ep.MCPToolName, ep.MCPInputSchema,
		)
		if err != nil {
			return sqerr.New(sqerr.KindStorageError, fmt.Sprintf("insert endpoint %s %s", ep.HTTPMethod, ep.Path), err)
		}
		endpointID, err := res.LastInsertId()
		if err != nil {
			return sqerr.New(sqerr.KindStorageError, "read last insert id", err)
		}
		for _, p := range ep.Params {
			if _, err := paramStmt.ExecContext(ctx, endpointID, p.Name, string(p.Location), p.Type, boolToInt(p.Required), p.DefaultValue); err != nil {
				return sqerr.New(sqerr.KindStorageError, "insert endpoint param", err)
			}
		}
	}
	return nil
}

// FindSymbolByQualifiedName looks up a single symbol by exact qualified
// name within a commit. Used by the linker to resolve a usage's enclosing
// symbol.
func (s *Store) FindSymbolByQualifiedName(ctx context.Context, commitID int64, qualifiedName string) (*Symbol, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, repo_id, commit_id, name, qualified_name, kind, file_path,
		       start_line, end_line, visibility, is_async, is_static, is_exported,
		       return_type, parent_symbol_id, content_hash
		FROM symbols WHERE commit_id = ? AND qualified_name = ?`, commitID, qualifiedName)
	return scanSymbol(row)
}

// SymbolsByName returns every symbol in a commit with an exact name match,
// the fallback path for usage resolution when no import binding applies.
func (s *Store) SymbolsByName(ctx context.Context, commitID int64, name string) ([]Symbol, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, repo_id, commit_id, name, qualified_name, kind, file_path,
		       start_line, end_line, visibility, is_async, is_static, is_exported,
		       return_type, parent_symbol_id, content_hash
		FROM symbols WHERE commit_id = ? AND name = ?`, commitID, name)
	if err != nil {
		return nil, sqerr.New(sqerr.KindStorageError, "query symbols by name", err)
	}
	defer rows.Close()
	return scanSymbols(rows)
}

// SymbolsInFile returns every symbol defined in a file at a commit, ordered
// by start line. Used by get_symbol_context.
func (s *Store) SymbolsInFile(ctx context.Context, commitID int64, filePath string) ([]Symbol, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, repo_id, commit_id, name, qualified_name, kind, file_path,
		       start_line, end_line, visibility, is_async, is_static, is_exported,
		       return_type, parent_symbol_id, content_hash
		FROM symbols WHERE commit_id = ? AND file_path = ? ORDER BY start_line`, commitID, filePath)
	if err != nil {
		return nil, sqerr.New(sqerr.KindStorageError, "query symbols in file", err)
	}
	defer rows.Close()
	return scanSymbols(rows)
}

// ChildSymbols returns every symbol whose parent_symbol_id is the given
// symbol, for find_hierarchy.
func (s *Store) ChildSymbols(ctx context.Context, parentID int64) ([]Symbol, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, repo_id, commit_id, name, qualified_name, kind, file_path,
		       start_line, end_line, visibility, is_async, is_static, is_exported,
		       return_type, parent_symbol_id, content_hash
		FROM symbols WHERE parent_symbol_id = ? ORDER BY start_line`, parentID)
	if err != nil {
		return nil, sqerr.New(sqerr.KindStorageError, "query child symbols", err)
	}
	defer rows.Close()
	return scanSymbols(rows)
}

// UsagesByName returns every usage of a symbol name within a commit, for
// find_usages.
func (s *Store) UsagesByName(ctx context.Context, commitID int64, name string) ([]Usage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, commit_id, symbol_name, file_path, line, column, usage_type,
		       enclosing_symbol_name, enclosing_symbol_id, definition_symbol_id
		FROM usages WHERE commit_id = ? AND symbol_name = ? ORDER BY file_path, line`, commitID, name)
	if err != nil {
		return nil, sqerr.New(sqerr.KindStorageError, "query usages by name", err)
	}
	defer rows.Close()
	return scanUsages(rows)
}

// UsagesWithoutDefinition returns every usage in a commit that the linker
// has not yet resolved, for the orchestrator's linking step.
func (s *Store) UsagesWithoutDefinition(ctx context.Context, commitID int64) ([]Usage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, commit_id, symbol_name, file_path, line, column, usage_type,
		       enclosing_symbol_name, enclosing_symbol_id, definition_symbol_id
		FROM usages WHERE commit_id = ? AND definition_symbol_id IS NULL`, commitID)
	if err != nil {
		return nil, sqerr.New(sqerr.KindStorageError, "query unlinked usages", err)
	}
	defer rows.Close()
	return scanUsages(rows)
}

// ImportsByFile returns every import statement in a file at a commit.
func (s *Store) ImportsByFile(ctx context.Context, commitID int64, filePath string) ([]Import, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, commit_id, file_path, line, import_type, module_specifier, resolved_path
		FROM imports WHERE commit_id = ? AND file_path = ? ORDER BY line`, commitID, filePath)
	if err != nil {
		return nil, sqerr.New(sqerr.KindStorageError, "query imports by file", err)
	}
	defer rows.Close()
	imports, err := scanImports(rows)
	if err != nil {
		return nil, err
	}
	for i := range imports {
		bindings, err := s.bindingsFor(ctx, imports[i].ID)
		if err != nil {
			return nil, err
		}
		imports[i].Bindings = bindings
	}
	return imports, nil
}

// ImportersOf returns every import whose resolved_path matches the given
// path, for find_importers.
func (s *Store) ImportersOf(ctx context.Context, commitID int64, resolvedPath string) ([]Import, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, commit_id, file_path, line, import_type, module_specifier, resolved_path
		FROM imports WHERE commit_id = ? AND resolved_path = ? ORDER BY file_path`, commitID, resolvedPath)
	if err != nil {
		return nil, sqerr.New(sqerr.KindStorageError, "query importers", err)
	}
	defer rows.Close()
	return scanImports(rows)
}

func (s *Store) bindingsFor(ctx context.Context, importID int64) ([]ImportBinding, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT import_id, imported_name, local_name, is_type_only
		FROM import_bindings WHERE import_id = ?`, importID)
	if err != nil {
		return nil, sqerr.New(sqerr.KindStorageError, "query import bindings", err)
	}
	defer rows.Close()
	var out []ImportBinding
	for rows.Next() {
		var b ImportBinding
		var isTypeOnly int
		if err := rows.Scan(&b.ImportID, &b.ImportedName, &b.LocalName, &isTypeOnly); err != nil {
			return nil, sqerr.New(sqerr.KindStorageError, "scan import binding", err)
		}
		b.IsTypeOnly = isTypeOnly != 0
		out = append(out, b)
	}
	return out, rows.Err()
}

// BindingFor resolves a local import alias to its imported (origin) name
// within a file, the first lookup path for usage resolution (spec C10).
func (s *Store) BindingFor(ctx context.Context, commitID int64, filePath, localName string) (*ImportBinding, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT ib.import_id, ib.imported_name, ib.local_name, ib.is_type_only
		FROM import_bindings ib
		JOIN imports i ON i.id = ib.import_id
		WHERE i.commit_id = ? AND i.file_path = ? AND ib.local_name = ?
		LIMIT 1`, commitID, filePath, localName)
	var b ImportBinding
	var isTypeOnly int
	if err := row.Scan(&b.ImportID, &b.ImportedName, &b.LocalName, &isTypeOnly); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, sqerr.New(sqerr.KindStorageError, "query import binding", err)
	}
	b.IsTypeOnly = isTypeOnly != 0
	return &b, nil
}

// EndpointsByPath returns every endpoint matching an exact path in a
// commit.
func (s *Store) EndpointsByPath(ctx context.Context, commitID int64, path string) ([]Endpoint, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, commit_id, http_method, path, file_path, start_line, end_line,
		       framework, handler_symbol_id, handler_type, handler_name,
		       middleware, dependencies, summary, tags, response_model,
		       body_schema, mcp_tool_name, mcp_input_schema
		FROM endpoints WHERE commit_id = ? AND path = ?`, commitID, path)
	if err != nil {
		return nil, sqerr.New(sqerr.KindStorageError, "query endpoints by path", err)
	}
	defer rows.Close()
	return scanEndpoints(rows)
}

// EndpointsInCommit returns every endpoint in a commit, for
// find_endpoints.
func (s *Store) EndpointsInCommit(ctx context.Context, commitID int64) ([]Endpoint, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, commit_id, http_method, path, file_path, start_line, end_line,
		       framework, handler_symbol_id, handler_type, handler_name,
		       middleware, dependencies, summary, tags, response_model,
		       body_schema, mcp_tool_name, mcp_input_schema
		FROM endpoints WHERE commit_id = ? ORDER BY path`, commitID)
	if err != nil {
		return nil, sqerr.New(sqerr.KindStorageError, "query endpoints in commit", err)
	}
	defer rows.Close()
	return scanEndpoints(rows)
}

// CountSymbolsByKind returns a kind histogram for codebase_summary.
func (s *Store) CountSymbolsByKind(ctx context.Context, commitID int64) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT kind, COUNT(*) FROM symbols WHERE commit_id = ? GROUP BY kind`, commitID)
	if err != nil {
		return nil, sqerr.New(sqerr.KindStorageError, "count symbols by kind", err)
	}
	defer rows.Close()
	out := make(map[string]int)
	for rows.Next() {
		var kind string
		var count int
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, sqerr.New(sqerr.KindStorageError, "scan kind count", err)
		}
		out[kind] = count
	}
	return out, rows.Err()
}

// SymbolByID looks up a single symbol by its primary key, for find_hierarchy's
// parent-chain walk.
func (s *Store) SymbolByID(ctx context.Context, id int64) (*Symbol, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, repo_id, commit_id, name, qualified_name, kind, file_path,
		       start_line, end_line, visibility, is_async, is_static, is_exported,
		       return_type, parent_symbol_id, content_hash
		FROM symbols WHERE id = ?`, id)
	return scanSymbol(row)
}

// SymbolsInCommit returns every symbol defined in a commit, ordered by file
// and start line, for codebase_summary and find_definition's fuzzy match.
func (s *Store) SymbolsInCommit(ctx context.Context, commitID int64) ([]Symbol, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, repo_id, commit_id, name, qualified_name, kind, file_path,
		       start_line, end_line, visibility, is_async, is_static, is_exported,
		       return_type, parent_symbol_id, content_hash
		FROM symbols WHERE commit_id = ? ORDER BY file_path, start_line`, commitID)
	if err != nil {
		return nil, sqerr.New(sqerr.KindStorageError, "query symbols in commit", err)
	}
	defer rows.Close()
	return scanSymbols(rows)
}

// DeadCodeSymbols returns every symbol in a commit with zero resolved usages,
// for find_dead_code.
func (s *Store) DeadCodeSymbols(ctx context.Context, commitID int64, exportedOnly bool) ([]Symbol, error) {
	query := `
		SELECT s.id, s.repo_id, s.commit_id, s.name, s.qualified_name, s.kind, s.file_path,
		       s.start_line, s.end_line, s.visibility, s.is_async, s.is_static, s.is_exported,
		       s.return_type, s.parent_symbol_id, s.content_hash
		FROM symbols s
		LEFT JOIN usages u ON u.definition_symbol_id = s.id
		WHERE s.commit_id = ? AND u.id IS NULL`
	args := []any{commitID}
	if exportedOnly {
		query += ` AND s.is_exported = 1`
	}
	query += ` ORDER BY s.file_path, s.start_line`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, sqerr.New(sqerr.KindStorageError, "query dead code symbols", err)
	}
	defer rows.Close()
	return scanSymbols(rows)
}

// UsageCountsBySymbol returns, for every symbol with at least one resolved
// usage, the number of usages resolving to it. Used for codebase_summary's
// hotspot ranking.
func (s *Store) UsageCountsBySymbol(ctx context.Context, commitID int64) (map[int64]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT definition_symbol_id, COUNT(*)
		FROM usages
		WHERE commit_id = ? AND definition_symbol_id IS NOT NULL
		GROUP BY definition_symbol_id`, commitID)
	if err != nil {
		return nil, sqerr.New(sqerr.KindStorageError, "count usages by symbol", err)
	}
	defer rows.Close()
	out := make(map[int64]int)
	for rows.Next() {
		var id int64
		var count int
		if err := rows.Scan(&id, &count); err != nil {
			return nil, sqerr.New(sqerr.KindStorageError, "scan usage count", err)
		}
		out[id] = count
	}
	return out, rows.Err()
}

// UsagesByEnclosing returns every usage recorded as occurring inside a given
// enclosing symbol, for get_call_graph's callees lookup.
func (s *Store) UsagesByEnclosing(ctx context.Context, commitID int64, enclosingSymbolID int64) ([]Usage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, commit_id, symbol_name, file_path, line, column, usage_type,
		       enclosing_symbol_name, enclosing_symbol_id, definition_symbol_id
		FROM usages WHERE commit_id = ? AND enclosing_symbol_id = ?
		ORDER BY file_path, line`, commitID, enclosingSymbolID)
	if err != nil {
		return nil, sqerr.New(sqerr.KindStorageError, "query usages by enclosing symbol", err)
	}
	defer rows.Close()
	return scanUsages(rows)
}

// ImportsInCommit returns every import statement in a commit, for
// get_dependency_graph and codebase_summary's external-dependency listing.
func (s *Store) ImportsInCommit(ctx context.Context, commitID int64) ([]Import, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, commit_id, file_path, line, import_type, module_specifier, resolved_path
		FROM imports WHERE commit_id = ? ORDER BY file_path, line`, commitID)
	if err != nil {
		return nil, sqerr.New(sqerr.KindStorageError, "query imports in commit", err)
	}
	defer rows.Close()
	return scanImports(rows)
}

// CountUsages returns the total usage count for a commit, for
// codebase_summary.
func (s *Store) CountUsages(ctx context.Context, commitID int64) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM usages WHERE commit_id = ?`, commitID).Scan(&n); err != nil {
		return 0, sqerr.New(sqerr.KindStorageError, "count usages", err)
	}
	return n, nil
}

// CountImports returns the total import count for a commit, for
// codebase_summary.
func (s *Store) CountImports(ctx context.Context, commitID int64) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM imports WHERE commit_id = ?`, commitID).Scan(&n); err != nil {
		return 0, sqerr.New(sqerr.KindStorageError, "count imports", err)
	}
	return n, nil
}

// DeleteForCommit removes every SQI row for a given commit, used by the
// garbage collector (C13) when a commit falls out of retention.
func (s *Store) DeleteForCommit(ctx context.Context, tx *sql.Tx, commitID int64) error {
	for _, table := range []string{"usages", "imports", "endpoints", "symbols"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE commit_id = ?", commitID); err != nil {
			return sqerr.New(sqerr.KindStorageError, "delete "+table+" for commit", err)
		}
	}
	return nil
}

func scanSymbol(row *sql.Row) (*Symbol, error) {
	var sym Symbol
	var isAsync, isStatic, isExported int
	err := row.Scan(&sym.ID, &sym.RepoID, &sym.CommitID, &sym.Name, &sym.QualifiedName,
		&sym.Kind, &sym.FilePath, &sym.StartLine, &sym.EndLine, &sym.Visibility,
		&isAsync, &isStatic, &isExported, &sym.ReturnType, &sym.ParentSymbolID, &sym.ContentHash)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, sqerr.New(sqerr.KindStorageError, "scan symbol", err)
	}
	sym.IsAsync, sym.IsStatic, sym.IsExported = isAsync != 0, isStatic != 0, isExported != 0
	return &sym, nil
}

func scanSymbols(rows *sql.Rows) ([]Symbol, error) {
	var out []Symbol
	for rows.Next() {
		var sym Symbol
		var isAsync, isStatic, isExported int
		if err := rows.Scan(&sym.ID, &sym.RepoID, &sym.CommitID, &sym.Name, &sym.QualifiedName,
			&sym.Kind, &sym.FilePath, &sym.StartLine, &sym.EndLine, &sym.Visibility,
			&isAsync, &isStatic, &isExported, &sym.ReturnType, &sym.ParentSymbolID, &sym.ContentHash); err != nil {
			return nil, sqerr.New(sqerr.KindStorageError, "scan symbol row", err)
		}
		sym.IsAsync, sym.IsStatic, sym.IsExported = isAsync != 0, isStatic != 0, isExported != 0
		out = append(out, sym)
	}
	return out, rows.Err()
}

func scanUsages(rows *sql.Rows) ([]Usage, error) {
	var out []Usage
	for rows.Next() {
		var u Usage
		if err := rows.Scan(&u.ID, &u.CommitID, &u.SymbolName, &u.FilePath, &u.Line, &u.Column,
			&u.UsageType, &u.EnclosingSymbolName, &u.EnclosingSymbolID, &u.DefinitionSymbolID); err != nil {
			return nil, sqerr.New(sqerr.KindStorageError, "scan usage row", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func scanImports(rows *sql.Rows) ([]Import, error) {
	var out []Import
	for rows.Next() {
		var imp Import
		if err := rows.Scan(&imp.ID, &imp.CommitID, &imp.FilePath, &imp.Line, &imp.ImportType,
			&imp.ModuleSpecifier, &imp.ResolvedPath); err != nil {
			return nil, sqerr.New(sqerr.KindStorageError, "scan import row", err)
		}
		out = append(out, imp)
	}
	return out, rows.Err()
}

func scanEndpoints(rows *sql.Rows) ([]Endpoint, error) {
	var out []Endpoint
	for rows.Next() {
		var ep Endpoint
		var middleware, deps, tags string
		if err := rows.Scan(&ep.ID, &ep.CommitID, &ep.HTTPMethod, &ep.Path, &ep.FilePath,
			&ep.StartLine, &ep.EndLine, &ep.Framework, &ep.HandlerSymbolID, &ep.HandlerType,
			&ep.HandlerName, &middleware, &deps, &ep.Summary, &tags, &ep.ResponseModel,
			&ep.BodySchema, &ep.MCPToolName, &ep.MCPInputSchema); err != nil {
			return nil, sqerr.New(sqerr.KindStorageError, "scan endpoint row", err)
		}
		_ = json.Unmarshal([]byte(middleware), &ep.Middleware)
		_ = json.Unmarshal([]byte(deps), &ep.Dependencies)
		_ = json.Unmarshal([]byte(tags), &ep.Tags)
		out = append(out, ep)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
