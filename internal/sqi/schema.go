package sqi

import "database/sql"

// schema is the DDL for the Structured Query Index tables. It is a direct
// generalization of the teacher's internal/storage/schema.go table-list/
// index-list shape: every file/type/function table there becomes a single
// language-agnostic symbol/usage/import/endpoint table here, scoped by
// (repo_id, commit_id) instead of by branch.
const schema = `
CREATE TABLE IF NOT EXISTS symbols (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	repo_id         TEXT NOT NULL,
	commit_id       INTEGER NOT NULL,
	name            TEXT NOT NULL,
	qualified_name  TEXT NOT NULL,
	kind            TEXT NOT NULL,
	file_path       TEXT NOT NULL,
	start_line      INTEGER NOT NULL,
	end_line        INTEGER NOT NULL,
	visibility      TEXT NOT NULL DEFAULT '',
	is_async        INTEGER NOT NULL DEFAULT 0,
	is_static       INTEGER NOT NULL DEFAULT 0,
	is_exported     INTEGER NOT NULL DEFAULT 0,
	return_type     TEXT NOT NULL DEFAULT '',
	parent_symbol_id INTEGER REFERENCES symbols(id),
	content_hash    TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_symbols_name ON symbols(name);
CREATE INDEX IF NOT EXISTS idx_symbols_qualified_name ON symbols(qualified_name);
CREATE INDEX IF NOT EXISTS idx_symbols_file_path ON symbols(file_path);
CREATE INDEX IF NOT EXISTS idx_symbols_commit_name ON symbols(commit_id, name);
CREATE INDEX IF NOT EXISTS idx_symbols_repo_commit ON symbols(repo_id, commit_id);
CREATE INDEX IF NOT EXISTS idx_symbols_parent ON symbols(parent_symbol_id);

CREATE TABLE IF NOT EXISTS symbol_parameters (
	symbol_id       INTEGER NOT NULL REFERENCES symbols(id) ON DELETE CASCADE,
	position        INTEGER NOT NULL,
	name            TEXT NOT NULL,
	type_annotation TEXT NOT NULL DEFAULT '',
	is_optional     INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (symbol_id, position)
);

CREATE TABLE IF NOT EXISTS symbol_docstrings (
	symbol_id   INTEGER PRIMARY KEY REFERENCES symbols(id) ON DELETE CASCADE,
	doc_type    TEXT NOT NULL,
	raw_text    TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS usages (
	id                     INTEGER PRIMARY KEY AUTOINCREMENT,
	commit_id              INTEGER NOT NULL,
	symbol_name            TEXT NOT NULL,
	file_path              TEXT NOT NULL,
	line                   INTEGER NOT NULL,
	column                 INTEGER NOT NULL,
	usage_type             TEXT NOT NULL,
	enclosing_symbol_name  TEXT NOT NULL DEFAULT '',
	enclosing_symbol_id    INTEGER REFERENCES symbols(id),
	definition_symbol_id   INTEGER REFERENCES symbols(id)
);

CREATE INDEX IF NOT EXISTS idx_usages_symbol_name ON usages(symbol_name);
CREATE INDEX IF NOT EXISTS idx_usages_commit_name ON usages(commit_id, symbol_name);
CREATE INDEX IF NOT EXISTS idx_usages_file_path ON usages(file_path);
CREATE INDEX IF NOT EXISTS idx_usages_definition ON usages(definition_symbol_id);
CREATE INDEX IF NOT EXISTS idx_usages_enclosing ON usages(enclosing_symbol_id);

CREATE TABLE IF NOT EXISTS imports (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	commit_id        INTEGER NOT NULL,
	file_path        TEXT NOT NULL,
	line             INTEGER NOT NULL,
	import_type      TEXT NOT NULL,
	module_specifier TEXT NOT NULL,
	resolved_path    TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_imports_file_path ON imports(file_path);
CREATE INDEX IF NOT EXISTS idx_imports_resolved_path ON imports(resolved_path);
CREATE INDEX IF NOT EXISTS idx_imports_commit ON imports(commit_id);

CREATE TABLE IF NOT EXISTS import_bindings (
	import_id     INTEGER NOT NULL REFERENCES imports(id) ON DELETE CASCADE,
	imported_name TEXT NOT NULL,
	local_name    TEXT NOT NULL,
	is_type_only  INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_import_bindings_import ON import_bindings(import_id);
CREATE INDEX IF NOT EXISTS idx_import_bindings_local_name ON import_bindings(local_name);

CREATE TABLE IF NOT EXISTS endpoints (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	commit_id         INTEGER NOT NULL,
	http_method       TEXT NOT NULL,
	path              TEXT NOT NULL,
	file_path         TEXT NOT NULL,
	start_line        INTEGER NOT NULL,
	end_line          INTEGER NOT NULL,
	framework         TEXT NOT NULL,
	handler_symbol_id INTEGER REFERENCES symbols(id),
	handler_type      TEXT NOT NULL,
	handler_name      TEXT NOT NULL DEFAULT '',
	middleware        TEXT NOT NULL DEFAULT '[]',
	dependencies      TEXT NOT NULL DEFAULT '[]',
	summary           TEXT NOT NULL DEFAULT '',
	tags              TEXT NOT NULL DEFAULT '[]',
	response_model    TEXT NOT NULL DEFAULT '',
	body_schema       TEXT NOT NULL DEFAULT '',
	mcp_tool_name     TEXT NOT NULL DEFAULT '',
	mcp_input_schema  TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_endpoints_path ON endpoints(path);
CREATE INDEX IF NOT EXISTS idx_endpoints_commit ON endpoints(commit_id);
CREATE INDEX IF NOT EXISTS idx_endpoints_method_path ON endpoints(http_method, path);

CREATE TABLE IF NOT EXISTS endpoint_params (
	endpoint_id   INTEGER NOT NULL REFERENCES endpoints(id) ON DELETE CASCADE,
	name          TEXT NOT NULL,
	location      TEXT NOT NULL,
	type          TEXT NOT NULL DEFAULT '',
	required      INTEGER NOT NULL DEFAULT 0,
	default_value TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_endpoint_params_endpoint ON endpoint_params(endpoint_id);
`

// CreateSchema applies the SQI DDL. It is idempotent and safe to call
// against an already-populated database.
func CreateSchema(db execer) error {
	_, err := db.Exec(schema)
	return err
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}
