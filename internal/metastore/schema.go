package metastore

import "database/sql"

// schema generalizes the teacher's internal/cache metadata/migration
// upsert-on-conflict idiom from "per-branch cache" to "per-commit index".
const schema = `
CREATE TABLE IF NOT EXISTS repositories (
	id            TEXT PRIMARY KEY,
	path          TEXT NOT NULL,
	display_name  TEXT NOT NULL DEFAULT '',
	group_name    TEXT NOT NULL DEFAULT '',
	first_seen_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS indexed_commits (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	repo_id      TEXT NOT NULL REFERENCES repositories(id) ON DELETE CASCADE,
	commit_sha   TEXT NOT NULL,
	status       TEXT NOT NULL,
	started_at   DATETIME NOT NULL,
	completed_at DATETIME,
	error        TEXT NOT NULL DEFAULT '',
	UNIQUE(repo_id, commit_sha)
);

CREATE INDEX IF NOT EXISTS idx_indexed_commits_repo_status ON indexed_commits(repo_id, status);
CREATE INDEX IF NOT EXISTS idx_indexed_commits_completed_at ON indexed_commits(completed_at);

CREATE TABLE IF NOT EXISTS chunk_refs (
	commit_id INTEGER NOT NULL REFERENCES indexed_commits(id) ON DELETE CASCADE,
	chunk_id  TEXT NOT NULL,
	file_path TEXT NOT NULL,
	PRIMARY KEY (commit_id, chunk_id, file_path)
);

CREATE INDEX IF NOT EXISTS idx_chunk_refs_chunk_id ON chunk_refs(chunk_id);
CREATE INDEX IF NOT EXISTS idx_chunk_refs_commit ON chunk_refs(commit_id);

CREATE TABLE IF NOT EXISTS file_blobs (
	commit_id INTEGER NOT NULL REFERENCES indexed_commits(id) ON DELETE CASCADE,
	file_path TEXT NOT NULL,
	blob_sha  TEXT NOT NULL,
	PRIMARY KEY (commit_id, file_path)
);

CREATE TABLE IF NOT EXISTS blob_chunks (
	blob_sha TEXT NOT NULL,
	chunk_id TEXT NOT NULL,
	PRIMARY KEY (blob_sha, chunk_id)
);

CREATE INDEX IF NOT EXISTS idx_blob_chunks_blob_sha ON blob_chunks(blob_sha);
`

// CreateSchema applies the metastore DDL. Idempotent.
func CreateSchema(db execer) error {
	_, err := db.Exec(schema)
	return err
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}
