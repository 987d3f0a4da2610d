package metastore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/sourcerack/sourcerack/internal/sqerr"
)

// Store is the metadata bookkeeping store, sharing its *sql.DB with
// internal/sqi.
type Store struct {
	db *sql.DB
}

// Open wraps an already-opened, already-migrated database handle.
func Open(db *sql.DB) *Store {
	return &Store{db: db}
}

// UpsertRepository records or refreshes a repository's last-seen path,
// display name and group. First-seen timestamp is preserved on conflict.
func (s *Store) UpsertRepository(ctx context.Context, repo Repository) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO repositories (id, path, display_name, group_name, first_seen_at)
		VALUES (?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET
			path = excluded.path,
			display_name = excluded.display_name,
			group_name = excluded.group_name`,
		repo.ID, repo.Path, repo.DisplayName, repo.Group, repo.FirstSeenAt)
	if err != nil {
		return sqerr.New(sqerr.KindStorageError, "upsert repository", err)
	}
	return nil
}

// GetRepository looks up a repository by its identity.
func (s *Store) GetRepository(ctx context.Context, repoID string) (*Repository, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, path, display_name, group_name, first_seen_at
		FROM repositories WHERE id = ?`, repoID)
	var r Repository
	if err := row.Scan(&r.ID, &r.Path, &r.DisplayName, &r.Group, &r.FirstSeenAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, sqerr.New(sqerr.KindStorageError, "get repository", err)
	}
	return &r, nil
}

// ListRepositories returns every tracked repository, optionally filtered
// to one group (empty string means all groups), for --all-repos/--group.
func (s *Store) ListRepositories(ctx context.Context, group string) ([]Repository, error) {
	query := `SELECT id, path, display_name, group_name, first_seen_at FROM repositories`
	args := []any{}
	if group != "" {
		query += ` WHERE group_name = ?`
		args = append(args, group)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, sqerr.New(sqerr.KindStorageError, "list repositories", err)
	}
	defer rows.Close()
	var out []Repository
	for rows.Next() {
		var r Repository
		if err := rows.Scan(&r.ID, &r.Path, &r.DisplayName, &r.Group, &r.FirstSeenAt); err != nil {
			return nil, sqerr.New(sqerr.KindStorageError, "scan repository", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// StartIndexing opens a new in-progress IndexedCommit row, or returns the
// existing row for this (repo, commit) pair whatever its status (in
// progress, complete or failed), so a commit is never recorded twice.
func (s *Store) StartIndexing(ctx context.Context, repoID, commitSHA string) (*IndexedCommit, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, repo_id, commit_sha, status, started_at, completed_at, error
		FROM indexed_commits WHERE repo_id = ? AND commit_sha = ?`, repoID, commitSHA)
	existing, err := scanIndexedCommit(row)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO indexed_commits (repo_id, commit_sha, status, started_at, error)
		VALUES (?,?,?,?,'')`, repoID, commitSHA, string(StatusInProgress), now)
	if err != nil {
		return nil, sqerr.New(sqerr.KindStorageError, "start indexing", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, sqerr.New(sqerr.KindStorageError, "read last insert id", err)
	}
	return &IndexedCommit{ID: id, RepoID: repoID, CommitSHA: commitSHA, Status: StatusInProgress, StartedAt: now}, nil
}

// CompleteIndexing marks an IndexedCommit as complete or failed.
func (s *Store) CompleteIndexing(ctx context.Context, commitID int64, indexErr error) error {
	now := time.Now().UTC()
	status := StatusComplete
	msg := ""
	if indexErr != nil {
		status = StatusFailed
		msg = indexErr.Error()
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE indexed_commits SET status = ?, completed_at = ?, error = ? WHERE id = ?`,
		string(status), now, msg, commitID)
	if err != nil {
		return sqerr.New(sqerr.KindStorageError, "complete indexing", err)
	}
	return nil
}

// LatestCompleteCommit returns the most recently completed IndexedCommit
// for a repository, the default target for query operations that don't
// pin a specific --commit.
func (s *Store) LatestCompleteCommit(ctx context.Context, repoID string) (*IndexedCommit, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, repo_id, commit_sha, status, started_at, completed_at, error
		FROM indexed_commits
		WHERE repo_id = ? AND status = ?
		ORDER BY completed_at DESC LIMIT 1`, repoID, string(StatusComplete))
	return scanIndexedCommit(row)
}

// GetIndexedCommit looks up an IndexedCommit by repo and exact commit SHA.
func (s *Store) GetIndexedCommit(ctx context.Context, repoID, commitSHA string) (*IndexedCommit, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, repo_id, commit_sha, status, started_at, completed_at, error
		FROM indexed_commits WHERE repo_id = ? AND commit_sha = ?`, repoID, commitSHA)
	return scanIndexedCommit(row)
}

// AddChunkRefs records which chunks make up a commit's content.
func (s *Store) AddChunkRefs(ctx context.Context, tx *sql.Tx, refs []ChunkRef) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO chunk_refs (commit_id, chunk_id, file_path) VALUES (?,?,?)`)
	if err != nil {
		return sqerr.New(sqerr.KindStorageError, "prepare insert chunk refs", err)
	}
	defer stmt.Close()
	for _, r := range refs {
		if _, err := stmt.ExecContext(ctx, r.CommitID, r.ChunkID, r.FilePath); err != nil {
			return sqerr.New(sqerr.KindStorageError, "insert chunk ref", err)
		}
	}
	return nil
}

// ChunksOnlyIn returns the chunk IDs referenced by commitID that no other
// commit references, the set the garbage collector is free to delete from
// vector storage once commitID itself is collected.
func (s *Store) ChunksOnlyIn(ctx context.Context, commitID int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT chunk_id FROM chunk_refs
		WHERE commit_id = ?
		AND chunk_id NOT IN (
			SELECT chunk_id FROM chunk_refs WHERE commit_id != ?
		)`, commitID, commitID)
	if err != nil {
		return nil, sqerr.New(sqerr.KindStorageError, "query orphaned chunks", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, sqerr.New(sqerr.KindStorageError, "scan chunk id", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// StoreFileBlobs records the blob SHA tracked at each path for a commit.
func (s *Store) StoreFileBlobs(ctx context.Context, tx *sql.Tx, blobs []FileBlob) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO file_blobs (commit_id, file_path, blob_sha) VALUES (?,?,?)`)
	if err != nil {
		return sqerr.New(sqerr.KindStorageError, "prepare insert file blobs", err)
	}
	defer stmt.Close()
	for _, b := range blobs {
		if _, err := stmt.ExecContext(ctx, b.CommitID, b.FilePath, b.BlobSHA); err != nil {
			return sqerr.New(sqerr.KindStorageError, "insert file blob", err)
		}
	}
	return nil
}

// GetFileBlobs returns the path -> blob SHA map tracked by a commit, used
// by the orchestrator to diff against the new commit's file list.
func (s *Store) GetFileBlobs(ctx context.Context, commitID int64) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT file_path, blob_sha FROM file_blobs WHERE commit_id = ?`, commitID)
	if err != nil {
		return nil, sqerr.New(sqerr.KindStorageError, "query file blobs", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var path, sha string
		if err := rows.Scan(&path, &sha); err != nil {
			return nil, sqerr.New(sqerr.KindStorageError, "scan file blob", err)
		}
		out[path] = sha
	}
	return out, rows.Err()
}

// StoreBlobChunks records which chunk IDs a given blob SHA produced the
// last time it was parsed, enabling chunk reuse for unchanged files.
func (s *Store) StoreBlobChunks(ctx context.Context, tx *sql.Tx, entries []BlobChunk) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO blob_chunks (blob_sha, chunk_id) VALUES (?,?)`)
	if err != nil {
		return sqerr.New(sqerr.KindStorageError, "prepare insert blob chunks", err)
	}
	defer stmt.Close()
	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx, e.BlobSHA, e.ChunkID); err != nil {
			return sqerr.New(sqerr.KindStorageError, "insert blob chunk", err)
		}
	}
	return nil
}

// GetIndexedBlobs reports which of the given blob SHAs have already been
// parsed at least once, so the orchestrator can skip re-parsing them.
func (s *Store) GetIndexedBlobs(ctx context.Context, blobSHAs []string) (map[string]bool, error) {
	out := make(map[string]bool, len(blobSHAs))
	if len(blobSHAs) == 0 {
		return out, nil
	}
	query, args := inQuery(`SELECT DISTINCT blob_sha FROM blob_chunks WHERE blob_sha IN (%s)`, blobSHAs)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, sqerr.New(sqerr.KindStorageError, "query indexed blobs", err)
	}
	defer rows.Close()
	for rows.Next() {
		var sha string
		if err := rows.Scan(&sha); err != nil {
			return nil, sqerr.New(sqerr.KindStorageError, "scan blob sha", err)
		}
		out[sha] = true
	}
	return out, rows.Err()
}

// GetChunksForBlobs returns every chunk ID previously produced by the
// given blob SHAs, for reuse when an unchanged file reappears.
func (s *Store) GetChunksForBlobs(ctx context.Context, blobSHAs []string) (map[string][]string, error) {
	out := make(map[string][]string)
	if len(blobSHAs) == 0 {
		return out, nil
	}
	query, args := inQuery(`SELECT blob_sha, chunk_id FROM blob_chunks WHERE blob_sha IN (%s)`, blobSHAs)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, sqerr.New(sqerr.KindStorageError, "query chunks for blobs", err)
	}
	defer rows.Close()
	for rows.Next() {
		var sha, chunkID string
		if err := rows.Scan(&sha, &chunkID); err != nil {
			return nil, sqerr.New(sqerr.KindStorageError, "scan blob chunk", err)
		}
		out[sha] = append(out[sha], chunkID)
	}
	return out, rows.Err()
}

// GetEligibleForGC returns every complete, non-latest IndexedCommit older
// than the retention horizon, across all repositories.
func (s *Store) GetEligibleForGC(ctx context.Context, retentionDays int) ([]GCCandidate, error) {
	horizon := time.Now().UTC().AddDate(0, 0, -retentionDays)
	rows, err := s.db.QueryContext(ctx, `
		SELECT ic.id, ic.repo_id, ic.commit_sha, ic.completed_at
		FROM indexed_commits ic
		WHERE ic.status = ?
		AND ic.completed_at < ?
		AND ic.id != (
			SELECT id FROM indexed_commits ic2
			WHERE ic2.repo_id = ic.repo_id AND ic2.status = ?
			ORDER BY ic2.completed_at DESC LIMIT 1
		)`, string(StatusComplete), horizon, string(StatusComplete))
	if err != nil {
		return nil, sqerr.New(sqerr.KindStorageError, "query gc candidates", err)
	}
	defer rows.Close()
	var out []GCCandidate
	for rows.Next() {
		var c GCCandidate
		if err := rows.Scan(&c.CommitID, &c.RepoID, &c.CommitSHA, &c.IndexedAt); err != nil {
			return nil, sqerr.New(sqerr.KindStorageError, "scan gc candidate", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// DeleteCommit removes an IndexedCommit row and its chunk_refs/file_blobs,
// used by the garbage collector once a commit's vector/SQI rows are gone.
func (s *Store) DeleteCommit(ctx context.Context, tx *sql.Tx, commitID int64) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM indexed_commits WHERE id = ?`, commitID); err != nil {
		return sqerr.New(sqerr.KindStorageError, "delete indexed commit", err)
	}
	return nil
}

// DeleteChunkRefsForCommit removes a commit's chunk_refs rows, used ahead of
// a forced re-index so StartIndexing/AddChunkRefs rebuild them from scratch
// rather than accumulating stale references to a prior parse of the commit.
func (s *Store) DeleteChunkRefsForCommit(ctx context.Context, tx *sql.Tx, commitID int64) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM chunk_refs WHERE commit_id = ?`, commitID); err != nil {
		return sqerr.New(sqerr.KindStorageError, "delete chunk refs for commit", err)
	}
	return nil
}

// DeleteAllCommitsForRepo removes every IndexedCommit (and cascaded
// chunk_refs/file_blobs) for a repository, used when a repository is
// dropped from tracking entirely.
func (s *Store) DeleteAllCommitsForRepo(ctx context.Context, repoID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM indexed_commits WHERE repo_id = ?`, repoID)
	if err != nil {
		return sqerr.New(sqerr.KindStorageError, "delete commits for repo", err)
	}
	_, err = s.db.ExecContext(ctx, `DELETE FROM repositories WHERE id = ?`, repoID)
	if err != nil {
		return sqerr.New(sqerr.KindStorageError, "delete repository", err)
	}
	return nil
}

// DB exposes the shared handle for callers (the orchestrator) that need
// to open a cross-package transaction spanning metastore and sqi writes.
func (s *Store) DB() *sql.DB {
	return s.db
}

func scanIndexedCommit(row *sql.Row) (*IndexedCommit, error) {
	var ic IndexedCommit
	var completedAt sql.NullTime
	var status string
	err := row.Scan(&ic.ID, &ic.RepoID, &ic.CommitSHA, &status, &ic.StartedAt, &completedAt, &ic.Error)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, sqerr.New(sqerr.KindStorageError, "scan indexed commit", err)
	}
	ic.Status = IndexingStatus(status)
	if completedAt.Valid {
		ic.CompletedAt = &completedAt.Time
	}
	return &ic, nil
}

func inQuery(tmpl string, values []string) (string, []any) {
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(values)), ",")
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return fmt.Sprintf(tmpl, placeholders), args
}
