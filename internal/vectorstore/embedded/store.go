// Package embedded is the file-based Vector Storage implementation (spec
// §6): a dedicated SQLite database using sqlite-vec's vec0 virtual table
// for the KNN index, grounded on the teacher's
// internal/storage/vector_index.go (InitVectorExtension, CreateVectorIndex,
// UpdateVectorIndex's delete-then-insert upsert pattern, QueryVectorSimilarity).
//
// vec0 only indexes (chunk_id, embedding); it carries no other columns, so
// this package keeps its own metadata table alongside it ("Note: This does
// NOT store chunk data, only indexes for vector search. Join with chunks
// table to get full chunk details." — the teacher's own comment on the
// same limitation) and joins the two for filtered search and GetChunks.
package embedded

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"sync"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"github.com/sourcerack/sourcerack/internal/contenttype"
	"github.com/sourcerack/sourcerack/internal/sqerr"
	"github.com/sourcerack/sourcerack/internal/vectorstore"
)

var registerOnce sync.Once

const metadataSchema = `
CREATE TABLE IF NOT EXISTS vector_chunks (
	chunk_id     TEXT PRIMARY KEY,
	repo_id      TEXT NOT NULL,
	language     TEXT NOT NULL,
	path         TEXT NOT NULL,
	content_type TEXT NOT NULL,
	symbol       TEXT NOT NULL,
	content      TEXT NOT NULL,
	vector_blob  BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_vector_chunks_repo ON vector_chunks(repo_id);
CREATE INDEX IF NOT EXISTS idx_vector_chunks_language ON vector_chunks(language);

CREATE TABLE IF NOT EXISTS vector_chunk_commits (
	chunk_id   TEXT NOT NULL REFERENCES vector_chunks(chunk_id) ON DELETE CASCADE,
	commit_sha TEXT NOT NULL,
	PRIMARY KEY (chunk_id, commit_sha)
);
`

// Store is the embedded, sqlite-vec-backed Vector Storage implementation.
type Store struct {
	db   *sql.DB
	dims int
}

// Open opens (creating if absent) the vector database at path.
func Open(path string) (*Store, error) {
	registerOnce.Do(sqlite_vec.Auto)

	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_foreign_keys=on", path))
	if err != nil {
		return nil, sqerr.New(sqerr.KindStorageError, "open vector store", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(metadataSchema); err != nil {
		db.Close()
		return nil, sqerr.New(sqerr.KindStorageError, "create vector metadata schema", err)
	}

	return &Store{db: db}, nil
}

// Initialize creates the vec0 virtual table for the given embedding
// dimension, grounded on the teacher's CreateVectorIndex.
func (s *Store) Initialize(ctx context.Context, dims int) error {
	s.dims = dims
	createSQL := fmt.Sprintf(`CREATE VIRTUAL TABLE IF NOT EXISTS chunks_vec USING vec0(
		chunk_id TEXT PRIMARY KEY,
		embedding float[%d]
	)`, dims)
	if _, err := s.db.ExecContext(ctx, createSQL); err != nil {
		return sqerr.New(sqerr.KindStorageError, "create vector index", err)
	}
	return nil
}

// UpsertChunks inserts or replaces chunks and their vectors. vec0 has no
// INSERT OR REPLACE support, so each vector is deleted then reinserted,
// the same upsert pattern the teacher's UpdateVectorIndex uses.
func (s *Store) UpsertChunks(ctx context.Context, chunks []vectorstore.ChunkRecord) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return sqerr.New(sqerr.KindStorageError, "begin upsert", err)
	}
	defer tx.Rollback()

	deleteVec, err := tx.Prepare("DELETE FROM chunks_vec WHERE chunk_id = ?")
	if err != nil {
		return sqerr.New(sqerr.KindStorageError, "prepare vector delete", err)
	}
	defer deleteVec.Close()

	insertVec, err := tx.Prepare("INSERT INTO chunks_vec (chunk_id, embedding) VALUES (?, ?)")
	if err != nil {
		return sqerr.New(sqerr.KindStorageError, "prepare vector insert", err)
	}
	defer insertVec.Close()

	upsertMeta, err := tx.Prepare(`
		INSERT INTO vector_chunks (chunk_id, repo_id, language, path, content_type, symbol, content, vector_blob)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(chunk_id) DO UPDATE SET
			repo_id=excluded.repo_id, language=excluded.language, path=excluded.path,
			content_type=excluded.content_type, symbol=excluded.symbol,
			content=excluded.content, vector_blob=excluded.vector_blob
	`)
	if err != nil {
		return sqerr.New(sqerr.KindStorageError, "prepare metadata upsert", err)
	}
	defer upsertMeta.Close()

	deleteCommits, err := tx.Prepare("DELETE FROM vector_chunk_commits WHERE chunk_id = ?")
	if err != nil {
		return sqerr.New(sqerr.KindStorageError, "prepare commit delete", err)
	}
	defer deleteCommits.Close()

	insertCommit, err := tx.Prepare("INSERT OR IGNORE INTO vector_chunk_commits (chunk_id, commit_sha) VALUES (?, ?)")
	if err != nil {
		return sqerr.New(sqerr.KindStorageError, "prepare commit insert", err)
	}
	defer insertCommit.Close()

	for _, c := range chunks {
		if _, err := deleteVec.ExecContext(ctx, c.ID); err != nil {
			return sqerr.New(sqerr.KindStorageError, "delete existing vector", err)
		}
		embBytes, err := sqlite_vec.SerializeFloat32(c.Vector)
		if err != nil {
			return sqerr.New(sqerr.KindStorageError, "serialize embedding", err)
		}
		if _, err := insertVec.ExecContext(ctx, c.ID, embBytes); err != nil {
			return sqerr.New(sqerr.KindStorageError, "insert vector", err)
		}

		if _, err := upsertMeta.ExecContext(ctx, c.ID, c.RepoID, c.Language, c.Path, string(c.ContentType), c.Symbol, c.Content, encodeVector(c.Vector)); err != nil {
			return sqerr.New(sqerr.KindStorageError, "upsert vector metadata", err)
		}

		if _, err := deleteCommits.ExecContext(ctx, c.ID); err != nil {
			return sqerr.New(sqerr.KindStorageError, "reset commit links", err)
		}
		for _, commit := range c.Commits {
			if _, err := insertCommit.ExecContext(ctx, c.ID, commit); err != nil {
				return sqerr.New(sqerr.KindStorageError, "insert commit link", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return sqerr.New(sqerr.KindStorageError, "commit upsert", err)
	}
	return nil
}

// AddCommitToChunk records an additional commit a chunk is reachable from,
// without re-embedding it (spec §3.2's cross-commit reuse invariant).
func (s *Store) AddCommitToChunk(ctx context.Context, chunkID string, commitSHA string) error {
	_, err := s.db.ExecContext(ctx, "INSERT OR IGNORE INTO vector_chunk_commits (chunk_id, commit_sha) VALUES (?, ?)", chunkID, commitSHA)
	if err != nil {
		return sqerr.New(sqerr.KindStorageError, "add commit to chunk", err)
	}
	return nil
}

// Search performs cosine-distance KNN over chunks_vec, then applies the
// filter against the metadata table, matching the teacher's
// QueryVectorSimilarity followed by a metadata join.
func (s *Store) Search(ctx context.Context, queryVec []float32, filter vectorstore.Filter, limit int) ([]vectorstore.SearchResult, error) {
	queryBytes, err := sqlite_vec.SerializeFloat32(queryVec)
	if err != nil {
		return nil, sqerr.New(sqerr.KindStorageError, "serialize query vector", err)
	}

	// Over-fetch from the KNN index since the filter is applied afterward;
	// a plain multiplier keeps this simple without a second round trip.
	overfetch := limit * 10
	if overfetch < limit {
		overfetch = limit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT chunk_id, vec_distance_cosine(embedding, ?) AS distance
		FROM chunks_vec
		ORDER BY distance
		LIMIT ?
	`, queryBytes, overfetch)
	if err != nil {
		return nil, sqerr.New(sqerr.KindStorageError, "query vector index", err)
	}
	defer rows.Close()

	type candidate struct {
		id       string
		distance float32
	}
	var candidates []candidate
	for rows.Next() {
		var c candidate
		if err := rows.Scan(&c.id, &c.distance); err != nil {
			return nil, sqerr.New(sqerr.KindStorageError, "scan vector result", err)
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, sqerr.New(sqerr.KindStorageError, "iterate vector results", err)
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	ids := make([]string, len(candidates))
	for i, c := range candidates {
		ids[i] = c.id
	}
	allowed, err := s.matchingIDs(ctx, ids, filter)
	if err != nil {
		return nil, err
	}

	results := make([]vectorstore.SearchResult, 0, limit)
	for _, c := range candidates {
		if !allowed[c.id] {
			continue
		}
		results = append(results, vectorstore.SearchResult{ChunkID: c.id, Distance: c.distance})
		if len(results) == limit {
			break
		}
	}
	return results, nil
}

// matchingIDs evaluates filter against the metadata rows for ids, returning
// the subset that passes every non-empty predicate.
func (s *Store) matchingIDs(ctx context.Context, ids []string, filter vectorstore.Filter) (map[string]bool, error) {
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	query := fmt.Sprintf(`SELECT chunk_id, repo_id, language, path, content_type FROM vector_chunks WHERE chunk_id IN (%s)`, placeholders)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, sqerr.New(sqerr.KindStorageError, "query vector metadata", err)
	}
	defer rows.Close()

	out := make(map[string]bool, len(ids))
	for rows.Next() {
		var id, repoID, language, path, ct string
		if err := rows.Scan(&id, &repoID, &language, &path, &ct); err != nil {
			return nil, sqerr.New(sqerr.KindStorageError, "scan vector metadata", err)
		}
		if filter.RepoID != "" && filter.RepoID != repoID {
			continue
		}
		if filter.Language != "" && filter.Language != language {
			continue
		}
		if filter.ContentType != "" && string(filter.ContentType) != ct {
			continue
		}
		if filter.PathPattern != "" && !strings.Contains(path, filter.PathPattern) {
			continue
		}
		out[id] = true
	}
	if filter.Commit == "" {
		return out, nil
	}

	// Commit filtering is a separate join since vector_chunk_commits is a
	// one-to-many table.
	filtered := make(map[string]bool, len(out))
	commitRows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT DISTINCT chunk_id FROM vector_chunk_commits WHERE commit_sha = ? AND chunk_id IN (%s)`, placeholders), append([]any{filter.Commit}, args...)...)
	if err != nil {
		return nil, sqerr.New(sqerr.KindStorageError, "query commit links", err)
	}
	defer commitRows.Close()
	for commitRows.Next() {
		var id string
		if err := commitRows.Scan(&id); err != nil {
			return nil, sqerr.New(sqerr.KindStorageError, "scan commit link", err)
		}
		if out[id] {
			filtered[id] = true
		}
	}
	return filtered, nil
}

// GetChunks retrieves full chunk records (including their vectors) by ID.
func (s *Store) GetChunks(ctx context.Context, ids []string) ([]vectorstore.ChunkRecord, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT chunk_id, repo_id, language, path, content_type, symbol, content, vector_blob
		FROM vector_chunks WHERE chunk_id IN (%s)
	`, placeholders), args...)
	if err != nil {
		return nil, sqerr.New(sqerr.KindStorageError, "query chunks", err)
	}
	defer rows.Close()

	var out []vectorstore.ChunkRecord
	for rows.Next() {
		var c vectorstore.ChunkRecord
		var ct string
		var vecBlob []byte
		if err := rows.Scan(&c.ID, &c.RepoID, &c.Language, &c.Path, &ct, &c.Symbol, &c.Content, &vecBlob); err != nil {
			return nil, sqerr.New(sqerr.KindStorageError, "scan chunk", err)
		}
		c.ContentType = contenttype.Type(ct)
		c.Vector = decodeVector(vecBlob)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, sqerr.New(sqerr.KindStorageError, "iterate chunks", err)
	}

	commits, err := s.commitsFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Commits = commits[out[i].ID]
	}
	return out, nil
}

func (s *Store) commitsFor(ctx context.Context, ids []string) (map[string][]string, error) {
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT chunk_id, commit_sha FROM vector_chunk_commits WHERE chunk_id IN (%s)`, placeholders), args...)
	if err != nil {
		return nil, sqerr.New(sqerr.KindStorageError, "query commit links", err)
	}
	defer rows.Close()
	out := make(map[string][]string)
	for rows.Next() {
		var id, commit string
		if err := rows.Scan(&id, &commit); err != nil {
			return nil, sqerr.New(sqerr.KindStorageError, "scan commit link", err)
		}
		out[id] = append(out[id], commit)
	}
	return out, rows.Err()
}

// ChunksExist reports, for each ID, whether it is already stored — used by
// the orchestrator's reuse/parse split (spec §4.10) to skip re-embedding.
func (s *Store) ChunksExist(ctx context.Context, ids []string) (map[string]bool, error) {
	out := make(map[string]bool, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
		out[id] = false
	}
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT chunk_id FROM vector_chunks WHERE chunk_id IN (%s)`, placeholders), args...)
	if err != nil {
		return nil, sqerr.New(sqerr.KindStorageError, "query chunk existence", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, sqerr.New(sqerr.KindStorageError, "scan chunk existence", err)
		}
		out[id] = true
	}
	return out, rows.Err()
}

// DeleteChunks removes chunks and their vectors entirely, used by GC (C13)
// once a chunk is no longer referenced by any commit.
func (s *Store) DeleteChunks(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return sqerr.New(sqerr.KindStorageError, "begin delete", err)
	}
	defer tx.Rollback()

	deleteVec, err := tx.Prepare("DELETE FROM chunks_vec WHERE chunk_id = ?")
	if err != nil {
		return sqerr.New(sqerr.KindStorageError, "prepare vector delete", err)
	}
	defer deleteVec.Close()
	deleteMeta, err := tx.Prepare("DELETE FROM vector_chunks WHERE chunk_id = ?")
	if err != nil {
		return sqerr.New(sqerr.KindStorageError, "prepare metadata delete", err)
	}
	defer deleteMeta.Close()

	for _, id := range ids {
		if _, err := deleteVec.ExecContext(ctx, id); err != nil {
			return sqerr.New(sqerr.KindStorageError, "delete vector", err)
		}
		if _, err := deleteMeta.ExecContext(ctx, id); err != nil {
			return sqerr.New(sqerr.KindStorageError, "delete vector metadata", err)
		}
	}
	return tx.Commit()
}

// DeleteByRepoID removes every chunk belonging to a repository, used when a
// repository is dropped from a group entirely.
func (s *Store) DeleteByRepoID(ctx context.Context, repoID string) error {
	rows, err := s.db.QueryContext(ctx, "SELECT chunk_id FROM vector_chunks WHERE repo_id = ?", repoID)
	if err != nil {
		return sqerr.New(sqerr.KindStorageError, "query repo chunks", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return sqerr.New(sqerr.KindStorageError, "scan repo chunk", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	return s.DeleteChunks(ctx, ids)
}

// GetStats reports vector count and configured dimension.
func (s *Store) GetStats(ctx context.Context) (vectorstore.Stats, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM vector_chunks").Scan(&count); err != nil {
		return vectorstore.Stats{}, sqerr.New(sqerr.KindStorageError, "query vector count", err)
	}
	return vectorstore.Stats{VectorCount: count, Dimensions: s.dims}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(b []byte) []float32 {
	n := len(b) / 4
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out
}

var _ vectorstore.Store = (*Store)(nil)
