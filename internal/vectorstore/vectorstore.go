// Package vectorstore defines the Vector Storage interface (spec §6, C9):
// the one seam between the structural core and whichever embedding-vector
// backend a deployment chooses. The core only ever depends on Store; it
// never imports a backend package directly.
package vectorstore

import (
	"context"

	"github.com/sourcerack/sourcerack/internal/contenttype"
)

// ChunkRecord is the payload a backend stores alongside a chunk's vector:
// enough to answer Filter predicates and to satisfy GetChunks without a
// round trip back through the SQI/metastore.
type ChunkRecord struct {
	ID          string
	RepoID      string
	Commits     []string // every commit this chunk is currently reachable from
	Language    string
	Path        string
	ContentType contenttype.Type
	Symbol      string
	Content     string
	Vector      []float32
}

// Filter narrows a Search call, exactly spec §6's
// `{repo_id, commit, language?, path_pattern?, content_type?}`.
type Filter struct {
	RepoID      string
	Commit      string
	Language    string
	PathPattern string
	ContentType contenttype.Type
}

// SearchResult pairs a chunk ID with its distance to the query vector.
type SearchResult struct {
	ChunkID  string
	Distance float32
}

// Stats summarizes a backend's current contents.
type Stats struct {
	VectorCount int
	Dimensions  int
}

// Store is the exact interface spec §6 names for Vector Storage. The core
// indexing/query components depend only on this; "embedded" (sqlite-vec)
// and "hnsw" (in-process HNSW graph) are its two known implementations.
type Store interface {
	Initialize(ctx context.Context, dims int) error
	UpsertChunks(ctx context.Context, chunks []ChunkRecord) error
	AddCommitToChunk(ctx context.Context, chunkID string, commitSHA string) error
	Search(ctx context.Context, queryVec []float32, filter Filter, limit int) ([]SearchResult, error)
	GetChunks(ctx context.Context, ids []string) ([]ChunkRecord, error)
	ChunksExist(ctx context.Context, ids []string) (map[string]bool, error)
	DeleteChunks(ctx context.Context, ids []string) error
	DeleteByRepoID(ctx context.Context, repoID string) error
	GetStats(ctx context.Context) (Stats, error)
	Close() error
}
