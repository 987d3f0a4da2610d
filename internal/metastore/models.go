// Package metastore holds the indexing pipeline's own bookkeeping tables:
// Repository, IndexedCommit, ChunkRef, FileBlob and BlobChunk, plus the
// GCCandidate query result (spec §3, §4.8, C8). It shares its *sql.DB handle with
// internal/sqi so both live in one transactional database, generalizing
// the teacher's internal/cache per-branch metadata into per-commit index
// bookkeeping.
package metastore

import "time"

// IndexingStatus is the closed enumeration of IndexedCommit.status.
type IndexingStatus string

const (
	StatusInProgress IndexingStatus = "in_progress"
	StatusComplete   IndexingStatus = "complete"
	StatusFailed     IndexingStatus = "failed"
)

// Repository is spec §3's Repository entity: one Git repository tracked by
// the index, identified by its common git dir (stable across worktrees).
type Repository struct {
	ID          string // RepositoryIdentity from internal/gitview
	Path        string // last-seen worktree root
	DisplayName string
	Group       string
	FirstSeenAt time.Time
}

// IndexedCommit is spec §3's IndexedCommit entity: one indexing run of one
// repository at one commit SHA.
type IndexedCommit struct {
	ID          int64
	RepoID      string
	CommitSHA   string
	Status      IndexingStatus
	StartedAt   time.Time
	CompletedAt *time.Time
	Error       string
}

// ChunkRef is spec §3's ChunkRef entity: the join between a commit and the
// content-addressed chunks that make it up, so chunk content can be
// reused across commits that share it.
type ChunkRef struct {
	CommitID int64
	ChunkID  string // stringified uuid.UUID
	FilePath string
}

// FileBlob is spec §3's FileBlob entity: the blob SHA tracked at a path for
// a commit, used to decide whether a file needs re-parsing.
type FileBlob struct {
	CommitID int64
	FilePath string
	BlobSHA  string
}

// BlobChunk is spec §3's BlobChunk entity: the chunk IDs produced the last
// time a given blob SHA was parsed, enabling reuse when an unchanged file
// reappears at a new commit.
type BlobChunk struct {
	BlobSHA string
	ChunkID string
}

// GCCandidate is a commit eligible for garbage collection: complete,
// older than the retention horizon, and not the repository's latest
// indexed commit.
type GCCandidate struct {
	CommitID  int64
	RepoID    string
	CommitSHA string
	IndexedAt time.Time
}
