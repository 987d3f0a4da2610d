package hnsw

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sourcerack/sourcerack/internal/contenttype"
	"github.com/sourcerack/sourcerack/internal/vectorstore"
)

func newTestStore(t *testing.T, path string) *Store {
	t.Helper()
	s := New(path)
	require.NoError(t, s.Initialize(context.Background(), 4))
	return s
}

func TestStore_UpsertAndSearch(t *testing.T) {
	s := newTestStore(t, "")
	ctx := context.Background()

	chunks := []vectorstore.ChunkRecord{
		{ID: "a", RepoID: "repo1", Commits: []string{"c1"}, Language: "go", Path: "main.go", ContentType: contenttype.Code, Vector: []float32{1, 0, 0, 0}},
		{ID: "b", RepoID: "repo1", Commits: []string{"c1"}, Language: "go", Path: "other.go", ContentType: contenttype.Code, Vector: []float32{0, 1, 0, 0}},
		{ID: "c", RepoID: "repo1", Commits: []string{"c1"}, Language: "go", Path: "near.go", ContentType: contenttype.Code, Vector: []float32{0.9, 0.1, 0, 0}},
	}
	require.NoError(t, s.UpsertChunks(ctx, chunks))

	results, err := s.Search(ctx, []float32{1, 0, 0, 0}, vectorstore.Filter{}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].ChunkID)
}

func TestStore_SearchFiltersByContentType(t *testing.T) {
	s := newTestStore(t, "")
	ctx := context.Background()

	require.NoError(t, s.UpsertChunks(ctx, []vectorstore.ChunkRecord{
		{ID: "a", RepoID: "repo1", Commits: []string{"c1"}, Language: "go", Path: "main.go", ContentType: contenttype.Code, Vector: []float32{1, 0, 0, 0}},
		{ID: "b", RepoID: "repo1", Commits: []string{"c1"}, Language: "markdown", Path: "README.md", ContentType: contenttype.Docs, Vector: []float32{1, 0, 0, 0}},
	}))

	results, err := s.Search(ctx, []float32{1, 0, 0, 0}, vectorstore.Filter{ContentType: contenttype.Docs}, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "b", results[0].ChunkID)
}

func TestStore_DeleteIsOrphaningNotGraphSurgery(t *testing.T) {
	s := newTestStore(t, "")
	ctx := context.Background()

	require.NoError(t, s.UpsertChunks(ctx, []vectorstore.ChunkRecord{
		{ID: "a", RepoID: "repo1", Commits: []string{"c1"}, Language: "go", Path: "main.go", ContentType: contenttype.Code, Vector: []float32{1, 0, 0, 0}},
	}))
	require.NoError(t, s.DeleteChunks(ctx, []string{"a"}))

	exist, err := s.ChunksExist(ctx, []string{"a"})
	require.NoError(t, err)
	assert.False(t, exist["a"])

	stats, err := s.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.VectorCount)
}

func TestStore_SaveAndLoadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vectors.hnsw")

	s := newTestStore(t, path)
	ctx := context.Background()
	require.NoError(t, s.UpsertChunks(ctx, []vectorstore.ChunkRecord{
		{ID: "a", RepoID: "repo1", Commits: []string{"c1"}, Language: "go", Path: "main.go", Symbol: "main", ContentType: contenttype.Code, Vector: []float32{1, 0, 0, 0}},
	}))
	require.NoError(t, s.Close())

	reloaded := New(path)
	require.NoError(t, reloaded.Initialize(ctx, 4))

	got, err := reloaded.GetChunks(ctx, []string{"a"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "main", got[0].Symbol)

	results, err := reloaded.Search(ctx, []float32{1, 0, 0, 0}, vectorstore.Filter{}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].ChunkID)
}

func TestStore_AddCommitToChunk(t *testing.T) {
	s := newTestStore(t, "")
	ctx := context.Background()

	require.NoError(t, s.UpsertChunks(ctx, []vectorstore.ChunkRecord{
		{ID: "a", RepoID: "repo1", Commits: []string{"c1"}, Language: "go", Path: "main.go", ContentType: contenttype.Code, Vector: []float32{1, 0, 0, 0}},
	}))
	require.NoError(t, s.AddCommitToChunk(ctx, "a", "c2"))

	results, err := s.Search(ctx, []float32{1, 0, 0, 0}, vectorstore.Filter{Commit: "c2"}, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
}
