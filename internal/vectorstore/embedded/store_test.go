package embedded

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sourcerack/sourcerack/internal/contenttype"
	"github.com/sourcerack/sourcerack/internal/vectorstore"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "vectors.db"))
	require.NoError(t, err)
	require.NoError(t, s.Initialize(context.Background(), 4))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_UpsertAndSearch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	chunks := []vectorstore.ChunkRecord{
		{ID: "a", RepoID: "repo1", Commits: []string{"c1"}, Language: "go", Path: "main.go", ContentType: contenttype.Code, Vector: []float32{1, 0, 0, 0}},
		{ID: "b", RepoID: "repo1", Commits: []string{"c1"}, Language: "go", Path: "other.go", ContentType: contenttype.Code, Vector: []float32{0, 1, 0, 0}},
	}
	require.NoError(t, s.UpsertChunks(ctx, chunks))

	results, err := s.Search(ctx, []float32{1, 0, 0, 0}, vectorstore.Filter{}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].ChunkID)
}

func TestStore_SearchFiltersByRepoID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	chunks := []vectorstore.ChunkRecord{
		{ID: "a", RepoID: "repo1", Commits: []string{"c1"}, Language: "go", Path: "main.go", ContentType: contenttype.Code, Vector: []float32{1, 0, 0, 0}},
		{ID: "b", RepoID: "repo2", Commits: []string{"c1"}, Language: "go", Path: "main.go", ContentType: contenttype.Code, Vector: []float32{1, 0, 0, 0}},
	}
	require.NoError(t, s.UpsertChunks(ctx, chunks))

	results, err := s.Search(ctx, []float32{1, 0, 0, 0}, vectorstore.Filter{RepoID: "repo2"}, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "b", results[0].ChunkID)
}

func TestStore_GetChunksRoundTripsVector(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	vec := []float32{0.5, -0.25, 0.1, 0.0}
	require.NoError(t, s.UpsertChunks(ctx, []vectorstore.ChunkRecord{
		{ID: "a", RepoID: "repo1", Commits: []string{"c1"}, Language: "go", Path: "main.go", Symbol: "main", Content: "func main() {}", ContentType: contenttype.Code, Vector: vec},
	}))

	got, err := s.GetChunks(ctx, []string{"a"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, vec, got[0].Vector)
	assert.Equal(t, []string{"c1"}, got[0].Commits)
	assert.Equal(t, "func main() {}", got[0].Content)
}

func TestStore_AddCommitToChunk(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertChunks(ctx, []vectorstore.ChunkRecord{
		{ID: "a", RepoID: "repo1", Commits: []string{"c1"}, Language: "go", Path: "main.go", ContentType: contenttype.Code, Vector: []float32{1, 0, 0, 0}},
	}))
	require.NoError(t, s.AddCommitToChunk(ctx, "a", "c2"))

	got, err := s.GetChunks(ctx, []string{"a"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.ElementsMatch(t, []string{"c1", "c2"}, got[0].Commits)
}

func TestStore_ChunksExist(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertChunks(ctx, []vectorstore.ChunkRecord{
		{ID: "a", RepoID: "repo1", Commits: []string{"c1"}, Language: "go", Path: "main.go", ContentType: contenttype.Code, Vector: []float32{1, 0, 0, 0}},
	}))

	exist, err := s.ChunksExist(ctx, []string{"a", "missing"})
	require.NoError(t, err)
	assert.True(t, exist["a"])
	assert.False(t, exist["missing"])
}

func TestStore_DeleteChunks(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertChunks(ctx, []vectorstore.ChunkRecord{
		{ID: "a", RepoID: "repo1", Commits: []string{"c1"}, Language: "go", Path: "main.go", ContentType: contenttype.Code, Vector: []float32{1, 0, 0, 0}},
	}))
	require.NoError(t, s.DeleteChunks(ctx, []string{"a"}))

	got, err := s.GetChunks(ctx, []string{"a"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStore_DeleteByRepoID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertChunks(ctx, []vectorstore.ChunkRecord{
		{ID: "a", RepoID: "repo1", Commits: []string{"c1"}, Language: "go", Path: "main.go", ContentType: contenttype.Code, Vector: []float32{1, 0, 0, 0}},
		{ID: "b", RepoID: "repo2", Commits: []string{"c1"}, Language: "go", Path: "main.go", ContentType: contenttype.Code, Vector: []float32{0, 1, 0, 0}},
	}))
	require.NoError(t, s.DeleteByRepoID(ctx, "repo1"))

	stats, err := s.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.VectorCount)
}
