package gc

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sourcerack/sourcerack/internal/chunker"
	"github.com/sourcerack/sourcerack/internal/embedprovider"
	"github.com/sourcerack/sourcerack/internal/endpoints"
	"github.com/sourcerack/sourcerack/internal/extract"
	"github.com/sourcerack/sourcerack/internal/gitview"
	"github.com/sourcerack/sourcerack/internal/langreg"
	"github.com/sourcerack/sourcerack/internal/metastore"
	"github.com/sourcerack/sourcerack/internal/orchestrator"
	"github.com/sourcerack/sourcerack/internal/sqi"
	"github.com/sourcerack/sourcerack/internal/sqlstore"
	"github.com/sourcerack/sourcerack/internal/vectorstore/hnsw"
)

type fakeGit struct {
	commitSHA string
	files     []gitview.TrackedFile
	blobs     map[string][]byte
}

func (f *fakeGit) ResolveRef(ctx context.Context, repoPath, ref string) (string, error) {
	return f.commitSHA, nil
}

func (f *fakeGit) ListFiles(ctx context.Context, repoPath, commitSHA string) ([]gitview.TrackedFile, error) {
	return f.files, nil
}

func (f *fakeGit) ReadBlob(ctx context.Context, repoPath, blobSHA string) ([]byte, error) {
	return f.blobs[blobSHA], nil
}

func (f *fakeGit) WorktreeRoot(ctx context.Context, repoPath string) string { return repoPath }

func (f *fakeGit) RepositoryIdentity(ctx context.Context, repoPath string) string { return repoPath }

// newIndexedRepo indexes two successive commits of the same repository path
// (same RepositoryIdentity, so same RepoID), leaving the first commit
// non-latest and eligible for collection once its age exceeds retention.
func newIndexedRepo(t *testing.T) (*sqi.Store, *metastore.Store, *hnsw.Store, string, int64) {
	t.Helper()
	db, sqiStore, metaStore, err := sqlstore.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	languages := langreg.New()
	ck := chunker.New(languages)
	ex := extract.NewRegistry(languages)
	ep := endpoints.NewRegistry()
	vectors := hnsw.New("")
	require.NoError(t, vectors.Initialize(context.Background(), 8))
	t.Cleanup(func() { _ = vectors.Close() })
	embeds := embedprovider.NewMock(8)

	git1 := &fakeGit{
		commitSHA: "1111111111111111111111111111111111111a",
		files:     []gitview.TrackedFile{{Path: "main.go", BlobSHA: "blob1", Mode: "100644"}},
		blobs:     map[string][]byte{"blob1": []byte("package demo\n\nfunc Old() string {\n\treturn \"old\"\n}\n")},
	}
	orch := orchestrator.New(git1, languages, ck, ex, ep, sqiStore, metaStore, vectors, embeds, 2)
	first, err := orch.Run(context.Background(), orchestrator.Options{RepoPath: "/repo"})
	require.NoError(t, err)

	git2 := &fakeGit{
		commitSHA: "2222222222222222222222222222222222222b",
		files:     []gitview.TrackedFile{{Path: "main.go", BlobSHA: "blob2", Mode: "100644"}},
		blobs:     map[string][]byte{"blob2": []byte("package demo\n\nfunc New() string {\n\treturn \"new\"\n}\n")},
	}
	orch.Git = git2
	_, err = orch.Run(context.Background(), orchestrator.Options{RepoPath: "/repo"})
	require.NoError(t, err)

	return sqiStore, metaStore, vectors, first.RepoID, first.CommitID
}

func TestRun_DeletesEligibleCommitAndKeepsLatest(t *testing.T) {
	sqiStore, metaStore, vectors, repoID, firstCommitID := newIndexedRepo(t)
	collector := New(metaStore, sqiStore, vectors)

	result, err := collector.Run(context.Background(), 0, false)
	require.NoError(t, err)
	assert.Equal(t, 1, result.CommitsDeleted)
	assert.Equal(t, 1, result.ChunksDeleted)
	assert.False(t, result.DryRun)

	deleted, err := metaStore.GetIndexedCommit(context.Background(), repoID, "1111111111111111111111111111111111111a")
	require.NoError(t, err)
	assert.Nil(t, deleted)

	latest, err := metaStore.LatestCompleteCommit(context.Background(), repoID)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "2222222222222222222222222222222222222b", latest.CommitSHA)

	symbols, err := sqiStore.SymbolsInCommit(context.Background(), firstCommitID)
	require.NoError(t, err)
	assert.Empty(t, symbols)
}

func TestRun_DryRunDeletesNothing(t *testing.T) {
	sqiStore, metaStore, vectors, repoID, _ := newIndexedRepo(t)
	collector := New(metaStore, sqiStore, vectors)

	result, err := collector.Run(context.Background(), 0, true)
	require.NoError(t, err)
	assert.Equal(t, 1, result.CommitsDeleted)
	assert.Equal(t, 1, result.ChunksDeleted)
	assert.True(t, result.DryRun)

	still, err := metaStore.GetIndexedCommit(context.Background(), repoID, "1111111111111111111111111111111111111a")
	require.NoError(t, err)
	assert.NotNil(t, still)
}

func TestRun_NoEligibleCommitsIsNoop(t *testing.T) {
	sqiStore, metaStore, vectors, _, _ := newIndexedRepo(t)
	collector := New(metaStore, sqiStore, vectors)

	result, err := collector.Run(context.Background(), 365, false)
	require.NoError(t, err)
	assert.Equal(t, 0, result.CommitsDeleted)
	assert.Equal(t, 0, result.ChunksDeleted)
}
