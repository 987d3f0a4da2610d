package orchestrator

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
	"github.com/sourcerack/sourcerack/internal/sqi"
	"github.com/sourcerack/sourcerack/internal/sqlstore"
	"github.com/sourcerack/sourcerack/internal/vectorstore/hnsw"
)

// fakeGit is an in-memory gitview.View over a fixed set of blobs, so tests
// don't need an actual Git repository on disk.
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

func newHarness(t *testing.T, git gitview.View) (*Orchestrator, *sqi.Store, *metastore.Store) {
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

	orch := New(git, languages, ck, ex, ep, sqiStore, metaStore, vectors, embeds, 2)
	return orch, sqiStore, metaStore
}

func TestRun_IndexesGoFileEndToEnd(t *testing.T) {
	src := []byte("package demo\n\nfunc Greet(name string) string {\n\treturn \"hi \" + name\n}\n")
	git := &fakeGit{
		commitSHA: "a1b2c3d4e5f6a1b2c3d4e5f6a1b2c3d4e5f6a1b2",
		files:     []gitview.TrackedFile{{Path: "main.go", BlobSHA: "blob1", Mode: "100644"}},
		blobs:     map[string][]byte{"blob1": src},
	}
	orch, sqiStore, metaStore := newHarness(t, git)

	result, err := orch.Run(context.Background(), Options{RepoPath: "/repo"})
	require.NoError(t, err)
	assert.Equal(t, git.commitSHA, result.CommitSHA)
	assert.Equal(t, 1, result.ChunksCreated)

	commit, err := metaStore.GetIndexedCommit(context.Background(), result.RepoID, git.commitSHA)
	require.NoError(t, err)
	require.NotNil(t, commit)
	assert.Equal(t, metastore.StatusComplete, commit.Status)

	syms, err := sqiStore.SymbolsInFile(context.Background(), result.CommitID, "main.go")
	require.NoError(t, err)
	require.Len(t, syms, 1)
	assert.Equal(t, "Greet", syms[0].Name)
}

func TestRun_SecondRunWithoutChangesIsNoop(t *testing.T) {
	src := []byte("package demo\n\nfunc Greet() {}\n")
	git := &fakeGit{
		commitSHA: "b1b2c3d4e5f6a1b2c3d4e5f6a1b2c3d4e5f6a1b2",
		files:     []gitview.TrackedFile{{Path: "main.go", BlobSHA: "blob1", Mode: "100644"}},
		blobs:     map[string][]byte{"blob1": src},
	}
	orch, _, _ := newHarness(t, git)

	first, err := orch.Run(context.Background(), Options{RepoPath: "/repo"})
	require.NoError(t, err)

	second, err := orch.Run(context.Background(), Options{RepoPath: "/repo"})
	require.NoError(t, err)
	assert.Equal(t, first.CommitID, second.CommitID)
}

func TestRun_ReindexReusesUnchangedBlobChunks(t *testing.T) {
	src := []byte("package demo\n\nfunc Greet() {}\n")
	commitA := "c1b2c3d4e5f6a1b2c3d4e5f6a1b2c3d4e5f6a1b2"
	commitB := "d1b2c3d4e5f6a1b2c3d4e5f6a1b2c3d4e5f6a1b2"
	git := &fakeGit{
		commitSHA: commitA,
		files:     []gitview.TrackedFile{{Path: "main.go", BlobSHA: "blob1", Mode: "100644"}},
		blobs:     map[string][]byte{"blob1": src},
	}
	orch, _, _ := newHarness(t, git)

	first, err := orch.Run(context.Background(), Options{RepoPath: "/repo"})
	require.NoError(t, err)
	assert.Equal(t, 1, first.ChunksCreated)

	git.commitSHA = commitB
	second, err := orch.Run(context.Background(), Options{RepoPath: "/repo"})
	require.NoError(t, err)
	assert.Equal(t, 0, second.ChunksCreated)
	assert.Equal(t, 1, second.ChunksReused)
}

func TestRun_ForceReparsesAnAlreadyCompleteCommit(t *testing.T) {
	src := []byte("package demo\n\nfunc Greet() {}\n")
	git := &fakeGit{
		commitSHA: "e1b2c3d4e5f6a1b2c3d4e5f6a1b2c3d4e5f6a1b2",
		files:     []gitview.TrackedFile{{Path: "main.go", BlobSHA: "blob1", Mode: "100644"}},
		blobs:     map[string][]byte{"blob1": src},
	}
	orch, sqiStore, _ := newHarness(t, git)

	first, err := orch.Run(context.Background(), Options{RepoPath: "/repo"})
	require.NoError(t, err)

	second, err := orch.Run(context.Background(), Options{RepoPath: "/repo", Force: true})
	require.NoError(t, err)
	assert.NotEqual(t, first.CommitID, second.CommitID)

	syms, err := sqiStore.SymbolsInFile(context.Background(), second.CommitID, "main.go")
	require.NoError(t, err)
	assert.Len(t, syms, 1)
}
