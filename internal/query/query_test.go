package query

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
	"github.com/sourcerack/sourcerack/internal/orchestrator"
	"github.com/sourcerack/sourcerack/internal/sqlstore"
	"github.com/sourcerack/sourcerack/internal/vectorstore/hnsw"
)

// fakeGit is an in-memory gitview.View over a fixed commit, used so tests
// don't need a real Git repository on disk.
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

// fixture is a small, fully indexed demo repo exercising function calls,
// a method with a parent type, and an external import.
const (
	mainSrc = "package demo\n\nfunc Greet(name string) string {\n\treturn \"hi \" + name\n}\n"
	appSrc  = "package demo\n\nfunc Run() string {\n\treturn Greet(\"world\")\n}\n"
	typeSrc = "package demo\n\ntype Greeter struct{}\n\nfunc (g *Greeter) Hello() string {\n\treturn Greet(\"repo\")\n}\n"
	logSrc  = "package demo\n\nimport \"fmt\"\n\nfunc Log(msg string) {\n\tfmt.Println(msg)\n}\n"
)

func newQueryHarness(t *testing.T) (*Engine, string) {
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

	commitSHA := "a1b2c3d4e5f6a1b2c3d4e5f6a1b2c3d4e5f6a1b2"
	git := &fakeGit{
		commitSHA: commitSHA,
		files: []gitview.TrackedFile{
			{Path: "main.go", BlobSHA: "blob-main", Mode: "100644"},
			{Path: "app.go", BlobSHA: "blob-app", Mode: "100644"},
			{Path: "type.go", BlobSHA: "blob-type", Mode: "100644"},
			{Path: "log.go", BlobSHA: "blob-log", Mode: "100644"},
		},
		blobs: map[string][]byte{
			"blob-main": []byte(mainSrc),
			"blob-app":  []byte(appSrc),
			"blob-type": []byte(typeSrc),
			"blob-log":  []byte(logSrc),
		},
	}

	orch := orchestrator.New(git, languages, ck, ex, ep, sqiStore, metaStore, vectors, embeds, 2)
	_, err = orch.Run(context.Background(), orchestrator.Options{RepoPath: "/repo"})
	require.NoError(t, err)

	return New(sqiStore, metaStore, git, languages), "/repo"
}

func TestFindDefinition(t *testing.T) {
	engine, _ := newQueryHarness(t)

	resp := engine.FindDefinition(context.Background(), FindDefinitionRequest{Name: "Greet"})
	require.True(t, resp.Success)
	require.Len(t, resp.Matches, 1)
	assert.Equal(t, "main.go", resp.Matches[0].Symbol.FilePath)

	fuzzy := engine.FindDefinition(context.Background(), FindDefinitionRequest{Name: "Gret", Fuzzy: true})
	require.True(t, fuzzy.Success)
	require.NotEmpty(t, fuzzy.Matches)
	assert.Greater(t, fuzzy.Matches[0].Similarity, 0.0)
}

func TestFindUsages(t *testing.T) {
	engine, _ := newQueryHarness(t)

	resp := engine.FindUsages(context.Background(), FindUsagesRequest{SymbolName: "Greet"})
	require.True(t, resp.Success)
	assert.Len(t, resp.Usages, 2) // called from app.go and type.go
}

func TestFindHierarchy(t *testing.T) {
	engine, _ := newQueryHarness(t)

	children := engine.FindHierarchy(context.Background(), FindHierarchyRequest{SymbolName: "Greeter", Direction: DirectionChildren})
	require.True(t, children.Success)
	require.Len(t, children.Children, 1)
	assert.Equal(t, "Hello", children.Children[0].Name)

	parents := engine.FindHierarchy(context.Background(), FindHierarchyRequest{SymbolName: "Hello", Direction: DirectionParents})
	require.True(t, parents.Success)
	require.Len(t, parents.Parents, 1)
	assert.Equal(t, "Greeter", parents.Parents[0].Name)
}

func TestGetCallGraph(t *testing.T) {
	engine, _ := newQueryHarness(t)

	resp := engine.GetCallGraph(context.Background(), GetCallGraphRequest{SymbolName: "Greet", Direction: CallGraphCallers})
	require.True(t, resp.Success)
	assert.Len(t, resp.Callers, 2)

	callees := engine.GetCallGraph(context.Background(), GetCallGraphRequest{SymbolName: "Run", Direction: CallGraphCallees})
	require.True(t, callees.Success)
	require.Len(t, callees.Callees, 1)
	assert.Equal(t, "Greet", callees.Callees[0].SymbolName)
}

func TestAnalyzeChangeImpact(t *testing.T) {
	engine, _ := newQueryHarness(t)

	resp := engine.AnalyzeChangeImpact(context.Background(), AnalyzeChangeImpactRequest{SymbolName: "Greet", MaxDepth: 2})
	require.True(t, resp.Success)
	assert.Len(t, resp.DirectUsages, 2)
	assert.GreaterOrEqual(t, resp.TotalAffected, 1)
}

func TestFindDeadCode(t *testing.T) {
	engine, _ := newQueryHarness(t)

	resp := engine.FindDeadCode(context.Background(), FindDeadCodeRequest{})
	require.True(t, resp.Success)
	var names []string
	for _, d := range resp.Symbols {
		names = append(names, d.Symbol.Name)
	}
	assert.Contains(t, names, "Run")
	assert.Contains(t, names, "Log")
	assert.NotContains(t, names, "Greet")
}

func TestFindImportsAndImporters(t *testing.T) {
	engine, _ := newQueryHarness(t)

	imports := engine.FindImports(context.Background(), FindImportsRequest{FilePath: "log.go"})
	require.True(t, imports.Success)
	require.Len(t, imports.Imports, 1)
	assert.Equal(t, "fmt", imports.Imports[0].Import.ModuleSpecifier)

	importers := engine.FindImporters(context.Background(), FindImportersRequest{ModuleSpecifier: "fmt"})
	require.True(t, importers.Success)
	require.Len(t, importers.Importers, 1)
	assert.Equal(t, "log.go", importers.Importers[0].Import.FilePath)
}

func TestFindEndpointsIsSuccessEvenWhenEmpty(t *testing.T) {
	engine, _ := newQueryHarness(t)

	resp := engine.FindEndpoints(context.Background(), FindEndpointsRequest{})
	require.True(t, resp.Success)
	assert.Empty(t, resp.Endpoints)
}

func TestGetSymbolContext(t *testing.T) {
	engine, _ := newQueryHarness(t)

	resp := engine.GetSymbolContext(context.Background(), GetSymbolContextRequest{
		SymbolName: "Greet", IncludeSource: true, IncludeUsages: true,
	})
	require.True(t, resp.Success)
	require.NotNil(t, resp.Symbol)
	assert.Contains(t, resp.Source, "hi")
	assert.Len(t, resp.Usages, 2)
}

func TestCodebaseSummary(t *testing.T) {
	engine, _ := newQueryHarness(t)

	resp := engine.CodebaseSummary(context.Background(), CodebaseSummaryRequest{IncludeHotspots: true, IncludeDependencies: true})
	require.True(t, resp.Success)
	assert.Equal(t, 4, resp.TotalFiles)
	assert.GreaterOrEqual(t, resp.TotalSymbols, 4)
	assert.NotEmpty(t, resp.Hotspots)
	assert.Contains(t, resp.ExternalDependencies, "fmt")
}

func TestGetDependencyGraph(t *testing.T) {
	engine, _ := newQueryHarness(t)

	resp := engine.GetDependencyGraph(context.Background(), GetDependencyGraphRequest{})
	require.True(t, resp.Success)
	var sawFmt bool
	for _, edge := range resp.Edges {
		if edge.To == "fmt" {
			sawFmt = true
		}
	}
	assert.True(t, sawFmt)
}

func TestScopeWithUnknownRepoFails(t *testing.T) {
	engine, _ := newQueryHarness(t)

	resp := engine.FindDefinition(context.Background(), FindDefinitionRequest{
		Scope: Scope{RepoIDs: []string{"nonexistent"}},
		Name:  "Greet",
	})
	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.Error)
}
