package linker

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sourcerack/sourcerack/internal/sqi"
	"github.com/sourcerack/sourcerack/internal/sqlstore"
)

func newTestStore(t *testing.T) *sqi.Store {
	t.Helper()
	db, sqiStore, _, err := sqlstore.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return sqiStore
}

func insertSymbol(t *testing.T, ctx context.Context, store *sqi.Store, sym sqi.Symbol) int64 {
	t.Helper()
	tx, err := store.BeginTx(ctx)
	require.NoError(t, err)
	ids, err := store.InsertSymbols(ctx, tx, []sqi.Symbol{sym})
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	return ids[0]
}

func insertUsage(t *testing.T, ctx context.Context, store *sqi.Store, u sqi.Usage) int64 {
	t.Helper()
	tx, err := store.BeginTx(ctx)
	require.NoError(t, err)
	ids, err := store.InsertUsages(ctx, tx, []sqi.Usage{u})
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	return ids[0]
}

func TestLink_ResolvesByExactNameMatch(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	insertSymbol(t, ctx, store, sqi.Symbol{RepoID: "r1", CommitID: 1, Name: "greet", QualifiedName: "greet", Kind: sqi.KindFunction, FilePath: "main.go"})
	insertUsage(t, ctx, store, sqi.Usage{CommitID: 1, SymbolName: "greet", FilePath: "main.go", Line: 5, UsageType: sqi.UsageCall})

	require.NoError(t, Link(ctx, store, 1))

	usages, err := store.UsagesByName(ctx, 1, "greet")
	require.NoError(t, err)
	require.Len(t, usages, 1)
	require.NotNil(t, usages[0].DefinitionSymbolID)
}

func TestLink_AmbiguousExactNameLeftUnlinked(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	insertSymbol(t, ctx, store, sqi.Symbol{RepoID: "r1", CommitID: 1, Name: "run", QualifiedName: "pkgA.run", Kind: sqi.KindFunction, FilePath: "a.go"})
	insertSymbol(t, ctx, store, sqi.Symbol{RepoID: "r1", CommitID: 1, Name: "run", QualifiedName: "pkgB.run", Kind: sqi.KindFunction, FilePath: "b.go"})
	insertUsage(t, ctx, store, sqi.Usage{CommitID: 1, SymbolName: "run", FilePath: "c.go", Line: 1, UsageType: sqi.UsageCall})

	require.NoError(t, Link(ctx, store, 1))

	usages, err := store.UsagesByName(ctx, 1, "run")
	require.NoError(t, err)
	require.Len(t, usages, 1)
	assert.Nil(t, usages[0].DefinitionSymbolID)
}

func TestLink_ImportBindingResolvesAmbiguity(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	insertSymbol(t, ctx, store, sqi.Symbol{RepoID: "r1", CommitID: 1, Name: "Client", QualifiedName: "pkgA.Client", Kind: sqi.KindClass, FilePath: "a.go"})
	insertSymbol(t, ctx, store, sqi.Symbol{RepoID: "r1", CommitID: 1, Name: "Client", QualifiedName: "pkgB.Client", Kind: sqi.KindClass, FilePath: "b.go"})

	tx, err := store.BeginTx(ctx)
	require.NoError(t, err)
	require.NoError(t, store.InsertImports(ctx, tx, []sqi.Import{
		{
			CommitID:        1,
			FilePath:        "c.go",
			Line:            1,
			ImportType:      sqi.ImportGo,
			ModuleSpecifier: "pkgB",
			ResolvedPath:    "b.go",
			Bindings:        []sqi.ImportBinding{{ImportedName: "Client", LocalName: "Client"}},
		},
	}))
	require.NoError(t, tx.Commit())

	insertUsage(t, ctx, store, sqi.Usage{CommitID: 1, SymbolName: "Client", FilePath: "c.go", Line: 3, UsageType: sqi.UsageInstantiate})

	require.NoError(t, Link(ctx, store, 1))

	usages, err := store.UsagesByName(ctx, 1, "Client")
	require.NoError(t, err)
	require.Len(t, usages, 1)
	require.NotNil(t, usages[0].DefinitionSymbolID)
}

func TestLink_ResolvesEnclosingSymbol(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	callerID := insertSymbol(t, ctx, store, sqi.Symbol{RepoID: "r1", CommitID: 1, Name: "caller", QualifiedName: "caller", Kind: sqi.KindFunction, FilePath: "main.go"})
	insertUsage(t, ctx, store, sqi.Usage{CommitID: 1, SymbolName: "callee", FilePath: "main.go", Line: 7, UsageType: sqi.UsageCall, EnclosingSymbolName: "caller"})

	require.NoError(t, Link(ctx, store, 1))

	usages, err := store.UsagesByName(ctx, 1, "callee")
	require.NoError(t, err)
	require.Len(t, usages, 1)
	require.NotNil(t, usages[0].EnclosingSymbolID)
	assert.Equal(t, callerID, *usages[0].EnclosingSymbolID)
}

func TestLink_IsIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	insertSymbol(t, ctx, store, sqi.Symbol{RepoID: "r1", CommitID: 1, Name: "greet", QualifiedName: "greet", Kind: sqi.KindFunction, FilePath: "main.go"})
	insertUsage(t, ctx, store, sqi.Usage{CommitID: 1, SymbolName: "greet", FilePath: "main.go", Line: 5, UsageType: sqi.UsageCall})

	require.NoError(t, Link(ctx, store, 1))
	require.NoError(t, Link(ctx, store, 1))

	usages, err := store.UsagesByName(ctx, 1, "greet")
	require.NoError(t, err)
	require.Len(t, usages, 1)
	assert.NotNil(t, usages[0].DefinitionSymbolID)
}
