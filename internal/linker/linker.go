// Package linker implements the Usage Linker (spec §4.9, C10): resolving
// each Usage row's enclosing symbol and, where possible, the symbol it
// refers to, once per commit after extraction finishes.
//
// Grounded on the teacher's internal/graph/builder.go and extractor.go,
// which resolve call/reference edges between already-extracted nodes in a
// second pass over the same per-file data; this package runs the same kind
// of second pass, generalized from "build a call graph" to "link usages to
// definitions" against the relational SQI store instead of an in-memory
// graph.
package linker

import (
	"context"

	"github.com/sourcerack/sourcerack/internal/sqerr"
	"github.com/sourcerack/sourcerack/internal/sqi"
)

// Link resolves every not-yet-linked usage in a commit. It only ever sets
// enclosing_symbol_id/definition_symbol_id from NULL to a value, so
// running it again over an already-linked commit is a no-op — the
// monotonicity property spec §8 requires.
func Link(ctx context.Context, store *sqi.Store, commitID int64) error {
	usages, err := store.UsagesWithoutDefinition(ctx, commitID)
	if err != nil {
		return err
	}
	if len(usages) == 0 {
		return nil
	}

	tx, err := store.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, u := range usages {
		if u.EnclosingSymbolID == nil && u.EnclosingSymbolName != "" {
			enclosing, err := store.FindSymbolByQualifiedName(ctx, commitID, u.EnclosingSymbolName)
			if err != nil {
				return err
			}
			if enclosing != nil {
				if err := store.LinkUsageEnclosing(ctx, tx, u.ID, enclosing.ID); err != nil {
					return err
				}
			}
		}

		symbolID, err := resolveDefinition(ctx, store, commitID, u)
		if err != nil {
			return err
		}
		if symbolID != nil {
			if err := store.LinkUsageDefinition(ctx, tx, u.ID, *symbolID); err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return sqerr.New(sqerr.KindStorageError, "commit usage links", err)
	}
	return nil
}

// resolveDefinition implements spec §4.9's two-step resolution: prefer an
// import-binding match in the usage's own file (the imported local name
// resolves to the symbol exported under that name from the binding's
// resolved module), falling back to any symbol with an exact name match in
// the commit. Ambiguous exact-name matches (more than one candidate, no
// import binding to break the tie) are left unlinked rather than guessed.
func resolveDefinition(ctx context.Context, store *sqi.Store, commitID int64, u sqi.Usage) (*int64, error) {
	binding, err := store.BindingFor(ctx, commitID, u.FilePath, u.SymbolName)
	if err != nil {
		return nil, err
	}
	if binding != nil {
		candidates, err := store.SymbolsByName(ctx, commitID, binding.ImportedName)
		if err != nil {
			return nil, err
		}
		if len(candidates) == 1 {
			return &candidates[0].ID, nil
		}
		imports, err := store.ImportsByFile(ctx, commitID, u.FilePath)
		if err != nil {
			return nil, err
		}
		for _, imp := range imports {
			for _, c := range candidates {
				if imp.ID == binding.ImportID && imp.ResolvedPath != "" && c.FilePath == imp.ResolvedPath {
					id := c.ID
					return &id, nil
				}
			}
		}
	}

	candidates, err := store.SymbolsByName(ctx, commitID, u.SymbolName)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 1 {
		return &candidates[0].ID, nil
	}
	return nil, nil
}
