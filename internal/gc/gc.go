// Package gc implements the Garbage Collector (spec §4.12, C13): reclaiming
// storage for commits that have aged out of retention.
//
// Grounded on the teacher's internal/cache/eviction.go: an eligibility pass
// finds candidates, an eviction loop deletes the oldest first, and a result
// struct reports what was freed. Retargeted from the teacher's branch-based
// LRU/age policy onto the spec's single retention knob: a commit is
// eligible once it is no longer a repository's latest complete commit and
// its completed_at is older than the retention horizon — metastore computes
// that directly (GetEligibleForGC), so this package owns the cascade, not
// the eligibility math itself.
package gc

import (
	"context"

	"github.com/sourcerack/sourcerack/internal/metastore"
	"github.com/sourcerack/sourcerack/internal/sqerr"
	"github.com/sourcerack/sourcerack/internal/sqi"
	"github.com/sourcerack/sourcerack/internal/vectorstore"
)

// Result is what one GC run reports, per spec §4.12.
type Result struct {
	CommitsDeleted int
	ChunksDeleted  int
	DryRun         bool
}

// Collector runs eligibility-then-cascade-delete over the shared
// metastore/sqi database and a vector store.
type Collector struct {
	Meta    *metastore.Store
	SQI     *sqi.Store
	Vectors vectorstore.Store
}

// New builds a Collector over an already-open store triple.
func New(meta *metastore.Store, sqiStore *sqi.Store, vectors vectorstore.Store) *Collector {
	return &Collector{Meta: meta, SQI: sqiStore, Vectors: vectors}
}

// Run deletes every commit past the retention horizon: for each eligible
// commit it computes the chunks referenced only by that commit, removes
// them from vector storage, then deletes the commit's chunk_refs, SQI rows,
// and IndexedCommit row, in that order so a crash mid-run never leaves a
// vector-store chunk referenced by a metastore row that no longer exists.
// Under dryRun, nothing is deleted; Result reports what would have been.
func (c *Collector) Run(ctx context.Context, retentionDays int, dryRun bool) (Result, error) {
	candidates, err := c.Meta.GetEligibleForGC(ctx, retentionDays)
	if err != nil {
		return Result{}, err
	}

	result := Result{DryRun: dryRun}
	for _, candidate := range candidates {
		chunkIDs, err := c.Meta.ChunksOnlyIn(ctx, candidate.CommitID)
		if err != nil {
			return result, err
		}

		if dryRun {
			result.CommitsDeleted++
			result.ChunksDeleted += len(chunkIDs)
			continue
		}

		if len(chunkIDs) > 0 {
			if err := c.Vectors.DeleteChunks(ctx, chunkIDs); err != nil {
				return result, err
			}
		}

		if err := c.deleteCommit(ctx, candidate.CommitID); err != nil {
			return result, err
		}

		result.CommitsDeleted++
		result.ChunksDeleted += len(chunkIDs)
	}

	return result, nil
}

// deleteCommit removes one commit's chunk_refs, SQI rows, and
// IndexedCommit row inside a single transaction.
func (c *Collector) deleteCommit(ctx context.Context, commitID int64) error {
	tx, err := c.SQI.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := c.Meta.DeleteChunkRefsForCommit(ctx, tx, commitID); err != nil {
		return err
	}
	if err := c.SQI.DeleteForCommit(ctx, tx, commitID); err != nil {
		return err
	}
	if err := c.Meta.DeleteCommit(ctx, tx, commitID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return sqerr.New(sqerr.KindStorageError, "commit gc deletion", err)
	}
	return nil
}
