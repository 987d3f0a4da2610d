// Package orchestrator implements the Indexing Orchestrator (spec §4.10,
// C11): the nine-step pipeline that turns one (repository, commit) pair
// into SQI rows and vector-store entries. Grounded on the teacher's
// internal/indexer/indexer.go and processor.go (the parse/embed/persist
// sequencing) and branch_synchronizer.go (the reuse-set/parse-set split),
// retargeted from the teacher's per-branch cache model onto the spec's
// per-commit model.
package orchestrator

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sourcerack/sourcerack/internal/chunker"
	"github.com/sourcerack/sourcerack/internal/chunkid"
	"github.com/sourcerack/sourcerack/internal/contenttype"
	"github.com/sourcerack/sourcerack/internal/embedprovider"
	"github.com/sourcerack/sourcerack/internal/endpoints"
	"github.com/sourcerack/sourcerack/internal/extract"
	"github.com/sourcerack/sourcerack/internal/gitview"
	"github.com/sourcerack/sourcerack/internal/langreg"
	"github.com/sourcerack/sourcerack/internal/linker"
	"github.com/sourcerack/sourcerack/internal/metastore"
	"github.com/sourcerack/sourcerack/internal/sqerr"
	"github.com/sourcerack/sourcerack/internal/sqi"
	"github.com/sourcerack/sourcerack/internal/vectorstore"
)

// EventType is the closed enumeration of spec §4.10's progress event types.
type EventType string

const (
	EventStarted            EventType = "started"
	EventFilesListed        EventType = "files_listed"
	EventGrammarsInstalling EventType = "grammars_installing"
	EventFileParsed         EventType = "file_parsed"
	EventChunksEmbedded     EventType = "chunks_embedded"
	EventChunksStored       EventType = "chunks_stored"
	EventCompleted          EventType = "completed"
	EventFailed             EventType = "failed"
)

// ProgressEvent is one step of the pipeline's typed progress stream,
// delivered to Options.Observer in file-processing order (spec §5's
// monotonic-ordering guarantee).
type ProgressEvent struct {
	Type   EventType
	Counts map[string]int
}

// Observer receives progress events. A nil Observer is valid; events are
// simply dropped.
type Observer func(ProgressEvent)

// Options configures one Run call.
type Options struct {
	RepoPath       string
	Ref            string // defaults to "HEAD"
	Group          string
	DisplayName    string
	Force          bool // delete and re-parse an already-indexed commit
	SkipEmbeddings bool // leave embedding_status at "none", no provider calls
	Observer       Observer
}

// Result is what Run returns on success.
type Result struct {
	RepoID        string
	CommitSHA     string
	CommitID      int64
	ChunksCreated int
	ChunksReused  int
}

// Orchestrator wires every other component together into the indexing
// pipeline.
type Orchestrator struct {
	Git         gitview.View
	Languages   *langreg.Registry
	Chunker     *chunker.Chunker
	Extractors  *extract.Registry
	Endpoints   *endpoints.Registry
	SQI         *sqi.Store
	Meta        *metastore.Store
	Vectors     vectorstore.Store
	Embeds      embedprovider.Provider
	Concurrency int
}

// New builds an Orchestrator. concurrency <= 0 defaults to 4.
func New(git gitview.View, languages *langreg.Registry, ck *chunker.Chunker, ex *extract.Registry, ep *endpoints.Registry, sqiStore *sqi.Store, meta *metastore.Store, vectors vectorstore.Store, embeds embedprovider.Provider, concurrency int) *Orchestrator {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Orchestrator{
		Git: git, Languages: languages, Chunker: ck, Extractors: ex, Endpoints: ep,
		SQI: sqiStore, Meta: meta, Vectors: vectors, Embeds: embeds, Concurrency: concurrency,
	}
}

// parsedFile is one parse-set file's extraction output, collected in
// listing order before any database write.
type parsedFile struct {
	path     string
	blobSHA  string
	language string
	chunks   []chunkid.Identified
	symbols  []extract.Symbol
	usages   []extract.Usage
	imports  []extract.Import
	eps      []sqi.Endpoint
	err      error
}

// Run drives one (repo, commit) through the nine-step pipeline.
func (o *Orchestrator) Run(ctx context.Context, opts Options) (Result, error) {
	ref := opts.Ref
	if ref == "" {
		ref = "HEAD"
	}
	o.emit(opts.Observer, EventStarted, nil)

	// Step 1: resolve identity, get-or-create Repository, start indexing.
	commitSHA, err := o.Git.ResolveRef(ctx, opts.RepoPath, ref)
	if err != nil {
		return Result{}, err
	}
	repoID := o.Git.RepositoryIdentity(ctx, opts.RepoPath)
	worktreeRoot := o.Git.WorktreeRoot(ctx, opts.RepoPath)
	if err := o.Meta.UpsertRepository(ctx, metastore.Repository{
		ID: repoID, Path: worktreeRoot, DisplayName: opts.DisplayName, Group: opts.Group, FirstSeenAt: time.Now().UTC(),
	}); err != nil {
		return Result{}, err
	}

	existing, err := o.Meta.GetIndexedCommit(ctx, repoID, commitSHA)
	if err != nil {
		return Result{}, err
	}
	if existing != nil && existing.Status == metastore.StatusComplete && !opts.Force {
		return Result{RepoID: repoID, CommitSHA: commitSHA, CommitID: existing.ID}, nil
	}
	if existing != nil && opts.Force {
		if err := o.forceClear(ctx, existing.ID); err != nil {
			return Result{}, err
		}
	}

	commit, err := o.Meta.StartIndexing(ctx, repoID, commitSHA)
	if err != nil {
		return Result{}, err
	}

	result, runErr := o.run(ctx, opts, repoID, commitSHA, commit.ID)
	if runErr != nil {
		o.emit(opts.Observer, EventFailed, map[string]int{})
		_ = o.Meta.CompleteIndexing(ctx, commit.ID, runErr)
		return Result{}, runErr
	}
	if err := o.Meta.CompleteIndexing(ctx, commit.ID, nil); err != nil {
		return Result{}, err
	}
	o.emit(opts.Observer, EventCompleted, map[string]int{"chunks_created": result.ChunksCreated, "chunks_reused": result.ChunksReused})
	return result, nil
}

func (o *Orchestrator) forceClear(ctx context.Context, commitID int64) error {
	tx, err := o.SQI.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := o.SQI.DeleteForCommit(ctx, tx, commitID); err != nil {
		return err
	}
	if err := o.Meta.DeleteChunkRefsForCommit(ctx, tx, commitID); err != nil {
		return err
	}
	if err := o.Meta.DeleteCommit(ctx, tx, commitID); err != nil {
		return err
	}
	return tx.Commit()
}

func (o *Orchestrator) run(ctx context.Context, opts Options, repoID, commitSHA string, commitID int64) (Result, error) {
	// Step 2: list files.
	files, err := o.Git.ListFiles(ctx, opts.RepoPath, commitSHA)
	if err != nil {
		return Result{}, err
	}
	o.emit(opts.Observer, EventFilesListed, map[string]int{"files": len(files)})

	// Step 3: split into reuse/parse sets.
	blobSHAs := make([]string, 0, len(files))
	for _, f := range files {
		blobSHAs = append(blobSHAs, f.BlobSHA)
	}
	indexedBlobs, err := o.Meta.GetIndexedBlobs(ctx, blobSHAs)
	if err != nil {
		return Result{}, err
	}

	var reuseFiles, parseFiles []gitview.TrackedFile
	for _, f := range files {
		if indexedBlobs[f.BlobSHA] {
			reuseFiles = append(reuseFiles, f)
		} else {
			parseFiles = append(parseFiles, f)
		}
	}

	var fileBlobs []metastore.FileBlob
	var chunkRefs []metastore.ChunkRef
	chunksReused := 0
	chunksCreated := 0

	// Step 4: reuse-set files, no parse, no embed.
	if len(reuseFiles) > 0 {
		reuseBlobSHAs := make([]string, 0, len(reuseFiles))
		for _, f := range reuseFiles {
			reuseBlobSHAs = append(reuseBlobSHAs, f.BlobSHA)
			fileBlobs = append(fileBlobs, metastore.FileBlob{CommitID: commitID, FilePath: f.Path, BlobSHA: f.BlobSHA})
		}
		chunksForBlobs, err := o.Meta.GetChunksForBlobs(ctx, reuseBlobSHAs)
		if err != nil {
			return Result{}, err
		}
		for _, f := range reuseFiles {
			for _, chunkID := range chunksForBlobs[f.BlobSHA] {
				chunkRefs = append(chunkRefs, metastore.ChunkRef{CommitID: commitID, ChunkID: chunkID, FilePath: f.Path})
				if err := o.Vectors.AddCommitToChunk(ctx, chunkID, commitSHA); err != nil {
					return Result{}, err
				}
				chunksReused++
			}
		}
	}

	// Step 5: parse-set files, bounded worker pool, results collected in
	// listing order.
	o.emit(opts.Observer, EventGrammarsInstalling, map[string]int{"files": len(parseFiles)})
	parsed := make([]parsedFile, len(parseFiles))
	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(o.Concurrency)
	for i, f := range parseFiles {
		i, f := i, f
		group.Go(func() error {
			parsed[i] = o.parseFile(gctx, opts.RepoPath, f)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return Result{}, err
	}
	for _, p := range parsed {
		if p.err != nil {
			return Result{}, p.err
		}
		o.emit(opts.Observer, EventFileParsed, map[string]int{"file": 1})
	}

	// Step 6: batch-embed new chunks, upsert into vector storage, link
	// already-existing chunks to this commit.
	newByID := make(map[string]chunkid.Identified)
	for _, p := range parsed {
		for _, c := range p.chunks {
			newByID[c.ID.String()] = c
			fileBlobs = append(fileBlobs, metastore.FileBlob{CommitID: commitID, FilePath: p.path, BlobSHA: p.blobSHA})
		}
	}
	allIDs := make([]string, 0, len(newByID))
	for id := range newByID {
		allIDs = append(allIDs, id)
	}
	exists, err := o.Vectors.ChunksExist(ctx, allIDs)
	if err != nil {
		return Result{}, err
	}

	var toEmbed []chunkid.Identified
	for id, c := range newByID {
		if exists[id] {
			if err := o.Vectors.AddCommitToChunk(ctx, id, commitSHA); err != nil {
				return Result{}, err
			}
			chunksReused++
		} else {
			toEmbed = append(toEmbed, c)
		}
	}

	if len(toEmbed) > 0 && !opts.SkipEmbeddings {
		o.emit(opts.Observer, EventChunksEmbedded, map[string]int{"chunks": len(toEmbed)})
		texts := make([]string, len(toEmbed))
		for i, c := range toEmbed {
			texts[i] = c.Chunk.Content
		}
		vectors, err := o.Embeds.EmbedBatch(ctx, texts)
		if err != nil {
			return Result{}, sqerr.New(sqerr.KindEmbeddingFailed, "batch embed", err)
		}
		if len(vectors) != len(toEmbed) {
			return Result{}, sqerr.New(sqerr.KindEmbeddingFailed, "batch embed", fmt.Errorf("got %d vectors for %d chunks", len(vectors), len(toEmbed)))
		}
		records := make([]vectorstore.ChunkRecord, len(toEmbed))
		for i, c := range toEmbed {
			records[i] = vectorstore.ChunkRecord{
				ID:          c.ID.String(),
				RepoID:      repoID,
				Commits:     []string{commitSHA},
				Language:    c.Chunk.Language,
				Path:        c.Chunk.Path,
				ContentType: contenttype.Classify(c.Chunk.Path, c.Chunk.Language),
				Symbol:      c.Chunk.Symbol,
				Content:     c.Chunk.Content,
				Vector:      vectors[i],
			}
		}
		if err := o.Vectors.UpsertChunks(ctx, records); err != nil {
			return Result{}, err
		}
		o.emit(opts.Observer, EventChunksStored, map[string]int{"chunks": len(records)})
	}
	chunksCreated += len(toEmbed)

	for _, p := range parsed {
		for _, c := range p.chunks {
			chunkRefs = append(chunkRefs, metastore.ChunkRef{CommitID: commitID, ChunkID: c.ID.String(), FilePath: p.path})
		}
	}

	// Persist blob bookkeeping: FileBlob rows, BlobChunk rows, ChunkRefs.
	tx, err := o.Meta.DB().BeginTx(ctx, nil)
	if err != nil {
		return Result{}, sqerr.New(sqerr.KindStorageError, "begin metadata transaction", err)
	}
	if err := o.Meta.StoreFileBlobs(ctx, tx, fileBlobs); err != nil {
		tx.Rollback()
		return Result{}, err
	}
	var blobChunks []metastore.BlobChunk
	for _, p := range parsed {
		for _, c := range p.chunks {
			blobChunks = append(blobChunks, metastore.BlobChunk{BlobSHA: p.blobSHA, ChunkID: c.ID.String()})
		}
	}
	if err := o.Meta.StoreBlobChunks(ctx, tx, blobChunks); err != nil {
		tx.Rollback()
		return Result{}, err
	}
	if err := o.Meta.AddChunkRefs(ctx, tx, chunkRefs); err != nil {
		tx.Rollback()
		return Result{}, err
	}
	if err := tx.Commit(); err != nil {
		return Result{}, sqerr.New(sqerr.KindStorageError, "commit metadata transaction", err)
	}

	// Step 7: SQI inserts, in AST document order per file, file listing
	// order across files.
	sqiTx, err := o.SQI.BeginTx(ctx)
	if err != nil {
		return Result{}, err
	}
	qnameToID := make(map[string]int64)
	for _, p := range parsed {
		if err := o.insertSymbols(ctx, sqiTx, repoID, commitID, p.symbols, qnameToID); err != nil {
			sqiTx.Rollback()
			return Result{}, err
		}
		if len(p.usages) > 0 {
			usages := make([]sqi.Usage, len(p.usages))
			for i, u := range p.usages {
				usages[i] = sqi.Usage{
					CommitID: commitID, SymbolName: u.SymbolName, FilePath: u.FilePath,
					Line: u.Line, Column: u.Column, UsageType: u.UsageType, EnclosingSymbolName: u.EnclosingSymbolName,
				}
			}
			if _, err := o.SQI.InsertUsages(ctx, sqiTx, usages); err != nil {
				sqiTx.Rollback()
				return Result{}, err
			}
		}
		if len(p.imports) > 0 {
			imports := make([]sqi.Import, len(p.imports))
			for i, imp := range p.imports {
				bindings := make([]sqi.ImportBinding, len(imp.Bindings))
				for j, b := range imp.Bindings {
					bindings[j] = sqi.ImportBinding{ImportedName: b.ImportedName, LocalName: b.LocalName, IsTypeOnly: b.IsTypeOnly}
				}
				imports[i] = sqi.Import{
					CommitID: commitID, FilePath: imp.FilePath, Line: imp.Line, ImportType: imp.ImportType,
					ModuleSpecifier: imp.ModuleSpecifier, ResolvedPath: imp.ResolvedPath, Bindings: bindings,
				}
			}
			if err := o.SQI.InsertImports(ctx, sqiTx, imports); err != nil {
				sqiTx.Rollback()
				return Result{}, err
			}
		}
		if len(p.eps) > 0 {
			eps := make([]sqi.Endpoint, len(p.eps))
			copy(eps, p.eps)
			for i := range eps {
				eps[i].CommitID = commitID
			}
			if err := o.SQI.InsertEndpoints(ctx, sqiTx, eps); err != nil {
				sqiTx.Rollback()
				return Result{}, err
			}
		}
	}
	if err := sqiTx.Commit(); err != nil {
		return Result{}, sqerr.New(sqerr.KindStorageError, "commit sqi transaction", err)
	}

	// Step 8: link usages to definitions.
	if err := linker.Link(ctx, o.SQI, commitID); err != nil {
		return Result{}, err
	}

	return Result{RepoID: repoID, CommitSHA: commitSHA, CommitID: commitID, ChunksCreated: chunksCreated, ChunksReused: chunksReused}, nil
}

func (o *Orchestrator) parseFile(ctx context.Context, repoPath string, f gitview.TrackedFile) parsedFile {
	if err := ctx.Err(); err != nil {
		return parsedFile{path: f.Path, blobSHA: f.BlobSHA, err: err}
	}

	content, err := o.Git.ReadBlob(ctx, repoPath, f.BlobSHA)
	if err != nil {
		return parsedFile{path: f.Path, blobSHA: f.BlobSHA, err: err}
	}
	if gitview.IsBinary(content) {
		return parsedFile{path: f.Path, blobSHA: f.BlobSHA}
	}

	lang, _ := o.Languages.LanguageFor(f.Path)

	chunks, err := o.Chunker.Chunk(ctx, f.Path, content)
	if err != nil {
		return parsedFile{path: f.Path, blobSHA: f.BlobSHA, err: err}
	}

	idChunks := chunkid.Deduplicate(toChunkIDInputs(chunks))

	extraction, err := o.Extractors.Extract(ctx, lang.ID, f.Path, content)
	if err != nil {
		return parsedFile{path: f.Path, blobSHA: f.BlobSHA, err: err}
	}

	eps := o.Endpoints.Detect(f.Path, lang.ID, content, extraction.Imports)

	return parsedFile{
		path: f.Path, blobSHA: f.BlobSHA, language: lang.ID,
		chunks: idChunks, symbols: extraction.Symbols, usages: extraction.Usages, imports: extraction.Imports, eps: eps,
	}
}

func toChunkIDInputs(chunks []chunker.Chunk) []chunkid.Chunk {
	out := make([]chunkid.Chunk, len(chunks))
	for i, c := range chunks {
		out[i] = chunkid.Chunk{Language: c.Language, Path: c.Path, Symbol: c.Symbol, Content: c.Content}
	}
	return out
}

// insertSymbols inserts one file's symbols in the order the extractor
// produced them (its own walk order, which is a pre-order traversal of the
// parse tree), resolving each symbol's parent_symbol_id from qnameToID
// before inserting it — the traversal guarantees a parent's qualified name
// is already in the map by the time its children are reached.
func (o *Orchestrator) insertSymbols(ctx context.Context, tx *sql.Tx, repoID string, commitID int64, symbols []extract.Symbol, qnameToID map[string]int64) error {
	for _, s := range symbols {
		var parentID *int64
		if s.ParentQualifiedName != "" {
			if id, ok := qnameToID[s.ParentQualifiedName]; ok {
				parentID = &id
			}
		}
		row := sqi.Symbol{
			RepoID: repoID, CommitID: commitID, Name: s.Name, QualifiedName: s.QualifiedName,
			Kind: s.Kind, FilePath: s.FilePath, StartLine: s.StartLine, EndLine: s.EndLine,
			Visibility: s.Visibility, IsAsync: s.IsAsync, IsStatic: s.IsStatic, IsExported: s.IsExported,
			ReturnType: s.ReturnType, ParentSymbolID: parentID, ContentHash: s.ContentHash,
		}
		ids, err := o.SQI.InsertSymbols(ctx, tx, []sqi.Symbol{row})
		if err != nil {
			return err
		}
		id := ids[0]
		qnameToID[s.QualifiedName] = id

		if len(s.Parameters) > 0 {
			params := make([]sqi.SymbolParameter, len(s.Parameters))
			for i, p := range s.Parameters {
				params[i] = sqi.SymbolParameter{SymbolID: id, Position: p.Position, Name: p.Name, TypeAnnotation: p.TypeAnnotation, IsOptional: p.IsOptional}
			}
			if err := o.SQI.InsertSymbolParameters(ctx, tx, params); err != nil {
				return err
			}
		}
		if s.Docstring != nil {
			doc := sqi.SymbolDocstring{SymbolID: id, DocType: s.Docstring.DocType, RawText: s.Docstring.RawText, Description: s.Docstring.Description}
			if err := o.SQI.InsertSymbolDocstrings(ctx, tx, []sqi.SymbolDocstring{doc}); err != nil {
				return err
			}
		}
	}
	return nil
}

func (o *Orchestrator) emit(observer Observer, t EventType, counts map[string]int) {
	if observer == nil {
		return
	}
	observer(ProgressEvent{Type: t, Counts: counts})
}
