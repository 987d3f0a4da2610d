// Package hnsw is the in-process Vector Storage implementation (spec §6)
// built on github.com/coder/hnsw's pure-Go HNSW graph, grounded on pack
// repo Aman-CERP-amanmcp's internal/store/hnsw.go: lazy deletion by
// orphaning the string-ID mapping rather than mutating the graph (the
// teacher's comment notes deleting the last node corrupts coder/hnsw's
// internal state), cosine distance by default, and gob-encoded ID-mapping
// persistence alongside the graph's own binary Export/Import.
//
// Unlike the embedded sqlite-vec backend, the graph carries no metadata
// columns to push a filter into before the KNN walk, so Search applies
// Filter as a predicate over each candidate's stored ChunkRecord after
// retrieval.
package hnsw

import (
	"bufio"
	"context"
	"encoding/gob"
	"fmt"
	"math"
	"os"
	"strings"
	"sync"

	"github.com/coder/hnsw"

	"github.com/sourcerack/sourcerack/internal/sqerr"
	"github.com/sourcerack/sourcerack/internal/vectorstore"
)

// Store is the in-process HNSW Vector Storage implementation.
type Store struct {
	mu    sync.RWMutex
	graph *hnsw.Graph[uint64]
	dims  int

	idMap   map[string]uint64
	keyMap  map[uint64]string
	records map[string]vectorstore.ChunkRecord
	nextKey uint64

	path string // persistence path, empty if in-memory only
}

// persisted is the gob-encoded shape saved alongside the graph's own
// exported binary form.
type persisted struct {
	IDMap   map[string]uint64
	NextKey uint64
	Records map[string]vectorstore.ChunkRecord
	Dims    int
}

// New builds an in-memory store. If path is non-empty, Initialize will try
// to load an existing graph from it and Close will save back to it.
func New(path string) *Store {
	return &Store{
		idMap:   make(map[string]uint64),
		keyMap:  make(map[uint64]string),
		records: make(map[string]vectorstore.ChunkRecord),
		path:    path,
	}
}

// Initialize creates the graph for the given dimension, loading a prior
// snapshot from disk first if one is configured and present.
func (s *Store) Initialize(ctx context.Context, dims int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.dims = dims
	graph := hnsw.NewGraph[uint64]()
	graph.Distance = hnsw.CosineDistance
	graph.M = 16
	graph.Ml = 0.25
	graph.EfSearch = 20
	s.graph = graph

	if s.path == "" {
		return nil
	}
	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		return nil
	}
	if err := s.loadLocked(); err != nil {
		return sqerr.New(sqerr.KindStorageError, "load hnsw snapshot", err)
	}
	return nil
}

// UpsertChunks inserts or replaces vectors. An existing ID is orphaned
// (mappings dropped, node left in the graph) rather than deleted from the
// graph itself, the same lazy-deletion workaround the teacher's HNSWStore
// uses for the same library.
func (s *Store) UpsertChunks(ctx context.Context, chunks []vectorstore.ChunkRecord) error {
	if len(chunks) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range chunks {
		if len(c.Vector) != s.dims {
			return sqerr.New(sqerr.KindStorageError, fmt.Sprintf("vector dimension mismatch: expected %d, got %d", s.dims, len(c.Vector)), nil)
		}
		if existingKey, exists := s.idMap[c.ID]; exists {
			delete(s.keyMap, existingKey)
			delete(s.idMap, c.ID)
		}

		key := s.nextKey
		s.nextKey++

		vec := make([]float32, len(c.Vector))
		copy(vec, c.Vector)
		normalize(vec)

		s.graph.Add(hnsw.MakeNode(key, vec))
		s.idMap[c.ID] = key
		s.keyMap[key] = c.ID
		s.records[c.ID] = c
	}
	return nil
}

// AddCommitToChunk appends a commit to a chunk's reachable-commit set
// without touching the graph.
func (s *Store) AddCommitToChunk(ctx context.Context, chunkID string, commitSHA string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[chunkID]
	if !ok {
		return sqerr.New(sqerr.KindStorageError, "add commit to unknown chunk "+chunkID, nil)
	}
	for _, c := range rec.Commits {
		if c == commitSHA {
			return nil
		}
	}
	rec.Commits = append(rec.Commits, commitSHA)
	s.records[chunkID] = rec
	return nil
}

// Search performs a KNN walk then filters candidates against their stored
// ChunkRecord, over-fetching from the graph to compensate for filtered-out
// results the way the embedded backend over-fetches from vec0.
func (s *Store) Search(ctx context.Context, queryVec []float32, filter vectorstore.Filter, limit int) ([]vectorstore.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(queryVec) != s.dims {
		return nil, sqerr.New(sqerr.KindStorageError, fmt.Sprintf("query vector dimension mismatch: expected %d, got %d", s.dims, len(queryVec)), nil)
	}
	if s.graph.Len() == 0 {
		return nil, nil
	}

	query := make([]float32, len(queryVec))
	copy(query, queryVec)
	normalize(query)

	overfetch := limit * 10
	if overfetch < limit {
		overfetch = limit
	}
	nodes := s.graph.Search(query, overfetch)

	results := make([]vectorstore.SearchResult, 0, limit)
	for _, node := range nodes {
		id, ok := s.keyMap[node.Key]
		if !ok {
			continue // orphaned node from a prior delete/replace
		}
		rec, ok := s.records[id]
		if !ok || !matches(rec, filter) {
			continue
		}
		distance := s.graph.Distance(query, node.Value)
		results = append(results, vectorstore.SearchResult{ChunkID: id, Distance: distance})
		if len(results) == limit {
			break
		}
	}
	return results, nil
}

func matches(rec vectorstore.ChunkRecord, filter vectorstore.Filter) bool {
	if filter.RepoID != "" && filter.RepoID != rec.RepoID {
		return false
	}
	if filter.Language != "" && filter.Language != rec.Language {
		return false
	}
	if filter.ContentType != "" && filter.ContentType != rec.ContentType {
		return false
	}
	if filter.PathPattern != "" && !strings.Contains(rec.Path, filter.PathPattern) {
		return false
	}
	if filter.Commit != "" {
		found := false
		for _, c := range rec.Commits {
			if c == filter.Commit {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// GetChunks returns the stored records for the given IDs, in no particular
// order, skipping IDs that aren't present.
func (s *Store) GetChunks(ctx context.Context, ids []string) ([]vectorstore.ChunkRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]vectorstore.ChunkRecord, 0, len(ids))
	for _, id := range ids {
		if rec, ok := s.records[id]; ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

// ChunksExist reports which of the given IDs are already stored.
func (s *Store) ChunksExist(ctx context.Context, ids []string) (map[string]bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		_, out[id] = s.records[id]
	}
	return out, nil
}

// DeleteChunks removes chunks by orphaning their graph nodes, same lazy
// deletion as Upsert's replace path.
func (s *Store) DeleteChunks(ctx context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		if key, ok := s.idMap[id]; ok {
			delete(s.keyMap, key)
			delete(s.idMap, id)
		}
		delete(s.records, id)
	}
	return nil
}

// DeleteByRepoID removes every chunk belonging to a repository.
func (s *Store) DeleteByRepoID(ctx context.Context, repoID string) error {
	s.mu.Lock()
	var toDelete []string
	for id, rec := range s.records {
		if rec.RepoID == repoID {
			toDelete = append(toDelete, id)
		}
	}
	s.mu.Unlock()
	return s.DeleteChunks(ctx, toDelete)
}

// GetStats reports live vector count (excluding orphaned graph nodes) and
// configured dimension.
func (s *Store) GetStats(ctx context.Context) (vectorstore.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return vectorstore.Stats{VectorCount: len(s.idMap), Dimensions: s.dims}, nil
}

// Close persists the graph and ID mappings to disk, if a path is configured.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.path == "" {
		return nil
	}
	return s.saveLocked()
}

func (s *Store) saveLocked() error {
	tmpPath := s.path + ".tmp"
	file, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create snapshot file: %w", err)
	}
	if err := s.graph.Export(file); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("export graph: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close snapshot file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename snapshot file: %w", err)
	}

	metaPath := s.path + ".meta"
	metaTmp := metaPath + ".tmp"
	metaFile, err := os.Create(metaTmp)
	if err != nil {
		return fmt.Errorf("create metadata file: %w", err)
	}
	p := persisted{IDMap: s.idMap, NextKey: s.nextKey, Records: s.records, Dims: s.dims}
	if err := gob.NewEncoder(metaFile).Encode(p); err != nil {
		metaFile.Close()
		os.Remove(metaTmp)
		return fmt.Errorf("encode metadata: %w", err)
	}
	if err := metaFile.Close(); err != nil {
		os.Remove(metaTmp)
		return fmt.Errorf("close metadata file: %w", err)
	}
	return os.Rename(metaTmp, metaPath)
}

func (s *Store) loadLocked() error {
	metaFile, err := os.Open(s.path + ".meta")
	if err != nil {
		return fmt.Errorf("open metadata file: %w", err)
	}
	defer metaFile.Close()

	var p persisted
	if err := gob.NewDecoder(metaFile).Decode(&p); err != nil {
		return fmt.Errorf("decode metadata: %w", err)
	}
	s.idMap = p.IDMap
	s.records = p.Records
	s.nextKey = p.NextKey
	s.keyMap = make(map[uint64]string, len(s.idMap))
	for id, key := range s.idMap {
		s.keyMap[key] = id
	}

	file, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("open snapshot file: %w", err)
	}
	defer file.Close()
	reader := bufio.NewReader(file)
	if err := s.graph.Import(reader); err != nil {
		return fmt.Errorf("import graph: %w", err)
	}
	return nil
}

func normalize(v []float32) {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	if sumSquares == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(sumSquares))
	for i := range v {
		v[i] *= inv
	}
}

var _ vectorstore.Store = (*Store)(nil)
