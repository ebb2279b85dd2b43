// Package parallelindex provides an in-memory, worker-pool-parallel vector
// index implementing store.DocumentStore, for corpora that fit in memory
// and don't need a SQL-backed retrieval path.
package parallelindex

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/agentcore/agentcore/internal/rag/store"
	"github.com/agentcore/agentcore/pkg/models"
)

// ErrDimensionMismatch is returned when an embedding's length does not
// match the index's configured dimension.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// entry pairs a document chunk with its embedding and a content hash used
// for dedup.
type entry struct {
	chunk       *models.DocumentChunk
	docID       string
	contentHash uint64
}

// Config configures a ParallelIndex.
type Config struct {
	// Dimension is the required embedding length for every insert.
	Dimension int

	// Dedup skips inserting a chunk whose content hash matches an existing
	// entry's, rather than overwriting it. Off by default: a chunk id match
	// always overwrites regardless of this setting.
	Dedup bool

	// Workers bounds the number of goroutines fanned out over during
	// search. Defaults to runtime.GOMAXPROCS(0) when <= 0.
	Workers int
}

// ParallelIndex is an in-memory collection of document chunks and their
// embeddings, searched with a worker pool computing cosine similarity
// across entries in parallel.
type ParallelIndex struct {
	mu        sync.RWMutex
	entries   map[string]*entry // chunk id -> entry
	docs      map[string]*models.Document
	docChunks map[string][]string // document id -> chunk ids, insertion order
	dimension int
	dedup     bool
	workers   int
}

// New returns an empty ParallelIndex.
func New(cfg Config) *ParallelIndex {
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &ParallelIndex{
		entries:   make(map[string]*entry),
		docs:      make(map[string]*models.Document),
		docChunks: make(map[string][]string),
		dimension: cfg.Dimension,
		dedup:     cfg.Dedup,
		workers:   workers,
	}
}

// AddDocument stores doc and its chunks, overwriting any existing document
// and chunks with the same ids.
func (idx *ParallelIndex) AddDocument(ctx context.Context, doc *models.Document, chunks []*models.DocumentChunk) error {
	if doc == nil {
		return fmt.Errorf("document is nil")
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	for _, existing := range idx.docChunks[doc.ID] {
		delete(idx.entries, existing)
	}

	chunkIDs := make([]string, 0, len(chunks))
	for _, c := range chunks {
		if idx.dimension > 0 && len(c.Embedding) > 0 && len(c.Embedding) != idx.dimension {
			return fmt.Errorf("chunk %s: %w (got %d, want %d)", c.ID, ErrDimensionMismatch, len(c.Embedding), idx.dimension)
		}

		h := contentHash(c.Content)
		if idx.dedup {
			if dup, ok := idx.findByContentHash(h); ok && dup != c.ID {
				continue
			}
		}

		idx.entries[c.ID] = &entry{chunk: c, docID: doc.ID, contentHash: h}
		chunkIDs = append(chunkIDs, c.ID)
	}

	doc.ChunkCount = len(chunkIDs)
	idx.docs[doc.ID] = doc
	idx.docChunks[doc.ID] = chunkIDs
	return nil
}

func (idx *ParallelIndex) findByContentHash(h uint64) (string, bool) {
	for id, e := range idx.entries {
		if e.contentHash == h {
			return id, true
		}
	}
	return "", false
}

// GetDocument retrieves a document by id.
func (idx *ParallelIndex) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	doc, ok := idx.docs[id]
	if !ok {
		return nil, fmt.Errorf("document not found: %s", id)
	}
	return doc, nil
}

// ListDocuments lists documents, optionally filtered and paginated by opts.
func (idx *ParallelIndex) ListDocuments(ctx context.Context, opts *store.ListOptions) ([]*models.Document, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	docs := make([]*models.Document, 0, len(idx.docs))
	for _, doc := range idx.docs {
		if opts != nil {
			if opts.Source != "" && doc.Source != opts.Source {
				continue
			}
			if opts.AgentID != "" && doc.Metadata.AgentID != opts.AgentID {
				continue
			}
			if opts.SessionID != "" && doc.Metadata.SessionID != opts.SessionID {
				continue
			}
			if opts.ChannelID != "" && doc.Metadata.ChannelID != opts.ChannelID {
				continue
			}
		}
		docs = append(docs, doc)
	}

	sort.Slice(docs, func(i, j int) bool {
		less := docs[i].CreatedAt.Before(docs[j].CreatedAt)
		if opts != nil && opts.OrderDesc {
			return !less
		}
		return less
	})

	if opts == nil {
		return docs, nil
	}
	if opts.Offset > 0 {
		if opts.Offset >= len(docs) {
			return nil, nil
		}
		docs = docs[opts.Offset:]
	}
	if opts.Limit > 0 && len(docs) > opts.Limit {
		docs = docs[:opts.Limit]
	}
	return docs, nil
}

// DeleteDocument removes a document and all its chunks.
func (idx *ParallelIndex) DeleteDocument(ctx context.Context, id string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	for _, chunkID := range idx.docChunks[id] {
		delete(idx.entries, chunkID)
	}
	delete(idx.docChunks, id)
	delete(idx.docs, id)
	return nil
}

// GetChunk retrieves a single chunk by id.
func (idx *ParallelIndex) GetChunk(ctx context.Context, id string) (*models.DocumentChunk, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	e, ok := idx.entries[id]
	if !ok {
		return nil, fmt.Errorf("chunk not found: %s", id)
	}
	return e.chunk, nil
}

// GetChunksByDocument retrieves all chunks for a document, in insertion order.
func (idx *ParallelIndex) GetChunksByDocument(ctx context.Context, documentID string) ([]*models.DocumentChunk, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	ids := idx.docChunks[documentID]
	chunks := make([]*models.DocumentChunk, 0, len(ids))
	for _, id := range ids {
		if e, ok := idx.entries[id]; ok {
			chunks = append(chunks, e.chunk)
		}
	}
	return chunks, nil
}

// UpdateChunkEmbeddings replaces the embedding of each named chunk.
func (idx *ParallelIndex) UpdateChunkEmbeddings(ctx context.Context, embeddingsByID map[string][]float32) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	for id, emb := range embeddingsByID {
		if idx.dimension > 0 && len(emb) != idx.dimension {
			return fmt.Errorf("chunk %s: %w (got %d, want %d)", id, ErrDimensionMismatch, len(emb), idx.dimension)
		}
		if e, ok := idx.entries[id]; ok {
			e.chunk.Embedding = emb
		}
	}
	return nil
}

// Stats reports index-wide counts.
func (idx *ParallelIndex) Stats(ctx context.Context) (*store.StoreStats, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	var totalTokens int64
	for _, e := range idx.entries {
		totalTokens += int64(e.chunk.TokenCount)
	}
	return &store.StoreStats{
		TotalDocuments:     int64(len(idx.docs)),
		TotalChunks:        int64(len(idx.entries)),
		TotalTokens:        totalTokens,
		EmbeddingDimension: idx.dimension,
	}, nil
}

// Close is a no-op; ParallelIndex holds no external resources of its own.
// Persistence is handled separately by Save/Load against a sqlite file.
func (idx *ParallelIndex) Close() error { return nil }

// Search ranks every chunk by cosine similarity to queryEmbedding, fanned
// out across a worker pool, and returns the top req.Limit results above
// req.Threshold.
func (idx *ParallelIndex) Search(ctx context.Context, req *models.DocumentSearchRequest, queryEmbedding []float32) (*models.DocumentSearchResponse, error) {
	start := time.Now()

	idx.mu.RLock()
	candidates := make([]*entry, 0, len(idx.entries))
	for _, e := range idx.entries {
		if req != nil && len(req.DocumentIDs) > 0 && !containsString(req.DocumentIDs, e.docID) {
			continue
		}
		if req != nil && len(req.Tags) > 0 && !anyTagMatches(req.Tags, e.chunk.Metadata.Tags) {
			continue
		}
		candidates = append(candidates, e)
	}
	idx.mu.RUnlock()

	limit := 10
	var threshold float32
	if req != nil {
		if req.Limit > 0 {
			limit = req.Limit
		}
		threshold = req.Threshold
	}

	if len(candidates) == 0 || limit == 0 {
		return &models.DocumentSearchResponse{Results: nil, TotalCount: 0, QueryTime: time.Since(start)}, nil
	}

	scores := parallelCosineScores(candidates, queryEmbedding, idx.workers)

	results := make([]*models.DocumentSearchResult, 0, len(candidates))
	for i, c := range candidates {
		if threshold > 0 && scores[i] < threshold {
			continue
		}
		results = append(results, &models.DocumentSearchResult{Chunk: c.chunk, Score: scores[i]})
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })

	total := len(results)
	if len(results) > limit {
		results = results[:limit]
	}

	return &models.DocumentSearchResponse{Results: results, TotalCount: total, QueryTime: time.Since(start)}, nil
}

// parallelCosineScores computes cosine similarity of query against every
// candidate's embedding, fanning the work out across a bounded worker pool.
func parallelCosineScores(candidates []*entry, query []float32, workers int) []float32 {
	scores := make([]float32, len(candidates))
	if workers <= 1 || len(candidates) < workers*2 {
		for i, c := range candidates {
			scores[i] = cosineSimilarity(query, c.chunk.Embedding)
		}
		return scores
	}

	chunkSize := (len(candidates) + workers - 1) / workers
	var wg sync.WaitGroup
	for start := 0; start < len(candidates); start += chunkSize {
		end := start + chunkSize
		if end > len(candidates) {
			end = len(candidates)
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for i := start; i < end; i++ {
				scores[i] = cosineSimilarity(query, candidates[i].chunk.Embedding)
			}
		}(start, end)
	}
	wg.Wait()
	return scores
}

// cosineSimilarity mirrors sqlitevec's hand-rolled dot/norm loop: score is
// zero whenever either vector has zero norm or the lengths disagree.
func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float32
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (sqrtf32(normA) * sqrtf32(normB))
}

func sqrtf32(x float32) float32 {
	if x <= 0 {
		return 0
	}
	z := x
	for i := 0; i < 10; i++ {
		z = (z + x/z) / 2
	}
	return z
}

func contentHash(content string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(content))
	return h.Sum64()
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func anyTagMatches(want, have []string) bool {
	for _, w := range want {
		for _, h := range have {
			if w == h {
				return true
			}
		}
	}
	return false
}

// InsertChunk inserts or overwrites a single chunk under docID, the
// spec-level insert(doc, embedding) primitive AddDocument batches over.
func (idx *ParallelIndex) InsertChunk(docID string, chunk *models.DocumentChunk) error {
	if idx.dimension > 0 && len(chunk.Embedding) > 0 && len(chunk.Embedding) != idx.dimension {
		return fmt.Errorf("chunk %s: %w (got %d, want %d)", chunk.ID, ErrDimensionMismatch, len(chunk.Embedding), idx.dimension)
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	h := contentHash(chunk.Content)
	if idx.dedup {
		if dup, ok := idx.findByContentHash(h); ok && dup != chunk.ID {
			return nil
		}
	}

	if _, exists := idx.entries[chunk.ID]; !exists {
		idx.docChunks[docID] = append(idx.docChunks[docID], chunk.ID)
	}
	idx.entries[chunk.ID] = &entry{chunk: chunk, docID: docID, contentHash: h}
	return nil
}

// RemoveChunk deletes the chunk with the given id and reports whether
// anything was removed.
func (idx *ParallelIndex) RemoveChunk(id string) bool {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	e, ok := idx.entries[id]
	if !ok {
		return false
	}
	delete(idx.entries, id)
	ids := idx.docChunks[e.docID]
	for i, cid := range ids {
		if cid == id {
			idx.docChunks[e.docID] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	return true
}

// Len returns the number of chunks currently indexed.
func (idx *ParallelIndex) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.entries)
}

var _ store.DocumentStore = (*ParallelIndex)(nil)
