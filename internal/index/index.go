package index

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"sync"

	"github.com/cloo-solutions/askdocs/internal/domain"
)

const snapshotVersion = 1

// Hit is one search result as stored in the index. Rank is 1-based.
type Hit struct {
	Chunk    string
	Meta     domain.ChunkMeta
	Score    float64
	Rank     int
	Position int
}

// Option configures a VectorIndex.
type Option func(*VectorIndex)

// WithSearcherFactory replaces the default FlatL2 searcher.
func WithSearcherFactory(fn func(dim int) Searcher) Option {
	return func(v *VectorIndex) {
		v.newSearcher = fn
	}
}

// VectorIndex stores embeddings together with their chunk text and metadata
// in parallel arrays: position i of the searcher, chunks and metadata always
// describe the same entry.
type VectorIndex struct {
	mu          sync.RWMutex
	saveMu      sync.Mutex
	preset      int
	dimension   int
	searcher    Searcher
	chunks      []string
	metadata    []domain.ChunkMeta
	store       SnapshotStore
	newSearcher func(dim int) Searcher
}

// New creates an uninitialized index. A dimension of 0 means the width is
// taken from the first batch of embeddings; otherwise every batch and every
// loaded snapshot must match it.
func New(dimension int, store SnapshotStore, opts ...Option) *VectorIndex {
	v := &VectorIndex{
		preset:    dimension,
		dimension: dimension,
		store:     store,
		newSearcher: func(dim int) Searcher {
			return NewFlatL2(dim)
		},
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Create replaces the index contents with a fresh set of entries.
func (v *VectorIndex) Create(embeddings [][]float32, chunks []string, metadata []domain.ChunkMeta) error {
	width, err := validateBatch(embeddings, chunks, metadata)
	if err != nil {
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	return v.createLocked(embeddings, chunks, metadata, width)
}

func (v *VectorIndex) createLocked(embeddings [][]float32, chunks []string, metadata []domain.ChunkMeta, width int) error {
	if v.preset != 0 && v.preset != width {
		return mismatch(v.preset, width)
	}

	s := v.newSearcher(width)
	if err := s.Add(embeddings); err != nil {
		return fmt.Errorf("failed to build index: %w", err)
	}

	v.dimension = width
	v.searcher = s
	v.chunks = append([]string(nil), chunks...)
	v.metadata = append([]domain.ChunkMeta(nil), metadata...)
	return nil
}

// Add appends entries, creating the index when it is not yet initialized.
func (v *VectorIndex) Add(embeddings [][]float32, chunks []string, metadata []domain.ChunkMeta) error {
	width, err := validateBatch(embeddings, chunks, metadata)
	if err != nil {
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.searcher == nil {
		return v.createLocked(embeddings, chunks, metadata, width)
	}

	if width != v.dimension {
		return mismatch(v.dimension, width)
	}
	if err := v.searcher.Add(embeddings); err != nil {
		return fmt.Errorf("failed to add to index: %w", err)
	}
	v.chunks = append(v.chunks, chunks...)
	v.metadata = append(v.metadata, metadata...)
	return nil
}

// Search returns the k nearest entries to query in ascending distance order.
// k is clamped to the index size; an empty index yields no hits.
func (v *VectorIndex) Search(query []float32, k int) ([]Hit, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if v.searcher == nil {
		return nil, domain.ErrIndexNotInitialized
	}
	if len(query) != v.dimension {
		return nil, mismatch(v.dimension, len(query))
	}
	if k <= 0 || v.searcher.Len() == 0 {
		return []Hit{}, nil
	}

	neighbors := v.searcher.Search(query, k)
	hits := make([]Hit, 0, len(neighbors))
	for i, n := range neighbors {
		hits = append(hits, Hit{
			Chunk:    v.chunks[n.Position],
			Meta:     v.metadata[n.Position],
			Score:    n.Distance,
			Rank:     i + 1,
			Position: n.Position,
		})
	}
	return hits, nil
}

// Size returns the number of indexed entries.
func (v *VectorIndex) Size() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.chunks)
}

// Dimension returns the embedding width, or 0 when unknown.
func (v *VectorIndex) Dimension() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.dimension
}

// Sources returns the distinct chunk sources in first-indexed order.
func (v *VectorIndex) Sources() []string {
	v.mu.RLock()
	defer v.mu.RUnlock()

	seen := make(map[string]struct{})
	sources := []string{}
	for _, m := range v.metadata {
		if _, ok := seen[m.Source]; ok {
			continue
		}
		seen[m.Source] = struct{}{}
		sources = append(sources, m.Source)
	}
	return sources
}

// Initialized reports whether the index has been created or loaded.
func (v *VectorIndex) Initialized() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.searcher != nil
}

type snapshot struct {
	Version   int
	Dimension int
	Chunks    []string
	Metadata  []domain.ChunkMeta
	IndexData []byte
}

// AddAndSave appends entries and persists the result as one step: when the
// snapshot cannot be written the entries are removed again, so a retried
// batch is never indexed twice. Callers must not run Add concurrently.
func (v *VectorIndex) AddAndSave(ctx context.Context, embeddings [][]float32, chunks []string, metadata []domain.ChunkMeta) error {
	v.saveMu.Lock()
	defer v.saveMu.Unlock()

	v.mu.RLock()
	prevLen, wasInitialized := len(v.chunks), v.searcher != nil
	v.mu.RUnlock()

	if err := v.Add(embeddings, chunks, metadata); err != nil {
		return err
	}
	if err := v.saveLocked(ctx); err != nil {
		v.rollback(prevLen, wasInitialized)
		return err
	}
	return nil
}

func (v *VectorIndex) rollback(n int, keep bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !keep {
		v.searcher = nil
		v.dimension = v.preset
		v.chunks = nil
		v.metadata = nil
		return
	}
	v.searcher.Truncate(n)
	v.chunks = v.chunks[:n]
	v.metadata = v.metadata[:n]
}

// Save writes the whole index as one snapshot.
func (v *VectorIndex) Save(ctx context.Context) error {
	v.saveMu.Lock()
	defer v.saveMu.Unlock()
	return v.saveLocked(ctx)
}

func (v *VectorIndex) saveLocked(ctx context.Context) error {
	data, err := v.encode()
	if err != nil {
		return err
	}
	if err := v.store.Put(ctx, data); err != nil {
		return fmt.Errorf("failed to save index: %w", err)
	}
	return nil
}

func (v *VectorIndex) encode() ([]byte, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if v.searcher == nil {
		return nil, domain.ErrIndexNotInitialized
	}
	raw, err := v.searcher.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("failed to encode index: %w", err)
	}

	var buf bytes.Buffer
	err = gob.NewEncoder(&buf).Encode(snapshot{
		Version:   snapshotVersion,
		Dimension: v.dimension,
		Chunks:    v.chunks,
		Metadata:  v.metadata,
		IndexData: raw,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

// Load replaces the in-memory index with the stored snapshot. A missing
// snapshot returns (false, nil); an undecodable or inconsistent one returns
// (false, ErrCorruptSnapshot) and leaves the index untouched.
func (v *VectorIndex) Load(ctx context.Context) (bool, error) {
	data, err := v.store.Get(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrSnapshotNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to load index: %w", err)
	}

	var snap snapshot
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&snap); err != nil {
		return false, corrupt(err)
	}
	if snap.Version != snapshotVersion {
		return false, corrupt(fmt.Errorf("unsupported snapshot version %d", snap.Version))
	}
	if v.preset != 0 && snap.Dimension != v.preset {
		return false, mismatch(v.preset, snap.Dimension)
	}

	s := v.newSearcher(snap.Dimension)
	if err := s.UnmarshalBinary(snap.IndexData); err != nil {
		return false, corrupt(err)
	}
	if s.Dimension() != snap.Dimension || s.Len() != len(snap.Chunks) || len(snap.Chunks) != len(snap.Metadata) {
		return false, corrupt(fmt.Errorf("snapshot arrays disagree: %d vectors, %d chunks, %d metadata",
			s.Len(), len(snap.Chunks), len(snap.Metadata)))
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.dimension = snap.Dimension
	v.searcher = s
	v.chunks = snap.Chunks
	v.metadata = snap.Metadata
	return true, nil
}

func mismatch(want, got int) error {
	return domain.NewDomainErrorWithCause(domain.ErrCodeValidation, domain.ErrDimensionMismatch.Message,
		fmt.Errorf("index has dimension %d, got %d", want, got))
}

func corrupt(err error) error {
	return domain.NewDomainErrorWithCause(domain.ErrCodeCorruptState, domain.ErrCorruptSnapshot.Message, err)
}

func validateBatch(embeddings [][]float32, chunks []string, metadata []domain.ChunkMeta) (int, error) {
	if len(embeddings) == 0 {
		return 0, domain.ErrEmptyInput
	}
	if len(embeddings) != len(chunks) || len(chunks) != len(metadata) {
		return 0, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, domain.ErrDimensionMismatch.Message,
			fmt.Errorf("got %d embeddings, %d chunks, %d metadata", len(embeddings), len(chunks), len(metadata)))
	}
	width := len(embeddings[0])
	if width == 0 {
		return 0, domain.ErrEmptyInput
	}
	for i, e := range embeddings {
		if len(e) != width {
			return 0, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, domain.ErrDimensionMismatch.Message,
				fmt.Errorf("embedding %d has width %d, want %d", i, len(e), width))
		}
	}
	return width, nil
}
