package service

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/cloo-solutions/askdocs/internal/domain"
	"github.com/cloo-solutions/askdocs/internal/index"
	"github.com/cloo-solutions/askdocs/internal/telemetry"
)

// DefaultTopK is the number of chunks retrieved per query when none is given.
const DefaultTopK = 3

const (
	noDocumentsContext = "No relevant documents found."
	contextDelimiter   = "\n\n---\n\n"
)

// RetrieverConfig configures chunking and retrieval depth.
type RetrieverConfig struct {
	Chunk ChunkConfig
	TopK  int
}

// Retrieval is the outcome of a query search, including the query vector
// so callers can log it without embedding twice.
type Retrieval struct {
	Results        []domain.SearchResult
	QueryEmbedding []float32
}

// Retriever owns the ingest and search pipeline over one VectorIndex.
type Retriever struct {
	index    *index.VectorIndex
	embedder EmbeddingProvider
	parser   DocumentParser
	cfg      RetrieverConfig

	// serialises load, create and add+save so two batches never interleave.
	// Provider calls for Ingest happen before it is taken.
	ingestMu sync.Mutex
}

// NewRetriever creates a Retriever. parser may be nil when only
// InitializeIndex with in-memory documents is used.
func NewRetriever(idx *index.VectorIndex, embedder EmbeddingProvider, parser DocumentParser, cfg RetrieverConfig) *Retriever {
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	if cfg.Chunk.SizeTokens <= 0 {
		cfg.Chunk = DefaultChunkConfig()
	}
	return &Retriever{
		index:    idx,
		embedder: embedder,
		parser:   parser,
		cfg:      cfg,
	}
}

// Index exposes the underlying index for status reporting.
func (r *Retriever) Index() *index.VectorIndex {
	return r.index
}

// InitializeIndex loads the persisted index or, when forceRebuild is set or
// no usable snapshot exists, builds a fresh one from docs and saves it.
func (r *Retriever) InitializeIndex(ctx context.Context, docs []domain.Document, forceRebuild bool) error {
	ctx, span := telemetry.StartSpan(ctx, "Retriever.InitializeIndex", telemetry.SpanAttributes{
		Count:     len(docs),
		Operation: "initialize_index",
	})
	defer span.End()

	r.ingestMu.Lock()
	defer r.ingestMu.Unlock()

	if !forceRebuild {
		loaded, err := r.index.Load(ctx)
		if err != nil {
			log.Printf("retriever: ignoring unusable index snapshot: %v", err)
		}
		if loaded {
			log.Printf("retriever: loaded index with %d chunks", r.index.Size())
			return nil
		}
	}

	chunks := nonEmptyChunks(ChunkDocuments(docs, r.cfg.Chunk))
	if len(chunks) == 0 {
		return domain.ErrNoDocuments
	}

	embeddings, err := r.embedChunks(ctx, chunks)
	if err != nil {
		span.SetError(err)
		return err
	}

	texts, meta := splitChunks(chunks)
	if err := r.index.Create(embeddings, texts, meta); err != nil {
		span.SetError(err)
		return fmt.Errorf("failed to create index: %w", err)
	}
	if err := r.index.Save(ctx); err != nil {
		span.SetError(err)
		return err
	}

	log.Printf("retriever: built index with %d chunks from %d documents", len(chunks), len(docs))
	return nil
}

// RebuildFromDir rebuilds the index from every parseable file in dir.
func (r *Retriever) RebuildFromDir(ctx context.Context, dir string) error {
	docs, err := LoadDocuments(dir, r.parser)
	if err != nil {
		return err
	}
	return r.InitializeIndex(ctx, docs, true)
}

// Ingest parses, chunks and embeds the given files and appends them to the
// index, then persists the index. Files that cannot be parsed or produce no
// chunks are reported as skipped.
func (r *Retriever) Ingest(ctx context.Context, paths []string) (*domain.IngestReport, error) {
	ctx, span := telemetry.StartSpan(ctx, "Retriever.Ingest", telemetry.SpanAttributes{
		Count:     len(paths),
		Operation: "ingest",
	})
	defer span.End()

	report := &domain.IngestReport{Ingested: []string{}, Skipped: []string{}}

	var chunks []domain.Chunk
	for _, p := range paths {
		name := filepath.Base(p)
		doc, ok := r.parse(p)
		if !ok {
			report.Skipped = append(report.Skipped, name)
			continue
		}
		docChunks := nonEmptyChunks(ChunkDocuments([]domain.Document{doc}, r.cfg.Chunk))
		if len(docChunks) == 0 {
			report.Skipped = append(report.Skipped, name)
			continue
		}
		chunks = append(chunks, docChunks...)
		report.Ingested = append(report.Ingested, name)
	}

	var embeddings [][]float32
	if len(chunks) > 0 {
		var err error
		embeddings, err = r.embedChunks(ctx, chunks)
		if err != nil {
			span.SetError(err)
			return nil, err
		}
	}

	r.ingestMu.Lock()
	defer r.ingestMu.Unlock()

	// append to the persisted index rather than replacing it
	r.loadLocked(ctx)

	if len(chunks) == 0 {
		report.IndexSize = r.index.Size()
		return report, nil
	}

	texts, meta := splitChunks(chunks)
	if err := r.index.AddAndSave(ctx, embeddings, texts, meta); err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("failed to add to index: %w", err)
	}

	report.ChunksAdded = len(chunks)
	report.IndexSize = r.index.Size()
	log.Printf("retriever: ingested %d files (%d chunks), index size %d", len(report.Ingested), report.ChunksAdded, report.IndexSize)
	telemetry.AddBreadcrumb(ctx, "ingest", fmt.Sprintf("ingested %s", strings.Join(report.Ingested, ", ")))
	return report, nil
}

// Search embeds query and returns the topK nearest chunks with confidence.
// topK <= 0 uses the configured default.
func (r *Retriever) Search(ctx context.Context, query string, topK int) ([]domain.SearchResult, error) {
	res, err := r.Retrieve(ctx, query, topK)
	if err != nil {
		return nil, err
	}
	return res.Results, nil
}

// Retrieve is Search plus the query embedding. When no index has been
// built or persisted yet it returns no results rather than an error.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int) (*Retrieval, error) {
	ctx, span := telemetry.StartSpan(ctx, "Retriever.Search", telemetry.SpanAttributes{
		Count:     topK,
		Operation: "search",
	})
	defer span.End()

	if strings.TrimSpace(query) == "" {
		return nil, domain.ErrEmptyQuery
	}
	if topK <= 0 {
		topK = r.cfg.TopK
	}
	if !r.ensureLoaded(ctx) {
		return &Retrieval{Results: []domain.SearchResult{}}, nil
	}

	vectors, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		span.SetError(err)
		return nil, domain.NewProviderError("embedding", err)
	}
	if len(vectors) != 1 {
		return nil, domain.NewProviderError("embedding", fmt.Errorf("expected 1 vector, got %d", len(vectors)))
	}

	hits, err := r.index.Search(vectors[0], topK)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	results := make([]domain.SearchResult, 0, len(hits))
	for _, h := range hits {
		results = append(results, domain.SearchResult{
			Chunk:      h.Chunk,
			Source:     h.Meta.Source,
			ChunkIndex: h.Meta.ChunkIndex,
			Rank:       h.Rank,
			Score:      h.Score,
			Confidence: Confidence(h.Score),
		})
	}
	return &Retrieval{Results: results, QueryEmbedding: vectors[0]}, nil
}

// HasIndexData reports whether the index is loaded (or loadable) and holds
// at least one entry.
func (r *Retriever) HasIndexData(ctx context.Context) bool {
	return r.ensureLoaded(ctx) && r.index.Size() > 0
}

// Status describes the index, loading a persisted snapshot first if needed.
func (r *Retriever) Status(ctx context.Context) domain.IndexStatus {
	r.ensureLoaded(ctx)
	return domain.IndexStatus{
		Initialized: r.index.Initialized(),
		Size:        r.index.Size(),
		Dimension:   r.index.Dimension(),
		Sources:     r.index.Sources(),
	}
}

func (r *Retriever) ensureLoaded(ctx context.Context) bool {
	if r.index.Initialized() {
		return true
	}

	r.ingestMu.Lock()
	defer r.ingestMu.Unlock()
	return r.loadLocked(ctx)
}

func (r *Retriever) loadLocked(ctx context.Context) bool {
	if r.index.Initialized() {
		return true
	}
	loaded, err := r.index.Load(ctx)
	if err != nil {
		log.Printf("retriever: failed to load index snapshot: %v", err)
	}
	return loaded
}

func (r *Retriever) parse(path string) (domain.Document, bool) {
	if r.parser == nil {
		return domain.Document{}, false
	}
	text, ok := r.parser.Parse(path)
	if !ok || strings.TrimSpace(text) == "" {
		return domain.Document{}, false
	}
	return domain.Document{Source: filepath.Base(path), Content: text}, true
}

func (r *Retriever) embedChunks(ctx context.Context, chunks []domain.Chunk) ([][]float32, error) {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	embeddings, err := r.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, domain.NewProviderError("embedding", err)
	}
	if len(embeddings) != len(texts) {
		return nil, domain.NewProviderError("embedding", fmt.Errorf("expected %d vectors, got %d", len(texts), len(embeddings)))
	}
	return embeddings, nil
}

// LoadDocuments parses every regular file directly inside dir, in name
// order. Unparseable or empty files are skipped. A missing directory yields
// no documents.
func LoadDocuments(dir string, parser DocumentParser) ([]domain.Document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("retriever: documents directory not found: %s", dir)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read documents directory: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var docs []domain.Document
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		text, ok := parser.Parse(path)
		if !ok || strings.TrimSpace(text) == "" {
			log.Printf("retriever: skipping empty or unreadable file %s", e.Name())
			continue
		}
		docs = append(docs, domain.Document{Source: e.Name(), Content: text})
	}
	return docs, nil
}

// Confidence maps a raw L2 distance to (0,1]: 1/(1+score) for non-negative
// scores and 0 for negative ones.
func Confidence(score float64) float64 {
	if score < 0 {
		return 0
	}
	return 1 / (1 + score)
}

// MaxConfidence returns the highest confidence among results, or 0 when
// there are none.
func MaxConfidence(results []domain.SearchResult) float64 {
	var best float64
	for _, r := range results {
		if r.Confidence > best {
			best = r.Confidence
		}
	}
	return best
}

// UniqueSources returns the distinct non-empty sources in first-seen order.
func UniqueSources(results []domain.SearchResult) []string {
	sources := []string{}
	seen := make(map[string]struct{}, len(results))
	for _, r := range results {
		if r.Source == "" {
			continue
		}
		if _, ok := seen[r.Source]; ok {
			continue
		}
		seen[r.Source] = struct{}{}
		sources = append(sources, r.Source)
	}
	return sources
}

// FormatContext renders results as numbered, source-labelled blocks for the
// language model.
func FormatContext(results []domain.SearchResult) string {
	if len(results) == 0 {
		return noDocumentsContext
	}
	parts := make([]string, len(results))
	for i, r := range results {
		parts[i] = fmt.Sprintf("[Document %d: %s]\n%s", i+1, r.Source, r.Chunk)
	}
	return strings.Join(parts, contextDelimiter)
}

func nonEmptyChunks(chunks []domain.Chunk) []domain.Chunk {
	out := chunks[:0]
	for _, c := range chunks {
		if strings.TrimSpace(c.Text) != "" {
			out = append(out, c)
		}
	}
	return out
}

func splitChunks(chunks []domain.Chunk) ([]string, []domain.ChunkMeta) {
	texts := make([]string, len(chunks))
	meta := make([]domain.ChunkMeta, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
		meta[i] = c.Meta()
	}
	return texts, meta
}
