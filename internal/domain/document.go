package domain

// Chunk is a bounded window of a source document, the unit of indexing and
// retrieval. Chunks are immutable once created.
type Chunk struct {
	Text       string
	Source     string
	ChunkIndex int // 0-based position within Source
}

// ChunkMeta is the metadata stored alongside each indexed chunk.
type ChunkMeta struct {
	Source     string
	ChunkIndex int
}

// Meta returns the chunk's metadata half.
func (c Chunk) Meta() ChunkMeta {
	return ChunkMeta{Source: c.Source, ChunkIndex: c.ChunkIndex}
}

// Document is parsed source text keyed by its identifier (usually the file
// name).
type Document struct {
	Source  string
	Content string
}

// SearchResult is a retrieved chunk. Score is the raw squared L2 distance
// (lower is better); Confidence is always derived from Score.
type SearchResult struct {
	Chunk      string  `json:"chunk"`
	Source     string  `json:"source"`
	ChunkIndex int     `json:"chunk_index"`
	Rank       int     `json:"-"`
	Score      float64 `json:"score"`
	Confidence float64 `json:"confidence"`
}

// IngestReport summarises an incremental ingestion batch.
type IngestReport struct {
	Ingested    []string `json:"ingested_files"`
	Skipped     []string `json:"skipped_files"`
	ChunksAdded int      `json:"chunks_added"`
	IndexSize   int      `json:"index_size"`
}

// IndexStatus describes the vector index.
type IndexStatus struct {
	Initialized bool     `json:"initialized"`
	Size        int      `json:"size"`
	Dimension   int      `json:"dimension"`
	Sources     []string `json:"sources"`
}
