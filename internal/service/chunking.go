package service

import (
	"strings"

	"github.com/cloo-solutions/askdocs/internal/domain"
)

// charsPerToken approximates tokenisation: one token is treated as four
// characters. Chunk budgets are computed over characters, not real tokens.
const charsPerToken = 4

// boundaryLookback is how far back from a window end the chunker searches for
// a sentence terminator or a space.
const boundaryLookback = 100

// ChunkConfig controls chunking for document ingestion.
type ChunkConfig struct {
	SizeTokens    int
	OverlapTokens int
}

// DefaultChunkConfig provides sane defaults for chunking.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		SizeTokens:    400,
		OverlapTokens: 50,
	}
}

// ChunkText splits text into overlapping, boundary-aware windows. Whitespace
// runs are collapsed before any length is measured, and all lengths count
// characters (runes). ChunkText never fails; empty input yields no chunks.
func ChunkText(text string, cfg ChunkConfig) []string {
	if cfg.SizeTokens <= 0 {
		cfg.SizeTokens = DefaultChunkConfig().SizeTokens
	}
	if cfg.OverlapTokens < 0 {
		cfg.OverlapTokens = 0
	}

	chunkChars := cfg.SizeTokens * charsPerToken
	overlapChars := cfg.OverlapTokens * charsPerToken

	clean := strings.Join(strings.Fields(text), " ")
	if clean == "" {
		return nil
	}
	runes := []rune(clean)
	if len(runes) <= chunkChars {
		return []string{clean}
	}

	chunks := make([]string, 0, len(runes)/chunkChars+1)
	start := 0
	for start < len(runes) {
		end := start + chunkChars
		if end > len(runes) {
			end = len(runes)
		}

		if end < len(runes) {
			end = cutPoint(runes, start, end)
		}

		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}

		if end >= len(runes) {
			break
		}

		next := end - overlapChars
		// the tail after next is already covered by this chunk
		if next >= len(runes)-overlapChars {
			break
		}
		if next <= start {
			next = end
		}
		start = next
	}

	return chunks
}

// cutPoint picks where a window [start, end) should end: just after the
// latest sentence terminator in the lookback, else at the latest space, else
// exactly at end.
func cutPoint(runes []rune, start, end int) int {
	searchStart := end - boundaryLookback
	if searchStart < start {
		searchStart = start
	}

	for i := end - 1; i > start && i >= searchStart; i-- {
		switch runes[i] {
		case '.', '!', '?':
			return i + 1
		}
	}
	for i := end - 1; i > start && i >= searchStart; i-- {
		if runes[i] == ' ' {
			return i
		}
	}
	return end
}

// ChunkDocuments chunks every document and tags each window with its source
// and 0-based position.
func ChunkDocuments(docs []domain.Document, cfg ChunkConfig) []domain.Chunk {
	var out []domain.Chunk
	for _, doc := range docs {
		for i, text := range ChunkText(doc.Content, cfg) {
			out = append(out, domain.Chunk{Text: text, Source: doc.Source, ChunkIndex: i})
		}
	}
	return out
}
