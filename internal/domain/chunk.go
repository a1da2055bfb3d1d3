package domain

import (
	"fmt"
	"strconv"
)

// RowRange identifies the source lines covered by a row-based chunk.
// Start is inclusive, End is exclusive.
type RowRange struct {
	Start int
	End   int
}

// String renders the range as "start-end".
func (r RowRange) String() string {
	return strconv.Itoa(r.Start) + "-" + strconv.Itoa(r.End)
}

// ChunkMeta carries chunk provenance. The triple (DocID, Span, ChunkIndex)
// is the stable chunk identity used for storage keys, deduplication, and
// citations; the field names match the persisted metadata layout.
type ChunkMeta struct {
	DocID      string
	SourcePath string
	Filename   string

	// PageOrPara is the page or paragraph ordinal of the source block
	// (overlap chunks). Zero when RowRange is set.
	PageOrPara int
	// RowRange is set for row-based chunks instead of PageOrPara.
	RowRange *RowRange

	ChunkIndex int

	// ChunkStart/ChunkEnd are rune offsets of the window within the source
	// block. Only set by the overlap strategy. ChunkEnd may exceed the block
	// length for the final window.
	ChunkStart int
	ChunkEnd   int
}

// Span returns the page/paragraph or row-range locator as a string.
func (m ChunkMeta) Span() string {
	if m.RowRange != nil {
		return m.RowRange.String()
	}
	return strconv.Itoa(m.PageOrPara)
}

// Key returns the stable identity (doc_id, span, chunk_index) used for
// deduplication and storage addressing.
func (m ChunkMeta) Key() string {
	return fmt.Sprintf("%s|%s|%d", m.DocID, m.Span(), m.ChunkIndex)
}

// Chunk is a bounded span of source-document text stored as an independently
// retrievable unit. Immutable after ingestion.
type Chunk struct {
	Text string
	Meta ChunkMeta
}

// ScoredChunk pairs a retrieved chunk with its vector distance.
// Lower score means more similar (cosine distance convention).
type ScoredChunk struct {
	Chunk  Chunk
	Score  float64
	Vector []float32
}

// VectorRecord is a chunk paired with its embedding, as persisted in the
// vector store. One record per chunk, never mutated.
type VectorRecord struct {
	Chunk  Chunk
	Vector []float32
}

// Citation points at the source of a retrieved chunk. Derived 1:1 from
// ChunkMeta, never parsed out of model output.
type Citation struct {
	DocID      string `json:"doc_id"`
	PageOrPara string `json:"page_or_para"`
}

// CitationFor builds a citation from chunk metadata.
func CitationFor(m ChunkMeta) Citation {
	return Citation{DocID: m.DocID, PageOrPara: m.Span()}
}

// RetrievalResult is the outcome of one retrieval call: ranked chunks, a
// parallel score slice, and the below-threshold gate. Ephemeral, scoped to
// one query.
type RetrievalResult struct {
	Chunks []Chunk
	Scores []float64
	// BelowThreshold is true when no retrieved evidence survived filtering
	// and deduplication.
	BelowThreshold bool
}
