// Package chunker splits raw document blocks into retrievable chunks using
// one of two strategies: a fixed-size sliding window with overlap (default)
// and a row-based grouping for tabular or list content.
package chunker

import (
	"strings"

	"github.com/kailas-cloud/ragdex/internal/domain"
)

// Defaults applied when the corresponding Config field is zero.
const (
	DefaultChunkSize      = 512
	DefaultChunkOverlap   = 64
	DefaultMaxCharsPerRow = 1024
)

// Block is one unit of loader output: the raw text of a paragraph, page, or
// whole file, plus its provenance metadata.
type Block struct {
	Text string
	Meta domain.ChunkMeta
}

// Config holds chunking parameters. Sizes are in characters (runes).
type Config struct {
	ChunkSize           int
	ChunkOverlap        int
	MaxCharsPerRowChunk int
}

// Chunker applies a chunking strategy to loader blocks.
type Chunker struct {
	cfg Config
}

// New creates a chunker, filling zero config fields with defaults.
func New(cfg Config) *Chunker {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.ChunkOverlap < 0 {
		cfg.ChunkOverlap = DefaultChunkOverlap
	}
	if cfg.MaxCharsPerRowChunk <= 0 {
		cfg.MaxCharsPerRowChunk = DefaultMaxCharsPerRow
	}
	return &Chunker{cfg: cfg}
}

// Chunk applies one strategy to a list of blocks. Chunk indices restart at 0
// for every block.
func (c *Chunker) Chunk(blocks []Block, strategy domain.Strategy) []domain.Chunk {
	var out []domain.Chunk
	for _, b := range blocks {
		if strategy == domain.StrategyRowTable {
			out = append(out, RowBased(b.Text, b.Meta, c.cfg.MaxCharsPerRowChunk)...)
		} else {
			out = append(out, Overlap(b.Text, b.Meta, c.cfg.ChunkSize, c.cfg.ChunkOverlap)...)
		}
	}
	return out
}

// Overlap splits text into fixed-size windows of size chars with overlap
// chars repeated between consecutive windows. The overlap is capped at
// size-1. All-whitespace windows are skipped without consuming a chunk
// index. Offsets are rune-based.
func Overlap(text string, meta domain.ChunkMeta, size, overlap int) []domain.Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap >= size {
		overlap = size - 1
	}
	if overlap < 0 {
		overlap = 0
	}

	runes := []rune(text)
	var chunks []domain.Chunk
	start, idx := 0, 0
	for start < len(runes) {
		end := start + size
		window := runes[start:min(end, len(runes))]
		trimmed := strings.TrimSpace(string(window))
		if trimmed == "" {
			start = end - overlap
			continue
		}
		m := meta
		m.ChunkIndex = idx
		m.ChunkStart = start
		m.ChunkEnd = end
		chunks = append(chunks, domain.Chunk{Text: trimmed, Meta: m})
		idx++
		start = end - overlap
	}
	return chunks
}

// RowBased splits text into non-empty trimmed lines and greedily groups them
// into chunks of at most maxChars characters (counting one separator per
// line). Every non-empty line lands in exactly one chunk, in order. Each
// chunk is tagged with the half-open row range it covers.
func RowBased(text string, meta domain.ChunkMeta, maxChars int) []domain.Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if maxChars <= 0 {
		maxChars = DefaultMaxCharsPerRow
	}

	var lines []string
	for _, ln := range strings.Split(text, "\n") {
		if t := strings.TrimSpace(ln); t != "" {
			lines = append(lines, t)
		}
	}
	if len(lines) == 0 {
		// Degenerate input with no line structure passes through whole.
		m := meta
		m.ChunkIndex = 0
		return []domain.Chunk{{Text: strings.TrimSpace(text), Meta: m}}
	}

	var chunks []domain.Chunk
	var buf []string
	bufSize := 0
	rowStart := 0
	for i, line := range lines {
		buf = append(buf, line)
		bufSize += len([]rune(line)) + 1
		if bufSize >= maxChars || i == len(lines)-1 {
			block := strings.Join(buf, "\n")
			m := meta
			m.ChunkIndex = len(chunks)
			m.RowRange = &domain.RowRange{Start: rowStart, End: rowStart + len(buf)}
			m.PageOrPara = 0
			chunks = append(chunks, domain.Chunk{Text: block, Meta: m})
			rowStart += len(buf)
			buf = nil
			bufSize = 0
		}
	}
	return chunks
}
