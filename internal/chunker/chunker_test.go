package chunker

import (
	"strings"
	"testing"

	"github.com/kailas-cloud/ragdex/internal/domain"
)

func TestOverlapCoversWholeInput(t *testing.T) {
	text := strings.Repeat("the quick brown fox jumps over the lazy dog. ", 40)
	meta := domain.ChunkMeta{DocID: "doc", PageOrPara: 1}

	chunks := Overlap(text, meta, 100, 20)
	if len(chunks) == 0 {
		t.Fatal("expected chunks")
	}

	runes := []rune(text)
	covered := make([]bool, len(runes))
	for _, c := range chunks {
		end := min(c.Meta.ChunkEnd, len(runes))
		for i := c.Meta.ChunkStart; i < end; i++ {
			covered[i] = true
		}
		if n := len([]rune(c.Text)); n > 100 {
			t.Errorf("chunk %d longer than chunk_size: %d", c.Meta.ChunkIndex, n)
		}
	}
	for i, ok := range covered {
		if !ok {
			t.Fatalf("character at offset %d not covered by any chunk", i)
		}
	}
}

func TestOverlapIndicesSequential(t *testing.T) {
	text := strings.Repeat("abcdefghij", 30)
	chunks := Overlap(text, domain.ChunkMeta{DocID: "d"}, 64, 8)
	for i, c := range chunks {
		if c.Meta.ChunkIndex != i {
			t.Errorf("chunk %d has index %d", i, c.Meta.ChunkIndex)
		}
	}
}

func TestOverlapCountMonotonicInOverlap(t *testing.T) {
	text := strings.Repeat("word ", 500)
	sizes := []int{0, 8, 16, 32, 64}
	prev := 0
	for _, ov := range sizes {
		n := len(Overlap(text, domain.ChunkMeta{}, 128, ov))
		if n < prev {
			t.Errorf("overlap %d produced %d chunks, fewer than %d with smaller overlap", ov, n, prev)
		}
		prev = n
	}
}

func TestOverlapSkipsWhitespaceWindows(t *testing.T) {
	text := "abcde" + strings.Repeat(" ", 30) + "vwxyz"
	chunks := Overlap(text, domain.ChunkMeta{}, 10, 0)

	for _, c := range chunks {
		if strings.TrimSpace(c.Text) == "" {
			t.Error("emitted an all-whitespace chunk")
		}
	}
	// Indices stay sequential even though windows were skipped.
	for i, c := range chunks {
		if c.Meta.ChunkIndex != i {
			t.Errorf("chunk %d has index %d after whitespace skip", i, c.Meta.ChunkIndex)
		}
	}
}

func TestOverlapEmptyInput(t *testing.T) {
	if got := Overlap("", domain.ChunkMeta{}, 100, 10); got != nil {
		t.Errorf("empty input should produce no chunks, got %d", len(got))
	}
	if got := Overlap("   \n\t  ", domain.ChunkMeta{}, 100, 10); got != nil {
		t.Errorf("whitespace input should produce no chunks, got %d", len(got))
	}
}

func TestOverlapCapsOverlapAtSizeMinusOne(t *testing.T) {
	// overlap >= size would loop forever without the cap
	text := strings.Repeat("x", 50)
	chunks := Overlap(text, domain.ChunkMeta{}, 10, 10)
	if len(chunks) == 0 {
		t.Fatal("expected chunks")
	}
}

func TestRowBasedReproducesAllLines(t *testing.T) {
	var lines []string
	for i := 0; i < 57; i++ {
		lines = append(lines, strings.Repeat("cell ", i%7+1)+"row")
	}
	text := strings.Join(lines, "\n")

	chunks := RowBased(text, domain.ChunkMeta{DocID: "table"}, 120)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	var got []string
	for _, c := range chunks {
		got = append(got, strings.Split(c.Text, "\n")...)
	}
	if len(got) != len(lines) {
		t.Fatalf("got %d lines back, want %d", len(got), len(lines))
	}
	for i := range lines {
		if got[i] != lines[i] {
			t.Fatalf("line %d mismatch: %q != %q", i, got[i], lines[i])
		}
	}
}

func TestRowBasedRowRanges(t *testing.T) {
	text := "a\nb\nc\nd\ne"
	chunks := RowBased(text, domain.ChunkMeta{}, 4)

	next := 0
	for _, c := range chunks {
		rr := c.Meta.RowRange
		if rr == nil {
			t.Fatal("row chunk missing row range")
		}
		if rr.Start != next {
			t.Errorf("row range start %d, want %d", rr.Start, next)
		}
		if rr.End <= rr.Start {
			t.Errorf("empty row range %v", rr)
		}
		next = rr.End
	}
	if next != 5 {
		t.Errorf("row ranges cover %d rows, want 5", next)
	}
}

func TestRowBasedSingleChunkUnderLimit(t *testing.T) {
	chunks := RowBased("one\ntwo\nthree", domain.ChunkMeta{}, 1024)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Text != "one\ntwo\nthree" {
		t.Errorf("unexpected chunk text %q", chunks[0].Text)
	}
}

func TestRowBasedEmptyInput(t *testing.T) {
	if got := RowBased("  \n ", domain.ChunkMeta{}, 100); got != nil {
		t.Errorf("whitespace input should produce no chunks, got %d", len(got))
	}
}

func TestChunkerStrategyDispatch(t *testing.T) {
	c := New(Config{ChunkSize: 50, ChunkOverlap: 5, MaxCharsPerRowChunk: 20})
	blocks := []Block{{Text: "alpha\nbeta\ngamma\ndelta", Meta: domain.ChunkMeta{DocID: "d"}}}

	rows := c.Chunk(blocks, domain.StrategyRowTable)
	for _, ch := range rows {
		if ch.Meta.RowRange == nil {
			t.Error("row_table chunk missing row range")
		}
	}

	over := c.Chunk(blocks, domain.StrategyOverlap)
	for _, ch := range over {
		if ch.Meta.RowRange != nil {
			t.Error("overlap chunk should not carry a row range")
		}
	}
}
