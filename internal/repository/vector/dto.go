package vector

import (
	"encoding/binary"
	"math"
	"strconv"
	"strings"

	"github.com/kailas-cloud/ragdex/internal/db"
	"github.com/kailas-cloud/ragdex/internal/domain"
)

// fieldsFromRecord flattens a vector record into hash fields. The field names
// are the persisted metadata layout and must stay stable across releases.
func fieldsFromRecord(rec domain.VectorRecord) map[string]string {
	m := rec.Chunk.Meta
	fields := map[string]string{
		"content":     rec.Chunk.Text,
		"vector":      vectorToBytes(rec.Vector),
		"doc_id":      m.DocID,
		"chunk_index": strconv.Itoa(m.ChunkIndex),
	}
	if m.SourcePath != "" {
		fields["source_path"] = m.SourcePath
	}
	if m.Filename != "" {
		fields["filename"] = m.Filename
	}
	if m.RowRange != nil {
		fields["row_range"] = m.RowRange.String()
	} else {
		fields["page_or_para"] = strconv.Itoa(m.PageOrPara)
	}
	if m.ChunkEnd > 0 {
		fields["chunk_start"] = strconv.Itoa(m.ChunkStart)
		fields["chunk_end"] = strconv.Itoa(m.ChunkEnd)
	}
	return fields
}

// scoredChunkFromEntry hydrates a search hit back into a scored chunk.
func scoredChunkFromEntry(entry db.SearchEntry, withVector bool) domain.ScoredChunk {
	f := entry.Fields

	meta := domain.ChunkMeta{
		DocID:      f["doc_id"],
		SourcePath: f["source_path"],
		Filename:   f["filename"],
		PageOrPara: atoi(f["page_or_para"]),
		ChunkIndex: atoi(f["chunk_index"]),
		ChunkStart: atoi(f["chunk_start"]),
		ChunkEnd:   atoi(f["chunk_end"]),
	}
	if rr, ok := parseRowRange(f["row_range"]); ok {
		meta.RowRange = &rr
		meta.PageOrPara = 0
	}

	sc := domain.ScoredChunk{
		Chunk: domain.Chunk{Text: f["content"], Meta: meta},
		Score: entry.Score,
	}
	if withVector {
		sc.Vector = bytesToVector(f["vector"])
	}
	return sc
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func parseRowRange(s string) (domain.RowRange, bool) {
	if s == "" {
		return domain.RowRange{}, false
	}
	start, end, ok := strings.Cut(s, "-")
	if !ok {
		return domain.RowRange{}, false
	}
	return domain.RowRange{Start: atoi(start), End: atoi(end)}, true
}

func vectorToBytes(vec []float32) string {
	buf := make([]byte, len(vec)*4)
	for i, f := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}

func bytesToVector(s string) []float32 {
	b := []byte(s)
	if len(b)%4 != 0 {
		return nil
	}
	vec := make([]float32, len(b)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return vec
}
