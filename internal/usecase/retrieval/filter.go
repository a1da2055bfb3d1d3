package retrieval

import (
	"strings"

	"github.com/kailas-cloud/ragdex/internal/domain"
)

// filterQuality drops chunks whose trimmed text is shorter than minChars or
// has fewer than minWords words. A threshold of 0 disables that check.
// Short header-only chunks rank artificially high on generic text, which is
// what this guards against.
func filterQuality(chunks []domain.ScoredChunk, minChars, minWords int) []domain.ScoredChunk {
	if minChars <= 0 && minWords <= 0 {
		return chunks
	}

	kept := make([]domain.ScoredChunk, 0, len(chunks))
	for _, c := range chunks {
		trimmed := strings.TrimSpace(c.Chunk.Text)
		if minChars > 0 && len(trimmed) < minChars {
			continue
		}
		if minWords > 0 && len(strings.Fields(trimmed)) < minWords {
			continue
		}
		kept = append(kept, c)
	}
	return kept
}

// dedupe collapses chunks sharing the same (doc_id, span, chunk_index) key,
// keeping the first (highest ranked) occurrence. Distinct chunks from the
// same page survive; only exact re-indexing duplicates are removed.
func dedupe(chunks []domain.ScoredChunk) []domain.ScoredChunk {
	seen := make(map[string]struct{}, len(chunks))
	kept := make([]domain.ScoredChunk, 0, len(chunks))
	for _, c := range chunks {
		key := c.Chunk.Meta.Key()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		kept = append(kept, c)
	}
	return kept
}
