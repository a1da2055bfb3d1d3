package domain

import "strings"

// Strategy is the chunking strategy applied to a source document.
type Strategy string

// Chunking strategy constants.
const (
	// StrategyOverlap is a fixed-size sliding window with character overlap.
	StrategyOverlap Strategy = "overlap"
	// StrategyRowTable groups non-empty lines, for tabular or list content.
	StrategyRowTable Strategy = "row_table"
)

// IsValid checks if the strategy is one of the supported values.
func (s Strategy) IsValid() bool {
	return s == StrategyOverlap || s == StrategyRowTable
}

// ParseStrategy maps a raw catalog value onto a strategy, defaulting to
// overlap for anything unrecognized.
func ParseStrategy(raw string) Strategy {
	s := strings.ToLower(strings.TrimSpace(raw))
	if strings.Contains(s, "row") || strings.Contains(s, "table") {
		return StrategyRowTable
	}
	return StrategyOverlap
}

// Technique selects the retrieval algorithm.
type Technique string

// Retrieval technique constants.
const (
	// TechniqueTopK returns the k nearest chunks by vector distance.
	TechniqueTopK Technique = "top_k"
	// TechniqueMMR reranks candidates by maximal marginal relevance for
	// diversity among results.
	TechniqueMMR Technique = "mmr"
)

// IsValid checks if the technique is one of the supported values.
func (t Technique) IsValid() bool {
	return t == TechniqueTopK || t == TechniqueMMR
}

// ParseTechnique maps a raw request value onto a technique, defaulting to
// top_k for anything unrecognized.
func ParseTechnique(raw string) Technique {
	if strings.EqualFold(strings.TrimSpace(raw), string(TechniqueMMR)) {
		return TechniqueMMR
	}
	return TechniqueTopK
}
