package domain

import "context"

// ChatModel is the shared text generation contract between layers.
// Complete sends a system contract and a user prompt and returns the model
// reply as plain text.
type ChatModel interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Answer is the Grounded Answerer output: the generated (or refused) text,
// citations derived from retrieval metadata, and the retrieval context the
// answer was grounded on.
type Answer struct {
	Text           string
	Citations      []Citation
	BelowThreshold bool

	// Context is the formatted context block passed to the model. Empty on
	// refusal. Kept for the downstream relevance/hallucination judges.
	Context string
	// Scores are the retrieval distances of the cited chunks.
	Scores []float64
}

// NotEnoughContext is the fixed refusal string returned when no qualifying
// evidence exists for a question. It is a designed outcome, never an error.
const NotEnoughContext = "Not enough context."
