package agent

import (
	"context"

	"github.com/kailas-cloud/ragdex/internal/domain"
)

// Answerer is the grounded answerer surface the agent needs.
type Answerer interface {
	Answer(ctx context.Context, question string, technique domain.Technique) (domain.Answer, error)
}

// WebSearcher performs an external web search and returns raw text results.
type WebSearcher interface {
	Search(ctx context.Context, query string) (string, error)
}

// SessionStore checkpoints conversation state between turns.
type SessionStore interface {
	Get(ctx context.Context, sessionID string) (domain.AgentState, error)
	Put(ctx context.Context, sessionID string, state domain.AgentState) error
}
