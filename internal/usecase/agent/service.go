// Package agent runs the conversational state machine: route the user
// message, answer it from the knowledge base, the web, or general chat, judge
// the grounded path, and finalize. One run per user turn, nodes strictly
// ordered, state checkpointed per session between turns.
package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragdex/internal/domain"
	"github.com/kailas-cloud/ragdex/internal/metrics"
)

// Service drives the agent state machine.
type Service struct {
	answerer Answerer
	chat     domain.ChatModel
	searcher WebSearcher
	sessions SessionStore
	logger   *zap.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates the agent service.
func New(
	answerer Answerer,
	chat domain.ChatModel,
	searcher WebSearcher,
	sessions SessionStore,
	logger *zap.Logger,
) *Service {
	return &Service{
		answerer: answerer,
		chat:     chat,
		searcher: searcher,
		sessions: sessions,
		logger:   logger,
		locks:    make(map[string]*sync.Mutex),
	}
}

// RunTurn processes one user message within a session: loads the checkpoint,
// appends the message, runs the state machine, and checkpoints the result.
// Turns for the same session id are serialized; independent sessions run
// concurrently.
func (s *Service) RunTurn(ctx context.Context, sessionID, message string) (domain.AgentState, error) {
	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	state, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, domain.ErrSessionNotFound) {
			return domain.AgentState{}, fmt.Errorf("load session: %w", err)
		}
		state = domain.AgentState{SessionID: sessionID}
	}

	state.ResetTurn()
	state.Messages = append(state.Messages, domain.Message{
		Role:    domain.RoleUser,
		Content: message,
	})

	if err := s.run(ctx, &state); err != nil {
		return domain.AgentState{}, err
	}

	if err := s.sessions.Put(ctx, sessionID, state); err != nil {
		return domain.AgentState{}, fmt.Errorf("save session: %w", err)
	}
	return state, nil
}

// run executes the state machine over one turn. Transitions:
// router branches on route; rag always proceeds to relevance; relevance
// branches to hallucination or the web-search fallback; everything
// converges on finalize.
func (s *Service) run(ctx context.Context, state *domain.AgentState) error {
	s.routerNode(ctx, state)
	metrics.AgentRouteTotal.WithLabelValues(string(state.Route)).Inc()

	switch state.Route {
	case domain.RouteRAG:
		if err := s.ragNode(ctx, state); err != nil {
			return err
		}
		s.relevanceNode(ctx, state)
		if state.IsRelevant {
			s.hallucinationNode(ctx, state)
		} else {
			s.webSearchNode(ctx, state)
		}
	case domain.RouteWebSearch:
		s.webSearchNode(ctx, state)
	default:
		s.generalNode(ctx, state)
	}

	s.finalizeNode(state)
	return nil
}

func (s *Service) sessionLock(sessionID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[sessionID] = lock
	}
	return lock
}
