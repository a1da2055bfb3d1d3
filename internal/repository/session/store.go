// Package session persists agent conversation state between turns. One JSON
// blob per session id; the external store is the single source of truth for
// conversation history.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/ragdex/internal/db"
	"github.com/kailas-cloud/ragdex/internal/domain"
)

// store is the consumer interface for session persistence (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Store implements the agent session checkpoint on top of DB key-values.
type Store struct {
	store  store
	prefix string
	ttl    time.Duration
}

// New creates a session store. A zero ttl disables expiry; eviction policy
// belongs to the operator, not the core.
func New(s store, prefix string, ttl time.Duration) *Store {
	return &Store{store: s, prefix: prefix, ttl: ttl}
}

func (s *Store) key(sessionID string) string {
	return s.prefix + "session:" + sessionID
}

// Get loads the checkpointed state for a session id.
// Returns domain.ErrSessionNotFound for an unknown session.
func (s *Store) Get(ctx context.Context, sessionID string) (domain.AgentState, error) {
	data, err := s.store.Get(ctx, s.key(sessionID))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domain.AgentState{}, domain.ErrSessionNotFound
		}
		return domain.AgentState{}, fmt.Errorf("session get %s: %w", sessionID, err)
	}

	var state domain.AgentState
	if err := json.Unmarshal(data, &state); err != nil {
		return domain.AgentState{}, fmt.Errorf("session decode %s: %w", sessionID, err)
	}
	return state, nil
}

// Put checkpoints the state for a session id, overwriting the previous turn.
func (s *Store) Put(ctx context.Context, sessionID string, state domain.AgentState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("session encode %s: %w", sessionID, err)
	}

	if s.ttl > 0 {
		err = s.store.SetWithTTL(ctx, s.key(sessionID), data, s.ttl)
	} else {
		err = s.store.Set(ctx, s.key(sessionID), data)
	}
	if err != nil {
		return fmt.Errorf("session put %s: %w", sessionID, err)
	}
	return nil
}
