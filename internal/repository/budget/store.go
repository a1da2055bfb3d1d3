// Package budget persists embedding token budget counters. Counters are
// plain integer keys bumped with INCRBY; TTLs keep expired windows from
// accumulating forever.
package budget

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kailas-cloud/ragdex/internal/db"
)

// store is the consumer interface for counter persistence (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	IncrBy(ctx context.Context, key string, val int64) error
	Expire(ctx context.Context, key string, ttl time.Duration) error
}

// Store implements embedding.BudgetStore over DB integer keys.
type Store struct {
	store    store
	dailyTTL time.Duration
	monthTTL time.Duration
}

// New creates a budget counter store. TTLs should comfortably outlive their
// window (e.g. 48h for daily, 62 days for monthly) so a restart mid-window
// still finds the counter.
func New(s store, dailyTTL, monthTTL time.Duration) *Store {
	return &Store{store: s, dailyTTL: dailyTTL, monthTTL: monthTTL}
}

// IncrBy adds val to the counter at key and refreshes its TTL.
func (s *Store) IncrBy(ctx context.Context, key string, val int64) error {
	if err := s.store.IncrBy(ctx, key, val); err != nil {
		return fmt.Errorf("budget incr %s: %w", key, err)
	}
	// Refreshing on every write keeps the TTL cheap to reason about; the
	// counter dies a fixed time after its last update.
	if err := s.store.Expire(ctx, key, s.ttlFor(key)); err != nil {
		return fmt.Errorf("budget expire %s: %w", key, err)
	}
	return nil
}

// Get reads the counter at key. A missing key is 0, not an error.
func (s *Store) Get(ctx context.Context, key string) (int64, error) {
	data, err := s.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("budget get %s: %w", key, err)
	}
	val, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("budget parse %s: %w", key, err)
	}
	return val, nil
}

// ttlFor picks the TTL by window segment in the key.
func (s *Store) ttlFor(key string) time.Duration {
	if strings.Contains(key, ":daily:") {
		return s.dailyTTL
	}
	return s.monthTTL
}
