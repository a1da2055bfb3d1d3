package budget

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/kailas-cloud/ragdex/internal/db"
)

type mockKV struct {
	counters map[string]int64
	ttls     map[string]time.Duration
}

func newMockKV() *mockKV {
	return &mockKV{counters: map[string]int64{}, ttls: map[string]time.Duration{}}
}

func (m *mockKV) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := m.counters[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return []byte(strconv.FormatInt(v, 10)), nil
}

func (m *mockKV) IncrBy(_ context.Context, key string, val int64) error {
	m.counters[key] += val
	return nil
}

func (m *mockKV) Expire(_ context.Context, key string, ttl time.Duration) error {
	m.ttls[key] = ttl
	return nil
}

func TestIncrByAccumulatesAndSetsTTL(t *testing.T) {
	kv := newMockKV()
	s := New(kv, 48*time.Hour, 62*24*time.Hour)
	ctx := context.Background()

	dailyKey := "ragdex:budget:openai:daily:2026-08-28"
	if err := s.IncrBy(ctx, dailyKey, 100); err != nil {
		t.Fatal(err)
	}
	if err := s.IncrBy(ctx, dailyKey, 50); err != nil {
		t.Fatal(err)
	}

	got, err := s.Get(ctx, dailyKey)
	if err != nil {
		t.Fatal(err)
	}
	if got != 150 {
		t.Errorf("counter = %d, want 150", got)
	}
	if kv.ttls[dailyKey] != 48*time.Hour {
		t.Errorf("daily ttl = %v", kv.ttls[dailyKey])
	}
}

func TestMonthlyKeyGetsMonthlyTTL(t *testing.T) {
	kv := newMockKV()
	s := New(kv, 48*time.Hour, 62*24*time.Hour)

	monthlyKey := "ragdex:budget:openai:monthly:2026-08"
	if err := s.IncrBy(context.Background(), monthlyKey, 1); err != nil {
		t.Fatal(err)
	}
	if kv.ttls[monthlyKey] != 62*24*time.Hour {
		t.Errorf("monthly ttl = %v", kv.ttls[monthlyKey])
	}
}

func TestGetMissingKeyIsZero(t *testing.T) {
	s := New(newMockKV(), time.Hour, time.Hour)

	got, err := s.Get(context.Background(), "ragdex:budget:openai:daily:2026-01-01")
	if err != nil {
		t.Fatal(err)
	}
	if got != 0 {
		t.Errorf("missing key = %d, want 0", got)
	}
}
