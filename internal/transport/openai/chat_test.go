package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragdex/internal/domain"
)

func chatServer(t *testing.T, reply string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-test",
			"object":  "chat.completion",
			"model":   "test-model",
			"choices": []map[string]any{{"index": 0, "message": map[string]any{"role": "assistant", "content": reply}}},
			"usage":   map[string]any{"prompt_tokens": 12, "completion_tokens": 8, "total_tokens": 20},
		})
	}))
}

func failingChatServer(status int, message string, calls *int) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls != nil {
			*calls++
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": message, "type": "api_error"},
		})
	}))
}

func testChat(url string, retries int) *ChatClient {
	return NewChatClient(&ChatConfig{
		APIKey:  "test-key",
		BaseURL: url,
		Model:   "test-model",
		Retries: retries,
		Logger:  zap.NewNop(),
	})
}

func TestChatComplete(t *testing.T) {
	server := chatServer(t, "  grounded reply  ")
	defer server.Close()

	got, err := testChat(server.URL, 0).Complete(context.Background(), "system contract", "user question")
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if got != "grounded reply" {
		t.Errorf("reply = %q, want trimmed text", got)
	}
}

func TestChatQuotaErrorClassified(t *testing.T) {
	calls := 0
	server := failingChatServer(http.StatusPaymentRequired, "payment required", &calls)
	defer server.Close()

	_, err := testChat(server.URL, 3).Complete(context.Background(), "s", "u")
	if !errors.Is(err, domain.ErrLLMQuotaExceeded) {
		t.Fatalf("err = %v, want quota error", err)
	}
	if calls != 1 {
		t.Errorf("server called %d times, quota errors must not be retried", calls)
	}
}

func TestChatServerErrorClassified(t *testing.T) {
	server := failingChatServer(http.StatusInternalServerError, "upstream exploded", nil)
	defer server.Close()

	_, err := testChat(server.URL, 0).Complete(context.Background(), "s", "u")
	if !errors.Is(err, domain.ErrLLMProviderError) {
		t.Errorf("err = %v, want provider error", err)
	}
	if errors.Is(err, domain.ErrLLMQuotaExceeded) {
		t.Error("500 must not classify as quota")
	}
}

type stubChat struct {
	name  string
	reply string
	err   error
	calls int
}

func (s *stubChat) Complete(_ context.Context, _, _ string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

func (s *stubChat) Model() string { return s.name }

func TestFallbackAdvancesOnQuota(t *testing.T) {
	primary := &stubChat{name: "primary", err: domain.ErrLLMQuotaExceeded}
	secondary := &stubChat{name: "secondary", reply: "from secondary"}
	chain := NewFallbackChat([]NamedChatModel{primary, secondary}, zap.NewNop())
	ctx := context.Background()

	got, err := chain.Complete(ctx, "s", "u")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "from secondary" {
		t.Errorf("reply = %q", got)
	}

	// Sticky advance: the exhausted model is not tried again.
	if _, err := chain.Complete(ctx, "s", "u"); err != nil {
		t.Fatal(err)
	}
	if primary.calls != 1 {
		t.Errorf("primary called %d times, want 1", primary.calls)
	}
	if secondary.calls != 2 {
		t.Errorf("secondary called %d times, want 2", secondary.calls)
	}
}

func TestFallbackStopsOnNonQuotaError(t *testing.T) {
	primary := &stubChat{name: "primary", err: domain.ErrLLMProviderError}
	secondary := &stubChat{name: "secondary", reply: "unused"}
	chain := NewFallbackChat([]NamedChatModel{primary, secondary}, zap.NewNop())

	_, err := chain.Complete(context.Background(), "s", "u")
	if !errors.Is(err, domain.ErrLLMProviderError) {
		t.Fatalf("err = %v", err)
	}
	if secondary.calls != 0 {
		t.Error("non-quota failure must not advance the chain")
	}
}

func TestFallbackAllExhausted(t *testing.T) {
	chain := NewFallbackChat([]NamedChatModel{
		&stubChat{name: "a", err: domain.ErrLLMQuotaExceeded},
		&stubChat{name: "b", err: domain.ErrLLMQuotaExceeded},
	}, zap.NewNop())

	_, err := chain.Complete(context.Background(), "s", "u")
	if !errors.Is(err, domain.ErrLLMQuotaExceeded) {
		t.Fatalf("err = %v, want quota error", err)
	}

	_, err = chain.Complete(context.Background(), "s", "u")
	if !errors.Is(err, domain.ErrLLMQuotaExceeded) {
		t.Errorf("exhausted chain must keep returning quota error, got %v", err)
	}
}
