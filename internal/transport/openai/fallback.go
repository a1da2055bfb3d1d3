package openai

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragdex/internal/domain"
)

// NamedChatModel is a chat model with a display name for logging.
type NamedChatModel interface {
	domain.ChatModel
	Model() string
}

// FallbackChat chains chat models and advances to the next one when the
// current model rejects with a quota error. The advance is sticky: once a
// model has run out of quota, later calls start from its successor. Any
// other failure is returned as-is without trying the next model.
type FallbackChat struct {
	models []NamedChatModel
	logger *zap.Logger

	mu      sync.Mutex
	current int
}

// NewFallbackChat creates a quota-aware chat model chain.
func NewFallbackChat(models []NamedChatModel, logger *zap.Logger) *FallbackChat {
	return &FallbackChat{models: models, logger: logger}
}

// Complete implements domain.ChatModel over the chain.
func (f *FallbackChat) Complete(ctx context.Context, system, user string) (string, error) {
	if len(f.models) == 0 {
		return "", fmt.Errorf("no chat models configured: %w", domain.ErrLLMProviderError)
	}

	start := f.currentIndex()
	if start >= len(f.models) {
		return "", fmt.Errorf("all chat models exhausted: %w", domain.ErrLLMQuotaExceeded)
	}

	var err error
	for i := start; i < len(f.models); i++ {
		var text string
		text, err = f.models[i].Complete(ctx, system, user)
		if err == nil {
			return text, nil
		}
		if !errors.Is(err, domain.ErrLLMQuotaExceeded) {
			return "", err
		}

		f.logger.Warn("Chat model out of quota",
			zap.String("model", f.models[i].Model()),
			zap.Int("remaining", len(f.models)-i-1))
		f.advance(i + 1)
	}

	return "", fmt.Errorf("all chat models exhausted: %w", err)
}

func (f *FallbackChat) currentIndex() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

func (f *FallbackChat) advance(next int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if next > f.current {
		f.current = next
	}
}
