package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ragdex/internal/domain"
	"github.com/kailas-cloud/ragdex/internal/metrics"
)

// ChatClient is a chat completion provider using the OpenAI-compatible API.
// Implements domain.ChatModel.
type ChatClient struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	timeout     time.Duration
	retries     int
	logger      *zap.Logger
}

// ChatConfig holds the chat provider settings.
type ChatConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
	Retries     int
	Logger      *zap.Logger
}

// NewChatClient creates an OpenAI-compatible chat completion client.
func NewChatClient(cfg *ChatConfig) *ChatClient {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &ChatClient{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		timeout:     timeout,
		retries:     cfg.Retries,
		logger:      cfg.Logger,
	}
}

// Model returns the configured model name.
func (c *ChatClient) Model() string { return c.model }

// Complete sends a system contract and user prompt and returns the reply
// text. Quota/payment failures map to domain.ErrLLMQuotaExceeded so callers
// can fall back to another provider; everything else wraps
// domain.ErrLLMProviderError.
func (c *ChatClient) Complete(ctx context.Context, system, user string) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if system != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: user,
	})

	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.temperature,
	}
	if c.maxTokens > 0 {
		req.MaxTokens = c.maxTokens
	}

	var resp openai.ChatCompletionResponse
	var err error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			c.logger.Warn("Retrying chat completion",
				zap.String("model", c.model), zap.Int("attempt", attempt), zap.Error(err))
		}

		start := time.Now()
		resp, err = c.doComplete(ctx, req)
		if err == nil {
			metrics.LLMRequestsTotal.WithLabelValues(c.model, "success").Inc()
			metrics.LLMRequestDuration.WithLabelValues(c.model).Observe(time.Since(start).Seconds())
			break
		}
		metrics.LLMRequestsTotal.WithLabelValues(c.model, "error").Inc()
		// Quota errors never recover within a retry budget.
		if ctx.Err() != nil || isQuotaError(err) {
			break
		}
	}
	if err != nil {
		return "", classifyChatError(err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty chat completion response: %w", domain.ErrLLMProviderError)
	}

	if resp.Usage.TotalTokens > 0 {
		metrics.LLMTokensTotal.WithLabelValues(c.model, "prompt").Add(float64(resp.Usage.PromptTokens))
		metrics.LLMTokensTotal.WithLabelValues(c.model, "completion").Add(float64(resp.Usage.CompletionTokens))
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (c *ChatClient) doComplete(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.client.CreateChatCompletion(callCtx, req)
}

// classifyChatError maps an API failure to the domain error taxonomy.
func classifyChatError(err error) error {
	if isQuotaError(err) {
		return fmt.Errorf("chat completion: %v: %w", err, domain.ErrLLMQuotaExceeded)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("chat API error %d: %s: %w",
			apiErr.HTTPStatusCode, apiErr.Message, domain.ErrLLMProviderError)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("chat API error %d: %s: %w",
			reqErr.HTTPStatusCode, string(reqErr.Body), domain.ErrLLMProviderError)
	}

	return fmt.Errorf("chat completion failed: %v: %w", err, domain.ErrLLMProviderError)
}

// isQuotaError reports whether the failure is a payment/quota rejection.
// Structured status codes are checked first; the substring match covers
// providers that only surface the condition in the message body.
func isQuotaError(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == 402 || apiErr.HTTPStatusCode == 429 {
			return true
		}
		if code, ok := apiErr.Code.(string); ok && code == "insufficient_quota" {
			return true
		}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && (reqErr.HTTPStatusCode == 402 || reqErr.HTTPStatusCode == 429) {
		return true
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "402") ||
		strings.Contains(msg, "payment required") ||
		strings.Contains(msg, "insufficient_quota") ||
		strings.Contains(msg, "exceeded your current quota")
}
