package domain

import "errors"

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrSessionNotFound signals a missing conversation session.
	ErrSessionNotFound = errors.New("session not found")
	// ErrUnsupportedFormat signals a source document in a format the loaders
	// cannot parse.
	ErrUnsupportedFormat = errors.New("unsupported document format")
	// ErrEmptyDocument signals a source document with no extractable text.
	ErrEmptyDocument = errors.New("document has no content")

	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrEmbeddingQuotaExceeded signals that the configured embedding token
	// budget is exhausted and the budget action is set to reject.
	ErrEmbeddingQuotaExceeded = errors.New("embedding token budget exceeded")
	// ErrLLMProviderError signals a chat model failure.
	ErrLLMProviderError = errors.New("llm provider error")
	// ErrLLMQuotaExceeded signals a payment/quota failure from the chat model.
	// Distinguished from ErrLLMProviderError so the fallback chain knows when
	// to advance to the next model.
	ErrLLMQuotaExceeded = errors.New("llm quota exceeded")
	// ErrWebSearchFailed signals a web search backend failure.
	ErrWebSearchFailed = errors.New("web search failed")
)
