package chi

import (
	"github.com/kailas-cloud/ragdex/internal/domain"
	healthuc "github.com/kailas-cloud/ragdex/internal/usecase/health"
)

// errorCode identifies an API error class.
type errorCode string

const (
	codeBadRequest             errorCode = "bad_request"
	codeUnauthorized           errorCode = "unauthorized"
	codeValidationFailed       errorCode = "validation_failed"
	codeNotFound               errorCode = "not_found"
	codeSessionNotFound        errorCode = "session_not_found"
	codeUnsupportedFormat      errorCode = "unsupported_format"
	codeEmptyDocument          errorCode = "empty_document"
	codeLLMQuotaExceeded       errorCode = "llm_quota_exceeded"
	codeEmbeddingQuotaExceeded errorCode = "embedding_quota_exceeded"
	codeLLMProviderError       errorCode = "llm_provider_error"
	codeEmbeddingProviderError errorCode = "embedding_provider_error"
	codeWebSearchFailed        errorCode = "web_search_failed"
	codeStoreUnavailable       errorCode = "store_unavailable"
	codeInternalError          errorCode = "internal_error"
)

type errorResponse struct {
	Code    errorCode `json:"code"`
	Message string    `json:"message"`
}

type chatRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message"`
}

type chatResponse struct {
	SessionID string            `json:"session_id"`
	Answer    string            `json:"answer"`
	Route     string            `json:"route"`
	Citations []domain.Citation `json:"citations,omitempty"`
	Messages  int               `json:"messages"`
}

func chatResponseFromState(sessionID string, state domain.AgentState) chatResponse {
	return chatResponse{
		SessionID: sessionID,
		Answer:    state.FinalAnswer,
		Route:     string(state.Route),
		Citations: state.Citations,
		Messages:  len(state.Messages),
	}
}

type ragQueryRequest struct {
	Question  string `json:"question"`
	Technique string `json:"technique,omitempty"`
	EvalMode  bool   `json:"eval_mode,omitempty"`
}

type ragQueryResponse struct {
	Answer         string            `json:"answer"`
	Citations      []domain.Citation `json:"citations"`
	BelowThreshold bool              `json:"below_threshold"`
}

func ragQueryResponseFromAnswer(a domain.Answer) ragQueryResponse {
	citations := a.Citations
	if citations == nil {
		citations = []domain.Citation{}
	}
	return ragQueryResponse{
		Answer:         a.Text,
		Citations:      citations,
		BelowThreshold: a.BelowThreshold,
	}
}

type retrieveRequest struct {
	Query     string `json:"query"`
	Technique string `json:"technique,omitempty"`
}

type retrievedChunk struct {
	Text       string  `json:"text"`
	DocID      string  `json:"doc_id"`
	PageOrPara string  `json:"page_or_para"`
	ChunkIndex int     `json:"chunk_index"`
	Score      float64 `json:"score"`
}

type retrieveResponse struct {
	Chunks         []retrievedChunk `json:"chunks"`
	BelowThreshold bool             `json:"below_threshold"`
}

func retrieveResponseFromResult(r domain.RetrievalResult) retrieveResponse {
	chunks := make([]retrievedChunk, len(r.Chunks))
	for i, c := range r.Chunks {
		chunks[i] = retrievedChunk{
			Text:       c.Text,
			DocID:      c.Meta.DocID,
			PageOrPara: c.Meta.Span(),
			ChunkIndex: c.Meta.ChunkIndex,
			Score:      r.Scores[i],
		}
	}
	return retrieveResponse{
		Chunks:         chunks,
		BelowThreshold: r.BelowThreshold,
	}
}

type uploadResponse struct {
	Filename string `json:"filename"`
	Chunks   int    `json:"chunks"`
}

type healthResponse struct {
	Status string                          `json:"status"`
	Checks map[string]healthuc.CheckResult `json:"checks"`
}
