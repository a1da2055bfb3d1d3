// Package chi exposes the RAG service over HTTP: chat turns, grounded
// queries, raw retrieval, document ingestion, health and metrics.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	chirouter "github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ragdex/internal/db"
	"github.com/kailas-cloud/ragdex/internal/domain"
	"github.com/kailas-cloud/ragdex/internal/metrics"
	healthuc "github.com/kailas-cloud/ragdex/internal/usecase/health"
	usageuc "github.com/kailas-cloud/ragdex/internal/usecase/usage"
)

// maxUploadBytes bounds one document upload.
const maxUploadBytes = 16 << 20

// Agent runs one conversational turn.
type Agent interface {
	RunTurn(ctx context.Context, sessionID, message string) (domain.AgentState, error)
}

// Answerer produces grounded answers.
type Answerer interface {
	Answer(ctx context.Context, question string, technique domain.Technique) (domain.Answer, error)
	AnswerForEval(ctx context.Context, question string) (domain.Answer, error)
}

// Retriever retrieves scored chunks.
type Retriever interface {
	RetrieveWithScores(ctx context.Context, query string, technique domain.Technique) (domain.RetrievalResult, error)
}

// Ingestor ingests uploaded documents.
type Ingestor interface {
	IngestContent(ctx context.Context, filename string, data []byte) (int, error)
}

// Resetter wipes the vector index.
type Resetter interface {
	Reset(ctx context.Context) error
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server is the HTTP API server.
type Server struct {
	agent         Agent
	answerer      Answerer
	retriever     Retriever
	ingestor      Ingestor
	resetter      Resetter
	usage         *usageuc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	agent Agent,
	answerer Answerer,
	retriever Retriever,
	ingestor Ingestor,
	resetter Resetter,
	usage *usageuc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		agent:     agent,
		answerer:  answerer,
		retriever: retriever,
		ingestor:  ingestor,
		resetter:  resetter,
		usage:     usage,
		health:    health,
		logger:    logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrLLMQuotaExceeded, http.StatusPaymentRequired, codeLLMQuotaExceeded),
		sentinelHandler(domain.ErrEmbeddingQuotaExceeded, http.StatusPaymentRequired, codeEmbeddingQuotaExceeded),
		sentinelHandler(domain.ErrLLMProviderError, http.StatusBadGateway, codeLLMProviderError),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, codeEmbeddingProviderError),
		sentinelHandler(domain.ErrWebSearchFailed, http.StatusBadGateway, codeWebSearchFailed),
		sentinelHandler(domain.ErrSessionNotFound, http.StatusNotFound, codeSessionNotFound),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, codeNotFound),
		sentinelHandler(domain.ErrUnsupportedFormat, http.StatusBadRequest, codeUnsupportedFormat),
		sentinelHandler(domain.ErrEmptyDocument, http.StatusBadRequest, codeEmptyDocument),
		dbErrorHandler,
	}
	return s
}

// Router builds the chi router with the standard middleware stack.
func (s *Server) Router(apiKeys []string) http.Handler {
	r := chirouter.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(jsonRecoverer(s.logger))
	r.Use(wideEventMiddleware(s.logger))
	r.Use(metrics.Middleware())
	r.Use(BearerAuthMiddleware(apiKeys))

	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/api/v1", func(r chirouter.Router) {
		r.Post("/chat", s.Chat)
		r.Post("/rag/query", s.RAGQuery)
		r.Post("/retrieve", s.Retrieve)
		r.Post("/documents", s.UploadDocument)
		r.Delete("/documents", s.ResetDocuments)
		r.Get("/usage", s.Usage)
	})

	return r
}

// Chat handles POST /api/v1/chat: one conversational turn.
func (s *Server) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "message is required")
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	state, err := s.agent.RunTurn(r.Context(), sessionID, req.Message)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, chatResponseFromState(sessionID, state))
}

// RAGQuery handles POST /api/v1/rag/query: a single grounded answer without
// the agent loop.
func (s *Server) RAGQuery(w http.ResponseWriter, r *http.Request) {
	var req ragQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "question is required")
		return
	}

	var answer domain.Answer
	var err error
	if req.EvalMode {
		answer, err = s.answerer.AnswerForEval(r.Context(), req.Question)
	} else {
		answer, err = s.answerer.Answer(r.Context(), req.Question, domain.ParseTechnique(req.Technique))
	}
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ragQueryResponseFromAnswer(answer))
}

// Retrieve handles POST /api/v1/retrieve: raw scored retrieval.
func (s *Server) Retrieve(w http.ResponseWriter, r *http.Request) {
	var req retrieveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "query is required")
		return
	}

	result, err := s.retriever.RetrieveWithScores(r.Context(), req.Query, domain.ParseTechnique(req.Technique))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, retrieveResponseFromResult(result))
}

// UploadDocument handles POST /api/v1/documents: multipart upload of one
// source document.
func (s *Server) UploadDocument(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid multipart form: "+err.Error())
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "file field is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Failed to read upload: "+err.Error())
		return
	}

	chunks, err := s.ingestor.IngestContent(r.Context(), header.Filename, data)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, uploadResponse{
		Filename: header.Filename,
		Chunks:   chunks,
	})
}

// ResetDocuments handles DELETE /api/v1/documents: drops the index and all
// stored chunks.
func (s *Server) ResetDocuments(w http.ResponseWriter, r *http.Request) {
	if err := s.resetter.Reset(r.Context()); err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Usage handles GET /api/v1/usage: embedding token consumption for the
// requested period ("day" by default, "month").
func (s *Server) Usage(w http.ResponseWriter, r *http.Request) {
	period := usageuc.ParsePeriod(r.URL.Query().Get("period"))
	writeJSON(w, http.StatusOK, s.usage.GetReport(r.Context(), period))
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponse{
		Status: string(report.Status),
		Checks: report.Checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code errorCode, message string) {
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without
// exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrLLMQuotaExceeded,
		domain.ErrEmbeddingQuotaExceeded,
		domain.ErrLLMProviderError,
		domain.ErrEmbeddingProviderError,
		domain.ErrWebSearchFailed,
		domain.ErrSessionNotFound,
		domain.ErrNotFound,
		domain.ErrUnsupportedFormat,
		domain.ErrEmptyDocument,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code errorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// dbErrorHandler maps store failures to 503: the service is up but its
// backing store is not.
func dbErrorHandler(w http.ResponseWriter, err error, _ string) bool {
	var dbErr *db.Error
	if !errors.As(err, &dbErr) {
		return false
	}
	writeError(w, http.StatusServiceUnavailable, codeStoreUnavailable, "vector store unavailable")
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
