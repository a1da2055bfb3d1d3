package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragdex/internal/chunker"
	"github.com/kailas-cloud/ragdex/internal/config"
	dbRedis "github.com/kailas-cloud/ragdex/internal/db/redis"
	"github.com/kailas-cloud/ragdex/internal/domain"
	logpkg "github.com/kailas-cloud/ragdex/internal/logger"
	"github.com/kailas-cloud/ragdex/internal/metrics"
	budgetrepo "github.com/kailas-cloud/ragdex/internal/repository/budget"
	"github.com/kailas-cloud/ragdex/internal/repository/catalog"
	"github.com/kailas-cloud/ragdex/internal/repository/embcache"
	sessionrepo "github.com/kailas-cloud/ragdex/internal/repository/session"
	vectorrepo "github.com/kailas-cloud/ragdex/internal/repository/vector"
	chiTransport "github.com/kailas-cloud/ragdex/internal/transport/chi"
	openaiTransport "github.com/kailas-cloud/ragdex/internal/transport/openai"
	"github.com/kailas-cloud/ragdex/internal/transport/websearch"
	agentuc "github.com/kailas-cloud/ragdex/internal/usecase/agent"
	embeddinguc "github.com/kailas-cloud/ragdex/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/ragdex/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/ragdex/internal/usecase/ingest"
	raguc "github.com/kailas-cloud/ragdex/internal/usecase/rag"
	retrievaluc "github.com/kailas-cloud/ragdex/internal/usecase/retrieval"
	usageuc "github.com/kailas-cloud/ragdex/internal/usecase/usage"
	"github.com/kailas-cloud/ragdex/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting ragdex API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	// Wait for database to be ready
	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register pipeline metrics explicitly (no init())
	metrics.Register()

	// Single BudgetTracker shared across both embedder chains and usage service.
	var budget *embeddinguc.BudgetTracker
	budgetCfg := cfg.Embedding.Budget
	if budgetCfg.DailyTokenLimit > 0 || budgetCfg.MonthlyTokenLimit > 0 {
		budget = embeddinguc.NewBudgetTracker(
			cfg.Embedding.Provider, cfg.Storage.KeyPrefix,
			budgetCfg.DailyTokenLimit, budgetCfg.MonthlyTokenLimit,
			embeddinguc.ParseBudgetAction(budgetCfg.Action), logger,
		)
		// Connect persistence store, loading current counters from DB.
		budgetStore := budgetrepo.New(store, 48*time.Hour, 62*24*time.Hour)
		budget.WithStore(ctx, budgetStore)
	}

	// Pass nil interface (not typed nil pointer!) if budget is not configured.
	// Go gotcha: (*BudgetTracker)(nil) wrapped in BudgetChecker != nil.
	var budgetChecker embeddinguc.BudgetChecker
	if budget != nil {
		budgetChecker = budget
	}

	// Documents and queries may carry different instruction prefixes; only the
	// query side is cached (ingestion embeds each chunk once anyway).
	docEmbedder := buildDocEmbedder(cfg, budgetChecker, logger)
	queryEmbedder := buildQueryEmbedder(cfg, store, budgetChecker, logger)
	logger.Info("Embedders created",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)

	// Repositories
	vectorRepo := vectorrepo.New(store, cfg.Storage.KeyPrefix, cfg.Embedding.Dimensions).
		WithHNSW(vectorrepo.HNSWConfig{
			M:           cfg.Index.HNSWM,
			EFConstruct: cfg.Index.HNSWEFConstruct,
		})
	sessionStore := sessionrepo.New(store, cfg.Storage.KeyPrefix, time.Duration(cfg.Session.TTLSec)*time.Second)

	cat, err := catalog.Load(cfg.Chunking.CatalogPath)
	if err != nil {
		logger.Fatal("Failed to load chunking catalog", zap.Error(err))
	}

	// Chat model fallback chain
	chat := buildChatChain(cfg, logger)

	// Use case services
	retrievalSvc := retrievaluc.New(vectorRepo, queryEmbedder, retrievaluc.Config{
		TopK:          cfg.Retrieval.TopK,
		MMRFetchK:     cfg.Retrieval.MMRFetchK,
		MMRK:          cfg.Retrieval.MMRK,
		MMRLambda:     cfg.Retrieval.MMRLambda,
		MinChunkChars: cfg.Retrieval.MinChunkChars,
		MinChunkWords: cfg.Retrieval.MinChunkWords,
		EvalTopK:      cfg.Retrieval.EvalTopK,
	}, logger)
	ragSvc := raguc.New(retrievalSvc, chat, logger)

	searcher := websearch.New(&websearch.Config{
		Endpoint:   cfg.WebSearch.Endpoint,
		MaxResults: cfg.WebSearch.MaxResults,
		Timeout:    time.Duration(cfg.WebSearch.TimeoutSec) * time.Second,
		Logger:     logger,
	})
	agentSvc := agentuc.New(ragSvc, chat, searcher, sessionStore, logger)

	ingestSvc := ingestuc.New(
		chunker.New(chunker.Config{
			ChunkSize:           cfg.Chunking.ChunkSize,
			ChunkOverlap:        cfg.Chunking.ChunkOverlap,
			MaxCharsPerRowChunk: cfg.Chunking.MaxCharsPerRowChunk,
		}),
		docEmbedder,
		vectorRepo,
		cat,
		logger,
	)

	// Same typed-nil care as with BudgetChecker above.
	var budgetReader usageuc.BudgetReader
	if budget != nil {
		budgetReader = budget
	}
	usageSvc := usageuc.New(budgetReader)

	healthSvc := healthuc.New(store, newEmbeddingHealthChecker(queryEmbedder))

	server := chiTransport.NewServer(agentSvc, ragSvc, retrievalSvc, ingestSvc, vectorRepo, usageSvc, healthSvc, logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.Router(cfg.Auth.APIKeys),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// embeddingHealthChecker wraps domain.Embedder to implement health.EmbeddingChecker.
type embeddingHealthChecker struct {
	embedder domain.Embedder
}

func newEmbeddingHealthChecker(embedder domain.Embedder) *embeddingHealthChecker {
	return &embeddingHealthChecker{embedder: embedder}
}

func (h *embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
}

func newBaseEmbedder(cfg config.Config, logger *zap.Logger) *openaiTransport.Embedder {
	return openaiTransport.NewEmbedder(&openaiTransport.EmbedderConfig{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   cfg.Embedding.Provider,
		Timeout:    time.Duration(cfg.Embedding.TimeoutSec) * time.Second,
		Retries:    cfg.Embedding.Retries,
		Logger:     logger,
	})
}

// buildDocEmbedder assembles the ingestion chain:
// OpenAI -> Instrumented -> Instruction.
// Batch support is preserved through both decorators.
func buildDocEmbedder(cfg config.Config, budget embeddinguc.BudgetChecker, logger *zap.Logger) domain.BatchEmbedder {
	instrumented := embeddinguc.NewInstrumentedEmbedder(
		newBaseEmbedder(cfg, logger), cfg.Embedding.Provider, cfg.Embedding.Model, budget, logger)
	if cfg.Embedding.DocumentInstruction != "" {
		return domain.NewInstructionEmbedder(instrumented, cfg.Embedding.DocumentInstruction)
	}
	return instrumented
}

// buildQueryEmbedder assembles the query chain:
// OpenAI -> Instrumented -> Cached -> Instruction.
// The instruction decorator is outermost so the cache key covers the prefixed
// text; the budget layer sits below the cache so cache hits cost nothing.
func buildQueryEmbedder(cfg config.Config, store *dbRedis.Store, budget embeddinguc.BudgetChecker, logger *zap.Logger) domain.Embedder {
	var embedder domain.Embedder = embeddinguc.NewInstrumentedEmbedder(
		newBaseEmbedder(cfg, logger), cfg.Embedding.Provider, cfg.Embedding.Model, budget, logger)
	if cfg.EmbeddingCacheEnabled() {
		embedder = embcache.New(embedder, store, cfg.Storage.KeyPrefix, metrics.EmbeddingCacheTotal, logger)
	}
	if cfg.Embedding.QueryInstruction != "" {
		embedder = domain.NewInstructionEmbedder(embedder, cfg.Embedding.QueryInstruction)
	}
	return embedder
}

// buildChatChain assembles the quota-aware chat model fallback chain.
func buildChatChain(cfg config.Config, logger *zap.Logger) domain.ChatModel {
	models := make([]openaiTransport.NamedChatModel, 0, len(cfg.LLM.Models))
	for _, m := range cfg.LLM.Models {
		models = append(models, openaiTransport.NewChatClient(&openaiTransport.ChatConfig{
			APIKey:      m.APIKey,
			BaseURL:     m.BaseURL,
			Model:       m.Model,
			Temperature: cfg.LLM.Temperature,
			MaxTokens:   cfg.LLM.MaxTokens,
			Timeout:     time.Duration(cfg.LLM.TimeoutSec) * time.Second,
			Retries:     cfg.LLM.Retries,
			Logger:      logger,
		}))
	}
	return openaiTransport.NewFallbackChat(models, logger)
}
