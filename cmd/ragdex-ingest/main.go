// Command ragdex-ingest loads a document directory into the vector index.
// It shares the service configuration and builds the same ingestion pipeline
// as the API server, without starting it.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragdex/internal/chunker"
	"github.com/kailas-cloud/ragdex/internal/config"
	dbRedis "github.com/kailas-cloud/ragdex/internal/db/redis"
	"github.com/kailas-cloud/ragdex/internal/domain"
	logpkg "github.com/kailas-cloud/ragdex/internal/logger"
	"github.com/kailas-cloud/ragdex/internal/repository/catalog"
	vectorrepo "github.com/kailas-cloud/ragdex/internal/repository/vector"
	openaiTransport "github.com/kailas-cloud/ragdex/internal/transport/openai"
	ingestuc "github.com/kailas-cloud/ragdex/internal/usecase/ingest"
)

func main() {
	var (
		dir   = flag.String("dir", "", "documents directory (default: ingestion.docs_dir from config)")
		reset = flag.Bool("reset", false, "drop the existing index before ingesting")
	)
	flag.Parse()

	env := config.GetEnv()
	cfg, err := config.Load(env)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to create logger:", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	docsDir := *dir
	if docsDir == "" {
		docsDir = cfg.Ingestion.DocsDir
	}
	if docsDir == "" {
		logger.Fatal("No documents directory: pass -dir or set ingestion.docs_dir")
	}

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}

	repo := vectorrepo.New(store, cfg.Storage.KeyPrefix, cfg.Embedding.Dimensions).
		WithHNSW(vectorrepo.HNSWConfig{
			M:           cfg.Index.HNSWM,
			EFConstruct: cfg.Index.HNSWEFConstruct,
		})

	if *reset {
		if err := repo.Reset(ctx); err != nil {
			logger.Fatal("Failed to reset index", zap.Error(err))
		}
		logger.Info("Index reset")
	}

	cat, err := catalog.Load(cfg.Chunking.CatalogPath)
	if err != nil {
		logger.Fatal("Failed to load chunking catalog", zap.Error(err))
	}

	base := openaiTransport.NewEmbedder(&openaiTransport.EmbedderConfig{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   cfg.Embedding.Provider,
		Timeout:    time.Duration(cfg.Embedding.TimeoutSec) * time.Second,
		Retries:    cfg.Embedding.Retries,
		Logger:     logger,
	})
	var embedder domain.BatchEmbedder = base
	if cfg.Embedding.DocumentInstruction != "" {
		embedder = domain.NewInstructionEmbedder(base, cfg.Embedding.DocumentInstruction)
	}

	svc := ingestuc.New(
		chunker.New(chunker.Config{
			ChunkSize:           cfg.Chunking.ChunkSize,
			ChunkOverlap:        cfg.Chunking.ChunkOverlap,
			MaxCharsPerRowChunk: cfg.Chunking.MaxCharsPerRowChunk,
		}),
		embedder,
		repo,
		cat,
		logger,
	)

	report, err := svc.IngestDir(ctx, docsDir)
	if err != nil {
		logger.Fatal("Ingestion failed", zap.Error(err))
	}

	for _, f := range report.Files {
		if f.Err != nil {
			fmt.Printf("SKIP %s: %v\n", f.Path, f.Err)
			continue
		}
		fmt.Printf("OK   %s: %d chunks\n", f.Path, f.Chunks)
	}
	fmt.Printf("Ingested %d chunks from %d files (%d skipped)\n",
		report.TotalChunks, len(report.Files)-report.Skipped(), report.Skipped())
}
