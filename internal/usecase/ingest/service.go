// Package ingest loads source documents, cleans and chunks them, embeds the
// chunks, and writes them to the vector index.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragdex/internal/chunker"
	"github.com/kailas-cloud/ragdex/internal/domain"
	"github.com/kailas-cloud/ragdex/internal/metrics"
)

// Repository is the vector store surface ingestion needs.
type Repository interface {
	EnsureIndex(ctx context.Context) error
	Upsert(ctx context.Context, records []domain.VectorRecord) error
}

// Catalog maps filenames to chunking strategies.
type Catalog interface {
	StrategyFor(filename string) domain.Strategy
}

// FileResult reports the outcome of ingesting one file. A per-file error
// marks the file skipped without aborting the batch.
type FileResult struct {
	Path   string
	Chunks int
	Err    error
}

// Report summarizes one ingestion run.
type Report struct {
	Files       []FileResult
	TotalChunks int
}

// Skipped counts files that produced an error.
func (r Report) Skipped() int {
	n := 0
	for _, f := range r.Files {
		if f.Err != nil {
			n++
		}
	}
	return n
}

// Service runs the ingestion pipeline.
type Service struct {
	chunker  *chunker.Chunker
	embedder domain.BatchEmbedder
	repo     Repository
	catalog  Catalog
	logger   *zap.Logger
}

// New creates an ingestion service.
func New(
	ch *chunker.Chunker,
	embedder domain.BatchEmbedder,
	repo Repository,
	catalog Catalog,
	logger *zap.Logger,
) *Service {
	return &Service{
		chunker:  ch,
		embedder: embedder,
		repo:     repo,
		catalog:  catalog,
		logger:   logger,
	}
}

// IngestDir ingests every supported file under dir, in sorted path order.
func (s *Service) IngestDir(ctx context.Context, dir string) (Report, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && SupportedExtensions[strings.ToLower(filepath.Ext(path))] {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return Report{}, fmt.Errorf("walk %s: %w", dir, err)
	}
	sort.Strings(paths)
	return s.IngestFiles(ctx, paths)
}

// IngestFiles ingests the given files. Malformed or empty files are reported
// per file and skipped; embedding and store failures abort the batch.
func (s *Service) IngestFiles(ctx context.Context, paths []string) (Report, error) {
	if err := s.repo.EnsureIndex(ctx); err != nil {
		return Report{}, fmt.Errorf("ensure index: %w", err)
	}

	var report Report
	for _, path := range paths {
		blocks, err := LoadFile(path)
		if err != nil {
			s.logger.Warn("Skipping file", zap.String("path", path), zap.Error(err))
			report.Files = append(report.Files, FileResult{Path: path, Err: err})
			continue
		}

		n, err := s.ingestBlocks(ctx, filepath.Base(path), blocks)
		if err != nil {
			if errors.Is(err, domain.ErrEmptyDocument) {
				s.logger.Warn("Skipping empty file", zap.String("path", path))
				report.Files = append(report.Files, FileResult{Path: path, Err: err})
				continue
			}
			return report, fmt.Errorf("ingest %s: %w", path, err)
		}

		report.Files = append(report.Files, FileResult{Path: path, Chunks: n})
		report.TotalChunks += n
	}

	s.logger.Info("Ingestion complete",
		zap.Int("files", len(report.Files)),
		zap.Int("skipped", report.Skipped()),
		zap.Int("chunks", report.TotalChunks))
	return report, nil
}

// IngestContent ingests one document given as raw bytes, as uploaded over
// HTTP. The filename drives format detection and strategy lookup.
func (s *Service) IngestContent(ctx context.Context, filename string, data []byte) (int, error) {
	if err := s.repo.EnsureIndex(ctx); err != nil {
		return 0, fmt.Errorf("ensure index: %w", err)
	}

	blocks, err := LoadBytes(filename, data)
	if err != nil {
		return 0, err
	}
	return s.ingestBlocks(ctx, filename, blocks)
}

func (s *Service) ingestBlocks(ctx context.Context, filename string, blocks []chunker.Block) (int, error) {
	if len(blocks) == 0 {
		return 0, domain.ErrEmptyDocument
	}

	strategy := s.catalog.StrategyFor(filename)
	chunks := s.chunker.Chunk(blocks, strategy)
	if len(chunks) == 0 {
		return 0, domain.ErrEmptyDocument
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	batch, err := s.embedder.BatchEmbed(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed chunks: %w", err)
	}
	if len(batch.Embeddings) != len(chunks) {
		return 0, fmt.Errorf("embedding count %d, chunk count %d", len(batch.Embeddings), len(chunks))
	}

	records := make([]domain.VectorRecord, len(chunks))
	for i, c := range chunks {
		records[i] = domain.VectorRecord{Chunk: c, Vector: batch.Embeddings[i]}
	}
	if err := s.repo.Upsert(ctx, records); err != nil {
		return 0, fmt.Errorf("upsert chunks: %w", err)
	}

	metrics.IngestedChunksTotal.Add(float64(len(records)))
	s.logger.Info("Ingested document",
		zap.String("filename", filename),
		zap.String("strategy", string(strategy)),
		zap.Int("chunks", len(records)))
	return len(records), nil
}
