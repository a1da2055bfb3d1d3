// Package retrieval implements vector retrieval over the chunk index with
// quality filtering, deduplication and a below-threshold gate.
package retrieval

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragdex/internal/domain"
	"github.com/kailas-cloud/ragdex/internal/metrics"
)

// Defaults for retrieval configuration.
const (
	DefaultTopK      = 5
	DefaultMMRFetchK = 20
	DefaultMMRK      = 6
	DefaultMMRLambda = 0.7
	DefaultEvalTopK  = 8
)

// Config controls retrieval behavior. MinChunkChars and MinChunkWords are
// disabled at 0.
type Config struct {
	TopK          int
	MMRFetchK     int
	MMRK          int
	MMRLambda     float64
	MinChunkChars int
	MinChunkWords int
	EvalTopK      int
}

// ApplyDefaults fills zero values with defaults.
func (c *Config) ApplyDefaults() {
	if c.TopK <= 0 {
		c.TopK = DefaultTopK
	}
	if c.MMRFetchK <= 0 {
		c.MMRFetchK = DefaultMMRFetchK
	}
	if c.MMRK <= 0 {
		c.MMRK = DefaultMMRK
	}
	if c.MMRLambda <= 0 {
		c.MMRLambda = DefaultMMRLambda
	}
	if c.EvalTopK <= 0 {
		c.EvalTopK = DefaultEvalTopK
	}
}

// Service retrieves ranked chunks for a query.
type Service struct {
	repo     Repository
	embedder Embedder
	cfg      Config
	logger   *zap.Logger
}

// New creates a retrieval service.
func New(repo Repository, embedder Embedder, cfg Config, logger *zap.Logger) *Service {
	cfg.ApplyDefaults()
	return &Service{
		repo:     repo,
		embedder: embedder,
		cfg:      cfg,
		logger:   logger,
	}
}

// RetrieveWithScores embeds the query and retrieves chunks with the given
// technique. Scores pair by index with the returned chunks: raw cosine
// distances for top-k (lower = more similar), constant 1.0 for MMR, which
// has no native distance. BelowThreshold is true iff the final list is
// empty after filtering and deduplication.
//
// Vector store and embedding failures are not swallowed here; the caller
// decides how to surface them.
func (s *Service) RetrieveWithScores(ctx context.Context, query string, technique domain.Technique) (domain.RetrievalResult, error) {
	vec, err := s.embedQuery(ctx, query)
	if err != nil {
		return domain.RetrievalResult{}, err
	}

	var result domain.RetrievalResult
	switch technique {
	case domain.TechniqueMMR:
		result, err = s.retrieveMMR(ctx, vec)
	default:
		result, err = s.retrieveTopK(ctx, vec, s.cfg.TopK, true)
	}
	if err != nil {
		return domain.RetrievalResult{}, err
	}

	outcome := "ok"
	if result.BelowThreshold {
		outcome = "below_threshold"
	}
	metrics.RetrievalRequestsTotal.WithLabelValues(string(technique), outcome).Inc()

	s.logger.Debug("Retrieved chunks",
		zap.String("technique", string(technique)),
		zap.Int("count", len(result.Chunks)),
		zap.Bool("below_threshold", result.BelowThreshold))

	return result, nil
}

// RetrieveForEval retrieves with the quality filter bypassed and a larger
// top-k cap, maximizing context recall for automated scoring.
func (s *Service) RetrieveForEval(ctx context.Context, query string) (domain.RetrievalResult, error) {
	vec, err := s.embedQuery(ctx, query)
	if err != nil {
		return domain.RetrievalResult{}, err
	}
	return s.retrieveTopK(ctx, vec, s.cfg.EvalTopK, false)
}

func (s *Service) embedQuery(ctx context.Context, query string) ([]float32, error) {
	res, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return res.Embedding, nil
}

func (s *Service) retrieveTopK(ctx context.Context, vec []float32, k int, applyFilter bool) (domain.RetrievalResult, error) {
	fetchK := k * 5
	if applyFilter && s.filterActive() {
		// A wider net compensates for candidates the filter will drop.
		fetchK = k * 8
		if fetchK < 50 {
			fetchK = 50
		}
	}

	scored, err := s.repo.SearchKNN(ctx, vec, fetchK, false)
	if err != nil {
		return domain.RetrievalResult{}, fmt.Errorf("knn search: %w", err)
	}

	if applyFilter {
		scored = filterQuality(scored, s.cfg.MinChunkChars, s.cfg.MinChunkWords)
	}
	scored = dedupe(scored)
	if len(scored) > k {
		scored = scored[:k]
	}

	result := domain.RetrievalResult{
		Chunks:         make([]domain.Chunk, len(scored)),
		Scores:         make([]float64, len(scored)),
		BelowThreshold: len(scored) == 0,
	}
	for i, c := range scored {
		result.Chunks[i] = c.Chunk
		result.Scores[i] = c.Score
	}
	return result, nil
}

func (s *Service) retrieveMMR(ctx context.Context, vec []float32) (domain.RetrievalResult, error) {
	k := s.cfg.MMRK
	fetchK := s.cfg.MMRFetchK

	scored, err := s.repo.SearchKNN(ctx, vec, fetchK, true)
	if err != nil {
		return domain.RetrievalResult{}, fmt.Errorf("knn search: %w", err)
	}

	selectK := k * 2
	if selectK > fetchK {
		selectK = fetchK
	}
	selected := rerankMMR(vec, scored, selectK, s.cfg.MMRLambda)

	selected = filterQuality(selected, s.cfg.MinChunkChars, s.cfg.MinChunkWords)
	selected = dedupe(selected)
	if len(selected) > k {
		selected = selected[:k]
	}

	result := domain.RetrievalResult{
		Chunks:         make([]domain.Chunk, len(selected)),
		Scores:         make([]float64, len(selected)),
		BelowThreshold: len(selected) == 0,
	}
	for i, c := range selected {
		result.Chunks[i] = c.Chunk
		result.Scores[i] = 1.0
	}
	return result, nil
}

func (s *Service) filterActive() bool {
	return s.cfg.MinChunkChars > 0 || s.cfg.MinChunkWords > 0
}
