package retrieval

import (
	"context"

	"github.com/kailas-cloud/ragdex/internal/domain"
)

// Repository is the vector store surface the retriever needs.
type Repository interface {
	SearchKNN(ctx context.Context, vector []float32, k int, withVectors bool) ([]domain.ScoredChunk, error)
}

// Embedder embeds the query text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
