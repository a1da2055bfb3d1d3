// Package vector persists chunk records in the Redis vector index and runs
// KNN queries over them.
package vector

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/kailas-cloud/ragdex/internal/db"
	"github.com/kailas-cloud/ragdex/internal/domain"
)

// store is the consumer interface for vector index operations (ISP).
type store interface {
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
	Del(ctx context.Context, key string) error
}

// HNSWConfig holds HNSW index build parameters.
type HNSWConfig struct {
	M           int
	EFConstruct int
}

// Repo implements chunk storage and KNN search over db.Store.
type Repo struct {
	store  store
	prefix string
	dim    int
	hnsw   HNSWConfig
}

// New creates a vector repository. prefix namespaces all keys (e.g. "ragdex:").
func New(s store, prefix string, dim int) *Repo {
	return &Repo{store: s, prefix: prefix, dim: dim}
}

// WithHNSW sets HNSW build parameters for index creation.
func (r *Repo) WithHNSW(cfg HNSWConfig) *Repo {
	r.hnsw = cfg
	return r
}

func (r *Repo) indexName() string { return r.prefix + "chunks:idx" }
func (r *Repo) keyPrefix() string { return r.prefix + "chunk:" }

// chunkKey addresses one record by the stable chunk identity, so re-ingesting
// the same document overwrites in place instead of accumulating duplicates.
func (r *Repo) chunkKey(m domain.ChunkMeta) string {
	return fmt.Sprintf("%s%s:%s:%d", r.keyPrefix(), m.DocID, m.Span(), m.ChunkIndex)
}

// EnsureIndex creates the FT index if it does not exist yet.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	exists, err := r.store.IndexExists(ctx, r.indexName())
	if err != nil {
		return fmt.Errorf("index exists %s: %w", r.indexName(), err)
	}
	if exists {
		return nil
	}

	def := &db.IndexDefinition{
		Name:     r.indexName(),
		Prefixes: []string{r.keyPrefix()},
		Fields: []db.IndexField{
			{Name: "doc_id", Type: db.IndexFieldTag},
			{Name: "chunk_index", Type: db.IndexFieldNumeric},
			{
				Name:              "vector",
				Type:              db.IndexFieldVector,
				VectorAlgo:        db.VectorHNSW,
				VectorDim:         r.dim,
				VectorDistance:    db.DistanceCosine,
				VectorM:           r.hnsw.M,
				VectorEFConstruct: r.hnsw.EFConstruct,
			},
		},
	}

	if err := r.store.CreateIndex(ctx, def); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return nil
		}
		return fmt.Errorf("create index %s: %w", r.indexName(), err)
	}
	return nil
}

// Upsert writes one record per chunk in a single pipelined round-trip.
func (r *Repo) Upsert(ctx context.Context, records []domain.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}

	items := make([]db.HashSetItem, len(records))
	for i, rec := range records {
		if len(rec.Vector) != r.dim {
			return fmt.Errorf("chunk %s: vector dim %d, index dim %d",
				rec.Chunk.Meta.Key(), len(rec.Vector), r.dim)
		}
		items[i] = db.HashSetItem{
			Key:    r.chunkKey(rec.Chunk.Meta),
			Fields: fieldsFromRecord(rec),
		}
	}

	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("upsert %d chunks: %w", len(records), err)
	}
	return nil
}

// SearchKNN returns the k nearest chunks by cosine distance, ascending.
// When withVectors is set, each result carries its stored embedding (needed
// by MMR reranking).
func (r *Repo) SearchKNN(ctx context.Context, vec []float32, k int, withVectors bool) ([]domain.ScoredChunk, error) {
	fields := []string{
		"content", "doc_id", "source_path", "filename",
		"page_or_para", "row_range", "chunk_index", "chunk_start", "chunk_end",
	}
	if withVectors {
		fields = append(fields, "vector")
	}

	sr, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    r.indexName(),
		Vector:       vec,
		K:            k,
		ReturnFields: fields,
	})
	if err != nil {
		return nil, fmt.Errorf("search knn: %w", err)
	}
	if sr == nil || len(sr.Entries) == 0 {
		return nil, nil
	}

	out := make([]domain.ScoredChunk, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		out = append(out, scoredChunkFromEntry(entry, withVectors))
	}

	// FT.SEARCH sorts by distance, but don't rely on it.
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score < out[j].Score })

	return out, nil
}

// Reset drops the index and deletes every stored chunk. The only way chunk
// records are ever destroyed.
func (r *Repo) Reset(ctx context.Context) error {
	if err := r.store.DropIndex(ctx, r.indexName()); err != nil && !errors.Is(err, db.ErrIndexNotFound) {
		return fmt.Errorf("drop index: %w", err)
	}

	keys, err := r.store.Scan(ctx, r.keyPrefix()+"*")
	if err != nil {
		return fmt.Errorf("scan chunks: %w", err)
	}
	for _, key := range keys {
		if err := r.store.Del(ctx, key); err != nil {
			return fmt.Errorf("delete %s: %w", key, err)
		}
	}
	return nil
}
