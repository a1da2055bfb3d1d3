package retrieval

import (
	"math"

	"github.com/kailas-cloud/ragdex/internal/domain"
)

// rerankMMR selects up to k candidates by maximal marginal relevance.
// Each step picks the candidate maximizing
//
//	lambda * sim(query, cand) - (1 - lambda) * max(sim(cand, selected))
//
// so lambda = 1 is pure relevance and lambda = 0 is pure diversity.
// Candidates without a vector are skipped.
func rerankMMR(queryVec []float32, candidates []domain.ScoredChunk, k int, lambda float64) []domain.ScoredChunk {
	if k <= 0 || len(candidates) == 0 {
		return nil
	}

	pool := make([]domain.ScoredChunk, 0, len(candidates))
	for _, c := range candidates {
		if len(c.Vector) > 0 {
			pool = append(pool, c)
		}
	}
	if len(pool) == 0 {
		return nil
	}
	if k > len(pool) {
		k = len(pool)
	}

	querySim := make([]float64, len(pool))
	for i, c := range pool {
		querySim[i] = cosineSimilarity(queryVec, c.Vector)
	}

	selected := make([]domain.ScoredChunk, 0, k)
	picked := make([]bool, len(pool))

	for len(selected) < k {
		best := -1
		bestScore := math.Inf(-1)
		for i := range pool {
			if picked[i] {
				continue
			}
			redundancy := 0.0
			for _, s := range selected {
				if sim := cosineSimilarity(pool[i].Vector, s.Vector); sim > redundancy {
					redundancy = sim
				}
			}
			score := lambda*querySim[i] - (1-lambda)*redundancy
			if score > bestScore {
				bestScore = score
				best = i
			}
		}
		if best < 0 {
			break
		}
		picked[best] = true
		selected = append(selected, pool[best])
	}

	return selected
}

func cosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
