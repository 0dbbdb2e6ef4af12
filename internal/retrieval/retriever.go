package retrieval

import (
	"context"
	"log/slog"
	"math"
	"sort"

	"github.com/sentinelstack/risk-engine/internal/metrics"
	"github.com/sentinelstack/risk-engine/internal/models"
)

// DefaultTopK bounds result size when the caller does not configure one.
const DefaultTopK = 3

// Candidate is one prior event available for similarity comparison. The
// candidate pool is treated as a read-only snapshot for the duration of a
// retrieval call.
type Candidate struct {
	ID      string `json:"id"`
	Content string `json:"content"`
}

// Embedder produces dense vector embeddings for a batch of texts. Enabled
// reports whether the external capability is configured; Embed may still fail
// at call time, in which case the retriever falls back to the lexical
// strategy.
type Embedder interface {
	Enabled() bool
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// Retriever ranks a candidate pool by similarity to a query text. It prefers
// the embedding strategy when the external capability is configured and
// silently degrades to the lexical TF-IDF strategy on any failure; the output
// contract (shape, ordering, top-k) is identical on both paths.
type Retriever struct {
	embedder Embedder
	logger   *slog.Logger
}

// NewRetriever constructs a Retriever. A nil embedder pins the lexical
// strategy.
func NewRetriever(embedder Embedder, logger *slog.Logger) *Retriever {
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{embedder: embedder, logger: logger}
}

// Retrieve returns up to k candidates ranked by descending similarity to the
// query. Ties keep candidate-pool order. An empty pool or k <= 0 yields an
// empty result; retrieval never returns an error to the caller.
func (r *Retriever) Retrieve(ctx context.Context, query string, pool []Candidate, k int) []models.SimilarEvent {
	if len(pool) == 0 || k <= 0 {
		return []models.SimilarEvent{}
	}

	if r.embedder != nil && r.embedder.Enabled() {
		ranked, err := r.retrieveWithEmbeddings(ctx, query, pool, k)
		if err == nil {
			return ranked
		}
		r.logger.Warn("embedding retrieval failed, using lexical strategy", slog.Any("error", err))
		metrics.ObserveFallback(metrics.StageRetrieval)
	}

	return rankLexical(query, pool, k)
}

func (r *Retriever) retrieveWithEmbeddings(ctx context.Context, query string, pool []Candidate, k int) ([]models.SimilarEvent, error) {
	texts := make([]string, 0, len(pool)+1)
	texts = append(texts, query)
	for _, c := range pool {
		texts = append(texts, c.Content)
	}

	vectors, err := r.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, err
	}

	queryVec := vectors[0]
	ranked := make([]models.SimilarEvent, 0, len(pool))
	for i, c := range pool {
		ranked = append(ranked, models.SimilarEvent{
			ID:         c.ID,
			Content:    c.Content,
			Similarity: round4(cosineSimilarity(queryVec, vectors[i+1])),
		})
	}

	return topK(ranked, k), nil
}

func topK(ranked []models.SimilarEvent, k int) []models.SimilarEvent {
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Similarity > ranked[j].Similarity
	})
	if len(ranked) > k {
		ranked = ranked[:k]
	}
	return ranked
}

// cosineSimilarity computes the cosine of the angle between two vectors.
// Mismatched lengths or a zero-norm vector yield 0 rather than an error.
func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
