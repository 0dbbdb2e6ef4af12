package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/sentinelstack/risk-engine/internal/models"
	"github.com/sentinelstack/risk-engine/internal/retrieval"
	"github.com/sentinelstack/risk-engine/internal/scoring"
	"github.com/sentinelstack/risk-engine/internal/semantics"
	"github.com/sentinelstack/risk-engine/internal/synthesis"
	"github.com/sentinelstack/risk-engine/internal/taxonomy"
)

// Pipeline orchestrates the analysis flow over one event: quantitative
// scoring, semantic classification, explainability, similarity retrieval and
// summary synthesis. It owns the event's id/status lifecycle
// (NEW -> SCORED -> PROCESSED); everything else it produces is a fresh value
// object per run, so concurrent runs share no mutable state.
type Pipeline struct {
	logger      *slog.Logger
	tax         *taxonomy.Taxonomy
	scorer      *scoring.Scorer
	classifier  *semantics.Classifier
	retriever   *retrieval.Retriever
	synthesizer *synthesis.Synthesizer
	topK        int
}

// NewPipeline constructs the analysis pipeline. topK <= 0 falls back to the
// retrieval default.
func NewPipeline(
	logger *slog.Logger,
	tax *taxonomy.Taxonomy,
	scorer *scoring.Scorer,
	classifier *semantics.Classifier,
	retriever *retrieval.Retriever,
	synthesizer *synthesis.Synthesizer,
	topK int,
) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if topK <= 0 {
		topK = retrieval.DefaultTopK
	}
	return &Pipeline{
		logger:      logger,
		tax:         tax,
		scorer:      scorer,
		classifier:  classifier,
		retriever:   retriever,
		synthesizer: synthesizer,
		topK:        topK,
	}
}

// Process runs the full pipeline for one event against the supplied candidate
// pool. The pool is treated as a read-only snapshot. The event is mutated in
// place: id assigned when absent, status advanced NEW -> SCORED -> PROCESSED.
func (p *Pipeline) Process(ctx context.Context, event *models.Event, pool []retrieval.Candidate) (models.AnalysisResult, error) {
	if event == nil {
		return models.AnalysisResult{}, fmt.Errorf("event is required")
	}
	if p.scorer == nil || p.classifier == nil || p.retriever == nil || p.synthesizer == nil {
		return models.AnalysisResult{}, fmt.Errorf("pipeline not configured")
	}

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	event.Status = models.StatusNew

	// Scoring and classification have no data dependency on each other.
	var (
		scores models.ScoreVector
		rc     models.RiskClassification
	)
	group, _ := errgroup.WithContext(ctx)
	group.Go(func() error {
		scores = p.scorer.Score(event.Content)
		return nil
	})
	group.Go(func() error {
		rc = p.classifier.Classify(event.Content)
		return nil
	})
	if err := group.Wait(); err != nil {
		return models.AnalysisResult{}, err
	}

	explainability := semantics.Explain(p.tax, rc)
	event.Status = models.StatusScored

	// Retrieval and synthesis depend only on upstream outputs, not on each
	// other. Both absorb external-capability failures internally.
	var (
		similar []models.SimilarEvent
		summary models.Summary
	)
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		similar = p.retriever.Retrieve(groupCtx, event.Content, pool, p.topK)
		return nil
	})
	group.Go(func() error {
		summary = p.synthesizer.Synthesize(groupCtx, event.Content, scores, rc)
		return nil
	})
	if err := group.Wait(); err != nil {
		return models.AnalysisResult{}, err
	}

	event.Status = models.StatusProcessed

	topCategory, topScore, _ := semantics.TopCategory(p.tax, rc)

	return models.AnalysisResult{
		Event:          event,
		Scores:         scores,
		Classification: rc,
		Explainability: explainability,
		SimilarEvents:  similar,
		Summary:        summary.Summary,
		Recommendation: summary.Recommendation,
		TopCategory:    topCategory,
		RiskScore:      topScore,
	}, nil
}
