package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/sentinelstack/risk-engine/internal/engine"
	"github.com/sentinelstack/risk-engine/internal/history"
	"github.com/sentinelstack/risk-engine/internal/metrics"
	"github.com/sentinelstack/risk-engine/internal/models"
	"github.com/sentinelstack/risk-engine/internal/retrieval"
	"github.com/sentinelstack/risk-engine/internal/semantics"
	"github.com/sentinelstack/risk-engine/internal/utils"
)

// EventStore defines the storage operations the service needs: pool reads for
// retrieval and stats, plus event and review writes.
type EventStore interface {
	FetchCandidatePool(ctx context.Context, limit int) ([]retrieval.Candidate, error)
	PersistEvent(ctx context.Context, event *models.Event, scores models.ScoreVector) error
	StoreReview(ctx context.Context, review models.Review) error
}

// AlertNotifier delivers high-risk alerts.
type AlertNotifier interface {
	Threshold() float64
	SendRiskAlert(ctx context.Context, alert models.RiskAlert) error
}

// IngestReport is the caller-facing receipt for an ingested event.
type IngestReport struct {
	EventID   string `json:"event_id"`
	Source    string `json:"source"`
	Status    string `json:"status"`
	RiskLevel string `json:"risk_level"`
}

// AnalysisService is the application facade over the pipeline: it fetches the
// candidate pool, runs analysis, persists results, and fires alerts. Store
// and notifier failures degrade to warnings so a broken collaborator never
// blocks analysis itself.
type AnalysisService struct {
	logger     *slog.Logger
	store      EventStore
	pipeline   *engine.Pipeline
	classifier *semantics.Classifier
	notifier   AlertNotifier
	poolLimit  int
	latencies  *utils.LatencyTracker
}

// NewAnalysisService constructs the service facade.
func NewAnalysisService(
	logger *slog.Logger,
	store EventStore,
	pipeline *engine.Pipeline,
	classifier *semantics.Classifier,
	notifier AlertNotifier,
	poolLimit int,
) *AnalysisService {
	if logger == nil {
		logger = slog.Default()
	}
	if poolLimit <= 0 {
		poolLimit = 100
	}
	return &AnalysisService{
		logger:     logger,
		store:      store,
		pipeline:   pipeline,
		classifier: classifier,
		notifier:   notifier,
		poolLimit:  poolLimit,
		latencies:  utils.NewLatencyTracker(1024),
	}
}

// AnalyzeEvent runs the full analysis flow for one event and returns the
// result. The event is mutated in place (id assignment, status transitions).
func (s *AnalysisService) AnalyzeEvent(ctx context.Context, event *models.Event) (models.AnalysisResult, error) {
	if event == nil {
		return models.AnalysisResult{}, utils.NewAppError("AnalyzeEvent", "event cannot be nil", utils.ErrInvalidInput)
	}
	if s.pipeline == nil {
		return models.AnalysisResult{}, utils.NewAppError("AnalyzeEvent", "pipeline not configured", utils.ErrNotConfigured)
	}

	pool := s.candidatePool(ctx)

	start := time.Now()
	result, err := s.pipeline.Process(ctx, event, pool)
	duration := time.Since(start)
	if err != nil {
		metrics.ObserveAnalysis(duration, metrics.OutcomeError)
		s.logger.Error("pipeline analysis failed", slog.Any("error", err))
		return models.AnalysisResult{}, utils.NewAppError("AnalyzeEvent", "analysis failed", err)
	}
	s.latencies.Observe(duration)
	metrics.ObserveAnalysis(duration, metrics.OutcomeSuccess)
	if count := s.latencies.Count(); count >= 20 && count%20 == 0 {
		p95 := s.latencies.Percentile(95)
		s.logger.Info("analysis latency", slog.Duration("p95", p95), slog.Int("samples", count))
	}

	if s.store != nil {
		if err := s.store.PersistEvent(ctx, event, result.Scores); err != nil {
			s.logger.Warn("event persistence failed", slog.String("event_id", event.ID), slog.Any("error", err))
		}
	}

	s.maybeAlert(ctx, result)

	return result, nil
}

// Ingest converts a normalized channel event into an internal event, runs
// analysis, and returns a compact receipt.
func (s *AnalysisService) Ingest(ctx context.Context, ingested models.IngestedEvent) (IngestReport, error) {
	event := &models.Event{
		Content:   ingested.Content,
		Source:    ingested.Source,
		Timestamp: ingested.Timestamp,
	}

	result, err := s.AnalyzeEvent(ctx, event)
	if err != nil {
		return IngestReport{}, err
	}

	riskLevel := "normal"
	if result.RiskScore >= s.alertThreshold() {
		riskLevel = "high"
	}

	return IngestReport{
		EventID:   event.ID,
		Source:    ingested.Source,
		Status:    "processed",
		RiskLevel: riskLevel,
	}, nil
}

// RecordReview persists a human review for an analyzed event.
func (s *AnalysisService) RecordReview(ctx context.Context, review models.Review) error {
	if review.EventID == "" {
		return utils.NewAppError("RecordReview", "event id cannot be empty", utils.ErrInvalidInput)
	}
	if s.store == nil {
		return utils.NewAppError("RecordReview", "event store not configured", utils.ErrNotConfigured)
	}
	if err := s.store.StoreReview(ctx, review); err != nil {
		return utils.NewAppError("RecordReview", "review persistence failed", err)
	}
	return nil
}

// PoolStats aggregates taxonomy hit statistics over the current candidate
// pool.
func (s *AnalysisService) PoolStats(ctx context.Context) history.Stats {
	return history.Aggregate(s.classifier, s.candidatePool(ctx))
}

// LatencyP95 returns the current p95 analysis latency.
func (s *AnalysisService) LatencyP95() time.Duration {
	return s.latencies.Percentile(95)
}

func (s *AnalysisService) candidatePool(ctx context.Context) []retrieval.Candidate {
	if s.store == nil {
		return nil
	}
	pool, err := s.store.FetchCandidatePool(ctx, s.poolLimit)
	if err != nil {
		s.logger.Warn("candidate pool fetch failed, proceeding without history", slog.Any("error", err))
		return nil
	}
	return pool
}

func (s *AnalysisService) alertThreshold() float64 {
	if s.notifier == nil {
		return 0.6
	}
	return s.notifier.Threshold()
}

func (s *AnalysisService) maybeAlert(ctx context.Context, result models.AnalysisResult) {
	if s.notifier == nil || result.RiskScore < s.notifier.Threshold() {
		return
	}
	alert := models.RiskAlert{
		EventID:        result.Event.ID,
		Content:        result.Event.Content,
		Source:         result.Event.Source,
		Summary:        result.Summary,
		Recommendation: result.Recommendation,
		RiskScore:      result.RiskScore,
	}
	if err := s.notifier.SendRiskAlert(ctx, alert); err != nil {
		s.logger.Warn("risk alert delivery failed", slog.String("event_id", alert.EventID), slog.Any("error", err))
		return
	}
	metrics.ObserveAlert()
	s.logger.Info("risk alert sent",
		slog.String("event_id", alert.EventID),
		slog.Float64("risk_score", alert.RiskScore),
	)
}
