package services

import (
	"context"
	"errors"
	"testing"

	"github.com/sentinelstack/risk-engine/internal/engine"
	"github.com/sentinelstack/risk-engine/internal/models"
	"github.com/sentinelstack/risk-engine/internal/retrieval"
	"github.com/sentinelstack/risk-engine/internal/scoring"
	"github.com/sentinelstack/risk-engine/internal/semantics"
	"github.com/sentinelstack/risk-engine/internal/synthesis"
	"github.com/sentinelstack/risk-engine/internal/taxonomy"
	"github.com/sentinelstack/risk-engine/internal/utils"
)

type stubStore struct {
	pool       []retrieval.Candidate
	poolErr    error
	persistErr error
	persisted  int
	reviews    []models.Review
}

func (s *stubStore) FetchCandidatePool(context.Context, int) ([]retrieval.Candidate, error) {
	return s.pool, s.poolErr
}

func (s *stubStore) PersistEvent(context.Context, *models.Event, models.ScoreVector) error {
	s.persisted++
	return s.persistErr
}

func (s *stubStore) StoreReview(_ context.Context, review models.Review) error {
	s.reviews = append(s.reviews, review)
	return nil
}

type stubNotifier struct {
	threshold float64
	sent      []models.RiskAlert
	err       error
}

func (s *stubNotifier) Threshold() float64 { return s.threshold }

func (s *stubNotifier) SendRiskAlert(_ context.Context, alert models.RiskAlert) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, alert)
	return nil
}

func newTestService(t *testing.T, store EventStore, notifier AlertNotifier) *AnalysisService {
	t.Helper()
	tax, err := taxonomy.New([]taxonomy.Category{
		{Name: "operational", Keywords: []string{"outage", "failure"}},
		{Name: "compliance", Keywords: []string{"breach", "violation"}},
	})
	if err != nil {
		t.Fatalf("build taxonomy: %v", err)
	}
	classifier := semantics.NewClassifier(tax)
	pipeline := engine.NewPipeline(
		nil,
		tax,
		scoring.NewScorer(1000, scoring.FixedEstimator{Value: 0.5}, scoring.FixedEstimator{Value: 0.5}, scoring.FixedEstimator{Value: 0.5}),
		classifier,
		retrieval.NewRetriever(nil, nil),
		synthesis.NewSynthesizer(nil, tax, nil),
		3,
	)
	return NewAnalysisService(nil, store, pipeline, classifier, notifier, 10)
}

func TestAnalyzeEventPersistsAndAlerts(t *testing.T) {
	store := &stubStore{}
	notifier := &stubNotifier{threshold: 0.6}
	service := newTestService(t, store, notifier)

	event := &models.Event{Content: "outage and failure everywhere", Source: "monitoring"}
	result, err := service.AnalyzeEvent(context.Background(), event)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if result.RiskScore != 1 {
		t.Fatalf("risk score = %v, want 1", result.RiskScore)
	}
	if store.persisted != 1 {
		t.Fatalf("expected one persist call, got %d", store.persisted)
	}
	if len(notifier.sent) != 1 {
		t.Fatalf("expected one alert, got %d", len(notifier.sent))
	}
	alert := notifier.sent[0]
	if alert.EventID != event.ID || alert.RiskScore != 1 {
		t.Fatalf("unexpected alert: %+v", alert)
	}
}

func TestAnalyzeEventBelowThresholdNoAlert(t *testing.T) {
	notifier := &stubNotifier{threshold: 0.6}
	service := newTestService(t, &stubStore{}, notifier)

	// One of two operational keywords: score 0.5, below the 0.6 threshold.
	_, err := service.AnalyzeEvent(context.Background(), &models.Event{Content: "brief outage"})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if len(notifier.sent) != 0 {
		t.Fatalf("unexpected alerts: %+v", notifier.sent)
	}
}

func TestAnalyzeEventSurvivesStoreFailures(t *testing.T) {
	store := &stubStore{poolErr: errors.New("store down"), persistErr: errors.New("store down")}
	service := newTestService(t, store, nil)

	result, err := service.AnalyzeEvent(context.Background(), &models.Event{Content: "breach detected"})
	if err != nil {
		t.Fatalf("analysis should absorb store failures, got %v", err)
	}
	if result.Summary == "" || result.Recommendation == "" {
		t.Fatalf("expected complete result despite store failure: %+v", result)
	}
}

func TestAnalyzeEventSurvivesNotifierFailure(t *testing.T) {
	notifier := &stubNotifier{threshold: 0.1, err: errors.New("webhook down")}
	service := newTestService(t, &stubStore{}, notifier)

	if _, err := service.AnalyzeEvent(context.Background(), &models.Event{Content: "outage"}); err != nil {
		t.Fatalf("analysis should absorb notifier failure, got %v", err)
	}
}

func TestAnalyzeEventNilEvent(t *testing.T) {
	service := newTestService(t, &stubStore{}, nil)
	_, err := service.AnalyzeEvent(context.Background(), nil)
	if err == nil {
		t.Fatalf("expected error for nil event")
	}
	if !errors.Is(err, utils.ErrInvalidInput) {
		t.Fatalf("nil event should be an invalid-input error, got %v", err)
	}
}

func TestIngestReportsRiskLevel(t *testing.T) {
	notifier := &stubNotifier{threshold: 0.6}
	service := newTestService(t, &stubStore{}, notifier)

	report, err := service.Ingest(context.Background(), models.IngestedEvent{
		Source:  "email",
		Sender:  "a@example.com",
		Content: "outage failure breach violation",
	})
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if report.EventID == "" || report.Status != "processed" || report.RiskLevel != "high" {
		t.Fatalf("unexpected report: %+v", report)
	}

	quiet, err := service.Ingest(context.Background(), models.IngestedEvent{Source: "email", Content: "all fine"})
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if quiet.RiskLevel != "normal" {
		t.Fatalf("risk level = %q, want normal", quiet.RiskLevel)
	}
}

func TestRecordReview(t *testing.T) {
	store := &stubStore{}
	service := newTestService(t, store, nil)

	if err := service.RecordReview(context.Background(), models.Review{EventID: "evt-1", Reviewer: "analyst"}); err != nil {
		t.Fatalf("record review: %v", err)
	}
	if len(store.reviews) != 1 {
		t.Fatalf("expected one stored review, got %d", len(store.reviews))
	}

	if err := service.RecordReview(context.Background(), models.Review{}); !errors.Is(err, utils.ErrInvalidInput) {
		t.Fatalf("missing event id should be an invalid-input error, got %v", err)
	}
}

func TestRecordReviewWithoutStore(t *testing.T) {
	service := newTestService(t, nil, nil)
	err := service.RecordReview(context.Background(), models.Review{EventID: "evt-1"})
	if !errors.Is(err, utils.ErrNotConfigured) {
		t.Fatalf("missing store should be a not-configured error, got %v", err)
	}
}

func TestPoolStatsUsesCandidatePool(t *testing.T) {
	store := &stubStore{pool: []retrieval.Candidate{
		{ID: "1", Content: "outage"},
		{ID: "2", Content: "breach"},
		{ID: "3", Content: "quiet"},
	}}
	service := newTestService(t, store, nil)

	stats := service.PoolStats(context.Background())
	if stats.TotalEvents != 3 {
		t.Fatalf("total events = %d, want 3", stats.TotalEvents)
	}
	if len(stats.Categories) != 2 {
		t.Fatalf("expected 2 categories, got %+v", stats.Categories)
	}
}
