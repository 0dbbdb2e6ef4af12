package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sentinelstack/risk-engine/internal/engine"
	"github.com/sentinelstack/risk-engine/internal/models"
	"github.com/sentinelstack/risk-engine/internal/retrieval"
	"github.com/sentinelstack/risk-engine/internal/scoring"
	"github.com/sentinelstack/risk-engine/internal/semantics"
	"github.com/sentinelstack/risk-engine/internal/services"
	"github.com/sentinelstack/risk-engine/internal/synthesis"
	"github.com/sentinelstack/risk-engine/internal/taxonomy"
	"github.com/sentinelstack/risk-engine/internal/utils"
)

type fakeStore struct {
	pool      []retrieval.Candidate
	persisted []*models.Event
	reviews   []models.Review
}

func (f *fakeStore) FetchCandidatePool(context.Context, int) ([]retrieval.Candidate, error) {
	return f.pool, nil
}

func (f *fakeStore) PersistEvent(_ context.Context, event *models.Event, _ models.ScoreVector) error {
	f.persisted = append(f.persisted, event)
	return nil
}

func (f *fakeStore) StoreReview(_ context.Context, review models.Review) error {
	f.reviews = append(f.reviews, review)
	return nil
}

func newTestHandler(t *testing.T, store services.EventStore) http.Handler {
	t.Helper()
	tax, err := taxonomy.New([]taxonomy.Category{
		{Name: "operational", Keywords: []string{"outage", "failure"}},
		{Name: "compliance", Keywords: []string{"breach"}},
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
	service := services.NewAnalysisService(nil, store, pipeline, classifier, nil, 10)
	return NewHandler(nil, service).Routes()
}

func postJSON(t *testing.T, handler http.Handler, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	handler := newTestHandler(t, &fakeStore{})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestAnalyzeEventEndpoint(t *testing.T) {
	store := &fakeStore{}
	handler := newTestHandler(t, store)

	rec := postJSON(t, handler, "/events", map[string]any{
		"content": "total outage and failure in checkout",
		"source":  "monitoring",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var result models.AnalysisResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.Event == nil || result.Event.ID == "" {
		t.Fatalf("expected assigned event id: %+v", result.Event)
	}
	if result.Event.Status != models.StatusProcessed {
		t.Fatalf("status = %s, want PROCESSED", result.Event.Status)
	}
	if result.TopCategory != "operational" || result.RiskScore != 1 {
		t.Fatalf("top = %s/%v", result.TopCategory, result.RiskScore)
	}
	if len(store.persisted) != 1 {
		t.Fatalf("expected one persisted event, got %d", len(store.persisted))
	}
}

func TestAnalyzeEventBadJSON(t *testing.T) {
	handler := newTestHandler(t, &fakeStore{})
	req := httptest.NewRequest(http.MethodPost, "/events", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestIngestMessageEndpoint(t *testing.T) {
	handler := newTestHandler(t, &fakeStore{})
	rec := postJSON(t, handler, "/ingest/message", map[string]any{
		"source":  "rss",
		"sender":  "feed",
		"content": "data breach disclosed",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var report services.IngestReport
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.EventID == "" || report.Status != "processed" {
		t.Fatalf("unexpected report: %+v", report)
	}
	if report.RiskLevel != "high" {
		t.Fatalf("risk level = %q, want high for score 1.0", report.RiskLevel)
	}
}

func TestIngestTelegramEndpoint(t *testing.T) {
	store := &fakeStore{}
	handler := newTestHandler(t, store)
	rec := postJSON(t, handler, "/ingest/telegram", map[string]any{
		"message": map[string]any{
			"from": map[string]any{"id": float64(42)},
			"text": "nothing risky here",
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var report services.IngestReport
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.Source != "telegram" || report.RiskLevel != "normal" {
		t.Fatalf("unexpected report: %+v", report)
	}
	if len(store.persisted) != 1 || store.persisted[0].Source != "telegram" {
		t.Fatalf("unexpected persisted events: %+v", store.persisted)
	}
}

func TestReviewEndpoint(t *testing.T) {
	store := &fakeStore{}
	handler := newTestHandler(t, store)
	rec := postJSON(t, handler, "/events/evt-7/review", map[string]any{
		"reviewer": "analyst",
		"note":     "confirmed incident",
	})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if len(store.reviews) != 1 || store.reviews[0].EventID != "evt-7" {
		t.Fatalf("unexpected reviews: %+v", store.reviews)
	}
}

func TestReviewEndpointStoreUnavailable(t *testing.T) {
	handler := newTestHandler(t, nil)
	rec := postJSON(t, handler, "/events/evt-7/review", map[string]any{
		"reviewer": "analyst",
	})
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503 for missing store", rec.Code)
	}
}

func TestRespondServiceErrorStatusMapping(t *testing.T) {
	h := NewHandler(nil, nil)
	cases := []struct {
		err  error
		want int
	}{
		{utils.NewAppError("AnalyzeEvent", "event cannot be nil", utils.ErrInvalidInput), http.StatusBadRequest},
		{utils.NewAppError("RecordReview", "event store not configured", utils.ErrNotConfigured), http.StatusServiceUnavailable},
		{utils.NewAppError("AnalyzeEvent", "analysis failed", errors.New("boom")), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		h.respondServiceError(rec, tc.err)
		if rec.Code != tc.want {
			t.Fatalf("status for %v = %d, want %d", tc.err, rec.Code, tc.want)
		}
	}
}

func TestStatsEndpoint(t *testing.T) {
	store := &fakeStore{pool: []retrieval.Candidate{
		{ID: "1", Content: "outage in payments"},
		{ID: "2", Content: "all quiet"},
	}}
	handler := newTestHandler(t, store)

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var stats struct {
		TotalEvents int `json:"total_events"`
		Categories  []struct {
			Category  string `json:"category"`
			EventsHit int    `json:"events_hit"`
		} `json:"categories"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats.TotalEvents != 2 || len(stats.Categories) != 2 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if stats.Categories[0].Category != "operational" || stats.Categories[0].EventsHit != 1 {
		t.Fatalf("unexpected leading category: %+v", stats.Categories[0])
	}
}
