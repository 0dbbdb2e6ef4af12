package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/sentinelstack/risk-engine/internal/models"
	"github.com/sentinelstack/risk-engine/internal/services"
	"github.com/sentinelstack/risk-engine/internal/utils"
)

// Handler exposes the analysis service over HTTP JSON.
type Handler struct {
	logger   *slog.Logger
	service  *services.AnalysisService
	telegram TelegramAdapter
	email    EmailAdapter
	whatsapp WhatsAppAdapter
}

// NewHandler constructs the HTTP handler set.
func NewHandler(logger *slog.Logger, service *services.AnalysisService) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// Routes builds the request mux for the public API surface.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("POST /events", h.analyzeEvent)
	mux.HandleFunc("POST /events/{id}/review", h.recordReview)
	mux.HandleFunc("GET /stats", h.poolStats)

	mux.HandleFunc("POST /ingest/message", h.ingestMessage)
	mux.HandleFunc("POST /ingest/telegram", h.ingestChannel(h.telegram))
	mux.HandleFunc("POST /ingest/email", h.ingestChannel(h.email))
	mux.HandleFunc("POST /ingest/whatsapp", h.ingestChannel(h.whatsapp))

	return logRequests(h.logger, mux)
}

type analyzeRequest struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
}

func (h *Handler) analyzeEvent(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	event := &models.Event{
		ID:        req.ID,
		Content:   req.Content,
		Source:    req.Source,
		Timestamp: req.Timestamp,
	}

	result, err := h.service.AnalyzeEvent(r.Context(), event)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) ingestMessage(w http.ResponseWriter, r *http.Request) {
	var ingested models.IngestedEvent
	if err := json.NewDecoder(r.Body).Decode(&ingested); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	h.processIngested(w, r, ingested)
}

// ingestChannel decodes a raw provider payload and runs it through the
// channel's adapter before analysis.
func (h *Handler) ingestChannel(adapter ChannelAdapter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		h.processIngested(w, r, adapter.Transform(payload))
	}
}

func (h *Handler) processIngested(w http.ResponseWriter, r *http.Request, ingested models.IngestedEvent) {
	report, err := h.service.Ingest(r.Context(), ingested)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

type reviewRequest struct {
	Reviewer string `json:"reviewer"`
	Note     string `json:"note"`
}

func (h *Handler) recordReview(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	review := models.Review{
		EventID:    r.PathValue("id"),
		Reviewer:   req.Reviewer,
		Note:       req.Note,
		ReviewedAt: time.Now().UTC(),
	}

	if err := h.service.RecordReview(r.Context(), review); err != nil {
		h.respondServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"event_id": review.EventID, "accepted": true})
}

func (h *Handler) poolStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.PoolStats(r.Context()))
}

// respondServiceError maps validation failures to 400, missing collaborators
// to 503, and everything else to 500 without leaking wrapped internals to the
// caller.
func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	var appErr *utils.AppError
	switch {
	case errors.Is(err, utils.ErrInvalidInput):
		msg := "invalid request"
		if errors.As(err, &appErr) {
			msg = appErr.Msg
		}
		writeError(w, http.StatusBadRequest, msg)
	case errors.Is(err, utils.ErrNotConfigured):
		h.logger.Error("request hit unconfigured component", slog.Any("error", err))
		writeError(w, http.StatusServiceUnavailable, "service not configured")
	default:
		h.logger.Error("request failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func logRequests(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		logger.Debug("request handled",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rw.status),
			slog.Duration("duration", time.Since(start)),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
