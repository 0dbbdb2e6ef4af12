package repo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/sentinelstack/risk-engine/internal/cache"
	"github.com/sentinelstack/risk-engine/internal/models"
	"github.com/sentinelstack/risk-engine/internal/retrieval"
)

// EventStoreClient wraps the storage collaborator's HTTP API: candidate-pool
// reads plus event/score and review writes. An empty base URL degrades to an
// empty pool and no-op writes so the engine stays operable standalone.
type EventStoreClient struct {
	baseURL     string
	poolPath    string
	eventsPath  string
	reviewsPath string
	httpClient  *http.Client
	cache       cache.Provider
	poolTTL     time.Duration
}

// NewEventStoreClient constructs a client targeting the configured event
// store.
func NewEventStoreClient(baseURL, poolPath, eventsPath, reviewsPath string, timeout time.Duration, cacheProvider cache.Provider, poolTTL time.Duration) *EventStoreClient {
	if cacheProvider == nil {
		cacheProvider = cache.NoopProvider{}
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if poolTTL < 0 {
		poolTTL = 0
	}
	return &EventStoreClient{
		baseURL:     strings.TrimRight(baseURL, "/"),
		poolPath:    poolPath,
		eventsPath:  eventsPath,
		reviewsPath: reviewsPath,
		httpClient:  &http.Client{Timeout: timeout},
		cache:       cacheProvider,
		poolTTL:     poolTTL,
	}
}

// FetchCandidatePool returns up to limit prior events for similarity
// comparison, newest first as ordered by the store. Results are cached for
// the configured TTL.
func (c *EventStoreClient) FetchCandidatePool(ctx context.Context, limit int) ([]retrieval.Candidate, error) {
	if c == nil || c.baseURL == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 100
	}

	cacheKey := ""
	if c.poolTTL > 0 {
		cacheKey = fmt.Sprintf("store:pool:%d", limit)
		if data, err := c.cache.Get(ctx, cacheKey); err == nil {
			var cached []retrieval.Candidate
			if err := json.Unmarshal(data, &cached); err == nil {
				return cached, nil
			}
		}
	}

	var response struct {
		Events []struct {
			ID      string `json:"id"`
			Content string `json:"content"`
		} `json:"events"`
	}

	payload := map[string]any{"limit": limit}
	if err := c.postJSON(ctx, c.resolvePath(c.poolPath), payload, &response); err != nil {
		return nil, fmt.Errorf("event store pool request failed: %w", err)
	}

	pool := make([]retrieval.Candidate, 0, len(response.Events))
	for _, e := range response.Events {
		pool = append(pool, retrieval.Candidate{ID: e.ID, Content: e.Content})
	}

	if cacheKey != "" && len(pool) > 0 {
		if data, err := json.Marshal(pool); err == nil {
			_ = c.cache.Set(ctx, cacheKey, data, c.poolTTL)
		}
	}

	return pool, nil
}

// PersistEvent stores an event together with its score vector. The cached
// candidate pool is not invalidated; the new event becomes retrievable once
// the pool TTL lapses.
func (c *EventStoreClient) PersistEvent(ctx context.Context, event *models.Event, scores models.ScoreVector) error {
	if c == nil || c.baseURL == "" {
		return nil
	}
	if event == nil {
		return fmt.Errorf("event is required")
	}

	payload := map[string]any{
		"event": map[string]any{
			"id":        event.ID,
			"content":   event.Content,
			"source":    event.Source,
			"timestamp": event.Timestamp.UTC().Format(time.RFC3339),
			"status":    string(event.Status),
		},
		"scores": scores,
	}

	if err := c.postJSON(ctx, c.resolvePath(c.eventsPath), payload, nil); err != nil {
		return fmt.Errorf("event store persist failed: %w", err)
	}
	return nil
}

// StoreReview records a human review against an event.
func (c *EventStoreClient) StoreReview(ctx context.Context, review models.Review) error {
	if c == nil || c.baseURL == "" {
		return nil
	}
	if review.EventID == "" {
		return fmt.Errorf("review event id is required")
	}
	if review.ReviewedAt.IsZero() {
		review.ReviewedAt = time.Now().UTC()
	}

	if err := c.postJSON(ctx, c.resolvePath(c.reviewsPath), review, nil); err != nil {
		return fmt.Errorf("event store review failed: %w", err)
	}
	return nil
}

func (c *EventStoreClient) resolvePath(p string) string {
	if c.baseURL == "" {
		return ""
	}
	cleaned := "/" + strings.TrimLeft(p, "/")
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return c.baseURL + cleaned
	}
	u.Path = path.Join(u.Path, cleaned)
	return u.String()
}

func (c *EventStoreClient) postJSON(ctx context.Context, endpoint string, payload any, out any) error {
	if endpoint == "" {
		return fmt.Errorf("empty endpoint")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("event store returned %s", resp.Status)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
