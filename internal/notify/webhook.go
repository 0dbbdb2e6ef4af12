package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sentinelstack/risk-engine/internal/models"
)

const (
	colorHigh     = 0xff0000
	colorModerate = 0xffa500
)

// WebhookNotifier delivers high-risk alerts to a Discord-compatible webhook.
// An empty webhook URL disables delivery; dispatch failures are reported to
// the caller but carry no retry semantics.
type WebhookNotifier struct {
	webhookURL string
	threshold  float64
	httpClient *http.Client
	logger     *slog.Logger
}

// NewWebhookNotifier constructs a notifier. threshold <= 0 falls back to 0.6.
func NewWebhookNotifier(webhookURL string, threshold float64, timeout time.Duration, logger *slog.Logger) *WebhookNotifier {
	if threshold <= 0 {
		threshold = 0.6
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhookNotifier{
		webhookURL: webhookURL,
		threshold:  threshold,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Threshold returns the risk score at which alerts fire.
func (n *WebhookNotifier) Threshold() float64 {
	return n.threshold
}

// SendRiskAlert posts a formatted embed for a high-risk event.
func (n *WebhookNotifier) SendRiskAlert(ctx context.Context, alert models.RiskAlert) error {
	if n.webhookURL == "" {
		n.logger.Debug("webhook url not configured, skipping alert", slog.String("event_id", alert.EventID))
		return nil
	}

	color := colorModerate
	if alert.RiskScore >= 0.6 {
		color = colorHigh
	}

	payload := map[string]any{
		"embeds": []map[string]any{
			{
				"title":       "High Risk Event Detected",
				"description": alert.Summary,
				"color":       color,
				"fields": []map[string]any{
					{"name": "Event ID", "value": alert.EventID, "inline": true},
					{"name": "Source", "value": capitalize(alert.Source), "inline": true},
					{"name": "Risk Score", "value": fmt.Sprintf("%.2f", alert.RiskScore), "inline": true},
					{"name": "Actionable Recommendation", "value": alert.Recommendation},
				},
				"timestamp": time.Now().UTC().Format(time.RFC3339),
				"footer":    map[string]any{"text": "risk-engine"},
			},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned %s", resp.Status)
	}
	return nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
