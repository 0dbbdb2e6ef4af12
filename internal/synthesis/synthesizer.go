package synthesis

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sentinelstack/risk-engine/internal/metrics"
	"github.com/sentinelstack/risk-engine/internal/models"
	"github.com/sentinelstack/risk-engine/internal/semantics"
	"github.com/sentinelstack/risk-engine/internal/taxonomy"
)

// Escalation thresholds shared with the alerting layer: a top category score
// at or above EscalateThreshold is high severity, at or above ReviewThreshold
// moderate.
const (
	EscalateThreshold = 0.6
	ReviewThreshold   = 0.3
)

const systemPrompt = `You are an enterprise risk analyst.
Given event details and risk scores, write a short professional summary and recommendation.
Be concise and objective. Use formal business language.

Output format:
SUMMARY: [2-3 sentences summarizing the risk]
RECOMMENDATION: [1 sentence with actionable recommendation]`

const genericRecommendation = "Review the event details and take appropriate action."

// Completer is the external reasoning capability. Enabled reports whether
// credentials are configured; Complete may still fail, in which case the
// synthesizer falls back to the deterministic strategy.
type Completer interface {
	Enabled() bool
	Complete(ctx context.Context, system, user string) (string, error)
}

// Synthesizer turns scores and classification into a narrative summary plus a
// one-sentence recommendation. The narrative strategy uses the external
// reasoning capability; the deterministic strategy runs standalone and is the
// guaranteed baseline. Both produce the same output shape.
type Synthesizer struct {
	completer Completer
	tax       *taxonomy.Taxonomy
	logger    *slog.Logger
}

// NewSynthesizer constructs a Synthesizer. A nil completer pins the
// deterministic strategy.
func NewSynthesizer(completer Completer, tax *taxonomy.Taxonomy, logger *slog.Logger) *Synthesizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Synthesizer{completer: completer, tax: tax, logger: logger}
}

// Synthesize produces the summary and recommendation for one event. It never
// returns an error: any external-capability failure is absorbed by falling
// back to the deterministic strategy.
func (s *Synthesizer) Synthesize(ctx context.Context, content string, scores models.ScoreVector, rc models.RiskClassification) models.Summary {
	if s.completer != nil && s.completer.Enabled() {
		output, err := s.completer.Complete(ctx, systemPrompt, s.buildUserPrompt(content, scores, rc))
		if err == nil {
			return parseNarrative(output)
		}
		s.logger.Warn("narrative synthesis failed, using deterministic strategy", slog.Any("error", err))
		metrics.ObserveFallback(metrics.StageSynthesis)
	}

	return s.Deterministic(content, scores, rc)
}

func (s *Synthesizer) buildUserPrompt(content string, scores models.ScoreVector, rc models.RiskClassification) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Event: %s\n\n", content)
	b.WriteString("Risk Scores:\n")
	fmt.Fprintf(&b, "- Signal Strength: %.3f\n", scores.SignalStrength)
	fmt.Fprintf(&b, "- Historical Rarity: %.3f\n", scores.HistoricalRarity)
	fmt.Fprintf(&b, "- Trend Acceleration: %.3f\n", scores.TrendAcceleration)
	fmt.Fprintf(&b, "- Cross-Source Presence: %.3f\n", scores.CrossSourcePresence)
	fmt.Fprintf(&b, "- Uncertainty: %.3f\n\n", scores.Uncertainty)
	b.WriteString("Risk Categories:\n")
	for _, name := range s.tax.Names() {
		fmt.Fprintf(&b, "- %s: %.1f%%\n", name, rc.CategoryScores[name]*100)
	}
	keywords := collectKeywords(s.tax, rc)
	joined := "None"
	if len(keywords) > 0 {
		joined = strings.Join(keywords, ", ")
	}
	fmt.Fprintf(&b, "\nMatched Keywords: %s\n\n", joined)
	b.WriteString("Provide a professional risk summary and recommendation.")
	return b.String()
}

// parseNarrative scans the raw completion for the SUMMARY:/RECOMMENDATION:
// line prefixes. An unparseable summary falls back to the whole output; an
// absent recommendation falls back to a generic sentence.
func parseNarrative(output string) models.Summary {
	summary := ""
	recommendation := ""
	for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
		switch {
		case strings.HasPrefix(line, "SUMMARY:"):
			summary = strings.TrimSpace(strings.TrimPrefix(line, "SUMMARY:"))
		case strings.HasPrefix(line, "RECOMMENDATION:"):
			recommendation = strings.TrimSpace(strings.TrimPrefix(line, "RECOMMENDATION:"))
		}
	}
	if summary == "" {
		summary = strings.TrimSpace(output)
	}
	if recommendation == "" {
		recommendation = genericRecommendation
	}
	return models.Summary{Summary: summary, Recommendation: recommendation}
}

// Deterministic is the rule-based strategy: always available, no network, no
// credentials. Exposed directly so the baseline can be exercised standalone.
func (s *Synthesizer) Deterministic(content string, scores models.ScoreVector, rc models.RiskClassification) models.Summary {
	topCategory, topScore, ok := semantics.TopCategory(s.tax, rc)
	if !ok {
		topCategory = "unknown"
	}
	label := strings.ReplaceAll(topCategory, "_", " ")
	keywords := collectKeywords(s.tax, rc)
	severity := severityTier(topScore)

	var summary string
	if len(keywords) > 0 {
		summary = fmt.Sprintf(
			"This event exhibits %s %s risk indicators based on detected keywords: %s. The overall risk confidence is %.0f%%.",
			severity, label, strings.Join(keywords, ", "), topScore*100,
		)
	} else {
		summary = fmt.Sprintf(
			"This event shows %s risk levels across all categories. No risk keywords were detected in the content.",
			severity,
		)
	}

	var recommendation string
	switch {
	case topScore >= EscalateThreshold:
		recommendation = fmt.Sprintf("Escalate immediately to the incident response team for %s risk review.", label)
	case topScore >= ReviewThreshold:
		recommendation = fmt.Sprintf("Schedule a review within 24 hours to assess %s risk implications.", label)
	default:
		recommendation = "Log for tracking purposes; no immediate action required."
	}

	return models.Summary{Summary: summary, Recommendation: recommendation}
}

func severityTier(score float64) string {
	switch {
	case score >= EscalateThreshold:
		return "high"
	case score >= ReviewThreshold:
		return "moderate"
	default:
		return "low"
	}
}

// collectKeywords flattens matched keywords in taxonomy order.
func collectKeywords(tax *taxonomy.Taxonomy, rc models.RiskClassification) []string {
	keywords := make([]string, 0)
	for _, name := range tax.Names() {
		keywords = append(keywords, rc.MatchedKeywords[name]...)
	}
	return keywords
}
