package synthesis

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sentinelstack/risk-engine/internal/models"
	"github.com/sentinelstack/risk-engine/internal/semantics"
	"github.com/sentinelstack/risk-engine/internal/taxonomy"
)

type stubCompleter struct {
	enabled bool
	output  string
	err     error
	calls   int
}

func (s *stubCompleter) Enabled() bool { return s.enabled }

func (s *stubCompleter) Complete(context.Context, string, string) (string, error) {
	s.calls++
	return s.output, s.err
}

func synthTaxonomy(t *testing.T) *taxonomy.Taxonomy {
	t.Helper()
	tax, err := taxonomy.New([]taxonomy.Category{
		{Name: "operational", Keywords: []string{"outage", "failure"}},
		{Name: "compliance", Keywords: []string{"breach", "violation"}},
	})
	if err != nil {
		t.Fatalf("build taxonomy: %v", err)
	}
	return tax
}

func classify(t *testing.T, tax *taxonomy.Taxonomy, content string) models.RiskClassification {
	t.Helper()
	return semantics.NewClassifier(tax).Classify(content)
}

func TestSynthesizeDeterministicWithoutCompleter(t *testing.T) {
	tax := synthTaxonomy(t)
	s := NewSynthesizer(nil, tax, nil)

	rc := classify(t, tax, "total outage and failure")
	out := s.Synthesize(context.Background(), "total outage and failure", models.ScoreVector{}, rc)
	if !strings.Contains(out.Summary, "high operational risk") {
		t.Fatalf("summary = %q, want high operational risk wording", out.Summary)
	}
	if !strings.Contains(out.Recommendation, "Escalate immediately") {
		t.Fatalf("recommendation = %q, want escalation wording", out.Recommendation)
	}
}

func TestSynthesizeParsesNarrativeOutput(t *testing.T) {
	tax := synthTaxonomy(t)
	completer := &stubCompleter{
		enabled: true,
		output:  "SUMMARY: A serious operational incident.\nRECOMMENDATION: Page the on-call engineer.",
	}
	s := NewSynthesizer(completer, tax, nil)

	out := s.Synthesize(context.Background(), "outage", models.ScoreVector{}, classify(t, tax, "outage"))
	if completer.calls != 1 {
		t.Fatalf("expected one completion call, got %d", completer.calls)
	}
	if out.Summary != "A serious operational incident." {
		t.Fatalf("summary = %q", out.Summary)
	}
	if out.Recommendation != "Page the on-call engineer." {
		t.Fatalf("recommendation = %q", out.Recommendation)
	}
}

func TestSynthesizeUnparseableOutputBecomesSummary(t *testing.T) {
	tax := synthTaxonomy(t)
	completer := &stubCompleter{enabled: true, output: "The model ignored the requested format entirely."}
	s := NewSynthesizer(completer, tax, nil)

	out := s.Synthesize(context.Background(), "outage", models.ScoreVector{}, classify(t, tax, "outage"))
	if out.Summary != "The model ignored the requested format entirely." {
		t.Fatalf("summary = %q, want whole raw output", out.Summary)
	}
	if out.Recommendation != genericRecommendation {
		t.Fatalf("recommendation = %q, want generic fallback", out.Recommendation)
	}
}

func TestSynthesizeFallsBackOnCompleterError(t *testing.T) {
	tax := synthTaxonomy(t)
	completer := &stubCompleter{enabled: true, err: errors.New("rate limited")}
	s := NewSynthesizer(completer, tax, nil)

	out := s.Synthesize(context.Background(), "breach", models.ScoreVector{}, classify(t, tax, "breach"))
	if out.Summary == "" || out.Recommendation == "" {
		t.Fatalf("fallback produced empty output: %+v", out)
	}
	if !strings.Contains(out.Summary, "compliance risk") {
		t.Fatalf("summary = %q, want deterministic compliance wording", out.Summary)
	}
}

func TestSynthesizeDisabledCompleterNotCalled(t *testing.T) {
	tax := synthTaxonomy(t)
	completer := &stubCompleter{enabled: false}
	s := NewSynthesizer(completer, tax, nil)
	s.Synthesize(context.Background(), "outage", models.ScoreVector{}, classify(t, tax, "outage"))
	if completer.calls != 0 {
		t.Fatalf("disabled completer was invoked %d times", completer.calls)
	}
}

func TestDeterministicSeverityBoundaries(t *testing.T) {
	tax := synthTaxonomy(t)
	s := NewSynthesizer(nil, tax, nil)

	cases := []struct {
		score          float64
		wantSeverity   string
		wantRecWording string
	}{
		{0.6, "high", "Escalate immediately"},
		{0.5999, "moderate", "within 24 hours"},
		{0.3, "moderate", "within 24 hours"},
		{0.2999, "low", "no immediate action"},
	}
	for _, tc := range cases {
		rc := models.RiskClassification{
			CategoryScores: map[string]float64{"operational": tc.score, "compliance": 0},
			MatchedKeywords: map[string][]string{
				"operational": {"outage"},
				"compliance":  {},
			},
		}
		out := s.Deterministic("content", models.ScoreVector{}, rc)
		if !strings.Contains(out.Summary, tc.wantSeverity) {
			t.Fatalf("score %v: summary %q missing severity %q", tc.score, out.Summary, tc.wantSeverity)
		}
		if !strings.Contains(out.Recommendation, tc.wantRecWording) {
			t.Fatalf("score %v: recommendation %q missing %q", tc.score, out.Recommendation, tc.wantRecWording)
		}
	}
}

func TestDeterministicNoKeywords(t *testing.T) {
	tax := synthTaxonomy(t)
	s := NewSynthesizer(nil, tax, nil)
	rc := classify(t, tax, "quiet day")
	out := s.Deterministic("quiet day", models.ScoreVector{}, rc)
	if !strings.Contains(out.Summary, "No risk keywords were detected") {
		t.Fatalf("summary = %q, want no-keywords wording", out.Summary)
	}
	if !strings.Contains(out.Recommendation, "no immediate action") {
		t.Fatalf("recommendation = %q, want low-urgency wording", out.Recommendation)
	}
}

func TestDeterministicTieBreaksByTaxonomyOrder(t *testing.T) {
	tax := synthTaxonomy(t)
	s := NewSynthesizer(nil, tax, nil)
	rc := models.RiskClassification{
		CategoryScores: map[string]float64{"operational": 0.6, "compliance": 0.6},
		MatchedKeywords: map[string][]string{
			"operational": {"outage"},
			"compliance":  {"breach"},
		},
	}
	for i := 0; i < 20; i++ {
		out := s.Deterministic("content", models.ScoreVector{}, rc)
		if !strings.Contains(out.Summary, "operational risk") {
			t.Fatalf("tie not broken to operational: %q", out.Summary)
		}
	}
}
