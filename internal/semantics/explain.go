package semantics

import (
	"fmt"
	"strings"

	"github.com/sentinelstack/risk-engine/internal/models"
	"github.com/sentinelstack/risk-engine/internal/taxonomy"
)

// NoIndicatorsReasoning is emitted when no category matched any keyword.
const NoIndicatorsReasoning = "No significant risk indicators detected."

// Explain turns classifier evidence into a deterministic human-readable
// justification. One sentence per category with matches, concatenated in
// taxonomy order; identical input always yields identical output.
func Explain(tax *taxonomy.Taxonomy, rc models.RiskClassification) models.Explainability {
	sentences := make([]string, 0, tax.Len())
	for _, name := range tax.Names() {
		matches := rc.MatchedKeywords[name]
		if len(matches) == 0 {
			continue
		}
		score := rc.CategoryScores[name]
		sentences = append(sentences, fmt.Sprintf(
			"%s risk is %s because keywords [%s] were detected.",
			titleCase(name), reasoningLevel(score), strings.Join(matches, ", "),
		))
	}

	reasoning := NoIndicatorsReasoning
	if len(sentences) > 0 {
		reasoning = strings.Join(sentences, " ")
	}

	return models.Explainability{
		MatchedKeywords: rc.MatchedKeywords,
		Reasoning:       reasoning,
	}
}

// reasoningLevel buckets a category score for the explanation text. These
// thresholds are specific to explainability wording and differ from the
// escalation thresholds used by the synthesizer.
func reasoningLevel(score float64) string {
	switch {
	case score >= 0.5:
		return "high"
	case score >= 0.25:
		return "moderate"
	default:
		return "low"
	}
}

func titleCase(name string) string {
	words := strings.Fields(strings.ReplaceAll(name, "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
