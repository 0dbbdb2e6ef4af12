package semantics

import (
	"math"
	"strings"

	"github.com/sentinelstack/risk-engine/internal/models"
	"github.com/sentinelstack/risk-engine/internal/taxonomy"
)

// Classifier matches event text against the keyword taxonomy to produce
// per-category risk scores and matched-term evidence. It holds no mutable
// state; classification is a pure function of (content, taxonomy).
type Classifier struct {
	tax *taxonomy.Taxonomy
}

// NewClassifier constructs a Classifier over the given taxonomy.
func NewClassifier(tax *taxonomy.Taxonomy) *Classifier {
	return &Classifier{tax: tax}
}

// Classify scores the content against every taxonomy category. Keyword
// matching is substring containment on the lower-cased text, so "leak"
// matches inside "leakage"; this is intentional and must stay compatible
// with the historical scoring data. Per-category score is
// matches/total keywords, rounded to 4 decimal digits, 0 when a category
// defines no keywords.
func (c *Classifier) Classify(content string) models.RiskClassification {
	lowered := strings.ToLower(content)

	scores := make(map[string]float64, c.tax.Len())
	matched := make(map[string][]string, c.tax.Len())

	for _, cat := range c.tax.Categories() {
		matches := make([]string, 0)
		for _, kw := range cat.Keywords {
			if kw != "" && strings.Contains(lowered, strings.ToLower(kw)) {
				matches = append(matches, kw)
			}
		}
		score := 0.0
		if len(cat.Keywords) > 0 {
			score = round4(float64(len(matches)) / float64(len(cat.Keywords)))
		}
		scores[cat.Name] = score
		matched[cat.Name] = matches
	}

	return models.RiskClassification{
		CategoryScores:  scores,
		MatchedKeywords: matched,
	}
}

// TopCategory returns the highest-scoring category and its score, breaking
// ties by taxonomy order. The boolean is false when the classification has
// no categories.
func (c *Classifier) TopCategory(rc models.RiskClassification) (string, float64, bool) {
	return TopCategory(c.tax, rc)
}

// TopCategory is the shared tie-break rule: maximum score, first category in
// taxonomy order wins ties.
func TopCategory(tax *taxonomy.Taxonomy, rc models.RiskClassification) (string, float64, bool) {
	top := ""
	best := 0.0
	found := false
	for _, name := range tax.Names() {
		score, ok := rc.CategoryScores[name]
		if !ok {
			continue
		}
		if !found || score > best {
			top = name
			best = score
			found = true
		}
	}
	return top, best, found
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
