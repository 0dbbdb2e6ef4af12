package history

import (
	"sort"

	"github.com/sentinelstack/risk-engine/internal/models"
	"github.com/sentinelstack/risk-engine/internal/retrieval"
	"github.com/sentinelstack/risk-engine/internal/semantics"
)

// CategoryStat aggregates keyword hits for one taxonomy category across a
// set of historical events.
type CategoryStat struct {
	Category    string   `json:"category"`
	EventsHit   int      `json:"events_hit"`
	Prevalence  float64  `json:"prevalence"`
	TopKeywords []string `json:"top_keywords"`
}

// Stats summarizes risk signal distribution over a candidate pool.
type Stats struct {
	TotalEvents int            `json:"total_events"`
	Categories  []CategoryStat `json:"categories"`
}

// Aggregate classifies every pool entry and reports per-category hit counts
// and the most frequent keywords, ordered by prevalence. Deterministic for a
// given pool; ties order alphabetically.
func Aggregate(classifier *semantics.Classifier, pool []retrieval.Candidate) Stats {
	stats := Stats{TotalEvents: len(pool)}
	if len(pool) == 0 {
		return stats
	}

	classifications := make([]models.RiskClassification, 0, len(pool))
	for _, c := range pool {
		classifications = append(classifications, classifier.Classify(c.Content))
	}

	// First classification carries the full category set.
	for category := range classifications[0].CategoryScores {
		hit := 0
		keywordCounts := make(map[string]int)
		for _, rc := range classifications {
			matches := rc.MatchedKeywords[category]
			if len(matches) > 0 {
				hit++
			}
			for _, kw := range matches {
				keywordCounts[kw]++
			}
		}
		stats.Categories = append(stats.Categories, CategoryStat{
			Category:    category,
			EventsHit:   hit,
			Prevalence:  float64(hit) / float64(len(pool)),
			TopKeywords: topKeywords(keywordCounts, 3),
		})
	}

	sort.SliceStable(stats.Categories, func(i, j int) bool {
		if stats.Categories[i].Prevalence != stats.Categories[j].Prevalence {
			return stats.Categories[i].Prevalence > stats.Categories[j].Prevalence
		}
		return stats.Categories[i].Category < stats.Categories[j].Category
	})

	return stats
}

func topKeywords(counts map[string]int, limit int) []string {
	keywords := make([]string, 0, len(counts))
	for kw := range counts {
		keywords = append(keywords, kw)
	}
	sort.Slice(keywords, func(i, j int) bool {
		if counts[keywords[i]] != counts[keywords[j]] {
			return counts[keywords[i]] > counts[keywords[j]]
		}
		return keywords[i] < keywords[j]
	})
	if len(keywords) > limit {
		keywords = keywords[:limit]
	}
	return keywords
}
