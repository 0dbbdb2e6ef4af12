package models

// ScoreVector is the fixed five-dimensional quantitative risk signal derived
// from raw event text. All values are in [0,1] and Uncertainty is always
// 1 - SignalStrength.
type ScoreVector struct {
	SignalStrength      float64 `json:"signal_strength"`
	HistoricalRarity    float64 `json:"historical_rarity"`
	TrendAcceleration   float64 `json:"trend_acceleration"`
	CrossSourcePresence float64 `json:"cross_source_presence"`
	Uncertainty         float64 `json:"uncertainty"`
}

// RiskClassification holds per-category risk scores and the keyword evidence
// behind them. Every category present in MatchedKeywords has an entry in
// CategoryScores; keyword lists preserve taxonomy order.
type RiskClassification struct {
	CategoryScores  map[string]float64  `json:"category_scores"`
	MatchedKeywords map[string][]string `json:"matched_keywords"`
}

// Explainability is the deterministic natural-language justification derived
// from a classification.
type Explainability struct {
	MatchedKeywords map[string][]string `json:"matched_keywords"`
	Reasoning       string              `json:"reasoning"`
}

// SimilarEvent is one ranked entry from the similarity retriever.
type SimilarEvent struct {
	ID         string  `json:"id"`
	Content    string  `json:"content"`
	Similarity float64 `json:"similarity"`
}

// Summary is the synthesizer output: a short narrative plus a single-sentence
// recommendation.
type Summary struct {
	Summary        string `json:"summary"`
	Recommendation string `json:"recommendation"`
}

// AnalysisResult aggregates everything the pipeline produced for one event.
// RiskScore is the maximum category score and TopCategory the category that
// carries it (first in taxonomy order on ties).
type AnalysisResult struct {
	Event          *Event             `json:"event"`
	Scores         ScoreVector        `json:"score_vector"`
	Classification RiskClassification `json:"classification"`
	Explainability Explainability     `json:"explainability"`
	SimilarEvents  []SimilarEvent     `json:"similar_events"`
	Summary        string             `json:"summary"`
	Recommendation string             `json:"recommendation"`
	TopCategory    string             `json:"top_category"`
	RiskScore      float64            `json:"risk_score"`
}

// RiskAlert is the fixed payload handed to the alert dispatcher when an
// event's risk score crosses the alert threshold.
type RiskAlert struct {
	EventID        string  `json:"event_id"`
	Content        string  `json:"content"`
	Source         string  `json:"source"`
	Summary        string  `json:"summary"`
	Recommendation string  `json:"recommendation"`
	RiskScore      float64 `json:"risk_score"`
}
