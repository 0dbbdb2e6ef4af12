package scoring

import (
	"math/rand/v2"
	"unicode/utf8"

	"github.com/sentinelstack/risk-engine/internal/models"
)

// DefaultMaxContentLength is the content length at which signal strength
// saturates at 1.0.
const DefaultMaxContentLength = 1000

// RarityEstimator estimates how rare an event of this shape is against
// historical data.
type RarityEstimator interface {
	EstimateRarity(content string) float64
}

// TrendEstimator estimates how quickly events like this one are accelerating.
type TrendEstimator interface {
	EstimateTrend(content string) float64
}

// CrossSourceEstimator estimates how broadly this event is echoed across
// ingestion sources.
type CrossSourceEstimator interface {
	EstimateCrossSource(content string) float64
}

// Scorer derives the quantitative score vector from raw text. Signal strength
// and uncertainty are pure functions of content length; the remaining three
// dimensions come from the injected estimators.
type Scorer struct {
	maxContentLength int
	rarity           RarityEstimator
	trend            TrendEstimator
	crossSource      CrossSourceEstimator
}

// NewScorer constructs a Scorer. Zero maxContentLength falls back to the
// default; nil estimators fall back to the uniform-random stand-ins.
func NewScorer(maxContentLength int, rarity RarityEstimator, trend TrendEstimator, crossSource CrossSourceEstimator) *Scorer {
	if maxContentLength <= 0 {
		maxContentLength = DefaultMaxContentLength
	}
	if rarity == nil {
		rarity = UniformEstimator{Lo: 0.3, Hi: 0.8}
	}
	if trend == nil {
		trend = UniformEstimator{Lo: 0, Hi: 1}
	}
	if crossSource == nil {
		crossSource = UniformEstimator{Lo: 0, Hi: 1}
	}
	return &Scorer{
		maxContentLength: maxContentLength,
		rarity:           rarity,
		trend:            trend,
		crossSource:      crossSource,
	}
}

// Score computes the score vector for the given content. Content length is
// measured in characters, not bytes, so multibyte text is not penalized.
// Empty content is valid and yields zero signal strength. Never blocks.
func (s *Scorer) Score(content string) models.ScoreVector {
	signal := float64(utf8.RuneCountInString(content)) / float64(s.maxContentLength)
	if signal > 1 {
		signal = 1
	}

	return models.ScoreVector{
		SignalStrength:      signal,
		HistoricalRarity:    s.rarity.EstimateRarity(content),
		TrendAcceleration:   s.trend.EstimateTrend(content),
		CrossSourcePresence: s.crossSource.EstimateCrossSource(content),
		Uncertainty:         1 - signal,
	}
}

// UniformEstimator draws estimates from a uniform distribution over [Lo, Hi].
// It is a stand-in for real historical statistics; replace it by implementing
// the estimator interfaces against an actual history source.
type UniformEstimator struct {
	Lo float64
	Hi float64
}

func (u UniformEstimator) sample() float64 {
	return u.Lo + rand.Float64()*(u.Hi-u.Lo)
}

func (u UniformEstimator) EstimateRarity(string) float64      { return u.sample() }
func (u UniformEstimator) EstimateTrend(string) float64       { return u.sample() }
func (u UniformEstimator) EstimateCrossSource(string) float64 { return u.sample() }

// FixedEstimator always returns the same value. Useful for deterministic
// tests and as a neutral default when history is unavailable.
type FixedEstimator struct {
	Value float64
}

func (f FixedEstimator) EstimateRarity(string) float64      { return f.Value }
func (f FixedEstimator) EstimateTrend(string) float64       { return f.Value }
func (f FixedEstimator) EstimateCrossSource(string) float64 { return f.Value }
