package scoring

import (
	"sort"
	"time"

	"github.com/paymentmate/paymentmate/internal/idgen"
)

// DefaultExplanationTopN caps how many feature contributions an
// explanation carries.
const DefaultExplanationTopN = 5

// Engine scores transactions and classifies them by threshold.
type Engine struct {
	flagThreshold    float64
	declineThreshold float64
	topN             int
}

// NewEngine creates a scoring engine with default thresholds.
func NewEngine() *Engine {
	return &Engine{
		flagThreshold:    DefaultFlagThreshold,
		declineThreshold: DefaultDeclineThreshold,
		topN:             DefaultExplanationTopN,
	}
}

// WithThresholds overrides the flag and decline thresholds.
// Callers must keep flag < decline; config validation enforces it.
func (e *Engine) WithThresholds(flag, decline float64) *Engine {
	e.flagThreshold = flag
	e.declineThreshold = decline
	return e
}

// WithExplanationTopN overrides how many contributions explanations keep.
func (e *Engine) WithExplanationTopN(n int) *Engine {
	if n > 0 {
		e.topN = n
	}
	return e
}

// FlagThreshold returns the configured flag threshold.
func (e *Engine) FlagThreshold() float64 { return e.flagThreshold }

// DeclineThreshold returns the configured decline threshold.
func (e *Engine) DeclineThreshold() float64 { return e.declineThreshold }

// Score evaluates a transaction and returns an immutable scored record.
// Pure in-memory computation, designed to run well under a millisecond.
// Score, decision, and explanation are bit-identical for identical
// inputs; only the generated ID and timestamps differ between calls.
func (e *Engine) Score(in *TransactionInput) *ScoredTransaction {
	start := time.Now()

	signals := ExtractSignals(in)

	var sum float64
	for _, s := range signals {
		sum += s.Weight
	}

	// Clamp to [0, 1], then round to 2 decimal places before deciding
	if sum > 1.0 {
		sum = 1.0
	}
	if sum < 0.0 {
		sum = 0.0
	}
	score := round2(sum)

	return &ScoredTransaction{
		ID:           idgen.WithPrefix("txn_"),
		Input:        *in,
		Score:        score,
		Decision:     e.Decide(score),
		Explanation:  e.explain(signals),
		CreatedAt:    start.UTC(),
		ProcessingMS: round3(float64(time.Since(start).Microseconds()) / 1000.0),
	}
}

// Decide maps a score to a decision. Boundaries belong to the higher
// bucket: [0, flag) allow, [flag, decline) flag, [decline, 1] decline.
func (e *Engine) Decide(score float64) Decision {
	switch {
	case score >= e.declineThreshold:
		return DecisionDecline
	case score >= e.flagThreshold:
		return DecisionFlag
	default:
		return DecisionAllow
	}
}

// explain ranks the signal set into an explanation. The weights are the
// exact per-signal contributions the score was summed from, not an
// independent recomputation.
func (e *Engine) explain(signals []Signal) *Explanation {
	contributions := make([]FeatureContribution, 0, len(signals))
	for _, s := range signals {
		polarity := PolarityLegitimate
		if s.Weight > 0 {
			polarity = PolarityFraud
		}
		contributions = append(contributions, FeatureContribution{
			Feature:  s.Name,
			Value:    s.Value,
			Weight:   round3(s.Weight),
			Polarity: polarity,
		})
	}

	// Descending by |weight|; SliceStable keeps extraction order on ties
	sort.SliceStable(contributions, func(i, j int) bool {
		wi, wj := contributions[i].Weight, contributions[j].Weight
		if wi < 0 {
			wi = -wi
		}
		if wj < 0 {
			wj = -wj
		}
		return wi > wj
	})

	if len(contributions) > e.topN {
		contributions = contributions[:e.topN]
	}

	return &Explanation{
		TopFeatures:  contributions,
		Threshold:    e.flagThreshold,
		ModelVersion: ModelVersion,
	}
}
