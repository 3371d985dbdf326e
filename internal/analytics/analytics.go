// Package analytics computes aggregate performance metrics over the
// transaction ledger.
//
// No real fraud labels exist in this system, so precision/recall-style
// metrics are computed against a stand-in proxy: a DECLINE decision is
// treated as presumed fraud, and FLAG/DECLINE as positive predictions.
// This is a documented approximation, kept until investigation outcomes
// can feed real labels back.
package analytics

import (
	"context"
	"math"
	"time"

	"github.com/paymentmate/paymentmate/internal/scoring"
)

// LedgerReader is the read surface the aggregator needs.
type LedgerReader interface {
	Snapshot(ctx context.Context) ([]*scoring.ScoredTransaction, error)
}

// Snapshot holds aggregate counts and derived statistics at a point in
// time. A snapshot over an empty ledger is all zeros, never NaN.
type Snapshot struct {
	TotalTransactions int     `json:"total_transactions"`
	AllowedCount      int     `json:"allowed_count"`
	FlaggedCount      int     `json:"flagged_count"`
	DeclinedCount     int     `json:"declined_count"`
	Precision         float64 `json:"precision"`
	Recall            float64 `json:"recall"`
	F1Score           float64 `json:"f1_score"`
	AverageScore      float64 `json:"average_score"`
	// LossesPrevented is the sum of amounts for declined transactions.
	LossesPrevented   float64   `json:"losses_prevented"`
	FalsePositiveRate float64   `json:"false_positive_rate"`
	ComputedAt        time.Time `json:"timestamp"`
}

// Aggregator computes statistics fresh from a ledger snapshot on every
// call, so results always equal a recomputation over current contents.
type Aggregator struct {
	ledger LedgerReader
}

// NewAggregator creates an aggregator over the given ledger.
func NewAggregator(ledger LedgerReader) *Aggregator {
	return &Aggregator{ledger: ledger}
}

// Compute reads the ledger and derives the current metrics snapshot.
// Calling it twice without intervening appends yields identical results
// (apart from ComputedAt).
func (a *Aggregator) Compute(ctx context.Context) (*Snapshot, error) {
	entries, err := a.ledger.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{ComputedAt: time.Now().UTC()}

	var scoreSum float64
	for _, txn := range entries {
		snap.TotalTransactions++
		scoreSum += txn.Score

		switch txn.Decision {
		case scoring.DecisionAllow:
			snap.AllowedCount++
		case scoring.DecisionFlag:
			snap.FlaggedCount++
		case scoring.DecisionDecline:
			snap.DeclinedCount++
			snap.LossesPrevented += txn.Input.Amount
		}
	}

	// Proxy confusion matrix: presumed fraud = DECLINE, predicted
	// positive = FLAG or DECLINE. Every presumed fraud was predicted
	// positive, so FN is structurally zero under this proxy.
	tp := snap.DeclinedCount
	fp := snap.FlaggedCount
	tn := snap.AllowedCount

	snap.Precision = round4(ratio(tp, tp+fp))
	snap.Recall = round4(ratio(tp, tp)) // TP / (TP + FN), FN = 0
	snap.F1Score = round4(f1(snap.Precision, snap.Recall))
	snap.FalsePositiveRate = round4(ratio(fp, fp+tn))
	snap.AverageScore = round4(ratio64(scoreSum, float64(snap.TotalTransactions)))
	snap.LossesPrevented = round2(snap.LossesPrevented)

	return snap, nil
}

// ratio returns a/b as a float, and 0 when b is 0.
func ratio(a, b int) float64 {
	if b == 0 {
		return 0
	}
	return float64(a) / float64(b)
}

func ratio64(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}

// f1 is the harmonic mean of precision and recall, 0 when both are 0.
func f1(precision, recall float64) float64 {
	if precision+recall == 0 {
		return 0
	}
	return 2 * precision * recall / (precision + recall)
}

func round2(x float64) float64 { return math.Round(x*100) / 100 }
func round4(x float64) float64 { return math.Round(x*10000) / 10000 }
