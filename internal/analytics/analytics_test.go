package analytics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paymentmate/paymentmate/internal/scoring"
)

type fakeLedger struct {
	entries []*scoring.ScoredTransaction
}

func (f *fakeLedger) Snapshot(ctx context.Context) ([]*scoring.ScoredTransaction, error) {
	return f.entries, nil
}

func txnWith(decision scoring.Decision, score, amount float64) *scoring.ScoredTransaction {
	return &scoring.ScoredTransaction{
		ID:        "txn_test",
		Input:     scoring.TransactionInput{UserID: 1, Amount: amount, MerchantID: "M"},
		Score:     score,
		Decision:  decision,
		CreatedAt: time.Now().UTC(),
	}
}

func TestComputeEmptyLedger(t *testing.T) {
	agg := NewAggregator(&fakeLedger{})

	snap, err := agg.Compute(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, snap.TotalTransactions)
	assert.Zero(t, snap.Precision)
	assert.Zero(t, snap.Recall)
	assert.Zero(t, snap.F1Score)
	assert.Zero(t, snap.AverageScore)
	assert.Zero(t, snap.LossesPrevented)
	assert.Zero(t, snap.FalsePositiveRate)
	assert.False(t, snap.ComputedAt.IsZero())
}

func TestComputeCountsAndProxyMetrics(t *testing.T) {
	ledger := &fakeLedger{entries: []*scoring.ScoredTransaction{
		txnWith(scoring.DecisionAllow, 0.10, 25),
		txnWith(scoring.DecisionAllow, 0.30, 40),
		txnWith(scoring.DecisionFlag, 0.75, 600),
		txnWith(scoring.DecisionDecline, 0.95, 5000),
		txnWith(scoring.DecisionDecline, 0.92, 1500),
	}}
	agg := NewAggregator(ledger)

	snap, err := agg.Compute(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5, snap.TotalTransactions)
	assert.Equal(t, 2, snap.AllowedCount)
	assert.Equal(t, 1, snap.FlaggedCount)
	assert.Equal(t, 2, snap.DeclinedCount)

	// Proxy: TP=2 (declined), FP=1 (flagged), TN=2 (allowed), FN=0
	assert.InDelta(t, 2.0/3.0, snap.Precision, 0.0001)
	assert.InDelta(t, 1.0, snap.Recall, 0.0001)
	f1 := 2 * snap.Precision * snap.Recall / (snap.Precision + snap.Recall)
	assert.InDelta(t, f1, snap.F1Score, 0.001)
	assert.InDelta(t, 1.0/3.0, snap.FalsePositiveRate, 0.0001)

	assert.InDelta(t, (0.10+0.30+0.75+0.95+0.92)/5, snap.AverageScore, 0.0001)
	assert.InDelta(t, 6500.0, snap.LossesPrevented, 0.001)
}

func TestComputeIdempotentBetweenAppends(t *testing.T) {
	ledger := &fakeLedger{entries: []*scoring.ScoredTransaction{
		txnWith(scoring.DecisionFlag, 0.8, 700),
	}}
	agg := NewAggregator(ledger)

	first, err := agg.Compute(context.Background())
	require.NoError(t, err)
	second, err := agg.Compute(context.Background())
	require.NoError(t, err)

	first.ComputedAt = second.ComputedAt
	assert.Equal(t, first, second)
}

func TestComputeOnlyDeclinesCountAsPrevented(t *testing.T) {
	ledger := &fakeLedger{entries: []*scoring.ScoredTransaction{
		txnWith(scoring.DecisionAllow, 0.1, 10000),
		txnWith(scoring.DecisionFlag, 0.8, 10000),
		txnWith(scoring.DecisionDecline, 0.95, 123.45),
	}}
	agg := NewAggregator(ledger)

	snap, err := agg.Compute(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 123.45, snap.LossesPrevented, 0.001)
}

func TestMetricsEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)

	ledger := &fakeLedger{entries: []*scoring.ScoredTransaction{
		txnWith(scoring.DecisionDecline, 0.95, 500),
	}}
	handler := NewHandler(NewAggregator(ledger))

	router := gin.New()
	handler.RegisterRoutes(router.Group("/api/v1"))

	req := httptest.NewRequest("GET", "/api/v1/data/metrics", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total_transactions":1`)
	assert.Contains(t, w.Body.String(), `"losses_prevented":500`)
}
