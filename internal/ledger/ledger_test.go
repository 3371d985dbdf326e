package ledger

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paymentmate/paymentmate/internal/scoring"
)

func newTxn(i int, decision scoring.Decision) *scoring.ScoredTransaction {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &scoring.ScoredTransaction{
		ID: fmt.Sprintf("txn_%06d", i),
		Input: scoring.TransactionInput{
			UserID:     int64(100 + i),
			Amount:     float64(10 * (i + 1)),
			MerchantID: "merch_abc",
			Timestamp:  base.Add(time.Duration(i) * time.Second),
		},
		Score:     0.5,
		Decision:  decision,
		CreatedAt: base.Add(time.Duration(i) * time.Second),
	}
}

func TestAppendAndHistoryNewestFirst(t *testing.T) {
	l := New(NewMemoryStore(10))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, l.Append(ctx, newTxn(i, scoring.DecisionAllow)))
	}

	items, err := l.History(ctx, "", 20)
	require.NoError(t, err)
	require.Len(t, items, 5)

	// Newest first
	assert.Equal(t, "txn_000004", items[0].ID)
	assert.Equal(t, "txn_000000", items[4].ID)
}

func TestAppendNil(t *testing.T) {
	l := New(NewMemoryStore(10))
	err := l.Append(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNilTransaction)
}

func TestEvictionAtCapacity(t *testing.T) {
	l := New(NewMemoryStore(3))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, l.Append(ctx, newTxn(i, scoring.DecisionAllow)))
	}

	total, _, err := l.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, total)

	items, err := l.History(ctx, "", 20)
	require.NoError(t, err)
	require.Len(t, items, 3)

	// Oldest two evicted, remaining ordered newest first
	assert.Equal(t, "txn_000004", items[0].ID)
	assert.Equal(t, "txn_000003", items[1].ID)
	assert.Equal(t, "txn_000002", items[2].ID)
}

func TestHistoryDecisionFilter(t *testing.T) {
	l := New(NewMemoryStore(100))
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		decision := scoring.DecisionAllow
		if i%5 == 0 {
			decision = scoring.DecisionFlag
		}
		require.NoError(t, l.Append(ctx, newTxn(i, decision)))
	}

	flagged, err := l.History(ctx, scoring.DecisionFlag, 100)
	require.NoError(t, err)
	require.Len(t, flagged, 5)
	for _, txn := range flagged {
		assert.Equal(t, scoring.DecisionFlag, txn.Decision)
	}

	all, err := l.History(ctx, "", 100)
	require.NoError(t, err)
	assert.Len(t, all, 25)
}

func TestHistoryLimitNormalization(t *testing.T) {
	l := New(NewMemoryStore(200))
	ctx := context.Background()

	for i := 0; i < 150; i++ {
		require.NoError(t, l.Append(ctx, newTxn(i, scoring.DecisionAllow)))
	}

	items, err := l.History(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, items, DefaultQueryLimit)

	items, err = l.History(ctx, "", -3)
	require.NoError(t, err)
	assert.Len(t, items, DefaultQueryLimit)

	items, err = l.History(ctx, "", 500)
	require.NoError(t, err)
	assert.Len(t, items, MaxQueryLimit)
}

func TestHistoryPageCursor(t *testing.T) {
	l := New(NewMemoryStore(100))
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		require.NoError(t, l.Append(ctx, newTxn(i, scoring.DecisionAllow)))
	}

	first, cursor, hasMore, err := l.HistoryPage(ctx, "", 3, "")
	require.NoError(t, err)
	require.Len(t, first, 3)
	assert.True(t, hasMore)
	require.NotEmpty(t, cursor)
	assert.Equal(t, "txn_000006", first[0].ID)
	assert.Equal(t, "txn_000004", first[2].ID)

	second, cursor, hasMore, err := l.HistoryPage(ctx, "", 3, cursor)
	require.NoError(t, err)
	require.Len(t, second, 3)
	assert.True(t, hasMore)
	assert.Equal(t, "txn_000003", second[0].ID)
	assert.Equal(t, "txn_000001", second[2].ID)

	third, cursor, hasMore, err := l.HistoryPage(ctx, "", 3, cursor)
	require.NoError(t, err)
	require.Len(t, third, 1)
	assert.False(t, hasMore)
	assert.Empty(t, cursor)
	assert.Equal(t, "txn_000000", third[0].ID)
}

func TestHistoryPageBadCursor(t *testing.T) {
	l := New(NewMemoryStore(10))
	_, _, _, err := l.HistoryPage(context.Background(), "", 10, "not-a-cursor")
	assert.Error(t, err)
}

func TestStatsByDecision(t *testing.T) {
	l := New(NewMemoryStore(100))
	ctx := context.Background()

	decisions := []scoring.Decision{
		scoring.DecisionAllow, scoring.DecisionAllow, scoring.DecisionAllow,
		scoring.DecisionFlag, scoring.DecisionFlag,
		scoring.DecisionDecline,
	}
	for i, d := range decisions {
		require.NoError(t, l.Append(ctx, newTxn(i, d)))
	}

	total, byDecision, err := l.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 6, total)
	assert.Equal(t, 3, byDecision[scoring.DecisionAllow])
	assert.Equal(t, 2, byDecision[scoring.DecisionFlag])
	assert.Equal(t, 1, byDecision[scoring.DecisionDecline])
}

func TestStatsEmpty(t *testing.T) {
	l := New(NewMemoryStore(10))

	total, byDecision, err := l.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, total)
	assert.Equal(t, 0, byDecision[scoring.DecisionAllow])
	assert.Equal(t, 0, byDecision[scoring.DecisionFlag])
	assert.Equal(t, 0, byDecision[scoring.DecisionDecline])
}

func TestClear(t *testing.T) {
	l := New(NewMemoryStore(10))
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		require.NoError(t, l.Append(ctx, newTxn(i, scoring.DecisionAllow)))
	}
	require.NoError(t, l.Clear(ctx))

	total, _, err := l.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, total)

	// Ledger keeps working after a clear
	require.NoError(t, l.Append(ctx, newTxn(9, scoring.DecisionFlag)))
	items, err := l.History(ctx, "", 20)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "txn_000009", items[0].ID)
}

func TestStoredEntriesAreImmutable(t *testing.T) {
	l := New(NewMemoryStore(10))
	ctx := context.Background()

	txn := newTxn(0, scoring.DecisionAllow)
	txn.Explanation = &scoring.Explanation{
		TopFeatures: []scoring.FeatureContribution{
			{Feature: "transaction_amount", Weight: 0.3, Polarity: scoring.PolarityFraud},
		},
		Threshold:    0.7,
		ModelVersion: scoring.ModelVersion,
	}
	require.NoError(t, l.Append(ctx, txn))

	// Mutating the caller's copy must not affect the stored entry
	txn.Score = 0.99
	txn.Explanation.TopFeatures[0].Weight = 0.9

	items, err := l.History(ctx, "", 1)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 0.5, items[0].Score)
	assert.Equal(t, 0.3, items[0].Explanation.TopFeatures[0].Weight)

	// Mutating a returned entry must not affect later reads
	items[0].Score = 0.01
	again, err := l.History(ctx, "", 1)
	require.NoError(t, err)
	assert.Equal(t, 0.5, again[0].Score)
}

func TestSnapshotReturnsEverything(t *testing.T) {
	l := New(NewMemoryStore(50))
	ctx := context.Background()

	for i := 0; i < 30; i++ {
		require.NoError(t, l.Append(ctx, newTxn(i, scoring.DecisionAllow)))
	}

	all, err := l.Snapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 30)
}

func TestConcurrentAppends(t *testing.T) {
	l := New(NewMemoryStore(1000))
	ctx := context.Background()

	done := make(chan struct{})
	for w := 0; w < 8; w++ {
		go func(w int) {
			defer func() { done <- struct{}{} }()
			for i := 0; i < 50; i++ {
				_ = l.Append(ctx, newTxn(w*50+i, scoring.DecisionAllow))
			}
		}(w)
	}
	for w := 0; w < 8; w++ {
		<-done
	}

	total, _, err := l.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 400, total)
}
