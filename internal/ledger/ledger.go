// Package ledger is the append-only record of scored transactions.
//
// The authoritative store is an in-memory ring buffer: appends are O(1),
// the oldest entries are evicted silently once capacity is reached, and
// entries are never mutated after insertion. An optional Postgres store
// can be attached as a durable audit copy; it is written best-effort and
// never blocks the scoring path.
package ledger

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/paymentmate/paymentmate/internal/metrics"
	"github.com/paymentmate/paymentmate/internal/pagination"
	"github.com/paymentmate/paymentmate/internal/scoring"
)

// Query limits for history reads.
const (
	DefaultQueryLimit = 20
	MaxQueryLimit     = 100
)

// DefaultCapacity is the ring buffer size when none is configured.
const DefaultCapacity = 1000

var ErrNilTransaction = errors.New("nil transaction")

// Store persists scored transactions in insertion order.
type Store interface {
	// Append records a transaction. Never fails on capacity; bounded
	// implementations evict the oldest entry instead.
	Append(ctx context.Context, txn *scoring.ScoredTransaction) error
	// Matching returns copies of stored entries newest-first, optionally
	// restricted to one decision ("" matches all).
	Matching(ctx context.Context, filter scoring.Decision) ([]*scoring.ScoredTransaction, error)
	// Count returns the number of stored entries.
	Count(ctx context.Context) (int, error)
	// CountByDecision returns per-decision entry counts.
	CountByDecision(ctx context.Context) (map[scoring.Decision]int, error)
	// Clear removes all entries. Destructive; callers guard access.
	Clear(ctx context.Context) error
}

// Ledger provides serialized access to the transaction record.
type Ledger struct {
	store  Store
	audit  Store // optional durable copy, best-effort
	logger *slog.Logger
}

// New creates a ledger over the given authoritative store.
func New(store Store) *Ledger {
	return &Ledger{store: store, logger: slog.Default()}
}

// WithAudit attaches a durable audit store. Audit writes happen
// asynchronously and failures are logged, not surfaced.
func (l *Ledger) WithAudit(audit Store) *Ledger {
	l.audit = audit
	return l
}

// WithLogger sets the logger used for audit-write failures.
func (l *Ledger) WithLogger(logger *slog.Logger) *Ledger {
	if logger != nil {
		l.logger = logger
	}
	return l
}

// Append records a scored transaction. Concurrent appends are serialized
// by the store so insertion order is a consistent global ordering.
func (l *Ledger) Append(ctx context.Context, txn *scoring.ScoredTransaction) error {
	if txn == nil {
		return ErrNilTransaction
	}
	if err := l.store.Append(ctx, txn); err != nil {
		return err
	}

	metrics.TransactionsScoredTotal.WithLabelValues(string(txn.Decision)).Inc()
	if n, err := l.store.Count(ctx); err == nil {
		metrics.LedgerSize.Set(float64(n))
	}

	if l.audit != nil {
		go func(copy scoring.ScoredTransaction) {
			if err := l.audit.Append(context.Background(), &copy); err != nil {
				l.logger.Warn("audit store append failed",
					"transaction_id", copy.ID,
					"error", err,
				)
			}
		}(*txn)
	}

	return nil
}

// History returns at most limit entries newest-first, optionally filtered
// by decision. Limits outside [1, MaxQueryLimit] are normalized.
func (l *Ledger) History(ctx context.Context, filter scoring.Decision, limit int) ([]*scoring.ScoredTransaction, error) {
	items, _, _, err := l.HistoryPage(ctx, filter, limit, "")
	return items, err
}

// HistoryPage returns a page of entries newest-first. cursor is an opaque
// token from a previous page ("" starts at the newest entry). Returns the
// page, the next cursor, and whether more entries remain.
func (l *Ledger) HistoryPage(ctx context.Context, filter scoring.Decision, limit int, cursor string) ([]*scoring.ScoredTransaction, string, bool, error) {
	limit = normalizeLimit(limit)

	cur, err := pagination.Decode(cursor)
	if err != nil {
		return nil, "", false, err
	}

	all, err := l.store.Matching(ctx, filter)
	if err != nil {
		return nil, "", false, err
	}

	// Skip entries at or after the cursor position (newest-first order)
	if cur != nil {
		start := 0
		for start < len(all) {
			e := all[start]
			if e.CreatedAt.Before(cur.CreatedAt) {
				break
			}
			start++
			if e.ID == cur.ID {
				break
			}
		}
		all = all[start:]
	}

	window := all
	if len(window) > limit+1 {
		window = window[:limit+1]
	}

	items, next, hasMore := pagination.ComputePage(window, limit, func(t *scoring.ScoredTransaction) (time.Time, string) {
		return t.CreatedAt, t.ID
	})
	return items, next, hasMore, nil
}

// Stats returns the total entry count and per-decision counts.
func (l *Ledger) Stats(ctx context.Context) (int, map[scoring.Decision]int, error) {
	total, err := l.store.Count(ctx)
	if err != nil {
		return 0, nil, err
	}
	byDecision, err := l.store.CountByDecision(ctx)
	if err != nil {
		return 0, nil, err
	}
	return total, byDecision, nil
}

// Snapshot returns a consistent newest-first copy of every entry, for
// aggregate metric computation.
func (l *Ledger) Snapshot(ctx context.Context) ([]*scoring.ScoredTransaction, error) {
	return l.store.Matching(ctx, "")
}

// Clear removes all entries from the authoritative store. The audit copy,
// if any, is left intact. Destructive; exposed only behind admin guards.
func (l *Ledger) Clear(ctx context.Context) error {
	if err := l.store.Clear(ctx); err != nil {
		return err
	}
	metrics.LedgerSize.Set(0)
	return nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultQueryLimit
	}
	if limit > MaxQueryLimit {
		return MaxQueryLimit
	}
	return limit
}
