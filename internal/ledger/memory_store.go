package ledger

import (
	"context"
	"sync"

	"github.com/paymentmate/paymentmate/internal/scoring"
)

// MemoryStore is a bounded in-memory ring buffer of scored transactions.
// Appends are O(1); once full, the oldest entry is overwritten. All
// methods return copies so stored entries stay immutable.
type MemoryStore struct {
	mu       sync.RWMutex
	entries  []*scoring.ScoredTransaction
	head     int // next write position once the ring has wrapped
	full     bool
	capacity int
}

// NewMemoryStore creates a ring buffer with the given capacity.
// Non-positive capacities fall back to DefaultCapacity.
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &MemoryStore{
		entries:  make([]*scoring.ScoredTransaction, 0, capacity),
		capacity: capacity,
	}
}

func (s *MemoryStore) Append(ctx context.Context, txn *scoring.ScoredTransaction) error {
	entry := copyTxn(txn)

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.full {
		s.entries = append(s.entries, entry)
		if len(s.entries) == s.capacity {
			s.full = true
		}
		return nil
	}

	// Ring is full: overwrite the oldest slot
	s.entries[s.head] = entry
	s.head = (s.head + 1) % s.capacity
	return nil
}

func (s *MemoryStore) Matching(ctx context.Context, filter scoring.Decision) ([]*scoring.ScoredTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*scoring.ScoredTransaction, 0, len(s.entries))
	for i := len(s.entries) - 1; i >= 0; i-- {
		e := s.entries[s.index(i)]
		if filter != "" && e.Decision != filter {
			continue
		}
		result = append(result, copyTxn(e))
	}
	return result, nil
}

func (s *MemoryStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}

func (s *MemoryStore) CountByDecision(ctx context.Context) (map[scoring.Decision]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := map[scoring.Decision]int{
		scoring.DecisionAllow:   0,
		scoring.DecisionFlag:    0,
		scoring.DecisionDecline: 0,
	}
	for _, e := range s.entries {
		counts[e.Decision]++
	}
	return counts, nil
}

func (s *MemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = s.entries[:0]
	s.head = 0
	s.full = false
	return nil
}

// index maps logical position i (0 = oldest) to a slot in the ring.
func (s *MemoryStore) index(i int) int {
	if !s.full {
		return i
	}
	return (s.head + i) % s.capacity
}

// copyTxn deep-copies a transaction so callers cannot mutate stored state.
func copyTxn(txn *scoring.ScoredTransaction) *scoring.ScoredTransaction {
	cp := *txn
	if txn.Explanation != nil {
		exp := *txn.Explanation
		exp.TopFeatures = make([]scoring.FeatureContribution, len(txn.Explanation.TopFeatures))
		copy(exp.TopFeatures, txn.Explanation.TopFeatures)
		cp.Explanation = &exp
	}
	return &cp
}
