package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/okian/motionplay/internal/domain/model"
	"github.com/okian/motionplay/pkg/metrics"
)

const defaultCapacity = 10_000

// MemoryStore is an in-memory, insertion-ordered Store.
type MemoryStore struct {
	mu       sync.RWMutex
	byID     map[string]model.SessionRecord
	order    []string // insertion order, oldest first
	capacity int
}

// NewMemoryStore creates an empty store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		byID:     make(map[string]model.SessionRecord),
		capacity: defaultCapacity,
	}
	for _, opt := range opts {
		opt(s)
	}
	metrics.UpdateRecordsStored(0)
	return s
}

// Put inserts or replaces a record. Replacing keeps the original position.
func (s *MemoryStore) Put(_ context.Context, r model.SessionRecord) error { //nolint:gocritic // hugeParam: stored by value
	if r.ID == "" {
		return ErrInvalidID
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[r.ID]; !ok {
		s.order = append(s.order, r.ID)
	}
	s.byID[r.ID] = r

	for len(s.order) > s.capacity {
		delete(s.byID, s.order[0])
		s.order = s.order[1:]
	}
	metrics.UpdateRecordsStored(len(s.byID))
	return nil
}

// Get returns the record for id.
func (s *MemoryStore) Get(_ context.Context, id string) (model.SessionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.byID[id]
	if !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return model.SessionRecord{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return r, nil
}

// List returns up to limit records, newest first.
func (s *MemoryStore) List(_ context.Context, limit int) ([]model.SessionRecord, error) {
	if limit <= 0 {
		metrics.RecordErrorByComponent("repository", "invalid_limit")
		return nil, ErrInvalidLimit
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := min(limit, len(s.order))
	out := make([]model.SessionRecord, 0, n)
	for i := len(s.order) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, s.byID[s.order[i]])
	}
	return out, nil
}

// Count returns the number of stored records.
func (s *MemoryStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// Stats summarises the stored records.
func (s *MemoryStore) Stats(_ context.Context) Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{
		Total:   len(s.byID),
		ByState: make(map[string]int),
		ByKind:  make(map[string]int),
	}
	for _, r := range s.byID {
		st.ByState[r.State.String()]++
		st.ByKind[string(r.Challenge.Kind)]++
		if r.Result != nil {
			st.Stars[min(max(r.Result.Stars, 0), 3)]++
			st.Coins += r.Result.Coins
		}
	}
	return st
}
