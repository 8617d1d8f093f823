package memstore

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/coincraft/coincraft/internal/ledger"
	"github.com/coincraft/coincraft/internal/shared"
)

// InsertEntry implements ledger.RepositoryPort.
func (s *Store) InsertEntry(_ context.Context, e ledger.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.IdempotencyKey != "" {
		for _, existing := range s.data.entries {
			if existing.ActorID == e.ActorID && existing.IdempotencyKey == e.IdempotencyKey {
				return fmt.Errorf("%w: idempotency key %q already used", shared.ErrConflict, e.IdempotencyKey)
			}
		}
	}
	s.data.entries = append(s.data.entries, e)
	return nil
}

// GetEntry implements ledger.RepositoryPort.
func (s *Store) GetEntry(_ context.Context, id uuid.UUID) (ledger.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.data.entries {
		if e.ID == id {
			return e, nil
		}
	}
	return ledger.Entry{}, fmt.Errorf("ledger entry: %w", shared.ErrNotFound)
}

// FindByIdempotencyKey implements ledger.RepositoryPort.
func (s *Store) FindByIdempotencyKey(_ context.Context, actorID uuid.UUID, key string) (ledger.Entry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.data.entries {
		if e.ActorID == actorID && e.IdempotencyKey == key {
			return e, true, nil
		}
	}
	return ledger.Entry{}, false, nil
}

// ListEntries implements ledger.RepositoryPort. Entries are returned newest
// first; equal timestamps keep reverse insertion order.
func (s *Store) ListEntries(_ context.Context, actorIDs []uuid.UUID, f ledger.Filter) ([]ledger.Entry, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	wanted := make(map[uuid.UUID]bool, len(actorIDs))
	for _, id := range actorIDs {
		wanted[id] = true
	}
	var matched []ledger.Entry
	for i := len(s.data.entries) - 1; i >= 0; i-- {
		e := s.data.entries[i]
		if wanted[e.ActorID] && f.Matches(e) {
			matched = append(matched, e)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	total := len(matched)
	if f.Offset >= total {
		return nil, total, nil
	}
	end := total
	if f.Limit > 0 && f.Offset+f.Limit < end {
		end = f.Offset + f.Limit
	}
	return matched[f.Offset:end], total, nil
}

// SumEntries implements ledger.RepositoryPort.
func (s *Store) SumEntries(_ context.Context, actorID uuid.UUID, f ledger.Filter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var sum int64
	for _, e := range s.data.entries {
		if e.ActorID == actorID && f.Matches(e) {
			sum += e.Amount
		}
	}
	return sum, nil
}

// Totals implements ledger.RepositoryPort.
func (s *Store) Totals(_ context.Context, actorID uuid.UUID) (ledger.Totals, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var t ledger.Totals
	for _, e := range s.data.entries {
		if e.ActorID != actorID {
			continue
		}
		switch e.Kind {
		case ledger.KindEarn:
			t.Earn += e.Amount
		case ledger.KindSpend:
			t.Spend += e.Amount
		case ledger.KindSave:
			t.Save += e.Amount
		}
	}
	return t, nil
}
