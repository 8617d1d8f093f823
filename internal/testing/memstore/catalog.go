package memstore

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/coincraft/coincraft/internal/activities"
	"github.com/coincraft/coincraft/internal/catalog"
	"github.com/coincraft/coincraft/internal/shared"
)

// ListItems implements catalog.RepositoryPort.
func (s *Store) ListItems(_ context.Context, availableOnly bool) ([]catalog.ShopItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []catalog.ShopItem
	for _, it := range s.data.items {
		if availableOnly && !it.Available {
			continue
		}
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Price == out[j].Price {
			return out[i].Name < out[j].Name
		}
		return out[i].Price < out[j].Price
	})
	return out, nil
}

// GetItem implements catalog.RepositoryPort.
func (s *Store) GetItem(_ context.Context, id uuid.UUID) (catalog.ShopItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	it, ok := s.data.items[id]
	if !ok {
		return catalog.ShopItem{}, fmt.Errorf("shop item: %w", shared.ErrNotFound)
	}
	return it, nil
}

// InsertItem implements catalog.RepositoryPort.
func (s *Store) InsertItem(_ context.Context, it catalog.ShopItem) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.data.items {
		if existing.Name == it.Name {
			return false, nil
		}
	}
	s.data.items[it.ID] = it
	return true, nil
}

// SetItemAvailable toggles an item's availability.
func (s *Store) SetItemAvailable(id uuid.UUID, available bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it := s.data.items[id]
	it.Available = available
	s.data.items[id] = it
}

// GetModule implements catalog.RepositoryPort.
func (s *Store) GetModule(_ context.Context, id uuid.UUID) (catalog.Module, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.data.modules[id]
	if !ok {
		return catalog.Module{}, fmt.Errorf("module: %w", shared.ErrNotFound)
	}
	return m, nil
}

// ListModules implements catalog.RepositoryPort.
func (s *Store) ListModules(_ context.Context, publishedOnly bool) ([]catalog.Module, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []catalog.Module
	for _, m := range s.data.modules {
		if publishedOnly && !m.IsPublished {
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// InsertModule implements catalog.RepositoryPort.
func (s *Store) InsertModule(_ context.Context, m catalog.Module) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.modules[m.ID] = m
	return nil
}

// InsertOwned implements catalog.RepositoryPort.
func (s *Store) InsertOwned(_ context.Context, o catalog.OwnedItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.owned = append(s.data.owned, o)
	return nil
}

// ListOwned implements catalog.RepositoryPort.
func (s *Store) ListOwned(_ context.Context, ownerID uuid.UUID) ([]catalog.OwnedItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []catalog.OwnedItem
	for i := len(s.data.owned) - 1; i >= 0; i-- {
		if s.data.owned[i].OwnerID == ownerID {
			out = append(out, s.data.owned[i])
		}
	}
	return out, nil
}

// InsertProgress implements activities.RepositoryPort.
func (s *Store) InsertProgress(_ context.Context, p activities.Progress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := progressKey{p.ActorID, p.ModuleID}
	if _, ok := s.data.progress[key]; ok {
		return activities.ErrAlreadyCompleted
	}
	s.data.progress[key] = p
	return nil
}

// GetProgress implements activities.RepositoryPort.
func (s *Store) GetProgress(_ context.Context, actorID, moduleID uuid.UUID) (activities.Progress, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.data.progress[progressKey{actorID, moduleID}]
	return p, ok, nil
}

// ListProgress implements activities.RepositoryPort.
func (s *Store) ListProgress(_ context.Context, actorID uuid.UUID) ([]activities.Progress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []activities.Progress
	for _, p := range s.data.progress {
		if p.ActorID == actorID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CompletedAt.After(out[j].CompletedAt) })
	return out, nil
}
