package memstore

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/coincraft/coincraft/internal/accounts"
	"github.com/coincraft/coincraft/internal/shared"
)

// CreateAccount implements accounts.RepositoryPort.
func (s *Store) CreateAccount(_ context.Context, a accounts.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data.accounts[a.ActorID]; ok {
		return fmt.Errorf("account %s: %w", a.ActorID, shared.ErrConflict)
	}
	s.data.accounts[a.ActorID] = a
	return nil
}

// GetAccount implements accounts.RepositoryPort.
func (s *Store) GetAccount(_ context.Context, actorID uuid.UUID) (accounts.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.data.accounts[actorID]
	if !ok {
		return accounts.Account{}, fmt.Errorf("account: %w", shared.ErrNotFound)
	}
	return a, nil
}

// LockAccount implements accounts.RepositoryPort.
func (s *Store) LockAccount(ctx context.Context, actorID uuid.UUID) (accounts.Account, error) {
	if !inTx(ctx) {
		return accounts.Account{}, errors.New("memstore: lock outside transaction")
	}
	return s.GetAccount(ctx, actorID)
}

// SetBalance implements accounts.RepositoryPort.
func (s *Store) SetBalance(_ context.Context, actorID uuid.UUID, balance int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.data.accounts[actorID]
	if !ok {
		return fmt.Errorf("account: %w", shared.ErrNotFound)
	}
	a.Balance = balance
	s.data.accounts[actorID] = a
	return nil
}

// LinkParent implements accounts.RepositoryPort.
func (s *Store) LinkParent(_ context.Context, childID, guardianID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.data.accounts[childID]
	if !ok {
		return false, fmt.Errorf("account: %w", shared.ErrNotFound)
	}
	if a.ParentID != nil && *a.ParentID != guardianID {
		return false, nil
	}
	a.ParentID = &guardianID
	s.data.accounts[childID] = a
	return true, nil
}

// ListChildren implements accounts.RepositoryPort.
func (s *Store) ListChildren(_ context.Context, guardianID uuid.UUID) ([]accounts.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []accounts.Account
	for _, a := range s.data.accounts {
		if a.IsChildOf(guardianID) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ActorID.String() < out[j].ActorID.String()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// GetSettings implements accounts.RepositoryPort.
func (s *Store) GetSettings(_ context.Context, guardianID uuid.UUID) (accounts.GuardianSettings, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.data.settings[guardianID]
	return st, ok, nil
}

// UpsertSettings implements accounts.RepositoryPort.
func (s *Store) UpsertSettings(_ context.Context, st accounts.GuardianSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.settings[st.GuardianID] = st
	return nil
}
