// Package memstore is an in-memory implementation of every repository port,
// plus a transactor that serializes atomic units and rolls back failed ones.
// It backs the service tests.
package memstore

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/coincraft/coincraft/internal/accounts"
	"github.com/coincraft/coincraft/internal/activities"
	"github.com/coincraft/coincraft/internal/catalog"
	"github.com/coincraft/coincraft/internal/goals"
	"github.com/coincraft/coincraft/internal/ledger"
	"github.com/coincraft/coincraft/internal/requests"
	"github.com/coincraft/coincraft/internal/shared"
	"github.com/coincraft/coincraft/internal/tasks"
)

type progressKey struct {
	actor, module uuid.UUID
}

type state struct {
	accounts  map[uuid.UUID]accounts.Account
	settings  map[uuid.UUID]accounts.GuardianSettings
	entries   []ledger.Entry
	goals     map[uuid.UUID]goals.Goal
	tasks     map[uuid.UUID]tasks.Task
	requests  map[uuid.UUID]requests.Request
	items     map[uuid.UUID]catalog.ShopItem
	modules   map[uuid.UUID]catalog.Module
	owned     []catalog.OwnedItem
	progress  map[progressKey]activities.Progress
	approvals []shared.ApprovalLog
}

func newState() state {
	return state{
		accounts: make(map[uuid.UUID]accounts.Account),
		settings: make(map[uuid.UUID]accounts.GuardianSettings),
		goals:    make(map[uuid.UUID]goals.Goal),
		tasks:    make(map[uuid.UUID]tasks.Task),
		requests: make(map[uuid.UUID]requests.Request),
		items:    make(map[uuid.UUID]catalog.ShopItem),
		modules:  make(map[uuid.UUID]catalog.Module),
		progress: make(map[progressKey]activities.Progress),
	}
}

func (s state) clone() state {
	return state{
		accounts:  maps.Clone(s.accounts),
		settings:  maps.Clone(s.settings),
		entries:   slices.Clone(s.entries),
		goals:     maps.Clone(s.goals),
		tasks:     maps.Clone(s.tasks),
		requests:  maps.Clone(s.requests),
		items:     maps.Clone(s.items),
		modules:   maps.Clone(s.modules),
		owned:     slices.Clone(s.owned),
		progress:  maps.Clone(s.progress),
		approvals: slices.Clone(s.approvals),
	}
}

// Store holds all entities in memory.
type Store struct {
	txMu sync.Mutex
	mu   sync.RWMutex
	data state
}

// New returns an empty store.
func New() *Store {
	return &Store{data: newState()}
}

type txKey struct{}

// WithinTx runs fn as one atomic unit. Units are serialized, which stands in
// for the row locks the PostgreSQL repositories take; a failed unit restores
// the state it started from. Nested calls join the outer unit.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	snapshot := s.data.clone()
	s.mu.RUnlock()

	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.mu.Lock()
		s.data = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

func inTx(ctx context.Context) bool {
	return ctx.Value(txKey{}) != nil
}

// Approvals returns the approval log for one workflow item, oldest first.
func (s *Store) Approvals(workflow string, ref uuid.UUID) []shared.ApprovalLog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []shared.ApprovalLog
	for _, l := range s.data.approvals {
		if l.Workflow == workflow && l.RefID == ref {
			out = append(out, l)
		}
	}
	return out
}

// Record appends to the approval log.
func (s *Store) Record(_ context.Context, log shared.ApprovalLog) error {
	if err := log.Check(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	log.ID = int64(len(s.data.approvals) + 1)
	s.data.approvals = append(s.data.approvals, log)
	return nil
}
