package memstore

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/coincraft/coincraft/internal/accounts"
	"github.com/coincraft/coincraft/internal/activities"
	"github.com/coincraft/coincraft/internal/catalog"
	"github.com/coincraft/coincraft/internal/dashboard"
	"github.com/coincraft/coincraft/internal/goals"
	"github.com/coincraft/coincraft/internal/ledger"
	"github.com/coincraft/coincraft/internal/requests"
	"github.com/coincraft/coincraft/internal/shared"
	"github.com/coincraft/coincraft/internal/tasks"
)

// DefaultRate is the exchange rate fixtures give guardians without settings.
var DefaultRate = decimal.RequireFromString("0.10")

// Clock is a settable time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// Now returns the current fake time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Fixture wires every service over one Store.
type Fixture struct {
	Store      *Store
	Clock      *Clock
	Accounts   *accounts.Service
	Ledger     *ledger.Service
	Catalog    *catalog.Service
	Goals      *goals.Service
	Tasks      *tasks.Service
	Requests   *requests.Service
	Activities *activities.Service
	Dashboard  *dashboard.Service
}

// NewFixture builds services backed by a fresh store.
func NewFixture() *Fixture {
	store := New()
	clock := &Clock{now: time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)}
	logger := slog.New(slog.DiscardHandler)

	accts := accounts.NewService(store, logger, DefaultRate)
	led := ledger.NewService(store, store, store, logger)
	led.SetClock(clock.Now)
	cat := catalog.NewService(store, logger)
	g := goals.NewService(store, led, accts, store, logger)
	t := tasks.NewService(store, led, accts, store, store, logger)
	r := requests.NewService(store, accts, cat, led, store, store, logger)
	act := activities.NewService(store, cat, led, store, logger)
	dash := dashboard.NewService(accts, led, g, t, r, logger, 5)

	return &Fixture{
		Store:      store,
		Clock:      clock,
		Accounts:   accts,
		Ledger:     led,
		Catalog:    cat,
		Goals:      g,
		Tasks:      t,
		Requests:   r,
		Activities: act,
		Dashboard:  dash,
	}
}

// Guardian registers a parent account.
func (f *Fixture) Guardian(tb testing.TB) shared.Actor {
	tb.Helper()
	actor := shared.Actor{ID: uuid.New(), Role: shared.RoleParent}
	_, err := f.Accounts.Register(context.Background(), accounts.RegisterInput{ActorID: actor.ID, Role: actor.Role})
	require.NoError(tb, err)
	return actor
}

// Child registers a child account linked to guardian.
func (f *Fixture) Child(tb testing.TB, guardian shared.Actor) shared.Actor {
	tb.Helper()
	actor := shared.Actor{ID: uuid.New(), Role: shared.RoleYoungerChild}
	ctx := context.Background()
	_, err := f.Accounts.Register(ctx, accounts.RegisterInput{ActorID: actor.ID, Role: actor.Role})
	require.NoError(tb, err)
	_, err = f.Accounts.LinkChild(ctx, guardian, actor.ID)
	require.NoError(tb, err)
	return actor
}

// Fund credits coins to actor through the ledger.
func (f *Fixture) Fund(tb testing.TB, actor shared.Actor, amount int64) {
	tb.Helper()
	_, err := f.Ledger.Credit(context.Background(), actor.ID, amount, ledger.Reason{
		Category: "allowance",
		Cause:    ledger.Cause{Kind: ledger.CauseManual, ID: actor.ID},
	})
	require.NoError(tb, err)
}

// Balance returns the stored balance of actor.
func (f *Fixture) Balance(tb testing.TB, actor shared.Actor) int64 {
	tb.Helper()
	balance, err := f.Ledger.GetBalance(context.Background(), actor.ID)
	require.NoError(tb, err)
	return balance
}

// RequireComplete asserts the stored balance equals earn − spend − save.
func (f *Fixture) RequireComplete(tb testing.TB, actor shared.Actor) {
	tb.Helper()
	rec, err := f.Ledger.Reconcile(context.Background(), actor.ID)
	require.NoError(tb, err)
	require.Zero(tb, rec.Drift(), "stored %d, ledger %d", rec.Stored, rec.Computed)
}

// Entries returns all of actor's entries, newest first.
func (f *Fixture) Entries(tb testing.TB, actor shared.Actor) []ledger.Entry {
	tb.Helper()
	page, err := f.Ledger.EntriesFor(context.Background(), actor.ID, ledger.Filter{Limit: shared.MaxPageLimit})
	require.NoError(tb, err)
	return page.Entries
}
