package ledger_test

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coincraft/coincraft/internal/ledger"
	"github.com/coincraft/coincraft/internal/shared"
	"github.com/coincraft/coincraft/internal/testing/memstore"
)

func reason(category string) ledger.Reason {
	return ledger.Reason{Category: category, Cause: ledger.Cause{Kind: ledger.CauseManual, ID: uuid.New()}}
}

func TestRecordRejectsNonPositiveAmount(t *testing.T) {
	f := memstore.NewFixture()
	child := f.Child(t, f.Guardian(t))
	ctx := context.Background()

	for _, amount := range []int64{0, -5} {
		_, err := f.Ledger.Record(ctx, child.ID, ledger.KindEarn, amount, reason("x"))
		require.ErrorIs(t, err, shared.ErrInvalidAmount)
	}
	require.Empty(t, f.Entries(t, child))
	require.Zero(t, f.Balance(t, child))
}

func TestRecordUnknownAccount(t *testing.T) {
	f := memstore.NewFixture()
	_, err := f.Ledger.Credit(context.Background(), uuid.New(), 10, reason("x"))
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestDebitInsufficientFundsWritesNothing(t *testing.T) {
	f := memstore.NewFixture()
	child := f.Child(t, f.Guardian(t))
	f.Fund(t, child, 40)

	for _, kind := range []ledger.Kind{ledger.KindSpend, ledger.KindSave} {
		_, err := f.Ledger.Record(context.Background(), child.ID, kind, 41, reason("shop"))
		require.ErrorIs(t, err, shared.ErrInsufficientFunds)
	}
	require.EqualValues(t, 40, f.Balance(t, child))
	require.Len(t, f.Entries(t, child), 1)

	_, err := f.Ledger.Debit(context.Background(), child.ID, 40, reason("shop"))
	require.NoError(t, err)
	require.Zero(t, f.Balance(t, child))
	f.RequireComplete(t, child)
}

func TestRandomSequencesKeepBalanceNonNegativeAndComplete(t *testing.T) {
	f := memstore.NewFixture()
	child := f.Child(t, f.Guardian(t))
	ctx := context.Background()
	rng := rand.New(rand.NewSource(42))
	kinds := []ledger.Kind{ledger.KindEarn, ledger.KindSpend, ledger.KindSave}

	var expected int64
	for i := 0; i < 300; i++ {
		kind := kinds[rng.Intn(len(kinds))]
		amount := int64(rng.Intn(50) + 1)
		before := f.Balance(t, child)

		_, err := f.Ledger.Record(ctx, child.ID, kind, amount, reason("random"))
		switch {
		case kind.Debits() && amount > before:
			require.ErrorIs(t, err, shared.ErrInsufficientFunds)
			require.Equal(t, before, f.Balance(t, child))
		case kind.Debits():
			require.NoError(t, err)
			expected -= amount
		default:
			require.NoError(t, err)
			expected += amount
		}
		require.GreaterOrEqual(t, f.Balance(t, child), int64(0))
		require.Equal(t, expected, f.Balance(t, child))
	}
	f.RequireComplete(t, child)
}

func TestConcurrentDebitsNeverOverdraw(t *testing.T) {
	f := memstore.NewFixture()
	child := f.Child(t, f.Guardian(t))
	f.Fund(t, child, 100)

	var ok, short atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.Ledger.Debit(context.Background(), child.ID, 3, reason("snack"))
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, shared.ErrInsufficientFunds):
				short.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	require.EqualValues(t, 33, ok.Load())
	require.EqualValues(t, 17, short.Load())
	require.EqualValues(t, 1, f.Balance(t, child))
	f.RequireComplete(t, child)
}

func TestIdempotencyKeyReplaysEntry(t *testing.T) {
	f := memstore.NewFixture()
	child := f.Child(t, f.Guardian(t))
	ctx := context.Background()

	r := reason("allowance")
	r.IdempotencyKey = "allowance-2024-03"
	first, err := f.Ledger.Credit(ctx, child.ID, 25, r)
	require.NoError(t, err)
	second, err := f.Ledger.Credit(ctx, child.ID, 25, r)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.EqualValues(t, 25, f.Balance(t, child))

	_, err = f.Ledger.Credit(ctx, child.ID, 30, r)
	require.ErrorIs(t, err, shared.ErrConflict)
	require.EqualValues(t, 25, f.Balance(t, child))
	require.Len(t, f.Entries(t, child), 1)
}

func TestEntriesForFiltersAndPages(t *testing.T) {
	f := memstore.NewFixture()
	child := f.Child(t, f.Guardian(t))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		f.Fund(t, child, 10)
		f.Clock.Advance(time.Minute)
	}
	_, err := f.Ledger.Debit(ctx, child.ID, 5, reason("shop"))
	require.NoError(t, err)

	page, err := f.Ledger.EntriesFor(ctx, child.ID, ledger.Filter{})
	require.NoError(t, err)
	require.Equal(t, 6, page.Total)
	require.Equal(t, ledger.KindSpend, page.Entries[0].Kind, "newest first")
	for i := 1; i < len(page.Entries); i++ {
		require.False(t, page.Entries[i].CreatedAt.After(page.Entries[i-1].CreatedAt))
	}

	page, err = f.Ledger.EntriesFor(ctx, child.ID, ledger.Filter{Kind: ledger.KindEarn, Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Equal(t, 5, page.Total)
	require.Len(t, page.Entries, 2)

	page, err = f.Ledger.EntriesFor(ctx, child.ID, ledger.Filter{Category: "shop"})
	require.NoError(t, err)
	require.Equal(t, 1, page.Total)

	_, err = f.Ledger.EntriesFor(ctx, child.ID, ledger.Filter{Kind: "gift"})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestSumAndRollups(t *testing.T) {
	f := memstore.NewFixture()
	child := f.Child(t, f.Guardian(t))
	ctx := context.Background()
	start := f.Clock.Now()

	f.Fund(t, child, 5)
	f.Clock.Advance(26 * 24 * time.Hour)
	f.Fund(t, child, 7)
	f.Clock.Advance(3 * 24 * time.Hour)
	f.Fund(t, child, 11)
	f.Clock.Advance(2 * time.Hour)
	f.Fund(t, child, 13)
	_, err := f.Ledger.Debit(ctx, child.ID, 4, reason("shop"))
	require.NoError(t, err)
	f.Clock.Advance(time.Hour)

	rollups, err := f.Ledger.Rollups(ctx, child.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 24, rollups.Today)
	assert.EqualValues(t, 31, rollups.Last7Days)
	assert.EqualValues(t, 36, rollups.Last30)

	sum, err := f.Ledger.Sum(ctx, child.ID, ledger.KindEarn, ledger.TimeRange{From: start, To: start.Add(time.Hour)})
	require.NoError(t, err)
	require.EqualValues(t, 5, sum)
	sum, err = f.Ledger.Sum(ctx, child.ID, ledger.KindSpend, ledger.TimeRange{})
	require.NoError(t, err)
	require.EqualValues(t, 4, sum)
}

func TestReverseAppendsInverseOnce(t *testing.T) {
	f := memstore.NewFixture()
	guardian := f.Guardian(t)
	child := f.Child(t, guardian)
	ctx := context.Background()
	f.Fund(t, child, 50)

	spend, err := f.Ledger.Debit(ctx, child.ID, 20, reason("shop"))
	require.NoError(t, err)

	rev, err := f.Ledger.ReverseAs(ctx, guardian, spend.ID, "returned toy")
	require.NoError(t, err)
	require.Equal(t, ledger.KindEarn, rev.Kind)
	require.Equal(t, ledger.Cause{Kind: ledger.CauseEntry, ID: spend.ID}, rev.Cause)
	require.EqualValues(t, 50, f.Balance(t, child))

	again, err := f.Ledger.Reverse(ctx, spend.ID, "")
	require.NoError(t, err)
	require.Equal(t, rev.ID, again.ID)
	require.EqualValues(t, 50, f.Balance(t, child))

	_, err = f.Ledger.ReverseAs(ctx, f.Guardian(t), spend.ID, "")
	require.ErrorIs(t, err, shared.ErrForbidden)
	f.RequireComplete(t, child)
}

func TestReverseEarnNeedsFunds(t *testing.T) {
	f := memstore.NewFixture()
	child := f.Child(t, f.Guardian(t))
	ctx := context.Background()

	earn, err := f.Ledger.Credit(ctx, child.ID, 30, reason("task"))
	require.NoError(t, err)
	_, err = f.Ledger.Debit(ctx, child.ID, 25, reason("shop"))
	require.NoError(t, err)

	_, err = f.Ledger.Reverse(ctx, earn.ID, "")
	require.ErrorIs(t, err, shared.ErrInsufficientFunds)
	require.EqualValues(t, 5, f.Balance(t, child))
}

func TestReconcileReportsDrift(t *testing.T) {
	f := memstore.NewFixture()
	child := f.Child(t, f.Guardian(t))
	ctx := context.Background()
	f.Fund(t, child, 30)

	rec, err := f.Ledger.Reconcile(ctx, child.ID)
	require.NoError(t, err)
	require.Zero(t, rec.Drift())
	require.EqualValues(t, 30, rec.Totals.Earn)

	require.NoError(t, f.Store.SetBalance(ctx, child.ID, 35))
	rec, err = f.Ledger.Reconcile(ctx, child.ID)
	require.NoError(t, err)
	require.EqualValues(t, 5, rec.Drift())
}

func TestRecordManualAuthorization(t *testing.T) {
	f := memstore.NewFixture()
	guardian := f.Guardian(t)
	child := f.Child(t, guardian)
	ctx := context.Background()

	entry, err := f.Ledger.RecordManual(ctx, guardian, ledger.ManualEntryInput{ActorID: child.ID, Kind: ledger.KindEarn, Amount: 15, Category: "allowance"})
	require.NoError(t, err)
	require.Equal(t, ledger.CauseManual, entry.Cause.Kind)
	require.Equal(t, guardian.ID, entry.Cause.ID)

	_, err = f.Ledger.RecordManual(ctx, child, ledger.ManualEntryInput{Kind: ledger.KindEarn, Amount: 100})
	require.ErrorIs(t, err, shared.ErrForbidden)

	_, err = f.Ledger.RecordManual(ctx, f.Guardian(t), ledger.ManualEntryInput{ActorID: child.ID, Kind: ledger.KindEarn, Amount: 1})
	require.ErrorIs(t, err, shared.ErrForbidden)

	_, err = f.Ledger.RecordManual(ctx, child, ledger.ManualEntryInput{Kind: ledger.KindSpend, Amount: 5, Description: "ice cream"})
	require.NoError(t, err)

	_, err = f.Ledger.RecordManual(ctx, guardian, ledger.ManualEntryInput{ActorID: child.ID, Kind: ledger.KindSave, Amount: 1})
	require.ErrorIs(t, err, shared.ErrValidation)

	require.EqualValues(t, 10, f.Balance(t, child))
	f.RequireComplete(t, child)
}

func TestReverseRejectsWorkflowEntries(t *testing.T) {
	f := memstore.NewFixture()
	guardian := f.Guardian(t)
	child := f.Child(t, guardian)
	ctx := context.Background()
	f.Fund(t, child, 100)

	for _, kind := range []ledger.CauseKind{
		ledger.CauseGoal, ledger.CauseTask, ledger.CauseActivity, ledger.CauseShop, ledger.CauseRedemption,
	} {
		t.Run(string(kind), func(t *testing.T) {
			entry, err := f.Ledger.Record(ctx, child.ID, ledger.KindSpend, 5, ledger.Reason{
				Category: "workflow",
				Cause:    ledger.Cause{Kind: kind, ID: uuid.New()},
			})
			require.NoError(t, err)
			before := f.Balance(t, child)

			_, err = f.Ledger.ReverseAs(ctx, guardian, entry.ID, "undo")
			require.ErrorIs(t, err, shared.ErrInvalidStateTransition)
			_, err = f.Ledger.Reverse(ctx, entry.ID, "")
			require.ErrorIs(t, err, shared.ErrInvalidStateTransition)
			require.Equal(t, before, f.Balance(t, child))
		})
	}

	page, err := f.Ledger.EntriesFor(ctx, child.ID, ledger.Filter{Category: ledger.CategoryReversal})
	require.NoError(t, err)
	require.Zero(t, page.Total)
	f.RequireComplete(t, child)
}

func TestReversalCanBeReversed(t *testing.T) {
	f := memstore.NewFixture()
	guardian := f.Guardian(t)
	child := f.Child(t, guardian)
	ctx := context.Background()
	f.Fund(t, child, 50)

	spend, err := f.Ledger.Debit(ctx, child.ID, 20, reason("shop"))
	require.NoError(t, err)
	rev, err := f.Ledger.ReverseAs(ctx, guardian, spend.ID, "")
	require.NoError(t, err)

	back, err := f.Ledger.ReverseAs(ctx, guardian, rev.ID, "reversed by mistake")
	require.NoError(t, err)
	require.Equal(t, ledger.KindSpend, back.Kind)
	require.EqualValues(t, 30, f.Balance(t, child))
	f.RequireComplete(t, child)
}

func TestRollupsSkipReturnedCoins(t *testing.T) {
	f := memstore.NewFixture()
	guardian := f.Guardian(t)
	child := f.Child(t, guardian)
	ctx := context.Background()

	f.Fund(t, child, 10)
	_, err := f.Ledger.Credit(ctx, child.ID, 6, ledger.Reason{
		Category: ledger.CategoryGoalRefund,
		Cause:    ledger.Cause{Kind: ledger.CauseGoal, ID: uuid.New()},
	})
	require.NoError(t, err)
	spend, err := f.Ledger.Debit(ctx, child.ID, 4, reason("shop"))
	require.NoError(t, err)
	_, err = f.Ledger.ReverseAs(ctx, guardian, spend.ID, "")
	require.NoError(t, err)

	rollups, err := f.Ledger.Rollups(ctx, child.ID)
	require.NoError(t, err)
	require.Equal(t, ledger.Rollups{Today: 10, Last7Days: 10, Last30: 10}, rollups)

	earned, err := f.Ledger.Sum(ctx, child.ID, ledger.KindEarn, ledger.TimeRange{})
	require.NoError(t, err)
	require.EqualValues(t, 20, earned)
}
