package goals_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/coincraft/coincraft/internal/goals"
	"github.com/coincraft/coincraft/internal/ledger"
	"github.com/coincraft/coincraft/internal/shared"
	"github.com/coincraft/coincraft/internal/testing/memstore"
)

func newGoal(t *testing.T, f *memstore.Fixture, owner shared.Actor, target int64) goals.Goal {
	t.Helper()
	g, err := f.Goals.Create(context.Background(), owner, goals.CreateInput{Title: "Bike", TargetAmount: target})
	require.NoError(t, err)
	return g
}

func TestCreateValidates(t *testing.T) {
	f := memstore.NewFixture()
	child := f.Child(t, f.Guardian(t))
	ctx := context.Background()

	_, err := f.Goals.Create(ctx, child, goals.CreateInput{Title: "Bike", TargetAmount: 0})
	require.ErrorIs(t, err, shared.ErrInvalidAmount)
	_, err = f.Goals.Create(ctx, child, goals.CreateInput{Title: "", TargetAmount: 10})
	require.ErrorIs(t, err, shared.ErrValidation)

	g := newGoal(t, f, child, 50)
	require.Equal(t, child.ID, g.OwnerID)
	require.Zero(t, g.CurrentAmount)
	require.False(t, g.IsCompleted)
}

// Balance 100, goal 30/50, contribute 25: only 20 is applied.
func TestContributeCapsAtTarget(t *testing.T) {
	f := memstore.NewFixture()
	child := f.Child(t, f.Guardian(t))
	ctx := context.Background()
	f.Fund(t, child, 130)

	g := newGoal(t, f, child, 50)
	_, err := f.Goals.Contribute(ctx, child, g.ID, 30)
	require.NoError(t, err)
	require.EqualValues(t, 100, f.Balance(t, child))

	res, err := f.Goals.Contribute(ctx, child, g.ID, 25)
	require.NoError(t, err)
	require.EqualValues(t, 20, res.Applied)
	require.EqualValues(t, 50, res.Goal.CurrentAmount)
	require.True(t, res.Goal.IsCompleted)
	require.NotNil(t, res.Entry)
	require.Equal(t, ledger.KindSave, res.Entry.Kind)
	require.EqualValues(t, 20, res.Entry.Amount)
	require.Equal(t, ledger.Cause{Kind: ledger.CauseGoal, ID: g.ID}, res.Entry.Cause)
	require.EqualValues(t, 80, f.Balance(t, child))

	// Further contributions are no-ops and completion never reverts.
	res, err = f.Goals.Contribute(ctx, child, g.ID, 10)
	require.NoError(t, err)
	require.Zero(t, res.Applied)
	require.Nil(t, res.Entry)
	require.True(t, res.Goal.IsCompleted)
	require.EqualValues(t, 50, res.Goal.CurrentAmount)
	require.EqualValues(t, 80, f.Balance(t, child))
	require.Len(t, f.Entries(t, child), 3)
	f.RequireComplete(t, child)
}

func TestContributeInsufficientFundsChangesNothing(t *testing.T) {
	f := memstore.NewFixture()
	child := f.Child(t, f.Guardian(t))
	ctx := context.Background()
	f.Fund(t, child, 10)
	g := newGoal(t, f, child, 50)

	_, err := f.Goals.Contribute(ctx, child, g.ID, 11)
	require.ErrorIs(t, err, shared.ErrInsufficientFunds)

	got, err := f.Goals.Get(ctx, child, g.ID)
	require.NoError(t, err)
	require.Zero(t, got.CurrentAmount)
	require.EqualValues(t, 10, f.Balance(t, child))
	require.Len(t, f.Entries(t, child), 1)
}

func TestContributeInsufficientJudgedOnAppliedAmount(t *testing.T) {
	f := memstore.NewFixture()
	child := f.Child(t, f.Guardian(t))
	f.Fund(t, child, 10)
	g := newGoal(t, f, child, 10)

	res, err := f.Goals.Contribute(context.Background(), child, g.ID, 500)
	require.NoError(t, err)
	require.EqualValues(t, 10, res.Applied)
	require.True(t, res.Goal.IsCompleted)
	require.Zero(t, f.Balance(t, child))
}

func TestContributeErrors(t *testing.T) {
	f := memstore.NewFixture()
	guardian := f.Guardian(t)
	child := f.Child(t, guardian)
	ctx := context.Background()
	f.Fund(t, child, 100)
	g := newGoal(t, f, child, 50)

	_, err := f.Goals.Contribute(ctx, child, g.ID, 0)
	require.ErrorIs(t, err, shared.ErrInvalidAmount)
	_, err = f.Goals.Contribute(ctx, child, uuid.New(), 5)
	require.ErrorIs(t, err, shared.ErrNotFound)
	_, err = f.Goals.Contribute(ctx, guardian, g.ID, 5)
	require.ErrorIs(t, err, shared.ErrForbidden)
	require.EqualValues(t, 100, f.Balance(t, child))
}

func TestVisibility(t *testing.T) {
	f := memstore.NewFixture()
	guardian := f.Guardian(t)
	child := f.Child(t, guardian)
	ctx := context.Background()
	g := newGoal(t, f, child, 50)

	list, err := f.Goals.List(ctx, guardian, child.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)

	_, err = f.Goals.Get(ctx, f.Guardian(t), g.ID)
	require.ErrorIs(t, err, shared.ErrForbidden)
	_, err = f.Goals.List(ctx, f.Child(t, f.Guardian(t)), child.ID)
	require.ErrorIs(t, err, shared.ErrForbidden)
}

func TestUpdate(t *testing.T) {
	f := memstore.NewFixture()
	child := f.Child(t, f.Guardian(t))
	ctx := context.Background()
	f.Fund(t, child, 100)
	g := newGoal(t, f, child, 50)
	_, err := f.Goals.Contribute(ctx, child, g.ID, 30)
	require.NoError(t, err)

	title := "Red bike"
	updated, err := f.Goals.Update(ctx, child, g.ID, goals.UpdateInput{Title: &title})
	require.NoError(t, err)
	require.Equal(t, title, updated.Title)

	low := int64(20)
	_, err = f.Goals.Update(ctx, child, g.ID, goals.UpdateInput{TargetAmount: &low})
	require.ErrorIs(t, err, shared.ErrInvalidAmount)

	exact := int64(30)
	updated, err = f.Goals.Update(ctx, child, g.ID, goals.UpdateInput{TargetAmount: &exact})
	require.NoError(t, err)
	require.True(t, updated.IsCompleted)

	higher := int64(90)
	_, err = f.Goals.Update(ctx, child, g.ID, goals.UpdateInput{TargetAmount: &higher})
	require.ErrorIs(t, err, shared.ErrInvalidStateTransition)

	_, err = f.Goals.Update(ctx, f.Guardian(t), g.ID, goals.UpdateInput{Title: &title})
	require.ErrorIs(t, err, shared.ErrForbidden)
}

func TestDeleteRefundsSavedCoins(t *testing.T) {
	f := memstore.NewFixture()
	guardian := f.Guardian(t)
	child := f.Child(t, guardian)
	ctx := context.Background()
	f.Fund(t, child, 100)
	g := newGoal(t, f, child, 50)
	_, err := f.Goals.Contribute(ctx, child, g.ID, 30)
	require.NoError(t, err)

	require.ErrorIs(t, f.Goals.Delete(ctx, guardian, g.ID), shared.ErrForbidden)
	require.NoError(t, f.Goals.Delete(ctx, child, g.ID))

	_, err = f.Goals.Get(ctx, child, g.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)
	require.EqualValues(t, 100, f.Balance(t, child))

	entries := f.Entries(t, child)
	require.Equal(t, ledger.KindEarn, entries[0].Kind)
	require.Equal(t, goals.RefundCategory, entries[0].Category)
	require.EqualValues(t, 30, entries[0].Amount)
	f.RequireComplete(t, child)

	counts, err := f.Goals.Counts(ctx, child.ID)
	require.NoError(t, err)
	require.Equal(t, goals.Counts{}, counts)
}

func TestSavedCoinsOnlyReturnThroughGoal(t *testing.T) {
	f := memstore.NewFixture()
	guardian := f.Guardian(t)
	child := f.Child(t, guardian)
	ctx := context.Background()
	f.Fund(t, child, 100)
	g := newGoal(t, f, child, 50)

	res, err := f.Goals.Contribute(ctx, child, g.ID, 20)
	require.NoError(t, err)
	require.NotNil(t, res.Entry)

	_, err = f.Ledger.ReverseAs(ctx, guardian, res.Entry.ID, "")
	require.ErrorIs(t, err, shared.ErrInvalidStateTransition)
	require.EqualValues(t, 80, f.Balance(t, child))

	require.NoError(t, f.Goals.Delete(ctx, child, g.ID))
	require.EqualValues(t, 100, f.Balance(t, child))
	f.RequireComplete(t, child)
}
