package dashboard_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coincraft/coincraft/internal/dashboard"
	"github.com/coincraft/coincraft/internal/goals"
	"github.com/coincraft/coincraft/internal/requests"
	"github.com/coincraft/coincraft/internal/tasks"
	"github.com/coincraft/coincraft/internal/testing/memstore"
)

func TestChildAndGuardianSummaries(t *testing.T) {
	f := memstore.NewFixture()
	ctx := context.Background()
	guardian := f.Guardian(t)
	a := f.Child(t, guardian)
	b := f.Child(t, guardian)
	f.Fund(t, a, 40)
	f.Fund(t, b, 60)

	g, err := f.Goals.Create(ctx, a, goals.CreateInput{Title: "Skates", TargetAmount: 10})
	require.NoError(t, err)
	_, err = f.Goals.Contribute(ctx, a, g.ID, 10)
	require.NoError(t, err)
	_, err = f.Goals.Create(ctx, a, goals.CreateInput{Title: "Lego", TargetAmount: 100})
	require.NoError(t, err)

	_, err = f.Tasks.Create(ctx, guardian, tasks.CreateInput{Title: "Feed cat", AssignedTo: a.ID, CoinsReward: 5})
	require.NoError(t, err)
	done, err := f.Tasks.Create(ctx, guardian, tasks.CreateInput{Title: "Homework", AssignedTo: b.ID, CoinsReward: 5})
	require.NoError(t, err)
	_, err = f.Tasks.Complete(ctx, b, done.ID)
	require.NoError(t, err)
	_, err = f.Requests.RequestRedemption(ctx, b, requests.RedemptionInput{Coins: 20})
	require.NoError(t, err)

	child, err := f.Dashboard.ForChild(ctx, a.ID)
	require.NoError(t, err)
	require.EqualValues(t, 30, child.Account.Balance)
	require.Equal(t, goals.Counts{Active: 1, Completed: 1}, child.Goals)
	require.Equal(t, 1, child.PendingTasks)
	require.Len(t, child.Recent, 2)
	require.EqualValues(t, 40, child.Rollups.Today)
	require.EqualValues(t, 40, child.Rollups.Last30)

	view, err := f.Dashboard.For(ctx, guardian)
	require.NoError(t, err)
	summary, ok := view.(dashboard.GuardianSummary)
	require.True(t, ok)
	require.Len(t, summary.Children, 2)
	require.EqualValues(t, 90, summary.TotalBalance)
	require.EqualValues(t, 100, summary.Rollups.Today)
	require.Len(t, summary.Recent, 3)
	require.Equal(t, dashboard.PendingApprovals{Tasks: 1, Redemptions: 1}, summary.Pending)
	require.Equal(t, 2, summary.Pending.Total())
}

func TestGuardianWithoutChildren(t *testing.T) {
	f := memstore.NewFixture()
	guardian := f.Guardian(t)

	summary, err := f.Dashboard.ForGuardian(context.Background(), guardian.ID)
	require.NoError(t, err)
	require.Empty(t, summary.Children)
	require.NotNil(t, summary.Recent)
	require.Zero(t, summary.Pending.Total())
}
