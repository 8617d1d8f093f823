package tasks_test

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/coincraft/coincraft/internal/ledger"
	"github.com/coincraft/coincraft/internal/shared"
	"github.com/coincraft/coincraft/internal/tasks"
	"github.com/coincraft/coincraft/internal/testing/memstore"
)

type family struct {
	f        *memstore.Fixture
	guardian shared.Actor
	child    shared.Actor
}

func newFamily(t *testing.T) family {
	f := memstore.NewFixture()
	g := f.Guardian(t)
	return family{f: f, guardian: g, child: f.Child(t, g)}
}

func (fam family) assign(t *testing.T, reward int64, requiresApproval bool) tasks.Task {
	t.Helper()
	task, err := fam.f.Tasks.Create(context.Background(), fam.guardian, tasks.CreateInput{
		Title:            "Tidy room",
		AssignedTo:       fam.child.ID,
		CoinsReward:      reward,
		RequiresApproval: &requiresApproval,
	})
	require.NoError(t, err)
	return task
}

func (fam family) completed(t *testing.T, reward int64) tasks.Task {
	t.Helper()
	task := fam.assign(t, reward, true)
	task, err := fam.f.Tasks.Complete(context.Background(), fam.child, task.ID)
	require.NoError(t, err)
	require.Equal(t, tasks.StatusCompleted, task.Status)
	return task
}

func TestCreateRules(t *testing.T) {
	fam := newFamily(t)
	ctx := context.Background()

	_, err := fam.f.Tasks.Create(ctx, fam.child, tasks.CreateInput{Title: "x", AssignedTo: fam.child.ID, CoinsReward: 5})
	require.ErrorIs(t, err, shared.ErrForbidden)
	_, err = fam.f.Tasks.Create(ctx, fam.guardian, tasks.CreateInput{Title: "x", AssignedTo: fam.child.ID, CoinsReward: 0})
	require.ErrorIs(t, err, shared.ErrInvalidAmount)
	_, err = fam.f.Tasks.Create(ctx, fam.f.Guardian(t), tasks.CreateInput{Title: "x", AssignedTo: fam.child.ID, CoinsReward: 5})
	require.ErrorIs(t, err, shared.ErrForbidden)

	task, err := fam.f.Tasks.Create(ctx, fam.guardian, tasks.CreateInput{Title: "Dishes", AssignedTo: fam.child.ID, CoinsReward: 5})
	require.NoError(t, err)
	require.Equal(t, tasks.StatusPending, task.Status)
	require.True(t, task.RequiresApproval)
}

func TestApproveCreditsOnce(t *testing.T) {
	fam := newFamily(t)
	ctx := context.Background()
	task := fam.assign(t, 10, true)

	started, err := fam.f.Tasks.Start(ctx, fam.child, task.ID)
	require.NoError(t, err)
	require.Equal(t, tasks.StatusInProgress, started.Status)

	_, err = fam.f.Tasks.Approve(ctx, fam.guardian, task.ID)
	require.ErrorIs(t, err, shared.ErrNotYetCompleted)

	done, err := fam.f.Tasks.Complete(ctx, fam.child, task.ID)
	require.NoError(t, err)
	require.NotNil(t, done.CompletedAt)
	require.Zero(t, fam.f.Balance(t, fam.child))

	approved, err := fam.f.Tasks.Approve(ctx, fam.guardian, task.ID)
	require.NoError(t, err)
	require.Equal(t, tasks.StatusApproved, approved.Status)
	require.NotNil(t, approved.ApprovedAt)
	require.EqualValues(t, 10, fam.f.Balance(t, fam.child))

	_, err = fam.f.Tasks.Approve(ctx, fam.guardian, task.ID)
	require.ErrorIs(t, err, shared.ErrAlreadyApproved)
	require.EqualValues(t, 10, fam.f.Balance(t, fam.child))

	entries := fam.f.Entries(t, fam.child)
	require.Len(t, entries, 1)
	require.Equal(t, ledger.KindEarn, entries[0].Kind)
	require.Equal(t, ledger.Cause{Kind: ledger.CauseTask, ID: task.ID}, entries[0].Cause)

	history := fam.f.Store.Approvals(shared.WorkflowTask, task.ID)
	require.Len(t, history, 2)
	require.Equal(t, shared.ApprovalSubmit, history[0].Action)
	require.Equal(t, fam.child.ID, history[0].ActorID)
	require.Equal(t, shared.ApprovalApprove, history[1].Action)
	require.Equal(t, fam.guardian.ID, history[1].ActorID)
}

func TestConcurrentApprovalsCreditOnce(t *testing.T) {
	fam := newFamily(t)
	task := fam.completed(t, 10)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok       int
		rejected []error
	)
	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := fam.f.Tasks.Approve(context.Background(), fam.guardian, task.ID)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				ok++
				return
			}
			rejected = append(rejected, err)
		}()
	}
	wg.Wait()

	require.Equal(t, 1, ok)
	require.Len(t, rejected, 1)
	require.ErrorIs(t, rejected[0], shared.ErrAlreadyApproved)
	require.EqualValues(t, 10, fam.f.Balance(t, fam.child))
	fam.f.RequireComplete(t, fam.child)
}

func TestApproveForbiddenBeforeState(t *testing.T) {
	fam := newFamily(t)
	ctx := context.Background()
	task := fam.assign(t, 10, true)

	_, err := fam.f.Tasks.Approve(ctx, fam.f.Guardian(t), task.ID)
	require.ErrorIs(t, err, shared.ErrForbidden)
	_, err = fam.f.Tasks.Approve(ctx, fam.child, task.ID)
	require.ErrorIs(t, err, shared.ErrForbidden)
	_, err = fam.f.Tasks.Approve(ctx, fam.guardian, uuid.New())
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestRejectHasNoLedgerEffect(t *testing.T) {
	fam := newFamily(t)
	ctx := context.Background()
	task := fam.completed(t, 10)

	rejected, err := fam.f.Tasks.Reject(ctx, fam.guardian, task.ID, "not tidy")
	require.NoError(t, err)
	require.Equal(t, tasks.StatusRejected, rejected.Status)
	require.Zero(t, fam.f.Balance(t, fam.child))
	require.Empty(t, fam.f.Entries(t, fam.child))

	_, err = fam.f.Tasks.Approve(ctx, fam.guardian, task.ID)
	require.ErrorIs(t, err, shared.ErrInvalidStateTransition)
	_, err = fam.f.Tasks.Complete(ctx, fam.child, task.ID)
	require.ErrorIs(t, err, shared.ErrInvalidStateTransition)

	history := fam.f.Store.Approvals(shared.WorkflowTask, task.ID)
	require.Len(t, history, 2)
	require.Equal(t, shared.ApprovalReject, history[1].Action)
	require.Equal(t, "not tidy", history[1].Note)
}

func TestRejectOnlyFromCompleted(t *testing.T) {
	fam := newFamily(t)
	task := fam.assign(t, 10, true)

	_, err := fam.f.Tasks.Reject(context.Background(), fam.guardian, task.ID, "")
	require.ErrorIs(t, err, shared.ErrInvalidStateTransition)
}

func TestCompleteWithoutApprovalCreditsImmediately(t *testing.T) {
	fam := newFamily(t)
	task := fam.assign(t, 7, false)

	done, err := fam.f.Tasks.Complete(context.Background(), fam.child, task.ID)
	require.NoError(t, err)
	require.Equal(t, tasks.StatusApproved, done.Status)
	require.EqualValues(t, 7, fam.f.Balance(t, fam.child))

	history := fam.f.Store.Approvals(shared.WorkflowTask, task.ID)
	require.Len(t, history, 2)
	require.Equal(t, fam.guardian.ID, history[1].ActorID)
	require.Equal(t, "auto-approved", history[1].Note)
}

func TestTransitionDispatch(t *testing.T) {
	fam := newFamily(t)
	ctx := context.Background()
	task := fam.assign(t, 3, true)

	_, err := fam.f.Tasks.Transition(ctx, fam.child, task.ID, tasks.StatusPending)
	require.ErrorIs(t, err, shared.ErrInvalidStateTransition)

	for _, step := range []struct {
		actor  shared.Actor
		target tasks.Status
	}{
		{fam.child, tasks.StatusInProgress},
		{fam.child, tasks.StatusCompleted},
		{fam.guardian, tasks.StatusApproved},
	} {
		got, err := fam.f.Tasks.Transition(ctx, step.actor, task.ID, step.target)
		require.NoError(t, err)
		require.Equal(t, step.target, got.Status)
	}
	require.EqualValues(t, 3, fam.f.Balance(t, fam.child))
}

func TestListAndDelete(t *testing.T) {
	fam := newFamily(t)
	ctx := context.Background()
	a := fam.assign(t, 1, true)
	fam.completed(t, 2)

	mine, err := fam.f.Tasks.List(ctx, fam.child)
	require.NoError(t, err)
	require.Len(t, mine, 2)

	waiting, err := fam.f.Tasks.List(ctx, fam.guardian, tasks.StatusCompleted)
	require.NoError(t, err)
	require.Len(t, waiting, 1)

	n, err := fam.f.Tasks.Count(ctx, tasks.Filter{AssignedBy: fam.guardian.ID, Statuses: []tasks.Status{tasks.StatusCompleted}})
	require.NoError(t, err)
	require.Equal(t, 1, n)

	require.ErrorIs(t, fam.f.Tasks.Delete(ctx, fam.child, a.ID), shared.ErrForbidden)
	require.NoError(t, fam.f.Tasks.Delete(ctx, fam.guardian, a.ID))
	_, err = fam.f.Tasks.Get(ctx, fam.guardian, a.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)
}
