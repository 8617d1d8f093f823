package jobs_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/currency"

	jobmetrics "github.com/coincraft/coincraft/internal/jobs"
	"github.com/coincraft/coincraft/internal/requests"
	"github.com/coincraft/coincraft/internal/shared"
	"github.com/coincraft/coincraft/internal/testing/memstore"
	"github.com/coincraft/coincraft/jobs"
)

type recordingQueue struct {
	mu  sync.Mutex
	ids []uuid.UUID
	err error
}

func (q *recordingQueue) EnqueuePayout(_ context.Context, id uuid.UUID) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.ids = append(q.ids, id)
	return nil
}

type recordingNotifier struct {
	guardians []uuid.UUID
	messages  []string
}

func (n *recordingNotifier) NotifyPayout(_ context.Context, guardianID uuid.UUID, msg string) error {
	n.guardians = append(n.guardians, guardianID)
	n.messages = append(n.messages, msg)
	return nil
}

// approvedRedemption returns a fixture with one approved 55-coin redemption.
func approvedRedemption(t *testing.T) (*memstore.Fixture, shared.Actor, requests.Request) {
	t.Helper()
	f := memstore.NewFixture()
	guardian := f.Guardian(t)
	child := f.Child(t, guardian)
	ctx := context.Background()
	f.Fund(t, child, 100)
	req, err := f.Requests.RequestRedemption(ctx, child, requests.RedemptionInput{Coins: 55})
	require.NoError(t, err)
	req, err = f.Requests.Approve(ctx, guardian, req.ID)
	require.NoError(t, err)
	return f, guardian, req
}

func payoutTask(t *testing.T, id uuid.UUID) *asynq.Task {
	t.Helper()
	task, opts, err := jobs.NewRedemptionPayoutTask(id)
	require.NoError(t, err)
	require.NotEmpty(t, opts)
	return task
}

func TestPayoutJobNotifiesOnce(t *testing.T) {
	f, guardian, req := approvedRedemption(t)
	notifier := &recordingNotifier{}
	metrics := jobmetrics.NewMetrics(prometheus.NewRegistry())
	job := jobs.NewPayoutJob(f.Requests, notifier, currency.USD, nil, metrics)

	require.NoError(t, job.Handle(context.Background(), payoutTask(t, req.ID)))
	require.Equal(t, []uuid.UUID{guardian.ID}, notifier.guardians)
	require.Equal(t, "Pay out USD 5.50 for 55 coins (Redeem 55 coins)", notifier.messages[0])

	require.NoError(t, job.Handle(context.Background(), payoutTask(t, req.ID)))
	require.Len(t, notifier.messages, 1)

	pending, err := f.Requests.PendingPayouts(context.Background(), 10)
	require.NoError(t, err)
	require.Empty(t, pending)
}

func TestPayoutJobSkipsUnknownRequests(t *testing.T) {
	f := memstore.NewFixture()
	job := jobs.NewPayoutJob(f.Requests, nil, currency.USD, nil, nil)

	err := job.Handle(context.Background(), payoutTask(t, uuid.New()))
	require.ErrorIs(t, err, asynq.SkipRetry)

	err = job.Handle(context.Background(), asynq.NewTask(jobs.TaskRedemptionPayout, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestPayoutSweepRequeuesPending(t *testing.T) {
	f, _, req := approvedRedemption(t)
	queue := &recordingQueue{}
	sweep := jobs.NewPayoutSweepJob(f.Requests, queue, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))

	queued, err := sweep.Sweep(context.Background(), 0)
	require.NoError(t, err)
	require.Equal(t, 1, queued)
	require.Equal(t, []uuid.UUID{req.ID}, queue.ids)

	_, _, err = f.Requests.MarkPayoutNotified(context.Background(), req.ID)
	require.NoError(t, err)

	task, err := jobs.NewPayoutSweepTask(10)
	require.NoError(t, err)
	require.NoError(t, sweep.Handle(context.Background(), task))
	require.Len(t, queue.ids, 1)
}

func TestPayoutSweepSurfacesQueueErrors(t *testing.T) {
	f, _, _ := approvedRedemption(t)
	sweep := jobs.NewPayoutSweepJob(f.Requests, &recordingQueue{err: errors.New("redis down")}, nil, nil)

	queued, err := sweep.Sweep(context.Background(), 10)
	require.Error(t, err)
	require.Zero(t, queued)
}

func TestFormatPayoutWithoutCash(t *testing.T) {
	msg := jobs.FormatPayout(currency.EUR, requests.Request{Price: 12, Description: "Book"})
	require.Equal(t, "Pay out n/a for 12 coins (Book)", msg)
}
