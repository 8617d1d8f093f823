package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	jobmetrics "github.com/coincraft/coincraft/internal/jobs"
	"github.com/coincraft/coincraft/internal/requests"
	"github.com/coincraft/coincraft/internal/shared"
)

// PayoutService is the slice of the request workflow the payout jobs need.
type PayoutService interface {
	PendingPayouts(ctx context.Context, limit int) ([]requests.Request, error)
	MarkPayoutNotified(ctx context.Context, id uuid.UUID) (requests.PayoutNotice, bool, error)
}

// Notifier delivers a payout notice to the guardian.
type Notifier interface {
	NotifyPayout(ctx context.Context, guardianID uuid.UUID, message string) error
}

// LogNotifier writes payout notices to the log.
type LogNotifier struct {
	Logger *slog.Logger
}

// NotifyPayout implements Notifier.
func (n LogNotifier) NotifyPayout(_ context.Context, guardianID uuid.UUID, msg string) error {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("payout notice", slog.String("guardian_id", guardianID.String()), slog.String("message", msg))
	return nil
}

// PayoutJob notifies guardians about approved redemptions.
type PayoutJob struct {
	Requests PayoutService
	Notifier Notifier
	Currency currency.Unit
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
}

// NewPayoutJob wires dependencies for the payout handler.
func NewPayoutJob(svc PayoutService, notifier Notifier, unit currency.Unit, logger *slog.Logger, metrics *jobmetrics.Metrics) *PayoutJob {
	return &PayoutJob{Requests: svc, Notifier: notifier, Currency: unit, Logger: logger, Metrics: metrics}
}

// Handle processes TaskRedemptionPayout tasks.
func (j *PayoutJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Requests == nil {
		return errors.New("payout: handler not configured")
	}
	tracker := j.Metrics.Track(TaskRedemptionPayout)
	defer func() { tracker.End(err) }()

	var payload RedemptionPayoutPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil || payload.RequestID == uuid.Nil {
		return fmt.Errorf("payout: bad payload: %w", asynq.SkipRetry)
	}

	logger := j.logger().With(slog.String("request_id", payload.RequestID.String()))
	notice, notified, err := j.Requests.MarkPayoutNotified(ctx, payload.RequestID)
	switch {
	case errors.Is(err, shared.ErrNotFound), errors.Is(err, shared.ErrInvalidStateTransition):
		logger.Warn("payout skipped", slog.Any("error", err))
		j.Metrics.AddPayouts("skipped", 1)
		return fmt.Errorf("payout %s: %w", payload.RequestID, asynq.SkipRetry)
	case err != nil:
		logger.Error("mark payout notified", slog.Any("error", err))
		return err
	case !notified:
		logger.Info("payout already notified")
		return nil
	}

	msg := FormatPayout(j.Currency, notice.Request)
	if j.Notifier != nil {
		if err := j.Notifier.NotifyPayout(ctx, notice.GuardianID, msg); err != nil {
			logger.Warn("payout notice delivery failed", slog.Any("error", err))
		}
	}
	j.Metrics.AddPayouts("notified", 1)
	logger.Info("payout notified", slog.String("guardian_id", notice.GuardianID.String()), slog.String("cash", msg))
	return nil
}

// FormatPayout renders the notice text with the cash amount in unit.
func FormatPayout(unit currency.Unit, req requests.Request) string {
	p := message.NewPrinter(language.English)
	cash := "n/a"
	if req.CashAmount.Valid {
		cash = unit.String() + " " + req.CashAmount.Decimal.StringFixed(2)
	}
	return p.Sprintf("Pay out %s for %d coins (%s)", cash, req.Price, req.Description)
}

func (j *PayoutJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

// PayoutEnqueuer schedules payout tasks.
type PayoutEnqueuer interface {
	EnqueuePayout(ctx context.Context, requestID uuid.UUID) error
}

// PayoutSweepJob re-enqueues approved redemptions whose payout is still pending.
type PayoutSweepJob struct {
	Requests PayoutService
	Queue    PayoutEnqueuer
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
	clock    func() time.Time
}

// NewPayoutSweepJob wires dependencies for the sweep handler.
func NewPayoutSweepJob(svc PayoutService, queue PayoutEnqueuer, logger *slog.Logger, metrics *jobmetrics.Metrics) *PayoutSweepJob {
	return &PayoutSweepJob{
		Requests: svc,
		Queue:    queue,
		Logger:   logger,
		Metrics:  metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes TaskPayoutSweep tasks.
func (j *PayoutSweepJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload PayoutSweepPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("payout sweep: bad payload: %w", asynq.SkipRetry)
		}
	}
	_, err := j.Sweep(ctx, payload.BatchSize)
	return err
}

// Sweep re-enqueues up to batchSize pending payouts and returns how many were queued.
func (j *PayoutSweepJob) Sweep(ctx context.Context, batchSize int) (queued int, err error) {
	if j == nil || j.Requests == nil || j.Queue == nil {
		return 0, errors.New("payout sweep: handler not configured")
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	tracker := j.Metrics.Track(TaskPayoutSweep)
	defer func() { tracker.End(err) }()

	started := j.clock()
	pending, err := j.Requests.PendingPayouts(ctx, batchSize)
	if err != nil {
		j.logger().Error("load pending payouts", slog.Any("error", err))
		return 0, err
	}
	j.Metrics.SetBacklog(len(pending))
	for _, req := range pending {
		if err = j.Queue.EnqueuePayout(ctx, req.ID); err != nil {
			j.logger().Error("requeue payout", slog.String("request_id", req.ID.String()), slog.Any("error", err))
			break
		}
		queued++
	}
	j.Metrics.AddPayouts("requeued", queued)
	j.logger().Info("payout sweep finished",
		slog.Int("pending", len(pending)),
		slog.Int("queued", queued),
		slog.Duration("elapsed", j.clock().Sub(started)))
	return queued, err
}

func (j *PayoutSweepJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
