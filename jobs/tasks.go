package jobs

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	// QueuePayouts carries per-redemption payout notices.
	QueuePayouts = "payouts"
	// QueueMaintenance carries sweeps and other periodic housekeeping.
	QueueMaintenance = "maintenance"
	// TaskRedemptionPayout notifies a guardian that an approved redemption awaits a cash payout.
	TaskRedemptionPayout = "payout:notify"
	// TaskPayoutSweep re-enqueues payouts whose notification never ran.
	TaskPayoutSweep = "payout:sweep"
)

// Queues lists every queue with its processing weight. Payout notices win
// over housekeeping when both are backed up.
func Queues() map[string]int {
	return map[string]int{
		QueuePayouts:     3,
		QueueMaintenance: 1,
	}
}

// RedemptionPayoutPayload identifies the approved redemption.
type RedemptionPayoutPayload struct {
	RequestID uuid.UUID `json:"request_id"`
}

// PayoutSweepPayload bounds one sweep run.
type PayoutSweepPayload struct {
	BatchSize int `json:"batch_size"`
}

// NewRedemptionPayoutTask builds the payout task. The task id is derived from
// the request so a pending duplicate is rejected by the queue.
func NewRedemptionPayoutTask(requestID uuid.UUID) (*asynq.Task, []asynq.Option, error) {
	data, err := json.Marshal(RedemptionPayoutPayload{RequestID: requestID})
	if err != nil {
		return nil, nil, err
	}
	opts := []asynq.Option{
		asynq.Queue(QueuePayouts),
		asynq.TaskID(payoutTaskID(requestID)),
		asynq.MaxRetry(10),
	}
	return asynq.NewTask(TaskRedemptionPayout, data), opts, nil
}

// NewPayoutSweepTask builds the sweep task.
func NewPayoutSweepTask(batchSize int) (*asynq.Task, error) {
	data, err := json.Marshal(PayoutSweepPayload{BatchSize: batchSize})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPayoutSweep, data), nil
}

func payoutTaskID(requestID uuid.UUID) string {
	return fmt.Sprintf("%s:%s", TaskRedemptionPayout, requestID)
}
