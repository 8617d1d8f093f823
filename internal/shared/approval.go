package shared

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/coincraft/coincraft/internal/platform/db"
)

// ApprovalAction enumerates approval log actions.
type ApprovalAction string

const (
	// ApprovalSubmit marks a submit action (task completed, request created).
	ApprovalSubmit ApprovalAction = "SUBMIT"
	// ApprovalApprove marks an approve action.
	ApprovalApprove ApprovalAction = "APPROVE"
	// ApprovalReject marks a reject action.
	ApprovalReject ApprovalAction = "REJECT"
)

// Workflow names used in the approval log.
const (
	WorkflowTask       = "task"
	WorkflowPurchase   = "purchase"
	WorkflowRedemption = "redemption"
)

// ApprovalLog represents a single approval record.
type ApprovalLog struct {
	ID       int64          `json:"id"`
	Workflow string         `json:"workflow"`
	RefID    uuid.UUID      `json:"ref_id"`
	ActorID  uuid.UUID      `json:"actor_id"`
	Action   ApprovalAction `json:"action"`
	Note     string         `json:"note,omitempty"`
	At       time.Time      `json:"at"`
}

// Check verifies the log carries the fields every record needs.
func (l ApprovalLog) Check() error {
	if l.Workflow == "" {
		return errors.New("approval workflow required")
	}
	if l.ActorID == uuid.Nil {
		return errors.New("approval actor required")
	}
	if l.RefID == uuid.Nil {
		return errors.New("approval ref id required")
	}
	if l.Action == "" {
		return errors.New("approval action required")
	}
	return nil
}

// ApprovalRecorder persists approval history. Writes join the caller's transaction.
type ApprovalRecorder struct {
	pool *pgxpool.Pool
}

// NewApprovalRecorder constructs ApprovalRecorder.
func NewApprovalRecorder(pool *pgxpool.Pool) *ApprovalRecorder {
	return &ApprovalRecorder{pool: pool}
}

// Record writes approval entry to database.
func (r *ApprovalRecorder) Record(ctx context.Context, log ApprovalLog) error {
	if r == nil {
		return errors.New("approval recorder not initialised")
	}
	if err := log.Check(); err != nil {
		return err
	}
	var at any
	if !log.At.IsZero() {
		at = log.At
	}
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `INSERT INTO approvals (workflow, ref_id, actor_id, action, note, at)
VALUES ($1, $2, $3, $4, $5, COALESCE($6, NOW()))`, log.Workflow, log.RefID, log.ActorID, string(log.Action), log.Note, at)
	return err
}

// List returns approvals for workflow/ref, oldest first.
func (r *ApprovalRecorder) List(ctx context.Context, workflow string, ref uuid.UUID) ([]ApprovalLog, error) {
	if r == nil {
		return nil, errors.New("approval recorder not initialised")
	}
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `SELECT id, workflow, ref_id, actor_id, action, note, at
FROM approvals WHERE workflow=$1 AND ref_id=$2 ORDER BY at ASC, id ASC`, workflow, ref)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var logs []ApprovalLog
	for rows.Next() {
		var l ApprovalLog
		var action string
		if err := rows.Scan(&l.ID, &l.Workflow, &l.RefID, &l.ActorID, &action, &l.Note, &l.At); err != nil {
			return nil, err
		}
		l.Action = ApprovalAction(action)
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return logs, nil
}
