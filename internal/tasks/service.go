package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/coincraft/coincraft/internal/ledger"
	"github.com/coincraft/coincraft/internal/platform/db"
	"github.com/coincraft/coincraft/internal/shared"
)

// RepositoryPort defines data access methods for tasks.
type RepositoryPort interface {
	InsertTask(ctx context.Context, t Task) error
	GetTask(ctx context.Context, id uuid.UUID) (Task, error)
	LockTask(ctx context.Context, id uuid.UUID) (Task, error)
	UpdateTask(ctx context.Context, t Task) error
	DeleteTask(ctx context.Context, id uuid.UUID) error
	ListTasks(ctx context.Context, f Filter) ([]Task, error)
	CountTasks(ctx context.Context, f Filter) (int, error)
}

// Ledger records coin movements.
type Ledger interface {
	Record(ctx context.Context, actorID uuid.UUID, kind ledger.Kind, amount int64, reason ledger.Reason) (ledger.Entry, error)
}

// Guardians resolves an actor's guardian.
type Guardians interface {
	GuardianOf(ctx context.Context, actorID uuid.UUID) (*uuid.UUID, error)
}

// ApprovalLog appends workflow history.
type ApprovalLog interface {
	Record(ctx context.Context, log shared.ApprovalLog) error
}

// DecisionObserver counts workflow decisions.
type DecisionObserver interface {
	ObserveDecision(workflow, decision string)
}

// Service runs the task workflow.
type Service struct {
	repo      RepositoryPort
	ledger    Ledger
	guardians Guardians
	approvals ApprovalLog
	tx        db.Transactor
	logger    *slog.Logger
	observer  DecisionObserver
	now       func() time.Time
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, l Ledger, guardians Guardians, approvals ApprovalLog, tx db.Transactor, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, ledger: l, guardians: guardians, approvals: approvals, tx: tx, logger: logger, now: time.Now}
}

// SetObserver attaches a metrics observer.
func (s *Service) SetObserver(o DecisionObserver) {
	s.observer = o
}

// Create assigns a task to one of the caller's children.
func (s *Service) Create(ctx context.Context, actor shared.Actor, input CreateInput) (Task, error) {
	if !actor.Role.IsGuardian() {
		return Task{}, fmt.Errorf("%w: only guardians assign tasks", shared.ErrForbidden)
	}
	if input.CoinsReward <= 0 {
		return Task{}, fmt.Errorf("%w: coins_reward must be positive", shared.ErrInvalidAmount)
	}
	if input.AssignedTo == uuid.Nil {
		return Task{}, fmt.Errorf("%w: assigned_to required", shared.ErrValidation)
	}
	if err := shared.Validate(input); err != nil {
		return Task{}, err
	}
	guardian, err := s.guardians.GuardianOf(ctx, input.AssignedTo)
	if err != nil {
		return Task{}, err
	}
	if guardian == nil || *guardian != actor.ID {
		return Task{}, fmt.Errorf("%w: not the guardian of %s", shared.ErrForbidden, input.AssignedTo)
	}
	requiresApproval := true
	if input.RequiresApproval != nil {
		requiresApproval = *input.RequiresApproval
	}
	now := s.now().UTC()
	t := Task{
		ID:               uuid.New(),
		Title:            input.Title,
		Description:      input.Description,
		AssignedBy:       actor.ID,
		AssignedTo:       input.AssignedTo,
		CoinsReward:      input.CoinsReward,
		DueDate:          input.DueDate,
		Status:           StatusPending,
		RequiresApproval: requiresApproval,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.repo.InsertTask(ctx, t); err != nil {
		return Task{}, fmt.Errorf("tasks: insert: %w", err)
	}
	return t, nil
}

// List returns the caller's tasks: assigned to a child, assigned by a guardian.
func (s *Service) List(ctx context.Context, actor shared.Actor, statuses ...Status) ([]Task, error) {
	f := Filter{Statuses: statuses}
	if actor.Role.IsChild() {
		f.AssignedTo = actor.ID
	} else {
		f.AssignedBy = actor.ID
	}
	return s.repo.ListTasks(ctx, f)
}

// Count counts tasks matching f.
func (s *Service) Count(ctx context.Context, f Filter) (int, error) {
	return s.repo.CountTasks(ctx, f)
}

// Get returns a task visible to its assigner or assignee.
func (s *Service) Get(ctx context.Context, actor shared.Actor, id uuid.UUID) (Task, error) {
	t, err := s.repo.GetTask(ctx, id)
	if err != nil {
		return Task{}, err
	}
	if actor.ID != t.AssignedBy && actor.ID != t.AssignedTo {
		return Task{}, fmt.Errorf("%w: task belongs to another family", shared.ErrForbidden)
	}
	return t, nil
}

// Transition moves a task to target on behalf of actor.
func (s *Service) Transition(ctx context.Context, actor shared.Actor, id uuid.UUID, target Status) (Task, error) {
	switch target {
	case StatusInProgress:
		return s.Start(ctx, actor, id)
	case StatusCompleted:
		return s.Complete(ctx, actor, id)
	case StatusApproved:
		return s.Approve(ctx, actor, id)
	case StatusRejected:
		return s.Reject(ctx, actor, id, "")
	default:
		return Task{}, fmt.Errorf("%w: cannot move a task to %q", shared.ErrInvalidStateTransition, target)
	}
}

// mutate locks the task, runs fn on it and persists the result in one atomic unit.
func (s *Service) mutate(ctx context.Context, id uuid.UUID, fn func(ctx context.Context, t *Task) error) (Task, error) {
	var out Task
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		t, err := s.repo.LockTask(ctx, id)
		if err != nil {
			return err
		}
		if err := fn(ctx, &t); err != nil {
			return err
		}
		t.UpdatedAt = s.now().UTC()
		if err := s.repo.UpdateTask(ctx, t); err != nil {
			return fmt.Errorf("tasks: update: %w", err)
		}
		out = t
		return nil
	})
	return out, err
}

// Start moves a pending task to in_progress. Assignee only.
func (s *Service) Start(ctx context.Context, actor shared.Actor, id uuid.UUID) (Task, error) {
	return s.mutate(ctx, id, func(_ context.Context, t *Task) error {
		if t.AssignedTo != actor.ID {
			return fmt.Errorf("%w: only the assignee may start a task", shared.ErrForbidden)
		}
		if t.Status != StatusPending {
			return fmt.Errorf("%w: cannot start a %s task", shared.ErrInvalidStateTransition, t.Status)
		}
		t.Status = StatusInProgress
		return nil
	})
}

// Complete marks an open task completed. Assignee only. Tasks that do not
// require approval are approved and credited in the same atomic unit.
func (s *Service) Complete(ctx context.Context, actor shared.Actor, id uuid.UUID) (Task, error) {
	t, err := s.mutate(ctx, id, func(ctx context.Context, t *Task) error {
		if t.AssignedTo != actor.ID {
			return fmt.Errorf("%w: only the assignee may complete a task", shared.ErrForbidden)
		}
		if !t.Status.Open() {
			return fmt.Errorf("%w: cannot complete a %s task", shared.ErrInvalidStateTransition, t.Status)
		}
		now := s.now().UTC()
		t.Status = StatusCompleted
		t.CompletedAt = &now
		if err := s.log(ctx, t.ID, actor.ID, shared.ApprovalSubmit, ""); err != nil {
			return err
		}
		if !t.RequiresApproval {
			return s.approve(ctx, t, t.AssignedBy, "auto-approved")
		}
		return nil
	})
	if err != nil {
		return Task{}, err
	}
	s.logger.Info("task completed", slog.String("task_id", id.String()), slog.String("status", string(t.Status)))
	if t.Status == StatusApproved {
		s.observe(string(shared.ApprovalApprove))
	}
	return t, nil
}

// Approve credits the reward and marks a completed task approved. Assigner only.
// A second approval fails with ErrAlreadyApproved and credits nothing.
func (s *Service) Approve(ctx context.Context, actor shared.Actor, id uuid.UUID) (Task, error) {
	t, err := s.mutate(ctx, id, func(ctx context.Context, t *Task) error {
		if t.AssignedBy != actor.ID {
			return fmt.Errorf("%w: only the assigner may approve a task", shared.ErrForbidden)
		}
		switch t.Status {
		case StatusApproved:
			return shared.ErrAlreadyApproved
		case StatusPending, StatusInProgress:
			return shared.ErrNotYetCompleted
		case StatusRejected:
			return fmt.Errorf("%w: task was rejected", shared.ErrInvalidStateTransition)
		}
		return s.approve(ctx, t, actor.ID, "")
	})
	if err != nil {
		return Task{}, err
	}
	s.logger.Info("task approved",
		slog.String("task_id", id.String()),
		slog.String("assignee", t.AssignedTo.String()),
		slog.Int64("reward", t.CoinsReward))
	s.observe(string(shared.ApprovalApprove))
	return t, nil
}

func (s *Service) approve(ctx context.Context, t *Task, approver uuid.UUID, note string) error {
	if _, err := s.ledger.Record(ctx, t.AssignedTo, ledger.KindEarn, t.CoinsReward, ledger.Reason{
		Category:       "task",
		Description:    "Task reward: " + t.Title,
		Source:         "task",
		Cause:          ledger.Cause{Kind: ledger.CauseTask, ID: t.ID},
		IdempotencyKey: "task:" + t.ID.String(),
	}); err != nil {
		return err
	}
	now := s.now().UTC()
	t.Status = StatusApproved
	t.ApprovedAt = &now
	return s.log(ctx, t.ID, approver, shared.ApprovalApprove, note)
}

// Reject marks a completed task rejected without any ledger effect. Assigner only.
func (s *Service) Reject(ctx context.Context, actor shared.Actor, id uuid.UUID, note string) (Task, error) {
	t, err := s.mutate(ctx, id, func(ctx context.Context, t *Task) error {
		if t.AssignedBy != actor.ID {
			return fmt.Errorf("%w: only the assigner may reject a task", shared.ErrForbidden)
		}
		if t.Status != StatusCompleted {
			return fmt.Errorf("%w: cannot reject a %s task", shared.ErrInvalidStateTransition, t.Status)
		}
		t.Status = StatusRejected
		return s.log(ctx, t.ID, actor.ID, shared.ApprovalReject, note)
	})
	if err != nil {
		return Task{}, err
	}
	s.logger.Info("task rejected", slog.String("task_id", id.String()))
	s.observe(string(shared.ApprovalReject))
	return t, nil
}

// Delete removes a task in any status. Assigner only.
func (s *Service) Delete(ctx context.Context, actor shared.Actor, id uuid.UUID) error {
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		t, err := s.repo.LockTask(ctx, id)
		if err != nil {
			return err
		}
		if t.AssignedBy != actor.ID {
			return fmt.Errorf("%w: only the assigner may delete a task", shared.ErrForbidden)
		}
		return s.repo.DeleteTask(ctx, id)
	})
}

func (s *Service) log(ctx context.Context, id, actorID uuid.UUID, action shared.ApprovalAction, note string) error {
	if s.approvals == nil {
		return nil
	}
	if err := s.approvals.Record(ctx, shared.ApprovalLog{
		Workflow: shared.WorkflowTask,
		RefID:    id,
		ActorID:  actorID,
		Action:   action,
		Note:     note,
		At:       s.now().UTC(),
	}); err != nil {
		return fmt.Errorf("tasks: approval log: %w", err)
	}
	return nil
}

func (s *Service) observe(decision string) {
	if s.observer != nil {
		s.observer.ObserveDecision(shared.WorkflowTask, decision)
	}
}
