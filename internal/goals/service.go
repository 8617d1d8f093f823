package goals

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

// RepositoryPort defines data access methods for goals.
type RepositoryPort interface {
	InsertGoal(ctx context.Context, g Goal) error
	GetGoal(ctx context.Context, id uuid.UUID) (Goal, error)
	LockGoal(ctx context.Context, id uuid.UUID) (Goal, error)
	UpdateGoal(ctx context.Context, g Goal) error
	DeleteGoal(ctx context.Context, id uuid.UUID) error
	ListGoals(ctx context.Context, ownerID uuid.UUID) ([]Goal, error)
	CountGoals(ctx context.Context, ownerID uuid.UUID) (Counts, error)
}

// Ledger records coin movements.
type Ledger interface {
	Record(ctx context.Context, actorID uuid.UUID, kind ledger.Kind, amount int64, reason ledger.Reason) (ledger.Entry, error)
}

// Guardians resolves an actor's guardian.
type Guardians interface {
	GuardianOf(ctx context.Context, actorID uuid.UUID) (*uuid.UUID, error)
}

// RefundCategory is the ledger category of coins returned from a deleted goal.
const RefundCategory = ledger.CategoryGoalRefund

// Service handles goal business logic.
type Service struct {
	repo      RepositoryPort
	ledger    Ledger
	guardians Guardians
	tx        db.Transactor
	logger    *slog.Logger
	now       func() time.Time
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, l Ledger, guardians Guardians, tx db.Transactor, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, ledger: l, guardians: guardians, tx: tx, logger: logger, now: time.Now}
}

// Create adds a goal owned by the caller.
func (s *Service) Create(ctx context.Context, actor shared.Actor, input CreateInput) (Goal, error) {
	if input.TargetAmount <= 0 {
		return Goal{}, fmt.Errorf("%w: target_amount must be positive", shared.ErrInvalidAmount)
	}
	if err := shared.Validate(input); err != nil {
		return Goal{}, err
	}
	now := s.now().UTC()
	g := Goal{
		ID:           uuid.New(),
		OwnerID:      actor.ID,
		Title:        input.Title,
		Description:  input.Description,
		TargetAmount: input.TargetAmount,
		Deadline:     input.Deadline,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.InsertGoal(ctx, g); err != nil {
		return Goal{}, fmt.Errorf("goals: insert: %w", err)
	}
	return g, nil
}

// canView allows the owner and the owner's guardian.
func (s *Service) canView(ctx context.Context, actor shared.Actor, ownerID uuid.UUID) error {
	if actor.ID == ownerID {
		return nil
	}
	guardian, err := s.guardians.GuardianOf(ctx, ownerID)
	if err != nil {
		return err
	}
	if guardian == nil || *guardian != actor.ID {
		return fmt.Errorf("%w: goal belongs to another actor", shared.ErrForbidden)
	}
	return nil
}

// List returns the owner's goals.
func (s *Service) List(ctx context.Context, actor shared.Actor, ownerID uuid.UUID) ([]Goal, error) {
	if err := s.canView(ctx, actor, ownerID); err != nil {
		return nil, err
	}
	return s.repo.ListGoals(ctx, ownerID)
}

// Counts returns the owner's active and completed goal counts.
func (s *Service) Counts(ctx context.Context, ownerID uuid.UUID) (Counts, error) {
	return s.repo.CountGoals(ctx, ownerID)
}

// Get returns one goal.
func (s *Service) Get(ctx context.Context, actor shared.Actor, id uuid.UUID) (Goal, error) {
	g, err := s.repo.GetGoal(ctx, id)
	if err != nil {
		return Goal{}, err
	}
	if err := s.canView(ctx, actor, g.OwnerID); err != nil {
		return Goal{}, err
	}
	return g, nil
}

// Update changes the goal's descriptive fields. A new target may not drop
// below the saved amount, and a completed goal keeps its target.
func (s *Service) Update(ctx context.Context, actor shared.Actor, id uuid.UUID, input UpdateInput) (Goal, error) {
	if err := shared.Validate(input); err != nil {
		return Goal{}, err
	}
	var out Goal
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		g, err := s.repo.LockGoal(ctx, id)
		if err != nil {
			return err
		}
		if g.OwnerID != actor.ID {
			return fmt.Errorf("%w: only the owner may edit a goal", shared.ErrForbidden)
		}
		if input.Title != nil {
			g.Title = *input.Title
		}
		if input.Description != nil {
			g.Description = *input.Description
		}
		if input.Deadline != nil {
			g.Deadline = input.Deadline
		}
		if input.TargetAmount != nil && *input.TargetAmount != g.TargetAmount {
			target := *input.TargetAmount
			switch {
			case g.IsCompleted:
				return fmt.Errorf("%w: goal already completed", shared.ErrInvalidStateTransition)
			case target <= 0 || target < g.CurrentAmount:
				return fmt.Errorf("%w: target_amount must be positive and at least %d", shared.ErrInvalidAmount, g.CurrentAmount)
			}
			g.TargetAmount = target
			g.IsCompleted = g.CurrentAmount >= g.TargetAmount
		}
		g.UpdatedAt = s.now().UTC()
		if err := s.repo.UpdateGoal(ctx, g); err != nil {
			return fmt.Errorf("goals: update: %w", err)
		}
		out = g
		return nil
	})
	return out, err
}

// Delete removes a goal and returns its saved coins to the owner.
func (s *Service) Delete(ctx context.Context, actor shared.Actor, id uuid.UUID) error {
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		g, err := s.repo.LockGoal(ctx, id)
		if err != nil {
			return err
		}
		if g.OwnerID != actor.ID {
			return fmt.Errorf("%w: only the owner may delete a goal", shared.ErrForbidden)
		}
		if err := s.repo.DeleteGoal(ctx, id); err != nil {
			return fmt.Errorf("goals: delete: %w", err)
		}
		if g.CurrentAmount > 0 {
			if _, err := s.ledger.Record(ctx, g.OwnerID, ledger.KindEarn, g.CurrentAmount, ledger.Reason{
				Category:    RefundCategory,
				Description: "Refund from deleted goal: " + g.Title,
				Source:      "goal",
				Cause:       ledger.Cause{Kind: ledger.CauseGoal, ID: g.ID},
			}); err != nil {
				return err
			}
		}
		s.logger.Info("goal deleted", slog.String("goal_id", id.String()), slog.Int64("refunded", g.CurrentAmount))
		return nil
	})
}

// Contribute moves coins from the owner's balance into the goal. The applied
// amount is capped at what the goal still needs and only that amount is
// recorded. Contributing to a completed goal changes nothing.
func (s *Service) Contribute(ctx context.Context, actor shared.Actor, goalID uuid.UUID, amount int64) (Contribution, error) {
	if amount <= 0 {
		return Contribution{}, fmt.Errorf("%w: amount must be positive, got %d", shared.ErrInvalidAmount, amount)
	}
	var out Contribution
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		g, err := s.repo.LockGoal(ctx, goalID)
		if err != nil {
			return err
		}
		if g.OwnerID != actor.ID {
			return fmt.Errorf("%w: only the owner may contribute", shared.ErrForbidden)
		}
		if g.IsCompleted || g.Remaining() <= 0 {
			out = Contribution{Goal: g}
			return nil
		}
		applied := min(amount, g.Remaining())
		entry, err := s.ledger.Record(ctx, actor.ID, ledger.KindSave, applied, ledger.Reason{
			Category:    "savings",
			Description: "Contribution to goal: " + g.Title,
			Source:      "goal",
			Cause:       ledger.Cause{Kind: ledger.CauseGoal, ID: g.ID},
		})
		if err != nil {
			return err
		}
		g.CurrentAmount += applied
		if g.CurrentAmount >= g.TargetAmount {
			g.IsCompleted = true
		}
		g.UpdatedAt = s.now().UTC()
		if err := s.repo.UpdateGoal(ctx, g); err != nil {
			return fmt.Errorf("goals: update progress: %w", err)
		}
		out = Contribution{Goal: g, Applied: applied, Entry: &entry}
		return nil
	})
	if err != nil {
		return Contribution{}, err
	}
	if out.Applied > 0 {
		s.logger.Info("goal contribution",
			slog.String("goal_id", goalID.String()),
			slog.Int64("requested", amount),
			slog.Int64("applied", out.Applied),
			slog.Bool("completed", out.Goal.IsCompleted))
	}
	return out, nil
}
