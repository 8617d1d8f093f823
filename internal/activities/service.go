package activities

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/coincraft/coincraft/internal/catalog"
	"github.com/coincraft/coincraft/internal/ledger"
	"github.com/coincraft/coincraft/internal/platform/db"
	"github.com/coincraft/coincraft/internal/shared"
)

// RepositoryPort defines data access methods for module progress.
type RepositoryPort interface {
	InsertProgress(ctx context.Context, p Progress) error
	GetProgress(ctx context.Context, actorID, moduleID uuid.UUID) (Progress, bool, error)
	ListProgress(ctx context.Context, actorID uuid.UUID) ([]Progress, error)
}

// Modules supplies module rewards.
type Modules interface {
	GetModule(ctx context.Context, id uuid.UUID) (catalog.Module, error)
}

// Ledger records coin movements.
type Ledger interface {
	Record(ctx context.Context, actorID uuid.UUID, kind ledger.Kind, amount int64, reason ledger.Reason) (ledger.Entry, error)
}

// Service records module completions.
type Service struct {
	repo    RepositoryPort
	modules Modules
	ledger  Ledger
	tx      db.Transactor
	logger  *slog.Logger
	now     func() time.Time
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, modules Modules, l Ledger, tx db.Transactor, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, modules: modules, ledger: l, tx: tx, logger: logger, now: time.Now}
}

// Complete records a module result and credits the reward once per child.
func (s *Service) Complete(ctx context.Context, actor shared.Actor, moduleID uuid.UUID, input CompleteInput) (Progress, error) {
	if !actor.Role.IsChild() {
		return Progress{}, fmt.Errorf("%w: only children complete modules", shared.ErrForbidden)
	}
	if err := shared.Validate(input); err != nil {
		return Progress{}, err
	}
	module, err := s.modules.GetModule(ctx, moduleID)
	if err != nil {
		return Progress{}, err
	}
	if !module.IsPublished {
		return Progress{}, fmt.Errorf("module: %w", shared.ErrNotFound)
	}
	p := Progress{
		ActorID:     actor.ID,
		ModuleID:    moduleID,
		Score:       input.Score,
		CoinsEarned: Reward(input.Score, module.PointsReward),
		CompletedAt: s.now().UTC(),
	}
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, done, err := s.repo.GetProgress(ctx, actor.ID, moduleID); err != nil {
			return err
		} else if done {
			return ErrAlreadyCompleted
		}
		if err := s.repo.InsertProgress(ctx, p); err != nil {
			return err
		}
		if p.CoinsEarned == 0 {
			return nil
		}
		_, err := s.ledger.Record(ctx, actor.ID, ledger.KindEarn, p.CoinsEarned, ledger.Reason{
			Category:       "learning",
			Description:    "Completed module: " + module.Title,
			Source:         "activity",
			Cause:          ledger.Cause{Kind: ledger.CauseActivity, ID: moduleID},
			IdempotencyKey: "activity:" + moduleID.String(),
		})
		return err
	})
	if err != nil {
		return Progress{}, err
	}
	s.logger.Info("module completed",
		slog.String("module_id", moduleID.String()),
		slog.Int("score", p.Score),
		slog.Int64("coins", p.CoinsEarned))
	return p, nil
}

// Progress lists the caller's completed modules.
func (s *Service) Progress(ctx context.Context, actor shared.Actor) ([]Progress, error) {
	return s.repo.ListProgress(ctx, actor.ID)
}
