package dashboard

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/coincraft/coincraft/internal/accounts"
	"github.com/coincraft/coincraft/internal/goals"
	"github.com/coincraft/coincraft/internal/ledger"
	"github.com/coincraft/coincraft/internal/requests"
	"github.com/coincraft/coincraft/internal/shared"
	"github.com/coincraft/coincraft/internal/tasks"
)

// Accounts reads accounts.
type Accounts interface {
	Get(ctx context.Context, actorID uuid.UUID) (accounts.Account, error)
	Children(ctx context.Context, guardianID uuid.UUID) ([]accounts.Account, error)
}

// Ledger reads entries and rollups.
type Ledger interface {
	EntriesForMany(ctx context.Context, actorIDs []uuid.UUID, f ledger.Filter) (ledger.Page, error)
	Rollups(ctx context.Context, actorID uuid.UUID) (ledger.Rollups, error)
}

// Goals counts goals.
type Goals interface {
	Counts(ctx context.Context, ownerID uuid.UUID) (goals.Counts, error)
}

// Tasks counts tasks.
type Tasks interface {
	Count(ctx context.Context, f tasks.Filter) (int, error)
}

// Requests counts pending requests.
type Requests interface {
	PendingFor(ctx context.Context, requesterIDs []uuid.UUID) (requests.PendingCounts, error)
}

// Service builds dashboards.
type Service struct {
	accounts    Accounts
	ledger      Ledger
	goals       Goals
	tasks       Tasks
	requests    Requests
	logger      *slog.Logger
	recentLimit int
	fanOut      int
}

// NewService membuat service dashboard baru. recentLimit membatasi jumlah entri terbaru.
func NewService(accts Accounts, l Ledger, g Goals, t Tasks, r Requests, logger *slog.Logger, recentLimit int) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if recentLimit <= 0 {
		recentLimit = 10
	}
	return &Service{accounts: accts, ledger: l, goals: g, tasks: t, requests: r, logger: logger, recentLimit: recentLimit, fanOut: 4}
}

// For returns the dashboard matching the caller's role.
func (s *Service) For(ctx context.Context, actor shared.Actor) (any, error) {
	if actor.Role.IsGuardian() {
		return s.ForGuardian(ctx, actor.ID)
	}
	return s.ForChild(ctx, actor.ID)
}

// ForChild summarises one child.
func (s *Service) ForChild(ctx context.Context, childID uuid.UUID) (ChildSummary, error) {
	acct, err := s.accounts.Get(ctx, childID)
	if err != nil {
		return ChildSummary{}, err
	}
	return s.childSummary(ctx, acct)
}

func (s *Service) childSummary(ctx context.Context, acct accounts.Account) (ChildSummary, error) {
	out := ChildSummary{Account: acct}
	var err error
	if out.Goals, err = s.goals.Counts(ctx, acct.ActorID); err != nil {
		return ChildSummary{}, fmt.Errorf("dashboard: goals: %w", err)
	}
	out.PendingTasks, err = s.tasks.Count(ctx, tasks.Filter{
		AssignedTo: acct.ActorID,
		Statuses:   []tasks.Status{tasks.StatusPending, tasks.StatusInProgress},
	})
	if err != nil {
		return ChildSummary{}, fmt.Errorf("dashboard: tasks: %w", err)
	}
	page, err := s.ledger.EntriesForMany(ctx, []uuid.UUID{acct.ActorID}, ledger.Filter{Limit: s.recentLimit})
	if err != nil {
		return ChildSummary{}, fmt.Errorf("dashboard: entries: %w", err)
	}
	out.Recent = page.Entries
	if out.Rollups, err = s.ledger.Rollups(ctx, acct.ActorID); err != nil {
		return ChildSummary{}, fmt.Errorf("dashboard: rollups: %w", err)
	}
	return out, nil
}

// ForGuardian summarises every child of the guardian plus family totals.
func (s *Service) ForGuardian(ctx context.Context, guardianID uuid.UUID) (GuardianSummary, error) {
	kids, err := s.accounts.Children(ctx, guardianID)
	if err != nil {
		return GuardianSummary{}, err
	}
	out := GuardianSummary{
		GuardianID: guardianID,
		Children:   make([]ChildSummary, len(kids)),
		Recent:     []ledger.Entry{},
	}
	ids := make([]uuid.UUID, len(kids))
	for i, k := range kids {
		ids[i] = k.ActorID
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.fanOut)
	for i, kid := range kids {
		g.Go(func() error {
			summary, err := s.childSummary(gctx, kid)
			if err != nil {
				return err
			}
			out.Children[i] = summary
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return GuardianSummary{}, err
	}

	for _, c := range out.Children {
		out.TotalBalance += c.Account.Balance
		out.Rollups = out.Rollups.Add(c.Rollups)
	}
	if len(ids) > 0 {
		page, err := s.ledger.EntriesForMany(ctx, ids, ledger.Filter{Limit: s.recentLimit})
		if err != nil {
			return GuardianSummary{}, fmt.Errorf("dashboard: family entries: %w", err)
		}
		out.Recent = page.Entries
	}
	out.Pending.Tasks, err = s.tasks.Count(ctx, tasks.Filter{AssignedBy: guardianID, Statuses: []tasks.Status{tasks.StatusCompleted}})
	if err != nil {
		return GuardianSummary{}, fmt.Errorf("dashboard: pending tasks: %w", err)
	}
	pending, err := s.requests.PendingFor(ctx, ids)
	if err != nil {
		return GuardianSummary{}, fmt.Errorf("dashboard: pending requests: %w", err)
	}
	out.Pending.Purchases, out.Pending.Redemptions = pending.Purchases, pending.Redemptions
	return out, nil
}
