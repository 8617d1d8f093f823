package app

import (
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/coincraft/coincraft/internal/accounts"
	"github.com/coincraft/coincraft/internal/activities"
	"github.com/coincraft/coincraft/internal/catalog"
	"github.com/coincraft/coincraft/internal/dashboard"
	"github.com/coincraft/coincraft/internal/goals"
	"github.com/coincraft/coincraft/internal/ledger"
	"github.com/coincraft/coincraft/internal/observability"
	"github.com/coincraft/coincraft/internal/platform/db"
	"github.com/coincraft/coincraft/internal/requests"
	"github.com/coincraft/coincraft/internal/shared"
	"github.com/coincraft/coincraft/internal/tasks"
)

// Services holds the domain services backed by PostgreSQL.
type Services struct {
	Accounts   *accounts.Service
	Ledger     *ledger.Service
	Catalog    *catalog.Service
	Goals      *goals.Service
	Tasks      *tasks.Service
	Requests   *requests.Service
	Activities *activities.Service
	Dashboard  *dashboard.Service
}

// NewServices wires repositories and services over one pool. Every service
// shares the same transaction manager so nested atomic units join.
func NewServices(pool *pgxpool.Pool, cfg *Config, logger *slog.Logger, metrics *observability.Metrics) *Services {
	tx := db.NewTxManager(pool)
	approvals := shared.NewApprovalRecorder(pool)

	accountsRepo := accounts.NewRepository(pool)
	accts := accounts.NewService(accountsRepo, logger, cfg.ExchangeRate())

	led := ledger.NewService(ledger.NewRepository(pool), accountsRepo, tx, logger)
	cat := catalog.NewService(catalog.NewRepository(pool), logger)
	g := goals.NewService(goals.NewRepository(pool), led, accts, tx, logger)
	t := tasks.NewService(tasks.NewRepository(pool), led, accts, approvals, tx, logger)
	r := requests.NewService(requests.NewRepository(pool), accts, cat, led, approvals, tx, logger)
	act := activities.NewService(activities.NewRepository(pool), cat, led, tx, logger)
	dash := dashboard.NewService(accts, led, g, t, r, logger, cfg.DashboardRecentLimit)

	if metrics != nil {
		led.SetObserver(metrics)
		t.SetObserver(metrics)
		r.SetObserver(metrics)
	}

	return &Services{
		Accounts:   accts,
		Ledger:     led,
		Catalog:    cat,
		Goals:      g,
		Tasks:      t,
		Requests:   r,
		Activities: act,
		Dashboard:  dash,
	}
}

// Handlers builds the HTTP adapters for every service.
func (s *Services) Handlers(logger *slog.Logger) RouterParams {
	return RouterParams{
		Logger:            logger,
		AccountsHandler:   accounts.NewHandler(logger, s.Accounts),
		LedgerHandler:     ledger.NewHandler(logger, s.Ledger),
		CatalogHandler:    catalog.NewHandler(logger, s.Catalog),
		GoalsHandler:      goals.NewHandler(logger, s.Goals),
		TasksHandler:      tasks.NewHandler(logger, s.Tasks),
		RequestsHandler:   requests.NewHandler(logger, s.Requests),
		ActivitiesHandler: activities.NewHandler(logger, s.Activities),
		DashboardHandler:  dashboard.NewHandler(logger, s.Dashboard),
	}
}
