package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/coincraft/coincraft/internal/accounts"
	"github.com/coincraft/coincraft/internal/activities"
	"github.com/coincraft/coincraft/internal/auth"
	"github.com/coincraft/coincraft/internal/catalog"
	"github.com/coincraft/coincraft/internal/dashboard"
	"github.com/coincraft/coincraft/internal/goals"
	"github.com/coincraft/coincraft/internal/ledger"
	"github.com/coincraft/coincraft/internal/observability"
	"github.com/coincraft/coincraft/internal/requests"
	"github.com/coincraft/coincraft/internal/tasks"
	"github.com/coincraft/coincraft/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger   *slog.Logger
	Config   *Config
	Metrics  *observability.Metrics
	Sessions auth.Resolver

	AuthHandler       *auth.Handler
	AccountsHandler   *accounts.Handler
	LedgerHandler     *ledger.Handler
	CatalogHandler    *catalog.Handler
	GoalsHandler      *goals.Handler
	TasksHandler      *tasks.Handler
	RequestsHandler   *requests.Handler
	ActivitiesHandler *activities.Handler
	DashboardHandler  *dashboard.Handler
	JobHandler        *jobs.Handler
}

// NewRouter constructs the chi.Router. Everything except /healthz and
// /metrics requires a bearer session.
func NewRouter(params RouterParams) http.Handler {
	logger := params.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	perMinute := 0
	if params.Config != nil {
		perMinute = params.Config.RateLimitPerMinute
	}
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(params.Sessions, logger))
		r.Use(RateLimit(perMinute))

		if params.AuthHandler != nil {
			params.AuthHandler.MountRoutes(r)
		}
		if params.AccountsHandler != nil {
			params.AccountsHandler.MountRoutes(r)
		}
		if params.LedgerHandler != nil {
			params.LedgerHandler.MountRoutes(r)
		}
		if params.CatalogHandler != nil {
			params.CatalogHandler.MountRoutes(r)
		}
		if params.GoalsHandler != nil {
			params.GoalsHandler.MountRoutes(r)
		}
		if params.TasksHandler != nil {
			params.TasksHandler.MountRoutes(r)
		}
		if params.RequestsHandler != nil {
			params.RequestsHandler.MountRoutes(r)
		}
		if params.ActivitiesHandler != nil {
			params.ActivitiesHandler.MountRoutes(r)
		}
		if params.DashboardHandler != nil {
			params.DashboardHandler.MountRoutes(r)
		}
	})
	return r
}
