package observability

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	return rr.Body.String()
}

func TestMetricsMiddlewareRecordsRequest(t *testing.T) {
	metrics := NewMetrics()

	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = append(routeCtx.RoutePatterns, "/test")

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusTeapot, rr.Code)

	body := scrape(t, metrics)
	require.Contains(t, body, `coincraft_http_requests_total{code="418",route="/test"} 1`)
	require.Contains(t, body, `coincraft_http_request_duration_seconds_bucket{route="/test"`)
}

func TestDomainCounters(t *testing.T) {
	metrics := NewMetrics()
	metrics.ObserveLedgerEntry("earn", 10)
	metrics.ObserveLedgerEntry("earn", 5)
	metrics.ObserveDecision("task", "APPROVE")

	metrics.Jobs().Track("payout:notify").End(errors.New("boom"))
	metrics.Jobs().Track("payout:notify").End(fmt.Errorf("gone: %w", asynq.SkipRetry))
	metrics.Jobs().SetBacklog(4)

	body := scrape(t, metrics)
	require.Contains(t, body, `coincraft_ledger_entries_total{kind="earn"} 2`)
	require.Contains(t, body, `coincraft_ledger_coins_total{kind="earn"} 15`)
	require.Contains(t, body, `coincraft_workflow_decisions_total{decision="APPROVE",workflow="task"} 1`)
	require.Contains(t, body, `coincraft_jobs_runs_total{job="payout:notify",status="failure"} 1`)
	require.Contains(t, body, `coincraft_jobs_runs_total{job="payout:notify",status="skipped"} 1`)
	require.Contains(t, body, `coincraft_redemption_payout_backlog 4`)
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.ObserveLedgerEntry("spend", 1)
	m.ObserveDecision("purchase", "REJECT")
	require.Nil(t, m.Jobs())

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
