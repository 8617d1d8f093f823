// Package jobmetrics instruments the payout worker.
package jobmetrics

import (
	"errors"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
)

// Run outcomes recorded by Tracker.End.
const (
	StatusSuccess = "success"
	StatusSkipped = "skipped"
	StatusFailure = "failure"
)

// Metrics holds the worker collectors. A nil *Metrics records nothing.
type Metrics struct {
	runs     *prometheus.CounterVec
	duration *prometheus.HistogramVec
	payouts  *prometheus.CounterVec
	backlog  prometheus.Gauge
}

// NewMetrics registers the job collectors on registerer.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coincraft_jobs_runs_total",
			Help: "Job executions by task type and status.",
		}, []string{"job", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "coincraft_job_duration_seconds",
			Help:    "Job execution time by task type.",
			Buckets: []float64{.005, .01, .05, .1, .5, 1, 5, 30},
		}, []string{"job"}),
		payouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coincraft_redemption_payouts_total",
			Help: "Redemption payouts handled by the worker, by outcome.",
		}, []string{"outcome"}),
		backlog: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "coincraft_redemption_payout_backlog",
			Help: "Approved redemptions without a payout notice at the last sweep.",
		}),
	}
	registerer.MustRegister(m.runs, m.duration, m.payouts, m.backlog)
	return m
}

// Tracker times one job run.
type Tracker struct {
	metrics *Metrics
	job     string
	start   time.Time
}

// Track starts timing a run of job.
func (m *Metrics) Track(job string) *Tracker {
	return &Tracker{metrics: m, job: job, start: time.Now()}
}

// End records the run. Errors wrapping asynq.SkipRetry count as skipped.
func (t *Tracker) End(err error) {
	if t == nil || t.metrics == nil {
		return
	}
	t.metrics.runs.WithLabelValues(t.job, Status(err)).Inc()
	t.metrics.duration.WithLabelValues(t.job).Observe(time.Since(t.start).Seconds())
}

// Status classifies a handler result.
func Status(err error) string {
	switch {
	case err == nil:
		return StatusSuccess
	case errors.Is(err, asynq.SkipRetry):
		return StatusSkipped
	default:
		return StatusFailure
	}
}

// AddPayouts counts redemption payouts by outcome: notified, skipped or requeued.
func (m *Metrics) AddPayouts(outcome string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.payouts.WithLabelValues(outcome).Add(float64(count))
}

// SetBacklog records how many payouts the last sweep found pending.
func (m *Metrics) SetBacklog(n int) {
	if m == nil {
		return
	}
	m.backlog.Set(float64(n))
}
