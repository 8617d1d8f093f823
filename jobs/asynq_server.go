package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/coincraft/coincraft/internal/platform/httpx"
)

// Worker processes payout tasks and runs the sweep scheduler.
type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	scheduler *asynq.Scheduler
	logger    *slog.Logger
}

// TaskHandler binds a task type to its handler.
type TaskHandler struct {
	Type    string
	Handler asynq.HandlerFunc
}

// CronRegistration wires a cron expression to a prepared task.
type CronRegistration struct {
	Spec    string
	Task    *asynq.Task
	Options []asynq.Option
}

// WorkerConfig collects dependencies required to bootstrap the worker.
type WorkerConfig struct {
	RedisOpts   asynq.RedisClientOpt
	Logger      *slog.Logger
	Concurrency int
	Handlers    []TaskHandler
	Cron        []CronRegistration
}

// NewWorker builds the server, registers handlers and, when cron entries are
// given, a UTC scheduler.
func NewWorker(cfg WorkerConfig) (*Worker, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 5
	}

	mux := asynq.NewServeMux()
	for _, h := range cfg.Handlers {
		if h.Type == "" || h.Handler == nil {
			return nil, fmt.Errorf("jobs: incomplete handler registration %q", h.Type)
		}
		mux.HandleFunc(h.Type, h.Handler)
	}

	srv := asynq.NewServer(cfg.RedisOpts, asynq.Config{
		Concurrency: cfg.Concurrency,
		Queues:      Queues(),
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			retried, _ := asynq.GetRetryCount(ctx)
			maxRetry, _ := asynq.GetMaxRetry(ctx)
			logger.Warn("job failed",
				slog.String("type", task.Type()),
				slog.Int("retry", retried),
				slog.Int("max_retry", maxRetry),
				slog.Any("error", err))
		}),
		Logger:   asynqLogger{logger: logger},
		LogLevel: asynq.WarnLevel,
	})

	w := &Worker{server: srv, mux: mux, logger: logger}
	if len(cfg.Cron) == 0 {
		return w, nil
	}
	w.scheduler = asynq.NewScheduler(cfg.RedisOpts, &asynq.SchedulerOpts{
		Location: time.UTC,
		Logger:   asynqLogger{logger: logger},
		LogLevel: asynq.WarnLevel,
	})
	for _, entry := range cfg.Cron {
		id, err := w.scheduler.Register(entry.Spec, entry.Task, entry.Options...)
		if err != nil {
			return nil, fmt.Errorf("jobs: register %q for %s: %w", entry.Spec, entry.Task.Type(), err)
		}
		logger.Info("cron registered", slog.String("entry", id), slog.String("spec", entry.Spec), slog.String("type", entry.Task.Type()))
	}
	return w, nil
}

// Run processes tasks until ctx is cancelled or the server fails.
func (w *Worker) Run(ctx context.Context) error {
	if w == nil {
		return errors.New("jobs: worker not configured")
	}
	if err := w.server.Start(w.mux); err != nil {
		return fmt.Errorf("jobs: start server: %w", err)
	}
	if w.scheduler != nil {
		if err := w.scheduler.Start(); err != nil {
			w.server.Shutdown()
			return fmt.Errorf("jobs: start scheduler: %w", err)
		}
	}
	w.logger.Info("worker started")

	<-ctx.Done()

	var g errgroup.Group
	if w.scheduler != nil {
		g.Go(func() error {
			w.scheduler.Shutdown()
			return nil
		})
	}
	g.Go(func() error {
		w.server.Shutdown()
		return nil
	})
	_ = g.Wait()
	w.logger.Info("worker stopped")
	return ctx.Err()
}

// asynqLogger routes asynq's internal logging through slog.
type asynqLogger struct {
	logger *slog.Logger
}

func (l asynqLogger) Debug(args ...any) { l.logger.Debug(fmt.Sprint(args...)) }
func (l asynqLogger) Info(args ...any)  { l.logger.Info(fmt.Sprint(args...)) }
func (l asynqLogger) Warn(args ...any)  { l.logger.Warn(fmt.Sprint(args...)) }
func (l asynqLogger) Error(args ...any) { l.logger.Error(fmt.Sprint(args...)) }
func (l asynqLogger) Fatal(args ...any) { l.logger.Error(fmt.Sprint(args...)) }

// Client submits payout work to the queues.
type Client struct {
	client    TaskEnqueuer
	inspector TaskInspector
	closers   []func() error
}

// TaskEnqueuer is the subset of asynq.Client the producer uses.
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// TaskInspector is the subset of asynq.Inspector used to resolve task ID
// conflicts.
type TaskInspector interface {
	GetTaskInfo(queue, id string) (*asynq.TaskInfo, error)
	RunTask(queue, id string) error
}

// NewClient constructs an Asynq client and inspector.
func NewClient(redisOpts asynq.RedisClientOpt) (*Client, error) {
	client := asynq.NewClient(redisOpts)
	inspector := asynq.NewInspector(redisOpts)
	c := NewClientWith(client, inspector)
	c.closers = []func() error{client.Close, inspector.Close}
	return c, nil
}

// NewClientWith builds a Client over existing enqueuer and inspector values.
func NewClientWith(enqueuer TaskEnqueuer, inspector TaskInspector) *Client {
	return &Client{client: enqueuer, inspector: inspector}
}

// EnqueuePayout schedules the payout notice for an approved redemption.
// Because the task ID is fixed per request, a conflict means an earlier task
// exists: one still queued or already done counts as success, an archived one
// is moved back to pending.
func (c *Client) EnqueuePayout(ctx context.Context, requestID uuid.UUID) error {
	task, opts, err := NewRedemptionPayoutTask(requestID)
	if err != nil {
		return err
	}
	_, err = c.client.EnqueueContext(ctx, task, opts...)
	if err == nil {
		return nil
	}
	if !errors.Is(err, asynq.ErrTaskIDConflict) {
		return fmt.Errorf("jobs: enqueue payout %s: %w", requestID, err)
	}
	if c.inspector == nil {
		return nil
	}
	id := payoutTaskID(requestID)
	info, err := c.inspector.GetTaskInfo(QueuePayouts, id)
	switch {
	case errors.Is(err, asynq.ErrTaskNotFound):
		// removed between the enqueue and the lookup
		if _, err := c.client.EnqueueContext(ctx, task, opts...); err != nil && !errors.Is(err, asynq.ErrTaskIDConflict) {
			return fmt.Errorf("jobs: enqueue payout %s: %w", requestID, err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("jobs: inspect payout %s: %w", requestID, err)
	}
	if info.State != asynq.TaskStateArchived {
		return nil
	}
	if err := c.inspector.RunTask(QueuePayouts, id); err != nil && !errors.Is(err, asynq.ErrTaskNotFound) {
		return fmt.Errorf("jobs: rerun archived payout %s: %w", requestID, err)
	}
	return nil
}

// EnqueueSweep schedules an immediate payout sweep.
func (c *Client) EnqueueSweep(ctx context.Context, batchSize int) (*asynq.TaskInfo, error) {
	task, err := NewPayoutSweepTask(batchSize)
	if err != nil {
		return nil, err
	}
	return c.client.EnqueueContext(ctx, task, asynq.Queue(QueueMaintenance))
}

// Close releases client resources.
func (c *Client) Close() error {
	var errs []error
	for _, closeFn := range c.closers {
		errs = append(errs, closeFn())
	}
	return errors.Join(errs...)
}

// QueueInspector is the subset of asynq.Inspector the health endpoint reads.
type QueueInspector interface {
	GetQueueInfo(queue string) (*asynq.QueueInfo, error)
}

// QueueHealth summarises one queue.
type QueueHealth struct {
	Queue    string `json:"queue"`
	Pending  int    `json:"pending"`
	Active   int    `json:"active"`
	Retry    int    `json:"retry"`
	Archived int    `json:"archived"`
	Paused   bool   `json:"paused"`
}

// Handler exposes queue depth over HTTP.
type Handler struct {
	inspector QueueInspector
	logger    *slog.Logger
}

// NewHandler constructs an HTTP handler for jobs endpoints.
func NewHandler(inspector QueueInspector, logger *slog.Logger) *Handler {
	return &Handler{inspector: inspector, logger: logger}
}

// MountRoutes attaches job routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/health", h.health)
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	queues := make([]QueueHealth, 0, 2)
	for _, name := range []string{QueuePayouts, QueueMaintenance} {
		qh := QueueHealth{Queue: name}
		if h.inspector != nil {
			info, err := h.inspector.GetQueueInfo(name)
			switch {
			case errors.Is(err, asynq.ErrQueueNotFound):
			case err != nil:
				h.logger.Warn("jobs health", slog.String("queue", name), slog.Any("error", err))
				httpx.Problem(w, http.StatusServiceUnavailable, "Queue Unavailable", "")
				return
			default:
				qh.Pending, qh.Active, qh.Retry, qh.Archived, qh.Paused = info.Pending, info.Active, info.Retry, info.Archived, info.Paused
			}
		}
		queues = append(queues, qh)
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"queues": queues})
}
