// Package jobs runs the asynq worker, its cron registrations and the task
// handlers for quotation expiry and dashboard warmup.
package jobs

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"

	"github.com/ecoserv/ecoserv/internal/platform/httpx"
)

const refreshDelay = 10 * time.Second

// Worker wraps the asynq server and its scheduler.
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

// CronRegistration schedules a task on a cron expression (UTC).
type CronRegistration struct {
	Spec    string
	Task    *asynq.Task
	Options []asynq.Option
}

// WorkerConfig collects what the worker needs.
type WorkerConfig struct {
	RedisOpts   asynq.RedisClientOpt
	Logger      *slog.Logger
	Concurrency int
	Handlers    []TaskHandler
	Cron        []CronRegistration
}

// Set is the collection of ecoserv task handlers.
type Set struct {
	Expire  *QuotationsExpireJob
	Warmup  *DashboardWarmupJob
	Cleanup *IdempotencyCleanupJob
	// ExpireSpec is the cron expression for the quotation sweep.
	ExpireSpec string
}

// Registrations returns the handlers and cron entries for the configured jobs.
func (s Set) Registrations() ([]TaskHandler, []CronRegistration, error) {
	var (
		handlers []TaskHandler
		cron     []CronRegistration
	)
	if s.Expire != nil {
		handlers = append(handlers, TaskHandler{Type: TaskQuotationsExpire, Handler: s.Expire.Handle})
		cron = append(cron, CronRegistration{Spec: s.ExpireSpec, Task: NewQuotationsExpireTask()})
	}
	if s.Warmup != nil {
		task, err := NewDashboardWarmupTask(DashboardWarmupPayload{})
		if err != nil {
			return nil, nil, err
		}
		handlers = append(handlers, TaskHandler{Type: TaskDashboardWarmup, Handler: s.Warmup.Handle})
		cron = append(cron, CronRegistration{Spec: DashboardWarmupCron, Task: task})
	}
	if s.Cleanup != nil {
		handlers = append(handlers, TaskHandler{Type: TaskIdempotencyCleanup, Handler: s.Cleanup.Handle})
		cron = append(cron, CronRegistration{Spec: IdempotencyCleanupCron, Task: NewIdempotencyCleanupTask()})
	}
	return handlers, cron, nil
}

// NewWorker builds the server, mux and scheduler. Cron entries with an empty
// spec are skipped.
func NewWorker(cfg WorkerConfig) (*Worker, error) {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 5
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	srv := asynq.NewServer(cfg.RedisOpts, asynq.Config{
		Concurrency: concurrency,
		Queues:      map[string]int{QueueDefault: 1},
		ErrorHandler: asynq.ErrorHandlerFunc(func(_ context.Context, task *asynq.Task, err error) {
			logger.Error("task failed", slog.String("type", task.Type()), slog.Any("error", err))
		}),
	})
	mux := asynq.NewServeMux()
	for _, h := range cfg.Handlers {
		if h.Type == "" || h.Handler == nil {
			continue
		}
		mux.HandleFunc(h.Type, h.Handler)
	}

	var scheduler *asynq.Scheduler
	if len(cfg.Cron) > 0 {
		scheduler = asynq.NewScheduler(cfg.RedisOpts, &asynq.SchedulerOpts{Location: time.UTC})
		for _, entry := range cfg.Cron {
			if entry.Spec == "" || entry.Task == nil {
				continue
			}
			if _, err := scheduler.Register(entry.Spec, entry.Task, entry.Options...); err != nil {
				return nil, err
			}
			logger.Info("cron registered", slog.String("type", entry.Task.Type()), slog.String("spec", entry.Spec))
		}
	}

	return &Worker{server: srv, mux: mux, scheduler: scheduler, logger: logger}, nil
}

// Run processes tasks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	if w == nil {
		return errors.New("worker: not configured")
	}
	if w.scheduler != nil {
		if err := w.scheduler.Start(); err != nil {
			return err
		}
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- w.server.Run(w.mux)
	}()
	select {
	case <-ctx.Done():
		if w.scheduler != nil {
			w.scheduler.Shutdown()
		}
		w.server.Shutdown()
		return ctx.Err()
	case err := <-errCh:
		if w.scheduler != nil {
			w.scheduler.Shutdown()
		}
		return err
	}
}

// Enqueuer is the subset of asynq.Client used here.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

// Client submits tasks on demand.
type Client struct {
	client Enqueuer
}

// NewClient wraps an asynq client.
func NewClient(redisOpts asynq.RedisClientOpt) *Client {
	return &Client{client: asynq.NewClient(redisOpts)}
}

// EnqueueDashboardWarmup schedules an immediate warmup.
func (c *Client) EnqueueDashboardWarmup(ctx context.Context, months int) (*asynq.TaskInfo, error) {
	task, err := NewDashboardWarmupTask(DashboardWarmupPayload{Months: months})
	if err != nil {
		return nil, err
	}
	return c.client.EnqueueContext(ctx, task, newTaskID(TaskDashboardWarmup))
}

// EnqueueDashboardRefresh schedules a warmup shortly after a cache bump.
// Bumps arriving within a minute collapse into one task.
func (c *Client) EnqueueDashboardRefresh(ctx context.Context) (*asynq.TaskInfo, error) {
	task, err := NewDashboardWarmupTask(DashboardWarmupPayload{})
	if err != nil {
		return nil, err
	}
	info, err := c.client.EnqueueContext(ctx, task, asynq.ProcessIn(refreshDelay), asynq.Unique(time.Minute))
	if errors.Is(err, asynq.ErrDuplicateTask) {
		return nil, nil
	}
	return info, err
}

// EnqueueQuotationsExpire runs the expiry sweep now.
func (c *Client) EnqueueQuotationsExpire(ctx context.Context) (*asynq.TaskInfo, error) {
	return c.client.EnqueueContext(ctx, NewQuotationsExpireTask(), newTaskID(TaskQuotationsExpire))
}

// Close releases client resources.
func (c *Client) Close() error {
	return c.client.Close()
}

// QueueInspector is the subset of asynq.Inspector used by the health route.
type QueueInspector interface {
	GetQueueInfo(queue string) (*asynq.QueueInfo, error)
}

// QueueHealth is the /jobs/health body.
type QueueHealth struct {
	Queue     string `json:"queue"`
	Pending   int    `json:"pending"`
	Active    int    `json:"active"`
	Scheduled int    `json:"scheduled"`
	Retry     int    `json:"retry"`
	Paused    bool   `json:"paused"`
}

// Handler exposes job observability over HTTP.
type Handler struct {
	inspector QueueInspector
	logger    *slog.Logger
}

// NewHandler builds the handler. A nil inspector reports an empty queue.
func NewHandler(inspector QueueInspector, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{inspector: inspector, logger: logger}
}

// MountRoutes attaches GET /health.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/health", h.health)
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	body := QueueHealth{Queue: QueueDefault}
	if h.inspector == nil {
		httpx.JSON(w, http.StatusOK, body)
		return
	}
	info, err := h.inspector.GetQueueInfo(QueueDefault)
	if err != nil {
		h.logger.Warn("jobs health", slog.Any("error", err))
		httpx.Error(w, http.StatusServiceUnavailable, http.StatusText(http.StatusServiceUnavailable))
		return
	}
	if info != nil {
		body = QueueHealth{
			Queue:     info.Queue,
			Pending:   info.Pending,
			Active:    info.Active,
			Scheduled: info.Scheduled,
			Retry:     info.Retry,
			Paused:    info.Paused,
		}
	}
	httpx.JSON(w, http.StatusOK, body)
}
