package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/ecoserv/ecoserv/internal/jobs"
)

// DashboardWarmer is implemented by dashboard.Service.
type DashboardWarmer interface {
	Warm(ctx context.Context, months int) error
}

// DashboardWarmupJob refreshes the cached dashboard summary.
type DashboardWarmupJob struct {
	Dashboard DashboardWarmer
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
	Timeout   time.Duration
}

// Handle processes TaskDashboardWarmup.
func (j *DashboardWarmupJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Dashboard == nil {
		return errors.New("dashboard warmup: handler not configured")
	}
	var payload DashboardWarmupPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("dashboard warmup payload: %v: %w", err, asynq.SkipRetry)
		}
	}

	tracker := j.Metrics.Track(TaskDashboardWarmup)
	defer func() { err = tracker.End(err) }()

	timeout := j.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	warmCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	if err := j.Dashboard.Warm(warmCtx, payload.Months); err != nil {
		jobLogger(j.Logger, TaskDashboardWarmup).Error("warm dashboard", slog.Any("error", err))
		return err
	}
	jobLogger(j.Logger, TaskDashboardWarmup).Debug("dashboard warmed",
		slog.Int("months", payload.Months), slog.Duration("duration", time.Since(start)))
	return nil
}
