package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/ecoserv/ecoserv/internal/jobs"
)

// DefaultIdempotencyRetention is how long processed Idempotency-Key values are kept.
const DefaultIdempotencyRetention = 7 * 24 * time.Hour

// IdempotencyCleanupCron runs the purge daily at 03:30 UTC.
const IdempotencyCleanupCron = "30 3 * * *"

// KeyPurger is implemented by shared.IdempotencyStore.
type KeyPurger interface {
	Cleanup(ctx context.Context, olderThan time.Duration) (int64, error)
}

// IdempotencyCleanupJob deletes expired idempotency keys.
type IdempotencyCleanupJob struct {
	Keys      KeyPurger
	Retention time.Duration
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
}

// NewIdempotencyCleanupTask builds the purge task.
func NewIdempotencyCleanupTask() *asynq.Task {
	return asynq.NewTask(TaskIdempotencyCleanup, nil, asynq.Queue(QueueDefault), asynq.MaxRetry(2))
}

// Handle processes TaskIdempotencyCleanup.
func (j *IdempotencyCleanupJob) Handle(ctx context.Context, _ *asynq.Task) (err error) {
	if j == nil || j.Keys == nil {
		return errors.New("idempotency cleanup: handler not configured")
	}
	tracker := j.Metrics.Track(TaskIdempotencyCleanup)
	defer func() { err = tracker.End(err) }()

	retention := j.Retention
	if retention <= 0 {
		retention = DefaultIdempotencyRetention
	}
	n, err := j.Keys.Cleanup(ctx, retention)
	if err != nil {
		jobLogger(j.Logger, TaskIdempotencyCleanup).Error("purge idempotency keys", slog.Any("error", err))
		return err
	}
	j.Metrics.AddAffected(TaskIdempotencyCleanup, int(n))
	jobLogger(j.Logger, TaskIdempotencyCleanup).Info("purged idempotency keys", slog.Int64("count", n))
	return nil
}
