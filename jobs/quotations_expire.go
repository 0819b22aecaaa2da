package jobs

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/ecoserv/ecoserv/internal/jobs"
)

// QuotationExpirer is implemented by quotations.Service.
type QuotationExpirer interface {
	ExpireOverdue(ctx context.Context) (int, error)
}

// QuotationsExpireJob runs the expiry sweep.
type QuotationsExpireJob struct {
	Quotations QuotationExpirer
	Logger     *slog.Logger
	Metrics    *jobmetrics.Metrics
}

// Handle processes TaskQuotationsExpire.
func (j *QuotationsExpireJob) Handle(ctx context.Context, _ *asynq.Task) (err error) {
	if j == nil || j.Quotations == nil {
		return errors.New("quotations expire: handler not configured")
	}
	tracker := j.Metrics.Track(TaskQuotationsExpire)
	defer func() { err = tracker.End(err) }()

	logger := jobLogger(j.Logger, TaskQuotationsExpire)
	n, err := j.Quotations.ExpireOverdue(ctx)
	if err != nil {
		logger.Error("expire quotations", slog.Any("error", err))
		return err
	}
	j.Metrics.AddAffected(TaskQuotationsExpire, n)
	if n > 0 {
		logger.Info("expired quotations", slog.Int("count", n))
	}
	return nil
}

func jobLogger(logger *slog.Logger, job string) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return logger.With(slog.String("job", job))
}
