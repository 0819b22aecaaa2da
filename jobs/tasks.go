package jobs

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the only queue the worker consumes.
	QueueDefault = "default"
	// TaskQuotationsExpire moves SENT quotations past valid_until to EXPIRED.
	TaskQuotationsExpire = "quotations:expire"
	// TaskDashboardWarmup rebuilds the cached dashboard summary.
	TaskDashboardWarmup = "dashboard:warmup"
	// TaskIdempotencyCleanup purges old Idempotency-Key records.
	TaskIdempotencyCleanup = "idempotency:cleanup"
)

// DashboardWarmupCron runs the warmup every 15 minutes.
const DashboardWarmupCron = "*/15 * * * *"

// DashboardWarmupPayload selects the window to warm. Zero means the default.
type DashboardWarmupPayload struct {
	Months int `json:"months,omitempty"`
}

// NewQuotationsExpireTask builds the expiry sweep task.
func NewQuotationsExpireTask() *asynq.Task {
	return asynq.NewTask(TaskQuotationsExpire, nil, asynq.Queue(QueueDefault), asynq.MaxRetry(3))
}

// NewDashboardWarmupTask builds a warmup task.
func NewDashboardWarmupTask(payload DashboardWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDashboardWarmup, data, asynq.Queue(QueueDefault), asynq.MaxRetry(1)), nil
}

func newTaskID(taskType string) asynq.Option {
	return asynq.TaskID(taskType + ":" + uuid.NewString())
}
