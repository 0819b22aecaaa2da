package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/ecoserv/ecoserv/internal/jobs"
)

// ============================================================================
// FAKES
// ============================================================================

type fakeExpirer struct {
	n     int
	err   error
	calls int
}

func (f *fakeExpirer) ExpireOverdue(context.Context) (int, error) {
	f.calls++
	return f.n, f.err
}

type fakeWarmer struct {
	months []int
	err    error
}

func (f *fakeWarmer) Warm(ctx context.Context, months int) error {
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("warm called without deadline")
	}
	f.months = append(f.months, months)
	return f.err
}

type fakeEnqueuer struct {
	tasks []*asynq.Task
	opts  [][]asynq.Option
}

func (f *fakeEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	f.tasks = append(f.tasks, task)
	f.opts = append(f.opts, opts)
	return &asynq.TaskInfo{Type: task.Type(), Queue: QueueDefault}, nil
}

func (f *fakeEnqueuer) Close() error { return nil }

// duplicateEnqueuer rejects every task after the first like asynq.Unique does.
type duplicateEnqueuer struct {
	seen bool
}

func (d *duplicateEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if d.seen {
		return nil, asynq.ErrDuplicateTask
	}
	d.seen = true
	return &asynq.TaskInfo{Type: task.Type()}, nil
}

func (d *duplicateEnqueuer) Close() error { return nil }

type fakePurger struct {
	n         int64
	err       error
	olderThan time.Duration
}

func (f *fakePurger) Cleanup(_ context.Context, olderThan time.Duration) (int64, error) {
	f.olderThan = olderThan
	return f.n, f.err
}

type fakeInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (f fakeInspector) GetQueueInfo(string) (*asynq.QueueInfo, error) { return f.info, f.err }

func testMetrics() *jobmetrics.Metrics {
	return jobmetrics.NewMetrics(prometheus.NewRegistry())
}

// ============================================================================
// HANDLERS
// ============================================================================

func TestQuotationsExpireJob(t *testing.T) {
	expirer := &fakeExpirer{n: 4}
	job := &QuotationsExpireJob{Quotations: expirer, Metrics: testMetrics()}

	require.NoError(t, job.Handle(context.Background(), NewQuotationsExpireTask()))
	assert.Equal(t, 1, expirer.calls)

	expirer.err = errors.New("db down")
	assert.ErrorIs(t, job.Handle(context.Background(), NewQuotationsExpireTask()), expirer.err)
}

func TestQuotationsExpireJobNotConfigured(t *testing.T) {
	var job *QuotationsExpireJob
	assert.Error(t, job.Handle(context.Background(), NewQuotationsExpireTask()))
}

func TestDashboardWarmupJob(t *testing.T) {
	warmer := &fakeWarmer{}
	job := &DashboardWarmupJob{Dashboard: warmer}

	task, err := NewDashboardWarmupTask(DashboardWarmupPayload{Months: 12})
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))

	require.NoError(t, job.Handle(context.Background(), asynq.NewTask(TaskDashboardWarmup, nil)))
	assert.Equal(t, []int{12, 0}, warmer.months)
}

func TestDashboardWarmupJobBadPayload(t *testing.T) {
	job := &DashboardWarmupJob{Dashboard: &fakeWarmer{}}
	err := job.Handle(context.Background(), asynq.NewTask(TaskDashboardWarmup, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestDashboardWarmupJobPropagatesError(t *testing.T) {
	warmer := &fakeWarmer{err: errors.New("redis down")}
	job := &DashboardWarmupJob{Dashboard: warmer, Metrics: testMetrics()}
	task, err := NewDashboardWarmupTask(DashboardWarmupPayload{})
	require.NoError(t, err)
	assert.ErrorIs(t, job.Handle(context.Background(), task), warmer.err)
}

// ============================================================================
// REGISTRATION AND CLIENT
// ============================================================================

func TestRegistrations(t *testing.T) {
	set := Set{
		Expire:     &QuotationsExpireJob{},
		Warmup:     &DashboardWarmupJob{},
		Cleanup:    &IdempotencyCleanupJob{},
		ExpireSpec: "0 * * * *",
	}
	handlers, cron, err := set.Registrations()
	require.NoError(t, err)

	types := make([]string, len(handlers))
	for i, h := range handlers {
		types[i] = h.Type
	}
	assert.Equal(t, []string{TaskQuotationsExpire, TaskDashboardWarmup, TaskIdempotencyCleanup}, types)

	require.Len(t, cron, 3)
	assert.Equal(t, "0 * * * *", cron[0].Spec)
	assert.Equal(t, TaskQuotationsExpire, cron[0].Task.Type())
	assert.Equal(t, DashboardWarmupCron, cron[1].Spec)
	assert.Equal(t, IdempotencyCleanupCron, cron[2].Spec)
}

func TestRegistrationsSkipsMissingJobs(t *testing.T) {
	handlers, cron, err := Set{Warmup: &DashboardWarmupJob{}}.Registrations()
	require.NoError(t, err)
	require.Len(t, handlers, 1)
	require.Len(t, cron, 1)
	assert.Equal(t, TaskDashboardWarmup, handlers[0].Type)
}

func TestIdempotencyCleanupJob(t *testing.T) {
	purger := &fakePurger{n: 12}
	job := &IdempotencyCleanupJob{Keys: purger, Metrics: testMetrics()}

	require.NoError(t, job.Handle(context.Background(), NewIdempotencyCleanupTask()))
	assert.Equal(t, DefaultIdempotencyRetention, purger.olderThan)

	job.Retention = time.Hour
	purger.err = errors.New("db down")
	assert.ErrorIs(t, job.Handle(context.Background(), NewIdempotencyCleanupTask()), purger.err)
	assert.Equal(t, time.Hour, purger.olderThan)
}

func TestClientEnqueue(t *testing.T) {
	fake := &fakeEnqueuer{}
	c := &Client{client: fake}

	_, err := c.EnqueueDashboardWarmup(context.Background(), 3)
	require.NoError(t, err)
	_, err = c.EnqueueQuotationsExpire(context.Background())
	require.NoError(t, err)

	require.Len(t, fake.tasks, 2)
	var payload DashboardWarmupPayload
	require.NoError(t, json.Unmarshal(fake.tasks[0].Payload(), &payload))
	assert.Equal(t, 3, payload.Months)
	assert.Equal(t, TaskQuotationsExpire, fake.tasks[1].Type())

	id := fake.opts[0][0].Value().(string)
	assert.True(t, strings.HasPrefix(id, TaskDashboardWarmup+":"))
	assert.NotEqual(t, id, fake.opts[1][0].Value())
}

func TestClientRefreshCollapsesDuplicates(t *testing.T) {
	fake := &duplicateEnqueuer{}
	c := &Client{client: fake}

	info, err := c.EnqueueDashboardRefresh(context.Background())
	require.NoError(t, err)
	require.NotNil(t, info)

	info, err = c.EnqueueDashboardRefresh(context.Background())
	require.NoError(t, err)
	assert.Nil(t, info)
}

// ============================================================================
// HEALTH ROUTE
// ============================================================================

func serveHealth(t *testing.T, inspector QueueInspector) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	r.Route("/jobs", NewHandler(inspector, nil).MountRoutes)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	return rec
}

func TestHealth(t *testing.T) {
	rec := serveHealth(t, fakeInspector{info: &asynq.QueueInfo{Queue: QueueDefault, Pending: 2, Retry: 1}})
	require.Equal(t, http.StatusOK, rec.Code)

	var body QueueHealth
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, QueueHealth{Queue: QueueDefault, Pending: 2, Retry: 1}, body)
}

func TestHealthWithoutInspector(t *testing.T) {
	rec := serveHealth(t, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"queue":"default"`)
}

func TestHealthInspectorFailure(t *testing.T) {
	rec := serveHealth(t, fakeInspector{err: errors.New("redis: connection refused")})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
