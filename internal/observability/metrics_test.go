package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/ecoserv/ecoserv/internal/jobs"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	return rr.Body.String()
}

func TestMiddlewareRecordsRoutePattern(t *testing.T) {
	metrics := NewMetrics()

	r := chi.NewRouter()
	r.Use(metrics.Middleware)
	r.Get("/api/quotations/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	for _, path := range []string{"/api/quotations/1", "/api/quotations/2", "/healthz"} {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	}

	body := scrape(t, metrics)
	assert.Contains(t, body, `ecoserv_http_requests_total{code="418",method="GET",route="/api/quotations/{id}"} 2`)
	assert.Contains(t, body, `ecoserv_http_requests_total{code="200",method="GET",route="/healthz"} 1`)
	assert.Contains(t, body, `ecoserv_http_request_duration_seconds_bucket{route="/healthz"`)
	assert.Contains(t, body, "go_goroutines")
}

func TestRegistererSharesRegistry(t *testing.T) {
	metrics := NewMetrics()
	jobs := jobmetrics.NewMetrics(metrics.Registerer())
	_ = jobs.Track("dashboard:warmup").End(nil)

	assert.Contains(t, scrape(t, metrics), `ecoserv_jobs_total{job="dashboard:warmup",status="success"} 1`)
}

func TestNilMetrics(t *testing.T) {
	var metrics *Metrics

	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)

	next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})
	assert.NotNil(t, metrics.Middleware(next))
}
