package serviceorders

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecoserv/ecoserv/internal/platform/httpx"
)

func serve(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestServiceOrderHandlers(t *testing.T) {
	svc, _, _ := newTestService()
	r := chi.NewRouter()
	r.Route("/api/service-orders", NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), svc).MountRoutes)

	rec := serve(t, r, http.MethodPost, "/api/service-orders", `{"client_id":1,"quotation_id":5,"gestor_id":10}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created ServiceOrder
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Len(t, created.Items, 2)

	rec = serve(t, r, http.MethodPost, "/api/service-orders", `{"client_id":1,"quotation_id":6}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = serve(t, r, http.MethodGet, "/api/service-orders?gestor_id=10", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list httpx.ListBody[ServiceOrder]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list.Data, 1)

	rec = serve(t, r, http.MethodGet, "/api/service-orders?status=DONE", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(t, r, http.MethodPut, "/api/service-orders/1", `{"status":"FINISHED"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(t, r, http.MethodDelete, "/api/service-orders/1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = serve(t, r, http.MethodGet, "/api/service-orders/1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"service order not found"}`, rec.Body.String())

	rec = serve(t, r, http.MethodDelete, "/api/service-orders/1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
