package purchaseorders

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecoserv/ecoserv/internal/lineitems"
	"github.com/ecoserv/ecoserv/internal/platform/httpx"
	"github.com/ecoserv/ecoserv/internal/shared"
)

var now = time.Date(2026, time.July, 1, 8, 0, 0, 0, time.UTC)

func newTestService() (*Service, *memoryRepo) {
	repo := newMemoryRepo()
	svc := NewService(Config{Repo: repo, Clients: fakeClients{1: true}})
	svc.now = func() time.Time { return now }
	return svc, repo
}

// ============================================================================
// STATUS VOCABULARY
// ============================================================================

func TestParseStatus(t *testing.T) {
	tests := map[string]Status{
		"PENDING":     StatusDraft,
		"IN_PROGRESS": StatusConfirmed,
		"COMPLETED":   StatusReceived,
		"CANCELLED":   StatusCancelled,
		"SENT":        StatusSent,
		"LOST":        Status("LOST"),
	}
	for raw, want := range tests {
		t.Run(raw, func(t *testing.T) {
			assert.Equal(t, want, ParseStatus(raw))
		})
	}
	assert.False(t, ParseStatus("LOST").Valid())
}

func TestStatusUnmarshalNormalisesLegacyValues(t *testing.T) {
	var req UpdateRequest
	require.NoError(t, json.Unmarshal([]byte(`{"status":"COMPLETED"}`), &req))
	assert.Equal(t, StatusReceived, *req.Status)
}

// ============================================================================
// SERVICE
// ============================================================================

func TestCreateAndUpdatePurchaseOrder(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	p, err := svc.Create(ctx, CreateRequest{
		ClientID:     1,
		Status:       "PENDING",
		DeliveryDate: ptr(now.AddDate(0, 0, 10)),
		PaymentTerms: "Crédito 30 días",
		Items:        []lineitems.Input{{Description: "Alquiler", Quantity: 2, Days: ptr(3), UnitPrice: 100}},
	})
	require.NoError(t, err)
	assert.Equal(t, "OC-2026-001", p.Number)
	assert.Equal(t, StatusDraft, p.Status)
	assert.Equal(t, 708.0, p.Total)
	assert.Equal(t, time.Date(2026, time.July, 11, 0, 0, 0, 0, time.UTC), *p.DeliveryDate)

	legacy := Status("IN_PROGRESS")
	empty := []lineitems.Input{}
	updated, err := svc.Update(ctx, p.ID, UpdateRequest{Status: &legacy, Items: &empty})
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, updated.Status)
	assert.Empty(t, updated.Items)
	assert.Zero(t, updated.Total)
}

func TestUpdatePurchaseOrderIsAtomic(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	p, err := svc.Create(ctx, CreateRequest{ClientID: 1, Items: []lineitems.Input{
		{Description: "a", Quantity: 1, UnitPrice: 10},
		{Description: "b", Quantity: 1, UnitPrice: 20},
	}})
	require.NoError(t, err)

	repo.failItemInsertAt = 2
	replacement := []lineitems.Input{{Description: "c", Quantity: 1, UnitPrice: 1}, {Description: "d", Quantity: 1, UnitPrice: 1}}
	_, err = svc.Update(ctx, p.ID, UpdateRequest{PaymentTerms: ptr("Contado"), Items: &replacement})
	require.ErrorIs(t, err, errInjected)

	after, err := svc.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.Items, after.Items)
	assert.Equal(t, p.Total, after.Total)
	assert.Empty(t, after.PaymentTerms)
}

func TestPurchaseOrderReferencesAndDelete(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateRequest{ClientID: 2})
	assert.ErrorIs(t, err, shared.ErrValidation)

	p, err := svc.Create(ctx, CreateRequest{ClientID: 1, Number: "OC-2026-777"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateRequest{ClientID: 1, Number: "OC-2026-777"})
	assert.ErrorIs(t, err, shared.ErrDuplicate)

	require.NoError(t, svc.Delete(ctx, p.ID))
	_, err = svc.Get(ctx, p.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, p.ID), shared.ErrNotFound)
}

// ============================================================================
// HANDLER
// ============================================================================

func TestPurchaseOrderHandlers(t *testing.T) {
	svc, _ := newTestService()
	r := chi.NewRouter()
	r.Route("/api/purchase-orders", NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), svc).MountRoutes)
	call := func(method, path, body string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))
		return rec
	}

	rec := call(http.MethodPost, "/api/purchase-orders", `{"client_id":1,"status":"COMPLETED"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created PurchaseOrder
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, StatusReceived, created.Status)
	assert.Contains(t, rec.Body.String(), `"status":"RECEIVED"`)

	rec = call(http.MethodPost, "/api/purchase-orders", `{"client_id":1,"status":"SHIPPED"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = call(http.MethodGet, "/api/purchase-orders?status=COMPLETED", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list httpx.ListBody[PurchaseOrder]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list.Data, 1)

	rec = call(http.MethodDelete, "/api/purchase-orders/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = call(http.MethodGet, "/api/purchase-orders/1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = call(http.MethodDelete, "/api/purchase-orders/1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
