package reports

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ecoserv/ecoserv/internal/billing"
	"github.com/ecoserv/ecoserv/internal/lineitems"
	"github.com/ecoserv/ecoserv/internal/purchaseorders"
	"github.com/ecoserv/ecoserv/internal/quotations"
	"github.com/ecoserv/ecoserv/internal/serviceorders"
	"github.com/ecoserv/ecoserv/internal/shared"
)

var raw = excelize.Options{RawCellValue: true}

func open(t *testing.T, body []byte) *excelize.File {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func sampleQuotations(n int) []quotations.Quotation {
	out := make([]quotations.Quotation, n)
	for i := range out {
		out[i] = quotations.Quotation{
			Number:     "COT-2026-00" + string(rune('1'+i)),
			ClientName: "Minera Los Andes S.A.",
			Status:     quotations.StatusDraft,
			Currency:   billing.CurrencyPEN,
			IssueDate:  time.Date(2026, time.May, 4, 0, 0, 0, 0, time.UTC),
			Subtotal:   100,
			Tax:        18,
			Total:      118,
			Items:      []lineitems.Item{{Position: 1, Description: "Muestreo", Quantity: 1, UnitPrice: 100, Amount: 100}},
		}
	}
	return out
}

// ============================================================================
// WORKBOOK
// ============================================================================

func TestWorkbookWritesSheetsAndTotals(t *testing.T) {
	body, err := Workbook(QuotationSheets(sampleQuotations(2))...)
	require.NoError(t, err)

	f := open(t, body)
	assert.Equal(t, []string{"Cotizaciones", "Items"}, f.GetSheetList())

	header, err := f.GetCellValue("Cotizaciones", "A1")
	require.NoError(t, err)
	assert.Equal(t, "Numero", header)

	number, err := f.GetCellValue("Cotizaciones", "A3")
	require.NoError(t, err)
	assert.Equal(t, "COT-2026-002", number)

	total, err := f.GetCellValue("Cotizaciones", "I2", raw)
	require.NoError(t, err)
	assert.Equal(t, "118", total)

	formula, err := f.GetCellFormula("Cotizaciones", "I4")
	require.NoError(t, err)
	assert.Equal(t, "SUM(I2:I3)", formula)

	label, err := f.GetCellValue("Cotizaciones", "A4")
	require.NoError(t, err)
	assert.Equal(t, "TOTAL", label)

	itemFormula, err := f.GetCellFormula("Items", "H4")
	require.NoError(t, err)
	assert.Equal(t, "SUM(H2:H3)", itemFormula)
}

func TestWorkbookEmptyListing(t *testing.T) {
	body, err := Workbook(PurchaseOrderSheets(nil)...)
	require.NoError(t, err)

	f := open(t, body)
	rows, err := f.GetRows("Ordenes de compra")
	require.NoError(t, err)
	assert.Len(t, rows, 1, "header only, no totals row")
}

func TestSanitizeCell(t *testing.T) {
	tests := map[string]string{
		"=HYPERLINK(\"x\")": "'=HYPERLINK(\"x\")",
		"+51 999":           "'+51 999",
		"-":                 "'-",
		"@SUM(A1)":          "'@SUM(A1)",
		"Lima":              "Lima",
		"":                  "",
	}
	for in, want := range tests {
		assert.Equal(t, want, sanitizeCell(in), in)
	}

	body, err := Workbook(Sheet{Name: "X", Headers: []string{"a"}, Rows: [][]any{{"=1+1"}}})
	require.NoError(t, err)
	v, err := open(t, body).GetCellValue("X", "A2")
	require.NoError(t, err)
	assert.Equal(t, "'=1+1", v)
}

func TestCollectPagesUntilTotal(t *testing.T) {
	all := sampleQuotations(5)
	var pages []int
	got, err := collect(context.Background(), func(_ context.Context, page shared.PageRequest) ([]quotations.Quotation, int, error) {
		pages = append(pages, page.Page)
		start := (page.Page - 1) * 2
		end := min(start+2, len(all))
		return all[start:end], len(all), nil
	})
	require.NoError(t, err)
	assert.Len(t, got, 5)
	assert.Equal(t, []int{1, 2, 3}, pages)

	_, err = collect(context.Background(), func(context.Context, shared.PageRequest) ([]int, int, error) {
		return nil, 0, errors.New("boom")
	})
	assert.Error(t, err)
}

// ============================================================================
// HANDLER
// ============================================================================

type stubQuotations struct{ list []quotations.Quotation }

func (s stubQuotations) List(_ context.Context, f quotations.ListFilter) ([]quotations.Quotation, int, error) {
	if f.Page.Page > 1 {
		return nil, len(s.list), nil
	}
	return s.list, len(s.list), nil
}

type stubServiceOrders struct{}

func (stubServiceOrders) List(context.Context, serviceorders.ListFilter) ([]serviceorders.ServiceOrder, int, error) {
	return nil, 0, errors.New("connection reset")
}

type stubPurchaseOrders struct{}

func (stubPurchaseOrders) List(context.Context, purchaseorders.ListFilter) ([]purchaseorders.PurchaseOrder, int, error) {
	return []purchaseorders.PurchaseOrder{{Number: "OC-2026-001", Status: purchaseorders.StatusSent}}, 1, nil
}

func TestReportHandlers(t *testing.T) {
	h := NewHandler(stubQuotations{list: sampleQuotations(3)}, stubServiceOrders{}, stubPurchaseOrders{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	h.now = func() time.Time { return time.Date(2026, time.October, 1, 0, 0, 0, 0, time.UTC) }
	r := chi.NewRouter()
	r.Route("/api/reports", h.MountRoutes)
	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	rec := get("/api/reports/quotations.xlsx")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, xlsxType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "cotizaciones-20261001.xlsx")
	rows, err := open(t, rec.Body.Bytes()).GetRows("Cotizaciones")
	require.NoError(t, err)
	assert.Len(t, rows, 5)

	assert.Equal(t, http.StatusBadRequest, get("/api/reports/quotations.xlsx?status=NOPE").Code)
	assert.Equal(t, http.StatusInternalServerError, get("/api/reports/service-orders.xlsx").Code)
	assert.Equal(t, http.StatusOK, get("/api/reports/purchase-orders.xlsx").Code)
}
