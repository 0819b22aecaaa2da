// Package dashboard aggregates document counts and amounts for the back-office
// home page. Aggregates are cached in Redis and rebuilt after writes.
package dashboard

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ecoserv/ecoserv/internal/billing"
	"github.com/ecoserv/ecoserv/internal/purchaseorders"
	"github.com/ecoserv/ecoserv/internal/quotations"
	"github.com/ecoserv/ecoserv/internal/serviceorders"
)

// USDToPEN is the illustrative rate used to combine currencies for display.
// Persisted totals are never converted.
const USDToPEN = 3.7

// Document kinds as they appear in StatusRow and MonthRow.
const (
	DocQuotations     = "quotations"
	DocServiceOrders  = "service_orders"
	DocPurchaseOrders = "purchase_orders"
)

// StatusRow is one (document, status, currency) group.
type StatusRow struct {
	Document string
	Status   string
	Currency billing.Currency
	Count    int
	Total    float64
}

// MonthRow is one (document, month, currency) group. Month is the first day
// of the month.
type MonthRow struct {
	Document string
	Month    time.Time
	Currency billing.Currency
	Count    int
	Total    float64
}

// Snapshot is the raw material of a Summary.
type Snapshot struct {
	Clients        int
	Equipment      map[string]int
	CalibrationDue int
	Statuses       []StatusRow
	Months         []MonthRow
}

type StatusShare struct {
	Status  string  `json:"status"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

type DocumentSummary struct {
	Count            int                          `json:"count"`
	ByStatus         []StatusShare                `json:"by_status"`
	TotalsByCurrency map[billing.Currency]float64 `json:"totals_by_currency"`
	CombinedPEN      float64                      `json:"combined_pen"`
}

type EquipmentSummary struct {
	Total          int            `json:"total"`
	ByStatus       map[string]int `json:"by_status"`
	CalibrationDue int            `json:"calibration_due"`
}

// MonthPoint holds per-document amounts for one month, combined into PEN.
type MonthPoint struct {
	Month          string  `json:"month"`
	Quotations     float64 `json:"quotations"`
	ServiceOrders  float64 `json:"service_orders"`
	PurchaseOrders float64 `json:"purchase_orders"`
}

type Summary struct {
	Clients        int              `json:"clients"`
	Equipment      EquipmentSummary `json:"equipment"`
	Quotations     DocumentSummary  `json:"quotations"`
	ServiceOrders  DocumentSummary  `json:"service_orders"`
	PurchaseOrders DocumentSummary  `json:"purchase_orders"`
	// AcceptanceRate is accepted / (accepted + rejected) quotations, in percent.
	AcceptanceRate float64      `json:"acceptance_rate"`
	Monthly        []MonthPoint `json:"monthly"`
	GeneratedAt    time.Time    `json:"generated_at"`
}

func statusNames[S ~string](statuses []S) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

var vocabularies = map[string][]string{
	DocQuotations:     statusNames(quotations.Statuses),
	DocServiceOrders:  statusNames(serviceorders.Statuses),
	DocPurchaseOrders: statusNames(purchaseorders.Statuses),
}

// Build derives a Summary from snap. Monthly covers the `months` calendar
// months ending with now's month, oldest first, including empty months.
func Build(snap Snapshot, now time.Time, months int) Summary {
	s := Summary{
		Clients:        snap.Clients,
		Equipment:      EquipmentSummary{ByStatus: map[string]int{}, CalibrationDue: snap.CalibrationDue},
		Quotations:     documentSummary(DocQuotations, snap.Statuses),
		ServiceOrders:  documentSummary(DocServiceOrders, snap.Statuses),
		PurchaseOrders: documentSummary(DocPurchaseOrders, snap.Statuses),
		Monthly:        monthly(snap.Months, now, months),
		GeneratedAt:    now.UTC(),
	}
	for status, n := range snap.Equipment {
		s.Equipment.ByStatus[status] = n
		s.Equipment.Total += n
	}

	var accepted, answered int
	for _, share := range s.Quotations.ByStatus {
		switch quotations.Status(share.Status) {
		case quotations.StatusAccepted:
			accepted += share.Count
			answered += share.Count
		case quotations.StatusRejected:
			answered += share.Count
		}
	}
	s.AcceptanceRate = percent(accepted, answered)
	return s
}

func documentSummary(doc string, rows []StatusRow) DocumentSummary {
	counts := map[string]int{}
	totals := map[billing.Currency]decimal.Decimal{}
	out := DocumentSummary{TotalsByCurrency: map[billing.Currency]float64{}}
	for _, row := range rows {
		if row.Document != doc {
			continue
		}
		counts[row.Status] += row.Count
		out.Count += row.Count
		totals[row.Currency] = totals[row.Currency].Add(decimal.NewFromFloat(row.Total))
	}

	for _, status := range vocabularies[doc] {
		out.ByStatus = append(out.ByStatus, StatusShare{
			Status:  status,
			Count:   counts[status],
			Percent: percent(counts[status], out.Count),
		})
	}
	combined := decimal.Zero
	for cur, total := range totals {
		out.TotalsByCurrency[cur] = total.Round(2).InexactFloat64()
		combined = combined.Add(toPEN(cur, total))
	}
	out.CombinedPEN = combined.Round(2).InexactFloat64()
	return out
}

func monthly(rows []MonthRow, now time.Time, months int) []MonthPoint {
	if months <= 0 {
		return []MonthPoint{}
	}
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -(months - 1), 0)
	sums := make([][3]decimal.Decimal, months)
	for _, row := range rows {
		idx := monthIndex(first, row.Month)
		if idx < 0 || idx >= months {
			continue
		}
		amount := toPEN(row.Currency, decimal.NewFromFloat(row.Total))
		switch row.Document {
		case DocQuotations:
			sums[idx][0] = sums[idx][0].Add(amount)
		case DocServiceOrders:
			sums[idx][1] = sums[idx][1].Add(amount)
		case DocPurchaseOrders:
			sums[idx][2] = sums[idx][2].Add(amount)
		}
	}

	out := make([]MonthPoint, months)
	for i := range out {
		out[i] = MonthPoint{
			Month:          first.AddDate(0, i, 0).Format("2006-01"),
			Quotations:     sums[i][0].Round(2).InexactFloat64(),
			ServiceOrders:  sums[i][1].Round(2).InexactFloat64(),
			PurchaseOrders: sums[i][2].Round(2).InexactFloat64(),
		}
	}
	return out
}

func monthIndex(first, month time.Time) int {
	return (month.Year()-first.Year())*12 + int(month.Month()) - int(first.Month())
}

func toPEN(cur billing.Currency, amount decimal.Decimal) decimal.Decimal {
	if cur == billing.CurrencyUSD {
		return amount.Mul(decimal.NewFromFloat(USDToPEN))
	}
	return amount
}

// percent returns part/whole*100 with one decimal; zero when whole is zero.
func percent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return math.Round(float64(part)*1000/float64(whole)) / 10
}
