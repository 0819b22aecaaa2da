package reports

import (
	"context"

	"github.com/ecoserv/ecoserv/internal/lineitems"
	"github.com/ecoserv/ecoserv/internal/purchaseorders"
	"github.com/ecoserv/ecoserv/internal/quotations"
	"github.com/ecoserv/ecoserv/internal/serviceorders"
	"github.com/ecoserv/ecoserv/internal/shared"
)

const (
	dateLayout = "2006-01-02"
	batchSize  = 200
)

var itemHeaders = []string{"Documento", "#", "Descripcion", "Unidad", "Cantidad", "Dias", "P. Unitario", "Importe"}

// collect pages through a listing until every row has been read.
func collect[T any](ctx context.Context, list func(context.Context, shared.PageRequest) ([]T, int, error)) ([]T, error) {
	var out []T
	for page := 1; ; page++ {
		batch, total, err := list(ctx, shared.PageRequest{Page: page, PerPage: batchSize})
		if err != nil {
			return nil, err
		}
		out = append(out, batch...)
		if len(batch) == 0 || len(out) >= total {
			return out, nil
		}
	}
}

func itemRows(number string, items []lineitems.Item) [][]any {
	rows := make([][]any, 0, len(items))
	for _, it := range items {
		var days any = ""
		if it.Days != nil {
			days = *it.Days
		}
		rows = append(rows, []any{number, it.Position, it.Description, it.Unit, it.Quantity, days, it.UnitPrice, it.Amount})
	}
	return rows
}

func itemsSheet(rows [][]any) Sheet {
	return Sheet{
		Name:       "Items",
		Headers:    itemHeaders,
		Widths:     []float64{16, 5, 48, 10, 10, 8, 14, 14},
		Rows:       rows,
		SumColumns: []int{7},
	}
}

// QuotationSheets lays out quotations and their items.
func QuotationSheets(list []quotations.Quotation) []Sheet {
	docs := Sheet{
		Name:       "Cotizaciones",
		Headers:    []string{"Numero", "Cliente", "Estado", "Moneda", "Emision", "Validez (dias)", "Subtotal", "IGV", "Total"},
		Widths:     []float64{16, 36, 12, 8, 12, 14, 14, 14, 14},
		SumColumns: []int{6, 7, 8},
	}
	var items [][]any
	for _, q := range list {
		docs.Rows = append(docs.Rows, []any{
			q.Number, q.ClientName, string(q.Status), string(q.Currency), q.IssueDate.Format(dateLayout),
			q.ValidityDays, q.Subtotal, q.Tax, q.Total,
		})
		items = append(items, itemRows(q.Number, q.Items)...)
	}
	return []Sheet{docs, itemsSheet(items)}
}

func ServiceOrderSheets(list []serviceorders.ServiceOrder) []Sheet {
	docs := Sheet{
		Name:       "Ordenes de servicio",
		Headers:    []string{"Numero", "Cliente", "Gestor", "Estado", "Moneda", "Emision", "Ubicacion", "Subtotal", "IGV", "Total"},
		Widths:     []float64{16, 36, 24, 12, 8, 12, 24, 14, 14, 14},
		SumColumns: []int{7, 8, 9},
	}
	var items [][]any
	for _, o := range list {
		docs.Rows = append(docs.Rows, []any{
			o.Number, o.ClientName, o.GestorName, string(o.Status), string(o.Currency), o.IssueDate.Format(dateLayout),
			o.Location, o.Subtotal, o.Tax, o.Total,
		})
		items = append(items, itemRows(o.Number, o.Items)...)
	}
	return []Sheet{docs, itemsSheet(items)}
}

func PurchaseOrderSheets(list []purchaseorders.PurchaseOrder) []Sheet {
	docs := Sheet{
		Name:       "Ordenes de compra",
		Headers:    []string{"Numero", "Cliente", "Estado", "Moneda", "Emision", "Entrega", "Condiciones", "Subtotal", "IGV", "Total"},
		Widths:     []float64{16, 36, 12, 8, 12, 12, 24, 14, 14, 14},
		SumColumns: []int{7, 8, 9},
	}
	var items [][]any
	for _, p := range list {
		delivery := ""
		if p.DeliveryDate != nil {
			delivery = p.DeliveryDate.Format(dateLayout)
		}
		docs.Rows = append(docs.Rows, []any{
			p.Number, p.ClientName, string(p.Status), string(p.Currency), p.IssueDate.Format(dateLayout),
			delivery, p.PaymentTerms, p.Subtotal, p.Tax, p.Total,
		})
		items = append(items, itemRows(p.Number, p.Items)...)
	}
	return []Sheet{docs, itemsSheet(items)}
}
