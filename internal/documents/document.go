// Package documents renders quotations and orders as printable PDFs.
package documents

import (
	"fmt"
	"time"

	"github.com/ecoserv/ecoserv/internal/billing"
	"github.com/ecoserv/ecoserv/internal/lineitems"
	"github.com/ecoserv/ecoserv/internal/purchaseorders"
	"github.com/ecoserv/ecoserv/internal/quotations"
	"github.com/ecoserv/ecoserv/internal/serviceorders"
)

const dateLayout = "02/01/2006"

// Company is the issuer printed in the header.
type Company struct {
	Name    string
	TaxID   string
	Address string
}

// Field is a label/value pair in the details block.
type Field struct {
	Label string
	Value string
}

// Document is the printable form shared by every document type.
type Document struct {
	Title    string
	Number   string
	Client   string
	Details  []Field
	Currency billing.Currency
	Items    []lineitems.Item
	Subtotal float64
	Tax      float64
	Total    float64
	Notes    string
}

// Filename is the download name, e.g. "COT-2026-001.pdf".
func (d Document) Filename() string {
	return d.Number + ".pdf"
}

func FromQuotation(q *quotations.Quotation) Document {
	return Document{
		Title:  "COTIZACION",
		Number: q.Number,
		Client: q.ClientName,
		Details: []Field{
			{"Fecha de emision", q.IssueDate.Format(dateLayout)},
			{"Valida hasta", q.ValidUntil().Format(dateLayout)},
			{"Estado", string(q.Status)},
			{"Descripcion", q.Description},
		},
		Currency: q.Currency,
		Items:    q.Items,
		Subtotal: q.Subtotal,
		Tax:      q.Tax,
		Total:    q.Total,
		Notes:    q.Notes,
	}
}

func FromServiceOrder(o *serviceorders.ServiceOrder) Document {
	details := []Field{
		{"Fecha de emision", o.IssueDate.Format(dateLayout)},
		{"Estado", string(o.Status)},
	}
	if o.GestorName != "" {
		details = append(details, Field{"Gestor", o.GestorName})
	}
	if o.StartDate != nil || o.EndDate != nil {
		details = append(details, Field{"Periodo", fmt.Sprintf("%s - %s", optionalDate(o.StartDate), optionalDate(o.EndDate))})
	}
	if o.Location != "" {
		details = append(details, Field{"Ubicacion", o.Location})
	}
	if o.Description != "" {
		details = append(details, Field{"Descripcion", o.Description})
	}
	return Document{
		Title:    "ORDEN DE SERVICIO",
		Number:   o.Number,
		Client:   o.ClientName,
		Details:  details,
		Currency: o.Currency,
		Items:    o.Items,
		Subtotal: o.Subtotal,
		Tax:      o.Tax,
		Total:    o.Total,
		Notes:    o.Notes,
	}
}

func FromPurchaseOrder(p *purchaseorders.PurchaseOrder) Document {
	details := []Field{
		{"Fecha de emision", p.IssueDate.Format(dateLayout)},
		{"Entrega", optionalDate(p.DeliveryDate)},
		{"Estado", string(p.Status)},
	}
	if p.PaymentTerms != "" {
		details = append(details, Field{"Condiciones de pago", p.PaymentTerms})
	}
	if p.GestorName != "" {
		details = append(details, Field{"Gestor", p.GestorName})
	}
	return Document{
		Title:    "ORDEN DE COMPRA",
		Number:   p.Number,
		Client:   p.ClientName,
		Details:  details,
		Currency: p.Currency,
		Items:    p.Items,
		Subtotal: p.Subtotal,
		Tax:      p.Tax,
		Total:    p.Total,
		Notes:    p.Notes,
	}
}

func optionalDate(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(dateLayout)
}
