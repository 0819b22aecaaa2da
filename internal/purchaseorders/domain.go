// Package purchaseorders manages purchase orders received from clients.
package purchaseorders

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ecoserv/ecoserv/internal/billing"
	"github.com/ecoserv/ecoserv/internal/lineitems"
	"github.com/ecoserv/ecoserv/internal/shared"
)

var (
	ErrNotFound        = fmt.Errorf("purchase order %w", shared.ErrNotFound)
	ErrDuplicateNumber = fmt.Errorf("purchase order number already used: %w", shared.ErrDuplicate)
)

// Status is the state of a purchase order.
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusSent      Status = "SENT"
	StatusConfirmed Status = "CONFIRMED"
	StatusCancelled Status = "CANCELLED"
	StatusReceived  Status = "RECEIVED"
)

var Statuses = []Status{StatusDraft, StatusSent, StatusConfirmed, StatusCancelled, StatusReceived}

// legacyStatuses maps the older order vocabulary onto the canonical one.
var legacyStatuses = map[string]Status{
	"PENDING":     StatusDraft,
	"IN_PROGRESS": StatusConfirmed,
	"COMPLETED":   StatusReceived,
}

// ParseStatus normalises raw, accepting legacy values. Unknown values are
// returned unchanged so validation can report them.
func ParseStatus(raw string) Status {
	if s, ok := legacyStatuses[raw]; ok {
		return s
	}
	return Status(raw)
}

func (s Status) Valid() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

// UnmarshalJSON normalises legacy values on input.
func (s *Status) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*s = ParseStatus(raw)
	return nil
}

type PurchaseOrder struct {
	ID           int64            `json:"id"`
	Number       string           `json:"number"`
	ClientID     int64            `json:"client_id"`
	ClientName   string           `json:"client_name"`
	GestorID     *int64           `json:"gestor_id,omitempty"`
	GestorName   string           `json:"gestor_name,omitempty"`
	Status       Status           `json:"status"`
	Currency     billing.Currency `json:"currency"`
	IssueDate    time.Time        `json:"issue_date"`
	DeliveryDate *time.Time       `json:"delivery_date,omitempty"`
	PaymentTerms string           `json:"payment_terms"`
	Notes        string           `json:"notes"`
	Subtotal     float64          `json:"subtotal"`
	Tax          float64          `json:"tax"`
	Total        float64          `json:"total"`
	Items        []lineitems.Item `json:"items"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
	DeletedAt    *time.Time       `json:"deleted_at,omitempty"`
}

func (p *PurchaseOrder) setItems(items []lineitems.Item) {
	p.Items = items
	t := lineitems.Totals(items)
	p.Subtotal, p.Tax, p.Total = t.Subtotal, t.Tax, t.Total
}

type CreateRequest struct {
	Number       string            `json:"number,omitempty" validate:"omitempty,max=40"`
	ClientID     int64             `json:"client_id" validate:"required,gt=0"`
	GestorID     *int64            `json:"gestor_id,omitempty" validate:"omitempty,gt=0"`
	Status       Status            `json:"status,omitempty" validate:"omitempty,oneof=DRAFT SENT CONFIRMED CANCELLED RECEIVED"`
	Currency     billing.Currency  `json:"currency,omitempty" validate:"omitempty,oneof=PEN USD"`
	IssueDate    *time.Time        `json:"issue_date,omitempty"`
	DeliveryDate *time.Time        `json:"delivery_date,omitempty"`
	PaymentTerms string            `json:"payment_terms" validate:"max=200"`
	Notes        string            `json:"notes"`
	Items        []lineitems.Input `json:"items" validate:"dive"`
}

type UpdateRequest struct {
	ClientID     *int64             `json:"client_id,omitempty" validate:"omitempty,gt=0"`
	GestorID     *int64             `json:"gestor_id,omitempty" validate:"omitempty,gt=0"`
	Status       *Status            `json:"status,omitempty" validate:"omitempty,oneof=DRAFT SENT CONFIRMED CANCELLED RECEIVED"`
	Currency     *billing.Currency  `json:"currency,omitempty" validate:"omitempty,oneof=PEN USD"`
	IssueDate    *time.Time         `json:"issue_date,omitempty"`
	DeliveryDate *time.Time         `json:"delivery_date,omitempty"`
	PaymentTerms *string            `json:"payment_terms,omitempty" validate:"omitempty,max=200"`
	Notes        *string            `json:"notes,omitempty"`
	Items        *[]lineitems.Input `json:"items,omitempty" validate:"omitempty,dive"`
}

type ListFilter struct {
	Status   *Status
	ClientID *int64
	Page     shared.PageRequest
}

func (req UpdateRequest) apply(p *PurchaseOrder) {
	if req.ClientID != nil {
		p.ClientID = *req.ClientID
	}
	if req.GestorID != nil {
		p.GestorID = req.GestorID
	}
	if req.Status != nil {
		p.Status = *req.Status
	}
	if req.Currency != nil {
		p.Currency = *req.Currency
	}
	if req.IssueDate != nil {
		p.IssueDate = dateOf(*req.IssueDate)
	}
	if req.DeliveryDate != nil {
		d := dateOf(*req.DeliveryDate)
		p.DeliveryDate = &d
	}
	if req.PaymentTerms != nil {
		p.PaymentTerms = *req.PaymentTerms
	}
	if req.Notes != nil {
		p.Notes = *req.Notes
	}
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
