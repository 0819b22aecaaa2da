// Package quotations manages price quotations sent to clients.
package quotations

import (
	"fmt"
	"time"

	"github.com/ecoserv/ecoserv/internal/billing"
	"github.com/ecoserv/ecoserv/internal/lineitems"
	"github.com/ecoserv/ecoserv/internal/shared"
)

var (
	// ErrNotFound is returned for missing or soft-deleted quotations.
	ErrNotFound = fmt.Errorf("quotation %w", shared.ErrNotFound)
	// ErrDuplicateNumber is returned when a client-supplied number is taken.
	ErrDuplicateNumber = fmt.Errorf("quotation number already used: %w", shared.ErrDuplicate)
	// ErrNotSent is returned when responding to a quotation that is not awaiting a response.
	ErrNotSent = fmt.Errorf("quotation is not awaiting a response: %w", shared.ErrInvalidStatus)
)

// DefaultValidityDays applies when a quotation is created without a validity.
const DefaultValidityDays = 15

// Status is the lifecycle state of a quotation.
type Status string

const (
	StatusDraft    Status = "DRAFT"
	StatusSent     Status = "SENT"
	StatusAccepted Status = "ACCEPTED"
	StatusRejected Status = "REJECTED"
	StatusExpired  Status = "EXPIRED"
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{StatusDraft, StatusSent, StatusAccepted, StatusRejected, StatusExpired}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

// Quotation is a priced offer to a client. Items are owned by the quotation
// and always replaced as a whole.
type Quotation struct {
	ID           int64            `json:"id"`
	Number       string           `json:"number"`
	ClientID     int64            `json:"client_id"`
	ClientName   string           `json:"client_name"`
	Status       Status           `json:"status"`
	Currency     billing.Currency `json:"currency"`
	IssueDate    time.Time        `json:"issue_date"`
	ValidityDays int              `json:"validity_days"`
	Description  string           `json:"description"`
	Notes        string           `json:"notes"`
	Subtotal     float64          `json:"subtotal"`
	Tax          float64          `json:"tax"`
	Total        float64          `json:"total"`
	Items        []lineitems.Item `json:"items"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
	DeletedAt    *time.Time       `json:"deleted_at,omitempty"`
}

// ValidUntil is the last day the offer holds.
func (q Quotation) ValidUntil() time.Time {
	return q.IssueDate.AddDate(0, 0, q.ValidityDays)
}

func (q *Quotation) setItems(items []lineitems.Item) {
	q.Items = items
	t := lineitems.Totals(items)
	q.Subtotal, q.Tax, q.Total = t.Subtotal, t.Tax, t.Total
}

// CreateRequest is the payload of POST /api/quotations. Number is allocated
// from the yearly sequence when omitted.
type CreateRequest struct {
	Number       string            `json:"number,omitempty" validate:"omitempty,max=40"`
	ClientID     int64             `json:"client_id" validate:"required,gt=0"`
	Status       Status            `json:"status,omitempty" validate:"omitempty,oneof=DRAFT SENT ACCEPTED REJECTED EXPIRED"`
	Currency     billing.Currency  `json:"currency,omitempty" validate:"omitempty,oneof=PEN USD"`
	IssueDate    *time.Time        `json:"issue_date,omitempty"`
	ValidityDays int               `json:"validity_days,omitempty" validate:"gte=0,lte=365"`
	Description  string            `json:"description"`
	Notes        string            `json:"notes"`
	Items        []lineitems.Input `json:"items" validate:"dive"`
}

// UpdateRequest is the payload of PUT /api/quotations/{id}. Nil fields are
// left untouched. A non-nil Items, even empty, replaces every item.
type UpdateRequest struct {
	ClientID     *int64             `json:"client_id,omitempty" validate:"omitempty,gt=0"`
	Status       *Status            `json:"status,omitempty" validate:"omitempty,oneof=DRAFT SENT ACCEPTED REJECTED EXPIRED"`
	Currency     *billing.Currency  `json:"currency,omitempty" validate:"omitempty,oneof=PEN USD"`
	IssueDate    *time.Time         `json:"issue_date,omitempty"`
	ValidityDays *int               `json:"validity_days,omitempty" validate:"omitempty,gt=0,lte=365"`
	Description  *string            `json:"description,omitempty"`
	Notes        *string            `json:"notes,omitempty"`
	Items        *[]lineitems.Input `json:"items,omitempty" validate:"omitempty,dive"`
}

// RespondRequest is the client's answer to a sent quotation.
type RespondRequest struct {
	Status Status `json:"status" validate:"required,oneof=ACCEPTED REJECTED"`
}

// ListFilter narrows GET /api/quotations.
type ListFilter struct {
	Status   *Status
	ClientID *int64
	Page     shared.PageRequest
}

func (req UpdateRequest) apply(q *Quotation) {
	if req.ClientID != nil {
		q.ClientID = *req.ClientID
	}
	if req.Status != nil {
		q.Status = *req.Status
	}
	if req.Currency != nil {
		q.Currency = *req.Currency
	}
	if req.IssueDate != nil {
		q.IssueDate = dateOf(*req.IssueDate)
	}
	if req.ValidityDays != nil {
		q.ValidityDays = *req.ValidityDays
	}
	if req.Description != nil {
		q.Description = *req.Description
	}
	if req.Notes != nil {
		q.Notes = *req.Notes
	}
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
