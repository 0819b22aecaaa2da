// Package serviceorders manages field service orders (monitoring campaigns,
// equipment rentals) assigned to a gestor.
package serviceorders

import (
	"fmt"
	"time"

	"github.com/ecoserv/ecoserv/internal/billing"
	"github.com/ecoserv/ecoserv/internal/lineitems"
	"github.com/ecoserv/ecoserv/internal/shared"
)

var (
	ErrNotFound        = fmt.Errorf("service order %w", shared.ErrNotFound)
	ErrDuplicateNumber = fmt.Errorf("service order number already used: %w", shared.ErrDuplicate)
	// ErrQuotationNotAccepted is returned when an order is created from a
	// quotation the client has not accepted.
	ErrQuotationNotAccepted = fmt.Errorf("quotation is not accepted: %w", shared.ErrInvalidStatus)
)

// Status is the execution state of a service order.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusCancelled  Status = "CANCELLED"
)

var Statuses = []Status{StatusPending, StatusInProgress, StatusCompleted, StatusCancelled}

func (s Status) Valid() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

// ServiceOrder is work agreed with a client, optionally originating from a
// quotation.
type ServiceOrder struct {
	ID          int64            `json:"id"`
	Number      string           `json:"number"`
	ClientID    int64            `json:"client_id"`
	ClientName  string           `json:"client_name"`
	GestorID    *int64           `json:"gestor_id,omitempty"`
	GestorName  string           `json:"gestor_name,omitempty"`
	QuotationID *int64           `json:"quotation_id,omitempty"`
	Status      Status           `json:"status"`
	Currency    billing.Currency `json:"currency"`
	IssueDate   time.Time        `json:"issue_date"`
	StartDate   *time.Time       `json:"start_date,omitempty"`
	EndDate     *time.Time       `json:"end_date,omitempty"`
	Location    string           `json:"location"`
	Description string           `json:"description"`
	Notes       string           `json:"notes"`
	Subtotal    float64          `json:"subtotal"`
	Tax         float64          `json:"tax"`
	Total       float64          `json:"total"`
	Items       []lineitems.Item `json:"items"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
	DeletedAt   *time.Time       `json:"deleted_at,omitempty"`
}

func (o *ServiceOrder) setItems(items []lineitems.Item) {
	o.Items = items
	t := lineitems.Totals(items)
	o.Subtotal, o.Tax, o.Total = t.Subtotal, t.Tax, t.Total
}

// CreateRequest is the payload of POST /api/service-orders. When QuotationID
// is set and Items is nil, items and currency are copied from the quotation.
type CreateRequest struct {
	Number      string            `json:"number,omitempty" validate:"omitempty,max=40"`
	ClientID    int64             `json:"client_id" validate:"required,gt=0"`
	GestorID    *int64            `json:"gestor_id,omitempty" validate:"omitempty,gt=0"`
	QuotationID *int64            `json:"quotation_id,omitempty" validate:"omitempty,gt=0"`
	Status      Status            `json:"status,omitempty" validate:"omitempty,oneof=PENDING IN_PROGRESS COMPLETED CANCELLED"`
	Currency    billing.Currency  `json:"currency,omitempty" validate:"omitempty,oneof=PEN USD"`
	IssueDate   *time.Time        `json:"issue_date,omitempty"`
	StartDate   *time.Time        `json:"start_date,omitempty"`
	EndDate     *time.Time        `json:"end_date,omitempty"`
	Location    string            `json:"location" validate:"max=200"`
	Description string            `json:"description"`
	Notes       string            `json:"notes"`
	Items       []lineitems.Input `json:"items" validate:"dive"`
}

// UpdateRequest is the payload of PUT /api/service-orders/{id}.
type UpdateRequest struct {
	ClientID    *int64             `json:"client_id,omitempty" validate:"omitempty,gt=0"`
	GestorID    *int64             `json:"gestor_id,omitempty" validate:"omitempty,gt=0"`
	Status      *Status            `json:"status,omitempty" validate:"omitempty,oneof=PENDING IN_PROGRESS COMPLETED CANCELLED"`
	Currency    *billing.Currency  `json:"currency,omitempty" validate:"omitempty,oneof=PEN USD"`
	IssueDate   *time.Time         `json:"issue_date,omitempty"`
	StartDate   *time.Time         `json:"start_date,omitempty"`
	EndDate     *time.Time         `json:"end_date,omitempty"`
	Location    *string            `json:"location,omitempty" validate:"omitempty,max=200"`
	Description *string            `json:"description,omitempty"`
	Notes       *string            `json:"notes,omitempty"`
	Items       *[]lineitems.Input `json:"items,omitempty" validate:"omitempty,dive"`
}

type ListFilter struct {
	Status   *Status
	ClientID *int64
	GestorID *int64
	Page     shared.PageRequest
}

func (req UpdateRequest) apply(o *ServiceOrder) {
	if req.ClientID != nil {
		o.ClientID = *req.ClientID
	}
	if req.GestorID != nil {
		o.GestorID = req.GestorID
	}
	if req.Status != nil {
		o.Status = *req.Status
	}
	if req.Currency != nil {
		o.Currency = *req.Currency
	}
	if req.IssueDate != nil {
		o.IssueDate = dateOf(*req.IssueDate)
	}
	if req.StartDate != nil {
		o.StartDate = optionalDate(req.StartDate)
	}
	if req.EndDate != nil {
		o.EndDate = optionalDate(req.EndDate)
	}
	if req.Location != nil {
		o.Location = *req.Location
	}
	if req.Description != nil {
		o.Description = *req.Description
	}
	if req.Notes != nil {
		o.Notes = *req.Notes
	}
}

// checkSchedule rejects an end date before the start date.
func checkSchedule(o ServiceOrder) error {
	if o.StartDate != nil && o.EndDate != nil && o.EndDate.Before(*o.StartDate) {
		return shared.NewFieldErrors("end_date", "must not be before start_date")
	}
	return nil
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func optionalDate(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := dateOf(*t)
	return &d
}
