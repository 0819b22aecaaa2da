// Package clients manages the customer master data referenced by every document.
package clients

import (
	"fmt"
	"time"

	"github.com/ecoserv/ecoserv/internal/shared"
)

// ErrNotFound is returned for missing or soft-deleted clients.
var ErrNotFound = fmt.Errorf("client %w", shared.ErrNotFound)

// ErrDuplicateTaxID is returned when another live client has the same RUC.
var ErrDuplicateTaxID = fmt.Errorf("client tax id already registered: %w", shared.ErrDuplicate)

// Client is a customer of the company.
type Client struct {
	ID            int64      `json:"id"`
	Name          string     `json:"name"`
	TaxID         string     `json:"tax_id"`
	Address       string     `json:"address"`
	Email         string     `json:"email"`
	Phone         string     `json:"phone"`
	ContactName   string     `json:"contact_name"`
	ContactPhone  string     `json:"contact_phone"`
	CreditDays    int        `json:"credit_days"`
	PaymentMethod string     `json:"payment_method"`
	Notes         string     `json:"notes"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	DeletedAt     *time.Time `json:"deleted_at,omitempty"`
}

// CreateRequest is the payload of POST /api/clients.
type CreateRequest struct {
	Name          string `json:"name" validate:"required,max=200"`
	TaxID         string `json:"tax_id" validate:"required,numeric,len=11"`
	Address       string `json:"address" validate:"max=300"`
	Email         string `json:"email" validate:"omitempty,email"`
	Phone         string `json:"phone" validate:"max=30"`
	ContactName   string `json:"contact_name" validate:"max=120"`
	ContactPhone  string `json:"contact_phone" validate:"max=30"`
	CreditDays    int    `json:"credit_days" validate:"gte=0,lte=365"`
	PaymentMethod string `json:"payment_method" validate:"max=60"`
	Notes         string `json:"notes"`
}

// UpdateRequest is the payload of PUT /api/clients/{id}. Nil fields are left unchanged.
type UpdateRequest struct {
	Name          *string `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	TaxID         *string `json:"tax_id,omitempty" validate:"omitempty,numeric,len=11"`
	Address       *string `json:"address,omitempty" validate:"omitempty,max=300"`
	Email         *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone         *string `json:"phone,omitempty" validate:"omitempty,max=30"`
	ContactName   *string `json:"contact_name,omitempty" validate:"omitempty,max=120"`
	ContactPhone  *string `json:"contact_phone,omitempty" validate:"omitempty,max=30"`
	CreditDays    *int    `json:"credit_days,omitempty" validate:"omitempty,gte=0,lte=365"`
	PaymentMethod *string `json:"payment_method,omitempty" validate:"omitempty,max=60"`
	Notes         *string `json:"notes,omitempty"`
}

// ListFilter narrows GET /api/clients.
type ListFilter struct {
	Search string
	Page   shared.PageRequest
}

func (req CreateRequest) client() Client {
	return Client{
		Name:          req.Name,
		TaxID:         req.TaxID,
		Address:       req.Address,
		Email:         req.Email,
		Phone:         req.Phone,
		ContactName:   req.ContactName,
		ContactPhone:  req.ContactPhone,
		CreditDays:    req.CreditDays,
		PaymentMethod: req.PaymentMethod,
		Notes:         req.Notes,
	}
}

func (req UpdateRequest) apply(c *Client) {
	set(&c.Name, req.Name)
	set(&c.TaxID, req.TaxID)
	set(&c.Address, req.Address)
	set(&c.Email, req.Email)
	set(&c.Phone, req.Phone)
	set(&c.ContactName, req.ContactName)
	set(&c.ContactPhone, req.ContactPhone)
	set(&c.CreditDays, req.CreditDays)
	set(&c.PaymentMethod, req.PaymentMethod)
	set(&c.Notes, req.Notes)
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
