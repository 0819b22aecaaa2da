// Package users manages staff records. Users are not accounts: they appear as
// the gestor responsible for service and purchase orders.
package users

import (
	"fmt"
	"time"

	"github.com/ecoserv/ecoserv/internal/shared"
)

var (
	ErrNotFound       = fmt.Errorf("user %w", shared.ErrNotFound)
	ErrDuplicateEmail = fmt.Errorf("user email already registered: %w", shared.ErrDuplicate)
	ErrInactive       = fmt.Errorf("user is inactive: %w", shared.ErrValidation)
)

// Roles.
const (
	RoleAdmin  = "admin"
	RoleGestor = "gestor"
	RoleTech   = "tecnico"
)

// User is a member of staff.
type User struct {
	ID         int64      `json:"id"`
	Name       string     `json:"name"`
	Email      string     `json:"email"`
	Role       string     `json:"role"`
	Department string     `json:"department"`
	Position   string     `json:"position"`
	IsActive   bool       `json:"is_active"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	DeletedAt  *time.Time `json:"deleted_at,omitempty"`
}

type CreateRequest struct {
	Name       string `json:"name" validate:"required,max=120"`
	Email      string `json:"email" validate:"required,email"`
	Role       string `json:"role" validate:"omitempty,oneof=admin gestor tecnico"`
	Department string `json:"department" validate:"max=80"`
	Position   string `json:"position" validate:"max=80"`
	IsActive   *bool  `json:"is_active,omitempty"`
}

type UpdateRequest struct {
	Name       *string `json:"name,omitempty" validate:"omitempty,min=1,max=120"`
	Email      *string `json:"email,omitempty" validate:"omitempty,email"`
	Role       *string `json:"role,omitempty" validate:"omitempty,oneof=admin gestor tecnico"`
	Department *string `json:"department,omitempty" validate:"omitempty,max=80"`
	Position   *string `json:"position,omitempty" validate:"omitempty,max=80"`
	IsActive   *bool   `json:"is_active,omitempty"`
}

type ListFilter struct {
	Role       string
	ActiveOnly bool
	Page       shared.PageRequest
}
