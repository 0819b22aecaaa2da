// Package equipment manages the monitoring instruments the company rents and operates.
package equipment

import (
	"fmt"
	"time"

	"github.com/ecoserv/ecoserv/internal/shared"
)

var (
	// ErrNotFound is returned for missing or soft-deleted equipment.
	ErrNotFound = fmt.Errorf("equipment %w", shared.ErrNotFound)
	// ErrDuplicateCode is returned when another live unit has the same inventory code.
	ErrDuplicateCode = fmt.Errorf("equipment code already registered: %w", shared.ErrDuplicate)
)

// Status is the physical condition of a unit.
type Status string

const (
	StatusGood Status = "GOOD"
	StatusFair Status = "FAIR"
	StatusPoor Status = "POOR"
)

// Statuses lists the accepted values.
var Statuses = []Status{StatusGood, StatusFair, StatusPoor}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusGood, StatusFair, StatusPoor:
		return true
	}
	return false
}

// Equipment is one inventoried instrument. Components maps part name to its
// serial or description.
type Equipment struct {
	ID              int64             `json:"id"`
	Code            string            `json:"code"`
	Name            string            `json:"name"`
	Brand           string            `json:"brand"`
	Model           string            `json:"model"`
	SerialNumber    string            `json:"serial_number"`
	Status          Status            `json:"status"`
	IsCalibrated    bool              `json:"is_calibrated"`
	CalibrationDate *time.Time        `json:"calibration_date,omitempty"`
	Components      map[string]string `json:"components"`
	DailyRate       float64           `json:"daily_rate"`
	Notes           string            `json:"notes"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
	DeletedAt       *time.Time        `json:"deleted_at,omitempty"`
}

// CalibrationDue reports whether the unit needs calibration as of now given a
// validity window. Uncalibrated units are always due.
func (e Equipment) CalibrationDue(now time.Time, validity time.Duration) bool {
	if !e.IsCalibrated || e.CalibrationDate == nil {
		return true
	}
	return now.Sub(*e.CalibrationDate) > validity
}

// CreateRequest is the payload of POST /api/equipment.
type CreateRequest struct {
	Code            string            `json:"code" validate:"required,max=40"`
	Name            string            `json:"name" validate:"required,max=200"`
	Brand           string            `json:"brand" validate:"max=100"`
	Model           string            `json:"model" validate:"max=100"`
	SerialNumber    string            `json:"serial_number" validate:"max=100"`
	Status          Status            `json:"status" validate:"omitempty,oneof=GOOD FAIR POOR"`
	IsCalibrated    bool              `json:"is_calibrated"`
	CalibrationDate *time.Time        `json:"calibration_date,omitempty"`
	Components      map[string]string `json:"components" validate:"omitempty,dive,keys,required,endkeys"`
	DailyRate       float64           `json:"daily_rate" validate:"gte=0"`
	Notes           string            `json:"notes"`
}

// UpdateRequest is the payload of PUT /api/equipment/{id}. Nil fields are left
// unchanged; a non-nil Components replaces the whole map.
type UpdateRequest struct {
	Code            *string            `json:"code,omitempty" validate:"omitempty,min=1,max=40"`
	Name            *string            `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Brand           *string            `json:"brand,omitempty" validate:"omitempty,max=100"`
	Model           *string            `json:"model,omitempty" validate:"omitempty,max=100"`
	SerialNumber    *string            `json:"serial_number,omitempty" validate:"omitempty,max=100"`
	Status          *Status            `json:"status,omitempty" validate:"omitempty,oneof=GOOD FAIR POOR"`
	IsCalibrated    *bool              `json:"is_calibrated,omitempty"`
	CalibrationDate *time.Time         `json:"calibration_date,omitempty"`
	Components      *map[string]string `json:"components,omitempty"`
	DailyRate       *float64           `json:"daily_rate,omitempty" validate:"omitempty,gte=0"`
	Notes           *string            `json:"notes,omitempty"`
}

// ListFilter narrows GET /api/equipment.
type ListFilter struct {
	Status *Status
	Search string
	Page   shared.PageRequest
}

func (req CreateRequest) equipment() Equipment {
	e := Equipment{
		Code:            req.Code,
		Name:            req.Name,
		Brand:           req.Brand,
		Model:           req.Model,
		SerialNumber:    req.SerialNumber,
		Status:          req.Status,
		IsCalibrated:    req.IsCalibrated,
		CalibrationDate: req.CalibrationDate,
		Components:      req.Components,
		DailyRate:       req.DailyRate,
		Notes:           req.Notes,
	}
	if e.Status == "" {
		e.Status = StatusGood
	}
	if e.Components == nil {
		e.Components = map[string]string{}
	}
	return e
}

func (req UpdateRequest) apply(e *Equipment) {
	set(&e.Code, req.Code)
	set(&e.Name, req.Name)
	set(&e.Brand, req.Brand)
	set(&e.Model, req.Model)
	set(&e.SerialNumber, req.SerialNumber)
	set(&e.Status, req.Status)
	set(&e.IsCalibrated, req.IsCalibrated)
	if req.CalibrationDate != nil {
		e.CalibrationDate = req.CalibrationDate
	}
	set(&e.Components, req.Components)
	if e.Components == nil {
		e.Components = map[string]string{}
	}
	set(&e.DailyRate, req.DailyRate)
	set(&e.Notes, req.Notes)
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
