// Package lineitems holds the item shape shared by quotations, service orders
// and purchase orders, and the SQL that replaces an item set wholesale.
package lineitems

import "github.com/ecoserv/ecoserv/internal/billing"

// Item is one priced row of a document.
type Item struct {
	ID          int64   `json:"id"`
	ParentID    int64   `json:"parent_id"`
	Position    int     `json:"position"`
	EquipmentID *int64  `json:"equipment_id,omitempty"`
	Description string  `json:"description"`
	Unit        string  `json:"unit"`
	Quantity    float64 `json:"quantity"`
	Days        *int    `json:"days,omitempty"`
	UnitPrice   float64 `json:"unit_price"`
	Amount      float64 `json:"amount"`
}

// Line returns the priced part of the item.
func (i Item) Line() billing.Line {
	return billing.Line{Quantity: i.Quantity, UnitPrice: i.UnitPrice, Days: i.Days}
}

// Input is an item as submitted by a client. Ids and amounts are assigned on write.
type Input struct {
	EquipmentID *int64  `json:"equipment_id,omitempty" validate:"omitempty,gt=0"`
	Description string  `json:"description" validate:"required,max=500"`
	Unit        string  `json:"unit,omitempty" validate:"max=20"`
	Quantity    float64 `json:"quantity" validate:"gt=0"`
	Days        *int    `json:"days,omitempty" validate:"omitempty,gte=0"`
	UnitPrice   float64 `json:"unit_price" validate:"gte=0"`
}

// Build turns inputs into items numbered 1..n with amounts filled in.
func Build(inputs []Input) []Item {
	items := make([]Item, 0, len(inputs))
	for i, in := range inputs {
		item := Item{
			Position:    i + 1,
			EquipmentID: in.EquipmentID,
			Description: in.Description,
			Unit:        in.Unit,
			Quantity:    in.Quantity,
			Days:        in.Days,
			UnitPrice:   in.UnitPrice,
		}
		item.Amount = billing.LineAmount(item.Line())
		items = append(items, item)
	}
	return items
}

// Totals computes document totals for items.
func Totals(items []Item) billing.Totals {
	lines := make([]billing.Line, len(items))
	for i, item := range items {
		lines[i] = item.Line()
	}
	return billing.Compute(lines)
}

// Inputs converts stored items back to inputs, e.g. to copy a quotation into an order.
func Inputs(items []Item) []Input {
	out := make([]Input, len(items))
	for i, item := range items {
		out[i] = Input{
			EquipmentID: item.EquipmentID,
			Description: item.Description,
			Unit:        item.Unit,
			Quantity:    item.Quantity,
			Days:        item.Days,
			UnitPrice:   item.UnitPrice,
		}
	}
	return out
}

// OrEmpty returns items, or an empty non-nil slice so JSON renders [].
func OrEmpty(items []Item) []Item {
	if items == nil {
		return []Item{}
	}
	return items
}
