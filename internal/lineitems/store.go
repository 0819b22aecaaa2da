package lineitems

import (
	"context"
	"fmt"

	"github.com/ecoserv/ecoserv/internal/platform/db"
)

// Table describes an item table: its name and the foreign key to the parent.
type Table struct {
	Name      string
	ParentKey string
}

// Item tables.
var (
	QuotationItems     = Table{Name: "quotation_items", ParentKey: "quotation_id"}
	ServiceOrderItems  = Table{Name: "service_order_items", ParentKey: "service_order_id"}
	PurchaseOrderItems = Table{Name: "purchase_order_items", ParentKey: "purchase_order_id"}
)

// Replace deletes every item of parentID and inserts items in order, filling
// in ParentID and ID. It must run inside the transaction that updates the parent.
func (t Table) Replace(ctx context.Context, q db.DBTX, parentID int64, items []Item) error {
	if err := t.DeleteAll(ctx, q, parentID); err != nil {
		return err
	}
	for i := range items {
		items[i].ParentID = parentID
		id, err := t.Insert(ctx, q, items[i])
		if err != nil {
			return err
		}
		items[i].ID = id
	}
	return nil
}

// DeleteAll removes every item of parentID.
func (t Table) DeleteAll(ctx context.Context, q db.DBTX, parentID int64) error {
	sql := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`, t.Name, t.ParentKey)
	if _, err := q.Exec(ctx, sql, parentID); err != nil {
		return fmt.Errorf("lineitems: delete %s: %w", t.Name, err)
	}
	return nil
}

// Insert writes one item and returns its id.
func (t Table) Insert(ctx context.Context, q db.DBTX, item Item) (int64, error) {
	sql := fmt.Sprintf(`
		INSERT INTO %s (%s, position, equipment_id, description, unit, quantity, days, unit_price, amount)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`, t.Name, t.ParentKey)
	var id int64
	err := q.QueryRow(ctx, sql,
		item.ParentID, item.Position, item.EquipmentID, item.Description, item.Unit,
		item.Quantity, item.Days, item.UnitPrice, item.Amount,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("lineitems: insert %s: %w", t.Name, err)
	}
	return id, nil
}

// List returns the items of the given parents grouped by parent id, each group
// ordered by position.
func (t Table) List(ctx context.Context, q db.DBTX, parentIDs ...int64) (map[int64][]Item, error) {
	out := make(map[int64][]Item, len(parentIDs))
	if len(parentIDs) == 0 {
		return out, nil
	}
	sql := fmt.Sprintf(`
		SELECT id, %s, position, equipment_id, description, unit, quantity, days, unit_price, amount
		FROM %s
		WHERE %s = ANY($1)
		ORDER BY %s, position, id`, t.ParentKey, t.Name, t.ParentKey, t.ParentKey)
	rows, err := q.Query(ctx, sql, parentIDs)
	if err != nil {
		return nil, fmt.Errorf("lineitems: list %s: %w", t.Name, err)
	}
	defer rows.Close()

	for rows.Next() {
		var item Item
		if err := rows.Scan(
			&item.ID, &item.ParentID, &item.Position, &item.EquipmentID, &item.Description, &item.Unit,
			&item.Quantity, &item.Days, &item.UnitPrice, &item.Amount,
		); err != nil {
			return nil, fmt.Errorf("lineitems: scan %s: %w", t.Name, err)
		}
		out[item.ParentID] = append(out[item.ParentID], item)
	}
	return out, rows.Err()
}
