package purchaseorders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ecoserv/ecoserv/internal/docnum"
	"github.com/ecoserv/ecoserv/internal/lineitems"
	"github.com/ecoserv/ecoserv/internal/platform/db"
)

// Repository reads purchase orders and opens write transactions.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (*PurchaseOrder, error)
	List(ctx context.Context, filter ListFilter) ([]PurchaseOrder, int, error)
	SoftDelete(ctx context.Context, id int64, at time.Time) error
}

// TxRepository is the write side, bound to one transaction.
type TxRepository interface {
	Lock(ctx context.Context, id int64) (*PurchaseOrder, error)
	NextNumber(ctx context.Context, at time.Time) (string, error)
	Insert(ctx context.Context, p PurchaseOrder) (int64, error)
	UpdateHeader(ctx context.Context, p PurchaseOrder) error
	ReplaceItems(ctx context.Context, orderID int64, items []lineitems.Item) error
}

// PgxConn is satisfied by *pgxpool.Pool.
type PgxConn interface {
	db.Beginner
	db.DBTX
}

type repository struct {
	pool db.Beginner
	db   db.DBTX
	seq  docnum.Sequence
}

func NewRepository(conn PgxConn) Repository {
	return &repository{pool: conn, db: conn, seq: docnum.NewSequence(docnum.PrefixPurchaseOrder)}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{db: tx, seq: r.seq})
	})
}

const selectOrder = `SELECT p.id, p.number, p.client_id, c.name, p.gestor_id, COALESCE(u.name, ''),
	p.status, p.currency, p.issue_date, p.delivery_date, p.payment_terms, p.notes,
	p.subtotal, p.tax, p.total, p.created_at, p.updated_at, p.deleted_at
	FROM purchase_orders p
	JOIN clients c ON c.id = p.client_id
	LEFT JOIN users u ON u.id = p.gestor_id`

func scanOrder(row pgx.Row) (*PurchaseOrder, error) {
	var p PurchaseOrder
	var status string
	if err := row.Scan(
		&p.ID, &p.Number, &p.ClientID, &p.ClientName, &p.GestorID, &p.GestorName,
		&status, &p.Currency, &p.IssueDate, &p.DeliveryDate, &p.PaymentTerms, &p.Notes,
		&p.Subtotal, &p.Tax, &p.Total, &p.CreatedAt, &p.UpdatedAt, &p.DeletedAt,
	); err != nil {
		return nil, err
	}
	p.Status = ParseStatus(status)
	return &p, nil
}

func (r *repository) Get(ctx context.Context, id int64) (*PurchaseOrder, error) {
	p, err := scanOrder(r.db.QueryRow(ctx, selectOrder+` WHERE p.id = $1 AND p.deleted_at IS NULL`, id))
	if db.IsNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("purchaseorders: get %d: %w", id, err)
	}
	items, err := lineitems.PurchaseOrderItems.List(ctx, r.db, id)
	if err != nil {
		return nil, err
	}
	p.Items = lineitems.OrEmpty(items[id])
	return p, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]PurchaseOrder, int, error) {
	conditions := []string{"p.deleted_at IS NULL"}
	var args []any
	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		conditions = append(conditions, fmt.Sprintf("p.status = $%d", len(args)))
	}
	if filter.ClientID != nil {
		args = append(args, *filter.ClientID)
		conditions = append(conditions, fmt.Sprintf("p.client_id = $%d", len(args)))
	}
	where := " WHERE " + strings.Join(conditions, " AND ")

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM purchase_orders p"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("purchaseorders: count: %w", err)
	}

	args = append(args, filter.Page.Limit(), filter.Page.Offset())
	rows, err := r.db.Query(ctx, fmt.Sprintf("%s%s ORDER BY p.issue_date DESC, p.id DESC LIMIT $%d OFFSET $%d",
		selectOrder, where, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("purchaseorders: list: %w", err)
	}
	defer rows.Close()

	out := []PurchaseOrder{}
	var ids []int64
	for rows.Next() {
		p, err := scanOrder(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("purchaseorders: scan: %w", err)
		}
		out = append(out, *p)
		ids = append(ids, p.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	items, err := lineitems.PurchaseOrderItems.List(ctx, r.db, ids...)
	if err != nil {
		return nil, 0, err
	}
	for i := range out {
		out[i].Items = lineitems.OrEmpty(items[out[i].ID])
	}
	return out, total, nil
}

func (r *repository) SoftDelete(ctx context.Context, id int64, at time.Time) error {
	tag, err := r.db.Exec(ctx, `UPDATE purchase_orders SET deleted_at = $2 WHERE id = $1 AND deleted_at IS NULL`, id, at)
	if err != nil {
		return fmt.Errorf("purchaseorders: delete %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

type txRepository struct {
	db  db.DBTX
	seq docnum.Sequence
}

func (t *txRepository) Lock(ctx context.Context, id int64) (*PurchaseOrder, error) {
	p, err := scanOrder(t.db.QueryRow(ctx, selectOrder+` WHERE p.id = $1 AND p.deleted_at IS NULL FOR UPDATE OF p`, id))
	if db.IsNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("purchaseorders: lock %d: %w", id, err)
	}
	return p, nil
}

func (t *txRepository) NextNumber(ctx context.Context, at time.Time) (string, error) {
	return t.seq.Next(ctx, t.db, at)
}

func (t *txRepository) Insert(ctx context.Context, p PurchaseOrder) (int64, error) {
	var id int64
	err := t.db.QueryRow(ctx, `
		INSERT INTO purchase_orders (number, client_id, gestor_id, status, currency, issue_date,
			delivery_date, payment_terms, notes, subtotal, tax, total)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id`,
		p.Number, p.ClientID, p.GestorID, string(p.Status), p.Currency, p.IssueDate,
		p.DeliveryDate, p.PaymentTerms, p.Notes, p.Subtotal, p.Tax, p.Total,
	).Scan(&id)
	if db.IsUniqueViolation(err) {
		return 0, ErrDuplicateNumber
	}
	if err != nil {
		return 0, fmt.Errorf("purchaseorders: insert: %w", err)
	}
	return id, nil
}

func (t *txRepository) UpdateHeader(ctx context.Context, p PurchaseOrder) error {
	tag, err := t.db.Exec(ctx, `
		UPDATE purchase_orders SET client_id = $2, gestor_id = $3, status = $4, currency = $5,
			issue_date = $6, delivery_date = $7, payment_terms = $8, notes = $9,
			subtotal = $10, tax = $11, total = $12, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`,
		p.ID, p.ClientID, p.GestorID, string(p.Status), p.Currency,
		p.IssueDate, p.DeliveryDate, p.PaymentTerms, p.Notes,
		p.Subtotal, p.Tax, p.Total,
	)
	if err != nil {
		return fmt.Errorf("purchaseorders: update %d: %w", p.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *txRepository) ReplaceItems(ctx context.Context, orderID int64, items []lineitems.Item) error {
	return lineitems.PurchaseOrderItems.Replace(ctx, t.db, orderID, items)
}
