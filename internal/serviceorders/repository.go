package serviceorders

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

// Repository reads service orders and opens write transactions.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (*ServiceOrder, error)
	List(ctx context.Context, filter ListFilter) ([]ServiceOrder, int, error)
	SoftDelete(ctx context.Context, id int64, at time.Time) error
}

// TxRepository is the write side, bound to one transaction.
type TxRepository interface {
	Lock(ctx context.Context, id int64) (*ServiceOrder, error)
	NextNumber(ctx context.Context, at time.Time) (string, error)
	Insert(ctx context.Context, o ServiceOrder) (int64, error)
	UpdateHeader(ctx context.Context, o ServiceOrder) error
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

// NewRepository returns a Postgres backed Repository.
func NewRepository(conn PgxConn) Repository {
	return &repository{pool: conn, db: conn, seq: docnum.NewSequence(docnum.PrefixServiceOrder)}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{db: tx, seq: r.seq})
	})
}

const selectOrder = `SELECT o.id, o.number, o.client_id, c.name, o.gestor_id, COALESCE(u.name, ''),
	o.quotation_id, o.status, o.currency, o.issue_date, o.start_date, o.end_date, o.location,
	o.description, o.notes, o.subtotal, o.tax, o.total, o.created_at, o.updated_at, o.deleted_at
	FROM service_orders o
	JOIN clients c ON c.id = o.client_id
	LEFT JOIN users u ON u.id = o.gestor_id`

func scanOrder(row pgx.Row) (*ServiceOrder, error) {
	var o ServiceOrder
	if err := row.Scan(
		&o.ID, &o.Number, &o.ClientID, &o.ClientName, &o.GestorID, &o.GestorName,
		&o.QuotationID, &o.Status, &o.Currency, &o.IssueDate, &o.StartDate, &o.EndDate, &o.Location,
		&o.Description, &o.Notes, &o.Subtotal, &o.Tax, &o.Total, &o.CreatedAt, &o.UpdatedAt, &o.DeletedAt,
	); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *repository) Get(ctx context.Context, id int64) (*ServiceOrder, error) {
	o, err := scanOrder(r.db.QueryRow(ctx, selectOrder+` WHERE o.id = $1 AND o.deleted_at IS NULL`, id))
	if db.IsNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("serviceorders: get %d: %w", id, err)
	}
	items, err := lineitems.ServiceOrderItems.List(ctx, r.db, id)
	if err != nil {
		return nil, err
	}
	o.Items = lineitems.OrEmpty(items[id])
	return o, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]ServiceOrder, int, error) {
	conditions := []string{"o.deleted_at IS NULL"}
	var args []any
	add := func(column string, v any) {
		args = append(args, v)
		conditions = append(conditions, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if filter.Status != nil {
		add("o.status", *filter.Status)
	}
	if filter.ClientID != nil {
		add("o.client_id", *filter.ClientID)
	}
	if filter.GestorID != nil {
		add("o.gestor_id", *filter.GestorID)
	}
	where := " WHERE " + strings.Join(conditions, " AND ")

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM service_orders o"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("serviceorders: count: %w", err)
	}

	args = append(args, filter.Page.Limit(), filter.Page.Offset())
	rows, err := r.db.Query(ctx, fmt.Sprintf("%s%s ORDER BY o.issue_date DESC, o.id DESC LIMIT $%d OFFSET $%d",
		selectOrder, where, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("serviceorders: list: %w", err)
	}
	defer rows.Close()

	out := []ServiceOrder{}
	var ids []int64
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("serviceorders: scan: %w", err)
		}
		out = append(out, *o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	items, err := lineitems.ServiceOrderItems.List(ctx, r.db, ids...)
	if err != nil {
		return nil, 0, err
	}
	for i := range out {
		out[i].Items = lineitems.OrEmpty(items[out[i].ID])
	}
	return out, total, nil
}

func (r *repository) SoftDelete(ctx context.Context, id int64, at time.Time) error {
	tag, err := r.db.Exec(ctx, `UPDATE service_orders SET deleted_at = $2 WHERE id = $1 AND deleted_at IS NULL`, id, at)
	if err != nil {
		return fmt.Errorf("serviceorders: delete %d: %w", id, err)
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

func (t *txRepository) Lock(ctx context.Context, id int64) (*ServiceOrder, error) {
	o, err := scanOrder(t.db.QueryRow(ctx, selectOrder+` WHERE o.id = $1 AND o.deleted_at IS NULL FOR UPDATE OF o`, id))
	if db.IsNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("serviceorders: lock %d: %w", id, err)
	}
	return o, nil
}

func (t *txRepository) NextNumber(ctx context.Context, at time.Time) (string, error) {
	return t.seq.Next(ctx, t.db, at)
}

func (t *txRepository) Insert(ctx context.Context, o ServiceOrder) (int64, error) {
	var id int64
	err := t.db.QueryRow(ctx, `
		INSERT INTO service_orders (number, client_id, gestor_id, quotation_id, status, currency,
			issue_date, start_date, end_date, location, description, notes, subtotal, tax, total)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id`,
		o.Number, o.ClientID, o.GestorID, o.QuotationID, o.Status, o.Currency,
		o.IssueDate, o.StartDate, o.EndDate, o.Location, o.Description, o.Notes, o.Subtotal, o.Tax, o.Total,
	).Scan(&id)
	if db.IsUniqueViolation(err) {
		return 0, ErrDuplicateNumber
	}
	if err != nil {
		return 0, fmt.Errorf("serviceorders: insert: %w", err)
	}
	return id, nil
}

func (t *txRepository) UpdateHeader(ctx context.Context, o ServiceOrder) error {
	tag, err := t.db.Exec(ctx, `
		UPDATE service_orders SET client_id = $2, gestor_id = $3, status = $4, currency = $5,
			issue_date = $6, start_date = $7, end_date = $8, location = $9, description = $10,
			notes = $11, subtotal = $12, tax = $13, total = $14, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`,
		o.ID, o.ClientID, o.GestorID, o.Status, o.Currency,
		o.IssueDate, o.StartDate, o.EndDate, o.Location, o.Description,
		o.Notes, o.Subtotal, o.Tax, o.Total,
	)
	if err != nil {
		return fmt.Errorf("serviceorders: update %d: %w", o.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *txRepository) ReplaceItems(ctx context.Context, orderID int64, items []lineitems.Item) error {
	return lineitems.ServiceOrderItems.Replace(ctx, t.db, orderID, items)
}
