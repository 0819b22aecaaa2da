package quotations

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

// Repository reads quotations and opens write transactions.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (*Quotation, error)
	List(ctx context.Context, filter ListFilter) ([]Quotation, int, error)
	SoftDelete(ctx context.Context, id int64, at time.Time) error
	// ExpireOverdue moves SENT quotations whose validity ended before now to
	// EXPIRED and returns their ids.
	ExpireOverdue(ctx context.Context, now time.Time) ([]int64, error)
}

// TxRepository is the write side, bound to one transaction.
type TxRepository interface {
	// Lock reads the live header (without items) and locks the row.
	Lock(ctx context.Context, id int64) (*Quotation, error)
	NextNumber(ctx context.Context, at time.Time) (string, error)
	Insert(ctx context.Context, q Quotation) (int64, error)
	UpdateHeader(ctx context.Context, q Quotation) error
	ReplaceItems(ctx context.Context, quotationID int64, items []lineitems.Item) error
}

type repository struct {
	pool db.Beginner
	db   db.DBTX
	seq  docnum.Sequence
}

// PgxConn is satisfied by *pgxpool.Pool.
type PgxConn interface {
	db.Beginner
	db.DBTX
}

// NewRepository returns a Postgres backed Repository.
func NewRepository(conn PgxConn) Repository {
	return &repository{pool: conn, db: conn, seq: docnum.NewSequence(docnum.PrefixQuotation)}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{db: tx, seq: r.seq})
	})
}

const headerColumns = `q.id, q.number, q.client_id, c.name, q.status, q.currency, q.issue_date,
	q.validity_days, q.description, q.notes, q.subtotal, q.tax, q.total,
	q.created_at, q.updated_at, q.deleted_at`

const headerFrom = `FROM quotations q JOIN clients c ON c.id = q.client_id`

func scanHeader(row pgx.Row) (*Quotation, error) {
	var q Quotation
	err := row.Scan(
		&q.ID, &q.Number, &q.ClientID, &q.ClientName, &q.Status, &q.Currency, &q.IssueDate,
		&q.ValidityDays, &q.Description, &q.Notes, &q.Subtotal, &q.Tax, &q.Total,
		&q.CreatedAt, &q.UpdatedAt, &q.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &q, nil
}

func (r *repository) Get(ctx context.Context, id int64) (*Quotation, error) {
	q, err := scanHeader(r.db.QueryRow(ctx,
		`SELECT `+headerColumns+` `+headerFrom+` WHERE q.id = $1 AND q.deleted_at IS NULL`, id))
	if db.IsNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("quotations: get %d: %w", id, err)
	}
	items, err := lineitems.QuotationItems.List(ctx, r.db, id)
	if err != nil {
		return nil, err
	}
	q.Items = lineitems.OrEmpty(items[id])
	return q, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]Quotation, int, error) {
	conditions := []string{"q.deleted_at IS NULL"}
	var args []any
	if filter.Status != nil {
		args = append(args, *filter.Status)
		conditions = append(conditions, fmt.Sprintf("q.status = $%d", len(args)))
	}
	if filter.ClientID != nil {
		args = append(args, *filter.ClientID)
		conditions = append(conditions, fmt.Sprintf("q.client_id = $%d", len(args)))
	}
	where := "WHERE " + strings.Join(conditions, " AND ")

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM quotations q "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("quotations: count: %w", err)
	}

	args = append(args, filter.Page.Limit(), filter.Page.Offset())
	query := fmt.Sprintf(`SELECT %s %s %s ORDER BY q.issue_date DESC, q.id DESC LIMIT $%d OFFSET $%d`,
		headerColumns, headerFrom, where, len(args)-1, len(args))
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("quotations: list: %w", err)
	}
	defer rows.Close()

	out := []Quotation{}
	ids := []int64{}
	for rows.Next() {
		q, err := scanHeader(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("quotations: scan: %w", err)
		}
		out = append(out, *q)
		ids = append(ids, q.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	items, err := lineitems.QuotationItems.List(ctx, r.db, ids...)
	if err != nil {
		return nil, 0, err
	}
	for i := range out {
		out[i].Items = lineitems.OrEmpty(items[out[i].ID])
	}
	return out, total, nil
}

func (r *repository) SoftDelete(ctx context.Context, id int64, at time.Time) error {
	tag, err := r.db.Exec(ctx, `UPDATE quotations SET deleted_at = $2 WHERE id = $1 AND deleted_at IS NULL`, id, at)
	if err != nil {
		return fmt.Errorf("quotations: delete %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) ExpireOverdue(ctx context.Context, now time.Time) ([]int64, error) {
	rows, err := r.db.Query(ctx, `
		UPDATE quotations SET status = $1, updated_at = NOW()
		WHERE status = $2 AND deleted_at IS NULL
		  AND issue_date + validity_days < $3::date
		RETURNING id`, StatusExpired, StatusSent, now)
	if err != nil {
		return nil, fmt.Errorf("quotations: expire: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[int64])
}

type txRepository struct {
	db  db.DBTX
	seq docnum.Sequence
}

func (t *txRepository) Lock(ctx context.Context, id int64) (*Quotation, error) {
	q, err := scanHeader(t.db.QueryRow(ctx,
		`SELECT `+headerColumns+` `+headerFrom+` WHERE q.id = $1 AND q.deleted_at IS NULL FOR UPDATE OF q`, id))
	if db.IsNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("quotations: lock %d: %w", id, err)
	}
	return q, nil
}

func (t *txRepository) NextNumber(ctx context.Context, at time.Time) (string, error) {
	return t.seq.Next(ctx, t.db, at)
}

func (t *txRepository) Insert(ctx context.Context, q Quotation) (int64, error) {
	var id int64
	err := t.db.QueryRow(ctx, `
		INSERT INTO quotations (number, client_id, status, currency, issue_date, validity_days,
			description, notes, subtotal, tax, total)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`,
		q.Number, q.ClientID, q.Status, q.Currency, q.IssueDate, q.ValidityDays,
		q.Description, q.Notes, q.Subtotal, q.Tax, q.Total,
	).Scan(&id)
	if db.IsUniqueViolation(err) {
		return 0, ErrDuplicateNumber
	}
	if err != nil {
		return 0, fmt.Errorf("quotations: insert: %w", err)
	}
	return id, nil
}

func (t *txRepository) UpdateHeader(ctx context.Context, q Quotation) error {
	tag, err := t.db.Exec(ctx, `
		UPDATE quotations SET client_id = $2, status = $3, currency = $4, issue_date = $5,
			validity_days = $6, description = $7, notes = $8, subtotal = $9, tax = $10,
			total = $11, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`,
		q.ID, q.ClientID, q.Status, q.Currency, q.IssueDate, q.ValidityDays,
		q.Description, q.Notes, q.Subtotal, q.Tax, q.Total,
	)
	if err != nil {
		return fmt.Errorf("quotations: update %d: %w", q.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *txRepository) ReplaceItems(ctx context.Context, quotationID int64, items []lineitems.Item) error {
	return lineitems.QuotationItems.Replace(ctx, t.db, quotationID, items)
}
