package clients

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ecoserv/ecoserv/internal/platform/db"
)

// Repository persists clients.
type Repository interface {
	List(ctx context.Context, filter ListFilter) ([]Client, int, error)
	Get(ctx context.Context, id int64) (*Client, error)
	Create(ctx context.Context, c Client) (int64, error)
	Update(ctx context.Context, c Client) error
	SoftDelete(ctx context.Context, id int64, at time.Time) error
}

type repository struct {
	db db.DBTX
}

// NewRepository returns a Postgres backed Repository.
func NewRepository(conn db.DBTX) Repository {
	return &repository{db: conn}
}

const clientColumns = `id, name, tax_id, address, email, phone, contact_name, contact_phone,
	credit_days, payment_method, notes, created_at, updated_at, deleted_at`

func scanClient(row pgx.Row) (*Client, error) {
	var c Client
	err := row.Scan(
		&c.ID, &c.Name, &c.TaxID, &c.Address, &c.Email, &c.Phone, &c.ContactName, &c.ContactPhone,
		&c.CreditDays, &c.PaymentMethod, &c.Notes, &c.CreatedAt, &c.UpdatedAt, &c.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]Client, int, error) {
	conditions := []string{"deleted_at IS NULL"}
	var args []any
	if s := strings.TrimSpace(filter.Search); s != "" {
		args = append(args, "%"+s+"%")
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d OR tax_id ILIKE $%d)", len(args), len(args)))
	}
	where := "WHERE " + strings.Join(conditions, " AND ")

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM clients "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("clients: count: %w", err)
	}

	args = append(args, filter.Page.Limit(), filter.Page.Offset())
	query := fmt.Sprintf(`SELECT %s FROM clients %s ORDER BY name, id LIMIT $%d OFFSET $%d`,
		clientColumns, where, len(args)-1, len(args))
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("clients: list: %w", err)
	}
	defer rows.Close()

	out := []Client{}
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("clients: scan: %w", err)
		}
		out = append(out, *c)
	}
	return out, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (*Client, error) {
	c, err := scanClient(r.db.QueryRow(ctx,
		`SELECT `+clientColumns+` FROM clients WHERE id = $1 AND deleted_at IS NULL`, id))
	if db.IsNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("clients: get %d: %w", id, err)
	}
	return c, nil
}

func (r *repository) Create(ctx context.Context, c Client) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO clients (name, tax_id, address, email, phone, contact_name, contact_phone,
			credit_days, payment_method, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`,
		c.Name, c.TaxID, c.Address, c.Email, c.Phone, c.ContactName, c.ContactPhone,
		c.CreditDays, c.PaymentMethod, c.Notes,
	).Scan(&id)
	if db.IsUniqueViolation(err) {
		return 0, ErrDuplicateTaxID
	}
	if err != nil {
		return 0, fmt.Errorf("clients: create: %w", err)
	}
	return id, nil
}

func (r *repository) Update(ctx context.Context, c Client) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE clients SET name = $2, tax_id = $3, address = $4, email = $5, phone = $6,
			contact_name = $7, contact_phone = $8, credit_days = $9, payment_method = $10,
			notes = $11, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`,
		c.ID, c.Name, c.TaxID, c.Address, c.Email, c.Phone, c.ContactName, c.ContactPhone,
		c.CreditDays, c.PaymentMethod, c.Notes,
	)
	if db.IsUniqueViolation(err) {
		return ErrDuplicateTaxID
	}
	if err != nil {
		return fmt.Errorf("clients: update %d: %w", c.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) SoftDelete(ctx context.Context, id int64, at time.Time) error {
	tag, err := r.db.Exec(ctx, `UPDATE clients SET deleted_at = $2 WHERE id = $1 AND deleted_at IS NULL`, id, at)
	if err != nil {
		return fmt.Errorf("clients: delete %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
