package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ecoserv/ecoserv/internal/platform/db"
)

// Repository reads the grouped rows a Snapshot is made of. Equipment figures
// come from the equipment service.
type Repository interface {
	CountClients(ctx context.Context) (int, error)
	StatusRows(ctx context.Context) ([]StatusRow, error)
	MonthRows(ctx context.Context, since time.Time) ([]MonthRow, error)
}

type repository struct {
	db db.DBTX
}

func NewRepository(conn db.DBTX) Repository {
	return &repository{db: conn}
}

func (r *repository) CountClients(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM clients WHERE deleted_at IS NULL`).Scan(&n); err != nil {
		return 0, fmt.Errorf("dashboard: count clients: %w", err)
	}
	return n, nil
}

const statusRowsSQL = `
SELECT 'quotations', status, currency, COUNT(*), COALESCE(SUM(total), 0)
  FROM quotations WHERE deleted_at IS NULL GROUP BY status, currency
UNION ALL
SELECT 'service_orders', status, currency, COUNT(*), COALESCE(SUM(total), 0)
  FROM service_orders WHERE deleted_at IS NULL GROUP BY status, currency
UNION ALL
SELECT 'purchase_orders', status, currency, COUNT(*), COALESCE(SUM(total), 0)
  FROM purchase_orders WHERE deleted_at IS NULL GROUP BY status, currency`

func (r *repository) StatusRows(ctx context.Context) ([]StatusRow, error) {
	rows, err := r.db.Query(ctx, statusRowsSQL)
	if err != nil {
		return nil, fmt.Errorf("dashboard: status rows: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (StatusRow, error) {
		var s StatusRow
		err := row.Scan(&s.Document, &s.Status, &s.Currency, &s.Count, &s.Total)
		return s, err
	})
	if err != nil {
		return nil, fmt.Errorf("dashboard: scan status rows: %w", err)
	}
	return out, nil
}

const monthRowsSQL = `
SELECT 'quotations', date_trunc('month', issue_date)::date, currency, COUNT(*), COALESCE(SUM(total), 0)
  FROM quotations WHERE deleted_at IS NULL AND issue_date >= $1 GROUP BY 2, currency
UNION ALL
SELECT 'service_orders', date_trunc('month', issue_date)::date, currency, COUNT(*), COALESCE(SUM(total), 0)
  FROM service_orders WHERE deleted_at IS NULL AND issue_date >= $1 GROUP BY 2, currency
UNION ALL
SELECT 'purchase_orders', date_trunc('month', issue_date)::date, currency, COUNT(*), COALESCE(SUM(total), 0)
  FROM purchase_orders WHERE deleted_at IS NULL AND issue_date >= $1 GROUP BY 2, currency`

func (r *repository) MonthRows(ctx context.Context, since time.Time) ([]MonthRow, error) {
	rows, err := r.db.Query(ctx, monthRowsSQL, since)
	if err != nil {
		return nil, fmt.Errorf("dashboard: month rows: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (MonthRow, error) {
		var m MonthRow
		err := row.Scan(&m.Document, &m.Month, &m.Currency, &m.Count, &m.Total)
		return m, err
	})
	if err != nil {
		return nil, fmt.Errorf("dashboard: scan month rows: %w", err)
	}
	return out, nil
}
