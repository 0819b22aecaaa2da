package equipment

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ecoserv/ecoserv/internal/platform/db"
)

// Repository persists equipment.
type Repository interface {
	List(ctx context.Context, filter ListFilter) ([]Equipment, int, error)
	Get(ctx context.Context, id int64) (*Equipment, error)
	Create(ctx context.Context, e Equipment) (int64, error)
	Update(ctx context.Context, e Equipment) error
	SoftDelete(ctx context.Context, id int64, at time.Time) error
	CountByStatus(ctx context.Context) (map[Status]int, error)
}

type repository struct {
	db db.DBTX
}

// NewRepository returns a Postgres backed Repository.
func NewRepository(conn db.DBTX) Repository {
	return &repository{db: conn}
}

const equipmentColumns = `id, code, name, brand, model, serial_number, status, is_calibrated,
	calibration_date, components, daily_rate, notes, created_at, updated_at, deleted_at`

func scanEquipment(row pgx.Row) (*Equipment, error) {
	var (
		e          Equipment
		components []byte
	)
	err := row.Scan(
		&e.ID, &e.Code, &e.Name, &e.Brand, &e.Model, &e.SerialNumber, &e.Status, &e.IsCalibrated,
		&e.CalibrationDate, &components, &e.DailyRate, &e.Notes, &e.CreatedAt, &e.UpdatedAt, &e.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	e.Components = map[string]string{}
	if len(components) > 0 {
		if err := json.Unmarshal(components, &e.Components); err != nil {
			return nil, fmt.Errorf("decode components of %d: %w", e.ID, err)
		}
	}
	return &e, nil
}

func encodeComponents(c map[string]string) ([]byte, error) {
	if c == nil {
		c = map[string]string{}
	}
	return json.Marshal(c)
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]Equipment, int, error) {
	conditions := []string{"deleted_at IS NULL"}
	var args []any
	if filter.Status != nil {
		args = append(args, *filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		args = append(args, "%"+s+"%")
		conditions = append(conditions, fmt.Sprintf("(code ILIKE $%d OR name ILIKE $%d OR serial_number ILIKE $%d)", len(args), len(args), len(args)))
	}
	where := "WHERE " + strings.Join(conditions, " AND ")

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM equipment "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("equipment: count: %w", err)
	}

	args = append(args, filter.Page.Limit(), filter.Page.Offset())
	query := fmt.Sprintf(`SELECT %s FROM equipment %s ORDER BY code, id LIMIT $%d OFFSET $%d`,
		equipmentColumns, where, len(args)-1, len(args))
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("equipment: list: %w", err)
	}
	defer rows.Close()

	out := []Equipment{}
	for rows.Next() {
		e, err := scanEquipment(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("equipment: scan: %w", err)
		}
		out = append(out, *e)
	}
	return out, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (*Equipment, error) {
	e, err := scanEquipment(r.db.QueryRow(ctx,
		`SELECT `+equipmentColumns+` FROM equipment WHERE id = $1 AND deleted_at IS NULL`, id))
	if db.IsNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("equipment: get %d: %w", id, err)
	}
	return e, nil
}

func (r *repository) Create(ctx context.Context, e Equipment) (int64, error) {
	components, err := encodeComponents(e.Components)
	if err != nil {
		return 0, fmt.Errorf("equipment: encode components: %w", err)
	}
	var id int64
	err = r.db.QueryRow(ctx, `
		INSERT INTO equipment (code, name, brand, model, serial_number, status, is_calibrated,
			calibration_date, components, daily_rate, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`,
		e.Code, e.Name, e.Brand, e.Model, e.SerialNumber, e.Status, e.IsCalibrated,
		e.CalibrationDate, components, e.DailyRate, e.Notes,
	).Scan(&id)
	if db.IsUniqueViolation(err) {
		return 0, ErrDuplicateCode
	}
	if err != nil {
		return 0, fmt.Errorf("equipment: create: %w", err)
	}
	return id, nil
}

func (r *repository) Update(ctx context.Context, e Equipment) error {
	components, err := encodeComponents(e.Components)
	if err != nil {
		return fmt.Errorf("equipment: encode components: %w", err)
	}
	tag, err := r.db.Exec(ctx, `
		UPDATE equipment SET code = $2, name = $3, brand = $4, model = $5, serial_number = $6,
			status = $7, is_calibrated = $8, calibration_date = $9, components = $10,
			daily_rate = $11, notes = $12, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`,
		e.ID, e.Code, e.Name, e.Brand, e.Model, e.SerialNumber, e.Status, e.IsCalibrated,
		e.CalibrationDate, components, e.DailyRate, e.Notes,
	)
	if db.IsUniqueViolation(err) {
		return ErrDuplicateCode
	}
	if err != nil {
		return fmt.Errorf("equipment: update %d: %w", e.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) SoftDelete(ctx context.Context, id int64, at time.Time) error {
	tag, err := r.db.Exec(ctx, `UPDATE equipment SET deleted_at = $2 WHERE id = $1 AND deleted_at IS NULL`, id, at)
	if err != nil {
		return fmt.Errorf("equipment: delete %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) CountByStatus(ctx context.Context) (map[Status]int, error) {
	rows, err := r.db.Query(ctx, `SELECT status, COUNT(*) FROM equipment WHERE deleted_at IS NULL GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("equipment: count by status: %w", err)
	}
	defer rows.Close()
	out := map[Status]int{}
	for rows.Next() {
		var (
			s Status
			n int
		)
		if err := rows.Scan(&s, &n); err != nil {
			return nil, err
		}
		out[s] = n
	}
	return out, rows.Err()
}
