package users

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ecoserv/ecoserv/internal/platform/db"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	ListUsers(ctx context.Context, filter ListFilter) ([]User, int, error)
	GetUser(ctx context.Context, id int64) (*User, error)
	CreateUser(ctx context.Context, u User) (int64, error)
	UpdateUser(ctx context.Context, u User) error
	SoftDeleteUser(ctx context.Context, id int64, at time.Time) error
}

// Repository implements RepositoryPort on Postgres.
type Repository struct {
	db db.DBTX
}

// NewRepository constructs a Repository.
func NewRepository(conn db.DBTX) *Repository {
	return &Repository{db: conn}
}

const userColumns = `id, name, email, role, department, position, is_active, created_at, updated_at, deleted_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.Department, &u.Position, &u.IsActive,
		&u.CreatedAt, &u.UpdatedAt, &u.DeletedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

// ListUsers returns live users ordered by name.
func (r *Repository) ListUsers(ctx context.Context, filter ListFilter) ([]User, int, error) {
	conditions := []string{"deleted_at IS NULL"}
	var args []any
	if filter.Role != "" {
		args = append(args, filter.Role)
		conditions = append(conditions, fmt.Sprintf("role = $%d", len(args)))
	}
	if filter.ActiveOnly {
		conditions = append(conditions, "is_active")
	}
	where := "WHERE " + strings.Join(conditions, " AND ")

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM users "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("users: count: %w", err)
	}
	args = append(args, filter.Page.Limit(), filter.Page.Offset())
	rows, err := r.db.Query(ctx, fmt.Sprintf(`SELECT %s FROM users %s ORDER BY name, id LIMIT $%d OFFSET $%d`,
		userColumns, where, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("users: list: %w", err)
	}
	defer rows.Close()

	out := []User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *u)
	}
	return out, total, rows.Err()
}

// GetUser fetches a live user.
func (r *Repository) GetUser(ctx context.Context, id int64) (*User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 AND deleted_at IS NULL`, id))
	if db.IsNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("users: get %d: %w", id, err)
	}
	return u, nil
}

// CreateUser inserts a user.
func (r *Repository) CreateUser(ctx context.Context, u User) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO users (name, email, role, department, position, is_active)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		u.Name, u.Email, u.Role, u.Department, u.Position, u.IsActive).Scan(&id)
	if db.IsUniqueViolation(err) {
		return 0, ErrDuplicateEmail
	}
	if err != nil {
		return 0, fmt.Errorf("users: create: %w", err)
	}
	return id, nil
}

// UpdateUser overwrites the mutable columns.
func (r *Repository) UpdateUser(ctx context.Context, u User) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE users SET name = $2, email = $3, role = $4, department = $5, position = $6,
			is_active = $7, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`,
		u.ID, u.Name, u.Email, u.Role, u.Department, u.Position, u.IsActive)
	if db.IsUniqueViolation(err) {
		return ErrDuplicateEmail
	}
	if err != nil {
		return fmt.Errorf("users: update %d: %w", u.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SoftDeleteUser marks the user deleted.
func (r *Repository) SoftDeleteUser(ctx context.Context, id int64, at time.Time) error {
	tag, err := r.db.Exec(ctx, `UPDATE users SET deleted_at = $2, is_active = FALSE WHERE id = $1 AND deleted_at IS NULL`, id, at)
	if err != nil {
		return fmt.Errorf("users: delete %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
