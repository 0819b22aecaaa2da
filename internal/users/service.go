package users

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/ecoserv/ecoserv/internal/shared"
)

// Service handles user business logic.
type Service struct {
	repo   RepositoryPort
	audit  shared.Auditor
	logger *slog.Logger
	now    func() time.Time
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, audit shared.Auditor, logger *slog.Logger) *Service {
	if audit == nil {
		audit = shared.NopAuditor{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, logger: logger, now: time.Now}
}

// ListUsers returns live users.
func (s *Service) ListUsers(ctx context.Context, filter ListFilter) ([]User, int, error) {
	return s.repo.ListUsers(ctx, filter)
}

// GetUser returns a live user.
func (s *Service) GetUser(ctx context.Context, id int64) (*User, error) {
	return s.repo.GetUser(ctx, id)
}

// RequireActive returns ErrNotFound or ErrInactive unless id can be assigned
// as gestor of a document.
func (s *Service) RequireActive(ctx context.Context, id int64) error {
	u, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return err
	}
	if !u.IsActive {
		return ErrInactive
	}
	return nil
}

// CreateUser registers a user. Role defaults to gestor and the user starts active.
func (s *Service) CreateUser(ctx context.Context, req CreateRequest) (*User, error) {
	u := User{
		Name:       req.Name,
		Email:      strings.ToLower(strings.TrimSpace(req.Email)),
		Role:       req.Role,
		Department: req.Department,
		Position:   req.Position,
		IsActive:   true,
	}
	if u.Role == "" {
		u.Role = RoleGestor
	}
	if req.IsActive != nil {
		u.IsActive = *req.IsActive
	}
	id, err := s.repo.CreateUser(ctx, u)
	if err != nil {
		return nil, err
	}
	s.record(ctx, shared.ActionCreate, id)
	return s.repo.GetUser(ctx, id)
}

// UpdateUser applies a partial update.
func (s *Service) UpdateUser(ctx context.Context, id int64, req UpdateRequest) (*User, error) {
	u, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		u.Name = *req.Name
	}
	if req.Email != nil {
		u.Email = strings.ToLower(strings.TrimSpace(*req.Email))
	}
	if req.Role != nil {
		u.Role = *req.Role
	}
	if req.Department != nil {
		u.Department = *req.Department
	}
	if req.Position != nil {
		u.Position = *req.Position
	}
	if req.IsActive != nil {
		u.IsActive = *req.IsActive
	}
	if err := s.repo.UpdateUser(ctx, *u); err != nil {
		return nil, err
	}
	s.record(ctx, shared.ActionUpdate, id)
	return s.repo.GetUser(ctx, id)
}

// DeleteUser soft-deletes the user.
func (s *Service) DeleteUser(ctx context.Context, id int64) error {
	if err := s.repo.SoftDeleteUser(ctx, id, s.now()); err != nil {
		return err
	}
	s.record(ctx, shared.ActionDelete, id)
	return nil
}

func (s *Service) record(ctx context.Context, action string, id int64) {
	if err := s.audit.Record(ctx, shared.NewAuditLog(ctx, action, "user", id, nil)); err != nil {
		s.logger.Warn("audit user", slog.String("action", action), slog.Int64("id", id), slog.Any("error", err))
	}
}
