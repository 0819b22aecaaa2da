package clients

import (
	"context"
	"log/slog"
	"time"

	"github.com/ecoserv/ecoserv/internal/shared"
)

const auditEntity = "client"

// Service implements client use cases.
type Service struct {
	repo   Repository
	audit  shared.Auditor
	logger *slog.Logger
	now    func() time.Time
}

// NewService wires the client service. A nil auditor disables the audit trail.
func NewService(repo Repository, audit shared.Auditor, logger *slog.Logger) *Service {
	if audit == nil {
		audit = shared.NopAuditor{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, logger: logger, now: time.Now}
}

// List returns live clients and the total count for the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Client, int, error) {
	return s.repo.List(ctx, filter)
}

// Get returns a live client.
func (s *Service) Get(ctx context.Context, id int64) (*Client, error) {
	return s.repo.Get(ctx, id)
}

// Exists reports whether a live client with id exists.
func (s *Service) Exists(ctx context.Context, id int64) error {
	_, err := s.repo.Get(ctx, id)
	return err
}

// Create stores a new client.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Client, error) {
	id, err := s.repo.Create(ctx, req.client())
	if err != nil {
		return nil, err
	}
	s.record(ctx, shared.ActionCreate, id, nil)
	return s.repo.Get(ctx, id)
}

// Update applies a partial update.
func (s *Service) Update(ctx context.Context, id int64, req UpdateRequest) (*Client, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	req.apply(c)
	if err := s.repo.Update(ctx, *c); err != nil {
		return nil, err
	}
	s.record(ctx, shared.ActionUpdate, id, nil)
	return s.repo.Get(ctx, id)
}

// Delete soft-deletes the client. Deleting twice reports ErrNotFound.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.SoftDelete(ctx, id, s.now()); err != nil {
		return err
	}
	s.record(ctx, shared.ActionDelete, id, nil)
	return nil
}

func (s *Service) record(ctx context.Context, action string, id int64, meta map[string]any) {
	if err := s.audit.Record(ctx, shared.NewAuditLog(ctx, action, auditEntity, id, meta)); err != nil {
		s.logger.Warn("audit client", slog.String("action", action), slog.Int64("id", id), slog.Any("error", err))
	}
}
