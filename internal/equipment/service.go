package equipment

import (
	"context"
	"log/slog"
	"time"

	"github.com/ecoserv/ecoserv/internal/shared"
)

const (
	auditEntity = "equipment"

	// CalibrationValidity is how long a calibration certificate is honoured.
	CalibrationValidity = 365 * 24 * time.Hour
)

// Service implements equipment use cases.
type Service struct {
	repo   Repository
	audit  shared.Auditor
	logger *slog.Logger
	now    func() time.Time
}

// NewService wires the equipment service. A nil auditor disables the audit trail.
func NewService(repo Repository, audit shared.Auditor, logger *slog.Logger) *Service {
	if audit == nil {
		audit = shared.NopAuditor{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, logger: logger, now: time.Now}
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]Equipment, int, error) {
	return s.repo.List(ctx, filter)
}

func (s *Service) Get(ctx context.Context, id int64) (*Equipment, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (*Equipment, error) {
	id, err := s.repo.Create(ctx, req.equipment())
	if err != nil {
		return nil, err
	}
	s.record(ctx, shared.ActionCreate, id, map[string]any{"code": req.Code})
	return s.repo.Get(ctx, id)
}

func (s *Service) Update(ctx context.Context, id int64, req UpdateRequest) (*Equipment, error) {
	e, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	before := e.Status
	req.apply(e)
	if err := s.repo.Update(ctx, *e); err != nil {
		return nil, err
	}
	meta := map[string]any{}
	if before != e.Status {
		meta["status_from"], meta["status_to"] = before, e.Status
	}
	s.record(ctx, shared.ActionUpdate, id, meta)
	return s.repo.Get(ctx, id)
}

// Delete soft-deletes the unit. Deleting twice reports ErrNotFound.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.SoftDelete(ctx, id, s.now()); err != nil {
		return err
	}
	s.record(ctx, shared.ActionDelete, id, nil)
	return nil
}

// CalibrationDue lists live units whose calibration is missing or older than
// CalibrationValidity.
func (s *Service) CalibrationDue(ctx context.Context) ([]Equipment, error) {
	now := s.now()
	var due []Equipment
	page := shared.PageRequest{Page: 1, PerPage: 200}
	for {
		batch, total, err := s.repo.List(ctx, ListFilter{Page: page})
		if err != nil {
			return nil, err
		}
		for _, e := range batch {
			if e.CalibrationDue(now, CalibrationValidity) {
				due = append(due, e)
			}
		}
		if page.Offset()+len(batch) >= total || len(batch) == 0 {
			break
		}
		page.Page++
	}
	if due == nil {
		due = []Equipment{}
	}
	return due, nil
}

// CountByStatus returns live unit counts per condition.
func (s *Service) CountByStatus(ctx context.Context) (map[Status]int, error) {
	return s.repo.CountByStatus(ctx)
}

func (s *Service) record(ctx context.Context, action string, id int64, meta map[string]any) {
	if err := s.audit.Record(ctx, shared.NewAuditLog(ctx, action, auditEntity, id, meta)); err != nil {
		s.logger.Warn("audit equipment", slog.String("action", action), slog.Int64("id", id), slog.Any("error", err))
	}
}
