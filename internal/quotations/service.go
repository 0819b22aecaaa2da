package quotations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ecoserv/ecoserv/internal/billing"
	"github.com/ecoserv/ecoserv/internal/lineitems"
	"github.com/ecoserv/ecoserv/internal/shared"
)

const auditEntity = "quotation"

// ClientLookup confirms a client id refers to a live client.
type ClientLookup interface {
	Exists(ctx context.Context, id int64) error
}

// Invalidator drops derived data (dashboard aggregates) after a write.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Option configures a Service.
type Option func(*Service)

// WithAuditor records writes in the audit trail.
func WithAuditor(a shared.Auditor) Option {
	return func(s *Service) { s.audit = a }
}

// WithInvalidator is notified after every successful write.
func WithInvalidator(inv Invalidator) Option {
	return func(s *Service) { s.invalidator = inv }
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// Service orchestrates quotation use cases.
type Service struct {
	repo        Repository
	clients     ClientLookup
	audit       shared.Auditor
	invalidator Invalidator
	logger      *slog.Logger
	now         func() time.Time
}

// NewService creates a new quotation service.
func NewService(repo Repository, clients ClientLookup, opts ...Option) *Service {
	s := &Service{
		repo:    repo,
		clients: clients,
		audit:   shared.NopAuditor{},
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns a live quotation with its items.
func (s *Service) Get(ctx context.Context, id int64) (*Quotation, error) {
	return s.repo.Get(ctx, id)
}

// List returns live quotations, newest first.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Quotation, int, error) {
	return s.repo.List(ctx, filter)
}

// Create stores a quotation and its items in one transaction. Totals are
// computed from the items.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Quotation, error) {
	if err := s.requireClient(ctx, req.ClientID); err != nil {
		return nil, err
	}

	q := Quotation{
		Number:       req.Number,
		ClientID:     req.ClientID,
		Status:       req.Status,
		Currency:     req.Currency,
		ValidityDays: req.ValidityDays,
		Description:  req.Description,
		Notes:        req.Notes,
	}
	if q.Status == "" {
		q.Status = StatusDraft
	}
	if q.Currency == "" {
		q.Currency = billing.CurrencyPEN
	}
	if q.ValidityDays == 0 {
		q.ValidityDays = DefaultValidityDays
	}
	q.IssueDate = dateOf(s.now())
	if req.IssueDate != nil {
		q.IssueDate = dateOf(*req.IssueDate)
	}
	q.setItems(lineitems.Build(req.Items))

	var id int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if q.Number == "" {
			number, err := tx.NextNumber(ctx, q.IssueDate)
			if err != nil {
				return err
			}
			q.Number = number
		}
		var err error
		id, err = tx.Insert(ctx, q)
		if err != nil {
			return err
		}
		return tx.ReplaceItems(ctx, id, q.Items)
	})
	if err != nil {
		return nil, fmt.Errorf("create quotation: %w", err)
	}

	s.afterWrite(ctx, shared.ActionCreate, id, map[string]any{"number": q.Number, "total": q.Total})
	return s.repo.Get(ctx, id)
}

// Update applies a partial header update and, when req.Items is set, replaces
// every item and recomputes totals. Header and items commit together or not
// at all. The refreshed quotation is returned.
func (s *Service) Update(ctx context.Context, id int64, req UpdateRequest) (*Quotation, error) {
	if req.ClientID != nil {
		if err := s.requireClient(ctx, *req.ClientID); err != nil {
			return nil, err
		}
	}

	var meta map[string]any
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		q, err := tx.Lock(ctx, id)
		if err != nil {
			return err
		}
		before := q.Status
		req.apply(q)
		if req.Items != nil {
			items := lineitems.Build(*req.Items)
			if err := tx.ReplaceItems(ctx, id, items); err != nil {
				return err
			}
			q.setItems(items)
		}
		if err := tx.UpdateHeader(ctx, *q); err != nil {
			return err
		}
		meta = map[string]any{"items_replaced": req.Items != nil}
		if before != q.Status {
			meta["status_from"], meta["status_to"] = before, q.Status
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update quotation %d: %w", id, err)
	}

	s.afterWrite(ctx, shared.ActionUpdate, id, meta)
	return s.repo.Get(ctx, id)
}

// Respond records the client's answer. Only SENT quotations can be answered.
func (s *Service) Respond(ctx context.Context, id int64, status Status) (*Quotation, error) {
	if status != StatusAccepted && status != StatusRejected {
		return nil, shared.NewFieldErrors("status", "must be one of: ACCEPTED REJECTED")
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		q, err := tx.Lock(ctx, id)
		if err != nil {
			return err
		}
		if q.Status != StatusSent {
			return fmt.Errorf("%w (current status %s)", ErrNotSent, q.Status)
		}
		q.Status = status
		return tx.UpdateHeader(ctx, *q)
	})
	if err != nil {
		return nil, fmt.Errorf("respond to quotation %d: %w", id, err)
	}

	s.afterWrite(ctx, shared.ActionStatus, id, map[string]any{"status_from": StatusSent, "status_to": status})
	return s.repo.Get(ctx, id)
}

// Delete soft-deletes the quotation. Deleting twice reports ErrNotFound.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.SoftDelete(ctx, id, s.now()); err != nil {
		return err
	}
	s.afterWrite(ctx, shared.ActionDelete, id, nil)
	return nil
}

// ExpireOverdue marks SENT quotations past their validity as EXPIRED and
// returns how many changed.
func (s *Service) ExpireOverdue(ctx context.Context) (int, error) {
	ids, err := s.repo.ExpireOverdue(ctx, s.now())
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		s.record(ctx, shared.ActionStatus, id, map[string]any{"status_from": StatusSent, "status_to": StatusExpired})
	}
	if len(ids) > 0 {
		s.invalidate(ctx)
	}
	return len(ids), nil
}

func (s *Service) requireClient(ctx context.Context, clientID int64) error {
	if s.clients == nil {
		return nil
	}
	err := s.clients.Exists(ctx, clientID)
	if errors.Is(err, shared.ErrNotFound) {
		return shared.NewFieldErrors("client_id", "client not found")
	}
	return err
}

func (s *Service) afterWrite(ctx context.Context, action string, id int64, meta map[string]any) {
	s.record(ctx, action, id, meta)
	s.invalidate(ctx)
}

func (s *Service) record(ctx context.Context, action string, id int64, meta map[string]any) {
	if err := s.audit.Record(ctx, shared.NewAuditLog(ctx, action, auditEntity, id, meta)); err != nil {
		s.logger.Warn("audit quotation", slog.String("action", action), slog.Int64("id", id), slog.Any("error", err))
	}
}

func (s *Service) invalidate(ctx context.Context) {
	if s.invalidator == nil {
		return
	}
	if err := s.invalidator.Invalidate(ctx); err != nil {
		s.logger.Warn("invalidate dashboard cache", slog.Any("error", err))
	}
}
