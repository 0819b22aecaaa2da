package serviceorders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ecoserv/ecoserv/internal/billing"
	"github.com/ecoserv/ecoserv/internal/lineitems"
	"github.com/ecoserv/ecoserv/internal/quotations"
	"github.com/ecoserv/ecoserv/internal/shared"
)

const auditEntity = "service_order"

// ClientLookup confirms a client id refers to a live client.
type ClientLookup interface {
	Exists(ctx context.Context, id int64) error
}

// GestorLookup confirms a user can be assigned as gestor.
type GestorLookup interface {
	RequireActive(ctx context.Context, id int64) error
}

// QuotationSource loads the quotation an order is created from.
type QuotationSource interface {
	Get(ctx context.Context, id int64) (*quotations.Quotation, error)
}

// Invalidator drops derived data after a write.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Lookups bundles the reads a service order needs from other packages. Nil
// lookups skip the corresponding check.
type Lookups struct {
	Clients    ClientLookup
	Gestors    GestorLookup
	Quotations QuotationSource
}

type Option func(*Service)

func WithAuditor(a shared.Auditor) Option {
	return func(s *Service) { s.audit = a }
}

func WithInvalidator(inv Invalidator) Option {
	return func(s *Service) { s.invalidator = inv }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// Service orchestrates service order use cases.
type Service struct {
	repo        Repository
	lookups     Lookups
	audit       shared.Auditor
	invalidator Invalidator
	logger      *slog.Logger
	now         func() time.Time
}

// NewService creates a new service order service.
func NewService(repo Repository, lookups Lookups, opts ...Option) *Service {
	s := &Service{
		repo:    repo,
		lookups: lookups,
		audit:   shared.NopAuditor{},
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Get(ctx context.Context, id int64) (*ServiceOrder, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]ServiceOrder, int, error) {
	return s.repo.List(ctx, filter)
}

// Create stores an order and its items in one transaction. An order created
// from an accepted quotation inherits its items and currency unless the
// request supplies them.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*ServiceOrder, error) {
	if err := s.checkRefs(ctx, &req.ClientID, req.GestorID); err != nil {
		return nil, err
	}
	if req.QuotationID != nil {
		if err := s.copyQuotation(ctx, &req); err != nil {
			return nil, err
		}
	}

	o := ServiceOrder{
		Number:      req.Number,
		ClientID:    req.ClientID,
		GestorID:    req.GestorID,
		QuotationID: req.QuotationID,
		Status:      req.Status,
		Currency:    req.Currency,
		IssueDate:   dateOf(s.now()),
		StartDate:   optionalDate(req.StartDate),
		EndDate:     optionalDate(req.EndDate),
		Location:    req.Location,
		Description: req.Description,
		Notes:       req.Notes,
	}
	if o.Status == "" {
		o.Status = StatusPending
	}
	if o.Currency == "" {
		o.Currency = billing.CurrencyPEN
	}
	if req.IssueDate != nil {
		o.IssueDate = dateOf(*req.IssueDate)
	}
	if err := checkSchedule(o); err != nil {
		return nil, err
	}
	o.setItems(lineitems.Build(req.Items))

	var id int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if o.Number == "" {
			number, err := tx.NextNumber(ctx, o.IssueDate)
			if err != nil {
				return err
			}
			o.Number = number
		}
		var err error
		if id, err = tx.Insert(ctx, o); err != nil {
			return err
		}
		return tx.ReplaceItems(ctx, id, o.Items)
	})
	if err != nil {
		return nil, fmt.Errorf("create service order: %w", err)
	}

	meta := map[string]any{"number": o.Number, "total": o.Total}
	if o.QuotationID != nil {
		meta["quotation_id"] = *o.QuotationID
	}
	s.afterWrite(ctx, shared.ActionCreate, id, meta)
	return s.repo.Get(ctx, id)
}

// Update applies a partial header update and, when req.Items is set, replaces
// every item and recomputes totals inside one transaction.
func (s *Service) Update(ctx context.Context, id int64, req UpdateRequest) (*ServiceOrder, error) {
	if err := s.checkRefs(ctx, req.ClientID, req.GestorID); err != nil {
		return nil, err
	}

	meta := map[string]any{"items_replaced": req.Items != nil}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		o, err := tx.Lock(ctx, id)
		if err != nil {
			return err
		}
		if req.Status != nil && *req.Status != o.Status {
			meta["status_from"], meta["status_to"] = o.Status, *req.Status
		}
		req.apply(o)
		if err := checkSchedule(*o); err != nil {
			return err
		}
		if req.Items != nil {
			items := lineitems.Build(*req.Items)
			if err := tx.ReplaceItems(ctx, id, items); err != nil {
				return err
			}
			o.setItems(items)
		}
		return tx.UpdateHeader(ctx, *o)
	})
	if err != nil {
		return nil, fmt.Errorf("update service order %d: %w", id, err)
	}

	s.afterWrite(ctx, shared.ActionUpdate, id, meta)
	return s.repo.Get(ctx, id)
}

// Delete soft-deletes the order. Deleting twice reports ErrNotFound.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.SoftDelete(ctx, id, s.now()); err != nil {
		return err
	}
	s.afterWrite(ctx, shared.ActionDelete, id, nil)
	return nil
}

func (s *Service) checkRefs(ctx context.Context, clientID, gestorID *int64) error {
	if clientID != nil && s.lookups.Clients != nil {
		err := s.lookups.Clients.Exists(ctx, *clientID)
		if errors.Is(err, shared.ErrNotFound) {
			return shared.NewFieldErrors("client_id", "client not found")
		}
		if err != nil {
			return err
		}
	}
	if gestorID != nil && s.lookups.Gestors != nil {
		err := s.lookups.Gestors.RequireActive(ctx, *gestorID)
		switch {
		case errors.Is(err, shared.ErrNotFound):
			return shared.NewFieldErrors("gestor_id", "user not found")
		case errors.Is(err, shared.ErrValidation):
			return shared.NewFieldErrors("gestor_id", "user is inactive")
		case err != nil:
			return err
		}
	}
	return nil
}

func (s *Service) copyQuotation(ctx context.Context, req *CreateRequest) error {
	if s.lookups.Quotations == nil {
		return nil
	}
	q, err := s.lookups.Quotations.Get(ctx, *req.QuotationID)
	if errors.Is(err, shared.ErrNotFound) {
		return shared.NewFieldErrors("quotation_id", "quotation not found")
	}
	if err != nil {
		return err
	}
	if q.ClientID != req.ClientID {
		return shared.NewFieldErrors("quotation_id", "quotation belongs to another client")
	}
	if q.Status != quotations.StatusAccepted {
		return fmt.Errorf("%w (quotation %s is %s)", ErrQuotationNotAccepted, q.Number, q.Status)
	}
	if req.Items == nil {
		req.Items = lineitems.Inputs(q.Items)
	}
	if req.Currency == "" {
		req.Currency = q.Currency
	}
	if req.Description == "" {
		req.Description = q.Description
	}
	return nil
}

func (s *Service) afterWrite(ctx context.Context, action string, id int64, meta map[string]any) {
	if err := s.audit.Record(ctx, shared.NewAuditLog(ctx, action, auditEntity, id, meta)); err != nil {
		s.logger.Warn("audit service order", slog.String("action", action), slog.Int64("id", id), slog.Any("error", err))
	}
	if s.invalidator == nil {
		return
	}
	if err := s.invalidator.Invalidate(ctx); err != nil {
		s.logger.Warn("invalidate dashboard cache", slog.Any("error", err))
	}
}
