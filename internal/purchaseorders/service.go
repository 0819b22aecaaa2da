package purchaseorders

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

const auditEntity = "purchase_order"

type ClientLookup interface {
	Exists(ctx context.Context, id int64) error
}

type GestorLookup interface {
	RequireActive(ctx context.Context, id int64) error
}

type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Config wires the collaborators of a Service. Repo is required.
type Config struct {
	Repo        Repository
	Clients     ClientLookup
	Gestors     GestorLookup
	Auditor     shared.Auditor
	Invalidator Invalidator
	Logger      *slog.Logger
}

// Service orchestrates purchase order use cases.
type Service struct {
	Config
	now func() time.Time
}

func NewService(cfg Config) *Service {
	if cfg.Auditor == nil {
		cfg.Auditor = shared.NopAuditor{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Service{Config: cfg, now: time.Now}
}

func (s *Service) Get(ctx context.Context, id int64) (*PurchaseOrder, error) {
	return s.Repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]PurchaseOrder, int, error) {
	return s.Repo.List(ctx, filter)
}

// Create stores an order and its items in one transaction.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*PurchaseOrder, error) {
	if err := s.checkRefs(ctx, &req.ClientID, req.GestorID); err != nil {
		return nil, err
	}

	p := PurchaseOrder{
		Number:       req.Number,
		ClientID:     req.ClientID,
		GestorID:     req.GestorID,
		Status:       ParseStatus(string(req.Status)),
		Currency:     req.Currency,
		IssueDate:    dateOf(s.now()),
		PaymentTerms: req.PaymentTerms,
		Notes:        req.Notes,
	}
	if p.Status == "" {
		p.Status = StatusDraft
	}
	if p.Currency == "" {
		p.Currency = billing.CurrencyPEN
	}
	if req.IssueDate != nil {
		p.IssueDate = dateOf(*req.IssueDate)
	}
	if req.DeliveryDate != nil {
		d := dateOf(*req.DeliveryDate)
		p.DeliveryDate = &d
	}
	p.setItems(lineitems.Build(req.Items))

	var id int64
	err := s.Repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if p.Number == "" {
			number, err := tx.NextNumber(ctx, p.IssueDate)
			if err != nil {
				return err
			}
			p.Number = number
		}
		var err error
		if id, err = tx.Insert(ctx, p); err != nil {
			return err
		}
		return tx.ReplaceItems(ctx, id, p.Items)
	})
	if err != nil {
		return nil, fmt.Errorf("create purchase order: %w", err)
	}

	s.afterWrite(ctx, shared.ActionCreate, id, map[string]any{"number": p.Number, "total": p.Total})
	return s.Repo.Get(ctx, id)
}

// Update applies a partial header update and, when req.Items is set, replaces
// every item and recomputes totals inside one transaction.
func (s *Service) Update(ctx context.Context, id int64, req UpdateRequest) (*PurchaseOrder, error) {
	if err := s.checkRefs(ctx, req.ClientID, req.GestorID); err != nil {
		return nil, err
	}
	if req.Status != nil {
		st := ParseStatus(string(*req.Status))
		req.Status = &st
	}

	err := s.Repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		p, err := tx.Lock(ctx, id)
		if err != nil {
			return err
		}
		req.apply(p)
		if req.Items != nil {
			items := lineitems.Build(*req.Items)
			if err := tx.ReplaceItems(ctx, id, items); err != nil {
				return err
			}
			p.setItems(items)
		}
		return tx.UpdateHeader(ctx, *p)
	})
	if err != nil {
		return nil, fmt.Errorf("update purchase order %d: %w", id, err)
	}

	s.afterWrite(ctx, shared.ActionUpdate, id, map[string]any{"items_replaced": req.Items != nil})
	return s.Repo.Get(ctx, id)
}

// Delete soft-deletes the order. Deleting twice reports ErrNotFound.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.Repo.SoftDelete(ctx, id, s.now()); err != nil {
		return err
	}
	s.afterWrite(ctx, shared.ActionDelete, id, nil)
	return nil
}

func (s *Service) checkRefs(ctx context.Context, clientID, gestorID *int64) error {
	if clientID != nil && s.Clients != nil {
		if err := s.Clients.Exists(ctx, *clientID); errors.Is(err, shared.ErrNotFound) {
			return shared.NewFieldErrors("client_id", "client not found")
		} else if err != nil {
			return err
		}
	}
	if gestorID != nil && s.Gestors != nil {
		if err := s.Gestors.RequireActive(ctx, *gestorID); errors.Is(err, shared.ErrNotFound) {
			return shared.NewFieldErrors("gestor_id", "user not found")
		} else if errors.Is(err, shared.ErrValidation) {
			return shared.NewFieldErrors("gestor_id", "user is inactive")
		} else if err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) afterWrite(ctx context.Context, action string, id int64, meta map[string]any) {
	if err := s.Auditor.Record(ctx, shared.NewAuditLog(ctx, action, auditEntity, id, meta)); err != nil {
		s.Logger.Warn("audit purchase order", slog.String("action", action), slog.Int64("id", id), slog.Any("error", err))
	}
	if s.Invalidator != nil {
		if err := s.Invalidator.Invalidate(ctx); err != nil {
			s.Logger.Warn("invalidate dashboard cache", slog.Any("error", err))
		}
	}
}
