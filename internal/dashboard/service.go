package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/ecoserv/ecoserv/internal/equipment"
	"github.com/ecoserv/ecoserv/internal/platform/cache"
)

// DefaultMonths is the length of the monthly series.
const DefaultMonths = 6

// EquipmentStats is implemented by equipment.Service.
type EquipmentStats interface {
	CountByStatus(ctx context.Context) (map[equipment.Status]int, error)
	CalibrationDue(ctx context.Context) ([]equipment.Equipment, error)
}

// Service serves cached dashboard summaries. Writes elsewhere call
// Invalidate, which bumps the cache version.
type Service struct {
	repo      Repository
	equipment EquipmentStats
	cache     *cache.Versioned
	logger    *slog.Logger
	now       func() time.Time
}

// NewService builds the service. A nil cache computes every summary directly.
func NewService(repo Repository, equip EquipmentStats, c *cache.Versioned, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, equipment: equip, cache: c, logger: logger, now: time.Now}
}

// Summary returns the aggregates for a months-long series.
func (s *Service) Summary(ctx context.Context, months int) (Summary, error) {
	if months <= 0 {
		months = DefaultMonths
	}
	loader := func(ctx context.Context) (any, error) { return s.build(ctx, months) }

	key, err := s.cache.BuildKey(ctx, "summary", strconv.Itoa(months))
	if err != nil {
		s.logger.Warn("dashboard cache unavailable", slog.Any("error", err))
		return s.build(ctx, months)
	}
	var out Summary
	if err := s.cache.FetchJSON(ctx, key, &out, loader); err != nil {
		return Summary{}, err
	}
	return out, nil
}

// Warm makes sure the summary for months is cached. Zero selects DefaultMonths.
func (s *Service) Warm(ctx context.Context, months int) error {
	_, err := s.Summary(ctx, months)
	return err
}

// Invalidate drops every cached summary.
func (s *Service) Invalidate(ctx context.Context) error {
	return s.cache.Bump(ctx)
}

func (s *Service) build(ctx context.Context, months int) (Summary, error) {
	now := s.now()
	snap := Snapshot{Equipment: map[string]int{}}

	var err error
	if snap.Clients, err = s.repo.CountClients(ctx); err != nil {
		return Summary{}, err
	}
	if snap.Statuses, err = s.repo.StatusRows(ctx); err != nil {
		return Summary{}, err
	}
	since := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -(months - 1), 0)
	if snap.Months, err = s.repo.MonthRows(ctx, since); err != nil {
		return Summary{}, err
	}
	if s.equipment != nil {
		counts, err := s.equipment.CountByStatus(ctx)
		if err != nil {
			return Summary{}, fmt.Errorf("dashboard: equipment: %w", err)
		}
		for status, n := range counts {
			snap.Equipment[string(status)] = n
		}
		due, err := s.equipment.CalibrationDue(ctx)
		if err != nil {
			return Summary{}, fmt.Errorf("dashboard: calibration: %w", err)
		}
		snap.CalibrationDue = len(due)
	}
	return Build(snap, now, months), nil
}
