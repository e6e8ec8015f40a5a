package metrics

import (
	"context"
	"log/slog"

	"github.com/minjaeoh/quality-metrics-service/internal/core/domain"
	apperrors "github.com/minjaeoh/quality-metrics-service/internal/pkg/errors"
)

// MetricStore persists PPM metric rows. FindByKey returns nil when no row
// exists for the key; SaveAll writes the batch all-or-nothing.
type MetricStore interface {
	FindByKey(ctx context.Context, kind domain.MetricKind, dimension string, year, month int) (*domain.PPMMetric, error)
	SaveAll(ctx context.Context, metrics []domain.PPMMetric) error
	List(ctx context.Context, kind domain.MetricKind, year int) ([]domain.PPMMetric, error)
}

// MetricEntry is one caller-supplied metric value set. Actual is absent on
// purpose: it is always derived from Defects/InspectionQty at save time.
type MetricEntry struct {
	Kind          domain.MetricKind `json:"kind"`
	Dimension     string            `json:"dimension"`
	Year          int               `json:"year"`
	Month         int               `json:"month"`
	Target        float64           `json:"target"`
	InspectionQty float64           `json:"inspection_qty"`
	Defects       float64           `json:"defects"`
	IncomingQty   float64           `json:"incoming_qty"`
}

// Service reconciles metric entries against persisted rows by their natural
// key (kind, dimension, year, month)
type Service struct {
	store  MetricStore
	logger *slog.Logger
}

// NewService creates a new metric reconciler
func NewService(store MetricStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		store:  store,
		logger: logger,
	}
}

// Save reconciles and persists a batch of metric entries. Entries whose key
// matches an existing row carry its identity forward so the write updates in
// place instead of duplicating. The whole batch fails or succeeds together.
func (s *Service) Save(ctx context.Context, entries []MetricEntry) error {
	if len(entries) == 0 {
		return nil
	}

	metrics := make([]domain.PPMMetric, 0, len(entries))
	for _, entry := range entries {
		if !domain.IsValidMetricKind(entry.Kind) {
			return apperrors.BadRequest("unknown metric kind: " + string(entry.Kind))
		}
		if entry.Month < 1 || entry.Month > 12 {
			return apperrors.BadRequest("month must be between 1 and 12")
		}

		metric := domain.PPMMetric{
			Kind:          entry.Kind,
			Dimension:     entry.Dimension,
			Year:          entry.Year,
			Month:         entry.Month,
			Target:        entry.Target,
			InspectionQty: entry.InspectionQty,
			Defects:       entry.Defects,
			IncomingQty:   entry.IncomingQty,
			Actual:        domain.ComputePPM(entry.Defects, entry.InspectionQty),
		}

		existing, err := s.store.FindByKey(ctx, entry.Kind, entry.Dimension, entry.Year, entry.Month)
		if err != nil {
			return err
		}
		if existing != nil {
			metric.ID = existing.ID
			metric.CreatedAt = existing.CreatedAt
		}

		metrics = append(metrics, metric)
	}

	if err := s.store.SaveAll(ctx, metrics); err != nil {
		return err
	}

	s.logger.Info("ppm metrics saved", slog.Int("entry_count", len(metrics)))
	return nil
}

// SaveAnnualTargets writes the goal PPM for all twelve months of a year.
// Months that already carry real inspection data keep their InspectionQty,
// Defects, IncomingQty and derived Actual; only Target changes. Missing
// months get fresh target-only rows.
func (s *Service) SaveAnnualTargets(ctx context.Context, kind domain.MetricKind, dimension string, year int, target float64) error {
	if !domain.IsValidMetricKind(kind) {
		return apperrors.BadRequest("unknown metric kind: " + string(kind))
	}

	metrics := make([]domain.PPMMetric, 0, 12)
	for month := 1; month <= 12; month++ {
		metric := domain.PPMMetric{
			Kind:      kind,
			Dimension: dimension,
			Year:      year,
			Month:     month,
			Target:    target,
		}

		existing, err := s.store.FindByKey(ctx, kind, dimension, year, month)
		if err != nil {
			return err
		}
		if existing != nil {
			metric.ID = existing.ID
			metric.CreatedAt = existing.CreatedAt
			metric.InspectionQty = existing.InspectionQty
			metric.Defects = existing.Defects
			metric.IncomingQty = existing.IncomingQty
			metric.Actual = domain.ComputePPM(existing.Defects, existing.InspectionQty)
		}

		metrics = append(metrics, metric)
	}

	if err := s.store.SaveAll(ctx, metrics); err != nil {
		return err
	}

	s.logger.Info("annual ppm targets saved",
		slog.String("kind", string(kind)),
		slog.String("dimension", dimension),
		slog.Int("year", year))
	return nil
}

// List returns all metric rows for a kind and year
func (s *Service) List(ctx context.Context, kind domain.MetricKind, year int) ([]domain.PPMMetric, error) {
	return s.store.List(ctx, kind, year)
}
