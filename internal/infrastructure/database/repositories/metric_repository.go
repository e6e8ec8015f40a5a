package repositories

import (
	"context"
	"errors"
	"log/slog"

	"gorm.io/gorm"

	"github.com/minjaeoh/quality-metrics-service/internal/core/domain"
	apperrors "github.com/minjaeoh/quality-metrics-service/internal/pkg/errors"
)

// MetricRepository implements the metrics.MetricStore interface using GORM
type MetricRepository struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewMetricRepository creates a new repository instance
func NewMetricRepository(db *gorm.DB, logger *slog.Logger) *MetricRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &MetricRepository{
		db:     db,
		logger: logger,
	}
}

// FindByKey looks up the metric row for a natural key, nil when absent
func (r *MetricRepository) FindByKey(ctx context.Context, kind domain.MetricKind, dimension string, year, month int) (*domain.PPMMetric, error) {
	var metric domain.PPMMetric

	err := r.db.WithContext(ctx).
		Where("kind = ? AND dimension = ? AND year = ? AND month = ?", kind, dimension, year, month).
		First(&metric).
		Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("failed to find metric",
			slog.String("kind", string(kind)),
			slog.String("dimension", dimension),
			slog.Int("year", year),
			slog.Int("month", month),
			slog.Any("error", err))
		return nil, apperrors.Persistence(err)
	}

	return &metric, nil
}

// SaveAll writes a batch of metric rows in one transaction. Rows carrying an
// existing identity update in place; the rest insert.
func (r *MetricRepository) SaveAll(ctx context.Context, metrics []domain.PPMMetric) error {
	if len(metrics) == 0 {
		return nil
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range metrics {
			if err := tx.Save(&metrics[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})

	if err != nil {
		r.logger.Error("failed to save metrics",
			slog.Int("metric_count", len(metrics)),
			slog.Any("error", err))
		return apperrors.Persistence(err)
	}

	return nil
}

// List returns all metric rows for a kind and year ordered by dimension and
// month
func (r *MetricRepository) List(ctx context.Context, kind domain.MetricKind, year int) ([]domain.PPMMetric, error) {
	var metrics []domain.PPMMetric

	err := r.db.WithContext(ctx).
		Where("kind = ? AND year = ?", kind, year).
		Order("dimension ASC, month ASC").
		Find(&metrics).
		Error

	if err != nil {
		r.logger.Error("failed to list metrics",
			slog.String("kind", string(kind)),
			slog.Int("year", year),
			slog.Any("error", err))
		return nil, apperrors.Persistence(err)
	}

	return metrics, nil
}
