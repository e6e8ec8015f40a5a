package repositories

import (
	"context"
	"log/slog"

	"gorm.io/gorm"

	"github.com/minjaeoh/quality-metrics-service/internal/core/domain"
	apperrors "github.com/minjaeoh/quality-metrics-service/internal/pkg/errors"
)

// QualityRepository implements the ingest.QualityStore interface using GORM
type QualityRepository struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewQualityRepository creates a new repository instance
func NewQualityRepository(db *gorm.DB, logger *slog.Logger) *QualityRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &QualityRepository{
		db:     db,
		logger: logger,
	}
}

// ReplaceForMonth deletes the month range and inserts the new batch in one
// transaction
func (r *QualityRepository) ReplaceForMonth(ctx context.Context, batch *domain.UploadBatch, records []domain.ProcessQualityRecord, monthStart, monthEnd string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("data_date >= ? AND data_date <= ?", monthStart, monthEnd).
			Delete(&domain.ProcessQualityRecord{}).
			Error; err != nil {
			return err
		}
		if err := tx.Create(batch).Error; err != nil {
			return err
		}
		if len(records) == 0 {
			return nil
		}
		return tx.CreateInBatches(records, 500).Error
	})

	if err != nil {
		r.logger.Error("failed to replace month",
			slog.String("month_start", monthStart),
			slog.Any("error", err))
		return apperrors.Persistence(err)
	}

	r.logger.Info("quality month replaced",
		slog.String("month_start", monthStart),
		slog.Int("record_count", len(records)))
	return nil
}

// Insert appends a new batch without touching existing records
func (r *QualityRepository) Insert(ctx context.Context, batch *domain.UploadBatch, records []domain.ProcessQualityRecord) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(batch).Error; err != nil {
			return err
		}
		if len(records) == 0 {
			return nil
		}
		return tx.CreateInBatches(records, 500).Error
	})

	if err != nil {
		r.logger.Error("failed to insert quality batch", slog.Any("error", err))
		return apperrors.Persistence(err)
	}

	r.logger.Info("quality batch inserted", slog.Int("record_count", len(records)))
	return nil
}

// List returns all process-quality records ordered by data date
func (r *QualityRepository) List(ctx context.Context) ([]domain.ProcessQualityRecord, error) {
	var records []domain.ProcessQualityRecord

	err := r.db.WithContext(ctx).
		Order("data_date ASC").
		Find(&records).
		Error

	if err != nil {
		r.logger.Error("failed to list quality records", slog.Any("error", err))
		return nil, apperrors.Persistence(err)
	}

	return records, nil
}
