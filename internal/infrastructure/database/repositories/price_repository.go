package repositories

import (
	"context"
	"errors"
	"log/slog"

	"gorm.io/gorm"

	"github.com/minjaeoh/quality-metrics-service/internal/core/domain"
	apperrors "github.com/minjaeoh/quality-metrics-service/internal/pkg/errors"
)

// PriceRepository implements the ingest.PriceStore interface using GORM
type PriceRepository struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewPriceRepository creates a new repository instance
func NewPriceRepository(db *gorm.DB, logger *slog.Logger) *PriceRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &PriceRepository{
		db:     db,
		logger: logger,
	}
}

// Reconcile merges uploaded part prices against existing rows by part name:
// a matching row is updated in place, an unknown name becomes a new row.
// The upload batch is still recorded for audit history even though no
// period delete happens.
func (r *PriceRepository) Reconcile(ctx context.Context, batch *domain.UploadBatch, records []domain.PartPriceRecord) error {
	updated := 0
	inserted := 0

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(batch).Error; err != nil {
			return err
		}

		for _, record := range records {
			var existing domain.PartPriceRecord
			err := tx.Where("part_name = ?", record.PartName).First(&existing).Error
			switch {
			case err == nil:
				record.ID = existing.ID
				record.CreatedAt = existing.CreatedAt
				if err := tx.Save(&record).Error; err != nil {
					return err
				}
				updated++
			case errors.Is(err, gorm.ErrRecordNotFound):
				if err := tx.Create(&record).Error; err != nil {
					return err
				}
				inserted++
			default:
				return err
			}
		}
		return nil
	})

	if err != nil {
		r.logger.Error("failed to reconcile part prices", slog.Any("error", err))
		return apperrors.Persistence(err)
	}

	r.logger.Info("part prices reconciled",
		slog.Int("updated", updated),
		slog.Int("inserted", inserted))
	return nil
}

// List returns all part-price records ordered by part name
func (r *PriceRepository) List(ctx context.Context) ([]domain.PartPriceRecord, error) {
	var records []domain.PartPriceRecord

	err := r.db.WithContext(ctx).
		Order("part_name ASC").
		Find(&records).
		Error

	if err != nil {
		r.logger.Error("failed to list part prices", slog.Any("error", err))
		return nil, apperrors.Persistence(err)
	}

	return records, nil
}
