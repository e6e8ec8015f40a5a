package repositories

import (
	"context"
	"log/slog"

	"gorm.io/gorm"

	"github.com/minjaeoh/quality-metrics-service/internal/core/domain"
	apperrors "github.com/minjaeoh/quality-metrics-service/internal/pkg/errors"
)

// DefectRepository implements the ingest.DefectStore interface using GORM.
// One repository serves all three defect-type domains; every query is scoped
// to the domain's table.
type DefectRepository struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewDefectRepository creates a new repository instance
func NewDefectRepository(db *gorm.DB, logger *slog.Logger) *DefectRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &DefectRepository{
		db:     db,
		logger: logger,
	}
}

// ReplaceForMonth deletes every record whose data date falls inside the
// month bounds, then records the batch and inserts the new records in one
// transaction, so the delete either completes before any insert or the whole
// upload rolls back. Old and new records for the month never coexist after
// success.
func (r *DefectRepository) ReplaceForMonth(ctx context.Context, dom domain.DefectDomain, batch *domain.UploadBatch, records []domain.DefectRecord, monthStart, monthEnd string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Table(dom.Table).
			Where("data_date >= ? AND data_date <= ?", monthStart, monthEnd).
			Delete(&domain.DefectRecord{}).
			Error; err != nil {
			return err
		}
		return createBatchAndRecords(tx, dom.Table, batch, records)
	})

	if err != nil {
		r.logger.Error("failed to replace month",
			slog.String("domain", dom.Name),
			slog.String("month_start", monthStart),
			slog.Any("error", err))
		return apperrors.Persistence(err)
	}

	r.logger.Info("month replaced",
		slog.String("domain", dom.Name),
		slog.String("month_start", monthStart),
		slog.Int("record_count", len(records)))
	return nil
}

// Insert appends a new batch without touching existing records
func (r *DefectRepository) Insert(ctx context.Context, dom domain.DefectDomain, batch *domain.UploadBatch, records []domain.DefectRecord) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return createBatchAndRecords(tx, dom.Table, batch, records)
	})

	if err != nil {
		r.logger.Error("failed to insert batch",
			slog.String("domain", dom.Name),
			slog.Any("error", err))
		return apperrors.Persistence(err)
	}

	r.logger.Info("batch inserted",
		slog.String("domain", dom.Name),
		slog.Int("record_count", len(records)))
	return nil
}

// List returns all records for a domain ordered by data date
func (r *DefectRepository) List(ctx context.Context, dom domain.DefectDomain) ([]domain.DefectRecord, error) {
	var records []domain.DefectRecord

	err := r.db.WithContext(ctx).
		Table(dom.Table).
		Order("data_date ASC").
		Find(&records).
		Error

	if err != nil {
		r.logger.Error("failed to list defect records",
			slog.String("domain", dom.Name),
			slog.Any("error", err))
		return nil, apperrors.Persistence(err)
	}

	return records, nil
}

// DeleteBatch removes a batch and its child records
func (r *DefectRepository) DeleteBatch(ctx context.Context, dom domain.DefectDomain, batchID string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Table(dom.Table).
			Where("upload_id = ?", batchID).
			Delete(&domain.DefectRecord{}).
			Error; err != nil {
			return err
		}
		return tx.Where("id = ?", batchID).Delete(&domain.UploadBatch{}).Error
	})

	if err != nil {
		r.logger.Error("failed to delete batch",
			slog.String("domain", dom.Name),
			slog.String("batch_id", batchID),
			slog.Any("error", err))
		return apperrors.Persistence(err)
	}

	return nil
}

// createBatchAndRecords writes the batch row then bulk-inserts its records
// into the given table
func createBatchAndRecords(tx *gorm.DB, table string, batch *domain.UploadBatch, records []domain.DefectRecord) error {
	if err := tx.Create(batch).Error; err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}
	return tx.Table(table).CreateInBatches(records, 500).Error
}
