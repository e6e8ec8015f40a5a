package repositories

import (
	"context"
	"log/slog"

	"gorm.io/gorm"

	"github.com/minjaeoh/quality-metrics-service/internal/core/domain"
	apperrors "github.com/minjaeoh/quality-metrics-service/internal/pkg/errors"
)

// BatchRepository reads upload history for audit display
type BatchRepository struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewBatchRepository creates a new repository instance
func NewBatchRepository(db *gorm.DB, logger *slog.Logger) *BatchRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &BatchRepository{
		db:     db,
		logger: logger,
	}
}

// List returns upload batches for a domain, newest first
func (r *BatchRepository) List(ctx context.Context, domainName string) ([]domain.UploadBatch, error) {
	var batches []domain.UploadBatch

	query := r.db.WithContext(ctx).Order("upload_date DESC")
	if domainName != "" {
		query = query.Where("domain = ?", domainName)
	}

	if err := query.Find(&batches).Error; err != nil {
		r.logger.Error("failed to list upload batches",
			slog.String("domain", domainName),
			slog.Any("error", err))
		return nil, apperrors.Persistence(err)
	}

	return batches, nil
}
