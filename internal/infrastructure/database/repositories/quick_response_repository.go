package repositories

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/minjaeoh/quality-metrics-service/internal/core/domain"
	apperrors "github.com/minjaeoh/quality-metrics-service/internal/pkg/errors"
)

// QuickResponseRepository stores remediation-tracking entries
type QuickResponseRepository struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewQuickResponseRepository creates a new repository instance
func NewQuickResponseRepository(db *gorm.DB, logger *slog.Logger) *QuickResponseRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &QuickResponseRepository{
		db:     db,
		logger: logger,
	}
}

// Save creates or updates an entry after validating its checkpoint statuses
func (r *QuickResponseRepository) Save(ctx context.Context, entry *domain.QuickResponseEntry) error {
	if !entry.Validate() {
		return apperrors.BadRequest("quick response entry carries an unknown checkpoint status")
	}

	if err := r.db.WithContext(ctx).Save(entry).Error; err != nil {
		r.logger.Error("failed to save quick response entry", slog.Any("error", err))
		return apperrors.Persistence(err)
	}

	return nil
}

// Get returns one entry by id
func (r *QuickResponseRepository) Get(ctx context.Context, id uuid.UUID) (*domain.QuickResponseEntry, error) {
	var entry domain.QuickResponseEntry

	err := r.db.WithContext(ctx).Where("id = ?", id).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.RecordNotFound("quick response entry")
	}
	if err != nil {
		r.logger.Error("failed to get quick response entry",
			slog.String("id", id.String()),
			slog.Any("error", err))
		return nil, apperrors.Persistence(err)
	}

	return &entry, nil
}

// List returns all entries, newest issue first
func (r *QuickResponseRepository) List(ctx context.Context) ([]domain.QuickResponseEntry, error) {
	var entries []domain.QuickResponseEntry

	err := r.db.WithContext(ctx).Order("issue_date DESC").Find(&entries).Error
	if err != nil {
		r.logger.Error("failed to list quick response entries", slog.Any("error", err))
		return nil, apperrors.Persistence(err)
	}

	return entries, nil
}

// Delete removes one entry by id
func (r *QuickResponseRepository) Delete(ctx context.Context, id uuid.UUID) error {
	err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.QuickResponseEntry{}).Error
	if err != nil {
		r.logger.Error("failed to delete quick response entry",
			slog.String("id", id.String()),
			slog.Any("error", err))
		return apperrors.Persistence(err)
	}

	return nil
}
