package ingest

import (
	"context"
	"log/slog"
	"regexp"

	"github.com/google/uuid"

	"github.com/minjaeoh/quality-metrics-service/internal/core/domain"
	apperrors "github.com/minjaeoh/quality-metrics-service/internal/pkg/errors"
	"github.com/minjaeoh/quality-metrics-service/internal/infrastructure/parsers"
)

// Upload domain names accepted by the service. The three defect domains map
// onto domain.DefectDomains; the last two have their own record shapes.
const (
	DomainProcessQuality = "process-quality"
	DomainPartsPrice     = "parts-price"
)

// DefectStore persists defect records for one defect-type domain.
// ReplaceForMonth must delete the month range and insert the new batch as
// one atomic operation: a failed delete aborts the whole upload, and old and
// new records for the month never coexist after success.
type DefectStore interface {
	ReplaceForMonth(ctx context.Context, dom domain.DefectDomain, batch *domain.UploadBatch, records []domain.DefectRecord, monthStart, monthEnd string) error
	Insert(ctx context.Context, dom domain.DefectDomain, batch *domain.UploadBatch, records []domain.DefectRecord) error
	List(ctx context.Context, dom domain.DefectDomain) ([]domain.DefectRecord, error)
}

// QualityStore persists process-quality records
type QualityStore interface {
	ReplaceForMonth(ctx context.Context, batch *domain.UploadBatch, records []domain.ProcessQualityRecord, monthStart, monthEnd string) error
	Insert(ctx context.Context, batch *domain.UploadBatch, records []domain.ProcessQualityRecord) error
	List(ctx context.Context) ([]domain.ProcessQualityRecord, error)
}

// PriceStore reconciles part-price records by part name: matching names are
// updated in place, unknown names inserted, and the batch recorded for audit
type PriceStore interface {
	Reconcile(ctx context.Context, batch *domain.UploadBatch, records []domain.PartPriceRecord) error
	List(ctx context.Context) ([]domain.PartPriceRecord, error)
}

// SnapshotInvalidator drops cached aggregation snapshots for a domain after
// its dataset changes
type SnapshotInvalidator interface {
	InvalidateDomain(ctx context.Context, domainName string) error
}

// UploadRequest describes one spreadsheet ingestion call
type UploadRequest struct {
	Domain      string `json:"domain"`
	FilePath    string `json:"file_path"`
	Filename    string `json:"filename"`
	TargetMonth string `json:"target_month,omitempty"` // YYYY-MM, optional
}

// UploadResult summarizes a completed ingestion
type UploadResult struct {
	BatchID     uuid.UUID `json:"batch_id"`
	Domain      string    `json:"domain"`
	RecordCount int       `json:"record_count"`
	SkippedRows int       `json:"skipped_rows"`
}

// Service runs the ingestion pipeline: decode, normalize, period-scoped
// replace, cache invalidation
type Service struct {
	parsers *parsers.ParserFactory
	defects DefectStore
	quality QualityStore
	prices  PriceStore
	cache   SnapshotInvalidator
	logger  *slog.Logger
}

// NewService creates a new ingestion service. cache may be nil when no
// snapshot cache is configured.
func NewService(factory *parsers.ParserFactory, defects DefectStore, quality QualityStore, prices PriceStore, cache SnapshotInvalidator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		parsers: factory,
		defects: defects,
		quality: quality,
		prices:  prices,
		cache:   cache,
		logger:  logger,
	}
}

var monthPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// MonthBounds returns the inclusive lexical date-string bounds for a target
// month. The "-31" upper bound is lexically permissive: any valid date
// in the month sorts at or below it, including short months. Dates are only
// ever compared lexically, never numerically.
func MonthBounds(targetMonth string) (string, string) {
	return targetMonth + "-01", targetMonth + "-31"
}

// ProcessUpload ingests one spreadsheet for the requested domain
func (s *Service) ProcessUpload(ctx context.Context, req UploadRequest) (*UploadResult, error) {
	if req.TargetMonth != "" && !monthPattern.MatchString(req.TargetMonth) {
		return nil, apperrors.BadRequest("target month must be formatted YYYY-MM")
	}

	res, err := s.parsers.ParseFile(ctx, req.FilePath)
	if err != nil {
		return nil, apperrors.FileParseError(err)
	}

	s.logger.Info("sheet decoded",
		slog.String("domain", req.Domain),
		slog.String("filename", req.Filename),
		slog.Int("rows", len(res.Records)),
		slog.Int("skipped", res.SkippedRows))

	batchID := uuid.New()
	batch := &domain.UploadBatch{
		ID:       batchID,
		Filename: domain.ScopedFilename(req.Filename, req.TargetMonth),
		Domain:   req.Domain,
	}

	if dom, ok := domain.DefectDomainByName(req.Domain); ok {
		err = s.uploadDefects(ctx, dom, batch, res, req.TargetMonth)
	} else {
		switch req.Domain {
		case DomainProcessQuality:
			err = s.uploadQuality(ctx, batch, res, req.TargetMonth)
		case DomainPartsPrice:
			err = s.uploadPartPrices(ctx, batch, res)
		default:
			return nil, apperrors.UnknownDomain(req.Domain)
		}
	}
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if cerr := s.cache.InvalidateDomain(ctx, req.Domain); cerr != nil {
			// Stale snapshots expire on their own; the upload itself succeeded
			s.logger.Warn("failed to invalidate aggregation cache",
				slog.String("domain", req.Domain),
				slog.Any("error", cerr))
		}
	}

	s.logger.Info("upload completed",
		slog.String("domain", req.Domain),
		slog.String("batch_id", batchID.String()),
		slog.Int("record_count", batch.RecordCount),
		slog.String("target_month", req.TargetMonth))

	return &UploadResult{
		BatchID:     batchID,
		Domain:      req.Domain,
		RecordCount: batch.RecordCount,
		SkippedRows: res.SkippedRows,
	}, nil
}

func (s *Service) uploadDefects(ctx context.Context, dom domain.DefectDomain, batch *domain.UploadBatch, res *parsers.ParseResult, targetMonth string) error {
	records, err := NormalizeDefectRows(res, batch.ID, targetMonth)
	if err != nil {
		return err
	}
	batch.RecordCount = len(records)

	if targetMonth != "" {
		start, end := MonthBounds(targetMonth)
		return s.defects.ReplaceForMonth(ctx, dom, batch, records, start, end)
	}
	return s.defects.Insert(ctx, dom, batch, records)
}

func (s *Service) uploadQuality(ctx context.Context, batch *domain.UploadBatch, res *parsers.ParseResult, targetMonth string) error {
	records, err := NormalizeQualityRows(res, batch.ID, targetMonth)
	if err != nil {
		return err
	}
	batch.RecordCount = len(records)

	if targetMonth != "" {
		start, end := MonthBounds(targetMonth)
		return s.quality.ReplaceForMonth(ctx, batch, records, start, end)
	}
	return s.quality.Insert(ctx, batch, records)
}

// uploadPartPrices never uses period semantics: rows reconcile against
// existing records by part name
func (s *Service) uploadPartPrices(ctx context.Context, batch *domain.UploadBatch, res *parsers.ParseResult) error {
	records, err := NormalizePartPriceRows(res, batch.ID)
	if err != nil {
		return err
	}
	batch.RecordCount = len(records)

	return s.prices.Reconcile(ctx, batch, records)
}
