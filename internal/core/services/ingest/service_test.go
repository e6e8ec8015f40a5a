package ingest

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minjaeoh/quality-metrics-service/internal/core/domain"
	apperrors "github.com/minjaeoh/quality-metrics-service/internal/pkg/errors"
	"github.com/minjaeoh/quality-metrics-service/internal/infrastructure/parsers"
)

// mockDefectStore implements DefectStore for testing
type mockDefectStore struct {
	replaced    bool
	inserted    bool
	lastDomain  domain.DefectDomain
	lastBatch   *domain.UploadBatch
	lastRecords []domain.DefectRecord
	monthStart  string
	monthEnd    string
}

func (m *mockDefectStore) ReplaceForMonth(ctx context.Context, dom domain.DefectDomain, batch *domain.UploadBatch, records []domain.DefectRecord, monthStart, monthEnd string) error {
	m.replaced = true
	m.lastDomain = dom
	m.lastBatch = batch
	m.lastRecords = records
	m.monthStart = monthStart
	m.monthEnd = monthEnd
	return nil
}

func (m *mockDefectStore) Insert(ctx context.Context, dom domain.DefectDomain, batch *domain.UploadBatch, records []domain.DefectRecord) error {
	m.inserted = true
	m.lastDomain = dom
	m.lastBatch = batch
	m.lastRecords = records
	return nil
}

func (m *mockDefectStore) List(ctx context.Context, dom domain.DefectDomain) ([]domain.DefectRecord, error) {
	return m.lastRecords, nil
}

// mockQualityStore implements QualityStore for testing
type mockQualityStore struct {
	replaced    bool
	inserted    bool
	lastBatch   *domain.UploadBatch
	lastRecords []domain.ProcessQualityRecord
	monthStart  string
	monthEnd    string
}

func (m *mockQualityStore) ReplaceForMonth(ctx context.Context, batch *domain.UploadBatch, records []domain.ProcessQualityRecord, monthStart, monthEnd string) error {
	m.replaced = true
	m.lastBatch = batch
	m.lastRecords = records
	m.monthStart = monthStart
	m.monthEnd = monthEnd
	return nil
}

func (m *mockQualityStore) Insert(ctx context.Context, batch *domain.UploadBatch, records []domain.ProcessQualityRecord) error {
	m.inserted = true
	m.lastBatch = batch
	m.lastRecords = records
	return nil
}

func (m *mockQualityStore) List(ctx context.Context) ([]domain.ProcessQualityRecord, error) {
	return m.lastRecords, nil
}

// mockPriceStore implements PriceStore for testing
type mockPriceStore struct {
	reconciled  bool
	lastRecords []domain.PartPriceRecord
}

func (m *mockPriceStore) Reconcile(ctx context.Context, batch *domain.UploadBatch, records []domain.PartPriceRecord) error {
	m.reconciled = true
	m.lastRecords = records
	return nil
}

func (m *mockPriceStore) List(ctx context.Context) ([]domain.PartPriceRecord, error) {
	return m.lastRecords, nil
}

// mockInvalidator records domains whose snapshots were dropped
type mockInvalidator struct {
	invalidated []string
	err         error
}

func (m *mockInvalidator) InvalidateDomain(ctx context.Context, domainName string) error {
	m.invalidated = append(m.invalidated, domainName)
	return m.err
}

func writeTempCSV(t *testing.T, rows [][]string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "upload.csv")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := csv.NewWriter(f)
	require.NoError(t, w.WriteAll(rows))
	return path
}

type testEnv struct {
	service *Service
	defects *mockDefectStore
	quality *mockQualityStore
	prices  *mockPriceStore
	cache   *mockInvalidator
}

func newTestEnv() *testEnv {
	env := &testEnv{
		defects: &mockDefectStore{},
		quality: &mockQualityStore{},
		prices:  &mockPriceStore{},
		cache:   &mockInvalidator{},
	}
	env.service = NewService(parsers.NewParserFactory(nil), env.defects, env.quality, env.prices, env.cache, nil)
	return env
}

func qualityCSV(t *testing.T) string {
	return writeTempCSV(t, [][]string{
		{"고객사", "부품유형", "제품명", "생산수량", "불량수량", "불량금액", "일자"},
		{"현대", "내장재", "도어트림", "1000", "25", "50000", "2025-03-02"},
		{"기아", "외장재", "범퍼", "500", "5", "12000", "2025-03-03"},
	})
}

func TestProcessUpload_QualityWithTargetMonth(t *testing.T) {
	env := newTestEnv()

	result, err := env.service.ProcessUpload(context.Background(), UploadRequest{
		Domain:      DomainProcessQuality,
		FilePath:    qualityCSV(t),
		Filename:    "quality.csv",
		TargetMonth: "2025-03",
	})
	require.NoError(t, err)

	assert.True(t, env.quality.replaced)
	assert.False(t, env.quality.inserted)
	assert.Equal(t, "2025-03-01", env.quality.monthStart)
	assert.Equal(t, "2025-03-31", env.quality.monthEnd)
	assert.Equal(t, "[2025-03] quality.csv", env.quality.lastBatch.Filename)
	assert.Equal(t, 2, env.quality.lastBatch.RecordCount)
	assert.Len(t, env.quality.lastRecords, 2)

	assert.Equal(t, 2, result.RecordCount)
	assert.NotEqual(t, uuid.Nil, result.BatchID)
	assert.Equal(t, []string{DomainProcessQuality}, env.cache.invalidated)
}

func TestProcessUpload_QualityWithoutTargetMonth(t *testing.T) {
	env := newTestEnv()

	_, err := env.service.ProcessUpload(context.Background(), UploadRequest{
		Domain:   DomainProcessQuality,
		FilePath: qualityCSV(t),
		Filename: "quality.csv",
	})
	require.NoError(t, err)

	assert.True(t, env.quality.inserted)
	assert.False(t, env.quality.replaced)
	assert.Equal(t, "quality.csv", env.quality.lastBatch.Filename)
}

func TestProcessUpload_DefectDomain(t *testing.T) {
	env := newTestEnv()

	header := make([]string, DefectColumnStart)
	row := make([]string, DefectColumnStart)
	for i := 0; i < DefectColumnStart; i++ {
		header[i] = "c" + string(rune('a'+i))
		row[i] = "-"
	}
	header[0] = "고객사"
	row[0] = "현대"
	header = append(header, "스크래치", "찍힘")
	row = append(row, "5", "3")

	path := writeTempCSV(t, [][]string{header, row})

	result, err := env.service.ProcessUpload(context.Background(), UploadRequest{
		Domain:      "painting",
		FilePath:    path,
		Filename:    "painting.csv",
		TargetMonth: "2025-03",
	})
	require.NoError(t, err)

	assert.True(t, env.defects.replaced)
	assert.Equal(t, domain.DomainPaintingDefect, env.defects.lastDomain)
	require.Len(t, env.defects.lastRecords, 1)
	assert.Equal(t, 8.0, env.defects.lastRecords[0].TotalDefects)
	assert.Equal(t, 1, result.RecordCount)
	assert.Equal(t, []string{"painting"}, env.cache.invalidated)
}

func TestProcessUpload_PartsPriceNeverPeriodScoped(t *testing.T) {
	env := newTestEnv()

	path := writeTempCSV(t, [][]string{
		{"품명", "단가"},
		{"Bracket-A", "100"},
	})

	// Even with a target month the price path reconciles by name
	_, err := env.service.ProcessUpload(context.Background(), UploadRequest{
		Domain:      DomainPartsPrice,
		FilePath:    path,
		Filename:    "prices.csv",
		TargetMonth: "2025-03",
	})
	require.NoError(t, err)

	assert.True(t, env.prices.reconciled)
	require.Len(t, env.prices.lastRecords, 1)
	assert.Equal(t, "Bracket-A", env.prices.lastRecords[0].PartName)
	assert.Equal(t, 100.0, env.prices.lastRecords[0].UnitPrice)
}

func TestProcessUpload_UnknownDomain(t *testing.T) {
	env := newTestEnv()

	_, err := env.service.ProcessUpload(context.Background(), UploadRequest{
		Domain:   "warehouse",
		FilePath: qualityCSV(t),
		Filename: "quality.csv",
	})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeUnknownDomain))

	assert.False(t, env.quality.replaced)
	assert.False(t, env.quality.inserted)
	assert.Empty(t, env.cache.invalidated)
}

func TestProcessUpload_InvalidTargetMonth(t *testing.T) {
	env := newTestEnv()

	for _, month := range []string{"2025-13", "2025-3", "202503", "03-2025"} {
		_, err := env.service.ProcessUpload(context.Background(), UploadRequest{
			Domain:      DomainProcessQuality,
			FilePath:    qualityCSV(t),
			Filename:    "quality.csv",
			TargetMonth: month,
		})
		require.Error(t, err, "month %q must be rejected", month)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeBadRequest))
	}
}

func TestProcessUpload_EmptyFileNoPersistence(t *testing.T) {
	env := newTestEnv()

	path := writeTempCSV(t, [][]string{
		{"고객사", "생산수량", "불량수량"},
	})

	_, err := env.service.ProcessUpload(context.Background(), UploadRequest{
		Domain:      DomainProcessQuality,
		FilePath:    path,
		Filename:    "empty.csv",
		TargetMonth: "2025-03",
	})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeEmptyFile))

	assert.False(t, env.quality.replaced)
	assert.False(t, env.quality.inserted)
	assert.Empty(t, env.cache.invalidated)
}

func TestProcessUpload_CacheFailureNotFatal(t *testing.T) {
	env := newTestEnv()
	env.cache.err = assert.AnError

	_, err := env.service.ProcessUpload(context.Background(), UploadRequest{
		Domain:      DomainProcessQuality,
		FilePath:    qualityCSV(t),
		Filename:    "quality.csv",
		TargetMonth: "2025-03",
	})
	assert.NoError(t, err)
	assert.True(t, env.quality.replaced)
}

func TestMonthBounds(t *testing.T) {
	start, end := MonthBounds("2025-02")
	assert.Equal(t, "2025-02-01", start)
	// The upper bound is lexically permissive on purpose; February dates all
	// sort at or below it
	assert.Equal(t, "2025-02-31", end)
	assert.Less(t, "2025-02-28", end)
	assert.Greater(t, "2025-03-01", end)
}
