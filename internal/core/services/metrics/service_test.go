package metrics

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minjaeoh/quality-metrics-service/internal/core/domain"
	apperrors "github.com/minjaeoh/quality-metrics-service/internal/pkg/errors"
)

// mockMetricStore implements MetricStore on an in-memory map keyed by the
// metric natural key
type mockMetricStore struct {
	rows map[string]domain.PPMMetric
}

func newMockMetricStore() *mockMetricStore {
	return &mockMetricStore{rows: make(map[string]domain.PPMMetric)}
}

func metricKey(kind domain.MetricKind, dimension string, year, month int) string {
	return fmt.Sprintf("%s|%s|%d-%02d", kind, dimension, year, month)
}

func (m *mockMetricStore) FindByKey(ctx context.Context, kind domain.MetricKind, dimension string, year, month int) (*domain.PPMMetric, error) {
	row, ok := m.rows[metricKey(kind, dimension, year, month)]
	if !ok {
		return nil, nil
	}
	return &row, nil
}

func (m *mockMetricStore) SaveAll(ctx context.Context, metrics []domain.PPMMetric) error {
	for _, metric := range metrics {
		if metric.ID == uuid.Nil {
			metric.ID = uuid.New()
		}
		m.rows[metricKey(metric.Kind, metric.Dimension, metric.Year, metric.Month)] = metric
	}
	return nil
}

func (m *mockMetricStore) List(ctx context.Context, kind domain.MetricKind, year int) ([]domain.PPMMetric, error) {
	out := make([]domain.PPMMetric, 0)
	for _, row := range m.rows {
		if row.Kind == kind && row.Year == year {
			out = append(out, row)
		}
	}
	return out, nil
}

func TestSave_ComputesActual(t *testing.T) {
	store := newMockMetricStore()
	service := NewService(store, nil)

	err := service.Save(context.Background(), []MetricEntry{
		{Kind: domain.MetricCustomer, Dimension: "현대", Year: 2025, Month: 3,
			Target: 100, InspectionQty: 100, Defects: 5},
	})
	require.NoError(t, err)

	saved, err := store.FindByKey(context.Background(), domain.MetricCustomer, "현대", 2025, 3)
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, 50000.0, saved.Actual)
}

func TestSave_ActualNeverTrustedFromCaller(t *testing.T) {
	store := newMockMetricStore()
	service := NewService(store, nil)

	// Zero inspection quantity: actual must be 0 regardless of defects
	err := service.Save(context.Background(), []MetricEntry{
		{Kind: domain.MetricOutgoing, Dimension: "라인1", Year: 2025, Month: 1, Defects: 99},
	})
	require.NoError(t, err)

	saved, _ := store.FindByKey(context.Background(), domain.MetricOutgoing, "라인1", 2025, 1)
	require.NotNil(t, saved)
	assert.Equal(t, 0.0, saved.Actual)
}

func TestSave_UpsertsByNaturalKey(t *testing.T) {
	store := newMockMetricStore()
	service := NewService(store, nil)
	ctx := context.Background()

	err := service.Save(ctx, []MetricEntry{
		{Kind: domain.MetricSupplier, Dimension: "부품사A", Year: 2025, Month: 3,
			InspectionQty: 1000, Defects: 10},
	})
	require.NoError(t, err)

	first, _ := store.FindByKey(ctx, domain.MetricSupplier, "부품사A", 2025, 3)
	require.NotNil(t, first)
	firstID := first.ID

	// A second save for the same key must update the same row
	err = service.Save(ctx, []MetricEntry{
		{Kind: domain.MetricSupplier, Dimension: "부품사A", Year: 2025, Month: 3,
			InspectionQty: 1000, Defects: 50},
	})
	require.NoError(t, err)

	assert.Len(t, store.rows, 1)
	second, _ := store.FindByKey(ctx, domain.MetricSupplier, "부품사A", 2025, 3)
	require.NotNil(t, second)
	assert.Equal(t, firstID, second.ID)
	assert.Equal(t, 50000.0, second.Actual)
}

func TestSave_Validation(t *testing.T) {
	service := NewService(newMockMetricStore(), nil)
	ctx := context.Background()

	err := service.Save(ctx, []MetricEntry{
		{Kind: "incoming", Dimension: "x", Year: 2025, Month: 3},
	})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeBadRequest))

	for _, month := range []int{0, 13, -1} {
		err = service.Save(ctx, []MetricEntry{
			{Kind: domain.MetricCustomer, Dimension: "x", Year: 2025, Month: month},
		})
		require.Error(t, err, "month %d must be rejected", month)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeBadRequest))
	}
}

func TestSave_EmptyBatchIsNoop(t *testing.T) {
	store := newMockMetricStore()
	service := NewService(store, nil)

	err := service.Save(context.Background(), nil)
	assert.NoError(t, err)
	assert.Empty(t, store.rows)
}

func TestSaveAnnualTargets_FillsAllTwelveMonths(t *testing.T) {
	store := newMockMetricStore()
	service := NewService(store, nil)
	ctx := context.Background()

	err := service.SaveAnnualTargets(ctx, domain.MetricCustomer, "현대", 2025, 120)
	require.NoError(t, err)

	assert.Len(t, store.rows, 12)
	for month := 1; month <= 12; month++ {
		row, _ := store.FindByKey(ctx, domain.MetricCustomer, "현대", 2025, month)
		require.NotNil(t, row, "month %d missing", month)
		assert.Equal(t, 120.0, row.Target)
		assert.Zero(t, row.Actual)
	}
}

func TestSaveAnnualTargets_PreservesExistingData(t *testing.T) {
	store := newMockMetricStore()
	service := NewService(store, nil)
	ctx := context.Background()

	// March already carries real inspection data
	err := service.Save(ctx, []MetricEntry{
		{Kind: domain.MetricCustomer, Dimension: "현대", Year: 2025, Month: 3,
			Target: 80, InspectionQty: 2000, Defects: 6},
	})
	require.NoError(t, err)

	err = service.SaveAnnualTargets(ctx, domain.MetricCustomer, "현대", 2025, 150)
	require.NoError(t, err)

	march, _ := store.FindByKey(ctx, domain.MetricCustomer, "현대", 2025, 3)
	require.NotNil(t, march)
	assert.Equal(t, 150.0, march.Target)
	assert.Equal(t, 2000.0, march.InspectionQty)
	assert.Equal(t, 6.0, march.Defects)
	assert.Equal(t, 3000.0, march.Actual)

	// Months without prior data get target-only rows
	june, _ := store.FindByKey(ctx, domain.MetricCustomer, "현대", 2025, 6)
	require.NotNil(t, june)
	assert.Equal(t, 150.0, june.Target)
	assert.Zero(t, june.InspectionQty)
}

func TestSaveAnnualTargets_RejectsUnknownKind(t *testing.T) {
	service := NewService(newMockMetricStore(), nil)

	err := service.SaveAnnualTargets(context.Background(), "incoming", "x", 2025, 100)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeBadRequest))
}
