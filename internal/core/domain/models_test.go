package domain

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	pgdriver "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// setupTestDB creates a PostgreSQL testcontainer for testing
func setupTestDB(t *testing.T) *gorm.DB {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Fatalf("failed to terminate postgres container: %v", err)
		}
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	db, err := gorm.Open(pgdriver.Open(connStr), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}

	err = db.AutoMigrate(
		&UploadBatch{},
		&ProcessQualityRecord{},
		&PartPriceRecord{},
		&PPMMetric{},
		&QuickResponseEntry{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	for _, dom := range DefectDomains() {
		if err := db.Table(dom.Table).AutoMigrate(&DefectRecord{}); err != nil {
			t.Fatalf("failed to migrate table %s: %v", dom.Table, err)
		}
	}

	return db
}

func TestUploadBatch_TableName(t *testing.T) {
	assert.Equal(t, "upload_batches", UploadBatch{}.TableName())
}

func TestUploadBatch_BeforeCreate(t *testing.T) {
	db := setupTestDB(t)

	batch := &UploadBatch{
		Filename: "report.xlsx",
		Domain:   "process",
	}

	assert.Equal(t, uuid.Nil, batch.ID)

	err := db.Create(batch).Error
	assert.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, batch.ID)
	assert.False(t, batch.UploadDate.IsZero())
	assert.NotZero(t, batch.CreatedAt)
}

func TestScopedFilename(t *testing.T) {
	assert.Equal(t, "[2025-03] report.xlsx", ScopedFilename("report.xlsx", "2025-03"))
	assert.Equal(t, "report.xlsx", ScopedFilename("report.xlsx", ""))
}

func TestDefectDetail_Total(t *testing.T) {
	detail := DefectDetail{"스크래치": 5, "찍힘": 3}
	assert.Equal(t, 8.0, detail.Total())

	assert.Equal(t, 0.0, DefectDetail{}.Total())
	assert.Equal(t, 0.0, DefectDetail(nil).Total())
}

func TestDefectDetail_Scan(t *testing.T) {
	var detail DefectDetail
	err := detail.Scan([]byte(`{"스크래치":5,"찍힘":3}`))
	require.NoError(t, err)
	assert.Equal(t, 5.0, detail["스크래치"])
	assert.Equal(t, 3.0, detail["찍힘"])

	err = detail.Scan(nil)
	require.NoError(t, err)
	assert.Empty(t, detail)

	err = detail.Scan(42)
	assert.Error(t, err)
}

func TestDefectRecord_PositionalSlots(t *testing.T) {
	var rec DefectRecord
	rec.SetPositionalSlots([]float64{5, 3, 7})

	slots := rec.PositionalSlots()
	assert.Equal(t, 5.0, slots[0])
	assert.Equal(t, 3.0, slots[1])
	assert.Equal(t, 7.0, slots[2])
	assert.Equal(t, 0.0, slots[3])
}

func TestDefectRecord_SetPositionalSlots_TruncatesBeyondTen(t *testing.T) {
	var rec DefectRecord
	rec.SetPositionalSlots([]float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12})

	slots := rec.PositionalSlots()
	assert.Equal(t, 10.0, slots[9])
	// 11 and 12 have no slot; they live only in the detail map

	// Re-setting with fewer values clears the tail
	rec.SetPositionalSlots([]float64{4})
	slots = rec.PositionalSlots()
	assert.Equal(t, 4.0, slots[0])
	assert.Equal(t, 0.0, slots[1])
	assert.Equal(t, 0.0, slots[9])
}

func TestDefectRecord_PersistsPerDomainTable(t *testing.T) {
	db := setupTestDB(t)

	rec := DefectRecord{
		UploadID:          uuid.New(),
		Customer:          "현대",
		Process:           "도장",
		DefectTypesDetail: DefectDetail{"스크래치": 5, "기포": 2},
		TotalDefects:      7,
		DataDate:          "2025-03-10",
	}
	rec.SetPositionalSlots([]float64{5, 2})

	err := db.Table(DomainPaintingDefect.Table).Create(&rec).Error
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, rec.ID)

	var loaded DefectRecord
	err = db.Table(DomainPaintingDefect.Table).Where("id = ?", rec.ID).First(&loaded).Error
	require.NoError(t, err)
	assert.Equal(t, 5.0, loaded.DefectTypesDetail["스크래치"])
	assert.Equal(t, 5.0, loaded.DefectType1)
	assert.Equal(t, 7.0, loaded.TotalDefects)

	// The other defect tables must stay empty
	var count int64
	err = db.Table(DomainProcessDefect.Table).Count(&count).Error
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestDefectDomainByName(t *testing.T) {
	dom, ok := DefectDomainByName("painting")
	assert.True(t, ok)
	assert.Equal(t, "painting_defects", dom.Table)

	_, ok = DefectDomainByName("unknown")
	assert.False(t, ok)
}

func TestComputeDefectRate(t *testing.T) {
	assert.Equal(t, 5.0, ComputeDefectRate(5, 100))
	assert.Equal(t, 0.0, ComputeDefectRate(5, 0))
	assert.Equal(t, 0.0, ComputeDefectRate(0, 100))
}

func TestComputePPM(t *testing.T) {
	tests := []struct {
		name          string
		defects       float64
		inspectionQty float64
		expected      float64
	}{
		{"typical", 5, 100, 50000},
		{"zero inspection", 5, 0, 0},
		{"zero defects", 0, 100, 0},
		{"rounds to nearest", 1, 3, 333333},
		{"rounds half up", 1, 400000, 3},
		{"one in a million", 1, 1_000_000, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ComputePPM(tt.defects, tt.inspectionQty))
		})
	}
}

func TestPPMMetric_NaturalKeyUniqueness(t *testing.T) {
	db := setupTestDB(t)

	m1 := &PPMMetric{
		Kind:      MetricCustomer,
		Dimension: "현대",
		Year:      2025,
		Month:     3,
		Actual:    120,
	}
	err := db.Create(m1).Error
	require.NoError(t, err)

	// Same (kind, dimension, year, month) must violate the unique index
	m2 := &PPMMetric{
		Kind:      MetricCustomer,
		Dimension: "현대",
		Year:      2025,
		Month:     3,
		Actual:    500,
	}
	err = db.Create(m2).Error
	assert.Error(t, err)

	// A different month is fine
	m3 := &PPMMetric{
		Kind:      MetricCustomer,
		Dimension: "현대",
		Year:      2025,
		Month:     4,
	}
	err = db.Create(m3).Error
	assert.NoError(t, err)
}

func TestIsValidMetricKind(t *testing.T) {
	assert.True(t, IsValidMetricKind(MetricCustomer))
	assert.True(t, IsValidMetricKind(MetricSupplier))
	assert.True(t, IsValidMetricKind(MetricOutgoing))
	assert.False(t, IsValidMetricKind("incoming"))
	assert.False(t, IsValidMetricKind(""))
}

func TestPartPrice_PartNameUniqueness(t *testing.T) {
	db := setupTestDB(t)

	p1 := &PartPriceRecord{UploadID: uuid.New(), PartName: "Bracket-A", UnitPrice: 100}
	err := db.Create(p1).Error
	require.NoError(t, err)

	p2 := &PartPriceRecord{UploadID: uuid.New(), PartName: "Bracket-A", UnitPrice: 150}
	err = db.Create(p2).Error
	assert.Error(t, err, "should fail due to UNIQUE constraint on part_name")
}

func TestQuickResponseEntry_Validate(t *testing.T) {
	entry := QuickResponseEntry{
		Title:        "Door trim misalignment",
		Status24Hour: QRStatusGood,
		Status3Day:   QRStatusRed,
		Status14Day:  QRStatusYellow,
		Status24Day:  QRStatusNotApplicable,
		Status25Day:  QRStatusNotApplicable,
		Status30Day:  QRStatusNotApplicable,
	}
	assert.True(t, entry.Validate())

	entry.Status3Day = "purple"
	assert.False(t, entry.Validate())
}

func TestQuickResponseEntry_DefaultStatuses(t *testing.T) {
	db := setupTestDB(t)

	entry := &QuickResponseEntry{Title: "Paint run on hood"}
	err := db.Create(entry).Error
	require.NoError(t, err)

	var loaded QuickResponseEntry
	err = db.First(&loaded, "id = ?", entry.ID).Error
	require.NoError(t, err)
	for _, s := range loaded.Statuses() {
		assert.Equal(t, QRStatusNotApplicable, s)
	}
}
