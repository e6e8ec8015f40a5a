package domain

import (
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MetricKind distinguishes the three PPM metric variants
type MetricKind string

const (
	MetricCustomer MetricKind = "customer"
	MetricSupplier MetricKind = "supplier"
	MetricOutgoing MetricKind = "outgoing"
)

// ValidMetricKinds returns list of valid metric kinds
func ValidMetricKinds() []MetricKind {
	return []MetricKind{MetricCustomer, MetricSupplier, MetricOutgoing}
}

// IsValidMetricKind checks if a kind is valid
func IsValidMetricKind(kind MetricKind) bool {
	for _, k := range ValidMetricKinds() {
		if k == kind {
			return true
		}
	}
	return false
}

// PPMMetric is one monthly parts-per-million metric row. The natural key is
// (Kind, Dimension, Year, Month); saves for an existing key update in place.
// Actual is always recomputed from Defects/InspectionQty before writing,
// never trusted from caller input.
type PPMMetric struct {
	ID        uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Kind      MetricKind `gorm:"type:varchar(20);not null;uniqueIndex:idx_ppm_metrics_key" json:"kind"`
	Dimension string     `gorm:"type:varchar(255);not null;uniqueIndex:idx_ppm_metrics_key" json:"dimension"`
	Year      int        `gorm:"not null;uniqueIndex:idx_ppm_metrics_key" json:"year"`
	Month     int        `gorm:"not null;uniqueIndex:idx_ppm_metrics_key" json:"month"`

	Target        float64 `gorm:"default:0" json:"target"`
	InspectionQty float64 `gorm:"default:0" json:"inspection_qty"`
	Defects       float64 `gorm:"default:0" json:"defects"`
	// IncomingQty is populated for supplier metrics only
	IncomingQty float64 `gorm:"default:0" json:"incoming_qty"`
	Actual      float64 `gorm:"default:0" json:"actual"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for GORM
func (PPMMetric) TableName() string {
	return "ppm_metrics"
}

// BeforeCreate GORM hook
func (m *PPMMetric) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// ComputePPM returns round(defects/inspectionQty × 1,000,000), 0 when
// inspectionQty is 0
func ComputePPM(defects, inspectionQty float64) float64 {
	if inspectionQty == 0 {
		return 0
	}
	return math.Round(defects / inspectionQty * 1_000_000)
}
