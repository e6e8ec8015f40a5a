package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProcessQualityRecord is one normalized row of the plain process-quality
// domain (no defect-type breakdown). DefectRate is computed at ingestion
// time and persisted; downstream views do not recompute it.
type ProcessQualityRecord struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	UploadID     uuid.UUID `gorm:"type:uuid;not null;index" json:"upload_id"`
	Customer     string    `gorm:"type:varchar(255)" json:"customer"`
	PartType     string    `gorm:"type:varchar(255)" json:"part_type"`
	VehicleModel string    `gorm:"type:varchar(255)" json:"vehicle_model"`
	ProductName  string    `gorm:"type:varchar(255)" json:"product_name"`

	ProductionQty float64 `gorm:"default:0" json:"production_qty"`
	DefectQty     float64 `gorm:"default:0" json:"defect_qty"`
	DefectAmount  float64 `gorm:"default:0" json:"defect_amount"`
	DefectRate    float64 `gorm:"default:0" json:"defect_rate"`

	DataDate string `gorm:"type:varchar(10);index" json:"data_date"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for GORM
func (ProcessQualityRecord) TableName() string {
	return "process_quality_records"
}

// BeforeCreate GORM hook
func (r *ProcessQualityRecord) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// ComputeDefectRate returns defects/production×100, 0 when production is 0
func ComputeDefectRate(defectQty, productionQty float64) float64 {
	if productionQty == 0 {
		return 0
	}
	return defectQty / productionQty * 100
}
