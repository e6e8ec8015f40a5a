package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PartPriceRecord stores the unit price for a part. Uploads reconcile by
// PartName instead of replacing a period: a row with a matching name is
// updated in place, unknown names are inserted.
type PartPriceRecord struct {
	ID       uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	UploadID uuid.UUID `gorm:"type:uuid;not null;index" json:"upload_id"`
	PartName string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_part_prices_name" json:"part_name"`
	PartCode string    `gorm:"type:varchar(255)" json:"part_code"`
	Customer string    `gorm:"type:varchar(255)" json:"customer"`

	UnitPrice float64 `gorm:"default:0" json:"unit_price"`
	Currency  string  `gorm:"type:varchar(10);default:'KRW'" json:"currency"`

	DataDate string `gorm:"type:varchar(10)" json:"data_date"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for GORM
func (PartPriceRecord) TableName() string {
	return "part_prices"
}

// BeforeCreate GORM hook
func (r *PartPriceRecord) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
