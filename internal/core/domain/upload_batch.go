package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UploadBatch represents one spreadsheet ingestion event. It is created once
// per upload and never updated afterward; child records reference it for
// audit/history display and are removed with it on delete.
type UploadBatch struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Filename    string    `gorm:"type:varchar(500);not null" json:"filename"`
	Domain      string    `gorm:"type:varchar(50);not null;index:idx_upload_batches_domain" json:"domain"`
	RecordCount int       `gorm:"default:0" json:"record_count"`
	UploadDate  time.Time `gorm:"not null" json:"upload_date"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName specifies the table name for GORM
func (UploadBatch) TableName() string {
	return "upload_batches"
}

// BeforeCreate GORM hook - called before creating a record
func (b *UploadBatch) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	if b.UploadDate.IsZero() {
		b.UploadDate = time.Now().UTC()
	}
	return nil
}

// ScopedFilename prefixes the original filename with the target month when
// an upload is period-scoped, e.g. "[2025-03] report.xlsx".
func ScopedFilename(filename, targetMonth string) string {
	if targetMonth == "" {
		return filename
	}
	return fmt.Sprintf("[%s] %s", targetMonth, filename)
}
