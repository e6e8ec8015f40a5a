package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// QRStatus is one checkpoint state on a quick-response entry
type QRStatus string

const (
	QRStatusGood          QRStatus = "good"
	QRStatusRed           QRStatus = "red"
	QRStatusYellow        QRStatus = "yellow"
	QRStatusNotApplicable QRStatus = "na"
)

// ValidQRStatuses returns list of valid quick-response statuses
func ValidQRStatuses() []QRStatus {
	return []QRStatus{QRStatusGood, QRStatusRed, QRStatusYellow, QRStatusNotApplicable}
}

// IsValidQRStatus checks if a status is valid
func IsValidQRStatus(status QRStatus) bool {
	for _, s := range ValidQRStatuses() {
		if s == status {
			return true
		}
	}
	return false
}

// QuickResponseEntry tracks a remediation issue through six independent
// follow-up checkpoints. Purely a workflow record; the aggregation engine
// does not touch it.
type QuickResponseEntry struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Title     string    `gorm:"type:varchar(500);not null" json:"title"`
	Customer  string    `gorm:"type:varchar(255)" json:"customer"`
	IssueDate string    `gorm:"type:varchar(10)" json:"issue_date"`

	Status24Hour QRStatus `gorm:"type:varchar(10);default:'na'" json:"status_24_hour"`
	Status3Day   QRStatus `gorm:"type:varchar(10);default:'na'" json:"status_3_day"`
	Status14Day  QRStatus `gorm:"type:varchar(10);default:'na'" json:"status_14_day"`
	Status24Day  QRStatus `gorm:"type:varchar(10);default:'na'" json:"status_24_day"`
	Status25Day  QRStatus `gorm:"type:varchar(10);default:'na'" json:"status_25_day"`
	Status30Day  QRStatus `gorm:"type:varchar(10);default:'na'" json:"status_30_day"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for GORM
func (QuickResponseEntry) TableName() string {
	return "quick_response_entries"
}

// BeforeCreate GORM hook
func (q *QuickResponseEntry) BeforeCreate(tx *gorm.DB) error {
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	return nil
}

// Statuses returns the six checkpoint statuses in order
func (q *QuickResponseEntry) Statuses() []QRStatus {
	return []QRStatus{
		q.Status24Hour, q.Status3Day, q.Status14Day,
		q.Status24Day, q.Status25Day, q.Status30Day,
	}
}

// Validate checks that every checkpoint carries a known status
func (q *QuickResponseEntry) Validate() bool {
	for _, s := range q.Statuses() {
		if !IsValidQRStatus(s) {
			return false
		}
	}
	return true
}
