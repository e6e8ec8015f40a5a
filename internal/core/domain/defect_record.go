package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DefectDetail is the complete defect-type label→count breakdown for a
// record, stored as JSONB. It is the source of truth; the ten positional
// slots are a truncated view derived from it at normalization time.
type DefectDetail map[string]float64

// Value implements driver.Valuer for JSONB storage
func (d DefectDetail) Value() (driver.Value, error) {
	if d == nil {
		return "{}", nil
	}
	b, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner for JSONB retrieval
func (d *DefectDetail) Scan(value interface{}) error {
	if value == nil {
		*d = DefectDetail{}
		return nil
	}
	var b []byte
	switch v := value.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("unsupported type for DefectDetail: %T", value)
	}
	return json.Unmarshal(b, d)
}

// Total sums all counts in the detail map
func (d DefectDetail) Total() float64 {
	var total float64
	for _, count := range d {
		total += count
	}
	return total
}

// DefectRecord is one normalized spreadsheet row for a defect-type domain
// (process, painting or assembly). The same struct backs all three domains;
// repositories scope queries to the domain's table.
//
// DefectType1..10 hold the first ten positive counters found in the sheet's
// fixed 20-column range, in sheet column order. The mapping is positional,
// not a stable type→slot assignment; DefectTypesDetail carries the full
// labeled breakdown.
type DefectRecord struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	UploadID     uuid.UUID `gorm:"type:uuid;not null;index" json:"upload_id"`
	Customer     string    `gorm:"type:varchar(255)" json:"customer"`
	PartCode     string    `gorm:"type:varchar(255)" json:"part_code"`
	PartName     string    `gorm:"type:varchar(255)" json:"part_name"`
	Process      string    `gorm:"type:varchar(255)" json:"process"`
	VehicleModel string    `gorm:"type:varchar(255)" json:"vehicle_model"`

	DefectType1  float64 `gorm:"column:defect_type_1;default:0" json:"defect_type_1"`
	DefectType2  float64 `gorm:"column:defect_type_2;default:0" json:"defect_type_2"`
	DefectType3  float64 `gorm:"column:defect_type_3;default:0" json:"defect_type_3"`
	DefectType4  float64 `gorm:"column:defect_type_4;default:0" json:"defect_type_4"`
	DefectType5  float64 `gorm:"column:defect_type_5;default:0" json:"defect_type_5"`
	DefectType6  float64 `gorm:"column:defect_type_6;default:0" json:"defect_type_6"`
	DefectType7  float64 `gorm:"column:defect_type_7;default:0" json:"defect_type_7"`
	DefectType8  float64 `gorm:"column:defect_type_8;default:0" json:"defect_type_8"`
	DefectType9  float64 `gorm:"column:defect_type_9;default:0" json:"defect_type_9"`
	DefectType10 float64 `gorm:"column:defect_type_10;default:0" json:"defect_type_10"`

	DefectTypesDetail DefectDetail `gorm:"type:jsonb" json:"defect_types_detail"`
	TotalDefects      float64      `gorm:"default:0" json:"total_defects"`

	// DataDate is kept as a YYYY-MM-DD string; period scoping compares it
	// lexically.
	DataDate string `gorm:"type:varchar(10);index" json:"data_date"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// BeforeCreate GORM hook
func (r *DefectRecord) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// PositionalSlots returns the ten slot values in order
func (r *DefectRecord) PositionalSlots() [10]float64 {
	return [10]float64{
		r.DefectType1, r.DefectType2, r.DefectType3, r.DefectType4, r.DefectType5,
		r.DefectType6, r.DefectType7, r.DefectType8, r.DefectType9, r.DefectType10,
	}
}

// SetPositionalSlots fills the ten slots from the positive values in sheet
// column order; missing slots stay zero, values beyond the tenth survive
// only in DefectTypesDetail.
func (r *DefectRecord) SetPositionalSlots(values []float64) {
	slots := []*float64{
		&r.DefectType1, &r.DefectType2, &r.DefectType3, &r.DefectType4, &r.DefectType5,
		&r.DefectType6, &r.DefectType7, &r.DefectType8, &r.DefectType9, &r.DefectType10,
	}
	for i, slot := range slots {
		if i < len(values) {
			*slot = values[i]
		} else {
			*slot = 0
		}
	}
}

// DefectDomain identifies one defect-type upload domain and the table that
// stores its records.
type DefectDomain struct {
	Name  string
	Table string
}

var (
	DomainProcessDefect  = DefectDomain{Name: "process", Table: "process_defects"}
	DomainPaintingDefect = DefectDomain{Name: "painting", Table: "painting_defects"}
	DomainAssemblyDefect = DefectDomain{Name: "assembly", Table: "assembly_defects"}
)

// DefectDomains lists every defect-type domain
func DefectDomains() []DefectDomain {
	return []DefectDomain{DomainProcessDefect, DomainPaintingDefect, DomainAssemblyDefect}
}

// DefectDomainByName looks up a defect domain by its name
func DefectDomainByName(name string) (DefectDomain, bool) {
	for _, d := range DefectDomains() {
		if d.Name == name {
			return d, true
		}
	}
	return DefectDomain{}, false
}
