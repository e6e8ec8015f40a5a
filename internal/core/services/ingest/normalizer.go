package ingest

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/minjaeoh/quality-metrics-service/internal/core/domain"
	apperrors "github.com/minjaeoh/quality-metrics-service/internal/pkg/errors"
	"github.com/minjaeoh/quality-metrics-service/internal/infrastructure/parsers"
)

// FieldAliases maps a logical field to the header names it may appear under,
// preferred name first. Sheets from different departments and periods label
// the same column differently; the resolver tries the list in order.
type FieldAliases map[string][]string

// Logical field names shared across domains
const (
	FieldCustomer     = "customer"
	FieldPartCode     = "partCode"
	FieldPartName     = "partName"
	FieldProcess      = "process"
	FieldVehicleModel = "vehicleModel"
	FieldPartType     = "partType"
	FieldProductName  = "productName"
	FieldProduction   = "productionQty"
	FieldDefectQty    = "defectQty"
	FieldDefectAmount = "defectAmount"
	FieldUnitPrice    = "unitPrice"
	FieldCurrency     = "currency"
	FieldDataDate     = "dataDate"
)

var defectAliases = FieldAliases{
	FieldCustomer:     {"고객사", "고객", "거래처", "Customer"},
	FieldPartCode:     {"품번", "부품번호", "Part No"},
	FieldPartName:     {"품명", "부품명", "Part Name"},
	FieldProcess:      {"공정", "공정명", "Process"},
	FieldVehicleModel: {"차종", "차량모델", "Vehicle"},
	FieldDataDate:     {"일자", "날짜", "발생일", "Date"},
}

var qualityAliases = FieldAliases{
	FieldCustomer:     {"고객사", "고객", "거래처", "Customer"},
	FieldPartType:     {"부품유형", "구분", "Part Type"},
	FieldVehicleModel: {"차종", "차량모델", "Vehicle"},
	FieldProductName:  {"제품명", "품명", "Product"},
	FieldProduction:   {"생산수량", "생산량", "Production Qty"},
	FieldDefectQty:    {"불량수량", "불량량", "Defect Qty"},
	FieldDefectAmount: {"불량금액", "불량비용", "Defect Amount"},
	FieldDataDate:     {"일자", "날짜", "생산일자", "Date"},
}

var partPriceAliases = FieldAliases{
	FieldPartName:  {"품명", "부품명", "Part Name"},
	FieldPartCode:  {"품번", "부품번호", "Part No"},
	FieldCustomer:  {"고객사", "고객", "거래처", "Customer"},
	FieldUnitPrice: {"단가", "단가(원)", "Unit Price"},
	FieldCurrency:  {"통화", "Currency"},
	FieldDataDate:  {"일자", "적용일", "Date"},
}

func (a FieldAliases) resolveString(row parsers.Record, headers []string, field string) string {
	return ResolveString(row, headers, a[field]...)
}

func (a FieldAliases) resolveNumber(row parsers.Record, headers []string, field string) float64 {
	return ResolveNumber(row, headers, a[field]...)
}

var dateLayouts = []string{"2006-01-02", "2006/01/02", "2006.01.02", "2006-01-02 15:04:05", "01-02-06"}

// normalizeDate converts a sheet date cell to YYYY-MM-DD, empty string when
// the cell is empty or unparseable
func normalizeDate(raw string) string {
	if raw == "" {
		return ""
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return ""
}

// resolveDataDate applies the three-tier date fallback: sheet value, then
// the 15th of the requested target month, then the ingestion date.
func resolveDataDate(row parsers.Record, headers []string, aliases FieldAliases, targetMonth string) string {
	if d := normalizeDate(aliases.resolveString(row, headers, FieldDataDate)); d != "" {
		return d
	}
	if targetMonth != "" {
		return fmt.Sprintf("%s-15", targetMonth)
	}
	return time.Now().Format("2006-01-02")
}

// NormalizeDefectRows turns a decoded sheet into defect records for one
// defect-type domain. Fails fast with an empty-file error when the sheet has
// no data rows; individual malformed fields degrade to defaults instead of
// rejecting the row.
func NormalizeDefectRows(res *parsers.ParseResult, uploadID uuid.UUID, targetMonth string) ([]domain.DefectRecord, error) {
	if len(res.Records) == 0 {
		return nil, apperrors.EmptyFile("defect upload")
	}

	records := make([]domain.DefectRecord, 0, len(res.Records))
	for i, row := range res.Records {
		cols := ExtractDefectColumns(res.Columns, res.Raw[i])

		record := domain.DefectRecord{
			UploadID:          uploadID,
			Customer:          defectAliases.resolveString(row, res.Columns, FieldCustomer),
			PartCode:          defectAliases.resolveString(row, res.Columns, FieldPartCode),
			PartName:          defectAliases.resolveString(row, res.Columns, FieldPartName),
			Process:           defectAliases.resolveString(row, res.Columns, FieldProcess),
			VehicleModel:      defectAliases.resolveString(row, res.Columns, FieldVehicleModel),
			DefectTypesDetail: cols.Detail,
			TotalDefects:      cols.Total,
			DataDate:          resolveDataDate(row, res.Columns, defectAliases, targetMonth),
		}
		record.SetPositionalSlots(cols.Values)

		records = append(records, record)
	}

	return records, nil
}

// NormalizeQualityRows turns a decoded sheet into process-quality records.
// DefectRate is computed here and persisted; views never recompute it.
func NormalizeQualityRows(res *parsers.ParseResult, uploadID uuid.UUID, targetMonth string) ([]domain.ProcessQualityRecord, error) {
	if len(res.Records) == 0 {
		return nil, apperrors.EmptyFile("process-quality upload")
	}

	records := make([]domain.ProcessQualityRecord, 0, len(res.Records))
	for _, row := range res.Records {
		production := qualityAliases.resolveNumber(row, res.Columns, FieldProduction)
		defects := qualityAliases.resolveNumber(row, res.Columns, FieldDefectQty)

		records = append(records, domain.ProcessQualityRecord{
			UploadID:      uploadID,
			Customer:      qualityAliases.resolveString(row, res.Columns, FieldCustomer),
			PartType:      qualityAliases.resolveString(row, res.Columns, FieldPartType),
			VehicleModel:  qualityAliases.resolveString(row, res.Columns, FieldVehicleModel),
			ProductName:   qualityAliases.resolveString(row, res.Columns, FieldProductName),
			ProductionQty: production,
			DefectQty:     defects,
			DefectAmount:  qualityAliases.resolveNumber(row, res.Columns, FieldDefectAmount),
			DefectRate:    domain.ComputeDefectRate(defects, production),
			DataDate:      resolveDataDate(row, res.Columns, qualityAliases, targetMonth),
		})
	}

	return records, nil
}

// NormalizePartPriceRows turns a decoded sheet into part-price records
func NormalizePartPriceRows(res *parsers.ParseResult, uploadID uuid.UUID) ([]domain.PartPriceRecord, error) {
	if len(res.Records) == 0 {
		return nil, apperrors.EmptyFile("parts-price upload")
	}

	records := make([]domain.PartPriceRecord, 0, len(res.Records))
	for _, row := range res.Records {
		currency := partPriceAliases.resolveString(row, res.Columns, FieldCurrency)
		if currency == "" {
			currency = "KRW"
		}

		records = append(records, domain.PartPriceRecord{
			UploadID:  uploadID,
			PartName:  partPriceAliases.resolveString(row, res.Columns, FieldPartName),
			PartCode:  partPriceAliases.resolveString(row, res.Columns, FieldPartCode),
			Customer:  partPriceAliases.resolveString(row, res.Columns, FieldCustomer),
			UnitPrice: partPriceAliases.resolveNumber(row, res.Columns, FieldUnitPrice),
			Currency:  currency,
			DataDate:  resolveDataDate(row, res.Columns, partPriceAliases, ""),
		})
	}

	return records, nil
}
