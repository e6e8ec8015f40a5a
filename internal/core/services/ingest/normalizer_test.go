package ingest

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/minjaeoh/quality-metrics-service/internal/pkg/errors"
	"github.com/minjaeoh/quality-metrics-service/internal/infrastructure/parsers"
)

func TestNormalizeDate(t *testing.T) {
	assert.Equal(t, "2025-03-10", normalizeDate("2025-03-10"))
	assert.Equal(t, "2025-03-10", normalizeDate("2025/03/10"))
	assert.Equal(t, "2025-03-10", normalizeDate("2025.03.10"))
	assert.Equal(t, "2025-03-10", normalizeDate("2025-03-10 14:30:00"))
	assert.Equal(t, "", normalizeDate(""))
	assert.Equal(t, "", normalizeDate("not a date"))
}

func TestResolveDataDate_Fallbacks(t *testing.T) {
	// Tier 1: the sheet value wins
	row := parsers.Record{"일자": "2025/03/10"}
	assert.Equal(t, "2025-03-10", resolveDataDate(row, nil, defectAliases, "2025-04"))

	// Tier 2: no sheet value, target month anchors to its 15th
	row = parsers.Record{}
	assert.Equal(t, "2025-04-15", resolveDataDate(row, nil, defectAliases, "2025-04"))

	// Tier 3: nothing at all, today's date
	today := time.Now().Format("2006-01-02")
	assert.Equal(t, today, resolveDataDate(row, nil, defectAliases, ""))

	// An unparseable sheet value falls through to the target month
	row = parsers.Record{"일자": "garbage"}
	assert.Equal(t, "2025-04-15", resolveDataDate(row, nil, defectAliases, "2025-04"))
}

// defectParseResult builds an aligned decoded sheet with one defect row
func defectParseResult(labels []string, counts []string) *parsers.ParseResult {
	headers := make([]string, DefectColumnStart)
	cells := make([]string, DefectColumnStart)
	for i := 0; i < DefectColumnStart; i++ {
		headers[i] = fmt.Sprintf("col_%d", i)
	}
	headers[0] = "고객사"
	headers[3] = "공정"
	cells[0] = "현대"
	cells[3] = "사출"

	headers = append(headers, labels...)
	cells = append(cells, counts...)

	record := parsers.Record{}
	for i, h := range headers {
		record[h] = cells[i]
	}

	return &parsers.ParseResult{
		Records:   []parsers.Record{record},
		Raw:       [][]string{cells},
		TotalRows: 1,
		Columns:   headers,
	}
}

func TestNormalizeDefectRows(t *testing.T) {
	res := defectParseResult(
		[]string{"스크래치", "찍힘", "기포"},
		[]string{"5", "0", "3"},
	)
	uploadID := uuid.New()

	records, err := NormalizeDefectRows(res, uploadID, "2025-03")
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, uploadID, rec.UploadID)
	assert.Equal(t, "현대", rec.Customer)
	assert.Equal(t, "사출", rec.Process)
	assert.Equal(t, 8.0, rec.TotalDefects)
	assert.Equal(t, 5.0, rec.DefectTypesDetail["스크래치"])
	assert.Equal(t, 3.0, rec.DefectTypesDetail["기포"])

	// Positional slots compact the positive counts: the zero column is skipped
	slots := rec.PositionalSlots()
	assert.Equal(t, 5.0, slots[0])
	assert.Equal(t, 3.0, slots[1])
	assert.Equal(t, 0.0, slots[2])

	// No date column: the target month anchors the data date
	assert.Equal(t, "2025-03-15", rec.DataDate)
}

func TestNormalizeDefectRows_EmptySheet(t *testing.T) {
	res := &parsers.ParseResult{}

	_, err := NormalizeDefectRows(res, uuid.New(), "2025-03")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeEmptyFile))
}

func TestNormalizeQualityRows(t *testing.T) {
	res := &parsers.ParseResult{
		Records: []parsers.Record{
			{
				"고객사":  "기아",
				"부품유형": "내장재",
				"제품명":  "도어트림",
				"생산수량": "1000",
				"불량수량": "25",
				"불량금액": "50,000",
				"일자":   "2025-03-02",
			},
			{
				"고객사":  "기아",
				"생산수량": "0",
				"불량수량": "5",
			},
		},
		Raw:       [][]string{{}, {}},
		TotalRows: 2,
	}
	uploadID := uuid.New()

	records, err := NormalizeQualityRows(res, uploadID, "2025-03")
	require.NoError(t, err)
	require.Len(t, records, 2)

	first := records[0]
	assert.Equal(t, "기아", first.Customer)
	assert.Equal(t, "내장재", first.PartType)
	assert.Equal(t, 1000.0, first.ProductionQty)
	assert.Equal(t, 25.0, first.DefectQty)
	assert.Equal(t, 50000.0, first.DefectAmount)
	assert.Equal(t, 2.5, first.DefectRate)
	assert.Equal(t, "2025-03-02", first.DataDate)

	// Zero production yields a zero rate, never a division error
	assert.Equal(t, 0.0, records[1].DefectRate)
	assert.Equal(t, "2025-03-15", records[1].DataDate)
}

func TestNormalizeQualityRows_EmptySheet(t *testing.T) {
	_, err := NormalizeQualityRows(&parsers.ParseResult{}, uuid.New(), "")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeEmptyFile))
}

func TestNormalizePartPriceRows(t *testing.T) {
	res := &parsers.ParseResult{
		Records: []parsers.Record{
			{"품명": "Bracket-A", "품번": "BRK-001", "단가": "1,500", "통화": "USD"},
			{"품명": "Bracket-B", "단가": "300"},
		},
		Raw:       [][]string{{}, {}},
		TotalRows: 2,
	}

	records, err := NormalizePartPriceRows(res, uuid.New())
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "Bracket-A", records[0].PartName)
	assert.Equal(t, "BRK-001", records[0].PartCode)
	assert.Equal(t, 1500.0, records[0].UnitPrice)
	assert.Equal(t, "USD", records[0].Currency)

	// Currency defaults to KRW when the sheet omits it
	assert.Equal(t, "KRW", records[1].Currency)
}

func TestNormalizePartPriceRows_EmptySheet(t *testing.T) {
	_, err := NormalizePartPriceRows(&parsers.ParseResult{}, uuid.New())
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeEmptyFile))
}
