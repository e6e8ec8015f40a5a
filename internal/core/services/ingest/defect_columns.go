package ingest

import "github.com/minjaeoh/quality-metrics-service/internal/core/domain"

// The source spreadsheet layout reserves the 14th through 33rd columns for
// defect-type counters. This is a positional contract with the template, not
// a content-based heuristic.
const (
	DefectColumnStart = 13
	DefectColumnCount = 20
)

// DefectColumns is the extracted defect-type universe for one row
type DefectColumns struct {
	// Detail maps each defect-type label (the header text) to its count,
	// covering every positive entry in the fixed range
	Detail domain.DefectDetail
	// Values holds the positive counts in sheet column order; the first ten
	// populate the positional slots
	Values []float64
	// Total is the sum of all positive counts
	Total float64
}

// ExtractDefectColumns reads the fixed 20-column defect-type range from one
// raw row. Values are coerced to numbers and kept only when positive; zero,
// negative and missing entries are dropped entirely rather than stored as
// zero counts. Sheets with fewer than 33 columns simply yield fewer entries.
func ExtractDefectColumns(headers []string, cells []string) DefectColumns {
	out := DefectColumns{
		Detail: domain.DefectDetail{},
		Values: []float64{},
	}

	end := DefectColumnStart + DefectColumnCount
	for col := DefectColumnStart; col < end && col < len(headers); col++ {
		var raw string
		if col < len(cells) {
			raw = cells[col]
		}
		count := ToNumber(raw)
		if count <= 0 {
			continue
		}

		label := headers[col]
		// Duplicate labels within the range accumulate into one entry
		out.Detail[label] += count
		out.Values = append(out.Values, count)
		out.Total += count
	}

	return out
}
