package aggregate

import (
	"fmt"
	"sort"

	"github.com/minjaeoh/quality-metrics-service/internal/core/domain"
)

// Unclassified is the bucket label for records missing a grouping dimension.
// Missing keys are never dropped, only relabeled.
const Unclassified = "unclassified"

// GroupSummary is one aggregated bucket of process-quality records
type GroupSummary struct {
	Key             string  `json:"key"`
	TotalProduction float64 `json:"total_production"`
	TotalDefects    float64 `json:"total_defects"`
	TotalAmount     float64 `json:"total_amount"`
	DefectRate      float64 `json:"defect_rate"`
}

// KeyFunc extracts the grouping key from a record
type KeyFunc func(r domain.ProcessQualityRecord) string

// Standard grouping dimensions

func ByPartType(r domain.ProcessQualityRecord) string     { return r.PartType }
func ByCustomer(r domain.ProcessQualityRecord) string     { return r.Customer }
func ByVehicleModel(r domain.ProcessQualityRecord) string { return r.VehicleModel }
func ByProductName(r domain.ProcessQualityRecord) string  { return r.ProductName }

// GroupBy aggregates records under keyFn, summing production, defect and
// amount quantities; defect rate is defects/production×100, 0 when a group
// has no production. Results are sorted by key for stable output. Pure and
// total over any input, including an empty slice.
func GroupBy(records []domain.ProcessQualityRecord, keyFn KeyFunc) []GroupSummary {
	buckets := make(map[string]*GroupSummary)

	for _, r := range records {
		key := keyFn(r)
		if key == "" {
			key = Unclassified
		}

		bucket, ok := buckets[key]
		if !ok {
			bucket = &GroupSummary{Key: key}
			buckets[key] = bucket
		}
		bucket.TotalProduction += r.ProductionQty
		bucket.TotalDefects += r.DefectQty
		bucket.TotalAmount += r.DefectAmount
	}

	out := make([]GroupSummary, 0, len(buckets))
	for _, bucket := range buckets {
		bucket.DefectRate = domain.ComputeDefectRate(bucket.TotalDefects, bucket.TotalProduction)
		out = append(out, *bucket)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// TimePoint is one calendar-date bucket of the quality time series
type TimePoint struct {
	Date        string  `json:"date"`
	DefectRate  float64 `json:"defect_rate"`
	TotalAmount float64 `json:"total_amount"`
}

// TimeSeries groups records by exact data date and returns points sorted
// ascending by date
func TimeSeries(records []domain.ProcessQualityRecord) []TimePoint {
	type accum struct {
		production float64
		defects    float64
		amount     float64
	}
	buckets := make(map[string]*accum)

	for _, r := range records {
		a, ok := buckets[r.DataDate]
		if !ok {
			a = &accum{}
			buckets[r.DataDate] = a
		}
		a.production += r.ProductionQty
		a.defects += r.DefectQty
		a.amount += r.DefectAmount
	}

	out := make([]TimePoint, 0, len(buckets))
	for date, a := range buckets {
		out = append(out, TimePoint{
			Date:        date,
			DefectRate:  domain.ComputeDefectRate(a.defects, a.production),
			TotalAmount: a.amount,
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// TypeShare is one defect type's share of the grand total
type TypeShare struct {
	DefectType string  `json:"defect_type"`
	Count      float64 `json:"count"`
	Percentage float64 `json:"percentage"`
}

// DefectTypeShares sums defect counts per type across all records and
// returns shares sorted descending by count.
//
// Both representations of the per-row data contribute to one accumulator:
// the ten positional slots under generic "Defect Type N" labels, and the
// detail map under its original labels. The ingestion path keeps the two in
// 1:1 correspondence, so the grand total counts each underlying defect under
// both its positional and labeled entry.
func DefectTypeShares(records []domain.DefectRecord) []TypeShare {
	counts := make(map[string]float64)
	var grandTotal float64

	for _, r := range records {
		for i, v := range r.PositionalSlots() {
			if v > 0 {
				counts[fmt.Sprintf("Defect Type %d", i+1)] += v
				grandTotal += v
			}
		}
		for label, v := range r.DefectTypesDetail {
			if v > 0 {
				counts[label] += v
				grandTotal += v
			}
		}
	}

	out := make([]TypeShare, 0, len(counts))
	for label, count := range counts {
		share := TypeShare{DefectType: label, Count: count}
		if grandTotal > 0 {
			share.Percentage = count / grandTotal * 100
		}
		out = append(out, share)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].DefectType < out[j].DefectType
	})
	return out
}

// ParetoPoint is one entry of a top-N defect-type slice with a running
// cumulative percentage
type ParetoPoint struct {
	DefectType           string  `json:"defect_type"`
	Count                float64 `json:"count"`
	Percentage           float64 `json:"percentage"`
	CumulativePercentage float64 `json:"cumulative_percentage"`
}

// ParetoSeries takes the top N shares by count and attaches a cumulative
// percentage. The running sum restarts at the top of the slice and covers
// only the selected subset, so the final entry equals the sum of the slice's
// own percentages rather than 100%. Charts want exactly this shape.
func ParetoSeries(shares []TypeShare, topN int) []ParetoPoint {
	if topN < 0 {
		topN = 0
	}
	if topN > len(shares) {
		topN = len(shares)
	}

	out := make([]ParetoPoint, 0, topN)
	var cumulative float64
	for _, share := range shares[:topN] {
		cumulative += share.Percentage
		out = append(out, ParetoPoint{
			DefectType:           share.DefectType,
			Count:                share.Count,
			Percentage:           share.Percentage,
			CumulativePercentage: cumulative,
		})
	}
	return out
}

// InconsistentSlotRecords counts records whose positional slot sum exceeds
// their detail-map total. The slots are a truncated prefix of the detail
// map, so under the ingestion contract the count is always zero; a nonzero
// result means some writer populated the slots without the map and the
// double-source grand total is overstating those rows.
func InconsistentSlotRecords(records []domain.DefectRecord) int {
	n := 0
	for _, r := range records {
		var slotSum float64
		for _, v := range r.PositionalSlots() {
			slotSum += v
		}
		if slotSum > r.DefectTypesDetail.Total() {
			n++
		}
	}
	return n
}

// ProcessBreakdown is the defect-type composition of one process dimension
type ProcessBreakdown struct {
	Process      string      `json:"process"`
	TotalDefects float64     `json:"total_defects"`
	DefectTypes  []TypeShare `json:"defect_types"`
}

// ByProcess partitions records by their process dimension and computes each
// partition's defect-type shares against that process's own total, not the
// grand total. Processes sort descending by total defects, types descending
// by count within each process.
func ByProcess(records []domain.DefectRecord) []ProcessBreakdown {
	partitions := make(map[string][]domain.DefectRecord)
	for _, r := range records {
		process := r.Process
		if process == "" {
			process = Unclassified
		}
		partitions[process] = append(partitions[process], r)
	}

	out := make([]ProcessBreakdown, 0, len(partitions))
	for process, group := range partitions {
		shares := DefectTypeShares(group)
		var total float64
		for _, r := range group {
			total += r.TotalDefects
		}
		out = append(out, ProcessBreakdown{
			Process:      process,
			TotalDefects: total,
			DefectTypes:  shares,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalDefects != out[j].TotalDefects {
			return out[i].TotalDefects > out[j].TotalDefects
		}
		return out[i].Process < out[j].Process
	})
	return out
}
