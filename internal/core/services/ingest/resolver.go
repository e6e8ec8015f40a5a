package ingest

import (
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/minjaeoh/quality-metrics-service/internal/infrastructure/parsers"
)

var bracketPattern = regexp.MustCompile(`\[[^\]]*\]`)

// normalizeHeader folds a header name for tolerant comparison: NFKC
// normalization (full-width and compatibility variants collapse), bracketed
// annotations stripped, surrounding whitespace removed.
func normalizeHeader(name string) string {
	s := norm.NFKC.String(name)
	s = bracketPattern.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// Resolve returns the row value for the first matching candidate header.
//
// Candidate order encodes priority: preferred header text comes before
// legacy synonyms. Exact key matches win outright, even when the value is
// falsy. When no exact key matches, both candidates and actual keys are
// normalized (brackets and surrounding whitespace stripped) and compared
// again, candidates outer loop so priority is preserved. Source sheets from
// different departments rename headers and add bracket annotations
// ("생산수량" vs "생산량[EA]"); this tolerates both without hardcoding every
// variant combination.
//
// headers is the sheet's column list in source order. The normalized pass
// scans it left to right, so when two distinct headers fold to the same
// candidate (생산량[EA] and 생산량[KG]) the leftmost one wins on every call.
// A nil header list falls back to the row's keys in sorted order.
func Resolve(row parsers.Record, headers []string, candidates ...string) (interface{}, bool) {
	for _, name := range candidates {
		if value, ok := row[name]; ok {
			return value, true
		}
	}

	keys := headers
	if len(keys) == 0 {
		keys = make([]string, 0, len(row))
		for key := range row {
			keys = append(keys, key)
		}
		sort.Strings(keys)
	}

	for _, name := range candidates {
		want := normalizeHeader(name)
		if want == "" {
			continue
		}
		for _, key := range keys {
			if normalizeHeader(key) != want {
				continue
			}
			if value, ok := row[key]; ok {
				return value, true
			}
		}
	}

	return nil, false
}

// ResolveString resolves a candidate list to a trimmed string, empty when
// the row lacks every candidate
func ResolveString(row parsers.Record, headers []string, candidates ...string) string {
	value, ok := Resolve(row, headers, candidates...)
	if !ok || value == nil {
		return ""
	}
	if s, ok := value.(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

// ResolveNumber resolves a candidate list to a number, 0 when missing or
// unparseable
func ResolveNumber(row parsers.Record, headers []string, candidates ...string) float64 {
	value, ok := Resolve(row, headers, candidates...)
	if !ok {
		return 0
	}
	return ToNumber(value)
}
