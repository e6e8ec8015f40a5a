package parsers

import "context"

// Record represents a single data row as a header→value map
type Record map[string]interface{}

// ParseResult is the decoded first sheet of an uploaded file.
//
// Records carries rows keyed by header text. Raw carries the same rows as
// positional string slices, aligned index-for-index with Records; positional
// access is needed because header→value maps lose column position when
// headers repeat or are blank.
type ParseResult struct {
	Records      []Record
	Raw          [][]string
	TotalRows    int
	SkippedRows  int
	Columns      []string
	Format       string
	ParsingError error
}

// Cell returns the raw value at the zero-based (data row, column) position,
// empty string when out of range
func (r *ParseResult) Cell(row, col int) string {
	if row < 0 || row >= len(r.Raw) {
		return ""
	}
	if col < 0 || col >= len(r.Raw[row]) {
		return ""
	}
	return r.Raw[row][col]
}

// FileParser is the interface all parsers must implement
type FileParser interface {
	// Parse reads and parses the file from the given path
	Parse(ctx context.Context, filePath string) (*ParseResult, error)

	// ParseStream reads and parses from an io.Reader
	ParseStream(ctx context.Context, reader interface{}) (*ParseResult, error)

	// SupportedFormats returns the file extensions this parser supports
	SupportedFormats() []string
}

// ParserConfig holds configuration for all parsers
type ParserConfig struct {
	// SkipEmptyRows determines if empty rows should be skipped
	SkipEmptyRows bool

	// TrimWhitespace determines if cell values should be trimmed
	TrimWhitespace bool

	// MaxFileSize is the maximum file size in bytes (0 = unlimited)
	MaxFileSize int64
}

// DefaultParserConfig returns sensible defaults
func DefaultParserConfig() *ParserConfig {
	return &ParserConfig{
		SkipEmptyRows:  true,
		TrimWhitespace: true,
		MaxFileSize:    100 * 1024 * 1024, // 100 MB
	}
}

// isEmptyRow reports whether every cell in the row is blank
func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if cell != "" {
			return false
		}
	}
	return true
}
