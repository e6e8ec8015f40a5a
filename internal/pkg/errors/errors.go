package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorCode represents a unique error code for each error type
type ErrorCode string

const (
	// General errors
	ErrCodeInternal   ErrorCode = "INTERNAL_ERROR"
	ErrCodeNotFound   ErrorCode = "NOT_FOUND"
	ErrCodeBadRequest ErrorCode = "BAD_REQUEST"

	// Upload / file processing errors
	ErrCodeEmptyFile         ErrorCode = "EMPTY_FILE"
	ErrCodeFileTooLarge      ErrorCode = "FILE_TOO_LARGE"
	ErrCodeUnsupportedFormat ErrorCode = "UNSUPPORTED_FORMAT"
	ErrCodeFileParseError    ErrorCode = "FILE_PARSE_ERROR"
	ErrCodeUnknownDomain     ErrorCode = "UNKNOWN_DOMAIN"

	// Persistence errors. The sub-codes exist so callers never have to
	// inspect backend-specific error wording themselves.
	ErrCodePersistence        ErrorCode = "PERSISTENCE_ERROR"
	ErrCodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	ErrCodeRelationMissing    ErrorCode = "RELATION_MISSING"
	ErrCodeColumnMissing      ErrorCode = "COLUMN_MISSING"
	ErrCodeRecordNotFound     ErrorCode = "RECORD_NOT_FOUND"

	// A period-scoped upload whose insert failed after the delete. With the
	// transactional replace path this cannot happen; the code remains for
	// callers running against stores without transaction support.
	ErrCodePartialUpload ErrorCode = "PARTIAL_UPLOAD_INCONSISTENCY"

	// Queue errors
	ErrCodeQueueError ErrorCode = "QUEUE_ERROR"
)

// AppError represents a structured application error
type AppError struct {
	Code       ErrorCode              `json:"code"`
	Message    string                 `json:"message"`
	StatusCode int                    `json:"-"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Err        error                  `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s - %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetails adds additional context to the error
func (e *AppError) WithDetails(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError
func New(code ErrorCode, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// Wrap wraps an existing error with AppError context
func Wrap(err error, code ErrorCode, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Err:        err,
	}
}

// Common error constructors

func Internal(message string) *AppError {
	return New(ErrCodeInternal, message, http.StatusInternalServerError)
}

func InternalWrap(err error, message string) *AppError {
	return Wrap(err, ErrCodeInternal, message, http.StatusInternalServerError)
}

func NotFound(message string) *AppError {
	return New(ErrCodeNotFound, message, http.StatusNotFound)
}

func BadRequest(message string) *AppError {
	return New(ErrCodeBadRequest, message, http.StatusBadRequest)
}

// Upload errors

func EmptyFile(filename string) *AppError {
	return New(ErrCodeEmptyFile,
		fmt.Sprintf("file %q contains no data rows", filename),
		http.StatusBadRequest)
}

func FileTooLarge(maxSizeMB int64) *AppError {
	return New(ErrCodeFileTooLarge,
		fmt.Sprintf("file size exceeds maximum allowed size of %d MB", maxSizeMB),
		http.StatusBadRequest)
}

func UnsupportedFormat(format string) *AppError {
	return New(ErrCodeUnsupportedFormat,
		fmt.Sprintf("unsupported file format: %s", format),
		http.StatusBadRequest)
}

func FileParseError(err error) *AppError {
	return Wrap(err, ErrCodeFileParseError, "failed to parse file", http.StatusBadRequest)
}

func UnknownDomain(domain string) *AppError {
	return New(ErrCodeUnknownDomain,
		fmt.Sprintf("unknown upload domain: %s", domain),
		http.StatusBadRequest)
}

// Persistence errors

func RecordNotFound(resource string) *AppError {
	return New(ErrCodeRecordNotFound,
		fmt.Sprintf("%s not found", resource),
		http.StatusNotFound)
}

// Persistence classifies a database error into the structured taxonomy.
// The backend wording is inspected here, once, so the rest of the system
// can switch on error codes instead of message substrings.
func Persistence(err error) *AppError {
	if err == nil {
		return nil
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "password authentication failed"),
		strings.Contains(msg, "invalid authorization"),
		strings.Contains(msg, "api key"):
		return Wrap(err, ErrCodeInvalidCredentials,
			"persistence rejected the configured credentials", http.StatusInternalServerError)
	// The column case must come first: a missing-column message names the
	// relation too ("column ... of relation ... does not exist"), so testing
	// for the relation wording first would swallow it.
	case strings.Contains(msg, "updated_at") || (strings.Contains(msg, "column") && strings.Contains(msg, "does not exist")):
		return Wrap(err, ErrCodeColumnMissing,
			"table schema is out of date; run migrations", http.StatusInternalServerError)
	case strings.Contains(msg, "does not exist") && strings.Contains(msg, "relation"):
		return Wrap(err, ErrCodeRelationMissing,
			"required table is missing; run migrations", http.StatusInternalServerError)
	default:
		return Wrap(err, ErrCodePersistence,
			"database operation failed", http.StatusInternalServerError)
	}
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetAppError extracts AppError from error chain
func GetAppError(err error) (*AppError, bool) {
	var appErr *AppError
	ok := errors.As(err, &appErr)
	return appErr, ok
}

// HasCode reports whether err carries the given error code
func HasCode(err error, code ErrorCode) bool {
	appErr, ok := GetAppError(err)
	return ok && appErr.Code == code
}
