package errors

import (
	"errors"
	"fmt"
)

// CatError is the structured error type for catmatch.
type CatError struct {
	// Code is the unique error code (e.g., "ERR_106_CATALOG_INVALID").
	Code string

	// Message is the human-readable error message.
	Message string

	Category Category
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool

	// Suggestion is an actionable suggestion for the user.
	Suggestion string
}

// Error implements the error interface.
func (e *CatError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *CatError) Unwrap() error {
	return e.Cause
}

// Is matches another CatError by code, so sentinel values work with errors.Is.
func (e *CatError) Is(target error) bool {
	if t, ok := target.(*CatError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
func (e *CatError) WithDetail(key, value string) *CatError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
func (e *CatError) WithSuggestion(suggestion string) *CatError {
	e.Suggestion = suggestion
	return e
}

// New creates a new CatError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *CatError {
	return &CatError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates a CatError from an existing error.
func Wrap(code string, err error) *CatError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ConfigError creates a configuration error. Fatal at startup.
func ConfigError(message string, cause error) *CatError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// CatalogError creates a catalog validation error (duplicate or malformed
// entries, empty tree). Fatal at startup.
func CatalogError(message string, cause error) *CatError {
	return New(ErrCodeCatalogInvalid, message, cause)
}

// RequestError creates a caller input error. It is returned before any
// search stage runs.
func RequestError(message string) *CatError {
	return New(ErrCodeInvalidInput, message, nil)
}

// VectorError reports a query/catalog embedding dimension mismatch.
func VectorError(want, got int) *CatError {
	return New(ErrCodeDimensionMismatch,
		fmt.Sprintf("query vector has %d dimensions, catalog matrix has %d", got, want), nil).
		WithDetail("expected", fmt.Sprint(want)).
		WithDetail("actual", fmt.Sprint(got))
}

// BackendUnavailable reports an unreachable external backend.
func BackendUnavailable(backend string, cause error) *CatError {
	return New(ErrCodeNetworkUnavailable, backend+" is unavailable", cause).
		WithDetail("backend", backend)
}

// EmbeddingError reports a failure of the embedding provider.
func EmbeddingError(message string, cause error) *CatError {
	return New(ErrCodeEmbeddingFailed, message, cause)
}

// IOError creates an I/O-related error.
func IOError(message string, cause error) *CatError {
	return New(ErrCodeFileNotFound, message, cause)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *CatError {
	return New(ErrCodeInternal, message, cause)
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var ce *CatError
	if errors.As(err, &ce) {
		return ce.Retryable
	}
	return false
}

// IsFatal checks if an error has fatal severity.
func IsFatal(err error) bool {
	var ce *CatError
	if errors.As(err, &ce) {
		return ce.Severity == SeverityFatal
	}
	return false
}

// IsRequestError reports whether err was caused by invalid caller input.
func IsRequestError(err error) bool {
	switch GetCode(err) {
	case ErrCodeInvalidInput, ErrCodeQueryEmpty:
		return true
	default:
		return false
	}
}

// GetCode extracts the error code from the first CatError in the chain.
// Returns empty string if there is none.
func GetCode(err error) string {
	var ce *CatError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}

// GetCategory extracts the category from the first CatError in the chain.
func GetCategory(err error) Category {
	var ce *CatError
	if errors.As(err, &ce) {
		return ce.Category
	}
	return ""
}
