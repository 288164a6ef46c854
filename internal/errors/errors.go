package errors

import (
	"fmt"
)

// RankError is the structured error type for rankfuse.
// It provides context for error handling, logging, and user presentation.
type RankError struct {
	// Code is the unique error code (e.g., "ERR_404_QUERY_EMPTY").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, IO, Validation, Internal).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error
}

// Error implements the error interface.
func (e *RankError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *RankError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
// This enables errors.Is() to work with RankError.
func (e *RankError) Is(target error) bool {
	if t, ok := target.(*RankError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *RankError) WithDetail(key, value string) *RankError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// New creates a new RankError with the given code and message.
// Category and severity are derived from the code.
func New(code string, message string, cause error) *RankError {
	return &RankError{
		Code:     code,
		Message:  message,
		Category: categoryFromCode(code),
		Severity: severityFromCode(code),
		Cause:    cause,
	}
}

// Newf creates a new RankError with a formatted message.
func Newf(code string, format string, args ...any) *RankError {
	return New(code, fmt.Sprintf(format, args...), nil)
}

// Wrap creates a RankError from an existing error.
// The error's message becomes the RankError message.
func Wrap(code string, err error) *RankError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// HasCode reports whether err is a RankError carrying the given code.
func HasCode(err error, code string) bool {
	if err == nil {
		return false
	}
	if re, ok := err.(*RankError); ok {
		return re.Code == code
	}
	return false
}

// GetCode extracts the error code from a RankError.
// Returns empty string if not a RankError.
func GetCode(err error) string {
	if re, ok := err.(*RankError); ok {
		return re.Code
	}
	return ""
}

// GetCategory extracts the category from a RankError.
// Returns empty string if not a RankError.
func GetCategory(err error) Category {
	if re, ok := err.(*RankError); ok {
		return re.Category
	}
	return ""
}
