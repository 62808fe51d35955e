// Package errors provides structured error handling with typed error codes.
//
// Error codes are organized into categories:
//   - General errors (1-99): Unknown and general errors
//   - Validation errors (100-199): Invalid parameters and configuration
//   - Data/Resource errors (200-299): Missing or empty data
//   - Market data errors (700-799): Fetching, parsing and persisting price series
//   - Report errors (900-999): Run summary output
//
// Usage:
//
//	// Create a new error
//	err := errors.New(errors.ErrCodeInvalidParameter, "ticker is required")
//
//	// Wrap an existing error
//	err := errors.Wrap(errors.ErrCodeMarketDataWriteFailed, "failed to export parquet", originalErr)
//
//	// Check error code
//	if errors.HasCode(err, errors.ErrCodeMarketDataFetchFailed) { ... }
package errors

import (
	"errors"
	"fmt"
)

// Error represents a structured error with an error code and message.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// New creates a new Error with the given code and message.
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   nil,
	}
}

// Newf creates a new Error with the given code and formatted message.
func Newf(code ErrorCode, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   nil,
	}
}

// Wrap wraps an existing error with a new Error containing the given code and message.
func Wrap(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Wrapf wraps an existing error with a new Error containing the given code and formatted message.
func Wrapf(code ErrorCode, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Cause)
	}

	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// GetCode extracts the ErrorCode of the outermost coded error in err's chain.
// Returns ErrCodeUnknown if the chain holds no coded error.
func GetCode(err error) ErrorCode {
	for current := err; current != nil; current = errors.Unwrap(current) {
		switch typed := current.(type) {
		case *Error:
			return typed.Code
		case *FetchFailedError:
			return ErrCodeMarketDataFetchFailed
		}
	}

	return ErrCodeUnknown
}

// HasCode checks if an error has a specific ErrorCode.
func HasCode(err error, code ErrorCode) bool {
	return GetCode(err) == code
}

// FetchFailedError is returned when every attempt to fetch a ticker failed.
type FetchFailedError struct {
	Ticker   string // Ticker that could not be fetched
	Attempts int    // Number of upstream calls made
	Cause    error  // Error of the last attempt
}

// NewFetchFailedError creates a new FetchFailedError.
func NewFetchFailedError(ticker string, attempts int, cause error) *FetchFailedError {
	return &FetchFailedError{
		Ticker:   ticker,
		Attempts: attempts,
		Cause:    cause,
	}
}

// Error implements the error interface.
func (e *FetchFailedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%d] fetch %s failed after %d attempts: %v", ErrCodeMarketDataFetchFailed, e.Ticker, e.Attempts, e.Cause)
	}

	return fmt.Sprintf("[%d] fetch %s failed after %d attempts", ErrCodeMarketDataFetchFailed, e.Ticker, e.Attempts)
}

// Unwrap returns the error of the last attempt.
func (e *FetchFailedError) Unwrap() error {
	return e.Cause
}

// IsFetchFailedError checks if an error is a FetchFailedError.
// It uses errors.As to check the error chain.
func IsFetchFailedError(err error) bool {
	var fetchErr *FetchFailedError

	return errors.As(err, &fetchErr)
}
