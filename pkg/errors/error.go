// Package errors provides structured error handling with typed error codes.
//
// Error codes are organized into categories:
//   - General errors (1-99): Unknown and general errors
//   - Configuration errors (100-199): invalid risk policy, rule set, indicator parameters.
//     Raised at construction time, before any candle is processed.
//   - Data errors (200-299): malformed candle series, out-of-order observations, loader failures.
//     The offending series or observation is rejected wholesale, never repaired.
//   - Indicator errors (300-399): unknown or duplicate indicator columns.
//
// Usage:
//
//	// Create a new error
//	err := errors.New(errors.ErrCodeInvalidStopLoss, "stoploss must be negative")
//
//	// Attach context
//	err := errors.NewData(errors.ErrCodeNegativeValue, 12, "volume", "volume must not be negative")
//
//	// Check the family
//	if errors.IsDataError(err) { ... }
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Error represents a structured error with an error code and message.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
	// Index is the candle index the error refers to, -1 when not applicable.
	Index int
	// Field is the candle field or configuration key the error refers to.
	Field string
	// Indicator is the indicator or column name the error refers to.
	Indicator string
}

// New creates a new Error with the given code and message.
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Index:   -1,
	}
}

// Newf creates a new Error with the given code and formatted message.
func Newf(code ErrorCode, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap wraps an existing error with a new Error containing the given code and message.
func Wrap(code ErrorCode, message string, cause error) *Error {
	err := New(code, message)
	err.Cause = cause

	return err
}

// Wrapf wraps an existing error with a new Error containing the given code and formatted message.
func Wrapf(code ErrorCode, cause error, format string, args ...any) *Error {
	return Wrap(code, fmt.Sprintf(format, args...), cause)
}

// NewData creates a data error pointing at a candle index and field.
func NewData(code ErrorCode, index int, field, message string) *Error {
	err := New(code, message)
	err.Index = index
	err.Field = field

	return err
}

// NewConfig creates a configuration error pointing at a configuration key.
func NewConfig(code ErrorCode, field, message string) *Error {
	err := New(code, message)
	err.Field = field

	return err
}

// NewIndicator creates an indicator error naming the indicator or column involved.
func NewIndicator(code ErrorCode, indicator, message string) *Error {
	err := New(code, message)
	err.Indicator = indicator

	return err
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder

	fmt.Fprintf(&b, "[%d] %s", e.Code, e.Message)

	var ctx []string
	if e.Index >= 0 {
		ctx = append(ctx, fmt.Sprintf("index=%d", e.Index))
	}

	if e.Field != "" {
		ctx = append(ctx, "field="+e.Field)
	}

	if e.Indicator != "" {
		ctx = append(ctx, "indicator="+e.Indicator)
	}

	if len(ctx) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(ctx, ", "))
	}

	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}

	return b.String()
}

// Unwrap returns the underlying error cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Category returns the family of the error.
func (e *Error) Category() Category {
	return e.Code.Category()
}

// Is reports whether any error in err's chain matches target.
// This is a convenience wrapper around the standard errors.Is function.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
// This is a convenience wrapper around the standard errors.As function.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// GetCode extracts the ErrorCode from an error if it's an *Error type.
// Returns ErrCodeUnknown if the error is not an *Error type.
func GetCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}

	return ErrCodeUnknown
}

// HasCode checks if an error has a specific ErrorCode.
func HasCode(err error, code ErrorCode) bool {
	return GetCode(err) == code
}

// IsConfigurationError reports whether err is an invalid risk policy, rule set or indicator setup.
func IsConfigurationError(err error) bool {
	return GetCode(err).Category() == CategoryConfiguration
}

// IsDataError reports whether err is a malformed series or observation.
func IsDataError(err error) bool {
	return GetCode(err).Category() == CategoryData
}

// IsIndicatorError reports whether err concerns an indicator column.
func IsIndicatorError(err error) bool {
	return GetCode(err).Category() == CategoryIndicator
}
