// Package errors defines the coded error type shared by all perf-diff packages.
package errors

import (
	"errors"
	"fmt"
)

// Error codes.
const (
	CodeUnknown           = "UNKNOWN_ERROR"
	CodeSymbolMismatch    = "SYMBOL_MISMATCH"
	CodeInvalidInput      = "INVALID_INPUT"
	CodeParseError        = "PARSE_ERROR"
	CodeUnsupportedFormat = "UNSUPPORTED_FORMAT"
	CodeEmptyData         = "EMPTY_DATA"
	CodeNoPairing         = "NO_PAIRING"
	CodeConfigError       = "CONFIG_ERROR"
	CodeStorageError      = "STORAGE_ERROR"
	CodeDatabaseError     = "DATABASE_ERROR"
	CodeNotFound          = "NOT_FOUND"
	CodeCanceled          = "CANCELED"
)

// AppError is an error carrying a stable code next to its message.
type AppError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is reports whether target is an AppError with the same code.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a new AppError.
func New(code string, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps err with a code and message.
func Wrap(code string, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Wrapf is Wrap with a formatted message.
func Wrapf(code string, err error, format string, args ...interface{}) *AppError {
	return Wrap(code, fmt.Sprintf(format, args...), err)
}

// Sentinels for errors.Is checks.
var (
	ErrSymbolMismatch    = New(CodeSymbolMismatch, "call site symbols differ")
	ErrInvalidInput      = New(CodeInvalidInput, "invalid input")
	ErrParseError        = New(CodeParseError, "parse error")
	ErrUnsupportedFormat = New(CodeUnsupportedFormat, "unsupported format")
	ErrEmptyData         = New(CodeEmptyData, "no profiling data")
	ErrNoPairing         = New(CodeNoPairing, "no comparable elements")
	ErrConfigError       = New(CodeConfigError, "configuration error")
	ErrStorageError      = New(CodeStorageError, "storage error")
	ErrDatabaseError     = New(CodeDatabaseError, "database error")
	ErrNotFound          = New(CodeNotFound, "resource not found")
	ErrCanceled          = New(CodeCanceled, "operation canceled")
)

// IsSymbolMismatch reports whether err comes from merging call sites of different symbols.
func IsSymbolMismatch(err error) bool {
	return errors.Is(err, ErrSymbolMismatch)
}

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsNoPairing reports whether err means two inputs had nothing in common.
func IsNoPairing(err error) bool {
	return errors.Is(err, ErrNoPairing)
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknown
}

// GetErrorMessage extracts the error message from an error.
func GetErrorMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	if err != nil {
		return err.Error()
	}
	return ""
}

// ExitCode maps an error to a process exit status for the CLIs.
func ExitCode(err error) int {
	switch GetErrorCode(err) {
	case CodeUnknown:
		if err == nil {
			return 0
		}
		return 1
	case CodeInvalidInput, CodeConfigError, CodeUnsupportedFormat:
		return 2
	case CodeNoPairing, CodeEmptyData:
		return 3
	default:
		return 1
	}
}
