package errors

import (
	"fmt"

	crdb "github.com/cockroachdb/errors"

	"goqca/domain/core"
)

// AppError represents a structured application error
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with additional context. Non-AppErrors keep their
// domain code and gain a stack trace.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	if appErr, ok := err.(*AppError); ok {
		return &AppError{
			Code:    appErr.Code,
			Message: message,
			Cause:   appErr,
		}
	}
	return &AppError{
		Code:    CodeOf(err),
		Message: message,
		Cause:   crdb.WithStack(err),
	}
}

// Wrapf wraps an error with formatted additional context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// WithCode adds an error code to an existing error
func WithCode(code string, err error) error {
	if err == nil {
		return nil
	}
	if appErr, ok := err.(*AppError); ok {
		return &AppError{
			Code:    code,
			Message: appErr.Message,
			Cause:   appErr.Cause,
		}
	}
	return &AppError{
		Code:    code,
		Message: err.Error(),
		Cause:   err,
	}
}

// WithHint attaches a user-facing hint that survives wrapping
func WithHint(err error, hint string) error {
	return crdb.WithHint(err, hint)
}

// Hints collects every hint in the chain
func Hints(err error) []string {
	return crdb.GetAllHints(err)
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return crdb.As(err, &appErr)
}

// GetCode returns the outermost AppError code, falling back to CodeOf
func GetCode(err error) string {
	var appErr *AppError
	if crdb.As(err, &appErr) {
		return appErr.Code
	}
	return CodeOf(err)
}

// CodeOf maps domain error kinds to stable codes
func CodeOf(err error) string {
	switch {
	case err == nil:
		return ""
	case core.IsInvalidCalibrationSpec(err):
		return CodeInvalidCalibrationSpec
	case core.IsInsufficientData(err):
		return CodeInsufficientData
	case core.IsUnresolvableContradiction(err):
		return CodeUnresolvableContradiction
	case core.IsCombinatorialLimitExceeded(err):
		return CodeCombinatorialLimitExceeded
	}
	return CodeInternalError
}

// Predefined error codes
const (
	CodeConfigInvalid              = "CONFIG_INVALID"
	CodeDatabaseError              = "DATABASE_ERROR"
	CodeNotFound                   = "NOT_FOUND"
	CodeInternalError              = "INTERNAL_ERROR"
	CodeInvalidInput               = "INVALID_INPUT"
	CodeInvalidCalibrationSpec     = "INVALID_CALIBRATION_SPEC"
	CodeInsufficientData           = "INSUFFICIENT_DATA"
	CodeUnresolvableContradiction  = "UNRESOLVABLE_CONTRADICTION"
	CodeCombinatorialLimitExceeded = "COMBINATORIAL_LIMIT_EXCEEDED"
)

// Common error constructors
func ConfigInvalid(message string) *AppError {
	return New(CodeConfigInvalid, message)
}

func DatabaseError(message string, cause error) *AppError {
	return &AppError{Code: CodeDatabaseError, Message: message, Cause: cause}
}

func NotFound(resource string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", resource))
}

func InternalError(message string) *AppError {
	return New(CodeInternalError, message)
}

func InvalidInput(message string) *AppError {
	return New(CodeInvalidInput, message)
}

// ExitCode maps an error to a process exit status for the CLI
func ExitCode(err error) int {
	switch GetCode(err) {
	case "":
		return 0
	case CodeConfigInvalid, CodeInvalidInput, CodeInvalidCalibrationSpec:
		return 2
	case CodeInsufficientData, CodeUnresolvableContradiction, CodeCombinatorialLimitExceeded:
		return 3
	}
	return 1
}
