package ucm

import (
	"errors"
	"fmt"
	"syscall"
)

// ErrorCode classifies failures returned by a session.
type ErrorCode string

// ErrorCode constants for use case manager errors.
const (
	CodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	CodeNoSuchDevice    ErrorCode = "NO_SUCH_DEVICE"
	CodeNotFound        ErrorCode = "NOT_FOUND"
	CodeOutOfMemory     ErrorCode = "OUT_OF_MEMORY"
	CodeUnsupported     ErrorCode = "UNSUPPORTED"
	CodeDeviceBusy      ErrorCode = "DEVICE_BUSY"
)

// Sentinels for errors.Is comparisons. Any *Error with the same code matches.
var (
	ErrInvalidArgument = &Error{Code: CodeInvalidArgument, Message: "invalid argument"}
	ErrNoSuchDevice    = &Error{Code: CodeNoSuchDevice, Message: "no such device"}
	ErrNotFound        = &Error{Code: CodeNotFound, Message: "not found"}
	ErrOutOfMemory     = &Error{Code: CodeOutOfMemory, Message: "out of memory"}
	ErrUnsupported     = &Error{Code: CodeUnsupported, Message: "not supported"}
	ErrDeviceBusy      = &Error{Code: CodeDeviceBusy, Message: "device still in use"}
)

// ErrNoControl is returned by a Mixer when the named control does not exist.
var ErrNoControl = errors.New("mixer control not found")

// Error represents a use case manager failure.
type Error struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Context map[string]any `json:"context,omitempty"`
	Cause   error          `json:"cause,omitempty"`
}

// NewError creates a new error with the given code.
func NewError(code ErrorCode, message string, context map[string]any) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Context: context,
	}
}

// NewErrorWithCause creates a new error wrapping cause.
func NewErrorWithCause(code ErrorCode, message string, cause error, context map[string]any) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Context: context,
		Cause:   cause,
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// HasCode checks if the error matches a specific code.
func (e *Error) HasCode(code ErrorCode) bool {
	return e.Code == code
}

// Is reports whether target is an *Error carrying the same code.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// CodeOf returns the code of the first *Error in err's chain, or "" if none.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Errno maps err to the negative errno value reported by command line callers.
// A nil error maps to 0 and unclassified errors map to -EIO.
func Errno(err error) int {
	if err == nil {
		return 0
	}
	switch CodeOf(err) {
	case CodeInvalidArgument:
		return -int(syscall.EINVAL)
	case CodeNoSuchDevice:
		return -int(syscall.ENODEV)
	case CodeNotFound:
		return -int(syscall.ENOENT)
	case CodeOutOfMemory:
		return -int(syscall.ENOMEM)
	case CodeUnsupported:
		return -int(syscall.EPERM)
	case CodeDeviceBusy:
		return -int(syscall.EBUSY)
	default:
		return -int(syscall.EIO)
	}
}

func invalidArgf(format string, args ...any) *Error {
	return &Error{Code: CodeInvalidArgument, Message: fmt.Sprintf(format, args...)}
}

func noDevicef(format string, args ...any) *Error {
	return &Error{Code: CodeNoSuchDevice, Message: fmt.Sprintf(format, args...)}
}

func notFoundf(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}
