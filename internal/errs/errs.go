// Package errs defines coded errors shared by the server API and the CLI.
// A code decides the HTTP status or the process exit status; the message is
// what a user sees. Uncoded errors are treated as internal and their text
// never leaves the process.
package errs

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is an application error code.
type Code string

const (
	InvalidArgument Code = "invalid_argument"
	NotFound        Code = "not_found"
	TooLarge        Code = "too_large"
	Unavailable     Code = "unavailable"
	Internal        Code = "internal"
)

// Error is a coded application error.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	switch {
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	default:
		return string(e.Code)
	}
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a coded error.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a coded error with a cause. The cause is kept for errors.Is
// and logs but is not part of MessageOf.
func Wrap(code Code, message string, cause error) error {
	return &Error{Code: code, Message: message, Err: cause}
}

func outermost(err error) (*Error, bool) {
	var coded *Error
	if err == nil || !errors.As(err, &coded) {
		return nil, false
	}
	return coded, true
}

// CodeOf returns the code of the outermost coded error in err's chain, or
// Internal.
func CodeOf(err error) Code {
	if coded, ok := outermost(err); ok && coded.Code != "" {
		return coded.Code
	}
	return Internal
}

// Is reports whether the outermost coded error in err's chain has code.
func Is(err error, code Code) bool {
	coded, ok := outermost(err)
	return ok && coded.Code == code
}

// MessageOf returns a message safe to show a user. Uncoded errors become
// "internal error" so storage errors, file paths and bucket names stay in
// the logs.
func MessageOf(err error) string {
	if err == nil {
		return string(Internal)
	}
	if coded, ok := outermost(err); ok && coded.Message != "" {
		return coded.Message
	}
	return "internal error"
}

// HTTPStatus maps a code to an HTTP status.
func HTTPStatus(code Code) int {
	switch code {
	case InvalidArgument:
		return http.StatusBadRequest
	case NotFound:
		return http.StatusNotFound
	case TooLarge:
		return http.StatusRequestEntityTooLarge
	case Unavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Process exit statuses for the CLI.
const (
	ExitOK          = 0
	ExitFailure     = 1
	ExitUsage       = 2
	ExitNotFound    = 3
	ExitUnavailable = 4
)

// ExitCode maps err to a process exit status. Uncoded errors (including
// cobra's flag and argument errors) exit with ExitFailure.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	if _, ok := outermost(err); !ok {
		return ExitFailure
	}
	switch CodeOf(err) {
	case InvalidArgument, TooLarge:
		return ExitUsage
	case NotFound:
		return ExitNotFound
	case Unavailable:
		return ExitUnavailable
	default:
		return ExitFailure
	}
}
