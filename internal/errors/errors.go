package errors

import (
	"errors"
	"fmt"
)

// Code is a stable, machine-readable error type. Startup failures map it to
// process exit codes; command failures only log it.
type Code int

const (
	CodeSuccess     Code = 0
	CodeInternal    Code = 1
	CodeUsage       Code = 2
	CodeParse       Code = 3
	CodeAuth        Code = 10
	CodeRateLimited Code = 11
	CodeUnavailable Code = 12
	CodeUnsupported Code = 13
	CodeBlocked     Code = 16
	CodeRejected    Code = 17
)

// Error is a typed bridge error that carries a stable error code.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

func As(err error) (*Error, bool) {
	var target *Error
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

func ExitCode(err error) int {
	if err == nil {
		return int(CodeSuccess)
	}
	if cliErr, ok := As(err); ok {
		return int(cliErr.Code)
	}
	return int(CodeInternal)
}

// TypeName returns the taxonomy name logged next to a failure.
func TypeName(err error) string {
	if err == nil {
		return ""
	}
	cErr, ok := As(err)
	if !ok {
		return "internal_error"
	}
	switch cErr.Code {
	case CodeUsage:
		return "validation_error"
	case CodeParse:
		return "parse_error"
	case CodeAuth:
		return "auth_error"
	case CodeRateLimited:
		return "rate_limited"
	case CodeUnavailable:
		return "network_error"
	case CodeUnsupported:
		return "unknown_command"
	case CodeBlocked:
		return "command_blocked"
	case CodeRejected:
		return "order_rejected"
	default:
		return "internal_error"
	}
}
