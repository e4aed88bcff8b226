package interp

import (
	"errors"
	"fmt"

	"github.com/roach88/hdlelab/internal/ir"
)

// ErrorCode categorizes interpreter errors.
type ErrorCode string

const (
	// ErrCodeStackUnderflow indicates a pop from an empty value stack.
	ErrCodeStackUnderflow ErrorCode = "STACK_UNDERFLOW"

	// ErrCodeNoCode indicates a subprogram with neither builtin nor code.
	ErrCodeNoCode ErrorCode = "NO_CODE"

	// ErrCodeUnknownBuiltin indicates a builtin identity with no handler.
	ErrCodeUnknownBuiltin ErrorCode = "UNKNOWN_BUILTIN"

	// ErrCodeUndefined indicates a load of a name that is not bound.
	ErrCodeUndefined ErrorCode = "UNDEFINED"

	// ErrCodeCallDepth indicates runaway recursion.
	ErrCodeCallDepth ErrorCode = "CALL_DEPTH"

	// ErrCodeArgument indicates a bad argument to a builtin or statement.
	ErrCodeArgument ErrorCode = "ARGUMENT"
)

// RuntimeError is an error raised while executing interpreter code.
type RuntimeError struct {
	Code     ErrorCode
	Message  string
	Location ir.Location
}

func (e *RuntimeError) Error() string {
	if e.Location.IsValid() {
		return fmt.Sprintf("%s: %s: %s", e.Location, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func errorf(code ErrorCode, loc ir.Location, format string, args ...any) *RuntimeError {
	return &RuntimeError{Code: code, Message: fmt.Sprintf(format, args...), Location: loc}
}

// IsInternal returns true for errors that indicate a broken program rather
// than a bad design: stack underflow, missing code, unknown builtins.
// Uses errors.As to handle wrapped errors.
func IsInternal(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		switch re.Code {
		case ErrCodeStackUnderflow, ErrCodeNoCode, ErrCodeUnknownBuiltin:
			return true
		}
	}
	return false
}

// IsRuntimeError returns true if err is (or wraps) a *RuntimeError.
func IsRuntimeError(err error) bool {
	var re *RuntimeError
	return errors.As(err, &re)
}
