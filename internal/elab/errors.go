package elab

import (
	"errors"
	"fmt"

	"github.com/roach88/hdlelab/internal/design"
	"github.com/roach88/hdlelab/internal/interp"
	"github.com/roach88/hdlelab/internal/ir"
	"github.com/roach88/hdlelab/internal/value"
)

// ErrorCode categorizes elaboration errors.
type ErrorCode string

const (
	// ErrCodeResolution indicates a unit or signature could not be found, or
	// a unit of the wrong kind was referenced.
	ErrCodeResolution ErrorCode = "RESOLUTION"

	// ErrCodeBinding indicates generic actuals do not match the entity's
	// generic declarations.
	ErrCodeBinding ErrorCode = "BINDING"

	// ErrCodeShutdown indicates the worker pool did not stop in time.
	ErrCodeShutdown ErrorCode = "SHUTDOWN_TIMEOUT"
)

// ElabError is an error detected by the scheduler itself.
type ElabError struct {
	Code     ErrorCode
	Message  string
	Location ir.Location
}

func (e *ElabError) Error() string {
	if e.Location.IsValid() {
		return fmt.Sprintf("%s: %s: %s", e.Location, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func errorf(code ErrorCode, loc ir.Location, format string, args ...any) *ElabError {
	return &ElabError{Code: code, Message: fmt.Sprintf(format, args...), Location: loc}
}

func hasCode(err error, code ErrorCode) bool {
	var ee *ElabError
	if errors.As(err, &ee) {
		return ee.Code == code
	}
	return false
}

// IsResolutionError returns true if err is (or wraps) a resolution error.
func IsResolutionError(err error) bool { return hasCode(err, ErrCodeResolution) }

// IsBindingError returns true if err is (or wraps) a generic binding error.
func IsBindingError(err error) bool { return hasCode(err, ErrCodeBinding) }

// Category groups diagnostics by origin.
type Category string

const (
	CategoryResolution Category = "resolution"
	CategoryEvaluation Category = "evaluation"
	CategoryInternal   Category = "internal"
)

// classify maps a job failure to its diagnostic category. Resolution
// problems are the only non-fatal kind.
func classify(err error) (Category, bool) {
	switch {
	case IsResolutionError(err):
		return CategoryResolution, false
	case IsBindingError(err),
		value.IsEvaluationError(err),
		interp.IsRuntimeError(err),
		design.IsLoadError(err),
		errors.Is(err, design.ErrUnknownFunction):
		return CategoryEvaluation, true
	default:
		return CategoryInternal, true
	}
}

// locationOf extracts the source location carried by err, if any.
func locationOf(err error) ir.Location {
	var (
		ee *ElabError
		ve *value.EvaluationError
		re *interp.RuntimeError
	)
	switch {
	case errors.As(err, &ee):
		return ee.Location
	case errors.As(err, &ve):
		return ve.Location
	case errors.As(err, &re):
		return re.Location
	}
	return ir.Location{}
}
