package value

import (
	"errors"
	"fmt"

	"github.com/roach88/hdlelab/internal/ir"
)

// ErrorCode categorizes evaluation errors.
type ErrorCode string

const (
	// ErrCodeUnsupported indicates an operator is not defined for the
	// operand or result category.
	ErrCodeUnsupported ErrorCode = "UNSUPPORTED_OPERATION"

	// ErrCodeLengthMismatch indicates an elementwise array operation on
	// arrays of different length.
	ErrCodeLengthMismatch ErrorCode = "LENGTH_MISMATCH"

	// ErrCodeOutOfBounds indicates an array index outside the index range.
	ErrCodeOutOfBounds ErrorCode = "INDEX_OUT_OF_BOUNDS"

	// ErrCodeRange indicates a scalar outside its type's bounds, or a range
	// operation on a value that is not a range.
	ErrCodeRange ErrorCode = "RANGE"

	// ErrCodeDivisionByZero indicates a division, MOD or REM by zero.
	ErrCodeDivisionByZero ErrorCode = "DIVISION_BY_ZERO"

	// ErrCodeInvalidValue indicates a builder was given a value that does
	// not fit the target type.
	ErrCodeInvalidValue ErrorCode = "INVALID_VALUE"

	// ErrCodeInternal indicates an unexpected state, such as an unknown
	// variant or category.
	ErrCodeInternal ErrorCode = "INTERNAL"
)

// EvaluationError is the error returned by every failing value operation.
// It carries the source location of the expression being folded.
type EvaluationError struct {
	Code     ErrorCode
	Message  string
	Location ir.Location
}

func (e *EvaluationError) Error() string {
	if e.Location.IsValid() {
		return fmt.Sprintf("%s: %s: %s", e.Location, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func errorf(code ErrorCode, loc ir.Location, format string, args ...any) *EvaluationError {
	return &EvaluationError{Code: code, Message: fmt.Sprintf(format, args...), Location: loc}
}

func hasCode(err error, code ErrorCode) bool {
	var ee *EvaluationError
	if errors.As(err, &ee) {
		return ee.Code == code
	}
	return false
}

// IsEvaluationError returns true if err is (or wraps) an *EvaluationError.
func IsEvaluationError(err error) bool {
	var ee *EvaluationError
	return errors.As(err, &ee)
}

// IsUnsupported returns true if the error is an unsupported-operation error.
func IsUnsupported(err error) bool { return hasCode(err, ErrCodeUnsupported) }

// IsLengthMismatch returns true if the error is an array length mismatch.
func IsLengthMismatch(err error) bool { return hasCode(err, ErrCodeLengthMismatch) }

// IsOutOfBounds returns true if the error is an out-of-bounds array index.
func IsOutOfBounds(err error) bool { return hasCode(err, ErrCodeOutOfBounds) }

// IsRangeError returns true if the error is a range violation.
func IsRangeError(err error) bool { return hasCode(err, ErrCodeRange) }

// IsDivisionByZero returns true if the error is a division by zero.
func IsDivisionByZero(err error) bool { return hasCode(err, ErrCodeDivisionByZero) }

// IsInternal returns true if the error is an internal error.
func IsInternal(err error) bool { return hasCode(err, ErrCodeInternal) }
