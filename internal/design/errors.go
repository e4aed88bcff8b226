package design

import (
	"errors"
	"fmt"

	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/hdlelab/internal/ir"
)

// ErrUnitNotFound is returned when a unit reference does not resolve.
var ErrUnitNotFound = errors.New("design unit not found")

// ErrUnknownFunction is returned when an expression calls a function that is
// neither builtin nor declared in a package.
var ErrUnknownFunction = errors.New("unknown function")

// LoadError represents an error in a design description with source
// position.
type LoadError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// IsLoadError returns true if err is (or wraps) a *LoadError.
func IsLoadError(err error) bool {
	var le *LoadError
	return errors.As(err, &le)
}

func loadErrorf(field string, pos token.Pos, format string, args ...any) *LoadError {
	return &LoadError{Field: field, Message: fmt.Sprintf(format, args...), Pos: pos}
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := cueerrors.Positions(firstErr)
	if len(positions) > 0 {
		return &LoadError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}

// location converts a CUE position.
func location(pos token.Pos) ir.Location {
	if !pos.IsValid() {
		return ir.Location{}
	}
	return ir.Location{File: pos.Filename(), Line: pos.Line(), Col: pos.Column()}
}
