package interp

import (
	"fmt"
	"strings"

	"github.com/roach88/hdlelab/internal/ir"
	"github.com/roach88/hdlelab/internal/value"
)

// Param is a formal parameter of a subprogram.
type Param struct {
	Name string
	Type *value.Type
}

// Subprogram is a callable function. Exactly one of Builtin and Code is
// normally set; when both are, the interpreted Code wins.
type Subprogram struct {
	Name    string
	Params  []Param
	Result  *value.Type
	Builtin Builtin
	Code    *Code
}

func (s *Subprogram) String() string {
	names := make([]string, len(s.Params))
	for i, p := range s.Params {
		names[i] = p.Name
	}
	return fmt.Sprintf("%s(%s)", s.Name, strings.Join(names, ", "))
}

// CallStmt calls Sub with its arguments popped from the stack; the last
// argument is on top. The result is left on the stack.
type CallStmt struct {
	Sub *Subprogram
	Loc ir.Location
}

func (s *CallStmt) Execute(rt *Runtime) (ReturnStatus, error) {
	args, err := s.popArgs(rt)
	if err != nil {
		return Continue, err
	}

	switch {
	case s.Sub.Code != nil:
		bound := make(map[string]value.Value, len(args))
		for i, p := range s.Sub.Params {
			bound[p.Name] = args[i]
		}
		return rt.Call(s.Sub, bound, s.Loc)

	case s.Sub.Builtin != BuiltinNone:
		fn, ok := rt.builtins[s.Sub.Builtin]
		if !ok {
			return Continue, errorf(ErrCodeUnknownBuiltin, s.Loc, "no handler for builtin %s", s.Sub.Builtin)
		}
		r, err := fn(rt, args, s.Sub.Result, s.Loc)
		if err != nil {
			return Continue, fmt.Errorf("%s: %w", s.Sub.Name, err)
		}
		rt.Push(r)
		return Continue, nil

	default:
		return Continue, errorf(ErrCodeNoCode, s.Loc, "subprogram %s has neither builtin nor code", s.Sub.Name)
	}
}

func (s *CallStmt) popArgs(rt *Runtime) ([]value.Value, error) {
	args := make([]value.Value, len(s.Sub.Params))
	for i := len(args) - 1; i >= 0; i-- {
		v, err := rt.Pop(s.Loc)
		if err != nil {
			return nil, err
		}
		if pt := s.Sub.Params[i].Type; pt != nil {
			if v, err = value.Convert(v, pt, s.Loc); err != nil {
				return nil, err
			}
		}
		args[i] = v
	}
	return args, nil
}

func (s *CallStmt) Location() ir.Location { return s.Loc }
func (s *CallStmt) String() string        { return "call " + s.Sub.String() }
