package interp

import (
	"fmt"
	"strings"

	"github.com/roach88/hdlelab/internal/ir"
	"github.com/roach88/hdlelab/internal/value"
)

// Stmt is one executable interpreter statement.
type Stmt interface {
	Execute(rt *Runtime) (ReturnStatus, error)
	Location() ir.Location
	String() string
}

// Code is a straight-line statement sequence: the body of an interpreted
// subprogram or a compiled expression.
type Code struct {
	Name     string
	Stmts    []Stmt
	Location ir.Location
}

// Append adds statements to the end of c and returns c.
func (c *Code) Append(stmts ...Stmt) *Code {
	c.Stmts = append(c.Stmts, stmts...)
	return c
}

// String dumps the code one statement per line.
func (c *Code) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "code %s\n", c.Name)
	for i, s := range c.Stmts {
		fmt.Fprintf(&sb, "  %3d  %s\n", i, s)
	}
	return sb.String()
}

// PushStmt pushes a constant.
type PushStmt struct {
	Value value.Value
	Loc   ir.Location
}

func (s *PushStmt) Execute(rt *Runtime) (ReturnStatus, error) {
	rt.Push(s.Value)
	return Continue, nil
}

func (s *PushStmt) Location() ir.Location { return s.Loc }
func (s *PushStmt) String() string        { return "push " + s.Value.String() }

// LoadStmt pushes the value bound to Name.
type LoadStmt struct {
	Name string
	Loc  ir.Location
}

func (s *LoadStmt) Execute(rt *Runtime) (ReturnStatus, error) {
	v, ok := rt.Lookup(s.Name)
	if !ok {
		return Continue, errorf(ErrCodeUndefined, s.Loc, "%q is not defined", s.Name)
	}
	rt.Push(v)
	return Continue, nil
}

func (s *LoadStmt) Location() ir.Location { return s.Loc }
func (s *LoadStmt) String() string        { return "load " + s.Name }

// UnaryStmt replaces the stack top with op applied to it.
type UnaryStmt struct {
	Op  value.UnaryOp
	Loc ir.Location
}

func (s *UnaryStmt) Execute(rt *Runtime) (ReturnStatus, error) {
	v, err := rt.Pop(s.Loc)
	if err != nil {
		return Continue, err
	}
	r, err := value.ComputeUnary(v, s.Op, s.Loc)
	if err != nil {
		return Continue, err
	}
	rt.Push(r)
	return Continue, nil
}

func (s *UnaryStmt) Location() ir.Location { return s.Loc }
func (s *UnaryStmt) String() string        { return "unary " + s.Op.String() }

// BinaryStmt pops the right then the left operand and pushes the result.
// A nil ResultType lets math operators take the left operand's type and
// comparisons yield a synthetic boolean.
type BinaryStmt struct {
	Op         value.BinaryOp
	ResultType *value.Type
	Loc        ir.Location
}

func (s *BinaryStmt) Execute(rt *Runtime) (ReturnStatus, error) {
	b, err := rt.Pop(s.Loc)
	if err != nil {
		return Continue, err
	}
	a, err := rt.Pop(s.Loc)
	if err != nil {
		return Continue, err
	}
	r, err := value.ComputeBinary(a, b, s.Op, s.ResultType, s.Loc)
	if err != nil {
		return Continue, err
	}
	rt.Push(r)
	return Continue, nil
}

func (s *BinaryStmt) Location() ir.Location { return s.Loc }

func (s *BinaryStmt) String() string {
	if s.ResultType != nil {
		return fmt.Sprintf("binary %s : %s", s.Op, s.ResultType.Name)
	}
	return "binary " + s.Op.String()
}

// ReturnStmt leaves the current code. With HasValue set the stack top is
// converted to the frame's result type first.
type ReturnStmt struct {
	HasValue bool
	Loc      ir.Location
}

func (s *ReturnStmt) Execute(rt *Runtime) (ReturnStatus, error) {
	if !s.HasValue {
		return Return, nil
	}
	v, err := rt.Pop(s.Loc)
	if err != nil {
		return Continue, err
	}
	if res := rt.currentFrame().Result; res != nil {
		if v, err = value.Convert(v, res, s.Loc); err != nil {
			return Continue, err
		}
	}
	rt.Push(v)
	return Return, nil
}

func (s *ReturnStmt) Location() ir.Location { return s.Loc }

func (s *ReturnStmt) String() string {
	if s.HasValue {
		return "return value"
	}
	return "return"
}

// ScheduleTimedWakeupStmt pops a duration, registers a wakeup at the
// current time plus that duration and pushes the absolute wakeup time, typed
// like the duration, for a later timeout check.
type ScheduleTimedWakeupStmt struct {
	Loc ir.Location
}

func (s *ScheduleTimedWakeupStmt) Execute(rt *Runtime) (ReturnStatus, error) {
	v, err := rt.Pop(s.Loc)
	if err != nil {
		return Continue, err
	}
	d, ok := v.(*value.Integer)
	if !ok {
		return Continue, errorf(ErrCodeArgument, s.Loc, "wait duration must be integer or physical, got %s", v)
	}
	n := d.Num()
	if n.Sign() < 0 {
		return Continue, errorf(ErrCodeArgument, s.Loc, "negative wait duration %s", d)
	}
	at := n.Add(n, rt.CurrentTime())
	if err := rt.ScheduleWakeup(at, s.Loc); err != nil {
		return Continue, err
	}
	w, err := value.NewInteger(d.Type(), at, s.Loc)
	if err != nil {
		return Continue, err
	}
	rt.Push(w)
	return Continue, nil
}

func (s *ScheduleTimedWakeupStmt) Location() ir.Location { return s.Loc }
func (s *ScheduleTimedWakeupStmt) String() string        { return "schedule_timed_wakeup" }
