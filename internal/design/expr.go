package design

import (
	"fmt"
	"strings"

	"github.com/roach88/hdlelab/internal/ig"
	"github.com/roach88/hdlelab/internal/interp"
	"github.com/roach88/hdlelab/internal/ir"
	"github.com/roach88/hdlelab/internal/value"
)

// Expr is a constant expression: a literal, a name, an operator or a call.
type Expr interface {
	Location() ir.Location
	String() string
	compile(c *compiler) error
}

// Lit is a literal value.
type Lit struct {
	Value value.Value
	Loc   ir.Location
}

// Ref refers to a generic, a generate parameter or a function parameter.
type Ref struct {
	Name string
	Loc  ir.Location
}

// Unary applies a unary operator.
type Unary struct {
	Op  value.UnaryOp
	X   Expr
	Loc ir.Location
}

// Binary applies a binary operator.
type Binary struct {
	Op   value.BinaryOp
	L, R Expr
	Loc  ir.Location
}

// Call calls a builtin or package function.
type Call struct {
	Func string
	Args []Expr
	Loc  ir.Location
}

func (e *Lit) Location() ir.Location    { return e.Loc }
func (e *Ref) Location() ir.Location    { return e.Loc }
func (e *Unary) Location() ir.Location  { return e.Loc }
func (e *Binary) Location() ir.Location { return e.Loc }
func (e *Call) Location() ir.Location   { return e.Loc }

func (e *Lit) String() string {
	if a, ok := e.Value.(*value.Array); ok && a.Type().IsLogic() {
		return `"` + a.String() + `"`
	}
	if c, ok := e.Value.(*value.Char); ok {
		return value.CharLiteral(c.Rune())
	}
	return e.Value.String()
}

func (e *Ref) String() string { return ir.NormalizeIdent(e.Name) }

func (e *Unary) String() string {
	if e.Op == value.OpNeg {
		return "-" + e.X.String()
	}
	return e.Op.String() + " " + e.X.String()
}

func (e *Binary) String() string {
	return "(" + e.L.String() + " " + e.Op.String() + " " + e.R.String() + ")"
}

func (e *Call) String() string {
	args := make([]string, len(e.Args))
	for i, a := range e.Args {
		args[i] = a.String()
	}
	return strings.ToLower(e.Func) + "(" + strings.Join(args, ", ") + ")"
}

// Functions resolves function names for calls.
type Functions interface {
	Function(name string) (*interp.Subprogram, error)
}

type compiler struct {
	funcs Functions
	code  *interp.Code
}

func (e *Lit) compile(c *compiler) error {
	c.code.Append(&interp.PushStmt{Value: e.Value, Loc: e.Loc})
	return nil
}

func (e *Ref) compile(c *compiler) error {
	c.code.Append(&interp.LoadStmt{Name: e.Name, Loc: e.Loc})
	return nil
}

func (e *Unary) compile(c *compiler) error {
	if err := e.X.compile(c); err != nil {
		return err
	}
	c.code.Append(&interp.UnaryStmt{Op: e.Op, Loc: e.Loc})
	return nil
}

func (e *Binary) compile(c *compiler) error {
	if err := e.L.compile(c); err != nil {
		return err
	}
	if err := e.R.compile(c); err != nil {
		return err
	}
	c.code.Append(&interp.BinaryStmt{Op: e.Op, Loc: e.Loc})
	return nil
}

func (e *Call) compile(c *compiler) error {
	if c.funcs == nil {
		return fmt.Errorf("%s: %s: %w", e.Loc, e.Func, ErrUnknownFunction)
	}
	sub, err := c.funcs.Function(e.Func)
	if err != nil {
		return fmt.Errorf("%s: %w", e.Loc, err)
	}
	if len(e.Args) != len(sub.Params) {
		return fmt.Errorf("%s: %s expects %d arguments, got %d", e.Loc, sub.Name, len(sub.Params), len(e.Args))
	}
	for _, a := range e.Args {
		if err := a.compile(c); err != nil {
			return err
		}
	}
	c.code.Append(&interp.CallStmt{Sub: sub, Loc: e.Loc})
	return nil
}

// Compile translates e into interpreter code leaving its value on the stack.
func Compile(e Expr, funcs Functions) (*interp.Code, error) {
	c := &compiler{funcs: funcs, code: &interp.Code{Name: e.String(), Location: e.Location()}}
	if err := e.compile(c); err != nil {
		return nil, err
	}
	return c.code, nil
}

// Eval folds e to a constant with the given bindings in scope.
func Eval(e Expr, funcs Functions, bindings ...ig.Generic) (value.Value, error) {
	code, err := Compile(e, funcs)
	if err != nil {
		return nil, err
	}
	rt := interp.NewRuntime()
	for _, b := range bindings {
		rt.Define(b.Name, b.Value)
	}
	return rt.Eval(code)
}

// EvalInt folds e and requires an integer result that fits an int.
func EvalInt(e Expr, funcs Functions, bindings ...ig.Generic) (int, error) {
	v, err := Eval(e, funcs, bindings...)
	if err != nil {
		return 0, err
	}
	n, ok := v.(*value.Integer)
	if !ok {
		return 0, fmt.Errorf("%s: %s is not an integer", e.Location(), e)
	}
	i, ok := n.Int64()
	if !ok || int64(int(i)) != i {
		return 0, fmt.Errorf("%s: %s out of range", e.Location(), n)
	}
	return int(i), nil
}

// TypeRef is a declared type: a predefined base type, optionally sized by a
// width expression. A sized array type is constrained to (width-1 downto 0).
type TypeRef struct {
	Base  *value.Type
	Width Expr
}

// Resolve produces the concrete type for the given bindings.
func (t TypeRef) Resolve(funcs Functions, bindings ...ig.Generic) (*value.Type, error) {
	if t.Width == nil {
		return t.Base, nil
	}
	if t.Base.Cat != value.CatArray {
		return nil, fmt.Errorf("%s: width given for scalar type %s", t.Width.Location(), t.Base)
	}
	w, err := EvalInt(t.Width, funcs, bindings...)
	if err != nil {
		return nil, err
	}
	if w < 0 {
		return nil, fmt.Errorf("%s: negative width %d for %s", t.Width.Location(), w, t.Base)
	}
	return t.Base.Constrain(w-1, 0, false), nil
}

func (t TypeRef) String() string {
	if t.Width == nil {
		return t.Base.String()
	}
	return fmt.Sprintf("%s(%s)", t.Base, t.Width)
}
