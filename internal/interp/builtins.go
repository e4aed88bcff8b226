package interp

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/roach88/hdlelab/internal/ir"
	"github.com/roach88/hdlelab/internal/value"
)

// Builtin identifies a natively implemented subprogram.
type Builtin int

const (
	BuiltinNone Builtin = iota
	BuiltinMinimum
	BuiltinMaximum
	BuiltinClog2
	BuiltinNow
	BuiltinAbs
)

var builtinNames = map[Builtin]string{
	BuiltinMinimum: "minimum",
	BuiltinMaximum: "maximum",
	BuiltinClog2:   "clog2",
	BuiltinNow:     "now",
	BuiltinAbs:     "abs",
}

func (b Builtin) String() string {
	if n, ok := builtinNames[b]; ok {
		return n
	}
	return fmt.Sprintf("Builtin(%d)", int(b))
}

// BuiltinFunc implements a builtin. result is the declared result type and
// may be nil.
type BuiltinFunc func(rt *Runtime, args []value.Value, result *value.Type, loc ir.Location) (value.Value, error)

// LookupBuiltin finds the standard builtin subprogram named name.
func LookupBuiltin(name string) (*Subprogram, bool) {
	s, ok := standardSubprograms[strings.ToLower(strings.TrimSpace(name))]
	return s, ok
}

var standardBuiltins = map[Builtin]BuiltinFunc{
	BuiltinMinimum: minMax(value.OpMin),
	BuiltinMaximum: minMax(value.OpMax),
	BuiltinClog2:   clog2,
	BuiltinNow:     now,
	BuiltinAbs:     abs,
}

var standardSubprograms = map[string]*Subprogram{
	"minimum": {Name: "minimum", Builtin: BuiltinMinimum, Params: []Param{{Name: "L"}, {Name: "R"}}},
	"maximum": {Name: "maximum", Builtin: BuiltinMaximum, Params: []Param{{Name: "L"}, {Name: "R"}}},
	"clog2":   {Name: "clog2", Builtin: BuiltinClog2, Params: []Param{{Name: "N", Type: value.TypeInteger}}, Result: value.TypeNatural},
	"now":     {Name: "now", Builtin: BuiltinNow, Result: value.TypeTime},
	"abs":     {Name: "abs", Builtin: BuiltinAbs, Params: []Param{{Name: "X"}}},
}

func arity(args []value.Value, n int, loc ir.Location) error {
	if len(args) != n {
		return errorf(ErrCodeArgument, loc, "expected %d arguments, got %d", n, len(args))
	}
	return nil
}

func minMax(op value.BinaryOp) BuiltinFunc {
	return func(_ *Runtime, args []value.Value, result *value.Type, loc ir.Location) (value.Value, error) {
		if err := arity(args, 2, loc); err != nil {
			return nil, err
		}
		return value.ComputeBinary(args[0], args[1], op, result, loc)
	}
}

// clog2 returns the number of bits needed to address n items: 0 for n <= 1.
func clog2(_ *Runtime, args []value.Value, result *value.Type, loc ir.Location) (value.Value, error) {
	if err := arity(args, 1, loc); err != nil {
		return nil, err
	}
	n, ok := args[0].(*value.Integer)
	if !ok {
		return nil, errorf(ErrCodeArgument, loc, "clog2 of non-integer %s", args[0])
	}
	var bits int64
	if x := n.Num(); x.Cmp(big.NewInt(1)) > 0 {
		bits = int64(x.Sub(x, big.NewInt(1)).BitLen())
	}
	if result == nil {
		result = value.TypeNatural
	}
	return value.NewInteger(result, big.NewInt(bits), loc)
}

func now(rt *Runtime, args []value.Value, _ *value.Type, loc ir.Location) (value.Value, error) {
	if err := arity(args, 0, loc); err != nil {
		return nil, err
	}
	return value.NewInteger(value.TypeTime, rt.CurrentTime(), loc)
}

func abs(_ *Runtime, args []value.Value, _ *value.Type, loc ir.Location) (value.Value, error) {
	if err := arity(args, 1, loc); err != nil {
		return nil, err
	}
	return value.ComputeUnary(args[0], value.OpAbs, loc)
}
