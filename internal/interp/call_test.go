package interp

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/hdlelab/internal/ir"
	"github.com/roach88/hdlelab/internal/value"
)

// double(x) = x * 2
func doubleFunc() *Subprogram {
	return &Subprogram{
		Name:   "double",
		Params: []Param{{Name: "x", Type: value.TypeInteger}},
		Result: value.TypeInteger,
		Code: (&Code{Name: "double"}).Append(
			&LoadStmt{Name: "x"},
			&PushStmt{Value: value.IntOf(2)},
			&BinaryStmt{Op: value.OpMul, ResultType: value.TypeInteger},
			&ReturnStmt{HasValue: true},
			&PushStmt{Value: value.IntOf(999)},
		),
	}
}

func call(t *testing.T, rt *Runtime, sub *Subprogram, args ...value.Value) (value.Value, error) {
	t.Helper()
	code := &Code{Name: "caller"}
	for _, a := range args {
		code.Append(&PushStmt{Value: a})
	}
	code.Append(&CallStmt{Sub: sub})
	return rt.Eval(code)
}

func TestCallInterpreted(t *testing.T) {
	rt := NewRuntime()
	v, err := call(t, rt, doubleFunc(), value.IntOf(21))
	require.NoError(t, err)
	assert.Equal(t, "42", v.String())
	assert.Equal(t, 0, rt.Depth())
	assert.Equal(t, 0, rt.StackDepth(), "statements after return must not run")
}

func TestCallArgumentOrder(t *testing.T) {
	sub := &Subprogram{
		Name:   "minus",
		Params: []Param{{Name: "a"}, {Name: "b"}},
		Code: (&Code{}).Append(
			&LoadStmt{Name: "a"},
			&LoadStmt{Name: "b"},
			&BinaryStmt{Op: value.OpSub},
			&ReturnStmt{HasValue: true},
		),
	}
	v, err := call(t, NewRuntime(), sub, value.IntOf(10), value.IntOf(3))
	require.NoError(t, err)
	assert.Equal(t, "7", v.String())
}

func TestCallConvertsResult(t *testing.T) {
	sub := &Subprogram{
		Name:   "neg_nat",
		Params: []Param{{Name: "a"}},
		Result: value.TypeNatural,
		Code: (&Code{}).Append(
			&LoadStmt{Name: "a"},
			&UnaryStmt{Op: value.OpNeg},
			&ReturnStmt{HasValue: true},
		),
	}
	_, err := call(t, NewRuntime(), sub, value.IntOf(3))
	require.Error(t, err)
	assert.True(t, value.IsRangeError(err))
}

func TestCalleeDoesNotSeeCallerLocals(t *testing.T) {
	rt := NewRuntime()
	rt.Define("G", value.IntOf(5))

	inner := &Subprogram{
		Name: "inner",
		Code: (&Code{}).Append(&LoadStmt{Name: "LOCAL"}, &ReturnStmt{HasValue: true}),
	}
	outer := &Subprogram{
		Name:   "outer",
		Params: []Param{{Name: "local"}},
		Code:   (&Code{}).Append(&CallStmt{Sub: inner}, &ReturnStmt{HasValue: true}),
	}
	_, err := call(t, rt, outer, value.IntOf(1))
	require.Error(t, err)

	global := &Subprogram{
		Name: "global",
		Code: (&Code{}).Append(&LoadStmt{Name: "g"}, &ReturnStmt{HasValue: true}),
	}
	v, err := call(t, rt, global)
	require.NoError(t, err)
	assert.Equal(t, "5", v.String())
}

func TestCallRecursionDepthCapped(t *testing.T) {
	loop := &Subprogram{Name: "loop"}
	loop.Code = (&Code{}).Append(&CallStmt{Sub: loop}, &ReturnStmt{})

	rt := NewRuntime(WithMaxCallDepth(8))
	_, err := (&CallStmt{Sub: loop}).Execute(rt)
	require.Error(t, err)
	var re *RuntimeError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, ErrCodeCallDepth, re.Code)
	assert.Equal(t, 0, rt.Depth())
}

func TestCallWithoutBodyIsInternal(t *testing.T) {
	_, err := (&CallStmt{Sub: &Subprogram{Name: "ghost"}}).Execute(NewRuntime())
	require.Error(t, err)
	assert.True(t, IsInternal(err))
}

func TestInterpretedCodeWinsOverBuiltin(t *testing.T) {
	sub := doubleFunc()
	sub.Builtin = BuiltinAbs
	v, err := call(t, NewRuntime(), sub, value.IntOf(-4))
	require.NoError(t, err)
	assert.Equal(t, "-8", v.String())
}

func TestBuiltins(t *testing.T) {
	tests := []struct {
		name string
		args []value.Value
		want string
	}{
		{"minimum", []value.Value{value.IntOf(3), value.IntOf(9)}, "3"},
		{"maximum", []value.Value{value.IntOf(3), value.IntOf(9)}, "9"},
		{"abs", []value.Value{value.IntOf(-12)}, "12"},
		{"clog2", []value.Value{value.IntOf(1)}, "0"},
		{"clog2", []value.Value{value.IntOf(2)}, "1"},
		{"clog2", []value.Value{value.IntOf(8)}, "3"},
		{"clog2", []value.Value{value.IntOf(9)}, "4"},
		{"CLOG2", []value.Value{value.IntOf(1024)}, "10"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub, ok := LookupBuiltin(tt.name)
			require.True(t, ok)
			v, err := call(t, NewRuntime(), sub, tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, v.String())
		})
	}
}

func TestBuiltinNow(t *testing.T) {
	sub, ok := LookupBuiltin("now")
	require.True(t, ok)
	v, err := call(t, NewRuntime(WithTime(big.NewInt(7))), sub)
	require.NoError(t, err)
	assert.Equal(t, "7 fs", v.String())
}

func TestBuiltinRejectsWrongArgument(t *testing.T) {
	sub, _ := LookupBuiltin("clog2")
	_, err := call(t, NewRuntime(), sub, value.TypeBit.FindChar('0'))
	require.Error(t, err)
}

func TestUnknownBuiltinHandler(t *testing.T) {
	sub := &Subprogram{Name: "odd", Builtin: Builtin(99)}
	_, err := (&CallStmt{Sub: sub}).Execute(NewRuntime())
	require.Error(t, err)
	assert.True(t, IsInternal(err))
}

func TestWithBuiltinOverride(t *testing.T) {
	rt := NewRuntime(WithBuiltin(BuiltinNow, func(*Runtime, []value.Value, *value.Type, ir.Location) (value.Value, error) {
		return value.IntOf(1), nil
	}))
	sub, _ := LookupBuiltin("now")
	v, err := call(t, rt, sub)
	require.NoError(t, err)
	assert.Equal(t, "1", v.String())
}
