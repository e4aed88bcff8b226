package value

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustReal(t *testing.T, s string) *Real {
	t.Helper()
	d, err := ParseDecimal(s)
	require.NoError(t, err)
	r, err := NewReal(TypeReal, d, noLocation)
	require.NoError(t, err)
	return r
}

func mustTime(t *testing.T, fs int64) *Integer {
	t.Helper()
	v, err := NewInteger(TypeTime, big.NewInt(fs), noLocation)
	require.NoError(t, err)
	return v
}

func TestIntegerArithmetic(t *testing.T) {
	tests := []struct {
		a, b int64
		op   BinaryOp
		want string
	}{
		{7, 3, OpAdd, "10"},
		{7, 3, OpSub, "4"},
		{7, 3, OpMul, "21"},
		{7, 2, OpDiv, "3"},
		{-7, 2, OpDiv, "-3"},
		{7, 3, OpMod, "1"},
		{-7, 3, OpMod, "2"},
		{7, -3, OpMod, "-2"},
		{-7, 3, OpRem, "2"},
		{2, 10, OpPower, "1024"},
		{4, 9, OpMax, "9"},
		{4, 9, OpMin, "4"},
	}
	for _, tt := range tests {
		t.Run(tt.op.String(), func(t *testing.T) {
			got, err := ComputeBinary(IntOf(tt.a), IntOf(tt.b), tt.op, TypeInteger, noLocation)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestIntegerArbitraryPrecision(t *testing.T) {
	got, err := ComputeBinary(IntOf(2), IntOf(100), OpPower, TypeInteger, noLocation)
	require.NoError(t, err)
	assert.Equal(t, "1267650600228229401496703205376", got.String())
}

func TestIntegerDivisionByZero(t *testing.T) {
	for _, op := range []BinaryOp{OpDiv, OpMod, OpRem} {
		_, err := ComputeBinary(IntOf(1), IntOf(0), op, TypeInteger, noLocation)
		assert.True(t, IsDivisionByZero(err), op.String())
	}
	_, err := ComputeBinary(mustReal(t, "1"), mustReal(t, "0"), OpDiv, TypeReal, noLocation)
	assert.True(t, IsDivisionByZero(err))
}

func TestIntegerResultBoundsChecked(t *testing.T) {
	_, err := ComputeBinary(IntOf(1), IntOf(2), OpSub, TypeNatural, noLocation)
	assert.True(t, IsRangeError(err))
}

func TestRealArithmetic(t *testing.T) {
	got, err := ComputeBinary(mustReal(t, "1.5"), mustReal(t, "2.25"), OpAdd, TypeReal, noLocation)
	require.NoError(t, err)
	assert.Equal(t, "3.75", got.String())

	got, err = ComputeBinary(mustReal(t, "1"), mustReal(t, "8"), OpDiv, TypeReal, noLocation)
	require.NoError(t, err)
	assert.Equal(t, "0.125", got.String())

	got, err = ComputeBinary(mustReal(t, "1"), mustReal(t, "3"), OpDiv, TypeReal, noLocation)
	require.NoError(t, err)
	assert.Equal(t, "0.3333333333333333333333333333333333", got.String())

	got, err = ComputeBinary(mustReal(t, "2.5"), mustReal(t, "4"), OpMul, TypeReal, noLocation)
	require.NoError(t, err)
	assert.Equal(t, "10", got.String())

	got, err = ComputeBinary(mustReal(t, "1.5"), IntOf(2), OpPower, TypeReal, noLocation)
	require.NoError(t, err)
	assert.Equal(t, "2.25", got.String())
}

func TestRealModUnsupported(t *testing.T) {
	_, err := ComputeBinary(mustReal(t, "1"), mustReal(t, "2"), OpMod, TypeReal, noLocation)
	assert.True(t, IsUnsupported(err))
}

func TestIntegerResultFromDecimalTruncates(t *testing.T) {
	got, err := ComputeBinary(mustReal(t, "7.9"), mustReal(t, "2"), OpDiv, TypeInteger, noLocation)
	require.NoError(t, err)
	assert.Equal(t, "3", got.String())

	// 10 ns / 3 ns
	got, err = ComputeBinary(mustTime(t, 10_000_000), mustTime(t, 3_000_000), OpDiv, TypeInteger, noLocation)
	require.NoError(t, err)
	assert.Equal(t, "3", got.String())
}

func TestPhysicalDivisionRoundsHalfDown(t *testing.T) {
	tests := []struct {
		fs   int64
		want string
	}{
		{5, "2 fs"},
		{7, "3 fs"},
		{-5, "-2 fs"},
		{9, "4 fs"},
	}
	for _, tt := range tests {
		got, err := ComputeBinary(mustTime(t, tt.fs), IntOf(2), OpDiv, TypeTime, noLocation)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got.String())
	}

	got, err := ComputeBinary(IntOf(3), mustTime(t, 1_000_000), OpMul, TypeTime, noLocation)
	require.NoError(t, err)
	assert.Equal(t, "3000000 fs", got.String())
}

func TestNumericComparisons(t *testing.T) {
	got, err := ComputeBinary(IntOf(3), IntOf(5), OpLess, TypeBoolean, noLocation)
	require.NoError(t, err)
	assert.Equal(t, "TRUE", got.String())

	got, err = ComputeBinary(IntOf(3), IntOf(5), OpGreaterEq, TypeBit, noLocation)
	require.NoError(t, err)
	assert.Equal(t, "0", got.String())

	got, err = ComputeBinary(mustReal(t, "2.5"), IntOf(2), OpGreater, nil, noLocation)
	require.NoError(t, err)
	assert.Equal(t, True, got)

	got, err = ComputeBinary(mustTime(t, 10), mustTime(t, 10), OpEqual, TypeBoolean, noLocation)
	require.NoError(t, err)
	assert.Equal(t, "TRUE", got.String())
}

func TestComparisonWithNumericResultUnsupported(t *testing.T) {
	_, err := ComputeBinary(IntOf(3), IntOf(5), OpLess, TypeInteger, noLocation)
	assert.True(t, IsUnsupported(err))
}

func TestEnumOrdinalOps(t *testing.T) {
	u := stdLogic(t, 'U')
	one := stdLogic(t, '1')

	got, err := ComputeBinary(u, one, OpAdd, TypeStdLogic, noLocation)
	require.NoError(t, err)
	assert.Equal(t, "1", got.String()) // ord 0 + ord 3

	got, err = ComputeBinary(one, u, OpGreater, TypeBoolean, noLocation)
	require.NoError(t, err)
	assert.Equal(t, "TRUE", got.String())

	_, err = ComputeBinary(one, one, OpAdd, TypeBit, noLocation)
	assert.True(t, IsRangeError(err))
}

func TestBooleanLogic(t *testing.T) {
	tr, err := TypeBoolean.Literal(1, noLocation)
	require.NoError(t, err)
	fa, err := TypeBoolean.Literal(0, noLocation)
	require.NoError(t, err)

	tests := []struct {
		op   BinaryOp
		want string
	}{
		{OpAnd, "FALSE"}, {OpOr, "TRUE"}, {OpNand, "TRUE"},
		{OpNor, "FALSE"}, {OpXor, "TRUE"}, {OpXnor, "FALSE"},
	}
	for _, tt := range tests {
		got, err := ComputeBinary(tr, fa, tt.op, TypeBoolean, noLocation)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got.String(), tt.op.String())
	}

	got, err := ComputeUnary(tr, OpNot, noLocation)
	require.NoError(t, err)
	assert.Equal(t, "FALSE", got.String())

	got, err = ComputeBinary(True, False, OpOr, nil, noLocation)
	require.NoError(t, err)
	assert.Equal(t, True, got)
}

func TestUnaryNumeric(t *testing.T) {
	got, err := ComputeUnary(IntOf(-5), OpAbs, noLocation)
	require.NoError(t, err)
	assert.Equal(t, "5", got.String())

	n, err := NewInteger(TypeNatural, big.NewInt(5), noLocation)
	require.NoError(t, err)
	got, err = ComputeUnary(n, OpNeg, noLocation)
	require.NoError(t, err)
	assert.Equal(t, "-5", got.String())
	assert.Same(t, TypeInteger, got.Type())

	got, err = ComputeUnary(mustReal(t, "-2.5"), OpAbs, noLocation)
	require.NoError(t, err)
	assert.Equal(t, "2.5", got.String())

	_, err = ComputeUnary(IntOf(1), OpNot, noLocation)
	assert.True(t, IsUnsupported(err))
}

func TestArrayNot(t *testing.T) {
	v, err := LogicVector(TypeStdLogicVector, "10ZU", noLocation)
	require.NoError(t, err)
	got, err := ComputeUnary(v, OpNot, noLocation)
	require.NoError(t, err)
	assert.Equal(t, "01XU", got.String())

	_, err = ComputeUnary(v, OpNeg, noLocation)
	assert.True(t, IsUnsupported(err))
}

func TestArrayElementwise(t *testing.T) {
	a, err := LogicVector(TypeStdLogicVector, "1100", noLocation)
	require.NoError(t, err)
	b, err := LogicVector(TypeStdLogicVector, "1010", noLocation)
	require.NoError(t, err)

	got, err := ComputeBinary(a, b, OpAnd, TypeStdLogicVector, noLocation)
	require.NoError(t, err)
	assert.Equal(t, "1000", got.String())

	got, err = ComputeBinary(a, b, OpXor, TypeStdLogicVector, noLocation)
	require.NoError(t, err)
	assert.Equal(t, "0110", got.String())

	short, err := LogicVector(TypeStdLogicVector, "10", noLocation)
	require.NoError(t, err)
	_, err = ComputeBinary(a, short, OpOr, TypeStdLogicVector, noLocation)
	assert.True(t, IsLengthMismatch(err))
}

func TestArrayEquality(t *testing.T) {
	a, err := LogicVector(TypeStdLogicVector, "1100", noLocation)
	require.NoError(t, err)
	same, err := LogicVector(TypeStdLogicVector, "1100", noLocation)
	require.NoError(t, err)
	diff, err := LogicVector(TypeStdLogicVector, "1101", noLocation)
	require.NoError(t, err)
	short, err := LogicVector(TypeStdLogicVector, "110", noLocation)
	require.NoError(t, err)

	for _, tt := range []struct {
		b    Value
		op   BinaryOp
		want string
	}{
		{same, OpEqual, "TRUE"},
		{diff, OpEqual, "FALSE"},
		{short, OpEqual, "FALSE"},
		{short, OpNEqual, "TRUE"},
		{same, OpNEqual, "FALSE"},
	} {
		got, err := ComputeBinary(a, tt.b, tt.op, TypeBoolean, noLocation)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got.String())
	}

	_, err = ComputeBinary(a, same, OpLess, TypeBoolean, noLocation)
	assert.True(t, IsUnsupported(err))
}

func TestUnsupportedCategories(t *testing.T) {
	f, err := NewBuilder(&Type{Name: "TEXT", Cat: CatFile}, noLocation).SetFile("a.txt").Build()
	require.NoError(t, err)
	_, err = ComputeBinary(f, f, OpAdd, nil, noLocation)
	assert.True(t, IsUnsupported(err))

	got, err := ComputeBinary(f, f, OpEqual, nil, noLocation)
	require.NoError(t, err)
	assert.Equal(t, True, got)
}

func TestParseOps(t *testing.T) {
	op, ok := ParseBinaryOp("XNOR")
	require.True(t, ok)
	assert.Equal(t, OpXnor, op)

	op, ok = ParseBinaryOp("/=")
	require.True(t, ok)
	assert.Equal(t, OpNEqual, op)

	uop, ok := ParseUnaryOp("abs")
	require.True(t, ok)
	assert.Equal(t, OpAbs, uop)

	_, ok = ParseBinaryOp("??")
	assert.False(t, ok)
}
