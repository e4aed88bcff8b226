package value

import (
	"math/big"

	"github.com/cockroachdb/apd/v3"

	"github.com/roach88/hdlelab/internal/ir"
)

// maxPowerExponent bounds integer exponentiation.
const maxPowerExponent = 1 << 16

// ComputeUnary applies op to v.
func ComputeUnary(v Value, op UnaryOp, loc ir.Location) (Value, error) {
	switch x := v.(type) {
	case *Array:
		if op != OpNot {
			return nil, errorf(ErrCodeUnsupported, loc, "operation %s not implemented for array types", op)
		}
		b := NewBuilder(x.typ, loc)
		off := b.ArrayOffset()
		for i, e := range x.elems {
			r, err := ComputeUnary(e, op, loc)
			if err != nil {
				return nil, err
			}
			b.Set(i+off, r)
		}
		return b.Build()

	case *Integer:
		n := new(big.Int)
		switch op {
		case OpAbs:
			n.Abs(&x.num)
		case OpNeg:
			n.Neg(&x.num)
		default:
			return nil, errorf(ErrCodeUnsupported, loc, "unsupported operation %s on %s", op, x.typ)
		}
		return NewInteger(unbounded(x.typ), n, loc)

	case *Real:
		var d apd.Decimal
		switch op {
		case OpAbs:
			d.Abs(&x.dec)
		case OpNeg:
			d.Neg(&x.dec)
		default:
			return nil, errorf(ErrCodeUnsupported, loc, "unsupported operation %s on %s", op, x.typ)
		}
		return NewReal(x.typ, &d, loc)

	case *Char:
		if op != OpNot {
			return nil, errorf(ErrCodeUnsupported, loc, "unsupported operation %s on %s", op, x.typ)
		}
		if x.typ.IsBit() {
			return x.typ.Literal(1-x.ord, loc)
		}
		if x.typ.IsIEEELogic() {
			r, _ := logicNot(x.lit)
			return logicResult(x.typ, r, loc)
		}
		return nil, errorf(ErrCodeUnsupported, loc, "unsupported operation %s on %s", op, x.typ)

	case *Enum:
		if op != OpNot || !x.typ.IsBool() {
			return nil, errorf(ErrCodeUnsupported, loc, "unsupported operation %s on %s", op, x.typ)
		}
		return x.typ.Literal(1-x.ord, loc)

	case *Bool:
		if op != OpNot {
			return nil, errorf(ErrCodeUnsupported, loc, "unsupported operation %s on boolean", op)
		}
		return BoolOf(!x.v), nil

	case *Range, *Record, *File:
		return nil, errorf(ErrCodeUnsupported, loc, "unsupported operation %s on %s", op, typeOf(v))

	default:
		return nil, errorf(ErrCodeInternal, loc, "unknown value variant %T", v)
	}
}

// unbounded strips integer bounds so that NEG on a NATURAL yields an
// INTEGER rather than a range violation.
func unbounded(t *Type) *Type {
	if t.Low == nil && t.High == nil {
		return t
	}
	if t.Cat == CatInteger {
		return TypeInteger
	}
	c := *t
	c.Low, c.High = nil, nil
	return &c
}

// ComputeBinary applies op to a and b. Arithmetic is keyed by the result
// type's category; everything else by a's category. A nil resType makes
// comparisons return a synthetic *Bool and arithmetic use a's type.
func ComputeBinary(a, b Value, op BinaryOp, resType *Type, loc ir.Location) (Value, error) {
	if a == nil || b == nil {
		return nil, errorf(ErrCodeInternal, loc, "nil operand for %s", op)
	}
	if resType == nil && op.IsMath() {
		resType = a.Type()
	}

	if resType != nil && resType.IsNumeric() {
		if !op.IsMath() {
			return nil, errorf(ErrCodeUnsupported, loc, "unsupported %s operation: %s", resType.Cat, op)
		}
		return computeMath(a, b, op, resType, loc)
	}

	switch x := a.(type) {
	case *Array:
		return arrayBinary(x, b, op, resType, loc)

	case *Integer:
		if !op.IsComparison() {
			return nil, errorf(ErrCodeUnsupported, loc, "unsupported operation %s on %s", op, x.typ)
		}
		var c int
		if y, ok := b.(*Integer); ok {
			c = x.num.Cmp(&y.num)
		} else if db, ok := decimalOf(b); ok {
			c = decimalFromBig(&x.num).Cmp(db)
		} else {
			return nil, errorf(ErrCodeUnsupported, loc, "cannot compare %s with %s", x.typ, typeOf(b))
		}
		return boolResult(resType, compares(op, c), loc)

	case *Real:
		if !op.IsComparison() {
			return nil, errorf(ErrCodeUnsupported, loc, "unsupported operation for real types: %s", op)
		}
		db, ok := decimalOf(b)
		if !ok {
			return nil, errorf(ErrCodeUnsupported, loc, "cannot compare %s with %s", x.typ, typeOf(b))
		}
		return boolResult(resType, compares(op, x.dec.Cmp(db)), loc)

	case *Char:
		return enumBinary(&x.Enum, b, op, resType, loc)

	case *Enum:
		return enumBinary(x, b, op, resType, loc)

	case *Bool:
		y, ok := truthOf(b)
		if !ok {
			return nil, errorf(ErrCodeUnsupported, loc, "cannot combine boolean with %s", typeOf(b))
		}
		r, ok := boolGate(op, x.v, y)
		if !ok {
			return nil, errorf(ErrCodeUnsupported, loc, "unsupported boolean operation: %s", op)
		}
		return boolResult(resType, r, loc)

	case *Range, *Record, *File:
		if op != OpEqual && op != OpNEqual {
			return nil, errorf(ErrCodeUnsupported, loc, "unsupported operation %s on %s", op, x.Type())
		}
		eq, err := Equal(a, b)
		if err != nil {
			return nil, err
		}
		return boolResult(resType, eq == (op == OpEqual), loc)

	default:
		return nil, errorf(ErrCodeInternal, loc, "unknown value variant %T", a)
	}
}

func computeMath(a, b Value, op BinaryOp, resType *Type, loc ir.Location) (Value, error) {
	switch resType.Cat {
	case CatInteger:
		ai, aok := a.(*Integer)
		bi, bok := b.(*Integer)
		if aok && bok && ai.typ.Cat == CatInteger && bi.typ.Cat == CatInteger {
			n, err := integerMath(&ai.num, &bi.num, op, loc)
			if err != nil {
				return nil, err
			}
			return NewInteger(resType, n, loc)
		}
		d, err := decimalMath(a, b, op, loc)
		if err != nil {
			return nil, err
		}
		// Integer results of decimal operands are truncated.
		n, err := decimalToBig(d, apd.RoundDown)
		if err != nil {
			return nil, errorf(ErrCodeRange, loc, "%s", err)
		}
		return NewInteger(resType, n, loc)

	case CatReal:
		d, err := decimalMath(a, b, op, loc)
		if err != nil {
			return nil, err
		}
		return NewReal(resType, d, loc)

	case CatPhysical:
		d, err := decimalMath(a, b, op, loc)
		if err != nil {
			return nil, err
		}
		n, err := decimalToBig(d, apd.RoundHalfDown)
		if err != nil {
			return nil, errorf(ErrCodeRange, loc, "%s", err)
		}
		return NewInteger(resType, n, loc)

	default:
		return nil, errorf(ErrCodeInternal, loc, "%s is not a numeric category", resType.Cat)
	}
}

func integerMath(a, b *big.Int, op BinaryOp, loc ir.Location) (*big.Int, error) {
	r := new(big.Int)
	switch op {
	case OpAdd:
		r.Add(a, b)
	case OpSub:
		r.Sub(a, b)
	case OpMul:
		r.Mul(a, b)
	case OpDiv:
		if b.Sign() == 0 {
			return nil, errorf(ErrCodeDivisionByZero, loc, "integer division by zero")
		}
		r.Quo(a, b)
	case OpMod, OpRem:
		// REM is computed exactly like MOD.
		if b.Sign() == 0 {
			return nil, errorf(ErrCodeDivisionByZero, loc, "%s by zero", op)
		}
		r.Rem(a, b)
		if r.Sign() != 0 && r.Sign() != b.Sign() {
			r.Add(r, b)
		}
	case OpPower:
		if b.Sign() < 0 || b.Cmp(big.NewInt(maxPowerExponent)) > 0 {
			return nil, errorf(ErrCodeRange, loc, "integer exponent %s out of range", b)
		}
		r.Exp(a, b, nil)
	case OpMax:
		if a.Cmp(b) > 0 {
			r.Set(a)
		} else {
			r.Set(b)
		}
	case OpMin:
		if a.Cmp(b) < 0 {
			r.Set(a)
		} else {
			r.Set(b)
		}
	default:
		return nil, errorf(ErrCodeUnsupported, loc, "unsupported integer operation: %s", op)
	}
	return r, nil
}

func decimalMath(a, b Value, op BinaryOp, loc ir.Location) (*apd.Decimal, error) {
	da, aok := decimalOf(a)
	db, bok := decimalOf(b)
	if !aok || !bok {
		return nil, errorf(ErrCodeUnsupported, loc, "operation %s needs numeric operands, got %s and %s", op, typeOf(a), typeOf(b))
	}
	r := new(apd.Decimal)
	var err error
	switch op {
	case OpAdd:
		_, err = decimalCtx.Add(r, da, db)
	case OpSub:
		_, err = decimalCtx.Sub(r, da, db)
	case OpMul:
		_, err = decimalCtx.Mul(r, da, db)
	case OpDiv:
		if db.IsZero() {
			return nil, errorf(ErrCodeDivisionByZero, loc, "division by zero")
		}
		_, err = decimalCtx.Quo(r, da, db)
	case OpPower:
		exp, convErr := db.Int64()
		if convErr != nil || exp > maxPowerExponent || exp < -maxPowerExponent {
			return nil, errorf(ErrCodeRange, loc, "exponent %s must be a small integer", db.Text('f'))
		}
		_, err = decimalCtx.Pow(r, da, db)
	case OpMax:
		if da.Cmp(db) > 0 {
			r.Set(da)
		} else {
			r.Set(db)
		}
	case OpMin:
		if da.Cmp(db) < 0 {
			r.Set(da)
		} else {
			r.Set(db)
		}
	default:
		return nil, errorf(ErrCodeUnsupported, loc, "unsupported floating point operation: %s", op)
	}
	if err != nil {
		return nil, errorf(ErrCodeRange, loc, "%s: %s", op, err)
	}
	return r, nil
}

func arrayBinary(x *Array, b Value, op BinaryOp, resType *Type, loc ir.Location) (Value, error) {
	y, ok := b.(*Array)
	if !ok {
		return nil, errorf(ErrCodeUnsupported, loc, "operation %s between %s and %s", op, x.typ, typeOf(b))
	}
	switch {
	case op.IsLogical():
		if x.Len() != y.Len() {
			return nil, errorf(ErrCodeLengthMismatch, loc, "arrays of different length in binary operation: %d vs %d", x.Len(), y.Len())
		}
		bld := NewBuilder(x.typ, loc)
		off := bld.ArrayOffset()
		for i := range x.elems {
			r, err := ComputeBinary(x.elems[i], y.elems[i], op, x.typ.Element, loc)
			if err != nil {
				return nil, err
			}
			bld.Set(i+off, r)
		}
		return bld.Build()

	case op == OpEqual || op == OpNEqual:
		want := op == OpEqual
		if x.Len() != y.Len() {
			return boolResult(resType, !want, loc)
		}
		for i := range x.elems {
			eq, err := Equal(x.elems[i], y.elems[i])
			if err != nil {
				return nil, err
			}
			if !eq {
				return boolResult(resType, !want, loc)
			}
		}
		return boolResult(resType, want, loc)

	default:
		return nil, errorf(ErrCodeUnsupported, loc, "operation %s not implemented for array types", op)
	}
}

func enumBinary(x *Enum, b Value, op BinaryOp, resType *Type, loc ir.Location) (Value, error) {
	y := enumOf(b)
	if y == nil {
		if bb, ok := b.(*Bool); ok && x.typ.IsBool() {
			y = &Enum{typ: x.typ, ord: boolOrd(bb.v)}
		} else {
			return nil, errorf(ErrCodeUnsupported, loc, "operation %s between %s and %s", op, x.typ, typeOf(b))
		}
	}

	switch op {
	case OpAdd, OpSub:
		t := resType
		if t == nil {
			t = x.typ
		}
		if op == OpAdd {
			return t.Literal(x.ord+y.ord, loc)
		}
		return t.Literal(x.ord-y.ord, loc)
	case OpEqual, OpNEqual, OpGreater, OpGreaterEq, OpLess, OpLessEq:
		return boolResult(resType, compares(op, x.ord-y.ord), loc)
	}

	ta := x.typ
	switch {
	case ta.IsBool():
		r, ok := boolGate(op, x.ord == 1, y.ord == 1)
		if !ok {
			return nil, errorf(ErrCodeUnsupported, loc, "unsupported boolean operation: %s", op)
		}
		return ta.Literal(boolOrd(r), loc)

	case ta.IsLogic():
		ca := charAt(x)
		cb := charAt(y)
		r, ok := logicBinary(op, ca, cb)
		if !ok {
			return nil, errorf(ErrCodeUnsupported, loc, "unsupported logic operation %s on '%c' and '%c'", op, ca, cb)
		}
		return logicResult(ta, r, loc)

	default:
		return nil, errorf(ErrCodeUnsupported, loc, "operation %s not implemented for %s", op, ta)
	}
}

func enumOf(v Value) *Enum {
	switch x := v.(type) {
	case *Enum:
		return x
	case *Char:
		return &x.Enum
	}
	return nil
}

func charAt(e *Enum) rune {
	lit := e.typ.Literals[e.ord]
	if isCharLiteral(lit) {
		return charOf(lit)
	}
	return 0
}

func truthOf(v Value) (bool, bool) {
	switch x := v.(type) {
	case *Bool:
		return x.v, true
	case *Enum:
		if x.typ.IsBool() {
			return x.ord == 1, true
		}
	}
	return false, false
}

func boolOrd(b bool) int {
	if b {
		return 1
	}
	return 0
}

func boolGate(op BinaryOp, a, b bool) (bool, bool) {
	switch op {
	case OpAnd:
		return a && b, true
	case OpNand:
		return !(a && b), true
	case OpOr:
		return a || b, true
	case OpNor:
		return !(a || b), true
	case OpXor:
		return a != b, true
	case OpXnor:
		return a == b, true
	case OpEqual:
		return a == b, true
	case OpNEqual:
		return a != b, true
	}
	return false, false
}

func compares(op BinaryOp, c int) bool {
	switch op {
	case OpEqual:
		return c == 0
	case OpNEqual:
		return c != 0
	case OpGreater:
		return c > 0
	case OpGreaterEq:
		return c >= 0
	case OpLess:
		return c < 0
	case OpLessEq:
		return c <= 0
	}
	return false
}

// boolResult returns the 1 or 0 literal of the result enum type, or a
// synthetic boolean when there is no result type.
func boolResult(t *Type, b bool, loc ir.Location) (Value, error) {
	if t == nil {
		return BoolOf(b), nil
	}
	if t.Cat != CatEnum {
		return nil, errorf(ErrCodeUnsupported, loc, "comparison cannot yield %s", t)
	}
	return t.Literal(boolOrd(b), loc)
}
