package value

import (
	"math/big"

	"github.com/cockroachdb/apd/v3"

	"github.com/roach88/hdlelab/internal/ir"
)

// Value is a sealed interface over the constant-value variants.
// Only the types in this file implement it.
type Value interface {
	// Type returns the value's type descriptor; nil only for *Bool.
	Type() *Type
	// String renders the value for humans, type-category aware.
	String() string

	value() // sealed
}

// Integer is a value of an integer or physical type. A physical value's
// magnitude counts primary units.
type Integer struct {
	typ *Type
	num big.Int
}

func (*Integer) value() {}

// Type implements Value.
func (v *Integer) Type() *Type { return v.typ }

// Num returns a copy of the magnitude.
func (v *Integer) Num() *big.Int { return new(big.Int).Set(&v.num) }

// Int64 returns the magnitude if it fits into an int64.
func (v *Integer) Int64() (int64, bool) {
	if !v.num.IsInt64() {
		return 0, false
	}
	return v.num.Int64(), true
}

// Real is a value of a floating point type, held as an exact decimal.
type Real struct {
	typ *Type
	dec apd.Decimal
}

func (*Real) value() {}

// Type implements Value.
func (v *Real) Type() *Type { return v.typ }

// Decimal returns a copy of the value.
func (v *Real) Decimal() *apd.Decimal { return new(apd.Decimal).Set(&v.dec) }

// Array is a value of an array type. Elements are stored by position;
// position i holds index Offset()+i. An array of an unconstrained type has
// no value: HasValue reports false and Len is 0.
type Array struct {
	typ    *Type
	elems  []Value
	offset int
}

func (*Array) value() {}

// Type implements Value.
func (v *Array) Type() *Type { return v.typ }

// HasValue reports whether the array carries backing elements.
func (v *Array) HasValue() bool { return v.elems != nil }

// Len returns the number of elements.
func (v *Array) Len() int { return len(v.elems) }

// Offset returns the low index.
func (v *Array) Offset() int { return v.offset }

// At returns the element at index idx.
func (v *Array) At(idx int, loc ir.Location) (Value, error) {
	if v.elems == nil {
		return nil, errorf(ErrCodeInvalidValue, loc, "array of type %s has no value", v.typ)
	}
	if idx < v.offset || idx > v.offset+len(v.elems)-1 {
		return nil, errorf(ErrCodeOutOfBounds, loc, "array index out of bounds: %d limit was %d to %d",
			idx, v.offset, v.offset+len(v.elems)-1)
	}
	return v.elems[idx-v.offset], nil
}

// Elems returns the elements in position order. The slice must not be
// modified.
func (v *Array) Elems() []Value { return v.elems }

// Range is a value of a range type: left and right bounds plus direction.
type Range struct {
	typ       *Type
	left      Value
	right     Value
	ascending bool
}

func (*Range) value() {}

// Type implements Value.
func (v *Range) Type() *Type { return v.typ }

// Left returns the left bound.
func (v *Range) Left() Value { return v.left }

// Right returns the right bound.
func (v *Range) Right() Value { return v.right }

// Ascending reports whether the range is a "to" range.
func (v *Range) Ascending() bool { return v.ascending }

// Min returns the smaller bound by direction.
func (v *Range) Min() Value {
	if v.ascending {
		return v.left
	}
	return v.right
}

// Max returns the larger bound by direction.
func (v *Range) Max() Value {
	if v.ascending {
		return v.right
	}
	return v.left
}

// Enum is a literal of an enumeration type, identified by ordinal.
type Enum struct {
	typ *Type
	ord int
}

func (*Enum) value() {}

// Type implements Value.
func (v *Enum) Type() *Type { return v.typ }

// Ord returns the literal's position in its type.
func (v *Enum) Ord() int { return v.ord }

// Literal returns the literal identifier.
func (v *Enum) Literal() string { return v.typ.Literals[v.ord] }

// IsTrue reports whether the literal has ordinal 1, which is TRUE for
// BOOLEAN and '1' for BIT.
func (v *Enum) IsTrue() bool { return v.ord == 1 }

// Char is a character literal of an enumeration type. 9-valued logic
// values are Chars.
type Char struct {
	Enum
	lit rune
}

func (*Char) value() {}

// Rune returns the character.
func (c *Char) Rune() rune { return c.lit }

// Record is a value of a record type; fields are stored in type order.
type Record struct {
	typ    *Type
	fields []Value
}

func (*Record) value() {}

// Type implements Value.
func (v *Record) Type() *Type { return v.typ }

// Field returns the value of the named field.
func (v *Record) Field(name string, loc ir.Location) (Value, error) {
	i := v.typ.FieldIndex(name)
	if i < 0 {
		return nil, errorf(ErrCodeInvalidValue, loc, "record %s has no field %s", v.typ, name)
	}
	return v.fields[i], nil
}

// File is a value of a file type.
type File struct {
	typ  *Type
	path string
}

func (*File) value() {}

// Type implements Value.
func (v *File) Type() *Type { return v.typ }

// Path returns the file name; empty for a default file value.
func (v *File) Path() string { return v.path }

// Bool is the untyped synthetic boolean, produced by comparisons that have
// no result type.
type Bool struct {
	v bool
}

func (*Bool) value() {}

// Type implements Value. Bool carries no type.
func (*Bool) Type() *Type { return nil }

// IsTrue returns the truth value.
func (b *Bool) IsTrue() bool { return b.v }

// True and False are the synthetic boolean values.
var (
	True  = &Bool{v: true}
	False = &Bool{v: false}
)

// BoolOf returns the synthetic boolean for b.
func BoolOf(b bool) *Bool {
	if b {
		return True
	}
	return False
}

// IntOf returns an INTEGER value. INTEGER is unbounded, so it cannot fail.
func IntOf(n int64) *Integer {
	v := &Integer{typ: TypeInteger}
	v.num.SetInt64(n)
	return v
}

// Truthy reports whether v is a true condition: TRUE, '1' or a true
// synthetic boolean.
func Truthy(v Value) bool {
	switch x := v.(type) {
	case *Bool:
		return x.v
	case *Char:
		return x.lit == '1'
	case *Enum:
		return x.typ.IsBool() && x.ord == 1
	}
	return false
}
