package value

import (
	"math/big"

	"github.com/cockroachdb/apd/v3"

	"github.com/roach88/hdlelab/internal/ir"
)

// Builder populates a value of one target type. Setters record the first
// error; Build reports it and returns nil, so a partially populated
// composite never escapes.
type Builder struct {
	typ *Type
	loc ir.Location
	err error

	num    *big.Int
	dec    *apd.Decimal
	ord    int
	hasOrd bool

	elems  []Value
	fields []Value

	left, right Value
	ascending   bool
	hasRange    bool

	path string
}

// NewBuilder returns a builder for a value of type t. For a constrained
// array type the element slots are sized from the index range.
func NewBuilder(t *Type, loc ir.Location) *Builder {
	b := &Builder{typ: t, loc: loc}
	if t == nil {
		b.err = errorf(ErrCodeInternal, loc, "builder needs a type")
		return b
	}
	switch t.Cat {
	case CatArray:
		if !t.Unconstrained && t.Index != nil {
			b.elems = make([]Value, t.Index.Len())
		}
	case CatRecord:
		b.fields = make([]Value, len(t.Fields))
	}
	return b
}

func (b *Builder) fail(code ErrorCode, format string, args ...any) *Builder {
	if b.err == nil {
		b.err = errorf(code, b.loc, format, args...)
	}
	return b
}

func (b *Builder) expect(cats ...Category) bool {
	if b.err != nil {
		return false
	}
	for _, c := range cats {
		if b.typ.Cat == c {
			return true
		}
	}
	b.fail(ErrCodeInvalidValue, "type %s (%s) does not accept this value", b.typ, b.typ.Cat)
	return false
}

// ArrayOffset returns the low index of the target array type.
func (b *Builder) ArrayOffset() int {
	return b.typ.Offset()
}

// SetNum sets the magnitude of an integer or physical value.
func (b *Builder) SetNum(n *big.Int) *Builder {
	if b.expect(CatInteger, CatPhysical) {
		b.num = new(big.Int).Set(n)
	}
	return b
}

// SetInt64 is SetNum for small magnitudes.
func (b *Builder) SetInt64(n int64) *Builder {
	return b.SetNum(big.NewInt(n))
}

// SetReal sets the value of a real type. Trailing zeros of the
// coefficient are dropped, so 1.0/8.0 holds 0.125.
func (b *Builder) SetReal(d *apd.Decimal) *Builder {
	if b.expect(CatReal) {
		b.dec = new(apd.Decimal)
		b.dec.Reduce(d)
	}
	return b
}

// SetOrd sets an enum literal by ordinal.
func (b *Builder) SetOrd(ord int) *Builder {
	if b.expect(CatEnum) {
		if ord < 0 || ord >= len(b.typ.Literals) {
			return b.fail(ErrCodeRange, "literal #%d out of range for %s", ord, b.typ)
		}
		b.ord, b.hasOrd = ord, true
	}
	return b
}

// Set stores the element at index idx of an array.
func (b *Builder) Set(idx int, v Value) *Builder {
	if !b.expect(CatArray) {
		return b
	}
	if b.elems == nil {
		return b.fail(ErrCodeInvalidValue, "array type %s is unconstrained", b.typ)
	}
	pos := idx - b.typ.Offset()
	if pos < 0 || pos >= len(b.elems) {
		return b.fail(ErrCodeOutOfBounds, "array index out of bounds: %d limit was %d to %d",
			idx, b.typ.Offset(), b.typ.Offset()+len(b.elems)-1)
	}
	if err := checkAssignable(b.typ.Element, v, b.loc); err != nil {
		b.err = err
		return b
	}
	b.elems[pos] = v
	return b
}

// SetField stores the named field of a record.
func (b *Builder) SetField(name string, v Value) *Builder {
	if !b.expect(CatRecord) {
		return b
	}
	i := b.typ.FieldIndex(name)
	if i < 0 {
		return b.fail(ErrCodeInvalidValue, "record %s has no field %s", b.typ, name)
	}
	if err := checkAssignable(b.typ.Fields[i].Type, v, b.loc); err != nil {
		b.err = err
		return b
	}
	b.fields[i] = v
	return b
}

// SetRange sets the bounds of a range value.
func (b *Builder) SetRange(left, right Value, ascending bool) *Builder {
	if !b.expect(CatRange) {
		return b
	}
	if b.typ.Element != nil {
		if err := checkAssignable(b.typ.Element, left, b.loc); err != nil {
			b.err = err
			return b
		}
		if err := checkAssignable(b.typ.Element, right, b.loc); err != nil {
			b.err = err
			return b
		}
	}
	b.left, b.right, b.ascending, b.hasRange = left, right, ascending, true
	return b
}

// SetFile sets the file name of a file value.
func (b *Builder) SetFile(path string) *Builder {
	if b.expect(CatFile) {
		b.path = path
	}
	return b
}

// Build validates and returns the value.
func (b *Builder) Build() (Value, error) {
	if b.err != nil {
		return nil, b.err
	}
	t := b.typ
	switch t.Cat {
	case CatInteger, CatPhysical:
		if b.num == nil {
			return nil, errorf(ErrCodeInvalidValue, b.loc, "%s value is not set", t)
		}
		if !t.InBounds(b.num) {
			return nil, errorf(ErrCodeRange, b.loc, "value %s out of range for %s", b.num, t)
		}
		v := &Integer{typ: t}
		v.num.Set(b.num)
		return v, nil

	case CatReal:
		if b.dec == nil {
			return nil, errorf(ErrCodeInvalidValue, b.loc, "%s value is not set", t)
		}
		v := &Real{typ: t}
		v.dec.Set(b.dec)
		return v, nil

	case CatEnum:
		if !b.hasOrd {
			return nil, errorf(ErrCodeInvalidValue, b.loc, "%s literal is not set", t)
		}
		return t.Literal(b.ord, b.loc)

	case CatArray:
		if b.elems == nil {
			return &Array{typ: t, offset: t.Offset()}, nil
		}
		for i, e := range b.elems {
			if e == nil {
				return nil, errorf(ErrCodeInvalidValue, b.loc, "%s element %d is not set", t, i+t.Offset())
			}
		}
		elems := make([]Value, len(b.elems))
		copy(elems, b.elems)
		return &Array{typ: t, elems: elems, offset: t.Offset()}, nil

	case CatRecord:
		for i, f := range b.fields {
			if f == nil {
				return nil, errorf(ErrCodeInvalidValue, b.loc, "%s field %s is not set", t, t.Fields[i].Name)
			}
		}
		fields := make([]Value, len(b.fields))
		copy(fields, b.fields)
		return &Record{typ: t, fields: fields}, nil

	case CatRange:
		if !b.hasRange {
			return nil, errorf(ErrCodeInvalidValue, b.loc, "%s bounds are not set", t)
		}
		return &Range{typ: t, left: b.left, right: b.right, ascending: b.ascending}, nil

	case CatFile:
		return &File{typ: t, path: b.path}, nil

	default:
		return nil, errorf(ErrCodeInternal, b.loc, "cannot build a value of %s category", t.Cat)
	}
}

// checkAssignable verifies v's runtime variant matches t's category.
func checkAssignable(t *Type, v Value, loc ir.Location) error {
	if v == nil {
		return errorf(ErrCodeInvalidValue, loc, "nil value for %s", t)
	}
	vt := v.Type()
	if t == nil || vt == nil {
		return nil
	}
	if vt.Cat != t.Cat {
		return errorf(ErrCodeInvalidValue, loc, "%s value does not fit %s (%s)", vt.Cat, t, t.Cat)
	}
	return nil
}

// NewInteger builds an integer or physical value of type t.
func NewInteger(t *Type, n *big.Int, loc ir.Location) (*Integer, error) {
	v, err := NewBuilder(t, loc).SetNum(n).Build()
	if err != nil {
		return nil, err
	}
	return v.(*Integer), nil
}

// NewReal builds a real value of type t.
func NewReal(t *Type, d *apd.Decimal, loc ir.Location) (*Real, error) {
	v, err := NewBuilder(t, loc).SetReal(d).Build()
	if err != nil {
		return nil, err
	}
	return v.(*Real), nil
}

// NewRange builds a range value of type t.
func NewRange(t *Type, left, right Value, ascending bool, loc ir.Location) (*Range, error) {
	v, err := NewBuilder(t, loc).SetRange(left, right, ascending).Build()
	if err != nil {
		return nil, err
	}
	return v.(*Range), nil
}

// NewArray builds a constrained array of type t from elements in index
// order starting at the low index.
func NewArray(t *Type, elems []Value, loc ir.Location) (*Array, error) {
	b := NewBuilder(t, loc)
	off := b.ArrayOffset()
	if len(elems) != t.Len() {
		return nil, errorf(ErrCodeLengthMismatch, loc, "%d elements for %s of length %d", len(elems), t, t.Len())
	}
	for i, e := range elems {
		b.Set(i+off, e)
	}
	v, err := b.Build()
	if err != nil {
		return nil, err
	}
	return v.(*Array), nil
}

// LogicVector builds a downto-indexed vector of elem from a bit string
// written MSB first, e.g. "10ZX" is (3 downto 0).
func LogicVector(t *Type, bits string, loc ir.Location) (*Array, error) {
	runes := []rune(bits)
	n := len(runes)
	st := t.Constrain(n-1, 0, false)
	b := NewBuilder(st, loc)
	for i, r := range runes {
		c := st.Element.FindChar(r)
		if c == nil {
			return nil, errorf(ErrCodeInvalidValue, loc, "%q is not a literal of %s", r, st.Element)
		}
		b.Set(n-1-i, c)
	}
	v, err := b.Build()
	if err != nil {
		return nil, err
	}
	return v.(*Array), nil
}
