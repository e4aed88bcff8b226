package value

import (
	"github.com/cockroachdb/apd/v3"

	"github.com/roach88/hdlelab/internal/ir"
)

// Convert retypes v as a value of t, checking t's constraints. It is used
// to bind actual values to formal generics. An unconstrained array type
// takes v's index range.
func Convert(v Value, t *Type, loc ir.Location) (Value, error) {
	if t == nil {
		return v, nil
	}
	if v.Type() == t {
		return v, nil
	}
	b := NewBuilder(t, loc)

	switch x := v.(type) {
	case *Integer:
		switch t.Cat {
		case CatInteger, CatPhysical:
			b.SetNum(&x.num)
		case CatReal:
			b.SetReal(decimalFromBig(&x.num))
		default:
			return nil, mismatch(v, t, loc)
		}

	case *Real:
		switch t.Cat {
		case CatReal:
			b.SetReal(&x.dec)
		case CatInteger:
			n, err := decimalToBig(&x.dec, apd.RoundHalfUp)
			if err != nil {
				return nil, errorf(ErrCodeRange, loc, "%s", err)
			}
			b.SetNum(n)
		default:
			return nil, mismatch(v, t, loc)
		}

	case *Char, *Enum:
		if t.Cat != CatEnum {
			return nil, mismatch(v, t, loc)
		}
		e := enumOf(v)
		lit := t.FindLiteral(e.Literal())
		if lit == nil {
			return nil, errorf(ErrCodeInvalidValue, loc, "%s is not a literal of %s", e.Literal(), t)
		}
		return lit, nil

	case *Bool:
		if !t.IsBool() {
			return nil, mismatch(v, t, loc)
		}
		return t.Literal(boolOrd(x.v), loc)

	case *Array:
		if t.Cat != CatArray {
			return nil, mismatch(v, t, loc)
		}
		if t.Unconstrained && x.elems != nil {
			idx := x.typ.Index
			if idx == nil {
				return nil, mismatch(v, t, loc)
			}
			t = t.Constrain(idx.Left, idx.Right, idx.Ascending)
			b = NewBuilder(t, loc)
		}
		if x.elems == nil {
			return b.Build()
		}
		if t.Len() != len(x.elems) {
			return nil, errorf(ErrCodeLengthMismatch, loc, "%d elements do not fit %s", len(x.elems), t)
		}
		off := b.ArrayOffset()
		for i, e := range x.elems {
			ce, err := Convert(e, t.Element, loc)
			if err != nil {
				return nil, err
			}
			b.Set(i+off, ce)
		}

	case *Record:
		if t.Cat != CatRecord || len(t.Fields) != len(x.fields) {
			return nil, mismatch(v, t, loc)
		}
		for i, f := range t.Fields {
			cf, err := Convert(x.fields[i], f.Type, loc)
			if err != nil {
				return nil, err
			}
			b.SetField(f.Name, cf)
		}

	case *Range:
		if t.Cat != CatRange {
			return nil, mismatch(v, t, loc)
		}
		l, err := Convert(x.left, t.Element, loc)
		if err != nil {
			return nil, err
		}
		r, err := Convert(x.right, t.Element, loc)
		if err != nil {
			return nil, err
		}
		b.SetRange(l, r, x.ascending)

	case *File:
		if t.Cat != CatFile {
			return nil, mismatch(v, t, loc)
		}
		b.SetFile(x.path)

	default:
		return nil, errorf(ErrCodeInternal, loc, "unknown value variant %T", v)
	}
	return b.Build()
}

func mismatch(v Value, t *Type, loc ir.Location) error {
	return errorf(ErrCodeInvalidValue, loc, "%s value %s does not fit %s", typeOf(v), v, t)
}
