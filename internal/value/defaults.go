package value

import (
	"github.com/cockroachdb/apd/v3"

	"github.com/roach88/hdlelab/internal/ir"
)

var noLocation ir.Location

// GenerateZ returns the default value of t: zero for numeric types (or the
// bound nearest to zero when the range excludes it), the low literal for
// enums, and element- or field-wise defaults for arrays and records. With useWeakest a 9-valued logic type yields 'Z' instead.
// Access types have no constant value; GenerateZ returns (nil, nil).
func GenerateZ(t *Type, loc ir.Location, useWeakest bool) (Value, error) {
	if t == nil {
		return nil, errorf(ErrCodeInternal, loc, "cannot generate a value without a type")
	}
	switch t.Cat {
	case CatEnum:
		if useWeakest && t.IsIEEELogic() {
			if z := t.FindChar('Z'); z != nil {
				return z, nil
			}
		}
		return t.Literal(0, loc)

	case CatInteger, CatPhysical:
		b := NewBuilder(t, loc)
		switch {
		case t.Low != nil && t.Low.Sign() > 0:
			b.SetNum(t.Low)
		case t.High != nil && t.High.Sign() < 0:
			b.SetNum(t.High)
		default:
			b.SetInt64(0)
		}
		return b.Build()

	case CatReal:
		return NewBuilder(t, loc).SetReal(apd.New(0, 0)).Build()

	case CatArray:
		b := NewBuilder(t, loc)
		if t.Unconstrained {
			return b.Build()
		}
		elem, err := GenerateZ(t.Element, loc, useWeakest)
		if err != nil {
			return nil, err
		}
		off := b.ArrayOffset()
		for i := 0; i < t.Len(); i++ {
			b.Set(i+off, elem)
		}
		return b.Build()

	case CatRecord:
		b := NewBuilder(t, loc)
		for _, f := range t.Fields {
			v, err := GenerateZ(f.Type, loc, useWeakest)
			if err != nil {
				return nil, err
			}
			b.SetField(f.Name, v)
		}
		return b.Build()

	case CatFile:
		return NewBuilder(t, loc).Build()

	case CatAccess:
		return nil, nil

	default:
		return nil, errorf(ErrCodeInternal, loc, "don't know how to generate a constant value for %s", t)
	}
}
