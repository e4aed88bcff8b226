package value

// Equal reports structural equality. Values of different categories are
// never equal. Scalars compare by character literal or ordinal; arrays need
// the same length and low offset, then equal elements; records need the
// same field names in the same order, then equal fields.
func Equal(a, b Value) (bool, error) {
	if a == nil || b == nil {
		return a == nil && b == nil, nil
	}
	ta, tb := a.Type(), b.Type()
	if (ta == nil) != (tb == nil) {
		return false, nil
	}
	if ta != nil && ta.Cat != tb.Cat {
		return false, nil
	}

	switch x := a.(type) {
	case *Bool:
		y, ok := b.(*Bool)
		return ok && x.v == y.v, nil

	case *Char:
		y, ok := b.(*Char)
		return ok && x.lit == y.lit, nil

	case *Enum:
		y, ok := b.(*Enum)
		return ok && x.ord == y.ord, nil

	case *Integer:
		y, ok := b.(*Integer)
		return ok && x.num.Cmp(&y.num) == 0, nil

	case *Real:
		y, ok := b.(*Real)
		return ok && x.dec.Cmp(&y.dec) == 0, nil

	case *Array:
		y, ok := b.(*Array)
		if !ok || x.HasValue() != y.HasValue() {
			return false, nil
		}
		if len(x.elems) != len(y.elems) || x.offset != y.offset {
			return false, nil
		}
		for i := range x.elems {
			eq, err := Equal(x.elems[i], y.elems[i])
			if err != nil || !eq {
				return false, err
			}
		}
		return true, nil

	case *Record:
		y, ok := b.(*Record)
		if !ok || len(x.typ.Fields) != len(y.typ.Fields) {
			return false, nil
		}
		for i := range x.typ.Fields {
			if x.typ.Fields[i].Name != y.typ.Fields[i].Name {
				return false, nil
			}
			eq, err := Equal(x.fields[i], y.fields[i])
			if err != nil || !eq {
				return false, err
			}
		}
		return true, nil

	case *Range:
		y, ok := b.(*Range)
		if !ok || x.ascending != y.ascending {
			return false, nil
		}
		eq, err := Equal(x.left, y.left)
		if err != nil || !eq {
			return false, err
		}
		return Equal(x.right, y.right)

	case *File:
		y, ok := b.(*File)
		return ok && x.path == y.path, nil

	default:
		return false, errorf(ErrCodeInternal, noLocation, "equality not implemented for %T", a)
	}
}
