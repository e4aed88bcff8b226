package value

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/cockroachdb/apd/v3"
)

// wireValue is the persisted form of a value. Only the top-level value
// carries its type; nested values take theirs from the parent type.
type wireValue struct {
	Type   *Type       `json:"type,omitempty"`
	Num    string      `json:"num,omitempty"`
	Real   string      `json:"real,omitempty"`
	Ord    *int        `json:"ord,omitempty"`
	Null   bool        `json:"null,omitempty"`
	Elems  []wireValue `json:"elems,omitempty"`
	Left   *wireValue  `json:"left,omitempty"`
	Right  *wireValue  `json:"right,omitempty"`
	Asc    bool        `json:"asc,omitempty"`
	Fields []wireValue `json:"fields,omitempty"`
	Path   string      `json:"path,omitempty"`
	Bool   *bool       `json:"bool,omitempty"`
}

// MarshalValue encodes v with its type. The encoding is deterministic and
// is used both for persistence and for signature computation.
func MarshalValue(v Value) ([]byte, error) {
	w, err := toWire(v)
	if err != nil {
		return nil, err
	}
	w.Type = v.Type()
	return json.Marshal(w)
}

// Encode is MarshalValue as a string.
func Encode(v Value) (string, error) {
	data, err := MarshalValue(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// UnmarshalValue decodes a value produced by MarshalValue.
func UnmarshalValue(data []byte) (Value, error) {
	var w wireValue
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("decode value: %w", err)
	}
	if w.Type == nil {
		if w.Bool != nil {
			return BoolOf(*w.Bool), nil
		}
		return nil, fmt.Errorf("decode value: missing type")
	}
	return fromWire(&w, w.Type)
}

func toWire(v Value) (wireValue, error) {
	var w wireValue
	switch x := v.(type) {
	case *Integer:
		w.Num = x.num.String()
	case *Real:
		var d apd.Decimal
		d.Reduce(&x.dec)
		w.Real = d.String()
	case *Char:
		ord := x.ord
		w.Ord = &ord
	case *Enum:
		ord := x.ord
		w.Ord = &ord
	case *Array:
		if x.elems == nil {
			w.Null = true
			break
		}
		w.Elems = make([]wireValue, len(x.elems))
		for i, e := range x.elems {
			ew, err := toWire(e)
			if err != nil {
				return w, err
			}
			w.Elems[i] = ew
		}
	case *Record:
		w.Fields = make([]wireValue, len(x.fields))
		for i, f := range x.fields {
			fw, err := toWire(f)
			if err != nil {
				return w, err
			}
			w.Fields[i] = fw
		}
	case *Range:
		l, err := toWire(x.left)
		if err != nil {
			return w, err
		}
		r, err := toWire(x.right)
		if err != nil {
			return w, err
		}
		w.Left, w.Right, w.Asc = &l, &r, x.ascending
	case *File:
		w.Path = x.path
	case *Bool:
		b := x.v
		w.Bool = &b
	default:
		return w, fmt.Errorf("encode value: unknown variant %T", v)
	}
	return w, nil
}

func fromWire(w *wireValue, t *Type) (Value, error) {
	if t == nil {
		if w.Bool != nil {
			return BoolOf(*w.Bool), nil
		}
		return nil, fmt.Errorf("decode value: missing type")
	}
	b := NewBuilder(t, noLocation)
	switch t.Cat {
	case CatInteger, CatPhysical:
		n, ok := new(big.Int).SetString(w.Num, 10)
		if !ok {
			return nil, fmt.Errorf("decode value: bad integer %q", w.Num)
		}
		b.SetNum(n)
	case CatReal:
		d, err := ParseDecimal(w.Real)
		if err != nil {
			return nil, err
		}
		b.SetReal(d)
	case CatEnum:
		if w.Ord == nil {
			return nil, fmt.Errorf("decode value: missing ordinal for %s", t)
		}
		b.SetOrd(*w.Ord)
	case CatArray:
		if w.Null {
			return b.Build()
		}
		if len(w.Elems) != t.Len() {
			return nil, fmt.Errorf("decode value: %d elements for %s", len(w.Elems), t)
		}
		off := b.ArrayOffset()
		for i := range w.Elems {
			e, err := fromWire(&w.Elems[i], t.Element)
			if err != nil {
				return nil, err
			}
			b.Set(i+off, e)
		}
	case CatRecord:
		if len(w.Fields) != len(t.Fields) {
			return nil, fmt.Errorf("decode value: %d fields for %s", len(w.Fields), t)
		}
		for i, f := range t.Fields {
			fv, err := fromWire(&w.Fields[i], f.Type)
			if err != nil {
				return nil, err
			}
			b.SetField(f.Name, fv)
		}
	case CatRange:
		if w.Left == nil || w.Right == nil {
			return nil, fmt.Errorf("decode value: range without bounds")
		}
		l, err := fromWire(w.Left, t.Element)
		if err != nil {
			return nil, err
		}
		r, err := fromWire(w.Right, t.Element)
		if err != nil {
			return nil, err
		}
		b.SetRange(l, r, w.Asc)
	case CatFile:
		b.SetFile(w.Path)
	default:
		return nil, fmt.Errorf("decode value: cannot decode %s category", t.Cat)
	}
	return b.Build()
}
