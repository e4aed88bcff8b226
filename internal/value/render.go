package value

import (
	"math/big"
	"strings"
)

// String implements Value. Physical values append the lower-cased primary
// unit.
func (v *Integer) String() string {
	if v.typ.Cat == CatPhysical {
		return v.num.String() + " " + strings.ToLower(v.typ.PrimaryUnit())
	}
	return v.num.String()
}

// String implements Value.
func (v *Real) String() string { return decimalString(&v.dec) }

// String implements Value. Logic vectors and strings render their elements
// from the last position to the first with no separators; other arrays
// render "(a, b, ...)".
func (v *Array) String() string {
	if v.elems == nil {
		return "NULL"
	}
	var sb strings.Builder
	if v.typ.IsLogic() || v.typ.IsString() {
		for i := len(v.elems) - 1; i >= 0; i-- {
			sb.WriteString(v.elems[i].String())
		}
		return sb.String()
	}
	sb.WriteByte('(')
	for i, e := range v.elems {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(e.String())
	}
	sb.WriteByte(')')
	return sb.String()
}

// String implements Value.
func (v *Range) String() string {
	if v.ascending {
		return v.left.String() + " to " + v.right.String()
	}
	return v.left.String() + " downto " + v.right.String()
}

// String implements Value.
func (v *Enum) String() string { return v.Literal() }

// String implements Value.
func (c *Char) String() string { return string(c.lit) }

// String implements Value.
func (v *Record) String() string {
	var sb strings.Builder
	sb.WriteByte('(')
	for i, f := range v.fields {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(f.String())
	}
	sb.WriteByte(')')
	return sb.String()
}

// String implements Value.
func (v *File) String() string { return "FILE " + v.path }

// String implements Value.
func (b *Bool) String() string {
	if b.v {
		return "true"
	}
	return "false"
}

// isLogicValue reports whether v is a logic scalar or logic vector.
func isLogicValue(v Value) bool {
	t := v.Type()
	return t != nil && t.IsLogic()
}

// linearize reads the human-readable rendering of a logic value as a
// binary number, most significant bit first. Any character other than
// '1' counts as 0; 'X', 'Z' and friends are not fixed up.
func linearize(v Value) *big.Int {
	n := new(big.Int)
	for _, r := range v.String() {
		n.Lsh(n, 1)
		if r == '1' {
			n.SetBit(n, 0, 1)
		}
	}
	return n
}

// Hex renders a logic value as X"..", zero padded to one digit per four
// bits. Other values render as String.
func Hex(v Value) string {
	if !isLogicValue(v) {
		return v.String()
	}
	width := 1
	if a, ok := v.(*Array); ok {
		width = (a.Len() + 3) / 4
		if width < 1 {
			width = 1
		}
	}
	hs := strings.ToUpper(linearize(v).Text(16))
	if len(hs) < width {
		hs = strings.Repeat("0", width-len(hs)) + hs
	}
	return `X"` + hs + `"`
}

// Dec renders a logic value as an unsigned decimal number. Other values
// render as String.
func Dec(v Value) string {
	if !isLogicValue(v) {
		return v.String()
	}
	return linearize(v).Text(10)
}

// Oct renders a logic value as O"..". Other values render as String.
func Oct(v Value) string {
	if !isLogicValue(v) {
		return v.String()
	}
	return `O"` + linearize(v).Text(8) + `"`
}

// Bin renders a logic vector as B".." in index order: left to right for a
// "to" range, high index first for "downto". Other values render as
// String.
func Bin(v Value) string {
	a, ok := v.(*Array)
	if !ok || !a.typ.IsLogic() || a.elems == nil {
		return v.String()
	}
	var sb strings.Builder
	sb.WriteString(`B"`)
	asc := a.typ.Index != nil && a.typ.Index.Ascending
	n := len(a.elems)
	for i := 0; i < n; i++ {
		if asc {
			sb.WriteString(a.elems[i].String())
		} else {
			sb.WriteString(a.elems[n-1-i].String())
		}
	}
	sb.WriteByte('"')
	return sb.String()
}

// FromUnsigned builds a (width-1 downto 0) vector of the given vector type
// holding the low width bits of n.
func FromUnsigned(vector *Type, n *big.Int, width int) (*Array, error) {
	var sb strings.Builder
	for i := width - 1; i >= 0; i-- {
		if n.Bit(i) == 1 {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return LogicVector(vector, sb.String(), noLocation)
}
