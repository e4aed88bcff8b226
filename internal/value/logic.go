package value

import (
	"strings"

	"github.com/roach88/hdlelab/internal/ir"
)

// logicTable is a 9x9 truth table indexed by logicIndex of both operands.
// Rows and columns follow logicAlphabet: U X 0 1 Z W L H -.
type logicTable [9]string

var (
	andTable = logicTable{
		"UU0UUU0UU", // U
		"UX0XXX0XX", // X
		"000000000", // 0
		"UX01XX01X", // 1
		"UX0XXX0XX", // Z
		"UX0XXX0XX", // W
		"000000000", // L
		"UX01XX01X", // H
		"UX0XXX0XX", // -
	}

	orTable = logicTable{
		"UUU1UUU1U", // U
		"UXX1XXX1X", // X
		"UX01XX01X", // 0
		"111111111", // 1
		"UXX1XXX1X", // Z
		"UXX1XXX1X", // W
		"UX01XX01X", // L
		"111111111", // H
		"UXX1XXX1X", // -
	}

	xorTable = logicTable{
		"UUUUUUUUU", // U
		"UXXXXXXXX", // X
		"UX01XX01X", // 0
		"UX10XX10X", // 1
		"UXXXXXXXX", // Z
		"UXXXXXXXX", // W
		"UX01XX01X", // L
		"UX10XX10X", // H
		"UXXXXXXXX", // -
	}

	resolutionTable = logicTable{
		"UUUUUUUUU", // U
		"UXXXXXXXX", // X
		"UX0X0000X", // 0
		"UXX11111X", // 1
		"UX01ZWLHX", // Z
		"UX01WWWWX", // W
		"UX01LWLWX", // L
		"UX01HWWHX", // H
		"UXXXXXXXX", // -
	}
)

// notTable maps each logicAlphabet character to its negation.
const notTable = "UX10XX10X"

func logicIndex(r rune) int {
	return strings.IndexRune(logicAlphabet, r)
}

func (t *logicTable) apply(a, b rune) (rune, bool) {
	i, j := logicIndex(a), logicIndex(b)
	if i < 0 || j < 0 {
		return 0, false
	}
	return rune(t[i][j]), true
}

func logicNot(a rune) (rune, bool) {
	i := logicIndex(a)
	if i < 0 {
		return 0, false
	}
	return rune(notTable[i]), true
}

// logicBinary evaluates a 9-valued gate. NAND, NOR and XNOR are the
// negation of AND, OR and XOR.
func logicBinary(op BinaryOp, a, b rune) (rune, bool) {
	var (
		r  rune
		ok bool
	)
	switch op {
	case OpAnd, OpNand:
		r, ok = andTable.apply(a, b)
	case OpOr, OpNor:
		r, ok = orTable.apply(a, b)
	case OpXor, OpXnor:
		r, ok = xorTable.apply(a, b)
	default:
		return 0, false
	}
	if !ok {
		return 0, false
	}
	switch op {
	case OpNand, OpNor, OpXnor:
		return logicNot(r)
	}
	return r, true
}

// logicResult returns the literal r of t, or t's low literal when t has
// no such literal (e.g. 'X' in BIT).
func logicResult(t *Type, r rune, loc ir.Location) (Value, error) {
	if c := t.FindChar(r); c != nil {
		return c, nil
	}
	return t.Literal(0, loc)
}

// ResolveStdLogic folds the driving values of one signal into the resolved
// value. 'U' dominates once seen; a genuine drive conflict yields 'X'.
// It returns nil for an empty slice.
func ResolveStdLogic(values []Value, loc ir.Location) (Value, error) {
	var (
		typ *Type
		cur rune
	)
	for i, v := range values {
		c, ok := v.(*Char)
		if !ok || logicIndex(c.lit) < 0 {
			return nil, errorf(ErrCodeUnsupported, loc, "resolution of %s is not supported", typeOf(v))
		}
		if i == 0 {
			typ, cur = c.typ, c.lit
			continue
		}
		cur, _ = resolutionTable.apply(cur, c.lit)
	}
	if typ == nil {
		return nil, nil
	}
	return logicResult(typ, cur, loc)
}

func typeOf(v Value) string {
	if v == nil {
		return "<nil>"
	}
	if t := v.Type(); t != nil {
		return t.String()
	}
	return "<untyped>"
}
