package value

import (
	"fmt"
	"math/big"
	"strings"
	"unicode/utf8"

	"github.com/roach88/hdlelab/internal/ir"
)

// Category is the type category a value's runtime variant must match.
type Category int

const (
	CatInteger Category = iota + 1
	CatReal
	CatPhysical
	CatEnum
	CatArray
	CatRecord
	CatFile
	CatAccess
	CatRange
)

var categoryNames = map[Category]string{
	CatInteger:  "integer",
	CatReal:     "real",
	CatPhysical: "physical",
	CatEnum:     "enum",
	CatArray:    "array",
	CatRecord:   "record",
	CatFile:     "file",
	CatAccess:   "access",
	CatRange:    "range",
}

func (c Category) String() string {
	if s, ok := categoryNames[c]; ok {
		return s
	}
	return fmt.Sprintf("Category(%d)", int(c))
}

// MarshalText implements encoding.TextMarshaler.
func (c Category) MarshalText() ([]byte, error) {
	if s, ok := categoryNames[c]; ok {
		return []byte(s), nil
	}
	return nil, fmt.Errorf("unknown category %d", int(c))
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Category) UnmarshalText(text []byte) error {
	for k, v := range categoryNames {
		if v == string(text) {
			*c = k
			return nil
		}
	}
	return fmt.Errorf("unknown category %q", string(text))
}

// IndexRange is the integer index constraint of an array type.
type IndexRange struct {
	Left      int  `json:"left"`
	Right     int  `json:"right"`
	Ascending bool `json:"asc"`
}

// Low returns the smallest index.
func (r IndexRange) Low() int {
	if r.Ascending {
		return r.Left
	}
	return r.Right
}

// High returns the largest index.
func (r IndexRange) High() int {
	if r.Ascending {
		return r.Right
	}
	return r.Left
}

// Len returns the number of indices (0 for a null range).
func (r IndexRange) Len() int {
	if n := r.High() - r.Low() + 1; n > 0 {
		return n
	}
	return 0
}

func (r IndexRange) String() string {
	if r.Ascending {
		return fmt.Sprintf("%d to %d", r.Left, r.Right)
	}
	return fmt.Sprintf("%d downto %d", r.Left, r.Right)
}

// Field is one record element.
type Field struct {
	Name string `json:"name"`
	Type *Type  `json:"type"`
}

// Unit is one unit of a physical type. Factor is the unit's size in
// primary units; the first unit is the primary one with factor 1.
type Unit struct {
	Name   string `json:"name"`
	Factor int64  `json:"factor"`
}

// Type describes a fully constrained (or explicitly unconstrained) type.
// Types are immutable once published; derive subtypes with Constrain.
type Type struct {
	Name string   `json:"name"`
	Cat  Category `json:"cat"`

	// Literals holds enum literal identifiers in ordinal order. Character
	// literals keep their quotes, e.g. "'0'".
	Literals []string `json:"literals,omitempty"`

	// Low and High bound integer and physical types when both are set.
	Low  *big.Int `json:"low,omitempty"`
	High *big.Int `json:"high,omitempty"`

	Index         *IndexRange `json:"index,omitempty"`
	Unconstrained bool        `json:"unconstrained,omitempty"`

	// Element is the array element type, or the base type of a range.
	Element *Type `json:"element,omitempty"`

	Fields []Field `json:"fields,omitempty"`
	Units  []Unit  `json:"units,omitempty"`
}

// IsScalar reports whether values of the type are scalars.
func (t *Type) IsScalar() bool {
	switch t.Cat {
	case CatInteger, CatReal, CatPhysical, CatEnum:
		return true
	}
	return false
}

// IsNumeric reports whether the category takes part in arithmetic.
func (t *Type) IsNumeric() bool {
	switch t.Cat {
	case CatInteger, CatReal, CatPhysical:
		return true
	}
	return false
}

func isCharLiteral(lit string) bool {
	if len(lit) < 3 || lit[0] != '\'' || lit[len(lit)-1] != '\'' {
		return false
	}
	return utf8.RuneCountInString(lit[1:len(lit)-1]) == 1
}

func charOf(lit string) rune {
	r, _ := utf8.DecodeRuneInString(lit[1 : len(lit)-1])
	return r
}

// CharLiteral renders r as an enum literal identifier.
func CharLiteral(r rune) string {
	return "'" + string(r) + "'"
}

// IsCharEnum reports whether the type is an enum of character literals only.
func (t *Type) IsCharEnum() bool {
	if t.Cat != CatEnum || len(t.Literals) == 0 {
		return false
	}
	for _, lit := range t.Literals {
		if !isCharLiteral(lit) {
			return false
		}
	}
	return true
}

// IsBool reports whether the type is a two-literal FALSE/TRUE enum.
func (t *Type) IsBool() bool {
	return t.Cat == CatEnum && len(t.Literals) == 2 &&
		t.Literals[0] == "FALSE" && t.Literals[1] == "TRUE"
}

// IsBit reports whether the type is the two-valued '0'/'1' enum.
func (t *Type) IsBit() bool {
	return t.Cat == CatEnum && len(t.Literals) == 2 &&
		t.Literals[0] == "'0'" && t.Literals[1] == "'1'"
}

// IsLogic reports whether the type is BIT or a 9-valued logic enum, or an
// array of such elements. CHARACTER has '0' and '1' literals but is not
// logic.
func (t *Type) IsLogic() bool {
	switch t.Cat {
	case CatEnum:
		return t.IsBit() || t.IsIEEELogic()
	case CatArray:
		return t.Element != nil && t.Element.IsLogic()
	}
	return false
}

// IsIEEELogic reports whether the type is a 9-valued logic enum: it has a
// literal for every character of "UX01ZWLH-".
func (t *Type) IsIEEELogic() bool {
	if !t.IsCharEnum() {
		return false
	}
	for _, r := range logicAlphabet {
		if t.FindChar(r) == nil {
			return false
		}
	}
	return true
}

// IsString reports whether the type is an array of characters.
func (t *Type) IsString() bool {
	return t.Cat == CatArray && t.Element != nil && t.Element.IsCharEnum()
}

// Literal returns the enum literal with the given ordinal.
func (t *Type) Literal(ord int, loc ir.Location) (Value, error) {
	if t.Cat != CatEnum {
		return nil, errorf(ErrCodeUnsupported, loc, "type %s is not an enumeration", t.Name)
	}
	if ord < 0 || ord >= len(t.Literals) {
		return nil, errorf(ErrCodeRange, loc, "literal #%d out of range for %s (%d literals)", ord, t.Name, len(t.Literals))
	}
	e := Enum{typ: t, ord: ord}
	if lit := t.Literals[ord]; isCharLiteral(lit) {
		return &Char{Enum: e, lit: charOf(lit)}, nil
	}
	return &e, nil
}

// FindChar returns the character literal r of the type, or nil.
func (t *Type) FindChar(r rune) *Char {
	if t.Cat != CatEnum {
		return nil
	}
	want := CharLiteral(r)
	for i, lit := range t.Literals {
		if lit == want {
			return &Char{Enum: Enum{typ: t, ord: i}, lit: r}
		}
	}
	return nil
}

// FindLiteral returns the literal named id (case-insensitive for
// identifiers, exact for character literals), or nil.
func (t *Type) FindLiteral(id string) Value {
	if isCharLiteral(id) {
		if c := t.FindChar(charOf(id)); c != nil {
			return c
		}
		return nil
	}
	id = strings.ToUpper(id)
	for i, lit := range t.Literals {
		if lit == id {
			v, _ := t.Literal(i, ir.Location{})
			return v
		}
	}
	return nil
}

// Offset returns the array type's low index.
func (t *Type) Offset() int {
	if t.Index == nil {
		return 0
	}
	return t.Index.Low()
}

// Len returns the number of elements of a constrained array type.
func (t *Type) Len() int {
	if t.Index == nil || t.Unconstrained {
		return 0
	}
	return t.Index.Len()
}

// Constrain derives a constrained subtype of an array type.
func (t *Type) Constrain(left, right int, ascending bool) *Type {
	c := *t
	c.Index = &IndexRange{Left: left, Right: right, Ascending: ascending}
	c.Unconstrained = false
	return &c
}

// FieldIndex returns the position of the record field name, or -1.
func (t *Type) FieldIndex(name string) int {
	name = strings.ToUpper(name)
	for i, f := range t.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// PrimaryUnit returns the primary unit name of a physical type.
func (t *Type) PrimaryUnit() string {
	if len(t.Units) == 0 {
		return ""
	}
	return t.Units[0].Name
}

// FindUnit returns the unit named name (case-insensitive).
func (t *Type) FindUnit(name string) (Unit, bool) {
	name = strings.ToUpper(name)
	for _, u := range t.Units {
		if u.Name == name {
			return u, true
		}
	}
	return Unit{}, false
}

// InBounds reports whether n satisfies the integer/physical bounds.
func (t *Type) InBounds(n *big.Int) bool {
	if t.Low != nil && n.Cmp(t.Low) < 0 {
		return false
	}
	if t.High != nil && n.Cmp(t.High) > 0 {
		return false
	}
	return true
}

func (t *Type) String() string {
	if t == nil {
		return "<untyped>"
	}
	switch {
	case t.Cat == CatArray && t.Index != nil && !t.Unconstrained:
		return fmt.Sprintf("%s(%s)", t.Name, t.Index)
	case t.Name != "":
		return t.Name
	default:
		return t.Cat.String()
	}
}
