package value

import "math/big"

// logicAlphabet is the 9-valued logic alphabet in IEEE 1164 declaration
// order; it also indexes the truth tables.
const logicAlphabet = "UX01ZWLH-"

// Predefined types of the standard and IEEE libraries.
var (
	TypeBoolean = &Type{Name: "BOOLEAN", Cat: CatEnum, Literals: []string{"FALSE", "TRUE"}}
	TypeBit     = &Type{Name: "BIT", Cat: CatEnum, Literals: []string{"'0'", "'1'"}}

	TypeStdULogic = &Type{Name: "STD_ULOGIC", Cat: CatEnum, Literals: logicLiterals()}
	TypeStdLogic  = &Type{Name: "STD_LOGIC", Cat: CatEnum, Literals: logicLiterals()}

	TypeCharacter = &Type{Name: "CHARACTER", Cat: CatEnum, Literals: characterLiterals()}

	TypeInteger  = &Type{Name: "INTEGER", Cat: CatInteger}
	TypeNatural  = &Type{Name: "NATURAL", Cat: CatInteger, Low: big.NewInt(0)}
	TypePositive = &Type{Name: "POSITIVE", Cat: CatInteger, Low: big.NewInt(1)}
	TypeReal     = &Type{Name: "REAL", Cat: CatReal}

	TypeTime = &Type{Name: "TIME", Cat: CatPhysical, Units: []Unit{
		{Name: "FS", Factor: 1},
		{Name: "PS", Factor: 1_000},
		{Name: "NS", Factor: 1_000_000},
		{Name: "US", Factor: 1_000_000_000},
		{Name: "MS", Factor: 1_000_000_000_000},
		{Name: "SEC", Factor: 1_000_000_000_000_000},
		{Name: "MIN", Factor: 60_000_000_000_000_000},
		{Name: "HR", Factor: 3_600_000_000_000_000_000},
	}}

	TypeBitVector       = &Type{Name: "BIT_VECTOR", Cat: CatArray, Element: TypeBit, Index: &IndexRange{Left: 0, Right: 0, Ascending: true}, Unconstrained: true}
	TypeStdLogicVector  = &Type{Name: "STD_LOGIC_VECTOR", Cat: CatArray, Element: TypeStdLogic, Index: &IndexRange{Left: 0, Right: 0}, Unconstrained: true}
	TypeStdULogicVector = &Type{Name: "STD_ULOGIC_VECTOR", Cat: CatArray, Element: TypeStdULogic, Index: &IndexRange{Left: 0, Right: 0}, Unconstrained: true}
	TypeString          = &Type{Name: "STRING", Cat: CatArray, Element: TypeCharacter, Index: &IndexRange{Left: 1, Right: 1, Ascending: true}, Unconstrained: true}

	TypeIntegerRange = &Type{Name: "INTEGER_RANGE", Cat: CatRange, Element: TypeInteger}
)

var predefined = map[string]*Type{}

func init() {
	for _, t := range []*Type{
		TypeBoolean, TypeBit, TypeStdULogic, TypeStdLogic, TypeCharacter,
		TypeInteger, TypeNatural, TypePositive, TypeReal, TypeTime,
		TypeBitVector, TypeStdLogicVector, TypeStdULogicVector, TypeString,
	} {
		predefined[t.Name] = t
	}
}

// Predefined returns the predefined type with the given upper-case name.
func Predefined(name string) (*Type, bool) {
	t, ok := predefined[name]
	return t, ok
}

func logicLiterals() []string {
	lits := make([]string, 0, len(logicAlphabet))
	for _, r := range logicAlphabet {
		lits = append(lits, CharLiteral(r))
	}
	return lits
}

func characterLiterals() []string {
	lits := make([]string, 256)
	for i := range lits {
		lits[i] = CharLiteral(rune(i))
	}
	return lits
}
