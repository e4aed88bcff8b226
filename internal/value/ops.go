package value

import (
	"fmt"
	"strings"
)

// UnaryOp is a unary operator.
type UnaryOp int

const (
	OpNot UnaryOp = iota + 1
	OpNeg
	OpAbs
)

var unaryNames = map[UnaryOp]string{OpNot: "not", OpNeg: "-", OpAbs: "abs"}

func (op UnaryOp) String() string {
	if s, ok := unaryNames[op]; ok {
		return s
	}
	return fmt.Sprintf("UnaryOp(%d)", int(op))
}

// ParseUnaryOp maps an operator symbol ("not", "-", "abs") to a UnaryOp.
func ParseUnaryOp(sym string) (UnaryOp, bool) {
	sym = strings.ToLower(strings.TrimSpace(sym))
	for op, s := range unaryNames {
		if s == sym {
			return op, true
		}
	}
	return 0, false
}

// BinaryOp is a binary operator.
type BinaryOp int

const (
	OpAdd BinaryOp = iota + 1
	OpSub
	OpMul
	OpDiv
	OpMod
	OpRem
	OpPower
	OpMax
	OpMin
	OpEqual
	OpNEqual
	OpGreater
	OpGreaterEq
	OpLess
	OpLessEq
	OpAnd
	OpOr
	OpNand
	OpNor
	OpXor
	OpXnor
)

var binaryNames = map[BinaryOp]string{
	OpAdd: "+", OpSub: "-", OpMul: "*", OpDiv: "/", OpMod: "mod", OpRem: "rem",
	OpPower: "**", OpMax: "max", OpMin: "min",
	OpEqual: "=", OpNEqual: "/=", OpGreater: ">", OpGreaterEq: ">=", OpLess: "<", OpLessEq: "<=",
	OpAnd: "and", OpOr: "or", OpNand: "nand", OpNor: "nor", OpXor: "xor", OpXnor: "xnor",
}

func (op BinaryOp) String() string {
	if s, ok := binaryNames[op]; ok {
		return s
	}
	return fmt.Sprintf("BinaryOp(%d)", int(op))
}

// ParseBinaryOp maps an operator symbol to a BinaryOp.
func ParseBinaryOp(sym string) (BinaryOp, bool) {
	sym = strings.ToLower(strings.TrimSpace(sym))
	for op, s := range binaryNames {
		if s == sym {
			return op, true
		}
	}
	return 0, false
}

// IsMath reports whether the operator is arithmetic, i.e. keyed by the
// result type's category.
func (op BinaryOp) IsMath() bool {
	return op >= OpAdd && op <= OpMin
}

// IsComparison reports whether the operator yields a boolean.
func (op BinaryOp) IsComparison() bool {
	return op >= OpEqual && op <= OpLessEq
}

// IsLogical reports whether the operator is a logic gate.
func (op BinaryOp) IsLogical() bool {
	return op >= OpAnd && op <= OpXnor
}
