// Package value implements the constant-value engine: immutable, fully
// evaluated values of every hardware-description type category and the
// operators that fold them during elaboration.
//
// Value is a sealed interface. Its variants are *Integer (integer and
// physical), *Real, *Array, *Range, *Enum, *Char (character-literal enums,
// including 9-valued logic), *Record, *File and the untyped synthetic *Bool.
// Every dispatch site switches over the variants exhaustively and reports an
// internal error for anything it does not know.
//
// Values are built through a Builder bound to a type descriptor; a composite
// is either complete or not returned at all. Once built a value never
// changes, so values are shared freely between goroutines.
package value
