// Package design holds the parsed design units the elaborator works from:
// entities, architectures and packages, plus the constant expressions used
// for generic actuals, port widths and generate parameters.
//
// Design units are read from CUE files (see LoadDir). A Library indexes the
// loaded units and resolves unit references and function names for the
// elaborator. Expressions are compiled to interpreter code and folded by the
// value engine.
package design
