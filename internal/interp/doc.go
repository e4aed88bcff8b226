// Package interp holds the minimal interpreter the elaborator needs to fold
// constant expressions: a value stack, call frames, simulation time and a
// wakeup list, plus the statements that run on them.
//
// Generic actual expressions are compiled to a Code sequence of push, load,
// unary, binary, call and return statements and executed on a Runtime. Calls
// dispatch either to a builtin (by identity) or to interpreted code of a
// design-defined function.
package interp
