// Package elab builds the instantiation graph of a design.
//
// A Manager turns toplevel design units into elaborated modules. Modules are
// memoized by signature in the store: a unit bound to the same generic
// values is elaborated once, and every instantiation of it refers to the
// stored module by signature.
//
// Elaboration happens in two steps. Creating a module computes its
// entity-level graph (bound generics and resolved ports) and persists it
// immediately. Elaborating its statements is a separate job that may
// discover further instantiations, which become jobs in turn.
//
// Scheduling:
//   - One thread (the default) runs jobs from a LIFO stack in the caller's
//     goroutine. This is the reference behavior.
//   - More threads run jobs from a FIFO queue on a fixed worker pool.
//
// Failures never abort a build. Resolution problems, evaluation errors and
// panics inside a job are recorded in the Report and elaboration continues
// elsewhere; the result is a partial graph with diagnostics.
//
// RebuildNodes re-elaborates after design units change. Modules derived
// from a changed unit are deleted, the modules instantiating them are
// re-bound in place, and the configured toplevels are rebuilt.
package elab
