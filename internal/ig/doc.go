// Package ig defines the Instantiation Graph: the elaborated, concrete
// instance hierarchy produced by the elaborator.
//
// A Module is one elaborated variant of an architecture, identified by its
// signature. It exclusively owns its root Structure, which in turn owns its
// nested statements by value. Instantiations never own their child module;
// they refer to it by signature only, so identical subtrees are shared.
//
// Modules are persisted as JSON (see MarshalJSON) and can be dumped as an
// indented text tree (see Dump).
package ig
