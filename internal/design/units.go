package design

import (
	"github.com/roach88/hdlelab/internal/ig"
	"github.com/roach88/hdlelab/internal/ir"
)

// Unit is a parsed design unit.
type Unit interface {
	UnitID() ir.DesignUnitID
	Location() ir.Location
}

// GenericDecl declares a generic of an entity.
type GenericDecl struct {
	Name    string
	Type    TypeRef
	Default Expr // nil when the generic must be given an actual
	Loc     ir.Location
}

// PortDecl declares a port of an entity.
type PortDecl struct {
	Name string
	Mode ig.PortMode
	Type TypeRef
	Loc  ir.Location
}

// Entity is the interface of a design: its generics and ports.
type Entity struct {
	ID       ir.DesignUnitID
	Generics []GenericDecl
	Ports    []PortDecl
	Loc      ir.Location
}

func (e *Entity) UnitID() ir.DesignUnitID { return e.ID }
func (e *Entity) Location() ir.Location   { return e.Loc }

// SignalDecl declares a signal of an architecture or generate body.
type SignalDecl struct {
	Name string
	Type TypeRef
	Loc  ir.Location
}

// Architecture is the body of an entity.
type Architecture struct {
	ID         ir.DesignUnitID
	Signals    []SignalDecl
	Statements []Statement
	Loc        ir.Location
}

func (a *Architecture) UnitID() ir.DesignUnitID { return a.ID }
func (a *Architecture) Location() ir.Location   { return a.Loc }

// Function is a function declared in a package. Its body is a single
// expression over its parameters.
type Function struct {
	Name   string
	Params []ParamDecl
	Result TypeRef
	Body   Expr
	Loc    ir.Location
}

// ParamDecl declares a function parameter.
type ParamDecl struct {
	Name string
	Type TypeRef
}

// Package is a collection of functions.
type Package struct {
	ID        ir.DesignUnitID
	Functions []*Function
	Loc       ir.Location
}

func (p *Package) UnitID() ir.DesignUnitID { return p.ID }
func (p *Package) Location() ir.Location   { return p.Loc }

// Statement is a concurrent statement of an architecture.
type Statement interface {
	StmtLabel() string
	Location() ir.Location
}

// GenericAssoc maps a formal generic to an actual expression.
type GenericAssoc struct {
	Formal string
	Actual Expr
}

// InstanceStmt instantiates an entity. Unit may name the entity, in which
// case its default architecture is used, or a specific architecture.
type InstanceStmt struct {
	Label    string
	Unit     ir.DesignUnitID
	Generics []GenericAssoc
	Ports    []ig.Association
	Loc      ir.Location
}

// ProcessStmt is a process with its signal footprint.
type ProcessStmt struct {
	Label       string
	Sensitivity []string
	Reads       []string
	Writes      []string
	Loc         ir.Location
}

// ForGenerate replicates Body once per value of Var from From to To
// inclusive.
type ForGenerate struct {
	Label    string
	Var      string
	From, To Expr
	Signals  []SignalDecl
	Body     []Statement
	Loc      ir.Location
}

// IfGenerate elaborates Body when Cond is true.
type IfGenerate struct {
	Label   string
	Cond    Expr
	Signals []SignalDecl
	Body    []Statement
	Loc     ir.Location
}

func (s *InstanceStmt) StmtLabel() string     { return s.Label }
func (s *InstanceStmt) Location() ir.Location { return s.Loc }
func (s *ProcessStmt) StmtLabel() string      { return s.Label }
func (s *ProcessStmt) Location() ir.Location  { return s.Loc }
func (s *ForGenerate) StmtLabel() string      { return s.Label }
func (s *ForGenerate) Location() ir.Location  { return s.Loc }
func (s *IfGenerate) StmtLabel() string       { return s.Label }
func (s *IfGenerate) Location() ir.Location   { return s.Loc }
