package ig

import (
	"errors"
	"fmt"

	"github.com/roach88/hdlelab/internal/ir"
)

var (
	// ErrModuleNotFound is returned when an instantiation refers to a
	// signature with no stored module.
	ErrModuleNotFound = errors.New("module not found")

	// ErrNotElaborated is returned when a walk reaches a module whose
	// statements have not been elaborated yet.
	ErrNotElaborated = errors.New("module statements not elaborated")
)

// Visitor receives the nodes of a module tree. depth is 0 for the module
// Accept was called on and grows by one per instantiation crossed.
// Returning an error stops the walk.
type Visitor interface {
	VisitModule(m *Module, depth int) error
	VisitStructure(s *Structure, depth int) error
	VisitInstantiation(inst *Instantiation, depth int) error
	VisitProcess(p *Process, depth int) error
}

// VisitorFuncs adapts optional functions to Visitor; nil fields are no-ops.
type VisitorFuncs struct {
	Module        func(m *Module, depth int) error
	Structure     func(s *Structure, depth int) error
	Instantiation func(inst *Instantiation, depth int) error
	Process       func(p *Process, depth int) error
}

func (f VisitorFuncs) VisitModule(m *Module, depth int) error {
	if f.Module == nil {
		return nil
	}
	return f.Module(m, depth)
}

func (f VisitorFuncs) VisitStructure(s *Structure, depth int) error {
	if f.Structure == nil {
		return nil
	}
	return f.Structure(s, depth)
}

func (f VisitorFuncs) VisitInstantiation(inst *Instantiation, depth int) error {
	if f.Instantiation == nil {
		return nil
	}
	return f.Instantiation(inst, depth)
}

func (f VisitorFuncs) VisitProcess(p *Process, depth int) error {
	if f.Process == nil {
		return nil
	}
	return f.Process(p, depth)
}

// ModuleLookup loads the module stored under a signature. It returns
// ErrModuleNotFound (possibly wrapped) when there is none.
type ModuleLookup func(sig ir.Signature) (*Module, error)

// Accept walks m and, through lookup, the modules it instantiates, down to
// maxDepth levels of instantiation (negative means unlimited). Every
// module reached must have its statements elaborated.
func (m *Module) Accept(v Visitor, lookup ModuleLookup, maxDepth int) error {
	return m.accept(v, lookup, maxDepth, 0)
}

func (m *Module) accept(v Visitor, lookup ModuleLookup, maxDepth, depth int) error {
	if err := v.VisitModule(m, depth); err != nil {
		return err
	}
	if !m.StatementsElaborated || m.Root == nil {
		return fmt.Errorf("%s: %w", m.Signature, ErrNotElaborated)
	}
	return m.acceptStructure(m.Root, v, lookup, maxDepth, depth)
}

func (m *Module) acceptStructure(s *Structure, v Visitor, lookup ModuleLookup, maxDepth, depth int) error {
	if err := v.VisitStructure(s, depth); err != nil {
		return err
	}
	for _, st := range s.Statements {
		switch x := st.(type) {
		case *Structure:
			if err := m.acceptStructure(x, v, lookup, maxDepth, depth); err != nil {
				return err
			}
		case *Process:
			if err := v.VisitProcess(x, depth); err != nil {
				return err
			}
		case *Instantiation:
			if err := v.VisitInstantiation(x, depth); err != nil {
				return err
			}
			if maxDepth >= 0 && depth >= maxDepth {
				continue
			}
			child, err := lookup(x.Signature)
			if err != nil {
				return fmt.Errorf("instance %s: %w", x.Path, err)
			}
			if err := child.accept(v, lookup, maxDepth, depth+1); err != nil {
				return err
			}
		}
	}
	return nil
}
