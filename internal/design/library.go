package design

import (
	"fmt"
	"sort"
	"sync"

	"github.com/roach88/hdlelab/internal/interp"
	"github.com/roach88/hdlelab/internal/ir"
)

// Library indexes design units by UID and resolves references to them. It
// is safe for concurrent use; Replace may run while the elaborator reads.
type Library struct {
	mu    sync.RWMutex
	units map[string]Unit
	// archs lists each entity's architectures in the order they were added.
	archs map[string][]ir.DesignUnitID
	funcs map[string]*Function

	// Package functions compiled on first call to Function.
	compiled    bool
	subprograms map[string]*interp.Subprogram
	funcErrs    map[string]error
}

// NewLibrary creates an empty library.
func NewLibrary() *Library {
	return &Library{
		units: map[string]Unit{},
		archs: map[string][]ir.DesignUnitID{},
		funcs: map[string]*Function{},
	}
}

// Add registers u. Adding a second unit with the same UID fails.
func (l *Library) Add(u Unit) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	uid := u.UnitID().UID()
	if prev, ok := l.units[uid]; ok {
		return fmt.Errorf("%s: duplicate design unit %s (first declared at %s)", u.Location(), uid, prev.Location())
	}
	l.put(u)
	return nil
}

// Replace registers u, overwriting any unit with the same UID.
func (l *Library) Replace(u Unit) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.put(u)
}

func (l *Library) put(u Unit) {
	id := u.UnitID()
	_, existed := l.units[id.UID()]
	l.units[id.UID()] = u
	l.compiled = false

	switch x := u.(type) {
	case *Architecture:
		if !existed {
			ent := id.EntityOf().UID()
			l.archs[ent] = append(l.archs[ent], id)
		}
	case *Package:
		for _, f := range x.Functions {
			l.funcs[ir.NormalizeIdent(f.Name)] = f
		}
	}
}

// Unit returns the unit with the given id.
func (l *Library) Unit(id ir.DesignUnitID) (Unit, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	u, ok := l.units[id.UID()]
	if !ok || u.UnitID().Kind != id.Kind {
		return nil, fmt.Errorf("%s %s: %w", id.Kind, id, ErrUnitNotFound)
	}
	return u, nil
}

// Entity returns the entity id belongs to; id may name the entity itself or
// one of its architectures.
func (l *Library) Entity(id ir.DesignUnitID) (*Entity, error) {
	u, err := l.Unit(id.EntityOf())
	if err != nil {
		return nil, err
	}
	e, ok := u.(*Entity)
	if !ok {
		return nil, fmt.Errorf("%s is a %s, not an entity: %w", id.EntityOf(), u.UnitID().Kind, ErrUnitNotFound)
	}
	return e, nil
}

// Architecture returns the architecture with the given id.
func (l *Library) Architecture(id ir.DesignUnitID) (*Architecture, error) {
	u, err := l.Unit(id)
	if err != nil {
		return nil, err
	}
	a, ok := u.(*Architecture)
	if !ok {
		return nil, fmt.Errorf("%s is a %s, not an architecture: %w", id, u.UnitID().Kind, ErrUnitNotFound)
	}
	return a, nil
}

// ArchitectureOf resolves id to an architecture id. An architecture id is
// checked and returned; an entity id resolves to the entity's most recently
// added architecture.
func (l *Library) ArchitectureOf(id ir.DesignUnitID) (ir.DesignUnitID, error) {
	switch id.Kind {
	case ir.UnitArchitecture:
		if _, err := l.Architecture(id); err != nil {
			return ir.DesignUnitID{}, err
		}
		return id, nil
	case ir.UnitEntity:
		l.mu.RLock()
		archs := l.archs[id.UID()]
		l.mu.RUnlock()
		if len(archs) == 0 {
			return ir.DesignUnitID{}, fmt.Errorf("no architecture for %s: %w", id, ErrUnitNotFound)
		}
		return archs[len(archs)-1], nil
	default:
		return ir.DesignUnitID{}, fmt.Errorf("%s %s has no architecture: %w", id.Kind, id, ErrUnitNotFound)
	}
}

// Units returns all units sorted by UID.
func (l *Library) Units() []Unit {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Unit, 0, len(l.units))
	for _, u := range l.units {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UnitID().UID() < out[j].UnitID().UID() })
	return out
}

// Function resolves name to a callable subprogram. Builtins take precedence
// over package functions.
func (l *Library) Function(name string) (*interp.Subprogram, error) {
	if sub, ok := interp.LookupBuiltin(name); ok {
		return sub, nil
	}
	key := ir.NormalizeIdent(name)

	l.mu.RLock()
	compiled := l.compiled
	l.mu.RUnlock()
	if !compiled {
		l.mu.Lock()
		if !l.compiled {
			l.compileFunctions()
		}
		l.mu.Unlock()
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	if err, ok := l.funcErrs[key]; ok {
		return nil, err
	}
	sub, ok := l.subprograms[key]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrUnknownFunction)
	}
	return sub, nil
}

// subprogramTable resolves calls while package functions are compiled.
type subprogramTable map[string]*interp.Subprogram

func (t subprogramTable) Function(name string) (*interp.Subprogram, error) {
	if sub, ok := interp.LookupBuiltin(name); ok {
		return sub, nil
	}
	if sub, ok := t[ir.NormalizeIdent(name)]; ok {
		return sub, nil
	}
	return nil, fmt.Errorf("%s: %w", name, ErrUnknownFunction)
}

// compileFunctions builds a subprogram for every package function. All
// subprograms are created before any body is compiled, so functions may
// call each other (and themselves) regardless of declaration order.
// Caller must hold mu for writing.
func (l *Library) compileFunctions() {
	table := subprogramTable{}
	l.funcErrs = map[string]error{}

	for key, f := range l.funcs {
		sub := &interp.Subprogram{Name: key}
		for _, p := range f.Params {
			if p.Type.Width != nil {
				l.funcErrs[key] = fmt.Errorf("%s: parameter %s of %s: sized parameter types are not supported", f.Loc, p.Name, f.Name)
				break
			}
			sub.Params = append(sub.Params, interp.Param{Name: ir.NormalizeIdent(p.Name), Type: p.Type.Base})
		}
		if f.Result.Width != nil {
			l.funcErrs[key] = fmt.Errorf("%s: result of %s: sized result types are not supported", f.Loc, f.Name)
		}
		sub.Result = f.Result.Base
		table[key] = sub
	}

	for key, f := range l.funcs {
		if _, failed := l.funcErrs[key]; failed {
			continue
		}
		code, err := Compile(f.Body, table)
		if err != nil {
			l.funcErrs[key] = fmt.Errorf("function %s: %w", f.Name, err)
			continue
		}
		code.Name = key
		code.Append(&interp.ReturnStmt{HasValue: true, Loc: f.Loc})
		table[key].Code = code
	}

	l.subprograms = table
	l.compiled = true
}
