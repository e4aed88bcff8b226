package elab

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/hdlelab/internal/ig"
	"github.com/roach88/hdlelab/internal/ir"
	"github.com/roach88/hdlelab/internal/store"
)

// FindModule returns the module stored under sig, or an error wrapping
// ig.ErrModuleNotFound.
func (m *Manager) FindModule(ctx context.Context, sig ir.Signature) (*ig.Module, error) {
	id, err := m.store.GetIdx(ctx, store.IdxModule, string(sig))
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", sig, ig.ErrModuleNotFound)
	}
	if err != nil {
		return nil, err
	}
	mod, err := m.store.GetModule(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", sig, ig.ErrModuleNotFound)
	}
	return mod, err
}

// FindModuleForToplevel returns the module of toplevel bound with its
// default generics.
func (m *Manager) FindModuleForToplevel(ctx context.Context, toplevel ir.DesignUnitID) (*ig.Module, error) {
	b, err := m.Bind(toplevel, nil, ir.Location{})
	if err != nil {
		return nil, err
	}
	return m.FindModule(ctx, b.Signature)
}

// FindInstantiators returns the units that instantiate the architecture
// unit, in the order they were first recorded.
func (m *Manager) FindInstantiators(ctx context.Context, unit ir.DesignUnitID) ([]ir.DesignUnitID, error) {
	uids, err := m.store.ListMembers(ctx, store.ListInstantiators, unit.UID())
	if err != nil {
		return nil, err
	}
	out := make([]ir.DesignUnitID, 0, len(uids))
	for _, uid := range uids {
		id, err := ir.ParseUnitRef(uid)
		if err != nil {
			return nil, fmt.Errorf("instantiators of %s: %w", unit, err)
		}
		out = append(out, id)
	}
	return out, nil
}

// Item is what FindItem resolves a path to. Statement is nil for the
// empty path; otherwise Module is the module whose statements contain it.
type Item struct {
	Module    *ig.Module
	Statement ig.Statement
}

// FindItem walks a dotted label path, e.g. "U0.G(1).U1", from the module
// of toplevel. Generate structures are entered directly; an instantiation
// in the middle of the path continues in the instantiated module.
func (m *Manager) FindItem(ctx context.Context, toplevel ir.DesignUnitID, path string) (Item, error) {
	mod, err := m.FindModuleForToplevel(ctx, toplevel)
	if err != nil {
		return Item{}, err
	}
	if strings.TrimSpace(path) == "" {
		return Item{Module: mod}, nil
	}

	cur, err := rootOf(mod)
	if err != nil {
		return Item{}, err
	}
	var st ig.Statement
	for i, seg := range strings.Split(path, ".") {
		if i > 0 {
			switch x := st.(type) {
			case *ig.Structure:
				cur = x
			case *ig.Instantiation:
				if mod, err = m.FindModule(ctx, x.Signature); err != nil {
					return Item{}, fmt.Errorf("%s: %w", x.Path, err)
				}
				if cur, err = rootOf(mod); err != nil {
					return Item{}, err
				}
			default:
				return Item{}, fmt.Errorf("%s: %s has no children", path, st.StmtLabel())
			}
		}
		var ok bool
		if st, ok = cur.Find(seg); !ok {
			return Item{}, fmt.Errorf("%s: no statement %q in %s", path, seg, cur.Path)
		}
	}
	return Item{Module: mod, Statement: st}, nil
}

func rootOf(mod *ig.Module) (*ig.Structure, error) {
	if !mod.StatementsElaborated || mod.Root == nil {
		return nil, fmt.Errorf("%s: %w", mod.Signature, ig.ErrNotElaborated)
	}
	return mod.Root, nil
}

// CountNodes counts the structures of unit's hierarchy, bound with default
// generics, down to maxDepth levels of instantiation (negative means
// unlimited). It returns 0 if the unit has not been built.
func (m *Manager) CountNodes(ctx context.Context, unit ir.DesignUnitID, maxDepth int) (int, error) {
	mod, err := m.FindModuleForToplevel(ctx, unit)
	if errors.Is(err, ig.ErrModuleNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	n := 0
	counter := ig.VisitorFuncs{
		Structure: func(*ig.Structure, int) error {
			n++
			return nil
		},
	}
	if err := mod.Accept(counter, m.lookup(ctx), maxDepth); err != nil {
		return 0, err
	}
	return n, nil
}

// lookup adapts FindModule to ig.ModuleLookup.
func (m *Manager) lookup(ctx context.Context) ig.ModuleLookup {
	return func(sig ir.Signature) (*ig.Module, error) {
		return m.FindModule(ctx, sig)
	}
}

// InstanceLabels returns the instance labels the indexing pass recorded
// for a structure path.
func (m *Manager) InstanceLabels(ctx context.Context, structPath string) ([]string, error) {
	return m.store.ListMembers(ctx, store.ListStructInst, structPath)
}

// SignalConnections returns the paths of the statements the indexing pass
// found using a signal, e.g. "TOP.S".
func (m *Manager) SignalConnections(ctx context.Context, signalPath string) ([]string, error) {
	return m.store.ListMembers(ctx, store.ListSignalConn, signalPath)
}
