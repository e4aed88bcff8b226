package elab

import (
	"context"

	"github.com/roach88/hdlelab/internal/ig"
	"github.com/roach88/hdlelab/internal/store"
)

// index records the connectivity of an elaborated module:
//
//	struct_inst[structure path]   instance labels, in statement order
//	struct_signal[structure path] declared signal names
//	signal_conn[signal path]      paths of the statements using the signal
//
// A signal path is the path of the declaring structure plus the signal
// name; ports are declared by the module's root structure.
func (m *Manager) index(ctx context.Context, mod *ig.Module) error {
	ports := make(map[string]bool, len(mod.Ports))
	for _, p := range mod.Ports {
		ports[p.Name] = true
	}
	x := &indexer{m: m, ctx: ctx, root: mod.Root.Path, ports: ports}
	return x.structure(mod.Root, nil)
}

type indexer struct {
	m     *Manager
	ctx   context.Context
	root  string
	ports map[string]bool
}

func (x *indexer) structure(s *ig.Structure, outer []*ig.Structure) error {
	chain := append(append([]*ig.Structure(nil), outer...), s)

	for _, sig := range s.Signals {
		if _, err := x.m.store.ListAdd(x.ctx, store.ListStructSignal, s.Path, sig.Name); err != nil {
			return err
		}
	}

	for _, st := range s.Statements {
		switch v := st.(type) {
		case *ig.Structure:
			if err := x.structure(v, chain); err != nil {
				return err
			}
		case *ig.Instantiation:
			if _, err := x.m.store.ListAdd(x.ctx, store.ListStructInst, s.Path, v.Label); err != nil {
				return err
			}
			for _, a := range v.PortMap {
				if err := x.connect(chain, a.Actual, v.Path); err != nil {
					return err
				}
			}
		case *ig.Process:
			for _, names := range [][]string{v.Sensitivity, v.Reads, v.Writes} {
				for _, name := range names {
					if err := x.connect(chain, name, v.Path); err != nil {
						return err
					}
				}
			}
		}
	}
	return nil
}

// connect records that the statement at stmtPath uses signal name. The
// name resolves to the innermost declaring structure; names that are
// neither declared nor ports are ignored.
func (x *indexer) connect(chain []*ig.Structure, name, stmtPath string) error {
	owner := ""
	for i := len(chain) - 1; i >= 0; i-- {
		if _, ok := chain[i].FindSignal(name); ok {
			owner = chain[i].Path
			break
		}
	}
	if owner == "" {
		if !x.ports[name] {
			return nil
		}
		owner = x.root
	}
	_, err := x.m.store.ListAdd(x.ctx, store.ListSignalConn, owner+"."+name, stmtPath)
	return err
}

// unindex removes what index recorded for mod.
func (m *Manager) unindex(ctx context.Context, mod *ig.Module) error {
	if mod.Root == nil {
		return nil
	}
	for _, p := range mod.Ports {
		if err := m.store.ListDelete(ctx, store.ListSignalConn, mod.Root.Path+"."+p.Name); err != nil {
			return err
		}
	}
	return unindexStructure(ctx, m.store, mod.Root)
}

func unindexStructure(ctx context.Context, s Store, st *ig.Structure) error {
	if err := s.ListDelete(ctx, store.ListStructInst, st.Path); err != nil {
		return err
	}
	if err := s.ListDelete(ctx, store.ListStructSignal, st.Path); err != nil {
		return err
	}
	for _, sig := range st.Signals {
		if err := s.ListDelete(ctx, store.ListSignalConn, st.Path+"."+sig.Name); err != nil {
			return err
		}
	}
	for _, child := range st.Statements {
		if sub, ok := child.(*ig.Structure); ok {
			if err := unindexStructure(ctx, s, sub); err != nil {
				return err
			}
		}
	}
	return nil
}
