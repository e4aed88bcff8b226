package elab

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/hdlelab/internal/ig"
	"github.com/roach88/hdlelab/internal/ir"
	"github.com/roach88/hdlelab/internal/store"
)

// BuildGraph elaborates the hierarchy below toplevel and returns its root
// module. toplevel may name an entity (its default architecture is used)
// or an architecture; its generics take their defaults.
//
// Problems inside the hierarchy do not fail the build; they are in the
// Report. An error is returned when the toplevel does not resolve, when
// ctx is canceled, or when the store fails.
func (m *Manager) BuildGraph(ctx context.Context, toplevel ir.DesignUnitID) (*ig.Module, error) {
	m.runMu.Lock()
	defer m.runMu.Unlock()

	r := m.startRun("build", toplevel)
	mod, err := m.buildToplevel(ctx, toplevel, r.logger)
	if err == nil {
		err = m.drain(ctx, r.logger)
	}
	m.finishRun(ctx, r, ctx.Err() != nil)
	if err != nil {
		return nil, err
	}

	// Reload: the copy returned at creation predates statement elaboration.
	return m.FindModule(ctx, mod.Signature)
}

// BuildAll runs BuildGraph for every configured toplevel in order. A
// toplevel that does not resolve is reported and skipped.
func (m *Manager) BuildAll(ctx context.Context) ([]*ig.Module, error) {
	var mods []*ig.Module
	for _, tl := range m.toplevels {
		mod, err := m.BuildGraph(ctx, tl)
		if IsResolutionError(err) {
			continue
		}
		if err != nil {
			return mods, fmt.Errorf("build %s: %w", tl, err)
		}
		mods = append(mods, mod)
	}
	return mods, nil
}

// buildToplevel binds toplevel with default generics and gets or creates
// its module with eager statement elaboration.
func (m *Manager) buildToplevel(ctx context.Context, toplevel ir.DesignUnitID, log *slog.Logger) (*ig.Module, error) {
	b, err := m.Bind(toplevel, nil, ir.Location{})
	if err != nil {
		m.report.AddError(err, ir.Location{})
		log.Error("failed to find toplevel", "toplevel", toplevel.UID(), "error", err)
		return nil, err
	}
	return m.GetOrCreateModule(ctx, ModuleRequest{
		Path:      toplevelPath(b.Unit),
		Unit:      b.Unit,
		Signature: b.Signature,
		Generics:  b.Generics,
		Elaborate: true,
	})
}

// RebuildNodes re-elaborates after the given units changed:
//
//  1. Each changed unit is mapped to its architecture.
//  2. Every signature derived from such an architecture goes into the
//     delete set.
//  3. Every signature of a unit instantiating one of them goes into the
//     invalidate set.
//  4. Modules in the delete set are deleted along with their index entries.
//  5. Modules in the invalidate set have instantiations of deleted
//     signatures re-bound in place.
//  6. Every configured toplevel is rebuilt, then the job queue drains.
//
// It returns the combined size of the delete and invalidate sets.
func (m *Manager) RebuildNodes(ctx context.Context, changed []ir.DesignUnitID) (int, error) {
	m.runMu.Lock()
	defer m.runMu.Unlock()

	r := m.startRun("rebuild", m.toplevels...)
	n, err := m.rebuild(ctx, changed, r.logger)
	m.finishRun(ctx, r, ctx.Err() != nil)
	return n, err
}

func (m *Manager) rebuild(ctx context.Context, changed []ir.DesignUnitID, log *slog.Logger) (int, error) {
	deleteSet := newOrderedSet()
	invalidateSet := newOrderedSet()

	for _, id := range changed {
		arch, err := m.rebuildUnit(id)
		if err != nil {
			log.Warn("no architecture for changed unit", "unit", id.UID(), "error", err)
			continue
		}
		uid := arch.UID()

		sigs, err := m.store.ListMembers(ctx, store.ListSignatures, uid)
		if err != nil {
			return 0, err
		}
		for _, sig := range sigs {
			if deleteSet.add(sig) {
				log.Info("re-elaborate completely", "signature", sig)
			}
		}

		parents, err := m.store.ListMembers(ctx, store.ListInstantiators, uid)
		if err != nil {
			return 0, err
		}
		for _, parent := range parents {
			psigs, err := m.store.ListMembers(ctx, store.ListSignatures, parent)
			if err != nil {
				return 0, err
			}
			for _, sig := range psigs {
				if invalidateSet.add(sig) {
					log.Info("re-elaborate statements", "signature", sig)
				}
			}
		}
	}

	for _, sig := range deleteSet.items {
		if err := m.deleteModule(ctx, ir.Signature(sig)); err != nil {
			return 0, err
		}
	}
	m.metrics.RebuildDeleted.Add(float64(deleteSet.len()))

	for _, sig := range invalidateSet.items {
		if deleteSet.has(sig) {
			continue
		}
		if err := m.invalidateModule(ctx, ir.Signature(sig), deleteSet); err != nil {
			return 0, err
		}
	}
	m.metrics.RebuildInvalidated.Add(float64(invalidateSet.len()))

	// A toplevel may have been among the deleted modules.
	for _, tl := range m.toplevels {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		if _, err := m.buildToplevel(ctx, tl, log); err != nil && !IsResolutionError(err) {
			return 0, err
		}
	}

	if err := m.drain(ctx, log); err != nil {
		return 0, err
	}
	return deleteSet.len() + invalidateSet.len(), nil
}

// rebuildUnit maps a changed unit to its architecture. An architecture
// that no longer resolves is still returned, so its stale modules go.
func (m *Manager) rebuildUnit(id ir.DesignUnitID) (ir.DesignUnitID, error) {
	arch, err := m.lib.ArchitectureOf(id)
	if err == nil {
		return arch, nil
	}
	if id.Kind == ir.UnitArchitecture {
		return id, nil
	}
	return ir.DesignUnitID{}, err
}

// deleteModule removes the module stored under sig and its index entries.
// Its unit is first detached from the instantiator lists of everything it
// instantiates.
func (m *Manager) deleteModule(ctx context.Context, sig ir.Signature) error {
	mod, err := m.FindModule(ctx, sig)
	if errors.Is(err, ig.ErrModuleNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	uid := mod.Unit.UID()

	for _, inst := range mod.Instantiations() {
		if inst.Signature == "" {
			continue
		}
		if err := m.store.ListRemove(ctx, store.ListInstantiators, inst.Signature.UnitUID(), uid); err != nil {
			return err
		}
	}
	if m.indexing {
		if err := m.unindex(ctx, mod); err != nil {
			return err
		}
	}

	if err := m.store.DelIdx(ctx, store.IdxModule, string(sig)); err != nil {
		return err
	}
	if err := m.store.ListDelete(ctx, store.ListInstantiators, uid); err != nil {
		return err
	}
	if err := m.store.ListRemove(ctx, store.ListSignatures, uid, string(sig)); err != nil {
		return err
	}
	if err := m.store.DeleteModule(ctx, mod.ID); err != nil {
		return err
	}
	m.logger.Debug("module deleted", "signature", sig)
	return nil
}

// invalidateModule re-binds every instantiation of sig's module that
// points at a deleted signature. The child is bound again from the
// instantiation's explicit generics, so a changed default or a changed
// default architecture yields a new signature. A child that no longer
// resolves leaves the instantiation unbound.
func (m *Manager) invalidateModule(ctx context.Context, sig ir.Signature, deleted *orderedSet) error {
	mod, err := m.FindModule(ctx, sig)
	if errors.Is(err, ig.ErrModuleNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	n, err := mod.UpdateInstantiations(func(inst *ig.Instantiation) (ir.Signature, bool, error) {
		if !deleted.has(string(inst.Signature)) {
			return inst.Signature, false, nil
		}
		b, err := m.Bind(inst.Unit, inst.Generics, inst.Location)
		if err != nil {
			m.report.AddError(err, inst.Location)
			return "", true, nil
		}
		_, err = m.GetOrCreateModule(ctx, ModuleRequest{
			Path:      inst.Path,
			Parent:    mod.Unit,
			Unit:      b.Unit,
			Signature: b.Signature,
			Generics:  b.Generics,
			Elaborate: true,
			Location:  inst.Location,
		})
		if IsResolutionError(err) {
			return "", true, nil
		}
		if err != nil {
			return "", false, err
		}
		return b.Signature, true, nil
	})
	if err != nil {
		return fmt.Errorf("invalidate %s: %w", sig, err)
	}
	if n == 0 {
		return nil
	}
	if err := m.store.UpdateModule(ctx, mod); err != nil {
		return fmt.Errorf("update module %s: %w", sig, err)
	}
	m.logger.Debug("instantiations re-bound", "signature", sig, "count", n)
	return nil
}

// orderedSet is a set of strings that remembers insertion order.
type orderedSet struct {
	items []string
	seen  map[string]struct{}
}

func newOrderedSet() *orderedSet {
	return &orderedSet{seen: map[string]struct{}{}}
}

func (s *orderedSet) add(v string) bool {
	if _, ok := s.seen[v]; ok {
		return false
	}
	s.seen[v] = struct{}{}
	s.items = append(s.items, v)
	return true
}

func (s *orderedSet) has(v string) bool {
	_, ok := s.seen[v]
	return ok
}

func (s *orderedSet) len() int { return len(s.items) }
