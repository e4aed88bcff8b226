package elab

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/hdlelab/internal/design"
	"github.com/roach88/hdlelab/internal/ig"
	"github.com/roach88/hdlelab/internal/ir"
	"github.com/roach88/hdlelab/internal/store"
	"github.com/roach88/hdlelab/internal/value"
)

// ModuleRequest identifies the module GetOrCreateModule should return.
type ModuleRequest struct {
	// Path is the hierarchical instance path, e.g. "TOP.U0".
	Path string

	// Parent is the unit of the instantiating module; zero for toplevels.
	Parent ir.DesignUnitID

	// Unit is the architecture to elaborate.
	Unit      ir.DesignUnitID
	Signature ir.Signature

	// Generics are the bound actual generics in declaration order.
	Generics []ig.Generic

	// Elaborate schedules statement elaboration if it has not happened yet.
	Elaborate bool

	Location ir.Location
}

// Binding is a unit reference bound to concrete generic values.
type Binding struct {
	Unit      ir.DesignUnitID
	Generics  []ig.Generic
	Signature ir.Signature
}

// Bind resolves ref to an architecture and binds explicit generic actuals
// against the entity's declarations. Generics without an actual take their
// default, evaluated with the generics before them in scope. Every value is
// converted to its declared type before the signature is computed, so equal
// bindings always produce equal signatures.
func (m *Manager) Bind(ref ir.DesignUnitID, explicit []ig.Generic, loc ir.Location) (Binding, error) {
	arch, err := m.lib.ArchitectureOf(ref)
	if err != nil {
		return Binding{}, errorf(ErrCodeResolution, loc, "failed to find %s: %v", ref, err)
	}
	ent, err := m.lib.Entity(arch)
	if err != nil {
		return Binding{}, errorf(ErrCodeResolution, loc, "failed to find entity of %s: %v", arch, err)
	}

	given := make(map[string]value.Value, len(explicit))
	for _, g := range explicit {
		given[ir.NormalizeIdent(g.Name)] = g.Value
	}

	bound := make([]ig.Generic, 0, len(ent.Generics))
	for _, decl := range ent.Generics {
		t, err := decl.Type.Resolve(m.lib, bound...)
		if err != nil {
			return Binding{}, fmt.Errorf("generic %s of %s: %w", decl.Name, arch, err)
		}
		v, ok := given[decl.Name]
		if ok {
			delete(given, decl.Name)
		} else {
			if decl.Default == nil {
				return Binding{}, errorf(ErrCodeBinding, loc, "generic %s of %s has no actual and no default", decl.Name, arch)
			}
			if v, err = design.Eval(decl.Default, m.lib, bound...); err != nil {
				return Binding{}, fmt.Errorf("default of generic %s of %s: %w", decl.Name, arch, err)
			}
		}
		if v, err = value.Convert(v, t, loc); err != nil {
			return Binding{}, fmt.Errorf("generic %s of %s: %w", decl.Name, arch, err)
		}
		bound = append(bound, ig.Generic{Name: decl.Name, Value: v})
	}
	for _, g := range explicit {
		if _, left := given[ir.NormalizeIdent(g.Name)]; left {
			return Binding{}, errorf(ErrCodeBinding, loc, "%s has no generic %s", ent.ID, ir.NormalizeIdent(g.Name))
		}
	}

	actuals, err := ig.SignatureActuals(bound)
	if err != nil {
		return Binding{}, err
	}
	sig, err := ir.ComputeSignature(arch, actuals)
	if err != nil {
		return Binding{}, err
	}
	return Binding{Unit: arch, Generics: bound, Signature: sig}, nil
}

// GetOrCreateModule returns the module stored under req.Signature,
// creating it on a miss. A new module gets its entity-level graph computed
// and is persisted before anything else happens, so recursive
// instantiations of the same signature find it.
//
// If req.Elaborate is set and the module's statements are not elaborated
// yet, a build job is scheduled. If req.Parent is set, it is recorded as an
// instantiator of req.Unit.
//
// A unit that does not resolve to an architecture is reported as a
// non-fatal resolution diagnostic and returned as a resolution error.
func (m *Manager) GetOrCreateModule(ctx context.Context, req ModuleRequest) (*ig.Module, error) {
	mod, err := m.getOrCreate(ctx, req)
	if err != nil {
		return nil, err
	}

	if req.Elaborate && !mod.StatementsElaborated {
		m.schedule(ctx, req)
	}

	if !req.Parent.IsZero() {
		if _, err := m.store.ListAdd(ctx, store.ListInstantiators, req.Unit.UID(), req.Parent.UID()); err != nil {
			return nil, fmt.Errorf("register instantiator of %s: %w", req.Unit, err)
		}
	}
	return mod, nil
}

// getOrCreate deduplicates concurrent creation of the same signature. A
// caller that finds a creation in flight waits for it and reads its own
// copy of the result from the store.
func (m *Manager) getOrCreate(ctx context.Context, req ModuleRequest) (*ig.Module, error) {
	if m.threads <= 1 {
		return m.loadOrCreate(ctx, req)
	}
	v, err, shared := m.inflight.Do(string(req.Signature), func() (any, error) {
		return m.loadOrCreate(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	mod := v.(*ig.Module)
	if shared {
		return m.store.GetModule(ctx, mod.ID)
	}
	return mod, nil
}

func (m *Manager) loadOrCreate(ctx context.Context, req ModuleRequest) (*ig.Module, error) {
	id, err := m.store.GetIdx(ctx, store.IdxModule, string(req.Signature))
	if err == nil {
		mod, err := m.store.GetModule(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("load module %s: %w", req.Signature, err)
		}
		m.metrics.CacheHits.Inc()
		return mod, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("lookup module %s: %w", req.Signature, err)
	}

	arch, err := m.lib.Architecture(req.Unit)
	if err != nil {
		rerr := errorf(ErrCodeResolution, req.Location, "failed to find %s: %v", req.Unit, err)
		m.report.AddError(rerr, req.Location)
		m.logger.Warn("unresolved unit", "unit", req.Unit.UID(), "path", req.Path)
		return nil, rerr
	}

	mod := &ig.Module{
		Signature: req.Signature,
		Unit:      req.Unit,
		Path:      req.Path,
		Location:  arch.Loc,
		Generics:  req.Generics,
	}
	if err := m.computeEntityIG(mod); err != nil {
		return nil, fmt.Errorf("%s: %w", req.Path, err)
	}

	if _, err := m.store.PutModule(ctx, mod); err != nil {
		return nil, fmt.Errorf("store module %s: %w", req.Signature, err)
	}
	if err := m.store.PutIdx(ctx, store.IdxModule, string(req.Signature), mod.ID); err != nil {
		return nil, fmt.Errorf("index module %s: %w", req.Signature, err)
	}
	if _, err := m.store.ListAdd(ctx, store.ListSignatures, req.Unit.UID(), string(req.Signature)); err != nil {
		return nil, fmt.Errorf("record signature %s: %w", req.Signature, err)
	}

	m.created.Add(1)
	m.metrics.ModulesCreated.Inc()
	m.logger.Debug("module created",
		"signature", req.Signature,
		"path", req.Path,
		"id", mod.ID,
	)
	return mod, nil
}

// schedule queues a build job for req unless one is already queued or
// running, or the signature already failed in this run. Nothing is queued
// once ctx is canceled.
func (m *Manager) schedule(ctx context.Context, req ModuleRequest) {
	if ctx.Err() != nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.todo[req.Signature]; ok {
		return
	}
	if _, ok := m.failed[req.Signature]; ok {
		return
	}
	m.pending.Add(1)
	if !m.queue.Enqueue(&job{req: req}) {
		m.pending.Add(-1)
		return
	}
	m.todo[req.Signature] = struct{}{}
	m.metrics.JobsPending.Inc()
}
