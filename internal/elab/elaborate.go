package elab

import (
	"context"
	"fmt"

	"github.com/roach88/hdlelab/internal/design"
	"github.com/roach88/hdlelab/internal/ig"
	"github.com/roach88/hdlelab/internal/ir"
	"github.com/roach88/hdlelab/internal/value"
)

// computeEntityIG resolves the module's ports against its generics.
func (m *Manager) computeEntityIG(mod *ig.Module) error {
	ent, err := m.lib.Entity(mod.Unit)
	if err != nil {
		return errorf(ErrCodeResolution, mod.Location, "failed to find entity of %s: %v", mod.Unit, err)
	}
	mod.Ports = make([]ig.Port, 0, len(ent.Ports))
	for _, p := range ent.Ports {
		t, err := p.Type.Resolve(m.lib, mod.Generics...)
		if err != nil {
			return fmt.Errorf("port %s: %w", p.Name, err)
		}
		mod.Ports = append(mod.Ports, ig.Port{Name: p.Name, Mode: p.Mode, Type: t})
	}
	return nil
}

// scope is the constant bindings visible to an expression: the module's
// generics plus enclosing generate parameters.
type scope []ig.Generic

func (s scope) with(g ig.Generic) scope {
	out := make(scope, len(s), len(s)+1)
	copy(out, s)
	return append(out, g)
}

// elaborator builds the statement-level graph of one module.
type elaborator struct {
	m   *Manager
	ctx context.Context
	mod *ig.Module
}

// elaborateStatements builds the root structure of mod from its
// architecture. Child instantiations are created through GetOrCreateModule
// and scheduled for elaboration; instantiations that do not resolve are
// reported and left out.
func (m *Manager) elaborateStatements(ctx context.Context, mod *ig.Module) (*ig.Structure, error) {
	arch, err := m.lib.Architecture(mod.Unit)
	if err != nil {
		return nil, errorf(ErrCodeResolution, mod.Location, "failed to find %s: %v", mod.Unit, err)
	}

	e := &elaborator{m: m, ctx: ctx, mod: mod}
	root := &ig.Structure{
		Label:    arch.ID.Arch,
		Path:     mod.Path,
		Kind:     ig.KindArchitecture,
		Location: arch.Loc,
	}
	sc := scope(mod.Generics)
	if root.Signals, err = e.signals(arch.Signals, sc); err != nil {
		return nil, err
	}
	if err := e.statements(root, arch.Statements, sc); err != nil {
		return nil, err
	}
	return root, nil
}

func (e *elaborator) signals(decls []design.SignalDecl, sc scope) ([]ig.Signal, error) {
	out := make([]ig.Signal, 0, len(decls))
	for _, d := range decls {
		t, err := d.Type.Resolve(e.m.lib, sc...)
		if err != nil {
			return nil, fmt.Errorf("signal %s: %w", d.Name, err)
		}
		out = append(out, ig.Signal{Name: d.Name, Type: t})
	}
	return out, nil
}

func (e *elaborator) statements(parent *ig.Structure, stmts []design.Statement, sc scope) error {
	for _, st := range stmts {
		if err := e.ctx.Err(); err != nil {
			return err
		}
		path := childPath(parent.Path, st.StmtLabel())

		switch s := st.(type) {
		case *design.InstanceStmt:
			inst, err := e.instance(s, path, sc)
			if err != nil {
				return err
			}
			if inst != nil {
				parent.Statements = append(parent.Statements, inst)
			}

		case *design.ProcessStmt:
			parent.Statements = append(parent.Statements, &ig.Process{
				Label:       s.Label,
				Path:        path,
				Location:    s.Loc,
				Sensitivity: s.Sensitivity,
				Reads:       s.Reads,
				Writes:      s.Writes,
			})

		case *design.ForGenerate:
			if err := e.forGenerate(parent, s, sc); err != nil {
				return err
			}

		case *design.IfGenerate:
			if err := e.ifGenerate(parent, s, path, sc); err != nil {
				return err
			}

		default:
			return fmt.Errorf("%s: unsupported statement %T", st.Location(), st)
		}
	}
	return nil
}

// instance elaborates an instantiation. It returns nil when the
// instantiated unit does not resolve; that is reported, not failed.
func (e *elaborator) instance(s *design.InstanceStmt, path string, sc scope) (*ig.Instantiation, error) {
	explicit := make([]ig.Generic, 0, len(s.Generics))
	genericMap := make([]ig.Association, 0, len(s.Generics))
	for _, a := range s.Generics {
		v, err := design.Eval(a.Actual, e.m.lib, sc...)
		if err != nil {
			return nil, fmt.Errorf("%s: generic %s: %w", path, a.Formal, err)
		}
		explicit = append(explicit, ig.Generic{Name: a.Formal, Value: v})
		genericMap = append(genericMap, ig.Association{Formal: a.Formal, Actual: a.Actual.String()})
	}

	b, err := e.m.Bind(s.Unit, explicit, s.Loc)
	if IsResolutionError(err) {
		e.m.report.AddError(err, s.Loc)
		e.m.logger.Warn("unresolved instantiation", "path", path, "unit", s.Unit.UID())
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	_, err = e.m.GetOrCreateModule(e.ctx, ModuleRequest{
		Path:      path,
		Parent:    e.mod.Unit,
		Unit:      b.Unit,
		Signature: b.Signature,
		Generics:  b.Generics,
		Elaborate: true,
		Location:  s.Loc,
	})
	if IsResolutionError(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &ig.Instantiation{
		Label:      s.Label,
		Path:       path,
		Location:   s.Loc,
		Unit:       s.Unit,
		Signature:  b.Signature,
		Generics:   explicit,
		GenericMap: genericMap,
		PortMap:    append([]ig.Association(nil), s.Ports...),
	}, nil
}

// forGenerate adds one structure per iteration, labeled "G(i)".
func (e *elaborator) forGenerate(parent *ig.Structure, s *design.ForGenerate, sc scope) error {
	from, err := design.EvalInt(s.From, e.m.lib, sc...)
	if err != nil {
		return fmt.Errorf("%s: range: %w", s.Label, err)
	}
	to, err := design.EvalInt(s.To, e.m.lib, sc...)
	if err != nil {
		return fmt.Errorf("%s: range: %w", s.Label, err)
	}

	for i := from; i <= to; i++ {
		param := ig.Generic{Name: s.Var, Value: value.IntOf(int64(i))}
		label := fmt.Sprintf("%s(%d)", s.Label, i)
		iter := &ig.Structure{
			Label:    label,
			Path:     childPath(parent.Path, label),
			Kind:     ig.KindForGenerate,
			Location: s.Loc,
			Param:    &param,
		}
		isc := sc.with(param)
		if iter.Signals, err = e.signals(s.Signals, isc); err != nil {
			return fmt.Errorf("%s: %w", label, err)
		}
		if err := e.statements(iter, s.Body, isc); err != nil {
			return err
		}
		parent.Statements = append(parent.Statements, iter)
	}
	return nil
}

func (e *elaborator) ifGenerate(parent *ig.Structure, s *design.IfGenerate, path string, sc scope) error {
	cond, err := design.Eval(s.Cond, e.m.lib, sc...)
	if err != nil {
		return fmt.Errorf("%s: condition: %w", s.Label, err)
	}
	if !value.Truthy(cond) {
		return nil
	}

	body := &ig.Structure{
		Label:    s.Label,
		Path:     path,
		Kind:     ig.KindIfGenerate,
		Location: s.Loc,
	}
	if body.Signals, err = e.signals(s.Signals, sc); err != nil {
		return fmt.Errorf("%s: %w", s.Label, err)
	}
	if err := e.statements(body, s.Body, sc); err != nil {
		return err
	}
	parent.Statements = append(parent.Statements, body)
	return nil
}

func childPath(parent, label string) string {
	if parent == "" {
		return label
	}
	return parent + "." + label
}

// toplevelPath is the root path of a toplevel module: its entity name.
func toplevelPath(unit ir.DesignUnitID) string {
	return unit.Entity
}
