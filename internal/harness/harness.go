package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/roach88/hdlelab/internal/design"
	"github.com/roach88/hdlelab/internal/elab"
	"github.com/roach88/hdlelab/internal/ig"
	"github.com/roach88/hdlelab/internal/ir"
	"github.com/roach88/hdlelab/internal/store"
)

// Harness executes one scenario against a fresh graph.
type Harness struct {
	scenario *Scenario
	lib      *design.Library
	store    *store.Store
	mgr      *elab.Manager
	runs     *runCounter
	seq      atomic.Int64
	logger   *slog.Logger
}

// runCounter generates the run ids "run-1", "run-2", ... and remembers
// the last one.
type runCounter struct {
	n atomic.Int64
}

func (c *runCounter) Generate() string {
	return fmt.Sprintf("run-%d", c.n.Add(1))
}

func (c *runCounter) last() string {
	if n := c.n.Load(); n > 0 {
		return fmt.Sprintf("run-%d", n)
	}
	return ""
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database. Execution:
//  1. Load the design directory.
//  2. Run the steps in order, checking each step's expect clause.
//  3. Evaluate the assertions against the final graph.
//  4. Collect the module set for golden comparison.
//
// An error is returned when the scenario cannot execute at all; failed
// expectations and assertions are reported in Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	lib, err := design.LoadDir(scenario.Design)
	if err != nil {
		return nil, fmt.Errorf("failed to load design: %w", err)
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	threads := scenario.Threads
	if threads < 1 {
		threads = 1
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	h := &Harness{
		scenario: scenario,
		lib:      lib,
		store:    st,
		runs:     &runCounter{},
		logger:   logger,
	}
	h.mgr = elab.NewManager(st, lib,
		elab.WithLogger(logger),
		elab.WithThreads(threads),
		elab.WithIndexing(scenario.Indexing),
		elab.WithToplevels(scenario.toplevels...),
		elab.WithRunIDGenerator(h.runs),
	)
	defer h.mgr.Close()

	ctx := context.Background()
	result := NewResult()

	for i, step := range scenario.Steps {
		ev, err := h.executeStep(ctx, step)
		if err != nil {
			return nil, fmt.Errorf("steps[%d] (%s): %w", i, step.Kind(), err)
		}
		result.AddTrace(ev)
		for _, msg := range checkExpect(i, step.Expect, ev) {
			result.AddError(msg)
		}
	}

	actx := &AssertionContext{Ctx: ctx, Manager: h.mgr, Store: st}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}

	result.Diagnostics = h.mgr.Report().Diagnostics()
	if result.Modules, err = h.moduleLines(ctx); err != nil {
		return nil, fmt.Errorf("failed to collect modules: %w", err)
	}
	return result, nil
}

func (h *Harness) executeStep(ctx context.Context, step Step) (TraceEvent, error) {
	ev := TraceEvent{Seq: h.seq.Add(1), Step: step.Kind()}

	switch ev.Step {
	case StepBuild:
		if _, err := h.mgr.BuildAll(ctx); err != nil {
			return ev, err
		}
	case StepLoad:
		if err := h.load(step.loadPath); err != nil {
			return ev, err
		}
		ev.File = step.Load
	case StepRebuild:
		n, err := h.mgr.RebuildNodes(ctx, step.changed)
		if err != nil {
			return ev, err
		}
		ev.Affected = n
		for _, id := range step.changed {
			ev.Changed = append(ev.Changed, id.UID())
		}
	}

	if ev.Step != StepLoad {
		ev.RunID = h.runs.last()
	}

	n, err := h.store.CountModules(ctx)
	if err != nil {
		return ev, err
	}
	ev.Modules = n
	ev.Diagnostics = h.mgr.Report().Len()

	h.logger.Info("step completed", "seq", ev.Seq, "step", ev.Step, "modules", ev.Modules)
	return ev, nil
}

// load replaces the library units declared in the CUE file at path.
func (h *Harness) load(path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	loaded, err := design.LoadSource(path, string(src))
	if err != nil {
		return err
	}
	for _, u := range loaded.Units() {
		h.lib.Replace(u)
	}
	return nil
}

func checkExpect(index int, exp *ExpectClause, ev TraceEvent) []string {
	if exp == nil {
		return nil
	}
	var errs []string
	check := func(field string, want *int, got int) {
		if want != nil && *want != got {
			errs = append(errs, fmt.Sprintf("steps[%d] (%s): expected %s %d, got %d", index, ev.Step, field, *want, got))
		}
	}
	check("modules", exp.Modules, ev.Modules)
	check("affected", exp.Affected, ev.Affected)
	check("diagnostics", exp.Diagnostics, ev.Diagnostics)
	return errs
}

// moduleLines walks every built toplevel and renders each distinct module
// as "UNIT NAME=value ... [LABEL ...]", sorted. Instantiations of modules
// that were never stored are skipped.
func (h *Harness) moduleLines(ctx context.Context) ([]string, error) {
	seen := map[ir.Signature]bool{}
	lines := []string{}

	var visit func(m *ig.Module) error
	var walk func(s *ig.Structure) error
	visit = func(m *ig.Module) error {
		if seen[m.Signature] {
			return nil
		}
		seen[m.Signature] = true
		lines = append(lines, moduleLine(m))
		if m.Root == nil {
			return nil
		}
		return walk(m.Root)
	}
	walk = func(s *ig.Structure) error {
		for _, st := range s.Statements {
			switch x := st.(type) {
			case *ig.Structure:
				if err := walk(x); err != nil {
					return err
				}
			case *ig.Instantiation:
				if x.Signature == "" {
					continue
				}
				child, err := h.mgr.FindModule(ctx, x.Signature)
				if errors.Is(err, ig.ErrModuleNotFound) {
					continue
				}
				if err != nil {
					return err
				}
				if err := visit(child); err != nil {
					return err
				}
			}
		}
		return nil
	}

	for _, tl := range h.scenario.toplevels {
		mod, err := h.mgr.FindModuleForToplevel(ctx, tl)
		if err != nil {
			// Unresolved or never built toplevels have no modules.
			continue
		}
		if err := visit(mod); err != nil {
			return nil, err
		}
	}
	sort.Strings(lines)
	return lines, nil
}

func moduleLine(m *ig.Module) string {
	var sb strings.Builder
	sb.WriteString(m.Unit.UID())
	for _, g := range m.Generics {
		fmt.Fprintf(&sb, " %s=%s", g.Name, g.Value)
	}
	if m.Root != nil {
		labels := make([]string, 0, len(m.Root.Statements))
		for _, st := range m.Root.Statements {
			labels = append(labels, st.StmtLabel())
		}
		fmt.Fprintf(&sb, " [%s]", strings.Join(labels, " "))
	}
	return sb.String()
}
