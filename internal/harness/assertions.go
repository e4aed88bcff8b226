package harness

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/roach88/hdlelab/internal/elab"
	"github.com/roach88/hdlelab/internal/ir"
	"github.com/roach88/hdlelab/internal/store"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Subject  string       // What was checked, e.g. a toplevel or path
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Executed steps for context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s", e.Type)
	if e.Subject != "" {
		fmt.Fprintf(&buf, " (%s)", e.Subject)
	}
	buf.WriteByte('\n')
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nSteps:\n")
		for _, ev := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s: %d modules, %d diagnostics\n", ev.Seq, ev.Step, ev.Modules, ev.Diagnostics)
		}
	}
	return buf.String()
}

// AssertionContext provides the graph assertions are evaluated against.
type AssertionContext struct {
	Ctx     context.Context
	Manager *elab.Manager
	Store   *store.Store
}

// EvaluateAssertions evaluates all assertions and returns a message per
// failed assertion.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string

	for i, a := range assertions {
		var err error
		if actx == nil || actx.Manager == nil || actx.Store == nil {
			err = fmt.Errorf("assertion[%d]: %s requires a graph", i, a.Type)
		} else {
			err = evaluate(actx, result, a)
		}
		if err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}

func evaluate(actx *AssertionContext, result *Result, a Assertion) error {
	ctx, m := actx.Ctx, actx.Manager

	fail := func(subject, expected, actual string) error {
		return &AssertionError{Type: a.Type, Subject: subject, Expected: expected, Actual: actual, Trace: result.Trace}
	}
	countIs := func(subject string, got int) error {
		if got != *a.Count {
			return fail(subject, fmt.Sprint(*a.Count), fmt.Sprint(got))
		}
		return nil
	}
	listIs := func(subject string, got []string) error {
		if diff := cmp.Diff(a.Expect, got, cmpopts.EquateEmpty()); diff != "" {
			return fail(subject, fmt.Sprintf("%q", a.Expect), fmt.Sprintf("%q", got))
		}
		return nil
	}

	switch a.Type {
	case AssertModuleCount:
		n, err := actx.Store.CountModules(ctx)
		if err != nil {
			return err
		}
		return countIs("", n)

	case AssertNodeCount:
		tl, _ := ir.ParseUnitRef(a.Toplevel)
		depth := -1
		if a.Depth != nil {
			depth = *a.Depth
		}
		n, err := m.CountNodes(ctx, tl, depth)
		if err != nil {
			return fail(tl.UID(), fmt.Sprint(*a.Count), err.Error())
		}
		return countIs(tl.UID(), n)

	case AssertItemExists:
		tl, _ := ir.ParseUnitRef(a.Toplevel)
		if _, err := m.FindItem(ctx, tl, a.Path); err != nil {
			return fail(tl.UID()+" "+a.Path, "item exists", err.Error())
		}
		return nil

	case AssertInstantiators:
		unit, _ := ir.ParseUnitRef(a.Unit)
		ids, err := m.FindInstantiators(ctx, unit)
		if err != nil {
			return fail(unit.UID(), fmt.Sprintf("%q", a.Expect), err.Error())
		}
		got := make([]string, len(ids))
		for i, id := range ids {
			got[i] = id.UID()
		}
		return listIs(unit.UID(), got)

	case AssertDiagnostics:
		n := 0
		for _, d := range m.Report().Diagnostics() {
			if a.Category == "" || string(d.Category) == a.Category {
				n++
			}
		}
		return countIs(a.Category, n)

	case AssertInstanceLabels:
		got, err := m.InstanceLabels(ctx, a.Path)
		if err != nil {
			return err
		}
		return listIs(a.Path, got)

	case AssertSignalConnections:
		got, err := m.SignalConnections(ctx, a.Path)
		if err != nil {
			return err
		}
		return listIs(a.Path, got)

	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}
