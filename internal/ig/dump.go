package ig

import (
	"fmt"
	"io"
	"strings"
)

// Dump writes a human-readable indented tree of m. It does not follow
// instantiations into child modules.
func Dump(w io.Writer, m *Module) error {
	d := &dumper{w: w}
	state := "pending"
	if m.StatementsElaborated {
		state = "elaborated"
	}
	d.line(0, "module %s [%s]", m.Signature, state)
	if m.Path != "" {
		d.line(1, "path %s", m.Path)
	}
	for _, g := range m.Generics {
		d.line(1, "generic %s = %s", g.Name, g.Value)
	}
	for _, p := range m.Ports {
		d.line(1, "port %s : %s %s", p.Name, p.Mode, p.Type)
	}
	if m.Root != nil {
		d.structure(1, m.Root)
	}
	return d.err
}

type dumper struct {
	w   io.Writer
	err error
}

func (d *dumper) line(indent int, format string, args ...any) {
	if d.err != nil {
		return
	}
	_, d.err = fmt.Fprintf(d.w, "%s%s\n", strings.Repeat("  ", indent), fmt.Sprintf(format, args...))
}

func (d *dumper) structure(indent int, s *Structure) {
	if s.Param != nil {
		d.line(indent, "%s %s [%s = %s]", s.Kind, s.Label, s.Param.Name, s.Param.Value)
	} else {
		d.line(indent, "%s %s", s.Kind, s.Label)
	}
	for _, sig := range s.Signals {
		d.line(indent+1, "signal %s : %s", sig.Name, sig.Type)
	}
	for _, st := range s.Statements {
		switch x := st.(type) {
		case *Structure:
			d.structure(indent+1, x)
		case *Instantiation:
			d.line(indent+1, "instance %s -> %s", x.Label, x.Signature)
			for _, a := range x.GenericMap {
				d.line(indent+2, "generic map %s => %s", a.Formal, a.Actual)
			}
			for _, a := range x.PortMap {
				d.line(indent+2, "port map %s => %s", a.Formal, a.Actual)
			}
		case *Process:
			if len(x.Sensitivity) > 0 {
				d.line(indent+1, "process %s (%s)", x.Label, strings.Join(x.Sensitivity, ", "))
			} else {
				d.line(indent+1, "process %s", x.Label)
			}
			if len(x.Reads) > 0 {
				d.line(indent+2, "reads %s", strings.Join(x.Reads, ", "))
			}
			if len(x.Writes) > 0 {
				d.line(indent+2, "writes %s", strings.Join(x.Writes, ", "))
			}
		}
	}
}
