package ig

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/hdlelab/internal/ir"
)

// Statement is a concurrent statement of a Structure: *Structure,
// *Instantiation or *Process.
type Statement interface {
	StmtLabel() string
	statement()
}

// StructureKind tells what produced a structure.
type StructureKind string

const (
	KindArchitecture StructureKind = "architecture"
	KindBlock        StructureKind = "block"
	KindForGenerate  StructureKind = "for_generate"
	KindIfGenerate   StructureKind = "if_generate"
)

// Structure is an ordered sequence of labeled concurrent statements.
type Structure struct {
	Label    string
	Path     string
	Kind     StructureKind
	Location ir.Location

	// Param is the generate parameter of one for-generate iteration.
	Param *Generic

	Signals    []Signal
	Statements []Statement
}

func (*Structure) statement()          {}
func (s *Structure) StmtLabel() string { return s.Label }

// Instantiation is a component instance. It refers to the child module by
// signature only.
type Instantiation struct {
	Label    string          `json:"label"`
	Path     string          `json:"path"`
	Location ir.Location     `json:"location"`
	Unit     ir.DesignUnitID `json:"unit"`

	Signature ir.Signature `json:"signature"`

	// Generics holds the explicit actual values, kept for rebinding when
	// the child unit changes.
	Generics []Generic `json:"generics,omitempty"`

	GenericMap []Association `json:"generic_map,omitempty"`
	PortMap    []Association `json:"port_map,omitempty"`
}

func (*Instantiation) statement()          {}
func (i *Instantiation) StmtLabel() string { return i.Label }

// Association maps a formal to an actual. Actual is the rendered
// expression or signal name.
type Association struct {
	Formal string `json:"formal"`
	Actual string `json:"actual"`
}

// Process is a process statement with its signal footprint.
type Process struct {
	Label       string      `json:"label"`
	Path        string      `json:"path"`
	Location    ir.Location `json:"location"`
	Sensitivity []string    `json:"sensitivity,omitempty"`
	Reads       []string    `json:"reads,omitempty"`
	Writes      []string    `json:"writes,omitempty"`
}

func (*Process) statement()          {}
func (p *Process) StmtLabel() string { return p.Label }

// Find returns the direct child statement with the given label.
func (s *Structure) Find(label string) (Statement, bool) {
	label = ir.NormalizeIdent(label)
	for _, st := range s.Statements {
		if ir.NormalizeIdent(st.StmtLabel()) == label {
			return st, true
		}
	}
	return nil, false
}

// FindSignal returns the signal declared directly in s.
func (s *Structure) FindSignal(name string) (Signal, bool) {
	name = ir.NormalizeIdent(name)
	for _, sig := range s.Signals {
		if sig.Name == name {
			return sig, true
		}
	}
	return Signal{}, false
}

// walk calls fn for every statement below s, depth first, in order.
func (s *Structure) walk(fn func(Statement)) {
	for _, st := range s.Statements {
		fn(st)
		if sub, ok := st.(*Structure); ok {
			sub.walk(fn)
		}
	}
}

type structureJSON struct {
	Label      string        `json:"label"`
	Path       string        `json:"path"`
	Kind       StructureKind `json:"kind"`
	Location   ir.Location   `json:"location"`
	Param      *Generic      `json:"param,omitempty"`
	Signals    []Signal      `json:"signals,omitempty"`
	Statements []stmtJSON    `json:"statements,omitempty"`
}

// stmtJSON tags a statement with its variant; exactly one field is set.
type stmtJSON struct {
	Structure     *Structure     `json:"structure,omitempty"`
	Instantiation *Instantiation `json:"instance,omitempty"`
	Process       *Process       `json:"process,omitempty"`
}

// MarshalJSON encodes the structure with tagged statements.
func (s *Structure) MarshalJSON() ([]byte, error) {
	w := structureJSON{
		Label: s.Label, Path: s.Path, Kind: s.Kind, Location: s.Location,
		Param: s.Param, Signals: s.Signals,
	}
	for _, st := range s.Statements {
		switch x := st.(type) {
		case *Structure:
			w.Statements = append(w.Statements, stmtJSON{Structure: x})
		case *Instantiation:
			w.Statements = append(w.Statements, stmtJSON{Instantiation: x})
		case *Process:
			w.Statements = append(w.Statements, stmtJSON{Process: x})
		default:
			return nil, fmt.Errorf("structure %s: unknown statement %T", s.Label, st)
		}
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes a structure written by MarshalJSON.
func (s *Structure) UnmarshalJSON(data []byte) error {
	var w structureJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*s = Structure{
		Label: w.Label, Path: w.Path, Kind: w.Kind, Location: w.Location,
		Param: w.Param, Signals: w.Signals,
	}
	for i, st := range w.Statements {
		switch {
		case st.Structure != nil:
			s.Statements = append(s.Statements, st.Structure)
		case st.Instantiation != nil:
			s.Statements = append(s.Statements, st.Instantiation)
		case st.Process != nil:
			s.Statements = append(s.Statements, st.Process)
		default:
			return fmt.Errorf("structure %s: statement %d has no variant", w.Label, i)
		}
	}
	return nil
}
