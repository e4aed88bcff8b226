package ig

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/hdlelab/internal/ir"
	"github.com/roach88/hdlelab/internal/value"
)

// Module is one elaborated variant (unit + generic values) of an
// architecture.
type Module struct {
	// ID is assigned by the store on first persist and is not part of the
	// serialized form.
	ID int64 `json:"-"`

	Signature ir.Signature    `json:"signature"`
	Unit      ir.DesignUnitID `json:"unit"`

	// Path is the hierarchical path of the instance that first created the
	// module, e.g. "TOP.U0.U1".
	Path     string      `json:"path"`
	Location ir.Location `json:"location"`

	// Generics holds the actual generic values in declaration order.
	Generics []Generic `json:"generics"`
	Ports    []Port    `json:"ports"`

	Root *Structure `json:"root"`

	// StatementsElaborated is false until the statement-level IG has been
	// built into Root.
	StatementsElaborated bool `json:"statements_elaborated"`
}

// Generic binds a generic name to its value.
type Generic struct {
	Name  string
	Value value.Value
}

type genericJSON struct {
	Name  string          `json:"name"`
	Value json.RawMessage `json:"value"`
}

// MarshalJSON encodes the value with its type.
func (g Generic) MarshalJSON() ([]byte, error) {
	data, err := value.MarshalValue(g.Value)
	if err != nil {
		return nil, fmt.Errorf("generic %s: %w", g.Name, err)
	}
	return json.Marshal(genericJSON{Name: g.Name, Value: data})
}

// UnmarshalJSON decodes a Generic written by MarshalJSON.
func (g *Generic) UnmarshalJSON(data []byte) error {
	var w genericJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	v, err := value.UnmarshalValue(w.Value)
	if err != nil {
		return fmt.Errorf("generic %s: %w", w.Name, err)
	}
	g.Name, g.Value = w.Name, v
	return nil
}

// SignatureActuals converts generics into the form signatures are computed
// from.
func SignatureActuals(gs []Generic) ([]ir.GenericActual, error) {
	out := make([]ir.GenericActual, len(gs))
	for i, g := range gs {
		enc, err := value.Encode(g.Value)
		if err != nil {
			return nil, fmt.Errorf("generic %s: %w", g.Name, err)
		}
		out[i] = ir.GenericActual{Name: g.Name, Value: enc}
	}
	return out, nil
}

// PortMode is the direction of a port.
type PortMode string

const (
	ModeIn     PortMode = "in"
	ModeOut    PortMode = "out"
	ModeInout  PortMode = "inout"
	ModeBuffer PortMode = "buffer"
)

// Valid reports whether m is a known mode.
func (m PortMode) Valid() bool {
	switch m {
	case ModeIn, ModeOut, ModeInout, ModeBuffer:
		return true
	}
	return false
}

// Port is an entity port with its type resolved against the module's
// generics.
type Port struct {
	Name string      `json:"name"`
	Mode PortMode    `json:"mode"`
	Type *value.Type `json:"type"`
}

// Signal is a signal declared in a structure.
type Signal struct {
	Name string      `json:"name"`
	Type *value.Type `json:"type"`
}

// Generic returns the actual value of the named generic.
func (m *Module) Generic(name string) (value.Value, bool) {
	name = ir.NormalizeIdent(name)
	for _, g := range m.Generics {
		if g.Name == name {
			return g.Value, true
		}
	}
	return nil, false
}

// Instantiations returns every instantiation in the module's statement IG,
// in statement order, including those inside generate structures.
func (m *Module) Instantiations() []*Instantiation {
	if m.Root == nil {
		return nil
	}
	var out []*Instantiation
	m.Root.walk(func(s Statement) {
		if inst, ok := s.(*Instantiation); ok {
			out = append(out, inst)
		}
	})
	return out
}

// UpdateInstantiations re-binds in place every instantiation for which
// rebind reports a new signature. It returns the number of instantiations
// changed. An error from rebind stops the pass.
func (m *Module) UpdateInstantiations(rebind func(inst *Instantiation) (ir.Signature, bool, error)) (int, error) {
	n := 0
	for _, inst := range m.Instantiations() {
		sig, changed, err := rebind(inst)
		if err != nil {
			return n, fmt.Errorf("rebind %s: %w", inst.Label, err)
		}
		if changed {
			inst.Signature = sig
			n++
		}
	}
	return n, nil
}

func (m *Module) String() string {
	return fmt.Sprintf("module %s (%s)", m.Signature, m.Unit)
}
