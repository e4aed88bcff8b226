package ig

import (
	"github.com/roach88/hdlelab/internal/ir"
	"github.com/roach88/hdlelab/internal/value"
)

const (
	topSig  = ir.Signature("WORK.TOP(RTL)#fedcba9876543210")
	leafSig = ir.Signature("WORK.LEAF(RTL)#0123456789abcdef")
)

func leafModule() *Module {
	return &Module{
		Signature: leafSig,
		Unit:      ir.ArchitectureID("work", "leaf", "rtl"),
		Path:      "TOP.U0",
		Generics:  []Generic{{Name: "N", Value: value.IntOf(3)}},
		Ports:     []Port{{Name: "X", Mode: ModeIn, Type: value.TypeStdLogic}},
		Root: &Structure{
			Label: "LEAF", Path: "TOP.U0", Kind: KindArchitecture,
			Statements: []Statement{
				&Process{Label: "P", Path: "TOP.U0.P", Reads: []string{"X"}},
			},
		},
		StatementsElaborated: true,
	}
}

func topModule() *Module {
	leaf := ir.ArchitectureID("work", "leaf", "rtl")
	iteration := func(i int64) *Structure {
		label := "G(" + value.IntOf(i).String() + ")"
		return &Structure{
			Label: label, Path: "TOP." + label, Kind: KindForGenerate,
			Param: &Generic{Name: "I", Value: value.IntOf(i)},
			Statements: []Statement{
				&Instantiation{Label: "U1", Path: "TOP." + label + ".U1", Unit: leaf, Signature: leafSig},
			},
		}
	}
	return &Module{
		ID:        1,
		Signature: topSig,
		Unit:      ir.ArchitectureID("work", "top", "rtl"),
		Path:      "TOP",
		Location:  ir.Location{File: "top.cue", Line: 4},
		Generics:  []Generic{{Name: "WIDTH", Value: value.IntOf(8)}},
		Ports: []Port{
			{Name: "CLK", Mode: ModeIn, Type: value.TypeStdLogic},
			{Name: "D", Mode: ModeOut, Type: value.TypeStdLogicVector.Constrain(7, 0, false)},
		},
		Root: &Structure{
			Label: "TOP", Path: "TOP", Kind: KindArchitecture,
			Signals: []Signal{{Name: "S", Type: value.TypeStdLogic}},
			Statements: []Statement{
				&Instantiation{
					Label: "U0", Path: "TOP.U0", Unit: leaf, Signature: leafSig,
					Generics:   []Generic{{Name: "N", Value: value.IntOf(3)}},
					GenericMap: []Association{{Formal: "N", Actual: "3"}},
					PortMap:    []Association{{Formal: "X", Actual: "S"}},
				},
				&Process{Label: "P0", Path: "TOP.P0", Sensitivity: []string{"CLK"}, Reads: []string{"D"}, Writes: []string{"S"}},
				iteration(0),
				iteration(1),
			},
		},
		StatementsElaborated: true,
	}
}
