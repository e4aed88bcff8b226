package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/hdlelab/internal/ig"
	"github.com/roach88/hdlelab/internal/ir"
	"github.com/roach88/hdlelab/internal/value"
)

// createTestStore creates a new store in a temp dir for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// testModule creates a module with one generic and one process.
func testModule(sig string) *ig.Module {
	return &ig.Module{
		Signature: ir.Signature(sig),
		Unit:      ir.ArchitectureID("work", "a", "rtl"),
		Path:      "A",
		Generics:  []ig.Generic{{Name: "W", Value: value.IntOf(4)}},
		Root: &ig.Structure{
			Label: "A", Path: "A", Kind: ig.KindArchitecture,
			Statements: []ig.Statement{&ig.Process{Label: "P", Path: "A.P"}},
		},
	}
}
