package elab

import (
	"fmt"
	"sync"

	"github.com/roach88/hdlelab/internal/ir"
)

// Diagnostic is one problem found during elaboration.
type Diagnostic struct {
	Category Category    `json:"category"`
	Fatal    bool        `json:"fatal"`
	Message  string      `json:"message"`
	Location ir.Location `json:"location"`
}

func (d Diagnostic) String() string {
	sev := "warning"
	if d.Fatal {
		sev = "error"
	}
	if d.Location.IsValid() {
		return fmt.Sprintf("%s: %s [%s]: %s", d.Location, sev, d.Category, d.Message)
	}
	return fmt.Sprintf("%s [%s]: %s", sev, d.Category, d.Message)
}

// Report accumulates diagnostics without halting the caller.
// Safe for concurrent use.
type Report struct {
	mu    sync.Mutex
	diags []Diagnostic
}

// NewReport creates an empty report.
func NewReport() *Report {
	return &Report{}
}

// Add appends d.
func (r *Report) Add(d Diagnostic) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.diags = append(r.diags, d)
}

// AddError classifies err and appends it. loc is used when err carries no
// location of its own.
func (r *Report) AddError(err error, loc ir.Location) {
	cat, fatal := classify(err)
	if l := locationOf(err); l.IsValid() {
		loc = l
	}
	r.Add(Diagnostic{Category: cat, Fatal: fatal, Message: err.Error(), Location: loc})
}

// Diagnostics returns a copy of the diagnostics in the order they were
// added.
func (r *Report) Diagnostics() []Diagnostic {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Diagnostic, len(r.diags))
	copy(out, r.diags)
	return out
}

// Len returns the number of diagnostics.
func (r *Report) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.diags)
}

// HasFatal reports whether any diagnostic is fatal.
func (r *Report) HasFatal() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.diags {
		if d.Fatal {
			return true
		}
	}
	return false
}
