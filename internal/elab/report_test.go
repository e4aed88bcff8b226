package elab

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/hdlelab/internal/design"
	"github.com/roach88/hdlelab/internal/ir"
)

func TestClassify(t *testing.T) {
	loc := ir.Location{File: "a.cue", Line: 3}

	tests := []struct {
		name  string
		err   error
		cat   Category
		fatal bool
	}{
		{"resolution", errorf(ErrCodeResolution, loc, "failed to find X"), CategoryResolution, false},
		{"wrapped resolution", fmt.Errorf("TOP.U: %w", errorf(ErrCodeResolution, loc, "x")), CategoryResolution, false},
		{"binding", errorf(ErrCodeBinding, loc, "no default"), CategoryEvaluation, true},
		{"unknown function", fmt.Errorf("f: %w", design.ErrUnknownFunction), CategoryEvaluation, true},
		{"other", errors.New("disk on fire"), CategoryInternal, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cat, fatal := classify(tt.err)
			assert.Equal(t, tt.cat, cat)
			assert.Equal(t, tt.fatal, fatal)
		})
	}
}

func TestReport_AddErrorPrefersOwnLocation(t *testing.T) {
	r := NewReport()
	own := ir.Location{File: "a.cue", Line: 3, Col: 2}
	fallback := ir.Location{File: "b.cue", Line: 9}

	r.AddError(errorf(ErrCodeResolution, own, "failed to find X"), fallback)
	r.AddError(errors.New("boom"), fallback)

	diags := r.Diagnostics()
	require.Len(t, diags, 2)
	assert.Equal(t, own, diags[0].Location)
	assert.Equal(t, fallback, diags[1].Location)
	assert.Equal(t, "a.cue:3:2: warning [resolution]: a.cue:3:2: RESOLUTION: failed to find X", diags[0].String())
	assert.True(t, r.HasFatal())
}

func TestReport_DiagnosticsIsCopy(t *testing.T) {
	r := NewReport()
	r.Add(Diagnostic{Category: CategoryInternal, Message: "x"})

	diags := r.Diagnostics()
	diags[0].Message = "changed"
	assert.Equal(t, "x", r.Diagnostics()[0].Message)
}

func TestReport_ConcurrentAdd(t *testing.T) {
	r := NewReport()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				r.Add(Diagnostic{Category: CategoryResolution})
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 400, r.Len())
	assert.False(t, r.HasFatal())
}
