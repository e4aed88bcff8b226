package interp

import (
	"log/slog"
	"math/big"
	"sort"

	"github.com/roach88/hdlelab/internal/ir"
	"github.com/roach88/hdlelab/internal/value"
)

// DefaultMaxCallDepth bounds interpreted call nesting.
const DefaultMaxCallDepth = 256

// ReturnStatus tells the executing loop whether to go on with the next
// statement or leave the current code.
type ReturnStatus int

const (
	// Continue proceeds with the next statement.
	Continue ReturnStatus = iota
	// Return leaves the current code; the result, if any, is on the stack.
	Return
)

func (s ReturnStatus) String() string {
	if s == Return {
		return "RETURN"
	}
	return "CONTINUE"
}

// Frame is one activation: the bindings of a call or the top level.
type Frame struct {
	Name   string
	Result *value.Type
	vars   map[string]value.Value
}

// Runtime is the execution environment of interpreter code. It is not safe
// for concurrent use; every elaboration job uses its own Runtime.
type Runtime struct {
	stack    []value.Value
	frames   []*Frame
	now      big.Int
	wakeups  []*big.Int
	builtins map[Builtin]BuiltinFunc
	maxDepth int
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithMaxCallDepth overrides DefaultMaxCallDepth.
func WithMaxCallDepth(n int) Option {
	return func(rt *Runtime) {
		rt.maxDepth = n
	}
}

// WithTime sets the initial simulation time.
func WithTime(t *big.Int) Option {
	return func(rt *Runtime) {
		rt.now.Set(t)
	}
}

// WithBuiltin registers or replaces a builtin handler.
func WithBuiltin(id Builtin, fn BuiltinFunc) Option {
	return func(rt *Runtime) {
		rt.builtins[id] = fn
	}
}

// NewRuntime creates a runtime with an empty top-level frame and the
// standard builtins.
func NewRuntime(opts ...Option) *Runtime {
	rt := &Runtime{
		frames:   []*Frame{{Name: "<top>", vars: map[string]value.Value{}}},
		builtins: make(map[Builtin]BuiltinFunc, len(standardBuiltins)),
		maxDepth: DefaultMaxCallDepth,
	}
	for id, fn := range standardBuiltins {
		rt.builtins[id] = fn
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

// Push pushes v onto the value stack.
func (rt *Runtime) Push(v value.Value) {
	rt.stack = append(rt.stack, v)
}

// Pop removes and returns the top of the value stack.
func (rt *Runtime) Pop(loc ir.Location) (value.Value, error) {
	n := len(rt.stack)
	if n == 0 {
		return nil, errorf(ErrCodeStackUnderflow, loc, "pop from empty value stack")
	}
	v := rt.stack[n-1]
	rt.stack[n-1] = nil
	rt.stack = rt.stack[:n-1]
	return v, nil
}

// StackDepth returns the number of values on the stack.
func (rt *Runtime) StackDepth() int { return len(rt.stack) }

// Define binds name in the innermost frame.
func (rt *Runtime) Define(name string, v value.Value) {
	rt.frames[len(rt.frames)-1].vars[ir.NormalizeIdent(name)] = v
}

// Lookup resolves name in the innermost frame, then the top-level frame.
// Interpreted functions do not see their caller's locals.
func (rt *Runtime) Lookup(name string) (value.Value, bool) {
	key := ir.NormalizeIdent(name)
	if v, ok := rt.frames[len(rt.frames)-1].vars[key]; ok {
		return v, true
	}
	v, ok := rt.frames[0].vars[key]
	return v, ok
}

// Depth returns the number of active call frames below the top level.
func (rt *Runtime) Depth() int { return len(rt.frames) - 1 }

// CurrentTime returns a copy of the simulation time.
func (rt *Runtime) CurrentTime() *big.Int { return new(big.Int).Set(&rt.now) }

// ScheduleWakeup registers a wakeup at the absolute time t.
func (rt *Runtime) ScheduleWakeup(t *big.Int, loc ir.Location) error {
	if t.Cmp(&rt.now) < 0 {
		return errorf(ErrCodeArgument, loc, "wakeup at %s lies before current time %s", t, &rt.now)
	}
	rt.wakeups = append(rt.wakeups, new(big.Int).Set(t))
	slog.Debug("wakeup scheduled", "at", t.String())
	return nil
}

// Wakeups returns the registered wakeup times in ascending order.
func (rt *Runtime) Wakeups() []*big.Int {
	out := make([]*big.Int, len(rt.wakeups))
	for i, w := range rt.wakeups {
		out[i] = new(big.Int).Set(w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Cmp(out[j]) < 0 })
	return out
}

// Run executes code in the current frame until it returns or ends.
func (rt *Runtime) Run(code *Code) (ReturnStatus, error) {
	for _, stmt := range code.Stmts {
		status, err := stmt.Execute(rt)
		if err != nil {
			return Continue, err
		}
		if status == Return {
			return Return, nil
		}
	}
	return Continue, nil
}

// Call runs code in a new frame holding args. The callee's return is
// consumed at the frame boundary, so a completed call yields Continue.
func (rt *Runtime) Call(sub *Subprogram, args map[string]value.Value, loc ir.Location) (ReturnStatus, error) {
	if rt.Depth() >= rt.maxDepth {
		return Continue, errorf(ErrCodeCallDepth, loc, "call depth %d exceeded calling %s", rt.maxDepth, sub.Name)
	}
	frame := &Frame{Name: sub.Name, Result: sub.Result, vars: make(map[string]value.Value, len(args))}
	for k, v := range args {
		frame.vars[ir.NormalizeIdent(k)] = v
	}
	rt.frames = append(rt.frames, frame)
	defer func() {
		rt.frames[len(rt.frames)-1] = nil
		rt.frames = rt.frames[:len(rt.frames)-1]
	}()

	slog.Debug("calling", "subprogram", sub.Name, "depth", rt.Depth())
	if _, err := rt.Run(sub.Code); err != nil {
		return Continue, err
	}
	return Continue, nil
}

// currentFrame returns the innermost frame.
func (rt *Runtime) currentFrame() *Frame {
	return rt.frames[len(rt.frames)-1]
}

// Eval runs code at the top level and pops its result.
func (rt *Runtime) Eval(code *Code) (value.Value, error) {
	depth := len(rt.stack)
	if _, err := rt.Run(code); err != nil {
		rt.stack = rt.stack[:min(depth, len(rt.stack))]
		return nil, err
	}
	return rt.Pop(code.Location)
}
