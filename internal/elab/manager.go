package elab

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/roach88/hdlelab/internal/design"
	"github.com/roach88/hdlelab/internal/ig"
	"github.com/roach88/hdlelab/internal/interp"
	"github.com/roach88/hdlelab/internal/ir"
	"github.com/roach88/hdlelab/internal/store"
)

const (
	// DefaultPollInterval is how often the multi-threaded drain checks for
	// completion and cancellation.
	DefaultPollInterval = 500 * time.Millisecond

	// DefaultShutdownTimeout bounds the wait for running workers after a
	// drain ends.
	DefaultShutdownTimeout = 7 * 24 * time.Hour
)

// Store is the durable keyed layer modules and indices live in.
// Implemented by *store.Store.
type Store interface {
	PutModule(ctx context.Context, m *ig.Module) (int64, error)
	GetModule(ctx context.Context, id int64) (*ig.Module, error)
	UpdateModule(ctx context.Context, m *ig.Module) error
	DeleteModule(ctx context.Context, id int64) error

	GetIdx(ctx context.Context, name, key string) (int64, error)
	PutIdx(ctx context.Context, name, key string, id int64) error
	DelIdx(ctx context.Context, name, key string) error

	ListAdd(ctx context.Context, name, key, member string) (bool, error)
	ListMembers(ctx context.Context, name, key string) ([]string, error)
	ListRemove(ctx context.Context, name, key, member string) error
	ListDelete(ctx context.Context, name, key string) error

	RecordBuild(ctx context.Context, b store.Build) error
}

// Resolver resolves design units and functions.
// Implemented by *design.Library.
type Resolver interface {
	Entity(id ir.DesignUnitID) (*design.Entity, error)
	Architecture(id ir.DesignUnitID) (*design.Architecture, error)
	ArchitectureOf(id ir.DesignUnitID) (ir.DesignUnitID, error)
	Function(name string) (*interp.Subprogram, error)
}

// Manager builds and maintains the instantiation graph.
//
// Thread-safety model:
//   - BuildGraph, BuildAll and RebuildNodes are serialized; one run at a time.
//   - GetOrCreateModule and the Find methods may be called from any
//     goroutine, including worker goroutines during a run.
type Manager struct {
	store  Store
	lib    Resolver
	logger *slog.Logger

	threads         int
	indexing        bool
	pollInterval    time.Duration
	shutdownTimeout time.Duration
	toplevels       []ir.DesignUnitID
	report          *Report
	metrics         *Metrics
	runIDs          RunIDGenerator

	runMu sync.Mutex // serializes runs

	mu     sync.Mutex // guards todo and failed
	todo   map[ir.Signature]struct{}
	failed map[ir.Signature]struct{}

	queue    *jobQueue
	pending  atomic.Int64 // jobs queued or running
	inflight singleflight.Group

	done    atomic.Int64
	jobsRun atomic.Int64
	created atomic.Int64
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = l
	}
}

// WithThreads selects the scheduling model: 1 runs jobs in the calling
// goroutine, more starts a worker pool of that size.
func WithThreads(n int) Option {
	return func(m *Manager) {
		if n < 1 {
			n = 1
		}
		m.threads = n
	}
}

// WithIndexing enables the connectivity indices written after each module
// is elaborated.
func WithIndexing(enabled bool) Option {
	return func(m *Manager) {
		m.indexing = enabled
	}
}

// WithPollInterval sets how often the worker-pool drain polls.
func WithPollInterval(d time.Duration) Option {
	return func(m *Manager) {
		m.pollInterval = d
	}
}

// WithShutdownTimeout bounds the wait for workers when a drain ends.
func WithShutdownTimeout(d time.Duration) Option {
	return func(m *Manager) {
		m.shutdownTimeout = d
	}
}

// WithToplevels sets the toplevels rebuilt by BuildAll and RebuildNodes.
func WithToplevels(tls ...ir.DesignUnitID) Option {
	return func(m *Manager) {
		m.toplevels = append([]ir.DesignUnitID(nil), tls...)
	}
}

// WithReport sets the report diagnostics are added to.
func WithReport(r *Report) Option {
	return func(m *Manager) {
		m.report = r
	}
}

// WithMetrics sets the metrics. Default: unregistered metrics.
func WithMetrics(mt *Metrics) Option {
	return func(m *Manager) {
		m.metrics = mt
	}
}

// WithRunIDGenerator sets the run id source. Default: UUIDv7Generator.
func WithRunIDGenerator(g RunIDGenerator) Option {
	return func(m *Manager) {
		m.runIDs = g
	}
}

// NewManager creates a Manager over the given store and design library.
func NewManager(s Store, lib Resolver, opts ...Option) *Manager {
	m := &Manager{
		store:           s,
		lib:             lib,
		logger:          slog.Default(),
		threads:         1,
		pollInterval:    DefaultPollInterval,
		shutdownTimeout: DefaultShutdownTimeout,
		runIDs:          UUIDv7Generator{},
		todo:            make(map[ir.Signature]struct{}),
		failed:          make(map[ir.Signature]struct{}),
		queue:           newJobQueue(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.report == nil {
		m.report = NewReport()
	}
	if m.metrics == nil {
		m.metrics = NewMetrics(nil)
	}
	return m
}

// Report returns the report diagnostics are added to.
func (m *Manager) Report() *Report { return m.report }

// Metrics returns the scheduler metrics.
func (m *Manager) Metrics() *Metrics { return m.metrics }

// Toplevels returns the configured toplevels.
func (m *Manager) Toplevels() []ir.DesignUnitID {
	return append([]ir.DesignUnitID(nil), m.toplevels...)
}

// JobsRun returns the number of statement elaboration jobs run so far.
func (m *Manager) JobsRun() int64 { return m.jobsRun.Load() }

// Close stops accepting jobs. Queued jobs are dropped.
func (m *Manager) Close() {
	m.queue.Close()
	m.dropQueued()
}

// run is the bookkeeping of one BuildGraph or RebuildNodes call.
type run struct {
	id        string
	kind      string
	toplevels []string
	started   time.Time
	diags     int
	created   int64
	logger    *slog.Logger
}

func (m *Manager) startRun(kind string, toplevels ...ir.DesignUnitID) *run {
	r := &run{
		id:      m.runIDs.Generate(),
		kind:    kind,
		started: time.Now(),
		diags:   m.report.Len(),
		created: m.created.Load(),
	}
	for _, tl := range toplevels {
		r.toplevels = append(r.toplevels, tl.UID())
	}
	r.logger = m.logger.With("run", r.id, "kind", kind)

	m.mu.Lock()
	m.failed = make(map[ir.Signature]struct{})
	m.mu.Unlock()
	m.done.Store(0)

	r.logger.Info("run started", "toplevels", r.toplevels)
	return r
}

// finishRun records the run. A failure to record is logged, not returned:
// the graph itself is already persisted.
func (m *Manager) finishRun(ctx context.Context, r *run, canceled bool) {
	b := store.Build{
		RunID:       r.id,
		Kind:        r.kind,
		Toplevels:   r.toplevels,
		StartedAt:   r.started,
		FinishedAt:  time.Now(),
		Modules:     int(m.created.Load() - r.created),
		Diagnostics: m.report.Len() - r.diags,
		Canceled:    canceled,
	}
	// The run context may be canceled; the record is still wanted.
	if err := m.store.RecordBuild(context.WithoutCancel(ctx), b); err != nil {
		r.logger.Error("failed to record build", "error", err)
	}
	r.logger.Info("run finished",
		"modules", b.Modules,
		"diagnostics", b.Diagnostics,
		"canceled", canceled,
		"elapsed", b.FinishedAt.Sub(b.StartedAt),
	)
}
