package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/hdlelab/internal/config"
	"github.com/roach88/hdlelab/internal/design"
	"github.com/roach88/hdlelab/internal/elab"
	"github.com/roach88/hdlelab/internal/ir"
	"github.com/roach88/hdlelab/internal/store"
)

// BuildOptions holds the flags shared by build and rebuild. Flags that are
// set override the config file.
type BuildOptions struct {
	*RootOptions
	Database  string
	Toplevels []string
	Threads   int
	Indexing  bool

	// RunIDs overrides the run id generator (for testing).
	RunIDs elab.RunIDGenerator
}

func (o *BuildOptions) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.Database, "db", "", "path to SQLite database (default from config)")
	cmd.Flags().StringSliceVarP(&o.Toplevels, "toplevel", "t", nil, "toplevel unit, e.g. work.top(rtl); repeatable")
	cmd.Flags().IntVarP(&o.Threads, "threads", "j", 1, "worker threads (1 = serial)")
	cmd.Flags().BoolVar(&o.Indexing, "indexing", false, "record connectivity indices")
}

// loadConfig reads the config file and applies changed flags on top.
func (o *BuildOptions) loadConfig(cmd *cobra.Command, designDir string) (*config.Config, error) {
	cfg, err := config.Load(o.Config)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("db") {
		cfg.Database = o.Database
	}
	if flags.Changed("toplevel") {
		cfg.Toplevels = o.Toplevels
	}
	if flags.Changed("threads") {
		cfg.Threads = o.Threads
	}
	if flags.Changed("indexing") {
		cfg.Indexing = o.Indexing
	}
	if designDir != "" {
		cfg.Design = designDir
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// session is an open database, a loaded design and a Manager over both.
type session struct {
	cfg       *config.Config
	lib       *design.Library
	store     *store.Store
	mgr       *elab.Manager
	registry  *prometheus.Registry
	toplevels []ir.DesignUnitID
}

func openSession(cmd *cobra.Command, opts *BuildOptions, designDir string) (*session, error) {
	cfg, err := opts.loadConfig(cmd, designDir)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	tls, err := cfg.ToplevelIDs()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid toplevel", err)
	}

	slog.Info("loading design", "dir", cfg.Design)
	lib, err := LoadDesign(cfg.Design)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load design", err)
	}
	if len(tls) == 0 {
		tls = inferToplevels(lib)
		slog.Info("no toplevel configured, using uninstantiated entities", "toplevels", len(tls))
	}

	slog.Info("opening database", "path", cfg.Database)
	st, err := store.Open(cfg.Database)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	reg := prometheus.NewRegistry()
	mopts := []elab.Option{
		elab.WithLogger(slog.Default()),
		elab.WithThreads(cfg.Threads),
		elab.WithIndexing(cfg.Indexing),
		elab.WithPollInterval(cfg.PollInterval),
		elab.WithShutdownTimeout(cfg.ShutdownTimeout),
		elab.WithToplevels(tls...),
		elab.WithMetrics(elab.NewMetrics(reg)),
	}
	if opts.RunIDs != nil {
		mopts = append(mopts, elab.WithRunIDGenerator(opts.RunIDs))
	}

	return &session{
		cfg:       cfg,
		lib:       lib,
		store:     st,
		mgr:       elab.NewManager(st, lib, mopts...),
		registry:  reg,
		toplevels: tls,
	}, nil
}

func (s *session) Close() {
	s.mgr.Close()
	if err := s.store.Close(); err != nil {
		slog.Error("error closing database", "error", err)
	}
}

// metrics returns the current value of every scheduler metric, keyed by
// name without the namespace.
func (s *session) metrics() map[string]float64 {
	out := map[string]float64{}
	families, err := s.registry.Gather()
	if err != nil {
		slog.Warn("failed to gather metrics", "error", err)
		return out
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			name := strings.TrimPrefix(mf.GetName(), "hdlelab_elab_")
			switch {
			case m.GetCounter() != nil:
				out[name] = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				out[name] = m.GetGauge().GetValue()
			}
		}
	}
	return out
}

// inferToplevels returns every entity with an architecture that no
// architecture in lib instantiates, sorted by UID.
func inferToplevels(lib *design.Library) []ir.DesignUnitID {
	instantiated := map[string]bool{}
	var visit func([]design.Statement)
	visit = func(stmts []design.Statement) {
		for _, st := range stmts {
			switch s := st.(type) {
			case *design.InstanceStmt:
				instantiated[s.Unit.EntityOf().UID()] = true
			case *design.ForGenerate:
				visit(s.Body)
			case *design.IfGenerate:
				visit(s.Body)
			}
		}
	}
	units := lib.Units()
	for _, u := range units {
		if a, ok := u.(*design.Architecture); ok {
			visit(a.Statements)
		}
	}

	var out []ir.DesignUnitID
	for _, u := range units {
		id := u.UnitID()
		if id.Kind != ir.UnitEntity || instantiated[id.UID()] {
			continue
		}
		if _, err := lib.ArchitectureOf(id); err != nil {
			continue
		}
		out = append(out, id)
	}
	return out
}

// signalContext returns a context canceled on SIGINT or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, canceling build", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}
