package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/hdlelab/internal/ig"
)

// BuildResult summarizes a build.
type BuildResult struct {
	Toplevels []ToplevelResult   `json:"toplevels"`
	Modules   int                `json:"modules"`
	Jobs      int64              `json:"jobs"`
	Metrics   map[string]float64 `json:"metrics,omitempty"`
}

// ToplevelResult is one built toplevel.
type ToplevelResult struct {
	Unit      string `json:"unit"`
	Signature string `json:"signature"`
	Path      string `json:"path"`
	Nodes     int    `json:"nodes"`
}

func (r BuildResult) String() string {
	var sb strings.Builder
	for _, tl := range r.Toplevels {
		fmt.Fprintf(&sb, "%s  %s  %d nodes\n", tl.Path, tl.Signature, tl.Nodes)
	}
	fmt.Fprintf(&sb, "%d modules in database, %d jobs run\n", r.Modules, r.Jobs)
	if len(r.Metrics) > 0 {
		names := make([]string, 0, len(r.Metrics))
		for name := range r.Metrics {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(&sb, "  %s %g\n", name, r.Metrics[name])
		}
	}
	return sb.String()
}

// NewBuildCommand creates the build command.
func NewBuildCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BuildOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "build [design-dir]",
		Short: "Elaborate the configured toplevels",
		Long: `Elaborate every toplevel into the instantiation graph database.

Modules already in the database are reused; only missing signatures are
elaborated. Without --toplevel or a toplevels entry in the config file,
every entity that nothing instantiates is built.

Examples:
  hdlelab build ./design --db build.db
  hdlelab build ./design -t work.cpu(rtl) -j 8 --indexing`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(opts, firstArg(args), cmd)
		},
	}
	opts.addFlags(cmd)
	return cmd
}

func runBuild(opts *BuildOptions, designDir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	s, err := openSession(cmd, opts, designDir)
	if err != nil {
		return reportSetupError(formatter, err)
	}
	defer s.Close()

	ctx, cancel := signalContext(cmd)
	defer cancel()

	mods, err := s.mgr.BuildAll(ctx)
	if errors.Is(err, context.Canceled) {
		return WrapExitError(ExitFailure, "build canceled", err)
	}
	if err != nil {
		_ = formatter.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitCommandError, "build failed", err)
	}

	result, err := summarize(ctx, s, mods)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to summarize build", err)
	}
	return finish(formatter, s, result)
}

func summarize(ctx context.Context, s *session, mods []*ig.Module) (BuildResult, error) {
	result := BuildResult{Toplevels: []ToplevelResult{}, Jobs: s.mgr.JobsRun()}
	for _, mod := range mods {
		n, err := s.mgr.CountNodes(ctx, mod.Unit, -1)
		if errors.Is(err, ig.ErrNotElaborated) {
			// The toplevel failed; the report says why.
			n, err = 0, nil
		}
		if err != nil {
			return result, err
		}
		result.Toplevels = append(result.Toplevels, ToplevelResult{
			Unit:      mod.Unit.UID(),
			Signature: string(mod.Signature),
			Path:      mod.Path,
			Nodes:     n,
		})
	}
	n, err := s.store.CountModules(ctx)
	if err != nil {
		return result, err
	}
	result.Modules = n
	result.Metrics = s.metrics()
	return result, nil
}

// finish writes the result and the run's diagnostics. Fatal diagnostics
// turn into ExitFailure.
func finish(formatter *OutputFormatter, s *session, result fmt.Stringer) error {
	diags := s.mgr.Report().Diagnostics()
	if err := formatter.Result(result, diags); err != nil {
		return err
	}
	if s.mgr.Report().HasFatal() {
		return NewExitError(ExitFailure, fmt.Sprintf("%d diagnostic(s) reported", len(diags)))
	}
	return nil
}

// reportSetupError prints a session setup failure.
func reportSetupError(formatter *OutputFormatter, err error) error {
	_ = formatter.Error(loadErrorCode(err), err.Error(), nil)
	slog.Debug("setup failed", "error", err)
	return err
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
