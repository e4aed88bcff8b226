package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/hdlelab/internal/elab"
	"github.com/roach88/hdlelab/internal/ig"
	"github.com/roach88/hdlelab/internal/ir"
)

// RebuildOptions holds flags for the rebuild command.
type RebuildOptions struct {
	BuildOptions
	Changed []string
}

// RebuildResult summarizes a rebuild.
type RebuildResult struct {
	Changed  []string    `json:"changed"`
	Affected int         `json:"affected"`
	Build    BuildResult `json:"build"`
}

func (r RebuildResult) String() string {
	return fmt.Sprintf("changed: %s\n%d modules deleted or re-bound\n%s",
		strings.Join(r.Changed, ", "), r.Affected, r.Build)
}

// NewRebuildCommand creates the rebuild command.
func NewRebuildCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RebuildOptions{BuildOptions: BuildOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "rebuild [design-dir]",
		Short: "Re-elaborate after design units changed",
		Long: `Re-elaborate the modules affected by changed design units.

Modules elaborated from a changed architecture are deleted; modules that
instantiate them are re-bound. Then every toplevel is rebuilt, which only
elaborates the missing signatures.

Examples:
  hdlelab rebuild ./design --changed work.leaf(rtl)
  hdlelab rebuild ./design --changed work.adder --changed work.mux(rtl)`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRebuild(opts, firstArg(args), cmd)
		},
	}
	opts.addFlags(cmd)
	cmd.Flags().StringSliceVar(&opts.Changed, "changed", nil, "changed unit, e.g. work.leaf(rtl); repeatable (required)")
	_ = cmd.MarkFlagRequired("changed")
	return cmd
}

func runRebuild(opts *RebuildOptions, designDir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	changed := make([]ir.DesignUnitID, 0, len(opts.Changed))
	for _, ref := range opts.Changed {
		id, err := ir.ParseUnitRef(ref)
		if err != nil {
			_ = formatter.Error(ErrCodeBadArgument, err.Error(), nil)
			return WrapExitError(ExitCommandError, "invalid --changed", err)
		}
		changed = append(changed, id)
	}

	s, err := openSession(cmd, &opts.BuildOptions, designDir)
	if err != nil {
		return reportSetupError(formatter, err)
	}
	defer s.Close()

	ctx, cancel := signalContext(cmd)
	defer cancel()

	n, err := s.mgr.RebuildNodes(ctx, changed)
	if errors.Is(err, context.Canceled) {
		return WrapExitError(ExitFailure, "rebuild canceled", err)
	}
	if err != nil {
		_ = formatter.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitCommandError, "rebuild failed", err)
	}

	result := RebuildResult{Affected: n}
	for _, id := range changed {
		result.Changed = append(result.Changed, id.UID())
	}
	built, err := toplevelModules(ctx, s)
	if err != nil {
		return WrapExitError(ExitCommandError, "rebuild failed", err)
	}
	if result.Build, err = summarize(ctx, s, built); err != nil {
		return WrapExitError(ExitCommandError, "failed to summarize rebuild", err)
	}
	return finish(formatter, s, result)
}

// toplevelModules returns the stored module of every toplevel that
// resolves and has been built.
func toplevelModules(ctx context.Context, s *session) ([]*ig.Module, error) {
	var mods []*ig.Module
	for _, tl := range s.toplevels {
		mod, err := s.mgr.FindModuleForToplevel(ctx, tl)
		if elab.IsResolutionError(err) || elab.IsBindingError(err) || errors.Is(err, ig.ErrModuleNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		mods = append(mods, mod)
	}
	return mods, nil
}
