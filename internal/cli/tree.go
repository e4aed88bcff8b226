package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/hdlelab/internal/elab"
	"github.com/roach88/hdlelab/internal/ig"
	"github.com/roach88/hdlelab/internal/ir"
)

// TreeOptions holds flags for the tree command.
type TreeOptions struct {
	BuildOptions
	Design string
	Path   string
	Depth  int
}

// NewTreeCommand creates the tree command.
func NewTreeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TreeOptions{BuildOptions: BuildOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "tree <toplevel>",
		Short: "Show the elaborated graph of a toplevel",
		Long: `Print the instantiation graph stored for a toplevel.

The toplevel is bound with its default generics, so the design must be
available to compute its signature. --path selects an item below the
toplevel, e.g. "u0.g(1).u1"; an instance shows the module it
instantiates. --depth follows instantiations into child modules
(-1 for the whole hierarchy).

Examples:
  hdlelab tree --db build.db --design ./design work.top
  hdlelab tree --db build.db --design ./design work.top --path u0 --depth -1`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTree(opts, args[0], cmd)
		},
	}
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from config)")
	cmd.Flags().StringVar(&opts.Design, "design", "", "design directory (default from config)")
	cmd.Flags().StringVar(&opts.Path, "path", "", "dotted item path below the toplevel")
	cmd.Flags().IntVar(&opts.Depth, "depth", 0, "levels of child modules to show (-1 = all)")
	return cmd
}

func runTree(opts *TreeOptions, ref string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	toplevel, err := ir.ParseUnitRef(ref)
	if err != nil {
		_ = formatter.Error(ErrCodeBadArgument, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid toplevel", err)
	}

	s, err := openSession(cmd, &opts.BuildOptions, opts.Design)
	if err != nil {
		return reportSetupError(formatter, err)
	}
	defer s.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	item, err := s.mgr.FindItem(ctx, toplevel, opts.Path)
	if err != nil {
		code := ErrCodeGeneric
		if elab.IsResolutionError(err) || errors.Is(err, ig.ErrModuleNotFound) {
			code = ErrCodeResolution
		}
		_ = formatter.Error(code, err.Error(), nil)
		return WrapExitError(ExitCommandError, "item not found", err)
	}

	mod := item.Module
	if inst, ok := item.Statement.(*ig.Instantiation); ok {
		if mod, err = s.mgr.FindModule(ctx, inst.Signature); err != nil {
			_ = formatter.Error(ErrCodeResolution, err.Error(), nil)
			return WrapExitError(ExitCommandError, "instance not built", err)
		}
	}

	mods, err := collectModules(ctx, s.mgr, mod, opts.Depth)
	if err != nil {
		_ = formatter.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load modules", err)
	}

	if opts.Format == "json" {
		enc := json.NewEncoder(formatter.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(CLIResponse{Status: "ok", Data: mods})
	}
	var buf bytes.Buffer
	for i, m := range mods {
		if i > 0 {
			buf.WriteByte('\n')
		}
		if err := ig.Dump(&buf, m); err != nil {
			return err
		}
	}
	_, err = fmt.Fprint(formatter.Writer, buf.String())
	return err
}

// collectModules returns root and, depth levels down, every distinct
// module it instantiates, in first-visit order.
func collectModules(ctx context.Context, mgr *elab.Manager, root *ig.Module, depth int) ([]*ig.Module, error) {
	seen := map[ir.Signature]bool{root.Signature: true}
	out := []*ig.Module{root}
	collector := ig.VisitorFuncs{
		Instantiation: func(inst *ig.Instantiation, d int) error {
			if inst.Signature == "" || seen[inst.Signature] {
				return nil
			}
			if depth >= 0 && d >= depth {
				return nil
			}
			mod, err := mgr.FindModule(ctx, inst.Signature)
			if err != nil {
				return err
			}
			seen[inst.Signature] = true
			out = append(out, mod)
			return nil
		},
	}
	if depth == 0 || !root.StatementsElaborated {
		return out, nil
	}
	lookup := func(sig ir.Signature) (*ig.Module, error) { return mgr.FindModule(ctx, sig) }
	if err := root.Accept(collector, lookup, depth); err != nil {
		return nil, err
	}
	return out, nil
}
