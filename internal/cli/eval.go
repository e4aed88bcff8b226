package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/hdlelab/internal/design"
	"github.com/roach88/hdlelab/internal/interp"
	"github.com/roach88/hdlelab/internal/value"
)

// EvalOptions holds flags for the eval command.
type EvalOptions struct {
	*RootOptions
	Design string
	Radix  string
}

// ValidRadixes are the renderings eval supports.
var ValidRadixes = []string{"default", "hex", "dec", "oct", "bin"}

// EvalResult is a folded constant.
type EvalResult struct {
	Expr  string `json:"expr"`
	Value string `json:"value"`
	Type  string `json:"type"`
}

func (r EvalResult) String() string {
	return fmt.Sprintf("%s = %s : %s\n", r.Expr, r.Value, r.Type)
}

// NewEvalCommand creates the eval command.
func NewEvalCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EvalOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "eval <expr>",
		Short: "Fold a constant expression",
		Long: `Evaluate a constant expression written in CUE or JSON syntax.

Builtins such as clog2 are always available; --design also makes the
functions of the design's packages callable.

Examples:
  hdlelab eval '{op: "**", l: 2, r: 10}'
  hdlelab eval '{call: "clog2", args: [17]}'
  hdlelab eval '{bits: "1010"}' --radix hex
  hdlelab eval '{call: "double", args: [21]}' --design ./design`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEval(opts, args[0], cmd)
		},
	}
	cmd.Flags().StringVar(&opts.Design, "design", "", "design directory providing package functions")
	cmd.Flags().StringVar(&opts.Radix, "radix", "default", "rendering of logic values (default|hex|dec|oct|bin)")
	return cmd
}

func runEval(opts *EvalOptions, src string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	render, ok := radixRenderer(opts.Radix)
	if !ok {
		_ = formatter.Error(ErrCodeBadArgument, fmt.Sprintf("invalid radix %q: must be one of %v", opts.Radix, ValidRadixes), nil)
		return NewExitError(ExitCommandError, "invalid radix")
	}

	expr, err := design.ParseExpr(src)
	if err != nil {
		_ = formatter.Error(ErrCodeBadArgument, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid expression", err)
	}

	var funcs design.Functions = design.NewLibrary()
	if opts.Design != "" {
		lib, err := LoadDesign(opts.Design)
		if err != nil {
			_ = formatter.Error(loadErrorCode(err), err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to load design", err)
		}
		funcs = lib
	}
	formatter.VerboseLog("evaluating %s", expr)

	v, err := design.Eval(expr, funcs)
	if err != nil {
		code := ErrCodeGeneric
		if value.IsEvaluationError(err) || interp.IsRuntimeError(err) {
			code = ErrCodeEvaluation
		}
		_ = formatter.Error(code, err.Error(), nil)
		return WrapExitError(ExitFailure, "evaluation failed", err)
	}

	typ := v.Type().String()
	if _, ok := v.(*value.Bool); ok {
		typ = "BOOLEAN"
	}
	result := EvalResult{Expr: expr.String(), Value: render(v), Type: typ}
	if opts.Format == "json" {
		return formatter.Success(result)
	}
	_, err = fmt.Fprint(formatter.Writer, result.String())
	return err
}

func radixRenderer(radix string) (func(value.Value) string, bool) {
	switch radix {
	case "", "default":
		return value.Value.String, true
	case "hex":
		return value.Hex, true
	case "dec":
		return value.Dec, true
	case "oct":
		return value.Oct, true
	case "bin":
		return value.Bin, true
	}
	return nil, false
}
