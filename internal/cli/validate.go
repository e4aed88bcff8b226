package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/hdlelab/internal/design"
	"github.com/roach88/hdlelab/internal/ir"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool              `json:"valid"`
	Units    map[string]int    `json:"units"`
	Problems []ValidationIssue `json:"problems,omitempty"`
}

// ValidationIssue is one dangling reference in a design.
type ValidationIssue struct {
	Unit     string      `json:"unit"`
	Message  string      `json:"message"`
	Location ir.Location `json:"location"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <design-dir>",
		Short: "Check a design without elaborating it",
		Long: `Load the CUE design units in a directory and check their references.

Every architecture must belong to a declared entity and every instance
must resolve to an architecture. Generic values are not evaluated; build
does that.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runValidate(opts *RootOptions, dir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	lib, err := LoadDesign(dir)
	if err != nil {
		code := loadErrorCode(err)
		_ = formatter.Error(code, err.Error(), nil)
		return NewExitError(ExitCommandError, err.Error())
	}

	result := validateLibrary(lib, formatter)
	if formatter.Format == "json" {
		enc := json.NewEncoder(formatter.Writer)
		enc.SetIndent("", "  ")
		resp := CLIResponse{Status: "ok", Data: result}
		if !result.Valid {
			resp.Status = "error"
		}
		if err := enc.Encode(resp); err != nil {
			return err
		}
	} else {
		writeValidationText(formatter, result)
	}

	if !result.Valid {
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d problem(s)", len(result.Problems)))
	}
	return nil
}

// validateLibrary counts units by kind and collects dangling references.
func validateLibrary(lib *design.Library, formatter *OutputFormatter) ValidationResult {
	result := ValidationResult{Units: map[string]int{}}
	for _, u := range lib.Units() {
		id := u.UnitID()
		result.Units[id.Kind.String()]++

		arch, ok := u.(*design.Architecture)
		if !ok {
			continue
		}
		formatter.VerboseLog("checking %s", id)
		if _, err := lib.Entity(id); err != nil {
			result.Problems = append(result.Problems, ValidationIssue{
				Unit:     id.UID(),
				Message:  fmt.Sprintf("entity %s is not declared", id.EntityOf()),
				Location: arch.Loc,
			})
		}
		checkStatements(lib, id, arch.Statements, &result)
	}
	result.Valid = len(result.Problems) == 0
	return result
}

func checkStatements(lib *design.Library, owner ir.DesignUnitID, stmts []design.Statement, result *ValidationResult) {
	for _, st := range stmts {
		switch s := st.(type) {
		case *design.InstanceStmt:
			if _, err := lib.ArchitectureOf(s.Unit); err != nil {
				result.Problems = append(result.Problems, ValidationIssue{
					Unit:     owner.UID(),
					Message:  fmt.Sprintf("instance %s: %s does not resolve to an architecture", s.Label, s.Unit),
					Location: s.Loc,
				})
			}
		case *design.ForGenerate:
			checkStatements(lib, owner, s.Body, result)
		case *design.IfGenerate:
			checkStatements(lib, owner, s.Body, result)
		}
	}
}

func writeValidationText(formatter *OutputFormatter, result ValidationResult) {
	var parts []string
	for _, kind := range []ir.UnitKind{ir.UnitEntity, ir.UnitArchitecture, ir.UnitPackage} {
		if n := result.Units[kind.String()]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s(s)", n, kind))
		}
	}
	if result.Valid {
		fmt.Fprintf(formatter.Writer, "✓ Design valid: %s\n", strings.Join(parts, ", "))
		return
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, p := range result.Problems {
		if p.Location.IsValid() {
			fmt.Fprintf(formatter.Writer, "%s\n", p.Location)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", p.Unit, p.Message)
	}
}
