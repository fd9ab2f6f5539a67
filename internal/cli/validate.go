package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"cuelang.org/go/cue/token"
	"github.com/spf13/cobra"

	"github.com/strata-db/strata/internal/manifest"
)

// ValidationIssue is one reported manifest problem.
type ValidationIssue struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Tables int               `json:"tables"`
	Errors []ValidationIssue `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <manifest-dir>",
		Short: "Validate manifest files without touching a database",
		Long: `Validate CUE manifest files without applying them.

Performs syntax checking and table compilation, collecting every error
before reporting. No database connection is made.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
}

func runValidate(opts *RootOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	result, loadErrors := manifest.LoadDir(dir, manifest.LoadModeCollectAll)
	if result == nil && len(loadErrors) > 0 {
		var loadErr *manifest.LoadError
		if errors.As(loadErrors[0], &loadErr) {
			_ = formatter.Error(loadErr.Code, loadErr.Message, nil)
			return NewExitError(ExitCommandError, loadErr.Error())
		}
		_ = formatter.Error(manifest.ErrCodeGeneric, loadErrors[0].Error(), nil)
		return NewExitError(ExitCommandError, loadErrors[0].Error())
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", result.FileCount, dir)

	issues := make([]ValidationIssue, 0, len(loadErrors))
	for _, err := range loadErrors {
		var loadErr *manifest.LoadError
		if errors.As(err, &loadErr) {
			issues = append(issues, ValidationIssue{
				Code:    loadErr.Code,
				Message: loadErr.Message,
				Line:    lineOf(loadErr.Pos),
			})
			continue
		}
		issues = append(issues, ValidationIssue{Code: manifest.ErrCodeGeneric, Message: err.Error()})
	}

	if len(issues) > 0 {
		return outputValidationErrors(formatter, result, issues)
	}

	if formatter.JSON() {
		return formatter.Success(ValidationResult{Valid: true, Tables: len(result.Tables)})
	}
	fmt.Fprintf(formatter.Writer, "✓ %d table(s) valid\n", len(result.Tables))
	return nil
}

func outputValidationErrors(formatter *OutputFormatter, result *manifest.LoadResult, issues []ValidationIssue) error {
	if formatter.JSON() {
		response := Response{
			Status: "error",
			Data:   ValidationResult{Valid: false, Tables: len(result.Tables), Errors: issues},
			Error:  &ResponseError{Code: issues[0].Code, Message: issues[0].Message},
		}
		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(issues)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, issue := range issues {
		if issue.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", issue.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", issue.Code, issue.Message)
	}
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(issues)))
}

func lineOf(pos token.Pos) int {
	if pos.IsValid() {
		return pos.Line()
	}
	return 0
}
