package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/livedb/internal/schema"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool       `json:"valid"`
	Models int        `json:"models"`
	Errors []CLIError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <models-dir>",
		Short: "Validate CUE models",
		Long: `Validate the CUE model declarations in a directory and report every
problem found with its error code. Unlike compile, validate does not stop
at a model that fails to compile.`,
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
	formatter := opts.formatter(cmd)

	loaded, errs := schema.LoadDir(dir, schema.LoadModeCollectAll)
	if loaded == nil {
		return failLoad(formatter, errs[0])
	}
	formatter.VerboseLog("Found %d CUE file(s) in %s", loaded.FileCount, dir)
	for _, m := range loaded.Models {
		formatter.VerboseLog("Validated model: %s", m.Name)
	}

	result := ValidationResult{Valid: len(errs) == 0, Models: len(loaded.Models)}
	for _, err := range errs {
		code, message := errorCode(err)
		result.Errors = append(result.Errors, CLIError{Code: code, Message: message})
	}

	if result.Valid {
		if formatter.JSON() {
			return formatter.Success(result)
		}
		formatter.Printf("✓ All models valid (%d model(s))\n", result.Models)
		return nil
	}

	if formatter.JSON() {
		if err := formatter.Failure(result.Errors[0].Code, result.Errors[0].Message, result); err != nil {
			return err
		}
	} else {
		formatter.Printf("✗ Validation failed\n\n")
		for _, e := range result.Errors {
			formatter.Printf("  %s: %s\n", e.Code, e.Message)
		}
	}
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(result.Errors)))
}
