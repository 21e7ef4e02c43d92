package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/livedb/internal/ir"
	"github.com/roach88/livedb/internal/schema"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompilationResult is the JSON schema IR of a models directory.
type CompilationResult struct {
	Models []*ir.ObjectSchema `json:"models"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <models-dir>",
		Short: "Compile CUE models to schema IR",
		Long: `Compile the CUE model declarations in a directory to the JSON schema IR
used by the store and the code generator.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runCompile(opts *CompileOptions, dir string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	loaded, errs := schema.LoadDir(dir, schema.LoadModeCollectAll)
	if loaded == nil {
		return failLoad(formatter, errs[0])
	}
	formatter.VerboseLog("Found %d CUE file(s) in %s", loaded.FileCount, dir)
	if len(errs) > 0 {
		return outputCompileErrors(formatter, errs)
	}

	result := &CompilationResult{Models: loaded.Models}
	if opts.Output != "" {
		if err := writeIRToFile(result, opts.Output); err != nil {
			return formatter.fail(ExitCommandError, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err))
		}
	}

	if formatter.JSON() {
		return formatter.Success(result)
	}

	formatter.Printf("✓ Compiled %d model(s)\n\n", len(result.Models))
	for _, m := range result.Models {
		formatter.Printf("  %s: %s\n", m.Name, describeModel(m))
	}
	if opts.Output != "" {
		formatter.Printf("\nWrote schema IR to %s\n", opts.Output)
	}
	return nil
}

// describeModel summarises a model on one line.
func describeModel(m *ir.ObjectSchema) string {
	s := fmt.Sprintf("%d propert%s", len(m.Properties), plural(len(m.Properties), "y", "ies"))
	if pk, ok := m.PrimaryKey(); ok {
		s += ", primary key " + pk.Name
	}
	if n := len(m.Ignored()); n > 0 {
		s += fmt.Sprintf(", %d ignored", n)
	}
	return s
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// failLoad reports an error that prevented the models from loading at all.
func failLoad(formatter *OutputFormatter, err error) error {
	var loadErr *schema.LoadError
	if errors.As(err, &loadErr) {
		return formatter.fail(ExitCommandError, loadErr.Code, loadErr.Message)
	}
	return formatter.fail(ExitCommandError, schema.ErrCodeGeneric, err.Error())
}

// errorCode returns the code of a load or validation error.
func errorCode(err error) (code, message string) {
	var loadErr *schema.LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code, loadErr.Error()
	}
	var verr schema.ValidationError
	if errors.As(err, &verr) {
		return verr.Code, fmt.Sprintf("%s: %s", verr.Field, verr.Message)
	}
	return schema.ErrCodeGeneric, err.Error()
}

func outputCompileErrors(formatter *OutputFormatter, errs []error) error {
	cliErrors := make([]CLIError, len(errs))
	for i, err := range errs {
		code, message := errorCode(err)
		cliErrors[i] = CLIError{Code: code, Message: message}
	}

	if formatter.JSON() {
		if err := formatter.Failure(cliErrors[0].Code, cliErrors[0].Message, cliErrors); err != nil {
			return err
		}
	} else {
		formatter.Printf("✗ Compilation failed with %d error(s)\n\n", len(errs))
		for _, e := range cliErrors {
			formatter.Printf("  %s: %s\n", e.Code, e.Message)
		}
	}
	return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
}

func writeIRToFile(result *CompilationResult, path string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal schema IR: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
