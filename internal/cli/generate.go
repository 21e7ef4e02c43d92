package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/livedb/internal/codegen"
	"github.com/roach88/livedb/internal/schema"
)

// GenerateOptions holds flags for the generate command.
type GenerateOptions struct {
	*RootOptions
	Package string
	Output  string
}

// GenerateResult describes a generated accessor file.
type GenerateResult struct {
	Package string   `json:"package"`
	Models  []string `json:"models"`
	Output  string   `json:"output,omitempty"`
	Source  string   `json:"source,omitempty"` // set when no output file is given
}

// NewGenerateCommand creates the generate command.
func NewGenerateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GenerateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "generate <models-dir>",
		Short: "Generate typed Go accessors for CUE models",
		Long: `Generate a Go file with schema literals, a Register function and a typed
wrapper per model: constructors, primary key lookup, key-path constants and
getters and setters for every property.

Without --out the source is written to stdout.

Example:
  //go:generate go run ../../cmd/livedb generate --package models --out models_gen.go ./schema`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Package, "package", "p", "models", "Go package name of the generated file")
	cmd.Flags().StringVarP(&opts.Output, "out", "o", "", "output file path")

	return cmd
}

func runGenerate(opts *GenerateOptions, dir string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	loaded, errs := schema.LoadDir(dir, schema.LoadModeFailFast)
	if loaded == nil {
		return failLoad(formatter, errs[0])
	}
	if len(errs) > 0 {
		code, message := errorCode(errs[0])
		return formatter.fail(ExitCommandError, code, message)
	}

	src, err := codegen.Generate(opts.Package, loaded.Models)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeGenerate, err.Error())
	}

	result := GenerateResult{Package: opts.Package, Output: opts.Output}
	for _, m := range loaded.Models {
		result.Models = append(result.Models, m.Name)
	}
	opts.logger().Debug("accessors generated", "package", opts.Package, "models", len(result.Models), "bytes", len(src))

	if opts.Output == "" {
		if formatter.JSON() {
			result.Source = string(src)
			return formatter.Success(result)
		}
		_, err := cmd.OutOrStdout().Write(src)
		return err
	}

	if err := os.WriteFile(opts.Output, src, 0o644); err != nil {
		return formatter.fail(ExitCommandError, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err))
	}
	if formatter.JSON() {
		return formatter.Success(result)
	}
	formatter.Printf("Wrote %s (package %s, %d model(s))\n", opts.Output, opts.Package, len(result.Models))
	return nil
}
