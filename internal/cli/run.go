package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/livedb/internal/harness"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Filter string // only run scenarios whose name contains Filter
	Trace  bool   // print the trace of every scenario
}

// ScenarioResult is the outcome of one scenario file.
type ScenarioResult struct {
	File   string   `json:"file"`
	Name   string   `json:"name"`
	Pass   bool     `json:"pass"`
	Events int      `json:"events"`
	Errors []string `json:"errors,omitempty"`
}

// RunSummary is the outcome of a run command.
type RunSummary struct {
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Scenarios []ScenarioResult `json:"scenarios"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario>...",
		Short: "Run observation scenarios",
		Long: `Run YAML scenarios against a fresh store. Each argument is a scenario
file or a directory of *.yaml scenarios. Exits 1 if any scenario fails.

Persisting scenarios use an in-memory SQLite database opened with the
configured store driver.

Example:
  livedb run ./scenarios
  livedb run --trace ./scenarios/links.yaml`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarios(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Filter, "filter", "", "only run scenarios whose name contains this string")
	cmd.Flags().BoolVar(&opts.Trace, "trace", false, "print each scenario's trace")

	return cmd
}

func runScenarios(opts *RunOptions, args []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	logger := opts.logger()

	files, err := scenarioFiles(args)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeScenario, err.Error())
	}

	summary := RunSummary{Scenarios: []ScenarioResult{}}
	for _, file := range files {
		sc, err := harness.LoadScenario(file)
		if err != nil {
			return formatter.fail(ExitCommandError, ErrCodeScenario, fmt.Sprintf("%s: %v", file, err))
		}
		if opts.Filter != "" && !strings.Contains(sc.Name, opts.Filter) {
			formatter.VerboseLog("Skipping %s", sc.Name)
			continue
		}

		formatter.VerboseLog("Running %s (%s)", sc.Name, file)
		result, err := harness.Run(cmd.Context(), sc,
			harness.WithLogger(logger),
			harness.WithDriver(opts.storeConfig().Driver),
		)
		if err != nil {
			return formatter.fail(ExitCommandError, ErrCodeScenario, fmt.Sprintf("%s: %v", sc.Name, err))
		}

		sr := ScenarioResult{
			File:   file,
			Name:   sc.Name,
			Pass:   result.Pass,
			Events: len(result.Trace),
			Errors: result.Errors,
		}
		summary.Scenarios = append(summary.Scenarios, sr)
		if sr.Pass {
			summary.Passed++
		} else {
			summary.Failed++
		}
		logger.Debug("scenario finished", "name", sc.Name, "pass", sr.Pass, "events", sr.Events)

		if !formatter.JSON() {
			printScenario(formatter, sr, result.Trace, opts.Trace)
		}
	}

	if formatter.JSON() {
		if summary.Failed > 0 {
			if err := formatter.Failure(ErrCodeScenario, fmt.Sprintf("%d scenario(s) failed", summary.Failed), summary); err != nil {
				return err
			}
		} else if err := formatter.Success(summary); err != nil {
			return err
		}
	} else {
		formatter.Printf("\n%d passed, %d failed\n", summary.Passed, summary.Failed)
	}

	if summary.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", summary.Failed))
	}
	return nil
}

func printScenario(formatter *OutputFormatter, sr ScenarioResult, trace []harness.TraceEvent, withTrace bool) {
	mark := "✓"
	if !sr.Pass {
		mark = "✗"
	}
	formatter.Printf("%s %s (%d event(s))\n", mark, sr.Name, sr.Events)
	for _, msg := range sr.Errors {
		formatter.Printf("    %s\n", strings.ReplaceAll(strings.TrimRight(msg, "\n"), "\n", "\n    "))
	}
	if withTrace {
		for _, ev := range trace {
			formatter.Printf("    [%d] %s\n", ev.Seq, ev)
		}
	}
}

// scenarioFiles expands directories to the *.yaml and *.yml files they
// contain, sorted by name.
func scenarioFiles(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("scenario path: %w", err)
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}
		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", arg, err)
		}
		var found []string
		for _, e := range entries {
			ext := filepath.Ext(e.Name())
			if !e.IsDir() && (ext == ".yaml" || ext == ".yml") {
				found = append(found, filepath.Join(arg, e.Name()))
			}
		}
		if len(found) == 0 {
			return nil, fmt.Errorf("no scenario files in %s", arg)
		}
		slices.Sort(found)
		files = append(files, found...)
	}
	return files, nil
}
