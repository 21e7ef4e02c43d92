package cli

import (
	"fmt"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/livedb/internal/schema"
	"github.com/roach88/livedb/internal/store"
)

// InspectOptions holds flags for the inspect command.
type InspectOptions struct {
	*RootOptions
	Database string
	Driver   string
	Type     string // only list this type
}

// TypeListing is the committed objects of one model.
type TypeListing struct {
	Type    string               `json:"type"`
	Objects []store.ObjectRecord `json:"objects"`
}

// InspectResult is what inspect reports about a database.
type InspectResult struct {
	Database     string             `json:"database"`
	LastSeq      int64              `json:"last_seq"`
	Commits      []store.CommitInfo `json:"commits"`
	Types        []TypeListing      `json:"types"`
	UnknownTypes []string           `json:"unknown_types,omitempty"` // stored types with no model
	Corrupt      []string           `json:"corrupt,omitempty"`       // Type(key) of rows failing digest checks
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InspectOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "inspect <models-dir>",
		Short: "List committed objects in a store",
		Long: `List the commits and the committed objects, per model type, of a SQLite
store. Every object's digest is verified; inspect exits 1 if any row fails.

The database path and driver default to store.path and store.driver from
the configuration.

Example:
  livedb inspect --db ./livedb.db ./models
  livedb inspect --db ./livedb.db --type Person --format json ./models`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default store.path)")
	cmd.Flags().StringVar(&opts.Driver, "driver", "", "SQLite driver: sqlite3 or sqlite (default store.driver)")
	cmd.Flags().StringVar(&opts.Type, "type", "", "only list objects of this model")

	return cmd
}

func runInspect(opts *InspectOptions, dir string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	ctx := cmd.Context()

	sc := opts.storeConfig()
	if opts.Database != "" {
		sc.Path = opts.Database
	}
	if opts.Driver != "" {
		sc.Driver = opts.Driver
	}

	reg, err := schema.LoadRegistry(dir)
	if err != nil {
		return failLoad(formatter, err)
	}
	if opts.Type != "" {
		if _, ok := reg.Lookup(opts.Type); !ok {
			return formatter.fail(ExitCommandError, schema.ErrCodeNotFound, fmt.Sprintf("model %q is not declared in %s", opts.Type, dir))
		}
	}

	// Opening would create a missing database.
	if _, err := os.Stat(sc.Path); err != nil {
		return formatter.fail(ExitCommandError, ErrCodeStore, fmt.Sprintf("database not found: %s", sc.Path))
	}
	st, err := store.OpenWithDriver(sc.Driver, sc.Path)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeStore, err.Error())
	}
	defer st.Close()
	opts.logger().Debug("inspecting store", "path", sc.Path, "driver", st.Driver())

	result := InspectResult{Database: sc.Path, Types: []TypeListing{}}
	if result.Commits, err = st.Commits(ctx); err != nil {
		return formatter.fail(ExitCommandError, ErrCodeStore, err.Error())
	}
	if result.LastSeq, err = st.LastSeq(ctx); err != nil {
		return formatter.fail(ExitCommandError, ErrCodeStore, err.Error())
	}

	for _, sch := range reg.Schemas() {
		if opts.Type != "" && sch.Name != opts.Type {
			continue
		}
		records, err := st.Objects(ctx, sch.Name)
		if err != nil {
			return formatter.fail(ExitCommandError, ErrCodeStore, err.Error())
		}
		for _, rec := range records {
			if err := rec.Verify(); err != nil {
				result.Corrupt = append(result.Corrupt, fmt.Sprintf("%s(%s)", rec.Type, rec.Key))
			}
		}
		result.Types = append(result.Types, TypeListing{Type: sch.Name, Objects: records})
	}

	stored, err := st.Types(ctx)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeStore, err.Error())
	}
	for _, typ := range stored {
		if _, ok := reg.Lookup(typ); !ok {
			result.UnknownTypes = append(result.UnknownTypes, typ)
		}
	}

	if formatter.JSON() {
		if len(result.Corrupt) > 0 {
			if err := formatter.Failure(ErrCodeStore, fmt.Sprintf("%d object(s) failed digest verification", len(result.Corrupt)), result); err != nil {
				return err
			}
		} else if err := formatter.Success(result); err != nil {
			return err
		}
	} else {
		printInspect(formatter, result)
	}

	if len(result.Corrupt) > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d object(s) failed digest verification", len(result.Corrupt)))
	}
	return nil
}

func printInspect(formatter *OutputFormatter, result InspectResult) {
	formatter.Printf("%s: %d commit(s), last seq %d\n", result.Database, len(result.Commits), result.LastSeq)
	if formatter.Verbose {
		for _, c := range result.Commits {
			formatter.Printf("  seq %d  %s  %d object(s)\n", c.Seq, c.ID, c.Objects)
		}
	}
	for _, tl := range result.Types {
		formatter.Printf("\n%s (%d)\n", tl.Type, len(tl.Objects))
		for _, rec := range tl.Objects {
			mark := ""
			if slices.Contains(result.Corrupt, fmt.Sprintf("%s(%s)", rec.Type, rec.Key)) {
				mark = "  ✗ digest mismatch"
			}
			formatter.Printf("  %s  seq=%d  %s%s\n", rec.Key, rec.CommitSeq, rec.Payload, mark)
		}
	}
	if len(result.UnknownTypes) > 0 {
		formatter.Printf("\nStored types with no model: %v\n", result.UnknownTypes)
	}
}
