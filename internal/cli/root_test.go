package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/livedb/internal/store"
)

func TestRootCommandStructure(t *testing.T) {
	cmd := NewRootCommand()
	assert.Equal(t, "livedb", cmd.Use)

	names := map[string]bool{}
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	for _, want := range []string{"compile", "validate", "generate", "run", "inspect"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	format := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, format)
	assert.Equal(t, "text", format.DefValue)

	verbose := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verbose)
	assert.Equal(t, "v", verbose.Shorthand)

	require.NotNil(t, cmd.PersistentFlags().Lookup("config"))
}

func TestSubcommandFlags(t *testing.T) {
	cmd := NewRootCommand()

	gen, _, err := cmd.Find([]string{"generate"})
	require.NoError(t, err)
	pkg := gen.Flags().Lookup("package")
	require.NotNil(t, pkg)
	assert.Equal(t, "p", pkg.Shorthand)
	out := gen.Flags().Lookup("out")
	require.NotNil(t, out)
	assert.Equal(t, "o", out.Shorthand)

	inspect, _, err := cmd.Find([]string{"inspect"})
	require.NoError(t, err)
	db := inspect.Flags().Lookup("db")
	require.NotNil(t, db)
	assert.Equal(t, "", db.DefValue)
	require.NotNil(t, inspect.Flags().Lookup("driver"))

	run, _, err := cmd.Find([]string{"run"})
	require.NoError(t, err)
	require.NotNil(t, run.Flags().Lookup("filter"))
	require.NotNil(t, run.Flags().Lookup("trace"))
}

func TestInvalidFormatRejected(t *testing.T) {
	_, _, err := execute(t, "--format", "xml", "validate", ".")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestConfigFileSetsFormat(t *testing.T) {
	dir := validModels(t)
	cfgPath := filepath.Join(t.TempDir(), "livedb.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("format: json\n"), 0o644))

	out, _, err := execute(t, "--config", cfgPath, "validate", dir)
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestEnvSetsFormat(t *testing.T) {
	t.Setenv("LIVEDB_FORMAT", "json")
	out, _, err := execute(t, "validate", validModels(t))
	require.NoError(t, err)
	assert.Contains(t, out, `"status": "ok"`)
}

func TestFlagOverridesConfigFile(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "livedb.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("format: json\n"), 0o644))

	out, _, err := execute(t, "--config", cfgPath, "--format", "text", "validate", validModels(t))
	require.NoError(t, err)
	assert.Contains(t, out, "✓ All models valid")
}

func TestMissingConfigFile(t *testing.T) {
	_, _, err := execute(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "validate", ".")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestVerboseLogsToStderr(t *testing.T) {
	out, errOut, err := execute(t, "--verbose", "validate", validModels(t))
	require.NoError(t, err)
	assert.Contains(t, out, "✓ All models valid")
	assert.Contains(t, errOut, "Validated model: Item")
}

func TestRootOptionsDefaultsWithoutPreRun(t *testing.T) {
	opts := &RootOptions{}
	sc := opts.storeConfig()
	assert.Equal(t, store.DefaultDriver, sc.Driver)
	assert.NotEmpty(t, sc.Path)
	assert.NotNil(t, opts.logger())
}
