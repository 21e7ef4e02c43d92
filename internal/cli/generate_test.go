package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/livedb/internal/codegen"
	"github.com/roach88/livedb/internal/schema"
)

func TestGenerateToStdout(t *testing.T) {
	out, _, err := execute(t, "generate", "-p", "store", validModels(t))
	require.NoError(t, err)

	assert.Contains(t, out, codegen.Header)
	assert.Contains(t, out, "package store")
	assert.Contains(t, out, "func NewItem(")
	assert.Contains(t, out, "func ItemForPrimaryKey(s *engine.Store, key int64) (*Item, error)")
	assert.Contains(t, out, "func (o *Item) ScratchLocal() (int64, error)")
	assert.Contains(t, out, "func NewTag(")
	assert.Contains(t, out, "func Register(")
}

func TestGenerateToFile(t *testing.T) {
	outFile := filepath.Join(t.TempDir(), "models_gen.go")

	out, _, err := execute(t, "generate", "--package", "models", "--out", outFile, validModels(t))
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote "+outFile+" (package models, 2 model(s))")

	src, err := os.ReadFile(outFile)
	require.NoError(t, err)
	assert.Contains(t, string(src), "package models")
}

func TestGenerateMatchesCodegen(t *testing.T) {
	dir := validModels(t)
	loaded, errs := schema.LoadDir(dir, schema.LoadModeFailFast)
	require.Empty(t, errs)
	want, err := codegen.Generate("models", loaded.Models)
	require.NoError(t, err)

	out, _, err := execute(t, "generate", dir)
	require.NoError(t, err)
	assert.Equal(t, string(want), out)
}

func TestGenerateJSON(t *testing.T) {
	out, _, err := execute(t, "--format", "json", "generate", validModels(t))
	require.NoError(t, err)

	var resp struct {
		Status string         `json:"status"`
		Data   GenerateResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "models", resp.Data.Package)
	assert.ElementsMatch(t, []string{"Item", "Tag"}, resp.Data.Models)
	assert.Contains(t, resp.Data.Source, "func NewItem(")
}

func TestGenerateErrors(t *testing.T) {
	t.Run("invalid models", func(t *testing.T) {
		dir := writeModels(t, map[string]string{"bad.cue": badModels})
		out, _, err := execute(t, "generate", dir)
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
		assert.Contains(t, out, "Error [E1")
	})

	t.Run("invalid package name", func(t *testing.T) {
		out, _, err := execute(t, "generate", "-p", "not a package", validModels(t))
		require.Error(t, err)
		assert.Contains(t, out, "Error ["+ErrCodeGenerate+"]")
	})

	t.Run("unwritable output", func(t *testing.T) {
		outFile := filepath.Join(t.TempDir(), "missing", "dir", "x.go")
		out, _, err := execute(t, "generate", "-o", outFile, validModels(t))
		require.Error(t, err)
		assert.Contains(t, out, "Error ["+ErrCodeWriteFailed+"]")
	})
}
