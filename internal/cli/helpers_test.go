package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const itemModel = `package models

model: Item: {
	primaryKey: "id"
	ignored: ["scratch"]
	properties: {
		id:      {type: "int64"}
		name:    {type: "string", default: "unnamed"}
		scratch: {type: "int"}
		next:    {type: "object", target: "Item"}
	}
}
`

const tagModel = `package models

model: Tag: properties: label: {type: "string"}
`

// writeModels writes files (name -> CUE source) to a fresh models directory.
func writeModels(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "models")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for name, src := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(src), 0o644))
	}
	return dir
}

func validModels(t *testing.T) string {
	return writeModels(t, map[string]string{"item.cue": itemModel, "tag.cue": tagModel})
}

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(t.Context())
	return out.String(), errOut.String(), err
}
