package dts

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyVerbatim(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "types", "nested"), 0750))
	require.NoError(t, os.WriteFile(filepath.Join(root, "types", "a.d.ts"), []byte("export {}"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(root, "types", "nested", "b.d.ts"), []byte("export {}"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(root, "shim.d.ts"), []byte("declare module '*.css';"), 0600))

	err := CopyVerbatim(root, "dist", []string{"types", "shim.d.ts"})
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(root, "dist", "types", "a.d.ts"))
	assert.FileExists(t, filepath.Join(root, "dist", "types", "nested", "b.d.ts"))

	data, err := os.ReadFile(filepath.Join(root, "dist", "shim.d.ts"))
	require.NoError(t, err)
	assert.Equal(t, "declare module '*.css';", string(data))
}

func TestCopyVerbatim_MissingSource(t *testing.T) {
	err := CopyVerbatim(t.TempDir(), "dist", []string{"nope.d.ts"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to copy nope.d.ts")
}

func TestCopyVerbatim_Empty(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, CopyVerbatim(root, "dist", nil))
	assert.NoDirExists(t, filepath.Join(root, "dist"))
}
