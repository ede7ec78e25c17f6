package orchestrator

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClean(t *testing.T) {
	root := writeProject(t, map[string]string{
		"types/index.d.ts": "",
		"tmp/cache.json":   "",
		"keep.txt":         "",
	})

	require.NoError(t, Clean(root, []string{"types", "tmp/cache.json", "does-not-exist"}))

	assert.NoDirExists(t, filepath.Join(root, "types"))
	assert.NoFileExists(t, filepath.Join(root, "tmp", "cache.json"))
	assert.DirExists(t, filepath.Join(root, "tmp"))
	assert.FileExists(t, filepath.Join(root, "keep.txt"))
}

func TestClean_RefusesUnsafePaths(t *testing.T) {
	root := writeProject(t, map[string]string{"keep.txt": ""})

	for _, p := range []string{".", "", "..", "../sibling", "/etc"} {
		t.Run(p, func(t *testing.T) {
			err := Clean(root, []string{p})
			assert.True(t, errors.Is(err, ErrUnsafePath))
		})
	}
	assert.FileExists(t, filepath.Join(root, "keep.txt"))
}

func TestEmptyDir(t *testing.T) {
	root := writeProject(t, map[string]string{
		"dist/a.js":     "",
		"dist/sub/b.js": "",
		"src/index.ts":  "",
	})

	require.NoError(t, emptyDir(root, "dist"))

	entries, err := os.ReadDir(filepath.Join(root, "dist"))
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.FileExists(t, filepath.Join(root, "src", "index.ts"))

	// Missing directories are created
	require.NoError(t, emptyDir(root, filepath.Join(root, "out", "nested")))
	assert.DirExists(t, filepath.Join(root, "out", "nested"))
}

func TestEmptyDir_RefusesPathsOutsideRoot(t *testing.T) {
	parent := t.TempDir()
	root := filepath.Join(parent, "proj")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(parent, "sibling.txt"), []byte("x"), 0o644))

	for _, dir := range []string{"..", ".", parent} {
		t.Run(dir, func(t *testing.T) {
			assert.ErrorIs(t, emptyDir(root, dir), ErrUnsafePath)
		})
	}
	assert.FileExists(t, filepath.Join(parent, "sibling.txt"))
	assert.DirExists(t, filepath.Join(root, "src"))
}
