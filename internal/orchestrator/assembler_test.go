package orchestrator

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxbase-eu/libbuild/internal/manifest"
)

func TestAssemble(t *testing.T) {
	root := writeProject(t, map[string]string{"src/index.ts": "export const x = 1"})
	pkg := testManifest()
	exclude, _ := pkg.ExternalSets(nil, nil)

	base, err := Assemble(AssembleInput{
		Root:     root,
		Config:   testConfig(),
		Manifest: pkg,
		External: exclude,
	})
	require.NoError(t, err)

	assert.Equal(t, root, base.Root)
	assert.Equal(t, filepath.Join("src", "index.ts"), base.Entry)
	assert.Equal(t, "src", base.SrcDir)
	assert.Equal(t, "dist", base.OutDir, "derived from the manifest module path")
	assert.Equal(t, "MyLib", base.Name)
	assert.Equal(t, "my-lib", base.FileNameBase)
	assert.Equal(t, []Format{FormatES, FormatCJS}, base.Formats)
	assert.True(t, base.LoadConfigFile)
	assert.True(t, base.External.Contains("a"))
	assert.True(t, base.External.Contains("node:fs"))
}

func TestAssemble_Overrides(t *testing.T) {
	root := writeProject(t, map[string]string{"lib/main.js": ""})
	cfg := testConfig()
	cfg.Entry = "lib/main.js"
	cfg.OutDir = "build/"
	cfg.Name = "Custom"
	cfg.FileNameBase = "custom"
	cfg.Globals = map[string]string{"b": "B"}

	base, err := Assemble(AssembleInput{Root: root, Config: cfg, Manifest: testManifest()})
	require.NoError(t, err)

	assert.Equal(t, "build", base.OutDir)
	assert.Equal(t, "Custom", base.Name)
	assert.Equal(t, "custom", base.FileNameBase)
	assert.Equal(t, map[string]string{"b": "B"}, base.Globals)

	base.Globals["b"] = "Changed"
	assert.Equal(t, "B", cfg.Globals["b"], "the base shares no map with the build file")
}

func TestAssemble_NamelessManifest(t *testing.T) {
	root := writeProject(t, map[string]string{"src/gis.ts": ""})
	cfg := testConfig()
	cfg.Entry = "src/gis"

	base, err := Assemble(AssembleInput{Root: root, Config: cfg, Manifest: &manifest.Manifest{}})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join("src", "gis.ts"), base.Entry)
	assert.Equal(t, "dist", base.OutDir)
	assert.Equal(t, "Gis", base.Name)
	assert.Equal(t, "gis", base.FileNameBase)
}

func TestAssemble_UnknownFormat(t *testing.T) {
	root := writeProject(t, map[string]string{"src/index.ts": ""})
	cfg := testConfig()
	cfg.Formats = []string{"system"}

	_, err := Assemble(AssembleInput{Root: root, Config: cfg, Manifest: testManifest()})
	assert.True(t, errors.Is(err, ErrUnknownFormat))
}

func TestResolveEntry(t *testing.T) {
	root := writeProject(t, map[string]string{
		"src/index.ts":      "",
		"src/gis.tsx":       "",
		"src/geo/index.mjs": "",
	})

	tests := []struct {
		entry string
		want  string
	}{
		{entry: "src/index.ts", want: "src/index.ts"},
		{entry: "src/index", want: "src/index.ts"},
		{entry: "src/gis", want: "src/gis.tsx"},
		{entry: "src/geo", want: "src/geo/index.mjs"},
		{entry: "./src/index.ts", want: "src/index.ts"},
	}

	for _, tt := range tests {
		t.Run(tt.entry, func(t *testing.T) {
			got, err := ResolveEntry(root, tt.entry)
			require.NoError(t, err)
			assert.Equal(t, filepath.FromSlash(tt.want), got)
		})
	}
}

func TestResolveEntry_Missing(t *testing.T) {
	root := writeProject(t, map[string]string{"src/other.ts": ""})

	_, err := ResolveEntry(root, "src/index.ts")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoEntry))

	_, err = ResolveEntry(root, "src")
	assert.True(t, errors.Is(err, ErrNoEntry), "a directory without an index is not an entry")
}
