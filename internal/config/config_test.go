package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeBuildFile(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, FileName+".yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(t.TempDir(), "")
	require.NoError(t, err)

	assert.Empty(t, cfg.Source())
	assert.Equal(t, "package.json", cfg.Manifest)
	assert.Equal(t, "src/index.ts", cfg.Entry)
	assert.Equal(t, "src", cfg.SrcDir)
	assert.Equal(t, "[name][extname]", cfg.FileName)
	assert.Equal(t, []string{"es", "cjs"}, cfg.Formats)
	assert.Empty(t, cfg.BundleFormats)
	assert.Equal(t, "neutral", cfg.Platform)
	assert.Equal(t, "es2020", cfg.Target)
	assert.True(t, cfg.EmptyOutDir)

	assert.False(t, cfg.DTS.Enabled)
	assert.Equal(t, "tsconfig.json", cfg.DTS.TSConfig)
	assert.Equal(t, 2*time.Minute, cfg.DTS.Timeout)

	assert.False(t, cfg.Auxiliary.Enabled())
	assert.Equal(t, OrderAfter, cfg.Auxiliary.Order)
	assert.Equal(t, "[dir]/[name][extname]", cfg.Auxiliary.FileName)

	assert.Equal(t, 300*time.Millisecond, cfg.Watch.Debounce)
	assert.Equal(t, "libbuild", cfg.Telemetry.Tracing.ServiceName)
	assert.False(t, cfg.Telemetry.Tracing.Enabled)
}

func TestLoad_BuildFile(t *testing.T) {
	root := t.TempDir()
	writeBuildFile(t, root, `
entry: lib/main.ts
src_dir: lib
out_dir: build
formats: [es]
bundle_formats: [iife, umd]
external: [react]
globals:
  react: React
  "@turf/turf": turf
platform: browser
sourcemap: true
modes:
  Stage:
    include: ["@turf/turf"]
dts:
  enabled: true
  rollup: true
  copy: [types/globals.d.ts]
auxiliary:
  entries: ["lib/workers/**/*.ts"]
  formats: [iife]
  order: before
watch:
  debounce: 1s
  ignore: ["**/*.test.ts"]
`)

	cfg, err := Load(root, "")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(root, "libbuild.yaml"), cfg.Source())
	assert.Equal(t, "lib/main.ts", cfg.Entry)
	assert.Equal(t, "lib", cfg.SrcDir)
	assert.Equal(t, "build", cfg.OutDir)
	assert.Equal(t, []string{"es"}, cfg.Formats)
	assert.Equal(t, []string{"iife", "umd"}, cfg.BundleFormats)
	assert.Equal(t, []string{"react"}, cfg.External)
	assert.Equal(t, map[string]string{"react": "React", "@turf/turf": "turf"}, cfg.Globals)
	assert.Equal(t, "browser", cfg.Platform)
	assert.True(t, cfg.Sourcemap)

	mode, ok := cfg.Mode("stage")
	require.True(t, ok)
	assert.Equal(t, []string{"@turf/turf"}, mode.Include)
	_, ok = cfg.Mode("STAGE")
	assert.True(t, ok, "mode lookup is case-insensitive")
	_, ok = cfg.Mode("prod")
	assert.False(t, ok)

	assert.True(t, cfg.DTS.Enabled)
	assert.True(t, cfg.DTS.Rollup)
	assert.Equal(t, []string{"types/globals.d.ts"}, cfg.DTS.Copy)

	assert.True(t, cfg.Auxiliary.Enabled())
	assert.Equal(t, OrderBefore, cfg.Auxiliary.Order)
	assert.Equal(t, []string{"iife"}, cfg.Auxiliary.Formats)

	assert.Equal(t, time.Second, cfg.Watch.Debounce)
	assert.Equal(t, []string{"**/*.test.ts"}, cfg.Watch.Ignore)
}

func TestLoad_ExplicitPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yml")
	require.NoError(t, os.WriteFile(path, []byte("target: es2018\n"), 0o644))

	cfg, err := Load(t.TempDir(), path)
	require.NoError(t, err)
	assert.Equal(t, "es2018", cfg.Target)
	assert.Equal(t, path, cfg.Source())
}

func TestLoad_ExplicitPathMissing(t *testing.T) {
	_, err := Load(t.TempDir(), filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading build file")
}

func TestLoad_Malformed(t *testing.T) {
	root := t.TempDir()
	writeBuildFile(t, root, "formats: [es\n")

	_, err := Load(root, "")
	require.Error(t, err)
}

func TestLoad_EnvOverride(t *testing.T) {
	root := t.TempDir()
	writeBuildFile(t, root, "out_dir: build\n")
	t.Setenv("LIBBUILD_OUT_DIR", "dist-env")
	t.Setenv("LIBBUILD_DTS_ENABLED", "true")

	cfg, err := Load(root, "")
	require.NoError(t, err)
	assert.Equal(t, "dist-env", cfg.OutDir)
	assert.True(t, cfg.DTS.Enabled)
}

func TestLoad_DotEnv(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ".env"), []byte("LIBBUILD_TARGET=es2017\n"), 0o644))
	// godotenv writes straight to the process environment
	t.Cleanup(func() { os.Unsetenv("LIBBUILD_TARGET") })

	cfg, err := Load(root, "")
	require.NoError(t, err)
	assert.Equal(t, "es2017", cfg.Target)
}

func TestLoad_Invalid(t *testing.T) {
	root := t.TempDir()
	writeBuildFile(t, root, "platform: deno\n")

	_, err := Load(root, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid build file")
	assert.Contains(t, err.Error(), "invalid platform")
}

func TestLoad_NormalizesNames(t *testing.T) {
	root := t.TempDir()
	writeBuildFile(t, root, `
formats: [ESM, cjs]
bundle_formats: [UMD]
platform: Node
target: ES2019
modes:
  legacy:
    formats: [Es]
auxiliary:
  entries: ["src/worker.ts"]
  formats: [IIFE]
`)

	cfg, err := Load(root, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"es", "cjs"}, cfg.Formats)
	assert.Equal(t, []string{"umd"}, cfg.BundleFormats)
	assert.Equal(t, "node", cfg.Platform)
	assert.Equal(t, "es2019", cfg.Target)
	assert.Equal(t, []string{"iife"}, cfg.Auxiliary.Formats)

	mode, ok := cfg.Mode("legacy")
	require.True(t, ok)
	assert.Equal(t, []string{"es"}, mode.Formats)
}

func TestNormalizeFormat(t *testing.T) {
	assert.Equal(t, "es", NormalizeFormat("esm"))
	assert.Equal(t, "es", NormalizeFormat(" ES "))
	assert.Equal(t, "iife", NormalizeFormat("IIFE"))
	assert.Equal(t, "amd", NormalizeFormat("amd"))
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		return Config{
			Manifest: "package.json",
			Entry:    "src/index.ts",
			Formats:  []string{"es", "cjs"},
			Platform: "neutral",
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "empty entry", mutate: func(c *Config) { c.Entry = "  " }, wantErr: "entry cannot be empty"},
		{name: "empty manifest", mutate: func(c *Config) { c.Manifest = "" }, wantErr: "manifest cannot be empty"},
		{
			name:    "no formats",
			mutate:  func(c *Config) { c.Formats = nil },
			wantErr: "at least one of formats or bundle_formats",
		},
		{
			name:   "bundle formats only",
			mutate: func(c *Config) { c.Formats = nil; c.BundleFormats = []string{"iife"} },
		},
		{name: "unknown format", mutate: func(c *Config) { c.Formats = []string{"amd"} }, wantErr: "invalid formats entry: amd"},
		{
			name:    "unknown bundle format",
			mutate:  func(c *Config) { c.BundleFormats = []string{"system"} },
			wantErr: "invalid bundle_formats entry: system",
		},
		{name: "bad platform", mutate: func(c *Config) { c.Platform = "" }, wantErr: "invalid platform"},
		{name: "platform in any case", mutate: func(c *Config) { c.Platform = "Browser" }},
		{name: "format aliases", mutate: func(c *Config) { c.Formats = []string{"ESM", "CJS"}; c.BundleFormats = []string{" Umd "} }},
		{
			name: "mode with empty include",
			mutate: func(c *Config) {
				c.Modes = map[string]ModeConfig{"stage": {Include: []string{""}}}
			},
			wantErr: "mode stage",
		},
		{
			name: "mode with unknown format",
			mutate: func(c *Config) {
				c.Modes = map[string]ModeConfig{"stage": {Formats: []string{"amd"}}}
			},
			wantErr: "invalid mode stage formats entry",
		},
		{
			name: "auxiliary bad order",
			mutate: func(c *Config) {
				c.Auxiliary = AuxiliaryConfig{Entries: []string{"a.ts"}, FileName: "[name]", Formats: []string{"es"}, Order: "during"}
			},
			wantErr: "invalid order: during",
		},
		{
			name: "auxiliary unknown format",
			mutate: func(c *Config) {
				c.Auxiliary = AuxiliaryConfig{Entries: []string{"a.ts"}, FileName: "[name]", Formats: []string{"wasm"}, Order: OrderAfter}
			},
			wantErr: "invalid auxiliary.formats entry: wasm",
		},
		{
			name:    "rollup without enabled",
			mutate:  func(c *Config) { c.DTS.Rollup = true },
			wantErr: "dts.rollup requires dts.enabled",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestAuxiliaryConfig_Validate(t *testing.T) {
	t.Run("disabled skips validation", func(t *testing.T) {
		ac := AuxiliaryConfig{Order: "whenever"}
		assert.NoError(t, ac.Validate())
	})

	t.Run("missing file name", func(t *testing.T) {
		ac := AuxiliaryConfig{Entries: []string{"a.ts"}, Formats: []string{"es"}, Order: OrderAfter}
		assert.ErrorContains(t, ac.Validate(), "file_name cannot be empty")
	})

	t.Run("missing formats", func(t *testing.T) {
		ac := AuxiliaryConfig{Entries: []string{"a.ts"}, FileName: "[name]", Order: OrderBefore}
		assert.ErrorContains(t, ac.Validate(), "formats cannot be empty")
	})
}
