package orchestrator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{in: "es", want: FormatES},
		{in: "esm", want: FormatES},
		{in: " CJS ", want: FormatCJS},
		{in: "umd", want: FormatUMD},
		{in: "iife", want: FormatIIFE},
		{in: "amd", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrUnknownFormat))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseFormats_Dedupes(t *testing.T) {
	got, err := ParseFormats([]string{"es", "esm", "cjs", "es"})
	require.NoError(t, err)
	assert.Equal(t, []Format{FormatES, FormatCJS}, got)
}

func TestFormat_Extname(t *testing.T) {
	assert.Equal(t, ".mjs", FormatES.Extname())
	assert.Equal(t, ".cjs", FormatCJS.Extname())
	assert.Equal(t, ".umd.js", FormatUMD.Extname())
	assert.Equal(t, ".iife.js", FormatIIFE.Extname())
	assert.True(t, FormatIIFE.NeedsGlobalName())
	assert.False(t, FormatES.NeedsGlobalName())
}

func TestSubstituteDir(t *testing.T) {
	tests := []struct {
		name     string
		template string
		dir      string
		want     string
	}{
		{name: "nested dir", template: "[dir]/[name]", dir: "workers", want: "workers/[name]"},
		{name: "deep dir", template: "[dir]/[name][extname]", dir: "a/b", want: "a/b/[name][extname]"},
		{name: "empty dir collapses separator", template: "[dir]/[name]", dir: "", want: "[name]"},
		{name: "dot dir", template: "[dir]/[name]", dir: ".", want: "[name]"},
		{name: "no placeholder", template: "[name].[format].js", dir: "workers", want: "[name].[format].js"},
		{name: "placeholder without separator", template: "[dir][name]", dir: "", want: "[name]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SubstituteDir(tt.template, tt.dir))
		})
	}
}

func TestExpandFileName(t *testing.T) {
	tests := []struct {
		name     string
		template string
		vars     FileNameVars
		want     string
	}{
		{
			name:     "default template",
			template: "",
			vars:     FileNameVars{Name: "my-lib", Format: FormatCJS},
			want:     "my-lib.cjs",
		},
		{
			name:     "format and ext",
			template: "[name].[format].[ext]",
			vars:     FileNameVars{Name: "my-lib", Format: FormatES},
			want:     "my-lib.es.mjs",
		},
		{
			name:     "asset extname of a script is empty",
			template: "[name][assetExtname]",
			vars:     FileNameVars{Name: "foo", Format: FormatES, Entry: "src/foo.ts"},
			want:     "foo",
		},
		{
			name:     "asset extname of a non script",
			template: "[name][assetExtname]",
			vars:     FileNameVars{Name: "styles", Format: FormatES, Entry: "src/styles.css"},
			want:     "styles.css",
		},
		{
			name:     "substituted dir",
			template: "workers/[name]",
			vars:     FileNameVars{Name: "foo", Format: FormatES},
			want:     "workers/foo",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExpandFileName(tt.template, tt.vars)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExpandFileName_UnknownPlaceholder(t *testing.T) {
	_, err := ExpandFileName("[name].[hash].js", FileNameVars{Name: "x", Format: FormatES})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownPlaceholder))
	assert.Contains(t, err.Error(), "[hash]")
}

func TestEntryDir(t *testing.T) {
	tests := []struct {
		srcDir  string
		entry   string
		want    string
		wantErr bool
	}{
		{srcDir: "src", entry: "src/workers/foo.ts", want: "workers"},
		{srcDir: "src", entry: "src/foo.ts", want: ""},
		{srcDir: "src/", entry: "src/a/b/c.ts", want: "a/b"},
		{srcDir: "src", entry: "lib/foo.ts", wantErr: true},
		{srcDir: "src", entry: "foo.ts", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.entry, func(t *testing.T) {
			got, err := EntryDir(tt.srcDir, tt.entry)
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrOutsideSrcDir))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWorkerFileNameScenario(t *testing.T) {
	dir, err := EntryDir("src", "src/workers/foo.ts")
	require.NoError(t, err)
	assert.Equal(t, "workers", dir)

	name, err := ExpandFileName(SubstituteDir("[dir]/[name]", dir), FileNameVars{Name: "foo", Format: FormatES, Entry: "src/workers/foo.ts"})
	require.NoError(t, err)
	assert.Equal(t, "workers/foo", name)
}
