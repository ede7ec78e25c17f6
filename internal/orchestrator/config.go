// Package orchestrator turns a manifest and a build file into build passes
// and runs them through a Builder.
package orchestrator

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/tiendc/go-deepcopy"

	"github.com/fluxbase-eu/libbuild/internal/dts"
	"github.com/fluxbase-eu/libbuild/internal/manifest"
)

// BuildConfig describes one build invocation. Values are treated as
// immutable: the With* helpers return deep clones and never touch the
// receiver.
type BuildConfig struct {
	Root         string                 `json:"root" yaml:"root"`
	Entry        string                 `json:"entry" yaml:"entry"` // relative to Root
	SrcDir       string                 `json:"src_dir" yaml:"src_dir"`
	OutDir       string                 `json:"out_dir" yaml:"out_dir"`
	Name         string                 `json:"name" yaml:"name"` // global name for iife/umd
	FileNameBase string                 `json:"file_name_base" yaml:"file_name_base"`
	FileName     string                 `json:"file_name" yaml:"file_name"`
	Formats      []Format               `json:"formats" yaml:"formats"`
	External     manifest.DependencySet `json:"external" yaml:"external"`
	Globals      map[string]string      `json:"globals,omitempty" yaml:"globals,omitempty"`
	Platform     string                 `json:"platform" yaml:"platform"`
	Target       string                 `json:"target" yaml:"target"`
	Sourcemap    bool                   `json:"sourcemap" yaml:"sourcemap"`
	Minify       bool                   `json:"minify" yaml:"minify"`
	EmptyOutDir  bool                   `json:"empty_out_dir" yaml:"empty_out_dir"`

	// LoadConfigFile is false for nested passes, which must never spawn
	// further passes of their own
	LoadConfigFile bool `json:"load_config_file" yaml:"load_config_file"`

	Declarations dts.Options `json:"declarations" yaml:"declarations"`
	Types        string      `json:"types,omitempty" yaml:"types,omitempty"`
}

// Clone returns a deep copy sharing no slices with c
func (c BuildConfig) Clone() BuildConfig {
	var out BuildConfig
	// Copy only fails on mismatched types, which cannot happen here
	if err := deepcopy.Copy(&out, &c); err != nil {
		panic(fmt.Sprintf("clone build config: %v", err))
	}
	return out
}

// Nested returns a clone that will not spawn secondary passes
func (c BuildConfig) Nested() BuildConfig {
	out := c.Clone()
	out.LoadConfigFile = false
	return out
}

// WithFormats returns a clone building the given formats
func (c BuildConfig) WithFormats(formats ...Format) BuildConfig {
	out := c.Clone()
	out.Formats = append([]Format(nil), formats...)
	return out
}

// WithExternal returns a clone with a different external set
func (c BuildConfig) WithExternal(set manifest.DependencySet) BuildConfig {
	out := c.Clone()
	out.External = manifest.NewDependencySet(set.Names, set.Prefixes...)
	return out
}

// WithEntry returns a clone for another entry file
func (c BuildConfig) WithEntry(entry, fileNameBase string) BuildConfig {
	out := c.Clone()
	out.Entry = entry
	out.FileNameBase = fileNameBase
	return out
}

// WithOutput returns a clone writing to outDir with the given file name template
func (c BuildConfig) WithOutput(outDir, fileName string) BuildConfig {
	out := c.Clone()
	out.OutDir = outDir
	out.FileName = fileName
	return out
}

// WithEmptyOutDir returns a clone with the clear flag set to empty
func (c BuildConfig) WithEmptyOutDir(empty bool) BuildConfig {
	out := c.Clone()
	out.EmptyOutDir = empty
	return out
}

// OutputFile is the file written for format, relative to Root
func (c BuildConfig) OutputFile(format Format) (string, error) {
	// [dir] only applies to entries under SrcDir
	dir, _ := EntryDir(c.SrcDir, c.Entry)
	name, err := ExpandFileName(SubstituteDir(c.FileName, dir), FileNameVars{
		Name:   c.FileNameBase,
		Format: format,
		Entry:  c.Entry,
	})
	if err != nil {
		return "", err
	}
	return filepath.Join(c.OutDir, filepath.FromSlash(name)), nil
}

// OutputFiles lists OutputFile for every format, in format order
func (c BuildConfig) OutputFiles() ([]string, error) {
	files := make([]string, 0, len(c.Formats))
	for _, f := range c.Formats {
		path, err := c.OutputFile(f)
		if err != nil {
			return nil, err
		}
		files = append(files, path)
	}
	return files, nil
}

// ShouldEmptyOutDir reports the effective clear flag: the requested flag,
// unless the output directory leaves the project root or holds the sources.
func (c BuildConfig) ShouldEmptyOutDir() bool {
	return c.EmptyOutDir && safeToEmpty(c.Root, c.OutDir, c.SrcDir)
}

// OutPath is OutDir resolved against Root
func (c BuildConfig) OutPath() string {
	if filepath.IsAbs(c.OutDir) {
		return filepath.Clean(c.OutDir)
	}
	return filepath.Join(c.Root, c.OutDir)
}

// safeToEmpty reports whether outDir lies strictly inside root and is
// neither srcDir nor one of its ancestors
func safeToEmpty(root, outDir, srcDir string) bool {
	if strings.TrimSpace(outDir) == "" {
		return false
	}
	out, err := insideRoot(root, outDir)
	if err != nil {
		return false
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return false
	}
	src := srcDir
	if !filepath.IsAbs(src) {
		src = filepath.Join(absRoot, src)
	}
	return !within(out, filepath.Clean(src))
}
