package orchestrator

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fluxbase-eu/libbuild/internal/config"
	"github.com/fluxbase-eu/libbuild/internal/manifest"
)

// ErrNoEntry is returned when the configured entry resolves to no file
var ErrNoEntry = errors.New("entry not found")

const defaultOutDir = "dist"

// Extensions tried, in order, for an entry given without one ("src/gis")
var entryExtensions = []string{".ts", ".tsx", ".mts", ".js", ".jsx", ".mjs"}

// AssembleInput collects what the base configuration is derived from
type AssembleInput struct {
	Root     string
	Config   *config.Config
	Manifest *manifest.Manifest
	External manifest.DependencySet
}

// Assemble builds the base configuration of a project. The result loads the
// config file (LoadConfigFile is true) and builds the build file's formats.
func Assemble(in AssembleInput) (BuildConfig, error) {
	cfg := in.Config
	pkg := in.Manifest
	if pkg == nil {
		pkg = &manifest.Manifest{}
	}

	entry, err := ResolveEntry(in.Root, cfg.Entry)
	if err != nil {
		return BuildConfig{}, err
	}

	formats, err := ParseFormats(cfg.Formats)
	if err != nil {
		return BuildConfig{}, err
	}

	base := BuildConfig{
		Root:           in.Root,
		Entry:          entry,
		SrcDir:         filepath.Clean(cfg.SrcDir),
		OutDir:         outDir(cfg, pkg),
		Name:           libraryName(cfg, pkg, entry),
		FileNameBase:   fileNameBase(cfg, pkg, entry),
		FileName:       cfg.FileName,
		Formats:        formats,
		External:       in.External,
		Globals:        cfg.Globals,
		Platform:       cfg.Platform,
		Target:         cfg.Target,
		Sourcemap:      cfg.Sourcemap,
		Minify:         cfg.Minify,
		EmptyOutDir:    cfg.EmptyOutDir,
		LoadConfigFile: true,
		Declarations:   cfg.DTS,
		Types:          pkg.TypesPath(),
	}

	// Hand out a value that shares nothing with cfg or the manifest
	return base.Clone(), nil
}

// ResolveEntry returns entry relative to root, trying the usual script
// extensions and index files when entry names no existing file.
func ResolveEntry(root, entry string) (string, error) {
	entry = filepath.Clean(entry)
	candidates := []string{entry}
	if filepath.Ext(entry) == "" {
		for _, ext := range entryExtensions {
			candidates = append(candidates, entry+ext)
		}
		for _, ext := range entryExtensions {
			candidates = append(candidates, filepath.Join(entry, "index"+ext))
		}
	}

	for _, c := range candidates {
		info, err := os.Stat(filepath.Join(root, c))
		if err == nil && !info.IsDir() {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %s (in %s)", ErrNoEntry, entry, root)
}

// outDir is the configured directory, else the directory of the manifest's
// module/main entry, else dist
func outDir(cfg *config.Config, pkg *manifest.Manifest) string {
	if cfg.OutDir != "" {
		return filepath.Clean(cfg.OutDir)
	}
	if p := pkg.EntryPath(); p != "" {
		if dir := filepath.Dir(filepath.Clean(p)); dir != "." {
			return dir
		}
	}
	return defaultOutDir
}

func libraryName(cfg *config.Config, pkg *manifest.Manifest, entry string) string {
	if cfg.Name != "" {
		return cfg.Name
	}
	if name := manifest.LibraryName(pkg.Name); name != "" {
		return name
	}
	return manifest.LibraryName(entryBase(entry))
}

func fileNameBase(cfg *config.Config, pkg *manifest.Manifest, entry string) string {
	if cfg.FileNameBase != "" {
		return cfg.FileNameBase
	}
	if name := manifest.RemoveScope(pkg.Name); name != "" {
		return name
	}
	return entryBase(entry)
}

// entryBase is the file name of entry without its extension
func entryBase(entry string) string {
	base := filepath.Base(entry)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
