package orchestrator

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
)

// ErrUnknownPlaceholder is returned for template placeholders other than
// [dir] [name] [format] [ext] [extname] [assetExtname]
var ErrUnknownPlaceholder = errors.New("unknown file name placeholder")

var placeholderRe = regexp.MustCompile(`\[([A-Za-z]+)\]`)

var scriptExts = []string{".js", ".jsx", ".ts", ".tsx", ".mjs", ".cjs", ".mts", ".cts"}

// FileNameVars are the values substituted into a file name template
type FileNameVars struct {
	Name   string
	Format Format
	Entry  string
}

// SubstituteDir replaces [dir] with dir. An empty dir also drops the "/"
// that follows the placeholder, so "[dir]/[name]" becomes "[name]".
func SubstituteDir(template, dir string) string {
	dir = strings.Trim(filepath.ToSlash(dir), "/")
	if dir == "" || dir == "." {
		template = strings.ReplaceAll(template, "[dir]/", "")
		return strings.ReplaceAll(template, "[dir]", "")
	}
	return strings.ReplaceAll(template, "[dir]", dir)
}

// ErrOutsideSrcDir is returned for entries that do not live under the source root
var ErrOutsideSrcDir = errors.New("entry is outside the source directory")

// EntryDir is the directory of entry relative to srcDir, "" for the root itself
func EntryDir(srcDir, entry string) (string, error) {
	rel, err := filepath.Rel(filepath.Clean(srcDir), filepath.Dir(filepath.Clean(entry)))
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrOutsideSrcDir, entry)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideSrcDir, entry)
	}
	if rel == "." {
		return "", nil
	}
	return filepath.ToSlash(rel), nil
}

// ExpandFileName fills the remaining placeholders. [dir] must already have
// been substituted.
func ExpandFileName(template string, vars FileNameVars) (string, error) {
	if template == "" {
		template = "[name][extname]"
	}

	extname := vars.Format.Extname()
	values := map[string]string{
		"name":         vars.Name,
		"format":       string(vars.Format),
		"extname":      extname,
		"ext":          strings.TrimPrefix(extname, "."),
		"assetExtname": assetExtname(vars.Entry),
	}

	var unknown []string
	out := placeholderRe.ReplaceAllStringFunc(template, func(m string) string {
		key := m[1 : len(m)-1]
		v, ok := values[key]
		if !ok {
			unknown = append(unknown, m)
			return m
		}
		return v
	})
	if len(unknown) > 0 {
		return "", fmt.Errorf("%w: %s in %q", ErrUnknownPlaceholder, strings.Join(unknown, ", "), template)
	}

	return path.Clean(out), nil
}

// assetExtname is the entry's own extension, empty for script sources
func assetExtname(entry string) string {
	ext := filepath.Ext(entry)
	if slices.Contains(scriptExts, strings.ToLower(ext)) {
		return ""
	}
	return ext
}
