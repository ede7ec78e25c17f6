package orchestrator

import (
	"errors"
	"fmt"
	"slices"

	"github.com/fluxbase-eu/libbuild/internal/config"
)

// Format is the module convention of one build artifact
type Format string

// Output formats
const (
	FormatES   Format = "es"
	FormatCJS  Format = "cjs"
	FormatUMD  Format = "umd"
	FormatIIFE Format = "iife"
)

// ErrUnknownFormat is returned for format names the bundler cannot produce
var ErrUnknownFormat = errors.New("unknown output format")

var extnames = map[Format]string{
	FormatES:   ".mjs",
	FormatCJS:  ".cjs",
	FormatUMD:  ".umd.js",
	FormatIIFE: ".iife.js",
}

// ParseFormat converts a build file format name, normalized the same way
// the build file is validated
func ParseFormat(s string) (Format, error) {
	f := Format(config.NormalizeFormat(s))
	if _, ok := extnames[f]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
	return f, nil
}

// ParseFormats parses a list, dropping duplicates
func ParseFormats(names []string) ([]Format, error) {
	out := make([]Format, 0, len(names))
	for _, n := range names {
		f, err := ParseFormat(n)
		if err != nil {
			return nil, err
		}
		if !slices.Contains(out, f) {
			out = append(out, f)
		}
	}
	return out, nil
}

// Extname is the file extension written for f, including the dot
func (f Format) Extname() string {
	return extnames[f]
}

// NeedsGlobalName reports whether f exposes the library as a global
func (f Format) NeedsGlobalName() bool {
	return f == FormatIIFE || f == FormatUMD
}

func (f Format) String() string {
	return string(f)
}

// formatsMinus returns the formats of a that are not in b, keeping a's order
func formatsMinus(a, b []Format) []Format {
	var out []Format
	for _, f := range a {
		if !slices.Contains(b, f) {
			out = append(out, f)
		}
	}
	return out
}

// FormatNames converts formats back to their names
func FormatNames(formats []Format) []string {
	names := make([]string, len(formats))
	for i, f := range formats {
		names[i] = string(f)
	}
	return names
}
