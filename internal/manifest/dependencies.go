package manifest

import (
	"slices"
	"sort"
	"strings"
)

// Category is one of the dependency maps of a manifest
type Category string

const (
	Dependencies         Category = "dependencies"
	DevDependencies      Category = "devDependencies"
	OptionalDependencies Category = "optionalDependencies"
	PeerDependencies     Category = "peerDependencies"
)

// ExcludeCategories are kept external by the dependency-external formats
// (es, cjs, umd): the consumer installs every runtime dependency.
var ExcludeCategories = []Category{Dependencies, OptionalDependencies, PeerDependencies}

// IncludeCategories are kept external by the dependency-inlined formats
// (the single-file bundle): only peers are left to the host page.
var IncludeCategories = []Category{PeerDependencies}

// BuiltinPrefix matches every prefixed Node built-in, e.g. "node:fs".
const BuiltinPrefix = "node:"

// builtinModules lists Node's core modules by bare name. Subpaths such as
// "fs/promises" are covered by DependencySet's subpath matching.
var builtinModules = []string{
	"assert",
	"async_hooks",
	"buffer",
	"child_process",
	"cluster",
	"console",
	"constants",
	"crypto",
	"dgram",
	"diagnostics_channel",
	"dns",
	"domain",
	"events",
	"fs",
	"http",
	"http2",
	"https",
	"inspector",
	"module",
	"net",
	"os",
	"path",
	"perf_hooks",
	"process",
	"punycode",
	"querystring",
	"readline",
	"repl",
	"stream",
	"string_decoder",
	"sys",
	"timers",
	"tls",
	"trace_events",
	"tty",
	"url",
	"util",
	"v8",
	"vm",
	"wasi",
	"worker_threads",
	"zlib",
}

// BuiltinModules returns a copy of the built-in module names.
func BuiltinModules() []string {
	return slices.Clone(builtinModules)
}

// DependencySet is an ordered set of module names treated as external by one
// group of output formats, plus prefix patterns. Values are never modified
// in place; every derivation returns a new set.
type DependencySet struct {
	Names    []string `json:"names" yaml:"names"`
	Prefixes []string `json:"prefixes" yaml:"prefixes"`
}

// NewDependencySet builds a set from names, dropping empty entries and
// duplicates while keeping first-seen order.
func NewDependencySet(names []string, prefixes ...string) DependencySet {
	s := DependencySet{
		Names:    make([]string, 0, len(names)),
		Prefixes: make([]string, 0, len(prefixes)),
	}
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		s.Names = append(s.Names, n)
	}
	for _, p := range prefixes {
		if p != "" && !slices.Contains(s.Prefixes, p) {
			s.Prefixes = append(s.Prefixes, p)
		}
	}
	return s
}

// DependencyNames collects the packages declared in the given categories and
// unions them with the Node built-ins. A category the manifest omits
// contributes nothing.
func (m *Manifest) DependencyNames(categories ...Category) DependencySet {
	var names []string
	for _, c := range categories {
		deps := m.category(c)
		keys := make([]string, 0, len(deps))
		for name := range deps {
			keys = append(keys, name)
		}
		sort.Strings(keys)
		names = append(names, keys...)
	}
	names = append(names, builtinModules...)
	return NewDependencySet(names, BuiltinPrefix)
}

// ExternalSets returns the exclude-group and include-group sets. extra is
// appended to both; include names packages a mode forces into the bundle and
// is removed from both, so the include set stays a subset of the exclude set.
func (m *Manifest) ExternalSets(extra, include []string) (exclude, inlined DependencySet) {
	exclude = m.DependencyNames(ExcludeCategories...).With(extra...).Without(include...)
	inlined = m.DependencyNames(IncludeCategories...).With(extra...).Without(include...)
	return exclude, inlined
}

// Contains reports whether module is external under s: an exact name, a
// subpath of a name ("lodash/get"), or a prefix match.
func (s DependencySet) Contains(module string) bool {
	for _, p := range s.Prefixes {
		if strings.HasPrefix(module, p) {
			return true
		}
	}
	for _, n := range s.Names {
		if module == n || strings.HasPrefix(module, n+"/") {
			return true
		}
	}
	return false
}

// With returns a copy of s with names appended.
func (s DependencySet) With(names ...string) DependencySet {
	all := make([]string, 0, len(s.Names)+len(names))
	all = append(all, s.Names...)
	all = append(all, names...)
	return NewDependencySet(all, s.Prefixes...)
}

// Without returns a copy of s minus the exact names given.
func (s DependencySet) Without(names ...string) DependencySet {
	kept := make([]string, 0, len(s.Names))
	for _, n := range s.Names {
		if !slices.Contains(names, n) {
			kept = append(kept, n)
		}
	}
	return NewDependencySet(kept, s.Prefixes...)
}

// SubsetOf reports whether every name and prefix of s also belongs to other.
func (s DependencySet) SubsetOf(other DependencySet) bool {
	for _, n := range s.Names {
		if !slices.Contains(other.Names, n) {
			return false
		}
	}
	for _, p := range s.Prefixes {
		if !slices.Contains(other.Prefixes, p) {
			return false
		}
	}
	return true
}

// Len is the number of names, prefixes excluded.
func (s DependencySet) Len() int {
	return len(s.Names)
}

// Packages returns the names that are not Node built-ins.
func (s DependencySet) Packages() []string {
	out := make([]string, 0, len(s.Names))
	for _, n := range s.Names {
		if !slices.Contains(builtinModules, n) {
			out = append(out, n)
		}
	}
	return out
}
