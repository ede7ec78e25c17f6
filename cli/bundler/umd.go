package bundler

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/rs/zerolog/log"

	"github.com/fluxbase-eu/libbuild/internal/manifest"
	"github.com/fluxbase-eu/libbuild/internal/orchestrator"
)

const (
	// umdGlobal is the temporary global the IIFE assigns before the UMD
	// wrapper hands it to the module system
	umdGlobal = "__libbuild_umd"

	// umdDepParam prefixes the factory parameters carrying external modules
	umdDepParam = "__libbuild_dep_"

	umdNamespace = "libbuild-umd-external"
)

const umdFooter = "return " + umdGlobal + ";\n}));"

// wireUMDExternals routes every external import of a umd build through the
// factory parameters of the wrapper. A first in-memory pass finds which
// externals the bundle imports; the wrapper then loads exactly those from
// define, require or the global object.
func wireUMDExternals(opts *api.BuildOptions, cfg orchestrator.BuildConfig) error {
	filter := externalFilter(cfg.External)
	if filter == "" {
		return nil
	}

	deps, err := scanExternals(*opts, filter)
	if err != nil {
		return err
	}

	opts.External = nil
	opts.Plugins = []api.Plugin{umdExternalPlugin(filter, deps)}
	opts.Banner = map[string]string{"js": umdBanner(cfg.Name, deps, cfg.Globals)}
	return nil
}

// externalFilter matches external packages, their subpaths and the
// external prefixes
func externalFilter(set manifest.DependencySet) string {
	alts := make([]string, 0, len(set.Names)+len(set.Prefixes))
	for _, name := range set.Names {
		alts = append(alts, regexp.QuoteMeta(name)+`(?:/.*)?`)
	}
	for _, prefix := range set.Prefixes {
		alts = append(alts, regexp.QuoteMeta(prefix)+`.*`)
	}
	if len(alts) == 0 {
		return ""
	}
	return "^(?:" + strings.Join(alts, "|") + ")$"
}

// scanExternals bundles without writing and returns the external import
// paths in sorted order
func scanExternals(opts api.BuildOptions, filter string) ([]string, error) {
	var mu sync.Mutex
	seen := make(map[string]bool)

	scan := opts
	scan.Write = false
	scan.Metafile = false
	scan.Sourcemap = api.SourceMapNone
	scan.Banner = nil
	scan.Footer = nil
	scan.External = nil
	scan.Plugins = []api.Plugin{{
		Name: "libbuild-umd-scan",
		Setup: func(build api.PluginBuild) {
			build.OnResolve(api.OnResolveOptions{Filter: filter},
				func(args api.OnResolveArgs) (api.OnResolveResult, error) {
					mu.Lock()
					seen[args.Path] = true
					mu.Unlock()
					return api.OnResolveResult{Path: args.Path, External: true}, nil
				})
		},
	}}

	result := api.Build(scan)
	if len(result.Errors) > 0 {
		return nil, joinMessages(result.Errors, api.ErrorMessage)
	}

	deps := make([]string, 0, len(seen))
	for dep := range seen {
		deps = append(deps, dep)
	}
	slices.Sort(deps)
	return deps, nil
}

// umdExternalPlugin resolves each external import to a module exporting the
// matching factory parameter
func umdExternalPlugin(filter string, deps []string) api.Plugin {
	index := make(map[string]int, len(deps))
	for i, dep := range deps {
		index[dep] = i
	}

	return api.Plugin{
		Name: "libbuild-umd-external",
		Setup: func(build api.PluginBuild) {
			build.OnResolve(api.OnResolveOptions{Filter: filter},
				func(args api.OnResolveArgs) (api.OnResolveResult, error) {
					if _, ok := index[args.Path]; !ok {
						return api.OnResolveResult{Path: args.Path, External: true}, nil
					}
					return api.OnResolveResult{Path: args.Path, Namespace: umdNamespace}, nil
				})

			build.OnLoad(api.OnLoadOptions{Filter: ".*", Namespace: umdNamespace},
				func(args api.OnLoadArgs) (api.OnLoadResult, error) {
					contents := fmt.Sprintf("module.exports = %s%d;", umdDepParam, index[args.Path])
					return api.OnLoadResult{Contents: &contents, Loader: api.LoaderJS}, nil
				})
		},
	}
}

// umdBanner opens the wrapper. deps are handed to the factory through AMD
// define, CommonJS require, or the global object under their globals name.
func umdBanner(name string, deps []string, globals map[string]string) string {
	amd := make([]string, len(deps))
	cjs := make([]string, len(deps))
	roots := make([]string, len(deps))
	params := make([]string, len(deps))
	for i, dep := range deps {
		quoted := strconv.Quote(dep)
		amd[i] = quoted
		cjs[i] = "require(" + quoted + ")"
		roots[i] = "root[" + strconv.Quote(umdGlobalName(dep, globals)) + "]"
		params[i] = umdDepParam + strconv.Itoa(i)
	}

	return fmt.Sprintf(`(function (root, factory) {
  if (typeof define === "function" && define.amd) define([%s], factory);
  else if (typeof module === "object" && module.exports) module.exports = factory(%s);
  else root[%q] = factory(%s);
}(typeof globalThis !== "undefined" ? globalThis : typeof self !== "undefined" ? self : this, function (%s) {`,
		strings.Join(amd, ", "),
		strings.Join(cjs, ", "),
		name,
		strings.Join(roots, ", "),
		strings.Join(params, ", "),
	)
}

// umdGlobalName is the configured global of dep, else one derived from the
// package name the way the library's own global is
func umdGlobalName(dep string, globals map[string]string) string {
	if g, ok := globals[dep]; ok && g != "" {
		return g
	}
	name := manifest.LibraryName(dep)
	log.Warn().
		Str("module", dep).
		Str("global", name).
		Msg("No global configured for external module, guessing")
	return name
}
