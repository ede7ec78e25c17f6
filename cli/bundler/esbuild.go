package bundler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/rs/zerolog/log"

	"github.com/fluxbase-eu/libbuild/internal/manifest"
	"github.com/fluxbase-eu/libbuild/internal/orchestrator"
)

var targets = map[string]api.Target{
	"es2015": api.ES2015,
	"es2016": api.ES2016,
	"es2017": api.ES2017,
	"es2018": api.ES2018,
	"es2019": api.ES2019,
	"es2020": api.ES2020,
	"es2021": api.ES2021,
	"es2022": api.ES2022,
	"esnext": api.ESNext,
}

var platforms = map[string]api.Platform{
	"browser": api.PlatformBrowser,
	"node":    api.PlatformNode,
	"neutral": api.PlatformNeutral,
}

// ESBuild builds configurations in process with esbuild
type ESBuild struct{}

// NewESBuild creates the esbuild driver
func NewESBuild() *ESBuild {
	return &ESBuild{}
}

// Build runs one esbuild build per format. esbuild builds cannot be
// interrupted, so ctx is only checked between formats.
func (b *ESBuild) Build(ctx context.Context, cfg orchestrator.BuildConfig) (*orchestrator.Result, error) {
	start := time.Now()
	res := &orchestrator.Result{Entry: cfg.Entry}

	for _, format := range cfg.Formats {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		opts, err := Options(cfg, format)
		if err != nil {
			return nil, err
		}
		if format == orchestrator.FormatUMD {
			if err := wireUMDExternals(&opts, cfg); err != nil {
				return nil, fmt.Errorf("%s build of %s failed: %w", format, cfg.Entry, err)
			}
		}

		result := api.Build(opts)
		if len(result.Errors) > 0 {
			return nil, fmt.Errorf("%s build of %s failed: %w", format, cfg.Entry, joinMessages(result.Errors, api.ErrorMessage))
		}
		for _, w := range formatMessages(result.Warnings, api.WarningMessage) {
			res.Warnings = append(res.Warnings, w)
			log.Warn().Str("format", string(format)).Str("entry", cfg.Entry).Msg(w)
		}

		outputs, err := metafileOutputs(result.Metafile, opts.AbsWorkingDir, format)
		if err != nil {
			return nil, err
		}
		res.Outputs = append(res.Outputs, outputs...)
	}

	res.Duration = time.Since(start)
	return res, nil
}

// Options maps a build configuration and one of its formats to esbuild options
func Options(cfg orchestrator.BuildConfig, format orchestrator.Format) (api.BuildOptions, error) {
	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return api.BuildOptions{}, fmt.Errorf("failed to resolve project root: %w", err)
	}

	outFile, err := cfg.OutputFile(format)
	if err != nil {
		return api.BuildOptions{}, err
	}
	if !filepath.IsAbs(outFile) {
		outFile = filepath.Join(root, outFile)
	}

	target, ok := targets[strings.ToLower(cfg.Target)]
	if cfg.Target == "" {
		target, ok = api.ES2020, true
	}
	if !ok {
		return api.BuildOptions{}, fmt.Errorf("unsupported target: %s", cfg.Target)
	}

	platform, ok := platforms[strings.ToLower(cfg.Platform)]
	if cfg.Platform == "" {
		platform, ok = api.PlatformNeutral, true
	}
	if !ok {
		return api.BuildOptions{}, fmt.Errorf("unsupported platform: %s", cfg.Platform)
	}

	opts := api.BuildOptions{
		EntryPoints:   []string{cfg.Entry},
		AbsWorkingDir: root,
		Outfile:       outFile,
		Bundle:        true,
		Write:         true,
		Metafile:      true,
		LogLevel:      api.LogLevelSilent,
		Target:        target,
		Platform:      platform,
		External:      append([]string(nil), cfg.External.Names...),
		Plugins:       []api.Plugin{prefixExternalPlugin(cfg.External)},
	}

	// The neutral platform has no default main fields, so packages that are
	// bundled would not resolve
	if platform == api.PlatformNeutral {
		opts.MainFields = []string{"module", "main"}
	}

	if cfg.Sourcemap {
		opts.Sourcemap = api.SourceMapLinked
	}
	if cfg.Minify {
		opts.MinifyWhitespace = true
		opts.MinifyIdentifiers = true
		opts.MinifySyntax = true
	}

	switch format {
	case orchestrator.FormatES:
		opts.Format = api.FormatESModule
	case orchestrator.FormatCJS:
		opts.Format = api.FormatCommonJS
	case orchestrator.FormatIIFE:
		opts.Format = api.FormatIIFE
		opts.GlobalName = cfg.Name
	case orchestrator.FormatUMD:
		opts.Format = api.FormatIIFE
		opts.GlobalName = umdGlobal
		opts.Banner = map[string]string{"js": umdBanner(cfg.Name, nil, nil)}
		opts.Footer = map[string]string{"js": umdFooter}
	default:
		return api.BuildOptions{}, fmt.Errorf("%w: %q", orchestrator.ErrUnknownFormat, format)
	}

	return opts, nil
}

// prefixExternalPlugin marks every import starting with one of the set's
// prefixes (node:) as external
func prefixExternalPlugin(set manifest.DependencySet) api.Plugin {
	return api.Plugin{
		Name: "libbuild-prefix-external",
		Setup: func(build api.PluginBuild) {
			for _, prefix := range set.Prefixes {
				build.OnResolve(api.OnResolveOptions{Filter: "^" + regexp.QuoteMeta(prefix)},
					func(args api.OnResolveArgs) (api.OnResolveResult, error) {
						return api.OnResolveResult{
							Path:     args.Path,
							External: true,
						}, nil
					})
			}
		},
	}
}

// metafileOutputs lists the files a build wrote, source maps excluded
func metafileOutputs(metafile, root string, format orchestrator.Format) ([]orchestrator.Output, error) {
	var meta Metafile
	if err := json.Unmarshal([]byte(metafile), &meta); err != nil {
		return nil, fmt.Errorf("failed to parse metafile: %w", err)
	}

	var outputs []orchestrator.Output
	for path, out := range meta.Outputs {
		if strings.HasSuffix(path, ".map") {
			continue
		}
		full := path
		if !filepath.IsAbs(full) {
			full = filepath.Join(root, path)
		}
		outputs = append(outputs, orchestrator.Output{
			Format: format,
			Path:   full,
			Bytes:  out.Bytes,
		})
	}
	return outputs, nil
}

func formatMessages(msgs []api.Message, kind api.MessageKind) []string {
	if len(msgs) == 0 {
		return nil
	}
	formatted := api.FormatMessages(msgs, api.FormatMessagesOptions{Kind: kind})
	out := make([]string, 0, len(formatted))
	for _, m := range formatted {
		out = append(out, strings.TrimSpace(m))
	}
	return out
}

func joinMessages(msgs []api.Message, kind api.MessageKind) error {
	var errs []error
	for _, m := range formatMessages(msgs, kind) {
		errs = append(errs, errors.New(m))
	}
	return errors.Join(errs...)
}
