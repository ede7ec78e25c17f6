package cmd

import (
	"context"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fluxbase-eu/libbuild/internal/orchestrator"
	"github.com/fluxbase-eu/libbuild/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Rebuild the primary pass when sources change",
	Long: `Build the primary pass, then rebuild it whenever a file under the source
directory changes. Changes to package.json or the build file reload the
project first. Stop with Ctrl+C.

Examples:
  libbuild watch
  libbuild watch --mode stage`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := commandContext()
	defer stop()

	p, err := loadProject(rootDir)
	if err != nil {
		return err
	}

	tel, err := newTelemetry(ctx, p.config)
	if err != nil {
		return err
	}
	defer tel.close()

	orch := tel.orchestrator(p)
	primary, err := resolvePrimary(p)
	if err != nil {
		return err
	}
	if err := buildAndPrint(ctx, orch, p.root, primary); err != nil {
		log.Error().Err(err).Msg("Initial build failed")
	}

	w, err := watch.New(watch.Options{
		Root:     p.root,
		Patterns: watchPatterns(p),
		Ignore:   watchIgnores(p, primary),
		Debounce: p.config.Watch.Debounce,
		OnChange: func(ctx context.Context, changed []string) error {
			if slices.ContainsFunc(changed, func(c string) bool { return isProjectFile(p, c) }) {
				reloaded, err := loadProject(p.root)
				if err != nil {
					return err
				}
				cfg, err := resolvePrimary(reloaded)
				if err != nil {
					return err
				}
				p, primary = reloaded, cfg
				log.Info().Msg("Project configuration reloaded")
			}
			return buildAndPrint(ctx, orch, p.root, primary)
		},
	})
	if err != nil {
		return err
	}

	log.Info().Str("root", p.root).Msg("Watching for changes")
	return w.Run(ctx)
}

func resolvePrimary(p *project) (orchestrator.BuildConfig, error) {
	plan, err := p.dispatcher.Resolve(orchestrator.NewRequest(currentMode(), orchestrator.CommandServe))
	if err != nil {
		return orchestrator.BuildConfig{}, err
	}
	return plan.Primary, nil
}

func buildAndPrint(ctx context.Context, orch *orchestrator.Orchestrator, root string, cfg orchestrator.BuildConfig) error {
	res, err := orch.Build(ctx, cfg)
	if err != nil {
		return err
	}
	return GetFormatter().PrintView(resultsView{root: root, results: []*orchestrator.Result{res}})
}

// watchPatterns selects the sources plus the files describing the project
func watchPatterns(p *project) []string {
	patterns := []string{path.Join(filepath.ToSlash(p.config.SrcDir), "**")}
	return append(patterns, projectFiles(p)...)
}

func watchIgnores(p *project, primary orchestrator.BuildConfig) []string {
	ignores := slices.Clone(p.config.Watch.Ignore)
	// Output directories outside the root are never watched anyway
	out := relPath(p.root, primary.OutPath())
	if out != "." && out != ".." && !strings.HasPrefix(out, "../") {
		ignores = append(ignores, out+"/**")
	}
	return ignores
}

// projectFiles are the manifest and build file relative to the root
func projectFiles(p *project) []string {
	files := []string{relPath(p.root, absUnder(p.root, p.config.Manifest))}
	if src := p.config.Source(); src != "" {
		files = append(files, relPath(p.root, absUnder(p.root, src)))
	}
	return files
}

func isProjectFile(p *project, rel string) bool {
	return slices.Contains(projectFiles(p), rel)
}

func absUnder(root, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}
