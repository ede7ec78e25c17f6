package cmd

import (
	"github.com/spf13/cobra"

	"github.com/fluxbase-eu/libbuild/internal/orchestrator"
)

var depsCmd = &cobra.Command{
	Use:   "deps",
	Short: "Show which modules stay external",
	Long: `List the modules left external by each group of formats.

"formats" keep every dependency, optional dependency and peer dependency
external. "bundle_formats" inline everything except peer dependencies.
Node built-ins are external everywhere. A mode's include list forces
packages into every bundle.

Examples:
  libbuild deps
  libbuild deps --mode stage -o json`,
	Args: cobra.NoArgs,
	RunE: runDeps,
}

func runDeps(cmd *cobra.Command, args []string) error {
	p, err := loadProject(rootDir)
	if err != nil {
		return err
	}

	// Serve skips auxiliary entries, so unmatched globs cannot fail this
	plan, err := p.dispatcher.Resolve(orchestrator.NewRequest(currentMode(), orchestrator.CommandServe))
	if err != nil {
		return err
	}

	view := depsView{
		Package: p.manifest.Name,
		Mode:    plan.Mode,
		Exclude: plan.Exclude,
		Include: plan.Include,
	}
	return GetFormatter().PrintView(view)
}
