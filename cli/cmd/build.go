package cmd

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fluxbase-eu/libbuild/cli/util"
	"github.com/fluxbase-eu/libbuild/internal/orchestrator"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the library",
	Long: `Build the library in every configured format.

The primary pass builds "formats" with all dependencies external. Remaining
"bundle_formats" are built afterwards with only peer dependencies external,
followed by any auxiliary entries. Declaration files are generated after the
primary pass when dts.enabled is set.

Examples:
  libbuild build
  libbuild build --mode bundle-all-in-one
  libbuild build -m stage -o json
  libbuild build --metrics-file build.prom`,
	Args: cobra.NoArgs,
	RunE: runBuild,
}

func runBuild(cmd *cobra.Command, args []string) error {
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

	start := time.Now()
	orch := tel.orchestrator(p)

	report, err := orch.Run(ctx, orchestrator.NewRequest(currentMode(), orchestrator.CommandBuild))
	if err != nil {
		return err
	}

	formatter := GetFormatter()
	finished := append([]*orchestrator.Result{report.Primary}, report.Auxiliary...)
	if err := formatter.PrintView(resultsView{root: p.root, results: finished}); err != nil {
		return err
	}

	// The primary outputs are usable now; the remaining passes finish in the
	// background of this process
	waitErr := report.Wait(ctx)

	var late []*orchestrator.Result
	for _, t := range report.Tasks {
		late = append(late, t.Results()...)
	}
	if len(late) > 0 {
		if err := formatter.PrintView(resultsView{root: p.root, results: late}); err != nil {
			return err
		}
	}

	if waitErr != nil {
		return fmt.Errorf("build incomplete: %w", waitErr)
	}

	total := 0
	for _, res := range report.Results() {
		total += res.TotalBytes()
	}
	log.Info().
		Str("mode", report.Plan.Mode).
		Int("bytes", total).
		Str("duration", util.FormatDuration(time.Since(start))).
		Msg("Build complete")

	return nil
}
