package cmd

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fluxbase-eu/libbuild/cli/bundler"
	"github.com/fluxbase-eu/libbuild/cli/output"
	"github.com/fluxbase-eu/libbuild/internal/orchestrator"
)

var analyzeDetails bool

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Show what makes up each bundle",
	Long: `Bundle the library in memory and report, per output, which inputs
contribute how many bytes and which imports stay external. Nothing is
written to disk.

Examples:
  libbuild analyze
  libbuild analyze --details
  libbuild analyze --mode bundle-all-in-one -o json`,
	Args: cobra.NoArgs,
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeDetails, "details", false, "list every input file instead of the largest ten")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx, stop := commandContext()
	defer stop()

	p, err := loadProject(rootDir)
	if err != nil {
		return err
	}

	plan, err := p.dispatcher.Resolve(orchestrator.NewRequest(currentMode(), orchestrator.CommandBuild))
	if err != nil {
		return err
	}

	analyzer := bundler.NewAnalyzer()
	results, err := analyzer.Analyze(ctx, plan.Primary)
	if err != nil {
		return err
	}
	if plan.Secondary != nil {
		more, err := analyzer.Analyze(ctx, *plan.Secondary)
		if err != nil {
			return err
		}
		results = append(results, more...)
	}

	for _, res := range results {
		for _, w := range res.Warnings {
			log.Warn().Str("output", res.Name).Msg(w)
		}
	}

	formatter := GetFormatter()
	if formatter.Format != output.FormatTable {
		return formatter.Print(results)
	}
	if formatter.Quiet {
		return nil
	}

	formatter.PrintTable(bundler.BreakdownTable(results, analyzeDetails))
	_, _ = fmt.Fprintln(formatter.Writer)
	formatter.PrintTable(bundler.SummaryTable(results))
	return nil
}
