package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fluxbase-eu/libbuild/internal/orchestrator"
)

var inspectCommand string

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Show the passes a build would run",
	Long: `Resolve the build plan without building anything.

In table format every pass is listed with the files it writes. JSON and YAML
print the complete resolved configurations.

Examples:
  libbuild inspect
  libbuild inspect --mode bundle-all-in-one
  libbuild inspect --command serve -o yaml`,
	Args: cobra.NoArgs,
	RunE: runInspect,
}

func init() {
	inspectCmd.Flags().StringVar(&inspectCommand, "command", "",
		"command to resolve for: build or serve (default build, or LIBBUILD_COMMAND)")
}

func runInspect(cmd *cobra.Command, args []string) error {
	p, err := loadProject(rootDir)
	if err != nil {
		return err
	}

	command := inspectCommand
	if command == "" {
		command = viper.GetString("command")
	}

	plan, err := p.dispatcher.Resolve(orchestrator.NewRequest(currentMode(), command))
	if err != nil {
		return err
	}

	return GetFormatter().PrintView(planView{plan: plan})
}
