package cmd

import (
	"github.com/spf13/cobra"
)

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion scripts",
	Long: `Generate shell completion scripts for libbuild.

To load completions:

Bash:
  $ source <(libbuild completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ libbuild completion bash > /etc/bash_completion.d/libbuild
  # macOS:
  $ libbuild completion bash > $(brew --prefix)/etc/bash_completion.d/libbuild

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. You can execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ libbuild completion zsh > "${fpath[1]}/_libbuild"

  # You will need to start a new shell for this setup to take effect.

Fish:
  $ libbuild completion fish | source

  # To load completions for each session, execute once:
  $ libbuild completion fish > ~/.config/fish/completions/libbuild.fish

PowerShell:
  PS> libbuild completion powershell | Out-String | Invoke-Expression

  # To load completions for every new session, run:
  PS> libbuild completion powershell > libbuild.ps1
  # and source this file from your PowerShell profile.
`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	Run: func(cmd *cobra.Command, args []string) {
		switch args[0] {
		case "bash":
			_ = cmd.Root().GenBashCompletion(cmd.OutOrStdout())
		case "zsh":
			_ = cmd.Root().GenZshCompletion(cmd.OutOrStdout())
		case "fish":
			_ = cmd.Root().GenFishCompletion(cmd.OutOrStdout(), true)
		case "powershell":
			_ = cmd.Root().GenPowerShellCompletionWithDesc(cmd.OutOrStdout())
		}
	},
}
