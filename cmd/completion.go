package cmd

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var completionShells = []string{"bash", "zsh", "fish", "powershell"}

// detectShell guesses the shell from $SHELL, defaulting to bash
func detectShell() string {
	switch base := filepath.Base(os.Getenv("SHELL")); base {
	case "zsh", "fish":
		return base
	case "pwsh", "powershell":
		return "powershell"
	}
	return "bash"
}

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion script",
	Long: `Generate a shell completion script for prksweep. Without an argument the
shell is taken from $SHELL.

Bash:
  $ source <(prksweep completion bash)

Zsh:
  $ prksweep completion zsh > "${fpath[1]}/_prksweep"

Fish:
  $ prksweep completion fish > ~/.config/fish/completions/prksweep.fish

PowerShell:
  PS> prksweep completion powershell | Out-String | Invoke-Expression`,
	DisableFlagsInUseLine: true,
	ValidArgs:             completionShells,
	Args:                  cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		shell := detectShell()
		if len(args) > 0 {
			shell = args[0]
		}

		out := cmd.OutOrStdout()
		root := cmd.Root()
		switch shell {
		case "zsh":
			return root.GenZshCompletion(out)
		case "fish":
			return root.GenFishCompletion(out, true)
		case "powershell":
			return root.GenPowerShellCompletionWithDesc(out)
		default:
			return root.GenBashCompletionV2(out, true)
		}
	},
}

func init() {
	rootCmd.AddCommand(completionCmd)
}
