package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/viniciusmctf/prksweep/internal/config"
	"github.com/viniciusmctf/prksweep/internal/scheduler"
	"github.com/viniciusmctf/prksweep/internal/utils"
)

var schedulerCmd = &cobra.Command{
	Use:     "scheduler",
	Aliases: []string{"sched"},
	Short:   "Display scheduler information",
	Long: `Display information about the detected job scheduler.

Shows scheduler type (SLURM or PBS), binary path, version, and availability status.`,
	Example: `  prksweep scheduler           # Show scheduler information
  prksweep sched               # Short alias`,
	Run: runScheduler,
}

func init() {
	rootCmd.AddCommand(schedulerCmd)
}

func runScheduler(cmd *cobra.Command, args []string) {
	out := cmd.OutOrStdout()

	sched, err := scheduler.DetectSchedulerWithBinary(config.Global.SchedulerBin)
	if err != nil {
		utils.PrintMessage("Scheduler Status: %s", utils.StyleError("Not Found"))
		utils.PrintMessage("")
		utils.PrintMessage("No job scheduler detected on this system.")
		utils.PrintMessage("Supported schedulers: SLURM (sbatch), PBS (qsub)")
		utils.PrintHint("Sweeps fail every element unless run with %s", utils.StyleCommand("--no-submit"))
		return
	}

	info := sched.GetInfo()

	// No [PRK] prefix for structured output
	fmt.Fprintln(out, "Scheduler Information:")
	fmt.Fprintf(out, "  Type:      %s\n", utils.StyleInfo(info.Type))
	fmt.Fprintf(out, "  Binary:    %s\n", utils.StylePath(info.Binary))
	if info.Version != "" {
		fmt.Fprintf(out, "  Version:   %s\n", utils.StyleNumber(info.Version))
	}
	fmt.Fprintf(out, "  Timeout:   %s\n", config.Global.SubmitTimeout)

	switch {
	case !info.Available:
		fmt.Fprintf(out, "  Status:    %s\n", utils.StyleError("Unavailable"))
	case !config.Global.SubmitJob:
		fmt.Fprintf(out, "  Status:    %s\n", utils.StyleWarning("Available (submission disabled)"))
	default:
		fmt.Fprintf(out, "  Status:    %s\n", utils.StyleSuccess("Available"))
	}
	if info.InJob {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "You are currently inside a scheduled job (detected via environment).")
		fmt.Fprintln(out, "Sweeps submitted from here are queued as separate jobs.")
	}
}
