package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/viniciusmctf/prksweep/internal/scheduler"
	"github.com/viniciusmctf/prksweep/internal/sweep"
	"github.com/viniciusmctf/prksweep/internal/utils"
)

var planSweepFile string

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show the jobs a sweep would generate",
	Long: `Print the derived run configuration of every sweep element without
writing or submitting anything.`,
	Example: `  prksweep plan -p chapel
  prksweep plan -n 8,16,32 --cutoff 16`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sweeps, err := loadSweeps(cmd, planSweepFile)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for i, cfg := range sweeps {
			runs, err := sweep.Plan(cfg)
			if err != nil {
				return fmt.Errorf("sweep %s: %w", cfg.Name, err)
			}
			if i > 0 {
				fmt.Fprintln(out)
			}
			fmt.Fprintf(out, "%s %s (template %s, %s)\n",
				utils.StyleTitle("Sweep"), utils.StyleName(cfg.Name), cfg.Template, utils.StylePath(cfg.OutputDir))
			fmt.Fprintf(out, "  %6s %7s %6s %5s %6s %10s  %s\n", "NODES", "TASKS", "RANKS", "CPUS", "ITERS", "TIME", "SCRIPT")
			for _, run := range runs {
				fmt.Fprintf(out, "  %6d %7d %6d %5d %6d %10s  %s\n",
					run.NodeCount, run.TotalTasks(), run.Ranks(), run.CpusPerTask(), run.Iterations,
					scheduler.FormatSlurmTime(run.TimeLimit), run.ScriptName())
			}
		}
		return nil
	},
}

func init() {
	RegisterSweepFlags(planCmd)
	planCmd.Flags().StringVarP(&planSweepFile, "file", "f", "", "HCL file defining one or more sweep blocks")
	rootCmd.AddCommand(planCmd)
}
