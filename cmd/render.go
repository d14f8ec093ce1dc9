package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/viniciusmctf/prksweep/internal/sweep"
)

var renderCmd = &cobra.Command{
	Use:   "render <nodes>",
	Short: "Print the script of one node count",
	Long: `Render the batch script a sweep would write for the given node count and
print it to stdout. Nothing is written or submitted. The node count does not
have to be part of the sweep's node_counts.`,
	Example: `  prksweep render 16
  prksweep render 64 -p chapel > transpose_0064.sh`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		nodes, err := strconv.Atoi(args[0])
		if err != nil || nodes <= 0 {
			return fmt.Errorf("invalid node count %q", args[0])
		}

		sweeps, err := loadSweeps(cmd, "")
		if err != nil {
			return err
		}
		cfg := sweeps[0]
		cfg.NodeCounts = []int{nodes}

		runs, err := sweep.Plan(cfg)
		if err != nil {
			return err
		}
		tmpl, err := resolveTemplate(cfg)
		if err != nil {
			return err
		}
		script, err := sweep.Render(runs[0], tmpl, cfg.OutputDir)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), script.Text)
		return nil
	},
}

func init() {
	RegisterSweepFlags(renderCmd)
	rootCmd.AddCommand(renderCmd)
}
