package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/viniciusmctf/prksweep/internal/manifest"
	"github.com/viniciusmctf/prksweep/internal/sweep"
	"github.com/viniciusmctf/prksweep/internal/utils"
)

var verifyCmd = &cobra.Command{
	Use:   "verify [dir]...",
	Short: "Check generated scripts against their manifest",
	Long: `Re-hash every script listed in the sweep.MANIFEST of each directory and
report scripts that were edited or removed since the sweep wrote them.
Defaults to the current directory.`,
	Example: `  prksweep verify
  prksweep verify runs/mpi1 runs/chapel`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			args = []string{"."}
		}

		bad := 0
		for _, dir := range args {
			m, err := manifest.Load(dir)
			if err != nil {
				return err
			}
			lock, err := sweep.LockDir(dir, false)
			if err != nil {
				return err
			}
			mismatches, err := manifest.Verify(dir)
			lock.Close()
			if err != nil {
				return err
			}
			for _, mm := range mismatches {
				utils.PrintError("%s", mm)
			}
			bad += len(mismatches)
			if len(mismatches) == 0 {
				utils.PrintSuccess("%s: %s scripts of sweep %s match",
					utils.StylePath(dir), utils.StyleNumber(len(m.Entries)), utils.StyleName(m.Sweep))
			}
		}
		if bad > 0 {
			return fmt.Errorf("%d script(s) differ from their manifest", bad)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}
