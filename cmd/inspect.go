package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/viniciusmctf/prksweep/internal/scheduler"
	"github.com/viniciusmctf/prksweep/internal/utils"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <script|dir>...",
	Short: "Show the scheduler directives of generated scripts",
	Long: `Read the #SBATCH (or #PBS) directives of batch scripts back and print
the resources each one requests. Directories are searched for *.sh, *.sbatch
and *.pbs files.`,
	Example: `  prksweep inspect transpose_0016.sh
  prksweep inspect scripts/`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		paths, err := collectScripts(args)
		if err != nil {
			return err
		}
		if len(paths) == 0 {
			return fmt.Errorf("no batch scripts found in %v", args)
		}

		failed := 0
		for _, path := range paths {
			specs, err := scheduler.ReadAnyScriptSpecs(path)
			if err != nil {
				utils.PrintError("%v", err)
				failed++
				continue
			}
			printSpecs(cmd.OutOrStdout(), specs)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d scripts could not be read", failed, len(paths))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}

// collectScripts expands directories into the batch scripts they hold, sorted
func collectScripts(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, err
		}
		var found []string
		for _, e := range entries {
			if !e.IsDir() && utils.IsBatchScript(e.Name()) {
				found = append(found, filepath.Join(arg, e.Name()))
			}
		}
		sort.Strings(found)
		paths = append(paths, found...)
	}
	return paths, nil
}

func printSpecs(w io.Writer, specs *scheduler.ScriptSpecs) {
	fmt.Fprintln(w, utils.StylePath(specs.ScriptPath))
	if !specs.HasDirectives {
		fmt.Fprintf(w, "  %s\n", utils.StyleWarning("no scheduler directives"))
		return
	}
	fmt.Fprintf(w, "  Job name:   %s\n", specs.JobName)
	fmt.Fprintf(w, "  Output:     %s\n", specs.Stdout)
	if specs.Partition != "" {
		fmt.Fprintf(w, "  Partition:  %s\n", specs.Partition)
	}
	fmt.Fprintf(w, "  Nodes:      %d\n", specs.Nodes)
	if specs.Ntasks > 0 {
		fmt.Fprintf(w, "  Tasks:      %d\n", specs.Ntasks)
	}
	if specs.CpusPerTask > 0 {
		fmt.Fprintf(w, "  CPUs/task:  %d\n", specs.CpusPerTask)
	}
	fmt.Fprintf(w, "  Time:       %s\n", scheduler.FormatSlurmTime(specs.Time))
	if len(specs.RemainingFlags) > 0 {
		fmt.Fprintf(w, "  Other:      %s\n", strings.Join(specs.RemainingFlags, " "))
	}
}
