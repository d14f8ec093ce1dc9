package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/viniciusmctf/prksweep/internal/config"
	"github.com/viniciusmctf/prksweep/internal/render"
	"github.com/viniciusmctf/prksweep/internal/sweep"
	"github.com/viniciusmctf/prksweep/internal/utils"
)

// Exit codes used by various commands
const (
	// Generic error code
	ExitCodeError = 1
)

// errSweepFailed marks a sweep with failed elements; details were already printed
var errSweepFailed = errors.New("sweep had failures")

// sweepFlag maps a command-line flag onto the viper key it overrides
type sweepFlag struct {
	name string
	key  string
}

// sweepFlags lists the flags shared by every command that builds a sweep
var sweepFlags = []sweepFlag{
	{"preset", "sweep.preset"},
	{"nodes", "sweep.node_counts"},
	{"template", "sweep.template"},
	{"kernel", "sweep.kernel"},
	{"ppn", "sweep.processes_per_node"},
	{"ht-factor", "sweep.hyper_thread_factor"},
	{"layout", "sweep.layout"},
	{"order", "sweep.problem_order"},
	{"tile", "sweep.tile_size"},
	{"time", "sweep.time_limit"},
	{"partition", "sweep.partition"},
	{"binary", "sweep.binary"},
	{"prefix", "sweep.output_prefix"},
	{"cutoff", "sweep.iterations.cutoff"},
	{"iters-low", "sweep.iterations.low"},
	{"iters-high", "sweep.iterations.high"},
	{"output-dir", "output_dir"},
}

// newSweepFlagSet builds the sweep flags. Defaults are zero values: an unset
// flag leaves the config file or preset value alone.
func newSweepFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("sweep", pflag.ContinueOnError)
	fs.StringP("preset", "p", "", "Sweep preset to start from (mpi1, chapel)")
	fs.StringP("nodes", "n", "", "Node counts, e.g. 1,2,4,8")
	fs.StringP("template", "t", "", "Built-in template name or template file")
	fs.String("kernel", "", "Kernel tag used in job names")
	fs.Int("ppn", 0, "Processes per node")
	fs.Int("ht-factor", 0, "Hardware threads per core")
	fs.String("layout", "", "Rank layout (rank-per-core, rank-per-node)")
	fs.Int("order", 0, "Matrix order")
	fs.Int("tile", 0, "Tile size (0 disables tiling)")
	fs.String("time", "", "Wall time per job, e.g. 3m or 00:03:00")
	fs.String("partition", "", "Scheduler partition")
	fs.String("binary", "", "Path of the transpose binary")
	fs.String("prefix", "", "Script and job name prefix")
	fs.Int("cutoff", 0, "Node count at or below which the low iteration count is used")
	fs.Int("iters-low", 0, "Iterations at or below the cutoff")
	fs.Int("iters-high", 0, "Iterations above the cutoff")
	fs.StringP("output-dir", "o", "", "Directory the scripts are written to")
	return fs
}

// RegisterSweepFlags adds the sweep flags and their completions to cmd
func RegisterSweepFlags(cmd *cobra.Command) {
	cmd.Flags().AddFlagSet(newSweepFlagSet())
	cmd.RegisterFlagCompletionFunc("preset", fixedCompletion(sweep.PresetNames()))
	cmd.RegisterFlagCompletionFunc("layout", fixedCompletion([]string{string(sweep.LayoutRankPerCore), string(sweep.LayoutRankPerNode)}))
	cmd.RegisterFlagCompletionFunc("template", templateCompletion)
}

// bindSweepFlags points the sweep viper keys at the flags of cmd. Binding
// happens when the command runs since several commands share the keys.
func bindSweepFlags(cmd *cobra.Command) error {
	for _, f := range sweepFlags {
		flag := cmd.Flags().Lookup(f.name)
		if flag == nil {
			continue
		}
		if err := viper.BindPFlag(f.key, flag); err != nil {
			return fmt.Errorf("failed to bind --%s: %w", f.name, err)
		}
	}
	// output_dir is a global key, reload it now that the flag is bound
	return config.LoadFromViper()
}

// changedSweepFlags returns the sweep flags set on the command line
func changedSweepFlags(cmd *cobra.Command) []string {
	var changed []string
	for _, f := range sweepFlags {
		if f.key == "output_dir" {
			continue
		}
		if flag := cmd.Flags().Lookup(f.name); flag != nil && flag.Changed {
			changed = append(changed, "--"+f.name)
		}
	}
	return changed
}

// loadSweeps returns the sweeps of an HCL file, or the single sweep built
// from config and flags when file is empty.
func loadSweeps(cmd *cobra.Command, file string) ([]sweep.Config, error) {
	if err := bindSweepFlags(cmd); err != nil {
		return nil, err
	}

	if file != "" {
		if changed := changedSweepFlags(cmd); len(changed) > 0 {
			return nil, fmt.Errorf("%v cannot be combined with --file", changed)
		}
		sweeps, err := config.LoadSweepFile(file, config.Global.OutputDir)
		if err != nil {
			return nil, err
		}
		utils.PrintDebug("Loaded %d sweep(s) from %s", len(sweeps), utils.StylePath(file))
		return sweeps, nil
	}

	cfg, err := config.SweepFromViper()
	if err != nil {
		return nil, err
	}
	return []sweep.Config{cfg}, nil
}

// resolveTemplate loads the template a sweep refers to
func resolveTemplate(cfg sweep.Config) (*render.ScriptTemplate, error) {
	tmpl, err := render.Resolve(cfg.Template)
	if err != nil {
		return nil, fmt.Errorf("sweep %s: %w", cfg.Name, err)
	}
	return tmpl, nil
}

func fixedCompletion(values []string) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return values, cobra.ShellCompDirectiveNoFileComp
	}
}

// templateCompletion offers built-in names and falls back to file completion
func templateCompletion(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return render.BuiltinNames(), cobra.ShellCompDirectiveDefault
}
