package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/viniciusmctf/prksweep/internal/config"
	"github.com/viniciusmctf/prksweep/internal/scheduler"
	"github.com/viniciusmctf/prksweep/internal/sweep"
	"github.com/viniciusmctf/prksweep/internal/utils"
)

var showPath bool

// configKeys is the list of known configuration keys for shell completion
var configKeys = []string{
	"scheduler_bin",
	"submit_job",
	"submit_timeout",
	"output_dir",
	"fail_fast",
	"sweep.preset",
	"sweep.kernel",
	"sweep.template",
	"sweep.node_counts",
	"sweep.processes_per_node",
	"sweep.hyper_thread_factor",
	"sweep.layout",
	"sweep.problem_order",
	"sweep.tile_size",
	"sweep.time_limit",
	"sweep.partition",
	"sweep.binary",
	"sweep.output_prefix",
	"sweep.iterations.cutoff",
	"sweep.iterations.low",
	"sweep.iterations.high",
}

// durationKeys accept Go or HPC style durations
var durationKeys = map[string]bool{
	"submit_timeout":   true,
	"sweep.time_limit": true,
}

// configKeysCompletion returns config keys for shell completion
func configKeysCompletion(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		// First arg: complete config keys
		return configKeys, cobra.ShellCompDirectiveNoFileComp
	}
	if len(args) == 1 {
		// Second arg: complete values based on the key
		return configValueCompletion(args[0]), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

// configValueCompletion returns suggested values for a config key
func configValueCompletion(key string) []string {
	switch key {
	case "submit_job", "fail_fast":
		return []string{"true", "false"}
	case "submit_timeout":
		return []string{"30s", "1m", "2m", "5m"}
	case "sweep.preset":
		return sweep.PresetNames()
	case "sweep.layout":
		return []string{string(sweep.LayoutRankPerCore), string(sweep.LayoutRankPerNode)}
	case "sweep.time_limit":
		return []string{"3m", "10m", "00:30:00"}
	case "sweep.processes_per_node":
		return []string{"24", "32", "48", "64"}
	default:
		return nil
	}
}

// getConfigEnvVars returns the environment variable of every known key, sorted
func getConfigEnvVars() []string {
	vars := make([]string, 0, len(configKeys))
	for _, key := range configKeys {
		vars = append(vars, config.EnvPrefix+"_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")))
	}
	sort.Strings(vars)
	return vars
}

// validateConfigValue rejects values that would break the next load
func validateConfigValue(key, value string) error {
	switch {
	case durationKeys[key]:
		if _, err := utils.ParseDuration(value); err != nil {
			return err
		}
	case key == "sweep.node_counts":
		if _, err := utils.ParseIntList(value); err != nil {
			return err
		}
	case key == "sweep.preset":
		if _, err := sweep.Preset(value); err != nil {
			return err
		}
	case key == "sweep.layout":
		if _, err := sweep.ParseLayout(value); err != nil {
			return err
		}
	}
	return nil
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage prksweep configuration",
	Long: `Manage prksweep configuration settings.

Configuration priority (highest to lowest):
  1. Command-line flags
  2. Environment variables (PRKSWEEP_*, e.g. PRKSWEEP_SWEEP_NODE_COUNTS)
  3. User config file (~/.config/prksweep/config.yaml)
  4. System config file (/etc/prksweep/config.yaml)
  5. config.yaml in the current directory
  6. Sweep preset and defaults`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		if showPath {
			configPath, err := config.GetUserConfigPath()
			if err != nil {
				utils.PrintError("Failed to get config path: %v", err)
				os.Exit(ExitCodeError)
			}
			fmt.Fprintln(out, configPath)
			return
		}

		fmt.Fprintln(out, utils.StyleTitle("Config File:"))
		if used := viper.ConfigFileUsed(); used != "" {
			fmt.Fprintf(out, "  %s\n", utils.StylePath(used))
		} else {
			fmt.Fprintf(out, "  %s (use 'prksweep config init' to create)\n", utils.StyleWarning("No config file found"))
		}
		fmt.Fprintln(out)

		fmt.Fprintln(out, utils.StyleTitle("Runtime:"))
		schedulerBin := config.Global.SchedulerBin
		if schedulerBin == "" {
			schedulerBin = "(PATH lookup)"
		}
		fmt.Fprintf(out, "  scheduler_bin:   %s\n", schedulerBin)
		fmt.Fprintf(out, "  submit_job:      %v\n", config.Global.SubmitJob)
		fmt.Fprintf(out, "  submit_timeout:  %s\n", config.Global.SubmitTimeout)
		fmt.Fprintf(out, "  output_dir:      %s\n", config.Global.OutputDir)
		fmt.Fprintf(out, "  fail_fast:       %v\n", config.Global.FailFast)
		fmt.Fprintln(out)

		fmt.Fprintln(out, utils.StyleTitle("Sweep:"))
		cfg, err := config.SweepFromViper()
		if err != nil {
			fmt.Fprintf(out, "  %s %v\n", utils.StyleError("invalid:"), err)
		} else {
			fmt.Fprintf(out, "  preset:              %s\n", viper.GetString("sweep.preset"))
			fmt.Fprintf(out, "  kernel:              %s\n", cfg.Kernel)
			fmt.Fprintf(out, "  template:            %s\n", cfg.Template)
			fmt.Fprintf(out, "  node_counts:         %s\n", utils.JoinInts(cfg.NodeCounts))
			fmt.Fprintf(out, "  processes_per_node:  %d\n", cfg.ProcessesPerNode)
			fmt.Fprintf(out, "  hyper_thread_factor: %d\n", cfg.HyperThreadFactor)
			fmt.Fprintf(out, "  layout:              %s\n", cfg.Layout)
			fmt.Fprintf(out, "  problem_order:       %d\n", cfg.ProblemOrder)
			fmt.Fprintf(out, "  tile_size:           %d\n", cfg.TileSize)
			fmt.Fprintf(out, "  time_limit:          %s\n", scheduler.FormatSlurmTime(cfg.TimeLimit))
			fmt.Fprintf(out, "  partition:           %s\n", cfg.Partition)
			fmt.Fprintf(out, "  binary:              %s\n", cfg.Binary)
			fmt.Fprintf(out, "  output_prefix:       %s\n", cfg.OutputPrefix)
			fmt.Fprintf(out, "  iterations:          %d up to %d nodes, %d above\n",
				cfg.Iterations.Low, cfg.Iterations.Cutoff, cfg.Iterations.High)
		}
		fmt.Fprintln(out)

		// Show environment variable overrides
		fmt.Fprintln(out, utils.StyleTitle("Environment Variable Overrides:"))
		hasEnvOverrides := false
		for _, envVar := range getConfigEnvVars() {
			if val := os.Getenv(envVar); val != "" {
				fmt.Fprintf(out, "  %s=%s\n", envVar, val)
				hasEnvOverrides = true
			}
		}
		if !hasEnvOverrides {
			fmt.Fprintf(out, "  %s\n", utils.StyleInfo("none"))
		}
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a configuration value",
	Long: `Get a specific configuration value.

Examples:
  prksweep config get scheduler_bin
  prksweep config get sweep.node_counts`,
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: configKeysCompletion,
	Run: func(cmd *cobra.Command, args []string) {
		key := args[0]
		value := viper.Get(key)
		if value == nil {
			utils.PrintError("Config key %s is not set", key)
			os.Exit(ExitCodeError)
		}
		fmt.Fprintln(cmd.OutOrStdout(), value)
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value and save to the user config file.

Examples:
  prksweep config set scheduler_bin /usr/bin/sbatch
  prksweep config set sweep.preset chapel
  prksweep config set sweep.node_counts 1,2,4,8
  prksweep config set sweep.time_limit 00:10:00

Duration format (submit_timeout, sweep.time_limit):
  Go style:  2h, 30m, 1h30m, 90s
  HPC style: 02:00:00, 2:30:00, 1:30 (HH:MM:SS or HH:MM)`,
	Args:              cobra.ExactArgs(2),
	ValidArgsFunction: configKeysCompletion,
	Run: func(cmd *cobra.Command, args []string) {
		key := args[0]
		value := args[1]

		known := false
		for _, k := range configKeys {
			if k == key {
				known = true
				break
			}
		}
		if !known {
			utils.PrintWarning("'%s' is not a standard config key", key)
		}

		if err := validateConfigValue(key, value); err != nil {
			utils.PrintError("Invalid value for %s: %v", key, err)
			os.Exit(ExitCodeError)
		}

		viper.Set(key, value)

		if err := config.SaveConfig(); err != nil {
			utils.PrintError("Failed to save config: %v", err)
			os.Exit(ExitCodeError)
		}

		configPath, _ := config.GetUserConfigPath()
		utils.PrintSuccess("Set %s = %s", utils.StyleInfo(key), utils.StyleInfo(value))
		utils.PrintHint("Config saved to: %s", configPath)
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a config file with defaults",
	Long: `Create the user configuration file with default values and the scheduler
binary found in PATH.`,
	Run: func(cmd *cobra.Command, args []string) {
		configPath, err := config.GetUserConfigPath()
		if err != nil {
			utils.PrintError("Failed to get config path: %v", err)
			os.Exit(ExitCodeError)
		}

		// Check if config already exists
		if utils.FileExists(configPath) {
			utils.PrintWarning("Config file already exists: %s", configPath)
			fmt.Print("Overwrite? [y/N]: ")
			var response string
			fmt.Scanln(&response)
			response = strings.ToLower(strings.TrimSpace(response))
			if response != "y" && response != "yes" {
				utils.PrintHint("Cancelled")
				return
			}
		}

		updated, err := config.ForceDetectAndSave()
		if err != nil {
			utils.PrintError("Failed to save config: %v", err)
			os.Exit(ExitCodeError)
		}

		if updated {
			utils.PrintSuccess("Config file created with auto-detected settings")
		} else {
			utils.PrintSuccess("Config file created")
		}
		fmt.Printf("  Location: %s\n", utils.StylePath(configPath))

		fmt.Println()
		fmt.Println(utils.StyleTitle("Detected settings:"))
		if bin, typ := config.DetectSchedulerBin(); bin != "" {
			fmt.Printf("  Scheduler: %s (%s)\n", bin, typ)
		} else {
			fmt.Printf("  Scheduler: %s\n", utils.StyleWarning("not found"))
		}
	},
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit config file in default editor",
	Long:  "Open the configuration file in your default text editor ($EDITOR)",
	Run: func(cmd *cobra.Command, args []string) {
		configPath, err := config.GetUserConfigPath()
		if err != nil {
			utils.PrintError("Failed to get config path: %v", err)
			os.Exit(ExitCodeError)
		}

		// Create config if it doesn't exist
		if !utils.FileExists(configPath) {
			utils.PrintHint("Config file doesn't exist, creating it first...")
			if err := config.SaveConfig(); err != nil {
				utils.PrintError("Failed to create config: %v", err)
				os.Exit(ExitCodeError)
			}
		}

		editor := os.Getenv("EDITOR")
		if editor == "" {
			editor = "vi"
		}

		editorCmd := exec.Command(editor, configPath)
		editorCmd.Stdin = os.Stdin
		editorCmd.Stdout = os.Stdout
		editorCmd.Stderr = os.Stderr

		if err := editorCmd.Run(); err != nil {
			utils.PrintError("Failed to open editor: %v", err)
			os.Exit(ExitCodeError)
		}
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration",
	Long:  "Check that the configured sweep is valid and the scheduler binary is accessible",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		valid := true

		schedulerBin := viper.GetString("scheduler_bin")
		switch {
		case schedulerBin == "":
			if !utils.QuietMode {
				fmt.Fprintf(out, "%s Scheduler binary: %s\n", utils.StyleWarning("⚠"), "not configured (PATH lookup)")
			}
		case config.ValidateBinary(schedulerBin):
			if !utils.QuietMode {
				fmt.Fprintf(out, "%s Scheduler binary: %s\n", utils.StyleSuccess("✓"), schedulerBin)
			}
		default:
			fmt.Fprintf(out, "%s Scheduler binary not found: %s\n", utils.StyleError("✗"), schedulerBin)
			valid = false
		}

		cfg, err := config.SweepFromViper()
		if err == nil {
			err = cfg.Validate()
		}
		if err != nil {
			fmt.Fprintf(out, "%s Sweep: %v\n", utils.StyleError("✗"), err)
			valid = false
		} else {
			if !utils.QuietMode {
				fmt.Fprintf(out, "%s Sweep %s: %d node counts\n", utils.StyleSuccess("✓"), cfg.Name, len(cfg.NodeCounts))
			}
			if _, err := resolveTemplate(cfg); err != nil {
				fmt.Fprintf(out, "%s Template: %v\n", utils.StyleError("✗"), err)
				valid = false
			}
		}

		if valid {
			utils.PrintSuccess("Configuration is valid")
		} else {
			utils.PrintError("Configuration has errors")
			os.Exit(ExitCodeError)
		}
	},
}

func init() {
	configShowCmd.Flags().BoolVar(&showPath, "path", false, "Show only the config file path")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configEditCmd)
	configCmd.AddCommand(configValidateCmd)

	rootCmd.AddCommand(configCmd)
}
