package cmd

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/viniciusmctf/prksweep/internal/config"
	"github.com/viniciusmctf/prksweep/internal/scheduler"
	"github.com/viniciusmctf/prksweep/internal/utils"
)

var (
	debugMode bool
	quietMode bool
	noSubmit  bool
)

var rootCmd = &cobra.Command{
	Use:           "prksweep",
	Short:         "prksweep: generate and submit node-count sweeps of the PRK transpose benchmark.",
	Version:       config.VERSION,
	SilenceErrors: true,
	SilenceUsage:  true,

	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Step 1: Load defaults
		config.LoadDefaults()

		// Step 2: Initialize Viper (read config file, env vars)
		if err := config.InitViper(); err != nil {
			utils.PrintWarning("Error reading config file: %v", err)
		}

		// Step 3: Load values from Viper into Global config
		if err := config.LoadFromViper(); err != nil {
			utils.PrintError("Invalid configuration: %v", err)
			os.Exit(1)
		}

		// Step 4: Apply command-line flags (highest priority)
		if quietMode {
			utils.QuietMode = true
			config.Global.Quiet = true
		}
		if debugMode {
			utils.DebugMode = true
			config.Global.Debug = true
			utils.PrintDebug("Debug mode enabled")
			utils.PrintDebug("prksweep Version: %s", utils.StyleInfo(config.VERSION))
			utils.PrintDebug("Output Directory: %s", config.Global.OutputDir)
			utils.PrintDebug("Submit Timeout: %s", config.Global.SubmitTimeout)
			if config.Global.SchedulerBin != "" {
				utils.PrintDebug("Scheduler Binary: %s", config.Global.SchedulerBin)
			}
		}
		if noSubmit {
			config.Global.SubmitJob = false
			utils.PrintDebug("Dry run (job submission disabled)")
		}

		// Step 5: Initialize scheduler if job submission is enabled
		scheduler.ClearActiveScheduler()
		if config.Global.SubmitJob {
			initScheduler(config.Global.SchedulerBin)
		}
	},
}

// initScheduler activates the scheduler behind bin, or PATH lookup when bin
// is empty. A command that cannot be resolved is still activated so that
// every submission fails with the reason.
func initScheduler(bin string) {
	sched, err := scheduler.DetectSchedulerWithBinary(bin)
	if err == nil && !sched.IsAvailable() {
		err = scheduler.ErrSchedulerNotAvailable
	}
	if err != nil {
		utils.PrintDebug("Scheduler not available: %v", err)
		scheduler.SetActiveScheduler(scheduler.NewUnavailableScheduler(bin, err))
		return
	}
	scheduler.SetActiveScheduler(sched)
	utils.PrintDebug("Scheduler initialized")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Failed elements were already reported one by one
		if errors.Is(err, errSweepFailed) {
			os.Exit(ExitCodeError)
		}
		utils.PrintError("%v", err)
		os.Exit(ExitCodeError)
	}
}

func init() {
	// Subcommands are attached to rootCmd in their respective init() functions
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug mode with verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quietMode, "quiet", "q", false, "Only print warnings and errors")
	rootCmd.PersistentFlags().BoolVar(&noSubmit, "no-submit", false, "Write scripts without submitting them")
}
