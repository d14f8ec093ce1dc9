package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/viniciusmctf/prksweep/internal/config"
	"github.com/viniciusmctf/prksweep/internal/manifest"
	"github.com/viniciusmctf/prksweep/internal/report"
	"github.com/viniciusmctf/prksweep/internal/scheduler"
	"github.com/viniciusmctf/prksweep/internal/sweep"
	"github.com/viniciusmctf/prksweep/internal/utils"
)

var (
	runSweepFile  string
	runReportFile string
	runFailFast   bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Generate and submit a node-count sweep",
	Long: `Generate one batch script per node count and submit each to the scheduler.

Scripts are written in list order and submitted as soon as they are written.
A failed element is reported and the sweep moves on to the next node count
unless --fail-fast is given. The command exits non-zero if any element failed.

With --no-submit (or submit_job: false) scripts are only written. A missing
submission command fails every element.
A sweep.MANIFEST with the checksum and job id of every script is written next
to the scripts.`,
	Example: `  prksweep run                             # Default sweep from config (mpi1 preset)
  prksweep run -p chapel -n 2,4,8          # Chapel sweep over three node counts
  prksweep run --no-submit -o scripts/     # Only write the scripts
  prksweep run --file sweeps.hcl --report out.yaml`,
	Args: cobra.NoArgs,
	RunE: runSweeps,
}

func init() {
	RegisterSweepFlags(runCmd)
	runCmd.Flags().StringVarP(&runSweepFile, "file", "f", "", "HCL file defining one or more sweep blocks")
	runCmd.Flags().StringVar(&runReportFile, "report", "", "Write a YAML report of every job to this file")
	runCmd.Flags().BoolVar(&runFailFast, "fail-fast", false, "Stop at the first failed element")
	rootCmd.AddCommand(runCmd)
}

func runSweeps(cmd *cobra.Command, args []string) error {
	sweeps, err := loadSweeps(cmd, runSweepFile)
	if err != nil {
		return err
	}
	if runFailFast {
		config.Global.FailFast = true
	}

	sched := scheduler.ActiveScheduler()
	if sched != nil && !sched.IsAvailable() {
		utils.PrintWarning("Submission command %s is not usable, every element will fail", utils.StyleCommand(sched.GetInfo().Binary))
		utils.PrintHint("Set %s or use %s to only write the scripts", utils.StyleCommand("scheduler_bin"), utils.StyleCommand("--no-submit"))
	}
	if sched != nil && scheduler.IsInsideJob() {
		utils.PrintWarning("Submitting from inside a scheduled job")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reports := make([]*sweep.Report, 0, len(sweeps))
	failed := 0
	var runErr error
	for _, cfg := range sweeps {
		rep, err := runOneSweep(ctx, cfg, sched)
		if rep != nil {
			reports = append(reports, rep)
			failed += rep.Failed()
		}
		if err != nil {
			runErr = err
			break
		}
	}

	if runReportFile != "" {
		if err := report.Write(runReportFile, report.New(config.VERSION, reports...)); err != nil {
			utils.PrintError("%v", err)
		} else {
			utils.PrintMessage("Report written to %s", utils.StylePath(runReportFile))
		}
	}

	if runErr != nil {
		return runErr
	}
	if failed > 0 {
		utils.PrintError("%s element(s) failed", utils.StyleNumber(failed))
		return errSweepFailed
	}
	return nil
}

// runOneSweep runs a sweep and records its manifest. The report is returned
// even when the sweep stopped early.
func runOneSweep(ctx context.Context, cfg sweep.Config, sched scheduler.Scheduler) (*sweep.Report, error) {
	tmpl, err := resolveTemplate(cfg)
	if err != nil {
		return nil, err
	}

	utils.PrintMessage("Sweep %s: %s over %s node counts (%s)",
		utils.StyleName(cfg.Name), utils.StyleInfo(tmpl.Name()), utils.StyleNumber(len(cfg.NodeCounts)), utils.StylePath(cfg.OutputDir))

	runner := sweep.NewRunner(cfg, tmpl, sched,
		sweep.WithFailFast(config.Global.FailFast),
		sweep.WithSubmitTimeout(config.Global.SubmitTimeout),
	)
	rep, runErr := runner.Run(ctx)
	if rep == nil {
		return nil, runErr
	}

	if err := writeManifest(cfg.OutputDir, rep); err != nil {
		utils.PrintWarning("%v", err)
	}

	if runErr != nil {
		return rep, runErr
	}
	if rep.Failed() == 0 {
		utils.PrintSuccess("Sweep %s: %s scripts done in %s", utils.StyleName(cfg.Name), utils.StyleNumber(len(rep.Outcomes)), rep.Duration.Round(time.Millisecond))
	}
	return rep, nil
}

func writeManifest(dir string, rep *sweep.Report) error {
	m, err := manifest.FromReport(rep)
	if err != nil {
		return fmt.Errorf("manifest not written: %w", err)
	}
	if len(m.Entries) == 0 {
		return nil
	}
	if dir == "" {
		dir = "."
	}
	path, err := manifest.Write(dir, m)
	if err != nil {
		return err
	}
	utils.PrintDebug("Manifest written to %s", path)
	return nil
}
