package sweep

import (
	"context"
	"fmt"
	"time"

	"github.com/gvallee/go_util/pkg/util"

	"github.com/viniciusmctf/prksweep/internal/render"
	"github.com/viniciusmctf/prksweep/internal/scheduler"
	"github.com/viniciusmctf/prksweep/internal/utils"
)

// State is how far a sweep element got
type State string

const (
	StateGenerated State = "generated" // written, not submitted (dry run)
	StateSubmitted State = "submitted"
	StateFailed    State = "failed"
)

// Outcome records what happened to one sweep element
type Outcome struct {
	NodeCount int
	Script    string // Script path, empty if rendering failed
	JobName   string
	State     State
	JobID     string
	Err       error
}

// Report collects the outcomes of a sweep in list order
type Report struct {
	Name      string
	Scheduler string // Scheduler type, empty for a dry run
	StartedAt time.Time
	Duration  time.Duration
	Outcomes  []Outcome
	Cancelled bool // The sweep stopped before its last element
}

// Failed returns the number of failed elements
func (r *Report) Failed() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.State == StateFailed {
			n++
		}
	}
	return n
}

// OK reports whether every element was processed without failure
func (r *Report) OK() bool {
	return !r.Cancelled && r.Failed() == 0
}

// Runner executes a sweep
type Runner struct {
	cfg           Config
	tmpl          *render.ScriptTemplate
	sched         scheduler.Scheduler
	failFast      bool
	submitTimeout time.Duration
}

// Option configures a Runner
type Option func(*Runner)

// WithFailFast stops the sweep at the first failed element
func WithFailFast(failFast bool) Option {
	return func(r *Runner) { r.failFast = failFast }
}

// WithSubmitTimeout bounds each submission
func WithSubmitTimeout(d time.Duration) Option {
	return func(r *Runner) { r.submitTimeout = d }
}

// NewRunner creates a sweep runner. A nil scheduler makes it a dry run that
// only writes scripts.
func NewRunner(cfg Config, tmpl *render.ScriptTemplate, sched scheduler.Scheduler, opts ...Option) *Runner {
	r := &Runner{
		cfg:           cfg,
		tmpl:          tmpl,
		sched:         sched,
		submitTimeout: scheduler.DefaultSubmitTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run generates and submits every element in list order. A failed element is
// reported and the sweep moves on unless fail-fast is set. Cancelling ctx
// stops the sweep before the next element; already submitted jobs stay queued.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	runs, err := Plan(r.cfg)
	if err != nil {
		return nil, err
	}

	dir := r.cfg.OutputDir
	if dir == "" {
		dir = "."
	}
	if !util.PathExists(dir) {
		if err := utils.EnsureDir(dir); err != nil {
			return nil, NewFileWriteError(0, dir, err)
		}
	}
	lock, err := LockDir(dir, true)
	if err != nil {
		return nil, err
	}
	defer lock.Close()

	report := &Report{
		Name:      r.cfg.Name,
		StartedAt: time.Now(),
	}
	if r.sched != nil {
		report.Scheduler = r.sched.GetInfo().Type
	}
	defer func() { report.Duration = time.Since(report.StartedAt) }()

	for _, run := range runs {
		if err := ctx.Err(); err != nil {
			report.Cancelled = true
			utils.PrintWarning("Sweep interrupted before %s nodes", utils.StyleNumber(run.NodeCount))
			return report, err
		}

		out := r.runOne(ctx, run, dir)
		report.Outcomes = append(report.Outcomes, out)

		if out.Err != nil {
			utils.PrintError("%s nodes (%s): %v", utils.StyleNumber(out.NodeCount), scriptLabel(out, run), out.Err)
			if r.failFast {
				report.Cancelled = true
				return report, fmt.Errorf("%w: %d nodes", ErrSweepAborted, out.NodeCount)
			}
			continue
		}

		switch out.State {
		case StateSubmitted:
			if out.JobID != "" {
				utils.PrintSuccess("%s submitted as job %s", utils.StylePath(out.Script), utils.StyleName(out.JobID))
			} else {
				utils.PrintSuccess("%s submitted", utils.StylePath(out.Script))
			}
		default:
			utils.PrintMessage("%s", utils.StylePath(out.Script))
		}
	}
	return report, nil
}

// runOne processes a single element; errors are recorded, never returned
func (r *Runner) runOne(ctx context.Context, run RunConfiguration, dir string) Outcome {
	out := Outcome{
		NodeCount: run.NodeCount,
		JobName:   run.JobName(),
		State:     StateFailed,
	}

	script, err := Generate(run, r.tmpl, dir)
	if err != nil {
		out.Err = err
		return out
	}
	out.Script = script.Path
	out.State = StateGenerated
	utils.PrintDebug("Wrote %s (%d iterations, %d tasks)", script.Path, run.Iterations, run.TotalTasks())

	if r.sched == nil {
		return out
	}

	subCtx, cancel := context.WithTimeout(ctx, r.submitTimeout)
	defer cancel()

	res := r.sched.Submit(subCtx, script.Path)
	if !res.OK() {
		out.State = StateFailed
		out.Err = res.Err
		return out
	}
	out.State = StateSubmitted
	out.JobID = res.JobID
	return out
}

// scriptLabel names the script of a failed element, even when it was never written
func scriptLabel(out Outcome, run RunConfiguration) string {
	if out.Script != "" {
		return out.Script
	}
	return run.ScriptName()
}
