// Package scheduler submits generated batch scripts to the cluster job manager
package scheduler

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

// SchedulerType represents the type of job scheduler
type SchedulerType string

const (
	SchedulerUnknown SchedulerType = ""
	SchedulerSLURM   SchedulerType = "SLURM"
	SchedulerPBS     SchedulerType = "PBS"
)

// SchedulerInfo holds information about the detected scheduler
type SchedulerInfo struct {
	Type      string // Scheduler type (e.g., "SLURM", "PBS")
	Binary    string // Path to submission binary (e.g., "/usr/bin/sbatch")
	Version   string // Scheduler version (if available)
	InJob     bool   // Whether we're currently inside a scheduled job
	Available bool   // Whether scheduler is available for job submission
}

// SubmitStatus tells whether the scheduler accepted a script
type SubmitStatus int

const (
	StatusFailed SubmitStatus = iota
	StatusSubmitted
)

func (s SubmitStatus) String() string {
	if s == StatusSubmitted {
		return "submitted"
	}
	return "failed"
}

// SubmitResult is the outcome of one submission. JobID may be empty for a
// submitted script when the scheduler printed nothing recognisable.
type SubmitResult struct {
	Status SubmitStatus
	JobID  string
	Err    error // Set when Status is StatusFailed
}

// Submitted builds a successful result
func Submitted(jobID string) SubmitResult {
	return SubmitResult{Status: StatusSubmitted, JobID: jobID}
}

// Failed builds a failed result
func Failed(err error) SubmitResult {
	return SubmitResult{Status: StatusFailed, Err: err}
}

// OK reports whether the script was accepted
func (r SubmitResult) OK() bool {
	return r.Status == StatusSubmitted
}

// Reason returns the failure message, or "" for a submitted script
func (r SubmitResult) Reason() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// Scheduler defines the interface for job schedulers
type Scheduler interface {
	// Submit hands a script to the scheduler with the script path as the only
	// argument. It blocks until the submission command exits or ctx is done.
	Submit(ctx context.Context, scriptPath string) SubmitResult

	// IsAvailable checks if the scheduler is available and we're not already in a job
	IsAvailable() bool

	// GetInfo returns information about the scheduler
	GetInfo() *SchedulerInfo

	// ReadScriptSpecs parses the scheduler directives of a batch script
	ReadScriptSpecs(scriptPath string) (*ScriptSpecs, error)
}

// DefaultSubmitTimeout bounds a single submission command
const DefaultSubmitTimeout = 2 * time.Minute

// DetectSchedulerWithBinary initializes a scheduler using a preferred binary path.
// If preferredBin is empty, detection falls back to PATH lookup (sbatch, then qsub).
// The returned scheduler is not checked for availability.
func DetectSchedulerWithBinary(preferredBin string) (Scheduler, error) {
	if preferredBin != "" {
		switch filepath.Base(preferredBin) {
		case "qsub":
			return NewPbsSchedulerWithBinary(preferredBin)
		default:
			// Default to SLURM for sbatch and any wrapper around it
			return NewSlurmSchedulerWithBinary(preferredBin)
		}
	}

	switch DetectType() {
	case SchedulerSLURM:
		return NewSlurmScheduler()
	case SchedulerPBS:
		return NewPbsScheduler()
	}
	return nil, ErrSchedulerNotFound
}

// DetectType returns the type of scheduler available on the system without initializing it.
func DetectType() SchedulerType {
	if _, err := exec.LookPath("sbatch"); err == nil {
		return SchedulerSLURM
	}
	if _, err := exec.LookPath("qsub"); err == nil {
		return SchedulerPBS
	}
	return SchedulerUnknown
}

// IsInsideJob checks if we're currently running inside a scheduler job.
// Submitting a sweep from inside an allocation is allowed but worth a warning.
func IsInsideJob() bool {
	if _, ok := os.LookupEnv("SLURM_JOB_ID"); ok {
		return true
	}
	if _, ok := os.LookupEnv("PBS_JOBID"); ok {
		return true
	}
	return false
}

// resolveBinary validates an explicit binary path, or looks name up in PATH
// when bin is empty.
func resolveBinary(bin, name string) (string, error) {
	if bin == "" {
		path, err := exec.LookPath(name)
		if err != nil {
			return "", err
		}
		return path, nil
	}

	if filepath.Base(bin) == bin {
		// bare command name, let PATH decide
		return exec.LookPath(bin)
	}

	if absPath, err := filepath.Abs(bin); err == nil {
		bin = absPath
	}
	info, err := os.Stat(bin)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return "", &os.PathError{Op: "stat", Path: bin, Err: errIsDirectory}
	}
	return bin, nil
}
