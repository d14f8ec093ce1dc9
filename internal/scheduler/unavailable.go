package scheduler

import (
	"context"
	"path/filepath"
)

// UnavailableScheduler stands in for a submission command that could not be
// resolved. Every submission fails with an ExternalToolError so a sweep still
// reports each element instead of silently writing scripts only.
type UnavailableScheduler struct {
	typ string
	bin string
	err error
}

// NewUnavailableScheduler records why bin could not be used. An empty bin
// means PATH lookup found neither sbatch nor qsub.
func NewUnavailableScheduler(bin string, err error) *UnavailableScheduler {
	if err == nil {
		err = ErrSchedulerNotAvailable
	}
	typ := string(SchedulerSLURM)
	if filepath.Base(bin) == "qsub" {
		typ = string(SchedulerPBS)
	}
	if bin == "" {
		bin = "sbatch"
	}
	return &UnavailableScheduler{typ: typ, bin: bin, err: err}
}

// Submit always fails; the command never runs
func (u *UnavailableScheduler) Submit(ctx context.Context, scriptPath string) SubmitResult {
	return Failed(NewExternalToolError(u.typ, u.bin, filepath.Base(scriptPath), -1, "", u.err))
}

// IsAvailable is always false
func (u *UnavailableScheduler) IsAvailable() bool {
	return false
}

// GetInfo reports the command that was asked for
func (u *UnavailableScheduler) GetInfo() *SchedulerInfo {
	return &SchedulerInfo{
		Type:   u.typ,
		Binary: u.bin,
		InJob:  IsInsideJob(),
	}
}

// ReadScriptSpecs reads whichever directives the script carries
func (u *UnavailableScheduler) ReadScriptSpecs(scriptPath string) (*ScriptSpecs, error) {
	return ReadAnyScriptSpecs(scriptPath)
}
