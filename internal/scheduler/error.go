package scheduler

import (
	"errors"
	"fmt"
	"strings"
)

// Common errors
var (
	// ErrSchedulerNotAvailable indicates the scheduler is not available
	ErrSchedulerNotAvailable = errors.New("scheduler is not available")

	// ErrSchedulerNotFound indicates the scheduler binary was not found
	ErrSchedulerNotFound = errors.New("scheduler binary not found in PATH")

	// ErrScriptNotFound indicates the script file was not found
	ErrScriptNotFound = errors.New("script file not found")

	// ErrNoDirectives indicates a script carries no directives for the scheduler it is submitted to
	ErrNoDirectives = errors.New("script has no directives for this scheduler")

	// ErrJobIDParseFailed indicates parsing job ID from output failed
	ErrJobIDParseFailed = errors.New("failed to parse job ID from scheduler output")

	// ErrInvalidTimeFormat indicates time format is invalid
	ErrInvalidTimeFormat = errors.New("invalid time format")

	errIsDirectory = errors.New("is a directory")
)

// ExternalToolError represents a failure of the submission command: missing,
// not executable, timed out, or exited non-zero
type ExternalToolError struct {
	Scheduler string // Scheduler name
	Binary    string // Submission binary
	Script    string // Script handed to the binary
	ExitCode  int    // Exit status, -1 when the command never ran to completion
	Output    string // Combined scheduler output
	Err       error  // Underlying error
}

func (e *ExternalToolError) Error() string {
	var msg strings.Builder
	fmt.Fprintf(&msg, "%s submission of %s via %s failed", e.Scheduler, e.Script, e.Binary)
	if e.ExitCode > 0 {
		fmt.Fprintf(&msg, " (exit %d)", e.ExitCode)
	}
	fmt.Fprintf(&msg, ": %v", e.Err)
	if out := strings.TrimSpace(e.Output); out != "" {
		fmt.Fprintf(&msg, "\nOutput: %s", out)
	}
	return msg.String()
}

func (e *ExternalToolError) Unwrap() error {
	return e.Err
}

// NewExternalToolError creates a new ExternalToolError
func NewExternalToolError(scheduler, binary, script string, exitCode int, output string, err error) *ExternalToolError {
	return &ExternalToolError{
		Scheduler: scheduler,
		Binary:    binary,
		Script:    script,
		ExitCode:  exitCode,
		Output:    output,
		Err:       err,
	}
}

// IsExternalToolError checks if an error is an ExternalToolError
func IsExternalToolError(err error) bool {
	var te *ExternalToolError
	return errors.As(err, &te)
}

// ParseError represents an error parsing scheduler directives
type ParseError struct {
	Scheduler string // Scheduler name (e.g., "SLURM")
	Line      int    // Line number where error occurred
	Content   string // Line content
	Reason    string // Reason for parse failure
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s parse error at line %d (%s): %s",
			e.Scheduler, e.Line, e.Content, e.Reason)
	}
	return fmt.Sprintf("%s parse error: %s", e.Scheduler, e.Reason)
}

// NewParseError creates a new ParseError
func NewParseError(scheduler string, line int, content string, reason string) *ParseError {
	return &ParseError{
		Scheduler: scheduler,
		Line:      line,
		Content:   content,
		Reason:    reason,
	}
}

// IsParseError checks if an error is a ParseError
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}
