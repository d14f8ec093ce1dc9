package sweep

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig indicates the sweep configuration cannot produce scripts
	ErrInvalidConfig = errors.New("invalid sweep configuration")

	// ErrUnknownPreset indicates a preset name is not known
	ErrUnknownPreset = errors.New("unknown sweep preset")

	// ErrSweepAborted indicates fail-fast mode stopped the sweep
	ErrSweepAborted = errors.New("sweep aborted after failure")
)

// FileWriteError represents a failure to persist a generated script
type FileWriteError struct {
	NodeCount int    // Sweep element whose script failed
	Path      string // Target path
	Err       error  // Underlying error
}

func (e *FileWriteError) Error() string {
	return fmt.Sprintf("failed to write script %s for %d nodes: %v", e.Path, e.NodeCount, e.Err)
}

func (e *FileWriteError) Unwrap() error {
	return e.Err
}

// NewFileWriteError creates a new FileWriteError
func NewFileWriteError(nodeCount int, path string, err error) *FileWriteError {
	return &FileWriteError{
		NodeCount: nodeCount,
		Path:      path,
		Err:       err,
	}
}

// IsFileWriteError checks if an error is a FileWriteError
func IsFileWriteError(err error) bool {
	var fe *FileWriteError
	return errors.As(err, &fe)
}
