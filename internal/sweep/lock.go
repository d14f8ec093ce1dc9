package sweep

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"

	"github.com/viniciusmctf/prksweep/internal/utils"
)

// LockFileName is the lock file kept in every output directory
const LockFileName = ".prksweep.lock"

// ErrDirLocked indicates another sweep is using the output directory
var ErrDirLocked = errors.New("output directory is in use by another sweep")

// DirLock is a flock held on an output directory's lock file.
// It must be closed to release the lock.
type DirLock struct {
	file *os.File
	path string
}

// Close releases the lock
func (l *DirLock) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	// flock locks are released when the file is closed
	err := l.file.Close()
	l.file = nil
	return err
}

// LockDir locks dir without blocking. A writer takes an exclusive lock and
// creates the lock file; a reader takes a shared lock and gets a no-op lock
// when no sweep ever wrote to dir.
func LockDir(dir string, write bool) (*DirLock, error) {
	path := filepath.Join(dir, LockFileName)

	var (
		f   *os.File
		err error
		how = syscall.LOCK_SH
	)
	if write {
		how = syscall.LOCK_EX
		f, err = os.OpenFile(path, os.O_RDWR|os.O_CREATE, utils.PermFile)
	} else {
		f, err = os.Open(path)
		if errors.Is(err, os.ErrNotExist) {
			return &DirLock{path: path}, nil
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open lock %s: %w", path, err)
	}

	if err := syscall.Flock(int(f.Fd()), how|syscall.LOCK_NB); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %s", ErrDirLocked, utils.StylePath(dir))
	}
	return &DirLock{file: f, path: path}, nil
}
