package scheduler

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/viniciusmctf/prksweep/internal/utils"
)

// runTool runs bin with args and returns its combined output and exit status.
// The caller bounds the run through ctx. exitCode is -1 when the process did
// not exit normally.
func runTool(ctx context.Context, bin string, args ...string) (string, int, error) {
	utils.PrintDebug("Running %s %s", utils.StyleCommand(bin), strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, bin, args...)
	// children of a killed wrapper script may keep the output pipe open
	cmd.WaitDelay = time.Second
	output, err := cmd.CombinedOutput()
	if err == nil {
		return string(output), 0, nil
	}

	// A killed process reports an ExitError too; the context error is the real cause
	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return string(output), -1, fmt.Errorf("timed out: %w", ctxErr)
		}
		return string(output), -1, ctxErr
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return string(output), exitErr.ExitCode(), err
	}
	return string(output), -1, err
}
