// Package validate implements the Validation Runner: it shells out to a
// configured build/test command with the set of changed paths appended
// as trailing arguments, and reports pass/fail plus captured output
// (spec §4.6). Grounded on the teacher's fixpatches/validator.go, which
// ran a single hardcoded `make` target; here the command is
// user-configured and runs at one of three timings (spec §4.1
// RunValidationAfter).
package validate

import (
	"bytes"
	"context"
	"os/exec"
	"time"

	"github.com/awslabs/Git-llm-pick/pkg/types"
	"github.com/awslabs/Git-llm-pick/pkg/util/logger"
)

// Runner is the Validation Runner of spec §4.6.
type Runner struct {
	workDir string
	timeout time.Duration
}

// New builds a Runner that executes commands rooted at workDir.
func New(workDir string, timeout time.Duration) *Runner {
	return &Runner{workDir: workDir, timeout: timeout}
}

// Run executes command with changedPaths appended as final arguments,
// returning combined stdout+stderr. A non-zero exit is reported as a
// ValidationFailedError carrying the captured output, never as a bare
// exec error (spec §7).
func (r *Runner) Run(ctx context.Context, command []string, changedPaths []string) (string, error) {
	if len(command) == 0 {
		return "", nil
	}

	runCtx := ctx
	var cancel context.CancelFunc
	if r.timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	args := append(append([]string{}, command[1:]...), changedPaths...)
	cmd := exec.CommandContext(runCtx, command[0], args...)
	cmd.Dir = r.workDir

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	logger.Info("running validation command", "command", command[0], "args", args)
	err := cmd.Run()
	output := out.String()

	if runCtx.Err() != nil {
		return output, types.NewCancelledError(runCtx.Err())
	}
	if err != nil {
		return output, types.NewValidationFailedError(output, err)
	}
	return output, nil
}

// ShouldRunAfterFile reports whether timing calls for validation after
// each individually-applied file.
func ShouldRunAfterFile(timing types.ValidationTiming) bool {
	return timing == types.ValidateEachFile
}

// ShouldRunAfterAll reports whether timing calls for validation once,
// after the whole commit is applied.
func ShouldRunAfterAll(timing types.ValidationTiming) bool {
	return timing == types.ValidateAll
}
