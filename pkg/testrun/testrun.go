// Package testrun executes the fork's test suite after patching, streaming
// output straight to the operator.
package testrun

import (
	"context"
	"io"
	"os"
	"os/exec"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// ErrTestFailure means the test command exited non-zero. The patches are
// already applied at that point; only publishing is blocked.
var ErrTestFailure = errors.New("tests failed")

// Runner runs a single test command in a working directory.
type Runner struct {
	dir     string
	command []string
	stdout  io.Writer
	stderr  io.Writer
}

// New creates a Runner for the given command (argv form, e.g.
// ["go", "test", "./..."]).
func New(dir string, command []string) *Runner {
	return &Runner{
		dir:     dir,
		command: command,
		stdout:  os.Stdout,
		stderr:  os.Stderr,
	}
}

// WithOutput redirects the command's output, primarily for tests.
func (r *Runner) WithOutput(stdout, stderr io.Writer) *Runner {
	r.stdout = stdout
	r.stderr = stderr
	return r
}

// Run executes the test command and waits for it. Output is not captured:
// the operator needs to see failures as they happen, exactly as if they had
// run the command themselves.
func (r *Runner) Run(ctx context.Context) error {
	if len(r.command) == 0 {
		return errors.New("no test command configured")
	}

	logger := zerolog.Ctx(ctx)
	logger.Debug().Strs("command", r.command).Str("dir", r.dir).Msg("running tests")

	cmd := exec.CommandContext(ctx, r.command[0], r.command[1:]...)
	cmd.Dir = r.dir
	cmd.Stdout = r.stdout
	cmd.Stderr = r.stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return errors.Errorf("%s: %w", r.command[0], ErrTestFailure)
	}
	return nil
}
