// Package gitcli wraps the git command line for the handful of operations the
// sync needs. It shells out instead of using a Go git library so the tool
// behaves exactly like the operator's own git: same credential helpers, same
// SSH config, same merge machinery.
package gitcli

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// run executes git with the given args in dir, returning stdout. A failure
// surfaces the trimmed stderr as the error message so the operator sees what
// git actually complained about.
func run(ctx context.Context, dir string, args ...string) (string, error) {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("dir", dir).Strs("args", args).Msg("running git")

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return stdout.String(), ctx.Err()
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return stdout.String(), errors.Errorf("git %s: %s", args[0], msg)
		}
		return stdout.String(), errors.Errorf("git %s: %w", args[0], err)
	}
	return stdout.String(), nil
}
