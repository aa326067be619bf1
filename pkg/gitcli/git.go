package gitcli

import (
	"context"
	"strings"

	"gitlab.com/tozd/go/errors"
)

var (
	// ErrMergeConflict means the merge did not complete cleanly. Resolution
	// is manual; the tool never attempts it.
	ErrMergeConflict = errors.New("merge conflict")

	// ErrPushRejected means the local commit exists but the remote refused
	// the push (usually a non-fast-forward).
	ErrPushRejected = errors.New("push rejected")
)

// Git runs git commands against a single working tree.
type Git struct {
	dir string
}

// New returns a Git bound to the working tree at dir. An empty dir means the
// current directory.
func New(dir string) *Git {
	return &Git{dir: dir}
}

// StatusPorcelain returns the raw `git status --porcelain` output.
func (g *Git) StatusPorcelain(ctx context.Context) (string, error) {
	out, err := run(ctx, g.dir, "status", "--porcelain")
	if err != nil {
		return "", errors.Errorf("checking status: %w", err)
	}
	return out, nil
}

// IsClean reports whether the working tree has no uncommitted changes.
func (g *Git) IsClean(ctx context.Context) (bool, error) {
	out, err := g.StatusPorcelain(ctx)
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(out) == "", nil
}

// DirtyPaths returns the paths of all files with uncommitted changes.
func (g *Git) DirtyPaths(ctx context.Context) ([]string, error) {
	out, err := g.StatusPorcelain(ctx)
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, line := range strings.Split(out, "\n") {
		if len(line) < 4 {
			continue
		}
		path := line[3:]
		// Renames are reported as "old -> new"; the new path is the one
		// that matters for the publish guard.
		if _, after, ok := strings.Cut(path, " -> "); ok {
			path = after
		}
		paths = append(paths, strings.Trim(path, `"`))
	}
	return paths, nil
}

// Remotes returns the configured remotes mapped to their fetch URLs.
func (g *Git) Remotes(ctx context.Context) (map[string]string, error) {
	out, err := run(ctx, g.dir, "remote", "-v")
	if err != nil {
		return nil, errors.Errorf("listing remotes: %w", err)
	}

	remotes := map[string]string{}
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		if len(fields) == 3 && fields[2] != "(fetch)" {
			continue
		}
		remotes[fields[0]] = fields[1]
	}
	return remotes, nil
}

// HasRemote reports whether a remote with the given name exists and its fetch
// URL contains urlSubstring. An empty urlSubstring matches any URL.
func (g *Git) HasRemote(ctx context.Context, name, urlSubstring string) (bool, error) {
	remotes, err := g.Remotes(ctx)
	if err != nil {
		return false, err
	}
	url, ok := remotes[name]
	if !ok {
		return false, nil
	}
	return strings.Contains(url, urlSubstring), nil
}

// AddRemote configures a new remote.
func (g *Git) AddRemote(ctx context.Context, name, url string) error {
	if _, err := run(ctx, g.dir, "remote", "add", name, url); err != nil {
		return errors.Errorf("adding remote %s: %w", name, err)
	}
	return nil
}

// Fetch fetches a remote.
func (g *Git) Fetch(ctx context.Context, remote string) error {
	if _, err := run(ctx, g.dir, "fetch", remote); err != nil {
		return errors.Errorf("fetching %s: %w", remote, err)
	}
	return nil
}

// Checkout switches the working tree to branch.
func (g *Git) Checkout(ctx context.Context, branch string) error {
	if _, err := run(ctx, g.dir, "checkout", branch); err != nil {
		return errors.Errorf("checking out %s: %w", branch, err)
	}
	return nil
}

// Merge merges ref into the current branch. Any merge failure is reported as
// ErrMergeConflict: whether git stopped on conflicting hunks or refused to
// start, the operator has to intervene either way.
func (g *Git) Merge(ctx context.Context, ref string) error {
	if _, err := run(ctx, g.dir, "merge", ref); err != nil {
		return errors.Errorf("merging %s: %s: %w", ref, err.Error(), ErrMergeConflict)
	}
	return nil
}

// StageAll stages every change in the working tree.
func (g *Git) StageAll(ctx context.Context) error {
	if _, err := run(ctx, g.dir, "add", "-A"); err != nil {
		return errors.Errorf("staging changes: %w", err)
	}
	return nil
}

// Commit records the staged changes.
func (g *Git) Commit(ctx context.Context, message string) error {
	if _, err := run(ctx, g.dir, "commit", "-m", message); err != nil {
		return errors.Errorf("committing: %w", err)
	}
	return nil
}

// Push publishes branch to remote. A rejected push is ErrPushRejected so the
// caller can tell the operator the commit still exists locally.
func (g *Git) Push(ctx context.Context, remote, branch string) error {
	if _, err := run(ctx, g.dir, "push", remote, branch); err != nil {
		return errors.Errorf("pushing %s to %s: %s: %w", branch, remote, err.Error(), ErrPushRejected)
	}
	return nil
}
