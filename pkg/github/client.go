// Package github answers one question before a sync: how far behind upstream
// is the fork? It talks to the GitHub API so the operator can decide whether
// a sync is worth running without fetching anything.
package github

import (
	"context"
	"os"
	"strings"

	"github.com/google/go-github/v60/github"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"
)

// CompareClient defines the GitHub API operations the checker needs.
type CompareClient interface {
	GetRepository(ctx context.Context, owner, repo string) (*github.Repository, *github.Response, error)
	CompareCommits(ctx context.Context, owner, repo, base, head string, opts *github.ListOptions) (*github.CommitsComparison, *github.Response, error)
}

// 📊 UpstreamStatus describes the fork's position relative to upstream.
type UpstreamStatus struct {
	UpstreamRepo string // owner/repo of upstream
	ForkRepo     string // owner/repo of the fork
	Branch       string // compared branch
	BehindBy     int    // commits upstream has that the fork lacks
	AheadBy      int    // commits only the fork has
}

// InSync reports whether the fork already contains every upstream commit.
func (s *UpstreamStatus) InSync() bool {
	return s.BehindBy == 0
}

// Checker compares a fork against its upstream via the GitHub API.
type Checker struct {
	client CompareClient
}

// NewChecker creates a Checker using GITHUB_TOKEN for auth when present.
// Anonymous access works too, within GitHub's tighter rate limits.
func NewChecker() *Checker {
	client := github.NewClient(nil)
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		client = client.WithAuthToken(token)
	}
	return &Checker{client: &clientWrapper{client: client}}
}

// NewCheckerWithClient creates a Checker with a custom API client, for tests.
func NewCheckerWithClient(client CompareClient) *Checker {
	return &Checker{client: client}
}

// clientWrapper adapts *github.Client to the CompareClient interface
type clientWrapper struct {
	client *github.Client
}

func (w *clientWrapper) GetRepository(ctx context.Context, owner, repo string) (*github.Repository, *github.Response, error) {
	return w.client.Repositories.Get(ctx, owner, repo)
}

func (w *clientWrapper) CompareCommits(ctx context.Context, owner, repo, base, head string, opts *github.ListOptions) (*github.CommitsComparison, *github.Response, error) {
	return w.client.Repositories.CompareCommits(ctx, owner, repo, base, head, opts)
}

// Compare returns the fork's position relative to upstream on branch. Both
// repos are looked up first (concurrently) so a typo in either slug fails
// with a useful error instead of a confusing 404 from the compare call.
func (c *Checker) Compare(ctx context.Context, upstreamSlug, forkSlug, branch string) (*UpstreamStatus, error) {
	logger := zerolog.Ctx(ctx)

	upstreamOwner, upstreamRepo, ok := strings.Cut(upstreamSlug, "/")
	if !ok {
		return nil, errors.Errorf("upstream slug %q is not owner/repo", upstreamSlug)
	}
	forkOwner, _, ok := strings.Cut(forkSlug, "/")
	if !ok {
		return nil, errors.Errorf("fork slug %q is not owner/repo", forkSlug)
	}

	group, groupCtx := errgroup.WithContext(ctx)
	for _, slug := range []string{upstreamSlug, forkSlug} {
		slug := slug
		group.Go(func() error {
			owner, repo, _ := strings.Cut(slug, "/")
			if _, _, err := c.client.GetRepository(groupCtx, owner, repo); err != nil {
				return errors.Errorf("looking up %s: %w", slug, err)
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	// base...head with a cross-fork head: ahead_by counts fork-only commits,
	// behind_by counts upstream commits the fork is missing.
	comparison, _, err := c.client.CompareCommits(ctx,
		upstreamOwner, upstreamRepo, branch, forkOwner+":"+branch, nil)
	if err != nil {
		return nil, errors.Errorf("comparing %s...%s:%s: %w", branch, forkOwner, branch, err)
	}

	status := &UpstreamStatus{
		UpstreamRepo: upstreamSlug,
		ForkRepo:     forkSlug,
		Branch:       branch,
		BehindBy:     comparison.GetBehindBy(),
		AheadBy:      comparison.GetAheadBy(),
	}

	logger.Debug().
		Str("upstream", upstreamSlug).
		Str("fork", forkSlug).
		Int("behind_by", status.BehindBy).
		Int("ahead_by", status.AheadBy).
		Msg("compared fork against upstream")

	return status, nil
}
