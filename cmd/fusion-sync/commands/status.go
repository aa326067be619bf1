package commands

import (
	"context"

	"github.com/sandeepbazar/fusion-sync/cmd/fusion-sync/opts"
	"github.com/sandeepbazar/fusion-sync/pkg/github"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"
)

// NewStatusCmd creates a new status command.
func NewStatusCmd(newOpts func(ctx context.Context) (*opts.RootOpts, error)) *cobra.Command {
	var remote bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Report hook presence and working tree state without changing anything",
		Long: `Status inspects the fork without mutating it. It will:
1. Check whether each Fusion hook is present in its target file
2. Check whether the working tree is clean
3. With --remote, ask GitHub how far behind upstream the fork is`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			o, err := newOpts(ctx)
			if err != nil {
				return err
			}

			report, err := o.Operator.Status(ctx)
			if err != nil {
				return errors.Errorf("checking status: %w", err)
			}

			for _, hook := range report.Hooks {
				switch {
				case hook.FileMissing:
					o.UserLogger.Errorf("%s: target file missing (%s)", hook.Rule, hook.Path)
				case hook.Installed:
					o.UserLogger.Successf("%s: hook present in %s", hook.Rule, hook.Path)
				default:
					o.UserLogger.Warningf("%s: hook missing from %s", hook.Rule, hook.Path)
				}
			}

			if report.Clean {
				o.UserLogger.Success("Working tree is clean")
			} else {
				o.UserLogger.Warning("Working tree has uncommitted changes")
			}

			if !remote {
				return nil
			}

			status, err := github.NewChecker().Compare(ctx,
				o.Config.Upstream.Repo, o.Config.Origin.Repo, o.Config.Branch)
			if err != nil {
				return errors.Errorf("checking upstream: %w", err)
			}
			if status.InSync() {
				o.UserLogger.Successf("Fork contains every upstream commit on %s", status.Branch)
			} else {
				o.UserLogger.Warningf("Fork is %d commit(s) behind %s", status.BehindBy, status.UpstreamRepo)
			}
			if status.AheadBy > 0 {
				o.UserLogger.Infof("Fork carries %d commit(s) of its own", status.AheadBy)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&remote, "remote", false, "compare against upstream via the GitHub API")
	return cmd
}
