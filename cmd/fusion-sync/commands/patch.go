package commands

import (
	"context"

	"github.com/sandeepbazar/fusion-sync/cmd/fusion-sync/opts"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"
)

// NewPatchCmd creates a new patch command.
func NewPatchCmd(newOpts func(ctx context.Context) (*opts.RootOpts, error)) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "patch",
		Short: "Reapply the Fusion integration hooks without syncing or publishing",
		Long: `Patch applies only the hook insertions. No git operations, no tests,
no commit. Useful after resolving a merge conflict by hand, or to verify the
patches still fit the current upstream layout (with --dry-run).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			o, err := newOpts(ctx)
			if err != nil {
				return err
			}

			if err := o.Operator.Patch(ctx, dryRun); err != nil {
				return errors.Errorf("applying patches: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what would change without writing files")
	return cmd
}
