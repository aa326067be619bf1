package main

import (
	"context"
	"os"

	"github.com/rs/zerolog"
	"github.com/sandeepbazar/fusion-sync/cmd/fusion-sync/commands"
	"github.com/sandeepbazar/fusion-sync/cmd/fusion-sync/opts"
	"github.com/sandeepbazar/fusion-sync/pkg/config"
	"github.com/sandeepbazar/fusion-sync/pkg/gitcli"
	"github.com/sandeepbazar/fusion-sync/pkg/log"
	"github.com/sandeepbazar/fusion-sync/pkg/operation"
	"github.com/sandeepbazar/fusion-sync/pkg/testrun"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"
)

var (
	// Flags
	configFile string
	debug      bool
	force      bool
)

// newRootOpts creates a new RootOpts with initialized dependencies.
func newRootOpts(ctx context.Context) (*opts.RootOpts, error) {
	userLogger := log.New(os.Stdout, logLevel())

	cfg, err := config.Load(ctx, configFile)
	if err != nil {
		return nil, errors.Errorf("loading config: %w", err)
	}

	op, err := operation.New(operation.Options{
		Config:     cfg,
		Git:        gitcli.New(""),
		Tests:      testrun.New("", cfg.TestCommand),
		Files:      operation.NewFileStore("."),
		UserLogger: userLogger,
		Force:      force,
	})
	if err != nil {
		return nil, errors.Errorf("creating operator: %w", err)
	}

	return &opts.RootOpts{
		Config:     cfg,
		Operator:   op,
		UserLogger: userLogger,
	}, nil
}

// newRootCmd creates the root command, which runs the full sync.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fusion-sync",
		Short: "Sync the IBM Fusion MCP fork with upstream and reapply the integration hooks",
		Long: `fusion-sync keeps the ibm-fusion-mcp-server fork in step with upstream
kubernetes-mcp-server. It will:
1. Verify the working tree is clean and the remotes are configured
2. Fetch and merge upstream
3. Reapply the Fusion integration hooks (idempotent)
4. Run the test suite
5. Commit and push the result`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			o, err := newRootOpts(ctx)
			if err != nil {
				return err
			}

			o.UserLogger.Header("IBM FUSION MCP SERVER - UPSTREAM SYNC")
			if err := o.Operator.Sync(ctx); err != nil {
				o.UserLogger.Errorf("Sync failed: %s", err.Error())
				return err
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&configFile, "config", "c", config.DefaultPath, "config file path")
	cmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug logging")
	cmd.Flags().BoolVar(&force, "force", false, "proceed despite uncommitted local modifications")

	cmd.AddCommand(commands.NewStatusCmd(newRootOpts))
	cmd.AddCommand(commands.NewPatchCmd(newRootOpts))
	return cmd
}

func logLevel() zerolog.Level {
	if debug {
		return zerolog.DebugLevel
	}
	return zerolog.InfoLevel
}

// setupLogging configures zerolog based on flags.
func setupLogging() {
	zerolog.SetGlobalLevel(logLevel())
	zlog := zerolog.New(os.Stderr).With().Timestamp().Logger()
	zerolog.DefaultContextLogger = &zlog
}
