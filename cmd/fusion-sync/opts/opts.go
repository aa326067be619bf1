// Package opts holds the wired-up dependencies shared by all commands.
package opts

import (
	"github.com/sandeepbazar/fusion-sync/pkg/config"
	"github.com/sandeepbazar/fusion-sync/pkg/log"
	"github.com/sandeepbazar/fusion-sync/pkg/operation"
)

// RootOpts contains everything a command needs to run.
type RootOpts struct {
	Config     *config.Config
	Operator   operation.Operator
	UserLogger *log.Logger
}
