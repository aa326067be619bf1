// Copyright 2025 Sandeep Bazar
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package operation sequences the upstream sync: precondition checks, the
// merge, the two hook patches, tests, and publishing. Each stage either
// advances or fails the whole run; nothing is rolled back, because the
// patches are idempotent and re-running is always safe.
package operation

import (
	"context"

	"github.com/sandeepbazar/fusion-sync/pkg/config"
	"github.com/sandeepbazar/fusion-sync/pkg/log"
	"github.com/sandeepbazar/fusion-sync/pkg/patch"
	"gitlab.com/tozd/go/errors"
)

// ErrPreconditionFailed means the repository is not in a state the sync is
// willing to touch (dirty tree, misconfigured remotes, unexpected changes).
var ErrPreconditionFailed = errors.New("precondition failed")

// 🎯 Operator defines the operations the CLI can run.
type Operator interface {
	// Sync runs the full pipeline: check, merge, patch, test, publish.
	Sync(ctx context.Context) error
	// Patch applies only the hook patches. With dryRun, nothing is written.
	Patch(ctx context.Context, dryRun bool) error
	// Status reports hook presence and working-tree state without mutating.
	Status(ctx context.Context) (*StatusReport, error)
}

// 🔧 VersionControl is the git surface the pipeline consumes.
type VersionControl interface {
	IsClean(ctx context.Context) (bool, error)
	StatusPorcelain(ctx context.Context) (string, error)
	DirtyPaths(ctx context.Context) ([]string, error)
	HasRemote(ctx context.Context, name, urlSubstring string) (bool, error)
	Remotes(ctx context.Context) (map[string]string, error)
	AddRemote(ctx context.Context, name, url string) error
	Fetch(ctx context.Context, remote string) error
	Checkout(ctx context.Context, branch string) error
	Merge(ctx context.Context, ref string) error
	StageAll(ctx context.Context) error
	Commit(ctx context.Context, message string) error
	Push(ctx context.Context, remote, branch string) error
}

// 🧪 TestRunner runs the fork's test suite.
type TestRunner interface {
	Run(ctx context.Context) error
}

// 💾 FileStore abstracts the working tree files the patches touch.
type FileStore interface {
	ReadFile(ctx context.Context, path string) ([]byte, error)
	WriteFileAtomic(ctx context.Context, path string, content []byte) error
	FileExists(ctx context.Context, path string) (bool, error)
}

// 🔧 Options contains the operator's collaborators.
type Options struct {
	Config     *config.Config
	Git        VersionControl
	Tests      TestRunner
	Files      FileStore
	UserLogger *log.Logger
	Force      bool // overrides Config.Force when true
}

// 🎮 operator implements the Operator interface
type operator struct {
	config *config.Config
	git    VersionControl
	tests  TestRunner
	files  FileStore
	rules  []patch.Rule
	ulog   *log.Logger
	force  bool
}

// 🏭 New creates a new operator with the given options.
func New(opts Options) (Operator, error) {
	if opts.Config == nil {
		return nil, errors.New("config is required")
	}
	if opts.Git == nil {
		return nil, errors.New("version control is required")
	}
	if opts.Tests == nil {
		return nil, errors.New("test runner is required")
	}
	if opts.Files == nil {
		return nil, errors.New("file store is required")
	}
	if opts.UserLogger == nil {
		return nil, errors.New("user logger is required")
	}
	return &operator{
		config: opts.Config,
		git:    opts.Git,
		tests:  opts.Tests,
		files:  opts.Files,
		rules:  patch.DefaultRules(),
		ulog:   opts.UserLogger,
		force:  opts.Force || opts.Config.Force,
	}, nil
}
