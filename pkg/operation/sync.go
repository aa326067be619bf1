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

package operation

import (
	"context"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
	"github.com/sandeepbazar/fusion-sync/pkg/log"
	"github.com/sandeepbazar/fusion-sync/pkg/patch"
	"gitlab.com/tozd/go/errors"
)

// step pairs a pipeline stage with its implementation.
type step struct {
	stage Stage
	run   func(ctx context.Context) error
}

// Sync implements Operator.Sync: the full pipeline from precondition checks
// to push, failing fast on the first error.
func (o *operator) Sync(ctx context.Context) error {
	logger := zerolog.Ctx(ctx)

	steps := []step{
		{StageCheckClean, o.checkClean},
		{StageCheckRemotes, o.checkRemotes},
		{StageSync, o.syncUpstream},
		{StagePatchToolsets, o.applyRuleStep(0)},
		{StagePatchModules, o.applyRuleStep(1)},
		{StageTest, o.runTests},
		{StagePublish, o.publish},
	}

	for _, s := range steps {
		logger.Debug().Stringer("stage", s.stage).Msg("entering stage")
		if err := s.run(ctx); err != nil {
			logger.Debug().Stringer("stage", s.stage).Err(err).Msg("stage failed")
			return errors.Errorf("stage %s: %w", s.stage, err)
		}
	}

	o.ulog.Header("SYNC COMPLETE")
	o.ulog.Success("Synced with upstream")
	o.ulog.Success("Applied Fusion integration hooks")
	o.ulog.Success("Tests passed")
	o.ulog.Success("Changes committed and pushed")
	return nil
}

// Patch implements Operator.Patch: only the hook patches, no git, no tests.
func (o *operator) Patch(ctx context.Context, dryRun bool) error {
	o.ulog.Header("APPLYING FUSION PATCHES")
	for _, rule := range o.rules {
		if err := o.applyRule(ctx, rule, dryRun); err != nil {
			return err
		}
	}
	if dryRun {
		o.ulog.Info("Dry run, no files were written")
		return nil
	}
	o.ulog.Success("All patches applied successfully")
	return nil
}

// checkClean verifies the working tree has no uncommitted changes, unless
// force is set.
func (o *operator) checkClean(ctx context.Context) error {
	o.ulog.Info("Checking git working tree status...")

	clean, err := o.git.IsClean(ctx)
	if err != nil {
		return err
	}
	if clean {
		o.ulog.Success("Working tree is clean")
		return nil
	}

	if o.force {
		o.ulog.Warning("Working tree has uncommitted changes, but force is set")
		return nil
	}

	o.ulog.Error("Working tree has uncommitted changes!")
	o.ulog.Error("Commit or stash your changes first, or use --force")
	if status, statusErr := o.git.StatusPorcelain(ctx); statusErr == nil {
		o.ulog.Plain(status)
	}
	return errors.Errorf("working tree has uncommitted changes: %w", ErrPreconditionFailed)
}

// checkRemotes verifies origin points at the fork and ensures the upstream
// remote exists, adding it when missing.
func (o *operator) checkRemotes(ctx context.Context) error {
	o.ulog.Info("Checking git remotes...")

	origin := o.config.Origin
	ok, err := o.git.HasRemote(ctx, origin.Name, origin.Repo)
	if err != nil {
		return err
	}
	if !ok {
		o.ulog.Errorf("Remote %q not configured correctly!", origin.Name)
		o.ulog.Errorf("Expected a URL containing %q", origin.Repo)
		return errors.Errorf("remote %s misconfigured, expected %s: %w",
			origin.Name, origin.Repo, ErrPreconditionFailed)
	}

	upstream := o.config.Upstream
	remotes, err := o.git.Remotes(ctx)
	if err != nil {
		return err
	}
	url, exists := remotes[upstream.Name]
	switch {
	case exists && strings.Contains(url, upstream.Repo):
		// configured correctly
	case exists:
		o.ulog.Errorf("Remote %q points at %s, expected %s", upstream.Name, url, upstream.Repo)
		return errors.Errorf("remote %s misconfigured, expected %s: %w",
			upstream.Name, upstream.Repo, ErrPreconditionFailed)
	case upstream.URL == "":
		return errors.Errorf("remote %s missing and no URL configured to add it: %w",
			upstream.Name, ErrPreconditionFailed)
	default:
		o.ulog.Warningf("Remote %q not configured!", upstream.Name)
		o.ulog.Info("Adding upstream remote...")
		if err := o.git.AddRemote(ctx, upstream.Name, upstream.URL); err != nil {
			return err
		}
		o.ulog.Successf("Added remote %q", upstream.Name)
	}

	o.ulog.Success("Git remotes configured correctly")
	return nil
}

// syncUpstream fetches upstream and merges it into the local branch.
func (o *operator) syncUpstream(ctx context.Context) error {
	o.ulog.Header("SYNCING WITH UPSTREAM")
	upstream := o.config.Upstream
	branch := o.config.Branch

	o.ulog.Info("Fetching upstream...")
	if err := o.git.Fetch(ctx, upstream.Name); err != nil {
		return err
	}
	o.ulog.Success("Fetched upstream")

	o.ulog.Infof("Checking out %s branch...", branch)
	if err := o.git.Checkout(ctx, branch); err != nil {
		return err
	}
	o.ulog.Successf("On %s branch", branch)

	ref := upstream.Name + "/" + branch
	o.ulog.Infof("Merging %s...", ref)
	if err := o.git.Merge(ctx, ref); err != nil {
		o.ulog.Error("Merge conflicts detected!")
		o.ulog.Error("Resolve conflicts manually and run this tool again")
		return err
	}
	o.ulog.Successf("Merged %s successfully", ref)
	return nil
}

// applyRuleStep adapts one patch rule into a pipeline step. The two rules are
// distinct stages so a structural failure names exactly what broke.
func (o *operator) applyRuleStep(i int) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if i == 0 {
			o.ulog.Header("APPLYING FUSION PATCHES")
		}
		return o.applyRule(ctx, o.rules[i], false)
	}
}

// applyRule applies one patch rule to its target file. The file is written
// only after the complete new text has been computed.
func (o *operator) applyRule(ctx context.Context, rule patch.Rule, dryRun bool) error {
	exists, err := o.files.FileExists(ctx, rule.TargetPath)
	if err != nil {
		return err
	}
	if !exists {
		o.ulog.Errorf("File not found: %s", rule.TargetPath)
		o.ulog.Error("Upstream structure may have changed significantly!")
		return errors.Errorf("target file %s not found: %w", rule.TargetPath, patch.ErrStructureNotFound)
	}

	content, err := o.files.ReadFile(ctx, rule.TargetPath)
	if err != nil {
		return err
	}

	result, err := patch.Apply(ctx, content, rule)
	if err != nil {
		o.ulog.Errorf("Could not patch %s", rule.TargetPath)
		o.ulog.Error("Upstream structure may have changed significantly!")
		return err
	}

	if result.WasModified && !dryRun {
		if err := o.files.WriteFileAtomic(ctx, rule.TargetPath, result.ModifiedContent); err != nil {
			return err
		}
	}

	o.ulog.LogPatchOperation(ctx, log.PatchOperation{
		Rule:    rule.Name,
		Path:    rule.TargetPath,
		Changed: result.WasModified,
	})
	return nil
}

// runTests runs the configured test command.
func (o *operator) runTests(ctx context.Context) error {
	o.ulog.Header("RUNNING TESTS")
	o.ulog.Infof("Running: %s", strings.Join(o.config.TestCommand, " "))

	if err := o.tests.Run(ctx); err != nil {
		o.ulog.Error("Tests failed!")
		o.ulog.Warning("Patches were applied; fix test failures before re-running")
		return err
	}
	o.ulog.Success("All tests passed")
	return nil
}

// publish commits and pushes whatever the patches changed. An unexpected
// dirty path outside the allowlist aborts before anything is staged.
func (o *operator) publish(ctx context.Context) error {
	o.ulog.Header("COMMITTING CHANGES")

	status, err := o.git.StatusPorcelain(ctx)
	if err != nil {
		return err
	}
	if strings.TrimSpace(status) == "" {
		o.ulog.Info("No changes to commit")
		return nil
	}

	o.ulog.Info("Changes detected:")
	o.ulog.Plain(status)

	if !o.force {
		paths, err := o.git.DirtyPaths(ctx)
		if err != nil {
			return err
		}
		if err := o.checkAllowedChanges(paths); err != nil {
			return err
		}
	}

	o.ulog.Info("Adding changes...")
	if err := o.git.StageAll(ctx); err != nil {
		return err
	}

	o.ulog.Info("Committing changes...")
	if err := o.git.Commit(ctx, o.config.CommitMessage); err != nil {
		return err
	}
	o.ulog.Success("Changes committed")

	origin := o.config.Origin
	o.ulog.Infof("Pushing to %s %s...", origin.Name, o.config.Branch)
	if err := o.git.Push(ctx, origin.Name, o.config.Branch); err != nil {
		o.ulog.Error("Push failed!")
		o.ulog.Warning("Changes are committed locally; push manually once resolved")
		return err
	}
	o.ulog.Successf("Pushed to %s %s", origin.Name, o.config.Branch)
	return nil
}

// checkAllowedChanges verifies every dirty path matches one of the configured
// allowlist globs. The sync is only ever supposed to touch the patch targets;
// anything else means something unexpected happened to the tree.
func (o *operator) checkAllowedChanges(paths []string) error {
	for _, path := range paths {
		allowed := false
		for _, glob := range o.config.AllowedChangeGlobs {
			if ok, err := doublestar.Match(glob, path); err == nil && ok {
				allowed = true
				break
			}
		}
		if !allowed {
			o.ulog.Errorf("Unexpected change outside the patch targets: %s", path)
			o.ulog.Error("Commit it yourself or re-run with --force")
			return errors.Errorf("unexpected modified path %s: %w", path, ErrPreconditionFailed)
		}
	}
	return nil
}
