package operation

import (
	"context"
	"strings"
	"testing"

	"github.com/sandeepbazar/fusion-sync/pkg/gitcli"
	"github.com/sandeepbazar/fusion-sync/pkg/patch"
	"github.com/sandeepbazar/fusion-sync/pkg/testrun"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const toolsetsFixture = `package toolsets

func Register(toolset Toolset) {
	toolsets = append(toolsets, toolset)
}
`

const modulesFixture = `package mcp

import (
	_ "github.com/containers/kubernetes-mcp-server/pkg/toolsets/config"
	_ "github.com/containers/kubernetes-mcp-server/pkg/toolsets/core"
	_ "github.com/containers/kubernetes-mcp-server/pkg/toolsets/helm"
)
`

func unpatchedFiles() *memFileStore {
	return newMemFileStore(map[string]string{
		"pkg/toolsets/toolsets.go": toolsetsFixture,
		"pkg/mcp/modules.go":       modulesFixture,
	})
}

// happyGit wires a MockGit for a full successful run.
func happyGit() *MockGit {
	git := &MockGit{}
	git.On("IsClean", mock.Anything).Return(true, nil)
	git.On("HasRemote", mock.Anything, "origin", "sandeepbazar/ibm-fusion-mcp-server").Return(true, nil)
	git.On("Remotes", mock.Anything).Return(map[string]string{
		"origin":   "https://github.com/sandeepbazar/ibm-fusion-mcp-server.git",
		"upstream": "https://github.com/containers/kubernetes-mcp-server.git",
	}, nil)
	git.On("Fetch", mock.Anything, "upstream").Return(nil)
	git.On("Checkout", mock.Anything, "main").Return(nil)
	git.On("Merge", mock.Anything, "upstream/main").Return(nil)
	git.On("StatusPorcelain", mock.Anything).Return(" M pkg/toolsets/toolsets.go\n M pkg/mcp/modules.go\n", nil)
	git.On("DirtyPaths", mock.Anything).Return([]string{"pkg/toolsets/toolsets.go", "pkg/mcp/modules.go"}, nil)
	git.On("StageAll", mock.Anything).Return(nil)
	git.On("Commit", mock.Anything, mock.Anything).Return(nil)
	git.On("Push", mock.Anything, "origin", "main").Return(nil)
	return git
}

func passingTests() *MockTests {
	tests := &MockTests{}
	tests.On("Run", mock.Anything).Return(nil)
	return tests
}

func TestSync_HappyPath(t *testing.T) {
	git := happyGit()
	tests := passingTests()
	files := unpatchedFiles()

	op := newTestOperator(t, git, tests, files, false)
	require.NoError(t, op.Sync(context.Background()))

	// Both files were patched and written exactly once.
	assert.ElementsMatch(t, []string{"pkg/toolsets/toolsets.go", "pkg/mcp/modules.go"}, files.writes)
	assert.Contains(t, files.files["pkg/toolsets/toolsets.go"], "SetFusionRegistration")
	assert.Contains(t, files.files["pkg/mcp/modules.go"], "pkg/toolsets/fusion")

	git.AssertCalled(t, "Commit", mock.Anything,
		"chore(fusion): sync upstream and apply fusion integration hooks")
	git.AssertCalled(t, "Push", mock.Anything, "origin", "main")
	tests.AssertExpectations(t)
}

func TestSync_AlreadyPatched_NothingToCommit(t *testing.T) {
	git := happyGit()
	files := unpatchedFiles()

	// Pre-apply both patches so the pipeline finds nothing to do.
	for _, rule := range patch.DefaultRules() {
		result, err := patch.Apply(context.Background(), []byte(files.files[rule.TargetPath]), rule)
		require.NoError(t, err)
		files.files[rule.TargetPath] = string(result.ModifiedContent)
	}
	files.writes = nil

	// Publish sees a clean tree.
	git.ExpectedCalls = nil
	git.On("IsClean", mock.Anything).Return(true, nil)
	git.On("HasRemote", mock.Anything, "origin", mock.Anything).Return(true, nil)
	git.On("Remotes", mock.Anything).Return(map[string]string{
		"upstream": "https://github.com/containers/kubernetes-mcp-server.git",
	}, nil)
	git.On("Fetch", mock.Anything, "upstream").Return(nil)
	git.On("Checkout", mock.Anything, "main").Return(nil)
	git.On("Merge", mock.Anything, "upstream/main").Return(nil)
	git.On("StatusPorcelain", mock.Anything).Return("", nil)

	op := newTestOperator(t, git, passingTests(), files, false)
	require.NoError(t, op.Sync(context.Background()))

	assert.Empty(t, files.writes)
	git.AssertNotCalled(t, "Commit", mock.Anything, mock.Anything)
	git.AssertNotCalled(t, "Push", mock.Anything, mock.Anything, mock.Anything)
}

func TestSync_DirtyTree(t *testing.T) {
	git := &MockGit{}
	git.On("IsClean", mock.Anything).Return(false, nil)
	git.On("StatusPorcelain", mock.Anything).Return(" M random.txt\n", nil)

	op := newTestOperator(t, git, passingTests(), unpatchedFiles(), false)
	err := op.Sync(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPreconditionFailed)
	git.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything)
}

func TestSync_DirtyTree_Forced(t *testing.T) {
	git := happyGit()
	git.ExpectedCalls = nil
	git.On("IsClean", mock.Anything).Return(false, nil)
	git.On("HasRemote", mock.Anything, "origin", mock.Anything).Return(true, nil)
	git.On("Remotes", mock.Anything).Return(map[string]string{
		"upstream": "https://github.com/containers/kubernetes-mcp-server.git",
	}, nil)
	git.On("Fetch", mock.Anything, "upstream").Return(nil)
	git.On("Checkout", mock.Anything, "main").Return(nil)
	git.On("Merge", mock.Anything, "upstream/main").Return(nil)
	git.On("StatusPorcelain", mock.Anything).Return(" M pkg/toolsets/toolsets.go\n", nil)
	git.On("StageAll", mock.Anything).Return(nil)
	git.On("Commit", mock.Anything, mock.Anything).Return(nil)
	git.On("Push", mock.Anything, "origin", "main").Return(nil)

	op := newTestOperator(t, git, passingTests(), unpatchedFiles(), true)
	require.NoError(t, op.Sync(context.Background()))

	// The allowlist guard is bypassed under force.
	git.AssertNotCalled(t, "DirtyPaths", mock.Anything)
}

func TestSync_MisconfiguredOrigin(t *testing.T) {
	git := &MockGit{}
	git.On("IsClean", mock.Anything).Return(true, nil)
	git.On("HasRemote", mock.Anything, "origin", mock.Anything).Return(false, nil)

	op := newTestOperator(t, git, passingTests(), unpatchedFiles(), false)
	err := op.Sync(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPreconditionFailed)
	assert.Contains(t, err.Error(), "origin")
}

func TestSync_MissingUpstreamRemoteIsAdded(t *testing.T) {
	git := happyGit()
	git.ExpectedCalls = nil
	git.On("IsClean", mock.Anything).Return(true, nil)
	git.On("HasRemote", mock.Anything, "origin", mock.Anything).Return(true, nil)
	git.On("Remotes", mock.Anything).Return(map[string]string{}, nil)
	git.On("AddRemote", mock.Anything, "upstream",
		"https://github.com/containers/kubernetes-mcp-server.git").Return(nil)
	git.On("Fetch", mock.Anything, "upstream").Return(nil)
	git.On("Checkout", mock.Anything, "main").Return(nil)
	git.On("Merge", mock.Anything, "upstream/main").Return(nil)
	git.On("StatusPorcelain", mock.Anything).Return("", nil)

	op := newTestOperator(t, git, passingTests(), unpatchedFiles(), false)
	require.NoError(t, op.Sync(context.Background()))
	git.AssertExpectations(t)
}

func TestSync_UpstreamRemotePointsElsewhere(t *testing.T) {
	git := &MockGit{}
	git.On("IsClean", mock.Anything).Return(true, nil)
	git.On("HasRemote", mock.Anything, "origin", mock.Anything).Return(true, nil)
	git.On("Remotes", mock.Anything).Return(map[string]string{
		"upstream": "https://github.com/someone-else/other-repo.git",
	}, nil)

	op := newTestOperator(t, git, passingTests(), unpatchedFiles(), false)
	err := op.Sync(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPreconditionFailed)
	git.AssertNotCalled(t, "AddRemote", mock.Anything, mock.Anything, mock.Anything)
}

func TestSync_MergeConflict(t *testing.T) {
	git := happyGit()
	git.ExpectedCalls = nil
	git.On("IsClean", mock.Anything).Return(true, nil)
	git.On("HasRemote", mock.Anything, "origin", mock.Anything).Return(true, nil)
	git.On("Remotes", mock.Anything).Return(map[string]string{
		"upstream": "https://github.com/containers/kubernetes-mcp-server.git",
	}, nil)
	git.On("Fetch", mock.Anything, "upstream").Return(nil)
	git.On("Checkout", mock.Anything, "main").Return(nil)
	git.On("Merge", mock.Anything, "upstream/main").Return(gitcli.ErrMergeConflict)

	files := unpatchedFiles()
	op := newTestOperator(t, git, passingTests(), files, false)
	err := op.Sync(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, gitcli.ErrMergeConflict)

	// Nothing was patched after the failed merge.
	assert.Empty(t, files.writes)
}

func TestSync_PatchStructureFailure(t *testing.T) {
	git := happyGit()
	files := newMemFileStore(map[string]string{
		"pkg/toolsets/toolsets.go": toolsetsFixture,
		// modules.go lost its import block upstream
		"pkg/mcp/modules.go": "package mcp\n",
	})

	op := newTestOperator(t, git, passingTests(), files, false)
	err := op.Sync(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, patch.ErrStructureNotFound)
	assert.Contains(t, err.Error(), "patch-modules")

	// modules.go was never written, and the run stopped before testing.
	assert.NotContains(t, files.writes, "pkg/mcp/modules.go")
	git.AssertNotCalled(t, "Commit", mock.Anything, mock.Anything)
}

func TestSync_MissingTargetFile(t *testing.T) {
	git := happyGit()
	files := newMemFileStore(map[string]string{
		"pkg/mcp/modules.go": modulesFixture,
	})

	op := newTestOperator(t, git, passingTests(), files, false)
	err := op.Sync(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, patch.ErrStructureNotFound)
	assert.Contains(t, err.Error(), "pkg/toolsets/toolsets.go")
}

func TestSync_TestFailure(t *testing.T) {
	git := happyGit()
	tests := &MockTests{}
	tests.On("Run", mock.Anything).Return(testrun.ErrTestFailure)

	op := newTestOperator(t, git, tests, unpatchedFiles(), false)
	err := op.Sync(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, testrun.ErrTestFailure)
	git.AssertNotCalled(t, "Commit", mock.Anything, mock.Anything)
	git.AssertNotCalled(t, "Push", mock.Anything, mock.Anything, mock.Anything)
}

func TestSync_UnexpectedDirtyPath(t *testing.T) {
	git := happyGit()
	git.ExpectedCalls = nil
	git.On("IsClean", mock.Anything).Return(true, nil)
	git.On("HasRemote", mock.Anything, "origin", mock.Anything).Return(true, nil)
	git.On("Remotes", mock.Anything).Return(map[string]string{
		"upstream": "https://github.com/containers/kubernetes-mcp-server.git",
	}, nil)
	git.On("Fetch", mock.Anything, "upstream").Return(nil)
	git.On("Checkout", mock.Anything, "main").Return(nil)
	git.On("Merge", mock.Anything, "upstream/main").Return(nil)
	git.On("StatusPorcelain", mock.Anything).Return(" M pkg/toolsets/toolsets.go\n?? scratch.txt\n", nil)
	git.On("DirtyPaths", mock.Anything).Return([]string{"pkg/toolsets/toolsets.go", "scratch.txt"}, nil)

	op := newTestOperator(t, git, passingTests(), unpatchedFiles(), false)
	err := op.Sync(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPreconditionFailed)
	assert.Contains(t, err.Error(), "scratch.txt")
	git.AssertNotCalled(t, "StageAll", mock.Anything)
}

func TestSync_PushRejected(t *testing.T) {
	git := happyGit()
	git.ExpectedCalls = nil
	git.On("IsClean", mock.Anything).Return(true, nil)
	git.On("HasRemote", mock.Anything, "origin", mock.Anything).Return(true, nil)
	git.On("Remotes", mock.Anything).Return(map[string]string{
		"upstream": "https://github.com/containers/kubernetes-mcp-server.git",
	}, nil)
	git.On("Fetch", mock.Anything, "upstream").Return(nil)
	git.On("Checkout", mock.Anything, "main").Return(nil)
	git.On("Merge", mock.Anything, "upstream/main").Return(nil)
	git.On("StatusPorcelain", mock.Anything).Return(" M pkg/toolsets/toolsets.go\n M pkg/mcp/modules.go\n", nil)
	git.On("DirtyPaths", mock.Anything).Return([]string{"pkg/toolsets/toolsets.go", "pkg/mcp/modules.go"}, nil)
	git.On("StageAll", mock.Anything).Return(nil)
	git.On("Commit", mock.Anything, mock.Anything).Return(nil)
	git.On("Push", mock.Anything, "origin", "main").Return(gitcli.ErrPushRejected)

	op := newTestOperator(t, git, passingTests(), unpatchedFiles(), false)
	err := op.Sync(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, gitcli.ErrPushRejected)
	// The commit happened; only the push failed.
	git.AssertCalled(t, "Commit", mock.Anything, mock.Anything)
}

func TestPatch(t *testing.T) {
	files := unpatchedFiles()
	op := newTestOperator(t, &MockGit{}, passingTests(), files, false)

	require.NoError(t, op.Patch(context.Background(), false))
	assert.Len(t, files.writes, 2)
	assert.Contains(t, files.files["pkg/toolsets/toolsets.go"], "registerFusionTools")

	// Second run changes nothing.
	files.writes = nil
	require.NoError(t, op.Patch(context.Background(), false))
	assert.Empty(t, files.writes)
}

func TestPatch_DryRun(t *testing.T) {
	files := unpatchedFiles()
	op := newTestOperator(t, &MockGit{}, passingTests(), files, false)

	require.NoError(t, op.Patch(context.Background(), true))
	assert.Empty(t, files.writes)
	assert.NotContains(t, files.files["pkg/toolsets/toolsets.go"], "registerFusionTools")
}

func TestStatus(t *testing.T) {
	git := &MockGit{}
	git.On("IsClean", mock.Anything).Return(true, nil)

	files := unpatchedFiles()
	op := newTestOperator(t, git, passingTests(), files, false)

	report, err := op.Status(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Clean)
	assert.False(t, report.FullyPatched())
	require.Len(t, report.Hooks, 2)

	// Patch, then status flips.
	require.NoError(t, op.Patch(context.Background(), false))
	report, err = op.Status(context.Background())
	require.NoError(t, err)
	assert.True(t, report.FullyPatched())
	for _, h := range report.Hooks {
		assert.True(t, h.Installed, h.Rule)
		assert.False(t, h.FileMissing)
	}
}

func TestStatus_MissingFile(t *testing.T) {
	git := &MockGit{}
	git.On("IsClean", mock.Anything).Return(false, nil)

	files := newMemFileStore(map[string]string{
		"pkg/mcp/modules.go": modulesFixture,
	})
	op := newTestOperator(t, git, passingTests(), files, false)

	report, err := op.Status(context.Background())
	require.NoError(t, err)
	assert.False(t, report.Clean)
	assert.False(t, report.FullyPatched())

	var missing int
	for _, h := range report.Hooks {
		if h.FileMissing {
			missing++
			assert.Equal(t, "pkg/toolsets/toolsets.go", h.Path)
		}
	}
	assert.Equal(t, 1, missing)
}

func TestStageString(t *testing.T) {
	for s := StageCheckClean; s <= StageFailed; s++ {
		assert.NotEqual(t, "unknown", s.String())
	}
	assert.Equal(t, "unknown", Stage(99).String())
	assert.True(t, strings.HasPrefix(StagePatchToolsets.String(), "patch-"))
}
