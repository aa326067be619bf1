package operation

// 📊 Stage identifies one step of the sync pipeline. Stages run strictly in
// order; the first failure halts the run.
type Stage int

const (
	StageCheckClean Stage = iota
	StageCheckRemotes
	StageSync
	StagePatchToolsets
	StagePatchModules
	StageTest
	StagePublish
	StageDone
	StageFailed
)

// String returns a string representation of Stage
func (s Stage) String() string {
	switch s {
	case StageCheckClean:
		return "check-clean"
	case StageCheckRemotes:
		return "check-remotes"
	case StageSync:
		return "sync"
	case StagePatchToolsets:
		return "patch-toolsets"
	case StagePatchModules:
		return "patch-modules"
	case StageTest:
		return "test"
	case StagePublish:
		return "publish"
	case StageDone:
		return "done"
	case StageFailed:
		return "failed"
	default:
		return "unknown"
	}
}
