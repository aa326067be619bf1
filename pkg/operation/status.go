package operation

import (
	"context"
)

// 📄 HookStatus reports whether one hook is installed in its target file.
type HookStatus struct {
	Rule        string // Rule name
	Path        string // Target file path
	FileMissing bool   // Target file does not exist
	Installed   bool   // Presence predicate holds
}

// 📊 StatusReport is the result of a read-only inspection of the tree.
type StatusReport struct {
	Clean bool // Working tree has no uncommitted changes
	Hooks []HookStatus
}

// FullyPatched reports whether every hook is installed.
func (r *StatusReport) FullyPatched() bool {
	for _, h := range r.Hooks {
		if !h.Installed {
			return false
		}
	}
	return true
}

// Status implements Operator.Status. It never mutates anything.
func (o *operator) Status(ctx context.Context) (*StatusReport, error) {
	clean, err := o.git.IsClean(ctx)
	if err != nil {
		return nil, err
	}

	report := &StatusReport{Clean: clean}
	for _, rule := range o.rules {
		status := HookStatus{Rule: rule.Name, Path: rule.TargetPath}

		exists, err := o.files.FileExists(ctx, rule.TargetPath)
		if err != nil {
			return nil, err
		}
		if !exists {
			status.FileMissing = true
			report.Hooks = append(report.Hooks, status)
			continue
		}

		content, err := o.files.ReadFile(ctx, rule.TargetPath)
		if err != nil {
			return nil, err
		}
		status.Installed = rule.Installed(string(content))
		report.Hooks = append(report.Hooks, status)
	}
	return report, nil
}
