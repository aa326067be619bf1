// Package patch re-inserts the Fusion integration hooks into upstream-sourced
// files after a merge. Every rule is idempotent: applying it to a file that
// already carries the hook is a no-op, so the whole sync can be re-run safely
// after any failure.
package patch

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

var (
	// ErrStructureNotFound means the target file no longer has the shape the
	// rule expects (e.g. no import block). Upstream changed significantly.
	ErrStructureNotFound = errors.New("expected file structure not found")

	// ErrAnchorNotFound means the block was found but none of the rule's
	// anchor lines exist inside it, so there is no safe insertion point.
	ErrAnchorNotFound = errors.New("no anchor line found for insertion")
)

// 🎯 Rule describes one idempotent hook insertion against a known file.
type Rule struct {
	Name            string   // Short identifier used in errors and logs
	TargetPath      string   // Repo-relative path of the file this rule patches
	PresenceMarkers []string // All must be present for the hook to count as installed
	Strategy        Strategy // How the hook is inserted when absent
}

// 🔧 Strategy computes the new file text with the hook inserted.
type Strategy interface {
	apply(text string) (string, error)
}

// 📄 Result holds the outcome of applying a rule to a file's content.
type Result struct {
	OriginalContent []byte // Content as read
	ModifiedContent []byte // Content after the rule was applied
	WasModified     bool   // Whether the rule changed anything
}

// Installed reports whether the rule's presence predicate holds for text.
func (r Rule) Installed(text string) bool {
	for _, marker := range r.PresenceMarkers {
		if !strings.Contains(text, marker) {
			return false
		}
	}
	return true
}

// Apply evaluates the rule's presence predicate against content and, if the
// hook is absent, computes the new content with the hook inserted. content is
// never mutated; on error no modified content is produced at all, so callers
// cannot accidentally write a half-patched file.
func Apply(ctx context.Context, content []byte, rule Rule) (*Result, error) {
	logger := zerolog.Ctx(ctx)

	text := string(content)
	result := &Result{
		OriginalContent: content,
		ModifiedContent: content,
	}

	if rule.Installed(text) {
		logger.Debug().Str("rule", rule.Name).Msg("hook already present, skipping")
		return result, nil
	}

	newText, err := rule.Strategy.apply(text)
	if err != nil {
		return nil, errors.Errorf("applying rule %s to %s: %w", rule.Name, rule.TargetPath, err)
	}

	logger.Debug().
		Str("rule", rule.Name).
		Str("target", rule.TargetPath).
		Int("old_bytes", len(content)).
		Int("new_bytes", len(newText)).
		Msg("hook inserted")

	result.ModifiedContent = []byte(newText)
	result.WasModified = true
	return result, nil
}

// 📦 AppendBlock appends a fixed block of code at the end of the file.
type AppendBlock struct {
	Block string // Appended verbatim after ensuring one trailing newline
}

func (s AppendBlock) apply(text string) (string, error) {
	// Ensure exactly one line terminator before the block. An empty file
	// needs no separator.
	if text != "" && !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	return text + s.Block, nil
}

// 📌 InsertLine inserts a fixed line inside a bounded block, adjacent to a
// known anchor line, preserving the stable ordering of the block's entries.
type InsertLine struct {
	OpenMarker  string // Substring identifying the line that opens the block
	CloseMarker string // Substring identifying the line that closes the block
	After       string // Preferred predecessor: insert Line right after this
	Before      string // Fallback successor: insert Line right before this
	Line        string // The line to insert, verbatim
}

func (s InsertLine) apply(text string) (string, error) {
	lines := strings.Split(text, "\n")

	open, end := -1, -1
	for i, line := range lines {
		if open == -1 {
			if strings.Contains(line, s.OpenMarker) {
				open = i
			}
			continue
		}
		if strings.Contains(line, s.CloseMarker) {
			end = i
			break
		}
	}
	if open == -1 || end == -1 {
		return "", errors.Errorf("block %q..%q: %w", s.OpenMarker, s.CloseMarker, ErrStructureNotFound)
	}

	insertAt := -1
	for i := open + 1; i < end; i++ {
		if strings.Contains(lines[i], s.After) {
			insertAt = i + 1
			break
		}
	}
	if insertAt == -1 {
		for i := open + 1; i < end; i++ {
			if strings.Contains(lines[i], s.Before) {
				insertAt = i
				break
			}
		}
	}
	if insertAt == -1 {
		return "", errors.Errorf("block %q..%q has neither %q nor %q: %w",
			s.OpenMarker, s.CloseMarker, s.After, s.Before, ErrAnchorNotFound)
	}

	out := make([]string, 0, len(lines)+1)
	out = append(out, lines[:insertAt]...)
	out = append(out, s.Line)
	out = append(out, lines[insertAt:]...)
	return strings.Join(out, "\n"), nil
}
