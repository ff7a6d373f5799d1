// Package changetracker implements the Change Tracker (C9): per-task
// first-observation-wins snapshots of files touched during a run, used to
// detect whether anything changed and to roll the workspace back to its
// pre-task state. The first-observation-wins rule and reverse-insertion-order
// rollback are grounded in the checkpoint/rewind discipline of the pack's
// cli-coding-agent.
package changetracker

import (
	"github.com/nextlevelbuilder/vibeagent/internal/files"
)

// snapshot is the tracked before/after state of one file.
type snapshot struct {
	path          string
	existedBefore bool
	beforeBytes   []byte
	afterBytes    []byte
	afterSet      bool
}

// Tracker records before/after snapshots for one task. It is not safe for
// concurrent use; the orchestrator's loop body is strictly serial.
type Tracker struct {
	order []string
	byPath map[string]*snapshot
}

// New returns an empty Tracker.
func New() *Tracker {
	return &Tracker{byPath: map[string]*snapshot{}}
}

// RecordBefore captures path's pre-change state. It is a no-op if path is
// already tracked, so the recorded "before" is always the first observation
// in the task, never a mid-task state.
func (t *Tracker) RecordBefore(path string, existed bool, beforeBytes []byte) {
	if _, ok := t.byPath[path]; ok {
		return
	}
	cp := append([]byte(nil), beforeBytes...)
	t.byPath[path] = &snapshot{path: path, existedBefore: existed, beforeBytes: cp}
	t.order = append(t.order, path)
}

// RecordAfter updates path's post-change state. RecordBefore must have been
// called for path first; if not, RecordAfter is a no-op.
func (t *Tracker) RecordAfter(path string, afterBytes []byte) {
	s, ok := t.byPath[path]
	if !ok {
		return
	}
	s.afterBytes = append([]byte(nil), afterBytes...)
	s.afterSet = true
}

// HasChanges reports whether any tracked file's before and after content
// differ.
func (t *Tracker) HasChanges() bool {
	for _, path := range t.order {
		s := t.byPath[path]
		if s.afterSet && string(s.beforeBytes) != string(s.afterBytes) {
			return true
		}
	}
	return false
}

// Change is one file's recorded before/after content, in insertion order.
type Change struct {
	Path          string
	ExistedBefore bool
	Before        string
	After         string
}

// Changes returns every tracked file whose before and after content differ,
// in the order they were first touched.
func (t *Tracker) Changes() []Change {
	var out []Change
	for _, path := range t.order {
		s := t.byPath[path]
		if !s.afterSet || string(s.beforeBytes) == string(s.afterBytes) {
			continue
		}
		out = append(out, Change{
			Path:          path,
			ExistedBefore: s.existedBefore,
			Before:        string(s.beforeBytes),
			After:         string(s.afterBytes),
		})
	}
	return out
}

// Rollback restores every tracked file to its before-task state, in reverse
// insertion order, then returns the restored paths re-reversed back to
// chronological order.
func (t *Tracker) Rollback(tk *files.Toolkit) ([]string, error) {
	var restored []string
	for i := len(t.order) - 1; i >= 0; i-- {
		path := t.order[i]
		s := t.byPath[path]
		if s.existedBefore {
			if err := tk.Write(path, string(s.beforeBytes)); err != nil {
				return nil, err
			}
		} else {
			if err := tk.DeleteIfExists(path); err != nil {
				return nil, err
			}
		}
		restored = append(restored, path)
	}

	for i, j := 0, len(restored)-1; i < j; i, j = i+1, j-1 {
		restored[i], restored[j] = restored[j], restored[i]
	}
	return restored, nil
}
