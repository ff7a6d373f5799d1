// Package files implements the File Toolkit (C3): list/read/write/exists/
// delete, all routed through the Path Sandbox (C1).
package files

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/nextlevelbuilder/vibeagent/internal/atomicfile"
	"github.com/nextlevelbuilder/vibeagent/internal/sandbox"
)

var ignoredDirs = map[string]bool{
	".git": true, "node_modules": true, "dist": true, "build": true,
	"coverage": true, ".next": true, ".turbo": true, ".idea": true, ".vscode": true,
}

const defaultMaxEntries = 2000

// Toolkit wraps a Sandbox to provide the C3 filesystem operations.
type Toolkit struct {
	sb *sandbox.Sandbox
}

// New returns a Toolkit confined to sb.
func New(sb *sandbox.Sandbox) *Toolkit {
	return &Toolkit{sb: sb}
}

// Entry is one listed filesystem entry.
type Entry struct {
	RelPath string
	IsDir   bool
}

// List performs a pre-order traversal from relPath (the workspace root when
// relPath is empty), sorted lexicographically
// at each level, pruning the fixed ignore set, honoring depth and a hard
// maxEntries cap. Directory entries carry a trailing slash in RelPath.
func (t *Toolkit) List(relPath string, depth, maxEntries int) ([]Entry, error) {
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}
	if depth <= 0 {
		depth = 1
	}
	if relPath == "" {
		relPath = "."
	}

	root, err := t.sb.ValidatePath(relPath, false)
	if err != nil {
		return nil, err
	}

	var out []Entry
	var walk func(dir string, relPrefix string, remainingDepth int) error
	walk = func(dir, relPrefix string, remainingDepth int) error {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return err
		}
		names := make([]string, 0, len(entries))
		byName := make(map[string]os.DirEntry, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
			byName[e.Name()] = e
		}
		sort.Strings(names)

		for _, name := range names {
			if len(out) >= maxEntries {
				return nil
			}
			e := byName[name]
			if e.IsDir() && ignoredDirs[name] {
				continue
			}
			rel := name
			if relPrefix != "" {
				rel = relPrefix + "/" + name
			}
			if e.IsDir() {
				out = append(out, Entry{RelPath: rel + "/", IsDir: true})
				if remainingDepth > 1 {
					if err := walk(filepath.Join(dir, name), rel, remainingDepth-1); err != nil {
						return err
					}
				}
			} else {
				out = append(out, Entry{RelPath: rel, IsDir: false})
			}
		}
		return nil
	}

	if err := walk(root, "", depth); err != nil {
		return nil, fmt.Errorf("files: list: %w", err)
	}
	if len(out) > maxEntries {
		out = out[:maxEntries]
	}
	return out, nil
}

// ReadSegment reads a UTF-8 file whole, then slices [startLine, endLine]
// inclusive (1-based; defaults are 1..total lines), clipping the result to
// maxChars with a visible truncation suffix.
func (t *Toolkit) ReadSegment(relPath string, startLine, endLine, maxChars int) (content string, truncated bool, err error) {
	abs, err := t.sb.ValidatePath(relPath, false)
	if err != nil {
		return "", false, err
	}
	raw, err := os.ReadFile(abs)
	if err != nil {
		return "", false, fmt.Errorf("files: read: %w", err)
	}
	lines := strings.Split(string(raw), "\n")
	total := len(lines)

	if startLine <= 0 {
		startLine = 1
	}
	if endLine <= 0 || endLine > total {
		endLine = total
	}
	if startLine > total {
		startLine = total
	}
	if startLine > endLine {
		return "", false, nil
	}

	sliced := strings.Join(lines[startLine-1:endLine], "\n")
	if maxChars > 0 && len(sliced) > maxChars {
		dropped := len(sliced) - maxChars
		sliced = sliced[:maxChars] + fmt.Sprintf("\n...<truncated %d bytes>", dropped)
		truncated = true
	}
	return sliced, truncated, nil
}

// Write creates parent directories as needed and writes content atomically.
// Callers (the orchestrator) are responsible for running the policy/secret
// gate before calling Write; this method performs no such gating itself.
func (t *Toolkit) Write(relPath, content string) error {
	abs, err := t.sb.ValidatePath(relPath, true)
	if err != nil {
		return err
	}
	if err := atomicfile.Write(abs, []byte(content), 0o644); err != nil {
		return fmt.Errorf("files: write: %w", err)
	}
	return nil
}

// Exists reports whether relPath exists inside the sandbox. A path escape is
// treated as non-existent rather than propagated, matching C3's contract
// that existence probes never throw.
func (t *Toolkit) Exists(relPath string) bool {
	abs, err := t.sb.ValidatePath(relPath, false)
	if err != nil {
		return false
	}
	_, statErr := os.Stat(abs)
	return statErr == nil
}

// ReadIfExists returns the file content, or "" if absent.
func (t *Toolkit) ReadIfExists(relPath string) (string, error) {
	abs, err := t.sb.ValidatePath(relPath, false)
	if err != nil {
		if !t.Exists(relPath) {
			return "", nil
		}
		return "", err
	}
	raw, err := os.ReadFile(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("files: read if exists: %w", err)
	}
	return string(raw), nil
}

// DeleteIfExists removes relPath if present; absent is a no-op.
func (t *Toolkit) DeleteIfExists(relPath string) error {
	abs, err := t.sb.ValidatePath(relPath, true)
	if err != nil {
		return nil
	}
	if err := os.Remove(abs); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("files: delete: %w", err)
	}
	return nil
}
