// Package atomicfile provides the single shared atomic-write primitive used
// by the persisted stores in vibeagent (config, policy, memory, index) and by
// the file toolkit's writes. The audit log appends to its file directly.
package atomicfile

import (
	"fmt"
	"os"
	"path/filepath"
)

// Write writes data to path atomically: a temp file in the same directory is
// written, synced, closed, chmod'd, then renamed over path. The containing
// directory is synced on a best-effort basis after rename.
func Write(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("atomicfile: ensure directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("atomicfile: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("atomicfile: write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("atomicfile: sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("atomicfile: close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("atomicfile: chmod temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("atomicfile: rename temp file: %w", err)
	}

	if f, err := os.Open(dir); err == nil {
		_ = f.Sync()
		_ = f.Close()
	}

	return nil
}

// WriteWithBackup writes data atomically, first copying any existing file at
// path to path+".bak" (also atomically). Used by stores where a recoverable
// backup matters more than minimizing write volume.
func WriteWithBackup(path string, data []byte, perm os.FileMode) error {
	if old, err := os.ReadFile(path); err == nil {
		if err := Write(path+".bak", old, perm); err != nil {
			return fmt.Errorf("atomicfile: write backup: %w", err)
		}
	}
	return Write(path, data, perm)
}
