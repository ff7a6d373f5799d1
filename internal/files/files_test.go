package files

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nextlevelbuilder/vibeagent/internal/sandbox"
)

func newToolkit(t *testing.T) (*Toolkit, string) {
	t.Helper()
	root := t.TempDir()
	sb, err := sandbox.New(root)
	if err != nil {
		t.Fatalf("new sandbox: %v", err)
	}
	return New(sb), root
}

func TestWriteThenReadSegment(t *testing.T) {
	tk, _ := newToolkit(t)
	if err := tk.Write("a/b.txt", "line1\nline2\nline3"); err != nil {
		t.Fatalf("write: %v", err)
	}
	content, truncated, err := tk.ReadSegment("a/b.txt", 2, 3, 0)
	if err != nil {
		t.Fatalf("read segment: %v", err)
	}
	if truncated {
		t.Fatal("did not expect truncation")
	}
	if content != "line2\nline3" {
		t.Fatalf("unexpected content: %q", content)
	}
}

func TestReadSegmentClipsWithMarker(t *testing.T) {
	tk, _ := newToolkit(t)
	if err := tk.Write("big.txt", "0123456789"); err != nil {
		t.Fatalf("write: %v", err)
	}
	content, truncated, err := tk.ReadSegment("big.txt", 1, 1, 4)
	if err != nil {
		t.Fatalf("read segment: %v", err)
	}
	if !truncated {
		t.Fatal("expected truncation")
	}
	if content[:4] != "0123" {
		t.Fatalf("unexpected clipped content: %q", content)
	}
}

func TestExistsAndDeleteIfExists(t *testing.T) {
	tk, root := newToolkit(t)
	if tk.Exists("missing.txt") {
		t.Fatal("missing file should not exist")
	}
	if err := tk.Write("present.txt", "x"); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !tk.Exists("present.txt") {
		t.Fatal("written file should exist")
	}
	if err := tk.DeleteIfExists("present.txt"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "present.txt")); !os.IsNotExist(err) {
		t.Fatal("expected file removed from disk")
	}
	if err := tk.DeleteIfExists("present.txt"); err != nil {
		t.Fatalf("delete absent should be no-op, got: %v", err)
	}
}

func TestListPrunesIgnoredDirsAndSorts(t *testing.T) {
	tk, root := newToolkit(t)
	if err := os.MkdirAll(filepath.Join(root, "node_modules"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := tk.Write("b.txt", "b"); err != nil {
		t.Fatalf("write b: %v", err)
	}
	if err := tk.Write("a.txt", "a"); err != nil {
		t.Fatalf("write a: %v", err)
	}
	entries, err := tk.List("", 1, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries (node_modules pruned), got %d: %+v", len(entries), entries)
	}
	if entries[0].RelPath != "a.txt" || entries[1].RelPath != "b.txt" {
		t.Fatalf("expected sorted a.txt, b.txt, got %+v", entries)
	}
}
