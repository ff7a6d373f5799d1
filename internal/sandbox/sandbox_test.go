package sandbox

import (
	"os"
	"path/filepath"
	"testing"
)

func TestValidatePathWithinRoot(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "a.txt"), []byte("hi"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}
	sb, err := New(root)
	if err != nil {
		t.Fatalf("new sandbox: %v", err)
	}

	resolved, err := sb.ValidatePath("a.txt", false)
	if err != nil {
		t.Fatalf("validate existing read path: %v", err)
	}
	rel, err := sb.ToRelative(resolved)
	if err != nil {
		t.Fatalf("to relative: %v", err)
	}
	if rel != "a.txt" {
		t.Fatalf("expected relative path a.txt, got %q", rel)
	}
}

func TestValidatePathRejectsTraversal(t *testing.T) {
	root := t.TempDir()
	sb, err := New(root)
	if err != nil {
		t.Fatalf("new sandbox: %v", err)
	}

	_, err = sb.ValidatePath("../etc/passwd", false)
	if err == nil {
		t.Fatal("expected path escape error")
	}
	var escErr *PathEscapeError
	if !asPathEscape(err, &escErr) {
		t.Fatalf("expected PathEscapeError, got %v (%T)", err, err)
	}
}

func TestValidatePathRejectsAbsoluteOutsideRoot(t *testing.T) {
	root := t.TempDir()
	sb, err := New(root)
	if err != nil {
		t.Fatalf("new sandbox: %v", err)
	}

	_, err = sb.ValidatePath(string(filepath.Separator)+"etc"+string(filepath.Separator)+"passwd", false)
	if err == nil {
		t.Fatal("expected path escape error for absolute path outside root")
	}
}

func TestValidatePathWriteAllowsMissingFile(t *testing.T) {
	root := t.TempDir()
	sb, err := New(root)
	if err != nil {
		t.Fatalf("new sandbox: %v", err)
	}

	resolved, err := sb.ValidatePath("newfile.txt", true)
	if err != nil {
		t.Fatalf("validate write path for new file: %v", err)
	}
	if filepath.Dir(resolved) != sb.Root() {
		t.Fatalf("expected resolved parent to equal root, got %q", filepath.Dir(resolved))
	}
}

func asPathEscape(err error, target **PathEscapeError) bool {
	pe, ok := err.(*PathEscapeError)
	if !ok {
		return false
	}
	*target = pe
	return true
}
