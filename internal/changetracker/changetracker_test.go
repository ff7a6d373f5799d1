package changetracker

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nextlevelbuilder/vibeagent/internal/files"
	"github.com/nextlevelbuilder/vibeagent/internal/sandbox"
)

func newToolkit(t *testing.T) (*files.Toolkit, string) {
	t.Helper()
	root := t.TempDir()
	sb, err := sandbox.New(root)
	if err != nil {
		t.Fatalf("new sandbox: %v", err)
	}
	return files.New(sb), root
}

func TestRecordBeforeIsFirstObservationWins(t *testing.T) {
	tr := New()
	tr.RecordBefore("a.txt", true, []byte("v1"))
	tr.RecordBefore("a.txt", true, []byte("v2"))
	tr.RecordAfter("a.txt", []byte("v3"))

	if !tr.HasChanges() {
		t.Fatal("expected change detected against the first recorded before-state")
	}
}

func TestHasChangesFalseWhenBeforeEqualsAfter(t *testing.T) {
	tr := New()
	tr.RecordBefore("a.txt", true, []byte("same"))
	tr.RecordAfter("a.txt", []byte("same"))
	if tr.HasChanges() {
		t.Fatal("expected no changes when before equals after")
	}
}

func TestRollbackRestoresPreTaskStateAndNewFileIsRemoved(t *testing.T) {
	tk, root := newToolkit(t)

	if err := os.WriteFile(filepath.Join(root, "existing.txt"), []byte("original"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	tr := New()
	tr.RecordBefore("existing.txt", true, []byte("original"))
	if err := tk.Write("existing.txt", "modified"); err != nil {
		t.Fatalf("write: %v", err)
	}
	tr.RecordAfter("existing.txt", []byte("modified"))

	tr.RecordBefore("new.txt", false, nil)
	if err := tk.Write("new.txt", "fresh"); err != nil {
		t.Fatalf("write: %v", err)
	}
	tr.RecordAfter("new.txt", []byte("fresh"))

	restored, err := tr.Rollback(tk)
	if err != nil {
		t.Fatalf("rollback: %v", err)
	}
	if len(restored) != 2 || restored[0] != "existing.txt" || restored[1] != "new.txt" {
		t.Fatalf("expected chronological restored order, got %+v", restored)
	}

	content, err := os.ReadFile(filepath.Join(root, "existing.txt"))
	if err != nil || string(content) != "original" {
		t.Fatalf("expected existing.txt restored to original, got %q err %v", content, err)
	}
	if _, err := os.Stat(filepath.Join(root, "new.txt")); !os.IsNotExist(err) {
		t.Fatal("expected new.txt removed by rollback")
	}
}
