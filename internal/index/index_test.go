package index

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/nextlevelbuilder/vibeagent/internal/sandbox"
)

func newScanner(t *testing.T) (*Scanner, string) {
	t.Helper()
	root := t.TempDir()
	sb, err := sandbox.New(root)
	if err != nil {
		t.Fatalf("new sandbox: %v", err)
	}
	return New(sb, filepath.Join(root, ".vibeagent", "index", "project-index.json")), root
}

func TestScanBuildsSymbolsAndLanguages(t *testing.T) {
	s, root := newScanner(t)
	if err := os.WriteFile(filepath.Join(root, "a.py"), []byte("def foo():\n    pass\n"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}

	idx, err := s.Scan(context.Background(), ScanOptions{})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if idx.TotalFilesScanned != 1 {
		t.Fatalf("expected 1 file scanned, got %d", idx.TotalFilesScanned)
	}
	if idx.Languages["python"] != 1 {
		t.Fatalf("expected python language tally, got %+v", idx.Languages)
	}
	if len(idx.Symbols) != 1 || idx.Symbols[0].Name != "foo" {
		t.Fatalf("expected foo symbol, got %+v", idx.Symbols)
	}
}

func TestScanIsIdempotentWithoutRefresh(t *testing.T) {
	s, root := newScanner(t)
	if err := os.WriteFile(filepath.Join(root, "a.py"), []byte("def foo(): pass\n"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	first, err := s.Scan(context.Background(), ScanOptions{})
	if err != nil {
		t.Fatalf("first scan: %v", err)
	}
	second, err := s.Scan(context.Background(), ScanOptions{})
	if err != nil {
		t.Fatalf("second scan: %v", err)
	}
	if first != second {
		t.Fatal("expected cached index pointer returned without refresh")
	}
}

func TestLookupSymbolsPrioritizesExactMatches(t *testing.T) {
	s, root := newScanner(t)
	if err := os.WriteFile(filepath.Join(root, "a.py"), []byte("def widget(): pass\ndef widgetFactory(): pass\n"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	idx, err := s.Scan(context.Background(), ScanOptions{})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	results := idx.LookupSymbols("widget", "", 0)
	if len(results) != 2 || results[0].Name != "widget" {
		t.Fatalf("expected exact match first, got %+v", results)
	}
}

func TestFindReferencesExactMatch(t *testing.T) {
	s, root := newScanner(t)
	if err := os.WriteFile(filepath.Join(root, "a.py"), []byte("def handler():\n    return total\n"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	idx, err := s.Scan(context.Background(), ScanOptions{})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	refs := idx.FindReferences("total", "", 0)
	if len(refs) != 1 {
		t.Fatalf("expected 1 reference to total, got %+v", refs)
	}
}

func TestDependencyMapMergesManifests(t *testing.T) {
	s, root := newScanner(t)
	pkgJSON := `{"dependencies": {"react": "^18.0.0"}, "devDependencies": {"jest": "^29.0.0"}}`
	if err := os.WriteFile(filepath.Join(root, "package.json"), []byte(pkgJSON), 0o644); err != nil {
		t.Fatalf("seed package.json: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "requirements.txt"), []byte("flask==2.0\n# comment\nrequests\n"), 0o644); err != nil {
		t.Fatalf("seed requirements.txt: %v", err)
	}

	idx, err := s.Scan(context.Background(), ScanOptions{})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if idx.Dependencies.Node["react"] != "^18.0.0" {
		t.Fatalf("expected node dependency, got %+v", idx.Dependencies.Node)
	}
	if idx.Dependencies.NodeDev["jest"] != "^29.0.0" {
		t.Fatalf("expected node dev dependency, got %+v", idx.Dependencies.NodeDev)
	}
	if idx.Dependencies.Python["flask"] != "==2.0" {
		t.Fatalf("expected flask pinned version, got %+v", idx.Dependencies.Python)
	}
	if idx.Dependencies.Python["requests"] != "unspecified" {
		t.Fatalf("expected requests unspecified, got %+v", idx.Dependencies.Python)
	}
}
