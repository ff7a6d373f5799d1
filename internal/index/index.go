// Package index implements the Project Scanner (C6) and its dependency-map
// sub-component (C6a): a memoized, single-flight build of a project-wide
// symbol/import/use index plus a manifest-derived dependency map.
package index

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/nextlevelbuilder/vibeagent/internal/atomicfile"
	"github.com/nextlevelbuilder/vibeagent/internal/files"
	"github.com/nextlevelbuilder/vibeagent/internal/langparse"
	"github.com/nextlevelbuilder/vibeagent/internal/sandbox"
)

const (
	scanDepth           = 16
	maxFileSizeForParse = 1 << 20 // 1 MB
)

// FileEntry summarizes one scanned file.
type FileEntry struct {
	Path      string `json:"path"`
	Language  string `json:"language"`
	SizeBytes int64  `json:"size_bytes"`
	LineCount int    `json:"line_count"`
}

// Dependencies splits manifest-derived dependencies by ecosystem and kind.
type Dependencies struct {
	Node      map[string]string `json:"node"`
	NodeDev   map[string]string `json:"nodeDev"`
	Python    map[string]string `json:"python"`
	PythonDev map[string]string `json:"pythonDev"`
}

// ProjectIndex is the full build result.
type ProjectIndex struct {
	GeneratedAt        time.Time            `json:"generated_at"`
	WorkspaceRoot      string               `json:"workspace_root"`
	TotalFilesScanned  int                  `json:"total_files_scanned"`
	Languages          map[string]int       `json:"languages"`
	Files              []FileEntry          `json:"files"`
	Symbols            []langparse.Symbol   `json:"symbols"`
	Imports            []langparse.Import   `json:"imports"`
	Uses               []langparse.Use      `json:"uses"`
	Dependencies       Dependencies         `json:"dependencies"`
}

// ScanOptions configures one scan call.
type ScanOptions struct {
	Refresh  bool
	MaxFiles int
}

// Scanner builds and caches a ProjectIndex, sharing one in-flight build
// across concurrent callers.
type Scanner struct {
	sb       *sandbox.Sandbox
	tk       *files.Toolkit
	statePath string

	mu      sync.Mutex
	cached  *ProjectIndex
	future  *scanFuture
}

type scanFuture struct {
	done   chan struct{}
	result *ProjectIndex
	err    error
}

// New returns a Scanner rooted at sb, persisting the built index at
// statePath.
func New(sb *sandbox.Sandbox, statePath string) *Scanner {
	return &Scanner{sb: sb, tk: files.New(sb), statePath: statePath}
}

// Scan returns the cached index, building (or awaiting an in-flight build)
// if none exists or opts.Refresh is true.
func (s *Scanner) Scan(ctx context.Context, opts ScanOptions) (*ProjectIndex, error) {
	s.mu.Lock()
	if !opts.Refresh && s.cached != nil {
		cached := s.cached
		s.mu.Unlock()
		return cached, nil
	}
	if s.future != nil && !opts.Refresh {
		f := s.future
		s.mu.Unlock()
		<-f.done
		return f.result, f.err
	}

	f := &scanFuture{done: make(chan struct{})}
	s.future = f
	s.mu.Unlock()

	result, err := s.build(ctx, opts)

	s.mu.Lock()
	f.result, f.err = result, err
	if err == nil {
		s.cached = result
	}
	s.future = nil
	s.mu.Unlock()
	close(f.done)

	return result, err
}

// Summary returns the cached index, or nil if no scan has run yet.
func (s *Scanner) Summary() *ProjectIndex {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cached
}

func (s *Scanner) build(ctx context.Context, opts ScanOptions) (*ProjectIndex, error) {
	maxFiles := opts.MaxFiles
	if maxFiles <= 0 {
		maxFiles = 6000
	}

	entries, err := s.tk.List("", scanDepth, 2*maxFiles)
	if err != nil {
		return nil, fmt.Errorf("index: list: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir {
			continue
		}
		paths = append(paths, e.RelPath)
	}
	sort.Strings(paths)
	if len(paths) > maxFiles {
		paths = paths[:maxFiles]
	}

	idx := &ProjectIndex{
		GeneratedAt:   time.Now().UTC(),
		WorkspaceRoot: s.sb.Root(),
		Languages:     map[string]int{},
	}

	for _, rel := range paths {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		abs := filepath.Join(s.sb.Root(), rel)
		st, statErr := os.Stat(abs)
		if statErr != nil || !st.Mode().IsRegular() {
			continue
		}

		lang := langparse.DetectLanguage(strings.ToLower(filepath.Ext(rel)))
		idx.Languages[string(lang)]++
		idx.TotalFilesScanned++

		lineCount := 0
		if st.Size() <= maxFileSizeForParse && lang != langparse.LangUnknown {
			content, readErr := s.tk.ReadIfExists(rel)
			if readErr == nil {
				lineCount = strings.Count(content, "\n") + 1
				result := langparse.Parse(lang, rel, content)
				idx.Symbols = append(idx.Symbols, result.Symbols...)
				idx.Imports = append(idx.Imports, result.Imports...)
				idx.Uses = append(idx.Uses, result.Uses...)
			}
		}

		idx.Files = append(idx.Files, FileEntry{
			Path: rel, Language: string(lang), SizeBytes: st.Size(), LineCount: lineCount,
		})
	}

	idx.Dependencies = s.buildDependencyMap()

	if err := s.persist(idx); err != nil {
		return nil, err
	}
	return idx, nil
}

func (s *Scanner) persist(idx *ProjectIndex) error {
	buf, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return fmt.Errorf("index: marshal: %w", err)
	}
	buf = append(buf, '\n')
	if err := os.MkdirAll(filepath.Dir(s.statePath), 0o755); err != nil {
		return fmt.Errorf("index: mkdir: %w", err)
	}
	return atomicfile.Write(s.statePath, buf, 0o644)
}

// LookupSymbols performs a case-folded substring match against name, exact
// matches first, then substring matches in index order.
func (idx *ProjectIndex) LookupSymbols(query, language string, limit int) []langparse.Symbol {
	if limit <= 0 {
		limit = 80
	}
	if limit > 2000 {
		limit = 2000
	}
	q := strings.ToLower(query)

	var exact, substr []langparse.Symbol
	for _, sym := range idx.Symbols {
		if language != "" && sym.Language != language {
			continue
		}
		name := strings.ToLower(sym.Name)
		if name == q {
			exact = append(exact, sym)
		} else if strings.Contains(name, q) {
			substr = append(substr, sym)
		}
	}

	out := append(exact, substr...)
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// FindReferences returns uses whose name exactly equals name.
func (idx *ProjectIndex) FindReferences(name, language string, limit int) []langparse.Use {
	if limit <= 0 {
		limit = 120
	}
	var out []langparse.Use
	for _, use := range idx.Uses {
		if use.Name != name {
			continue
		}
		if language != "" && use.Language != language {
			continue
		}
		out = append(out, use)
		if len(out) >= limit {
			break
		}
	}
	return out
}
