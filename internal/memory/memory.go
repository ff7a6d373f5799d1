// Package memory implements the Memory Store (C7): a small JSON document of
// durable project knowledge — rules, architecture notes, common commands,
// and free-form key/value facts — that the agent reads each run and appends
// to as it learns. Persistence follows the same lazy-load, atomic-rewrite
// discipline as the teacher's own state stores.
package memory

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/nextlevelbuilder/vibeagent/internal/atomicfile"
)

const maxListLen = 200

// Document is the persisted shape of the memory store.
type Document struct {
	ProjectRules      []string          `json:"project_rules"`
	ArchitectureNotes []string          `json:"architecture_notes"`
	CommonCommands    []string          `json:"common_commands"`
	KV                map[string]string `json:"kv"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// Updates is a caller-supplied set of additions/overwrites to merge in.
type Updates struct {
	ProjectRules      []string
	ArchitectureNotes []string
	CommonCommands    []string
	KV                map[string]string
}

// Store is a lazily-loaded, mutex-guarded Document backed by a JSON file.
type Store struct {
	path string

	mu      sync.Mutex
	loaded  bool
	doc     Document
}

// New returns a Store reading from and writing to path. The file is not
// touched until the first Get or ApplyUpdates call.
func New(path string) *Store {
	return &Store{path: path}
}

func (s *Store) ensureLoaded() error {
	if s.loaded {
		return nil
	}
	doc, err := load(s.path)
	if err != nil {
		return err
	}
	s.doc = doc
	s.loaded = true
	return nil
}

func load(path string) (Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Document{KV: map[string]string{}}, nil
		}
		return Document{}, fmt.Errorf("memory: read %s: %w", path, err)
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Document{}, fmt.Errorf("memory: parse %s: %w", path, err)
	}
	if doc.KV == nil {
		doc.KV = map[string]string{}
	}
	return doc, nil
}

// Get returns a copy of the current document, loading it from disk on first
// access.
func (s *Store) Get() (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(); err != nil {
		return Document{}, err
	}
	return cloneDocument(s.doc), nil
}

// ApplyUpdates merges u into the store, deduplicating and capping each list
// at maxListLen entries (oldest entries drop first) and overwriting matching
// KV keys. It persists the result atomically and returns a list of
// human-readable change tags describing what changed, e.g.
// "project_rules(+2)" or "kv.style.imports".
func (s *Store) ApplyUpdates(u Updates) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(); err != nil {
		return nil, err
	}

	var tags []string

	if n := mergeCapped(&s.doc.ProjectRules, u.ProjectRules); n > 0 {
		tags = append(tags, fmt.Sprintf("project_rules(+%d)", n))
	}
	if n := mergeCapped(&s.doc.ArchitectureNotes, u.ArchitectureNotes); n > 0 {
		tags = append(tags, fmt.Sprintf("architecture_notes(+%d)", n))
	}
	if n := mergeCapped(&s.doc.CommonCommands, u.CommonCommands); n > 0 {
		tags = append(tags, fmt.Sprintf("common_commands(+%d)", n))
	}

	if s.doc.KV == nil {
		s.doc.KV = map[string]string{}
	}
	var kvKeys []string
	for k, v := range u.KV {
		if k == "" {
			continue
		}
		s.doc.KV[k] = v
		kvKeys = append(kvKeys, k)
	}
	sort.Strings(kvKeys)
	for _, k := range kvKeys {
		tags = append(tags, "kv."+k)
	}

	if len(tags) == 0 {
		return nil, nil
	}

	s.doc.UpdatedAt = time.Now().UTC()
	if err := s.persistLocked(); err != nil {
		return nil, err
	}
	return tags, nil
}

func (s *Store) persistLocked() error {
	buf, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("memory: marshal: %w", err)
	}
	buf = append(buf, '\n')
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("memory: mkdir: %w", err)
	}
	return atomicfile.Write(s.path, buf, 0o600)
}

// mergeCapped appends the new entries in additions not already present in
// *list, then truncates *list to the most recent maxListLen entries. It
// returns the number of genuinely new entries added.
func mergeCapped(list *[]string, additions []string) int {
	existing := map[string]bool{}
	for _, v := range *list {
		existing[v] = true
	}

	added := 0
	for _, v := range additions {
		if v == "" || existing[v] {
			continue
		}
		existing[v] = true
		*list = append(*list, v)
		added++
	}

	if len(*list) > maxListLen {
		*list = (*list)[len(*list)-maxListLen:]
	}
	return added
}

func cloneDocument(d Document) Document {
	out := Document{UpdatedAt: d.UpdatedAt}
	out.ProjectRules = append([]string(nil), d.ProjectRules...)
	out.ArchitectureNotes = append([]string(nil), d.ArchitectureNotes...)
	out.CommonCommands = append([]string(nil), d.CommonCommands...)
	out.KV = make(map[string]string, len(d.KV))
	for k, v := range d.KV {
		out.KV[k] = v
	}
	return out
}
