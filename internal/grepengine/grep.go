// Package grepengine implements the Grep Engine (C4): prefers an external
// ripgrep binary when present, falling back to an internal regex walker
// otherwise.
package grepengine

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/nextlevelbuilder/vibeagent/internal/sandbox"
)

const defaultMaxMatches = 200

// Match is one grep hit.
type Match struct {
	Path string `json:"path"`
	Line int    `json:"line"`
	Text string `json:"text"`
}

var binaryExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".bmp": true, ".ico": true,
	".zip": true, ".tar": true, ".gz": true, ".7z": true, ".rar": true,
	".exe": true, ".dll": true, ".so": true, ".dylib": true, ".bin": true,
	".mp3": true, ".mp4": true, ".mov": true, ".avi": true, ".pdf": true,
	".woff": true, ".woff2": true, ".ttf": true, ".eot": true,
}

// Engine searches text confined to a Sandbox, preferring ripgrep.
type Engine struct {
	sb *sandbox.Sandbox

	once        sync.Once
	ripgrepPath string
}

// New returns an Engine confined to sb.
func New(sb *sandbox.Sandbox) *Engine {
	return &Engine{sb: sb}
}

func (e *Engine) probeRipgrep() string {
	e.once.Do(func() {
		path, err := exec.LookPath("rg")
		if err != nil {
			return
		}
		cmd := exec.Command(path, "--version")
		if err := cmd.Run(); err == nil {
			e.ripgrepPath = path
		}
	})
	return e.ripgrepPath
}

// Search runs pattern against relPath (or the workspace root if empty),
// returning up to maxMatches matches. It prefers ripgrep when detected and
// falls back to an internal walker otherwise.
func (e *Engine) Search(ctx context.Context, pattern, relPath string, maxMatches int) ([]Match, error) {
	if maxMatches <= 0 {
		maxMatches = defaultMaxMatches
	}

	searchRoot := e.sb.Root()
	if relPath != "" {
		resolved, err := e.sb.ValidatePath(relPath, false)
		if err != nil {
			return nil, err
		}
		searchRoot = resolved
	}

	if rg := e.probeRipgrep(); rg != "" {
		matches, err := e.searchRipgrep(ctx, rg, pattern, searchRoot, maxMatches)
		if err == nil {
			return matches, nil
		}
		// ripgrep failure falls through to the JS-equivalent walker.
	}
	return e.searchWalker(pattern, searchRoot, maxMatches)
}

type ripgrepJSONMatch struct {
	Type string `json:"type"`
	Data struct {
		Path struct {
			Text string `json:"text"`
		} `json:"path"`
		LineNumber int `json:"line_number"`
		Lines      struct {
			Text string `json:"text"`
		} `json:"lines"`
	} `json:"data"`
}

func (e *Engine) searchRipgrep(ctx context.Context, rgPath, pattern, root string, maxMatches int) ([]Match, error) {
	cmd := exec.CommandContext(ctx, rgPath, "--json", "-n", pattern, root)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = nil

	err := cmd.Run()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			code := exitErr.ExitCode()
			if code != 0 && code != 1 {
				return nil, fmt.Errorf("grepengine: ripgrep exit %d", code)
			}
		} else {
			return nil, fmt.Errorf("grepengine: ripgrep: %w", err)
		}
	}

	var out []Match
	scanner := bufio.NewScanner(&stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if len(out) >= maxMatches {
			break
		}
		var rm ripgrepJSONMatch
		if jsonErr := json.Unmarshal(scanner.Bytes(), &rm); jsonErr != nil {
			continue
		}
		if rm.Type != "match" {
			continue
		}
		rel, relErr := e.sb.ToRelative(rm.Data.Path.Text)
		if relErr != nil {
			rel = rm.Data.Path.Text
		}
		out = append(out, Match{
			Path: rel,
			Line: rm.Data.LineNumber,
			Text: strings.TrimRight(rm.Data.Lines.Text, "\n"),
		})
	}
	return out, nil
}

func (e *Engine) searchWalker(pattern, root string, maxMatches int) ([]Match, error) {
	re, substringOnly := compileOrSubstring(pattern)

	var out []Match
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if len(out) >= maxMatches {
			return filepath.SkipAll
		}
		if d.IsDir() {
			if ignoredDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if binaryExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}

		f, openErr := os.Open(path)
		if openErr != nil {
			return nil
		}
		defer f.Close()

		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		lineNo := 0
		for scanner.Scan() {
			lineNo++
			raw := scanner.Bytes()
			if isBinaryLine(raw) {
				return nil
			}
			var matched bool
			if substringOnly {
				matched = strings.Contains(strings.ToLower(string(raw)), strings.ToLower(pattern))
			} else {
				matched = re.Match(raw)
			}
			if matched {
				if len(out) >= maxMatches {
					return filepath.SkipAll
				}
				rel, relErr := e.sb.ToRelative(path)
				if relErr != nil {
					rel = path
				}
				out = append(out, Match{Path: rel, Line: lineNo, Text: string(raw)})
			}
		}
		return nil
	})
	if err != nil && err != filepath.SkipAll {
		return nil, fmt.Errorf("grepengine: walk: %w", err)
	}
	return out, nil
}

var ignoredDirs = map[string]bool{
	".git": true, "node_modules": true, "dist": true, "build": true,
	"coverage": true, ".next": true, ".turbo": true, ".idea": true, ".vscode": true,
}

// compileOrSubstring compiles pattern as a regex; on failure it degrades to
// case-insensitive substring matching.
func compileOrSubstring(pattern string) (*regexp.Regexp, bool) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, true
	}
	return re, false
}

func isBinaryLine(b []byte) bool {
	return bytes.IndexByte(b, 0) >= 0
}
