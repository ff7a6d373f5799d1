// Package policy implements the Policy + Secret Gates (C8): command
// allow/deny checks, write-path glob checks, and proposed-content secret
// scanning. Policy is loaded once per process and persisted to disk, the
// same load-or-write-defaults discipline as the teacher's own configuration
// layer.
package policy

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/nextlevelbuilder/vibeagent/internal/atomicfile"
)

// Policy is the full set of gates the orchestrator consults before running
// a command, writing a file, or persisting secret-bearing content.
type Policy struct {
	AllowRunCommand         bool     `json:"allowRunCommand"`
	AllowWrite              bool     `json:"allowWrite"`
	AllowedCommandPrefixes  []string `json:"allowedCommandPrefixes"`
	BlockedCommandPatterns  []string `json:"blockedCommandPatterns"`
	BlockedWriteGlobs       []string `json:"blockedWriteGlobs"`
	AllowPotentialSecrets   bool     `json:"allowPotentialSecrets"`
}

// Default returns the built-in policy defaults.
func Default() Policy {
	return Policy{
		AllowRunCommand: true,
		AllowWrite:      true,
		BlockedCommandPatterns: []string{
			`rm -rf /`, `del /s /q c:\\`, `shutdown`, `reboot`, `mkfs`,
			`format [a-z]:`, `curl .* \| sh`, `wget .* \| sh`, `powershell -enc`,
		},
		BlockedWriteGlobs: []string{
			".env", ".env.*", "**/.env", "**/.env.*",
			"**/*.pem", "**/*.key", "**/id_rsa", ".git/**",
		},
		AllowPotentialSecrets: false,
	}
}

// Load reads path, writing and returning the defaults if it does not exist.
func Load(path string) (Policy, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			def := Default()
			if saveErr := Save(path, def); saveErr != nil {
				return Policy{}, saveErr
			}
			return def, nil
		}
		return Policy{}, fmt.Errorf("policy: read %s: %w", path, err)
	}
	var p Policy
	if err := json.Unmarshal(raw, &p); err != nil {
		return Policy{}, fmt.Errorf("policy: parse %s: %w", path, err)
	}
	return p, nil
}

// Save persists p as indented JSON at path.
func Save(path string, p Policy) error {
	buf, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("policy: marshal: %w", err)
	}
	buf = append(buf, '\n')
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("policy: mkdir: %w", err)
	}
	return atomicfile.Write(path, buf, 0o600)
}

// CheckCommand reports whether command is allowed to run, and the reason if
// not.
func (p Policy) CheckCommand(command string) (allowed bool, reason string) {
	if !p.AllowRunCommand {
		return false, "command execution disabled by policy"
	}
	trimmed := strings.TrimSpace(command)
	if trimmed == "" {
		return false, "empty command"
	}
	for _, pattern := range p.BlockedCommandPatterns {
		if matchesCommandPattern(pattern, trimmed) {
			return false, fmt.Sprintf("command matches blocked pattern %q", pattern)
		}
	}
	if len(p.AllowedCommandPrefixes) > 0 {
		for _, prefix := range p.AllowedCommandPrefixes {
			if strings.HasPrefix(trimmed, prefix) {
				return true, ""
			}
		}
		return false, "command does not match any allowed prefix"
	}
	return true, ""
}

func matchesCommandPattern(pattern, command string) bool {
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return strings.Contains(strings.ToLower(command), strings.ToLower(pattern))
	}
	return re.MatchString(command)
}

// CheckWritePath reports whether a write to relPath is allowed.
func (p Policy) CheckWritePath(relPath string) (allowed bool, reason string) {
	if !p.AllowWrite {
		return false, "writes disabled by policy"
	}
	normalized := filepath.ToSlash(relPath)
	for _, glob := range p.BlockedWriteGlobs {
		re, err := globToRegexp(glob)
		if err != nil {
			continue
		}
		if re.MatchString(normalized) {
			return false, fmt.Sprintf("write path matches blocked glob %q", glob)
		}
	}
	return true, ""
}

// globToRegexp translates a "**"/"*" glob into a full-string-anchored regex.
func globToRegexp(glob string) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteString("^")
	i := 0
	for i < len(glob) {
		if strings.HasPrefix(glob[i:], "**") {
			b.WriteString(".*")
			i += 2
			continue
		}
		c := glob[i]
		if c == '*' {
			b.WriteString("[^/]*")
		} else {
			b.WriteString(regexp.QuoteMeta(string(c)))
		}
		i++
	}
	b.WriteString("$")
	return regexp.Compile(b.String())
}

// SecretFinding is one detected potential secret.
type SecretFinding struct {
	Type          string `json:"type"`
	MaskedSnippet string `json:"masked_snippet"`
}

const maxSecretFindings = 20

var secretPatterns = []struct {
	name string
	re   *regexp.Regexp
}{
	{"Groq API key", regexp.MustCompile(`gsk_[A-Za-z0-9]{20,}`)},
	{"OpenAI API key", regexp.MustCompile(`sk-[A-Za-z0-9]{20,}`)},
	{"GitHub token", regexp.MustCompile(`ghp_[A-Za-z0-9]{20,}`)},
	{"AWS access key", regexp.MustCompile(`AKIA[0-9A-Z]{16}`)},
	{"Google API key", regexp.MustCompile(`AIza[0-9A-Za-z\-_]{20,}`)},
	{"Private key", regexp.MustCompile(`-----BEGIN (RSA|OPENSSH|EC|DSA) PRIVATE KEY-----`)},
}

// DetectSecrets scans content for the known secret patterns, returning up to
// maxSecretFindings findings with masked snippets.
func DetectSecrets(content string) []SecretFinding {
	var findings []SecretFinding
	for _, p := range secretPatterns {
		for _, match := range p.re.FindAllString(content, -1) {
			findings = append(findings, SecretFinding{Type: p.name, MaskedSnippet: maskSnippet(match)})
			if len(findings) >= maxSecretFindings {
				return findings
			}
		}
	}
	return findings
}

func maskSnippet(s string) string {
	if len(s) <= 12 {
		return s
	}
	return s[:6] + "…" + s[len(s)-4:]
}
