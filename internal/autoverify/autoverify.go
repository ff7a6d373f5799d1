// Package autoverify implements Auto-Verify Discovery (C11): proposing
// shell commands that attest code correctness, sourced from memory's
// recorded commands, package.json scripts, and well-known Python tooling
// config files.
package autoverify

import (
	"encoding/json"
	"strings"
)

const defaultMaxCommands = 10

// Discover returns deduplicated verify commands, truncated to maxCommands,
// in source-priority order: memory-recorded "verify:" entries, then
// package.json scripts, then Python tooling config presence.
func Discover(commonCommands []string, packageJSON []byte, pythonConfigFiles map[string]string, maxCommands int) []string {
	if maxCommands <= 0 {
		maxCommands = defaultMaxCommands
	}

	var commands []string
	seen := map[string]bool{}
	add := func(cmd string) {
		cmd = strings.TrimSpace(cmd)
		if cmd == "" || seen[cmd] {
			return
		}
		seen[cmd] = true
		commands = append(commands, cmd)
	}

	for _, entry := range commonCommands {
		if rest, ok := strings.CutPrefix(entry, "verify:"); ok {
			add(rest)
		}
	}

	for _, cmd := range packageJSONCommands(packageJSON) {
		add(cmd)
	}

	for _, cmd := range pythonToolingCommands(pythonConfigFiles) {
		add(cmd)
	}

	if len(commands) > maxCommands {
		commands = commands[:maxCommands]
	}
	return commands
}

type packageJSONShape struct {
	Scripts map[string]string `json:"scripts"`
}

// packageJSONScriptSlots lists, in priority order, the script names that
// contribute a verify command. Each inner slice is a set of alternative
// names for one slot (the first present name wins), except for "format"
// which prefers "format:check" over "format".
var packageJSONScriptSlots = [][]string{
	{"test"}, {"lint"}, {"format:check", "format"}, {"typecheck"}, {"check"},
}

func packageJSONCommands(raw []byte) []string {
	if len(raw) == 0 {
		return nil
	}
	var pkg packageJSONShape
	if err := json.Unmarshal(raw, &pkg); err != nil {
		return nil
	}

	var out []string
	for _, slot := range packageJSONScriptSlots {
		for _, name := range slot {
			if _, ok := pkg.Scripts[name]; ok {
				out = append(out, "npm run -s "+name+" --if-present")
				break
			}
		}
	}
	return out
}

var pythonToolSignals = []struct {
	substring string
	command   string
}{
	{"pytest", "pytest -q"},
	{"ruff", "ruff check ."},
	{"black", "black --check ."},
	{"mypy", "mypy ."},
}

func pythonToolingCommands(configFiles map[string]string) []string {
	var out []string
	for _, signal := range pythonToolSignals {
		for _, content := range configFiles {
			if strings.Contains(strings.ToLower(content), signal.substring) {
				out = append(out, signal.command)
				break
			}
		}
	}
	return out
}
