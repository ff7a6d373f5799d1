package autoverify

import "testing"

func TestDiscoverOrdersMemoryThenPackageJSONThenPython(t *testing.T) {
	pkg := []byte(`{"scripts": {"test": "jest", "lint": "eslint ."}}`)
	python := map[string]string{"setup.cfg": "[tool:pytest]\naddopts = -q"}

	commands := Discover([]string{"verify:npm run build"}, pkg, python, 0)

	want := []string{
		"npm run build",
		"npm run -s test --if-present",
		"npm run -s lint --if-present",
		"pytest -q",
	}
	if len(commands) != len(want) {
		t.Fatalf("expected %d commands, got %+v", len(want), commands)
	}
	for i, w := range want {
		if commands[i] != w {
			t.Fatalf("command %d: got %q, want %q (full: %+v)", i, commands[i], w, commands)
		}
	}
}

func TestDiscoverDedupesAcrossSources(t *testing.T) {
	pkg := []byte(`{"scripts": {"test": "jest"}}`)
	commands := Discover([]string{"verify:npm run -s test --if-present"}, pkg, nil, 0)
	count := 0
	for _, c := range commands {
		if c == "npm run -s test --if-present" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected deduped single entry, got %d occurrences in %+v", count, commands)
	}
}

func TestDiscoverTruncatesToMaxCommands(t *testing.T) {
	memCommands := []string{"verify:a", "verify:b", "verify:c"}
	commands := Discover(memCommands, nil, nil, 2)
	if len(commands) != 2 {
		t.Fatalf("expected truncated to 2, got %+v", commands)
	}
}

func TestDiscoverPrefersFormatCheckOverFormat(t *testing.T) {
	pkg := []byte(`{"scripts": {"format": "prettier --write .", "format:check": "prettier --check ."}}`)
	commands := Discover(nil, pkg, nil, 0)
	if len(commands) != 1 || commands[0] != "npm run -s format:check --if-present" {
		t.Fatalf("expected format:check to win, got %+v", commands)
	}
}
