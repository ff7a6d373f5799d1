package agent

import (
	"strings"
	"testing"
	"time"

	"github.com/nextlevelbuilder/vibeagent/internal/index"
	"github.com/nextlevelbuilder/vibeagent/internal/memory"
	"github.com/nextlevelbuilder/vibeagent/internal/policy"
)

func TestBuildSystemPromptNamesEveryTool(t *testing.T) {
	msg := buildSystemPrompt()
	if msg.Role != RoleSystem {
		t.Fatalf("expected system role, got %q", msg.Role)
	}
	for _, tool := range []string{
		"list_files", "read_file", "grep", "run_command", "write_file",
		"scan_project", "symbol_lookup", "find_references", "dependency_map",
		"memory_set", "memory_get",
	} {
		if !strings.Contains(msg.Content, tool) {
			t.Errorf("expected system prompt to mention tool %q", tool)
		}
	}
}

func TestBuildContextMessageWithoutScan(t *testing.T) {
	msg := buildContextMessage("/work", nil, memory.Document{KV: map[string]string{}}, policy.Default())
	if !strings.Contains(msg.Content, "not yet scanned") {
		t.Fatalf("expected unscanned notice, got %q", msg.Content)
	}
}

func TestBuildContextMessageWithScan(t *testing.T) {
	idx := &index.ProjectIndex{
		GeneratedAt:       time.Unix(0, 0),
		TotalFilesScanned: 3,
		Languages:         map[string]int{"go": 3},
	}
	msg := buildContextMessage("/work", idx, memory.Document{KV: map[string]string{}}, policy.Default())
	if !strings.Contains(msg.Content, "3 files scanned") {
		t.Fatalf("expected scan summary in context message, got %q", msg.Content)
	}
}

func TestBuildGoalMessagePrefixesUserTask(t *testing.T) {
	msg := buildGoalMessage("fix the bug")
	if msg.Content != "User task: fix the bug" {
		t.Fatalf("unexpected goal message: %q", msg.Content)
	}
	if msg.Role != RoleUser {
		t.Fatalf("expected user role, got %q", msg.Role)
	}
}
