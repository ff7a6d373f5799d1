package agent

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nextlevelbuilder/vibeagent/internal/index"
	"github.com/nextlevelbuilder/vibeagent/internal/memory"
	"github.com/nextlevelbuilder/vibeagent/internal/policy"
)

const systemPrompt = `You are an autonomous coding agent operating inside a sandboxed workspace.

Respond with exactly one JSON object, no prose outside it, shaped as:
{
  "status": "continue" | "done" | "need_user",
  "assistant_message": "string",
  "plan": ["step", "..."],
  "actions": [{"kind": "<name>", ...params}],
  "verify": ["command", "..." | {"command": "..."}],
  "question": "string (required when status is need_user)",
  "memory_updates": {"project_rules": [], "architecture_notes": [], "common_commands": [], "kv": {}}
}

Available tools: list_files, read_file, grep, run_command, write_file,
scan_project, symbol_lookup, find_references, dependency_map, memory_set,
memory_get. Every action executes inside the workspace sandbox; paths
outside it are rejected. Writes are previewed as a diff and may be declined.
Prefer small, verifiable steps. Use "verify" to name shell commands that
prove your change works; the runtime may add commands it discovers on its
own. Set status to "done" only once verification has succeeded.`

// buildSystemPrompt returns the fixed system message.
func buildSystemPrompt() Message {
	return Message{Role: RoleSystem, Content: systemPrompt}
}

// buildContextMessage renders the workspace summary, scanner summary, full
// memory, and full policy as one user message.
func buildContextMessage(workspaceRoot string, idx *index.ProjectIndex, doc memory.Document, pol policy.Policy) Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Workspace root: %s\n\n", workspaceRoot)

	if idx != nil {
		fmt.Fprintf(&b, "Project scan summary: %d files scanned, languages=%v\n\n", idx.TotalFilesScanned, idx.Languages)
	} else {
		b.WriteString("Project scan summary: not yet scanned.\n\n")
	}

	memJSON, _ := json.MarshalIndent(doc, "", "  ")
	b.WriteString("Project memory:\n")
	b.Write(memJSON)
	b.WriteString("\n\n")

	polJSON, _ := json.MarshalIndent(pol, "", "  ")
	b.WriteString("Policy:\n")
	b.Write(polJSON)
	b.WriteString("\n")

	return Message{Role: RoleUser, Content: b.String()}
}

// buildGoalMessage renders the task's user message.
func buildGoalMessage(goal string) Message {
	return Message{Role: RoleUser, Content: "User task: " + goal}
}
