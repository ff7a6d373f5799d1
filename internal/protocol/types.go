// Package protocol defines the wire-level data model shared between the
// model, the tool dispatcher, and the orchestrator: chat messages, the
// tagged agent-action alphabet, model responses, and tool results.
package protocol

import "encoding/json"

// Role is the speaker of a Chat Message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage is one entry in the ordered, monotonically-appended
// conversation for a task.
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Status is the model's self-reported state for the current iteration.
type Status string

const (
	StatusContinue Status = "continue"
	StatusDone     Status = "done"
	StatusNeedUser Status = "need_user"
)

// ActionKind enumerates the closed agent-action alphabet.
type ActionKind string

const (
	ActionListFiles       ActionKind = "list_files"
	ActionReadFile        ActionKind = "read_file"
	ActionGrep            ActionKind = "grep"
	ActionRunCommand      ActionKind = "run_command"
	ActionWriteFile       ActionKind = "write_file"
	ActionScanProject     ActionKind = "scan_project"
	ActionSymbolLookup    ActionKind = "symbol_lookup"
	ActionFindReferences  ActionKind = "find_references"
	ActionDependencyMap   ActionKind = "dependency_map"
	ActionMemorySet       ActionKind = "memory_set"
	ActionMemoryGet       ActionKind = "memory_get"
)

// Action is a closed sum type over the agent-action alphabet. Exactly one of
// the per-variant parameter structs is populated, selected by Kind. Building
// and dispatching Action values must both switch exhaustively on Kind.
type Action struct {
	Kind ActionKind `json:"-"`

	ListFiles      *ListFilesParams      `json:"-"`
	ReadFile       *ReadFileParams       `json:"-"`
	Grep           *GrepParams           `json:"-"`
	RunCommand     *RunCommandParams     `json:"-"`
	WriteFile      *WriteFileParams      `json:"-"`
	ScanProject    *ScanProjectParams    `json:"-"`
	SymbolLookup   *SymbolLookupParams   `json:"-"`
	FindReferences *FindReferencesParams `json:"-"`
	DependencyMap  *DependencyMapParams  `json:"-"`
	MemorySet      *MemorySetParams      `json:"-"`
	MemoryGet      *MemoryGetParams      `json:"-"`
}

type ListFilesParams struct {
	Path  string `json:"path"`
	Depth int    `json:"depth"`
}

type ReadFileParams struct {
	Path      string `json:"path"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
}

type GrepParams struct {
	Pattern string `json:"pattern"`
	Path    string `json:"path"`
}

type RunCommandParams struct {
	Command string `json:"command"`
}

type WriteFileParams struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

type ScanProjectParams struct {
	Refresh  bool `json:"refresh"`
	MaxFiles int  `json:"max_files"`
}

type SymbolLookupParams struct {
	Query    string `json:"query"`
	Language string `json:"language"`
	Limit    int    `json:"limit"`
}

type FindReferencesParams struct {
	Name     string `json:"name"`
	Language string `json:"language"`
	Limit    int    `json:"limit"`
}

type DependencyMapParams struct{}

type MemorySetParams struct {
	Updates MemoryUpdates `json:"updates"`
}

type MemoryGetParams struct{}

// MemoryUpdates is the payload merged into Project Memory by C7.
type MemoryUpdates struct {
	ProjectRules      []string          `json:"project_rules,omitempty"`
	ArchitectureNotes []string          `json:"architecture_notes,omitempty"`
	CommonCommands    []string          `json:"common_commands,omitempty"`
	KV                map[string]string `json:"kv,omitempty"`
}

// VerifyCommand is one verify-phase shell command, accepted from the model
// either as a plain string or a {command} object.
type VerifyCommand struct {
	Command string `json:"command"`
}

// ModelResponse is the normalized, bounded result of parsing model text.
type ModelResponse struct {
	Status          Status         `json:"status"`
	AssistantMsg    string         `json:"assistant_message"`
	Plan            []string       `json:"plan"`
	Actions         []Action       `json:"actions"`
	Verify          []VerifyCommand `json:"verify"`
	Question        string         `json:"question,omitempty"`
	MemoryUpdates   *MemoryUpdates `json:"memory_updates,omitempty"`
}

// ToolResult is the outcome of dispatching one Action.
type ToolResult struct {
	Tool    string `json:"tool"`
	OK      bool   `json:"ok"`
	Summary string `json:"summary"`
	Data    any    `json:"data,omitempty"`
}

// MarshalClipped renders r as JSON clipped to maxChars, used before a tool
// result re-enters the conversation context.
func (r ToolResult) MarshalClipped(maxChars int) string {
	raw, err := json.Marshal(r)
	if err != nil {
		return `{"tool":"` + r.Tool + `","ok":false,"summary":"marshal error"}`
	}
	if maxChars > 0 && len(raw) > maxChars {
		suffix := []byte("...<clipped>")
		cut := maxChars - len(suffix)
		if cut < 0 {
			cut = 0
		}
		raw = append(raw[:cut], suffix...)
	}
	return string(raw)
}
