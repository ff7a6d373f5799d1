// Package agent implements the Agent Orchestrator (C14): the public
// runTask entry point that seeds a conversation, loops the model through
// plan/act/verify iterations, and drives every other component.
package agent

import "context"

// Message is one chat-conversation turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatClient is the injectable LLM transport.
type ChatClient interface {
	Complete(ctx context.Context, messages []Message, timeoutMS int) (string, error)
}

// UI is the injectable user-facing collaborator: narration output plus
// blocking prompts. All methods may be called from the single-threaded
// orchestrator loop only.
type UI interface {
	ShowAssistantMessage(text string)
	ShowPlan(steps []string)
	ShowToolResult(tool string, ok bool, summary string)
	ShowDiff(path, diff string)
	Confirm(prompt string) bool
	AskQuestion(question string) string
	ShowChangeSummary(lines []string)
	ShowError(msg string)
	ShowInfo(msg string)
}
