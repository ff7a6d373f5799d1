package agent

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/nextlevelbuilder/vibeagent/internal/audit"
	"github.com/nextlevelbuilder/vibeagent/internal/autoverify"
	"github.com/nextlevelbuilder/vibeagent/internal/changetracker"
	"github.com/nextlevelbuilder/vibeagent/internal/config"
	"github.com/nextlevelbuilder/vibeagent/internal/files"
	"github.com/nextlevelbuilder/vibeagent/internal/grepengine"
	"github.com/nextlevelbuilder/vibeagent/internal/index"
	"github.com/nextlevelbuilder/vibeagent/internal/memory"
	"github.com/nextlevelbuilder/vibeagent/internal/policy"
	"github.com/nextlevelbuilder/vibeagent/internal/protocol"
	"github.com/nextlevelbuilder/vibeagent/internal/sandbox"
	"github.com/nextlevelbuilder/vibeagent/internal/shellrunner"
)

// Orchestrator wires every component together behind the single runTask
// entry point.
type Orchestrator struct {
	cfg config.Config

	sb      *sandbox.Sandbox
	tk      *files.Toolkit
	grep    *grepengine.Engine
	shell   *shellrunner.Runner
	scanner *index.Scanner
	mem     *memory.Store

	policyPath string

	chat ChatClient
	ui   UI
}

// New constructs an Orchestrator rooted at cfg.WorkspaceRoot, persisting
// process-scoped state under cfg.StateDir.
func New(cfg config.Config, chat ChatClient, ui UI) (*Orchestrator, error) {
	sb, err := sandbox.New(cfg.WorkspaceRoot)
	if err != nil {
		return nil, fmt.Errorf("agent: sandbox: %w", err)
	}

	stateDir := cfg.StateDir
	if !filepath.IsAbs(stateDir) {
		stateDir = filepath.Join(cfg.WorkspaceRoot, stateDir)
	}

	return &Orchestrator{
		cfg:        cfg,
		sb:         sb,
		tk:         files.New(sb),
		grep:       grepengine.New(sb),
		shell:      shellrunner.New(cfg.WorkspaceRoot),
		scanner:    index.New(sb, filepath.Join(stateDir, "index", "project-index.json")),
		mem:        memory.New(filepath.Join(stateDir, "memory.json")),
		policyPath: filepath.Join(stateDir, "policy.json"),
		chat:       chat,
		ui:         ui,
	}, nil
}

func (o *Orchestrator) stateDir() string {
	stateDir := o.cfg.StateDir
	if !filepath.IsAbs(stateDir) {
		return filepath.Join(o.cfg.WorkspaceRoot, stateDir)
	}
	return stateDir
}

// RunTask runs the plan/act/verify/repair loop for one goal.
func (o *Orchestrator) RunTask(ctx context.Context, goal string) error {
	if strings.TrimSpace(o.cfg.APIKey) == "" {
		o.ui.ShowError("no API key configured; set VIBE_API_KEY, GROQ_API_KEY, or OPENAI_API_KEY")
		return nil
	}

	doc, err := o.mem.Get()
	if err != nil {
		return fmt.Errorf("agent: load memory: %w", err)
	}
	pol, err := policy.Load(o.policyPath)
	if err != nil {
		return fmt.Errorf("agent: load policy: %w", err)
	}

	tracker := changetracker.New()
	sessionID := audit.NewSessionID()
	taskID := audit.NewTaskID()
	logger := audit.New(o.stateDir(), sessionID, taskID)
	defer logger.Close()
	logger.Log(audit.EventRunStart, map[string]any{"goal": goal})

	scanResult, _ := o.scanner.Scan(ctx, index.ScanOptions{MaxFiles: o.cfg.MaxScanFiles})

	conversation := []Message{
		buildSystemPrompt(),
		buildContextMessage(o.sb.Root(), scanResult, doc, pol),
		buildGoalMessage(goal),
	}

	state, anyVerifyFailed := o.runLoop(ctx, &conversation, &doc, &pol, tracker, logger)

	if state == sessionAborted {
		return nil
	}

	o.finalize(tracker, logger, state, anyVerifyFailed)
	return nil
}

type sessionState int

const (
	sessionCompleted sessionState = iota
	sessionIterLimit
	sessionStoppedEarly
	sessionAborted
)

func (o *Orchestrator) runLoop(
	ctx context.Context,
	conversation *[]Message,
	doc *memory.Document,
	pol *policy.Policy,
	tracker *changetracker.Tracker,
	logger *audit.Logger,
) (sessionState, bool) {
	consecutiveVerifyFailures := 0
	anyVerifyFailed := false

	for iteration := 1; iteration <= o.cfg.MaxIterations; iteration++ {
		text, err := o.chat.Complete(ctx, *conversation, o.cfg.ToolTimeoutMS)
		if err != nil {
			o.ui.ShowError("model call failed: " + err.Error())
			logger.Log(audit.EventRunEnd, map[string]any{"state": "model_error"})
			return sessionAborted, anyVerifyFailed
		}

		resp := protocol.ParseAgentResponse(text)
		o.ui.ShowAssistantMessage(resp.AssistantMsg)
		o.ui.ShowPlan(resp.Plan)
		logger.Log("model_response", map[string]any{"status": resp.Status, "actions": len(resp.Actions)})

		if resp.MemoryUpdates != nil {
			tags, err := o.mem.ApplyUpdates(toMemoryUpdates(*resp.MemoryUpdates))
			if err == nil && len(tags) > 0 {
				o.ui.ShowInfo("memory updated: " + strings.Join(tags, ", "))
				if refreshed, getErr := o.mem.Get(); getErr == nil {
					*doc = refreshed
				}
			}
		}

		var results []protocol.ToolResult
		hadSuccessfulWrite := false
		for _, action := range resp.Actions {
			result := o.dispatch(ctx, action, *pol, tracker)
			o.ui.ShowToolResult(result.Tool, result.OK, result.Summary)
			logger.Log("action_result", map[string]any{"tool": result.Tool, "ok": result.OK, "summary": result.Summary})
			results = append(results, result)
			if result.Tool == string(protocol.ActionWriteFile) && result.OK {
				hadSuccessfulWrite = true
			}
		}

		verifyCommands := uniqueNonEmpty(verifyCommandStrings(resp.Verify))
		if o.cfg.AutoVerify && hadSuccessfulWrite {
			discovered := o.discoverVerifyCommands(*doc)
			verifyCommands = dedupAppend(verifyCommands, discovered)
		}

		iterationFailed := false
		for _, cmd := range verifyCommands {
			result := o.runVerifyCommand(ctx, cmd, *pol)
			o.ui.ShowToolResult("verify", result.OK, result.Summary)
			logger.Log(audit.EventVerify, map[string]any{"command": cmd, "ok": result.OK, "summary": result.Summary})
			results = append(results, result)
			if !result.OK {
				iterationFailed = true
				anyVerifyFailed = true
			}
		}
		if len(verifyCommands) > 0 {
			if iterationFailed {
				consecutiveVerifyFailures++
			} else {
				consecutiveVerifyFailures = 0
			}
		}

		if consecutiveVerifyFailures >= o.repairBudget() && tracker.HasChanges() {
			if !o.ui.Confirm("Verification has failed repeatedly. Continue trying to fix it?") {
				return sessionStoppedEarly, anyVerifyFailed
			}
			consecutiveVerifyFailures = 0
		}

		*conversation = append(*conversation, Message{Role: RoleAssistant, Content: resp.AssistantMsg})
		*conversation = append(*conversation, Message{Role: RoleUser, Content: renderToolResults(results, o.cfg.MaxToolOutputChars)})

		switch resp.Status {
		case protocol.StatusNeedUser:
			answer := o.ui.AskQuestion(resp.Question)
			*conversation = append(*conversation, Message{Role: RoleUser, Content: answer})
			continue
		case protocol.StatusDone:
			if iterationFailed {
				*conversation = append(*conversation, Message{
					Role:    RoleUser,
					Content: "Verification failed. Continue and fix errors before marking done.",
				})
				continue
			}
			return sessionCompleted, anyVerifyFailed
		}
	}

	return sessionIterLimit, anyVerifyFailed
}

func (o *Orchestrator) repairBudget() int {
	if o.cfg.AutoRepairRounds <= 0 {
		return 3
	}
	return o.cfg.AutoRepairRounds
}

func (o *Orchestrator) discoverVerifyCommands(doc memory.Document) []string {
	pkgJSON, _ := o.tk.ReadIfExists("package.json")
	pythonConfigs := map[string]string{}
	for _, name := range []string{"setup.cfg", "pyproject.toml", "tox.ini"} {
		if content, err := o.tk.ReadIfExists(name); err == nil && content != "" {
			pythonConfigs[name] = content
		}
	}
	return autoverify.Discover(doc.CommonCommands, []byte(pkgJSON), pythonConfigs, 10)
}

func (o *Orchestrator) finalize(tracker *changetracker.Tracker, logger *audit.Logger, state sessionState, anyVerifyFailed bool) {
	if changes := tracker.Changes(); len(changes) > 0 {
		o.ui.ShowChangeSummary(changeSummaryLines(changes))
	}

	if state != sessionCompleted && anyVerifyFailed && tracker.HasChanges() {
		if o.ui.Confirm("The task did not complete successfully. Roll back file changes?") {
			restored, err := tracker.Rollback(o.tk)
			if err == nil {
				logger.Log(audit.EventRollback, map[string]any{"restoredFiles": restored})
				o.ui.ShowInfo(fmt.Sprintf("rolled back %d file(s)", len(restored)))
			}
		}
	}

	logger.Log(audit.EventRunEnd, map[string]any{"state": stateLabel(state)})
	o.ui.ShowInfo("audit log: " + filepath.Join(o.stateDir(), "audit", logger.SessionID()+".jsonl"))
}

func changeSummaryLines(changes []changetracker.Change) []string {
	lines := make([]string, 0, len(changes))
	for _, c := range changes {
		diff := unifiedDiff(c.Path, c.Before, c.After)
		added, removed := diffStat(diff)
		lines = append(lines, fmt.Sprintf("%s (+%s/-%s)", c.Path, humanize.Comma(int64(added)), humanize.Comma(int64(removed))))
	}
	return lines
}

func stateLabel(s sessionState) string {
	switch s {
	case sessionCompleted:
		return "done"
	case sessionIterLimit:
		return "iteration_limit"
	case sessionStoppedEarly:
		return "stopped_early"
	default:
		return "aborted"
	}
}

func verifyCommandStrings(cmds []protocol.VerifyCommand) []string {
	out := make([]string, 0, len(cmds))
	for _, c := range cmds {
		out = append(out, c.Command)
	}
	return out
}

func uniqueNonEmpty(in []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func dedupAppend(base, more []string) []string {
	seen := map[string]bool{}
	for _, s := range base {
		seen[s] = true
	}
	for _, s := range more {
		if seen[s] {
			continue
		}
		seen[s] = true
		base = append(base, s)
	}
	return base
}

func renderToolResults(results []protocol.ToolResult, maxChars int) string {
	var parts []string
	for _, r := range results {
		parts = append(parts, r.MarshalClipped(maxChars))
	}
	return strings.Join(parts, "\n")
}
