package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nextlevelbuilder/vibeagent/internal/changetracker"
	"github.com/nextlevelbuilder/vibeagent/internal/index"
	"github.com/nextlevelbuilder/vibeagent/internal/memory"
	"github.com/nextlevelbuilder/vibeagent/internal/policy"
	"github.com/nextlevelbuilder/vibeagent/internal/protocol"
	"github.com/nextlevelbuilder/vibeagent/internal/stacktrace"
)

// toMemoryUpdates adapts the wire-level MemoryUpdates payload to the Memory
// Store's input shape.
func toMemoryUpdates(u protocol.MemoryUpdates) memory.Updates {
	return memory.Updates{
		ProjectRules:      u.ProjectRules,
		ArchitectureNotes: u.ArchitectureNotes,
		CommonCommands:    u.CommonCommands,
		KV:                u.KV,
	}
}

// dispatch executes one Action and returns its ToolResult. It never panics:
// every branch that can fail is wrapped so a single bad action degrades to
// {ok:false} rather than aborting the iteration.
func (o *Orchestrator) dispatch(ctx context.Context, action protocol.Action, pol policy.Policy, tracker *changetracker.Tracker) protocol.ToolResult {
	switch action.Kind {
	case protocol.ActionListFiles:
		return o.dispatchListFiles(action.ListFiles)
	case protocol.ActionReadFile:
		return o.dispatchReadFile(action.ReadFile)
	case protocol.ActionGrep:
		return o.dispatchGrep(ctx, action.Grep)
	case protocol.ActionRunCommand:
		return o.dispatchRunCommand(ctx, action.RunCommand, pol)
	case protocol.ActionWriteFile:
		return o.dispatchWriteFile(action.WriteFile, pol, tracker)
	case protocol.ActionScanProject:
		return o.dispatchScanProject(ctx, action.ScanProject)
	case protocol.ActionSymbolLookup:
		return o.dispatchSymbolLookup(action.SymbolLookup)
	case protocol.ActionFindReferences:
		return o.dispatchFindReferences(action.FindReferences)
	case protocol.ActionDependencyMap:
		return o.dispatchDependencyMap()
	case protocol.ActionMemorySet:
		return o.dispatchMemorySet(action.MemorySet)
	case protocol.ActionMemoryGet:
		return o.dispatchMemoryGet()
	default:
		return protocol.ToolResult{Tool: string(action.Kind), OK: false, Summary: "unknown action kind"}
	}
}

func (o *Orchestrator) dispatchListFiles(p *protocol.ListFilesParams) protocol.ToolResult {
	tool := string(protocol.ActionListFiles)
	if p == nil {
		return protocol.ToolResult{Tool: tool, OK: false, Summary: "missing parameters"}
	}
	entries, err := o.tk.List(p.Path, p.Depth, 0)
	if err != nil {
		return protocol.ToolResult{Tool: tool, OK: false, Summary: err.Error()}
	}
	return protocol.ToolResult{Tool: tool, OK: true, Summary: fmt.Sprintf("%d entries", len(entries)), Data: entries}
}

func (o *Orchestrator) dispatchReadFile(p *protocol.ReadFileParams) protocol.ToolResult {
	tool := string(protocol.ActionReadFile)
	if p == nil {
		return protocol.ToolResult{Tool: tool, OK: false, Summary: "missing parameters"}
	}
	content, truncated, err := o.tk.ReadSegment(p.Path, p.StartLine, p.EndLine, o.cfg.MaxToolOutputChars)
	if err != nil {
		return protocol.ToolResult{Tool: tool, OK: false, Summary: err.Error()}
	}
	summary := fmt.Sprintf("read %s", p.Path)
	if truncated {
		summary += " (truncated)"
	}
	return protocol.ToolResult{Tool: tool, OK: true, Summary: summary, Data: content}
}

func (o *Orchestrator) dispatchGrep(ctx context.Context, p *protocol.GrepParams) protocol.ToolResult {
	tool := string(protocol.ActionGrep)
	if p == nil {
		return protocol.ToolResult{Tool: tool, OK: false, Summary: "missing parameters"}
	}
	matches, err := o.grep.Search(ctx, p.Pattern, p.Path, 0)
	if err != nil {
		return protocol.ToolResult{Tool: tool, OK: false, Summary: err.Error()}
	}
	return protocol.ToolResult{Tool: tool, OK: true, Summary: fmt.Sprintf("%d matches", len(matches)), Data: matches}
}

func (o *Orchestrator) dispatchRunCommand(ctx context.Context, p *protocol.RunCommandParams, pol policy.Policy) protocol.ToolResult {
	tool := string(protocol.ActionRunCommand)
	if p == nil {
		return protocol.ToolResult{Tool: tool, OK: false, Summary: "missing parameters"}
	}
	if allowed, reason := pol.CheckCommand(p.Command); !allowed {
		return protocol.ToolResult{Tool: tool, OK: false, Summary: "policy denied: " + reason}
	}
	timeout := time.Duration(o.cfg.ToolTimeoutMS) * time.Millisecond
	result, err := o.shell.Run(ctx, p.Command, timeout)
	if err != nil {
		return protocol.ToolResult{Tool: tool, OK: false, Summary: err.Error()}
	}
	ok := !result.Failed()
	summary := fmt.Sprintf("exit=%v timedOut=%v", exitCodeString(result.ExitCode), result.TimedOut)
	if ok {
		return protocol.ToolResult{Tool: tool, OK: true, Summary: summary, Data: result}
	}
	report := stacktrace.Parse(result.Stdout + result.Stderr)
	return protocol.ToolResult{Tool: tool, OK: false, Summary: summary, Data: map[string]any{"result": result, "failure": report}}
}

func exitCodeString(code *int) string {
	if code == nil {
		return "signal"
	}
	return fmt.Sprintf("%d", *code)
}

func (o *Orchestrator) dispatchWriteFile(p *protocol.WriteFileParams, pol policy.Policy, tracker *changetracker.Tracker) protocol.ToolResult {
	tool := string(protocol.ActionWriteFile)
	if p == nil {
		return protocol.ToolResult{Tool: tool, OK: false, Summary: "missing parameters"}
	}

	if allowed, reason := pol.CheckWritePath(p.Path); !allowed {
		return protocol.ToolResult{Tool: tool, OK: false, Summary: "policy denied: " + reason}
	}

	if !pol.AllowPotentialSecrets {
		if findings := policy.DetectSecrets(p.Content); len(findings) > 0 {
			return protocol.ToolResult{Tool: tool, OK: false, Summary: "write blocked: potential secret detected", Data: findings}
		}
	}

	existed := o.tk.Exists(p.Path)
	before, _ := o.tk.ReadIfExists(p.Path)

	if before == p.Content {
		return protocol.ToolResult{
			Tool: tool, OK: true,
			Summary: fmt.Sprintf("%s unchanged", p.Path),
			Data:    map[string]any{"changed": false},
		}
	}

	tracker.RecordBefore(p.Path, existed, []byte(before))

	diff := unifiedDiff(p.Path, before, p.Content)
	if diff != "" {
		o.ui.ShowDiff(p.Path, diff)
	}
	if !o.ui.Confirm(fmt.Sprintf("Apply this write to %s?", p.Path)) {
		return protocol.ToolResult{Tool: tool, OK: false, Summary: "write declined by user"}
	}

	if err := o.tk.Write(p.Path, p.Content); err != nil {
		return protocol.ToolResult{Tool: tool, OK: false, Summary: err.Error()}
	}
	tracker.RecordAfter(p.Path, []byte(p.Content))

	added, removed := diffStat(diff)
	return protocol.ToolResult{
		Tool: tool, OK: true,
		Summary: fmt.Sprintf("wrote %s (+%d/-%d)", p.Path, added, removed),
		Data:    map[string]any{"changed": true},
	}
}

func (o *Orchestrator) dispatchScanProject(ctx context.Context, p *protocol.ScanProjectParams) protocol.ToolResult {
	tool := string(protocol.ActionScanProject)
	opts := index.ScanOptions{MaxFiles: o.cfg.MaxScanFiles}
	if p != nil {
		opts.Refresh = p.Refresh
		if p.MaxFiles > 0 {
			opts.MaxFiles = p.MaxFiles
		}
	}
	idx, err := o.scanner.Scan(ctx, opts)
	if err != nil {
		return protocol.ToolResult{Tool: tool, OK: false, Summary: err.Error()}
	}
	return protocol.ToolResult{
		Tool: tool, OK: true,
		Summary: fmt.Sprintf("scanned %d files", idx.TotalFilesScanned),
		Data:    map[string]any{"total_files_scanned": idx.TotalFilesScanned, "languages": idx.Languages},
	}
}

func (o *Orchestrator) dispatchSymbolLookup(p *protocol.SymbolLookupParams) protocol.ToolResult {
	tool := string(protocol.ActionSymbolLookup)
	if p == nil {
		return protocol.ToolResult{Tool: tool, OK: false, Summary: "missing parameters"}
	}
	idx := o.scanner.Summary()
	if idx == nil {
		return protocol.ToolResult{Tool: tool, OK: false, Summary: "project has not been scanned yet; run scan_project first"}
	}
	symbols := idx.LookupSymbols(p.Query, p.Language, p.Limit)
	return protocol.ToolResult{Tool: tool, OK: true, Summary: fmt.Sprintf("%d symbols", len(symbols)), Data: symbols}
}

func (o *Orchestrator) dispatchFindReferences(p *protocol.FindReferencesParams) protocol.ToolResult {
	tool := string(protocol.ActionFindReferences)
	if p == nil {
		return protocol.ToolResult{Tool: tool, OK: false, Summary: "missing parameters"}
	}
	idx := o.scanner.Summary()
	if idx == nil {
		return protocol.ToolResult{Tool: tool, OK: false, Summary: "project has not been scanned yet; run scan_project first"}
	}
	uses := idx.FindReferences(p.Name, p.Language, p.Limit)
	return protocol.ToolResult{Tool: tool, OK: true, Summary: fmt.Sprintf("%d references", len(uses)), Data: uses}
}

func (o *Orchestrator) dispatchDependencyMap() protocol.ToolResult {
	tool := string(protocol.ActionDependencyMap)
	idx := o.scanner.Summary()
	if idx == nil {
		return protocol.ToolResult{Tool: tool, OK: false, Summary: "project has not been scanned yet; run scan_project first"}
	}
	return protocol.ToolResult{Tool: tool, OK: true, Summary: "dependency map", Data: idx.Dependencies}
}

func (o *Orchestrator) dispatchMemorySet(p *protocol.MemorySetParams) protocol.ToolResult {
	tool := string(protocol.ActionMemorySet)
	if p == nil {
		return protocol.ToolResult{Tool: tool, OK: false, Summary: "missing parameters"}
	}
	tags, err := o.mem.ApplyUpdates(toMemoryUpdates(p.Updates))
	if err != nil {
		return protocol.ToolResult{Tool: tool, OK: false, Summary: err.Error()}
	}
	return protocol.ToolResult{Tool: tool, OK: true, Summary: fmt.Sprintf("%d change(s)", len(tags)), Data: tags}
}

func (o *Orchestrator) dispatchMemoryGet() protocol.ToolResult {
	tool := string(protocol.ActionMemoryGet)
	doc, err := o.mem.Get()
	if err != nil {
		return protocol.ToolResult{Tool: tool, OK: false, Summary: err.Error()}
	}
	raw, _ := json.Marshal(doc)
	return protocol.ToolResult{Tool: tool, OK: true, Summary: "memory document", Data: json.RawMessage(raw)}
}

// runVerifyCommand runs a verify-phase shell command through the same
// policy gate as an explicit run_command action.
func (o *Orchestrator) runVerifyCommand(ctx context.Context, command string, pol policy.Policy) protocol.ToolResult {
	tool := "verify"
	if allowed, reason := pol.CheckCommand(command); !allowed {
		return protocol.ToolResult{Tool: tool, OK: false, Summary: "policy denied: " + reason}
	}
	timeout := time.Duration(o.cfg.ToolTimeoutMS) * time.Millisecond
	result, err := o.shell.Run(ctx, command, timeout)
	if err != nil {
		return protocol.ToolResult{Tool: tool, OK: false, Summary: err.Error()}
	}
	if !result.Failed() {
		return protocol.ToolResult{Tool: tool, OK: true, Summary: command, Data: result}
	}
	summary := fmt.Sprintf("%s (exit=%s)", command, exitCodeString(result.ExitCode))
	report := stacktrace.Parse(result.Stdout + result.Stderr)
	return protocol.ToolResult{Tool: tool, OK: false, Summary: summary, Data: map[string]any{"result": result, "failure": report}}
}
