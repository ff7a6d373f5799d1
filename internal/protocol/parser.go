package protocol

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	maxPlanSteps     = 12
	maxActions       = 6
	maxVerifyCmds    = 8
	maxMemoryListLen = 30
	maxMemoryKV      = 50
)

// ParseAgentResponse extracts the first JSON object from raw model text and
// normalizes it into a bounded, valid ModelResponse. It never returns an
// error and never panics: any failure downgrades to a need_user response
// asking for a strict-JSON retry.
func ParseAgentResponse(text string) ModelResponse {
	candidate := extractJSONObject(text)
	if candidate == "" {
		return needUserRetry("no JSON object found in model response")
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(candidate), &raw); err != nil {
		repaired := stripTrailingCommas(candidate)
		if repaired == candidate {
			return needUserRetry(fmt.Sprintf("invalid JSON: %v", err))
		}
		if err2 := json.Unmarshal([]byte(repaired), &raw); err2 != nil {
			return needUserRetry(fmt.Sprintf("invalid JSON: %v (repair failed: %v)", err, err2))
		}
	}

	return normalize(raw)
}

func needUserRetry(reason string) ModelResponse {
	return ModelResponse{
		Status:   StatusNeedUser,
		Plan:     []string{},
		Actions:  []Action{},
		Verify:   []VerifyCommand{},
		Question: "I could not parse a valid JSON response (" + reason + "). Please reply with a single strict-JSON object matching the response schema.",
	}
}

func normalize(raw map[string]any) ModelResponse {
	resp := ModelResponse{
		Status:  normalizeStatus(raw["status"]),
		Actions: []Action{},
		Verify:  []VerifyCommand{},
		Plan:    []string{},
	}
	resp.AssistantMsg, _ = raw["assistant_message"].(string)
	resp.Plan = normalizePlan(raw["plan"])
	resp.Actions = normalizeActions(raw["actions"])
	resp.Verify = normalizeVerify(raw["verify"])
	if q, ok := raw["question"].(string); ok {
		resp.Question = strings.TrimSpace(q)
	}
	if resp.Status == StatusNeedUser && strings.TrimSpace(resp.Question) == "" {
		resp.Question = "Please clarify how to proceed."
	}
	resp.MemoryUpdates = normalizeMemoryUpdates(raw["memory_updates"])
	return resp
}

func normalizeStatus(v any) Status {
	s, _ := v.(string)
	switch Status(strings.TrimSpace(strings.ToLower(s))) {
	case StatusDone:
		return StatusDone
	case StatusNeedUser:
		return StatusNeedUser
	default:
		return StatusContinue
	}
}

func normalizePlan(v any) []string {
	arr, ok := v.([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, maxPlanSteps)
	for _, item := range arr {
		if len(out) >= maxPlanSteps {
			break
		}
		s, ok := item.(string)
		if !ok {
			continue
		}
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		out = append(out, s)
	}
	return out
}

func normalizeVerify(v any) []VerifyCommand {
	arr, ok := v.([]any)
	if !ok {
		return []VerifyCommand{}
	}
	out := make([]VerifyCommand, 0, maxVerifyCmds)
	for _, item := range arr {
		if len(out) >= maxVerifyCmds {
			break
		}
		switch t := item.(type) {
		case string:
			cmd := strings.TrimSpace(t)
			if cmd == "" {
				continue
			}
			out = append(out, VerifyCommand{Command: cmd})
		case map[string]any:
			cmd, _ := t["command"].(string)
			cmd = strings.TrimSpace(cmd)
			if cmd == "" {
				continue
			}
			out = append(out, VerifyCommand{Command: cmd})
		}
	}
	return out
}

func normalizeActions(v any) []Action {
	arr, ok := v.([]any)
	if !ok {
		return []Action{}
	}
	out := make([]Action, 0, maxActions)
	for _, item := range arr {
		if len(out) >= maxActions {
			break
		}
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		action, ok := normalizeAction(obj)
		if !ok {
			continue
		}
		out = append(out, action)
	}
	return out
}

func normalizeAction(obj map[string]any) (Action, bool) {
	kindRaw, _ := obj["kind"].(string)
	kind := ActionKind(strings.TrimSpace(strings.ToLower(kindRaw)))

	switch kind {
	case ActionListFiles:
		path, ok := stringField(obj, "path")
		if !ok {
			return Action{}, false
		}
		return Action{Kind: kind, ListFiles: &ListFilesParams{Path: path, Depth: intField(obj, "depth")}}, true
	case ActionReadFile:
		path, ok := stringField(obj, "path")
		if !ok {
			return Action{}, false
		}
		return Action{Kind: kind, ReadFile: &ReadFileParams{
			Path:      path,
			StartLine: intField(obj, "start_line"),
			EndLine:   intField(obj, "end_line"),
		}}, true
	case ActionGrep:
		pattern, ok := stringField(obj, "pattern")
		if !ok {
			return Action{}, false
		}
		path, _ := stringField(obj, "path")
		return Action{Kind: kind, Grep: &GrepParams{Pattern: pattern, Path: path}}, true
	case ActionRunCommand:
		command, ok := stringField(obj, "command")
		if !ok {
			return Action{}, false
		}
		return Action{Kind: kind, RunCommand: &RunCommandParams{Command: command}}, true
	case ActionWriteFile:
		path, ok := stringField(obj, "path")
		if !ok {
			return Action{}, false
		}
		content, _ := stringField(obj, "content")
		return Action{Kind: kind, WriteFile: &WriteFileParams{Path: path, Content: content}}, true
	case ActionScanProject:
		return Action{Kind: kind, ScanProject: &ScanProjectParams{
			Refresh:  boolField(obj, "refresh"),
			MaxFiles: intField(obj, "max_files"),
		}}, true
	case ActionSymbolLookup:
		query, ok := stringField(obj, "query")
		if !ok {
			return Action{}, false
		}
		lang, _ := stringField(obj, "language")
		return Action{Kind: kind, SymbolLookup: &SymbolLookupParams{Query: query, Language: lang, Limit: intField(obj, "limit")}}, true
	case ActionFindReferences:
		name, ok := stringField(obj, "name")
		if !ok {
			return Action{}, false
		}
		lang, _ := stringField(obj, "language")
		return Action{Kind: kind, FindReferences: &FindReferencesParams{Name: name, Language: lang, Limit: intField(obj, "limit")}}, true
	case ActionDependencyMap:
		return Action{Kind: kind, DependencyMap: &DependencyMapParams{}}, true
	case ActionMemorySet:
		updatesRaw, ok := obj["updates"].(map[string]any)
		if !ok {
			return Action{}, false
		}
		updates := normalizeMemoryUpdates(updatesRaw)
		if updates == nil {
			updates = &MemoryUpdates{}
		}
		return Action{Kind: kind, MemorySet: &MemorySetParams{Updates: *updates}}, true
	case ActionMemoryGet:
		return Action{Kind: kind, MemoryGet: &MemoryGetParams{}}, true
	default:
		return Action{}, false
	}
}

func normalizeMemoryUpdates(v any) *MemoryUpdates {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	updates := &MemoryUpdates{}
	updates.ProjectRules = stringListField(obj, "project_rules", maxMemoryListLen)
	updates.ArchitectureNotes = stringListField(obj, "architecture_notes", maxMemoryListLen)
	updates.CommonCommands = stringListField(obj, "common_commands", maxMemoryListLen)
	updates.KV = kvField(obj, "kv", maxMemoryKV)
	return updates
}

func stringField(obj map[string]any, key string) (string, bool) {
	v, ok := obj[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	return s, true
}

func intField(obj map[string]any, key string) int {
	v, ok := obj[key]
	if !ok {
		return 0
	}
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	default:
		return 0
	}
}

func boolField(obj map[string]any, key string) bool {
	v, ok := obj[key].(bool)
	return ok && v
}

func stringListField(obj map[string]any, key string, cap int) []string {
	arr, ok := obj[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, minInt(cap, len(arr)))
	for _, item := range arr {
		if len(out) >= cap {
			break
		}
		s, ok := item.(string)
		if !ok {
			continue
		}
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		out = append(out, s)
	}
	return out
}

func kvField(obj map[string]any, key string, cap int) map[string]string {
	m, ok := obj[key].(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]string, minInt(cap, len(m)))
	for k, v := range m {
		if len(out) >= cap {
			break
		}
		k = strings.TrimSpace(k)
		s, ok := v.(string)
		if !ok || k == "" {
			continue
		}
		out[k] = s
	}
	return out
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// extractJSONObject strips ``` fences when present, else returns the
// substring between the first balanced-brace JSON object found in text.
func extractJSONObject(text string) string {
	fenced := extractFenced(text)
	if fenced != "" {
		return fenced
	}
	candidates := extractBalancedJSONCandidates(text)
	for _, c := range candidates {
		if strings.HasPrefix(c, "{") {
			return c
		}
	}
	return ""
}

func extractFenced(text string) string {
	lower := text
	start := strings.Index(lower, "```")
	if start == -1 {
		return ""
	}
	rest := lower[start+3:]
	if idx := strings.IndexByte(rest, '\n'); idx >= 0 {
		firstLine := strings.TrimSpace(rest[:idx])
		if firstLine == "" || strings.EqualFold(firstLine, "json") {
			rest = rest[idx+1:]
		}
	}
	end := strings.Index(rest, "```")
	if end == -1 {
		return ""
	}
	body := strings.TrimSpace(rest[:end])
	if !strings.HasPrefix(body, "{") {
		return ""
	}
	return body
}

// extractBalancedJSONCandidates scans text for top-level balanced {...} or
// [...] blocks, quote- and escape-aware so braces inside string literals are
// ignored.
func extractBalancedJSONCandidates(text string) []string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}

	var candidates []string
	start := -1
	depth := 0
	inString := false
	escaped := false

	for i, r := range text {
		if inString {
			if escaped {
				escaped = false
				continue
			}
			if r == '\\' {
				escaped = true
				continue
			}
			if r == '"' {
				inString = false
			}
			continue
		}

		if r == '"' {
			inString = true
			continue
		}

		if r == '{' || r == '[' {
			if depth == 0 {
				start = i
			}
			depth++
			continue
		}

		if depth > 0 && (r == '}' || r == ']') {
			depth--
			if depth == 0 && start >= 0 {
				candidates = append(candidates, strings.TrimSpace(text[start:i+1]))
				start = -1
			}
		}
	}

	return candidates
}

// stripTrailingCommas removes commas immediately preceding a closing brace
// or bracket, quote-aware, to repair common near-miss JSON from models.
func stripTrailingCommas(text string) string {
	if text == "" {
		return text
	}

	var b strings.Builder
	b.Grow(len(text))

	inString := false
	escaped := false

	for i := 0; i < len(text); i++ {
		ch := text[i]
		if inString {
			b.WriteByte(ch)
			if escaped {
				escaped = false
				continue
			}
			if ch == '\\' {
				escaped = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}

		if ch == '"' {
			inString = true
			b.WriteByte(ch)
			continue
		}

		if ch == ',' {
			j := i + 1
			for j < len(text) {
				next := text[j]
				if next == ' ' || next == '\n' || next == '\r' || next == '\t' {
					j++
					continue
				}
				break
			}
			if j < len(text) && (text[j] == '}' || text[j] == ']') {
				continue
			}
		}

		b.WriteByte(ch)
	}

	return b.String()
}
