// Package termui implements the agent's UI collaborator against a plain
// terminal: narration to an io.Writer, confirmations and free-text
// questions read from a bufio.Scanner over stdin.
package termui

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Terminal is the injectable agent.UI backed by stdin/stdout.
type Terminal struct {
	out     io.Writer
	in      *bufio.Scanner
	assumeYes bool
}

// New returns a Terminal writing narration to out and reading answers from
// in. When assumeYes is true, Confirm always returns true without prompting
// (used for non-interactive runs).
func New(out io.Writer, in io.Reader, assumeYes bool) *Terminal {
	return &Terminal{out: out, in: bufio.NewScanner(in), assumeYes: assumeYes}
}

func (t *Terminal) ShowAssistantMessage(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	fmt.Fprintf(t.out, "\n%s\n", text)
}

func (t *Terminal) ShowPlan(steps []string) {
	if len(steps) == 0 {
		return
	}
	fmt.Fprintln(t.out, "\nplan:")
	for i, step := range steps {
		fmt.Fprintf(t.out, "  %d. %s\n", i+1, step)
	}
}

func (t *Terminal) ShowToolResult(tool string, ok bool, summary string) {
	status := "ok"
	if !ok {
		status = "FAIL"
	}
	fmt.Fprintf(t.out, "[%s] %s: %s\n", status, tool, summary)
}

func (t *Terminal) ShowDiff(path, diff string) {
	fmt.Fprintf(t.out, "\n--- %s ---\n%s\n", path, diff)
}

func (t *Terminal) Confirm(prompt string) bool {
	if t.assumeYes {
		fmt.Fprintf(t.out, "%s [y/N] y (auto-confirmed)\n", prompt)
		return true
	}
	fmt.Fprintf(t.out, "%s [y/N] ", prompt)
	if !t.in.Scan() {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(t.in.Text()))
	return answer == "y" || answer == "yes"
}

func (t *Terminal) AskQuestion(question string) string {
	fmt.Fprintf(t.out, "\n%s\n> ", question)
	if !t.in.Scan() {
		return ""
	}
	return strings.TrimSpace(t.in.Text())
}

func (t *Terminal) ShowChangeSummary(lines []string) {
	if len(lines) == 0 {
		return
	}
	fmt.Fprintln(t.out, "\nchanged files:")
	for _, line := range lines {
		fmt.Fprintf(t.out, "  %s\n", line)
	}
}

func (t *Terminal) ShowError(msg string) {
	fmt.Fprintf(t.out, "error: %s\n", msg)
}

func (t *Terminal) ShowInfo(msg string) {
	fmt.Fprintln(t.out, msg)
}
