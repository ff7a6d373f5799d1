package termui

import (
	"bytes"
	"strings"
	"testing"
)

func TestConfirmReadsYesFromInput(t *testing.T) {
	var out bytes.Buffer
	term := New(&out, strings.NewReader("yes\n"), false)
	if !term.Confirm("continue?") {
		t.Fatal("expected Confirm to return true for \"yes\"")
	}
	if !strings.Contains(out.String(), "continue?") {
		t.Fatalf("expected prompt to be echoed, got %q", out.String())
	}
}

func TestConfirmDefaultsToNoOnAnythingElse(t *testing.T) {
	var out bytes.Buffer
	term := New(&out, strings.NewReader("nope\n"), false)
	if term.Confirm("continue?") {
		t.Fatal("expected Confirm to return false for anything but y/yes")
	}
}

func TestConfirmAssumeYesSkipsPrompting(t *testing.T) {
	var out bytes.Buffer
	term := New(&out, strings.NewReader(""), true)
	if !term.Confirm("continue?") {
		t.Fatal("expected assumeYes Confirm to always return true")
	}
}

func TestAskQuestionReturnsTrimmedLine(t *testing.T) {
	var out bytes.Buffer
	term := New(&out, strings.NewReader("  use npm  \n"), false)
	if got := term.AskQuestion("which package manager?"); got != "use npm" {
		t.Fatalf("unexpected answer: %q", got)
	}
}

func TestShowChangeSummaryListsEachLine(t *testing.T) {
	var out bytes.Buffer
	term := New(&out, strings.NewReader(""), false)
	term.ShowChangeSummary([]string{"a.go (+3/-1)", "b.go (+1/-0)"})
	if !strings.Contains(out.String(), "a.go (+3/-1)") || !strings.Contains(out.String(), "b.go (+1/-0)") {
		t.Fatalf("expected both changed files listed, got %q", out.String())
	}
}
