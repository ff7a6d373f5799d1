package agent

import "testing"

func TestUnifiedDiffEmptyWhenIdentical(t *testing.T) {
	if d := unifiedDiff("a.txt", "same\ncontent\n", "same\ncontent\n"); d != "" {
		t.Fatalf("expected empty diff for identical content, got %q", d)
	}
}

func TestUnifiedDiffShowsAddedAndRemovedLines(t *testing.T) {
	before := "line1\nline2\nline3\n"
	after := "line1\nchanged\nline3\n"
	d := unifiedDiff("a.txt", before, after)
	if d == "" {
		t.Fatal("expected non-empty diff")
	}
	added, removed := diffStat(d)
	if added != 1 || removed != 1 {
		t.Fatalf("expected 1 added and 1 removed, got added=%d removed=%d (diff=%s)", added, removed, d)
	}
}

func TestDiffStatIgnoresHeaders(t *testing.T) {
	diff := "--- a/x.txt\n+++ b/x.txt\n@@ -1,2 +1,2 @@\n-old\n+new\n line\n"
	added, removed := diffStat(diff)
	if added != 1 || removed != 1 {
		t.Fatalf("expected 1/1, got added=%d removed=%d", added, removed)
	}
}

func TestClipTruncatesWithMarker(t *testing.T) {
	out := clip("0123456789", 4)
	if out[:4] != "0123" {
		t.Fatalf("expected clipped prefix, got %q", out)
	}
	if out == "0123456789" {
		t.Fatal("expected truncation to occur")
	}
}

func TestClipNoOpWhenUnderLimit(t *testing.T) {
	if out := clip("short", 100); out != "short" {
		t.Fatalf("expected no-op, got %q", out)
	}
}
