package stacktrace

import "testing"

func TestParseNodeStyleFrames(t *testing.T) {
	output := `TypeError: Cannot read properties of undefined
    at Object.<anonymous> (/repo/src/index.js:10:5)
    at Module._compile (node:internal/modules/cjs/loader:1105:14)
`
	report := Parse(output)
	if len(report.Frames) == 0 {
		t.Fatal("expected at least one frame")
	}
	if report.Frames[0].Path != "/repo/src/index.js" || report.Frames[0].Line != 10 {
		t.Fatalf("unexpected first frame: %+v", report.Frames[0])
	}
	// "TypeError: ..." neither starts with "Error:" or "Traceback" nor
	// contains "Exception", so no exception line is captured.
	if report.ExceptionLine != "" {
		t.Fatalf("expected no exception line for a TypeError: line, got %q", report.ExceptionLine)
	}
}

func TestParsePythonStyleFrames(t *testing.T) {
	output := `Traceback (most recent call last):
  File "/repo/app.py", line 42, in main
    raise ValueError("bad input")
ValueError: bad input
`
	report := Parse(output)
	if len(report.Frames) != 1 {
		t.Fatalf("expected 1 frame, got %+v", report.Frames)
	}
	if report.Frames[0].Path != "/repo/app.py" || report.Frames[0].Line != 42 || report.Frames[0].Function != "main" {
		t.Fatalf("unexpected frame: %+v", report.Frames[0])
	}
	if report.ExceptionLine != "Traceback (most recent call last):" {
		t.Fatalf("unexpected exception line: %q", report.ExceptionLine)
	}
}

func TestParseNoFramesStillReturnsSummary(t *testing.T) {
	report := Parse("plain text with no frames at all")
	if report.Frames != nil {
		t.Fatalf("expected no frames, got %+v", report.Frames)
	}
	if report.ExceptionLine != "" {
		t.Fatalf("expected no exception line, got %q", report.ExceptionLine)
	}
}

func TestParseCapsAtTwentyFrames(t *testing.T) {
	var output string
	for i := 0; i < 30; i++ {
		output += "  File \"/repo/app.py\", line 1, in f\n"
	}
	report := Parse(output)
	if len(report.Frames) != maxFrames {
		t.Fatalf("expected frames capped at %d, got %d", maxFrames, len(report.Frames))
	}
}
