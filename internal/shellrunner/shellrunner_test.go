package shellrunner

import (
	"context"
	"runtime"
	"testing"
	"time"
)

func TestRunSuccess(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("posix shell assumed")
	}
	r := New(t.TempDir())
	result, err := r.Run(context.Background(), "echo hello", 2*time.Second)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Failed() {
		t.Fatalf("expected success, got %+v", result)
	}
	if result.Stdout != "hello\n" {
		t.Fatalf("unexpected stdout: %q", result.Stdout)
	}
}

func TestRunNonZeroExit(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("posix shell assumed")
	}
	r := New(t.TempDir())
	result, err := r.Run(context.Background(), "exit 3", 2*time.Second)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !result.Failed() {
		t.Fatal("expected failure for non-zero exit")
	}
	if result.ExitCode == nil || *result.ExitCode != 3 {
		t.Fatalf("expected exit code 3, got %+v", result.ExitCode)
	}
}

func TestRunTimeout(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("posix shell assumed")
	}
	r := New(t.TempDir())
	result, err := r.Run(context.Background(), "sleep 5", 100*time.Millisecond)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !result.TimedOut {
		t.Fatal("expected timeout")
	}
	if !result.Failed() {
		t.Fatal("timeout must be treated as failure")
	}
}

func TestOutputCapDoesNotKillProcess(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("posix shell assumed")
	}
	r := New(t.TempDir())
	r.MaxOutputChars = 10
	result, err := r.Run(context.Background(), "echo 0123456789abcdef", 2*time.Second)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.TimedOut {
		t.Fatal("output cap must not be treated as a timeout")
	}
	if len(result.Stdout) != 10 {
		t.Fatalf("expected stdout capped at 10 chars, got %d: %q", len(result.Stdout), result.Stdout)
	}
}
