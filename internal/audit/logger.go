// Package audit implements the Audit Logger (C13): an append-only,
// best-effort JSONL event log, one file per task session. Buffering and
// flush discipline follow the teacher's own audit logger.
package audit

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	defaultFileMode      = 0o600
	defaultDirMode       = 0o755
	defaultFlushInterval = 2 * time.Second
)

// Event is one append-only log line.
type Event struct {
	Timestamp time.Time `json:"ts"`
	SessionID string    `json:"session_id"`
	Type      string    `json:"type"`
	Data      any       `json:"data,omitempty"`
}

// Logger appends Events to a per-session JSONL file. All writes are
// best-effort: IO failures are swallowed so a broken disk never aborts a
// task.
type Logger struct {
	sessionID string
	taskID    string
	path      string

	mu     sync.Mutex
	file   *os.File
	writer *bufio.Writer

	flushInterval time.Duration
	lastFlushAt   time.Time
}

// NewSessionID returns the ISO-8601 start timestamp for one runTask
// invocation, with ':' and '.' replaced by '-' so it is safe as a filename.
func NewSessionID() string {
	ts := time.Now().UTC().Format(time.RFC3339Nano)
	ts = strings.ReplaceAll(ts, ":", "-")
	ts = strings.ReplaceAll(ts, ".", "-")
	return ts
}

// NewTaskID returns a fresh UUID used to correlate every audit event emitted
// by one runTask invocation, independent of the timestamp-derived session ID.
func NewTaskID() string {
	return uuid.NewString()
}

// SessionID returns the session identifier this Logger was opened with.
func (l *Logger) SessionID() string { return l.sessionID }

// New opens (creating parent directories as needed) the audit log for
// sessionID under stateDir/audit/<session_id>.jsonl. taskID is attached to
// every event logged through this Logger.
func New(stateDir, sessionID, taskID string) *Logger {
	path := filepath.Join(stateDir, "audit", sessionID+".jsonl")
	return &Logger{
		sessionID:     sessionID,
		taskID:        taskID,
		path:          path,
		flushInterval: defaultFlushInterval,
		lastFlushAt:   time.Now().UTC(),
	}
}

func (l *Logger) ensureOpenLocked() bool {
	if l.file != nil && l.writer != nil {
		return true
	}
	if err := os.MkdirAll(filepath.Dir(l.path), defaultDirMode); err != nil {
		return false
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, defaultFileMode)
	if err != nil {
		return false
	}
	l.file = f
	l.writer = bufio.NewWriterSize(f, 32*1024)
	l.lastFlushAt = time.Now().UTC()
	return true
}

// Log appends one event of the given type carrying data. Failures are
// swallowed; the session ends the same whether or not the write succeeded.
func (l *Logger) Log(eventType string, data any) {
	if l == nil {
		return
	}
	if m, ok := data.(map[string]any); ok {
		tagged := make(map[string]any, len(m)+1)
		for k, v := range m {
			tagged[k] = v
		}
		tagged["task_id"] = l.taskID
		data = tagged
	}
	e := Event{Timestamp: time.Now().UTC(), SessionID: l.sessionID, Type: eventType, Data: data}
	line, err := json.Marshal(e)
	if err != nil {
		return
	}
	line = append(line, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.ensureOpenLocked() {
		return
	}
	if _, err := l.writer.Write(line); err != nil {
		return
	}
	if eventType == EventRunEnd || l.shouldPeriodicFlushLocked(time.Now().UTC()) {
		_ = l.flushLocked(true)
	}
}

func (l *Logger) shouldPeriodicFlushLocked(now time.Time) bool {
	if l.flushInterval <= 0 {
		return false
	}
	if l.lastFlushAt.IsZero() {
		return true
	}
	return now.Sub(l.lastFlushAt) >= l.flushInterval
}

func (l *Logger) flushLocked(syncDisk bool) error {
	if l.writer != nil {
		if err := l.writer.Flush(); err != nil {
			return err
		}
	}
	if syncDisk && l.file != nil {
		if err := l.file.Sync(); err != nil {
			return err
		}
	}
	l.lastFlushAt = time.Now().UTC()
	return nil
}

// Close flushes and closes the underlying file, swallowing errors.
func (l *Logger) Close() {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return
	}
	_ = l.flushLocked(true)
	_ = l.file.Close()
	l.file = nil
	l.writer = nil
}

// Event type constants shared across the orchestrator.
const (
	EventRunStart   = "run.start"
	EventRunEnd     = "run.end"
	EventAction     = "action"
	EventActionResult = "action_result"
	EventPolicyDeny = "policy.denied"
	EventVerify     = "verify"
	EventRollback   = "rollback"
)
