// Package obslog wraps the standard log.Logger with leveled helpers and a
// fluent field builder, matching the plain-text logging style used
// throughout the rest of this codebase.
package obslog

import (
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
)

// Logger is a leveled wrapper around a standard log.Logger.
type Logger struct {
	base *log.Logger
}

// New returns a Logger writing to os.Stderr with a standard timestamp.
func New() *Logger {
	return &Logger{base: log.New(os.Stderr, "", log.LstdFlags)}
}

func (l *Logger) Info(msg string, fields map[string]any)  { l.emit("INFO", msg, fields) }
func (l *Logger) Warn(msg string, fields map[string]any)  { l.emit("WARN", msg, fields) }
func (l *Logger) Error(msg string, fields map[string]any) { l.emit("ERROR", msg, fields) }

func (l *Logger) emit(level, msg string, fields map[string]any) {
	if l == nil || l.base == nil {
		return
	}
	l.base.Printf("%s %s%s", level, msg, formatFields(fields))
}

// With returns a FieldLogger that prepends fields to every subsequent call.
func (l *Logger) With(fields map[string]any) *FieldLogger {
	return &FieldLogger{logger: l, fields: fields}
}

// FieldLogger carries a fixed set of fields across several log calls.
type FieldLogger struct {
	logger *Logger
	fields map[string]any
}

func (f *FieldLogger) Info(msg string)  { f.logger.emit("INFO", msg, f.fields) }
func (f *FieldLogger) Warn(msg string)  { f.logger.emit("WARN", msg, f.fields) }
func (f *FieldLogger) Error(msg string) { f.logger.emit("ERROR", msg, f.fields) }

func formatFields(fields map[string]any) string {
	if len(fields) == 0 {
		return ""
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteByte(' ')
		b.WriteString(k)
		b.WriteByte('=')
		fmt.Fprintf(&b, "%v", fields[k])
	}
	return b.String()
}
