package testhelpers

import (
	"sync"

	"go.uber.org/zap/zapcore"

	"github.com/jonesrussell/north-cloud/muniwatch/internal/logger"
)

// LogEntry is one captured log call with its fields flattened.
type LogEntry struct {
	Level  string
	Msg    string
	Fields map[string]any
}

// RecordingLogger keeps every entry in memory so tests can assert on
// messages and fields. Children made With share the parent's entries.
type RecordingLogger struct {
	mu      *sync.Mutex
	entries *[]LogEntry
	fields  []logger.Field
}

func NewRecordingLogger() *RecordingLogger {
	return &RecordingLogger{mu: &sync.Mutex{}, entries: &[]LogEntry{}}
}

func (l *RecordingLogger) Debug(msg string, fields ...logger.Field) { l.record("debug", msg, fields) }
func (l *RecordingLogger) Info(msg string, fields ...logger.Field)  { l.record("info", msg, fields) }
func (l *RecordingLogger) Warn(msg string, fields ...logger.Field)  { l.record("warn", msg, fields) }
func (l *RecordingLogger) Error(msg string, fields ...logger.Field) { l.record("error", msg, fields) }
func (l *RecordingLogger) Fatal(msg string, fields ...logger.Field) { l.record("fatal", msg, fields) }

func (l *RecordingLogger) With(fields ...logger.Field) logger.Logger {
	return &RecordingLogger{mu: l.mu, entries: l.entries, fields: append(append([]logger.Field{}, l.fields...), fields...)}
}

func (*RecordingLogger) Sync() error { return nil }

// Entries returns the captured entries with the given message.
func (l *RecordingLogger) Entries(msg string) []LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []LogEntry
	for _, e := range *l.entries {
		if e.Msg == msg {
			out = append(out, e)
		}
	}
	return out
}

func (l *RecordingLogger) record(level, msg string, fields []logger.Field) {
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range l.fields {
		f.AddTo(enc)
	}
	for _, f := range fields {
		f.AddTo(enc)
	}
	l.mu.Lock()
	*l.entries = append(*l.entries, LogEntry{Level: level, Msg: msg, Fields: enc.Fields})
	l.mu.Unlock()
}
