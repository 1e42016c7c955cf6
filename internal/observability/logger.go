package observability

import (
	"encoding/json"
	"io"
	"log"
	"os"
	"time"
)

// Logger writes one JSON object per line. Debug lines are dropped unless the
// logger was built with debug enabled.
type Logger struct {
	base  *log.Logger
	debug bool
}

func NewLogger(debug bool) *Logger {
	return NewLoggerTo(os.Stdout, debug)
}

func NewLoggerTo(out io.Writer, debug bool) *Logger {
	return &Logger{base: log.New(out, "", 0), debug: debug}
}

// Discard returns a logger that drops everything. Used by tests and tooling.
func Discard() *Logger {
	return NewLoggerTo(io.Discard, false)
}

func (l *Logger) Debug(message string, fields map[string]any) {
	if !l.debug {
		return
	}
	l.write("debug", message, fields)
}

func (l *Logger) Info(message string, fields map[string]any) {
	l.write("info", message, fields)
}

func (l *Logger) Warn(message string, fields map[string]any) {
	l.write("warn", message, fields)
}

func (l *Logger) Error(message string, fields map[string]any) {
	l.write("error", message, fields)
}

func (l *Logger) write(level, message string, fields map[string]any) {
	payload := map[string]any{
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"level":     level,
		"message":   message,
	}
	for k, v := range fields {
		payload[k] = v
	}

	encoded, err := json.Marshal(payload)
	if err != nil {
		l.base.Println(`{"level":"error","message":"failed to encode log"}`)
		return
	}

	l.base.Println(string(encoded))
}
