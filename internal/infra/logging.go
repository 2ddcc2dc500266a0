package infra

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"measurement-simulator/internal/shared/constants"
)

// Level is the severity written in the "level" field of a log line.
type Level string

const (
	LevelInfo  Level = "info"
	LevelError Level = "error"
	LevelFatal Level = "fatal"
)

type contextKey string

const correlationIDKey contextKey = "correlation_id"

// Logger writes one JSON object per line:
//
//	{"timestamp":"...","level":"info","message":"...","service":"...","trace_id":"..."}
//
// The trace_id comes from the correlation ID stored in the call context. A nil
// *Logger discards everything except Fatalf, which still exits.
type Logger struct {
	mu      sync.Mutex
	out     io.Writer
	service string
	exit    func(int)
}

// NewLogger returns a logger writing to out, or discarding output when out is nil.
func NewLogger(out io.Writer, service string) *Logger {
	if out == nil {
		out = io.Discard
	}
	return &Logger{out: out, service: strings.TrimSpace(service), exit: os.Exit}
}

// WithCorrelationID returns a child of ctx carrying id for log lines and responses.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, correlationIDKey, strings.TrimSpace(id))
}

// CorrelationIDFromContext returns the ID set by WithCorrelationID, or "".
func CorrelationIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(correlationIDKey).(string)
	return id
}

func (l *Logger) Printf(ctx context.Context, format string, v ...any) {
	l.write(ctx, LevelInfo, fmt.Sprintf(format, v...))
}

func (l *Logger) Println(ctx context.Context, v ...any) {
	l.write(ctx, LevelInfo, strings.TrimSpace(fmt.Sprintln(v...)))
}

func (l *Logger) Errorf(ctx context.Context, format string, v ...any) {
	l.write(ctx, LevelError, fmt.Sprintf(format, v...))
}

// Fatalf logs at fatal level and terminates the process with status 1.
func (l *Logger) Fatalf(ctx context.Context, format string, v ...any) {
	l.write(ctx, LevelFatal, fmt.Sprintf(format, v...))
	if l == nil || l.exit == nil {
		os.Exit(1)
	}
	l.exit(1)
}

type line struct {
	Timestamp string `json:"timestamp"`
	Level     Level  `json:"level"`
	Message   string `json:"message"`
	Service   string `json:"service,omitempty"`
	TraceID   string `json:"trace_id,omitempty"`
}

func (l *Logger) write(ctx context.Context, level Level, message string) {
	if l == nil {
		return
	}

	data, err := json.Marshal(line{
		Timestamp: time.Now().UTC().Format(constants.TimeFormat),
		Level:     level,
		Message:   message,
		Service:   l.service,
		TraceID:   CorrelationIDFromContext(ctx),
	})
	if err != nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = l.out.Write(append(data, '\n'))
}
