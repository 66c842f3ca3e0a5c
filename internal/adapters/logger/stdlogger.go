package logger

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strings"
	"sync"
)

// LogLevel defines the logging level.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelSilent
)

// String returns the string representation of the LogLevel.
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelSilent:
		return "SILENT"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a string level to LogLevel. Unrecognized values map to Info.
func ParseLevel(levelStr string) LogLevel {
	switch strings.ToUpper(strings.TrimSpace(levelStr)) {
	case "DEBUG":
		return LevelDebug
	case "INFO":
		return LevelInfo
	case "WARN", "WARNING":
		return LevelWarn
	case "ERROR":
		return LevelError
	case "SILENT", "OFF", "NONE":
		return LevelSilent
	default:
		return LevelInfo
	}
}

type ctxKey struct{}

// WithRunContext attaches fields (typically run_id and code) that every log line
// written with the returned context will carry.
func WithRunContext(ctx context.Context, fields map[string]interface{}) context.Context {
	merged := make(map[string]interface{}, len(fields))
	if existing, ok := ctx.Value(ctxKey{}).(map[string]interface{}); ok {
		for k, v := range existing {
			merged[k] = v
		}
	}
	for k, v := range fields {
		merged[k] = v
	}
	return context.WithValue(ctx, ctxKey{}, merged)
}

// StdLogger implements the ports.Logger interface using the standard log package.
// It is safe for concurrent use by sweep workers.
type StdLogger struct {
	mu     sync.Mutex
	logger *log.Logger
	level  LogLevel
}

// NewStdLogger creates a new standard logger writing to os.Stderr.
func NewStdLogger(level LogLevel) *StdLogger {
	return NewWriterLogger(os.Stderr, level, log.LstdFlags|log.Lmicroseconds)
}

// NewWriterLogger creates a logger writing to w with the given log flags.
func NewWriterLogger(w io.Writer, level LogLevel, flags int) *StdLogger {
	return &StdLogger{
		logger: log.New(w, "", flags),
		level:  level,
	}
}

// NewNopLogger returns a logger that discards everything.
func NewNopLogger() *StdLogger {
	return NewWriterLogger(io.Discard, LevelSilent, 0)
}

// Level returns the configured threshold.
func (l *StdLogger) Level() LogLevel { return l.level }

func (l *StdLogger) log(ctx context.Context, level LogLevel, msg string, err error, fields ...map[string]interface{}) {
	if level < l.level {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("[%s] %s", level.String(), msg))

	if err != nil {
		sb.WriteString(fmt.Sprintf(" | error: %v", err))
	}

	merged := map[string]interface{}{}
	if ctx != nil {
		if ctxFields, ok := ctx.Value(ctxKey{}).(map[string]interface{}); ok {
			for k, v := range ctxFields {
				merged[k] = v
			}
		}
	}
	for _, f := range fields {
		for k, v := range f {
			merged[k] = v
		}
	}

	if len(merged) > 0 {
		keys := make([]string, 0, len(merged))
		for k := range merged {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		sb.WriteString(" |")
		for _, k := range keys {
			sb.WriteString(fmt.Sprintf(" %s=%v", k, merged[k]))
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.logger.Println(sb.String())
}

// Debug logs a message at Debug level.
func (l *StdLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {
	l.log(ctx, LevelDebug, msg, nil, fields...)
}

// Info logs a message at Info level.
func (l *StdLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{}) {
	l.log(ctx, LevelInfo, msg, nil, fields...)
}

// Warn logs a message at Warning level.
func (l *StdLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{}) {
	l.log(ctx, LevelWarn, msg, nil, fields...)
}

// Error logs an error message at Error level.
func (l *StdLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
	l.log(ctx, LevelError, msg, err, fields...)
}
