// Package telemetryadapter wires connectorcore's corekit.Logger and
// corekit.Telemetry interfaces to real infrastructure: structured JSON
// logging (optionally rotated to disk via lumberjack) and OpenTelemetry
// tracing/metrics.
//
// Grounded on gomind's telemetry.TelemetryLogger (env-driven level/format
// detection, text locally / JSON under Kubernetes) and
// orchestration.NewTracedHTTPClient's use of otelhttp for outbound call
// tracing — neither file is copied verbatim; both are rebuilt against
// corekit's interfaces instead of gomind's.
package telemetryadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/connectorcore/connectorcore/corekit"
)

// LogLevel is the ordered severity used to gate output.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

func parseLevel(s string) LogLevel {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug
	case "WARN", "WARNING":
		return LevelWarn
	case "ERROR":
		return LevelError
	default:
		return LevelInfo
	}
}

// JSONLogger is the default corekit.ComponentAwareLogger implementation. It
// emits one JSON object per line, optionally rotated to disk.
type JSONLogger struct {
	mu        sync.Mutex
	out       io.Writer
	level     LogLevel
	component string
	service   string
}

// JSONLoggerOptions configures NewJSONLogger.
type JSONLoggerOptions struct {
	ServiceName string
	Level       string // DEBUG|INFO|WARN|ERROR, default INFO
	FilePath    string // when set, rotated file output via lumberjack
	MaxSizeMB   int
	MaxBackups  int
	MaxAgeDays  int
}

// NewJSONLogger builds a logger from options, falling back to GOMIND-style
// environment variables (CONNECTORCORE_LOG_LEVEL) when options are zero.
func NewJSONLogger(opts JSONLoggerOptions) *JSONLogger {
	level := opts.Level
	if level == "" {
		level = os.Getenv("CONNECTORCORE_LOG_LEVEL")
	}
	var out io.Writer = os.Stdout
	if opts.FilePath != "" {
		out = &lumberjack.Logger{
			Filename:   opts.FilePath,
			MaxSize:    firstPositive(opts.MaxSizeMB, 100),
			MaxBackups: firstPositive(opts.MaxBackups, 5),
			MaxAge:     firstPositive(opts.MaxAgeDays, 28),
			Compress:   true,
		}
	}
	return &JSONLogger{
		out:     out,
		level:   parseLevel(level),
		service: opts.ServiceName,
	}
}

func firstPositive(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}

// WithComponent returns a logger tagged with component, satisfying
// corekit.ComponentAwareLogger.
func (l *JSONLogger) WithComponent(component string) corekit.Logger {
	return &JSONLogger{out: l.out, level: l.level, component: component, service: l.service}
}

func (l *JSONLogger) write(level, msg string, fields map[string]interface{}, traceId string) {
	entry := map[string]interface{}{
		"ts":        time.Now().UTC().Format(time.RFC3339Nano),
		"level":     level,
		"msg":       msg,
		"service":   l.service,
		"component": l.component,
	}
	if traceId != "" {
		entry["traceId"] = traceId
	}
	for k, v := range fields {
		entry[k] = v
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	enc := json.NewEncoder(l.out)
	if err := enc.Encode(entry); err != nil {
		fmt.Fprintf(os.Stderr, "telemetryadapter: log encode failed: %v\n", err)
	}
}

func (l *JSONLogger) log(min LogLevel, level, msg string, fields map[string]interface{}) {
	if l.level > min {
		return
	}
	l.write(level, msg, fields, "")
}

func (l *JSONLogger) Info(msg string, fields map[string]interface{})  { l.log(LevelInfo, "INFO", msg, fields) }
func (l *JSONLogger) Error(msg string, fields map[string]interface{}) { l.log(LevelError, "ERROR", msg, fields) }
func (l *JSONLogger) Warn(msg string, fields map[string]interface{})  { l.log(LevelWarn, "WARN", msg, fields) }
func (l *JSONLogger) Debug(msg string, fields map[string]interface{}) { l.log(LevelDebug, "DEBUG", msg, fields) }

func traceIDFromContext(ctx context.Context) string {
	span := SpanFromContext(ctx)
	if span == "" {
		return ""
	}
	return span
}

func (l *JSONLogger) InfoWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	if l.level > LevelInfo {
		return
	}
	l.write("INFO", msg, fields, traceIDFromContext(ctx))
}
func (l *JSONLogger) ErrorWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	if l.level > LevelError {
		return
	}
	l.write("ERROR", msg, fields, traceIDFromContext(ctx))
}
func (l *JSONLogger) WarnWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	if l.level > LevelWarn {
		return
	}
	l.write("WARN", msg, fields, traceIDFromContext(ctx))
}
func (l *JSONLogger) DebugWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	if l.level > LevelDebug {
		return
	}
	l.write("DEBUG", msg, fields, traceIDFromContext(ctx))
}
