package corekit

import "context"

// Logger is the minimal structured-logging contract used throughout
// connectorcore, copied in shape from gomind's core.Logger: field-map based,
// with context-aware variants for trace correlation. A production
// implementation lives in telemetryadapter; NoOpLogger is the zero-value
// default so every component can log unconditionally.
type Logger interface {
	Info(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Debug(msg string, fields map[string]interface{})

	InfoWithContext(ctx context.Context, msg string, fields map[string]interface{})
	ErrorWithContext(ctx context.Context, msg string, fields map[string]interface{})
	WarnWithContext(ctx context.Context, msg string, fields map[string]interface{})
	DebugWithContext(ctx context.Context, msg string, fields map[string]interface{})
}

// ComponentAwareLogger extends Logger with a per-component identifier, the
// way gomind's loggers tag output with "framework/core", "tool/<name>", etc.
type ComponentAwareLogger interface {
	Logger
	WithComponent(component string) Logger
}

// NoOpLogger discards everything. It is the default for any component
// constructed without an explicit logger.
type NoOpLogger struct{}

func (NoOpLogger) Info(string, map[string]interface{})                               {}
func (NoOpLogger) Error(string, map[string]interface{})                              {}
func (NoOpLogger) Warn(string, map[string]interface{})                               {}
func (NoOpLogger) Debug(string, map[string]interface{})                              {}
func (NoOpLogger) InfoWithContext(context.Context, string, map[string]interface{})   {}
func (NoOpLogger) ErrorWithContext(context.Context, string, map[string]interface{})  {}
func (NoOpLogger) WarnWithContext(context.Context, string, map[string]interface{})   {}
func (NoOpLogger) DebugWithContext(context.Context, string, map[string]interface{})  {}

// Telemetry is optional span/metric support, mirrored from gomind's
// core.Telemetry/Span pair.
type Telemetry interface {
	StartSpan(ctx context.Context, name string) (context.Context, Span)
	RecordMetric(name string, value float64, labels map[string]string)
}

// Span represents one telemetry span.
type Span interface {
	End()
	SetAttribute(key string, value interface{})
	RecordError(err error)
}

// NoOpTelemetry discards everything.
type NoOpTelemetry struct{}

func (NoOpTelemetry) StartSpan(ctx context.Context, _ string) (context.Context, Span) {
	return ctx, noOpSpan{}
}
func (NoOpTelemetry) RecordMetric(string, float64, map[string]string) {}

type noOpSpan struct{}

func (noOpSpan) End()                               {}
func (noOpSpan) SetAttribute(string, interface{})   {}
func (noOpSpan) RecordError(error)                  {}
