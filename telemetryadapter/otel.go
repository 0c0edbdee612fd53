package telemetryadapter

import (
	"context"
	"fmt"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/connectorcore/connectorcore/corekit"
)

// OTelTelemetry implements corekit.Telemetry over a configured OpenTelemetry
// tracer/meter pair. Construct one with NewOTelTelemetry once per process
// and pass it to execution.Service and the native adapters' shared HTTP
// client builder.
type OTelTelemetry struct {
	tracer trace.Tracer
	meter  metric.Meter

	counters map[string]metric.Float64Counter
}

// NewOTelTelemetry wraps the global OTel providers into a corekit.Telemetry.
// Call BootstrapTracerProvider first to point the global tracer provider at
// a real exporter; without it spans are recorded against OTel's no-op
// default provider.
func NewOTelTelemetry(serviceName string) *OTelTelemetry {
	return &OTelTelemetry{
		tracer:   otel.Tracer(serviceName),
		meter:    otel.Meter(serviceName),
		counters: make(map[string]metric.Float64Counter),
	}
}

// BootstrapTracerProvider builds and installs the process-wide
// sdktrace.TracerProvider, exporting spans per exporterKind:
//
//   - "otlp": ships spans to otlpEndpoint over gRPC via otlptracegrpc,
//     the way gomind's own telemetry bootstrap dials a collector.
//   - "stdout": pretty-prints spans to stdout via stdouttrace, for local
//     development without a collector running.
//   - anything else: leaves the no-op default provider installed.
//
// Returns a shutdown func that flushes and closes the exporter; callers
// should defer it. Grounded on gomind's examples/basic-agent telemetry
// setup for the "build exporter, wrap in processor, set global provider,
// return shutdown" shape.
func BootstrapTracerProvider(ctx context.Context, serviceName, exporterKind, otlpEndpoint string) (func(context.Context) error, error) {
	res, err := sdkresource.Merge(sdkresource.Default(), sdkresource.NewSchemaless(
		semconv.ServiceName(serviceName),
	))
	if err != nil {
		return nil, fmt.Errorf("telemetryadapter: building resource: %w", err)
	}

	var exporter sdktrace.SpanExporter
	switch exporterKind {
	case "otlp":
		opts := []otlptracegrpc.Option{otlptracegrpc.WithInsecure()}
		if otlpEndpoint != "" {
			opts = append(opts, otlptracegrpc.WithEndpoint(otlpEndpoint))
		}
		exporter, err = otlptracegrpc.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("telemetryadapter: building otlp exporter: %w", err)
		}
	case "stdout":
		exporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("telemetryadapter: building stdout exporter: %w", err)
		}
	default:
		return func(context.Context) error { return nil }, nil
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(provider)
	return provider.Shutdown, nil
}

type otelSpan struct {
	span trace.Span
}

func (s otelSpan) End() { s.span.End() }
func (s otelSpan) SetAttribute(key string, value interface{}) {
	s.span.SetAttributes(toAttribute(key, value))
}
func (s otelSpan) RecordError(err error) { s.span.RecordError(err) }

func toAttribute(key string, value interface{}) attribute.KeyValue {
	switch v := value.(type) {
	case string:
		return attribute.String(key, v)
	case bool:
		return attribute.Bool(key, v)
	case int:
		return attribute.Int(key, v)
	case int64:
		return attribute.Int64(key, v)
	case float64:
		return attribute.Float64(key, v)
	default:
		return attribute.String(key, toStringFallback(v))
	}
}

func toStringFallback(v interface{}) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(interface{ String() string }); ok {
		return s.String()
	}
	return "unsupported"
}

// StartSpan implements corekit.Telemetry.
func (t *OTelTelemetry) StartSpan(ctx context.Context, name string) (context.Context, corekit.Span) {
	ctx, span := t.tracer.Start(ctx, name)
	return ctx, otelSpan{span: span}
}

// RecordMetric implements corekit.Telemetry by recording value against a
// lazily-created Float64Counter named name, tagged with labels.
func (t *OTelTelemetry) RecordMetric(name string, value float64, labels map[string]string) {
	counter, ok := t.counters[name]
	if !ok {
		var err error
		counter, err = t.meter.Float64Counter(name)
		if err != nil {
			return
		}
		t.counters[name] = counter
	}
	attrs := make([]attribute.KeyValue, 0, len(labels))
	for k, v := range labels {
		attrs = append(attrs, attribute.String(k, v))
	}
	counter.Add(context.Background(), value, metric.WithAttributes(attrs...))
}

// SpanFromContext returns the active span's trace ID as a hex string, or
// "" if no recording span is active. Used by JSONLogger to correlate log
// lines with traces and by execution to stamp RunRecord.TraceId.
func SpanFromContext(ctx context.Context) string {
	span := trace.SpanContextFromContext(ctx)
	if !span.IsValid() {
		return ""
	}
	return span.TraceID().String()
}

// NewTracedHTTPClient returns the process-wide HTTP client every native
// adapter shares, instrumented with otelhttp so outbound calls (STAC, OGC,
// S3, GEE, header-probe) are traced. Mirrors
// orchestration.NewTracedHTTPClient's role in gomind, generalised to a
// package-level constructor instead of a capability-provider method.
func NewTracedHTTPClient(base *http.Client) *http.Client {
	if base == nil {
		base = &http.Client{}
	}
	client := *base
	client.Transport = otelhttp.NewTransport(baseTransport(base))
	return &client
}

func baseTransport(base *http.Client) http.RoundTripper {
	if base.Transport != nil {
		return base.Transport
	}
	return http.DefaultTransport
}

// NoopSampler is exposed so cmd/connectorcore can build a dev-mode
// always-off tracer provider without depending on a concrete exporter.
var NoopSampler = sdktrace.NeverSample
