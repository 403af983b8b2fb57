package observe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Resource attribute keys describing the page a voicenav process drives.
const (
	AttrBackend  = attribute.Key("voicenav.browser.backend")
	AttrPageHost = attribute.Key("voicenav.page.host")
)

// ProviderConfig describes the process to OpenTelemetry.
type ProviderConfig struct {
	// ServiceName defaults to "voicenav".
	ServiceName string

	// ServiceVersion is the build version.
	ServiceVersion string

	// InstanceID identifies this process. Empty picks a random UUID.
	InstanceID string

	// Backend is the page backend name ("rod", "html").
	Backend string

	// PageURL is the page opened at startup. Only its host is reported.
	PageURL string

	// TraceExporter receives finished spans. Nil records spans without
	// exporting them; see [NewLogExporter].
	TraceExporter sdktrace.SpanExporter
}

// Resource builds the OpenTelemetry resource for cfg.
func (cfg ProviderConfig) Resource() (*resource.Resource, error) {
	name := cfg.ServiceName
	if name == "" {
		name = "voicenav"
	}
	instance := cfg.InstanceID
	if instance == "" {
		instance = uuid.NewString()
	}

	attrs := []attribute.KeyValue{
		semconv.ServiceName(name),
		semconv.ServiceInstanceID(instance),
	}
	if cfg.ServiceVersion != "" {
		attrs = append(attrs, semconv.ServiceVersion(cfg.ServiceVersion))
	}
	if cfg.Backend != "" {
		attrs = append(attrs, AttrBackend.String(cfg.Backend))
	}
	if host := pageHost(cfg.PageURL); host != "" {
		attrs = append(attrs, AttrPageHost.String(host))
	}

	// Schemaless, so the merge never conflicts with the SDK default's schema.
	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(attrs...))
	if err != nil {
		return nil, fmt.Errorf("observe: build resource: %w", err)
	}
	return res, nil
}

// pageHost keeps query strings and paths, which may carry user data, out of
// telemetry.
func pageHost(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Host
}

// InitProvider registers global meter and tracer providers for cfg: metrics
// go to a Prometheus exporter bridge (scraped at /metrics) and spans to
// cfg.TraceExporter. The returned function flushes and closes both.
func InitProvider(ctx context.Context, cfg ProviderConfig) (shutdown func(context.Context) error, err error) {
	res, err := cfg.Resource()
	if err != nil {
		return nil, err
	}

	promExp, err := promexporter.New()
	if err != nil {
		return nil, fmt.Errorf("observe: prometheus exporter: %w", err)
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(promExp),
	)
	otel.SetMeterProvider(mp)

	tpOpts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	if cfg.TraceExporter != nil {
		tpOpts = append(tpOpts, sdktrace.WithBatcher(cfg.TraceExporter))
	}
	tp := sdktrace.NewTracerProvider(tpOpts...)
	otel.SetTracerProvider(tp)

	Logger(ctx).Debug("observe: telemetry ready", "resource", res.String(), "trace_export", cfg.TraceExporter != nil)

	return func(ctx context.Context) error {
		// Traces first so spans ended during shutdown still reach the exporter.
		return errors.Join(tp.Shutdown(ctx), mp.Shutdown(ctx))
	}, nil
}

// LogExporter is a span exporter that writes each finished span as one
// structured log record.
type LogExporter struct {
	log *slog.Logger
}

var _ sdktrace.SpanExporter = (*LogExporter)(nil)

// NewLogExporter returns an exporter logging to l, or to [slog.Default] when
// l is nil.
func NewLogExporter(l *slog.Logger) *LogExporter {
	if l == nil {
		l = slog.Default()
	}
	return &LogExporter{log: l}
}

// ExportSpans logs spans at debug level; failed spans are logged as warnings.
func (e *LogExporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	for _, s := range spans {
		level := slog.LevelDebug
		args := []any{
			"span", s.Name(),
			"trace_id", s.SpanContext().TraceID().String(),
			"span_id", s.SpanContext().SpanID().String(),
			"duration", s.EndTime().Sub(s.StartTime()),
		}
		if st := s.Status(); st.Code == codes.Error {
			level = slog.LevelWarn
			args = append(args, "status", st.Description)
		}
		for _, kv := range s.Attributes() {
			args = append(args, string(kv.Key), kv.Value.Emit())
		}
		e.log.Log(ctx, level, "trace: span", args...)
	}
	return nil
}

// Shutdown is a no-op; the logger needs no flushing.
func (e *LogExporter) Shutdown(context.Context) error { return nil }
