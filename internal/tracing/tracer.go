// Package tracing wires OpenTelemetry into specforge: the tracer provider
// and its exporters, a JSONL file exporter for local debugging, and the
// dispatcher middleware that opens one span per command.
package tracing

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// DefaultServiceName identifies specforge in exported traces.
const DefaultServiceName = "specforge"

// Exporter backends.
const (
	ExporterNone   = "none"
	ExporterFile   = "file"
	ExporterStdout = "stdout"
	ExporterOTLP   = "otlp"
)

const defaultOTLPEndpoint = "localhost:4317"

// Config configures the tracing subsystem.
type Config struct {
	// Enabled controls whether tracing is active.
	// When false, a no-op tracer is returned.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Exporter is one of ExporterNone, ExporterFile, ExporterStdout or ExporterOTLP.
	Exporter string `mapstructure:"exporter" yaml:"exporter"`

	FilePath     string  `mapstructure:"file_path" yaml:"file_path"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint" yaml:"otlp_endpoint"`
	SampleRate   float64 `mapstructure:"sample_rate" yaml:"sample_rate"` // 1.0 samples every command
	ServiceName  string  `mapstructure:"service_name" yaml:"service_name"`
}

// DefaultConfig returns the defaults written by `specforge config init`.
func DefaultConfig() Config {
	return Config{
		Exporter:     ExporterFile,
		OTLPEndpoint: defaultOTLPEndpoint,
		SampleRate:   1.0,
		ServiceName:  DefaultServiceName,
	}
}

// ProviderOption adds resource attributes to exported traces.
type ProviderOption func(*[]attribute.KeyValue)

// WithCatalog tags traces with the store driver and the compiled plan
// cache settings, so spans from different catalogs can be told apart.
func WithCatalog(driver string, cacheEnabled bool, cacheTTL time.Duration) ProviderOption {
	return func(attrs *[]attribute.KeyValue) {
		*attrs = append(*attrs,
			attribute.String(AttrStoreDriver, driver),
			attribute.Bool(AttrCompileCache, cacheEnabled))
		if cacheEnabled {
			*attrs = append(*attrs, attribute.Int64(AttrCompileCacheTTLs, int64(cacheTTL/time.Second)))
		}
	}
}

// Provider owns the tracer provider and the resource it reports.
type Provider struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
	resource *resource.Resource
}

// NewProvider builds the provider for cfg. Disabled tracing yields a no-op
// tracer; the "none" exporter still records spans so trace ids correlate
// log lines, it just never exports them.
func NewProvider(cfg Config, opts ...ProviderOption) (*Provider, error) {
	if !cfg.Enabled {
		return &Provider{tracer: noop.NewTracerProvider().Tracer(DefaultServiceName)}, nil
	}

	exporter, err := newExporter(cfg)
	if err != nil {
		return nil, err
	}

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = DefaultServiceName
	}
	attrs := []attribute.KeyValue{attribute.String(AttrServiceName, serviceName)}
	for _, opt := range opts {
		opt(&attrs)
	}
	// Schemaless avoids schema URL conflicts with resource.Default().
	res := resource.NewSchemaless(attrs...)

	sampleRate := cfg.SampleRate
	if sampleRate <= 0 {
		sampleRate = 1.0
	}
	tpOpts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(sampleRate))),
	}
	if exporter != nil {
		tpOpts = append(tpOpts, sdktrace.WithBatcher(exporter))
	}

	tp := sdktrace.NewTracerProvider(tpOpts...)
	otel.SetTracerProvider(tp)
	return &Provider{provider: tp, tracer: tp.Tracer(serviceName), resource: res}, nil
}

func newExporter(cfg Config) (sdktrace.SpanExporter, error) {
	switch cfg.Exporter {
	case ExporterFile:
		if cfg.FilePath == "" {
			return nil, fmt.Errorf("file_path required for file exporter")
		}
		exp, err := NewFileExporter(cfg.FilePath)
		if err != nil {
			return nil, fmt.Errorf("create file exporter: %w", err)
		}
		return exp, nil
	case ExporterStdout:
		exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("create stdout exporter: %w", err)
		}
		return exp, nil
	case ExporterOTLP:
		endpoint := cfg.OTLPEndpoint
		if endpoint == "" {
			endpoint = defaultOTLPEndpoint
		}
		exp, err := otlptracegrpc.New(context.Background(),
			otlptracegrpc.WithEndpoint(endpoint),
			otlptracegrpc.WithInsecure())
		if err != nil {
			return nil, fmt.Errorf("create otlp exporter: %w", err)
		}
		return exp, nil
	case ExporterNone, "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported exporter type: %s", cfg.Exporter)
	}
}

// Tracer never returns nil; it is a no-op tracer when tracing is disabled.
func (p *Provider) Tracer() trace.Tracer {
	return p.tracer
}

// Enabled reports whether spans are recorded.
func (p *Provider) Enabled() bool {
	return p.provider != nil
}

// Resource returns the attributes traces are exported with, nil when disabled.
func (p *Provider) Resource() *resource.Resource {
	return p.resource
}

// Shutdown flushes pending spans.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.provider == nil {
		return nil
	}
	return p.provider.Shutdown(ctx)
}
