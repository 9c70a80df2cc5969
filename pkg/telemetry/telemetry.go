package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/calledit/calledit/pkg/config"
	"github.com/calledit/calledit/pkg/logging"
)

const (
	instrumentationName = "github.com/calledit/calledit"
	serviceVersion      = "0.1.0"
	shutdownTimeout     = 5 * time.Second
)

var tracer trace.Tracer

// shutdowner is implemented by both SDK providers
type shutdowner interface {
	Shutdown(ctx context.Context) error
}

// Init installs the global tracer and meter providers selected by cfg:
// Jaeger spans when JaegerURL is set, and an OpenTelemetry metric reader on
// the default Prometheus registry when PrometheusEnabled is set. The
// registry is served by the /metrics route either way. The returned func
// flushes whatever was installed.
func Init(cfg *config.TelemetryConfig) (func(), error) {
	log := logging.WithComponent("telemetry")
	if !cfg.Enabled {
		log.Info("Telemetry disabled")
		return func() {}, nil
	}

	res, err := newResource(cfg.ServiceName)
	if err != nil {
		return nil, err
	}

	var installed []shutdowner
	if cfg.JaegerURL != "" {
		tp, err := newTracerProvider(res, cfg.JaegerURL)
		if err != nil {
			return nil, err
		}
		otel.SetTracerProvider(tp)
		installed = append(installed, tp)
		log.Info("Tracing to Jaeger", zap.String("url", cfg.JaegerURL))
	}
	if cfg.PrometheusEnabled {
		mp, err := newMeterProvider(res)
		if err != nil {
			return nil, err
		}
		otel.SetMeterProvider(mp)
		installed = append(installed, mp)
		log.Info("Metrics exported through Prometheus registry")
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	tracer = otel.Tracer(instrumentationName)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownAll(ctx, installed); err != nil {
			log.Error("Error shutting down telemetry", zap.Error(err))
		}
	}, nil
}

func newResource(serviceName string) (*resource.Resource, error) {
	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}
	return res, nil
}

func newTracerProvider(res *resource.Resource, endpoint string) (*sdktrace.TracerProvider, error) {
	exporter, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(endpoint)))
	if err != nil {
		return nil, fmt.Errorf("failed to create Jaeger exporter: %w", err)
	}
	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	), nil
}

// newMeterProvider registers with prometheus.DefaultRegisterer, so it may
// only be built once per process.
func newMeterProvider(res *resource.Resource) (*metric.MeterProvider, error) {
	reader, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create Prometheus exporter: %w", err)
	}
	return metric.NewMeterProvider(
		metric.WithReader(reader),
		metric.WithResource(res),
	), nil
}

func shutdownAll(ctx context.Context, providers []shutdowner) error {
	var errs []error
	for _, p := range providers {
		if err := p.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Tracer returns the installed tracer, or a no-op one before Init
func Tracer() trace.Tracer {
	if tracer == nil {
		return noop.NewTracerProvider().Tracer(instrumentationName)
	}
	return tracer
}

// StartSpan starts a span on Tracer
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name, opts...)
}
