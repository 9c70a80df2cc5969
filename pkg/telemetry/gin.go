package telemetry

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/calledit/calledit/pkg/logging"
)

// GinMiddleware opens a server span per request and records request count
// and latency. Routes are labelled by their registered pattern.
func GinMiddleware() gin.HandlerFunc {
	meter := otel.Meter(instrumentationName)
	log := logging.WithComponent("telemetry")

	requests, err := meter.Int64Counter("http.server.requests",
		otelmetric.WithDescription("Number of HTTP requests served"))
	if err != nil {
		log.Warn("Failed to create request counter", zap.Error(err))
	}
	duration, err := meter.Float64Histogram("http.server.duration",
		otelmetric.WithDescription("HTTP request latency"),
		otelmetric.WithUnit("ms"))
	if err != nil {
		log.Warn("Failed to create duration histogram", zap.Error(err))
	}

	return func(c *gin.Context) {
		start := time.Now()

		ctx := otel.GetTextMapPropagator().Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		ctx, span := StartSpan(ctx, fmt.Sprintf("%s %s", c.Request.Method, route),
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", c.Request.Method),
				attribute.String("http.route", route),
			),
		)
		defer span.End()

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(attribute.Int("http.status_code", status))
		if status >= 500 {
			span.SetStatus(codes.Error, fmt.Sprintf("status %d", status))
		}

		attrs := otelmetric.WithAttributes(
			attribute.String("http.method", c.Request.Method),
			attribute.String("http.route", route),
			attribute.Int("http.status_code", status),
		)
		if requests != nil {
			requests.Add(ctx, 1, attrs)
		}
		if duration != nil {
			duration.Record(ctx, float64(time.Since(start).Microseconds())/1000, attrs)
		}
	}
}
