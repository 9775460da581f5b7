package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"

	"trawlscope/internal/infrastructure"
)

// OTelMiddleware wraps each API request in a server span and feeds the
// request counter and latency histogram.
type OTelMiddleware struct {
	tracer  trace.Tracer
	metrics *infrastructure.BusinessMetrics
	logger  *slog.Logger
}

// NewOTelMiddleware builds the instrumentation middleware from the shared
// providers. The providers must carry a non-nil Tracer and Meter.
func NewOTelMiddleware(providers *infrastructure.OTelProviders) (*OTelMiddleware, error) {
	metrics, err := infrastructure.CreateBusinessMetrics(providers.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create business metrics: %w", err)
	}

	return &OTelMiddleware{
		tracer:  providers.Tracer,
		metrics: metrics,
		logger:  providers.Logger,
	}, nil
}

// Handler starts a span per request, continuing any trace propagated by the
// caller, and records status and duration once the handler returns.
func (m *OTelMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

		ctx, span := m.tracer.Start(ctx, r.Method+" "+r.URL.Path,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(requestAttrs(r)...),
		)
		defer span.End()

		// The span's trace id rides along in the logging context so log
		// lines and spans correlate.
		traceID := span.SpanContext().TraceID().String()
		ctx = infrastructure.WithTraceID(ctx, traceID)
		r = r.WithContext(ctx)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		m.metrics.HTTPActiveRequests.Add(ctx, 1)
		defer m.metrics.HTTPActiveRequests.Add(ctx, -1)

		start := time.Now()
		next.ServeHTTP(rec, r)
		elapsed := time.Since(start)

		m.count(ctx, r, rec.status, elapsed)

		span.SetAttributes(
			semconv.HTTPResponseStatusCodeKey.Int(rec.status),
			semconv.HTTPResponseBodySizeKey.Int64(rec.written),
		)
		if rec.status >= http.StatusBadRequest {
			span.SetStatus(codes.Error, http.StatusText(rec.status))
		}

		m.logger.InfoContext(ctx, "http request served",
			slog.String("method", r.Method),
			slog.String("route", routePattern(r)),
			slog.Int("status_code", rec.status),
			slog.Duration("duration", elapsed),
			slog.Int64("bytes_written", rec.written),
			slog.String("trace_id", traceID),
		)
	})
}

func (m *OTelMiddleware) count(ctx context.Context, r *http.Request, status int, elapsed time.Duration) {
	opts := metric.WithAttributes(
		attribute.String("method", r.Method),
		attribute.String("route", routePattern(r)),
		attribute.Int("status_code", status),
	)
	m.metrics.HTTPRequestsTotal.Add(ctx, 1, opts)
	m.metrics.HTTPRequestDuration.Record(ctx, elapsed.Seconds(), opts)
}

func requestAttrs(r *http.Request) []attribute.KeyValue {
	return []attribute.KeyValue{
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String(r.URL.Path),
		semconv.URLSchemeKey.String(r.URL.Scheme),
		semconv.ServerAddressKey.String(r.Host),
		semconv.UserAgentOriginalKey.String(r.UserAgent()),
		semconv.HTTPRequestBodySizeKey.Int64(r.ContentLength),
		semconv.ClientAddressKey.String(r.RemoteAddr),
	}
}

// statusRecorder remembers what the handler wrote so metrics and the span
// can report it afterwards.
type statusRecorder struct {
	http.ResponseWriter
	status  int
	written int64
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	n, err := s.ResponseWriter.Write(b)
	s.written += int64(n)
	return n, err
}

// routePattern resolves the chi route pattern once routing has happened,
// falling back to the raw path for unmatched requests.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
		return rctx.RoutePattern()
	}
	return r.URL.Path
}

// WebSocketTraceMiddleware spans the upgrade request for /ws. The dashboard
// socket bypasses the main middleware group, so it carries its own trace
// wiring.
func WebSocketTraceMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tracer := otel.Tracer("trawlscope.websocket")
			ctx, span := tracer.Start(r.Context(), "websocket_upgrade",
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					semconv.HTTPRequestMethodKey.String(r.Method),
					semconv.HTTPRouteKey.String("/ws"),
					attribute.String("connection.type", "websocket"),
					attribute.String("origin", r.Header.Get("Origin")),
				),
			)
			defer span.End()

			traceID := span.SpanContext().TraceID().String()
			ctx = infrastructure.WithTraceID(ctx, traceID)

			logger.InfoContext(ctx, "websocket upgrade requested",
				slog.String("origin", r.Header.Get("Origin")),
				slog.String("trace_id", traceID),
			)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
