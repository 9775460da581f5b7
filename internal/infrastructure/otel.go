package infrastructure

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"

	"trawlscope/pkg/contracts"
)

const (
	ServiceName = "trawlscope"
	MeterName   = "trawlscope"
)

// OTelConfig selects exporters and sampling for the telemetry providers.
type OTelConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	TraceExporter  string // "stdout", "none"
	MetricExporter string // "prometheus", "none"
	EnableMetrics  bool
	EnableTracing  bool
	SampleRatio    float64
}

// OTelProviders bundles the live tracer and meter plus the Prometheus
// handler the router mounts at /metrics.
type OTelProviders struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	PrometheusHTTP http.Handler
	Logger         *slog.Logger
}

// DefaultOTelConfig returns the development defaults: full sampling, stdout
// spans and a Prometheus metric endpoint.
func DefaultOTelConfig() *OTelConfig {
	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	return &OTelConfig{
		ServiceName:    ServiceName,
		ServiceVersion: contracts.Version,
		Environment:    env,
		TraceExporter:  "stdout",
		MetricExporter: "prometheus",
		EnableMetrics:  true,
		EnableTracing:  true,
		SampleRatio:    1.0,
	}
}

// InitializeOTel sets up tracing and metrics providers per cfg. A nil cfg
// uses DefaultOTelConfig.
func InitializeOTel(cfg *OTelConfig, logger *slog.Logger) (*OTelProviders, error) {
	if cfg == nil {
		cfg = DefaultOTelConfig()
	}

	ctx := context.Background()
	logger.InfoContext(ctx, "initializing telemetry",
		slog.String("service", cfg.ServiceName),
		slog.String("version", cfg.ServiceVersion),
		slog.String("environment", cfg.Environment),
		slog.Bool("tracing_enabled", cfg.EnableTracing),
		slog.Bool("metrics_enabled", cfg.EnableMetrics))

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			semconv.DeploymentEnvironmentName(cfg.Environment),
			attribute.String("service.instance.id", instanceID()),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	providers := &OTelProviders{Logger: logger}

	if cfg.EnableTracing {
		if err := providers.initTracing(ctx, cfg, res); err != nil {
			return nil, fmt.Errorf("failed to initialize tracing: %w", err)
		}
	}
	if cfg.EnableMetrics {
		if err := providers.initMetrics(ctx, cfg, res); err != nil {
			return nil, fmt.Errorf("failed to initialize metrics: %w", err)
		}
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return providers, nil
}

func (p *OTelProviders) initTracing(ctx context.Context, cfg *OTelConfig, res *resource.Resource) error {
	var exporter sdktrace.SpanExporter
	var err error

	switch cfg.TraceExporter {
	case "stdout":
		exporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
	case "none":
		return nil
	default:
		return fmt.Errorf("unsupported trace exporter: %s", cfg.TraceExporter)
	}
	if err != nil {
		return fmt.Errorf("failed to create trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.SampleRatio)),
	)
	p.TracerProvider = tp
	p.Tracer = tp.Tracer(MeterName, trace.WithInstrumentationVersion(cfg.ServiceVersion))
	otel.SetTracerProvider(tp)

	p.Logger.InfoContext(ctx, "tracing initialized",
		slog.String("exporter", cfg.TraceExporter),
		slog.Float64("sample_ratio", cfg.SampleRatio))
	return nil
}

func (p *OTelProviders) initMetrics(ctx context.Context, cfg *OTelConfig, res *resource.Resource) error {
	switch cfg.MetricExporter {
	case "prometheus":
		exporter, err := prometheus.New()
		if err != nil {
			return fmt.Errorf("failed to create prometheus exporter: %w", err)
		}
		p.PrometheusHTTP = promhttp.Handler()

		mp := sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(exporter),
		)
		p.MeterProvider = mp
		p.Meter = mp.Meter(MeterName, metric.WithInstrumentationVersion(cfg.ServiceVersion))
		otel.SetMeterProvider(mp)
	case "none":
		return nil
	default:
		return fmt.Errorf("unsupported metric exporter: %s", cfg.MetricExporter)
	}

	p.Logger.InfoContext(ctx, "metrics initialized",
		slog.String("exporter", cfg.MetricExporter))
	return nil
}

// Shutdown flushes and stops the providers.
func (p *OTelProviders) Shutdown(ctx context.Context) error {
	var errs []error

	if p.TracerProvider != nil {
		if err := p.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider shutdown: %w", err))
		}
	}
	if p.MeterProvider != nil {
		if err := p.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider shutdown: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("telemetry shutdown errors: %v", errs)
	}

	p.Logger.InfoContext(ctx, "telemetry shutdown complete")
	return nil
}

func instanceID() string {
	host, _ := os.Hostname()
	return fmt.Sprintf("%s-%d", host, time.Now().Unix())
}

// BusinessMetrics holds the application metric instruments. HTTP instruments
// are recorded by the middleware, the rest by the run manager. All recording
// methods are safe on a nil receiver, so callers never guard for disabled
// telemetry.
type BusinessMetrics struct {
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram
	HTTPActiveRequests  metric.Int64UpDownCounter

	OperationExecutionsTotal   metric.Int64Counter
	OperationExecutionDuration metric.Float64Histogram
	OperationStepsTotal        metric.Int64Counter
	OperationStepDuration      metric.Float64Histogram
	OperationActiveOperations  metric.Int64UpDownCounter
	OperationErrors            metric.Int64Counter
	OperationCancellations     metric.Int64Counter

	PipelineRunsTotal        metric.Int64Counter
	PipelineRunDuration      metric.Float64Histogram
	PipelineRowsLoaded       metric.Int64Counter
	PipelineRowsCleaned      metric.Int64Counter
	PipelineRowsDropped      metric.Int64Counter
	PipelineSummariesWritten metric.Int64Counter
}

// CreateBusinessMetrics registers the application instruments on meter.
func CreateBusinessMetrics(meter metric.Meter) (*BusinessMetrics, error) {
	var err error

	counter := func(name, desc string) metric.Int64Counter {
		if err != nil {
			return nil
		}
		c, cerr := meter.Int64Counter(name, metric.WithDescription(desc))
		if cerr != nil {
			err = fmt.Errorf("instrument %s: %w", name, cerr)
		}
		return c
	}
	seconds := func(name, desc string) metric.Float64Histogram {
		if err != nil {
			return nil
		}
		h, herr := meter.Float64Histogram(name,
			metric.WithDescription(desc), metric.WithUnit("s"))
		if herr != nil {
			err = fmt.Errorf("instrument %s: %w", name, herr)
		}
		return h
	}
	upDown := func(name, desc string) metric.Int64UpDownCounter {
		if err != nil {
			return nil
		}
		u, uerr := meter.Int64UpDownCounter(name, metric.WithDescription(desc))
		if uerr != nil {
			err = fmt.Errorf("instrument %s: %w", name, uerr)
		}
		return u
	}

	bm := &BusinessMetrics{
		HTTPRequestsTotal:   counter("http_requests_total", "Total number of HTTP requests"),
		HTTPRequestDuration: seconds("http_request_duration_seconds", "HTTP request duration in seconds"),
		HTTPActiveRequests:  upDown("http_active_requests", "Number of in-flight HTTP requests"),

		OperationExecutionsTotal:   counter("operation_executions_total", "Total number of operation executions"),
		OperationExecutionDuration: seconds("operation_execution_duration_seconds", "Operation execution duration in seconds"),
		OperationStepsTotal:        counter("operation_steps_total", "Total number of operation steps executed"),
		OperationStepDuration:      seconds("operation_step_duration_seconds", "Operation step execution duration in seconds"),
		OperationActiveOperations:  upDown("operation_active_operations", "Number of active operations"),
		OperationErrors:            counter("operation_errors_total", "Total number of operation errors"),
		OperationCancellations:     counter("operation_cancellations_total", "Total number of operation cancellations"),

		PipelineRunsTotal:        counter("pipeline_runs_total", "Total number of pipeline runs"),
		PipelineRunDuration:      seconds("pipeline_run_duration_seconds", "Pipeline run duration in seconds"),
		PipelineRowsLoaded:       counter("pipeline_rows_loaded_total", "Total raw rows loaded from snapshots"),
		PipelineRowsCleaned:      counter("pipeline_rows_cleaned_total", "Total rows surviving the cleaning pipeline"),
		PipelineRowsDropped:      counter("pipeline_rows_dropped_total", "Total rows dropped during cleaning, by reason"),
		PipelineSummariesWritten: counter("pipeline_summaries_written_total", "Total summary rows written, by grouping"),
	}
	if err != nil {
		return nil, err
	}
	return bm, nil
}

// AddSpanEvent adds an event to the current span when one is recording.
func AddSpanEvent(ctx context.Context, name string, attributes map[string]interface{}) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.AddEvent(name, trace.WithAttributes(attrsFromMap(attributes)...))
}

// SetSpanAttributes sets attributes on the current span when one is recording.
func SetSpanAttributes(ctx context.Context, attributes map[string]interface{}) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.SetAttributes(attrsFromMap(attributes)...)
}

// RecordError records err on the current span and marks it failed.
func RecordError(ctx context.Context, err error, options ...trace.EventOption) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.RecordError(err, options...)
	span.SetStatus(codes.Error, err.Error())
}

func attrsFromMap(attributes map[string]interface{}) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(attributes))
	for k, v := range attributes {
		switch val := v.(type) {
		case string:
			attrs = append(attrs, attribute.String(k, val))
		case int:
			attrs = append(attrs, attribute.Int(k, val))
		case int64:
			attrs = append(attrs, attribute.Int64(k, val))
		case float64:
			attrs = append(attrs, attribute.Float64(k, val))
		case bool:
			attrs = append(attrs, attribute.Bool(k, val))
		default:
			attrs = append(attrs, attribute.String(k, fmt.Sprintf("%v", val)))
		}
	}
	return attrs
}

func statusAttribute(success bool) attribute.KeyValue {
	if success {
		return attribute.String("status", "success")
	}
	return attribute.String("status", "failure")
}

// RecordOperation records one finished run: execution count, duration, and
// an error tally keyed by the concrete error type when err is non-nil.
func (bm *BusinessMetrics) RecordOperation(ctx context.Context, runID, kind string, duration time.Duration, err error) {
	if bm == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("operation.id", runID),
		attribute.String("operation.type", kind),
	}
	bm.OperationExecutionsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	bm.OperationExecutionDuration.Record(ctx, duration.Seconds(),
		metric.WithAttributes(append(attrs, statusAttribute(err == nil))...))

	if err != nil {
		bm.OperationErrors.Add(ctx, 1, metric.WithAttributes(
			append(attrs, attribute.String("error.type", fmt.Sprintf("%T", err)))...))
	}
}

// RecordStep records one executed step within a run.
func (bm *BusinessMetrics) RecordStep(ctx context.Context, runID, stepID string, duration time.Duration, success bool) {
	if bm == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("operation.id", runID),
		attribute.String("step.id", stepID),
	}
	bm.OperationStepsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	bm.OperationStepDuration.Record(ctx, duration.Seconds(),
		metric.WithAttributes(append(attrs, statusAttribute(success))...))
}

// AddActive moves the active-run gauge by delta.
func (bm *BusinessMetrics) AddActive(ctx context.Context, delta int64, kind string) {
	if bm == nil {
		return
	}
	bm.OperationActiveOperations.Add(ctx, delta, metric.WithAttributes(
		attribute.String("operation.type", kind)))
}

// RecordCancellation counts a cancelled run together with its reason.
func (bm *BusinessMetrics) RecordCancellation(ctx context.Context, runID, kind, reason string) {
	if bm == nil {
		return
	}
	bm.OperationCancellations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation.id", runID),
		attribute.String("operation.type", kind),
		attribute.String("reason", reason)))
}

// RecordPipelineRun records the outcome of one pipeline run under its trigger.
func (bm *BusinessMetrics) RecordPipelineRun(ctx context.Context, trigger string, duration time.Duration, success bool) {
	if bm == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("trigger", trigger),
		statusAttribute(success),
	}
	bm.PipelineRunsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	bm.PipelineRunDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordPipelineRows records row counts for one pipeline run. Dropped rows
// are attributed by reason so retention regressions stand out per cause.
func (bm *BusinessMetrics) RecordPipelineRows(ctx context.Context, loaded, cleaned int64, droppedByReason map[string]int64) {
	if bm == nil {
		return
	}

	bm.PipelineRowsLoaded.Add(ctx, loaded)
	bm.PipelineRowsCleaned.Add(ctx, cleaned)

	for reason, count := range droppedByReason {
		if count == 0 {
			continue
		}
		bm.PipelineRowsDropped.Add(ctx, count, metric.WithAttributes(
			attribute.String("reason", reason),
		))
	}
}

// RecordSummaries records how many summary rows an export produced.
func (bm *BusinessMetrics) RecordSummaries(ctx context.Context, grouping string, count int64) {
	if bm == nil {
		return
	}

	bm.PipelineSummariesWritten.Add(ctx, count, metric.WithAttributes(
		attribute.String("grouping", grouping),
	))
}
