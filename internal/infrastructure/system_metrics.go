package infrastructure

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// SystemMetricsCollector samples Go runtime health on a fixed interval and
// records it on the OTel meter, surfacing through the Prometheus endpoint.
// Start spawns the sampling loop; Stop blocks until it has exited.
type SystemMetricsCollector struct {
	interval  time.Duration
	startTime time.Time

	goroutines metric.Int64Gauge
	heapAlloc  metric.Int64Gauge
	heapSys    metric.Int64Gauge
	totalAlloc metric.Int64Gauge
	gcCycles   metric.Int64Counter
	gcPause    metric.Float64Histogram
	uptime     metric.Float64Gauge

	lastNumGC uint32
	stopCh    chan struct{}
	doneCh    chan struct{}
}

// NewSystemMetricsCollector registers the runtime instruments on meter.
func NewSystemMetricsCollector(meter metric.Meter, interval time.Duration) (*SystemMetricsCollector, error) {
	c := &SystemMetricsCollector{
		interval:  interval,
		startTime: time.Now(),
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}

	var err error
	if c.goroutines, err = meter.Int64Gauge(
		"runtime_goroutines",
		metric.WithDescription("Number of active goroutines"),
	); err != nil {
		return nil, fmt.Errorf("failed to create runtime instruments: %w", err)
	}
	if c.heapAlloc, err = meter.Int64Gauge(
		"runtime_heap_alloc_bytes",
		metric.WithDescription("Bytes of allocated heap objects"),
		metric.WithUnit("By"),
	); err != nil {
		return nil, fmt.Errorf("failed to create runtime instruments: %w", err)
	}
	if c.heapSys, err = meter.Int64Gauge(
		"runtime_heap_sys_bytes",
		metric.WithDescription("Bytes of heap memory obtained from the OS"),
		metric.WithUnit("By"),
	); err != nil {
		return nil, fmt.Errorf("failed to create runtime instruments: %w", err)
	}
	if c.totalAlloc, err = meter.Int64Gauge(
		"runtime_total_alloc_bytes",
		metric.WithDescription("Cumulative bytes allocated by the runtime"),
		metric.WithUnit("By"),
	); err != nil {
		return nil, fmt.Errorf("failed to create runtime instruments: %w", err)
	}
	if c.gcCycles, err = meter.Int64Counter(
		"runtime_gc_cycles_total",
		metric.WithDescription("Completed garbage collection cycles"),
	); err != nil {
		return nil, fmt.Errorf("failed to create runtime instruments: %w", err)
	}
	if c.gcPause, err = meter.Float64Histogram(
		"runtime_gc_pause_seconds",
		metric.WithDescription("Garbage collection pause duration"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("failed to create runtime instruments: %w", err)
	}
	if c.uptime, err = meter.Float64Gauge(
		"runtime_uptime_seconds",
		metric.WithDescription("Seconds since the process started"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("failed to create runtime instruments: %w", err)
	}

	return c, nil
}

// Start launches the sampling loop. It returns immediately; the loop runs
// until Stop is called or ctx is cancelled.
func (c *SystemMetricsCollector) Start(ctx context.Context) {
	go c.run(ctx)
}

// Stop halts sampling and waits for the loop to exit.
func (c *SystemMetricsCollector) Stop() {
	close(c.stopCh)
	<-c.doneCh
}

func (c *SystemMetricsCollector) run(ctx context.Context) {
	defer close(c.doneCh)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.sample(ctx)
	for {
		select {
		case <-ticker.C:
			c.sample(ctx)
		case <-c.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// sample reads runtime counters and records them. GC cycles and pauses are
// recorded as deltas against the previous sample so restarts of the loop do
// not replay history.
func (c *SystemMetricsCollector) sample(ctx context.Context) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	c.goroutines.Record(ctx, int64(runtime.NumGoroutine()))
	c.heapAlloc.Record(ctx, int64(ms.HeapAlloc))
	c.heapSys.Record(ctx, int64(ms.HeapSys))
	c.totalAlloc.Record(ctx, int64(ms.TotalAlloc))
	c.uptime.Record(ctx, time.Since(c.startTime).Seconds())

	if ms.NumGC > c.lastNumGC {
		newCycles := ms.NumGC - c.lastNumGC
		c.gcCycles.Add(ctx, int64(newCycles))

		// PauseNs is a circular buffer of the last 256 pauses.
		if newCycles > 256 {
			newCycles = 256
		}
		for i := uint32(0); i < newCycles; i++ {
			pause := ms.PauseNs[(ms.NumGC-i+255)%256]
			c.gcPause.Record(ctx, time.Duration(pause).Seconds())
		}
		c.lastNumGC = ms.NumGC
	}
}
