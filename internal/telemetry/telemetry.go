// Package telemetry exposes cache metrics through the OpenTelemetry metric
// API with a Prometheus pull exporter. All record methods are safe on a nil
// or disabled receiver so instrumentation never becomes a hard dependency.
package telemetry

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Config holds telemetry configuration.
type Config struct {
	Enabled     bool
	ServiceName string
}

// Telemetry holds the meter provider and cache instruments.
type Telemetry struct {
	meterProvider metric.MeterProvider
	meter         metric.Meter

	fetchesTotal    metric.Int64Counter
	fetchDuration   metric.Float64Histogram
	cacheHits       metric.Int64Counter
	cacheMisses     metric.Int64Counter
	retriesTotal    metric.Int64Counter
	bytesDownloaded metric.Int64Counter
	evictionsTotal  metric.Int64Counter
}

// New creates a telemetry instance. A disabled config yields an inert
// instance whose record methods are no-ops.
func New(cfg Config) (*Telemetry, error) {
	if !cfg.Enabled {
		return &Telemetry{}, nil
	}

	exporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	meterProvider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(meterProvider)

	t := &Telemetry{
		meterProvider: meterProvider,
		meter:         otel.Meter(cfg.ServiceName),
	}

	if err := t.initInstruments(); err != nil {
		return nil, fmt.Errorf("failed to initialize instruments: %w", err)
	}

	return t, nil
}

func (t *Telemetry) initInstruments() error {
	var err error

	if t.fetchesTotal, err = t.meter.Int64Counter("mediacache_fetches_total",
		metric.WithDescription("Terminal fetch outcomes by result")); err != nil {
		return err
	}

	if t.fetchDuration, err = t.meter.Float64Histogram("mediacache_fetch_duration_seconds",
		metric.WithDescription("Wall time of fetch calls that reached the network")); err != nil {
		return err
	}

	if t.cacheHits, err = t.meter.Int64Counter("mediacache_cache_hits_total",
		metric.WithDescription("Fetches served from the cache with no network I/O")); err != nil {
		return err
	}

	if t.cacheMisses, err = t.meter.Int64Counter("mediacache_cache_misses_total",
		metric.WithDescription("Fetches that had to download")); err != nil {
		return err
	}

	if t.retriesTotal, err = t.meter.Int64Counter("mediacache_retries_total",
		metric.WithDescription("Download attempts beyond the first")); err != nil {
		return err
	}

	if t.bytesDownloaded, err = t.meter.Int64Counter("mediacache_bytes_downloaded_total",
		metric.WithDescription("Bytes committed to the cache")); err != nil {
		return err
	}

	if t.evictionsTotal, err = t.meter.Int64Counter("mediacache_evictions_total",
		metric.WithDescription("Entries removed by TTL sweeps")); err != nil {
		return err
	}

	return nil
}

// Handler returns the Prometheus scrape endpoint.
func (t *Telemetry) Handler() http.Handler {
	return promhttp.Handler()
}

// RecordFetch records a terminal fetch outcome and its duration.
func (t *Telemetry) RecordFetch(outcome string, duration time.Duration) {
	if t == nil {
		return
	}

	if t.fetchesTotal != nil {
		t.fetchesTotal.Add(context.Background(), 1,
			metric.WithAttributes(attribute.String("outcome", outcome)))
	}

	if t.fetchDuration != nil {
		t.fetchDuration.Record(context.Background(), duration.Seconds(),
			metric.WithAttributes(attribute.String("outcome", outcome)))
	}
}

// RecordCacheHit counts a fetch answered without network I/O.
func (t *Telemetry) RecordCacheHit() {
	if t != nil && t.cacheHits != nil {
		t.cacheHits.Add(context.Background(), 1)
	}
}

// RecordCacheMiss counts a fetch that went to the network.
func (t *Telemetry) RecordCacheMiss() {
	if t != nil && t.cacheMisses != nil {
		t.cacheMisses.Add(context.Background(), 1)
	}
}

// RecordRetries counts download attempts beyond the first.
func (t *Telemetry) RecordRetries(n int) {
	if t != nil && t.retriesTotal != nil && n > 0 {
		t.retriesTotal.Add(context.Background(), int64(n))
	}
}

// RecordBytesDownloaded counts bytes committed to the cache.
func (t *Telemetry) RecordBytesDownloaded(n int64) {
	if t != nil && t.bytesDownloaded != nil && n > 0 {
		t.bytesDownloaded.Add(context.Background(), n)
	}
}

// RecordEvictions counts entries removed by a TTL sweep.
func (t *Telemetry) RecordEvictions(n int) {
	if t != nil && t.evictionsTotal != nil && n > 0 {
		t.evictionsTotal.Add(context.Background(), int64(n))
	}
}
