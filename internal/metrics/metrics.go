// Package metrics exposes Prometheus counters/histograms/gauges for the
// dispatch lifecycle, in the same enabled-flag-plus-labeled-vector shape
// as internal/audiocore's MetricsCollector — a nil-safe wrapper the
// caller can pass around even when telemetry is disabled.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/chunkcast/chunkcast/internal/transcript"
)

// Dispatch holds the Dispatcher's Prometheus collectors.
type Dispatch struct {
	enabled bool

	attemptsTotal  *prometheus.CounterVec
	attemptLatency *prometheus.HistogramVec
	inFlightChunk  prometheus.Gauge
}

// NewDispatch registers the Dispatcher's collectors against registry and
// returns the wrapper. Passing a nil registry returns a disabled
// no-op wrapper.
func NewDispatch(registry prometheus.Registerer) (*Dispatch, error) {
	if registry == nil {
		return &Dispatch{enabled: false}, nil
	}

	d := &Dispatch{
		enabled: true,
		attemptsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chunkcast",
			Subsystem: "dispatch",
			Name:      "attempts_total",
			Help:      "Transcription attempts, labeled by error_kind ('' for success).",
		}, []string{"error_kind"}),
		attemptLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "chunkcast",
			Subsystem: "dispatch",
			Name:      "attempt_latency_seconds",
			Help:      "Latency of a single transcription attempt.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
		inFlightChunk: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "chunkcast",
			Subsystem: "dispatch",
			Name:      "in_flight_chunk_index",
			Help:      "Index of the chunk currently being processed.",
		}),
	}

	for _, c := range []prometheus.Collector{d.attemptsTotal, d.attemptLatency, d.inFlightChunk} {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// RecordAttempt records the outcome of one submission attempt. kind is
// empty for a successful attempt.
func (d *Dispatch) RecordAttempt(kind transcript.ErrorKind) {
	if d == nil || !d.enabled {
		return
	}
	d.attemptsTotal.WithLabelValues(string(kind)).Inc()
}

// ObserveLatency records how long one attempt took.
func (d *Dispatch) ObserveLatency(outcome string, elapsed time.Duration) {
	if d == nil || !d.enabled {
		return
	}
	d.attemptLatency.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// SetInFlightChunk records which chunk index is currently being processed.
func (d *Dispatch) SetInFlightChunk(index int) {
	if d == nil || !d.enabled {
		return
	}
	d.inFlightChunk.Set(float64(index))
}
