// Package observe provides OpenTelemetry metrics for the voice session core.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A package-level
// default [Metrics] instance ([DefaultMetrics]) is provided for convenience;
// tests should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/ADITYA2DWIVEDI/snakeengine-sub001/pkg/core/live"
)

// meterName is the instrumentation scope name used for all metrics.
const meterName = "github.com/ADITYA2DWIVEDI/snakeengine-sub001"

// Compile-time assertion that Metrics satisfies the session recorder.
var _ live.Recorder = (*Metrics)(nil)

// Metrics holds all OpenTelemetry metric instruments for the session core.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// SessionDuration tracks wall-clock length of live sessions.
	SessionDuration metric.Float64Histogram

	// FramesSent counts outbound microphone frames.
	FramesSent metric.Int64Counter

	// FramesReceived counts inbound playback frames.
	FramesReceived metric.Int64Counter

	// FramesMalformed counts inbound frames dropped at decode.
	FramesMalformed metric.Int64Counter

	// Turns counts completed conversational turns.
	Turns metric.Int64Counter

	// ActiveSessions tracks the number of live voice sessions.
	ActiveSessions metric.Int64UpDownCounter
}

// durationBuckets defines histogram bucket boundaries (in seconds) sized for
// voice session lifetimes.
var durationBuckets = []float64{
	1, 5, 15, 30, 60, 120, 300, 600, 900, 1800,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.SessionDuration, err = m.Float64Histogram("snakevoice.session.duration",
		metric.WithDescription("Wall-clock duration of live voice sessions."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...),
	); err != nil {
		return nil, err
	}
	if met.FramesSent, err = m.Int64Counter("snakevoice.frames.sent",
		metric.WithDescription("Total microphone frames sent to the remote service."),
	); err != nil {
		return nil, err
	}
	if met.FramesReceived, err = m.Int64Counter("snakevoice.frames.received",
		metric.WithDescription("Total playback frames received from the remote service."),
	); err != nil {
		return nil, err
	}
	if met.FramesMalformed, err = m.Int64Counter("snakevoice.frames.malformed",
		metric.WithDescription("Total inbound frames dropped because they failed decoding."),
	); err != nil {
		return nil, err
	}
	if met.Turns, err = m.Int64Counter("snakevoice.turns",
		metric.WithDescription("Total completed conversational turns."),
	); err != nil {
		return nil, err
	}
	if met.ActiveSessions, err = m.Int64UpDownCounter("snakevoice.active_sessions",
		metric.WithDescription("Number of live voice sessions."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// FrameSent implements live.Recorder.
func (m *Metrics) FrameSent() {
	m.FramesSent.Add(context.Background(), 1)
}

// FrameReceived implements live.Recorder.
func (m *Metrics) FrameReceived() {
	m.FramesReceived.Add(context.Background(), 1)
}

// MalformedFrame implements live.Recorder.
func (m *Metrics) MalformedFrame() {
	m.FramesMalformed.Add(context.Background(), 1)
}

// TurnCompleted implements live.Recorder.
func (m *Metrics) TurnCompleted() {
	m.Turns.Add(context.Background(), 1)
}

// SessionStarted implements live.Recorder.
func (m *Metrics) SessionStarted() {
	m.ActiveSessions.Add(context.Background(), 1)
}

// SessionEnded implements live.Recorder.
func (m *Metrics) SessionEnded(d time.Duration) {
	ctx := context.Background()
	m.ActiveSessions.Add(ctx, -1)
	m.SessionDuration.Record(ctx, d.Seconds())
}
