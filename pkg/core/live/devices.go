package live

import (
	"context"
	"time"
)

// OutputDevice is the audio output capability injected into the playback
// scheduler. Real devices run playback on their own realtime clock, outside
// the caller's goroutines; Now reports that clock.
type OutputDevice interface {
	// Now returns the device clock reading. The zero point is arbitrary but
	// fixed for the device's lifetime; the clock is monotonically
	// non-decreasing.
	Now() time.Duration

	// Play schedules buf to start at startAt on the device clock and returns
	// a handle for the pending playback. startAt is never in the past.
	Play(buf *Buffer, startAt time.Duration) (PlaybackHandle, error)
}

// PlaybackHandle is one scheduled output buffer.
type PlaybackHandle interface {
	// Stop aborts playback immediately. Stopping a finished handle is a no-op.
	Stop()

	// Done is closed when playback ends, naturally or via Stop.
	Done() <-chan struct{}
}

// MicrophoneProvider opens microphone streams. Opening is permission-gated
// and may fail; failures are surfaced as capture denial.
type MicrophoneProvider interface {
	Open(ctx context.Context, format AudioFormat, blockSize int) (Microphone, error)
}

// Microphone is an open input stream delivering fixed-size mono sample
// blocks at the configured rate.
type Microphone interface {
	// Blocks yields blockSize-sample float blocks. The channel is closed when
	// the device stops, whether by Close or device failure.
	Blocks() <-chan []float32

	// Close stops the underlying device tracks. Must be idempotent.
	Close() error
}
