package live

import (
	"fmt"
	"time"

	"github.com/ADITYA2DWIVEDI/snakeengine-sub001/pkg/core"
)

// SessionState represents the current state of a live voice session.
type SessionState int

const (
	// StateIdle is the initial state before a session is started.
	StateIdle SessionState = iota
	// StateConnecting is while the remote streaming session is being opened.
	StateConnecting
	// StateActive is while audio and transcripts are flowing.
	StateActive
	// StateErrored is the terminal failure state; cleanup still transitions
	// the session to StateClosed afterwards.
	StateErrored
	// StateClosed is the terminal state after teardown completed.
	StateClosed
)

// String returns a human-readable state name.
func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateConnecting:
		return "CONNECTING"
	case StateActive:
		return "ACTIVE"
	case StateErrored:
		return "ERRORED"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// AudioFormat specifies PCM audio format parameters.
type AudioFormat struct {
	// SampleRate in Hz. 16000 for capture, 24000 for playback.
	SampleRate int `json:"sample_rate"`

	// Channels: 1 for mono, 2 for stereo.
	Channels int `json:"channels"`

	// BitsPerSample: 16 for the s16le wire format.
	BitsPerSample int `json:"bits_per_sample"`
}

// DefaultCaptureFormat returns the microphone-side format.
func DefaultCaptureFormat() AudioFormat {
	return AudioFormat{SampleRate: 16000, Channels: 1, BitsPerSample: 16}
}

// DefaultPlaybackFormat returns the speaker-side format.
func DefaultPlaybackFormat() AudioFormat {
	return AudioFormat{SampleRate: 24000, Channels: 1, BitsPerSample: 16}
}

// MIMEType returns the wire tag for this format, e.g. "audio/pcm;rate=16000".
func (f AudioFormat) MIMEType() string {
	return fmt.Sprintf("audio/pcm;rate=%d", f.SampleRate)
}

// BytesPerSecond returns the audio byte rate.
func (f AudioFormat) BytesPerSecond() int {
	return f.SampleRate * f.Channels * (f.BitsPerSample / 8)
}

// SamplesDuration returns the playback duration of n per-channel samples.
func (f AudioFormat) SamplesDuration(n int) time.Duration {
	if f.SampleRate <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second / time.Duration(f.SampleRate)
}

// DefaultBlockSize is the capture frame size in samples. Realtime audio
// processors require a power of two.
const DefaultBlockSize = 4096

// SessionConfig holds all configuration for a live voice session.
type SessionConfig struct {
	// Model is the conversational audio model to use.
	Model string `json:"model"`

	// System is the system prompt for the remote agent.
	System string `json:"system,omitempty"`

	// Capture is the microphone format. Default: 16 kHz mono s16le.
	Capture AudioFormat `json:"capture"`

	// Playback is the output format. Default: 24 kHz mono s16le.
	Playback AudioFormat `json:"playback"`

	// BlockSize is the capture frame size in samples. Must be a power of two.
	// Default: 4096.
	BlockSize int `json:"block_size"`
}

// DefaultSessionConfig returns a SessionConfig with sensible defaults.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		Capture:   DefaultCaptureFormat(),
		Playback:  DefaultPlaybackFormat(),
		BlockSize: DefaultBlockSize,
	}
}

// Validate checks that the config describes a usable session.
func (c SessionConfig) Validate() error {
	if c.Model == "" {
		return core.NewInvalidConfigError("model must not be empty")
	}
	for _, f := range []struct {
		name   string
		format AudioFormat
	}{
		{"capture", c.Capture},
		{"playback", c.Playback},
	} {
		if f.format.SampleRate <= 0 {
			return core.NewInvalidConfigError(fmt.Sprintf("%s sample rate must be positive", f.name))
		}
		if f.format.Channels <= 0 {
			return core.NewInvalidConfigError(fmt.Sprintf("%s channel count must be positive", f.name))
		}
		if f.format.BitsPerSample != 16 {
			return core.NewInvalidConfigError(fmt.Sprintf("%s must use 16-bit samples", f.name))
		}
	}
	if c.BlockSize <= 0 || c.BlockSize&(c.BlockSize-1) != 0 {
		return core.NewInvalidConfigError(fmt.Sprintf("block size %d must be a power of two", c.BlockSize))
	}
	return nil
}
