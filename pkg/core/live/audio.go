package live

import (
	"encoding/base64"
	"fmt"
	"math"
	"time"

	"github.com/ADITYA2DWIVEDI/snakeengine-sub001/pkg/core"
)

// WireBlob is the unit of audio exchanged with the remote service:
// base64-encoded little-endian 16-bit PCM plus a MIME-like format tag.
type WireBlob struct {
	Data     string `json:"data"`
	MIMEType string `json:"mimeType"`
}

// Buffer is a decoded block of PCM audio: one float sample slice per channel,
// values in [-1, 1].
type Buffer struct {
	Format AudioFormat
	Data   [][]float32
}

// SampleCount returns the number of per-channel samples.
func (b *Buffer) SampleCount() int {
	if b == nil || len(b.Data) == 0 {
		return 0
	}
	return len(b.Data[0])
}

// Duration returns the playback duration of the buffer.
func (b *Buffer) Duration() time.Duration {
	if b == nil {
		return 0
	}
	return b.Format.SamplesDuration(b.SampleCount())
}

// PCM16 re-interleaves the buffer into little-endian 16-bit PCM bytes,
// the format accepted by raw PCM output devices.
func (b *Buffer) PCM16() []byte {
	if b == nil {
		return nil
	}
	samples := b.SampleCount()
	channels := len(b.Data)
	out := make([]byte, samples*channels*2)
	for i := 0; i < samples; i++ {
		for ch := 0; ch < channels; ch++ {
			s := clampSample(b.Data[ch][i])
			idx := (i*channels + ch) * 2
			out[idx] = byte(s)
			out[idx+1] = byte(s >> 8)
		}
	}
	return out
}

// EncodeFrame packs float samples into a WireBlob for transmission.
// Samples are scaled by 32768 and truncated to signed 16-bit little-endian.
// Out-of-range and non-finite values are clamped to the int16 range; NaN
// has no order, so it is pinned to silence.
func EncodeFrame(samples []float32, format AudioFormat) WireBlob {
	pcm := make([]byte, len(samples)*2)
	for i, s := range samples {
		v := clampSample(s)
		pcm[i*2] = byte(v)
		pcm[i*2+1] = byte(v >> 8)
	}
	return WireBlob{
		Data:     base64.StdEncoding.EncodeToString(pcm),
		MIMEType: format.MIMEType(),
	}
}

func clampSample(s float32) int16 {
	v := float64(s) * 32768.0
	switch {
	case math.IsNaN(v):
		return 0
	case v > 32767:
		return 32767
	case v < -32768:
		return -32768
	default:
		return int16(v)
	}
}

// DecodeFrame unpacks a WireBlob into a Buffer at the given format. The
// decoded byte length must be a multiple of 2 x channels, otherwise a
// malformed wire data error is returned and the frame should be dropped.
func DecodeFrame(blob WireBlob, format AudioFormat) (*Buffer, error) {
	pcm, err := base64.StdEncoding.DecodeString(blob.Data)
	if err != nil {
		return nil, core.NewMalformedWireDataError(fmt.Sprintf("invalid base64 payload: %v", err))
	}
	channels := format.Channels
	if channels <= 0 {
		channels = 1
	}
	stride := 2 * channels
	if len(pcm)%stride != 0 {
		return nil, core.NewMalformedWireDataError(
			fmt.Sprintf("payload length %d is not a multiple of %d (16-bit x %d channels)", len(pcm), stride, channels))
	}

	samples := len(pcm) / stride
	data := make([][]float32, channels)
	for ch := range data {
		data[ch] = make([]float32, samples)
	}
	for i := 0; i < samples; i++ {
		for ch := 0; ch < channels; ch++ {
			idx := (i*channels + ch) * 2
			s := int16(pcm[idx]) | int16(pcm[idx+1])<<8
			data[ch][i] = float32(s) / 32768.0
		}
	}
	return &Buffer{Format: format, Data: data}, nil
}

// RMSEnergy computes the root-mean-square energy of a sample block.
// Returns a value between 0.0 and 1.0.
func RMSEnergy(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		v := float64(s)
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// PeakAmplitude returns the maximum absolute amplitude in the sample block.
// Returns a value between 0.0 and 1.0 for normalized input.
func PeakAmplitude(samples []float32) float64 {
	var maxAbs float64
	for _, s := range samples {
		abs := math.Abs(float64(s))
		if abs > maxAbs {
			maxAbs = abs
		}
	}
	return maxAbs
}
