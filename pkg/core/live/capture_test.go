package live

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/ADITYA2DWIVEDI/snakeengine-sub001/pkg/core"
)

func TestCaptureForwardsFrames(t *testing.T) {
	t.Parallel()

	mic := newFakeMic()
	provider := &fakeMicProvider{mic: mic}

	var mu sync.Mutex
	var frames []WireBlob
	sink := func(blob WireBlob) {
		mu.Lock()
		frames = append(frames, blob)
		mu.Unlock()
	}

	pipe, err := StartCapture(context.Background(), provider, DefaultCaptureFormat(), 1024, sink, nil)
	if err != nil {
		t.Fatalf("StartCapture: %v", err)
	}
	defer pipe.Close()

	first := []float32{0.25, -0.25, 0.5, -0.5}
	second := []float32{0.125, 0, -0.125, 0}
	mic.blocks <- first
	mic.blocks <- second

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(frames) == 2
	}, "both frames at sink")

	mu.Lock()
	defer mu.Unlock()
	for i, want := range [][]float32{first, second} {
		buf, derr := DecodeFrame(frames[i], DefaultCaptureFormat())
		if derr != nil {
			t.Fatalf("frame %d decode: %v", i, derr)
		}
		if buf.SampleCount() != len(want) {
			t.Fatalf("frame %d has %d samples, want %d", i, buf.SampleCount(), len(want))
		}
		for j, s := range want {
			if buf.Data[0][j] != s {
				t.Errorf("frame %d sample %d = %v, want %v", i, j, buf.Data[0][j], s)
			}
		}
		if frames[i].MIMEType != "audio/pcm;rate=16000" {
			t.Errorf("frame %d MIMEType = %q", i, frames[i].MIMEType)
		}
	}
}

func TestCaptureReportsLevels(t *testing.T) {
	t.Parallel()

	mic := newFakeMic()
	provider := &fakeMicProvider{mic: mic}

	levels := make(chan [2]float64, 1)
	level := func(rms, peak float64) {
		select {
		case levels <- [2]float64{rms, peak}:
		default:
		}
	}

	pipe, err := StartCapture(context.Background(), provider, DefaultCaptureFormat(), 1024, func(WireBlob) {}, level)
	if err != nil {
		t.Fatalf("StartCapture: %v", err)
	}
	defer pipe.Close()

	mic.blocks <- []float32{0.5, -0.5, 0.5, -0.5}
	got := <-levels
	if got[0] != 0.5 {
		t.Errorf("rms = %v, want 0.5", got[0])
	}
	if got[1] != 0.5 {
		t.Errorf("peak = %v, want 0.5", got[1])
	}
}

func TestCaptureDenied(t *testing.T) {
	t.Parallel()

	provider := &fakeMicProvider{openErr: errors.New("permission refused")}
	_, err := StartCapture(context.Background(), provider, DefaultCaptureFormat(), 1024, func(WireBlob) {}, nil)
	if core.TypeOf(err) != core.ErrCaptureDenied {
		t.Fatalf("TypeOf(err) = %v, want %v", core.TypeOf(err), core.ErrCaptureDenied)
	}
}

func TestCaptureRejectsBadBlockSize(t *testing.T) {
	t.Parallel()

	provider := &fakeMicProvider{mic: newFakeMic()}
	for _, size := range []int{0, -1, 3000} {
		_, err := StartCapture(context.Background(), provider, DefaultCaptureFormat(), size, func(WireBlob) {}, nil)
		if core.TypeOf(err) != core.ErrInvalidConfig {
			t.Errorf("blockSize %d: TypeOf(err) = %v, want %v", size, core.TypeOf(err), core.ErrInvalidConfig)
		}
	}
	if provider.openCalls.Load() != 0 {
		t.Errorf("microphone opened despite invalid block size")
	}
}

func TestCaptureCloseIdempotent(t *testing.T) {
	t.Parallel()

	mic := newFakeMic()
	provider := &fakeMicProvider{mic: mic}

	pipe, err := StartCapture(context.Background(), provider, DefaultCaptureFormat(), 1024, func(WireBlob) {}, nil)
	if err != nil {
		t.Fatalf("StartCapture: %v", err)
	}

	for i := 0; i < 3; i++ {
		if cerr := pipe.Close(); cerr != nil {
			t.Fatalf("Close %d: %v", i, cerr)
		}
	}
	if got := mic.closeCalls.Load(); got != 1 {
		t.Errorf("mic.Close called %d times, want 1", got)
	}

	<-pipe.Done()

	var nilPipe *CapturePipeline
	if cerr := nilPipe.Close(); cerr != nil {
		t.Errorf("nil pipeline Close: %v", cerr)
	}
	<-nilPipe.Done()
}
