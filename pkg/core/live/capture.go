package live

import (
	"context"
	"sync"

	"github.com/ADITYA2DWIVEDI/snakeengine-sub001/pkg/core"
)

// FrameSink receives encoded outbound frames from the capture pipeline.
// A sink that has nowhere to deliver must drop the frame; stale audio is
// never buffered for later replay.
type FrameSink func(WireBlob)

// LevelFunc receives per-block level measurements for UI metering.
type LevelFunc func(rms, peak float64)

// CapturePipeline cuts a live microphone stream into fixed-size frames,
// converts each to the wire format, and hands it to the sink.
type CapturePipeline struct {
	mic    Microphone
	format AudioFormat
	sink   FrameSink
	level  LevelFunc

	closeOnce sync.Once
	done      chan struct{}
}

// StartCapture opens the microphone and begins forwarding frames to sink.
// Permission refusal or device unavailability is returned as a capture
// denial, which the caller must treat as fatal to the session attempt.
func StartCapture(ctx context.Context, provider MicrophoneProvider, format AudioFormat, blockSize int, sink FrameSink, level LevelFunc) (*CapturePipeline, error) {
	if blockSize <= 0 || blockSize&(blockSize-1) != 0 {
		return nil, core.NewInvalidConfigError("capture block size must be a power of two")
	}
	if sink == nil {
		return nil, core.NewInvalidConfigError("capture sink must not be nil")
	}

	mic, err := provider.Open(ctx, format, blockSize)
	if err != nil {
		return nil, core.NewCaptureDeniedError("open microphone", err)
	}

	p := &CapturePipeline{
		mic:    mic,
		format: format,
		sink:   sink,
		level:  level,
		done:   make(chan struct{}),
	}
	go p.run()
	return p, nil
}

func (p *CapturePipeline) run() {
	defer close(p.done)
	for block := range p.mic.Blocks() {
		if p.level != nil {
			p.level(RMSEnergy(block), PeakAmplitude(block))
		}
		p.sink(EncodeFrame(block, p.format))
	}
}

// Close disconnects the frame processor and stops the device tracks.
// Safe to call more than once and on a nil pipeline.
func (p *CapturePipeline) Close() error {
	if p == nil {
		return nil
	}
	var err error
	p.closeOnce.Do(func() {
		err = p.mic.Close()
	})
	return err
}

// Done is closed once the block stream has drained after Close or device
// failure.
func (p *CapturePipeline) Done() <-chan struct{} {
	if p == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return p.done
}
