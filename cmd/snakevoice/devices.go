package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"runtime"
	"sync"
	"time"

	"github.com/ADITYA2DWIVEDI/snakeengine-sub001/pkg/core/live"
)

// ffmpegMicProvider captures microphone audio by spawning ffmpeg and reading
// raw s16le PCM from its stdout.
type ffmpegMicProvider struct{}

func (ffmpegMicProvider) Open(ctx context.Context, format live.AudioFormat, blockSize int) (live.Microphone, error) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return nil, errors.New("ffmpeg is required for mic capture (install ffmpeg and ensure it is in PATH)")
	}
	args, err := micFFmpegArgs(runtime.GOOS, format)
	if err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("open ffmpeg stdout: %w", err)
	}
	cmd.Stderr = io.Discard
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffmpeg mic capture: %w", err)
	}

	mic := &ffmpegMic{
		cmd:    cmd,
		stdout: stdout,
		blocks: make(chan []float32, 4),
	}
	go mic.pump(blockSize)
	return mic, nil
}

func micFFmpegArgs(goos string, format live.AudioFormat) ([]string, error) {
	rate := fmt.Sprintf("%d", format.SampleRate)
	channels := fmt.Sprintf("%d", format.Channels)
	switch goos {
	case "darwin":
		return []string{
			"-hide_banner", "-loglevel", "error",
			"-f", "avfoundation", "-i", ":0",
			"-ac", channels, "-ar", rate,
			"-f", "s16le", "-",
		}, nil
	case "linux":
		return []string{
			"-hide_banner", "-loglevel", "error",
			"-f", "pulse", "-i", "default",
			"-ac", channels, "-ar", rate,
			"-f", "s16le", "-",
		}, nil
	default:
		return nil, fmt.Errorf("mic capture is not implemented for %s; supported platforms: darwin, linux", goos)
	}
}

type ffmpegMic struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	blocks chan []float32

	closeOnce sync.Once
}

func (m *ffmpegMic) Blocks() <-chan []float32 { return m.blocks }

// pump cuts the PCM byte stream into fixed-size sample blocks. Exits and
// closes the block channel on any read error, including process kill.
func (m *ffmpegMic) pump(blockSize int) {
	defer close(m.blocks)
	raw := make([]byte, blockSize*2)
	for {
		if _, err := io.ReadFull(m.stdout, raw); err != nil {
			return
		}
		block := make([]float32, blockSize)
		for i := range block {
			s := int16(raw[i*2]) | int16(raw[i*2+1])<<8
			block[i] = float32(s) / 32768.0
		}
		m.blocks <- block
	}
}

func (m *ffmpegMic) Close() error {
	m.closeOnce.Do(func() {
		if m.cmd != nil && m.cmd.Process != nil {
			_ = m.cmd.Process.Kill()
			_ = m.cmd.Wait()
		}
	})
	return nil
}

// ffplayOutput plays PCM buffers through a long-lived ffplay process. The
// device clock is wall time since the process started; buffers scheduled in
// the future are held back before their bytes are piped in.
type ffplayOutput struct {
	format live.AudioFormat
	epoch  time.Time

	mu    sync.Mutex
	cmd   *exec.Cmd
	stdin io.WriteCloser
}

func newFFplayOutput(format live.AudioFormat) (*ffplayOutput, error) {
	if _, err := exec.LookPath("ffplay"); err != nil {
		return nil, errors.New("ffplay is required for playback (install ffmpeg/ffplay and ensure it is in PATH)")
	}
	cmd := exec.Command("ffplay",
		"-nodisp",
		"-autoexit",
		"-loglevel", "error",
		"-f", "s16le",
		"-ar", fmt.Sprintf("%d", format.SampleRate),
		"-ac", fmt.Sprintf("%d", format.Channels),
		"-i", "pipe:0",
	)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("open ffplay stdin: %w", err)
	}
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffplay: %w", err)
	}
	return &ffplayOutput{
		format: format,
		epoch:  time.Now(),
		cmd:    cmd,
		stdin:  stdin,
	}, nil
}

func (o *ffplayOutput) Now() time.Duration {
	return time.Since(o.epoch)
}

func (o *ffplayOutput) Play(buf *live.Buffer, startAt time.Duration) (live.PlaybackHandle, error) {
	h := &ffplayHandle{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go o.run(h, buf, startAt)
	return h, nil
}

func (o *ffplayOutput) run(h *ffplayHandle, buf *live.Buffer, startAt time.Duration) {
	defer h.finish()

	if wait := startAt - o.Now(); wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-h.stop:
			return
		}
	}
	select {
	case <-h.stop:
		return
	default:
	}

	o.mu.Lock()
	stdin := o.stdin
	var err error
	if stdin != nil {
		_, err = stdin.Write(buf.PCM16())
	}
	o.mu.Unlock()
	if err != nil {
		slog.Warn("ffplay write failed", "err", err)
		return
	}

	// ffplay drains its pipe faster than realtime; the handle completes when
	// the buffer has audibly finished, not when the bytes were accepted.
	timer := time.NewTimer(buf.Duration())
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-h.stop:
	}
}

func (o *ffplayOutput) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cmd != nil && o.cmd.Process != nil {
		_ = o.cmd.Process.Kill()
		_ = o.cmd.Wait()
	}
	o.stdin = nil
	return nil
}

type ffplayHandle struct {
	stop chan struct{}
	done chan struct{}

	stopOnce   sync.Once
	finishOnce sync.Once
}

func (h *ffplayHandle) Stop() {
	h.stopOnce.Do(func() { close(h.stop) })
}

func (h *ffplayHandle) finish() {
	h.finishOnce.Do(func() { close(h.done) })
}

func (h *ffplayHandle) Done() <-chan struct{} { return h.done }
