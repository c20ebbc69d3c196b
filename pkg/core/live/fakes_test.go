package live

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ADITYA2DWIVEDI/snakeengine-sub001/pkg/core"
)

// fakeHandle is a scheduled buffer on the fake output device. Playback never
// completes on its own; tests call finish to simulate natural end-of-playback.
type fakeHandle struct {
	buf     *Buffer
	startAt time.Duration

	stopped atomic.Bool
	once    sync.Once
	done    chan struct{}
}

func (h *fakeHandle) Stop() {
	h.stopped.Store(true)
	h.finish()
}

func (h *fakeHandle) finish() {
	h.once.Do(func() { close(h.done) })
}

func (h *fakeHandle) Done() <-chan struct{} { return h.done }

type fakeOutput struct {
	mu      sync.Mutex
	now     time.Duration
	handles []*fakeHandle
	playErr error
}

func newFakeOutput() *fakeOutput { return &fakeOutput{} }

func (d *fakeOutput) Now() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.now
}

func (d *fakeOutput) Play(buf *Buffer, startAt time.Duration) (PlaybackHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.playErr != nil {
		return nil, d.playErr
	}
	h := &fakeHandle{buf: buf, startAt: startAt, done: make(chan struct{})}
	d.handles = append(d.handles, h)
	return h, nil
}

func (d *fakeOutput) advance(by time.Duration) {
	d.mu.Lock()
	d.now += by
	d.mu.Unlock()
}

func (d *fakeOutput) scheduled() []*fakeHandle {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*fakeHandle(nil), d.handles...)
}

type fakeMic struct {
	blocks     chan []float32
	closeOnce  sync.Once
	closeCalls atomic.Int32
}

func newFakeMic() *fakeMic {
	return &fakeMic{blocks: make(chan []float32, 16)}
}

func (m *fakeMic) Blocks() <-chan []float32 { return m.blocks }

func (m *fakeMic) Close() error {
	m.closeCalls.Add(1)
	m.closeOnce.Do(func() { close(m.blocks) })
	return nil
}

type fakeMicProvider struct {
	mic       *fakeMic
	openErr   error
	openCalls atomic.Int32

	// release, when non-nil, holds Open until closed or ctx cancellation.
	release chan struct{}
}

func (p *fakeMicProvider) Open(ctx context.Context, format AudioFormat, blockSize int) (Microphone, error) {
	p.openCalls.Add(1)
	if p.release != nil {
		select {
		case <-p.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if p.openErr != nil {
		return nil, p.openErr
	}
	return p.mic, nil
}

// fakeConn feeds inbound traffic from a test-controlled queue. A queued error
// value surfaces from Receive; closing the queue simulates a remote close.
type fakeConn struct {
	msgs chan any
	done chan struct{}

	closeOnce  sync.Once
	closeCalls atomic.Int32

	mu   sync.Mutex
	sent []WireBlob
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		msgs: make(chan any, 32),
		done: make(chan struct{}),
	}
}

func (c *fakeConn) Send(blob WireBlob) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, blob)
	return nil
}

func (c *fakeConn) Receive() (ServerMessage, error) {
	select {
	case v, ok := <-c.msgs:
		if !ok {
			return nil, core.NewRemoteClosedError("remote closed the stream")
		}
		if err, isErr := v.(error); isErr {
			return nil, err
		}
		return v.(ServerMessage), nil
	case <-c.done:
		return nil, core.NewRemoteClosedError("connection closed")
	}
}

func (c *fakeConn) Close() error {
	c.closeCalls.Add(1)
	c.closeOnce.Do(func() { close(c.done) })
	return nil
}

func (c *fakeConn) push(msg ServerMessage) { c.msgs <- msg }
func (c *fakeConn) fail(err error)         { c.msgs <- err }
func (c *fakeConn) remoteClose()           { close(c.msgs) }

func (c *fakeConn) sentFrames() []WireBlob {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]WireBlob(nil), c.sent...)
}

type fakeTransport struct {
	mu           sync.Mutex
	conn         *fakeConn
	connectErr   error
	connectCalls atomic.Int32

	// release, when non-nil, holds Connect until closed or ctx cancellation.
	release chan struct{}
}

func (t *fakeTransport) Connect(ctx context.Context, cfg SessionConfig) (Conn, error) {
	t.connectCalls.Add(1)
	if t.release != nil {
		select {
		case <-t.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	t.mu.Lock()
	conn, err := t.conn, t.connectErr
	t.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return conn, nil
}

func (t *fakeTransport) setConn(c *fakeConn) {
	t.mu.Lock()
	t.conn = c
	t.mu.Unlock()
}

type spyRecorder struct {
	framesSent    atomic.Int32
	framesIn      atomic.Int32
	malformed     atomic.Int32
	turns         atomic.Int32
	sessionsBegun atomic.Int32
	sessionsEnded atomic.Int32
}

func (r *spyRecorder) FrameSent()                   { r.framesSent.Add(1) }
func (r *spyRecorder) FrameReceived()               { r.framesIn.Add(1) }
func (r *spyRecorder) MalformedFrame()              { r.malformed.Add(1) }
func (r *spyRecorder) TurnCompleted()               { r.turns.Add(1) }
func (r *spyRecorder) SessionStarted()              { r.sessionsBegun.Add(1) }
func (r *spyRecorder) SessionEnded(_ time.Duration) { r.sessionsEnded.Add(1) }

// eventLog drains a controller's event channel into an inspectable record.
// Draining happens synchronously inside snapshot so that events emitted
// before an observed synchronization point (e.g. Done closing) are visible
// to the very next assertion.
type eventLog struct {
	mu     sync.Mutex
	ch     <-chan Event
	events []Event
}

func drainEvents(ctrl *Controller) *eventLog {
	return &eventLog{ch: ctrl.Events()}
}

func (l *eventLog) snapshot() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	for {
		select {
		case ev := <-l.ch:
			l.events = append(l.events, ev)
		default:
			return append([]Event(nil), l.events...)
		}
	}
}

func (l *eventLog) closedCount() int {
	n := 0
	for _, ev := range l.snapshot() {
		if _, ok := ev.(SessionClosedEvent); ok {
			n++
		}
	}
	return n
}

func (l *eventLog) errorKinds() []core.ErrorType {
	var kinds []core.ErrorType
	for _, ev := range l.snapshot() {
		if e, ok := ev.(ErrorEvent); ok {
			kinds = append(kinds, e.Err.Type)
		}
	}
	return kinds
}

func (l *eventLog) transcript() []TranscriptEntryEvent {
	var entries []TranscriptEntryEvent
	for _, ev := range l.snapshot() {
		if e, ok := ev.(TranscriptEntryEvent); ok {
			entries = append(entries, e)
		}
	}
	return entries
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", msg)
}

func testConfig() SessionConfig {
	cfg := DefaultSessionConfig()
	cfg.Model = "snake-voice-test"
	return cfg
}
