package live

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ADITYA2DWIVEDI/snakeengine-sub001/pkg/core"
)

// Recorder receives pipeline measurements. Implementations must be safe for
// concurrent use. A nil Recorder disables recording.
type Recorder interface {
	FrameSent()
	FrameReceived()
	MalformedFrame()
	TurnCompleted()
	SessionStarted()
	SessionEnded(d time.Duration)
}

// Controller owns the lifecycle of live voice sessions: connect, stream
// microphone frames out, schedule returned audio for playback, accumulate
// transcripts, and tear everything down deterministically on stop or error.
//
// One controller runs at most one session at a time. All session state
// transitions are serialized internally; message arrival, a user-initiated
// stop, and a transport error may race freely and only the first teardown
// trigger releases resources.
type Controller struct {
	cfg       SessionConfig
	transport Transport
	mics      MicrophoneProvider
	output    OutputDevice

	logger   *slog.Logger
	recorder Recorder
	events   chan Event

	mu    sync.Mutex
	state SessionState
	sess  *session
}

// session holds the per-session resources. All of them are created when the
// session starts and fully discarded at teardown; nothing outlives one
// session.
type session struct {
	ctrl *Controller

	conn      Conn
	capture   *CapturePipeline
	scheduler *Scheduler
	cancel    context.CancelFunc

	// wanted is cleared by Stop while the connect is still in flight; the
	// connect path checks it before activating capture and playback.
	wanted atomic.Bool

	// sendable gates the capture sink; outbound frames are dropped, never
	// buffered, while it is false.
	sendable atomic.Bool

	// activated is set once the session reaches active. Sessions cancelled
	// or failed before that point never count toward session metrics.
	activated atomic.Bool

	teardown  sync.Once
	startedAt time.Time
	done      chan struct{}

	// Transcript accumulators, touched only by the receive loop.
	inText  strings.Builder
	outText strings.Builder
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) ControllerOption {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) ControllerOption {
	return func(c *Controller) { c.recorder = r }
}

// NewController creates a controller for the given remote transport and
// audio devices.
func NewController(cfg SessionConfig, transport Transport, mics MicrophoneProvider, output OutputDevice, opts ...ControllerOption) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if transport == nil {
		return nil, core.NewInvalidConfigError("transport must not be nil")
	}
	if mics == nil {
		return nil, core.NewInvalidConfigError("microphone provider must not be nil")
	}
	if output == nil {
		return nil, core.NewInvalidConfigError("output device must not be nil")
	}

	c := &Controller{
		cfg:       cfg,
		transport: transport,
		mics:      mics,
		output:    output,
		logger:    slog.Default(),
		events:    make(chan Event, 128),
		state:     StateIdle,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Events yields session events for UI binding. Events are dropped rather
// than blocking the pipeline when the consumer stops reading.
func (c *Controller) Events() <-chan Event {
	return c.events
}

// State returns the current session state.
func (c *Controller) State() SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Done returns a channel closed when the current session has fully closed.
// With no session started it returns an already-closed channel.
func (c *Controller) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return c.sess.done
}

// Start opens a new live session. It returns synchronously once the session
// is connecting; progress is observable via Events. Starting while a session
// is connecting or active is a caller error and leaves the existing session
// untouched.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.state == StateConnecting || c.state == StateActive {
		c.mu.Unlock()
		return core.NewSessionAlreadyActiveError(
			fmt.Sprintf("a session is already %s on this controller", c.state))
	}

	sctx, cancel := context.WithCancel(ctx)
	s := &session{
		ctrl:      c,
		cancel:    cancel,
		startedAt: time.Now(),
		done:      make(chan struct{}),
	}
	s.wanted.Store(true)
	c.sess = s
	c.setStateLocked(StateConnecting)
	c.mu.Unlock()

	go s.connect(sctx)
	return nil
}

// Stop ends the current session. Safe to call in any state, repeatedly, and
// concurrently with a remote close or transport error; teardown happens
// exactly once. Calling Stop while connecting still reaches a deterministic
// closed state once the in-flight connect resolves.
func (c *Controller) Stop() {
	c.mu.Lock()
	s := c.sess
	c.mu.Unlock()
	if s == nil {
		return
	}

	s.wanted.Store(false)
	s.cancel()

	// Read the state only after clearing wanted: the connect path either
	// observes the cleared flag and finishes itself, or its activation is
	// already visible here and teardown runs from this side.
	c.mu.Lock()
	state := c.state
	c.mu.Unlock()
	if state == StateActive {
		s.finish(nil, "stopped")
	}
}

func (c *Controller) setStateLocked(to SessionState) {
	from := c.state
	if from == to {
		return
	}
	c.state = to
	c.emit(StateChangedEvent{From: from, To: to})
}

func (c *Controller) emit(ev Event) {
	select {
	case c.events <- ev:
	default:
		// Avoid blocking the audio path when the UI stops consuming.
	}
}

func (s *session) connect(ctx context.Context) {
	c := s.ctrl

	conn, err := c.transport.Connect(ctx, c.cfg)

	if !s.wanted.Load() {
		// Stop arrived while the connect was in flight. Tear down whatever
		// the connect produced instead of proceeding to active.
		if err == nil && conn != nil {
			_ = conn.Close()
		}
		s.finish(nil, "cancelled")
		return
	}
	if err != nil {
		s.finish(toTransportError(err, "open live session"), "connect failed")
		return
	}

	c.mu.Lock()
	s.conn = conn
	s.scheduler = NewScheduler(c.output)
	c.mu.Unlock()

	capture, err := StartCapture(ctx, c.mics, c.cfg.Capture, c.cfg.BlockSize, s.sendFrame, s.emitLevel)
	if err != nil {
		// Stop may have cancelled the session context while the microphone
		// was still opening; that is a clean stop, not a capture denial.
		if !s.wanted.Load() {
			s.finish(nil, "cancelled")
			return
		}
		s.finish(asCoreError(err), "capture denied")
		return
	}

	// activated must be set in the same critical section as the transition to
	// active: Stop only triggers teardown after observing the active state,
	// so every teardown that skips SessionEnded also predates SessionStarted.
	c.mu.Lock()
	s.capture = capture
	s.sendable.Store(true)
	s.activated.Store(true)
	if c.recorder != nil {
		c.recorder.SessionStarted()
	}
	c.setStateLocked(StateActive)
	c.mu.Unlock()

	if !s.wanted.Load() {
		s.finish(nil, "stopped")
		return
	}

	go s.receiveLoop()
}

func (s *session) receiveLoop() {
	c := s.ctrl
	for {
		msg, err := s.conn.Receive()
		if err != nil {
			if core.TypeOf(err) == core.ErrRemoteClosed {
				s.finish(nil, "remote closed")
			} else {
				s.finish(toTransportError(err, "receive live message"), "transport error")
			}
			return
		}

		switch m := msg.(type) {
		case AudioMessage:
			buf, derr := DecodeFrame(m.Blob, c.cfg.Playback)
			if derr != nil {
				// Transient corruption must not kill an otherwise-healthy
				// call: drop the frame and keep going.
				c.logger.Warn("dropping malformed audio frame", "err", derr)
				if c.recorder != nil {
					c.recorder.MalformedFrame()
				}
				continue
			}
			if serr := s.scheduler.Schedule(buf); serr != nil {
				s.finish(asCoreError(serr), "output device failure")
				return
			}
			if c.recorder != nil {
				c.recorder.FrameReceived()
			}
		case InputTranscriptMessage:
			s.inText.WriteString(m.Text)
		case OutputTranscriptMessage:
			s.outText.WriteString(m.Text)
		case TurnCompleteMessage:
			s.flushTurn()
		case InterruptedMessage:
			// Pending audio is stale; the session itself continues.
			s.scheduler.StopAll()
		}
	}
}

// flushTurn finalizes both transcript accumulators at a turn boundary.
// Sides whose trimmed text is empty emit nothing; when both are non-empty
// the user entry precedes the model entry.
func (s *session) flushTurn() {
	c := s.ctrl
	user := strings.TrimSpace(s.inText.String())
	model := strings.TrimSpace(s.outText.String())
	s.inText.Reset()
	s.outText.Reset()

	if user != "" {
		c.emit(TranscriptEntryEvent{Role: RoleUser, Text: user})
	}
	if model != "" {
		c.emit(TranscriptEntryEvent{Role: RoleModel, Text: model})
	}
	if c.recorder != nil {
		c.recorder.TurnCompleted()
	}
}

// sendFrame is the capture pipeline's sink. Frames produced while no session
// is active are dropped, never buffered: stale audio must not replay later.
func (s *session) sendFrame(blob WireBlob) {
	if !s.sendable.Load() {
		return
	}
	if err := s.conn.Send(blob); err != nil {
		s.finish(toTransportError(err, "send media frame"), "transport error")
		return
	}
	if s.ctrl.recorder != nil {
		s.ctrl.recorder.FrameSent()
	}
}

func (s *session) emitLevel(rms, peak float64) {
	s.ctrl.emit(LevelEvent{RMS: rms, Peak: peak})
}

// finish performs the full teardown: stop capture, stop playback, close the
// remote session, then surface the terminal transition. It is safe against
// concurrent triggers (user stop, remote close, transport error); only the
// first caller releases resources and the close is observable exactly once.
func (s *session) finish(cerr *core.Error, reason string) {
	c := s.ctrl
	s.teardown.Do(func() {
		s.sendable.Store(false)
		s.cancel()

		c.mu.Lock()
		capture, scheduler, conn := s.capture, s.scheduler, s.conn
		c.mu.Unlock()

		if capture != nil {
			_ = capture.Close()
		}
		if scheduler != nil {
			scheduler.StopAll()
		}
		if conn != nil {
			_ = conn.Close()
		}

		c.mu.Lock()
		if cerr != nil {
			c.setStateLocked(StateErrored)
		}
		c.setStateLocked(StateClosed)
		c.mu.Unlock()

		if cerr != nil {
			c.logger.Error("live session failed", "kind", cerr.Type, "err", cerr)
			c.emit(ErrorEvent{Err: cerr})
		}
		c.emit(SessionClosedEvent{Reason: reason})
		c.logger.Info("live session closed", "reason", reason, "duration", time.Since(s.startedAt))

		if c.recorder != nil && s.activated.Load() {
			c.recorder.SessionEnded(time.Since(s.startedAt))
		}
		close(s.done)
	})
}

// asCoreError returns err's canonical form, wrapping foreign errors as
// transport failures so nothing implementation-specific escapes.
func asCoreError(err error) *core.Error {
	if err == nil {
		return nil
	}
	var ce *core.Error
	if errors.As(err, &ce) {
		return ce
	}
	return core.NewTransportError(err.Error(), err)
}

func toTransportError(err error, op string) *core.Error {
	var ce *core.Error
	if errors.As(err, &ce) {
		return ce
	}
	return core.NewTransportError(fmt.Sprintf("%s: %v", op, err), err)
}
