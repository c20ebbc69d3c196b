package live

import (
	"fmt"
	"sync"
	"time"

	"github.com/ADITYA2DWIVEDI/snakeengine-sub001/pkg/core"
)

// Scheduler plays decoded audio buffers back-to-back against an output
// device. Buffers arrive asynchronously and out of sync with the device's
// realtime clock, so the scheduler keeps its own timing cursor: the earliest
// time the next buffer may begin. The cursor is monotonically non-decreasing
// and is reset only by StopAll.
//
// Buffers play in exact Schedule order with zero gap while arrival keeps
// pace with playback. If arrival falls behind, a gap is audible; the
// scheduler never speeds up or drops audio to catch up.
type Scheduler struct {
	out OutputDevice

	mu     sync.Mutex
	next   time.Duration
	active map[PlaybackHandle]struct{}
}

// NewScheduler creates a scheduler bound to one output device. One scheduler
// instance serves exactly one session; neither the cursor nor the active set
// is shared across sessions.
func NewScheduler(out OutputDevice) *Scheduler {
	return &Scheduler{
		out:    out,
		active: make(map[PlaybackHandle]struct{}),
	}
}

// Schedule queues buf to start at max(cursor, device now) and advances the
// cursor past the buffer's duration. Device failures are fatal to the
// session and are returned as canonical transport errors.
func (s *Scheduler) Schedule(buf *Buffer) error {
	if buf == nil || buf.SampleCount() == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	startAt := s.next
	if now := s.out.Now(); now > startAt {
		startAt = now
	}

	handle, err := s.out.Play(buf, startAt)
	if err != nil {
		return core.NewTransportError(fmt.Sprintf("audio output device: %v", err), err)
	}
	s.active[handle] = struct{}{}
	s.next = startAt + buf.Duration()

	go func() {
		<-handle.Done()
		s.mu.Lock()
		delete(s.active, handle)
		s.mu.Unlock()
	}()
	return nil
}

// StopAll force-stops every outstanding buffer, clears the active set, and
// resets the cursor. Called on interruption and during session teardown.
func (s *Scheduler) StopAll() {
	s.mu.Lock()
	handles := make([]PlaybackHandle, 0, len(s.active))
	for h := range s.active {
		handles = append(handles, h)
	}
	s.active = make(map[PlaybackHandle]struct{})
	s.next = 0
	s.mu.Unlock()

	for _, h := range handles {
		h.Stop()
	}
}

// NextStartTime returns the current cursor position.
func (s *Scheduler) NextStartTime() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next
}

// ActiveCount returns the number of buffers scheduled but not yet finished.
func (s *Scheduler) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}
