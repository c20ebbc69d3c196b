package live

import (
	"errors"
	"testing"
	"time"

	"github.com/ADITYA2DWIVEDI/snakeengine-sub001/pkg/core"
)

// bufferOf builds a playback buffer lasting d at the default playback rate.
func bufferOf(t *testing.T, d time.Duration) *Buffer {
	t.Helper()
	format := DefaultPlaybackFormat()
	n := int(d * time.Duration(format.SampleRate) / time.Second)
	return &Buffer{Format: format, Data: [][]float32{make([]float32, n)}}
}

func TestSchedulerGaplessSequencing(t *testing.T) {
	t.Parallel()

	out := newFakeOutput()
	sched := NewScheduler(out)

	if err := sched.Schedule(bufferOf(t, 100*time.Millisecond)); err != nil {
		t.Fatal(err)
	}
	if err := sched.Schedule(bufferOf(t, 50*time.Millisecond)); err != nil {
		t.Fatal(err)
	}
	if err := sched.Schedule(bufferOf(t, 25*time.Millisecond)); err != nil {
		t.Fatal(err)
	}

	handles := out.scheduled()
	if len(handles) != 3 {
		t.Fatalf("scheduled %d buffers, want 3", len(handles))
	}
	wantStarts := []time.Duration{0, 100 * time.Millisecond, 150 * time.Millisecond}
	for i, h := range handles {
		if h.startAt != wantStarts[i] {
			t.Errorf("buffer %d starts at %v, want %v", i, h.startAt, wantStarts[i])
		}
	}
	// No buffer may begin before its predecessor has finished.
	for i := 1; i < len(handles); i++ {
		prevEnd := handles[i-1].startAt + handles[i-1].buf.Duration()
		if handles[i].startAt < prevEnd {
			t.Errorf("buffer %d starts at %v, overlapping predecessor ending at %v",
				i, handles[i].startAt, prevEnd)
		}
	}
	if got := sched.NextStartTime(); got != 175*time.Millisecond {
		t.Errorf("cursor = %v, want 175ms", got)
	}
}

func TestSchedulerLateArrivalLeavesGap(t *testing.T) {
	t.Parallel()

	out := newFakeOutput()
	sched := NewScheduler(out)

	if err := sched.Schedule(bufferOf(t, 50*time.Millisecond)); err != nil {
		t.Fatal(err)
	}
	// Playback has run well past the first buffer before the next arrives.
	out.advance(300 * time.Millisecond)
	if err := sched.Schedule(bufferOf(t, 50*time.Millisecond)); err != nil {
		t.Fatal(err)
	}

	handles := out.scheduled()
	if handles[1].startAt != 300*time.Millisecond {
		t.Errorf("late buffer starts at %v, want device now (300ms)", handles[1].startAt)
	}
	if got := sched.NextStartTime(); got != 350*time.Millisecond {
		t.Errorf("cursor = %v, want 350ms", got)
	}
}

func TestSchedulerCursorMonotonic(t *testing.T) {
	t.Parallel()

	out := newFakeOutput()
	sched := NewScheduler(out)

	durations := []time.Duration{
		80 * time.Millisecond, 10 * time.Millisecond, 120 * time.Millisecond,
		5 * time.Millisecond, 60 * time.Millisecond,
	}
	prev := sched.NextStartTime()
	for i, d := range durations {
		if i%2 == 1 {
			out.advance(40 * time.Millisecond)
		}
		if err := sched.Schedule(bufferOf(t, d)); err != nil {
			t.Fatal(err)
		}
		cur := sched.NextStartTime()
		if cur < prev {
			t.Fatalf("cursor went backwards: %v after %v", cur, prev)
		}
		prev = cur
	}
}

func TestSchedulerStopAll(t *testing.T) {
	t.Parallel()

	out := newFakeOutput()
	sched := NewScheduler(out)

	for i := 0; i < 3; i++ {
		if err := sched.Schedule(bufferOf(t, 50*time.Millisecond)); err != nil {
			t.Fatal(err)
		}
	}
	if got := sched.ActiveCount(); got != 3 {
		t.Fatalf("ActiveCount = %d, want 3", got)
	}

	sched.StopAll()

	for i, h := range out.scheduled() {
		if !h.stopped.Load() {
			t.Errorf("buffer %d not stopped", i)
		}
	}
	if got := sched.ActiveCount(); got != 0 {
		t.Errorf("ActiveCount after StopAll = %d, want 0", got)
	}
	if got := sched.NextStartTime(); got != 0 {
		t.Errorf("cursor after StopAll = %v, want 0", got)
	}
}

func TestSchedulerNaturalCompletionReleasesHandle(t *testing.T) {
	t.Parallel()

	out := newFakeOutput()
	sched := NewScheduler(out)

	if err := sched.Schedule(bufferOf(t, 50*time.Millisecond)); err != nil {
		t.Fatal(err)
	}
	out.scheduled()[0].finish()

	waitFor(t, func() bool { return sched.ActiveCount() == 0 }, "handle release")
	// Completion must not touch the cursor.
	if got := sched.NextStartTime(); got != 50*time.Millisecond {
		t.Errorf("cursor = %v, want 50ms", got)
	}
}

func TestSchedulerDeviceFailure(t *testing.T) {
	t.Parallel()

	out := newFakeOutput()
	out.playErr = errors.New("device gone")
	sched := NewScheduler(out)

	err := sched.Schedule(bufferOf(t, 50*time.Millisecond))
	if core.TypeOf(err) != core.ErrTransport {
		t.Fatalf("TypeOf(err) = %v, want %v", core.TypeOf(err), core.ErrTransport)
	}
}

func TestSchedulerIgnoresEmptyBuffers(t *testing.T) {
	t.Parallel()

	out := newFakeOutput()
	sched := NewScheduler(out)

	if err := sched.Schedule(nil); err != nil {
		t.Fatal(err)
	}
	if err := sched.Schedule(&Buffer{Format: DefaultPlaybackFormat()}); err != nil {
		t.Fatal(err)
	}
	if len(out.scheduled()) != 0 {
		t.Errorf("empty buffers were handed to the device")
	}
}
