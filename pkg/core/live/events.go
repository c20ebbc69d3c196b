package live

import "github.com/ADITYA2DWIVEDI/snakeengine-sub001/pkg/core"

// Event is the interface for all session events surfaced to the UI layer.
type Event interface {
	// EventType returns the event type string for serialization.
	EventType() string
}

// Role identifies which side of the conversation a transcript entry belongs to.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// StateChangedEvent is emitted on every session state transition.
type StateChangedEvent struct {
	From SessionState `json:"from"`
	To   SessionState `json:"to"`
}

func (e StateChangedEvent) EventType() string { return "state.changed" }

// TranscriptEntryEvent is a finalized transcript entry, emitted at each turn
// boundary. Entries for one turn arrive user-side first, then model-side.
type TranscriptEntryEvent struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

func (e TranscriptEntryEvent) EventType() string { return "transcript.entry" }

// LevelEvent reports outbound audio energy for UI level meters.
type LevelEvent struct {
	RMS  float64 `json:"rms"`
	Peak float64 `json:"peak"`
}

func (e LevelEvent) EventType() string { return "level" }

// ErrorEvent is emitted when a fatal error ends the session. The Err carries
// a canonical kind; implementation-specific errors never reach the UI layer.
type ErrorEvent struct {
	Err *core.Error `json:"error"`
}

func (e ErrorEvent) EventType() string { return "error" }

// SessionClosedEvent is emitted exactly once per session, after teardown.
type SessionClosedEvent struct {
	Reason string `json:"reason,omitempty"`
}

func (e SessionClosedEvent) EventType() string { return "session.closed" }
