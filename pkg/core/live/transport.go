package live

import "context"

// Transport opens bidirectional streaming connections to a remote
// conversational audio service.
type Transport interface {
	// Connect opens a session for cfg. It blocks until the remote endpoint
	// acknowledges the session or ctx is cancelled.
	Connect(ctx context.Context, cfg SessionConfig) (Conn, error)
}

// Conn is one open streaming session. Send and Receive may be used from
// different goroutines; Close may race with both.
type Conn interface {
	// Send transmits one outbound media frame.
	Send(blob WireBlob) error

	// Receive blocks for the next inbound message. A remote-initiated close
	// is reported as a canonical remote_closed error; any other failure as a
	// transport error.
	Receive() (ServerMessage, error)

	// Close tears the session down. Must be idempotent.
	Close() error
}

// ServerMessage is a tagged variant of inbound live-session traffic.
// Consumers dispatch on the concrete type and ignore kinds they do not
// care about.
type ServerMessage interface {
	serverMessageType() string
}

// AudioMessage carries one playback audio payload.
type AudioMessage struct {
	Blob WireBlob
}

func (AudioMessage) serverMessageType() string { return "audio" }

// InputTranscriptMessage carries a partial transcript of the user's speech.
type InputTranscriptMessage struct {
	Text string
}

func (InputTranscriptMessage) serverMessageType() string { return "input_transcript" }

// OutputTranscriptMessage carries a partial transcript of the model's speech.
type OutputTranscriptMessage struct {
	Text string
}

func (OutputTranscriptMessage) serverMessageType() string { return "output_transcript" }

// TurnCompleteMessage marks the end of one conversational turn.
type TurnCompleteMessage struct{}

func (TurnCompleteMessage) serverMessageType() string { return "turn_complete" }

// InterruptedMessage signals that pending playback audio is stale and must
// be flushed immediately. The session continues.
type InterruptedMessage struct{}

func (InterruptedMessage) serverMessageType() string { return "interrupted" }
