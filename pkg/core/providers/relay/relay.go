// Package relay implements the live transport over a voice relay websocket.
//
// The relay speaks a small JSON frame protocol: the client opens with a
// hello describing the audio formats, the relay acknowledges, and both
// sides then exchange media and transcript frames until either closes.
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ADITYA2DWIVEDI/snakeengine-sub001/pkg/core"
	"github.com/ADITYA2DWIVEDI/snakeengine-sub001/pkg/core/live"
)

const defaultConnectTimeout = 15 * time.Second

// Options configures the relay transport.
type Options struct {
	// URL is the relay endpoint. http(s) schemes are rewritten to ws(s).
	URL string

	// APIKey, when set, is sent as a bearer token on the upgrade request.
	APIKey string

	// ConnectTimeout bounds the dial plus hello exchange when the caller's
	// context carries no deadline. Defaults to 15s.
	ConnectTimeout time.Duration

	// Dialer overrides the websocket dialer, mainly for tests.
	Dialer *websocket.Dialer
}

// Transport dials voice relay sessions. One transport may serve any number
// of sequential or concurrent sessions.
type Transport struct {
	url     string
	apiKey  string
	timeout time.Duration
	dialer  *websocket.Dialer
}

// New validates opts and returns a relay transport.
func New(opts Options) (*Transport, error) {
	wsURL, err := websocketEndpoint(opts.URL)
	if err != nil {
		return nil, err
	}
	timeout := opts.ConnectTimeout
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}
	dialer := opts.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	return &Transport{
		url:     wsURL,
		apiKey:  opts.APIKey,
		timeout: timeout,
		dialer:  dialer,
	}, nil
}

func websocketEndpoint(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", core.NewInvalidConfigError("relay URL must not be empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", core.NewInvalidConfigError(fmt.Sprintf("invalid relay URL: %v", err))
	}
	switch strings.ToLower(u.Scheme) {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
		// already a websocket scheme.
	default:
		return "", core.NewInvalidConfigError("relay URL must use http(s) or ws(s)")
	}
	return u.String(), nil
}

// Connect dials the relay and performs the hello exchange. The returned
// conn is live once the relay has acknowledged the session.
func (t *Transport) Connect(ctx context.Context, cfg live.SessionConfig) (live.Conn, error) {
	headers := make(http.Header)
	if t.apiKey != "" {
		headers.Set("Authorization", "Bearer "+t.apiKey)
	}

	dialCtx := ctx
	var cancel context.CancelFunc
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		dialCtx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	ws, resp, err := t.dialer.DialContext(dialCtx, t.url, headers)
	if err != nil {
		if resp != nil {
			return nil, core.NewTransportError(
				fmt.Sprintf("relay dial %s: status %d: %v", t.url, resp.StatusCode, err), err)
		}
		return nil, core.NewTransportError(fmt.Sprintf("relay dial %s: %v", t.url, err), err)
	}

	hello := clientHello{
		Type:            "hello",
		ProtocolVersion: protocolVersion,
		Model:           cfg.Model,
		System:          cfg.System,
		AudioIn: wireAudioFormat{
			Encoding:     "pcm_s16le",
			SampleRateHz: cfg.Capture.SampleRate,
			Channels:     cfg.Capture.Channels,
		},
		AudioOut: wireAudioFormat{
			Encoding:     "pcm_s16le",
			SampleRateHz: cfg.Playback.SampleRate,
			Channels:     cfg.Playback.Channels,
		},
	}
	if err := ws.WriteJSON(hello); err != nil {
		_ = ws.Close()
		return nil, core.NewTransportError(fmt.Sprintf("send relay hello: %v", err), err)
	}

	_ = ws.SetReadDeadline(time.Now().Add(t.timeout))
	messageType, payload, err := ws.ReadMessage()
	if err != nil {
		_ = ws.Close()
		return nil, core.NewTransportError(fmt.Sprintf("read relay hello_ack: %v", err), err)
	}
	_ = ws.SetReadDeadline(time.Time{})
	if messageType != websocket.TextMessage {
		_ = ws.Close()
		return nil, core.NewTransportError(
			fmt.Sprintf("unexpected first relay frame type %d", messageType), nil)
	}

	var envelope serverEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		_ = ws.Close()
		return nil, core.NewTransportError(fmt.Sprintf("decode relay hello_ack: %v", err), err)
	}
	switch envelope.Type {
	case "hello_ack":
		return &conn{ws: ws}, nil
	case "error":
		var serr serverError
		_ = json.Unmarshal(payload, &serr)
		_ = ws.Close()
		ce := core.NewTransportError(strings.TrimSpace(serr.Message), nil)
		ce.Code = strings.TrimSpace(serr.Code)
		return nil, ce
	default:
		_ = ws.Close()
		return nil, core.NewTransportError(
			fmt.Sprintf("unexpected first relay frame %q", envelope.Type), nil)
	}
}

// conn is one open relay session. Receive is single-reader; Send and Close
// may race with it and each other.
type conn struct {
	ws *websocket.Conn

	writeMu   sync.Mutex
	closeOnce sync.Once
	closed    atomic.Bool
}

func (c *conn) Send(blob live.WireBlob) error {
	if c.closed.Load() {
		return core.NewTransportError("relay session is closed", nil)
	}
	frame := clientMedia{Type: "media", Data: blob.Data, MIMEType: blob.MIMEType}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.ws.WriteJSON(frame); err != nil {
		return core.NewTransportError(fmt.Sprintf("send media frame: %v", err), err)
	}
	return nil
}

func (c *conn) Receive() (live.ServerMessage, error) {
	for {
		messageType, data, err := c.ws.ReadMessage()
		if err != nil {
			if c.closed.Load() || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil, core.NewRemoteClosedError("relay closed the session")
			}
			return nil, core.NewTransportError(fmt.Sprintf("read relay frame: %v", err), err)
		}
		if messageType != websocket.TextMessage {
			continue
		}

		msg, err := decodeServerFrame(data)
		if err != nil {
			return nil, err
		}
		if msg == nil {
			// Unknown frame kind, skip.
			continue
		}
		return msg, nil
	}
}

func decodeServerFrame(data []byte) (live.ServerMessage, error) {
	var envelope serverEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, core.NewTransportError(fmt.Sprintf("decode relay frame envelope: %v", err), err)
	}

	switch envelope.Type {
	case "audio":
		var frame serverAudio
		if err := json.Unmarshal(data, &frame); err != nil {
			return nil, core.NewTransportError(fmt.Sprintf("decode audio frame: %v", err), err)
		}
		return live.AudioMessage{Blob: live.WireBlob{Data: frame.Data, MIMEType: frame.MIMEType}}, nil
	case "input_transcript":
		var frame serverTranscript
		if err := json.Unmarshal(data, &frame); err != nil {
			return nil, core.NewTransportError(fmt.Sprintf("decode input transcript: %v", err), err)
		}
		return live.InputTranscriptMessage{Text: frame.Text}, nil
	case "output_transcript":
		var frame serverTranscript
		if err := json.Unmarshal(data, &frame); err != nil {
			return nil, core.NewTransportError(fmt.Sprintf("decode output transcript: %v", err), err)
		}
		return live.OutputTranscriptMessage{Text: frame.Text}, nil
	case "turn_complete":
		return live.TurnCompleteMessage{}, nil
	case "interrupted":
		return live.InterruptedMessage{}, nil
	case "error":
		var serr serverError
		if err := json.Unmarshal(data, &serr); err != nil {
			return nil, core.NewTransportError(fmt.Sprintf("decode error frame: %v", err), err)
		}
		ce := core.NewTransportError(strings.TrimSpace(serr.Message), nil)
		ce.Code = strings.TrimSpace(serr.Code)
		return nil, ce
	default:
		return nil, nil
	}
}

func (c *conn) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.writeMu.Lock()
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(2*time.Second))
		c.writeMu.Unlock()
		_ = c.ws.Close()
	})
	return nil
}
