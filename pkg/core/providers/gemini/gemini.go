// Package gemini implements the live transport against Google's Gemini Live
// API using the official genai SDK. Audio travels as raw PCM blobs over the
// SDK's bidirectional session; one SDK server message may fan out into
// several session messages.
package gemini

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"

	"google.golang.org/genai"

	"github.com/ADITYA2DWIVEDI/snakeengine-sub001/pkg/core"
	"github.com/ADITYA2DWIVEDI/snakeengine-sub001/pkg/core/live"
)

// Options configures the Gemini transport.
type Options struct {
	// APIKey authenticates against the Gemini API. Required.
	APIKey string

	// Voice selects a prebuilt voice for audio responses, e.g. "Puck".
	// Empty uses the model default.
	Voice string
}

// Transport dials Gemini Live sessions.
type Transport struct {
	apiKey string
	voice  string
}

// New validates opts and returns a Gemini transport.
func New(opts Options) (*Transport, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, core.NewInvalidConfigError("gemini API key must not be empty")
	}
	return &Transport{apiKey: opts.APIKey, voice: opts.Voice}, nil
}

// Connect opens a bidirectional Gemini Live session for cfg.
func (t *Transport) Connect(ctx context.Context, cfg live.SessionConfig) (live.Conn, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  t.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, core.NewTransportError(fmt.Sprintf("create gemini client: %v", err), err)
	}

	config := &genai.LiveConnectConfig{
		ResponseModalities:       []genai.Modality{genai.ModalityAudio},
		InputAudioTranscription:  &genai.AudioTranscriptionConfig{},
		OutputAudioTranscription: &genai.AudioTranscriptionConfig{},
	}
	if cfg.System != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: cfg.System}},
		}
	}
	if t.voice != "" {
		config.SpeechConfig = &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: t.voice},
			},
		}
	}

	sess, err := client.Live.Connect(ctx, cfg.Model, config)
	if err != nil {
		return nil, core.NewTransportError(fmt.Sprintf("connect gemini live: %v", err), err)
	}
	return &conn{sess: sess, playback: cfg.Playback}, nil
}

// conn adapts one genai live session. The SDK batches several logical
// messages into one LiveServerMessage, so translated messages queue in
// pending and drain one per Receive call.
type conn struct {
	sess     *genai.Session
	playback live.AudioFormat

	pending []live.ServerMessage

	closeOnce sync.Once
	closed    atomic.Bool
}

func (c *conn) Send(blob live.WireBlob) error {
	if c.closed.Load() {
		return core.NewTransportError("gemini session is closed", nil)
	}
	raw, err := base64.StdEncoding.DecodeString(blob.Data)
	if err != nil {
		return core.NewTransportError(fmt.Sprintf("outbound frame payload: %v", err), err)
	}
	input := genai.LiveRealtimeInput{
		Media: &genai.Blob{Data: raw, MIMEType: blob.MIMEType},
	}
	if err := c.sess.SendRealtimeInput(input); err != nil {
		return core.NewTransportError(fmt.Sprintf("send realtime input: %v", err), err)
	}
	return nil
}

func (c *conn) Receive() (live.ServerMessage, error) {
	for len(c.pending) == 0 {
		msg, err := c.sess.Receive()
		if err != nil {
			if c.closed.Load() || errors.Is(err, io.EOF) {
				return nil, core.NewRemoteClosedError("gemini closed the session")
			}
			return nil, core.NewTransportError(fmt.Sprintf("receive live message: %v", err), err)
		}
		c.pending = translateServerMessage(msg, c.playback)
	}
	head := c.pending[0]
	c.pending = c.pending[1:]
	return head, nil
}

// translateServerMessage flattens one SDK message into session messages.
// Interruption comes first so stale playback is flushed before new audio,
// and the turn boundary comes last so transcript fragments precede it.
func translateServerMessage(msg *genai.LiveServerMessage, playback live.AudioFormat) []live.ServerMessage {
	if msg == nil || msg.ServerContent == nil {
		return nil
	}
	sc := msg.ServerContent

	var out []live.ServerMessage
	if sc.Interrupted {
		out = append(out, live.InterruptedMessage{})
	}
	if sc.ModelTurn != nil {
		for _, p := range sc.ModelTurn.Parts {
			if p == nil || p.InlineData == nil || len(p.InlineData.Data) == 0 {
				continue
			}
			mime := p.InlineData.MIMEType
			if mime == "" {
				mime = playback.MIMEType()
			}
			out = append(out, live.AudioMessage{Blob: live.WireBlob{
				Data:     base64.StdEncoding.EncodeToString(p.InlineData.Data),
				MIMEType: mime,
			}})
		}
	}
	if sc.InputTranscription != nil && sc.InputTranscription.Text != "" {
		out = append(out, live.InputTranscriptMessage{Text: sc.InputTranscription.Text})
	}
	if sc.OutputTranscription != nil && sc.OutputTranscription.Text != "" {
		out = append(out, live.OutputTranscriptMessage{Text: sc.OutputTranscription.Text})
	}
	if sc.TurnComplete {
		out = append(out, live.TurnCompleteMessage{})
	}
	return out
}

func (c *conn) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		_ = c.sess.Close()
	})
	return nil
}
