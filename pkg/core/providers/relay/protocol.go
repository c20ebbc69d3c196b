package relay

// Wire protocol for the voice relay websocket. Every frame is a JSON text
// message carrying a "type" discriminator; unknown types are skipped so the
// relay can add frame kinds without breaking older clients.

const protocolVersion = 1

// wireAudioFormat describes one direction of the PCM stream negotiated in
// the hello exchange.
type wireAudioFormat struct {
	Encoding     string `json:"encoding"`
	SampleRateHz int    `json:"sample_rate_hz"`
	Channels     int    `json:"channels"`
}

// clientHello opens a session. It must be the first client frame.
type clientHello struct {
	Type            string          `json:"type"`
	ProtocolVersion int             `json:"protocol_version"`
	Model           string          `json:"model"`
	System          string          `json:"system,omitempty"`
	AudioIn         wireAudioFormat `json:"audio_in"`
	AudioOut        wireAudioFormat `json:"audio_out"`
}

// clientMedia carries one outbound microphone frame.
type clientMedia struct {
	Type     string `json:"type"`
	Data     string `json:"data"`
	MIMEType string `json:"mime_type"`
}

// serverEnvelope is the discriminator read before type-specific decoding.
type serverEnvelope struct {
	Type string `json:"type"`
}

type serverHelloAck struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id,omitempty"`
}

type serverAudio struct {
	Type     string `json:"type"`
	Data     string `json:"data"`
	MIMEType string `json:"mime_type,omitempty"`
}

type serverTranscript struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type serverError struct {
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}
