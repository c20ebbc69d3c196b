// Package live implements the real-time voice session core of SnakeEngine:
// microphone capture, PCM wire codec, gapless playback scheduling, and the
// session controller that ties them to a remote conversational audio service.
//
// # Architecture
//
// The package provides four components, leaves first:
//
//   - EncodeFrame / DecodeFrame: stateless conversion between float samples,
//     16-bit little-endian PCM, and base64 wire blobs
//   - Scheduler: plays decoded buffers back-to-back against an output device
//     using its own timing cursor, independent of callback arrival time
//   - CapturePipeline: cuts a live microphone stream into fixed-size frames
//     and forwards them, wire-encoded, to the open session
//   - Controller: the session state machine owning connect, message
//     dispatch, transcript accumulation, and deterministic teardown
//
// # Data Flow
//
//	Microphone → CapturePipeline → EncodeFrame → Conn.Send → remote service
//	remote service → Conn.Receive → DecodeFrame → Scheduler → OutputDevice
//	                              → transcript accumulators → Events()
//
// # State Machine
//
// A session progresses through these states:
//
//	IDLE → CONNECTING → ACTIVE → CLOSED
//	            │           └──→ ERRORED → CLOSED
//	            └────────────────────────→ CLOSED   (stop during connect)
//
// Teardown runs exactly once per session no matter how many triggers race:
// user stop, remote close, and transport error all converge on the same
// guarded release path.
//
// # Usage
//
// Devices and the remote transport are injected as capability interfaces, so
// the controller runs identically against real hardware (see cmd/snakevoice)
// and test fakes:
//
//	cfg := live.DefaultSessionConfig()
//	cfg.Model = "gemini-2.5-flash-native-audio-preview-09-2025"
//
//	ctrl, err := live.NewController(cfg, transport, micProvider, speaker)
//	if err != nil {
//	    return err
//	}
//	if err := ctrl.Start(ctx); err != nil {
//	    return err
//	}
//	for event := range ctrl.Events() {
//	    switch e := event.(type) {
//	    case live.TranscriptEntryEvent:
//	        fmt.Printf("[%s] %s\n", e.Role, e.Text)
//	    case live.SessionClosedEvent:
//	        return nil
//	    }
//	}
package live
