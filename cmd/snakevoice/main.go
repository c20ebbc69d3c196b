// Command snakevoice is a terminal client for live voice conversations.
// It captures microphone audio via ffmpeg, streams it to a conversational
// audio service, and plays the spoken replies through ffplay while printing
// the rolling transcript.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ADITYA2DWIVEDI/snakeengine-sub001/internal/config"
	"github.com/ADITYA2DWIVEDI/snakeengine-sub001/internal/dotenv"
	"github.com/ADITYA2DWIVEDI/snakeengine-sub001/internal/observe"
	"github.com/ADITYA2DWIVEDI/snakeengine-sub001/pkg/core/live"
	"github.com/ADITYA2DWIVEDI/snakeengine-sub001/pkg/core/providers/gemini"
	"github.com/ADITYA2DWIVEDI/snakeengine-sub001/pkg/core/providers/relay"
)

type options struct {
	configPath string
	envPath    string
	model      string
	transport  string
	relayURL   string
	system     string
	voice      string
	logLevel   string
}

func main() {
	os.Exit(runMain())
}

func runMain() int {
	var opt options
	flag.StringVar(&opt.configPath, "config", "snakevoice.yaml", "Path to the YAML config file (optional when flags cover everything)")
	flag.StringVar(&opt.envPath, "env", ".env", "Path to a dotenv file loaded before reading config")
	flag.StringVar(&opt.model, "model", "", "Conversational audio model (overrides config)")
	flag.StringVar(&opt.transport, "transport", "", "Session backend: gemini or relay (overrides config)")
	flag.StringVar(&opt.relayURL, "relay-url", "", "Relay websocket endpoint (overrides config)")
	flag.StringVar(&opt.system, "system", "", "System prompt (overrides config)")
	flag.StringVar(&opt.voice, "voice", "", "Prebuilt voice name (overrides config)")
	flag.StringVar(&opt.logLevel, "log-level", "", "Log verbosity: debug, info, warn, error (overrides config)")
	flag.Parse()

	if err := run(opt); err != nil {
		fmt.Fprintf(os.Stderr, "snakevoice: %v\n", err)
		return 1
	}
	return 0
}

func run(opt options) error {
	if err := dotenv.Load(opt.envPath); err != nil {
		return err
	}

	cfg, err := loadConfig(opt)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.LogLevel.SlogLevel(),
	}))
	slog.SetDefault(logger)

	transport, err := buildTransport(cfg)
	if err != nil {
		return err
	}

	output, err := newFFplayOutput(live.DefaultPlaybackFormat())
	if err != nil {
		return err
	}
	defer output.Close()

	ctrl, err := live.NewController(cfg.SessionConfig(), transport, ffmpegMicProvider{}, output,
		live.WithLogger(logger),
		live.WithRecorder(observe.DefaultMetrics()),
	)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := ctrl.Start(ctx); err != nil {
		return err
	}
	fmt.Printf("Connected to %s via %s. Speak; Ctrl-C ends the session.\n", cfg.Model, cfg.Transport)

	go func() {
		<-ctx.Done()
		ctrl.Stop()
	}()

	var sessionErr error
	for ev := range eventsUntilClosed(ctrl) {
		switch e := ev.(type) {
		case live.StateChangedEvent:
			logger.Debug("session state changed", "from", e.From, "to", e.To)
		case live.TranscriptEntryEvent:
			fmt.Printf("[%s] %s\n", e.Role, e.Text)
		case live.ErrorEvent:
			sessionErr = e.Err
		case live.SessionClosedEvent:
			logger.Info("session closed", "reason", e.Reason)
		}
	}
	return sessionErr
}

// eventsUntilClosed yields controller events and ends the stream once the
// session has fully torn down.
func eventsUntilClosed(ctrl *live.Controller) <-chan live.Event {
	out := make(chan live.Event)
	go func() {
		defer close(out)
		for {
			select {
			case ev := <-ctrl.Events():
				out <- ev
				if _, closed := ev.(live.SessionClosedEvent); closed {
					return
				}
			case <-ctrl.Done():
				// Drain anything emitted before teardown finished.
				for {
					select {
					case ev := <-ctrl.Events():
						out <- ev
						if _, closed := ev.(live.SessionClosedEvent); closed {
							return
						}
					default:
						return
					}
				}
			}
		}
	}()
	return out
}

func loadConfig(opt options) (*config.Config, error) {
	var cfg *config.Config
	switch _, err := os.Stat(opt.configPath); {
	case err == nil:
		cfg, err = config.Load(opt.configPath)
		if err != nil {
			return nil, err
		}
	case errors.Is(err, os.ErrNotExist):
		cfg = config.Default()
	default:
		return nil, fmt.Errorf("stat config %q: %w", opt.configPath, err)
	}

	if opt.model != "" {
		cfg.Model = opt.model
	}
	if opt.transport != "" {
		cfg.Transport = config.TransportKind(opt.transport)
	}
	if opt.relayURL != "" {
		cfg.Relay.URL = opt.relayURL
	}
	if opt.system != "" {
		cfg.System = opt.system
	}
	if opt.voice != "" {
		cfg.Voice = opt.voice
	}
	if opt.logLevel != "" {
		cfg.LogLevel = config.LogLevel(opt.logLevel)
	}

	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func buildTransport(cfg *config.Config) (live.Transport, error) {
	switch cfg.Transport {
	case config.TransportGemini:
		apiKey := os.Getenv(cfg.APIKeyEnv)
		if apiKey == "" {
			return nil, fmt.Errorf("environment variable %s is not set", cfg.APIKeyEnv)
		}
		return gemini.New(gemini.Options{APIKey: apiKey, Voice: cfg.Voice})
	case config.TransportRelay:
		var apiKey string
		if cfg.Relay.APIKeyEnv != "" {
			apiKey = os.Getenv(cfg.Relay.APIKeyEnv)
		}
		return relay.New(relay.Options{URL: cfg.Relay.URL, APIKey: apiKey})
	default:
		return nil, fmt.Errorf("unsupported transport %q", cfg.Transport)
	}
}
