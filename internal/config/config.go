// Package config provides the configuration schema and YAML loader for the
// snakevoice client.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ADITYA2DWIVEDI/snakeengine-sub001/pkg/core/live"
)

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// SlogLevel converts l to the slog level, defaulting to info.
func (l LogLevel) SlogLevel() slog.Level {
	switch l {
	case LogDebug:
		return slog.LevelDebug
	case LogWarn:
		return slog.LevelWarn
	case LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// TransportKind selects how the client reaches the conversational service.
type TransportKind string

const (
	// TransportGemini talks to the Gemini Live API directly.
	TransportGemini TransportKind = "gemini"

	// TransportRelay talks to a voice relay websocket.
	TransportRelay TransportKind = "relay"
)

// IsValid reports whether t is a recognised transport kind.
func (t TransportKind) IsValid() bool {
	return t == TransportGemini || t == TransportRelay
}

// Config is the root configuration structure for snakevoice, typically
// loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	// LogLevel controls verbosity. Default: info.
	LogLevel LogLevel `yaml:"log_level"`

	// Transport selects the session backend. Default: gemini.
	Transport TransportKind `yaml:"transport"`

	// Model is the conversational audio model, e.g. "gemini-2.0-flash-live-001".
	Model string `yaml:"model"`

	// System is the system prompt for the remote agent.
	System string `yaml:"system"`

	// Voice selects a prebuilt voice for audio responses.
	Voice string `yaml:"voice"`

	// APIKeyEnv names the environment variable holding the API key.
	// Default: GEMINI_API_KEY.
	APIKeyEnv string `yaml:"api_key_env"`

	// Relay configures the relay transport. Required when transport is relay.
	Relay RelayConfig `yaml:"relay"`

	// Audio overrides stream parameters. Zero values keep the defaults.
	Audio AudioConfig `yaml:"audio"`
}

// RelayConfig holds relay transport settings.
type RelayConfig struct {
	// URL is the relay websocket endpoint.
	URL string `yaml:"url"`

	// APIKeyEnv names the environment variable holding the relay token.
	APIKeyEnv string `yaml:"api_key_env"`
}

// AudioConfig holds PCM stream parameter overrides.
type AudioConfig struct {
	// CaptureRateHz is the microphone sample rate. Default: 16000.
	CaptureRateHz int `yaml:"capture_rate_hz"`

	// PlaybackRateHz is the output sample rate. Default: 24000.
	PlaybackRateHz int `yaml:"playback_rate_hz"`

	// BlockSize is the capture frame size in samples. Must be a power of
	// two. Default: 4096.
	BlockSize int `yaml:"block_size"`
}

// Default returns a config with all defaults applied and no model set.
// Callers filling it from flags must run [Validate] afterwards.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults, and
// validates the result. Useful in tests where configs are constructed from
// string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	cfg.applyDefaults()
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = LogInfo
	}
	if c.Transport == "" {
		c.Transport = TransportGemini
	}
	if c.APIKeyEnv == "" {
		c.APIKeyEnv = "GEMINI_API_KEY"
	}
	if c.Audio.CaptureRateHz == 0 {
		c.Audio.CaptureRateHz = 16000
	}
	if c.Audio.PlaybackRateHz == 0 {
		c.Audio.PlaybackRateHz = 24000
	}
	if c.Audio.BlockSize == 0 {
		c.Audio.BlockSize = live.DefaultBlockSize
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if !cfg.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("log_level %q is invalid; valid values: debug, info, warn, error", cfg.LogLevel))
	}
	if !cfg.Transport.IsValid() {
		errs = append(errs, fmt.Errorf("transport %q is invalid; valid values: gemini, relay", cfg.Transport))
	}
	if cfg.Model == "" {
		errs = append(errs, errors.New("model is required"))
	}
	if cfg.Transport == TransportRelay && cfg.Relay.URL == "" {
		errs = append(errs, errors.New("relay.url is required when transport is relay"))
	}
	if cfg.Audio.CaptureRateHz <= 0 {
		errs = append(errs, fmt.Errorf("audio.capture_rate_hz %d must be positive", cfg.Audio.CaptureRateHz))
	}
	if cfg.Audio.PlaybackRateHz <= 0 {
		errs = append(errs, fmt.Errorf("audio.playback_rate_hz %d must be positive", cfg.Audio.PlaybackRateHz))
	}
	if cfg.Audio.BlockSize <= 0 || cfg.Audio.BlockSize&(cfg.Audio.BlockSize-1) != 0 {
		errs = append(errs, fmt.Errorf("audio.block_size %d must be a power of two", cfg.Audio.BlockSize))
	}

	return errors.Join(errs...)
}

// SessionConfig builds the live session configuration from cfg.
func (c *Config) SessionConfig() live.SessionConfig {
	sc := live.DefaultSessionConfig()
	sc.Model = c.Model
	sc.System = c.System
	sc.Capture.SampleRate = c.Audio.CaptureRateHz
	sc.Playback.SampleRate = c.Audio.PlaybackRateHz
	sc.BlockSize = c.Audio.BlockSize
	return sc
}
