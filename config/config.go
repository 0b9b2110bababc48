package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config stores runtime configuration for the dictation pipeline.
type Config struct {
	Provider ProviderConfig `toml:"provider"`
	Audio    AudioConfig    `toml:"audio"`
	Session  SessionConfig  `toml:"session"`
	Log      LogConfig      `toml:"log"`
}

type ProviderConfig struct {
	APIKey   string `toml:"api_key"`
	Endpoint string `toml:"endpoint"`
	Model    string `toml:"model"`
	Language string `toml:"language"`
}

type AudioConfig struct {
	SampleRate int    `toml:"sample_rate"`
	Channels   int    `toml:"channels"`
	Device     string `toml:"device"`
}

type SessionConfig struct {
	Backend             string `toml:"backend"` // "native", "stream" or "" for auto
	Continuous          bool   `toml:"continuous"`
	NetworkRetries      int    `toml:"network_retries"`
	NetworkRetryDelayMS int    `toml:"network_retry_delay_ms"`
	RestartDelayMS      int    `toml:"restart_delay_ms"`
	RestartRetryDelayMS int    `toml:"restart_retry_delay_ms"`
}

type LogConfig struct {
	Dir string `toml:"dir"`
}

func (s SessionConfig) NetworkRetryDelay() time.Duration {
	return time.Duration(s.NetworkRetryDelayMS) * time.Millisecond
}

func (s SessionConfig) RestartDelay() time.Duration {
	return time.Duration(s.RestartDelayMS) * time.Millisecond
}

func (s SessionConfig) RestartRetryDelay() time.Duration {
	return time.Duration(s.RestartRetryDelayMS) * time.Millisecond
}

// Path returns the config file location: $DICTATE_CONFIG if set, else
// ~/.dictate/config.toml.
func Path() (string, error) {
	if p := strings.TrimSpace(os.Getenv("DICTATE_CONFIG")); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New("could not determine home directory")
	}
	return filepath.Join(home, ".dictate", "config.toml"), nil
}

// Load resolves configuration from the TOML file, then environment
// variables, then defaults. A missing file is not an error.
func Load() (Config, error) {
	path, err := Path()
	if err != nil {
		return Config{}, err
	}
	return LoadFile(path)
}

// LoadFile is Load with an explicit file path, used by tests.
func LoadFile(path string) (Config, error) {
	cfg := defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil && !os.IsNotExist(err) {
			return Config{}, err
		}
	}

	applyEnv(&cfg)
	clamp(&cfg)
	return cfg, nil
}

func defaults() Config {
	return Config{
		Provider: ProviderConfig{
			Endpoint: "wss://api.deepgram.com/v1/listen",
			Model:    "nova-2",
			Language: "en-US",
		},
		Audio: AudioConfig{
			SampleRate: 16000,
			Channels:   1,
		},
		Session: SessionConfig{
			Continuous:          true,
			NetworkRetries:      2,
			NetworkRetryDelayMS: 300,
			RestartDelayMS:      50,
			RestartRetryDelayMS: 200,
		},
	}
}

// applyEnv layers environment overrides on top of file values. DICTATE_*
// variables win; the bare provider key falls back to DEEPGRAM_API_KEY.
func applyEnv(cfg *Config) {
	overrideString(&cfg.Provider.APIKey, "DICTATE_API_KEY", "DEEPGRAM_API_KEY")
	overrideString(&cfg.Provider.Endpoint, "DICTATE_ENDPOINT")
	overrideString(&cfg.Provider.Model, "DICTATE_MODEL")
	overrideString(&cfg.Provider.Language, "DICTATE_LANGUAGE")
	overrideString(&cfg.Audio.Device, "DICTATE_AUDIO_DEVICE")
	overrideInt(&cfg.Audio.SampleRate, "DICTATE_SAMPLE_RATE")
	overrideInt(&cfg.Audio.Channels, "DICTATE_CHANNELS")
	overrideString(&cfg.Session.Backend, "DICTATE_BACKEND")
	overrideBool(&cfg.Session.Continuous, "DICTATE_CONTINUOUS")
	overrideInt(&cfg.Session.NetworkRetries, "DICTATE_NETWORK_RETRIES")
	overrideInt(&cfg.Session.NetworkRetryDelayMS, "DICTATE_NETWORK_RETRY_DELAY_MS")
	overrideInt(&cfg.Session.RestartDelayMS, "DICTATE_RESTART_DELAY_MS")
	overrideInt(&cfg.Session.RestartRetryDelayMS, "DICTATE_RESTART_RETRY_DELAY_MS")
	overrideString(&cfg.Log.Dir, "DICTATE_LOG_PATH")
}

func clamp(cfg *Config) {
	if cfg.Audio.SampleRate <= 0 {
		cfg.Audio.SampleRate = 16000
	}
	if cfg.Audio.Channels <= 0 {
		cfg.Audio.Channels = 1
	}
	if cfg.Session.NetworkRetries < 0 {
		cfg.Session.NetworkRetries = 0
	}
	if cfg.Session.NetworkRetryDelayMS < 0 {
		cfg.Session.NetworkRetryDelayMS = 0
	}
	if cfg.Session.RestartDelayMS < 0 {
		cfg.Session.RestartDelayMS = 0
	}
	if cfg.Session.RestartRetryDelayMS < 0 {
		cfg.Session.RestartRetryDelayMS = 0
	}
	switch cfg.Session.Backend {
	case "", "native", "stream":
	default:
		cfg.Session.Backend = ""
	}
}

func overrideString(dst *string, keys ...string) {
	for _, key := range keys {
		if value := strings.TrimSpace(os.Getenv(key)); value != "" {
			*dst = value
			return
		}
	}
}

func overrideInt(dst *int, key string) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return
	}
	if parsed, err := strconv.Atoi(value); err == nil {
		*dst = parsed
	}
}

func overrideBool(dst *bool, key string) {
	switch strings.TrimSpace(strings.ToLower(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		*dst = true
	case "0", "false", "no", "off":
		*dst = false
	}
}
