package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"DICTATE_CONFIG", "DICTATE_API_KEY", "DEEPGRAM_API_KEY",
		"DICTATE_ENDPOINT", "DICTATE_MODEL", "DICTATE_LANGUAGE",
		"DICTATE_AUDIO_DEVICE", "DICTATE_SAMPLE_RATE", "DICTATE_CHANNELS",
		"DICTATE_BACKEND", "DICTATE_CONTINUOUS", "DICTATE_NETWORK_RETRIES",
		"DICTATE_NETWORK_RETRY_DELAY_MS", "DICTATE_RESTART_DELAY_MS",
		"DICTATE_RESTART_RETRY_DELAY_MS", "DICTATE_LOG_PATH",
	} {
		t.Setenv(key, "")
	}
}

func TestDefaultsWhenFileMissing(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadFile(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Provider.Model != "nova-2" || cfg.Provider.Language != "en-US" {
		t.Fatalf("unexpected provider defaults: %+v", cfg.Provider)
	}
	if cfg.Audio.SampleRate != 16000 || cfg.Audio.Channels != 1 {
		t.Fatalf("unexpected audio defaults: %+v", cfg.Audio)
	}
	if !cfg.Session.Continuous {
		t.Fatal("continuous must default on")
	}
	if cfg.Session.NetworkRetries != 2 || cfg.Session.NetworkRetryDelay() != 300*time.Millisecond {
		t.Fatalf("unexpected retry defaults: %+v", cfg.Session)
	}
	if cfg.Session.RestartDelay() != 50*time.Millisecond || cfg.Session.RestartRetryDelay() != 200*time.Millisecond {
		t.Fatalf("unexpected restart defaults: %+v", cfg.Session)
	}
}

func TestFileValuesApply(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.toml")
	body := `
[provider]
api_key = "file-key"
model = "nova-3"

[audio]
sample_rate = 48000

[session]
backend = "stream"
continuous = false
network_retries = 5
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Provider.APIKey != "file-key" || cfg.Provider.Model != "nova-3" {
		t.Fatalf("file provider values lost: %+v", cfg.Provider)
	}
	if cfg.Audio.SampleRate != 48000 {
		t.Fatalf("sample rate = %d, want 48000", cfg.Audio.SampleRate)
	}
	if cfg.Session.Backend != "stream" || cfg.Session.Continuous || cfg.Session.NetworkRetries != 5 {
		t.Fatalf("file session values lost: %+v", cfg.Session)
	}
	// Untouched fields keep their defaults.
	if cfg.Audio.Channels != 1 || cfg.Provider.Language != "en-US" {
		t.Fatalf("defaults clobbered: %+v", cfg)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[provider]\napi_key = \"file-key\"\n"), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	t.Setenv("DICTATE_API_KEY", "env-key")
	t.Setenv("DICTATE_BACKEND", "native")
	t.Setenv("DICTATE_CONTINUOUS", "off")
	t.Setenv("DICTATE_RESTART_DELAY_MS", "75")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Provider.APIKey != "env-key" {
		t.Fatalf("api key = %q, env must win over file", cfg.Provider.APIKey)
	}
	if cfg.Session.Backend != "native" || cfg.Session.Continuous {
		t.Fatalf("env session overrides lost: %+v", cfg.Session)
	}
	if cfg.Session.RestartDelay() != 75*time.Millisecond {
		t.Fatalf("restart delay = %v, want 75ms", cfg.Session.RestartDelay())
	}
}

func TestDeepgramKeyFallback(t *testing.T) {
	clearEnv(t)
	t.Setenv("DEEPGRAM_API_KEY", "dg-key")

	cfg, err := LoadFile("")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Provider.APIKey != "dg-key" {
		t.Fatalf("api key = %q, want DEEPGRAM_API_KEY fallback", cfg.Provider.APIKey)
	}
}

func TestClampRejectsBadValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("DICTATE_SAMPLE_RATE", "-1")
	t.Setenv("DICTATE_CHANNELS", "0")
	t.Setenv("DICTATE_NETWORK_RETRIES", "-3")
	t.Setenv("DICTATE_BACKEND", "carrier-pigeon")

	cfg, err := LoadFile("")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Audio.SampleRate != 16000 || cfg.Audio.Channels != 1 {
		t.Fatalf("bad audio values not clamped: %+v", cfg.Audio)
	}
	if cfg.Session.NetworkRetries != 0 {
		t.Fatalf("negative retries not clamped: %d", cfg.Session.NetworkRetries)
	}
	if cfg.Session.Backend != "" {
		t.Fatalf("unknown backend %q not rejected", cfg.Session.Backend)
	}
}

func TestMalformedFileFails(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[provider\napi_key = "), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestPathPrefersEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("DICTATE_CONFIG", "/tmp/custom.toml")
	p, err := Path()
	if err != nil {
		t.Fatalf("path failed: %v", err)
	}
	if p != "/tmp/custom.toml" {
		t.Fatalf("path = %q, want DICTATE_CONFIG value", p)
	}

	home := t.TempDir()
	t.Setenv("DICTATE_CONFIG", "")
	t.Setenv("HOME", home)
	p, err = Path()
	if err != nil {
		t.Fatalf("path failed: %v", err)
	}
	if p != filepath.Join(home, ".dictate", "config.toml") {
		t.Fatalf("path = %q, want home default", p)
	}
}
