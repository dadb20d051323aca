package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/teslashibe/go-g1audio/pkg/audio"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.RPCTimeout != DefaultRPCTimeout || cfg.PlaybackWait != DefaultPlaybackWait {
		t.Errorf("unexpected timings: %+v", cfg)
	}
	if cfg.Channel.URL != "nats://127.0.0.1:4222" || cfg.Channel.Prefix != "g1" {
		t.Errorf("unexpected channel defaults: %+v", cfg.Channel)
	}
	if cfg.Volume != 100 || cfg.Language != audio.LanguageChinese {
		t.Errorf("unexpected audio defaults: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoad_YAML(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	path := writeFile(t, dir, "g1.yaml", `
channel:
  url: nats://192.168.123.161:4222
  domain_id: 1
  prefix: lab
  reconnect_interval: 500ms
rpc_timeout: 3s
playback_wait: 8s
language: 2
volume: 70
status_addr: ":9091"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Channel.URL != "nats://192.168.123.161:4222" || cfg.Channel.DomainID != 1 || cfg.Channel.Prefix != "lab" {
		t.Errorf("unexpected channel: %+v", cfg.Channel)
	}
	if cfg.Channel.ReconnectInterval != 500*time.Millisecond {
		t.Errorf("unexpected reconnect interval: %v", cfg.Channel.ReconnectInterval)
	}
	if cfg.Channel.Name != "g1-audio" {
		t.Errorf("unset fields should keep defaults, got name %q", cfg.Channel.Name)
	}
	if cfg.RPCTimeout != 3*time.Second || cfg.PlaybackWait != 8*time.Second {
		t.Errorf("unexpected timings: %v %v", cfg.RPCTimeout, cfg.PlaybackWait)
	}
	if cfg.Language != audio.LanguageJapanese || cfg.Volume != 70 || cfg.StatusAddr != ":9091" {
		t.Errorf("unexpected config: %+v", cfg)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	path := writeFile(t, dir, "g1.yaml", "rpc_timeout: 3s\n")
	t.Setenv("G1_NATS_URL", "nats://10.0.0.2:4222")
	t.Setenv("G1_DOMAIN_ID", "4")
	t.Setenv("G1_RPC_TIMEOUT", "7s")
	t.Setenv("G1_LANGUAGE", "en")
	t.Setenv("G1_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Channel.URL != "nats://10.0.0.2:4222" || cfg.Channel.DomainID != 4 {
		t.Errorf("env not applied to channel: %+v", cfg.Channel)
	}
	if cfg.RPCTimeout != 7*time.Second {
		t.Errorf("env should override file, got %v", cfg.RPCTimeout)
	}
	if cfg.Language != audio.LanguageEnglish || cfg.LogLevel != "debug" {
		t.Errorf("unexpected config: %+v", cfg)
	}
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	writeFile(t, dir, ".env", "G1_PLAYBACK_WAIT=2s\nG1_VOLUME=55\n")

	// godotenv does not override variables that are already set.
	t.Setenv("G1_PLAYBACK_WAIT", "")
	t.Setenv("G1_VOLUME", "")
	os.Unsetenv("G1_PLAYBACK_WAIT")
	os.Unsetenv("G1_VOLUME")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.PlaybackWait != 2*time.Second || cfg.Volume != 55 {
		t.Errorf(".env not applied: %+v", cfg)
	}
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	t.Run("missing file", func(t *testing.T) {
		if _, err := Load(filepath.Join(dir, "nope.yaml")); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("bad yaml", func(t *testing.T) {
		path := writeFile(t, dir, "bad.yaml", "channel: [")
		if _, err := Load(path); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("bad env int", func(t *testing.T) {
		t.Setenv("G1_DOMAIN_ID", "zero")
		if _, err := Load(""); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("bad env duration", func(t *testing.T) {
		t.Setenv("G1_RPC_TIMEOUT", "ten")
		if _, err := Load(""); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("bad env language", func(t *testing.T) {
		t.Setenv("G1_LANGUAGE", "7")
		if _, err := Load(""); err == nil {
			t.Error("expected error")
		}
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		shouldErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"zero_wait", func(c *Config) { c.PlaybackWait = 0 }, false},
		{"bad_channel", func(c *Config) { c.Channel.URL = "" }, true},
		{"zero_timeout", func(c *Config) { c.RPCTimeout = 0 }, true},
		{"negative_wait", func(c *Config) { c.PlaybackWait = -time.Second }, true},
		{"bad_language", func(c *Config) { c.Language = 5 }, true},
		{"volume_high", func(c *Config) { c.Volume = 101 }, true},
		{"volume_low", func(c *Config) { c.Volume = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.shouldErr && err == nil {
				t.Error("Expected error, got nil")
			}
			if !tt.shouldErr && err != nil {
				t.Errorf("Expected no error, got: %v", err)
			}
		})
	}
}
