// Package config loads configuration for the G1 audio commands.
//
// Values are layered: defaults, then an optional YAML file, then
// environment variables (a .env file in the working directory is loaded
// first), then command-line flags applied by the caller.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/teslashibe/go-g1audio/pkg/audio"
	"github.com/teslashibe/go-g1audio/pkg/channel"
)

// Default timings.
const (
	DefaultRPCTimeout   = 10 * time.Second
	DefaultPlaybackWait = 5 * time.Second
	DefaultVolume       = 100
)

// Config is the full program configuration.
type Config struct {
	Channel channel.Config `yaml:"channel"`

	// RPCTimeout bounds each voice service call.
	RPCTimeout time.Duration `yaml:"rpc_timeout"`

	// PlaybackWait is the fixed wait after an accepted TTS request.
	PlaybackWait time.Duration `yaml:"playback_wait"`

	// Language is the TTS language: 0 chinese, 1 english, 2 japanese.
	Language audio.Language `yaml:"language"`

	// Volume is applied at startup by the TTS and voice command programs.
	Volume int `yaml:"volume"`

	LogLevel string `yaml:"log_level"`

	// StatusAddr enables the status server when non-empty, e.g. ":9091".
	StatusAddr string `yaml:"status_addr"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Channel:      channel.DefaultConfig(),
		RPCTimeout:   DefaultRPCTimeout,
		PlaybackWait: DefaultPlaybackWait,
		Language:     audio.LanguageChinese,
		Volume:       DefaultVolume,
		LogLevel:     "info",
	}
}

// Load builds the configuration from defaults, the YAML file at path (if
// path is non-empty) and the environment.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("G1_NATS_URL"); v != "" {
		c.Channel.URL = v
	}
	if v := os.Getenv("G1_PREFIX"); v != "" {
		c.Channel.Prefix = v
	}
	if v := os.Getenv("G1_NETWORK_INTERFACE"); v != "" {
		c.Channel.NetworkInterface = v
	}
	if v := os.Getenv("G1_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("G1_STATUS_ADDR"); v != "" {
		c.StatusAddr = v
	}

	var err error
	if c.Channel.DomainID, err = envInt("G1_DOMAIN_ID", c.Channel.DomainID); err != nil {
		return err
	}
	if c.Volume, err = envInt("G1_VOLUME", c.Volume); err != nil {
		return err
	}
	if c.RPCTimeout, err = envDuration("G1_RPC_TIMEOUT", c.RPCTimeout); err != nil {
		return err
	}
	if c.PlaybackWait, err = envDuration("G1_PLAYBACK_WAIT", c.PlaybackWait); err != nil {
		return err
	}
	if v := os.Getenv("G1_LANGUAGE"); v != "" {
		lang, err := audio.ParseLanguage(v)
		if err != nil {
			return fmt.Errorf("G1_LANGUAGE: %w", err)
		}
		c.Language = lang
	}
	return nil
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if err := c.Channel.Validate(); err != nil {
		return fmt.Errorf("channel: %w", err)
	}
	if c.RPCTimeout <= 0 {
		return fmt.Errorf("rpc_timeout must be positive, got %s", c.RPCTimeout)
	}
	if c.PlaybackWait < 0 {
		return fmt.Errorf("playback_wait must be >= 0, got %s", c.PlaybackWait)
	}
	if !c.Language.Valid() {
		return fmt.Errorf("language must be 0, 1 or 2, got %d", c.Language)
	}
	if c.Volume < 0 || c.Volume > 100 {
		return fmt.Errorf("volume must be within 0-100, got %d", c.Volume)
	}
	return nil
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
