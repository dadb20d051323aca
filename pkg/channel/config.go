// Package channel provides the process-wide channel factory used by the G1
// audio programs to reach the robot's publish/subscribe middleware.
//
// The factory is backed by NATS and handles:
//   - Binding outbound connections to a named network interface
//   - Topic subscriptions with per-message callbacks
//   - Request/reply calls used by the audio client's RPC layer
//   - Reconnection with a fixed interval
package channel

import (
	"fmt"
	"strings"
	"time"
)

// Config holds channel factory configuration.
type Config struct {
	// URL is the broker endpoint.
	// Examples: "nats://127.0.0.1:4222", "nats://192.168.123.161:4222"
	URL string `yaml:"url" json:"url"`

	// DomainID separates robots sharing one broker.
	// Default: 0
	DomainID int `yaml:"domain_id" json:"domain_id"`

	// NetworkInterface is the local interface outbound traffic is bound to,
	// e.g. "eth0". Empty means the OS picks the route.
	NetworkInterface string `yaml:"network_interface" json:"network_interface"`

	// Prefix is prepended to every subject.
	// Default: "g1"
	Prefix string `yaml:"prefix" json:"prefix"`

	// Name identifies this connection on the broker.
	Name string `yaml:"name" json:"name"`

	// ReconnectInterval is how often to attempt reconnection on failure.
	ReconnectInterval time.Duration `yaml:"reconnect_interval" json:"reconnect_interval"`

	// MaxReconnectAttempts is the maximum number of reconnection attempts.
	// 0 means unlimited.
	MaxReconnectAttempts int `yaml:"max_reconnect_attempts" json:"max_reconnect_attempts"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		URL:                  "nats://127.0.0.1:4222",
		DomainID:             0,
		Prefix:               "g1",
		Name:                 "g1-audio",
		ReconnectInterval:    2 * time.Second,
		MaxReconnectAttempts: 0,
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("url is required")
	}
	if c.DomainID < 0 {
		return fmt.Errorf("domain_id must be >= 0, got %d", c.DomainID)
	}
	if c.Prefix == "" {
		return fmt.Errorf("prefix is required")
	}
	if strings.ContainsAny(c.Prefix, ". *>") {
		return fmt.Errorf("prefix must not contain '.', '*', '>' or spaces, got '%s'", c.Prefix)
	}
	if c.MaxReconnectAttempts < 0 {
		return fmt.Errorf("max_reconnect_attempts must be >= 0, got %d", c.MaxReconnectAttempts)
	}
	return nil
}
