// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package config loads the mediaplayerd configuration file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the daemon configuration.
type Config struct {
	Listen ListenConfig `yaml:"listen"`

	// Serve the vendor extension operations as well as the base set.
	Extensions bool `yaml:"extensions"`

	// One of debug, info, warn or error.
	LogLevel string `yaml:"log_level"`

	// Largest request accepted by the binary transports, in bytes. Zero
	// keeps the transport default.
	MaxMessageSize int `yaml:"max_message_size,omitempty"`

	Player  PlayerConfig  `yaml:"player"`
	Surface SurfaceConfig `yaml:"surface"`
}

// ListenConfig holds the service addresses. An empty address disables
// that listener. A listen section in a file replaces the default
// addresses as a whole, so listeners it leaves out are disabled.
type ListenConfig struct {
	ZAP  string `yaml:"zap"`
	QUIC string `yaml:"quic,omitempty"`
	JSON string `yaml:"json,omitempty"`
}

// PlayerConfig tunes the simulated playback engine.
type PlayerConfig struct {
	PrepareDelay time.Duration `yaml:"prepare_delay"`
}

// SurfaceConfig describes the layer the daemon exposes for video output.
type SurfaceConfig struct {
	Name   string `yaml:"name"`
	Width  uint32 `yaml:"width"`
	Height uint32 `yaml:"height"`
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Listen: ListenConfig{
			ZAP:  "127.0.0.1:9650",
			JSON: "127.0.0.1:9651",
		},
		Extensions: true,
		LogLevel:   "info",
		Player: PlayerConfig{
			PrepareDelay: 100 * time.Millisecond,
		},
		Surface: SurfaceConfig{
			Name:   "main",
			Width:  1280,
			Height: 720,
		},
	}
}

// LoadConfig reads path over the defaults. A missing file gives the
// defaults unchanged.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var sections struct {
		Listen *yaml.Node `yaml:"listen"`
	}
	if err := yaml.Unmarshal(data, &sections); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if sections.Listen != nil {
		cfg.Listen = ListenConfig{}
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return cfg, nil
}

// SaveConfig saves configuration to file
func SaveConfig(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate reports the first setting the daemon cannot run with.
func (c *Config) Validate() error {
	if c.Listen.ZAP == "" && c.Listen.QUIC == "" {
		return errors.New("no zap or quic listen address")
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	if c.MaxMessageSize < 0 {
		return fmt.Errorf("negative max_message_size %d", c.MaxMessageSize)
	}
	if c.Player.PrepareDelay < 0 {
		return fmt.Errorf("negative prepare_delay %v", c.Player.PrepareDelay)
	}
	if c.Surface.Width == 0 || c.Surface.Height == 0 {
		return fmt.Errorf("surface size %dx%d", c.Surface.Width, c.Surface.Height)
	}
	return nil
}

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return 0, fmt.Errorf("log_level %q: %w", c.LogLevel, err)
	}
	return l, nil
}
