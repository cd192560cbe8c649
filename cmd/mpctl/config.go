// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config holds the remote control settings.
type Config struct {
	Server struct {
		Addr      string `mapstructure:"addr"`
		Transport string `mapstructure:"transport"`
		TimeoutMs int    `mapstructure:"timeout_ms"`
	} `mapstructure:"server"`
	UI struct {
		Color    string `mapstructure:"color"`
		MaxWidth int    `mapstructure:"max_width"`
	} `mapstructure:"ui"`
	Control struct {
		SeekStepMs int     `mapstructure:"seek_step_ms"`
		VolumeStep float64 `mapstructure:"volume_step"`
	} `mapstructure:"control"`
	Timing struct {
		UIRefreshMs int `mapstructure:"ui_refresh_ms"`
		FetchMs     int `mapstructure:"fetch_ms"`
	} `mapstructure:"timing"`
}

// Timeout bounds a single call to the player.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.Server.TimeoutMs) * time.Millisecond
}

// SafeConfig wraps Config with thread-safe access
type SafeConfig struct {
	mu  sync.RWMutex
	cfg Config
}

// Get returns a copy of the current config
func (sc *SafeConfig) Get() Config {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.cfg
}

func (sc *SafeConfig) Set(cfg Config) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.cfg = cfg
}

// configReloadMsg reports that the config file changed on disk.
type configReloadMsg struct{}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", "127.0.0.1:9650")
	v.SetDefault("server.transport", "zap")
	v.SetDefault("server.timeout_ms", 2000)
	v.SetDefault("ui.color", "6")
	v.SetDefault("ui.max_width", 50)
	v.SetDefault("control.seek_step_ms", 5000)
	v.SetDefault("control.volume_step", 0.1)
	v.SetDefault("timing.ui_refresh_ms", 100)
	v.SetDefault("timing.fetch_ms", 500)
}

// loadConfig reads defaults, the config file and MPCTL_ environment
// variables into v. file overrides the XDG location when set. A missing
// config file is not an error.
func loadConfig(v *viper.Viper, file string) (Config, error) {
	setDefaults(v)

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		configHome := os.Getenv("XDG_CONFIG_HOME")
		if configHome == "" {
			if home, err := os.UserHomeDir(); err == nil {
				configHome = filepath.Join(home, ".config")
			}
		}
		if configHome != "" {
			v.AddConfigPath(filepath.Join(configHome, "mpctl"))
		}
	}

	v.SetEnvPrefix("MPCTL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !(file != "" && errors.Is(err, os.ErrNotExist)) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// watchConfig reloads sc whenever the config file changes and signals on
// the returned channel. Signals coalesce while nobody is listening.
func watchConfig(v *viper.Viper, sc *SafeConfig) <-chan struct{} {
	changed := make(chan struct{}, 1)
	if v.ConfigFileUsed() == "" {
		return changed
	}
	v.OnConfigChange(func(fsnotify.Event) {
		var cfg Config
		if err := v.Unmarshal(&cfg); err != nil {
			return
		}
		sc.Set(cfg)
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	v.WatchConfig()
	return changed
}

// waitReload turns the next config change into a configReloadMsg.
func waitReload(changed <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-changed
		return configReloadMsg{}
	}
}
