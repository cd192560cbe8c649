// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig(viper.New(), filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Server.Addr != "127.0.0.1:9650" || cfg.Server.Transport != "zap" {
		t.Errorf("server got %+v", cfg.Server)
	}
	if cfg.Timeout() != 2*time.Second {
		t.Errorf("timeout got %v, want 2s", cfg.Timeout())
	}
	if cfg.Control.SeekStepMs != 5000 {
		t.Errorf("seek step got %d, want 5000", cfg.Control.SeekStepMs)
	}
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "server:\n  addr: media.local:7000\n  transport: quic\nui:\n  max_width: 70\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("MPCTL_UI_COLOR", "#ff8800")

	cfg, err := loadConfig(viper.New(), path)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Server.Addr != "media.local:7000" || cfg.Server.Transport != "quic" {
		t.Errorf("server got %+v", cfg.Server)
	}
	if cfg.UI.MaxWidth != 70 {
		t.Errorf("max width got %d, want 70", cfg.UI.MaxWidth)
	}
	if cfg.UI.Color != "#ff8800" {
		t.Errorf("color got %q, want #ff8800", cfg.UI.Color)
	}
	if cfg.Timing.FetchMs != 500 {
		t.Errorf("fetch interval got %d, want the default 500", cfg.Timing.FetchMs)
	}
}

func TestLoadConfigMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server: [\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := loadConfig(viper.New(), path); err == nil {
		t.Fatal("loadConfig accepted malformed yaml")
	}
}

func TestConfigReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("ui:\n  color: \"1\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	v := viper.New()
	cfg, err := loadConfig(v, path)
	if err != nil {
		t.Fatal(err)
	}
	sc := &SafeConfig{}
	sc.Set(cfg)
	changed := watchConfig(v, sc)

	if err := os.WriteFile(path, []byte("ui:\n  color: \"4\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatal("no reload after the file changed")
	}
	if got := sc.Get().UI.Color; got != "4" {
		t.Errorf("color got %q, want 4", got)
	}
}

func TestSafeConfigConcurrency(t *testing.T) {
	t.Parallel()
	sc := &SafeConfig{}
	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := range 100 {
				var cfg Config
				cfg.UI.MaxWidth = 40 + i + j
				sc.Set(cfg)
			}
		}()
		go func() {
			defer wg.Done()
			for range 100 {
				_ = sc.Get().UI.MaxWidth
			}
		}()
	}
	wg.Wait()
}
