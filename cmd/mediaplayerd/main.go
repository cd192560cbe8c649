// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Command mediaplayerd serves a simulated media player over the ZAP, QUIC
// and JSON-RPC transports.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/luxfi/mediaplayer/internal/config"
)

var version = "dev"

var (
	configPath = flag.String("config", defaultConfigPath(), "Path to configuration file")
	zapAddr    = flag.String("zap", "", "ZAP listen address (overrides config)")
	quicAddr   = flag.String("quic", "", "QUIC listen address (overrides config)")
	jsonAddr   = flag.String("json", "", "JSON-RPC listen address (overrides config)")
	logLevel   = flag.String("log-level", "", "debug, info, warn or error (overrides config)")
	baseOnly   = flag.Bool("base-only", false, "Serve only the base operation set")
	writeCfg   = flag.Bool("write-config", false, "Write the effective configuration to -config and exit")
)

func main() {
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		slog.Error("failed to load config", "path", *configPath, "error", err)
		os.Exit(1)
	}
	applyFlags(cfg)
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	if *writeCfg {
		if err := config.SaveConfig(*configPath, cfg); err != nil {
			slog.Error("failed to write config", "error", err)
			os.Exit(1)
		}
		slog.Info("configuration written", "path", *configPath)
		return
	}

	level, _ := cfg.Level()
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("mediaplayerd starting", "version", version, "config", *configPath, "extensions", cfg.Extensions)
	d, err := newDaemon(cfg, log)
	if err != nil {
		log.Error("failed to start", "error", err)
		os.Exit(1)
	}
	if err := d.run(ctx); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	log.Info("shut down")
}

func applyFlags(cfg *config.Config) {
	if *zapAddr != "" {
		cfg.Listen.ZAP = *zapAddr
	}
	if *quicAddr != "" {
		cfg.Listen.QUIC = *quicAddr
	}
	if *jsonAddr != "" {
		cfg.Listen.JSON = *jsonAddr
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *baseOnly {
		cfg.Extensions = false
	}
}

func defaultConfigPath() string {
	locations := []string{
		"./mediaplayerd.yaml",
		filepath.Join(os.Getenv("HOME"), ".config", "mediaplayerd", "config.yaml"),
		"/etc/mediaplayerd/config.yaml",
	}
	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}
	return locations[0]
}
