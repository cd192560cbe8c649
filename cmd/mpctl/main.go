// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Command mpctl is a terminal remote control for a mediaplayerd service.
//
// Usage:
//
//	mpctl [-addr host:port] [-transport zap|quic] [-config file] [url]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/viper"

	"github.com/luxfi/mediaplayer"
)

var (
	addrFlag      = flag.String("addr", "", "Service address (overrides config)")
	transportFlag = flag.String("transport", "", "Transport: zap or quic (overrides config)")
	configFlag    = flag.String("config", "", "Config file (default $XDG_CONFIG_HOME/mpctl/config.yaml)")
	colorFlag     = flag.String("color", "", "Accent color, ANSI number or hex (overrides config)")
)

func main() {
	flag.Parse()

	v := viper.New()
	cfg, err := loadConfig(v, *configFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *addrFlag != "" {
		v.Set("server.addr", *addrFlag)
		cfg.Server.Addr = *addrFlag
	}
	if *transportFlag != "" {
		v.Set("server.transport", *transportFlag)
		cfg.Server.Transport = *transportFlag
	}
	if *colorFlag != "" {
		v.Set("ui.color", *colorFlag)
		cfg.UI.Color = *colorFlag
	}

	// The TUI owns the terminal; library logs would corrupt it.
	slog.SetDefault(slog.New(slog.DiscardHandler))

	sc := &SafeConfig{}
	sc.Set(cfg)
	reload := watchConfig(v, sc)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout())
	px, err := mediaplayer.DialPlayer(ctx, cfg.Server.Addr, mediaplayer.WithTransport(cfg.Server.Transport))
	cancel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: connect %s: %v\n", cfg.Server.Addr, err)
		os.Exit(1)
	}
	defer px.Close()

	m := newModel(px, sc, reload, flag.Arg(0))
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
