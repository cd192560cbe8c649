// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/luxfi/mediaplayer"
	"github.com/luxfi/mediaplayer/internal/config"
	"github.com/luxfi/mediaplayer/internal/simplayer"
	"github.com/luxfi/mediaplayer/surface"
)

// frameLogInterval is how many consumed frames pass between progress logs.
const frameLogInterval = 300

// daemon owns one simulated player and every listener serving it.
type daemon struct {
	log *slog.Logger

	registry *mediaplayer.Registry
	layer    *surface.Layer
	texture  *surface.TextureLayer
	surface  mediaplayer.Handle

	player     *simplayer.Player
	dispatcher *mediaplayer.Dispatcher

	servers map[string]mediaplayer.Server
	jsonLn  net.Listener
	jsonSrv *http.Server
}

func newDaemon(cfg *config.Config, log *slog.Logger) (*daemon, error) {
	d := &daemon{
		log:      log,
		registry: mediaplayer.NewRegistry(),
		layer:    surface.NewLayer(cfg.Surface.Name),
		servers:  make(map[string]mediaplayer.Server),
	}
	d.texture = surface.NewTextureLayer(d.layer, log)
	if err := d.texture.SetDefaultBufferSize(cfg.Surface.Width, cfg.Surface.Height); err != nil {
		return nil, fmt.Errorf("surface size: %w", err)
	}
	d.surface = d.registry.Register(d.texture)

	d.player = simplayer.New(
		simplayer.WithLogger(log),
		simplayer.WithRegistry(d.registry),
		simplayer.WithPrepareDelay(cfg.Player.PrepareDelay),
		simplayer.WithListener(d.onEvent),
	)
	d.dispatcher = mediaplayer.NewDispatcher(d.player,
		mediaplayer.WithExtensions(cfg.Extensions),
		mediaplayer.WithDispatcherLogger(log),
	)

	opts := []mediaplayer.ServerOption{mediaplayer.WithServerLogger(log)}
	if cfg.MaxMessageSize > 0 {
		opts = append(opts, mediaplayer.WithServerMaxMessageSize(cfg.MaxMessageSize))
	}
	for transport, addr := range map[string]string{"zap": cfg.Listen.ZAP, "quic": cfg.Listen.QUIC} {
		if addr == "" {
			continue
		}
		srv, err := mediaplayer.Listen(addr, d.dispatcher, append(opts, mediaplayer.WithServerTransport(transport))...)
		if err != nil {
			d.close()
			return nil, fmt.Errorf("%s listener: %w", transport, err)
		}
		log.Info("listening", "transport", transport, "addr", srv.Addr())
		d.servers[transport] = srv
	}

	if cfg.Listen.JSON != "" {
		h, err := mediaplayer.NewJSONHandler(mediaplayer.NewProxy(mediaplayer.NewLoopback(d.dispatcher)), log)
		if err != nil {
			d.close()
			return nil, err
		}
		ln, err := net.Listen("tcp", cfg.Listen.JSON)
		if err != nil {
			d.close()
			return nil, fmt.Errorf("json listener: %w", err)
		}
		log.Info("listening", "transport", "json-rpc", "addr", ln.Addr().String())
		d.jsonLn = ln
		d.jsonSrv = &http.Server{Handler: h, ReadHeaderTimeout: 10 * time.Second}
	}

	log.Info("video surface ready",
		"handle", uint64(d.surface),
		"layer", d.layer.Name(),
		"width", cfg.Surface.Width,
		"height", cfg.Surface.Height,
	)
	return d, nil
}

func (d *daemon) onEvent(e simplayer.Event) {
	switch e.What {
	case simplayer.EventError:
		d.log.Warn("player error", "ext1", e.Ext1, "status", mediaplayer.Status(e.Ext2).Error())
	case simplayer.EventSetVideoSize:
		d.log.Info("video size", "width", e.Ext1, "height", e.Ext2)
	default:
		d.log.Debug("player event", "what", e.What, "ext1", e.Ext1, "ext2", e.Ext2)
	}
}

// run serves until ctx is cancelled or a listener fails.
func (d *daemon) run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	for _, srv := range d.servers {
		g.Go(func() error {
			return srv.Serve(ctx)
		})
	}

	if d.jsonSrv != nil {
		g.Go(func() error {
			if err := d.jsonSrv.Serve(d.jsonLn); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("json server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return d.jsonSrv.Shutdown(shutdownCtx)
		})
	}

	g.Go(func() error {
		return d.consume(ctx)
	})

	err := g.Wait()
	if derr := d.player.Disconnect(context.Background()); derr != nil {
		d.log.Debug("player disconnect", "error", derr)
	}
	d.texture.Abandon()
	d.registry.Release(d.surface)
	return err
}

// consume plays the compositor: it takes every frame the player queues and
// hands the buffer straight back.
func (d *daemon) consume(ctx context.Context) error {
	var frames uint64
	for {
		b, err := d.texture.NextBuffer(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, mediaplayer.NoInit) {
				return nil
			}
			return fmt.Errorf("consume frame: %w", err)
		}
		frames++
		if frames%frameLogInterval == 0 {
			d.log.Debug("frames composed", "count", frames, "timestamp", time.Duration(b.Timestamp))
		}
		if err := d.texture.ReleaseBuffer(b.Slot); err != nil {
			d.log.Debug("release frame", "slot", b.Slot, "error", err)
		}
	}
}

// close releases listeners opened by a newDaemon that later failed.
func (d *daemon) close() {
	for _, s := range d.servers {
		_ = s.Close()
	}
	if d.jsonLn != nil {
		_ = d.jsonLn.Close()
	}
}
