// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package simplayer

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/luxfi/mediaplayer"
	"github.com/luxfi/mediaplayer/surface"
)

const defaultFrameRate = 30

// SetVideoSurfaceTexture renders into the TextureLayer registered under
// target. The null handle detaches the current surface.
func (p *Player) SetVideoSurfaceTexture(_ context.Context, target mediaplayer.Handle) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.in(StateError, StateEnd) {
		return fmt.Errorf("%w: SetVideoSurfaceTexture in state %v", mediaplayer.InvalidOperation, p.state)
	}
	if target == 0 {
		p.detachSurface()
		return nil
	}
	if p.registry == nil {
		return fmt.Errorf("%w: no handle registry", mediaplayer.NoInit)
	}
	tl, err := mediaplayer.Resolve[*surface.TextureLayer](p.registry, target)
	if err != nil {
		return err
	}
	if tl == p.surface {
		return nil
	}

	p.detachSurface()
	if _, err := tl.Connect(surface.APIMedia); err != nil {
		return fmt.Errorf("connect surface %d: %w", target, err)
	}
	p.surface = tl
	p.applyBufferSize()
	if p.state == StateStarted {
		p.startPump()
	}
	p.log.Debug("video surface attached", "handle", uint64(target))
	return nil
}

// detachSurface stops rendering and disconnects from the surface. Callers
// hold mu.
func (p *Player) detachSurface() {
	p.stopPump()
	if p.surface == nil {
		return
	}
	if err := p.surface.Disconnect(surface.APIMedia); err != nil {
		p.log.Debug("surface disconnect failed", "error", err)
	}
	p.surface = nil
}

// applyBufferSize sizes surface buffers for the picture, or for the scale
// mode when one is enabled. Callers hold mu.
func (p *Player) applyBufferSize() {
	if p.surface == nil {
		return
	}
	w, h := p.media.Width, p.media.Height
	if p.scale.enabled {
		w, h = p.scale.width, p.scale.height
	}
	if w <= 0 || h <= 0 {
		return
	}
	if err := p.surface.SetDefaultBufferSize(uint32(w), uint32(h)); err != nil {
		p.log.Debug("surface resize failed", "error", err)
	}
}

// startPump starts rendering frames when a surface is attached and the
// media has a picture. Callers hold mu.
func (p *Player) startPump() {
	if p.surface == nil || p.pumpCancel != nil || !p.media.HasVideo() {
		return
	}
	rate := p.media.FrameRate
	if rate <= 0 {
		rate = defaultFrameRate
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.pumpCancel = cancel
	go p.pump(ctx, p.surface, time.Second/time.Duration(rate))
}

// stopPump stops rendering. The pump goroutine exits on its own. Callers
// hold mu.
func (p *Player) stopPump() {
	if p.pumpCancel == nil {
		return
	}
	p.pumpCancel()
	p.pumpCancel = nil
}

func (p *Player) pump(ctx context.Context, tl *surface.TextureLayer, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		p.mu.Lock()
		p.advance()
		playing := p.state == StateStarted
		pos := p.position()
		p.mu.Unlock()
		p.flush()
		if !playing {
			return
		}

		if err := p.renderFrame(ctx, tl, pos); err != nil {
			if !errors.Is(err, context.Canceled) {
				p.log.Debug("frame dropped", "error", err)
			}
			if errors.Is(err, mediaplayer.NoInit) {
				return
			}
		}
	}
}

// renderFrame fills one buffer with the frame counter and queues it with
// the playback position as its timestamp.
func (p *Player) renderFrame(ctx context.Context, tl *surface.TextureLayer, pos time.Duration) error {
	slot, err := tl.DequeueBuffer(ctx, 0, 0, 0, surface.UsageSWWriteOften)
	if err != nil {
		return err
	}
	buf, err := tl.RequestBuffer(slot)
	if err != nil {
		return err
	}
	n := p.frames.Add(1)
	if len(buf.Data) >= 8 {
		binary.LittleEndian.PutUint64(buf.Data, n)
	}
	_, err = tl.QueueBuffer(slot, pos.Nanoseconds())
	return err
}

// FramesRendered returns the number of frames queued to surfaces so far.
func (p *Player) FramesRendered() uint64 {
	return p.frames.Load()
}
