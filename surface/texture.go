// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package surface

import (
	"context"
	"log/slog"
	"sync"
	"weak"
)

// TextureLayer is the producer end of a Layer: a BufferQueue whose buffers
// the layer samples as a texture. It refers to its layer weakly, so the
// layer can be destroyed while producers still hold the TextureLayer. Every
// layer-dependent side effect is skipped once the layer is gone.
type TextureLayer struct {
	*BufferQueue

	owner weak.Pointer[Layer]
	log   *slog.Logger

	mu            sync.Mutex
	defaultFormat uint32
	hwComposer    bool
	hwInit        bool
}

func NewTextureLayer(owner *Layer, log *slog.Logger) *TextureLayer {
	if log == nil {
		log = slog.Default()
	}
	return &TextureLayer{
		BufferQueue: NewBufferQueue(),
		owner:       weak.Make(owner),
		log:         log.With("component", "surface", "layer", owner.Name()),
	}
}

// Owner returns the layer, or nil once it has been collected.
func (t *TextureLayer) Owner() *Layer {
	return t.owner.Value()
}

// SetDefaultBufferFormat sets the format used when a producer dequeues with
// a zero format.
func (t *TextureLayer) SetDefaultBufferFormat(format uint32) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.defaultFormat = format
	return nil
}

// DequeueBuffer adds the layer's usage bits to the request.
func (t *TextureLayer) DequeueBuffer(ctx context.Context, w, h, format, usage uint32) (int, error) {
	if format == 0 {
		t.mu.Lock()
		format = t.defaultFormat
		t.mu.Unlock()
	}
	if layer := t.owner.Value(); layer != nil {
		usage = layer.EffectiveUsage(usage)
	} else {
		t.log.Debug("layer gone, dequeue without layer usage")
	}
	return t.BufferQueue.DequeueBuffer(ctx, w, h, format, usage)
}

// QueueBuffer reports the layer's current transform hint.
func (t *TextureLayer) QueueBuffer(slot int, timestamp int64) (QueueOutput, error) {
	out, err := t.BufferQueue.QueueBuffer(slot, timestamp)
	if err != nil {
		return out, err
	}
	if layer := t.owner.Value(); layer != nil {
		out.TransformHint = layer.TransformHint()
	}
	return out, nil
}

// Query answers QueryTransformHint from the layer while it lives.
func (t *TextureLayer) Query(what int) (int32, error) {
	v, err := t.BufferQueue.Query(what)
	if what != QueryTransformHint {
		return v, err
	}
	if layer := t.owner.Value(); layer != nil {
		return int32(layer.TransformHint()), nil
	}
	return v, err
}

// Connect attaches a producer. Media and camera producers are rate limited
// on their side and run asynchronously so the newest frame always shows;
// hardware producers hand their frames to the composer directly.
func (t *TextureLayer) Connect(api int) (QueueOutput, error) {
	out, err := t.BufferQueue.Connect(api)
	if err != nil {
		return out, err
	}
	if layer := t.owner.Value(); layer != nil {
		o := layer.Orientation()
		if o&TransformRotInvalid != 0 {
			o = 0
		}
		out.TransformHint = o
	}

	switch api {
	case APIMediaHW, APICameraHW:
		t.mu.Lock()
		t.hwComposer = true
		t.mu.Unlock()
	case APIMedia, APICamera:
		err = t.SetSynchronousMode(false)
	default:
		err = t.SetSynchronousMode(true)
	}
	if err != nil {
		_ = t.Disconnect(api)
		return QueueOutput{}, err
	}
	return out, nil
}

// Disconnect detaches the producer. Hardware producers also clear the
// layer's texture info.
func (t *TextureLayer) Disconnect(api int) error {
	err := t.BufferQueue.Disconnect(api)
	if api != APIMediaHW && api != APICameraHW {
		return err
	}

	t.mu.Lock()
	t.hwComposer = false
	t.hwInit = false
	t.mu.Unlock()
	if layer := t.owner.Value(); layer != nil {
		layer.SetTextureInfo(TextureInfo{})
	}
	return err
}

// InitHardwareLayer passes the scan-out geometry to the layer. It only
// takes effect for a connected hardware producer.
func (t *TextureLayer) InitHardwareLayer(info TextureInfo) {
	layer := t.owner.Value()
	if layer == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.hwComposer {
		return
	}
	layer.SetTextureInfo(info)
	t.hwInit = true
}

// SetParameter forwards a display parameter to the layer once the hardware
// layer is initialised. It returns the layer's result, or 0 when nothing
// was forwarded.
func (t *TextureLayer) SetParameter(cmd, value uint32) int32 {
	layer := t.owner.Value()
	if layer == nil {
		return 0
	}
	t.mu.Lock()
	ready := t.hwComposer && t.hwInit
	t.mu.Unlock()
	if !ready {
		return 0
	}
	return layer.SetDisplayParameter(cmd, value)
}

// GetParameter reads a display parameter from the layer, or 0 once it is
// gone.
func (t *TextureLayer) GetParameter(cmd uint32) uint32 {
	if layer := t.owner.Value(); layer != nil {
		return layer.DisplayParameter(cmd)
	}
	return 0
}
