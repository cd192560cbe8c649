// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package surface models the video output a player renders into: a layer
// owned by the compositor and the buffer queue that feeds it.
package surface

import (
	"maps"
	"sync"
)

// Transform bits reported as a transform hint or orientation.
const (
	TransformFlipH      uint32 = 0x01
	TransformFlipV      uint32 = 0x02
	TransformRot90      uint32 = 0x04
	TransformRot180     uint32 = TransformFlipH | TransformFlipV
	TransformRot270     uint32 = TransformRot180 | TransformRot90
	TransformRotInvalid uint32 = 0x80
)

// Usage bits requested by producers.
const (
	UsageSWReadOften  uint32 = 0x0003
	UsageSWWriteOften uint32 = 0x0030
	UsageHWTexture    uint32 = 0x0100
	UsageHWRender     uint32 = 0x0200
	UsageHWComposer   uint32 = 0x0800
	UsageProtected    uint32 = 0x4000
)

// Display parameters understood by a hardware-composed layer.
const (
	ParamBrightness uint32 = iota + 1
	ParamContrast
	ParamSaturation
	ParamHue
	ParamEnhanceMode
	Param3DMode
)

// TextureInfo describes the frames a hardware-composed layer scans out.
type TextureInfo struct {
	Width  uint32
	Height uint32
	Format uint32
}

// Layer is the compositor-side owner of a TextureLayer. It is safe for
// concurrent use.
type Layer struct {
	name string

	mu            sync.Mutex
	transformHint uint32
	orientation   uint32
	usage         uint32
	texture       TextureInfo
	display       map[uint32]uint32
}

func NewLayer(name string) *Layer {
	return &Layer{name: name, display: make(map[uint32]uint32)}
}

func (l *Layer) Name() string { return l.name }

func (l *Layer) SetTransformHint(hint uint32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.transformHint = hint
}

func (l *Layer) TransformHint() uint32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.transformHint
}

func (l *Layer) SetOrientation(o uint32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.orientation = o
}

func (l *Layer) Orientation() uint32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.orientation
}

// SetUsage sets bits the layer adds to every producer request, such as
// UsageProtected for secure content.
func (l *Layer) SetUsage(usage uint32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.usage = usage
}

// EffectiveUsage returns the usage a buffer for this layer is allocated
// with. Layers always sample their buffers as textures.
func (l *Layer) EffectiveUsage(usage uint32) uint32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return usage | l.usage | UsageHWTexture
}

func (l *Layer) SetTextureInfo(info TextureInfo) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.texture = info
}

func (l *Layer) TextureInfo() TextureInfo {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.texture
}

// SetDisplayParameter stores a display parameter and returns 0.
func (l *Layer) SetDisplayParameter(cmd, value uint32) int32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.display[cmd] = value
	return 0
}

// DisplayParameter returns a stored display parameter, or 0.
func (l *Layer) DisplayParameter(cmd uint32) uint32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.display[cmd]
}

// DisplayParameters returns a copy of every stored display parameter.
func (l *Layer) DisplayParameters() map[uint32]uint32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return maps.Clone(l.display)
}
