// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package simplayer

import (
	"context"
	"fmt"

	"github.com/luxfi/mediaplayer"
)

// Subtitle rendering defaults.
const (
	DefaultSubColor    int32 = -1 // opaque white, 0xffffffff
	DefaultSubFontSize int32 = 32
)

type subtitleState struct {
	list       []mediaplayer.SubtitleInfo
	current    int32
	show       bool
	color      int32
	frameColor int32
	fontSize   int32
	charset    string
	position   int32
	delay      int32
}

func defaultSubtitleState() subtitleState {
	return subtitleState{
		current:  -1,
		show:     true,
		color:    DefaultSubColor,
		fontSize: DefaultSubFontSize,
		charset:  mediaplayer.CharsetUTF8,
	}
}

type scaleMode struct {
	enabled bool
	width   int32
	height  int32
}

// loaded fails unless a source has been set.
func (p *Player) loaded(op string) error {
	if p.in(StateIdle, StateError, StateEnd) {
		return fmt.Errorf("%w: %s in state %v", mediaplayer.InvalidOperation, op, p.state)
	}
	return nil
}

// inRange fails with BadValue unless lo <= v <= hi.
func inRange(what string, v, lo, hi int32) error {
	if v < lo || v > hi {
		return fmt.Errorf("%w: %s %d", mediaplayer.BadValue, what, v)
	}
	return nil
}

func (p *Player) GetSubCount(context.Context) (int32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return int32(len(p.subs.list)), nil
}

func (p *Player) GetSubList(_ context.Context, maxCount int32) ([]mediaplayer.SubtitleInfo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if maxCount < 0 {
		return nil, mediaplayer.BadValue
	}
	n := min(int(maxCount), len(p.subs.list))
	out := make([]mediaplayer.SubtitleInfo, n)
	copy(out, p.subs.list)
	return out, nil
}

func (p *Player) GetCurSub(context.Context) (int32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.subs.current, nil
}

func (p *Player) SwitchSub(_ context.Context, index int32) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := inRange("subtitle", index, 0, int32(len(p.subs.list))-1); err != nil {
		return err
	}
	p.subs.current = index
	return nil
}

func (p *Player) SetSubGate(_ context.Context, show bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subs.show = show
	return nil
}

func (p *Player) GetSubGate(context.Context) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.subs.show, nil
}

func (p *Player) SetSubColor(_ context.Context, color int32) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subs.color = color
	return nil
}

func (p *Player) GetSubColor(context.Context) (int32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.subs.color, nil
}

func (p *Player) SetSubFrameColor(_ context.Context, color int32) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subs.frameColor = color
	return nil
}

func (p *Player) GetSubFrameColor(context.Context) (int32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.subs.frameColor, nil
}

func (p *Player) SetSubFontSize(_ context.Context, size int32) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if size <= 0 {
		return fmt.Errorf("%w: font size %d", mediaplayer.BadValue, size)
	}
	p.subs.fontSize = size
	return nil
}

func (p *Player) GetSubFontSize(context.Context) (int32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.subs.fontSize, nil
}

func (p *Player) SetSubCharset(_ context.Context, charset string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if charset == "" {
		return fmt.Errorf("%w: empty charset", mediaplayer.BadValue)
	}
	p.subs.charset = charset
	return nil
}

func (p *Player) GetSubCharset(context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.subs.charset, nil
}

// SetSubPosition places subtitles at percent of the picture height from
// the bottom.
func (p *Player) SetSubPosition(_ context.Context, percent int32) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := inRange("subtitle position", percent, 0, 100); err != nil {
		return err
	}
	p.subs.position = percent
	return nil
}

func (p *Player) GetSubPosition(context.Context) (int32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.subs.position, nil
}

func (p *Player) SetSubDelay(_ context.Context, msec int32) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subs.delay = msec
	return nil
}

func (p *Player) GetSubDelay(context.Context) (int32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.subs.delay, nil
}

func (p *Player) GetTrackCount(context.Context) (int32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return int32(len(p.media.Tracks)), nil
}

func (p *Player) GetTrackList(_ context.Context, maxCount int32) ([]mediaplayer.TrackInfo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if maxCount < 0 {
		return nil, mediaplayer.BadValue
	}
	n := min(int(maxCount), len(p.media.Tracks))
	out := make([]mediaplayer.TrackInfo, n)
	copy(out, p.media.Tracks)
	return out, nil
}

func (p *Player) GetCurTrack(context.Context) (int32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.track, nil
}

func (p *Player) SwitchTrack(_ context.Context, index int32) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := inRange("track", index, 0, int32(len(p.media.Tracks))-1); err != nil {
		return err
	}
	p.track = index
	p.updated[mediaplayer.MetadataAudioCodec] = true
	return nil
}

func (p *Player) SetInputDimensionType(_ context.Context, mode int32) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := inRange("input picture mode", mode, mediaplayer.Picture3DNone, mediaplayer.Picture3DColumnInterleave); err != nil {
		return err
	}
	p.input3D = mode
	return nil
}

func (p *Player) GetInputDimensionType(context.Context) (int32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.input3D, nil
}

func (p *Player) SetOutputDimensionType(_ context.Context, mode int32) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := inRange("display mode", mode, mediaplayer.Display2D, mediaplayer.DisplayAnaglyph); err != nil {
		return err
	}
	p.output3D = mode
	return nil
}

func (p *Player) GetOutputDimensionType(context.Context) (int32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.output3D, nil
}

func (p *Player) SetAnaglyphType(_ context.Context, kind int32) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := inRange("anaglyph type", kind, mediaplayer.AnaglyphRedBlue, mediaplayer.AnaglyphYellowBlue); err != nil {
		return err
	}
	p.anaglyph = kind
	return nil
}

func (p *Player) GetAnaglyphType(context.Context) (int32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.anaglyph, nil
}

func (p *Player) GetVideoEncode(context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.loaded("GetVideoEncode"); err != nil {
		return "", err
	}
	return p.media.VideoCodec, nil
}

func (p *Player) GetVideoFrameRate(context.Context) (int32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.loaded("GetVideoFrameRate"); err != nil {
		return 0, err
	}
	return p.media.FrameRate, nil
}

func (p *Player) GetAudioEncode(context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.loaded("GetAudioEncode"); err != nil {
		return "", err
	}
	return p.media.AudioCodec, nil
}

func (p *Player) GetAudioBitRate(context.Context) (int32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.loaded("GetAudioBitRate"); err != nil {
		return 0, err
	}
	return p.media.AudioBitRate, nil
}

func (p *Player) GetAudioSampleRate(context.Context) (int32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.loaded("GetAudioSampleRate"); err != nil {
		return 0, err
	}
	return p.media.SampleRate, nil
}

// EnableScaleMode renders into width×height buffers instead of the
// picture's own size.
func (p *Player) EnableScaleMode(_ context.Context, enable bool, width, height int32) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if enable && (width <= 0 || height <= 0) {
		return fmt.Errorf("%w: scale size %dx%d", mediaplayer.BadValue, width, height)
	}
	p.scale = scaleMode{enabled: enable, width: width, height: height}
	p.applyBufferSize()
	return nil
}
