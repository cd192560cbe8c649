// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package mediaplayer

import (
	"context"

	"github.com/luxfi/mediaplayer/parcel"
)

// Header is one (name, value) pair sent with a URL data source.
type Header = parcel.Pair

// Player is the baseline capability set shared by the Proxy and every local
// implementation served by a Dispatcher.
//
// Accessors return the value together with the implementation status. The
// pass-through operations (Invoke, SetMetadataFilter, GetMetadata and the
// parameter calls) exchange raw parcels whose layout is owned by the caller
// and the implementation.
type Player interface {
	Disconnect(ctx context.Context) error

	SetDataSourceURL(ctx context.Context, url string, headers []Header) error
	SetDataSourceFD(ctx context.Context, fd uintptr, offset, length int64) error
	SetDataSourceStream(ctx context.Context, source Handle) error
	SetVideoSurfaceTexture(ctx context.Context, target Handle) error

	PrepareAsync(ctx context.Context) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	IsPlaying(ctx context.Context) (bool, error)
	Pause(ctx context.Context) error
	SeekTo(ctx context.Context, msec int32) error
	GetCurrentPosition(ctx context.Context) (int32, error)
	GetDuration(ctx context.Context) (int32, error)
	Reset(ctx context.Context) error

	SetAudioStreamType(ctx context.Context, streamType int32) error
	SetLooping(ctx context.Context, loop bool) error
	SetVolume(ctx context.Context, left, right float32) error

	// Invoke hands request to the implementation, which writes its answer to
	// reply. The returned error is the transaction status.
	Invoke(ctx context.Context, request, reply *parcel.Parcel) error
	SetMetadataFilter(ctx context.Context, request *parcel.Parcel) error
	// GetMetadata writes the metadata body to reply.
	GetMetadata(ctx context.Context, updateOnly, applyFilter bool, reply *parcel.Parcel) error

	SetAuxEffectSendLevel(ctx context.Context, level float32) error
	AttachAuxEffect(ctx context.Context, effectID int32) error

	// SetParameter receives the value bytes positioned at their start.
	SetParameter(ctx context.Context, key int32, value *parcel.Parcel) error
	// GetParameter writes the value to reply. The returned error is the
	// transaction status.
	GetParameter(ctx context.Context, key int32, reply *parcel.Parcel) error
}

// Extensions is the optional vendor capability set: subtitles, audio tracks,
// stereoscopic output and stream information.
//
// Getters that return a bare int32 carry no separate status on the wire. An
// implementation error is sent in place of the value, so callers of a Proxy
// see a negative value and a nil error.
type Extensions interface {
	GetSubCount(ctx context.Context) (int32, error)
	GetSubList(ctx context.Context, max int32) ([]SubtitleInfo, error)
	GetCurSub(ctx context.Context) (int32, error)
	SwitchSub(ctx context.Context, index int32) error
	SetSubGate(ctx context.Context, show bool) error
	GetSubGate(ctx context.Context) (bool, error)
	SetSubColor(ctx context.Context, color int32) error
	GetSubColor(ctx context.Context) (int32, error)
	SetSubFrameColor(ctx context.Context, color int32) error
	GetSubFrameColor(ctx context.Context) (int32, error)
	SetSubFontSize(ctx context.Context, size int32) error
	GetSubFontSize(ctx context.Context) (int32, error)
	SetSubCharset(ctx context.Context, charset string) error
	GetSubCharset(ctx context.Context) (string, error)
	SetSubPosition(ctx context.Context, percent int32) error
	GetSubPosition(ctx context.Context) (int32, error)
	SetSubDelay(ctx context.Context, msec int32) error
	GetSubDelay(ctx context.Context) (int32, error)

	GetTrackCount(ctx context.Context) (int32, error)
	GetTrackList(ctx context.Context, max int32) ([]TrackInfo, error)
	GetCurTrack(ctx context.Context) (int32, error)
	SwitchTrack(ctx context.Context, index int32) error

	SetInputDimensionType(ctx context.Context, mode int32) error
	GetInputDimensionType(ctx context.Context) (int32, error)
	SetOutputDimensionType(ctx context.Context, mode int32) error
	GetOutputDimensionType(ctx context.Context) (int32, error)
	SetAnaglyphType(ctx context.Context, kind int32) error
	GetAnaglyphType(ctx context.Context) (int32, error)

	GetVideoEncode(ctx context.Context) (string, error)
	GetVideoFrameRate(ctx context.Context) (int32, error)
	GetAudioEncode(ctx context.Context) (string, error)
	GetAudioBitRate(ctx context.Context) (int32, error)
	GetAudioSampleRate(ctx context.Context) (int32, error)

	EnableScaleMode(ctx context.Context, enable bool, width, height int32) error
}

// SubtitleInfo describes one subtitle stream. Name is left in its source
// character set, which Charset names.
type SubtitleInfo struct {
	Name    []byte
	Charset string
	Type    int32
}

// TrackInfo describes one audio track.
type TrackInfo struct {
	Name    []byte
	Charset string
}

// MediaSource selects what a player plays. It is one of URLSource,
// FileSource or StreamSource.
type MediaSource interface {
	applyTo(ctx context.Context, p Player) error
}

// URLSource is a network or file URL with optional request headers.
type URLSource struct {
	URL     string
	Headers []Header
}

// FileSource is a byte range of an open file descriptor.
type FileSource struct {
	FD     uintptr
	Offset int64
	Length int64
}

// StreamSource is a live stream object known to the service by handle.
type StreamSource struct {
	Source Handle
}

func (s URLSource) applyTo(ctx context.Context, p Player) error {
	return p.SetDataSourceURL(ctx, s.URL, s.Headers)
}

func (s FileSource) applyTo(ctx context.Context, p Player) error {
	return p.SetDataSourceFD(ctx, s.FD, s.Offset, s.Length)
}

func (s StreamSource) applyTo(ctx context.Context, p Player) error {
	return p.SetDataSourceStream(ctx, s.Source)
}

// SetDataSource points p at src using the operation matching its variant.
func SetDataSource(ctx context.Context, p Player, src MediaSource) error {
	if src == nil {
		return BadValue
	}
	return src.applyTo(ctx, p)
}

// Audio stream types accepted by SetAudioStreamType.
const (
	StreamVoiceCall    int32 = 0
	StreamSystem       int32 = 1
	StreamRing         int32 = 2
	StreamMusic        int32 = 3
	StreamAlarm        int32 = 4
	StreamNotification int32 = 5
)
