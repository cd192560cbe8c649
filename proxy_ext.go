// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package mediaplayer

import (
	"context"

	"github.com/luxfi/mediaplayer/parcel"
)

// Smallest encoding of one list record: an empty name (length word), an
// empty charset (one padded NUL) and, for subtitles, the type.
const (
	minSubtitleRecord = 4 + 4 + 4
	minTrackRecord    = 4 + 4
)

// value performs a request whose reply is a bare int32.
func (px *Proxy) value(ctx context.Context, code Code) (int32, error) {
	reply, err := px.roundTrip(ctx, code, NewRequest())
	if err != nil {
		return 0, err
	}
	v := reply.ReadInt32()
	if err := reply.Err(); err != nil {
		return 0, malformed(code, err)
	}
	return v, nil
}

// text performs a request whose reply is a status followed, on success, by
// a C string.
func (px *Proxy) text(ctx context.Context, code Code) (string, error) {
	reply, err := px.roundTrip(ctx, code, NewRequest())
	if err != nil {
		return "", err
	}
	if err := readStatus(code, reply); err != nil {
		return "", err
	}
	s := reply.ReadCString()
	if err := reply.Err(); err != nil {
		return "", malformed(code, err)
	}
	return s, nil
}

func (px *Proxy) setInt32(ctx context.Context, code Code, v int32) error {
	return px.call(ctx, code, func(p *parcel.Parcel) { p.WriteInt32(v) })
}

// listCount reads the leading count of a list reply. A negative count is the
// service status. The count is checked against the bytes actually present,
// never against the maximum that was asked for.
func listCount(code Code, reply *parcel.Parcel, minRecord int) (int, error) {
	n := reply.ReadInt32()
	if err := reply.Err(); err != nil {
		return 0, malformed(code, err)
	}
	if n < 0 {
		return 0, Status(n)
	}
	if int(n) > reply.DataAvail()/minRecord {
		return 0, malformed(code, parcel.ErrBadLength)
	}
	return int(n), nil
}

func (px *Proxy) GetSubCount(ctx context.Context) (int32, error) {
	return px.value(ctx, OpGetSubCount)
}

// GetSubList returns the records the service sent, which may be fewer
// than max.
func (px *Proxy) GetSubList(ctx context.Context, max int32) ([]SubtitleInfo, error) {
	req := NewRequest()
	req.WriteInt32(max)
	reply, err := px.roundTrip(ctx, OpGetSubList, req)
	if err != nil {
		return nil, err
	}
	n, err := listCount(OpGetSubList, reply, minSubtitleRecord)
	if err != nil {
		return nil, err
	}
	subs := make([]SubtitleInfo, 0, n)
	for range n {
		var s SubtitleInfo
		s.Name = reply.ReadByteArray()
		s.Charset = reply.ReadCString()
		s.Type = reply.ReadInt32()
		subs = append(subs, s)
	}
	if err := reply.Err(); err != nil {
		return nil, malformed(OpGetSubList, err)
	}
	return subs, nil
}

func (px *Proxy) GetCurSub(ctx context.Context) (int32, error) {
	return px.value(ctx, OpGetCurSub)
}

func (px *Proxy) SwitchSub(ctx context.Context, index int32) error {
	return px.setInt32(ctx, OpSwitchSub, index)
}

func (px *Proxy) SetSubGate(ctx context.Context, show bool) error {
	return px.call(ctx, OpSetSubGate, func(p *parcel.Parcel) { p.WriteBool(show) })
}

func (px *Proxy) GetSubGate(ctx context.Context) (bool, error) {
	v, err := px.value(ctx, OpGetSubGate)
	return v != 0, err
}

func (px *Proxy) SetSubColor(ctx context.Context, color int32) error {
	return px.setInt32(ctx, OpSetSubColor, color)
}

func (px *Proxy) GetSubColor(ctx context.Context) (int32, error) {
	return px.value(ctx, OpGetSubColor)
}

func (px *Proxy) SetSubFrameColor(ctx context.Context, color int32) error {
	return px.setInt32(ctx, OpSetSubFrameColor, color)
}

func (px *Proxy) GetSubFrameColor(ctx context.Context) (int32, error) {
	return px.value(ctx, OpGetSubFrameColor)
}

func (px *Proxy) SetSubFontSize(ctx context.Context, size int32) error {
	return px.setInt32(ctx, OpSetSubFontSize, size)
}

func (px *Proxy) GetSubFontSize(ctx context.Context) (int32, error) {
	return px.value(ctx, OpGetSubFontSize)
}

func (px *Proxy) SetSubCharset(ctx context.Context, charset string) error {
	return px.call(ctx, OpSetSubCharset, func(p *parcel.Parcel) { p.WriteCString(charset) })
}

func (px *Proxy) GetSubCharset(ctx context.Context) (string, error) {
	return px.text(ctx, OpGetSubCharset)
}

func (px *Proxy) SetSubPosition(ctx context.Context, percent int32) error {
	return px.setInt32(ctx, OpSetSubPosition, percent)
}

func (px *Proxy) GetSubPosition(ctx context.Context) (int32, error) {
	return px.value(ctx, OpGetSubPosition)
}

func (px *Proxy) SetSubDelay(ctx context.Context, msec int32) error {
	return px.setInt32(ctx, OpSetSubDelay, msec)
}

func (px *Proxy) GetSubDelay(ctx context.Context) (int32, error) {
	return px.value(ctx, OpGetSubDelay)
}

func (px *Proxy) GetTrackCount(ctx context.Context) (int32, error) {
	return px.value(ctx, OpGetTrackCount)
}

// GetTrackList returns the records the service sent, which may be fewer
// than max.
func (px *Proxy) GetTrackList(ctx context.Context, max int32) ([]TrackInfo, error) {
	req := NewRequest()
	req.WriteInt32(max)
	reply, err := px.roundTrip(ctx, OpGetTrackList, req)
	if err != nil {
		return nil, err
	}
	n, err := listCount(OpGetTrackList, reply, minTrackRecord)
	if err != nil {
		return nil, err
	}
	tracks := make([]TrackInfo, 0, n)
	for range n {
		var t TrackInfo
		t.Name = reply.ReadByteArray()
		t.Charset = reply.ReadCString()
		tracks = append(tracks, t)
	}
	if err := reply.Err(); err != nil {
		return nil, malformed(OpGetTrackList, err)
	}
	return tracks, nil
}

func (px *Proxy) GetCurTrack(ctx context.Context) (int32, error) {
	return px.value(ctx, OpGetCurTrack)
}

func (px *Proxy) SwitchTrack(ctx context.Context, index int32) error {
	return px.setInt32(ctx, OpSwitchTrack, index)
}

func (px *Proxy) SetInputDimensionType(ctx context.Context, mode int32) error {
	return px.setInt32(ctx, OpSetInputDimensionType, mode)
}

func (px *Proxy) GetInputDimensionType(ctx context.Context) (int32, error) {
	return px.value(ctx, OpGetInputDimensionType)
}

func (px *Proxy) SetOutputDimensionType(ctx context.Context, mode int32) error {
	return px.setInt32(ctx, OpSetOutputDimensionType, mode)
}

func (px *Proxy) GetOutputDimensionType(ctx context.Context) (int32, error) {
	return px.value(ctx, OpGetOutputDimensionType)
}

func (px *Proxy) SetAnaglyphType(ctx context.Context, kind int32) error {
	return px.setInt32(ctx, OpSetAnaglyphType, kind)
}

func (px *Proxy) GetAnaglyphType(ctx context.Context) (int32, error) {
	return px.value(ctx, OpGetAnaglyphType)
}

func (px *Proxy) GetVideoEncode(ctx context.Context) (string, error) {
	return px.text(ctx, OpGetVideoEncode)
}

func (px *Proxy) GetVideoFrameRate(ctx context.Context) (int32, error) {
	return px.value(ctx, OpGetVideoFrameRate)
}

func (px *Proxy) GetAudioEncode(ctx context.Context) (string, error) {
	return px.text(ctx, OpGetAudioEncode)
}

func (px *Proxy) GetAudioBitRate(ctx context.Context) (int32, error) {
	return px.value(ctx, OpGetAudioBitRate)
}

func (px *Proxy) GetAudioSampleRate(ctx context.Context) (int32, error) {
	return px.value(ctx, OpGetAudioSampleRate)
}

func (px *Proxy) EnableScaleMode(ctx context.Context, enable bool, width, height int32) error {
	return px.call(ctx, OpEnableScaleMode, func(p *parcel.Parcel) {
		p.WriteBool(enable)
		p.WriteInt32(width)
		p.WriteInt32(height)
	})
}
