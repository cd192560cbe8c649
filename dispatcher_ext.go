// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package mediaplayer

import (
	"context"

	"github.com/luxfi/mediaplayer/parcel"
)

// failureStatus returns the status that stands in for a value when the
// player fails. It is always negative.
func failureStatus(err error) int32 {
	s := StatusFromError(err)
	if s >= 0 {
		s = UnknownError
	}
	return int32(s)
}

// value encodes a bare int32 reply. A failure is sent in place of the value.
func value(fn func(context.Context) (int32, error)) operationHandler {
	return func(ctx context.Context, _, reply *parcel.Parcel) error {
		v, err := fn(ctx)
		if err != nil {
			v = failureStatus(err)
		}
		reply.WriteInt32(v)
		return nil
	}
}

// text encodes a status followed by the string when the status is OK.
func text(fn func(context.Context) (string, error)) operationHandler {
	return func(ctx context.Context, _, reply *parcel.Parcel) error {
		s, err := fn(ctx)
		writeStatus(reply, err)
		if err == nil {
			reply.WriteCString(s)
		}
		return nil
	}
}

// list encodes count-then-records. A negative maximum is refused before the
// player is consulted.
func list[T any](fn func(context.Context, int32) ([]T, error), write func(*parcel.Parcel, T)) operationHandler {
	return func(ctx context.Context, req, reply *parcel.Parcel) error {
		max := req.ReadInt32()
		if err := decoded(req); err != nil {
			return err
		}
		if max < 0 {
			reply.WriteInt32(int32(BadValue))
			return nil
		}
		items, err := fn(ctx, max)
		if err != nil {
			reply.WriteInt32(failureStatus(err))
			return nil
		}
		reply.WriteInt32(int32(len(items)))
		for _, it := range items {
			write(reply, it)
		}
		return nil
	}
}

func writeSubtitle(p *parcel.Parcel, s SubtitleInfo) {
	p.WriteByteArray(s.Name)
	p.WriteCString(s.Charset)
	p.WriteInt32(s.Type)
}

func writeTrack(p *parcel.Parcel, t TrackInfo) {
	p.WriteByteArray(t.Name)
	p.WriteCString(t.Charset)
}

func (d *Dispatcher) extensionHandlers() map[Code]operationHandler {
	x := d.ext
	return map[Code]operationHandler{
		OpGetSubCount: value(x.GetSubCount),
		OpGetSubList:  list(x.GetSubList, writeSubtitle),
		OpGetCurSub:   value(x.GetCurSub),
		OpSwitchSub:   setInt32(x.SwitchSub),
		OpSetSubGate:  setBool(x.SetSubGate),
		OpGetSubGate: value(func(ctx context.Context) (int32, error) {
			show, err := x.GetSubGate(ctx)
			if err != nil {
				// A failed gate query reads as hidden.
				return 0, nil
			}
			if show {
				return 1, nil
			}
			return 0, nil
		}),
		OpSetSubColor:      setInt32(x.SetSubColor),
		OpGetSubColor:      value(x.GetSubColor),
		OpSetSubFrameColor: setInt32(x.SetSubFrameColor),
		OpGetSubFrameColor: value(x.GetSubFrameColor),
		OpSetSubFontSize:   setInt32(x.SetSubFontSize),
		OpGetSubFontSize:   value(x.GetSubFontSize),
		OpSetSubCharset: func(ctx context.Context, req, reply *parcel.Parcel) error {
			charset := req.ReadCString()
			if err := decoded(req); err != nil {
				return err
			}
			writeStatus(reply, x.SetSubCharset(ctx, charset))
			return nil
		},
		OpGetSubCharset:          text(x.GetSubCharset),
		OpSetSubPosition:         setInt32(x.SetSubPosition),
		OpGetSubPosition:         value(x.GetSubPosition),
		OpSetSubDelay:            setInt32(x.SetSubDelay),
		OpGetSubDelay:            value(x.GetSubDelay),
		OpGetTrackCount:          value(x.GetTrackCount),
		OpGetTrackList:           list(x.GetTrackList, writeTrack),
		OpGetCurTrack:            value(x.GetCurTrack),
		OpSwitchTrack:            setInt32(x.SwitchTrack),
		OpSetInputDimensionType:  setInt32(x.SetInputDimensionType),
		OpGetInputDimensionType:  value(x.GetInputDimensionType),
		OpSetOutputDimensionType: setInt32(x.SetOutputDimensionType),
		OpGetOutputDimensionType: value(x.GetOutputDimensionType),
		OpSetAnaglyphType:        setInt32(x.SetAnaglyphType),
		OpGetAnaglyphType:        value(x.GetAnaglyphType),
		OpGetVideoEncode:         text(x.GetVideoEncode),
		OpGetVideoFrameRate:      value(x.GetVideoFrameRate),
		OpGetAudioEncode:         text(x.GetAudioEncode),
		OpGetAudioBitRate:        value(x.GetAudioBitRate),
		OpGetAudioSampleRate:     value(x.GetAudioSampleRate),
		OpEnableScaleMode: func(ctx context.Context, req, reply *parcel.Parcel) error {
			enable := req.ReadBool()
			width := req.ReadInt32()
			height := req.ReadInt32()
			if err := decoded(req); err != nil {
				return err
			}
			writeStatus(reply, x.EnableScaleMode(ctx, enable, width, height))
			return nil
		},
	}
}
