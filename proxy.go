// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package mediaplayer

import (
	"context"
	"fmt"

	"github.com/luxfi/mediaplayer/parcel"
)

var (
	_ Player     = (*Proxy)(nil)
	_ Extensions = (*Proxy)(nil)
)

// Proxy is the client side of the player protocol. Each method encodes one
// request, performs a synchronous round trip on the channel and decodes the
// reply. A Proxy keeps no per-session state and is safe for concurrent use.
//
// Errors are a Status from the service, a transport failure wrapping
// FailedTransaction, or NotEnoughData for a reply that does not decode.
type Proxy struct {
	ch Channel
}

func NewProxy(ch Channel) *Proxy {
	return &Proxy{ch: ch}
}

// Close closes the underlying channel.
func (px *Proxy) Close() error {
	return px.ch.Close()
}

// NewRequest returns a parcel that starts with the interface token. Invoke
// and SetMetadataFilter forward caller parcels verbatim, so callers build
// them from here.
func NewRequest() *parcel.Parcel {
	p := parcel.New()
	p.WriteInterfaceToken(Descriptor)
	return p
}

func (px *Proxy) roundTrip(ctx context.Context, code Code, req *parcel.Parcel) (*parcel.Parcel, error) {
	resp, err := px.ch.Transact(ctx, code, req.Bytes())
	if err != nil {
		return nil, transportError(err)
	}
	return parcel.From(resp), nil
}

func malformed(code Code, err error) error {
	return fmt.Errorf("%w: %s reply: %w", NotEnoughData, code, err)
}

// readStatus decodes a trailing status field.
func readStatus(code Code, reply *parcel.Parcel) error {
	s := Status(reply.ReadInt32())
	if err := reply.Err(); err != nil {
		return malformed(code, err)
	}
	return s.Err()
}

// call performs a request whose reply is a single status.
func (px *Proxy) call(ctx context.Context, code Code, build func(*parcel.Parcel)) error {
	req := NewRequest()
	if build != nil {
		build(req)
	}
	reply, err := px.roundTrip(ctx, code, req)
	if err != nil {
		return err
	}
	return readStatus(code, reply)
}

// callInt32 performs a request whose reply is a value followed by a status.
func (px *Proxy) callInt32(ctx context.Context, code Code) (int32, error) {
	reply, err := px.roundTrip(ctx, code, NewRequest())
	if err != nil {
		return 0, err
	}
	v := reply.ReadInt32()
	return v, readStatus(code, reply)
}

func (px *Proxy) Disconnect(ctx context.Context) error {
	_, err := px.roundTrip(ctx, OpDisconnect, NewRequest())
	return err
}

func (px *Proxy) SetDataSourceURL(ctx context.Context, url string, headers []Header) error {
	return px.call(ctx, OpSetDataSourceURL, func(p *parcel.Parcel) {
		p.WriteCString(url)
		p.WritePairs(headers)
	})
}

func (px *Proxy) SetDataSourceFD(ctx context.Context, fd uintptr, offset, length int64) error {
	return px.call(ctx, OpSetDataSourceFD, func(p *parcel.Parcel) {
		p.WriteFileDescriptor(fd)
		p.WriteInt64(offset)
		p.WriteInt64(length)
	})
}

func (px *Proxy) SetDataSourceStream(ctx context.Context, source Handle) error {
	return px.call(ctx, OpSetDataSourceStream, func(p *parcel.Parcel) {
		p.WriteHandle(uint64(source))
	})
}

func (px *Proxy) SetVideoSurfaceTexture(ctx context.Context, target Handle) error {
	return px.call(ctx, OpSetVideoSurfaceTexture, func(p *parcel.Parcel) {
		p.WriteHandle(uint64(target))
	})
}

func (px *Proxy) PrepareAsync(ctx context.Context) error {
	return px.call(ctx, OpPrepareAsync, nil)
}

func (px *Proxy) Start(ctx context.Context) error {
	return px.call(ctx, OpStart, nil)
}

func (px *Proxy) Stop(ctx context.Context) error {
	return px.call(ctx, OpStop, nil)
}

func (px *Proxy) IsPlaying(ctx context.Context) (bool, error) {
	reply, err := px.roundTrip(ctx, OpIsPlaying, NewRequest())
	if err != nil {
		return false, err
	}
	playing := reply.ReadBool()
	return playing, readStatus(OpIsPlaying, reply)
}

func (px *Proxy) Pause(ctx context.Context) error {
	return px.call(ctx, OpPause, nil)
}

func (px *Proxy) SeekTo(ctx context.Context, msec int32) error {
	return px.call(ctx, OpSeekTo, func(p *parcel.Parcel) {
		p.WriteInt32(msec)
	})
}

func (px *Proxy) GetCurrentPosition(ctx context.Context) (int32, error) {
	return px.callInt32(ctx, OpGetCurrentPosition)
}

func (px *Proxy) GetDuration(ctx context.Context) (int32, error) {
	return px.callInt32(ctx, OpGetDuration)
}

func (px *Proxy) Reset(ctx context.Context) error {
	return px.call(ctx, OpReset, nil)
}

func (px *Proxy) SetAudioStreamType(ctx context.Context, streamType int32) error {
	return px.call(ctx, OpSetAudioStreamType, func(p *parcel.Parcel) {
		p.WriteInt32(streamType)
	})
}

func (px *Proxy) SetLooping(ctx context.Context, loop bool) error {
	return px.call(ctx, OpSetLooping, func(p *parcel.Parcel) {
		p.WriteBool(loop)
	})
}

func (px *Proxy) SetVolume(ctx context.Context, left, right float32) error {
	return px.call(ctx, OpSetVolume, func(p *parcel.Parcel) {
		p.WriteFloat32(left)
		p.WriteFloat32(right)
	})
}

// Invoke forwards request verbatim and copies the raw reply into reply,
// positioned at its start. The error is the transaction status.
func (px *Proxy) Invoke(ctx context.Context, request, reply *parcel.Parcel) error {
	resp, err := px.roundTrip(ctx, OpInvoke, request)
	if err != nil {
		return err
	}
	replaceContents(reply, resp)
	return nil
}

// SetMetadataFilter forwards request verbatim.
func (px *Proxy) SetMetadataFilter(ctx context.Context, request *parcel.Parcel) error {
	reply, err := px.roundTrip(ctx, OpSetMetadataFilter, request)
	if err != nil {
		return err
	}
	return readStatus(OpSetMetadataFilter, reply)
}

// GetMetadata copies the reply into reply and consumes its leading status,
// leaving reply positioned at the metadata body. A nil reply only reports
// the status.
func (px *Proxy) GetMetadata(ctx context.Context, updateOnly, applyFilter bool, reply *parcel.Parcel) error {
	req := NewRequest()
	req.WriteBool(updateOnly)
	req.WriteBool(applyFilter)
	resp, err := px.roundTrip(ctx, OpGetMetadata, req)
	if err != nil {
		return err
	}
	if reply == nil {
		return readStatus(OpGetMetadata, resp)
	}
	replaceContents(reply, resp)
	return readStatus(OpGetMetadata, reply)
}

func (px *Proxy) SetAuxEffectSendLevel(ctx context.Context, level float32) error {
	return px.call(ctx, OpSetAuxEffectSendLevel, func(p *parcel.Parcel) {
		p.WriteFloat32(level)
	})
}

func (px *Proxy) AttachAuxEffect(ctx context.Context, effectID int32) error {
	return px.call(ctx, OpAttachAuxEffect, func(p *parcel.Parcel) {
		p.WriteInt32(effectID)
	})
}

// SetParameter sends key followed by every byte of value.
func (px *Proxy) SetParameter(ctx context.Context, key int32, value *parcel.Parcel) error {
	return px.call(ctx, OpSetParameter, func(p *parcel.Parcel) {
		p.WriteInt32(key)
		if value != nil {
			p.WriteRaw(value.Bytes())
		}
	})
}

// GetParameter copies the raw reply into reply without interpreting it.
func (px *Proxy) GetParameter(ctx context.Context, key int32, reply *parcel.Parcel) error {
	req := NewRequest()
	req.WriteInt32(key)
	resp, err := px.roundTrip(ctx, OpGetParameter, req)
	if err != nil {
		return err
	}
	replaceContents(reply, resp)
	return nil
}

// replaceContents makes dst a copy of src positioned at 0.
func replaceContents(dst, src *parcel.Parcel) {
	if dst == nil {
		return
	}
	dst.Reset()
	dst.WriteRaw(src.Bytes())
	dst.SetDataPosition(0)
}
