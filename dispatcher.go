// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package mediaplayer

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"

	"github.com/luxfi/mediaplayer/parcel"
)

// operationHandler decodes the request fields after the token, invokes the
// implementation and encodes the reply. A returned error becomes the
// transaction status and the reply is discarded.
type operationHandler func(ctx context.Context, req, reply *parcel.Parcel) error

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*dispatcherOptions)

type dispatcherOptions struct {
	extensions bool
	log        *slog.Logger
}

// WithExtensions enables the vendor extension block. It only takes effect
// when the implementation also satisfies Extensions.
func WithExtensions(enabled bool) DispatcherOption {
	return func(o *dispatcherOptions) { o.extensions = enabled }
}

// WithDispatcherLogger sets the dispatcher logger.
func WithDispatcherLogger(l *slog.Logger) DispatcherOption {
	return func(o *dispatcherOptions) { o.log = l }
}

// Dispatcher is the service side of the player protocol. It implements
// Handler and is safe for concurrent use; the dispatch table is fixed at
// construction.
type Dispatcher struct {
	impl Player
	ext  Extensions
	ops  map[Code]operationHandler
	log  *slog.Logger
}

var _ Handler = (*Dispatcher)(nil)

func NewDispatcher(impl Player, opts ...DispatcherOption) *Dispatcher {
	o := &dispatcherOptions{}
	for _, opt := range opts {
		opt(o)
	}
	if o.log == nil {
		o.log = slog.Default()
	}

	d := &Dispatcher{
		impl: impl,
		log:  o.log.With("component", "dispatcher"),
	}
	d.ops = d.baseHandlers()
	if o.extensions {
		if ext, ok := impl.(Extensions); ok {
			d.ext = ext
			for code, h := range d.extensionHandlers() {
				d.ops[code] = h
			}
		} else {
			d.log.Warn("extensions requested but the player does not implement them")
		}
	}
	return d
}

// Supports reports whether code is served.
func (d *Dispatcher) Supports(code Code) bool {
	_, ok := d.ops[code]
	return ok
}

// Transact serves one request.
func (d *Dispatcher) Transact(ctx context.Context, code Code, data []byte) ([]byte, error) {
	h, ok := d.ops[code]
	if !ok {
		d.log.Debug("unknown transaction", "code", uint32(code))
		return nil, UnknownTransaction
	}
	op := operations[code]

	req := parcel.From(data)
	if op.PassThrough {
		SkipInterfaceToken(req)
	} else if !req.EnforceInterface(Descriptor) {
		d.log.Warn("interface token mismatch", "op", op.Name)
		return nil, PermissionDenied
	}

	if err := op.checkRequest(req); err != nil {
		d.log.Debug("malformed request", "op", op.Name, "error", err)
		return nil, decodeStatus(err)
	}

	reply := parcel.New()
	if err := d.invoke(ctx, op, h, req, reply); err != nil {
		return nil, StatusFromError(err)
	}
	return reply.Bytes(), nil
}

func (d *Dispatcher) invoke(ctx context.Context, op Operation, h operationHandler, req, reply *parcel.Parcel) (err error) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("player panicked", "op", op.Name, "panic", r, "stack", string(debug.Stack()))
			err = UnknownError
		}
	}()
	return h(ctx, req, reply)
}

// SkipInterfaceToken consumes a leading interface token when one is present
// and otherwise leaves req untouched. Players reached both through a
// Dispatcher and in process use it on pass-through requests.
func SkipInterfaceToken(req *parcel.Parcel) {
	probe := parcel.From(req.Bytes())
	probe.SetDataPosition(req.DataPosition())
	if probe.EnforceInterface(Descriptor) {
		req.SetDataPosition(probe.DataPosition())
	}
}

// decodeStatus classifies a request decode failure.
func decodeStatus(err error) Status {
	switch {
	case errors.Is(err, parcel.ErrBadObject), errors.Is(err, parcel.ErrBadLength):
		return BadValue
	default:
		return NotEnoughData
	}
}

// decoded reports a decode failure recorded in req while reading fields.
func decoded(req *parcel.Parcel) error {
	if err := req.Err(); err != nil {
		return decodeStatus(err)
	}
	return nil
}

func writeStatus(reply *parcel.Parcel, err error) {
	reply.WriteInt32(int32(StatusFromError(err)))
}

func action(fn func(context.Context) error) operationHandler {
	return func(ctx context.Context, _, reply *parcel.Parcel) error {
		writeStatus(reply, fn(ctx))
		return nil
	}
}

func setInt32(fn func(context.Context, int32) error) operationHandler {
	return func(ctx context.Context, req, reply *parcel.Parcel) error {
		v := req.ReadInt32()
		if err := decoded(req); err != nil {
			return err
		}
		writeStatus(reply, fn(ctx, v))
		return nil
	}
}

func setFloat32(fn func(context.Context, float32) error) operationHandler {
	return func(ctx context.Context, req, reply *parcel.Parcel) error {
		v := req.ReadFloat32()
		if err := decoded(req); err != nil {
			return err
		}
		writeStatus(reply, fn(ctx, v))
		return nil
	}
}

func setBool(fn func(context.Context, bool) error) operationHandler {
	return func(ctx context.Context, req, reply *parcel.Parcel) error {
		v := req.ReadBool()
		if err := decoded(req); err != nil {
			return err
		}
		writeStatus(reply, fn(ctx, v))
		return nil
	}
}

func setHandle(fn func(context.Context, Handle) error) operationHandler {
	return func(ctx context.Context, req, reply *parcel.Parcel) error {
		h := Handle(req.ReadHandle())
		if err := decoded(req); err != nil {
			return err
		}
		writeStatus(reply, fn(ctx, h))
		return nil
	}
}

// getInt32 encodes an accessor reply: value first, status second.
func getInt32(fn func(context.Context) (int32, error)) operationHandler {
	return func(ctx context.Context, _, reply *parcel.Parcel) error {
		v, err := fn(ctx)
		reply.WriteInt32(v)
		writeStatus(reply, err)
		return nil
	}
}

func (d *Dispatcher) baseHandlers() map[Code]operationHandler {
	p := d.impl
	return map[Code]operationHandler{
		OpDisconnect: func(ctx context.Context, _, _ *parcel.Parcel) error {
			if err := p.Disconnect(ctx); err != nil {
				d.log.Debug("disconnect failed", "error", err)
			}
			return nil
		},
		OpSetDataSourceURL: func(ctx context.Context, req, reply *parcel.Parcel) error {
			url := req.ReadCString()
			headers := req.ReadPairs()
			if err := decoded(req); err != nil {
				return err
			}
			if len(headers) == 0 {
				headers = nil
			}
			writeStatus(reply, p.SetDataSourceURL(ctx, url, headers))
			return nil
		},
		OpSetDataSourceFD: func(ctx context.Context, req, reply *parcel.Parcel) error {
			fd := req.ReadFileDescriptor()
			offset := req.ReadInt64()
			length := req.ReadInt64()
			if err := decoded(req); err != nil {
				return err
			}
			writeStatus(reply, p.SetDataSourceFD(ctx, fd, offset, length))
			return nil
		},
		OpSetDataSourceStream:    setHandle(p.SetDataSourceStream),
		OpSetVideoSurfaceTexture: setHandle(p.SetVideoSurfaceTexture),
		OpPrepareAsync:           action(p.PrepareAsync),
		OpStart:                  action(p.Start),
		OpStop:                   action(p.Stop),
		OpIsPlaying: func(ctx context.Context, _, reply *parcel.Parcel) error {
			playing, err := p.IsPlaying(ctx)
			reply.WriteBool(playing)
			writeStatus(reply, err)
			return nil
		},
		OpPause:              action(p.Pause),
		OpSeekTo:             setInt32(p.SeekTo),
		OpGetCurrentPosition: getInt32(p.GetCurrentPosition),
		OpGetDuration:        getInt32(p.GetDuration),
		OpReset:              action(p.Reset),
		OpSetAudioStreamType: setInt32(p.SetAudioStreamType),
		OpSetLooping:         setBool(p.SetLooping),
		OpSetVolume: func(ctx context.Context, req, reply *parcel.Parcel) error {
			left := req.ReadFloat32()
			right := req.ReadFloat32()
			if err := decoded(req); err != nil {
				return err
			}
			writeStatus(reply, p.SetVolume(ctx, left, right))
			return nil
		},
		OpInvoke: func(ctx context.Context, req, reply *parcel.Parcel) error {
			return StatusFromError(p.Invoke(ctx, req, reply)).Err()
		},
		OpSetMetadataFilter: func(ctx context.Context, req, reply *parcel.Parcel) error {
			writeStatus(reply, p.SetMetadataFilter(ctx, req))
			return nil
		},
		OpGetMetadata: func(ctx context.Context, req, reply *parcel.Parcel) error {
			updateOnly := req.ReadBool()
			applyFilter := req.ReadBool()
			if err := decoded(req); err != nil {
				return err
			}
			err := p.GetMetadata(ctx, updateOnly, applyFilter, reply)
			// The status goes in front of whatever body the player wrote.
			reply.SetDataPosition(0)
			reply.InsertInt32(int32(StatusFromError(err)))
			reply.SetDataPosition(0)
			return nil
		},
		OpSetAuxEffectSendLevel: setFloat32(p.SetAuxEffectSendLevel),
		OpAttachAuxEffect:       setInt32(p.AttachAuxEffect),
		OpSetParameter: func(ctx context.Context, req, reply *parcel.Parcel) error {
			key := req.ReadInt32()
			if err := decoded(req); err != nil {
				return err
			}
			value := parcel.From(req.ReadRemaining())
			writeStatus(reply, p.SetParameter(ctx, key, value))
			return nil
		},
		OpGetParameter: func(ctx context.Context, req, reply *parcel.Parcel) error {
			key := req.ReadInt32()
			if err := decoded(req); err != nil {
				return err
			}
			return StatusFromError(p.GetParameter(ctx, key, reply)).Err()
		},
	}
}
