// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package mediaplayer

import (
	"context"
	"fmt"
	"net"
	"slices"
)

// Dial opens a channel to a service using the default transport (ZAP).
// Use WithTransport for transport selection.
func Dial(ctx context.Context, addr string, opts ...DialOption) (Channel, error) {
	o := &dialOptions{
		transport:      DefaultTransport,
		maxMessageSize: DefaultMaxMessageSize,
	}
	for _, opt := range opts {
		opt(o)
	}

	t, ok := lookupTransport(o.transport)
	if !ok {
		return nil, fmt.Errorf("unknown transport: %s", o.transport)
	}
	return t.dial(ctx, addr, o)
}

// DialPlayer dials addr and wraps the channel in a Proxy. Closing the proxy
// closes the channel.
func DialPlayer(ctx context.Context, addr string, opts ...DialOption) (*Proxy, error) {
	ch, err := Dial(ctx, addr, opts...)
	if err != nil {
		return nil, err
	}
	return NewProxy(ch), nil
}

// Listen creates a server that feeds h using the default transport (ZAP).
func Listen(addr string, h Handler, opts ...ServerOption) (Server, error) {
	o := &serverOptions{
		transport:      DefaultTransport,
		maxMessageSize: DefaultMaxMessageSize,
	}
	for _, opt := range opts {
		opt(o)
	}

	t, ok := lookupTransport(o.transport)
	if !ok {
		return nil, fmt.Errorf("unknown transport: %s", o.transport)
	}
	return t.listen(addr, h, o)
}

// dialZAP creates a ZAP client
func dialZAP(ctx context.Context, addr string, o *dialOptions) (Channel, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("zap dial: %w", err)
	}
	return newZAPConn(conn, o.maxMessageSize), nil
}

// listenZAP creates a ZAP server
func listenZAP(addr string, h Handler, o *serverOptions) (Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	s := NewZAPServer(listener, h, o.log)
	s.maxSize = o.maxMessageSize
	return s, nil
}

// Loopback connects a client directly to a Handler in the same process.
// Request and reply bytes are copied so neither side shares a buffer with
// the other.
type Loopback struct {
	h Handler
}

func NewLoopback(h Handler) *Loopback {
	return &Loopback{h: h}
}

func (l *Loopback) Transact(ctx context.Context, code Code, data []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	reply, err := l.h.Transact(ctx, code, slices.Clone(data))
	if err != nil {
		// Same mapping a network transport applies to the status word.
		return nil, StatusFromError(err)
	}
	return slices.Clone(reply), nil
}

func (l *Loopback) Close() error { return nil }
