// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package mediaplayer

import (
	"context"
	"crypto/tls"
	"log/slog"
)

// Channel is the client end of a transport. Each Transact is one
// synchronous round trip: request bytes out, reply bytes back.
//
// A non-nil error is either a Status reported by the remote side as the
// transaction status, or a local transport failure.
type Channel interface {
	Transact(ctx context.Context, code Code, data []byte) ([]byte, error)
	Close() error
}

// Handler serves transactions on the service side. A returned error is sent
// back as the transaction status and the reply bytes are dropped.
type Handler interface {
	Transact(ctx context.Context, code Code, data []byte) ([]byte, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, code Code, data []byte) ([]byte, error)

func (f HandlerFunc) Transact(ctx context.Context, code Code, data []byte) ([]byte, error) {
	return f(ctx, code, data)
}

// Server accepts channels and feeds their transactions to a Handler.
type Server interface {
	// Serve blocks until the context is cancelled or the server is closed.
	Serve(ctx context.Context) error

	Close() error

	// Addr returns the server's listen address
	Addr() string
}

// DialOption configures client connections
type DialOption func(*dialOptions)

type dialOptions struct {
	transport      string
	tlsConfig      *tls.Config
	log            *slog.Logger
	maxMessageSize int
}

// WithTransport explicitly sets the transport type
func WithTransport(t string) DialOption {
	return func(o *dialOptions) { o.transport = t }
}

// WithTLSConfig sets the client TLS configuration for transports that use it.
func WithTLSConfig(c *tls.Config) DialOption {
	return func(o *dialOptions) { o.tlsConfig = c }
}

// WithLogger sets the client logger.
func WithLogger(l *slog.Logger) DialOption {
	return func(o *dialOptions) { o.log = l }
}

// WithMaxMessageSize bounds the size of a single reply.
func WithMaxMessageSize(n int) DialOption {
	return func(o *dialOptions) { o.maxMessageSize = n }
}

// ServerOption configures servers
type ServerOption func(*serverOptions)

type serverOptions struct {
	transport      string
	tlsConfig      *tls.Config
	log            *slog.Logger
	maxMessageSize int
}

// WithServerTransport explicitly sets the transport type for the server
func WithServerTransport(t string) ServerOption {
	return func(o *serverOptions) { o.transport = t }
}

// WithServerTLSConfig sets the server certificate configuration. QUIC
// servers generate a self-signed certificate when none is given.
func WithServerTLSConfig(c *tls.Config) ServerOption {
	return func(o *serverOptions) { o.tlsConfig = c }
}

// WithServerLogger sets the server logger.
func WithServerLogger(l *slog.Logger) ServerOption {
	return func(o *serverOptions) { o.log = l }
}

// WithServerMaxMessageSize bounds the size of a single request.
func WithServerMaxMessageSize(n int) ServerOption {
	return func(o *serverOptions) { o.maxMessageSize = n }
}
