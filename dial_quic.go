// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package mediaplayer

import (
	"context"
	"crypto/tls"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/quic-go/quic-go"
)

// QUICProtocol is the ALPN token negotiated by the QUIC transport.
const QUICProtocol = "mediaplayer"

var ErrQUICInvalidResp = errors.New("quic: invalid response")

const (
	quicIdleTimeout = 30 * time.Second
	quicKeepAlive   = 10 * time.Second

	quicCancelled quic.StreamErrorCode = 1
)

func init() {
	registerTransport(TransportQUIC, dialQUIC, listenQUIC)
}

func quicConfig() *quic.Config {
	return &quic.Config{
		MaxIdleTimeout:  quicIdleTimeout,
		KeepAlivePeriod: quicKeepAlive,
	}
}

// quicChannel opens one bidirectional stream per transaction:
// [4 code][payload] out, [4 status][payload] back, little-endian.
type quicChannel struct {
	conn    quic.Connection
	maxSize int
}

// dialQUIC connects to a QUIC service. Without WithTLSConfig the server
// certificate is not verified; pass a config that pins the fingerprint
// printed by the service for anything beyond local use.
func dialQUIC(ctx context.Context, addr string, o *dialOptions) (Channel, error) {
	tlsConf := o.tlsConfig
	if tlsConf == nil {
		tlsConf = &tls.Config{InsecureSkipVerify: true}
	} else {
		tlsConf = tlsConf.Clone()
	}
	tlsConf.NextProtos = []string{QUICProtocol}

	conn, err := quic.DialAddr(ctx, addr, tlsConf, quicConfig())
	if err != nil {
		return nil, fmt.Errorf("quic dial: %w", err)
	}
	return &quicChannel{conn: conn, maxSize: o.maxMessageSize}, nil
}

func (c *quicChannel) Transact(ctx context.Context, code Code, data []byte) ([]byte, error) {
	str, err := c.conn.OpenStreamSync(ctx)
	if err != nil {
		return nil, fmt.Errorf("quic open stream: %w", err)
	}
	stop := context.AfterFunc(ctx, func() {
		str.CancelRead(quicCancelled)
		str.CancelWrite(quicCancelled)
	})
	defer stop()

	buf := make([]byte, 4+len(data))
	binary.LittleEndian.PutUint32(buf, uint32(code))
	copy(buf[4:], data)
	if _, err := str.Write(buf); err != nil {
		return nil, fmt.Errorf("quic write: %w", err)
	}
	if err := str.Close(); err != nil {
		return nil, fmt.Errorf("quic close send: %w", err)
	}

	resp, err := readLimited(str, c.maxSize)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("quic read: %w", err)
	}
	if len(resp) < 4 {
		return nil, ErrQUICInvalidResp
	}
	if status := Status(int32(binary.LittleEndian.Uint32(resp))); status != OK {
		return nil, status
	}
	return resp[4:], nil
}

func (c *quicChannel) Close() error {
	return c.conn.CloseWithError(0, "")
}

func readLimited(r io.Reader, maxSize int) ([]byte, error) {
	b, err := io.ReadAll(io.LimitReader(r, int64(maxSize)+1))
	if err != nil {
		return nil, err
	}
	if len(b) > maxSize {
		return nil, fmt.Errorf("%d bytes exceeds %d", len(b), maxSize)
	}
	return b, nil
}

type quicServer struct {
	ln      *quic.Listener
	handler Handler
	log     *slog.Logger
	maxSize int
	closed  atomic.Bool
}

func listenQUIC(addr string, h Handler, o *serverOptions) (Server, error) {
	log := o.log
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "quic")

	var fingerprint string
	tlsConf := o.tlsConfig
	if tlsConf == nil {
		cert, fp, err := SelfSignedCert()
		if err != nil {
			return nil, err
		}
		tlsConf = &tls.Config{Certificates: []tls.Certificate{cert}}
		fingerprint = fp
	} else {
		tlsConf = tlsConf.Clone()
	}
	tlsConf.NextProtos = []string{QUICProtocol}

	ln, err := quic.ListenAddr(addr, tlsConf, quicConfig())
	if err != nil {
		return nil, fmt.Errorf("quic listen: %w", err)
	}
	if fingerprint != "" {
		log.Info("self-signed certificate", "addr", ln.Addr().String(), "sha256", fingerprint)
	}
	return &quicServer{ln: ln, handler: h, log: log, maxSize: o.maxMessageSize}, nil
}

func (s *quicServer) Serve(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { s.Close() })
	defer stop()

	for {
		conn, err := s.ln.Accept(ctx)
		if err != nil {
			if s.closed.Load() || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("quic accept: %w", err)
		}
		go s.serveConn(ctx, conn)
	}
}

func (s *quicServer) serveConn(ctx context.Context, conn quic.Connection) {
	for {
		str, err := conn.AcceptStream(ctx)
		if err != nil {
			return
		}
		go s.serveStream(ctx, str)
	}
}

func (s *quicServer) serveStream(ctx context.Context, str quic.Stream) {
	defer str.Close()

	req, err := readLimited(str, s.maxSize)
	if err != nil || len(req) < 4 {
		s.log.Debug("dropping malformed request", "error", err, "bytes", len(req))
		str.CancelWrite(quicCancelled)
		return
	}
	code := Code(binary.LittleEndian.Uint32(req))

	data, err := s.handler.Transact(ctx, code, req[4:])
	status := StatusFromError(err)
	if status != OK {
		data = nil
	}

	buf := make([]byte, 4+len(data))
	binary.LittleEndian.PutUint32(buf, uint32(int32(status)))
	copy(buf[4:], data)
	if _, err := str.Write(buf); err != nil {
		s.log.Debug("reply write failed", "code", code.String(), "error", err)
	}
}

func (s *quicServer) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.ln.Close()
}

func (s *quicServer) Addr() string {
	return s.ln.Addr().String()
}
