// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package mediaplayer

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

var (
	ErrZAPClosed      = errors.New("zap: connection closed")
	ErrZAPInvalidResp = errors.New("zap: invalid response")
	ErrZAPTooLarge    = errors.New("zap: message too large")
)

// DefaultMaxMessageSize caps a single frame.
const DefaultMaxMessageSize = 64 << 20

// MessageType identifies ZAP message types
type MessageType uint8

const (
	MsgRequest MessageType = 0x01
	MsgReply   MessageType = 0x02
)

// zapHeaderSize covers type, request id and code (requests) or status
// (replies); the 4-byte length prefix comes before it.
const zapHeaderSize = 1 + 4 + 4

const zapWriteTimeout = 30 * time.Second

// ZAPConn is a client channel over one TCP connection. Concurrent
// transactions are matched to their replies by request id.
type ZAPConn struct {
	conn     net.Conn
	writeMu  sync.Mutex
	pending  sync.Map // requestID -> chan zapReply
	nextID   atomic.Uint32
	closed   atomic.Bool
	readDone chan struct{}
	maxSize  int
}

type zapReply struct {
	status Status
	data   []byte
}

func newZAPConn(conn net.Conn, maxSize int) *ZAPConn {
	zc := &ZAPConn{
		conn:     conn,
		readDone: make(chan struct{}),
		maxSize:  maxSize,
	}
	go zc.readLoop()
	return zc
}

// Transact sends one request and waits for its reply. A non-OK transaction
// status comes back as a Status error.
func (z *ZAPConn) Transact(ctx context.Context, code Code, data []byte) ([]byte, error) {
	if z.closed.Load() {
		return nil, ErrZAPClosed
	}
	if zapHeaderSize+len(data) > z.maxSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrZAPTooLarge, len(data))
	}

	requestID := z.nextID.Add(1)
	replyCh := make(chan zapReply, 1)
	z.pending.Store(requestID, replyCh)
	defer z.pending.Delete(requestID)

	// Encode: [4 len][1 type][4 reqID][4 code][payload]
	buf := make([]byte, 4+zapHeaderSize+len(data))
	binary.BigEndian.PutUint32(buf[0:4], uint32(zapHeaderSize+len(data)))
	buf[4] = byte(MsgRequest)
	binary.BigEndian.PutUint32(buf[5:9], requestID)
	binary.BigEndian.PutUint32(buf[9:13], uint32(code))
	copy(buf[13:], data)

	z.writeMu.Lock()
	_, err := z.conn.Write(buf)
	z.writeMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("zap write: %w", err)
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case reply := <-replyCh:
		if reply.status != OK {
			return nil, reply.status
		}
		return reply.data, nil
	case <-z.readDone:
		return nil, ErrZAPClosed
	}
}

func (z *ZAPConn) readLoop() {
	defer close(z.readDone)

	for {
		msg, err := readFrame(z.conn, z.maxSize)
		if err != nil {
			return
		}
		if len(msg) < zapHeaderSize || MessageType(msg[0]) != MsgReply {
			continue
		}

		requestID := binary.BigEndian.Uint32(msg[1:5])
		status := Status(int32(binary.BigEndian.Uint32(msg[5:9])))

		if ch, ok := z.pending.Load(requestID); ok {
			ch.(chan zapReply) <- zapReply{status: status, data: msg[zapHeaderSize:]}
		}
	}
}

// readFrame reads one length-prefixed frame.
func readFrame(r io.Reader, maxSize int) ([]byte, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}
	msgLen := binary.BigEndian.Uint32(header[:])
	if msgLen == 0 || int64(msgLen) > int64(maxSize) {
		return nil, fmt.Errorf("%w: %d bytes", ErrZAPTooLarge, msgLen)
	}
	msg := make([]byte, msgLen)
	if _, err := io.ReadFull(r, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// Close closes the connection
func (z *ZAPConn) Close() error {
	if z.closed.Swap(true) {
		return nil
	}
	return z.conn.Close()
}

// ZAPServer feeds requests from accepted TCP connections to a Handler. Each
// request runs on its own goroutine; replies share a per-connection write
// lock.
type ZAPServer struct {
	listener net.Listener
	handler  Handler
	log      *slog.Logger
	maxSize  int
	conns    sync.Map
	closed   atomic.Bool
}

// NewZAPServer creates a new ZAP server. A nil logger uses slog.Default.
func NewZAPServer(listener net.Listener, handler Handler, log *slog.Logger) *ZAPServer {
	if log == nil {
		log = slog.Default()
	}
	return &ZAPServer{
		listener: listener,
		handler:  handler,
		log:      log.With("component", "zap"),
		maxSize:  DefaultMaxMessageSize,
	}
}

// Serve accepts connections until the server is closed or ctx is done.
func (s *ZAPServer) Serve(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { s.Close() })
	defer stop()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.closed.Load() {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			return fmt.Errorf("zap accept: %w", err)
		}
		go s.handleConn(ctx, conn)
	}
}

func (s *ZAPServer) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	s.conns.Store(conn, struct{}{})
	defer s.conns.Delete(conn)

	var writeMu sync.Mutex
	for {
		msg, err := readFrame(conn, s.maxSize)
		if err != nil {
			if !errors.Is(err, io.EOF) && !s.closed.Load() {
				s.log.Debug("connection dropped", "remote", conn.RemoteAddr().String(), "error", err)
			}
			return
		}
		if len(msg) < zapHeaderSize || MessageType(msg[0]) != MsgRequest {
			continue
		}

		requestID := binary.BigEndian.Uint32(msg[1:5])
		code := Code(binary.BigEndian.Uint32(msg[5:9]))
		payload := msg[zapHeaderSize:]

		go func() {
			data, err := s.handler.Transact(ctx, code, payload)
			s.sendReply(conn, &writeMu, requestID, data, err)
		}()
	}
}

func (s *ZAPServer) sendReply(conn net.Conn, writeMu *sync.Mutex, requestID uint32, data []byte, err error) {
	status := StatusFromError(err)
	if status != OK {
		data = nil
	}

	buf := make([]byte, 4+zapHeaderSize+len(data))
	binary.BigEndian.PutUint32(buf[0:4], uint32(zapHeaderSize+len(data)))
	buf[4] = byte(MsgReply)
	binary.BigEndian.PutUint32(buf[5:9], requestID)
	binary.BigEndian.PutUint32(buf[9:13], uint32(int32(status)))
	copy(buf[13:], data)

	writeMu.Lock()
	defer writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(zapWriteTimeout))
	if _, err := conn.Write(buf); err != nil {
		s.log.Debug("reply write failed", "request", requestID, "error", err)
	}
}

// Close closes the server
func (s *ZAPServer) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	s.conns.Range(func(key, _ any) bool {
		key.(net.Conn).Close()
		return true
	})
	return s.listener.Close()
}

// Addr returns the listener address
func (s *ZAPServer) Addr() string {
	return s.listener.Addr().String()
}
