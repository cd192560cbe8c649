//go:build grpc

// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package mediaplayer

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	grpcstatus "google.golang.org/grpc/status"
)

// grpcMethod is the single generic method every transaction travels on.
const grpcMethod = "/" + Descriptor + "/Transact"

const (
	grpcCodeKey   = "x-mediaplayer-code"
	grpcStatusKey = "x-mediaplayer-status"
)

func init() {
	// Register gRPC transport when build tag is enabled
	registerTransport(TransportGRPC, dialGRPC, listenGRPC)
}

func dialGRPC(ctx context.Context, addr string, o *dialOptions) (Channel, error) {
	creds := insecure.NewCredentials()
	if o.tlsConfig != nil {
		creds = credentials.NewTLS(o.tlsConfig)
	}
	conn, err := grpc.NewClient(addr,
		grpc.WithTransportCredentials(creds),
		grpc.WithDefaultCallOptions(
			grpc.ForceCodec(frameCodec{}),
			grpc.MaxCallRecvMsgSize(o.maxMessageSize),
			grpc.MaxCallSendMsgSize(o.maxMessageSize),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("grpc dial: %w", err)
	}
	return &grpcChannel{conn: conn}, nil
}

type grpcChannel struct {
	conn *grpc.ClientConn
}

func (c *grpcChannel) Transact(ctx context.Context, code Code, data []byte) ([]byte, error) {
	ctx = metadata.AppendToOutgoingContext(ctx, grpcCodeKey, strconv.FormatUint(uint64(code), 10))

	var (
		reply   []byte
		trailer metadata.MD
	)
	if err := c.conn.Invoke(ctx, grpcMethod, data, &reply, grpc.Trailer(&trailer)); err != nil {
		return nil, err
	}
	if v := trailer.Get(grpcStatusKey); len(v) > 0 {
		n, err := strconv.ParseInt(v[0], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("grpc: bad status trailer %q", v[0])
		}
		if status := Status(n); status != OK {
			return nil, status
		}
	}
	return reply, nil
}

func (c *grpcChannel) Close() error {
	return c.conn.Close()
}

type grpcServer struct {
	lis     net.Listener
	srv     *grpc.Server
	handler Handler
	log     *slog.Logger
}

func listenGRPC(addr string, h Handler, o *serverOptions) (Server, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	log := o.log
	if log == nil {
		log = slog.Default()
	}
	s := &grpcServer{lis: lis, handler: h, log: log.With("component", "grpc")}

	opts := []grpc.ServerOption{
		grpc.ForceServerCodec(frameCodec{}),
		grpc.MaxRecvMsgSize(o.maxMessageSize),
		grpc.MaxSendMsgSize(o.maxMessageSize),
		grpc.UnknownServiceHandler(s.handleStream),
	}
	if o.tlsConfig != nil {
		opts = append(opts, grpc.Creds(credentials.NewTLS(o.tlsConfig)))
	}
	s.srv = grpc.NewServer(opts...)
	return s, nil
}

func (s *grpcServer) handleStream(_ any, stream grpc.ServerStream) error {
	method, _ := grpc.MethodFromServerStream(stream)
	if method != grpcMethod {
		s.log.Debug("rejecting unknown method", "method", method)
		return grpcstatus.Errorf(codes.Unimplemented, "unknown method %s", method)
	}

	ctx := stream.Context()
	md, _ := metadata.FromIncomingContext(ctx)
	v := md.Get(grpcCodeKey)
	if len(v) == 0 {
		return grpcstatus.Error(codes.InvalidArgument, "missing operation code")
	}
	code, err := strconv.ParseUint(v[0], 10, 32)
	if err != nil {
		return grpcstatus.Errorf(codes.InvalidArgument, "bad operation code %q", v[0])
	}

	var req []byte
	if err := stream.RecvMsg(&req); err != nil {
		return err
	}

	reply, err := s.handler.Transact(ctx, Code(code), req)
	status := StatusFromError(err)
	if status != OK {
		reply = nil
	}
	stream.SetTrailer(metadata.Pairs(grpcStatusKey, strconv.FormatInt(int64(status), 10)))
	return stream.SendMsg(reply)
}

func (s *grpcServer) Serve(ctx context.Context) error {
	stop := context.AfterFunc(ctx, s.srv.Stop)
	defer stop()
	if err := s.srv.Serve(s.lis); err != nil && err != grpc.ErrServerStopped {
		return err
	}
	return nil
}

func (s *grpcServer) Close() error {
	s.srv.Stop()
	return nil
}

func (s *grpcServer) Addr() string {
	return s.lis.Addr().String()
}
