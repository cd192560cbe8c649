// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package mediaplayer implements the remote control protocol of a media
// playback service: a client Proxy that turns method calls into binary
// requests, and a service Dispatcher that decodes them, calls a local Player
// and encodes the replies.
//
// # Wire Contract
//
// Every operation has a fixed Code. Requests start with the interface token
// (Descriptor) followed by the operation's fields, encoded with package
// parcel: little-endian, 4-byte aligned. Codes 1 through 24 are the baseline
// operations; 25 through 58 are optional vendor extensions for subtitles,
// audio tracks and stereoscopic output. Lookup and Operations describe the
// shape of each request and reply.
//
// Results travel two ways. The transaction status is the outcome of the
// round trip itself (UnknownTransaction, PermissionDenied for a bad token,
// NotEnoughData for a short request). Player results are encoded in the
// reply body, usually as a trailing status word.
//
// # Transport Selection
//
// ZAP (length-prefixed frames over TCP) is the default transport. QUIC is
// always available; gRPC needs a build tag:
//
//	go build              # ZAP and QUIC
//	go build -tags grpc   # Enable gRPC transport
//
// # Usage
//
// Service side:
//
//	d := mediaplayer.NewDispatcher(player, mediaplayer.WithExtensions(true))
//	server, err := mediaplayer.Listen(":7700", d)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	server.Serve(ctx)
//
// Client side:
//
//	px, err := mediaplayer.DialPlayer(ctx, "localhost:7700")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer px.Close()
//
//	err = mediaplayer.SetDataSource(ctx, px, mediaplayer.URLSource{URL: "http://host/clip.mp4"})
//	err = px.PrepareAsync(ctx)
//	err = px.Start(ctx)
//	pos, err := px.GetCurrentPosition(ctx)
//
// In-process, NewLoopback connects a Proxy straight to a Dispatcher.
//
// # Architecture
//
//   - contract.go: operation codes, field types and the contract table
//   - player.go: Player and Extensions capability sets, media sources
//   - proxy.go, proxy_ext.go: client Proxy
//   - dispatcher.go, dispatcher_ext.go: service Dispatcher
//   - client.go: Channel, Handler and Server interfaces and options
//   - transport.go: transport registry for build-tag extensibility
//   - dial.go: Dial and Listen factory functions, Loopback
//   - zap.go: ZAP transport implementation (default)
//   - dial_quic.go: QUIC transport
//   - dial_grpc.go: gRPC transport (requires -tags grpc)
//   - json.go: JSON-RPC bridge over HTTP
//   - metadata.go, params.go: metadata and parameter encodings
package mediaplayer
