// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package mediaplayer

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestQUICRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	server, err := Listen("127.0.0.1:0", echo, WithServerTransport(TransportQUIC))
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer server.Close()
	go server.Serve(ctx)

	client, err := Dial(ctx, server.Addr(), WithTransport(TransportQUIC))
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer client.Close()

	resp, err := client.Transact(ctx, OpInvoke, []byte("ping"))
	if err != nil {
		t.Fatalf("Transact: %v", err)
	}
	if string(resp) != "ping" {
		t.Errorf("got %q, want ping", resp)
	}

	_, err = client.Transact(ctx, OpReset, nil)
	if !errors.Is(err, InvalidOperation) {
		t.Errorf("got %v, want %v", err, InvalidOperation)
	}
}

func TestQUICPlayer(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stub := newStub()
	stub.duration = 90000
	server, err := Listen("127.0.0.1:0", NewDispatcher(stub), WithServerTransport(TransportQUIC))
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer server.Close()
	go server.Serve(ctx)

	px, err := DialPlayer(ctx, server.Addr(), WithTransport(TransportQUIC))
	if err != nil {
		t.Fatalf("DialPlayer: %v", err)
	}
	defer px.Close()

	if err := SetDataSource(ctx, px, URLSource{URL: "http://example.com/a.mp4"}); err != nil {
		t.Fatalf("SetDataSource: %v", err)
	}
	if stub.url != "http://example.com/a.mp4" {
		t.Errorf("url got %q", stub.url)
	}
	d, err := px.GetDuration(ctx)
	if err != nil || d != 90000 {
		t.Errorf("got (%d, %v), want (90000, nil)", d, err)
	}
}

func TestQUICRequestTooLarge(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	server, err := Listen("127.0.0.1:0", echo,
		WithServerTransport(TransportQUIC),
		WithServerMaxMessageSize(64),
	)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer server.Close()
	go server.Serve(ctx)

	client, err := Dial(ctx, server.Addr(), WithTransport(TransportQUIC))
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer client.Close()

	if _, err := client.Transact(ctx, OpInvoke, make([]byte, 1024)); err == nil {
		t.Error("oversized request succeeded")
	}
}
