// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package mediaplayer

import (
	"context"
	"io"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"
)

func newJSONServer(t *testing.T, p Player) *url.URL {
	t.Helper()
	h, err := NewJSONHandler(p, nil)
	if err != nil {
		t.Fatalf("NewJSONHandler: %v", err)
	}
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	return u
}

func TestJSONBridge(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stub := newStub()
	stub.duration = 4000
	px, _ := newPair(stub)
	uri := newJSONServer(t, px)

	var status StatusReply
	err := SendJSONRequest(ctx, uri, "Player.SetDataSource",
		&SourceArgs{URL: "rtsp://cam/1", Headers: []HeaderArg{{Key: "Cookie", Value: "a=b"}}}, &status, nil)
	if err != nil {
		t.Fatalf("SetDataSource: %v", err)
	}
	if status.Status != 0 || stub.url != "rtsp://cam/1" || len(stub.headers) != 1 {
		t.Errorf("got status %d url %q headers %v", status.Status, stub.url, stub.headers)
	}

	if err := SendJSONRequest(ctx, uri, "Player.SeekTo", &SeekArgs{Msec: 1200}, &status, nil); err != nil {
		t.Fatalf("SeekTo: %v", err)
	}

	var state StateReply
	if err := SendJSONRequest(ctx, uri, "Player.State", &NoArgs{}, &state, nil); err != nil {
		t.Fatalf("State: %v", err)
	}
	if state.Position != 1200 || state.Duration != 4000 || state.Status != 0 {
		t.Errorf("state got %+v", state)
	}
}

func TestJSONBridgeReportsStatus(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stub := newStub()
	stub.err = InvalidOperation
	px, _ := newPair(stub)
	uri := newJSONServer(t, px)

	var status StatusReply
	if err := SendJSONRequest(ctx, uri, "Player.Start", &NoArgs{}, &status, nil); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if status.Status != int32(InvalidOperation) || status.Error == "" {
		t.Errorf("got %+v, want status %d", status, InvalidOperation)
	}
}

func TestJSONBridgeUnreachablePlayer(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	uri := newJSONServer(t, NewProxy(failingChannel{err: io.ErrClosedPipe}))

	var status StatusReply
	if err := SendJSONRequest(ctx, uri, "Player.Pause", &NoArgs{}, &status, nil); err == nil {
		t.Error("unreachable player reported success")
	}
}

func TestJSONDescribe(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	uri := newJSONServer(t, newStub())

	var desc DescribeReply
	if err := SendJSONRequest(ctx, uri, "Player.Describe", &NoArgs{}, &desc, nil); err != nil {
		t.Fatalf("Describe: %v", err)
	}
	if desc.Descriptor != Descriptor || len(desc.Operations) != 58 {
		t.Errorf("got %s with %d operations", desc.Descriptor, len(desc.Operations))
	}
	if op := desc.Operations[OpSetDataSourceURL-FirstCall]; op.Name != "SetDataSourceURL" || op.Request[0] != "cstring" {
		t.Errorf("SetDataSourceURL got %+v", op)
	}
}

func TestJSONHeadersKeepOrder(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stub := newStub()
	px, _ := newPair(stub)
	uri := newJSONServer(t, px)

	args := &SourceArgs{URL: "http://cdn/a.mp4", Headers: []HeaderArg{
		{Key: "X-Z", Value: "1"},
		{Key: "Cookie", Value: "a=b"},
		{Key: "X-A", Value: "2"},
		{Key: "Cookie", Value: "c=d"},
		{Key: "Accept", Value: "*/*"},
		{Key: "X-M", Value: "3"},
	}}
	for range 5 {
		var status StatusReply
		if err := SendJSONRequest(ctx, uri, "Player.SetDataSource", args, &status, nil); err != nil {
			t.Fatalf("SetDataSource: %v", err)
		}
		if len(stub.headers) != len(args.Headers) {
			t.Fatalf("got %d headers, want %d", len(stub.headers), len(args.Headers))
		}
		for i, h := range args.Headers {
			if got := stub.headers[i]; got.Key != h.Key || got.Value != h.Value {
				t.Errorf("header %d got %s=%s, want %s=%s", i, got.Key, got.Value, h.Key, h.Value)
			}
		}
	}
}
