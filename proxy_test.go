// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package mediaplayer

import (
	"bytes"
	"context"
	"errors"
	"io"
	"math"
	"slices"
	"testing"

	"github.com/luxfi/mediaplayer/parcel"
)

// capture records the last request a proxy sent before handing it on.
type capture struct {
	next Handler
	code Code
	data []byte
}

func (c *capture) Transact(ctx context.Context, code Code, data []byte) ([]byte, error) {
	c.code = code
	c.data = slices.Clone(data)
	return c.next.Transact(ctx, code, data)
}

func newCapture(stub Player, opts ...DispatcherOption) (*Proxy, *capture) {
	c := &capture{next: NewDispatcher(stub, opts...)}
	return NewProxy(NewLoopback(c)), c
}

func TestSetDataSourceURLWithoutHeaders(t *testing.T) {
	t.Parallel()
	stub := newStub()
	px, c := newCapture(stub)

	if err := px.SetDataSourceURL(context.Background(), "http://x/a.mp4", nil); err != nil {
		t.Fatalf("SetDataSourceURL: %v", err)
	}
	if c.code != OpSetDataSourceURL {
		t.Errorf("code got %v, want %v", c.code, OpSetDataSourceURL)
	}

	want := NewRequest()
	want.WriteCString("http://x/a.mp4")
	want.WriteInt32(0)
	if !bytes.Equal(c.data, want.Bytes()) {
		t.Errorf("request got %x, want %x", c.data, want.Bytes())
	}
	if stub.url != "http://x/a.mp4" || stub.headers != nil {
		t.Errorf("player got (%q, %v)", stub.url, stub.headers)
	}
}

func TestSetDataSourceURLWithHeader(t *testing.T) {
	t.Parallel()
	stub := newStub()
	px, _ := newPair(stub)

	headers := []Header{{Key: "Cookie", Value: "a=1"}}
	if err := px.SetDataSourceURL(context.Background(), "rtsp://cam/1", headers); err != nil {
		t.Fatalf("SetDataSourceURL: %v", err)
	}
	if !slices.Equal(stub.headers, headers) {
		t.Errorf("headers got %v, want %v", stub.headers, headers)
	}
}

func TestSetDataSourceVariants(t *testing.T) {
	t.Parallel()
	tests := []struct {
		src  MediaSource
		want Code
	}{
		{URLSource{URL: "file:///a.ts"}, OpSetDataSourceURL},
		{FileSource{FD: 7, Offset: 100, Length: 4096}, OpSetDataSourceFD},
		{StreamSource{Source: 42}, OpSetDataSourceStream},
	}
	for _, tt := range tests {
		stub := newStub()
		px, c := newCapture(stub)
		if err := SetDataSource(context.Background(), px, tt.src); err != nil {
			t.Fatalf("SetDataSource(%T): %v", tt.src, err)
		}
		if c.code != tt.want {
			t.Errorf("%T: code got %v, want %v", tt.src, c.code, tt.want)
		}
	}

	stub := newStub()
	px, _ := newPair(stub)
	if err := SetDataSource(context.Background(), px, FileSource{FD: 7, Offset: 100, Length: 4096}); err != nil {
		t.Fatal(err)
	}
	if stub.fd != 7 || stub.offset != 100 || stub.length != 4096 {
		t.Errorf("fd source got (%d, %d, %d)", stub.fd, stub.offset, stub.length)
	}
	if err := SetDataSource(context.Background(), px, nil); !errors.Is(err, BadValue) {
		t.Errorf("nil source got %v, want %v", err, BadValue)
	}
}

func TestSeekThenPosition(t *testing.T) {
	t.Parallel()
	stub := newStub()
	px, _ := newPair(stub)
	ctx := context.Background()

	if err := px.SeekTo(ctx, 1500); err != nil {
		t.Fatalf("SeekTo: %v", err)
	}
	pos, err := px.GetCurrentPosition(ctx)
	if err != nil {
		t.Fatalf("GetCurrentPosition: %v", err)
	}
	if pos != 1500 {
		t.Errorf("got %d, want 1500", pos)
	}
}

func TestSetVolumeBitExact(t *testing.T) {
	t.Parallel()
	stub := newStub()
	px, c := newCapture(stub)

	if err := px.SetVolume(context.Background(), 0.5, 0.8); err != nil {
		t.Fatalf("SetVolume: %v", err)
	}
	if math.Float32bits(stub.left) != math.Float32bits(0.5) || math.Float32bits(stub.right) != math.Float32bits(0.8) {
		t.Errorf("got (%v, %v), want (0.5, 0.8)", stub.left, stub.right)
	}

	req := parcel.From(c.data)
	if !req.EnforceInterface(Descriptor) {
		t.Fatal("missing token")
	}
	if got := req.ReadUint32(); got != math.Float32bits(0.5) {
		t.Errorf("left bits got %#x", got)
	}
	if got := req.ReadUint32(); got != math.Float32bits(0.8) {
		t.Errorf("right bits got %#x", got)
	}
}

func TestAccessorStatus(t *testing.T) {
	t.Parallel()
	stub := newStub()
	stub.duration = 90000
	px, _ := newPair(stub)
	ctx := context.Background()

	d, err := px.GetDuration(ctx)
	if err != nil || d != 90000 {
		t.Fatalf("got (%d, %v), want (90000, nil)", d, err)
	}

	stub.err = InvalidOperation
	_, err = px.GetDuration(ctx)
	if !errors.Is(err, InvalidOperation) {
		t.Errorf("got %v, want %v", err, InvalidOperation)
	}

	stub.err = nil
	stub.playing = true
	playing, err := px.IsPlaying(ctx)
	if err != nil || !playing {
		t.Errorf("IsPlaying got (%v, %v)", playing, err)
	}
}

func TestActionsForwardStatus(t *testing.T) {
	t.Parallel()
	stub := newStub()
	px, _ := newPair(stub)
	ctx := context.Background()

	actions := map[string]func(context.Context) error{
		"PrepareAsync": px.PrepareAsync,
		"Start":        px.Start,
		"Stop":         px.Stop,
		"Pause":        px.Pause,
		"Reset":        px.Reset,
	}
	for name, fn := range actions {
		if err := fn(ctx); err != nil {
			t.Errorf("%s: %v", name, err)
		}
		if stub.count(name) != 1 {
			t.Errorf("%s called %d times", name, stub.count(name))
		}
	}

	stub.err = NoInit
	for name, fn := range actions {
		if err := fn(ctx); !errors.Is(err, NoInit) {
			t.Errorf("%s got %v, want %v", name, err, NoInit)
		}
	}
}

func TestScalarSetters(t *testing.T) {
	t.Parallel()
	stub := newStub()
	px, _ := newPair(stub)
	ctx := context.Background()

	if err := px.SetAudioStreamType(ctx, StreamMusic); err != nil {
		t.Fatal(err)
	}
	if err := px.SetLooping(ctx, true); err != nil {
		t.Fatal(err)
	}
	if err := px.SetAuxEffectSendLevel(ctx, 0.25); err != nil {
		t.Fatal(err)
	}
	if err := px.AttachAuxEffect(ctx, 9); err != nil {
		t.Fatal(err)
	}
	if err := px.SetDataSourceStream(ctx, 11); err != nil {
		t.Fatal(err)
	}
	if err := px.SetVideoSurfaceTexture(ctx, 12); err != nil {
		t.Fatal(err)
	}
	if stub.streamType != StreamMusic || !stub.loop || stub.auxLevel != 0.25 || stub.effect != 9 {
		t.Errorf("got stream %d loop %v aux %v effect %d", stub.streamType, stub.loop, stub.auxLevel, stub.effect)
	}
	if stub.source != 11 || stub.surface != 12 {
		t.Errorf("handles got (%d, %d), want (11, 12)", stub.source, stub.surface)
	}
}

func TestDisconnectHasNoReply(t *testing.T) {
	t.Parallel()
	stub := newStub()
	stub.err = DeadObject
	d := NewDispatcher(stub)

	reply, err := d.Transact(context.Background(), OpDisconnect, NewRequest().Bytes())
	if err != nil {
		t.Fatalf("Transact: %v", err)
	}
	if len(reply) != 0 {
		t.Errorf("reply got %d bytes, want 0", len(reply))
	}

	px := NewProxy(NewLoopback(d))
	if err := px.Disconnect(context.Background()); err != nil {
		t.Errorf("Disconnect: %v", err)
	}
}

func TestInvokePassThrough(t *testing.T) {
	t.Parallel()
	stub := newStub()
	px, c := newCapture(stub)
	ctx := context.Background()

	req := NewRequest()
	req.WriteInt32(77)
	req.WriteCString("ping")
	reply := parcel.New()
	if err := px.Invoke(ctx, req, reply); err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if !bytes.Equal(c.data, req.Bytes()) {
		t.Errorf("request was not forwarded verbatim")
	}
	if reply.DataPosition() != 0 {
		t.Errorf("reply position got %d, want 0", reply.DataPosition())
	}
	if v := reply.ReadInt32(); v != 77 {
		t.Errorf("echo got %d, want 77", v)
	}
	if s := reply.ReadCString(); s != "ping" {
		t.Errorf("echo got %q, want ping", s)
	}

	stub.err = InvalidOperation
	err := px.Invoke(ctx, NewRequest(), parcel.New())
	if !errors.Is(err, InvalidOperation) {
		t.Errorf("got %v, want %v", err, InvalidOperation)
	}
	if errors.Is(err, FailedTransaction) {
		t.Errorf("player status reported as transport failure: %v", err)
	}
}

func TestInvokeWithoutToken(t *testing.T) {
	t.Parallel()
	stub := newStub()
	px, _ := newPair(stub)

	req := parcel.New()
	req.WriteInt32(5)
	reply := parcel.New()
	if err := px.Invoke(context.Background(), req, reply); err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if !bytes.Equal(stub.invoked, req.Bytes()) {
		t.Errorf("player got %x, want %x", stub.invoked, req.Bytes())
	}
}

func TestMetadataFilterRoundTrip(t *testing.T) {
	t.Parallel()
	stub := newStub()
	px, _ := newPair(stub)

	f := MetadataFilter{Allow: []int32{MetadataTitle, MetadataDuration}, Block: []int32{MetadataAlbumArt}}
	if err := ApplyMetadataFilter(context.Background(), px, f); err != nil {
		t.Fatalf("ApplyMetadataFilter: %v", err)
	}
	if !slices.Equal(stub.filter.Allow, f.Allow) || !slices.Equal(stub.filter.Block, f.Block) {
		t.Errorf("got %+v, want %+v", stub.filter, f)
	}

	stub.err = BadValue
	if err := ApplyMetadataFilter(context.Background(), px, f); !errors.Is(err, BadValue) {
		t.Errorf("got %v, want %v", err, BadValue)
	}
}

func TestGetMetadataStatusFirst(t *testing.T) {
	t.Parallel()
	stub := newStub()
	stub.metadata = func(p *parcel.Parcel) {
		w := NewMetadataWriter(p)
		w.AddString(MetadataTitle, "clip")
		w.AddInt32(MetadataDuration, 1234)
		w.Close()
	}
	d := NewDispatcher(stub)

	req := NewRequest()
	req.WriteBool(true)
	req.WriteBool(false)
	raw, err := d.Transact(context.Background(), OpGetMetadata, req.Bytes())
	if err != nil {
		t.Fatalf("Transact: %v", err)
	}
	if s := parcel.From(raw).ReadInt32(); s != 0 {
		t.Errorf("leading status got %d, want 0", s)
	}
	if !stub.updateOnly || stub.applyFilt {
		t.Errorf("flags got (%v, %v), want (true, false)", stub.updateOnly, stub.applyFilt)
	}

	px := NewProxy(NewLoopback(d))
	reply := parcel.New()
	if err := px.GetMetadata(context.Background(), false, true, reply); err != nil {
		t.Fatalf("GetMetadata: %v", err)
	}
	if reply.DataPosition() != 4 {
		t.Errorf("position got %d, want 4", reply.DataPosition())
	}
	md, err := ParseMetadata(reply)
	if err != nil {
		t.Fatalf("ParseMetadata: %v", err)
	}
	if v, _ := md.Get(MetadataTitle); v != "clip" {
		t.Errorf("title got %v, want clip", v)
	}
	if v, _ := md.Get(MetadataDuration); v != int32(1234) {
		t.Errorf("duration got %v, want 1234", v)
	}
}

func TestGetMetadataFailure(t *testing.T) {
	t.Parallel()
	stub := newStub()
	stub.err = InvalidOperation
	px, _ := newPair(stub)

	reply := parcel.New()
	err := px.GetMetadata(context.Background(), false, false, reply)
	if !errors.Is(err, InvalidOperation) {
		t.Errorf("got %v, want %v", err, InvalidOperation)
	}
}

func TestGetMetadataNilReply(t *testing.T) {
	t.Parallel()
	stub := newStub()
	stub.metadata = func(p *parcel.Parcel) {
		w := NewMetadataWriter(p)
		w.AddString(MetadataTitle, "clip")
		w.Close()
	}
	px, _ := newPair(stub)

	if err := px.GetMetadata(context.Background(), false, false, nil); err != nil {
		t.Errorf("got %v, want nil", err)
	}
	stub.err = InvalidOperation
	if err := px.GetMetadata(context.Background(), false, false, nil); !errors.Is(err, InvalidOperation) {
		t.Errorf("got %v, want %v", err, InvalidOperation)
	}
}

func TestParameters(t *testing.T) {
	t.Parallel()
	stub := newStub()
	px, c := newCapture(stub)
	ctx := context.Background()

	if err := SetIntParameter(ctx, px, KeyTimedTextTrackIndex, 2); err != nil {
		t.Fatalf("SetIntParameter: %v", err)
	}
	want := NewRequest()
	want.WriteInt32(KeyTimedTextTrackIndex)
	want.WriteInt32(2)
	if !bytes.Equal(c.data, want.Bytes()) {
		t.Errorf("request got %x, want %x", c.data, want.Bytes())
	}

	v, err := GetIntParameter(ctx, px, KeyTimedTextTrackIndex)
	if err != nil || v != 2 {
		t.Errorf("GetIntParameter got (%d, %v), want (2, nil)", v, err)
	}

	if err := SetStringParameter(ctx, px, KeyTimedTextAddOutOfBandSource, "file:///subs.srt"); err != nil {
		t.Fatal(err)
	}
	s, err := GetStringParameter(ctx, px, KeyTimedTextAddOutOfBandSource)
	if err != nil || s != "file:///subs.srt" {
		t.Errorf("GetStringParameter got (%q, %v)", s, err)
	}

	if _, err := GetIntParameter(ctx, px, 5); !errors.Is(err, NameNotFound) {
		t.Errorf("missing key got %v, want %v", err, NameNotFound)
	}
}

func TestSetParameterEmptyValue(t *testing.T) {
	t.Parallel()
	stub := newStub()
	px, _ := newPair(stub)

	if err := px.SetParameter(context.Background(), 3, parcel.New()); err != nil {
		t.Fatal(err)
	}
	if stub.paramKey != 3 || len(stub.paramValue) != 0 {
		t.Errorf("got key %d value %x", stub.paramKey, stub.paramValue)
	}
}

type failingChannel struct{ err error }

func (f failingChannel) Transact(context.Context, Code, []byte) ([]byte, error) { return nil, f.err }
func (f failingChannel) Close() error                                          { return nil }

func TestTransportFailure(t *testing.T) {
	t.Parallel()
	px := NewProxy(failingChannel{err: io.ErrUnexpectedEOF})

	err := px.Start(context.Background())
	if !errors.Is(err, FailedTransaction) || !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("got %v, want failed transaction wrapping the cause", err)
	}
	if StatusFromError(err) != FailedTransaction {
		t.Errorf("status got %v", StatusFromError(err))
	}
}

func TestMalformedReply(t *testing.T) {
	t.Parallel()
	empty := HandlerFunc(func(context.Context, Code, []byte) ([]byte, error) { return nil, nil })
	px := NewProxy(NewLoopback(empty))

	if err := px.Start(context.Background()); !errors.Is(err, NotEnoughData) {
		t.Errorf("got %v, want %v", err, NotEnoughData)
	}
	if _, err := px.GetDuration(context.Background()); !errors.Is(err, NotEnoughData) {
		t.Errorf("got %v, want %v", err, NotEnoughData)
	}
}

func TestProxyConcurrentUse(t *testing.T) {
	t.Parallel()
	stub := newStub()
	px, _ := newPair(stub)
	ctx := context.Background()

	done := make(chan error)
	for i := range 16 {
		go func() {
			done <- px.SeekTo(ctx, int32(i))
		}()
	}
	for range 16 {
		if err := <-done; err != nil {
			t.Error(err)
		}
	}
	if got := stub.count("SeekTo"); got != 16 {
		t.Errorf("got %d calls, want 16", got)
	}
}
