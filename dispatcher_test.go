// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package mediaplayer

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/luxfi/mediaplayer/parcel"
)

func TestTokenMismatch(t *testing.T) {
	t.Parallel()
	stub := newStub()
	d := NewDispatcher(stub, WithExtensions(true))

	for _, op := range Operations() {
		if op.PassThrough {
			continue
		}
		req := parcel.New()
		req.WriteInterfaceToken("android.media.IMediaRecorder")
		req.WriteInt32(1)
		req.WriteInt32(1)
		req.WriteInt32(1)

		_, err := d.Transact(context.Background(), op.Code, req.Bytes())
		if !errors.Is(err, PermissionDenied) {
			t.Errorf("%s: got %v, want %v", op.Name, err, PermissionDenied)
		}
	}
	if n := stub.total(); n != 0 {
		t.Errorf("player invoked %d times, want 0", n)
	}
}

func TestMissingToken(t *testing.T) {
	t.Parallel()
	stub := newStub()
	d := NewDispatcher(stub)

	_, err := d.Transact(context.Background(), OpStart, nil)
	if !errors.Is(err, PermissionDenied) {
		t.Errorf("got %v, want %v", err, PermissionDenied)
	}
	if stub.count("Start") != 0 {
		t.Error("player was invoked")
	}
}

func TestUnknownCode(t *testing.T) {
	t.Parallel()
	stub := newStub()
	d := NewDispatcher(stub, WithExtensions(true))

	for _, code := range []Code{0, OpEnableScaleMode + 1, 999} {
		_, err := d.Transact(context.Background(), code, NewRequest().Bytes())
		if !errors.Is(err, UnknownTransaction) {
			t.Errorf("code %d: got %v, want %v", code, err, UnknownTransaction)
		}
	}
	if n := stub.total(); n != 0 {
		t.Errorf("player invoked %d times, want 0", n)
	}
}

func TestExtensionsDisabled(t *testing.T) {
	t.Parallel()
	stub := newStub()
	px, d := newPair(stub)

	if d.Supports(OpGetSubCount) {
		t.Fatal("extensions served without WithExtensions")
	}
	if _, err := px.GetSubCount(context.Background()); !errors.Is(err, UnknownTransaction) {
		t.Errorf("got %v, want %v", err, UnknownTransaction)
	}
	if err := px.Start(context.Background()); err != nil {
		t.Errorf("baseline call failed: %v", err)
	}
}

func TestExtensionsNeedImplementation(t *testing.T) {
	t.Parallel()
	d := NewDispatcher(basePlayer{newStub()}, WithExtensions(true))
	if d.Supports(OpGetSubCount) {
		t.Error("extensions served by a player without them")
	}
	if !d.Supports(OpGetParameter) {
		t.Error("baseline operation missing")
	}
}

func TestShortRequest(t *testing.T) {
	t.Parallel()
	stub := newStub()
	d := NewDispatcher(stub, WithExtensions(true))

	short := []Code{OpSeekTo, OpSetVolume, OpSetDataSourceURL, OpSetDataSourceFD, OpGetMetadata, OpSetParameter, OpEnableScaleMode, OpGetSubList}
	for _, code := range short {
		_, err := d.Transact(context.Background(), code, NewRequest().Bytes())
		if !errors.Is(err, NotEnoughData) {
			t.Errorf("%v: got %v, want %v", code, err, NotEnoughData)
		}
	}
	if n := stub.total(); n != 0 {
		t.Errorf("player invoked %d times, want 0", n)
	}
}

func TestBadObjectTag(t *testing.T) {
	t.Parallel()
	stub := newStub()
	d := NewDispatcher(stub)

	req := NewRequest()
	req.WriteFileDescriptor(3)
	_, err := d.Transact(context.Background(), OpSetDataSourceStream, req.Bytes())
	if !errors.Is(err, BadValue) {
		t.Errorf("got %v, want %v", err, BadValue)
	}
	if stub.total() != 0 {
		t.Error("player was invoked")
	}
}

func TestPanicRecovered(t *testing.T) {
	t.Parallel()
	stub := newStub()
	stub.panics = true
	px, _ := newPair(stub)

	if err := px.Start(context.Background()); !errors.Is(err, UnknownError) {
		t.Errorf("got %v, want %v", err, UnknownError)
	}
}

func TestSubtitleList(t *testing.T) {
	t.Parallel()
	stub := newStub()
	stub.subs = []SubtitleInfo{
		{Name: []byte("English"), Charset: CharsetUTF8, Type: SubtitleText},
		{Name: nil, Charset: CharsetGBK, Type: SubtitleBitmap},
	}
	px, _ := newPair(stub, WithExtensions(true))

	subs, err := px.GetSubList(context.Background(), 10)
	if err != nil {
		t.Fatalf("GetSubList: %v", err)
	}
	if len(subs) != 2 {
		t.Fatalf("got %d records, want 2", len(subs))
	}
	if string(subs[0].Name) != "English" || subs[0].Charset != CharsetUTF8 || subs[0].Type != SubtitleText {
		t.Errorf("first record got %+v", subs[0])
	}
	if len(subs[1].Name) != 0 || subs[1].Charset != CharsetGBK || subs[1].Type != SubtitleBitmap {
		t.Errorf("second record got %+v", subs[1])
	}
	if stub.intArg != 10 {
		t.Errorf("max got %d, want 10", stub.intArg)
	}
}

func TestListNegativeMax(t *testing.T) {
	t.Parallel()
	stub := newStub()
	d := NewDispatcher(stub, WithExtensions(true))

	req := NewRequest()
	req.WriteInt32(-1)
	raw, err := d.Transact(context.Background(), OpGetSubList, req.Bytes())
	if err != nil {
		t.Fatalf("Transact: %v", err)
	}
	reply := parcel.From(raw)
	if s := Status(reply.ReadInt32()); s != BadValue || reply.DataAvail() != 0 {
		t.Errorf("reply got status %v with %d more bytes", s, reply.DataAvail())
	}
	if stub.count("GetSubList") != 0 {
		t.Error("player was invoked")
	}

	px := NewProxy(NewLoopback(d))
	if _, err := px.GetTrackList(context.Background(), -5); !errors.Is(err, BadValue) {
		t.Errorf("got %v, want %v", err, BadValue)
	}
}

func TestListPlayerFailure(t *testing.T) {
	t.Parallel()
	stub := newStub()
	stub.err = NoInit
	px, _ := newPair(stub, WithExtensions(true))

	if _, err := px.GetTrackList(context.Background(), 4); !errors.Is(err, NoInit) {
		t.Errorf("got %v, want %v", err, NoInit)
	}
}

func TestListEmpty(t *testing.T) {
	t.Parallel()
	stub := newStub()
	px, _ := newPair(stub, WithExtensions(true))

	tracks, err := px.GetTrackList(context.Background(), 0)
	if err != nil || len(tracks) != 0 {
		t.Errorf("got (%v, %v), want empty", tracks, err)
	}
}

func TestListCountBeyondReply(t *testing.T) {
	t.Parallel()
	liar := HandlerFunc(func(context.Context, Code, []byte) ([]byte, error) {
		p := parcel.New()
		p.WriteInt32(1000)
		p.WriteByteArray([]byte("one"))
		p.WriteCString("UTF-8")
		return p.Bytes(), nil
	})
	px := NewProxy(NewLoopback(liar))

	if _, err := px.GetTrackList(context.Background(), 2000); !errors.Is(err, NotEnoughData) {
		t.Errorf("got %v, want %v", err, NotEnoughData)
	}
}

func TestTrackList(t *testing.T) {
	t.Parallel()
	stub := newStub()
	stub.tracks = []TrackInfo{{Name: []byte("Director"), Charset: CharsetUTF8}}
	px, _ := newPair(stub, WithExtensions(true))

	tracks, err := px.GetTrackList(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(tracks) != 1 || string(tracks[0].Name) != "Director" || tracks[0].Charset != CharsetUTF8 {
		t.Errorf("got %+v", tracks)
	}
}

func TestValueGetters(t *testing.T) {
	t.Parallel()
	stub := newStub()
	stub.value = 25
	px, _ := newPair(stub, WithExtensions(true))
	ctx := context.Background()

	getters := map[string]func(context.Context) (int32, error){
		"GetSubCount":            px.GetSubCount,
		"GetCurSub":              px.GetCurSub,
		"GetSubColor":            px.GetSubColor,
		"GetSubFrameColor":       px.GetSubFrameColor,
		"GetSubFontSize":         px.GetSubFontSize,
		"GetSubPosition":         px.GetSubPosition,
		"GetSubDelay":            px.GetSubDelay,
		"GetTrackCount":          px.GetTrackCount,
		"GetCurTrack":            px.GetCurTrack,
		"GetInputDimensionType":  px.GetInputDimensionType,
		"GetOutputDimensionType": px.GetOutputDimensionType,
		"GetAnaglyphType":        px.GetAnaglyphType,
		"GetVideoFrameRate":      px.GetVideoFrameRate,
		"GetAudioBitRate":        px.GetAudioBitRate,
		"GetAudioSampleRate":     px.GetAudioSampleRate,
	}
	for name, get := range getters {
		v, err := get(ctx)
		if err != nil || v != 25 {
			t.Errorf("%s got (%d, %v), want (25, nil)", name, v, err)
		}
	}

	// A failure travels in place of the value.
	stub.err = InvalidOperation
	for name, get := range getters {
		v, err := get(ctx)
		if err != nil || v != int32(InvalidOperation) {
			t.Errorf("%s got (%d, %v), want (%d, nil)", name, v, err, int32(InvalidOperation))
		}
	}
}

func TestValueSetters(t *testing.T) {
	t.Parallel()
	stub := newStub()
	px, _ := newPair(stub, WithExtensions(true))
	ctx := context.Background()

	setters := map[string]func(context.Context, int32) error{
		"SwitchSub":              px.SwitchSub,
		"SetSubColor":            px.SetSubColor,
		"SetSubFrameColor":       px.SetSubFrameColor,
		"SetSubFontSize":         px.SetSubFontSize,
		"SetSubPosition":         px.SetSubPosition,
		"SetSubDelay":            px.SetSubDelay,
		"SwitchTrack":            px.SwitchTrack,
		"SetInputDimensionType":  px.SetInputDimensionType,
		"SetOutputDimensionType": px.SetOutputDimensionType,
		"SetAnaglyphType":        px.SetAnaglyphType,
	}
	for name, set := range setters {
		if err := set(ctx, -300); err != nil {
			t.Errorf("%s: %v", name, err)
		}
		if stub.intArg != -300 || stub.count(name) != 1 {
			t.Errorf("%s: player got %d after %d calls", name, stub.intArg, stub.count(name))
		}
		stub.intArg = 0
	}

	stub.err = BadIndex
	if err := px.SwitchSub(ctx, 9); !errors.Is(err, BadIndex) {
		t.Errorf("got %v, want %v", err, BadIndex)
	}
}

func TestSubGate(t *testing.T) {
	t.Parallel()
	stub := newStub()
	px, _ := newPair(stub, WithExtensions(true))
	ctx := context.Background()

	if err := px.SetSubGate(ctx, true); err != nil {
		t.Fatal(err)
	}
	show, err := px.GetSubGate(ctx)
	if err != nil || !show {
		t.Errorf("got (%v, %v), want (true, nil)", show, err)
	}
}

func TestTextGetters(t *testing.T) {
	t.Parallel()
	stub := newStub()
	stub.text = "h264"
	px, _ := newPair(stub, WithExtensions(true))
	ctx := context.Background()

	for _, get := range []func(context.Context) (string, error){px.GetVideoEncode, px.GetAudioEncode, px.GetSubCharset} {
		s, err := get(ctx)
		if err != nil || s != "h264" {
			t.Errorf("got (%q, %v), want (h264, nil)", s, err)
		}
	}

	stub.err = NameNotFound
	if _, err := px.GetVideoEncode(ctx); !errors.Is(err, NameNotFound) {
		t.Errorf("got %v, want %v", err, NameNotFound)
	}
}

func TestCharsetAndScaleMode(t *testing.T) {
	t.Parallel()
	stub := newStub()
	px, _ := newPair(stub, WithExtensions(true))
	ctx := context.Background()

	if err := px.SetSubCharset(ctx, CharsetBig5); err != nil {
		t.Fatal(err)
	}
	if err := px.EnableScaleMode(ctx, true, 1280, 720); err != nil {
		t.Fatal(err)
	}
	if stub.charset != CharsetBig5 {
		t.Errorf("charset got %q", stub.charset)
	}
	if want := [3]int32{1, 1280, 720}; stub.scale != want {
		t.Errorf("scale got %v, want %v", stub.scale, want)
	}
}

func TestEveryOperationServed(t *testing.T) {
	t.Parallel()
	d := NewDispatcher(newStub(), WithExtensions(true))
	var missing []string
	for _, op := range Operations() {
		if !d.Supports(op.Code) {
			missing = append(missing, op.Name)
		}
	}
	if len(missing) > 0 {
		t.Errorf("no handler for %v", missing)
	}
	if !slices.ContainsFunc(Operations(), func(o Operation) bool { return o.Code == OpEnableScaleMode }) {
		t.Error("contract lacks the last extension")
	}
}
