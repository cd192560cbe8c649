// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package mediaplayer

import (
	"context"
	"sync"

	"github.com/luxfi/mediaplayer/parcel"
)

// stubPlayer records every call and its arguments and answers with canned
// results. err is returned by every operation that carries a status.
type stubPlayer struct {
	mu    sync.Mutex
	calls map[string]int

	url        string
	headers    []Header
	fd         uintptr
	offset     int64
	length     int64
	source     Handle
	surface    Handle
	seek       int32
	streamType int32
	loop       bool
	left       float32
	right      float32
	auxLevel   float32
	effect     int32
	paramKey   int32
	paramValue []byte
	filter     MetadataFilter
	invoked    []byte
	updateOnly bool
	applyFilt  bool
	intArg     int32
	charset    string
	scale      [3]int32

	err      error
	playing  bool
	duration int32
	params   map[int32][]byte
	metadata func(*parcel.Parcel)
	subs     []SubtitleInfo
	tracks   []TrackInfo
	value    int32
	text     string
	panics   bool
}

func newStub() *stubPlayer {
	return &stubPlayer{calls: make(map[string]int), params: make(map[int32][]byte)}
}

func (s *stubPlayer) hit(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[name]++
	if s.panics {
		panic("stub: " + name)
	}
}

func (s *stubPlayer) count(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[name]
}

func (s *stubPlayer) total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		n += c
	}
	return n
}

func (s *stubPlayer) record(name string, fn func()) error {
	s.hit(name)
	s.mu.Lock()
	defer s.mu.Unlock()
	fn()
	return s.err
}

func (s *stubPlayer) Disconnect(context.Context) error {
	s.hit("Disconnect")
	return s.err
}

func (s *stubPlayer) SetDataSourceURL(_ context.Context, url string, headers []Header) error {
	return s.record("SetDataSourceURL", func() { s.url, s.headers = url, headers })
}

func (s *stubPlayer) SetDataSourceFD(_ context.Context, fd uintptr, offset, length int64) error {
	return s.record("SetDataSourceFD", func() { s.fd, s.offset, s.length = fd, offset, length })
}

func (s *stubPlayer) SetDataSourceStream(_ context.Context, source Handle) error {
	return s.record("SetDataSourceStream", func() { s.source = source })
}

func (s *stubPlayer) SetVideoSurfaceTexture(_ context.Context, target Handle) error {
	return s.record("SetVideoSurfaceTexture", func() { s.surface = target })
}

func (s *stubPlayer) PrepareAsync(context.Context) error {
	return s.record("PrepareAsync", func() {})
}

func (s *stubPlayer) Start(context.Context) error {
	return s.record("Start", func() {})
}

func (s *stubPlayer) Stop(context.Context) error {
	return s.record("Stop", func() {})
}

func (s *stubPlayer) IsPlaying(context.Context) (bool, error) {
	var playing bool
	err := s.record("IsPlaying", func() { playing = s.playing })
	return playing, err
}

func (s *stubPlayer) Pause(context.Context) error {
	return s.record("Pause", func() {})
}

func (s *stubPlayer) SeekTo(_ context.Context, msec int32) error {
	return s.record("SeekTo", func() { s.seek = msec })
}

// GetCurrentPosition reports the last seek target.
func (s *stubPlayer) GetCurrentPosition(context.Context) (int32, error) {
	var pos int32
	err := s.record("GetCurrentPosition", func() { pos = s.seek })
	return pos, err
}

func (s *stubPlayer) GetDuration(context.Context) (int32, error) {
	var d int32
	err := s.record("GetDuration", func() { d = s.duration })
	return d, err
}

func (s *stubPlayer) Reset(context.Context) error {
	return s.record("Reset", func() {})
}

func (s *stubPlayer) SetAudioStreamType(_ context.Context, streamType int32) error {
	return s.record("SetAudioStreamType", func() { s.streamType = streamType })
}

func (s *stubPlayer) SetLooping(_ context.Context, loop bool) error {
	return s.record("SetLooping", func() { s.loop = loop })
}

func (s *stubPlayer) SetVolume(_ context.Context, left, right float32) error {
	return s.record("SetVolume", func() { s.left, s.right = left, right })
}

// Invoke echoes the unread request bytes.
func (s *stubPlayer) Invoke(_ context.Context, request, reply *parcel.Parcel) error {
	return s.record("Invoke", func() {
		s.invoked = request.ReadRemaining()
		if s.err == nil {
			reply.WriteRaw(s.invoked)
		}
	})
}

func (s *stubPlayer) SetMetadataFilter(_ context.Context, request *parcel.Parcel) error {
	s.hit("SetMetadataFilter")
	f, err := ReadMetadataFilter(request)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filter = f
	return s.err
}

func (s *stubPlayer) GetMetadata(_ context.Context, updateOnly, applyFilter bool, reply *parcel.Parcel) error {
	return s.record("GetMetadata", func() {
		s.updateOnly, s.applyFilt = updateOnly, applyFilter
		if s.metadata != nil {
			s.metadata(reply)
		}
	})
}

func (s *stubPlayer) SetAuxEffectSendLevel(_ context.Context, level float32) error {
	return s.record("SetAuxEffectSendLevel", func() { s.auxLevel = level })
}

func (s *stubPlayer) AttachAuxEffect(_ context.Context, effectID int32) error {
	return s.record("AttachAuxEffect", func() { s.effect = effectID })
}

func (s *stubPlayer) SetParameter(_ context.Context, key int32, value *parcel.Parcel) error {
	return s.record("SetParameter", func() {
		s.paramKey = key
		s.paramValue = value.ReadRemaining()
		s.params[key] = s.paramValue
	})
}

func (s *stubPlayer) GetParameter(_ context.Context, key int32, reply *parcel.Parcel) error {
	s.hit("GetParameter")
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	v, ok := s.params[key]
	if !ok {
		return NameNotFound
	}
	reply.WriteRaw(v)
	return nil
}

func (s *stubPlayer) getValue(name string) (int32, error) {
	var v int32
	err := s.record(name, func() { v = s.value })
	return v, err
}

func (s *stubPlayer) setValue(name string, v int32) error {
	return s.record(name, func() { s.intArg = v })
}

func (s *stubPlayer) GetSubCount(context.Context) (int32, error) { return s.getValue("GetSubCount") }

func (s *stubPlayer) GetSubList(_ context.Context, max int32) ([]SubtitleInfo, error) {
	var subs []SubtitleInfo
	err := s.record("GetSubList", func() {
		s.intArg = max
		subs = s.subs
	})
	return subs, err
}

func (s *stubPlayer) GetCurSub(context.Context) (int32, error) { return s.getValue("GetCurSub") }
func (s *stubPlayer) SwitchSub(_ context.Context, i int32) error {
	return s.setValue("SwitchSub", i)
}

func (s *stubPlayer) SetSubGate(_ context.Context, show bool) error {
	return s.record("SetSubGate", func() { s.loop = show })
}

func (s *stubPlayer) GetSubGate(context.Context) (bool, error) {
	var show bool
	err := s.record("GetSubGate", func() { show = s.loop })
	return show, err
}

func (s *stubPlayer) SetSubColor(_ context.Context, c int32) error {
	return s.setValue("SetSubColor", c)
}
func (s *stubPlayer) GetSubColor(context.Context) (int32, error) { return s.getValue("GetSubColor") }
func (s *stubPlayer) SetSubFrameColor(_ context.Context, c int32) error {
	return s.setValue("SetSubFrameColor", c)
}
func (s *stubPlayer) GetSubFrameColor(context.Context) (int32, error) {
	return s.getValue("GetSubFrameColor")
}
func (s *stubPlayer) SetSubFontSize(_ context.Context, v int32) error {
	return s.setValue("SetSubFontSize", v)
}
func (s *stubPlayer) GetSubFontSize(context.Context) (int32, error) {
	return s.getValue("GetSubFontSize")
}

func (s *stubPlayer) SetSubCharset(_ context.Context, charset string) error {
	return s.record("SetSubCharset", func() { s.charset = charset })
}

func (s *stubPlayer) GetSubCharset(context.Context) (string, error) {
	var t string
	err := s.record("GetSubCharset", func() { t = s.text })
	return t, err
}

func (s *stubPlayer) SetSubPosition(_ context.Context, v int32) error {
	return s.setValue("SetSubPosition", v)
}
func (s *stubPlayer) GetSubPosition(context.Context) (int32, error) {
	return s.getValue("GetSubPosition")
}
func (s *stubPlayer) SetSubDelay(_ context.Context, v int32) error {
	return s.setValue("SetSubDelay", v)
}
func (s *stubPlayer) GetSubDelay(context.Context) (int32, error) { return s.getValue("GetSubDelay") }
func (s *stubPlayer) GetTrackCount(context.Context) (int32, error) {
	return s.getValue("GetTrackCount")
}

func (s *stubPlayer) GetTrackList(_ context.Context, max int32) ([]TrackInfo, error) {
	var tracks []TrackInfo
	err := s.record("GetTrackList", func() {
		s.intArg = max
		tracks = s.tracks
	})
	return tracks, err
}

func (s *stubPlayer) GetCurTrack(context.Context) (int32, error) { return s.getValue("GetCurTrack") }
func (s *stubPlayer) SwitchTrack(_ context.Context, i int32) error {
	return s.setValue("SwitchTrack", i)
}
func (s *stubPlayer) SetInputDimensionType(_ context.Context, v int32) error {
	return s.setValue("SetInputDimensionType", v)
}
func (s *stubPlayer) GetInputDimensionType(context.Context) (int32, error) {
	return s.getValue("GetInputDimensionType")
}
func (s *stubPlayer) SetOutputDimensionType(_ context.Context, v int32) error {
	return s.setValue("SetOutputDimensionType", v)
}
func (s *stubPlayer) GetOutputDimensionType(context.Context) (int32, error) {
	return s.getValue("GetOutputDimensionType")
}
func (s *stubPlayer) SetAnaglyphType(_ context.Context, v int32) error {
	return s.setValue("SetAnaglyphType", v)
}
func (s *stubPlayer) GetAnaglyphType(context.Context) (int32, error) {
	return s.getValue("GetAnaglyphType")
}

func (s *stubPlayer) GetVideoEncode(context.Context) (string, error) {
	var t string
	err := s.record("GetVideoEncode", func() { t = s.text })
	return t, err
}

func (s *stubPlayer) GetVideoFrameRate(context.Context) (int32, error) {
	return s.getValue("GetVideoFrameRate")
}

func (s *stubPlayer) GetAudioEncode(context.Context) (string, error) {
	var t string
	err := s.record("GetAudioEncode", func() { t = s.text })
	return t, err
}

func (s *stubPlayer) GetAudioBitRate(context.Context) (int32, error) {
	return s.getValue("GetAudioBitRate")
}
func (s *stubPlayer) GetAudioSampleRate(context.Context) (int32, error) {
	return s.getValue("GetAudioSampleRate")
}

func (s *stubPlayer) EnableScaleMode(_ context.Context, enable bool, width, height int32) error {
	return s.record("EnableScaleMode", func() {
		var e int32
		if enable {
			e = 1
		}
		s.scale = [3]int32{e, width, height}
	})
}

// basePlayer hides the extension methods of a stub.
type basePlayer struct {
	Player
}

// newPair connects a Proxy to a Dispatcher serving stub in-process.
func newPair(stub Player, opts ...DispatcherOption) (*Proxy, *Dispatcher) {
	d := NewDispatcher(stub, opts...)
	return NewProxy(NewLoopback(d)), d
}
