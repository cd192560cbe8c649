// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package simplayer is a simulated playback engine. It follows the player
// state machine, keeps time with an injectable clock and renders numbered
// frames into a video surface, without decoding any media.
package simplayer

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/luxfi/mediaplayer"
	"github.com/luxfi/mediaplayer/surface"
)

var (
	_ mediaplayer.Player     = (*Player)(nil)
	_ mediaplayer.Extensions = (*Player)(nil)
)

// State is a position in the player state machine.
type State int

const (
	StateIdle State = iota
	StateInitialized
	StatePreparing
	StatePrepared
	StateStarted
	StatePaused
	StateStopped
	StatePlaybackCompleted
	StateError
	StateEnd
)

var stateNames = [...]string{
	StateIdle:              "idle",
	StateInitialized:       "initialized",
	StatePreparing:         "preparing",
	StatePrepared:          "prepared",
	StateStarted:           "started",
	StatePaused:            "paused",
	StateStopped:           "stopped",
	StatePlaybackCompleted: "playback-completed",
	StateError:             "error",
	StateEnd:               "end",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Clock supplies the time playback position is measured against.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Event is a notification from the engine, such as prepare completion or
// the end of playback.
type Event struct {
	What int32
	Ext1 int32
	Ext2 int32
}

// Event kinds.
const (
	EventNop              int32 = 0
	EventPrepared         int32 = 1
	EventPlaybackComplete int32 = 2
	EventBufferingUpdate  int32 = 3
	EventSeekComplete     int32 = 4
	EventSetVideoSize     int32 = 5
	EventTimedText        int32 = 99
	EventError            int32 = 100
	EventInfo             int32 = 200
)

// Event detail codes.
const (
	ErrorUnknown        int32 = 1
	InfoMetadataUpdate  int32 = 802
	InfoNotSeekable     int32 = 801
	InfoBufferingStart  int32 = 701
	InfoBufferingFinish int32 = 702
)

// Option configures a Player.
type Option func(*Player)

// WithClock sets the clock playback position is measured against.
func WithClock(c Clock) Option {
	return func(p *Player) { p.clock = c }
}

func WithLogger(log *slog.Logger) Option {
	return func(p *Player) { p.log = log }
}

// WithListener registers fn for every Event. fn runs without the player's
// lock held and may call back into the player.
func WithListener(fn func(Event)) Option {
	return func(p *Player) { p.listener = fn }
}

// WithRegistry sets where stream and surface handles are resolved.
func WithRegistry(r *mediaplayer.Registry) Option {
	return func(p *Player) { p.registry = r }
}

// WithProbe replaces DefaultProbe for URL and file sources.
func WithProbe(probe func(uri string) (Media, error)) Option {
	return func(p *Player) { p.probe = probe }
}

// WithPrepareDelay sets how long PrepareAsync takes to complete.
func WithPrepareDelay(d time.Duration) Option {
	return func(p *Player) { p.prepareDelay = d }
}

// Player is the simulated engine. It implements mediaplayer.Player and
// mediaplayer.Extensions and is safe for concurrent use.
type Player struct {
	clock        Clock
	log          *slog.Logger
	listener     func(Event)
	registry     *mediaplayer.Registry
	probe        func(uri string) (Media, error)
	prepareDelay time.Duration

	mu         sync.Mutex
	state      State
	generation uint64
	events     []Event

	media     Media
	source    string
	headers   []mediaplayer.Header
	sourceSet time.Time

	pos       time.Duration
	startedAt time.Time

	streamType int32
	looping    bool
	left       float32
	right      float32
	auxLevel   float32
	auxEffect  int32

	filter  mediaplayer.MetadataFilter
	updated map[int32]bool
	params  map[int32][]byte

	subs     subtitleState
	track    int32
	input3D  int32
	output3D int32
	anaglyph int32
	scale    scaleMode

	surface    *surface.TextureLayer
	pumpCancel context.CancelFunc
	frames     atomic.Uint64
}

func New(opts ...Option) *Player {
	p := &Player{
		clock:      systemClock{},
		log:        slog.Default(),
		probe:      DefaultProbe,
		streamType: mediaplayer.StreamMusic,
		left:       1,
		right:      1,
		filter:     mediaplayer.MatchAll(),
		updated:    make(map[int32]bool),
		params:     make(map[int32][]byte),
		subs:       defaultSubtitleState(),
		track:      -1,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.log == nil {
		p.log = slog.Default()
	}
	p.log = p.log.With("component", "simplayer")
	return p
}

// State returns the current state.
func (p *Player) State() State {
	defer p.flush()
	p.mu.Lock()
	defer p.mu.Unlock()
	p.advance()
	return p.state
}

// notify queues e for delivery by flush. Callers hold mu.
func (p *Player) notify(e Event) {
	if p.listener != nil {
		p.events = append(p.events, e)
	}
}

// flush delivers queued events. It must run after mu is released; public
// methods defer it before taking the lock.
func (p *Player) flush() {
	p.mu.Lock()
	events := p.events
	p.events = nil
	p.mu.Unlock()
	for _, e := range events {
		p.listener(e)
	}
}

// in reports whether the player is in one of states.
func (p *Player) in(states ...State) bool {
	return slices.Contains(states, p.state)
}

// require fails with InvalidOperation unless the player is in one of
// states. Transport calls made in the wrong state also move the player to
// the error state, which only Reset leaves.
func (p *Player) require(op string, fatal bool, states ...State) error {
	if p.in(states...) {
		return nil
	}
	err := fmt.Errorf("%w: %s in state %v", mediaplayer.InvalidOperation, op, p.state)
	if fatal && p.state != StateEnd {
		p.log.Debug("illegal call moves player to error state", "op", op, "state", p.state.String())
		p.fail(mediaplayer.InvalidOperation)
	}
	return err
}

// fail enters the error state. Callers hold mu.
func (p *Player) fail(status mediaplayer.Status) {
	p.stopPump()
	p.state = StateError
	p.notify(Event{What: EventError, Ext1: ErrorUnknown, Ext2: int32(status)})
}

// position returns the current playback position. Callers hold mu.
func (p *Player) position() time.Duration {
	if p.state != StateStarted {
		return p.pos
	}
	return p.pos + p.clock.Now().Sub(p.startedAt)
}

// advance folds elapsed time into the position and handles the end of the
// stream. Callers hold mu.
func (p *Player) advance() {
	if p.state != StateStarted {
		return
	}
	now := p.clock.Now()
	p.pos += now.Sub(p.startedAt)
	p.startedAt = now

	d := p.media.Duration
	if d <= 0 || p.pos < d {
		return
	}
	if p.looping {
		p.pos %= d
		return
	}
	p.pos = d
	p.state = StatePlaybackCompleted
	p.stopPump()
	p.notify(Event{What: EventPlaybackComplete})
}

func (p *Player) Disconnect(context.Context) error {
	defer p.flush()
	p.mu.Lock()
	defer p.mu.Unlock()
	p.detachSurface()
	p.generation++
	p.state = StateEnd
	return nil
}

func (p *Player) SetDataSourceURL(_ context.Context, uri string, headers []mediaplayer.Header) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.require("SetDataSourceURL", false, StateIdle); err != nil {
		return err
	}
	if uri == "" {
		return fmt.Errorf("%w: empty url", mediaplayer.BadValue)
	}
	m, err := p.probe(uri)
	if err != nil {
		return err
	}
	p.setSource(uri, m)
	p.headers = slices.Clone(headers)
	return nil
}

func (p *Player) SetDataSourceFD(_ context.Context, fd uintptr, offset, length int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.require("SetDataSourceFD", false, StateIdle); err != nil {
		return err
	}
	if offset < 0 || length < 0 {
		return fmt.Errorf("%w: range %d+%d", mediaplayer.BadValue, offset, length)
	}
	uri := fmt.Sprintf("fd://%d?offset=%d&length=%d", fd, offset, length)
	m, err := p.probe(uri)
	if err != nil {
		return err
	}
	p.setSource(uri, m)
	return nil
}

// SetDataSourceStream plays a Media registered under source.
func (p *Player) SetDataSourceStream(_ context.Context, source mediaplayer.Handle) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.require("SetDataSourceStream", false, StateIdle); err != nil {
		return err
	}
	if p.registry == nil {
		return fmt.Errorf("%w: no handle registry", mediaplayer.NoInit)
	}
	m, err := mediaplayer.Resolve[Media](p.registry, source)
	if err != nil {
		return err
	}
	p.setSource(fmt.Sprintf("stream://%d", source), m)
	return nil
}

// setSource enters the initialized state with m. Callers hold mu.
func (p *Player) setSource(uri string, m Media) {
	p.source = uri
	p.media = m
	p.headers = nil
	p.sourceSet = p.clock.Now()
	p.subs.list = slices.Clone(m.Subtitles)
	p.track = -1
	if len(m.Tracks) > 0 {
		p.track = 0
	}
	p.state = StateInitialized
	p.log.Debug("data source set", "uri", uri, "duration", m.Duration)
}

func (p *Player) PrepareAsync(context.Context) error {
	defer p.flush()
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.require("PrepareAsync", true, StateInitialized, StateStopped); err != nil {
		return err
	}
	p.state = StatePreparing
	p.generation++
	gen := p.generation
	time.AfterFunc(p.prepareDelay, func() { p.finishPrepare(gen) })
	return nil
}

func (p *Player) finishPrepare(gen uint64) {
	defer p.flush()
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.generation != gen || p.state != StatePreparing {
		return
	}
	if p.media.PrepareError != nil {
		p.log.Debug("prepare failed", "error", p.media.PrepareError)
		p.fail(mediaplayer.StatusFromError(p.media.PrepareError))
		return
	}
	p.state = StatePrepared
	p.pos = 0
	for _, r := range p.metadataRecords() {
		p.updated[r.key] = true
	}
	p.applyBufferSize()
	p.notify(Event{What: EventPrepared})
	p.notify(Event{What: EventSetVideoSize, Ext1: p.media.Width, Ext2: p.media.Height})
}

func (p *Player) Start(context.Context) error {
	defer p.flush()
	p.mu.Lock()
	defer p.mu.Unlock()
	p.advance()
	if err := p.require("Start", true, StatePrepared, StateStarted, StatePaused, StatePlaybackCompleted); err != nil {
		return err
	}
	if p.state == StateStarted {
		return nil
	}
	if p.state == StatePlaybackCompleted {
		p.pos = 0
	}
	p.state = StateStarted
	p.startedAt = p.clock.Now()
	p.startPump()
	return nil
}

func (p *Player) Stop(context.Context) error {
	defer p.flush()
	p.mu.Lock()
	defer p.mu.Unlock()
	p.advance()
	if err := p.require("Stop", true, StatePrepared, StateStarted, StateStopped, StatePaused, StatePlaybackCompleted); err != nil {
		return err
	}
	p.stopPump()
	p.state = StateStopped
	p.pos = 0
	return nil
}

func (p *Player) IsPlaying(context.Context) (bool, error) {
	defer p.flush()
	p.mu.Lock()
	defer p.mu.Unlock()
	p.advance()
	if p.in(StateError, StateEnd) {
		return false, fmt.Errorf("%w: IsPlaying in state %v", mediaplayer.InvalidOperation, p.state)
	}
	return p.state == StateStarted, nil
}

func (p *Player) Pause(context.Context) error {
	defer p.flush()
	p.mu.Lock()
	defer p.mu.Unlock()
	p.advance()
	if err := p.require("Pause", true, StateStarted, StatePaused); err != nil {
		return err
	}
	p.stopPump()
	p.state = StatePaused
	return nil
}

// SeekTo moves the position, clamped to the media duration.
func (p *Player) SeekTo(_ context.Context, msec int32) error {
	defer p.flush()
	p.mu.Lock()
	defer p.mu.Unlock()
	p.advance()
	if err := p.require("SeekTo", true, StatePrepared, StateStarted, StatePaused, StatePlaybackCompleted); err != nil {
		return err
	}
	if p.media.Live {
		p.notify(Event{What: EventInfo, Ext1: InfoNotSeekable})
		return fmt.Errorf("%w: source is not seekable", mediaplayer.InvalidOperation)
	}
	p.pos = min(max(time.Duration(msec)*time.Millisecond, 0), p.media.Duration)
	p.startedAt = p.clock.Now()
	p.notify(Event{What: EventSeekComplete})
	return nil
}

func (p *Player) GetCurrentPosition(context.Context) (int32, error) {
	defer p.flush()
	p.mu.Lock()
	defer p.mu.Unlock()
	p.advance()
	if p.in(StateError, StateEnd) {
		return 0, fmt.Errorf("%w: GetCurrentPosition in state %v", mediaplayer.InvalidOperation, p.state)
	}
	return int32(p.position().Milliseconds()), nil
}

func (p *Player) GetDuration(context.Context) (int32, error) {
	defer p.flush()
	p.mu.Lock()
	defer p.mu.Unlock()
	p.advance()
	if err := p.require("GetDuration", true, StatePrepared, StateStarted, StatePaused, StateStopped, StatePlaybackCompleted); err != nil {
		return 0, err
	}
	return int32(p.media.Duration.Milliseconds()), nil
}

// Reset returns the player to the idle state. The video surface stays
// attached.
func (p *Player) Reset(context.Context) error {
	defer p.flush()
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == StateEnd {
		return fmt.Errorf("%w: Reset after Disconnect", mediaplayer.InvalidOperation)
	}
	p.stopPump()
	p.generation++
	p.state = StateIdle
	p.media = Media{}
	p.source = ""
	p.headers = nil
	p.pos = 0
	p.looping = false
	p.subs = defaultSubtitleState()
	p.track = -1
	clear(p.updated)
	return nil
}

func (p *Player) SetAudioStreamType(_ context.Context, streamType int32) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.require("SetAudioStreamType", false, StateIdle, StateInitialized, StateStopped, StatePrepared, StatePlaybackCompleted); err != nil {
		return err
	}
	if streamType < mediaplayer.StreamVoiceCall || streamType > mediaplayer.StreamNotification {
		return fmt.Errorf("%w: stream type %d", mediaplayer.BadValue, streamType)
	}
	p.streamType = streamType
	return nil
}

func (p *Player) SetLooping(_ context.Context, loop bool) error {
	defer p.flush()
	p.mu.Lock()
	defer p.mu.Unlock()
	p.advance()
	if p.in(StateError, StateEnd) {
		return fmt.Errorf("%w: SetLooping in state %v", mediaplayer.InvalidOperation, p.state)
	}
	p.looping = loop
	return nil
}

func (p *Player) SetVolume(_ context.Context, left, right float32) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.in(StateError, StateEnd) {
		return fmt.Errorf("%w: SetVolume in state %v", mediaplayer.InvalidOperation, p.state)
	}
	if !(left >= 0 && left <= 1 && right >= 0 && right <= 1) {
		return fmt.Errorf("%w: volume %v/%v", mediaplayer.BadValue, left, right)
	}
	p.left, p.right = left, right
	return nil
}

// Volume returns the left and right gain.
func (p *Player) Volume() (left, right float32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.left, p.right
}

func (p *Player) SetAuxEffectSendLevel(_ context.Context, level float32) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.in(StateError, StateEnd) {
		return fmt.Errorf("%w: SetAuxEffectSendLevel in state %v", mediaplayer.InvalidOperation, p.state)
	}
	if !(level >= 0 && level <= 1) {
		return fmt.Errorf("%w: send level %v", mediaplayer.BadValue, level)
	}
	p.auxLevel = level
	return nil
}

func (p *Player) AttachAuxEffect(_ context.Context, effectID int32) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.in(StateIdle, StateError, StateEnd) {
		return fmt.Errorf("%w: AttachAuxEffect in state %v", mediaplayer.InvalidOperation, p.state)
	}
	if effectID < 0 {
		return fmt.Errorf("%w: effect %d", mediaplayer.BadValue, effectID)
	}
	p.auxEffect = effectID
	return nil
}
