// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/luxfi/mediaplayer"
	"github.com/luxfi/mediaplayer/parcel"
)

// status is what the view shows about the remote player.
type status struct {
	loaded   bool
	playing  bool
	title    string
	mime     string
	position int32 // msec
	duration int32 // msec
	live     bool
}

// model is the Bubble Tea model for the remote control.
type model struct {
	player  mediaplayer.Player
	config  *SafeConfig
	reload  <-chan struct{}
	source  string
	status  status
	fetched time.Time

	left, right float32
	looping     bool

	width     int
	height    int
	lastError error
	showHelp  bool
}

// tickMsg refreshes the position display.
type tickMsg time.Time

// fetchMsg triggers a status poll.
type fetchMsg time.Time

// statusMsg carries a completed poll.
type statusMsg struct {
	status status
	err    error
}

// actionMsg carries the result of a control command.
type actionMsg struct {
	op  string
	err error
}

func newModel(p mediaplayer.Player, sc *SafeConfig, reload <-chan struct{}, source string) model {
	return model{
		player: p,
		config: sc,
		reload: reload,
		source: source,
		left:   1,
		right:  1,
	}
}

func (m model) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), m.config.Get().Timeout())
}

func (m model) tickCmd() tea.Cmd {
	d := time.Duration(m.config.Get().Timing.UIRefreshMs) * time.Millisecond
	return tea.Tick(d, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m model) fetchCmd() tea.Cmd {
	d := time.Duration(m.config.Get().Timing.FetchMs) * time.Millisecond
	return tea.Tick(d, func(t time.Time) tea.Msg { return fetchMsg(t) })
}

// fetchStatus polls the player. Metadata is only read until the source is
// known to be prepared; a player that is not prepared rejects it without
// changing state.
func (m model) fetchStatus() tea.Cmd {
	known := m.status
	return func() tea.Msg {
		ctx, cancel := m.ctx()
		defer cancel()

		var s status
		var err error
		if s.playing, err = m.player.IsPlaying(ctx); err != nil {
			return statusMsg{err: err}
		}
		if s.position, err = m.player.GetCurrentPosition(ctx); err != nil {
			return statusMsg{err: err}
		}

		if known.loaded {
			s.loaded, s.title, s.mime, s.duration, s.live = true, known.title, known.mime, known.duration, known.live
			return statusMsg{status: s}
		}
		reply := parcel.New()
		if err := m.player.GetMetadata(ctx, false, false, reply); err != nil {
			if errors.Is(err, mediaplayer.InvalidOperation) {
				return statusMsg{status: s}
			}
			return statusMsg{err: err}
		}
		md, err := mediaplayer.ParseMetadata(reply)
		if err != nil {
			return statusMsg{err: err}
		}
		s.loaded = true
		s.title, _ = stringValue(md, mediaplayer.MetadataTitle)
		s.mime, _ = stringValue(md, mediaplayer.MetadataMimeType)
		if v, ok := md.Get(mediaplayer.MetadataDuration); ok {
			s.duration, _ = v.(int32)
		} else {
			s.live = true
		}
		return statusMsg{status: s}
	}
}

func stringValue(md mediaplayer.Metadata, key int32) (string, bool) {
	v, ok := md.Get(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// do runs a control command against the player.
func (m model) do(op string, fn func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := m.ctx()
		defer cancel()
		return actionMsg{op: op, err: fn(ctx)}
	}
}

// open loads the source and starts preparing it.
func (m model) open() tea.Cmd {
	source := m.source
	return m.do("open", func(ctx context.Context) error {
		if err := m.player.Reset(ctx); err != nil {
			return err
		}
		if err := m.player.SetDataSourceURL(ctx, source, nil); err != nil {
			return err
		}
		return m.player.PrepareAsync(ctx)
	})
}

func (m model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.tickCmd(), m.fetchCmd(), m.fetchStatus()}
	if m.reload != nil {
		cmds = append(cmds, waitReload(m.reload))
	}
	if m.source != "" {
		cmds = append(cmds, m.open())
	}
	return tea.Batch(cmds...)
}

// position interpolates the playback position since the last poll.
func (m model) position() int32 {
	pos := m.status.position
	if m.status.playing && !m.fetched.IsZero() {
		pos += int32(time.Since(m.fetched).Milliseconds())
	}
	if m.status.duration > 0 && pos > m.status.duration {
		pos = m.status.duration
	}
	return pos
}

func clampVolume(v float64) float32 {
	return float32(min(max(v, 0), 1))
}

func (m model) handleKey(key string) (tea.Model, tea.Cmd) {
	cfg := m.config.Get()
	switch key {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "?":
		m.showHelp = !m.showHelp
		return m, nil
	case "p", " ":
		if m.status.playing {
			return m, m.do("pause", m.player.Pause)
		}
		return m, m.do("start", m.player.Start)
	case "s":
		return m, m.do("stop", m.player.Stop)
	case "o":
		if m.source == "" {
			return m, nil
		}
		m.status = status{}
		return m, m.open()
	case "r":
		m.status = status{}
		return m, m.do("reset", m.player.Reset)
	case "left", "right":
		step := int32(cfg.Control.SeekStepMs)
		if key == "left" {
			step = -step
		}
		target := max(m.position()+step, 0)
		return m, m.do("seek", func(ctx context.Context) error {
			return m.player.SeekTo(ctx, target)
		})
	case "+", "=", "-":
		step := cfg.Control.VolumeStep
		if key == "-" {
			step = -step
		}
		m.left = clampVolume(float64(m.left) + step)
		m.right = clampVolume(float64(m.right) + step)
		left, right := m.left, m.right
		return m, m.do("volume", func(ctx context.Context) error {
			return m.player.SetVolume(ctx, left, right)
		})
	case "l":
		m.looping = !m.looping
		loop := m.looping
		return m, m.do("loop", func(ctx context.Context) error {
			return m.player.SetLooping(ctx, loop)
		})
	}
	return m, nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg.String())

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case configReloadMsg:
		return m, waitReload(m.reload)

	case tickMsg:
		return m, m.tickCmd()

	case fetchMsg:
		return m, tea.Batch(m.fetchCmd(), m.fetchStatus())

	case statusMsg:
		if msg.err != nil {
			m.lastError = msg.err
			return m, nil
		}
		m.status = msg.status
		m.fetched = time.Now()
		m.lastError = nil

	case actionMsg:
		m.lastError = nil
		if msg.err != nil {
			m.lastError = &actionError{op: msg.op, err: msg.err}
		}
		if msg.op == "open" || msg.op == "reset" {
			m.status = status{}
		}
		return m, m.fetchStatus()
	}
	return m, nil
}

type actionError struct {
	op  string
	err error
}

func (e *actionError) Error() string { return e.op + ": " + e.err.Error() }

func (e *actionError) Unwrap() error { return e.err }
