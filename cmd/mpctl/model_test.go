// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/viper"

	"github.com/luxfi/mediaplayer"
	"github.com/luxfi/mediaplayer/internal/simplayer"
)

func newTestModel(t *testing.T, source string) (model, *simplayer.Player) {
	t.Helper()
	cfg, err := loadConfig(viper.New(), filepath.Join(t.TempDir(), "none.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	sc := &SafeConfig{}
	sc.Set(cfg)

	p := simplayer.New()
	px := mediaplayer.NewProxy(mediaplayer.NewLoopback(mediaplayer.NewDispatcher(p)))
	return newModel(px, sc, nil, source), p
}

// run executes cmd and feeds its message back into m.
func run(t *testing.T, m model, cmd tea.Cmd) model {
	t.Helper()
	if cmd == nil {
		t.Fatal("no command")
	}
	next, _ := m.Update(cmd())
	return next.(model)
}

func press(t *testing.T, m model, key string) model {
	t.Helper()
	next, cmd := m.handleKey(key)
	return run(t, next.(model), cmd)
}

// refresh polls until cond holds.
func refresh(t *testing.T, m model, cond func(status) bool) model {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		m = run(t, m, m.fetchStatus())
		if m.lastError != nil {
			t.Fatalf("poll: %v", m.lastError)
		}
		if cond(m.status) {
			return m
		}
		if time.Now().After(deadline) {
			t.Fatalf("status never matched, last %+v", m.status)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestIdleStatus(t *testing.T) {
	t.Parallel()
	m, p := newTestModel(t, "")
	m = run(t, m, m.fetchStatus())
	if m.lastError != nil {
		t.Fatalf("poll: %v", m.lastError)
	}
	if m.status.loaded || m.status.playing {
		t.Errorf("status got %+v", m.status)
	}
	if s := p.State(); s != simplayer.StateIdle {
		t.Errorf("polling moved the player to %v", s)
	}
	if v := m.View(); !strings.Contains(v, "Nothing loaded") {
		t.Errorf("view lacks the idle notice:\n%s", v)
	}
}

func TestOpenAndControl(t *testing.T) {
	t.Parallel()
	m, p := newTestModel(t, "http://media.example/movie.mp4")

	m = run(t, m, m.open())
	if m.lastError != nil {
		t.Fatalf("open: %v", m.lastError)
	}
	m = refresh(t, m, func(s status) bool { return s.loaded })
	if m.status.title != "movie" || m.status.duration != 180000 {
		t.Errorf("status got %+v", m.status)
	}

	m = press(t, m, "p")
	m = refresh(t, m, func(s status) bool { return s.playing })
	if v := m.View(); !strings.Contains(v, "movie") || !strings.Contains(v, "playing") {
		t.Errorf("view:\n%s", v)
	}

	m = press(t, m, "-")
	if l, r := p.Volume(); l != m.left || r != m.right || l >= 1 {
		t.Errorf("volume got %v/%v, model %v/%v", l, r, m.left, m.right)
	}
	m = press(t, m, "l")
	if !m.looping {
		t.Error("looping not toggled")
	}

	m = press(t, m, "right")
	if m.lastError != nil {
		t.Fatalf("seek: %v", m.lastError)
	}
	m = refresh(t, m, func(s status) bool { return s.position >= 5000 })

	m = press(t, m, "p")
	m = refresh(t, m, func(s status) bool { return !s.playing })
	if s := p.State(); s != simplayer.StatePaused {
		t.Errorf("player state got %v, want %v", s, simplayer.StatePaused)
	}
}

func TestActionError(t *testing.T) {
	t.Parallel()
	m, _ := newTestModel(t, "")
	m = press(t, m, "s")
	if !errors.Is(m.lastError, mediaplayer.InvalidOperation) {
		t.Fatalf("stop in idle got %v, want %v", m.lastError, mediaplayer.InvalidOperation)
	}
	if v := m.View(); !strings.Contains(v, "stop:") {
		t.Errorf("view lacks the error:\n%s", v)
	}
}

func TestQuit(t *testing.T) {
	t.Parallel()
	m, _ := newTestModel(t, "")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q did not quit")
	}
}

func TestFormatTime(t *testing.T) {
	t.Parallel()
	tests := map[int32]string{
		0:       "00:00",
		999:     "00:00",
		61000:   "01:01",
		3599000: "59:59",
	}
	for msec, want := range tests {
		if got := formatTime(msec); got != want {
			t.Errorf("formatTime(%d) got %q, want %q", msec, got, want)
		}
	}
}
