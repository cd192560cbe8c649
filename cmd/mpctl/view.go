// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// formatTime renders milliseconds as MM:SS.
func formatTime(msec int32) string {
	seconds := msec / 1000
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

func (m model) stateLabel() string {
	switch {
	case m.status.playing:
		return "playing"
	case m.status.loaded:
		return "paused"
	default:
		return "idle"
	}
}

func (m model) View() string {
	cfg := m.config.Get()

	color := lipgloss.Color(cfg.UI.Color)
	highlight := lipgloss.NewStyle().Foreground(color)
	labelStyle := lipgloss.NewStyle().Foreground(color).Bold(true)
	mutedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	errorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	borderStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(color).
		Padding(1, 2)

	var b strings.Builder
	b.WriteString(highlight.Render("mediaplayer @ "+cfg.Server.Addr) + "\n\n")

	addLine := func(label, value string) {
		if value != "" {
			fmt.Fprintf(&b, "%s %s\n", labelStyle.Render(label), value)
		}
	}
	title := m.status.title
	if title == "" && m.source != "" {
		title = m.source
	}
	addLine("Title: ", title)
	addLine("Type:  ", m.status.mime)
	addLine("State: ", m.stateLabel())
	addLine("Volume:", fmt.Sprintf("%.0f%%", m.left*100))
	if m.looping {
		addLine("Loop:  ", "on")
	}

	barWidth := max(cfg.UI.MaxWidth-20, 10)
	pos := m.position()
	switch {
	case m.status.live:
		b.WriteString("\n" + highlight.Render("● LIVE ") + formatTime(pos))
	case m.status.duration > 0:
		filled := int(float64(barWidth) * float64(pos) / float64(m.status.duration))
		filled = min(max(filled, 0), barWidth)
		fmt.Fprintf(&b, "\n%s%s %s/%s",
			highlight.Render(strings.Repeat("█", filled)),
			mutedStyle.Render(strings.Repeat("─", barWidth-filled)),
			highlight.Render(formatTime(pos)),
			highlight.Render(formatTime(m.status.duration)),
		)
	case !m.status.loaded:
		b.WriteString("\n" + mutedStyle.Render("Nothing loaded"))
	}

	if m.lastError != nil {
		b.WriteString("\n\n" + errorStyle.Render("Error: "+m.lastError.Error()))
	}

	content := borderStyle.Width(cfg.UI.MaxWidth).Render(b.String())

	var help string
	if m.showHelp {
		help = lipgloss.NewStyle().
			Width(cfg.UI.MaxWidth).
			Align(lipgloss.Center).
			Render(strings.Join([]string{
				"Play/Pause: " + highlight.Render("p"),
				"Stop: " + highlight.Render("s"),
				"Seek: " + highlight.Render("←/→"),
				"Volume: " + highlight.Render("+/-"),
				"Loop: " + highlight.Render("l"),
				"Open: " + highlight.Render("o"),
				"Reset: " + highlight.Render("r"),
				"Quit: " + highlight.Render("q"),
			}, "  "))
	} else {
		help = mutedStyle.Render("Press ? for help")
	}

	ui := lipgloss.JoinVertical(lipgloss.Center, content, "\n"+help)
	if m.width == 0 || m.height == 0 {
		return ui
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, ui)
}
