package ui

import (
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/bamsammich/fdeploy/internal/config"
)

// Catppuccin Mocha.
const (
	defaultGreen  = "#a6e3a1"
	defaultYellow = "#f9e2af"
	defaultRed    = "#f38ba8"
	defaultMuted  = "#5a6278"
	defaultBright = "#cdd6f4"
	colorMauve    = "#cba6f7"
)

// styles is the palette for one output stream. Colors are dropped
// automatically when the stream is not a terminal.
type styles struct {
	arrow  lipgloss.Style
	phase  lipgloss.Style
	ok     lipgloss.Style
	warn   lipgloss.Style
	fail   lipgloss.Style
	muted  lipgloss.Style
	bright lipgloss.Style
}

func newStyles(w io.Writer, tc config.ThemeConfig) styles {
	r := lipgloss.NewRenderer(w)
	green := themeColor(defaultGreen, tc.Green)
	yellow := themeColor(defaultYellow, tc.Yellow)
	red := themeColor(defaultRed, tc.Red)
	muted := themeColor(defaultMuted, tc.Muted)
	bright := themeColor(defaultBright, tc.Bright)

	return styles{
		arrow:  r.NewStyle().Bold(true).Foreground(lipgloss.Color(colorMauve)),
		phase:  r.NewStyle().Bold(true).Foreground(bright),
		ok:     r.NewStyle().Foreground(green),
		warn:   r.NewStyle().Foreground(yellow),
		fail:   r.NewStyle().Bold(true).Foreground(red),
		muted:  r.NewStyle().Foreground(muted),
		bright: r.NewStyle().Foreground(bright),
	}
}

func themeColor(def string, override *string) lipgloss.Color {
	if override != nil && *override != "" {
		return lipgloss.Color(*override)
	}
	return lipgloss.Color(def)
}
