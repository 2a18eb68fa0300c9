package tui

import (
	"github.com/Veraticus/the-fees-must-flow/internal/engine"
	"github.com/Veraticus/the-fees-must-flow/internal/model"
	"github.com/Veraticus/the-fees-must-flow/internal/tui/themes"
)

// Config holds TUI configuration.
type Config struct {
	Theme    themes.Theme
	Engine   *engine.Engine
	Currency string
	Track    model.Track
	Width    int
	Height   int
	ShowHelp bool
}

// Option is a functional option for configuring the TUI.
type Option func(*Config)

func defaultConfig() Config {
	return Config{
		Theme:    themes.Default,
		Currency: "BRL",
		Track:    model.TrackPrincipal,
		Width:    80,
		Height:   24,
	}
}

// WithEngine sets the engine the panel reads from and acts through.
func WithEngine(e *engine.Engine) Option {
	return func(c *Config) {
		c.Engine = e
	}
}

// WithTheme sets the color theme.
func WithTheme(theme themes.Theme) Option {
	return func(c *Config) {
		c.Theme = theme
	}
}

// WithCurrency sets the ISO code used to display amounts.
func WithCurrency(code string) Option {
	return func(c *Config) {
		c.Currency = code
	}
}

// WithTrack selects the track shown first.
func WithTrack(track model.Track) Option {
	return func(c *Config) {
		c.Track = track
	}
}

// WithSize sets the initial terminal size.
func WithSize(width, height int) Option {
	return func(c *Config) {
		c.Width = width
		c.Height = height
	}
}
