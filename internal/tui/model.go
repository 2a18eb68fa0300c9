// Package tui implements the interactive notification panel.
package tui

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Veraticus/the-fees-must-flow/internal/engine"
	"github.com/Veraticus/the-fees-must-flow/internal/model"
	"github.com/Veraticus/the-fees-must-flow/internal/notify"
	"github.com/Veraticus/the-fees-must-flow/internal/tui/themes"
)

// ErrNoEngine is returned when the panel is built without an engine.
var ErrNoEngine = errors.New("tui: engine is required")

// Model is the bubbletea model of the notification panel.
type Model struct {
	err      error
	ctx      context.Context
	engine   *engine.Engine
	changes  <-chan struct{}
	theme    themes.Theme
	help     help.Model
	keys     KeyMap
	currency string
	track    model.Track
	status   string
	// lastPaid is the id the undo key restores to pending.
	lastPaid string
	summary  notify.Summary
	// payments flattens summary.Groups in display order; cursor indexes it.
	payments []notify.Payment
	cursor   int
	width    int
	height   int
	loading  bool
	quitting bool
}

// New creates the panel model.
func New(opts ...Option) (Model, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Engine == nil {
		return Model{}, ErrNoEngine
	}

	h := help.New()
	h.ShowAll = cfg.ShowHelp
	h.Width = cfg.Width

	return Model{
		ctx:      context.Background(),
		engine:   cfg.Engine,
		theme:    cfg.Theme,
		help:     h,
		keys:     DefaultKeyMap(),
		currency: cfg.Currency,
		track:    cfg.Track,
		width:    cfg.Width,
		height:   cfg.Height,
		loading:  true,
	}, nil
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.loadSummary(), waitForChange(m.ctx, m.changes))
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case summaryLoadedMsg:
		m.loading = false
		m.err = nil
		m.setSummary(msg.summary)
		return m, nil

	case storeChangedMsg:
		return m, tea.Batch(m.loadSummary(), waitForChange(m.ctx, m.changes))

	case actionDoneMsg:
		m.status = fmt.Sprintf("%s %s", msg.id, msg.action)
		switch msg.action {
		case actionPaid:
			m.lastPaid = msg.id
		case actionPending:
			m.lastPaid = ""
		}
		return m, m.loadSummary()

	case errorMsg:
		m.loading = false
		m.err = msg.err
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.payments)-1 {
			m.cursor++
		}
		return m, nil

	case key.Matches(msg, m.keys.Home):
		m.cursor = 0
		return m, nil

	case key.Matches(msg, m.keys.End):
		m.cursor = max(len(m.payments)-1, 0)
		return m, nil

	case key.Matches(msg, m.keys.ToggleTrack):
		if m.track == model.TrackPrincipal {
			m.track = model.TrackTarot
		} else {
			m.track = model.TrackPrincipal
		}
		m.cursor = 0
		m.loading = true
		return m, m.loadSummary()

	case key.Matches(msg, m.keys.Refresh):
		m.loading = true
		return m, m.loadSummary()

	case key.Matches(msg, m.keys.Unpay):
		if m.lastPaid == "" {
			return m, nil
		}
		return m, m.markPending(m.lastPaid)
	}

	selected, ok := m.Selected()
	if !ok {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Pay):
		return m, m.markPaid(selected.ID)
	case key.Matches(msg, m.keys.Postpone):
		return m, m.postpone(selected.ID)
	case key.Matches(msg, m.keys.Delete):
		return m, m.remove(selected.ID)
	}
	return m, nil
}

func (m *Model) setSummary(summary notify.Summary) {
	m.summary = summary
	payments := make([]notify.Payment, 0, summary.Count)
	for _, group := range summary.Groups {
		payments = append(payments, group.Payments()...)
	}
	m.payments = payments
	if m.cursor >= len(m.payments) {
		m.cursor = max(len(m.payments)-1, 0)
	}
}

// Selected returns the payment under the cursor.
func (m Model) Selected() (notify.Payment, bool) {
	if m.cursor < 0 || m.cursor >= len(m.payments) {
		return notify.Payment{}, false
	}
	return m.payments[m.cursor], true
}

// Track returns the track currently shown.
func (m Model) Track() model.Track {
	return m.track
}

// Summary returns the summary currently shown.
func (m Model) Summary() notify.Summary {
	return m.summary
}
