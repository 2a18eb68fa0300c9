package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

const actionTimeout = 10 * time.Second

const (
	actionPaid      = "marked paid"
	actionPending   = "restored to pending"
	actionPostponed = "postponed"
	actionDeleted   = "deleted"
)

// loadSummary sweeps orphans and recomputes the notifications of the
// current track.
func (m Model) loadSummary() tea.Cmd {
	e, track := m.engine, m.track
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()

		summary, err := e.Notifications(ctx, track, e.Today())
		if err != nil {
			return errorMsg{err: err}
		}
		return summaryLoadedMsg{summary: summary}
	}
}

// waitForChange blocks until the store reports a write or ctx ends.
func waitForChange(ctx context.Context, changes <-chan struct{}) tea.Cmd {
	if changes == nil {
		return nil
	}
	return func() tea.Msg {
		select {
		case <-changes:
			return storeChangedMsg{}
		case <-ctx.Done():
			return nil
		}
	}
}

func (m Model) markPaid(id string) tea.Cmd {
	return m.act(actionPaid, id, func(ctx context.Context) error {
		_, err := m.engine.MarkPaid(ctx, id)
		return err
	})
}

func (m Model) markPending(id string) tea.Cmd {
	return m.act(actionPending, id, func(ctx context.Context) error {
		_, err := m.engine.MarkPending(ctx, id)
		return err
	})
}

func (m Model) postpone(id string) tea.Cmd {
	return m.act(actionPostponed, id, func(ctx context.Context) error {
		_, err := m.engine.Postpone(ctx, id, 0)
		return err
	})
}

func (m Model) remove(id string) tea.Cmd {
	return m.act(actionDeleted, id, func(ctx context.Context) error {
		return m.engine.Delete(ctx, id)
	})
}

func (m Model) act(action, id string, fn func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()

		if err := fn(ctx); err != nil {
			return errorMsg{err: err}
		}
		return actionDoneMsg{action: action, id: id}
	}
}
