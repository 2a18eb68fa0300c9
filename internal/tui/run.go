package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Veraticus/the-fees-must-flow/internal/service"
)

// Run shows the notification panel until the user quits or ctx is done.
// The panel refreshes itself whenever the installment store changes.
func Run(ctx context.Context, opts ...Option) error {
	m, err := New(opts...)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Listeners run on the writer's goroutine: only signal, never block.
	changes := make(chan struct{}, 1)
	unsubscribe := m.engine.Storage().Subscribe(func(service.ChangeEvent) {
		select {
		case changes <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	m.ctx = ctx
	m.changes = changes

	program := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := program.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			slog.Debug("notification panel stopped", "reason", ctx.Err())
			return nil
		}
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
