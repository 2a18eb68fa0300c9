package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/the-fees-must-flow/internal/integrity"
	"github.com/Veraticus/the-fees-must-flow/internal/model"
	"github.com/Veraticus/the-fees-must-flow/internal/notify"
)

// Sweep removes installments whose owner no longer matches any stored record
// and reports how many were removed. The store is only written when
// something was actually dropped.
func (e *Engine) Sweep(ctx context.Context) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	_, removed, err := e.sweep(ctx)
	return removed, err
}

func (e *Engine) sweep(ctx context.Context) ([]model.Installment, int, error) {
	appointments, err := e.storage.ListAppointments(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list appointments: %w", err)
	}
	analyses, err := e.storage.ListAnalyses(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list analyses: %w", err)
	}
	all, err := e.storage.GetAll(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load installments: %w", err)
	}

	retained, orphans := integrity.SweepOrphans(all, integrity.OwnersFromRecords(appointments, analyses))
	if orphans == 0 {
		return all, 0, nil
	}

	removed, err := e.storage.RemoveMany(ctx, integrity.OrphanIDs(all, retained))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to remove orphaned installments: %w", err)
	}

	slog.Info("swept orphaned installments", "removed", removed, "retained", len(retained))
	return retained, removed, nil
}

// Notifications sweeps orphans and then returns what should be surfaced on
// track for the given day.
func (e *Engine) Notifications(ctx context.Context, track model.Track, today time.Time) (notify.Summary, error) {
	e.mu.Lock()
	installments, _, err := e.sweep(ctx)
	e.mu.Unlock()
	if err != nil {
		return notify.Summary{}, err
	}

	summary := notify.Summarize(installments, today, track)
	slog.Debug("evaluated notifications",
		"track", track,
		"today", summary.Today.Format(model.DateLayout),
		"surfaced", summary.Count,
		"clients", len(summary.Groups))
	return summary, nil
}
