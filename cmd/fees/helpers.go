package main

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/the-fees-must-flow/internal/engine"
	"github.com/Veraticus/the-fees-must-flow/internal/model"
	"github.com/Veraticus/the-fees-must-flow/internal/plan"
	"github.com/Veraticus/the-fees-must-flow/internal/storage"
)

// envKeyReplacer maps nested keys such as database.path to FEES_DATABASE_PATH.
var envKeyReplacer = strings.NewReplacer(".", "_")

// initStorage opens the configured database and brings its schema up to date.
func initStorage(ctx context.Context) (*storage.SQLiteStorage, error) {
	store, err := storage.NewSQLiteStorage(settings.DatabasePath)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		closeStorage(store)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

func closeStorage(store *storage.SQLiteStorage) {
	if err := store.Close(); err != nil {
		slog.Error("failed to close storage", "error", err)
	}
}

// newEngine builds the lifecycle engine from the loaded settings.
func newEngine(store *storage.SQLiteStorage) *engine.Engine {
	return engine.NewWithConfig(store, engine.Config{
		Now:               time.Now,
		PostponeDays:      settings.PostponeDays,
		PreservePostponed: settings.PreservePostponed,
	})
}

// withEngine opens storage, runs fn with an engine over it and closes storage.
func withEngine(ctx context.Context, fn func(*engine.Engine) error) error {
	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer closeStorage(store)

	return fn(newEngine(store))
}

// parseDate reads a YYYY-MM-DD calendar date.
func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(model.DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (use YYYY-MM-DD): %w", s, err)
	}
	return t, nil
}

// parseWeekday accepts weekday names, or 0-6 with Sunday as 0.
func parseWeekday(s string) (time.Weekday, error) {
	if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
		if n < 0 || n > 6 {
			return 0, fmt.Errorf("invalid weekday %d (want 0-6)", n)
		}
		return time.Weekday(n), nil
	}
	return plan.ParseWeekday(s)
}

// parseTracks expands a --track value; "all" selects both tracks.
func parseTracks(s string) ([]model.Track, error) {
	if strings.EqualFold(strings.TrimSpace(s), "all") {
		return []model.Track{model.TrackPrincipal, model.TrackTarot}, nil
	}
	track, err := model.ParseTrack(s)
	if err != nil {
		return nil, err
	}
	return []model.Track{track}, nil
}
