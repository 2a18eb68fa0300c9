// Package scheduler re-evaluates payment notifications in the background,
// both on a cron schedule and whenever the installment store changes.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/Veraticus/the-fees-must-flow/internal/engine"
	"github.com/Veraticus/the-fees-must-flow/internal/model"
	"github.com/Veraticus/the-fees-must-flow/internal/notify"
	"github.com/Veraticus/the-fees-must-flow/internal/service"
)

// DefaultSchedule re-checks once a minute so a new day is noticed promptly.
const DefaultSchedule = "@every 1m"

// Reasons passed to Evaluate.
const (
	ReasonStart    = "start"
	ReasonSchedule = "schedule"
	ReasonChange   = "store change"
)

// ErrNoHandler is returned when a watcher is created without OnSummary.
var ErrNoHandler = errors.New("scheduler: OnSummary handler is required")

// Config controls a Watcher.
type Config struct {
	// OnSummary receives a track's summary whenever its surfaced payments or
	// the calendar date differ from the previous evaluation.
	OnSummary func(reason string, summary notify.Summary)
	Logger    *slog.Logger
	Schedule  string
	Tracks    []model.Track
}

// Watcher keeps notification summaries current for a long-running session.
type Watcher struct {
	engine    *engine.Engine
	cron      *cron.Cron
	onSummary func(string, notify.Summary)
	logger    *slog.Logger
	triggers  chan string
	last      map[model.Track]string
	schedule  string
	tracks    []model.Track
	mu        sync.Mutex
}

// New creates a watcher. The schedule uses the standard five-field cron
// syntax or descriptors such as "@every 1m".
func New(e *engine.Engine, cfg Config) (*Watcher, error) {
	if cfg.OnSummary == nil {
		return nil, ErrNoHandler
	}
	if cfg.Schedule == "" {
		cfg.Schedule = DefaultSchedule
	}
	if _, err := cron.ParseStandard(cfg.Schedule); err != nil {
		return nil, fmt.Errorf("invalid watch schedule %q: %w", cfg.Schedule, err)
	}
	if len(cfg.Tracks) == 0 {
		cfg.Tracks = []model.Track{model.TrackPrincipal, model.TrackTarot}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	c := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))))

	return &Watcher{
		engine:    e,
		cron:      c,
		onSummary: cfg.OnSummary,
		logger:    logger,
		triggers:  make(chan string, 1),
		last:      make(map[model.Track]string),
		schedule:  cfg.Schedule,
		tracks:    cfg.Tracks,
	}, nil
}

// Run evaluates once, then again on every scheduled tick and store change,
// until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	// Store listeners must not call back into the engine: they only signal.
	unsubscribe := w.engine.Storage().Subscribe(func(service.ChangeEvent) {
		w.trigger(ReasonChange)
	})
	defer unsubscribe()

	if _, err := w.cron.AddFunc(w.schedule, func() { w.trigger(ReasonSchedule) }); err != nil {
		return fmt.Errorf("failed to schedule notification checks: %w", err)
	}
	w.cron.Start()
	w.logger.Info("notification watcher started",
		slog.String("schedule", w.schedule),
		slog.Int("jobs", len(w.cron.Entries())),
	)
	defer func() {
		<-w.cron.Stop().Done()
		w.logger.Info("notification watcher stopped")
	}()

	if err := w.Evaluate(ctx, ReasonStart); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case reason := <-w.triggers:
			if err := w.Evaluate(ctx, reason); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				w.logger.Error("failed to evaluate notifications",
					slog.String("reason", reason),
					slog.Any("error", err),
				)
			}
		}
	}
}

// trigger queues an evaluation without blocking; pending triggers coalesce.
func (w *Watcher) trigger(reason string) {
	select {
	case w.triggers <- reason:
	default:
	}
}

// Evaluate computes every watched track's summary for the engine's current
// date and reports the ones that changed since the last evaluation.
func (w *Watcher) Evaluate(ctx context.Context, reason string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	today := w.engine.Today()
	for _, track := range w.tracks {
		summary, err := w.engine.Notifications(ctx, track, today)
		if err != nil {
			return fmt.Errorf("failed to evaluate %s notifications: %w", track, err)
		}

		fp := fingerprint(summary)
		if prev, seen := w.last[track]; seen && prev == fp {
			continue
		}
		w.last[track] = fp

		w.logger.Debug("notifications changed",
			slog.String("track", string(track)),
			slog.String("reason", reason),
			slog.Int("count", summary.Count),
		)
		w.onSummary(reason, summary)
	}
	return nil
}

// fingerprint identifies what a summary shows: the date plus every surfaced
// payment with its urgency.
func fingerprint(summary notify.Summary) string {
	var b strings.Builder
	b.WriteString(summary.Today.Format(model.DateLayout))
	for _, group := range summary.Groups {
		for _, p := range group.Payments() {
			fmt.Fprintf(&b, "|%s@%s:%s", p.ID, p.DueDate.Format(model.DateLayout), p.Urgency)
		}
	}
	return b.String()
}
