package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/the-fees-must-flow/internal/engine"
	"github.com/Veraticus/the-fees-must-flow/internal/model"
	"github.com/Veraticus/the-fees-must-flow/internal/notify"
	"github.com/Veraticus/the-fees-must-flow/internal/testutil"
)

type recorder struct {
	reports []notify.Summary
	reasons []string
	mu      sync.Mutex
}

func (r *recorder) record(reason string, summary notify.Summary) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reasons = append(r.reasons, reason)
	r.reports = append(r.reports, summary)
}

func (r *recorder) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.reports)
}

func (r *recorder) last() (string, notify.Summary) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reasons[len(r.reasons)-1], r.reports[len(r.reports)-1]
}

// clock is a settable engine clock.
type clock struct {
	now time.Time
	mu  sync.Mutex
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func setup(t *testing.T) (*engine.Engine, *clock) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	clk := &clock{now: time.Date(2024, time.February, 4, 9, 0, 0, 0, time.UTC)}
	e := engine.NewWithConfig(db.Storage, engine.Config{Now: clk.Now})
	require.NoError(t, e.SaveAppointment(context.Background(), testutil.Appointment("Ana").
		WithMonthly(testutil.MonthlyTerms(testutil.Reference, "200", 3, 5)).
		Build()))
	return e, clk
}

func TestNew_Validation(t *testing.T) {
	e, _ := setup(t)

	_, err := New(e, Config{})
	assert.ErrorIs(t, err, ErrNoHandler)

	_, err = New(e, Config{OnSummary: func(string, notify.Summary) {}, Schedule: "every minute"})
	assert.Error(t, err)

	w, err := New(e, Config{OnSummary: func(string, notify.Summary) {}})
	require.NoError(t, err)
	assert.Equal(t, DefaultSchedule, w.schedule)
	assert.Equal(t, []model.Track{model.TrackPrincipal, model.TrackTarot}, w.tracks)
}

func TestWatcher_EvaluateReportsOnlyChanges(t *testing.T) {
	e, clk := setup(t)
	rec := &recorder{}
	w, err := New(e, Config{OnSummary: rec.record, Tracks: []model.Track{model.TrackPrincipal}})
	require.NoError(t, err)
	ctx := context.Background()

	// February 4th: nothing due yet, but the first evaluation always reports.
	require.NoError(t, w.Evaluate(ctx, ReasonStart))
	require.Equal(t, 1, rec.len())
	_, summary := rec.last()
	assert.Zero(t, summary.Count)

	require.NoError(t, w.Evaluate(ctx, ReasonSchedule))
	assert.Equal(t, 1, rec.len(), "same day, same payments")

	// The day rolls over and the first installment comes due.
	clk.Set(time.Date(2024, time.February, 5, 0, 1, 0, 0, time.UTC))
	require.NoError(t, w.Evaluate(ctx, ReasonSchedule))
	require.Equal(t, 2, rec.len())
	reason, summary := rec.last()
	assert.Equal(t, ReasonSchedule, reason)
	assert.Equal(t, 1, summary.Count)
	assert.Equal(t, notify.UrgencyToday, summary.Groups[0].MostUrgent.Urgency)

	// Urgency escalates the next day even though the set is unchanged.
	clk.Set(time.Date(2024, time.February, 6, 8, 0, 0, 0, time.UTC))
	require.NoError(t, w.Evaluate(ctx, ReasonSchedule))
	require.Equal(t, 3, rec.len())
	_, summary = rec.last()
	assert.Equal(t, notify.UrgencyOverdue, summary.Groups[0].MostUrgent.Urgency)
}

func TestWatcher_RunReactsToStoreChanges(t *testing.T) {
	e, clk := setup(t)
	clk.Set(time.Date(2024, time.March, 5, 9, 0, 0, 0, time.UTC))

	rec := &recorder{}
	w, err := New(e, Config{
		OnSummary: rec.record,
		Schedule:  "@every 1h",
		Tracks:    []model.Track{model.TrackPrincipal},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool { return rec.len() == 1 }, 2*time.Second, 10*time.Millisecond)
	_, summary := rec.last()
	assert.Equal(t, 2, summary.Count)

	_, err = e.MarkPaid(context.Background(), "ana:monthly:1")
	require.NoError(t, err)

	require.Eventually(t, func() bool { return rec.len() == 2 }, 2*time.Second, 10*time.Millisecond)
	reason, summary := rec.last()
	assert.Equal(t, ReasonChange, reason)
	assert.Equal(t, 1, summary.Count)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}
