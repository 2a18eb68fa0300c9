package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/the-fees-must-flow/internal/calendar"
	"github.com/Veraticus/the-fees-must-flow/internal/common"
	"github.com/Veraticus/the-fees-must-flow/internal/model"
	"github.com/Veraticus/the-fees-must-flow/internal/testutil"
)

func newTestEngine(t *testing.T, cfg Config) (*Engine, *testutil.TestDB) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	if cfg.Now == nil {
		cfg.Now = testutil.FixedClock(testutil.CreatedAt)
	}
	return NewWithConfig(db.Storage, cfg), db
}

func monthlyConfig(client string, start time.Time, amount string, periods, dueDay int) model.PlanConfiguration {
	return model.PlanConfiguration{
		PlanTerms:       *testutil.MonthlyTerms(start, amount, periods, dueDay),
		OwnerClientName: client,
		Cadence:         model.CadenceMonthly,
	}
}

func assertSequenceComplete(t *testing.T, installments []model.Installment) {
	t.Helper()
	require.NotEmpty(t, installments)
	total := installments[0].TotalPeriods
	require.Len(t, installments, total)
	seen := make(map[int]bool, total)
	for i, inst := range installments {
		assert.False(t, seen[inst.SequenceIndex], "duplicate sequence index %d", inst.SequenceIndex)
		seen[inst.SequenceIndex] = true
		assert.Equal(t, i+1, inst.SequenceIndex)
		assert.Equal(t, total, inst.TotalPeriods)
	}
}

func TestEngine_SavePlan(t *testing.T) {
	e, db := newTestEngine(t, Config{})
	ctx := context.Background()

	cfg := monthlyConfig("Ana", calendar.Date(2024, time.January, 31), "200", 3, 31)
	installments, err := e.SavePlan(ctx, cfg)
	require.NoError(t, err)

	require.Len(t, installments, 3)
	assert.Equal(t, calendar.Date(2024, time.February, 29), installments[0].DueDate)
	assert.Equal(t, calendar.Date(2024, time.March, 31), installments[1].DueDate)
	assert.Equal(t, calendar.Date(2024, time.April, 30), installments[2].DueDate)

	stored := db.MustGetPlan(cfg.Owner())
	assertSequenceComplete(t, stored)
	for _, inst := range stored {
		assert.True(t, inst.Pending)
		assert.Equal(t, testutil.CreatedAt, inst.CreatedAt)
	}
}

func TestEngine_SavePlan_RegenerationKeepsPaidPeriods(t *testing.T) {
	e, db := newTestEngine(t, Config{})
	ctx := context.Background()

	cfg := monthlyConfig("Ana", calendar.Date(2024, time.January, 10), "200", 4, 5)
	_, err := e.SavePlan(ctx, cfg)
	require.NoError(t, err)

	secondID := model.InstallmentID(cfg.Owner(), 2)
	_, err = e.MarkPaid(ctx, secondID)
	require.NoError(t, err)

	cfg.AmountPerPeriod = decimal.RequireFromString("250")
	_, err = e.SavePlan(ctx, cfg)
	require.NoError(t, err)

	stored := db.MustGetPlan(cfg.Owner())
	assertSequenceComplete(t, stored)
	for _, inst := range stored {
		assert.True(t, decimal.NewFromInt(250).Equal(inst.Amount), "installment %s", inst.ID)
		if inst.ID == secondID {
			assert.False(t, inst.Pending)
			assert.Equal(t, calendar.Date(2024, time.March, 5), inst.DueDate)
		} else {
			assert.True(t, inst.Pending)
		}
	}
}

func TestEngine_SavePlan_ShrinkAndGrow(t *testing.T) {
	e, db := newTestEngine(t, Config{})
	ctx := context.Background()

	cfg := monthlyConfig("Ana", calendar.Date(2024, time.January, 10), "100", 5, 5)
	_, err := e.SavePlan(ctx, cfg)
	require.NoError(t, err)
	_, err = e.MarkPaid(ctx, model.InstallmentID(cfg.Owner(), 1))
	require.NoError(t, err)
	_, err = e.Postpone(ctx, model.InstallmentID(cfg.Owner(), 3), 0)
	require.NoError(t, err)

	cfg.TotalPeriods = 3
	_, err = e.SavePlan(ctx, cfg)
	require.NoError(t, err)
	stored := db.MustGetPlan(cfg.Owner())
	assertSequenceComplete(t, stored)
	assert.False(t, stored[0].Pending)

	cfg.TotalPeriods = 6
	_, err = e.SavePlan(ctx, cfg)
	require.NoError(t, err)
	stored = db.MustGetPlan(cfg.Owner())
	assertSequenceComplete(t, stored)
	assert.False(t, stored[0].Pending)
	for i := 1; i < len(stored); i++ {
		assert.True(t, stored[i].DueDate.After(stored[i-1].DueDate))
	}
}

func TestEngine_SavePlan_RejectsInvalidConfiguration(t *testing.T) {
	e, db := newTestEngine(t, Config{})

	cfg := monthlyConfig("Ana", calendar.Date(2024, time.January, 10), "100", 0, 5)
	_, err := e.SavePlan(context.Background(), cfg)

	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrInvalidConfiguration)
	var userErr *common.UserError
	require.True(t, errors.As(err, &userErr))
	assert.Equal(t, "could not save plan", userErr.UserMessage)
	assert.Empty(t, db.MustGetAll())
}

func TestEngine_SavePlan_CaseVariantOwnerKeepsPayments(t *testing.T) {
	e, db := newTestEngine(t, Config{})
	ctx := context.Background()

	_, err := e.SavePlan(ctx, monthlyConfig("Ana", calendar.Date(2024, time.January, 10), "100", 3, 5))
	require.NoError(t, err)
	_, err = e.MarkPaid(ctx, "ana:monthly:1")
	require.NoError(t, err)

	installments, err := e.SavePlan(ctx, monthlyConfig("ANA", calendar.Date(2024, time.January, 10), "100", 2, 5))
	require.NoError(t, err)
	require.Len(t, installments, 2)

	all := db.MustGetAll()
	assertSequenceComplete(t, all)
	assert.Equal(t, []string{"ana:monthly:1", "ana:monthly:2"}, []string{all[0].ID, all[1].ID})
	assert.False(t, all[0].Pending, "payment recorded under the other spelling is kept")
	assert.True(t, all[1].Pending)
	for _, inst := range all {
		assert.Equal(t, "ANA", inst.OwnerClientName)
		assert.Equal(t, 2, inst.TotalPeriods)
	}

	// Either spelling reaches the same plan.
	assert.Len(t, db.MustGetPlan(model.PlanOwner{ClientName: " ana ", Cadence: model.CadenceMonthly}), 2)

	removed, err := e.DeletePlanFor(ctx, model.PlanOwner{ClientName: "Ana", Cadence: model.CadenceMonthly})
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.Empty(t, db.MustGetAll())
}

func TestEngine_MarkPaidAndPending(t *testing.T) {
	e, _ := newTestEngine(t, Config{})
	ctx := context.Background()

	cfg := monthlyConfig("Ana", calendar.Date(2024, time.January, 10), "100", 2, 5)
	_, err := e.SavePlan(ctx, cfg)
	require.NoError(t, err)
	id := model.InstallmentID(cfg.Owner(), 2)

	paid, err := e.MarkPaid(ctx, id)
	require.NoError(t, err)
	assert.False(t, paid.Pending)

	// Paying twice is harmless.
	paid, err = e.MarkPaid(ctx, id)
	require.NoError(t, err)
	assert.False(t, paid.Pending)

	reopened, err := e.MarkPending(ctx, id)
	require.NoError(t, err)
	assert.True(t, reopened.Pending)

	_, err = e.MarkPaid(ctx, "missing")
	assert.True(t, common.IsNotFound(err))
}

func TestEngine_Postpone(t *testing.T) {
	e, db := newTestEngine(t, Config{})
	ctx := context.Background()

	cfg := monthlyConfig("Ana", calendar.Date(2024, time.January, 10), "100", 3, 5)
	_, err := e.SavePlan(ctx, cfg)
	require.NoError(t, err)
	id := model.InstallmentID(cfg.Owner(), 1)

	moved, err := e.Postpone(ctx, id, 0)
	require.NoError(t, err)
	assert.Equal(t, calendar.Date(2024, time.February, 12), moved.DueDate)
	assert.True(t, moved.Postponed)

	moved, err = e.Postpone(ctx, id, 3)
	require.NoError(t, err)
	assert.Equal(t, calendar.Date(2024, time.February, 15), moved.DueDate)

	// Siblings stay put.
	stored := db.MustGetPlan(cfg.Owner())
	assert.Equal(t, calendar.Date(2024, time.March, 5), stored[1].DueDate)
	assert.False(t, stored[1].Postponed)

	_, err = e.MarkPaid(ctx, id)
	require.NoError(t, err)
	_, err = e.Postpone(ctx, id, 7)
	assert.ErrorIs(t, err, ErrNotPending)

	_, err = e.Postpone(ctx, "missing", 7)
	assert.True(t, common.IsNotFound(err))
}

func TestEngine_PostponedDatesAcrossRegeneration(t *testing.T) {
	tests := []struct {
		name     string
		wantDue  time.Time
		preserve bool
	}{
		{name: "regeneration resets the due date", preserve: false, wantDue: calendar.Date(2024, time.February, 5)},
		{name: "regeneration keeps the postponed date", preserve: true, wantDue: calendar.Date(2024, time.February, 12)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, db := newTestEngine(t, Config{PreservePostponed: tt.preserve})
			ctx := context.Background()

			cfg := monthlyConfig("Ana", calendar.Date(2024, time.January, 10), "100", 3, 5)
			_, err := e.SavePlan(ctx, cfg)
			require.NoError(t, err)
			_, err = e.Postpone(ctx, model.InstallmentID(cfg.Owner(), 1), 7)
			require.NoError(t, err)

			cfg.AmountPerPeriod = decimal.NewFromInt(120)
			_, err = e.SavePlan(ctx, cfg)
			require.NoError(t, err)

			stored := db.MustGetPlan(cfg.Owner())
			assert.Equal(t, tt.wantDue, stored[0].DueDate)
			assert.Equal(t, tt.preserve, stored[0].Postponed)
		})
	}
}

func TestEngine_DeleteAndDeletePlanFor(t *testing.T) {
	e, db := newTestEngine(t, Config{})
	ctx := context.Background()

	monthly := monthlyConfig("Ana", calendar.Date(2024, time.January, 10), "100", 3, 5)
	_, err := e.SavePlan(ctx, monthly)
	require.NoError(t, err)
	weekly := model.PlanConfiguration{
		PlanTerms:       *testutil.WeeklyTerms(testutil.Reference, "40", 4, time.Friday),
		OwnerClientName: "Ana",
		Cadence:         model.CadenceWeekly,
	}
	_, err = e.SavePlan(ctx, weekly)
	require.NoError(t, err)

	require.NoError(t, e.Delete(ctx, model.InstallmentID(weekly.Owner(), 4)))
	assert.True(t, common.IsNotFound(e.Delete(ctx, model.InstallmentID(weekly.Owner(), 4))))
	assert.Len(t, db.MustGetPlan(weekly.Owner()), 3)

	removed, err := e.DeletePlanFor(ctx, model.PlanOwner{ClientName: " Ana ", Cadence: model.CadenceMonthly})
	require.NoError(t, err)
	assert.Equal(t, 3, removed)
	assert.Empty(t, db.MustGetPlan(monthly.Owner()))
	assert.Len(t, db.MustGetPlan(weekly.Owner()), 3)
}

func TestEngine_Today(t *testing.T) {
	e, _ := newTestEngine(t, Config{})
	assert.Equal(t, testutil.Reference, e.Today())
}
