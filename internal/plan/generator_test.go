package plan

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/the-fees-must-flow/internal/calendar"
	"github.com/Veraticus/the-fees-must-flow/internal/common"
	"github.com/Veraticus/the-fees-must-flow/internal/model"
)

var fixedNow = time.Date(2024, time.January, 2, 9, 0, 0, 0, time.UTC)

func testGenerator(preservePostponed bool) *Generator {
	return NewGenerator(Config{
		Now:               func() time.Time { return fixedNow },
		PreservePostponed: preservePostponed,
	})
}

func weekday(wd time.Weekday) *time.Weekday { return &wd }

func monthlyConfig(owner string, periods, day int, amount string) model.PlanConfiguration {
	return model.PlanConfiguration{
		OwnerClientName: owner,
		Cadence:         model.CadenceMonthly,
		PlanTerms: model.PlanTerms{
			StartDate:       calendar.Date(2024, time.January, 31),
			AmountPerPeriod: decimal.RequireFromString(amount),
			TotalPeriods:    periods,
			DueDayOfMonth:   day,
		},
	}
}

func dueDates(installments []model.Installment) []time.Time {
	out := make([]time.Time, len(installments))
	for i, inst := range installments {
		out[i] = inst.DueDate
	}
	return out
}

func TestGenerator_Monthly(t *testing.T) {
	got, err := testGenerator(false).Generate(monthlyConfig("Ana", 3, 31, "150"))
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, []time.Time{
		calendar.Date(2024, time.February, 29),
		calendar.Date(2024, time.March, 31),
		calendar.Date(2024, time.April, 30),
	}, dueDates(got))

	for i, inst := range got {
		assert.Equal(t, i+1, inst.SequenceIndex)
		assert.Equal(t, 3, inst.TotalPeriods)
		assert.True(t, inst.Pending)
		assert.Equal(t, "Ana", inst.OwnerClientName)
		assert.Empty(t, inst.LinkedRecordID)
		assert.Equal(t, model.CadenceMonthly, inst.Cadence)
		assert.Equal(t, model.TimingOnDueDate, inst.NotificationTiming)
		assert.True(t, decimal.RequireFromString("150").Equal(inst.Amount))
		assert.Equal(t, fixedNow, inst.CreatedAt)
	}
	assert.Equal(t, "ana:monthly:2", got[1].ID)
	assert.True(t, got[2].IsLast())
}

func TestGenerator_MonthlyFirstDueIsOnePeriodAfterStart(t *testing.T) {
	cfg := monthlyConfig("Ana", 1, 0, "100")
	cfg.StartDate = calendar.Date(2024, time.March, 5)

	got, err := testGenerator(false).Generate(cfg)
	require.NoError(t, err)

	// Due day defaults to the 5th and never lands on the start date itself.
	assert.Equal(t, calendar.Date(2024, time.April, 5), got[0].DueDate)
}

func TestGenerator_Weekly(t *testing.T) {
	wednesday := calendar.Date(2024, time.May, 1)
	cfg := model.PlanConfiguration{
		OwnerClientName: "Bruno",
		LinkedRecordID:  "analysis-1",
		Cadence:         model.CadenceWeekly,
		PlanTerms: model.PlanTerms{
			StartDate:          wednesday,
			AmountPerPeriod:    decimal.NewFromInt(80),
			TotalPeriods:       3,
			DueWeekday:         weekday(time.Friday),
			NotificationTiming: model.TimingNextWeek,
		},
	}

	got, err := testGenerator(false).Generate(cfg)
	require.NoError(t, err)

	assert.Equal(t, []time.Time{
		calendar.Date(2024, time.May, 3),
		calendar.Date(2024, time.May, 10),
		calendar.Date(2024, time.May, 17),
	}, dueDates(got))
	assert.Equal(t, "analysis-1:weekly:1", got[0].ID)
	assert.Equal(t, model.TrackTarot, got[0].Track())
	assert.Equal(t, model.TimingNextWeek, got[0].NotificationTiming)
}

func TestGenerator_WeeklyDefaultsToFridayAndMayStartOnStartDate(t *testing.T) {
	friday := calendar.Date(2024, time.May, 3)
	cfg := model.PlanConfiguration{
		OwnerClientName: "Bruno",
		Cadence:         model.CadenceWeekly,
		PlanTerms: model.PlanTerms{
			StartDate:       friday,
			AmountPerPeriod: decimal.NewFromInt(80),
			TotalPeriods:    2,
		},
	}

	got, err := testGenerator(false).Generate(cfg)
	require.NoError(t, err)
	assert.Equal(t, friday, got[0].DueDate)
	assert.Equal(t, calendar.Date(2024, time.May, 10), got[1].DueDate)
}

func TestGenerator_InvalidConfiguration(t *testing.T) {
	tests := []struct {
		mutate func(*model.PlanConfiguration)
		name   string
	}{
		{name: "empty owner", mutate: func(c *model.PlanConfiguration) { c.OwnerClientName = "  " }},
		{name: "zero periods", mutate: func(c *model.PlanConfiguration) { c.TotalPeriods = 0 }},
		{name: "negative amount", mutate: func(c *model.PlanConfiguration) { c.AmountPerPeriod = decimal.NewFromInt(-1) }},
		{name: "day out of range", mutate: func(c *model.PlanConfiguration) { c.DueDayOfMonth = 32 }},
		{name: "missing start date", mutate: func(c *model.PlanConfiguration) { c.StartDate = time.Time{} }},
		{name: "unknown cadence", mutate: func(c *model.PlanConfiguration) { c.Cadence = "daily" }},
		{name: "unknown timing", mutate: func(c *model.PlanConfiguration) { c.NotificationTiming = "someday" }},
		{name: "weekday out of range", mutate: func(c *model.PlanConfiguration) {
			c.Cadence = model.CadenceWeekly
			c.DueWeekday = weekday(time.Weekday(9))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := monthlyConfig("Ana", 3, 10, "100")
			tt.mutate(&cfg)

			got, err := testGenerator(false).Generate(cfg)
			require.ErrorIs(t, err, common.ErrInvalidConfiguration)
			assert.Nil(t, got)
		})
	}
}

func TestGenerator_RegenerateCarriesPaidState(t *testing.T) {
	gen := testGenerator(false)
	original, err := gen.Generate(monthlyConfig("Ana", 3, 31, "150"))
	require.NoError(t, err)
	original[1].Pending = false

	later := NewGenerator(Config{Now: func() time.Time { return fixedNow.Add(48 * time.Hour) }})
	got, err := later.Regenerate(monthlyConfig("Ana", 3, 31, "175"), original)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.True(t, got[0].Pending)
	assert.False(t, got[1].Pending)
	assert.True(t, got[2].Pending)
	assert.Equal(t, original[1].DueDate, got[1].DueDate)
	assert.Equal(t, original[1].ID, got[1].ID)
	for _, inst := range got {
		assert.True(t, decimal.NewFromInt(175).Equal(inst.Amount))
		assert.Equal(t, fixedNow, inst.CreatedAt)
	}
}

func TestGenerator_RegenerateAppendsFreshPeriods(t *testing.T) {
	gen := testGenerator(false)
	original, err := gen.Generate(monthlyConfig("Ana", 2, 10, "100"))
	require.NoError(t, err)
	original[0].Pending = false
	original[1].Pending = false

	got, err := gen.Regenerate(monthlyConfig("Ana", 4, 15, "100"), original)
	require.NoError(t, err)
	require.Len(t, got, 4)

	var seqs []int
	for _, inst := range got {
		seqs = append(seqs, inst.SequenceIndex)
		assert.Equal(t, 4, inst.TotalPeriods)
		assert.Equal(t, 15, inst.DueDate.Day())
	}
	assert.Equal(t, []int{1, 2, 3, 4}, seqs)
	assert.False(t, got[0].Pending)
	assert.False(t, got[1].Pending)
	assert.True(t, got[2].Pending)
	assert.True(t, got[3].Pending)
}

func TestGenerator_RegeneratePostponedDueDates(t *testing.T) {
	original, err := testGenerator(false).Generate(monthlyConfig("Ana", 2, 10, "100"))
	require.NoError(t, err)
	moved := original[0].DueDate.AddDate(0, 0, 7)
	original[0].DueDate = moved
	original[0].Postponed = true

	dropped, err := testGenerator(false).Regenerate(monthlyConfig("Ana", 2, 10, "100"), original)
	require.NoError(t, err)
	assert.Equal(t, calendar.Date(2024, time.February, 10), dropped[0].DueDate)
	assert.False(t, dropped[0].Postponed)

	kept, err := testGenerator(true).Regenerate(monthlyConfig("Ana", 2, 10, "100"), original)
	require.NoError(t, err)
	assert.Equal(t, moved, kept[0].DueDate)
	assert.True(t, kept[0].Postponed)
}

func TestGenerator_DueDatesStrictlyIncrease(t *testing.T) {
	gen := testGenerator(false)
	for day := 1; day <= 31; day++ {
		got, err := gen.Generate(monthlyConfig("Ana", 24, day, "1"))
		require.NoError(t, err)
		for i := 1; i < len(got); i++ {
			assert.True(t, got[i].DueDate.After(got[i-1].DueDate), "day %d period %d", day, i+1)
		}
	}
}

func TestParseWeekday(t *testing.T) {
	wd, err := ParseWeekday("fri")
	require.NoError(t, err)
	assert.Equal(t, time.Friday, wd)

	wd, err = ParseWeekday(" Sunday ")
	require.NoError(t, err)
	assert.Equal(t, time.Sunday, wd)

	_, err = ParseWeekday("someday")
	assert.ErrorIs(t, err, common.ErrInvalidConfiguration)
}

func TestParseStartDate(t *testing.T) {
	got, err := ParseStartDate("2024-02-29")
	require.NoError(t, err)
	assert.Equal(t, calendar.Date(2024, time.February, 29), got)

	_, err = ParseStartDate("29/02/2024")
	assert.ErrorIs(t, err, common.ErrInvalidConfiguration)
}
