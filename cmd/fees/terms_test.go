package main

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/the-fees-must-flow/internal/model"
)

func newTermsCmd(t *testing.T, cadence model.Cadence, allowDrop bool, args map[string]string) (*cobra.Command, *termsFlags) {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	tf := newTermsFlags(cmd, cadence, allowDrop)
	for name, value := range args {
		require.NoError(t, cmd.Flags().Set(name, value), name)
	}
	return cmd, tf
}

func TestTermsFlags_NewPlan(t *testing.T) {
	today := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	cmd, tf := newTermsCmd(t, model.CadenceMonthly, false, map[string]string{
		"monthly-amount":  "200.50",
		"monthly-periods": "6",
	})

	terms, err := tf.apply(cmd, nil, today)
	require.NoError(t, err)
	require.NotNil(t, terms)
	assert.True(t, decimal.RequireFromString("200.50").Equal(terms.AmountPerPeriod))
	assert.Equal(t, 6, terms.TotalPeriods)
	assert.Equal(t, today, terms.StartDate)
	assert.Equal(t, model.DefaultDueDayOfMonth, terms.DueDayOfMonth)
	assert.Equal(t, model.TimingOnDueDate, terms.NotificationTiming)
}

func TestTermsFlags_WeeklyDefaults(t *testing.T) {
	cmd, tf := newTermsCmd(t, model.CadenceWeekly, false, map[string]string{
		"weekly-amount":  "50",
		"weekly-periods": "4",
		"weekly-start":   "2024-01-10",
		"weekly-timing":  "next_week",
	})

	terms, err := tf.apply(cmd, nil, time.Time{})
	require.NoError(t, err)
	require.NotNil(t, terms.DueWeekday)
	assert.Equal(t, time.Friday, *terms.DueWeekday)
	assert.Equal(t, time.Date(2024, time.January, 10, 0, 0, 0, 0, time.UTC), terms.StartDate)
	assert.Equal(t, model.TimingNextWeek, terms.NotificationTiming)
	assert.Zero(t, terms.DueDayOfMonth)
}

func TestTermsFlags_NoFlagsKeepsBase(t *testing.T) {
	cmd, tf := newTermsCmd(t, model.CadenceMonthly, true, nil)

	terms, err := tf.apply(cmd, nil, time.Now())
	require.NoError(t, err)
	assert.Nil(t, terms, "no flags and no base means no plan")

	base := &model.PlanTerms{TotalPeriods: 3, AmountPerPeriod: decimal.NewFromInt(10)}
	terms, err = tf.apply(cmd, base, time.Now())
	require.NoError(t, err)
	assert.Same(t, base, terms)
}

func TestTermsFlags_EditOverridesOnlyChangedFields(t *testing.T) {
	start := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	base := &model.PlanTerms{
		StartDate:          start,
		AmountPerPeriod:    decimal.NewFromInt(100),
		TotalPeriods:       3,
		DueDayOfMonth:      20,
		NotificationTiming: model.TimingNextWeek,
	}
	cmd, tf := newTermsCmd(t, model.CadenceMonthly, true, map[string]string{
		"monthly-periods": "5",
	})

	terms, err := tf.apply(cmd, base, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 5, terms.TotalPeriods)
	assert.Equal(t, start, terms.StartDate)
	assert.True(t, decimal.NewFromInt(100).Equal(terms.AmountPerPeriod))
	assert.Equal(t, 20, terms.DueDayOfMonth)
	assert.Equal(t, model.TimingNextWeek, terms.NotificationTiming)
	assert.Equal(t, 3, base.TotalPeriods, "base is not modified")
}

func TestTermsFlags_Drop(t *testing.T) {
	base := &model.PlanTerms{TotalPeriods: 3}

	cmd, tf := newTermsCmd(t, model.CadenceWeekly, true, map[string]string{"no-weekly": "true"})
	terms, err := tf.apply(cmd, base, time.Now())
	require.NoError(t, err)
	assert.Nil(t, terms)

	cmd, tf = newTermsCmd(t, model.CadenceWeekly, true, map[string]string{
		"no-weekly":      "true",
		"weekly-periods": "2",
	})
	_, err = tf.apply(cmd, base, time.Now())
	assert.ErrorContains(t, err, "--no-weekly")
}

func TestTermsFlags_InvalidInput(t *testing.T) {
	tests := []struct {
		name string
		args map[string]string
	}{
		{name: "missing amount", args: map[string]string{"monthly-periods": "2"}},
		{name: "bad amount", args: map[string]string{"monthly-amount": "ten", "monthly-periods": "2"}},
		{name: "bad start", args: map[string]string{"monthly-amount": "10", "monthly-start": "March"}},
		{name: "bad timing", args: map[string]string{"monthly-amount": "10", "monthly-timing": "later"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, tf := newTermsCmd(t, model.CadenceMonthly, false, tt.args)
			_, err := tf.apply(cmd, nil, time.Now())
			assert.Error(t, err)
		})
	}
}
