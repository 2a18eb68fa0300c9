package storage

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/the-fees-must-flow/internal/model"
)

func TestSQLiteStorage_Appointments(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	friday := time.Friday
	appt := &model.Appointment{
		ID:         "appt-1",
		ClientName: "  Ana Souza ",
		MonthlyPlan: &model.PlanTerms{
			StartDate:       time.Date(2024, time.January, 10, 0, 0, 0, 0, time.UTC),
			AmountPerPeriod: decimal.RequireFromString("250.00"),
			TotalPeriods:    6,
			DueDayOfMonth:   10,
		},
		WeeklyPlan: &model.PlanTerms{
			StartDate:          time.Date(2024, time.January, 10, 0, 0, 0, 0, time.UTC),
			AmountPerPeriod:    decimal.NewFromInt(60),
			TotalPeriods:       4,
			DueWeekday:         &friday,
			NotificationTiming: model.TimingNextWeek,
		},
	}
	require.NoError(t, store.SaveAppointment(ctx, appt))
	assert.Equal(t, "Ana Souza", appt.ClientName)
	assert.False(t, appt.CreatedAt.IsZero())

	got, err := store.GetAppointment(ctx, "appt-1")
	require.NoError(t, err)
	assert.Equal(t, "Ana Souza", got.ClientName)
	require.NotNil(t, got.MonthlyPlan)
	require.NotNil(t, got.WeeklyPlan)
	assert.Equal(t, 6, got.MonthlyPlan.TotalPeriods)
	assert.True(t, decimal.NewFromInt(250).Equal(got.MonthlyPlan.AmountPerPeriod))
	assert.Equal(t, time.Friday, *got.WeeklyPlan.DueWeekday)
	assert.Equal(t, model.TimingNextWeek, got.WeeklyPlan.NotificationTiming)

	// Dropping a plan persists as NULL.
	got.WeeklyPlan = nil
	require.NoError(t, store.SaveAppointment(ctx, got))
	reloaded, err := store.GetAppointment(ctx, "appt-1")
	require.NoError(t, err)
	assert.Nil(t, reloaded.WeeklyPlan)
	assert.Equal(t, appt.CreatedAt.UTC(), reloaded.CreatedAt)

	list, err := store.ListAppointments(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, store.DeleteAppointment(ctx, "appt-1"))
	_, err = store.GetAppointment(ctx, "appt-1")
	assert.ErrorIs(t, err, ErrRecordNotFound)
	assert.ErrorIs(t, store.DeleteAppointment(ctx, "appt-1"), ErrRecordNotFound)
}

func TestSQLiteStorage_Analyses(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	legacy := &model.Analysis{ID: "an-1", LegacyName: "Carla"}
	require.NoError(t, store.SaveAnalysis(ctx, legacy))

	got, err := store.GetAnalysis(ctx, "an-1")
	require.NoError(t, err)
	assert.Equal(t, "Carla", got.OwnerName())
	assert.Nil(t, got.MonthlyPlan)

	assert.ErrorIs(t, store.SaveAnalysis(ctx, &model.Analysis{ID: "an-2"}), ErrInvalidRecord)

	list, err := store.ListAnalyses(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, store.DeleteAnalysis(ctx, "an-1"))
	assert.ErrorIs(t, store.DeleteAnalysis(ctx, "an-1"), ErrRecordNotFound)
}

func TestValidateRecords(t *testing.T) {
	assert.ErrorIs(t, validateAppointment(nil), ErrNilParameter)
	assert.ErrorIs(t, validateAppointment(&model.Appointment{ClientName: "Ana"}), ErrInvalidRecord)
	assert.ErrorIs(t, validateAppointment(&model.Appointment{ID: "a", ClientName: " "}), ErrInvalidRecord)
	assert.NoError(t, validateAppointment(&model.Appointment{ID: "a", ClientName: "Ana"}))

	assert.ErrorIs(t, validateAnalysis(nil), ErrNilParameter)
	assert.NoError(t, validateAnalysis(&model.Analysis{ID: "a", ClientName: "", LegacyName: "Ana"}))
}
