package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/the-fees-must-flow/internal/calendar"
	"github.com/Veraticus/the-fees-must-flow/internal/common"
	"github.com/Veraticus/the-fees-must-flow/internal/model"
	"github.com/Veraticus/the-fees-must-flow/internal/testutil"
)

var (
	start      = calendar.Date(2024, time.January, 10)
	anaMonthly = model.PlanOwner{ClientName: "Ana", Cadence: model.CadenceMonthly}
	anaWeekly  = model.PlanOwner{ClientName: "Ana", Cadence: model.CadenceWeekly}
)

func TestEngine_SaveAppointment(t *testing.T) {
	e, db := newTestEngine(t, Config{})
	ctx := context.Background()

	appt := testutil.Appointment(" Ana ").
		WithMonthly(testutil.MonthlyTerms(start, "200", 3, 5)).
		WithWeekly(testutil.WeeklyTerms(start, "50", 4, time.Friday)).
		Build()
	require.NoError(t, e.SaveAppointment(ctx, appt))

	assert.NotEmpty(t, appt.ID)
	assert.Equal(t, "Ana", appt.ClientName)
	assertSequenceComplete(t, db.MustGetPlan(anaMonthly))
	weekly := db.MustGetPlan(anaWeekly)
	assertSequenceComplete(t, weekly)
	assert.Equal(t, calendar.Date(2024, time.January, 12), weekly[0].DueDate)

	// Dropping the weekly plan removes its installments.
	appt.WeeklyPlan = nil
	require.NoError(t, e.SaveAppointment(ctx, appt))
	assert.Empty(t, db.MustGetPlan(anaWeekly))
	assert.Len(t, db.MustGetPlan(anaMonthly), 3)
}

func TestEngine_SaveAppointment_InvalidPlanWritesNothing(t *testing.T) {
	e, db := newTestEngine(t, Config{})
	ctx := context.Background()

	appt := testutil.Appointment("Ana").
		WithMonthly(testutil.MonthlyTerms(start, "200", 3, 5)).
		WithWeekly(testutil.WeeklyTerms(start, "-1", 4, time.Friday)).
		Build()
	err := e.SaveAppointment(ctx, appt)

	assert.ErrorIs(t, err, common.ErrInvalidConfiguration)
	list, err := db.Storage.ListAppointments(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Empty(t, db.MustGetAll())

	assert.ErrorIs(t, e.SaveAppointment(ctx, testutil.Appointment("  ").Build()), common.ErrInvalidConfiguration)
}

func TestEngine_AppointmentsShareClientPlans(t *testing.T) {
	e, db := newTestEngine(t, Config{})
	ctx := context.Background()

	first := testutil.Appointment("Ana").WithID("appt-1").
		WithMonthly(testutil.MonthlyTerms(start, "200", 3, 5)).
		Build()
	require.NoError(t, e.SaveAppointment(ctx, first))

	// A second appointment without plans leaves the client's plan alone.
	second := testutil.Appointment("Ana").WithID("appt-2").Build()
	require.NoError(t, e.SaveAppointment(ctx, second))
	assert.Len(t, db.MustGetPlan(anaMonthly), 3)

	require.NoError(t, e.DeleteAppointment(ctx, "appt-1"))
	assert.Len(t, db.MustGetPlan(anaMonthly), 3)

	require.NoError(t, e.DeleteAppointment(ctx, "appt-2"))
	assert.Empty(t, db.MustGetAll())

	assert.True(t, common.IsNotFound(e.DeleteAppointment(ctx, "appt-2")))
}

func TestEngine_RenameAppointmentMovesPlans(t *testing.T) {
	e, db := newTestEngine(t, Config{})
	ctx := context.Background()

	appt := testutil.Appointment("Ana").WithID("appt-1").
		WithMonthly(testutil.MonthlyTerms(start, "200", 3, 5)).
		Build()
	require.NoError(t, e.SaveAppointment(ctx, appt))
	_, err := e.MarkPaid(ctx, model.InstallmentID(anaMonthly, 1))
	require.NoError(t, err)

	appt.ClientName = "Ana Souza"
	require.NoError(t, e.SaveAppointment(ctx, appt))

	assert.Empty(t, db.MustGetPlan(anaMonthly))
	renamed := db.MustGetPlan(model.PlanOwner{ClientName: "Ana Souza", Cadence: model.CadenceMonthly})
	assertSequenceComplete(t, renamed)
	assert.False(t, renamed[0].Pending)
	assert.True(t, renamed[1].Pending)
	assert.Equal(t, "ana-souza:monthly:1", renamed[0].ID)
}

func TestEngine_RecaseAppointmentKeepsPayments(t *testing.T) {
	e, db := newTestEngine(t, Config{})
	ctx := context.Background()

	appt := testutil.Appointment("Ana").WithID("appt-1").
		WithMonthly(testutil.MonthlyTerms(start, "200", 3, 5)).
		WithWeekly(testutil.WeeklyTerms(start, "50", 2, time.Friday)).
		Build()
	require.NoError(t, e.SaveAppointment(ctx, appt))
	_, err := e.MarkPaid(ctx, "ana:monthly:1")
	require.NoError(t, err)

	appt.ClientName = "ANA"
	appt.WeeklyPlan = nil
	require.NoError(t, e.SaveAppointment(ctx, appt))

	all := db.MustGetAll()
	require.Len(t, all, 3, "the weekly plan is dropped and the monthly plan is kept once")
	assertSequenceComplete(t, all)
	assert.False(t, all[0].Pending)
	for _, inst := range all {
		assert.Equal(t, "ANA", inst.OwnerClientName)
		assert.Equal(t, model.CadenceMonthly, inst.Cadence)
	}
}

func TestEngine_CaseVariantAppointmentsShareClientPlans(t *testing.T) {
	e, db := newTestEngine(t, Config{})
	ctx := context.Background()

	first := testutil.Appointment("Ana Souza").WithID("appt-1").
		WithMonthly(testutil.MonthlyTerms(start, "200", 2, 5)).
		Build()
	require.NoError(t, e.SaveAppointment(ctx, first))
	second := testutil.Appointment("ana  souza").WithID("appt-2").Build()
	require.NoError(t, e.SaveAppointment(ctx, second))

	require.NoError(t, e.DeleteAppointment(ctx, "appt-1"))
	assert.Len(t, db.MustGetAll(), 2, "the remaining appointment still owns the plan")

	require.NoError(t, e.DeleteAppointment(ctx, "appt-2"))
	assert.Empty(t, db.MustGetAll())
}

func TestEngine_SaveAnalysis(t *testing.T) {
	e, db := newTestEngine(t, Config{})
	ctx := context.Background()

	analysis := testutil.Analysis("Carla").WithID("an-1").WithLegacyName().
		WithMonthly(testutil.MonthlyTerms(start, "300", 2, 20)).
		Build()
	require.NoError(t, e.SaveAnalysis(ctx, analysis))

	owner := model.PlanOwner{ClientName: "Carla", LinkedRecordID: "an-1", Cadence: model.CadenceMonthly}
	stored := db.MustGetPlan(owner)
	assertSequenceComplete(t, stored)
	assert.Equal(t, model.TrackTarot, stored[0].Track())
	assert.Equal(t, "an-1:monthly:1", stored[0].ID)

	_, err := e.MarkPaid(ctx, stored[0].ID)
	require.NoError(t, err)

	// Renaming keeps the payment history of the analysis.
	analysis.ClientName = "Carla Dias"
	require.NoError(t, e.SaveAnalysis(ctx, analysis))
	renamed := db.MustGetPlan(model.PlanOwner{ClientName: "Carla Dias", LinkedRecordID: "an-1", Cadence: model.CadenceMonthly})
	require.Len(t, renamed, 2)
	assert.False(t, renamed[0].Pending)
	assert.Equal(t, "an-1:monthly:1", renamed[0].ID)
	for _, inst := range db.MustGetAll() {
		assert.Equal(t, "Carla Dias", inst.OwnerClientName)
	}

	require.NoError(t, e.DeleteAnalysis(ctx, "an-1"))
	assert.Empty(t, db.MustGetAll())
	assert.True(t, common.IsNotFound(e.DeleteAnalysis(ctx, "an-1")))
}

func TestEngine_SaveAnalysis_DeactivatedPlan(t *testing.T) {
	e, db := newTestEngine(t, Config{})
	ctx := context.Background()

	analysis := testutil.Analysis("Carla").
		WithWeekly(testutil.WeeklyTerms(start, "80", 3, time.Monday)).
		Build()
	require.NoError(t, e.SaveAnalysis(ctx, analysis))
	require.NotEmpty(t, analysis.ID)
	assert.Len(t, db.MustGetAll(), 3)

	analysis.WeeklyPlan = nil
	require.NoError(t, e.SaveAnalysis(ctx, analysis))
	assert.Empty(t, db.MustGetAll())
}

func TestEngine_RecordPlans(t *testing.T) {
	e, _ := newTestEngine(t, Config{})
	ctx := context.Background()

	require.NoError(t, e.SaveAppointment(ctx, testutil.Appointment("Ana").
		WithMonthly(testutil.MonthlyTerms(start, "200", 3, 5)).
		WithWeekly(testutil.WeeklyTerms(start, "50", 4, time.Friday)).
		Build()))
	require.NoError(t, e.SaveAppointment(ctx, testutil.Appointment("Ana").
		WithMonthly(testutil.MonthlyTerms(start, "200", 3, 5)).
		Build()))
	require.NoError(t, e.SaveAnalysis(ctx, testutil.Analysis("Carla").
		WithMonthly(testutil.MonthlyTerms(start, "300", 2, 20)).
		Build()))

	configs, err := e.RecordPlans(ctx)
	require.NoError(t, err)

	owners := make(map[model.PlanOwner]int)
	for _, cfg := range configs {
		owners[model.PlanOwner{ClientName: cfg.OwnerClientName, Cadence: cfg.Cadence}]++
	}
	assert.Len(t, configs, 3)
	assert.Equal(t, 1, owners[anaMonthly])
	assert.Equal(t, 1, owners[anaWeekly])
}
