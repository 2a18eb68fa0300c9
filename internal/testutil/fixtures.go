package testutil

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/the-fees-must-flow/internal/calendar"
	"github.com/Veraticus/the-fees-must-flow/internal/model"
)

// Fixed dates shared by tests that need a stable calendar.
var (
	// Reference is a Wednesday.
	Reference = calendar.Date(2024, time.January, 10)
	// CreatedAt is the clock reading stamped on generated installments.
	CreatedAt = time.Date(2024, time.January, 10, 14, 30, 0, 0, time.UTC)
)

// FixedClock returns a clock that always reads t.
func FixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// MonthlyTerms builds monthly plan terms due on dueDay.
func MonthlyTerms(start time.Time, amount string, periods, dueDay int) *model.PlanTerms {
	return &model.PlanTerms{
		StartDate:       start,
		AmountPerPeriod: decimal.RequireFromString(amount),
		TotalPeriods:    periods,
		DueDayOfMonth:   dueDay,
	}
}

// WeeklyTerms builds weekly plan terms due on weekday.
func WeeklyTerms(start time.Time, amount string, periods int, weekday time.Weekday) *model.PlanTerms {
	return &model.PlanTerms{
		StartDate:       start,
		AmountPerPeriod: decimal.RequireFromString(amount),
		TotalPeriods:    periods,
		DueWeekday:      &weekday,
	}
}

// AppointmentBuilder builds appointment records fluently.
type AppointmentBuilder struct {
	appt model.Appointment
}

// Appointment starts an appointment for client.
func Appointment(client string) *AppointmentBuilder {
	return &AppointmentBuilder{appt: model.Appointment{ClientName: client}}
}

// WithID sets the record id.
func (b *AppointmentBuilder) WithID(id string) *AppointmentBuilder {
	b.appt.ID = id
	return b
}

// WithMonthly attaches a monthly plan.
func (b *AppointmentBuilder) WithMonthly(terms *model.PlanTerms) *AppointmentBuilder {
	b.appt.MonthlyPlan = terms
	return b
}

// WithWeekly attaches a weekly plan.
func (b *AppointmentBuilder) WithWeekly(terms *model.PlanTerms) *AppointmentBuilder {
	b.appt.WeeklyPlan = terms
	return b
}

// Build returns a fresh copy of the appointment.
func (b *AppointmentBuilder) Build() *model.Appointment {
	appt := b.appt
	return &appt
}

// AnalysisBuilder builds analysis records fluently.
type AnalysisBuilder struct {
	analysis model.Analysis
}

// Analysis starts an analysis for client.
func Analysis(client string) *AnalysisBuilder {
	return &AnalysisBuilder{analysis: model.Analysis{ClientName: client}}
}

// WithID sets the record id.
func (b *AnalysisBuilder) WithID(id string) *AnalysisBuilder {
	b.analysis.ID = id
	return b
}

// WithLegacyName stores the client under the legacy name field only.
func (b *AnalysisBuilder) WithLegacyName() *AnalysisBuilder {
	b.analysis.LegacyName = b.analysis.ClientName
	b.analysis.ClientName = ""
	return b
}

// WithMonthly attaches a monthly plan.
func (b *AnalysisBuilder) WithMonthly(terms *model.PlanTerms) *AnalysisBuilder {
	b.analysis.MonthlyPlan = terms
	return b
}

// WithWeekly attaches a weekly plan.
func (b *AnalysisBuilder) WithWeekly(terms *model.PlanTerms) *AnalysisBuilder {
	b.analysis.WeeklyPlan = terms
	return b
}

// Build returns a fresh copy of the analysis.
func (b *AnalysisBuilder) Build() *model.Analysis {
	analysis := b.analysis
	return &analysis
}
