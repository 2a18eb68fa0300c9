package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Plan defaults applied when a configuration leaves the field unset.
const (
	DefaultDueDayOfMonth = 5
	DefaultDueWeekday    = time.Friday
)

// PlanTerms are the parameters a record carries for one cadence.
type PlanTerms struct {
	StartDate          time.Time          `json:"startDate"`
	AmountPerPeriod    decimal.Decimal    `json:"amountPerPeriod"`
	DueWeekday         *time.Weekday      `json:"dueWeekday,omitempty"`
	NotificationTiming NotificationTiming `json:"notificationTiming,omitempty"`
	TotalPeriods       int                `json:"totalPeriods"`
	DueDayOfMonth      int                `json:"dueDayOfMonth,omitempty"`
}

// PlanConfiguration is everything the generator needs to expand one plan.
type PlanConfiguration struct {
	PlanTerms
	OwnerClientName string
	LinkedRecordID  string
	Cadence         Cadence
}

// Owner returns the plan identity of the configuration.
func (c PlanConfiguration) Owner() PlanOwner {
	return PlanOwner{
		ClientName:     c.OwnerClientName,
		LinkedRecordID: c.LinkedRecordID,
		Cadence:        c.Cadence,
	}
}

// WithDefaults returns a copy with unset optional fields filled in.
func (c PlanConfiguration) WithDefaults() PlanConfiguration {
	if c.NotificationTiming == "" {
		c.NotificationTiming = TimingOnDueDate
	}
	switch c.Cadence {
	case CadenceMonthly:
		if c.DueDayOfMonth == 0 {
			c.DueDayOfMonth = DefaultDueDayOfMonth
		}
	case CadenceWeekly:
		if c.DueWeekday == nil {
			wd := DefaultDueWeekday
			c.DueWeekday = &wd
		}
	}
	return c
}

// Weekday returns the configured weekday, or the default when unset.
func (c PlanConfiguration) Weekday() time.Weekday {
	if c.DueWeekday == nil {
		return DefaultDueWeekday
	}
	return *c.DueWeekday
}
