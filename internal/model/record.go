package model

import (
	"strings"
	"time"
)

// Appointment is a principal-track client record. Its plans are keyed by
// client name, so every appointment of the same client shares them.
type Appointment struct {
	CreatedAt   time.Time
	UpdatedAt   time.Time
	MonthlyPlan *PlanTerms
	WeeklyPlan  *PlanTerms
	ID          string
	ClientName  string
	Notes       string
}

// PlanConfigurations expands the plans attached to the appointment.
func (a Appointment) PlanConfigurations() []PlanConfiguration {
	return configurations(a.ClientName, "", a.MonthlyPlan, a.WeeklyPlan)
}

// Analysis is a tarot-track record. Its plans are scoped to the record id.
type Analysis struct {
	CreatedAt   time.Time
	UpdatedAt   time.Time
	MonthlyPlan *PlanTerms
	WeeklyPlan  *PlanTerms
	ID          string
	// ClientName and LegacyName are both in use by older data; the first
	// non-empty one names the client.
	ClientName string
	LegacyName string
	Notes      string
}

// OwnerName returns the first non-empty client name field.
func (a Analysis) OwnerName() string {
	if name := strings.TrimSpace(a.ClientName); name != "" {
		return name
	}
	return strings.TrimSpace(a.LegacyName)
}

// PlanConfigurations expands the plans attached to the analysis.
func (a Analysis) PlanConfigurations() []PlanConfiguration {
	return configurations(a.OwnerName(), a.ID, a.MonthlyPlan, a.WeeklyPlan)
}

func configurations(owner, linkedRecordID string, monthly, weekly *PlanTerms) []PlanConfiguration {
	var out []PlanConfiguration
	if monthly != nil {
		out = append(out, PlanConfiguration{
			PlanTerms:       *monthly,
			OwnerClientName: owner,
			LinkedRecordID:  linkedRecordID,
			Cadence:         CadenceMonthly,
		})
	}
	if weekly != nil {
		out = append(out, PlanConfiguration{
			PlanTerms:       *weekly,
			OwnerClientName: owner,
			LinkedRecordID:  linkedRecordID,
			Cadence:         CadenceWeekly,
		})
	}
	return out
}
