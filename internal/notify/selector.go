// Package notify decides which pending installments to surface for a given
// day and shapes them into per-client groups for display.
package notify

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/the-fees-must-flow/internal/calendar"
	"github.com/Veraticus/the-fees-must-flow/internal/integrity"
	"github.com/Veraticus/the-fees-must-flow/internal/model"
)

// Urgency is a presentation hint derived from the days left until due.
type Urgency string

// Urgency levels from most to least pressing.
const (
	UrgencyOverdue Urgency = "overdue"
	UrgencyToday   Urgency = "today"
	UrgencyUrgent  Urgency = "urgent"
	UrgencyWarning Urgency = "warning"
	UrgencyNormal  Urgency = "normal"
)

// nextWeekDelay is how far past its due date a NextWeek installment must be
// before it surfaces.
const nextWeekDelay = 7

// ClassifyUrgency maps days until due to an urgency level. It does not take
// part in deciding what is surfaced.
func ClassifyUrgency(daysUntilDue int) Urgency {
	switch {
	case daysUntilDue < 0:
		return UrgencyOverdue
	case daysUntilDue == 0:
		return UrgencyToday
	case daysUntilDue == 1:
		return UrgencyUrgent
	case daysUntilDue <= 3:
		return UrgencyWarning
	default:
		return UrgencyNormal
	}
}

// DaysUntilDue counts calendar days from today to the installment's due date.
// Negative values mean overdue.
func DaysUntilDue(inst model.Installment, today time.Time) int {
	return calendar.DaysBetween(today, inst.DueDate)
}

// IsSurfaced reports whether a pending installment should be shown today
// under its notification timing.
func IsSurfaced(inst model.Installment, today time.Time) bool {
	if !inst.Pending {
		return false
	}
	days := DaysUntilDue(inst, today)
	switch inst.NotificationTiming {
	case model.TimingNextWeek:
		return days <= -nextWeekDelay
	default:
		return days <= 0
	}
}

// SelectDue returns the pending installments of track that are due for
// surfacing today, in input order.
func SelectDue(installments []model.Installment, today time.Time, track model.Track) []model.Installment {
	var selected []model.Installment
	for _, inst := range installments {
		if inst.Track() != track {
			continue
		}
		if IsSurfaced(inst, today) {
			selected = append(selected, inst)
		}
	}
	return selected
}

// Payment is one surfaced installment with its display hints.
type Payment struct {
	model.Installment
	Urgency      Urgency
	DaysUntilDue int
}

// GroupedClient gathers the surfaced installments of one client.
type GroupedClient struct {
	ClientName         string
	MostUrgent         Payment
	AdditionalPayments []Payment
}

// Count returns the number of installments in the group.
func (g GroupedClient) Count() int {
	return 1 + len(g.AdditionalPayments)
}

// Total sums the amounts of every installment in the group.
func (g GroupedClient) Total() decimal.Decimal {
	total := g.MostUrgent.Amount
	for _, p := range g.AdditionalPayments {
		total = total.Add(p.Amount)
	}
	return total
}

// Payments returns the group's installments, most urgent first.
func (g GroupedClient) Payments() []Payment {
	return append([]Payment{g.MostUrgent}, g.AdditionalPayments...)
}

// Group partitions selected installments by client. Each group is ordered
// by due date and the groups are ordered by their most urgent due date.
func Group(selected []model.Installment, today time.Time) []GroupedClient {
	byClient := make(map[string][]Payment)
	var order []string
	for _, inst := range selected {
		key := integrity.NormalizeName(inst.OwnerClientName)
		if _, ok := byClient[key]; !ok {
			order = append(order, key)
		}
		days := DaysUntilDue(inst, today)
		byClient[key] = append(byClient[key], Payment{
			Installment:  inst,
			DaysUntilDue: days,
			Urgency:      ClassifyUrgency(days),
		})
	}

	groups := make([]GroupedClient, 0, len(order))
	for _, key := range order {
		payments := byClient[key]
		sort.SliceStable(payments, func(i, j int) bool {
			if !payments[i].DueDate.Equal(payments[j].DueDate) {
				return payments[i].DueDate.Before(payments[j].DueDate)
			}
			return payments[i].SequenceIndex < payments[j].SequenceIndex
		})
		groups = append(groups, GroupedClient{
			ClientName:         payments[0].OwnerClientName,
			MostUrgent:         payments[0],
			AdditionalPayments: payments[1:],
		})
	}

	sort.SliceStable(groups, func(i, j int) bool {
		a, b := groups[i].MostUrgent.DueDate, groups[j].MostUrgent.DueDate
		if !a.Equal(b) {
			return a.Before(b)
		}
		return groups[i].ClientName < groups[j].ClientName
	})
	return groups
}

// Summary is the notification view for one track on one day.
type Summary struct {
	Today  time.Time
	Track  model.Track
	Groups []GroupedClient
	// Count is the badge number: surfaced installments, not clients.
	Count int
}

// Summarize selects and groups in one step.
func Summarize(installments []model.Installment, today time.Time, track model.Track) Summary {
	selected := SelectDue(installments, today, track)
	return Summary{
		Today:  calendar.Midnight(today),
		Track:  track,
		Groups: Group(selected, today),
		Count:  len(selected),
	}
}
