// Package plan expands plan configurations into installment sets.
package plan

import (
	"log/slog"
	"time"

	"github.com/Veraticus/the-fees-must-flow/internal/calendar"
	"github.com/Veraticus/the-fees-must-flow/internal/model"
)

// Config holds generator options.
type Config struct {
	// Now stamps CreatedAt on fresh installments. Defaults to time.Now.
	Now func() time.Time
	// PreservePostponed keeps a hand-moved due date of a still-pending
	// installment across regeneration.
	PreservePostponed bool
}

// Generator builds installment sets. It holds no state besides its options.
type Generator struct {
	now               func() time.Time
	preservePostponed bool
}

// NewGenerator creates a generator with the given options.
func NewGenerator(cfg Config) *Generator {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Generator{
		now:               now,
		preservePostponed: cfg.PreservePostponed,
	}
}

// Generate expands cfg into its full ordered installment set, every
// installment pending. Invalid configurations produce no installments.
func (g *Generator) Generate(cfg model.PlanConfiguration) ([]model.Installment, error) {
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	cfg = cfg.WithDefaults()

	dueDates := DueDates(cfg)
	owner := cfg.Owner()
	createdAt := g.now().UTC()

	installments := make([]model.Installment, len(dueDates))
	for i, due := range dueDates {
		seq := i + 1
		installments[i] = model.Installment{
			ID:                 model.InstallmentID(owner, seq),
			OwnerClientName:    cfg.OwnerClientName,
			LinkedRecordID:     cfg.LinkedRecordID,
			Cadence:            cfg.Cadence,
			SequenceIndex:      seq,
			TotalPeriods:       cfg.TotalPeriods,
			Amount:             cfg.AmountPerPeriod,
			DueDate:            due,
			Pending:            true,
			NotificationTiming: cfg.NotificationTiming,
			CreatedAt:          createdAt,
		}
	}

	return installments, nil
}

// Regenerate expands cfg and carries state forward from prior, the
// installments previously stored for the same plan. Paid periods stay paid
// and keep their creation time; everything else follows the new
// configuration.
func (g *Generator) Regenerate(cfg model.PlanConfiguration, prior []model.Installment) ([]model.Installment, error) {
	fresh, err := g.Generate(cfg)
	if err != nil {
		return nil, err
	}

	bySequence := make(map[int]model.Installment, len(prior))
	for _, inst := range prior {
		bySequence[inst.SequenceIndex] = inst
	}

	carried := 0
	for i := range fresh {
		old, ok := bySequence[fresh[i].SequenceIndex]
		if !ok {
			continue
		}
		fresh[i].CreatedAt = old.CreatedAt
		if !old.Pending {
			fresh[i].Pending = false
			carried++
			continue
		}
		if g.preservePostponed && old.Postponed {
			fresh[i].DueDate = old.DueDate
			fresh[i].Postponed = true
		}
	}

	if carried > 0 {
		slog.Debug("carried paid installments into regenerated plan",
			"owner", cfg.Owner().String(),
			"paid", carried,
			"total", len(fresh))
	}

	return fresh, nil
}

// DueDates lays out the due dates of an already validated configuration.
func DueDates(cfg model.PlanConfiguration) []time.Time {
	cfg = cfg.WithDefaults()
	start := calendar.Midnight(cfg.StartDate)

	switch cfg.Cadence {
	case model.CadenceMonthly:
		dates := make([]time.Time, cfg.TotalPeriods)
		for i := 1; i <= cfg.TotalPeriods; i++ {
			dates[i-1] = calendar.AddMonthsClamped(start, i, cfg.DueDayOfMonth)
		}
		return dates
	case model.CadenceWeekly:
		return calendar.WeeklySequence(start, cfg.Weekday(), cfg.TotalPeriods)
	default:
		return nil
	}
}
