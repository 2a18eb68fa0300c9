package main

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/Veraticus/the-fees-must-flow/internal/model"
	"github.com/Veraticus/the-fees-must-flow/internal/plan"
)

// termsFlags binds the flags describing one cadence's plan terms, such as
// --monthly-amount or --weekly-periods.
type termsFlags struct {
	cadence model.Cadence
	amount  string
	start   string
	weekday string
	timing  string
	periods int
	dueDay  int
	drop    bool
}

func newTermsFlags(cmd *cobra.Command, cadence model.Cadence, allowDrop bool) *termsFlags {
	f := &termsFlags{cadence: cadence}
	p := string(cadence)
	flags := cmd.Flags()

	flags.StringVar(&f.amount, p+"-amount", "", fmt.Sprintf("amount per %s period", cadence))
	flags.IntVar(&f.periods, p+"-periods", 0, fmt.Sprintf("number of %s installments", cadence))
	flags.StringVar(&f.start, p+"-start", "", "plan start date (YYYY-MM-DD, default today)")
	flags.StringVar(&f.timing, p+"-timing", "", "when to notify: on_due_date or next_week")
	if cadence == model.CadenceMonthly {
		flags.IntVar(&f.dueDay, p+"-day", model.DefaultDueDayOfMonth, "day of month payments are due (clamped to short months)")
	} else {
		flags.StringVar(&f.weekday, p+"-weekday", model.DefaultDueWeekday.String(), "weekday payments are due")
	}
	if allowDrop {
		flags.BoolVar(&f.drop, "no-"+p, false, fmt.Sprintf("remove the %s plan", cadence))
	}
	return f
}

// changed reports whether any flag of this cadence was given.
func (f *termsFlags) changed(cmd *cobra.Command) bool {
	p := string(f.cadence)
	for _, name := range []string{"-amount", "-periods", "-start", "-timing", "-day", "-weekday"} {
		if cmd.Flags().Changed(p + name) {
			return true
		}
	}
	return false
}

// apply returns base updated with the flags that were given. A nil base and
// no flags yields nil: the record carries no plan for this cadence. New
// plans start on defaultStart unless a start date is given.
func (f *termsFlags) apply(cmd *cobra.Command, base *model.PlanTerms, defaultStart time.Time) (*model.PlanTerms, error) {
	if f.drop {
		if f.changed(cmd) {
			return nil, fmt.Errorf("--no-%s cannot be combined with other %s flags", f.cadence, f.cadence)
		}
		return nil, nil
	}
	if !f.changed(cmd) {
		return base, nil
	}

	terms := model.PlanTerms{StartDate: defaultStart}
	if base != nil {
		terms = *base
	}

	p := string(f.cadence)
	flags := cmd.Flags()

	if flags.Changed(p+"-amount") || base == nil {
		amount, err := decimal.NewFromString(f.amount)
		if err != nil {
			return nil, fmt.Errorf("invalid --%s-amount %q: %w", p, f.amount, err)
		}
		terms.AmountPerPeriod = amount
	}
	if flags.Changed(p+"-periods") || base == nil {
		terms.TotalPeriods = f.periods
	}
	if flags.Changed(p + "-start") {
		start, err := plan.ParseStartDate(f.start)
		if err != nil {
			return nil, err
		}
		terms.StartDate = start
	}
	if flags.Changed(p+"-timing") || base == nil {
		timing, err := model.ParseNotificationTiming(f.timing)
		if err != nil {
			return nil, err
		}
		terms.NotificationTiming = timing
	}

	switch f.cadence {
	case model.CadenceMonthly:
		if flags.Changed(p+"-day") || base == nil {
			terms.DueDayOfMonth = f.dueDay
		}
	case model.CadenceWeekly:
		if flags.Changed(p+"-weekday") || base == nil {
			wd, err := parseWeekday(f.weekday)
			if err != nil {
				return nil, err
			}
			terms.DueWeekday = &wd
		}
	}

	return &terms, nil
}
