package plan

import (
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/the-fees-must-flow/internal/common"
	"github.com/Veraticus/the-fees-must-flow/internal/model"
)

// Validate rejects a configuration that cannot be expanded. Defaults are
// applied before checking, so unset optional fields are accepted.
func Validate(cfg model.PlanConfiguration) error {
	cfg = cfg.WithDefaults()

	if strings.TrimSpace(cfg.OwnerClientName) == "" {
		return fmt.Errorf("%w: missing client name", common.ErrInvalidConfiguration)
	}
	if cfg.TotalPeriods < 1 {
		return fmt.Errorf("%w: total periods must be at least 1, got %d", common.ErrInvalidConfiguration, cfg.TotalPeriods)
	}
	if cfg.AmountPerPeriod.IsNegative() {
		return fmt.Errorf("%w: amount per period must not be negative, got %s", common.ErrInvalidConfiguration, cfg.AmountPerPeriod)
	}
	if cfg.StartDate.IsZero() {
		return fmt.Errorf("%w: missing start date", common.ErrInvalidConfiguration)
	}

	switch cfg.Cadence {
	case model.CadenceMonthly:
		if cfg.DueDayOfMonth < 1 || cfg.DueDayOfMonth > 31 {
			return fmt.Errorf("%w: due day of month must be between 1 and 31, got %d", common.ErrInvalidConfiguration, cfg.DueDayOfMonth)
		}
	case model.CadenceWeekly:
		if wd := cfg.Weekday(); wd < time.Sunday || wd > time.Saturday {
			return fmt.Errorf("%w: due weekday out of range: %d", common.ErrInvalidConfiguration, wd)
		}
	default:
		return fmt.Errorf("%w: unknown cadence %q", common.ErrInvalidConfiguration, cfg.Cadence)
	}

	switch cfg.NotificationTiming {
	case model.TimingOnDueDate, model.TimingNextWeek:
	default:
		return fmt.Errorf("%w: unknown notification timing %q", common.ErrInvalidConfiguration, cfg.NotificationTiming)
	}

	return nil
}

// ParseStartDate parses a YYYY-MM-DD date for a plan configuration.
func ParseStartDate(s string) (time.Time, error) {
	t, err := time.Parse(model.DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: unparsable start date %q", common.ErrInvalidConfiguration, s)
	}
	return t, nil
}

// ParseWeekday accepts English weekday names or their three-letter forms.
func ParseWeekday(s string) (time.Weekday, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		full := strings.ToLower(wd.String())
		if name == full || name == full[:3] {
			return wd, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown weekday %q", common.ErrInvalidConfiguration, s)
}
