// Package calendar provides the date arithmetic used to lay out installment
// due dates. All functions work on calendar dates normalized to UTC midnight
// and assume their inputs were validated by the caller.
package calendar

import "time"

// Date returns the UTC midnight of the given calendar day.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Midnight truncates t to its calendar date, read in t's own location.
func Midnight(t time.Time) time.Time {
	return Date(t.Year(), t.Month(), t.Day())
}

// LastDayOfMonth returns the number of days in the given month.
func LastDayOfMonth(year int, month time.Month) int {
	// Day zero of the following month normalizes to the last day of this one.
	return Date(year, month+1, 0).Day()
}

// AddMonthsClamped advances base by n calendar months and pins the day to
// dayOfMonth, clamped to the length of the target month.
func AddMonthsClamped(base time.Time, n int, dayOfMonth int) time.Time {
	// Step from the first of the month so AddDate cannot overflow.
	first := Date(base.Year(), base.Month(), 1).AddDate(0, n, 0)
	day := min(dayOfMonth, LastDayOfMonth(first.Year(), first.Month()))
	return Date(first.Year(), first.Month(), day)
}

// NextWeekdayOnOrAfter returns base when it already falls on weekday, else
// the nearest following date that does.
func NextWeekdayOnOrAfter(base time.Time, weekday time.Weekday) time.Time {
	day := Midnight(base)
	offset := (int(weekday) - int(day.Weekday()) + 7) % 7
	return day.AddDate(0, 0, offset)
}

// WeeklySequence returns count dates one week apart, starting at the first
// occurrence of weekday on or after base.
func WeeklySequence(base time.Time, weekday time.Weekday, count int) []time.Time {
	if count <= 0 {
		return nil
	}
	dates := make([]time.Time, count)
	dates[0] = NextWeekdayOnOrAfter(base, weekday)
	for i := 1; i < count; i++ {
		dates[i] = dates[i-1].AddDate(0, 0, 7)
	}
	return dates
}

// DaysBetween returns the number of whole calendar days from from to to.
// The result is positive when to is later.
func DaysBetween(from, to time.Time) int {
	a := Midnight(from)
	b := Midnight(to)
	return int(b.Sub(a).Hours() / 24)
}
