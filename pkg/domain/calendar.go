package domain

import "time"

// DateLayout is the ISO calendar date layout used by the carrier registry.
const DateLayout = "2006-01-02"

// Day returns midnight UTC of t's calendar date, read in t's own location.
// Two instants on the same local day map to the same Day.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// AddMonths adds n calendar months to t's date. When the target month is
// shorter than t's day-of-month the result is clamped to the target month's
// last day (Aug 31 + 6 months = Feb 28, or Feb 29 in leap years).
//
// time.Time.AddDate normalizes overflow into the following month instead
// (Aug 31 + 6 months = Mar 3), which would push eligibility marks out by days.
func AddMonths(t time.Time, n int) time.Time {
	base := Day(t)
	first := time.Date(base.Year(), base.Month()+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	lastDay := first.AddDate(0, 1, -1).Day()
	day := base.Day()
	if day > lastDay {
		day = lastDay
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the signed number of calendar days from one date to
// another; time of day is ignored.
func DaysBetween(from, to time.Time) int {
	return int(Day(to).Sub(Day(from)).Hours() / 24)
}

// ParseDate parses a YYYY-MM-DD calendar date into a Day.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	return Day(t), nil
}
