package calendar

import (
	"time"
)

const dateLayout = "2006-01-02"

// StartOfDay returns midnight of t in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// AddDays steps t by n calendar days.
func AddDays(t time.Time, n int) time.Time {
	return t.AddDate(0, 0, n)
}

// AddMonths steps t by n months. A day that does not exist in the target
// month overflows into the next one (Jan 31 + 1 month = Mar 3 in 2019).
func AddMonths(t time.Time, n int) time.Time {
	return t.AddDate(0, n, 0)
}

// AddYears steps t by n years, overflowing Feb 29 into Mar 1.
func AddYears(t time.Time, n int) time.Time {
	return t.AddDate(n, 0, 0)
}

// DaysBetween returns the number of whole days between the dates of a and b.
// Time of day and DST transitions are ignored; the result is never negative.
func DaysBetween(a, b time.Time) int {
	days := int((civil(b).Unix() - civil(a).Unix()) / secondsPerDay)
	if days < 0 {
		return -days
	}
	return days
}

// SameDate reports whether a and b fall on the same calendar date.
func SameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// Format renders the date part of t as YYYY-MM-DD.
func Format(t time.Time) string {
	return t.Format(dateLayout)
}

// Parse reads a YYYY-MM-DD date at UTC midnight.
func Parse(s string) (time.Time, error) {
	return time.Parse(dateLayout, s)
}

const secondsPerDay = 24 * 60 * 60

func civil(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
