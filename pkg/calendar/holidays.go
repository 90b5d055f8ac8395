package calendar

import (
	"fmt"
	"sort"
	"time"
)

// HolidaySet answers whether a date is a holiday.
type HolidaySet interface {
	IsHoliday(t time.Time) bool
}

// NoHolidays is the empty holiday set.
var NoHolidays HolidaySet = Holidays{}

// Holidays is a set of dates keyed by YYYY-MM-DD.
type Holidays map[string]struct{}

// NewHolidays builds a set from dates; time of day is ignored.
func NewHolidays(dates ...time.Time) Holidays {
	h := make(Holidays, len(dates))
	for _, d := range dates {
		h[Format(d)] = struct{}{}
	}
	return h
}

// ParseHolidays builds a set from YYYY-MM-DD strings.
func ParseHolidays(dates []string) (Holidays, error) {
	h := make(Holidays, len(dates))
	for _, s := range dates {
		d, err := Parse(s)
		if err != nil {
			return nil, fmt.Errorf("invalid holiday %q: %w", s, err)
		}
		h[Format(d)] = struct{}{}
	}
	return h, nil
}

// IsHoliday implements HolidaySet.
func (h Holidays) IsHoliday(t time.Time) bool {
	_, ok := h[Format(t)]
	return ok
}

// Strings returns the dates in ascending order.
func (h Holidays) Strings() []string {
	out := make([]string, 0, len(h))
	for k := range h {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
