package bonus

import (
	"strings"
	"time"
)

// DateLayout is the calendar date format used on the wire and in pivot keys.
const DateLayout = "2006-01-02"

// DateRange is an inclusive range of calendar dates, both held at UTC midnight.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// ParseDateRange builds a range from user input. A missing or unparseable bound
// falls back to the first or last day of now's month.
func ParseDateRange(start, end string, now time.Time) (DateRange, error) {
	first, last := MonthOf(now)

	rng := DateRange{Start: first, End: last}
	if d, ok := parseDate(start); ok {
		rng.Start = d
	}
	if d, ok := parseDate(end); ok {
		rng.End = d
	}
	if rng.Start.After(rng.End) {
		return DateRange{}, ErrInvalidDateRange
	}
	return rng, nil
}

// ParseExplicitDateRange requires both bounds to be present and valid.
func ParseExplicitDateRange(start, end string) (DateRange, error) {
	s, ok := parseDate(start)
	if !ok {
		return DateRange{}, ErrInvalidDateRange
	}
	e, ok := parseDate(end)
	if !ok || s.After(e) {
		return DateRange{}, ErrInvalidDateRange
	}
	return DateRange{Start: s, End: e}, nil
}

// MonthOf returns the first and last calendar day of t's month.
func MonthOf(t time.Time) (time.Time, time.Time) {
	y, m, _ := t.Date()
	first := time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
	return first, first.AddDate(0, 1, -1)
}

// Contains compares calendar dates only.
func (r DateRange) Contains(t time.Time) bool {
	d := truncateDate(t)
	return !d.Before(r.Start) && !d.After(r.End)
}

func (r DateRange) String() string {
	return r.Start.Format(DateLayout) + ".." + r.End.Format(DateLayout)
}

func parseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	if d, err := time.Parse(DateLayout, raw); err == nil {
		return d, true
	}
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return truncateDate(ts), true
	}
	return time.Time{}, false
}

func truncateDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
