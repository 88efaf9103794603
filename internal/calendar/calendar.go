// Package calendar builds the week-padded month grid the forecast view is
// laid out on. Weeks begin on Sunday; lead-in and lead-out days from
// adjacent months are included so the grid always covers whole weeks.
package calendar

import (
	"time"

	"powdercast/internal/dates"
)

// AnchorMonth identifies the month currently displayed. It is normalized
// to the first day of the month before any computation.
type AnchorMonth struct {
	Year  int
	Month time.Month
}

// AnchorFor returns the anchor month containing t.
func AnchorFor(t time.Time) AnchorMonth {
	return AnchorMonth{Year: t.Year(), Month: t.Month()}
}

// First returns the first day of the anchor month at local midnight.
func (a AnchorMonth) First(loc *time.Location) time.Time {
	return time.Date(a.Year, a.Month, 1, 0, 0, 0, 0, loc)
}

// Prev returns the anchor for the preceding month.
func (a AnchorMonth) Prev() AnchorMonth {
	f := a.First(time.UTC).AddDate(0, -1, 0)
	return AnchorMonth{Year: f.Year(), Month: f.Month()}
}

// Next returns the anchor for the following month.
func (a AnchorMonth) Next() AnchorMonth {
	f := a.First(time.UTC).AddDate(0, 1, 0)
	return AnchorMonth{Year: f.Year(), Month: f.Month()}
}

// Range is a week-padded calendar span. Start is the Sunday on or before
// the first of the month, End the Saturday on or after its last day, and
// Weeks partitions the inclusive span into consecutive 7-day rows.
type Range struct {
	Anchor AnchorMonth
	Start  time.Time
	End    time.Time
	Weeks  [][]time.Time
}

// BuildRange constructs the padded grid for anchor in the given timezone.
// The flattened day sequence increases strictly by one calendar day and
// its length is always a multiple of 7 (4 to 6 weeks).
func BuildRange(anchor AnchorMonth, loc *time.Location) Range {
	first := anchor.First(loc)
	last := first.AddDate(0, 1, -1)

	start := first.AddDate(0, 0, -int(first.Weekday()))
	end := last.AddDate(0, 0, int(time.Saturday-last.Weekday()))

	var weeks [][]time.Time
	week := make([]time.Time, 0, 7)
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		week = append(week, day)
		if len(week) == 7 {
			weeks = append(weeks, week)
			week = make([]time.Time, 0, 7)
		}
	}

	return Range{Anchor: anchor, Start: start, End: end, Weeks: weeks}
}

// Contains reports whether the grid covers the local calendar day of t.
func (r Range) Contains(t time.Time) bool {
	return dates.DiffDays(t, r.Start) >= 0 && dates.DiffDays(r.End, t) >= 0
}

// Days returns the flattened day sequence.
func (r Range) Days() []time.Time {
	days := make([]time.Time, 0, len(r.Weeks)*7)
	for _, w := range r.Weeks {
		days = append(days, w...)
	}
	return days
}
