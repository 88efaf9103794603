// Package dates holds the calendar-day arithmetic the rest of the service
// is built on. Everything works from local calendar components rather than
// raw epoch math so results stay correct across DST transitions.
package dates

import "time"

// KeyLayout is the canonical ISO date key layout used to join calendar
// cells to forecast records.
const KeyLayout = "2006-01-02"

// Midnight returns local midnight of the day containing t, in t's location.
func Midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// EndOfDay returns 23:59:59.999 local time of the day containing t.
func EndOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(999*time.Millisecond), t.Location())
}

// DiffDays returns the number of calendar days from b to a (positive when
// a is after b). Both dates are reduced to their year/month/day components
// in UTC before subtracting, so a DST transition between them cannot skew
// the result the way a millisecond difference would.
func DiffDays(a, b time.Time) int {
	au := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	bu := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(au.Sub(bu) / (24 * time.Hour))
}

// Key returns the YYYY-MM-DD key for t built from local calendar
// components, never from UTC.
func Key(t time.Time) string {
	return t.Format(KeyLayout)
}

// SameDay reports whether a and b fall on the same local calendar day.
func SameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

// DayRangeEpoch converts an inclusive day span to the closed epoch-ms
// interval handed to the upstream weather service: local midnight of start
// through 23:59:59.999 local time of end.
func DayRangeEpoch(start, end time.Time) (startEpoch, endEpoch int64) {
	return Midnight(start).UnixMilli(), EndOfDay(end).UnixMilli()
}
