package forecast

import (
	"powdercast/internal/calendar"
	"powdercast/internal/dates"
)

// OverviewIndex joins per-date forecast aggregates onto calendar cells by
// ISO date key. It is scoped to one calendar range and rebuilt whenever
// the range or the overview list changes; it holds only transient
// references to the caller-owned records.
type OverviewIndex struct {
	byKey map[string]DailyOverview
}

// BuildIndex maps each overview record onto the range by its date key.
// Records outside the range are dropped. When the list carries more than
// one record for the same key the last one listed wins; this mirrors the
// upstream feed's behavior and is deliberate, not a merge.
func BuildIndex(rng calendar.Range, days []DailyOverview) *OverviewIndex {
	inRange := make(map[string]bool, len(rng.Weeks)*7)
	for _, d := range rng.Days() {
		inRange[dates.Key(d)] = true
	}

	byKey := make(map[string]DailyOverview, len(days))
	for _, rec := range days {
		if inRange[rec.Date] {
			byKey[rec.Date] = rec
		}
	}
	return &OverviewIndex{byKey: byKey}
}

// Lookup returns the record indexed under key, if any.
func (ix *OverviewIndex) Lookup(key string) (DailyOverview, bool) {
	rec, ok := ix.byKey[key]
	return rec, ok
}

// Len returns the number of indexed records.
func (ix *OverviewIndex) Len() int {
	return len(ix.byKey)
}
