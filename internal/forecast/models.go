package forecast

import (
	"sort"
	"time"
)

// Location is the slice of the upstream location record this service
// consumes: id and display name only.
type Location struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// RepresentativeHour is the single hour chosen upstream to stand in for a
// day or segment on the calendar (its icon drives the cell art).
type RepresentativeHour struct {
	Icon       string   `json:"icon"`
	Temp       *float64 `json:"temp,omitempty"`
	PrecipType string   `json:"precipType,omitempty"`
}

// DailyOverview is one per-date forecast aggregate keyed by ISO date
// string. Numeric fields are pointers because the upstream may omit them;
// missing values render as the placeholder token, never as zero.
type DailyOverview struct {
	Date               string             `json:"date"`
	MinTemp            *float64           `json:"minTemp"`
	MaxTemp            *float64           `json:"maxTemp"`
	SnowTotal          *float64           `json:"snowTotal"`
	AvgWindspeed       *float64           `json:"avgWindspeed"`
	RepresentativeHour RepresentativeHour `json:"representativeHour"`
}

// Segment is a sub-division of a calendar day (morning/afternoon/night)
// carrying its own aggregate.
type Segment struct {
	ID                 string             `json:"id"`
	Label              string             `json:"label"`
	RepresentativeHour RepresentativeHour `json:"representativeHour"`
	MaxTemp            *float64           `json:"maxTemp"`
	MinTemp            *float64           `json:"minTemp"`
	SnowTotal          *float64           `json:"snowTotal"`
	AvgWindspeed       *float64           `json:"avgWindspeed"`
}

// DaySegments groups the segments of one calendar day.
type DaySegments struct {
	Date     string    `json:"date"`
	Segments []Segment `json:"segments"`
}

// HourlySample is one hour of forecast data, ordered ascending by
// timestamp within a series. One day's series is expected to hold at most
// 24 samples but that is not enforced.
type HourlySample struct {
	TimestampEpochMs int64    `json:"timestampEpochMs"`
	Temp             *float64 `json:"temp"`
	Snow             *float64 `json:"snow"`
	Precip           *float64 `json:"precip"`
	PrecipType       string   `json:"precipType"`
	Windspeed        *float64 `json:"windspeed"`
	Icon             string   `json:"icon"`
}

// Time returns the sample's timestamp in the given timezone.
func (h HourlySample) Time(loc *time.Location) time.Time {
	return time.UnixMilli(h.TimestampEpochMs).In(loc)
}

// SortSamplesAscending orders a series by timestamp in place. Upstream
// data usually arrives sorted; this keeps the ordering invariant cheap to
// restore when it does not.
func SortSamplesAscending(samples []HourlySample) {
	sort.SliceStable(samples, func(i, j int) bool {
		return samples[i].TimestampEpochMs < samples[j].TimestampEpochMs
	})
}
