package forecast

import (
	"time"

	"powdercast/internal/access"
	"powdercast/internal/calendar"
	"powdercast/internal/dates"
)

// Cell is one calendar cell of the month view-model. Locked cells carry
// no forecast values at all: the access policy must not leak temperature
// or snow data through the view-model of an invisible date.
type Cell struct {
	Date      time.Time `json:"date"`
	Key       string    `json:"key"`
	InMonth   bool      `json:"inMonth"`
	IsToday   bool      `json:"isToday"`
	Locked    bool      `json:"locked"`
	HasData   bool      `json:"hasData"`
	Icon      string    `json:"icon,omitempty"`
	MinTemp   string    `json:"minTemp,omitempty"`
	MaxTemp   string    `json:"maxTemp,omitempty"`
	SnowTotal string    `json:"snowTotal,omitempty"`
	Wind      string    `json:"wind,omitempty"`
}

// MonthView is the complete calendar view-model for one anchor month.
// Dates pass through as time.Time plus ISO key; any locale-aware display
// formatting is the caller's concern.
type MonthView struct {
	Year     int        `json:"year"`
	Month    time.Month `json:"month"`
	StartKey string     `json:"startKey"`
	EndKey   string     `json:"endKey"`
	Weeks    [][]Cell   `json:"weeks"`
}

// BuildMonthView merges the overview index onto the padded grid, applying
// the viewer's access window. It is a pure function of its inputs and
// safe to recompute on any input change.
func BuildMonthView(rng calendar.Range, ix *OverviewIndex, today time.Time, w *access.Window, sys UnitSystem) MonthView {
	view := MonthView{
		Year:     rng.Anchor.Year,
		Month:    rng.Anchor.Month,
		StartKey: dates.Key(rng.Start),
		EndKey:   dates.Key(rng.End),
		Weeks:    make([][]Cell, 0, len(rng.Weeks)),
	}

	for _, week := range rng.Weeks {
		row := make([]Cell, 0, 7)
		for _, day := range week {
			cell := Cell{
				Date:    day,
				Key:     dates.Key(day),
				InMonth: day.Month() == rng.Anchor.Month,
				IsToday: dates.SameDay(day, today),
			}

			if !access.Visible(day, today, w) {
				cell.Locked = true
				row = append(row, cell)
				continue
			}

			if rec, ok := ix.Lookup(cell.Key); ok {
				cell.HasData = true
				cell.Icon = rec.RepresentativeHour.Icon
				cell.MinTemp = FormatTemp(rec.MinTemp)
				cell.MaxTemp = FormatTemp(rec.MaxTemp)
				cell.SnowTotal = FormatSnow(rec.SnowTotal, sys)
				cell.Wind = FormatWind(rec.AvgWindspeed, sys)
			}
			row = append(row, cell)
		}
		view.Weeks = append(view.Weeks, row)
	}
	return view
}
