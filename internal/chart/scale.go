// Package chart turns an hourly forecast series into a resolution
// independent drawing program: auto-scaled gridlines, a temperature
// curve, and snowfall bars.
package chart

import "math"

// Scale is an auto-scaled chart axis. Step is always positive and
// GridRange = MaxGrid - MinGrid is always positive.
type Scale struct {
	MinGrid   float64 `json:"minGrid"`
	MaxGrid   float64 `json:"maxGrid"`
	GridRange float64 `json:"gridRange"`
	Step      float64 `json:"step"`
}

// fallbackScale is returned when a series holds no finite samples.
var fallbackScale = Scale{MinGrid: 0, MaxGrid: 1, GridRange: 1, Step: 1}

// NiceStep rounds a raw axis interval up or down to a human friendly
// value from {1, 2, 5, 10} × 10^k.
func NiceStep(x float64) float64 {
	exponent := math.Floor(math.Log10(x))
	fraction := x / math.Pow(10, exponent)

	var nice float64
	switch {
	case fraction < 1.5:
		nice = 1
	case fraction < 3:
		nice = 2
	case fraction < 7:
		nice = 5
	default:
		nice = 10
	}
	return nice * math.Pow(10, exponent)
}

// ComputeScale derives the grid boundaries for a sample sequence,
// targeting about five gridlines. Absent samples are passed as NaN and
// discarded; an all-absent sequence yields the fixed 0..1 fallback.
// Identical inputs always produce identical output.
func ComputeScale(samples []float64) Scale {
	minV := math.Inf(1)
	maxV := math.Inf(-1)
	found := false
	for _, v := range samples {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		found = true
		minV = math.Min(minV, v)
		maxV = math.Max(maxV, v)
	}
	if !found {
		return fallbackScale
	}

	// A floor of 1 keeps the axis from collapsing when every sample is
	// the same value.
	rawRange := math.Max(maxV-minV, 1)

	step := NiceStep(rawRange / 5)
	minGrid := math.Floor(minV/step) * step
	maxGrid := math.Ceil(maxV/step) * step
	if maxGrid == minGrid {
		maxGrid = minGrid + step
	}

	return Scale{
		MinGrid:   minGrid,
		MaxGrid:   maxGrid,
		GridRange: maxGrid - minGrid,
		Step:      step,
	}
}
