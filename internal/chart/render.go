package chart

import (
	"math"

	"powdercast/internal/forecast"
)

// Plot margins in logical pixels, reserved above and below the curve.
const (
	marginTop    = 10.0
	marginBottom = 16.0
)

// gridlineEpsilon nudges the gridline loop past MaxGrid so the top line
// survives floating-point rounding of repeated Step additions.
const gridlineEpsilon = 0.001

// snowScaleFloor is the minimum denominator for snow bar heights. Without
// it a trace amount of snow would scale up to a full-height bar.
const snowScaleFloor = 6.0

// markerRadius is the logical radius of the dot drawn on each curve point.
const markerRadius = 2.5

// Options configures one render pass.
type Options struct {
	Width    float64 // logical plot box width
	Height   float64 // logical plot box height
	DPR      float64 // device pixel ratio; values <= 0 are treated as 1
	SnowBars bool    // draw snowfall bars (combined hourly view)
}

// Render converts an hourly series plus its temperature scale into a
// complete drawing program. It is stateless and total: a zero-size plot
// box (container not yet measured) yields an empty program rather than an
// error, and the caller re-renders once a real size is known.
//
// Missing temperature samples are drawn at the axis floor (MinGrid)
// rather than as gaps. This reproduces the historical display behavior;
// a missing reading therefore looks like a cold reading, and any change
// to that policy belongs here.
func Render(samples []forecast.HourlySample, sc Scale, opt Options) Program {
	dpr := opt.DPR
	if dpr <= 0 {
		dpr = 1
	}
	p := Program{Width: opt.Width, Height: opt.Height, DPR: dpr}

	if opt.Width <= 0 || opt.Height <= 0 {
		return p
	}

	plotTop := marginTop
	plotHeight := opt.Height - marginTop - marginBottom
	if plotHeight <= 0 {
		return p
	}

	// Horizontal gridlines, one per step from floor to ceiling.
	for t := sc.MinGrid; t <= sc.MaxGrid+gridlineEpsilon; t += sc.Step {
		y := plotTop + ((sc.MaxGrid-t)/sc.GridRange)*plotHeight
		p.Ops = append(p.Ops, Op{
			Kind: OpDashedLine,
			From: Point{X: 0, Y: y},
			To:   Point{X: opt.Width, Y: y},
		})
	}

	if len(samples) == 0 {
		return p
	}

	slot := opt.Width / float64(len(samples))

	if opt.SnowBars {
		maxSnow := 0.0
		for _, s := range samples {
			if s.Snow != nil && *s.Snow > maxSnow {
				maxSnow = *s.Snow
			}
		}
		denom := math.Max(maxSnow, snowScaleFloor)
		barWidth := slot * 0.5
		for i, s := range samples {
			if s.Snow == nil || *s.Snow <= 0 {
				continue
			}
			h := (*s.Snow / denom) * plotHeight
			x := (float64(i)+0.5)*slot - barWidth/2
			p.Ops = append(p.Ops, Op{
				Kind:   OpBar,
				At:     Point{X: x, Y: plotTop + plotHeight - h},
				Width:  barWidth,
				Height: h,
			})
		}
	}

	// Temperature curve: one vertex per sample at the slot center.
	points := make([]Point, 0, len(samples))
	for i, s := range samples {
		value := sc.MinGrid
		if s.Temp != nil && !math.IsNaN(*s.Temp) {
			value = *s.Temp
		}
		points = append(points, Point{
			X: (float64(i) + 0.5) * slot,
			Y: plotTop + (1-(value-sc.MinGrid)/sc.GridRange)*plotHeight,
		})
	}

	if len(points) > 1 {
		p.Ops = append(p.Ops, Op{Kind: OpPolyline, Points: points})
	}
	for _, pt := range points {
		p.Ops = append(p.Ops, Op{Kind: OpMarker, At: pt, Radius: markerRadius})
	}

	return p
}

// TempSamples extracts the temperature values of a series for scale
// computation, with NaN standing in for absent readings.
func TempSamples(samples []forecast.HourlySample) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		if s.Temp == nil {
			out[i] = math.NaN()
			continue
		}
		out[i] = *s.Temp
	}
	return out
}
