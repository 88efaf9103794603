package chart

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"powdercast/internal/forecast"
)

func f(v float64) *float64 { return &v }

func sampleSeries(temps ...float64) []forecast.HourlySample {
	out := make([]forecast.HourlySample, len(temps))
	for i, tv := range temps {
		v := tv
		out[i] = forecast.HourlySample{TimestampEpochMs: int64(i) * 3600_000, Temp: &v}
	}
	return out
}

func opsOfKind(p Program, kind OpKind) []Op {
	var out []Op
	for _, op := range p.Ops {
		if op.Kind == kind {
			out = append(out, op)
		}
	}
	return out
}

func TestRenderZeroSizeBoxIsEmpty(t *testing.T) {
	samples := sampleSeries(10, 20, 30)
	sc := ComputeScale(TempSamples(samples))

	assert.True(t, Render(samples, sc, Options{Width: 0, Height: 100, DPR: 2}).Empty())
	assert.True(t, Render(samples, sc, Options{Width: 100, Height: 0, DPR: 2}).Empty())
}

func TestRenderGridlines(t *testing.T) {
	samples := sampleSeries(0, 10)
	sc := ComputeScale(TempSamples(samples)) // 0..10 step 2

	p := Render(samples, sc, Options{Width: 240, Height: 126, DPR: 1})
	lines := opsOfKind(p, OpDashedLine)

	// 0, 2, 4, 6, 8, 10: the top line is included despite fp rounding.
	require.Len(t, lines, 6)

	plotHeight := 126.0 - marginTop - marginBottom
	assert.InDelta(t, marginTop+plotHeight, lines[0].From.Y, 1e-9) // t = MinGrid sits at the bottom
	assert.InDelta(t, marginTop, lines[len(lines)-1].From.Y, 1e-9) // t = MaxGrid sits at the top
	for _, ln := range lines {
		assert.Equal(t, 0.0, ln.From.X)
		assert.Equal(t, 240.0, ln.To.X)
		assert.Equal(t, ln.From.Y, ln.To.Y)
	}
}

func TestRenderCurveGeometry(t *testing.T) {
	samples := sampleSeries(0, 10)
	sc := ComputeScale(TempSamples(samples))

	p := Render(samples, sc, Options{Width: 200, Height: 126, DPR: 1})

	polys := opsOfKind(p, OpPolyline)
	require.Len(t, polys, 1)
	pts := polys[0].Points
	require.Len(t, pts, 2)

	// x = (i + 0.5) * (width / N)
	assert.InDelta(t, 50.0, pts[0].X, 1e-9)
	assert.InDelta(t, 150.0, pts[1].X, 1e-9)

	plotHeight := 126.0 - marginTop - marginBottom
	assert.InDelta(t, marginTop+plotHeight, pts[0].Y, 1e-9) // value at MinGrid
	assert.InDelta(t, marginTop, pts[1].Y, 1e-9)            // value at MaxGrid

	markers := opsOfKind(p, OpMarker)
	require.Len(t, markers, 2)
	assert.Equal(t, pts[0], markers[0].At)
	assert.Equal(t, pts[1], markers[1].At)
}

func TestRenderMissingTempDrawsAxisFloor(t *testing.T) {
	samples := sampleSeries(0, 10)
	samples = append(samples, forecast.HourlySample{TimestampEpochMs: 3 * 3600_000})
	sc := ComputeScale(TempSamples(samples))

	p := Render(samples, sc, Options{Width: 300, Height: 126, DPR: 1})

	polys := opsOfKind(p, OpPolyline)
	require.Len(t, polys, 1)
	pts := polys[0].Points
	require.Len(t, pts, 3)

	// The missing third sample is drawn at the axis floor, same y as a
	// MinGrid-valued reading, not skipped.
	assert.InDelta(t, pts[0].Y, pts[2].Y, 1e-9)
}

func TestRenderSnowBars(t *testing.T) {
	samples := sampleSeries(20, 22, 24, 26)
	samples[1].Snow = f(3)
	samples[2].Snow = f(0)
	samples[3].Snow = f(12)

	sc := ComputeScale(TempSamples(samples))
	p := Render(samples, sc, Options{Width: 400, Height: 126, DPR: 1, SnowBars: true})

	bars := opsOfKind(p, OpBar)
	require.Len(t, bars, 2) // zero and absent snow draw nothing

	plotHeight := 126.0 - marginTop - marginBottom

	// maxSnow = 12 > floor of 6, so 12 inches fills the plot and 3 inches
	// is a quarter height.
	assert.InDelta(t, plotHeight*3/12, bars[0].Height, 1e-9)
	assert.InDelta(t, plotHeight, bars[1].Height, 1e-9)

	// Bars rise from the plot floor.
	assert.InDelta(t, marginTop+plotHeight, bars[0].At.Y+bars[0].Height, 1e-9)
}

func TestRenderSnowFloorPreventsExaggeration(t *testing.T) {
	samples := sampleSeries(20, 22)
	samples[0].Snow = f(1.5)

	sc := ComputeScale(TempSamples(samples))
	p := Render(samples, sc, Options{Width: 200, Height: 126, DPR: 1, SnowBars: true})

	bars := opsOfKind(p, OpBar)
	require.Len(t, bars, 1)

	plotHeight := 126.0 - marginTop - marginBottom
	// 1.5 inches against the floor of 6, not against the observed max.
	assert.InDelta(t, plotHeight*1.5/6, bars[0].Height, 1e-9)
}

func TestRenderDeterministicAndDPRCarried(t *testing.T) {
	samples := sampleSeries(5, 8, 2)
	sc := ComputeScale(TempSamples(samples))
	opt := Options{Width: 300, Height: 150, DPR: 2, SnowBars: true}

	a := Render(samples, sc, opt)
	b := Render(samples, sc, opt)

	assert.Equal(t, a, b)
	assert.Equal(t, 2.0, a.DPR)
	assert.Equal(t, 300.0, a.Width) // geometry stays logical; DPR applies at rasterization
}

func TestTempSamples(t *testing.T) {
	samples := sampleSeries(1, 2)
	samples = append(samples, forecast.HourlySample{})

	vals := TempSamples(samples)
	require.Len(t, vals, 3)
	assert.Equal(t, 1.0, vals[0])
	assert.True(t, math.IsNaN(vals[2]))
}
