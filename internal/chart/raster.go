package chart

import (
	"io"
	"math"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

var (
	gridColor  = drawing.Color{R: 203, G: 210, B: 217, A: 255}
	curveColor = drawing.Color{R: 214, G: 69, B: 65, A: 255}
	barColor   = drawing.Color{R: 107, G: 163, B: 214, A: 200}
)

// RasterizePNG draws a program into a PNG backing store sized at
// logical dimensions × DPR.
func RasterizePNG(p Program, out io.Writer) error {
	return rasterize(p, gochart.PNG, out)
}

// RasterizeSVG draws a program as SVG.
func RasterizeSVG(p Program, out io.Writer) error {
	return rasterize(p, gochart.SVG, out)
}

// rasterize walks the program's instructions onto a go-chart renderer.
// All geometry is multiplied by DPR here, including stroke widths, so a
// 2x backing store shows the same visual line weight as a 1x one. An
// unmeasured (zero-size) program writes nothing and is not an error.
func rasterize(p Program, provider gochart.RendererProvider, out io.Writer) error {
	if p.Width <= 0 || p.Height <= 0 {
		return nil
	}
	dpr := p.DPR
	if dpr <= 0 {
		dpr = 1
	}

	physW := int(math.Round(p.Width * dpr))
	physH := int(math.Round(p.Height * dpr))

	r, err := provider(physW, physH)
	if err != nil {
		return err
	}

	px := func(v float64) int { return int(math.Round(v * dpr)) }

	r.SetFillColor(drawing.ColorWhite)
	r.MoveTo(0, 0)
	r.LineTo(physW, 0)
	r.LineTo(physW, physH)
	r.LineTo(0, physH)
	r.Close()
	r.Fill()

	for _, op := range p.Ops {
		switch op.Kind {
		case OpDashedLine:
			r.SetStrokeColor(gridColor)
			r.SetStrokeWidth(1 * dpr)
			r.SetStrokeDashArray([]float64{4 * dpr, 4 * dpr})
			r.MoveTo(px(op.From.X), px(op.From.Y))
			r.LineTo(px(op.To.X), px(op.To.Y))
			r.Stroke()
		case OpBar:
			r.SetFillColor(barColor)
			r.MoveTo(px(op.At.X), px(op.At.Y))
			r.LineTo(px(op.At.X+op.Width), px(op.At.Y))
			r.LineTo(px(op.At.X+op.Width), px(op.At.Y+op.Height))
			r.LineTo(px(op.At.X), px(op.At.Y+op.Height))
			r.Close()
			r.Fill()
		case OpPolyline:
			r.SetStrokeColor(curveColor)
			r.SetStrokeWidth(1.5 * dpr)
			r.SetStrokeDashArray(nil)
			for i, pt := range op.Points {
				if i == 0 {
					r.MoveTo(px(pt.X), px(pt.Y))
					continue
				}
				r.LineTo(px(pt.X), px(pt.Y))
			}
			r.Stroke()
		case OpMarker:
			r.SetFillColor(curveColor)
			r.Circle(op.Radius*dpr, px(op.At.X), px(op.At.Y))
			r.Fill()
		}
	}

	return r.Save(out)
}
