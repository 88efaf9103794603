package chart

// OpKind tags one primitive instruction of a drawing program.
type OpKind string

const (
	OpDashedLine OpKind = "dashedLine"
	OpPolyline   OpKind = "polyline"
	OpMarker     OpKind = "marker"
	OpBar        OpKind = "bar"
)

// Point is a coordinate in logical (pre-DPR) space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Op is one primitive instruction. Which fields are meaningful depends on
// Kind: dashed lines use From/To, polylines use Points, markers use At and
// Radius, bars use At (top-left corner) plus Width and Height.
type Op struct {
	Kind   OpKind  `json:"kind"`
	From   Point   `json:"from,omitempty"`
	To     Point   `json:"to,omitempty"`
	Points []Point `json:"points,omitempty"`
	At     Point   `json:"at,omitempty"`
	Radius float64 `json:"radius,omitempty"`
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`
}

// Program is an ordered list of draw instructions in a logical coordinate
// space independent of the backing store. The rasterizer multiplies all
// geometry by DPR so line widths stay visually constant across displays.
// A Program is produced whole on every render call and never patched.
type Program struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	DPR    float64 `json:"dpr"`
	Ops    []Op    `json:"ops"`
}

// Empty reports whether the program draws nothing (zero-size plot box or
// no instructions).
func (p Program) Empty() bool {
	return len(p.Ops) == 0
}
