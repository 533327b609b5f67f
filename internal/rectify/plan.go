package rectify

import (
	"errors"
	"fmt"
	"image"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/ironsheep/docscan-mcp/internal/geometry"
)

// ErrDegenerateQuad means the chosen corners cannot produce a usable page.
var ErrDegenerateQuad = errors.New("rectify: degenerate quadrilateral")

// Plan maps four ordered source corners onto an upright Width x Height
// rectangle.
type Plan struct {
	Source      [4]geometry.Point `json:"source"`
	Destination [4]geometry.Point `json:"destination"`
	Width       int               `json:"width"`
	Height      int               `json:"height"`
}

// NewPlan sizes the output from the longer of each pair of opposite edges.
// corners must be ordered with the reference corner first and continue
// clockwise; corners[0] always lands on the destination origin. Orientation
// is decided by the choice of reference, never here.
func NewPlan(corners [4]geometry.Point) (Plan, error) {
	w, h := planSize(corners)
	if w < 1 || h < 1 {
		return Plan{}, fmt.Errorf("%w: %dx%d output", ErrDegenerateQuad, w, h)
	}

	fw, fh := float64(w-1), float64(h-1)
	return Plan{
		Source: corners,
		Destination: [4]geometry.Point{
			geometry.Pt(0, 0), geometry.Pt(fw, 0), geometry.Pt(fw, fh), geometry.Pt(0, fh),
		},
		Width:  w,
		Height: h,
	}, nil
}

func planSize(p [4]geometry.Point) (w, h int) {
	w = int(math.Round(floats.Max([]float64{
		geometry.Distance(p[2], p[3]),
		geometry.Distance(p[1], p[0]),
	})))
	h = int(math.Round(floats.Max([]float64{
		geometry.Distance(p[1], p[2]),
		geometry.Distance(p[0], p[3]),
	})))
	return w, h
}

// Size returns the output dimensions.
func (p Plan) Size() image.Point {
	return image.Pt(p.Width, p.Height)
}
