package imaging

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"

	"github.com/ironsheep/docscan-mcp/internal/geometry"
)

// DrawPolygon returns a copy of img with the closed polygon poly outlined.
// thickness is the stroke width in pixels; values below 1 draw a 1 pixel
// line. The copy is anchored at the origin; poly is given in img's
// coordinates.
func DrawPolygon(img image.Image, poly []geometry.Point, c color.Color, thickness int) *image.NRGBA {
	out := imaging.Clone(img)
	if len(poly) < 2 {
		return out
	}
	if thickness < 1 {
		thickness = 1
	}

	min := img.Bounds().Min
	nc := color.NRGBAModel.Convert(c).(color.NRGBA)
	for i := range poly {
		a := poly[i].Sub(geometry.Pt(float64(min.X), float64(min.Y)))
		b := poly[(i+1)%len(poly)].Sub(geometry.Pt(float64(min.X), float64(min.Y)))
		drawLine(out, a, b, nc, thickness)
	}
	return out
}

// drawLine walks from a to b one pixel at a time, stamping a square brush.
func drawLine(dst *image.NRGBA, a, b geometry.Point, c color.NRGBA, thickness int) {
	steps := int(math.Ceil(math.Max(math.Abs(b.X-a.X), math.Abs(b.Y-a.Y))))
	if steps == 0 {
		steps = 1
	}
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		x := int(math.Round(a.X + (b.X-a.X)*t))
		y := int(math.Round(a.Y + (b.Y-a.Y)*t))
		stamp(dst, x, y, c, thickness)
	}
}

func stamp(dst *image.NRGBA, x, y int, c color.NRGBA, thickness int) {
	lo := -(thickness - 1) / 2
	hi := thickness / 2
	for dy := lo; dy <= hi; dy++ {
		for dx := lo; dx <= hi; dx++ {
			p := image.Pt(x+dx, y+dy)
			if p.In(dst.Rect) {
				dst.SetNRGBA(p.X, p.Y, c)
			}
		}
	}
}
