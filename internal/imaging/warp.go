package imaging

import (
	"errors"
	"image"
	"math"

	"github.com/disintegration/imaging"

	"github.com/ironsheep/docscan-mcp/internal/geometry"
)

// ErrSingularTransform means the four point pairs do not define a perspective
// transform (three or more points are collinear).
var ErrSingularTransform = errors.New("imaging: singular perspective transform")

// Homography is a 3x3 projective transform. Points are mapped as
//
//	x' = (a11*x + a21*y + a31) / (a13*x + a23*y + a33)
//	y' = (a12*x + a22*y + a32) / (a13*x + a23*y + a33)
type Homography struct {
	a11, a12, a13 float64
	a21, a22, a23 float64
	a31, a32, a33 float64
}

// QuadToQuad returns the transform that maps src[i] onto dst[i].
func QuadToQuad(src, dst [4]geometry.Point) (Homography, error) {
	qToS := squareToQuad(src).adjoint()
	sToQ := squareToQuad(dst)
	h := sToQ.times(qToS)
	if !h.finite() {
		return Homography{}, ErrSingularTransform
	}
	for _, p := range src {
		if q := h.Apply(p); math.IsNaN(q.X) || math.IsInf(q.X, 0) || math.IsNaN(q.Y) || math.IsInf(q.Y, 0) {
			return Homography{}, ErrSingularTransform
		}
	}
	return h, nil
}

// Apply maps p through the transform. Points on the line at infinity map to
// NaN coordinates.
func (h Homography) Apply(p geometry.Point) geometry.Point {
	den := h.a13*p.X + h.a23*p.Y + h.a33
	if den == 0 {
		return geometry.Point{X: math.NaN(), Y: math.NaN()}
	}
	return geometry.Point{
		X: (h.a11*p.X + h.a21*p.Y + h.a31) / den,
		Y: (h.a12*p.X + h.a22*p.Y + h.a32) / den,
	}
}

// squareToQuad maps the unit square onto q.
func squareToQuad(q [4]geometry.Point) Homography {
	x0, y0 := q[0].X, q[0].Y
	x1, y1 := q[1].X, q[1].Y
	x2, y2 := q[2].X, q[2].Y
	x3, y3 := q[3].X, q[3].Y

	dx3 := x0 - x1 + x2 - x3
	dy3 := y0 - y1 + y2 - y3
	if dx3 == 0 && dy3 == 0 {
		// affine
		return Homography{
			a11: x1 - x0, a21: x2 - x1, a31: x0,
			a12: y1 - y0, a22: y2 - y1, a32: y0,
			a13: 0, a23: 0, a33: 1,
		}
	}

	dx1, dx2 := x1-x2, x3-x2
	dy1, dy2 := y1-y2, y3-y2
	den := dx1*dy2 - dx2*dy1
	a13 := (dx3*dy2 - dx2*dy3) / den
	a23 := (dx1*dy3 - dx3*dy1) / den
	return Homography{
		a11: x1 - x0 + a13*x1, a21: x3 - x0 + a23*x3, a31: x0,
		a12: y1 - y0 + a13*y1, a22: y3 - y0 + a23*y3, a32: y0,
		a13: a13, a23: a23, a33: 1,
	}
}

func (h Homography) adjoint() Homography {
	return Homography{
		a11: h.a22*h.a33 - h.a23*h.a32,
		a21: h.a23*h.a31 - h.a21*h.a33,
		a31: h.a21*h.a32 - h.a22*h.a31,
		a12: h.a13*h.a32 - h.a12*h.a33,
		a22: h.a11*h.a33 - h.a13*h.a31,
		a32: h.a12*h.a31 - h.a11*h.a32,
		a13: h.a12*h.a23 - h.a13*h.a22,
		a23: h.a13*h.a21 - h.a11*h.a23,
		a33: h.a11*h.a22 - h.a12*h.a21,
	}
}

func (h Homography) times(o Homography) Homography {
	return Homography{
		a11: h.a11*o.a11 + h.a21*o.a12 + h.a31*o.a13,
		a21: h.a11*o.a21 + h.a21*o.a22 + h.a31*o.a23,
		a31: h.a11*o.a31 + h.a21*o.a32 + h.a31*o.a33,
		a12: h.a12*o.a11 + h.a22*o.a12 + h.a32*o.a13,
		a22: h.a12*o.a21 + h.a22*o.a22 + h.a32*o.a23,
		a32: h.a12*o.a31 + h.a22*o.a32 + h.a32*o.a33,
		a13: h.a13*o.a11 + h.a23*o.a12 + h.a33*o.a13,
		a23: h.a13*o.a21 + h.a23*o.a22 + h.a33*o.a23,
		a33: h.a13*o.a31 + h.a23*o.a32 + h.a33*o.a33,
	}
}

func (h Homography) finite() bool {
	all := []float64{h.a11, h.a12, h.a13, h.a21, h.a22, h.a23, h.a31, h.a32, h.a33}
	zero := true
	for _, v := range all {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
		if v != 0 {
			zero = false
		}
	}
	return !zero
}

// Warp renders the region of img bounded by src into a size.X x size.Y image,
// sending src[i] to dst[i]. Every output pixel is pulled back through the
// inverse transform and sampled bilinearly. Samples that fall outside img are
// black.
func Warp(img image.Image, src, dst [4]geometry.Point, size image.Point) (image.Image, error) {
	if size.X < 1 || size.Y < 1 {
		return nil, errors.New("imaging: warp target must be at least 1x1")
	}
	inverse, err := QuadToQuad(dst, src)
	if err != nil {
		return nil, err
	}

	source := imaging.Clone(img)
	out := image.NewNRGBA(image.Rect(0, 0, size.X, size.Y))
	for y := 0; y < size.Y; y++ {
		row := out.Pix[y*out.Stride:]
		for x := 0; x < size.X; x++ {
			p := inverse.Apply(geometry.Pt(float64(x), float64(y)))
			copy(row[x*4:x*4+4], bilinearSample(source, p.X, p.Y))
		}
	}
	return out, nil
}

var black = [4]uint8{0, 0, 0, 255}

// bilinearSample reads src at a fractional position. src is anchored at the
// origin.
func bilinearSample(src *image.NRGBA, x, y float64) []uint8 {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	if math.IsNaN(x) || math.IsNaN(y) || x < 0 || y < 0 || x > float64(w-1) || y > float64(h-1) {
		return black[:]
	}

	x0, y0 := int(x), int(y)
	x1, y1 := x0+1, y0+1
	if x1 >= w {
		x1 = w - 1
	}
	if y1 >= h {
		y1 = h - 1
	}
	fx, fy := x-float64(x0), y-float64(y0)

	c00 := src.Pix[y0*src.Stride+x0*4:]
	c10 := src.Pix[y0*src.Stride+x1*4:]
	c01 := src.Pix[y1*src.Stride+x0*4:]
	c11 := src.Pix[y1*src.Stride+x1*4:]

	out := make([]uint8, 4)
	for i := 0; i < 4; i++ {
		top := lerp(float64(c00[i]), float64(c10[i]), fx)
		bottom := lerp(float64(c01[i]), float64(c11[i]), fx)
		out[i] = uint8(lerp(top, bottom, fy) + 0.5)
	}
	return out
}

func lerp(a, b, t float64) float64 { return a + (b-a)*t }
