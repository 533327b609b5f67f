// Package geometry provides the point and contour arithmetic used by the
// document detection pipeline.
//
// All coordinates use the image convention: origin at the top-left, X grows
// rightward and Y grows downward. Angles are reported in degrees.
package geometry

import (
	"errors"
	"math"
)

// ErrEmptyInput is returned when a centroid is requested for no points.
var ErrEmptyInput = errors.New("geometry: empty input")

// Point is a 2-D coordinate in pixel space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Pt is shorthand for Point{X: x, Y: y}.
func Pt(x, y float64) Point {
	return Point{X: x, Y: y}
}

// Add returns p+q.
func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y}
}

// Sub returns p-q.
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// Div returns p scaled by 1/k.
func (p Point) Div(k float64) Point {
	return Point{X: p.X / k, Y: p.Y / k}
}

// Contour is an ordered, cyclic sequence of points describing a polygon
// boundary. The order is the traversal order around the boundary.
type Contour []Point

// Distance returns the Euclidean distance between a and b.
func Distance(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// Angle returns the angle at origin between the rays to a and b, in degrees
// within [0, 180]. ok is false when either ray has zero length.
func Angle(origin, a, b Point) (deg float64, ok bool) {
	va := a.Sub(origin)
	vb := b.Sub(origin)
	na := math.Hypot(va.X, va.Y)
	nb := math.Hypot(vb.X, vb.Y)
	if na == 0 || nb == 0 {
		return 0, false
	}
	cos := (va.X*vb.X + va.Y*vb.Y) / (na * nb)
	// rounding can push |cos| slightly past 1
	cos = math.Max(-1, math.Min(1, cos))
	return math.Acos(cos) * 180 / math.Pi, true
}

// Bearing returns the signed polar angle, in degrees within (-180, 180], of
// the ray from origin to a.
func Bearing(origin, a Point) float64 {
	v := a.Sub(origin)
	return math.Atan2(v.Y, v.X) * 180 / math.Pi
}

// Centroid returns the arithmetic mean of points.
func Centroid(points []Point) (Point, error) {
	if len(points) == 0 {
		return Point{}, ErrEmptyInput
	}
	var sum Point
	for _, p := range points {
		sum = sum.Add(p)
	}
	return sum.Div(float64(len(points))), nil
}

// CentroidOf returns the centroid of every vertex of every contour.
func CentroidOf(contours []Contour) (Point, error) {
	var sum Point
	n := 0
	for _, c := range contours {
		for _, p := range c {
			sum = sum.Add(p)
			n++
		}
	}
	if n == 0 {
		return Point{}, ErrEmptyInput
	}
	return sum.Div(float64(n)), nil
}

// Rotate returns a copy of c cyclically shifted left by n positions. n is
// taken modulo len(c) and may be negative.
func Rotate[S ~[]E, E any](c S, n int) S {
	out := make(S, len(c))
	if len(c) == 0 {
		return out
	}
	n %= len(c)
	if n < 0 {
		n += len(c)
	}
	copy(out, c[n:])
	copy(out[len(c)-n:], c[:n])
	return out
}
