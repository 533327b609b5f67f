package geometry

import "math"

// InteriorAngles returns the angle at every vertex of c, walking consecutive
// (previous, vertex, next) triples cyclically. ok is false if any vertex has
// a zero-length adjacent edge.
func InteriorAngles(c Contour) (angles []float64, ok bool) {
	n := len(c)
	angles = make([]float64, n)
	for i := range c {
		a, valid := Angle(c[i], c[(i+n-1)%n], c[(i+1)%n])
		if !valid {
			return nil, false
		}
		angles[i] = a
	}
	return angles, true
}

// EdgeLengths returns the length of every edge c[i]->c[i+1], closing back to
// c[0].
func EdgeLengths(c Contour) []float64 {
	n := len(c)
	out := make([]float64, n)
	for i := range c {
		out[i] = Distance(c[i], c[(i+1)%n])
	}
	return out
}

// IsConvex reports whether c is a convex polygon with a consistent winding.
// Collinear vertices are tolerated but at least one turn is required.
func IsConvex(c Contour) bool {
	n := len(c)
	if n < 3 {
		return false
	}
	sign := 0
	for i := range c {
		a, b, d := c[i], c[(i+1)%n], c[(i+2)%n]
		cross := (b.X-a.X)*(d.Y-b.Y) - (b.Y-a.Y)*(d.X-b.X)
		switch {
		case cross > 0:
			if sign < 0 {
				return false
			}
			sign = 1
		case cross < 0:
			if sign > 0 {
				return false
			}
			sign = -1
		}
	}
	return sign != 0
}

// Area returns the absolute area enclosed by c (shoelace formula).
func Area(c Contour) float64 {
	n := len(c)
	if n < 3 {
		return 0
	}
	var s float64
	for i := range c {
		j := (i + 1) % n
		s += c[i].X*c[j].Y - c[j].X*c[i].Y
	}
	return math.Abs(s) / 2
}

// Contains reports whether p lies inside c or on its boundary.
func Contains(c Contour, p Point) bool {
	n := len(c)
	if n < 3 {
		return false
	}
	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := c[i], c[j]
		if onSegment(a, b, p) {
			return true
		}
		if (a.Y > p.Y) != (b.Y > p.Y) {
			x := (b.X-a.X)*(p.Y-a.Y)/(b.Y-a.Y) + a.X
			if p.X < x {
				inside = !inside
			}
		}
	}
	return inside
}

func onSegment(a, b, p Point) bool {
	const eps = 1e-9
	cross := (b.X-a.X)*(p.Y-a.Y) - (b.Y-a.Y)*(p.X-a.X)
	if math.Abs(cross) > eps {
		return false
	}
	return p.X >= math.Min(a.X, b.X)-eps && p.X <= math.Max(a.X, b.X)+eps &&
		p.Y >= math.Min(a.Y, b.Y)-eps && p.Y <= math.Max(a.Y, b.Y)+eps
}
