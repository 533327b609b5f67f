package contour

import (
	"math"

	"github.com/ironsheep/docscan-mcp/internal/geometry"
)

// Approximate simplifies the closed contour c with the Douglas-Peucker
// algorithm. Vertices closer than tolerance to the simplified outline are
// dropped. The result keeps the traversal order of c.
func Approximate(c geometry.Contour, tolerance float64) geometry.Contour {
	n := len(c)
	if n <= 3 || tolerance <= 0 {
		return append(geometry.Contour(nil), c...)
	}

	// split the ring at the vertex farthest from c[0]
	far := 0
	best := -1.0
	for i, p := range c {
		if d := geometry.Distance(c[0], p); d > best {
			best, far = d, i
		}
	}
	if far == 0 {
		return geometry.Contour{c[0]}
	}

	keep := make([]bool, n)
	keep[0], keep[far] = true, true
	simplify(c, 0, far, tolerance, keep)

	closed := make(geometry.Contour, 0, n-far+1)
	closed = append(closed, c[far:]...)
	closed = append(closed, c[0])
	tail := make([]bool, len(closed))
	tail[0], tail[len(tail)-1] = true, true
	simplify(closed, 0, len(closed)-1, tolerance, tail)
	for k := 1; k < len(tail)-1; k++ {
		if tail[k] {
			keep[far+k] = true
		}
	}

	out := make(geometry.Contour, 0, 8)
	for i, p := range c {
		if keep[i] {
			out = append(out, p)
		}
	}
	return pruneCollinear(out, tolerance)
}

func simplify(c geometry.Contour, first, last int, tolerance float64, keep []bool) {
	if last-first < 2 {
		return
	}
	idx := -1
	best := tolerance
	for i := first + 1; i < last; i++ {
		if d := segmentDistance(c[i], c[first], c[last]); d > best {
			best, idx = d, i
		}
	}
	if idx < 0 {
		return
	}
	keep[idx] = true
	simplify(c, first, idx, tolerance, keep)
	simplify(c, idx, last, tolerance, keep)
}

// pruneCollinear removes vertices, including the split points, that lie
// within tolerance of the line through their neighbours.
func pruneCollinear(c geometry.Contour, tolerance float64) geometry.Contour {
	for len(c) > 3 {
		removed := false
		for i := range c {
			n := len(c)
			prev, next := c[(i+n-1)%n], c[(i+1)%n]
			if segmentDistance(c[i], prev, next) <= tolerance {
				c = append(c[:i:i], c[i+1:]...)
				removed = true
				break
			}
		}
		if !removed {
			break
		}
	}
	return c
}

// segmentDistance returns the distance from p to the segment ab.
func segmentDistance(p, a, b geometry.Point) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	l2 := dx*dx + dy*dy
	if l2 == 0 {
		return geometry.Distance(p, a)
	}
	t := ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / l2
	t = math.Max(0, math.Min(1, t))
	return geometry.Distance(p, geometry.Pt(a.X+t*dx, a.Y+t*dy))
}
