package detection

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/ironsheep/docscan-mcp/internal/geometry"
)

// ErrCornerSelection means the focus points do not yield exactly four
// corners forming a rectangle.
var ErrCornerSelection = errors.New("detection: corner selection failed")

// minRightAngles is how many near-perpendicular pairs of other markers a
// focus point needs to count as a document corner.
const minRightAngles = 2

// SelectCorners picks the four focus points that act as document corners.
// A candidate qualifies when, seen from its center, at least two ordered
// pairs of other candidates are perpendicular within the angle tolerance.
// The selection is returned in polar order around its centroid.
func SelectCorners(fps []FocusPoint, cl Classifier) ([]FocusPoint, error) {
	quads := make([]FocusPoint, 0, len(fps))
	for _, fp := range fps {
		if fp.Shape == 4 {
			quads = append(quads, fp)
		}
	}

	corners := make([]FocusPoint, 0, 4)
	for xi, x := range quads {
		count := 0
		for yi, y := range quads {
			for zi, z := range quads {
				if xi == yi || yi == zi || xi == zi {
					continue
				}
				a, ok := geometry.Angle(x.Center, y.Center, z.Center)
				if ok && math.Abs(a-90) <= cl.AngleTolerance {
					count++
				}
			}
		}
		if count >= minRightAngles && !containsFocusPoint(corners, x) {
			corners = append(corners, x)
		}
	}

	if len(corners) != 4 {
		return nil, fmt.Errorf("%w: %d of %d candidates qualify", ErrCornerSelection, len(corners), len(quads))
	}

	ordered := OrderCorners(corners, 0)
	centers := make(geometry.Contour, len(ordered))
	for i, c := range ordered {
		centers[i] = c.Center
	}
	if !cl.IsRectangle(centers) {
		return nil, fmt.Errorf("%w: corners do not form a rectangle", ErrCornerSelection)
	}
	return ordered, nil
}

func containsFocusPoint(fps []FocusPoint, fp FocusPoint) bool {
	for _, f := range fps {
		if f.Root == fp.Root && f.Center == fp.Center {
			return true
		}
	}
	return false
}

// Reference returns the index of the corner with the deepest inner border.
// Ties go to the first occurrence.
func Reference(corners []FocusPoint) int {
	ref := 0
	for i, c := range corners {
		if c.Depth > corners[ref].Depth {
			ref = i
		}
	}
	return ref
}

// QuadReference returns the index of the reference vertex of a bare
// quadrilateral. Walking the vertices in polar order, a vertex qualifies when
// its outgoing edge is longer than the edge after it, which puts a long side
// on top of the page. A positive aspectRatio below 1 asks for a portrait page,
// so a short outgoing edge qualifies instead. Of the qualifying vertices the
// topmost wins, then the leftmost; the choice does not depend on where the
// contour starts. When no vertex qualifies the topmost vertex is used.
func QuadReference(quad geometry.Contour, aspectRatio float64) int {
	n := len(quad)
	if n == 0 {
		return 0
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	ring := polarOrder(idx, func(i int) geometry.Point { return quad[i] }, 0)
	longTop := aspectRatio <= 0 || aspectRatio >= 1

	ref := -1
	for k, i := range ring {
		b, c := quad[ring[(k+1)%n]], quad[ring[(k+2)%n]]
		out, next := geometry.Distance(quad[i], b), geometry.Distance(b, c)
		if longTop && out <= next || !longTop && out >= next {
			continue
		}
		if ref < 0 || above(quad[i], quad[ref]) {
			ref = i
		}
	}
	if ref >= 0 {
		return ref
	}

	ref = 0
	for i := range quad {
		if above(quad[i], quad[ref]) {
			ref = i
		}
	}
	return ref
}

func above(a, b geometry.Point) bool {
	return a.Y < b.Y || a.Y == b.Y && a.X < b.X
}

// OrderPoints sorts points by bearing around their centroid and rotates the
// result so that points[ref] comes first. In image coordinates an upright
// page comes out top-left, top-right, bottom-right, bottom-left when the
// reference is its top-left corner.
func OrderPoints(points []geometry.Point, ref int) []geometry.Point {
	return polarOrder(points, func(p geometry.Point) geometry.Point { return p }, ref)
}

// OrderCorners is OrderPoints for focus points, keyed by their centers.
func OrderCorners(corners []FocusPoint, ref int) []FocusPoint {
	return polarOrder(corners, func(fp FocusPoint) geometry.Point { return fp.Center }, ref)
}

func polarOrder[T any](items []T, at func(T) geometry.Point, ref int) []T {
	n := len(items)
	if n == 0 {
		return nil
	}
	pts := make([]geometry.Point, n)
	for i, it := range items {
		pts[i] = at(it)
	}
	centroid, _ := geometry.Centroid(pts)

	idx := make([]int, n)
	bearing := make([]float64, n)
	for i := range items {
		idx[i] = i
		bearing[i] = geometry.Bearing(centroid, pts[i])
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return bearing[idx[a]] < bearing[idx[b]]
	})

	start := 0
	for pos, i := range idx {
		if i == ref {
			start = pos
			break
		}
	}

	out := make([]T, n)
	for k := 0; k < n; k++ {
		out[k] = items[idx[(start+k)%n]]
	}
	return out
}
