package detection

import (
	"math"

	"github.com/ironsheep/docscan-mcp/internal/contour"
	"github.com/ironsheep/docscan-mcp/internal/geometry"
)

// testClassifier mirrors the default tolerances.
var testClassifier = Classifier{AngleTolerance: 10, LengthTolerance: 5}

// squareAround returns an axis-aligned square contour centred on (cx, cy).
func squareAround(cx, cy, half float64) geometry.Contour {
	return geometry.Contour{
		geometry.Pt(cx-half, cy-half),
		geometry.Pt(cx+half, cy-half),
		geometry.Pt(cx+half, cy+half),
		geometry.Pt(cx-half, cy+half),
	}
}

// rotated rotates every point of c by deg degrees around (cx, cy).
func rotated(c geometry.Contour, cx, cy, deg float64) geometry.Contour {
	s, co := math.Sincos(deg * math.Pi / 180)
	out := make(geometry.Contour, len(c))
	for i, p := range c {
		dx, dy := p.X-cx, p.Y-cy
		out[i] = geometry.Pt(cx+dx*co-dy*s, cy+dx*s+dy*co)
	}
	return out
}

// nestedSquares returns levels concentric squares, outermost first.
func nestedSquares(cx, cy float64, levels int) []geometry.Contour {
	out := make([]geometry.Contour, levels)
	for k := 0; k < levels; k++ {
		out[k] = squareAround(cx, cy, float64(4*(levels-k)+4))
	}
	return out
}

// chainForest lays out chains one after another, each linked by first-child
// relations, and returns the forest.
func chainForest(chains ...[]geometry.Contour) contour.Forest {
	var f contour.Forest
	for _, chain := range chains {
		parent := contour.None
		for k, c := range chain {
			idx := len(f.Contours)
			f.Contours = append(f.Contours, c)
			f.Hierarchy = append(f.Hierarchy, contour.Link{
				Next: contour.None, Prev: contour.None, FirstChild: contour.None, Parent: parent,
			})
			if k > 0 {
				f.Hierarchy[idx-1].FirstChild = idx
			}
			parent = idx
		}
	}
	return f
}

// markerAt builds a focus point of depth levels-1 centred on (cx, cy).
func markerAt(cx, cy float64, levels int) FocusPoint {
	g := Group{Contours: nestedSquares(cx, cy, levels)}
	fp, err := NewFocusPoint(g, testClassifier, 0)
	if err != nil {
		panic(err)
	}
	fp.Root = int(cx*1000 + cy)
	return fp
}
