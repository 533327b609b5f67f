package detection

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/ironsheep/docscan-mcp/internal/geometry"
)

// ConvexityTester decides whether a closed contour is convex.
type ConvexityTester interface {
	IsConvex(c geometry.Contour) bool
}

// Classifier applies the shape rules used throughout detection: every valid
// shape is convex, every quadrilateral has right angles within
// AngleTolerance, and regular shapes have all edges within LengthTolerance of
// the mean edge length.
type Classifier struct {
	// AngleTolerance is the allowed deviation from 90 degrees.
	AngleTolerance float64

	// LengthTolerance is the allowed deviation of any edge from the mean
	// edge length, in pixels.
	LengthTolerance float64

	// Convexity overrides the convexity test. Nil uses geometry.IsConvex.
	Convexity ConvexityTester
}

func (cl Classifier) isConvex(c geometry.Contour) bool {
	if cl.Convexity != nil {
		return cl.Convexity.IsConvex(c)
	}
	return geometry.IsConvex(c)
}

// IsValidShape reports whether c is a convex polygon with exactly sides
// vertices that obeys the angle rule for quadrilaterals and, when regular is
// set, the equal-edge rule.
func (cl Classifier) IsValidShape(c geometry.Contour, sides int, regular bool) bool {
	if len(c) != sides || !cl.isConvex(c) {
		return false
	}

	if sides == 4 {
		angles, ok := geometry.InteriorAngles(c)
		if !ok {
			return false
		}
		for _, a := range angles {
			if math.Abs(a-90) > cl.AngleTolerance {
				return false
			}
		}
	}

	if regular {
		return cl.allSameLength(c)
	}
	return true
}

// IsRectangle is IsValidShape(c, 4, false).
func (cl Classifier) IsRectangle(c geometry.Contour) bool {
	return cl.IsValidShape(c, 4, false)
}

// IsSquare is IsValidShape(c, 4, true).
func (cl Classifier) IsSquare(c geometry.Contour) bool {
	return cl.IsValidShape(c, 4, true)
}

// allSameLength requires every edge, not just some, to sit within
// LengthTolerance of the mean.
func (cl Classifier) allSameLength(c geometry.Contour) bool {
	lengths := geometry.EdgeLengths(c)
	mean := stat.Mean(lengths, nil)
	for _, l := range lengths {
		if math.Abs(l-mean) > cl.LengthTolerance {
			return false
		}
	}
	return true
}
