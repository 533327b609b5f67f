package detection

import (
	"errors"
	"fmt"

	"github.com/ironsheep/docscan-mcp/internal/geometry"
)

// ErrNoInnerBorder means a candidate group holds no valid quadrilateral near
// its innermost end. Callers discard the candidate.
var ErrNoInnerBorder = errors.New("detection: no inner border")

// DefaultInnerBorderWindow is how many contours, counted from the innermost,
// are searched for the marker's inner border.
const DefaultInnerBorderWindow = 5

// FocusPoint is a fiducial marker candidate built from one group.
type FocusPoint struct {
	// Contours is the source group, outermost first.
	Contours []geometry.Contour `json:"-"`

	// Center is the centroid of every vertex in the group.
	Center geometry.Point `json:"center"`

	// Depth is the index in Contours of the innermost valid quadrilateral.
	Depth int `json:"depth"`

	// Shape is the vertex count of Contours[Depth].
	Shape int `json:"shape"`

	// Root is the forest index of the outermost contour.
	Root int `json:"root"`
}

// NewFocusPoint builds a focus point from g. window bounds how far back from
// the innermost contour the inner border is searched; values below 1 use
// DefaultInnerBorderWindow. It returns ErrNoInnerBorder when no contour in
// the window is a valid quadrilateral.
func NewFocusPoint(g Group, cl Classifier, window int) (FocusPoint, error) {
	center, err := geometry.CentroidOf(g.Contours)
	if err != nil {
		return FocusPoint{}, fmt.Errorf("focus point at contour %d: %w", g.Root, err)
	}

	depth, ok := findInnerBorder(g.Contours, cl, window)
	if !ok {
		return FocusPoint{}, fmt.Errorf("focus point at contour %d: %w", g.Root, ErrNoInnerBorder)
	}

	return FocusPoint{
		Contours: g.Contours,
		Center:   center,
		Depth:    depth,
		Shape:    len(g.Contours[depth]),
		Root:     g.Root,
	}, nil
}

// findInnerBorder scans backward from the last contour and returns the index
// of the first quadrilateral it finds.
func findInnerBorder(contours []geometry.Contour, cl Classifier, window int) (int, bool) {
	if window < 1 {
		window = DefaultInnerBorderWindow
	}
	stop := len(contours) - window
	if stop < 0 {
		stop = 0
	}
	for i := len(contours) - 1; i >= stop; i-- {
		if cl.IsValidShape(contours[i], 4, false) {
			return i, true
		}
	}
	return 0, false
}

// FindFocusPoints builds a focus point for each group and skips the groups
// that do not qualify. The second return value counts the skipped groups.
func FindFocusPoints(groups []Group, cl Classifier, window int) ([]FocusPoint, int) {
	out := make([]FocusPoint, 0, len(groups))
	skipped := 0
	for _, g := range groups {
		fp, err := NewFocusPoint(g, cl, window)
		if err != nil {
			skipped++
			continue
		}
		out = append(out, fp)
	}
	return out, skipped
}
