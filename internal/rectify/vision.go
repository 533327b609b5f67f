package rectify

import (
	"image"

	"github.com/ironsheep/docscan-mcp/internal/contour"
	"github.com/ironsheep/docscan-mcp/internal/geometry"
)

// Vision is the set of image primitives the pipeline is built on. The
// pipeline itself never touches pixels; everything it needs from the raster
// goes through this interface.
//
// Implementations must be safe for concurrent use.
type Vision interface {
	// DetectEdges returns a binary edge map of img.
	DetectEdges(img image.Image, low, high, aperture int) (*image.Gray, error)

	// ExtractContours traces every border in edges with its nesting.
	ExtractContours(edges *image.Gray) (contour.Forest, error)

	// Approximate simplifies c to a polygon within tolerance pixels.
	Approximate(c geometry.Contour, tolerance float64) geometry.Contour

	// IsConvex reports whether the polygon c has no reflex vertex.
	IsConvex(c geometry.Contour) bool

	// Contains reports whether p lies inside c or on its boundary.
	Contains(c geometry.Contour, p geometry.Point) bool

	// Area returns the unsigned area enclosed by c.
	Area(c geometry.Contour) float64

	// AdaptiveThreshold binarises img against a Gaussian local mean.
	AdaptiveThreshold(img image.Image, blockSize int, c float64) (*image.Gray, error)

	// Warp maps the src quadrilateral of img onto dst in a new image of
	// the given size.
	Warp(img image.Image, src, dst [4]geometry.Point, size image.Point) (image.Image, error)
}
