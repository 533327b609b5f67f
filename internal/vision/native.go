package vision

import (
	"image"

	"github.com/ironsheep/docscan-mcp/internal/contour"
	"github.com/ironsheep/docscan-mcp/internal/geometry"
	"github.com/ironsheep/docscan-mcp/internal/imaging"
)

// Native is the pure Go backend. It has no state and needs no cleanup.
type Native struct{}

// DetectEdges runs the package imaging Canny detector.
func (Native) DetectEdges(img image.Image, low, high, aperture int) (*image.Gray, error) {
	return imaging.Canny(img, low, high, aperture)
}

// ExtractContours traces borders with the pure Go follower. It never fails.
func (Native) ExtractContours(edges *image.Gray) (contour.Forest, error) {
	return contour.Extract(edges), nil
}

// Approximate applies Douglas-Peucker to the closed contour.
func (Native) Approximate(c geometry.Contour, tolerance float64) geometry.Contour {
	return contour.Approximate(c, tolerance)
}

// IsConvex reports whether every turn of c has the same sign.
func (Native) IsConvex(c geometry.Contour) bool {
	return geometry.IsConvex(c)
}

// Contains counts boundary points as inside.
func (Native) Contains(c geometry.Contour, p geometry.Point) bool {
	return geometry.Contains(c, p)
}

// Area is the absolute shoelace area of c.
func (Native) Area(c geometry.Contour) float64 {
	return geometry.Area(c)
}

// AdaptiveThreshold compares each pixel with its Gaussian-weighted
// neighbourhood minus c.
func (Native) AdaptiveThreshold(img image.Image, blockSize int, c float64) (*image.Gray, error) {
	return imaging.AdaptiveThreshold(img, blockSize, c)
}

// Warp resamples bilinearly through the homography taking dst to src.
func (Native) Warp(img image.Image, src, dst [4]geometry.Point, size image.Point) (image.Image, error) {
	return imaging.Warp(img, src, dst, size)
}
