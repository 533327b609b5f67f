package imaging

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// MarginFor returns the number of pixels CropMargin removes from each side of
// an image of the given width.
func MarginFor(width int, ratio float64) int {
	if ratio <= 0 {
		return 0
	}
	return int(ratio * float64(width))
}

// CropMargin trims MarginFor(width, ratio) pixels from every side of img.
// The same margin is used vertically so the border is uniform. It fails when
// the margin would consume the whole image.
func CropMargin(img image.Image, ratio float64) (*image.NRGBA, error) {
	bounds := img.Bounds()
	m := MarginFor(bounds.Dx(), ratio)
	if 2*m >= bounds.Dx() || 2*m >= bounds.Dy() {
		return nil, fmt.Errorf("crop margin %d too large for %dx%d image", m, bounds.Dx(), bounds.Dy())
	}

	rect := image.Rect(bounds.Min.X+m, bounds.Min.Y+m, bounds.Max.X-m, bounds.Max.Y-m)
	return imaging.Crop(img, rect), nil
}
