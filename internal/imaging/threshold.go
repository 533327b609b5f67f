package imaging

import (
	"fmt"
	"image"

	"github.com/anthonynsimon/bild/blur"
	"github.com/anthonynsimon/bild/effect"
)

// Gray converts img to 8-bit luminance using ITU-R BT.601 weights
// (0.299*R + 0.587*G + 0.114*B). The result is anchored at the origin.
func Gray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok && g.Rect.Min == (image.Point{}) {
		return g
	}

	rgba := effect.GrayscaleWithWeights(img, 0.299, 0.587, 0.114)
	b := rgba.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		src := rgba.Pix[y*rgba.Stride:]
		dst := out.Pix[y*out.Stride:]
		for x := 0; x < b.Dx(); x++ {
			dst[x] = src[x*4]
		}
	}
	return out
}

// AdaptiveThreshold binarises img against a Gaussian-weighted local mean.
//
// A pixel becomes white (255) when its luminance exceeds the mean of its
// blockSize x blockSize neighbourhood minus c, and black otherwise. blockSize
// must be odd and at least 3. Lighting gradients across a photographed page
// drop out because every pixel is compared against its own surroundings.
func AdaptiveThreshold(img image.Image, blockSize int, c float64) (*image.Gray, error) {
	if blockSize < 3 || blockSize%2 == 0 {
		return nil, fmt.Errorf("invalid block size %d: must be odd and >= 3", blockSize)
	}

	gray := Gray(img)
	w, h := gray.Rect.Dx(), gray.Rect.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	if w == 0 || h == 0 {
		return out, nil
	}

	// bild builds a kernel of length 2*radius+1.
	mean := blur.Gaussian(gray, float64(blockSize-1)/2)

	for y := 0; y < h; y++ {
		src := gray.Pix[y*gray.Stride:]
		avg := mean.Pix[y*mean.Stride:]
		dst := out.Pix[y*out.Stride:]
		for x := 0; x < w; x++ {
			if float64(src[x]) > float64(avg[x*4])-c {
				dst[x] = 255
			}
		}
	}
	return out, nil
}
