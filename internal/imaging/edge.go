package imaging

import (
	"fmt"
	"image"
	"math"
)

// EdgeDetectResult contains an edge-detected image encoded as base64 PNG.
//
// The result is a grayscale image where white pixels (255) represent detected
// edges and black pixels (0) represent non-edges.
type EdgeDetectResult struct {
	// Width of the output image in pixels (same as input).
	Width int `json:"width"`

	// Height of the output image in pixels (same as input).
	Height int `json:"height"`

	// EdgePixels is the number of pixels marked as edges.
	EdgePixels int `json:"edge_pixels"`

	// ImageBase64 is the edge image encoded as base64 PNG.
	ImageBase64 string `json:"image_base64"`

	// MimeType is always "image/png" for edge detection results.
	MimeType string `json:"mime_type"`
}

// EdgeDetect runs Canny and encodes the edge map for transport.
func EdgeDetect(img image.Image, thresholdLow, thresholdHigh, aperture int) (*EdgeDetectResult, error) {
	edges, err := Canny(img, thresholdLow, thresholdHigh, aperture)
	if err != nil {
		return nil, err
	}

	encoded, err := EncodePNG(edges)
	if err != nil {
		return nil, fmt.Errorf("failed to encode edge image: %w", err)
	}

	count := 0
	for _, v := range edges.Pix {
		if v == 255 {
			count++
		}
	}

	return &EdgeDetectResult{
		Width:       edges.Rect.Dx(),
		Height:      edges.Rect.Dy(),
		EdgePixels:  count,
		ImageBase64: encoded,
		MimeType:    "image/png",
	}, nil
}

// Canny performs Canny edge detection and returns a binary edge map with the
// same dimensions as img, anchored at the origin.
//
// Thresholds apply to the L1 gradient magnitude |Gx|+|Gy| of the 8-bit
// luminance, so the usual photograph settings (100, 200) carry over from other
// toolkits unchanged. aperture selects the Sobel kernel size and must be 3
// or 5. No smoothing is applied before the gradient.
//
// # Algorithm
//
//  1. Grayscale conversion (see Gray)
//  2. Sobel gradients with the requested aperture
//  3. Non-maximum suppression along the quantised gradient direction
//  4. Hysteresis: pixels above thresholdHigh seed edges, pixels above
//     thresholdLow are kept when 8-connected to a seed
func Canny(img image.Image, thresholdLow, thresholdHigh, aperture int) (*image.Gray, error) {
	kx, ky, err := sobelKernels(aperture)
	if err != nil {
		return nil, err
	}
	if thresholdLow > thresholdHigh {
		thresholdLow, thresholdHigh = thresholdHigh, thresholdLow
	}

	gray := Gray(img)
	width, height := gray.Rect.Dx(), gray.Rect.Dy()
	out := image.NewGray(image.Rect(0, 0, width, height))
	if width < 3 || height < 3 {
		return out, nil
	}

	r := aperture / 2
	magnitude := make([]float64, width*height)
	gradX := make([]float64, width*height)
	gradY := make([]float64, width*height)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var gx, gy float64
			for j := -r; j <= r; j++ {
				py := clamp(y+j, 0, height-1)
				row := gray.Pix[py*gray.Stride:]
				for i := -r; i <= r; i++ {
					px := clamp(x+i, 0, width-1)
					v := float64(row[px])
					gx += v * kx[j+r][i+r]
					gy += v * ky[j+r][i+r]
				}
			}
			idx := y*width + x
			gradX[idx], gradY[idx] = gx, gy
			magnitude[idx] = math.Abs(gx) + math.Abs(gy)
		}
	}

	// Non-maximum suppression. The strict/non-strict comparison pair keeps
	// exactly one pixel of a plateau.
	const (
		none = iota
		weak
		strong
	)
	class := make([]uint8, width*height)
	low, high := float64(thresholdLow), float64(thresholdHigh)
	var stack []int

	for y := 1; y < height-1; y++ {
		for x := 1; x < width-1; x++ {
			idx := y*width + x
			mag := magnitude[idx]
			if mag <= low {
				continue
			}

			var n1, n2 float64
			switch direction(gradX[idx], gradY[idx]) {
			case 0:
				n1, n2 = magnitude[idx-1], magnitude[idx+1]
			case 45:
				n1, n2 = magnitude[idx-width+1], magnitude[idx+width-1]
			case 90:
				n1, n2 = magnitude[idx-width], magnitude[idx+width]
			default:
				n1, n2 = magnitude[idx-width-1], magnitude[idx+width+1]
			}
			if !(mag > n1 && mag >= n2) {
				continue
			}

			if mag > high {
				class[idx] = strong
				stack = append(stack, idx)
			} else {
				class[idx] = weak
			}
		}
	}

	// Hysteresis: grow strong edges through connected weak pixels.
	for len(stack) > 0 {
		idx := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		out.Pix[(idx/width)*out.Stride+idx%width] = 255

		x, y := idx%width, idx/width
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				nx, ny := x+dx, y+dy
				if nx < 0 || ny < 0 || nx >= width || ny >= height {
					continue
				}
				n := ny*width + nx
				if class[n] == weak {
					class[n] = strong
					stack = append(stack, n)
				}
			}
		}
	}

	return out, nil
}

// direction quantises a gradient into 0, 45, 90 or 135 degrees. Image Y grows
// downward, so 45 compares the upper-right and lower-left neighbours.
func direction(gx, gy float64) int {
	angle := math.Atan2(-gy, gx) * 180 / math.Pi
	if angle < 0 {
		angle += 180
	}
	switch {
	case angle < 22.5 || angle >= 157.5:
		return 0
	case angle < 67.5:
		return 45
	case angle < 112.5:
		return 90
	default:
		return 135
	}
}

func sobelKernels(aperture int) (kx, ky [][]float64, err error) {
	switch aperture {
	case 3:
		kx = [][]float64{
			{-1, 0, 1},
			{-2, 0, 2},
			{-1, 0, 1},
		}
	case 5:
		kx = [][]float64{
			{-1, -2, 0, 2, 1},
			{-4, -8, 0, 8, 4},
			{-6, -12, 0, 12, 6},
			{-4, -8, 0, 8, 4},
			{-1, -2, 0, 2, 1},
		}
	default:
		return nil, nil, fmt.Errorf("unsupported aperture %d: must be 3 or 5", aperture)
	}

	// ky is the transpose of kx.
	n := len(kx)
	ky = make([][]float64, n)
	for j := range ky {
		ky[j] = make([]float64, n)
		for i := range ky[j] {
			ky[j][i] = kx[i][j]
		}
	}
	return kx, ky, nil
}

// clamp constrains an integer value to the range [min, max].
// Used for boundary handling in convolution operations.
func clamp(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
