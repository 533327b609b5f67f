package imaging

import (
	"fmt"
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
)

// DefaultOverlayColor is the colour used to outline detected documents.
const DefaultOverlayColor = "#ff0000"

// ParseColor parses a "#rrggbb" colour string into an opaque colour.
func ParseColor(hex string) (color.NRGBA, error) {
	c, err := colorful.Hex(hex)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid colour %q: %w", hex, err)
	}
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}, nil
}
