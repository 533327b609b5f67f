package rectify

import (
	"errors"
	"fmt"

	"github.com/ironsheep/docscan-mcp/internal/detection"
	"github.com/ironsheep/docscan-mcp/internal/imaging"
)

// ErrInvalidConfig is returned by Config.Validate.
var ErrInvalidConfig = errors.New("rectify: invalid configuration")

// Config holds every tunable of the pipeline. It is a plain value: the With
// methods return modified copies, so a Config shared between runs can never
// change under a running pipeline.
type Config struct {
	// AngleTolerance is the allowed deviation from 90 degrees, in degrees.
	AngleTolerance float64 `json:"angle_tolerance"`

	// LengthTolerance is the allowed deviation of an edge from the mean edge
	// length of a regular shape, in pixels.
	LengthTolerance float64 `json:"length_tolerance"`

	// PolyTolerance is the polygon approximation tolerance, in pixels.
	PolyTolerance float64 `json:"poly_tolerance"`

	// InnerBorderWindow is how many contours from the innermost end of a
	// marker are searched for its inner border.
	InnerBorderWindow int `json:"inner_border_window"`

	EdgeLow      int `json:"edge_low"`
	EdgeHigh     int `json:"edge_high"`
	EdgeAperture int `json:"edge_aperture"`

	// ThresholdBlockSize is the adaptive threshold window; odd and >= 3.
	ThresholdBlockSize int `json:"threshold_block_size"`

	// ThresholdConstant is subtracted from the local mean.
	ThresholdConstant float64 `json:"threshold_constant"`

	// AspectRatio is the expected page width / height. It steers which
	// corner of a fallback rectangle becomes the reference: values below 1
	// put a short side on top, anything else a long side. Marker pages are
	// oriented by their deepest marker and ignore it.
	AspectRatio float64 `json:"aspect_ratio"`

	// CropRatio is the margin removed from every side of the warped page,
	// as a fraction of its width.
	CropRatio float64 `json:"crop_ratio"`

	OverlayColor     string `json:"overlay_color"`
	OverlayThickness int    `json:"overlay_thickness"`

	// FallbackRetries bounds how many smaller rectangles are tried after the
	// largest fallback candidate fails to rectify.
	FallbackRetries int `json:"fallback_retries"`
}

// DefaultConfig returns the tuning used for letter-size pages.
func DefaultConfig() Config {
	return Config{
		AngleTolerance:     10,
		LengthTolerance:    5,
		PolyTolerance:      5,
		InnerBorderWindow:  detection.DefaultInnerBorderWindow,
		EdgeLow:            100,
		EdgeHigh:           200,
		EdgeAperture:       3,
		ThresholdBlockSize: 11,
		ThresholdConstant:  2,
		AspectRatio:        8.5 / 11,
		CropRatio:          0.04,
		OverlayColor:       imaging.DefaultOverlayColor,
		OverlayThickness:   1,
		FallbackRetries:    1,
	}
}

// Validate reports the first setting that cannot work.
func (c Config) Validate() error {
	switch {
	case c.AngleTolerance < 0 || c.AngleTolerance >= 90:
		return fmt.Errorf("%w: angle tolerance %v outside [0, 90)", ErrInvalidConfig, c.AngleTolerance)
	case c.LengthTolerance < 0:
		return fmt.Errorf("%w: negative length tolerance %v", ErrInvalidConfig, c.LengthTolerance)
	case c.PolyTolerance < 0:
		return fmt.Errorf("%w: negative polygon tolerance %v", ErrInvalidConfig, c.PolyTolerance)
	case c.InnerBorderWindow < 1:
		return fmt.Errorf("%w: inner border window %d must be positive", ErrInvalidConfig, c.InnerBorderWindow)
	case c.EdgeLow < 0 || c.EdgeHigh < c.EdgeLow:
		return fmt.Errorf("%w: edge thresholds %d/%d", ErrInvalidConfig, c.EdgeLow, c.EdgeHigh)
	case c.EdgeAperture != 3 && c.EdgeAperture != 5:
		return fmt.Errorf("%w: edge aperture %d must be 3 or 5", ErrInvalidConfig, c.EdgeAperture)
	case c.ThresholdBlockSize < 3 || c.ThresholdBlockSize%2 == 0:
		return fmt.Errorf("%w: threshold block size %d must be odd and >= 3", ErrInvalidConfig, c.ThresholdBlockSize)
	case c.AspectRatio < 0:
		return fmt.Errorf("%w: negative aspect ratio %v", ErrInvalidConfig, c.AspectRatio)
	case c.CropRatio < 0 || c.CropRatio >= 0.5:
		return fmt.Errorf("%w: crop ratio %v outside [0, 0.5)", ErrInvalidConfig, c.CropRatio)
	case c.OverlayThickness < 1:
		return fmt.Errorf("%w: overlay thickness %d must be positive", ErrInvalidConfig, c.OverlayThickness)
	case c.FallbackRetries < 0:
		return fmt.Errorf("%w: negative fallback retries %d", ErrInvalidConfig, c.FallbackRetries)
	}
	if _, err := imaging.ParseColor(c.OverlayColor); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// WithAngleTolerance returns a copy of c with the angle tolerance replaced.
func (c Config) WithAngleTolerance(deg float64) Config {
	c.AngleTolerance = deg
	return c
}

// WithLengthTolerance returns a copy of c with the length tolerance replaced.
func (c Config) WithLengthTolerance(px float64) Config {
	c.LengthTolerance = px
	return c
}

// WithPolyTolerance returns a copy of c with the approximation tolerance
// replaced.
func (c Config) WithPolyTolerance(px float64) Config {
	c.PolyTolerance = px
	return c
}

// WithAspectRatio returns a copy of c with the aspect ratio replaced.
func (c Config) WithAspectRatio(ratio float64) Config {
	c.AspectRatio = ratio
	return c
}

// WithCropRatio returns a copy of c with the crop ratio replaced.
func (c Config) WithCropRatio(ratio float64) Config {
	c.CropRatio = ratio
	return c
}

// Classifier builds the shape classifier for this configuration.
func (c Config) Classifier(convexity detection.ConvexityTester) detection.Classifier {
	return detection.Classifier{
		AngleTolerance:  c.AngleTolerance,
		LengthTolerance: c.LengthTolerance,
		Convexity:       convexity,
	}
}
