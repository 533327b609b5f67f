package vision

import (
	"context"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/docscan-mcp/internal/geometry"
	"github.com/ironsheep/docscan-mcp/internal/rectify"
)

var _ rectify.Vision = Native{}

func fill(img *image.RGBA, r image.Rectangle, c color.Color) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.Set(x, y, c)
		}
	}
}

func canvas(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	fill(img, img.Rect, c)
	return img
}

func square(cx, cy, half int) image.Rectangle {
	return image.Rect(cx-half, cy-half, cx+half, cy+half)
}

// drawMarker prints three black bands 6px wide around a 20px white centre.
func drawMarker(img *image.RGBA, cx, cy int) {
	for k := 0; k < 3; k++ {
		half := 40 - 12*k
		fill(img, square(cx, cy, half), color.Black)
		fill(img, square(cx, cy, half-6), color.White)
	}
}

func TestNative_Primitives(t *testing.T) {
	var n Native
	sq := geometry.Contour{geometry.Pt(0, 0), geometry.Pt(10, 0), geometry.Pt(10, 10), geometry.Pt(0, 10)}

	assert.True(t, n.IsConvex(sq))
	assert.InDelta(t, 100, n.Area(sq), 1e-9)
	assert.True(t, n.Contains(sq, geometry.Pt(5, 5)))
	assert.True(t, n.Contains(sq, geometry.Pt(10, 5)))
	assert.False(t, n.Contains(sq, geometry.Pt(11, 5)))

	dense := geometry.Contour{
		geometry.Pt(0, 0), geometry.Pt(5, 0), geometry.Pt(10, 0), geometry.Pt(10, 5),
		geometry.Pt(10, 10), geometry.Pt(5, 10), geometry.Pt(0, 10), geometry.Pt(0, 5),
	}
	assert.Len(t, n.Approximate(dense, 1), 4)
}

func TestNative_FilledSquareBecomesRectangle(t *testing.T) {
	var n Native
	img := canvas(100, 100, color.White)
	fill(img, image.Rect(30, 30, 70, 70), color.Black)

	edges, err := n.DetectEdges(img, 100, 200, 3)
	require.NoError(t, err)

	forest, err := n.ExtractContours(edges)
	require.NoError(t, err)
	require.GreaterOrEqual(t, forest.Len(), 1)

	outer := n.Approximate(forest.Contours[0], 5)
	cl := rectify.DefaultConfig().Classifier(n)
	assert.True(t, cl.IsRectangle(outer), "got %v", outer)
	assert.InDelta(t, 41*41, n.Area(outer), 200)
}

func TestNative_ThresholdAndWarp(t *testing.T) {
	var n Native
	img := canvas(40, 30, color.White)

	bin, err := n.AdaptiveThreshold(img, 11, 2)
	require.NoError(t, err)
	assert.Equal(t, uint8(255), bin.GrayAt(20, 15).Y)

	quad := [4]geometry.Point{geometry.Pt(0, 0), geometry.Pt(39, 0), geometry.Pt(39, 29), geometry.Pt(0, 29)}
	out, err := n.Warp(img, quad, quad, image.Pt(40, 30))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 40, 30), out.Bounds())
}

func TestNative_RectifiesMarkedPage(t *testing.T) {
	img := canvas(700, 900, color.White)
	for _, c := range []image.Point{{100, 100}, {600, 100}, {600, 800}, {100, 800}} {
		drawMarker(img, c.X, c.Y)
	}

	p, err := rectify.New(Native{}, rectify.DefaultConfig(), nil, nil)
	require.NoError(t, err)

	res := p.Rectify(context.Background(), img)
	require.True(t, res.OK(), "err: %v", res.Err)
	assert.Equal(t, rectify.TierFiducial, res.Tier)
	assert.Equal(t, 4, res.FocusPoints)

	require.Len(t, res.Corners, 4)
	assert.InDelta(t, 100, res.Corners[0].X, 1.5)
	assert.InDelta(t, 100, res.Corners[0].Y, 1.5)
	assert.InDelta(t, 600, res.Corners[2].X, 1.5)
	assert.InDelta(t, 800, res.Corners[2].Y, 1.5)
	assert.InDelta(t, 500, res.Plan.Width, 2)
	assert.InDelta(t, 700, res.Plan.Height, 2)
}

func TestNative_FallsBackToPageOutline(t *testing.T) {
	img := canvas(400, 480, color.Gray{Y: 40})
	fill(img, image.Rect(60, 40, 340, 440), color.White)

	p, err := rectify.New(Native{}, rectify.DefaultConfig(), nil, nil)
	require.NoError(t, err)

	d := p.Detect(context.Background(), img)
	require.NoError(t, d.Err)
	assert.Equal(t, rectify.TierFallback, d.Tier)
	assert.Empty(t, d.FocusPoints)

	res := p.Rectify(context.Background(), img)
	require.True(t, res.OK(), "err: %v", res.Err)
	assert.Equal(t, rectify.TierFallback, res.Tier)
	assert.InDelta(t, 280, res.Plan.Width, 3)
	assert.InDelta(t, 400, res.Plan.Height, 3)
}

func TestNew(t *testing.T) {
	v, err := New("")
	require.NoError(t, err)
	assert.IsType(t, Native{}, v)

	v, err = New(NativeName)
	require.NoError(t, err)
	assert.IsType(t, Native{}, v)

	_, err = New("imagemagick")
	assert.ErrorContains(t, err, "unknown vision backend")

	assert.Contains(t, Available(), NativeName)
}
