package geometry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func square(x, y, side float64) Contour {
	return Contour{Pt(x, y), Pt(x+side, y), Pt(x+side, y+side), Pt(x, y+side)}
}

func TestDistance(t *testing.T) {
	assert.InDelta(t, 5.0, Distance(Pt(0, 0), Pt(3, 4)), 1e-9)
	assert.Equal(t, 0.0, Distance(Pt(7, 7), Pt(7, 7)))
}

func TestAngle(t *testing.T) {
	tests := []struct {
		name      string
		origin    Point
		a, b      Point
		want      float64
		wantValid bool
	}{
		{"right angle", Pt(0, 0), Pt(10, 0), Pt(0, 10), 90, true},
		{"straight", Pt(0, 0), Pt(-1, 0), Pt(1, 0), 180, true},
		{"same ray", Pt(0, 0), Pt(2, 2), Pt(5, 5), 0, true},
		{"45 degrees", Pt(1, 1), Pt(2, 1), Pt(2, 2), 45, true},
		{"degenerate first ray", Pt(3, 3), Pt(3, 3), Pt(4, 4), 0, false},
		{"degenerate second ray", Pt(3, 3), Pt(4, 4), Pt(3, 3), 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Angle(tt.origin, tt.a, tt.b)
			assert.Equal(t, tt.wantValid, ok)
			if ok {
				assert.InDelta(t, tt.want, got, 1e-9)
			}
		})
	}
}

func TestBearing(t *testing.T) {
	c := Pt(50, 50)
	assert.InDelta(t, 0.0, Bearing(c, Pt(60, 50)), 1e-9)
	assert.InDelta(t, 90.0, Bearing(c, Pt(50, 60)), 1e-9) // down in image space
	assert.InDelta(t, -90.0, Bearing(c, Pt(50, 40)), 1e-9)
	assert.InDelta(t, -135.0, Bearing(c, Pt(40, 40)), 1e-9)
}

func TestCentroid(t *testing.T) {
	got, err := Centroid([]Point{Pt(0, 0), Pt(4, 0), Pt(4, 2), Pt(0, 2)})
	require.NoError(t, err)
	assert.Equal(t, Pt(2, 1), got)

	_, err = Centroid(nil)
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestCentroid_InsideHull(t *testing.T) {
	sets := [][]Point{
		{Pt(1, 1)},
		{Pt(0, 0), Pt(10, 0)},
		{Pt(0, 0), Pt(10, 0), Pt(0, 10)},
		{Pt(-5, 3), Pt(7, -2), Pt(12, 9), Pt(1, 14), Pt(2, 2), Pt(3, 3)},
	}
	for _, pts := range sets {
		c, err := Centroid(pts)
		require.NoError(t, err)

		minX, maxX := math.Inf(1), math.Inf(-1)
		minY, maxY := math.Inf(1), math.Inf(-1)
		for _, p := range pts {
			minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
			minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
		}
		assert.True(t, c.X >= minX && c.X <= maxX && c.Y >= minY && c.Y <= maxY,
			"centroid %v outside bounds of %v", c, pts)
	}

	hull := Contour{Pt(-5, 3), Pt(7, -2), Pt(12, 9), Pt(1, 14)}
	c, err := Centroid(sets[3])
	require.NoError(t, err)
	assert.True(t, Contains(hull, c))
}

func TestCentroidOf(t *testing.T) {
	got, err := CentroidOf([]Contour{square(0, 0, 10), square(2, 2, 6)})
	require.NoError(t, err)
	assert.InDelta(t, 5.0, got.X, 1e-9)
	assert.InDelta(t, 5.0, got.Y, 1e-9)

	_, err = CentroidOf([]Contour{{}, {}})
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestRotate(t *testing.T) {
	c := Contour{Pt(0, 0), Pt(1, 0), Pt(1, 1), Pt(0, 1)}

	assert.Equal(t, c, Contour(Rotate(c, 0)))
	assert.Equal(t, Contour{Pt(1, 0), Pt(1, 1), Pt(0, 1), Pt(0, 0)}, Contour(Rotate(c, 1)))
	assert.Equal(t, Contour(Rotate(c, 1)), Contour(Rotate(c, 5)))
	assert.Equal(t, Contour(Rotate(c, 3)), Contour(Rotate(c, -1)))
	assert.Empty(t, Rotate(Contour{}, 3))

	// input must not be modified
	assert.Equal(t, Pt(0, 0), c[0])
}

func TestRotate_RoundTrip(t *testing.T) {
	c := Contour{Pt(0, 0), Pt(3, 0), Pt(4, 2), Pt(2, 5), Pt(-1, 3)}
	for n := 0; n <= len(c); n++ {
		back := Rotate(Rotate(c, n), len(c)-n)
		assert.Equal(t, c, Contour(back), "n=%d", n)
	}
}

func TestIsConvex(t *testing.T) {
	tests := []struct {
		name string
		c    Contour
		want bool
	}{
		{"square clockwise", square(0, 0, 10), true},
		{"square counter-clockwise", Contour{Pt(0, 0), Pt(0, 10), Pt(10, 10), Pt(10, 0)}, true},
		{"triangle", Contour{Pt(0, 0), Pt(10, 0), Pt(5, 8)}, true},
		{"dart", Contour{Pt(0, 0), Pt(10, 5), Pt(0, 10), Pt(3, 5)}, false},
		{"bow tie", Contour{Pt(0, 0), Pt(10, 10), Pt(10, 0), Pt(0, 10)}, false},
		{"collinear", Contour{Pt(0, 0), Pt(5, 0), Pt(10, 0)}, false},
		{"too few points", Contour{Pt(0, 0), Pt(1, 1)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsConvex(tt.c))
		})
	}
}

func TestArea(t *testing.T) {
	assert.InDelta(t, 100.0, Area(square(3, 4, 10)), 1e-9)
	assert.InDelta(t, 100.0, Area(Contour{Pt(0, 0), Pt(0, 10), Pt(10, 10), Pt(10, 0)}), 1e-9)
	assert.Equal(t, 0.0, Area(Contour{Pt(0, 0), Pt(1, 1)}))
}

func TestContains(t *testing.T) {
	sq := square(0, 0, 10)
	assert.True(t, Contains(sq, Pt(5, 5)))
	assert.True(t, Contains(sq, Pt(0, 5)), "boundary counts as inside")
	assert.True(t, Contains(sq, Pt(10, 10)), "vertex counts as inside")
	assert.False(t, Contains(sq, Pt(11, 5)))
	assert.False(t, Contains(sq, Pt(-1, -1)))
	assert.False(t, Contains(Contour{Pt(0, 0), Pt(1, 1)}, Pt(0, 0)))
}

func TestInteriorAnglesAndEdges(t *testing.T) {
	angles, ok := InteriorAngles(square(0, 0, 4))
	require.True(t, ok)
	for _, a := range angles {
		assert.InDelta(t, 90.0, a, 1e-9)
	}
	assert.Equal(t, []float64{4, 4, 4, 4}, EdgeLengths(square(0, 0, 4)))

	_, ok = InteriorAngles(Contour{Pt(0, 0), Pt(0, 0), Pt(1, 1)})
	assert.False(t, ok)
}
