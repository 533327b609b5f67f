// Package contour extracts polygon boundaries, together with their nesting
// hierarchy, from binary images.
//
// Extraction follows the Suzuki-Abe border following algorithm and reports
// both outer borders and hole borders, so a ring drawn on paper yields two
// contours (outside edge, then inside edge) linked parent to child. Runs of
// collinear boundary pixels are compressed to their end points, which is the
// behaviour commonly called "simple chain approximation".
package contour

import (
	"image"

	"github.com/ironsheep/docscan-mcp/internal/geometry"
)

// None marks a missing hierarchy link.
const None = -1

// Link holds the hierarchy relations of one contour. Indices refer to
// Forest.Contours.
type Link struct {
	Next       int `json:"next"`
	Prev       int `json:"prev"`
	FirstChild int `json:"first_child"`
	Parent     int `json:"parent"`
}

// Forest is every contour found in one image plus its hierarchy. Contours
// and Hierarchy are index-aligned.
type Forest struct {
	Contours  []geometry.Contour `json:"contours"`
	Hierarchy []Link             `json:"hierarchy"`
}

// Len returns the number of contours in the forest.
func (f Forest) Len() int {
	return len(f.Contours)
}

// FirstChild returns the index of the first child of contour i, or None.
func (f Forest) FirstChild(i int) int {
	if i < 0 || i >= len(f.Hierarchy) {
		return None
	}
	return f.Hierarchy[i].FirstChild
}

// Map returns a forest with fn applied to every contour and the hierarchy
// unchanged.
func (f Forest) Map(fn func(geometry.Contour) geometry.Contour) Forest {
	out := Forest{
		Contours:  make([]geometry.Contour, len(f.Contours)),
		Hierarchy: append([]Link(nil), f.Hierarchy...),
	}
	for i, c := range f.Contours {
		out.Contours[i] = fn(c)
	}
	return out
}

// 8-neighbourhood in counter-clockwise order as seen on screen (row index
// grows downward): E, NE, N, NW, W, SW, S, SE.
var (
	dRow = [8]int{0, -1, -1, -1, 0, 1, 1, 1}
	dCol = [8]int{1, 1, 0, -1, -1, -1, 0, 1}
)

func direction(fromRow, fromCol, toRow, toCol int) int {
	dr, dc := toRow-fromRow, toCol-fromCol
	for k := 0; k < 8; k++ {
		if dRow[k] == dr && dCol[k] == dc {
			return k
		}
	}
	return 0
}

type border struct {
	hole   bool
	parent int // border number, 1 is the frame
	points []geometry.Point
}

// Extract traces every border in img. Any pixel with a non-zero gray value
// is foreground. Contours are returned in raster discovery order, which is
// deterministic for a given image.
func Extract(img *image.Gray) Forest {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	// one pixel of zero padding avoids bounds checks while following
	stride := w + 2
	f := make([]int, (w+2)*(h+2))
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w]
		for x, v := range row {
			if v != 0 {
				f[(y+1)*stride+x+1] = 1
			}
		}
	}
	at := func(r, c int) *int { return &f[r*stride+c] }

	// borders[0] is unused, borders[1] is the frame (treated as a hole)
	borders := []border{{}, {hole: true, parent: 0}}
	nbd := 1

	for i := 1; i <= h; i++ {
		lnbd := 1
		for j := 1; j <= w; j++ {
			v := *at(i, j)
			if v == 0 {
				continue
			}

			var fromRow, fromCol int
			var hole bool
			switch {
			case v == 1 && *at(i, j-1) == 0:
				fromRow, fromCol = i, j-1
			case v >= 1 && *at(i, j+1) == 0:
				fromRow, fromCol = i, j+1
				hole = true
				if v > 1 {
					lnbd = v
				}
			default:
				if v != 1 {
					lnbd = abs(v)
				}
				continue
			}

			nbd++
			prev := borders[lnbd]
			parent := lnbd
			if hole == prev.hole {
				parent = prev.parent
			}
			pts := follow(at, i, j, fromRow, fromCol, nbd)
			borders = append(borders, border{hole: hole, parent: parent, points: pts})

			if v := *at(i, j); v != 1 {
				lnbd = abs(v)
			}
		}
	}

	return buildForest(borders)
}

// follow walks one border starting at (i, j) with (fromRow, fromCol) the
// zero pixel that triggered it, labelling pixels with nbd.
func follow(at func(r, c int) *int, i, j, fromRow, fromCol, nbd int) []geometry.Point {
	pt := func(r, c int) geometry.Point {
		return geometry.Pt(float64(c-1), float64(r-1))
	}

	// clockwise search for the first non-zero neighbour
	start := direction(i, j, fromRow, fromCol)
	i1, j1 := -1, -1
	for k := 0; k < 8; k++ {
		d := (start - k + 8) % 8
		if *at(i+dRow[d], j+dCol[d]) != 0 {
			i1, j1 = i+dRow[d], j+dCol[d]
			break
		}
	}
	if i1 < 0 {
		*at(i, j) = -nbd
		return []geometry.Point{pt(i, j)}
	}

	var chain []geometry.Point
	i2, j2 := i1, j1
	i3, j3 := i, j
	for {
		chain = append(chain, pt(i3, j3))

		// counter-clockwise search starting after the previous pixel
		d0 := direction(i3, j3, i2, j2)
		eastZero := false
		i4, j4 := i3, j3
		for k := 1; k <= 8; k++ {
			d := (d0 + k) % 8
			r, c := i3+dRow[d], j3+dCol[d]
			if *at(r, c) != 0 {
				i4, j4 = r, c
				break
			}
			if d == 0 {
				eastZero = true
			}
		}

		switch {
		case eastZero:
			*at(i3, j3) = -nbd
		case *at(i3, j3) == 1:
			*at(i3, j3) = nbd
		}

		if i4 == i && j4 == j && i3 == i1 && j3 == j1 {
			break
		}
		i2, j2 = i3, j3
		i3, j3 = i4, j4
	}

	return compress(chain)
}

// compress keeps only the points where the chain changes direction.
func compress(chain []geometry.Point) []geometry.Point {
	n := len(chain)
	if n < 3 {
		return chain
	}
	out := make([]geometry.Point, 0, 8)
	for k := 0; k < n; k++ {
		prev := chain[(k+n-1)%n]
		cur := chain[k]
		next := chain[(k+1)%n]
		d1 := cur.Sub(prev)
		d2 := next.Sub(cur)
		if d1 != d2 {
			out = append(out, cur)
		}
	}
	if len(out) == 0 {
		return chain[:1]
	}
	return out
}

// buildForest converts border records into index-aligned contours and
// hierarchy links. Border number k maps to contour index k-2.
func buildForest(borders []border) Forest {
	n := len(borders) - 2
	forest := Forest{
		Contours:  make([]geometry.Contour, n),
		Hierarchy: make([]Link, n),
	}
	lastChild := make(map[int]int)
	for k := 0; k < n; k++ {
		forest.Hierarchy[k] = Link{Next: None, Prev: None, FirstChild: None, Parent: None}
	}
	for k := 0; k < n; k++ {
		bd := borders[k+2]
		forest.Contours[k] = geometry.Contour(bd.points)

		parent := None
		if bd.parent >= 2 {
			parent = bd.parent - 2
		}
		forest.Hierarchy[k].Parent = parent

		if last, ok := lastChild[parent]; ok {
			forest.Hierarchy[last].Next = k
			forest.Hierarchy[k].Prev = last
		} else if parent != None {
			forest.Hierarchy[parent].FirstChild = k
		}
		lastChild[parent] = k
	}
	return forest
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
