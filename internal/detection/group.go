package detection

import (
	"github.com/ironsheep/docscan-mcp/internal/contour"
	"github.com/ironsheep/docscan-mcp/internal/geometry"
)

// MinGroupLength is the shortest first-child chain that can be a marker.
// A printed marker of nested squares renders as a tall tower in the contour
// tree; text and background clutter rarely nest this deep.
const MinGroupLength = 5

// Group is a chain of contours found by following first-child links from a
// root contour.
type Group struct {
	// Root is the forest index the chain started from.
	Root int `json:"root"`

	// Indices are the forest indices of the chain, outermost first.
	Indices []int `json:"indices"`

	// Contours are the contours at Indices.
	Contours []geometry.Contour `json:"-"`
}

// Len returns the number of contours in the group.
func (g Group) Len() int {
	return len(g.Contours)
}

// GroupHierarchy partitions the forest into first-child chains and returns
// those at least MinGroupLength long, in order of their root index. Every
// contour is visited once.
func GroupHierarchy(forest contour.Forest) []Group {
	n := forest.Len()
	visited := make([]bool, n)
	groups := make([]Group, 0)

	for i := 0; i < n; i++ {
		if visited[i] {
			continue
		}
		visited[i] = true
		g := Group{Root: i, Indices: []int{i}, Contours: []geometry.Contour{forest.Contours[i]}}

		for k := forest.FirstChild(i); k != contour.None; k = forest.FirstChild(k) {
			// malformed input could link back into the chain
			if k < 0 || k >= n || visited[k] {
				break
			}
			visited[k] = true
			g.Indices = append(g.Indices, k)
			g.Contours = append(g.Contours, forest.Contours[k])
		}

		if g.Len() >= MinGroupLength {
			groups = append(groups, g)
		}
	}
	return groups
}
