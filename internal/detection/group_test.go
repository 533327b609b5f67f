package detection

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/docscan-mcp/internal/contour"
	"github.com/ironsheep/docscan-mcp/internal/geometry"
)

func TestGroupHierarchy_SingleTower(t *testing.T) {
	forest := chainForest(nestedSquares(100, 100, 6))

	groups := GroupHierarchy(forest)
	require.Len(t, groups, 1)
	assert.Equal(t, 0, groups[0].Root)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, groups[0].Indices)
	assert.Equal(t, 6, groups[0].Len())

	fp, err := NewFocusPoint(groups[0], testClassifier, 0)
	require.NoError(t, err)
	assert.Equal(t, 5, fp.Depth)
	assert.Equal(t, 4, fp.Shape)
	assert.InDelta(t, 100.0, fp.Center.X, 1e-9)
	assert.InDelta(t, 100.0, fp.Center.Y, 1e-9)
}

func TestGroupHierarchy_ShortChainsDropped(t *testing.T) {
	forest := chainForest(
		nestedSquares(10, 10, 4),
		nestedSquares(200, 10, 5),
		nestedSquares(10, 200, 1),
	)

	groups := GroupHierarchy(forest)
	require.Len(t, groups, 1)
	assert.Equal(t, 4, groups[0].Root)
	assert.Equal(t, 5, groups[0].Len())
}

func TestGroupHierarchy_Empty(t *testing.T) {
	assert.Empty(t, GroupHierarchy(contour.Forest{}))
}

func TestGroupHierarchy_CycleTerminates(t *testing.T) {
	forest := chainForest(nestedSquares(50, 50, 6))
	// point the innermost contour back at the root
	forest.Hierarchy[5].FirstChild = 0

	groups := GroupHierarchy(forest)
	require.Len(t, groups, 1)
	assert.Equal(t, 6, groups[0].Len())
}

func TestGroupHierarchy_Partition(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for trial := 0; trial < 50; trial++ {
		n := 5 + rng.Intn(60)
		forest := contour.Forest{
			Contours:  make([]geometry.Contour, n),
			Hierarchy: make([]contour.Link, n),
		}
		for i := 0; i < n; i++ {
			forest.Contours[i] = squareAround(float64(i), 0, 1)
			forest.Hierarchy[i] = contour.Link{Next: contour.None, Prev: contour.None, FirstChild: contour.None, Parent: contour.None}
		}
		// random tree: each node may adopt a later node as first child
		for i := 0; i < n-1; i++ {
			if rng.Intn(4) > 0 {
				child := i + 1 + rng.Intn(n-i-1)
				if forest.Hierarchy[child].Parent == contour.None {
					forest.Hierarchy[i].FirstChild = child
					forest.Hierarchy[child].Parent = i
				}
			}
		}

		groups := GroupHierarchy(forest)
		seen := make(map[int]bool)
		lastRoot := -1
		for _, g := range groups {
			assert.GreaterOrEqual(t, g.Len(), MinGroupLength)
			assert.Greater(t, g.Root, lastRoot, "roots must be increasing")
			lastRoot = g.Root
			for _, idx := range g.Indices {
				assert.False(t, seen[idx], "index %d in two groups", idx)
				seen[idx] = true
			}
		}
	}
}
