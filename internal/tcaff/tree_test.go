package tcaff

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fleetalign/motlee-go/internal/geometry"
)

func TestHypothesisTree_AddChildReplacesParentAsLeaf(t *testing.T) {
	tr := newHypothesisTree()
	root := tr.addRoot(geometry.Identity(), 1)
	require.Equal(t, 1, tr.leafCount())

	child := tr.addChild(root, geometry.Identity(), 0.9, false)
	require.Equal(t, 1, tr.leafCount())
	require.True(t, tr.leaves[child])
	require.False(t, tr.leaves[root])
}

func TestHypothesisTree_PathToReturnsRootFirst(t *testing.T) {
	tr := newHypothesisTree()
	root := tr.addRoot(geometry.NewSE2(1, 0, 0), 1)
	mid := tr.addChild(root, geometry.NewSE2(1, 0, 0), 1, false)
	leaf := tr.addChild(mid, geometry.NewSE2(1, 0, 0), 1, false)

	chain := tr.pathTo(leaf)
	require.Len(t, chain, 3)
	require.Equal(t, root, chain[0].id)
	require.Equal(t, mid, chain[1].id)
	require.Equal(t, leaf, chain[2].id)
}

func TestHypothesisTree_PruneDeepDropsExcessDepthAndCompacts(t *testing.T) {
	tr := newHypothesisTree()
	root := tr.addRoot(geometry.Identity(), 1)
	cur := root
	for i := 0; i < 5; i++ {
		cur = tr.addChild(cur, geometry.Identity(), 1, false)
	}
	require.Equal(t, 6, len(tr.nodes))

	tr.pruneDeep(2, 10)
	require.Equal(t, 0, tr.leafCount())
	require.Empty(t, tr.nodes, "every node on the over-deep chain should be garbage-collected")
}

func TestHypothesisTree_PruneDeepDropsExcessNoMatchStreak(t *testing.T) {
	tr := newHypothesisTree()
	root := tr.addRoot(geometry.Identity(), 1)
	cur := root
	for i := 0; i < 3; i++ {
		cur = tr.addChild(cur, geometry.Identity(), 0, true)
	}
	tr.pruneDeep(100, 2)
	require.Equal(t, 0, tr.leafCount())
}

func TestHypothesisTree_ClearEmptiesTree(t *testing.T) {
	tr := newHypothesisTree()
	tr.addRoot(geometry.Identity(), 1)
	tr.clear()
	require.Zero(t, tr.leafCount())
	require.Empty(t, tr.nodes)
}
