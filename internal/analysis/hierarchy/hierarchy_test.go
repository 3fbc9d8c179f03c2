package hierarchy

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/dendrex/internal/domain"
	"github.com/kailas-cloud/dendrex/internal/domain/matrix"
)

func symmetric(t *testing.T, rows [][]float32) *matrix.Symmetric {
	t.Helper()
	m, err := matrix.FromRows(rows)
	require.NoError(t, err)
	return m
}

func twoBlocks(t *testing.T) *matrix.Symmetric {
	return symmetric(t, [][]float32{
		{1, 0.9, 0, 0},
		{0.9, 1, 0, 0},
		{0, 0, 1, 0.8},
		{0, 0, 0.8, 1},
	})
}

func TestCluster_WardTwoBlocks(t *testing.T) {
	tree, err := Cluster(twoBlocks(t), Ward)
	require.NoError(t, err)

	merges := tree.Merges()
	require.Len(t, merges, 3)

	assert.Equal(t, Merge{Left: 0, Right: 1, Size: 2}, Merge{Left: merges[0].Left, Right: merges[0].Right, Size: merges[0].Size})
	assert.InDelta(t, math.Sqrt(0.02), merges[0].Distance, 1e-5)

	assert.Equal(t, 2, merges[1].Left)
	assert.Equal(t, 3, merges[1].Right)
	assert.InDelta(t, math.Sqrt(0.08), merges[1].Distance, 1e-5)

	// Ward distance between {0,1} and {2,3}: sqrt(2*2*2/4) * |c01 - c23|.
	assert.Equal(t, 4, merges[2].Left)
	assert.Equal(t, 5, merges[2].Right)
	assert.Equal(t, 4, merges[2].Size)
	assert.InDelta(t, math.Sqrt(2)*math.Sqrt(3.425), merges[2].Distance, 1e-4)

	assert.Equal(t, []int{0, 1, 2, 3}, tree.Order())
}

func TestCluster_AverageOnComplement(t *testing.T) {
	sim := symmetric(t, [][]float32{
		{0, 1, 0.5},
		{1, 0, 0.5},
		{0.5, 0.5, 0},
	})

	tree, err := Cluster(sim, Average)
	require.NoError(t, err)

	merges := tree.Merges()
	require.Len(t, merges, 2)
	assert.Equal(t, 0, merges[0].Left)
	assert.Equal(t, 1, merges[0].Right)
	assert.InDelta(t, 0.0, merges[0].Distance, 1e-9)
	assert.Equal(t, 2, merges[1].Left)
	assert.Equal(t, 3, merges[1].Right)
	assert.InDelta(t, 0.5, merges[1].Distance, 1e-6)

	assert.Equal(t, []int{2, 0, 1}, tree.Order())
}

func TestCluster_TiesUseLowestIDs(t *testing.T) {
	sim := symmetric(t, [][]float32{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
	})

	tree, err := Cluster(sim, Ward)
	require.NoError(t, err)

	merges := tree.Merges()
	assert.Equal(t, 0, merges[0].Left)
	assert.Equal(t, 1, merges[0].Right)
	assert.Equal(t, 2, merges[1].Left)
	assert.Equal(t, 3, merges[1].Right)
	assert.InDelta(t, math.Sqrt(2), merges[1].Distance, 1e-6)
	assert.Equal(t, []int{2, 0, 1}, tree.Order())
}

func TestCluster_SingleLeaf(t *testing.T) {
	tree, err := Cluster(symmetric(t, [][]float32{{1}}), Ward)
	require.NoError(t, err)

	assert.Empty(t, tree.Merges())
	assert.Equal(t, []int{0}, tree.Order())

	g := Dendrogram(tree, []string{"only"}, 0)
	assert.Equal(t, []string{"only"}, g.Labels)
	assert.Empty(t, g.ICoord)
	assert.Empty(t, g.Colors)
}

func TestCluster_Empty(t *testing.T) {
	_, err := Cluster(matrix.NewSymmetric(0), Ward)
	assert.ErrorIs(t, err, domain.ErrEmptyCorpus)
}

func TestCluster_NonFinite(t *testing.T) {
	sim := symmetric(t, [][]float32{{1, float32(math.NaN())}, {float32(math.NaN()), 1}})
	_, err := Cluster(sim, Ward)
	assert.ErrorIs(t, err, domain.ErrClustering)
}

func TestCluster_UnknownMethod(t *testing.T) {
	_, err := Cluster(twoBlocks(t), Method("single"))
	assert.ErrorIs(t, err, domain.ErrClustering)
}

func TestCluster_OrderIsPermutationAndDeterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	n := 40
	sim := matrix.NewSymmetric(n)
	for i := 0; i < n; i++ {
		sim.Set(i, i, 1)
		for j := i + 1; j < n; j++ {
			sim.Set(i, j, rng.Float32())
		}
	}

	for _, method := range []Method{Ward, Average} {
		a, err := Cluster(sim, method)
		require.NoError(t, err)
		b, err := Cluster(sim, method)
		require.NoError(t, err)

		require.Len(t, a.Merges(), n-1)
		require.NoError(t, matrix.ValidatePermutation(a.Order(), n))
		assert.Equal(t, a.Merges(), b.Merges(), "method %s", method)
		assert.Equal(t, a.Order(), b.Order(), "method %s", method)

		for i := 1; i < len(a.Merges()); i++ {
			assert.GreaterOrEqual(t, a.Merges()[i].Distance, a.Merges()[i-1].Distance-1e-9,
				"method %s merge %d not monotone", method, i)
		}
		assert.Equal(t, n, a.Merges()[n-2].Size)
	}
}

func TestDendrogram_TwoBlocks(t *testing.T) {
	tree, err := Cluster(twoBlocks(t), Ward)
	require.NoError(t, err)

	g := Dendrogram(tree, nil, 0)

	assert.Equal(t, []int{0, 1, 2, 3}, g.Leaves)
	assert.Equal(t, []string{"0", "1", "2", "3"}, g.Labels)
	assert.Equal(t, [][]float64{
		{5, 5, 15, 15},
		{25, 25, 35, 35},
		{10, 10, 30, 30},
	}, g.ICoord)
	assert.Equal(t, []string{"C1", "C2", "C0"}, g.Colors)

	require.Len(t, g.DCoord, 3)
	root := g.DCoord[2]
	assert.InDelta(t, tree.Merges()[0].Distance, root[0], 1e-12)
	assert.InDelta(t, tree.Merges()[2].Distance, root[1], 1e-12)
	assert.InDelta(t, tree.Merges()[2].Distance, root[2], 1e-12)
	assert.InDelta(t, tree.Merges()[1].Distance, root[3], 1e-12)
	assert.Equal(t, 0.0, g.DCoord[0][0])
}

func TestDendrogram_ExplicitThresholdAboveAll(t *testing.T) {
	tree, err := Cluster(twoBlocks(t), Ward)
	require.NoError(t, err)

	g := Dendrogram(tree, []string{"a", "b", "c", "d"}, 100)

	assert.Equal(t, []string{"C1", "C1", "C1"}, g.Colors)
	assert.Equal(t, []string{"a", "b", "c", "d"}, g.Labels)
}

func TestParseMethod(t *testing.T) {
	m, err := ParseMethod("average")
	require.NoError(t, err)
	assert.Equal(t, Average, m)

	_, err = ParseMethod("complete")
	assert.Error(t, err)
}
