package tree

import (
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ngina/ktreego/internal/config"
	"github.com/ngina/ktreego/internal/vector"
)

func writeDataset(t *testing.T, dir, name string, points [][]float32) string {
	t.Helper()
	dim := len(points[0])
	c := vector.NewContainer(dim)
	for _, p := range points {
		c.Append(p)
	}
	require.NoError(t, c.SaveToFile(dir, name))
	return filepath.Join(dir, name)
}

func testConfig(dim, leafSize, topK int, seed int64) *config.Config {
	s := seed
	return &config.Config{
		Dimensions: dim,
		LeafSize:   leafSize,
		TopK:       topK,
		Mode:       config.ModeIndex,
		Seed:       &s,
	}
}

func clusteredPoints(dim int) [][]float32 {
	var points [][]float32
	for _, base := range []float32{0, 1, 50, 51} {
		p := make([]float32, dim)
		for d := range p {
			p[d] = base + float32(d)*0.01
		}
		points = append(points, p)
	}
	return points
}

// S1: dataset size equals leaf_size exactly -- the root may finalize as a
// single leaf after one summarization attempt, or split once if the
// summarizer finds a usable segment.
func TestBuildRootSizeEqualsLeafSize(t *testing.T) {
	dir := t.TempDir()
	points := clusteredPoints(4)[:2]
	path := writeDataset(t, dir, "data.dat", points)

	cfg := testConfig(4, 2, 2, 1)
	b := NewBuilder(cfg, dir)
	root, err := b.BuildSequential(path, len(points))
	require.NoError(t, err)

	leaves, _ := root.Count()
	assert.GreaterOrEqual(t, leaves, 1)
	assertLeafPointsSumTo(t, root, len(points))
}

// S2: D == 1 makes the first split-segment attempt fail (segment size 1),
// so the root finalizes as a LEAF containing everything.
func TestBuildDimensionOneForcesRootLeaf(t *testing.T) {
	dir := t.TempDir()
	points := [][]float32{{0}, {1}, {2}, {3}, {5}}
	path := writeDataset(t, dir, "data.dat", points)

	cfg := testConfig(1, 1, 1, 2)
	b := NewBuilder(cfg, dir)
	root, err := b.BuildSequential(path, len(points))
	require.NoError(t, err)

	assert.True(t, root.IsLeaf())
	assert.Equal(t, len(points), root.NumPoints)
}

// S3: top_k >= D means best_segment_dimensions covers the whole segment.
func TestBuildTopKGreaterThanDimensionsUsesFullSegment(t *testing.T) {
	dir := t.TempDir()
	points := clusteredPoints(4)
	path := writeDataset(t, dir, "data.dat", points)

	cfg := testConfig(4, 1, 10, 3)
	b := NewBuilder(cfg, dir)
	root, err := b.BuildSequential(path, len(points))
	require.NoError(t, err)
	assertLeafPointsSumTo(t, root, len(points))
}

// S4: property test -- for any built tree, the sum of LEAF num_points
// equals the root's num_points (invariant 2).
func TestBuildLeafPointsSumPropertyRandomPoints(t *testing.T) {
	dir := t.TempDir()
	r := rand.New(rand.NewSource(99))
	dim := 8
	n := 1000
	points := make([][]float32, n)
	for i := range points {
		p := make([]float32, dim)
		for d := range p {
			p[d] = float32(r.NormFloat64())
		}
		points[i] = p
	}
	path := writeDataset(t, dir, "data.dat", points)

	cfg := testConfig(dim, 16, 4, 7)
	b := NewBuilder(cfg, dir)
	root, err := b.BuildSequential(path, n)
	require.NoError(t, err)
	assertLeafPointsSumTo(t, root, n)
}

// S5: exact-match query reaches the leaf holding that point with distance 0.
func TestSearchExactMatchReachesItsLeaf(t *testing.T) {
	dir := t.TempDir()
	points := clusteredPoints(4)
	path := writeDataset(t, dir, "data.dat", points)

	cfg := testConfig(4, 1, 2, 5)
	b := NewBuilder(cfg, dir)
	root, err := b.BuildSequential(path, len(points))
	require.NoError(t, err)

	loadLeaves(t, root, dir, cfg.Dimensions)

	searcher := NewSearcher(root)
	for _, p := range points {
		rs, err := searcher.Search(p, 1)
		require.NoError(t, err)
		require.NotEmpty(t, rs.Results)
		assert.InDelta(t, 0, rs.Results[0].Distance, 1e-6)
		assert.GreaterOrEqual(t, rs.VisitCount, 1)
		assert.GreaterOrEqual(t, rs.DistanceComputations, len(rs.Results))
	}
}

// S6: the parallel builder produces a tree with the same leaf-sum invariant.
func TestBuildParallelLeafPointsSum(t *testing.T) {
	dir := t.TempDir()
	r := rand.New(rand.NewSource(11))
	dim := 8
	n := 500
	points := make([][]float32, n)
	for i := range points {
		p := make([]float32, dim)
		for d := range p {
			p[d] = float32(r.NormFloat64())
		}
		points[i] = p
	}
	path := writeDataset(t, dir, "data.dat", points)

	cfg := testConfig(dim, 16, 4, 21)
	b := NewBuilder(cfg, dir)
	root, err := b.BuildParallel(path, n, 4)
	require.NoError(t, err)
	assertLeafPointsSumTo(t, root, n)
}

func TestSearchTopDownPruningAlsoReachesExactMatch(t *testing.T) {
	dir := t.TempDir()
	points := clusteredPoints(4)
	path := writeDataset(t, dir, "data.dat", points)

	cfg := testConfig(4, 1, 2, 13)
	b := NewBuilder(cfg, dir)
	root, err := b.BuildSequential(path, len(points))
	require.NoError(t, err)
	loadLeaves(t, root, dir, cfg.Dimensions)

	searcher := NewSearcher(root)
	searcher.PruneMode = TopDownPruning
	rs, err := searcher.Search(points[0], 1)
	require.NoError(t, err)
	require.NotEmpty(t, rs.Results)
	assert.InDelta(t, 0, rs.Results[0].Distance, 1e-6)
}

// top_k (feature-selection width for a split) and k (result-set size for
// a query) are independent parameters -- spec.md §8 distinguishes a
// top_k=2 build from a k=1 search in the same scenario. A fixed build
// here must answer with a different number of results depending solely
// on the k passed to Search, with top_k held constant.
func TestSearchResultCountFollowsKNotTopK(t *testing.T) {
	dir := t.TempDir()
	points := clusteredPoints(4)
	path := writeDataset(t, dir, "data.dat", points)

	cfg := testConfig(4, 1, 2, 9)
	b := NewBuilder(cfg, dir)
	root, err := b.BuildSequential(path, len(points))
	require.NoError(t, err)
	loadLeaves(t, root, dir, cfg.Dimensions)

	searcher := NewSearcher(root)

	rs1, err := searcher.Search(points[0], 1)
	require.NoError(t, err)
	assert.Len(t, rs1.Results, 1)

	rs3, err := searcher.Search(points[0], 3)
	require.NoError(t, err)
	assert.Len(t, rs3.Results, 3)
	assert.NotEqual(t, len(rs1.Results), len(rs3.Results))
}

func assertLeafPointsSumTo(t *testing.T, root *Node, want int) {
	t.Helper()
	var sum int
	var walk func(*Node)
	walk = func(n *Node) {
		if n == nil {
			return
		}
		if n.Kind == LeafKind {
			sum += n.NumPoints
			return
		}
		walk(n.Left)
		walk(n.Right)
	}
	walk(root)
	assert.Equal(t, want, sum)
}

func loadLeaves(t *testing.T, n *Node, indexDir string, dim int) {
	t.Helper()
	if n == nil {
		return
	}
	if n.Kind == LeafKind {
		if n.Data == nil {
			data, err := vector.LoadFromFile(filepath.Join(indexDir, n.Filename), dim, true, 0)
			require.NoError(t, err)
			n.Data = data
		}
		return
	}
	loadLeaves(t, n.Left, indexDir, dim)
	loadLeaves(t, n.Right, indexDir, dim)
}
