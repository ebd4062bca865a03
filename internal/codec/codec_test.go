package codec

import (
	"bytes"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/ngina/ktreego/internal/config"
	"github.com/ngina/ktreego/internal/tree"
	"github.com/ngina/ktreego/internal/vector"
)

func buildTestTree(t *testing.T, dir string) (*config.Config, *tree.Node) {
	t.Helper()
	r := rand.New(rand.NewSource(5))
	dim, n := 6, 200
	points := make([][]float32, n)
	for i := range points {
		p := make([]float32, dim)
		for d := range p {
			p[d] = float32(r.NormFloat64())
		}
		points[i] = p
	}
	c := vector.NewContainer(dim)
	for _, p := range points {
		c.Append(p)
	}
	require.NoError(t, c.SaveToFile(dir, "dataset.dat"))
	path := filepath.Join(dir, "dataset.dat")

	seed := int64(17)
	cfg := &config.Config{
		Dataset:     path,
		IndexPath:   dir,
		DatasetSize: n,
		Dimensions:  dim,
		LeafSize:    10,
		TopK:        3,
		Mode:        config.ModeIndex,
		Seed:        &seed,
	}

	b := tree.NewBuilder(cfg, dir)
	root, err := b.BuildSequential(path, n)
	require.NoError(t, err)
	return cfg, root
}

func TestEncodeDecodeIndexRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg, root := buildTestTree(t, dir)

	var buf bytes.Buffer
	require.NoError(t, EncodeIndex(&buf, cfg, root))

	loadedCfg := &config.Config{Mode: config.ModeQuery, IndexPath: dir}
	decoded, err := DecodeIndex(&buf, loadedCfg, dir)
	require.NoError(t, err)

	assert.Equal(t, cfg.DatasetSize, loadedCfg.DatasetSize)
	assert.Equal(t, cfg.Dimensions, loadedCfg.Dimensions)
	assert.Equal(t, cfg.LeafSize, loadedCfg.LeafSize)
	assert.Equal(t, cfg.TopK, loadedCfg.TopK)

	assertNodesEqual(t, root, decoded)
}

// assertNodesEqual compares kind, segmentation, median, best segment
// index and dimensions, W/B/Components and each leaf's reloaded point
// count. Z/ProjectedData are not persisted (spec.md §9 open question #5);
// Filename and SegmentsMins/SegmentsMaxs are not compared here.
func assertNodesEqual(t *testing.T, want, got *tree.Node) {
	t.Helper()
	if want == nil {
		assert.Nil(t, got)
		return
	}
	require.NotNil(t, got)

	assert.Equal(t, want.Kind, got.Kind)
	assert.Equal(t, want.Segmentation.RightIndices(), got.Segmentation.RightIndices())
	assert.InDelta(t, want.Median, got.Median, 1e-4)
	assert.Equal(t, want.BestSegmentIndex, got.BestSegmentIndex)
	assert.Equal(t, want.BestSegmentDimensions, got.BestSegmentDimensions)
	assertMatrixApproxEqual(t, want.W, got.W)
	assertMatrixApproxEqual(t, want.B, got.B)
	assertMatrixApproxEqual(t, want.Components, got.Components)

	if want.Kind == tree.LeafKind {
		require.NotNil(t, got.Data)
		assert.Equal(t, want.NumPoints, got.Data.Size())
	}

	assertNodesEqual(t, want.Left, got.Left)
	assertNodesEqual(t, want.Right, got.Right)
}

func assertMatrixApproxEqual(t *testing.T, want, got *mat.Dense) {
	t.Helper()
	if want == nil {
		assert.Nil(t, got)
		return
	}
	require.NotNil(t, got)
	wr, wc := want.Dims()
	gr, gc := got.Dims()
	require.Equal(t, wr, gr)
	require.Equal(t, wc, gc)
	for i := 0; i < wr; i++ {
		for j := 0; j < wc; j++ {
			assert.InDelta(t, want.At(i, j), got.At(i, j), 1e-4)
		}
	}
}
