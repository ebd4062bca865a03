package summary

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/ngina/ktreego/internal/segmentation"
	"github.com/ngina/ktreego/internal/vector"
)

func matCol(t *testing.T, vals []float64) *mat.Dense {
	t.Helper()
	return mat.NewDense(len(vals), 1, vals)
}

func writeDataset(t *testing.T, dir string, points [][]float32) string {
	t.Helper()
	dim := len(points[0])
	c := vector.NewContainer(dim)
	for _, p := range points {
		c.Append(p)
	}
	require.NoError(t, c.SaveToFile(dir, "data.dat"))
	return filepath.Join(dir, "data.dat")
}

func TestSummarizeTwoClusters(t *testing.T) {
	dir := t.TempDir()
	points := [][]float32{
		{0, 0, 0, 0},
		{1, 1, 1, 1},
		{10, 10, 10, 10},
		{11, 11, 11, 11},
	}
	path := writeDataset(t, dir, points)

	seed := int64(1)
	s, err := Summarize(path, segmentation.New([]int{4}), len(points), Options{
		Dimensions: 4,
		TopK:       2,
		Seed:       &seed,
	})
	require.NoError(t, err)

	assert.Equal(t, 0, s.BestSegmentIndex)
	assert.NotEmpty(t, s.BestSegmentDimensions)
	assert.NotNil(t, s.Components)
	assert.NotNil(t, s.ProjectedData)

	rows, cols := s.ProjectedData.Dims()
	assert.Equal(t, len(points), rows)
	assert.Equal(t, 1, cols)
}

func TestSummarizeTopKGreaterThanDGivesFullSegment(t *testing.T) {
	dir := t.TempDir()
	points := [][]float32{
		{0, 0},
		{5, 5},
		{10, 10},
	}
	path := writeDataset(t, dir, points)

	seed := int64(2)
	s, err := Summarize(path, segmentation.New([]int{2}), len(points), Options{
		Dimensions: 2,
		TopK:       10,
		Seed:       &seed,
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{0, 1}, s.BestSegmentDimensions)
}

func TestSummarizeEmptyInputErrors(t *testing.T) {
	_, err := Summarize("/dev/null", segmentation.New([]int{2}), 0, Options{Dimensions: 2, TopK: 1})
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestArgsortDescendingOrder(t *testing.T) {
	idx := argsortDescending([]float64{1, 5, 3, 2, 4})
	assert.Equal(t, []int{1, 4, 2, 3, 0}, idx)
}

func TestIntersectPreserveOrder(t *testing.T) {
	got := intersectPreserveOrder([]int{5, 1, 3, 9}, []int{1, 2, 3})
	assert.Equal(t, []int{1, 3}, got)
}

func TestMedianOfColumnEvenAndOdd(t *testing.T) {
	even := matCol(t, []float64{1, 2, 3, 4})
	assert.Equal(t, 2.5, medianOfColumn(even))

	odd := matCol(t, []float64{1, 2, 3})
	assert.Equal(t, 2.0, medianOfColumn(odd))
}
