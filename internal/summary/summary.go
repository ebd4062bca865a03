// Package summary implements the per-node summarizer: two streaming passes
// over an input file plus a projection-kernel fit, producing everything a
// tree node needs to decide its split (spec.md §4.4).
package summary

import (
	"math"
	"sort"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/ngina/ktreego/internal/kpca"
	"github.com/ngina/ktreego/internal/ktreeerr"
	"github.com/ngina/ktreego/internal/segmentation"
	"github.com/ngina/ktreego/internal/vector"
)

// Summary carries the result of summarizing one node's input file: enough
// to decide whether/where to split, and the learned projection components
// a later search descent needs.
type Summary struct {
	SegmentsMins, SegmentsMaxs []float64
	BestSegmentIndex           int
	BestSegmentDimensions      []int
	W, B, Z, ProjectedData, Components *mat.Dense
	Median                              float64
}

// Options configures one summarization call.
type Options struct {
	Dimensions int
	TopK       int
	Seed       *int64
}

// Summarize streams path twice: once to compute per-dimension mean/variance
// and per-segment min/max, once to extract the best segment's dimensions
// for the projection kernel. It returns the full Summary spec.md §4.4
// describes.
func Summarize(path string, seg segmentation.Segmentation, numPoints int, opts Options) (*Summary, error) {
	if numPoints == 0 {
		return nil, ErrEmptyInput
	}
	means, meansSquare, mins, maxs, err := passA(path, seg, numPoints, opts.Dimensions)
	if err != nil {
		return nil, err
	}

	variance := make([]float64, opts.Dimensions)
	for d := 0; d < opts.Dimensions; d++ {
		means[d] /= float64(numPoints)
		meansSquare[d] /= float64(numPoints)
		variance[d] = meansSquare[d] - means[d]*means[d]
	}

	topK := opts.TopK
	if topK > opts.Dimensions {
		topK = opts.Dimensions
	}
	topKDims := argsortDescending(variance)[:topK]

	bestSegmentIndex, err := chooseBestSegment(seg, topKDims)
	if err != nil {
		return nil, err
	}

	bestSeg, err := seg.Segment(bestSegmentIndex)
	if err != nil {
		return nil, err
	}
	segIndices := bestSeg.Indices()
	bestSegmentDimensions := intersectPreserveOrder(topKDims, segIndices)
	if len(bestSegmentDimensions) == 0 {
		bestSegmentDimensions = segIndices
	}

	x, err := passB(path, numPoints, opts.Dimensions, bestSegmentDimensions)
	if err != nil {
		return nil, err
	}

	dPrime := len(bestSegmentDimensions)
	f := 2 * dPrime
	kernel := kpca.NewKernel(opts.Seed)
	z, w, b, components, projected, err := kernel.Fit(x, f)
	if err != nil {
		return nil, err
	}

	median := medianOfColumn(projected)

	return &Summary{
		SegmentsMins:          mins,
		SegmentsMaxs:          maxs,
		BestSegmentIndex:      bestSegmentIndex,
		BestSegmentDimensions: bestSegmentDimensions,
		W:                     w,
		B:                     b,
		Z:                     z,
		ProjectedData:         projected,
		Components:            components,
		Median:                median,
	}, nil
}

// passA streams numPoints points in fixed batches, accumulating
// per-dimension sum/sum-of-squares and per-segment running min/max of the
// per-point segment representation (mean of the segment's dimensions).
func passA(path string, seg segmentation.Segmentation, numPoints, dim int) (means, meansSquare, mins, maxs []float64, err error) {
	numSegments := seg.Size()
	means = make([]float64, dim)
	meansSquare = make([]float64, dim)
	mins = make([]float64, numSegments)
	maxs = make([]float64, numSegments)
	for i := range mins {
		mins[i] = math.Inf(1)
		maxs[i] = math.Inf(-1)
	}

	segs := make([]segmentation.Segment, numSegments)
	for i := 0; i < numSegments; i++ {
		s, serr := seg.Segment(i)
		if serr != nil {
			return nil, nil, nil, nil, serr
		}
		segs[i] = s
	}

	streamErr := vector.StreamFile(path, dim, numPoints, func(batch [][]float32) error {
		for _, point := range batch {
			for i, s := range segs {
				sum := 0.0
				for idx := s.Start; idx < s.End; idx++ {
					sum += float64(point[idx])
				}
				rep := sum / float64(s.Size())
				if rep < mins[i] {
					mins[i] = rep
				}
				if rep > maxs[i] {
					maxs[i] = rep
				}
			}
			for d := 0; d < dim; d++ {
				v := float64(point[d])
				means[d] += v
				meansSquare[d] += v * v
			}
		}
		return nil
	})
	if streamErr != nil {
		return nil, nil, nil, nil, streamErr
	}
	return means, meansSquare, mins, maxs, nil
}

// passB re-streams numPoints points, projecting each onto dims to build
// an (numPoints x len(dims)) matrix.
func passB(path string, numPoints, dim int, dims []int) (*mat.Dense, error) {
	data := make([]float64, 0, numPoints*len(dims))
	err := vector.StreamFile(path, dim, numPoints, func(batch [][]float32) error {
		for _, point := range batch {
			for _, d := range dims {
				data = append(data, float64(point[d]))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return mat.NewDense(numPoints, len(dims), data), nil
}

// chooseBestSegment counts, for each segment, how many of topKDims fall
// inside it; picks the segment with the highest count, breaking ties by
// preferring the segment containing the single highest-variance dimension
// (topKDims[0]).
func chooseBestSegment(seg segmentation.Segmentation, topKDims []int) (int, error) {
	numSegments := seg.Size()
	counts := make([]int, numSegments)
	for _, d := range topKDims {
		for i := 0; i < numSegments; i++ {
			s, err := seg.Segment(i)
			if err != nil {
				return 0, err
			}
			if s.Belongs(d) {
				counts[i]++
			}
		}
	}

	max := counts[0]
	for _, c := range counts[1:] {
		if c > max {
			max = c
		}
	}

	var tied []int
	for i, c := range counts {
		if c == max {
			tied = append(tied, i)
		}
	}

	best := tied[0]
	if len(tied) > 1 && len(topKDims) > 0 {
		for i := 0; i < numSegments; i++ {
			s, err := seg.Segment(i)
			if err != nil {
				return 0, err
			}
			if s.Belongs(topKDims[0]) {
				best = i
				break
			}
		}
	}
	return best, nil
}

func argsortDescending(v []float64) []int {
	idx := make([]int, len(v))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(i, j int) bool {
		return v[idx[i]] > v[idx[j]]
	})
	return idx
}

func intersectPreserveOrder(a, b []int) []int {
	set := make(map[int]struct{}, len(b))
	for _, v := range b {
		set[v] = struct{}{}
	}
	var out []int
	for _, v := range a {
		if _, ok := set[v]; ok {
			out = append(out, v)
		}
	}
	return out
}

func medianOfColumn(m *mat.Dense) float64 {
	r, _ := m.Dims()
	vals := make([]float64, r)
	for i := 0; i < r; i++ {
		vals[i] = m.At(i, 0)
	}
	sort.Float64s(vals)
	if len(vals) == 0 {
		return 0
	}
	if len(vals)%2 == 0 {
		return (vals[len(vals)/2-1] + vals[len(vals)/2]) / 2
	}
	return vals[len(vals)/2]
}

// ErrEmptyInput is returned when a summarization is attempted over zero points.
var ErrEmptyInput = errors.Wrap(ktreeerr.ErrIO, "summary: cannot summarize zero points")
