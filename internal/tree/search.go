package tree

import (
	"math"
	"sort"

	"github.com/ngina/ktreego/internal/kpca"
)

// PruneMode selects Phase 2's pruning strategy: SiblingPruning descends
// the stack produced by Phase 1's descent, consulting each visited
// node's sibling; TopDownPruning instead walks from the root comparing
// both children's bounding-box lower bounds at every step (spec.md §4.8,
// modeled as a field checked once per search rather than a compile-time
// switch, so both strategies ship in one binary).
type PruneMode int

const (
	SiblingPruning PruneMode = iota
	TopDownPruning
)

// Result is one scored candidate in a ResultSet.
type Result struct {
	Point    []float32
	Distance float64
}

// ResultSet is a small k-best collection: Insert appends, sorts ascending
// by distance, and truncates to k. Result sets are tiny (k is typically
// single digits), so a sorted slice is simpler than a heap.
type ResultSet struct {
	K                     int
	Results               []Result
	VisitCount            int
	DistanceComputations  int
}

// NewResultSet returns an empty ResultSet capped at k.
func NewResultSet(k int) *ResultSet {
	return &ResultSet{K: k}
}

// Insert adds a candidate and keeps the set sorted and truncated to K.
func (rs *ResultSet) Insert(point []float32, distance float64) {
	rs.Results = append(rs.Results, Result{Point: point, Distance: distance})
	sort.Slice(rs.Results, func(i, j int) bool { return rs.Results[i].Distance < rs.Results[j].Distance })
	if len(rs.Results) > rs.K {
		rs.Results = rs.Results[:rs.K]
	}
}

// Worst returns the current worst (largest) distance in the set, or
// +Inf if the set has not yet reached capacity K.
func (rs *ResultSet) Worst() float64 {
	if len(rs.Results) < rs.K || len(rs.Results) == 0 {
		return math.Inf(1)
	}
	return rs.Results[len(rs.Results)-1].Distance
}

// Metric scores the dissimilarity between a stored point and a query.
type Metric func(a, b []float32) float64

// SquaredEuclidean is the default Metric spec.md §4.8 specifies.
func SquaredEuclidean(a, b []float32) float64 {
	sum := 0.0
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}

// Searcher answers nearest-neighbor queries against a built or loaded
// tree, using a pluggable distance Metric and pruning PruneMode -- a
// single func value stands in for the source's templated-metric
// capability, since there is exactly one operation to customize.
type Searcher struct {
	Root      *Node
	Metric    Metric
	PruneMode PruneMode
}

// NewSearcher returns a Searcher over root using squared Euclidean
// distance and sibling pruning, the spec.md defaults.
func NewSearcher(root *Node) *Searcher {
	return &Searcher{Root: root, Metric: SquaredEuclidean, PruneMode: SiblingPruning}
}

// Search answers one query with up to k results.
func (s *Searcher) Search(q []float32, k int) (*ResultSet, error) {
	rs := NewResultSet(k)
	if s.Root == nil {
		return rs, nil
	}

	switch s.PruneMode {
	case TopDownPruning:
		if err := s.searchTopDown(s.Root, q, rs); err != nil {
			return nil, err
		}
	default:
		stack, err := s.descend(s.Root, q, rs)
		if err != nil {
			return nil, err
		}
		if err := s.pruneSiblings(stack, q, rs); err != nil {
			return nil, err
		}
	}
	return rs, nil
}

// descend implements Phase 1: walk down from node, routing at each
// internal node by the learned projection, inserting every leaf's points
// into rs, and returning the stack of visited nodes in descent order.
func (s *Searcher) descend(node *Node, q []float32, rs *ResultSet) ([]*Node, error) {
	var stack []*Node
	for node != nil {
		rs.VisitCount++
		stack = append(stack, node)

		if node.Kind == LeafKind {
			s.insertLeaf(node, q, rs)
			return stack, nil
		}

		goLeft, err := s.routeLeft(node, q)
		if err != nil {
			return nil, err
		}
		if goLeft {
			if node.Left != nil {
				node = node.Left
			} else {
				node = node.Right
			}
		} else {
			if node.Right != nil {
				node = node.Right
			} else {
				node = node.Left
			}
		}
	}
	return stack, nil
}

// routeLeft evaluates the projection at node's best-segment dimensions
// and reports whether the query routes left (projection <= median).
func (s *Searcher) routeLeft(node *Node, q []float32) (bool, error) {
	row := make([]float64, len(node.BestSegmentDimensions))
	for i, d := range node.BestSegmentDimensions {
		row[i] = float64(q[d])
	}
	proj, err := kpca.Project(row, node.W, node.B, node.Components)
	if err != nil {
		return false, err
	}
	return proj <= node.Median, nil
}

// insertLeaf inserts every point stored at a leaf into rs, counting each
// as one distance computation.
func (s *Searcher) insertLeaf(node *Node, q []float32, rs *ResultSet) {
	if node.Data == nil {
		return
	}
	for i := 0; i < node.Data.Size(); i++ {
		p := node.Data.At(i)
		if p == nil {
			continue
		}
		rs.DistanceComputations++
		rs.Insert(p, s.Metric(p, q))
	}
}

// pruneSiblings implements Phase 2's default sibling-pruning mode: pop
// the descent stack, and for each popped node's sibling either insert it
// unconditionally (a leaf sibling) or bound it and conditionally descend.
func (s *Searcher) pruneSiblings(stack []*Node, q []float32, rs *ResultSet) error {
	for i := len(stack) - 1; i >= 0; i-- {
		sibling := stack[i].Sibling()
		if sibling == nil {
			continue
		}
		if sibling.Kind == LeafKind {
			s.insertLeaf(sibling, q, rs)
			continue
		}
		bound := boundingBoxLowerBound(sibling, q)
		if bound < rs.Worst() {
			if _, err := s.descend(sibling, q, rs); err != nil {
				return err
			}
		}
	}
	return nil
}

// searchTopDown implements Phase 2's alternative mode: from node, if
// either child is a leaf, insert all leaf children and stop; otherwise
// descend to whichever child has the smaller bounding-box lower bound.
func (s *Searcher) searchTopDown(node *Node, q []float32, rs *ResultSet) error {
	rs.VisitCount++
	if node.Kind == LeafKind {
		s.insertLeaf(node, q, rs)
		return nil
	}

	left, right := node.Left, node.Right
	if (left != nil && left.Kind == LeafKind) || (right != nil && right.Kind == LeafKind) {
		if left != nil {
			s.insertLeaf(left, q, rs)
		}
		if right != nil {
			s.insertLeaf(right, q, rs)
		}
		return nil
	}

	switch {
	case left == nil:
		return s.searchTopDown(right, q, rs)
	case right == nil:
		return s.searchTopDown(left, q, rs)
	}

	if boundingBoxLowerBound(left, q) <= boundingBoxLowerBound(right, q) {
		return s.searchTopDown(left, q, rs)
	}
	return s.searchTopDown(right, q, rs)
}

// boundingBoxLowerBound computes a lower bound on the distance from q to
// any point owned by node, using node's per-segment min/max bounds: for
// each segment, compare q's representation (mean over that segment's
// dimensions) against the stored bounds and accumulate the shortfall.
func boundingBoxLowerBound(node *Node, q []float32) float64 {
	bound := 0.0
	numSegments := node.Segmentation.Size()
	for i := 0; i < numSegments; i++ {
		seg, err := node.Segmentation.Segment(i)
		if err != nil || i >= len(node.SegmentsMins) || i >= len(node.SegmentsMaxs) {
			continue
		}
		sum := 0.0
		for idx := seg.Start; idx < seg.End; idx++ {
			sum += float64(q[idx])
		}
		rep := sum / float64(seg.Size())

		switch {
		case rep > node.SegmentsMaxs[i]:
			bound += rep - node.SegmentsMaxs[i]
		case rep < node.SegmentsMins[i]:
			bound += node.SegmentsMins[i] - rep
		}
	}
	return bound
}
