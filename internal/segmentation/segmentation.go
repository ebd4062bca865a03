// Package segmentation partitions the dimension axis [0, D) into
// consecutive, contiguous ranges that a tree node refines as it splits.
//
// A Segmentation is an ordered list of right-endpoints interpreted as
// half-open ranges: [0, r1), [r1, r2), ..., [r(n-1), rn). The last
// right-endpoint is always D, the configured vector dimensionality.
package segmentation

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/ngina/ktreego/internal/ktreeerr"
)

// Segment is a half-open range [Start, End) over dimension indices.
type Segment struct {
	Start, End int
}

// Size returns the number of dimensions covered by the segment.
func (s Segment) Size() int {
	return s.End - s.Start
}

// Indices returns the dimension indices belonging to the segment, in order.
func (s Segment) Indices() []int {
	out := make([]int, 0, s.Size())
	for i := s.Start; i < s.End; i++ {
		out = append(out, i)
	}
	return out
}

// Belongs reports whether dimension index sits inside the segment.
func (s Segment) Belongs(index int) bool {
	return index >= s.Start && index < s.End
}

// Segmentation is an ordered partition of [0, D) into Segments, stored as
// the list of right endpoints.
type Segmentation struct {
	rightIndices []int
}

// New constructs a Segmentation from the given right-endpoints, as-is.
func New(rightIndices []int) Segmentation {
	cp := make([]int, len(rightIndices))
	copy(cp, rightIndices)
	return Segmentation{rightIndices: cp}
}

// IsValid reports whether the right-endpoints are strictly increasing.
// An empty Segmentation is never valid.
func (s Segmentation) IsValid() bool {
	if len(s.rightIndices) == 0 {
		return false
	}
	for i := 1; i < len(s.rightIndices); i++ {
		if s.rightIndices[i] <= s.rightIndices[i-1] {
			return false
		}
	}
	return true
}

// Size returns the number of segments.
func (s Segmentation) Size() int {
	return len(s.rightIndices)
}

// Segment returns the i-th segment, [r(i-1), r(i)) with r(-1) = 0.
func (s Segmentation) Segment(i int) (Segment, error) {
	if i < 0 || i >= len(s.rightIndices) {
		return Segment{}, errors.Wrapf(ktreeerr.ErrInvalidSegmentation, "segment index %d out of range (size %d)", i, len(s.rightIndices))
	}
	start := 0
	if i > 0 {
		start = s.rightIndices[i-1]
	}
	return Segment{Start: start, End: s.rightIndices[i]}, nil
}

// SplitSegment replaces segment i with two halves by inserting the
// midpoint start+(end-start)/2 as a new right-endpoint. It returns a new
// Segmentation value; the receiver is left unmodified so siblings sharing
// the parent's segmentation never observe each other's refinement.
func (s Segmentation) SplitSegment(i int) (Segmentation, error) {
	seg, err := s.Segment(i)
	if err != nil {
		return Segmentation{}, err
	}
	if seg.Size() <= 1 {
		return Segmentation{}, errors.Wrapf(ktreeerr.ErrInvalidSegmentation, "cannot split segment %d with size %d", i, seg.Size())
	}
	mid := seg.Start + (seg.End-seg.Start)/2

	next := make([]int, 0, len(s.rightIndices)+1)
	next = append(next, s.rightIndices[:i]...)
	next = append(next, mid)
	next = append(next, s.rightIndices[i:]...)
	return Segmentation{rightIndices: next}, nil
}

// SegmentSizes returns the size of each segment in order.
func (s Segmentation) SegmentSizes() []int {
	sizes := make([]int, s.Size())
	for i := range sizes {
		seg, _ := s.Segment(i)
		sizes[i] = seg.Size()
	}
	return sizes
}

// RightIndices returns a copy of the underlying right-endpoints, for
// codec serialization.
func (s Segmentation) RightIndices() []int {
	cp := make([]int, len(s.rightIndices))
	copy(cp, s.rightIndices)
	return cp
}

func (s Segmentation) String() string {
	return fmt.Sprintf("%v", s.rightIndices)
}
