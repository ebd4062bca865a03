// Package tree implements the binary partitioning tree: node lifecycle
// (split, build), and top-down search with sibling/top-down pruning
// (spec.md §3, §4.5-§4.8).
package tree

import (
	"gonum.org/v1/gonum/mat"

	"github.com/ngina/ktreego/internal/segmentation"
	"github.com/ngina/ktreego/internal/vector"
)

// Kind tags a Node as a leaf (holds point data) or an internal routing
// node (holds a learned projection and two children). Go's tagged-variant
// idiom for what the source modeled as a class hierarchy.
type Kind int

const (
	LeafKind Kind = iota
	InternalKind
)

func (k Kind) String() string {
	if k == InternalKind {
		return "internal"
	}
	return "leaf"
}

// Node is a single node of the partitioning tree. A node is created by a
// Builder when its input file and segmentation are fixed, and mutated
// exactly once by split: either it stays a LeafKind (with its file renamed
// into place, or rewritten under a leaf name when its best segment is
// exhausted) or it becomes InternalKind (with two new children attached).
type Node struct {
	Kind         Kind
	Filename     string
	NumPoints    int
	Segmentation segmentation.Segmentation

	// SegmentsMins/SegmentsMaxs are per-segment running bounds from the
	// summarizer, consulted during search's Phase-2 bounding-box pruning.
	// A node finalized via the size-based leaf shortcut (split never ran
	// the summarizer) leaves these nil, matching the source: such a node
	// is only ever treated as an unconditionally-inserted sibling leaf,
	// so its bounds are never read.
	SegmentsMins []float64
	SegmentsMaxs []float64

	// Median, BestSegmentIndex, BestSegmentDimensions, W, B, Components
	// are meaningful only when Kind == InternalKind; they are still
	// populated on a LEAF that reached finalizeBySegmentExhaustion, since
	// the summarizer already computed them before the exhaustion check.
	Median                float64
	BestSegmentIndex      int
	BestSegmentDimensions []int
	W, B, Components      *mat.Dense

	// Z and ProjectedData are resident only during the build of this
	// node; they are not part of the persisted wire format (SPEC_FULL.md
	// §8, applying spec.md §9 open question #5).
	Z, ProjectedData *mat.Dense

	// Data holds a leaf's points once materialized in memory: either at
	// build time (segment-exhaustion finalize) or at load time (codec
	// eagerly re-reads every LEAF's file).
	Data *vector.Container

	Left, Right *Node

	// parent is a weak back-reference for Phase-2 sibling lookup during
	// search. Never serialized, never used for ownership.
	parent *Node

	// isIntermediate marks a node whose current Filename is a disposable
	// scratch file the builder created (as opposed to the root's
	// original dataset path, or a file already renamed to its final leaf
	// name). split consults this directly instead of sniffing the
	// filename for a "disposable" substring.
	isIntermediate bool
}

// NewRoot constructs the tree root over the full dataset: a LeafKind node
// (every node starts out tagged LeafKind until split decides otherwise)
// with the whole-axis segmentation and no parent.
func NewRoot(datasetPath string, dim, numPoints int) *Node {
	return &Node{
		Kind:         LeafKind,
		Filename:     datasetPath,
		NumPoints:    numPoints,
		Segmentation: segmentation.New([]int{dim}),
	}
}

// IsLeaf reports whether n is currently tagged LeafKind.
func (n *Node) IsLeaf() bool { return n.Kind == LeafKind }

// Sibling returns the other child of n's parent, or nil if n is the root
// or has no sibling (a child slot the parent never populated).
func (n *Node) Sibling() *Node {
	if n == nil || n.parent == nil {
		return nil
	}
	if n.parent.Left == n {
		return n.parent.Right
	}
	return n.parent.Left
}

// AttachChildren wires left/right as n's children, setting their parent
// back-reference. Used by the codec when reconstructing a decoded tree,
// where children are fully decoded before their parent can attach them.
func (n *Node) AttachChildren(left, right *Node) {
	n.Left, n.Right = left, right
	if left != nil {
		left.parent = n
	}
	if right != nil {
		right.parent = n
	}
}

// Count returns the number of leaves and internal nodes in the subtree
// rooted at n.
func (n *Node) Count() (leaves, internals int) {
	if n == nil {
		return 0, 0
	}
	if n.Kind == LeafKind {
		return 1, 0
	}
	l1, i1 := n.Left.Count()
	l2, i2 := n.Right.Count()
	return l1 + l2, i1 + i2 + 1
}
