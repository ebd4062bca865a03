package tree

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/ngina/ktreego/internal/config"
	"github.com/ngina/ktreego/internal/ktreeerr"
	"github.com/ngina/ktreego/internal/summary"
	"github.com/ngina/ktreego/internal/vector"
)

// Builder grows a partitioning tree under indexDir, driven by cfg's
// dimensions/leaf_size/top_k/seed.
type Builder struct {
	cfg      *config.Config
	indexDir string
	counter  atomic.Uint64
}

// NewBuilder returns a Builder that writes scratch and leaf files under
// indexDir.
func NewBuilder(cfg *config.Config, indexDir string) *Builder {
	return &Builder{cfg: cfg, indexDir: indexDir}
}

// BuildSequential runs the single-threaded LIFO-stack traversal of
// spec.md §4.6: seed a stack with the root, repeatedly pop a node, split
// it, push any non-nil children, and terminate when the stack empties.
func (b *Builder) BuildSequential(datasetPath string, n int) (*Node, error) {
	root := NewRoot(datasetPath, b.cfg.Dimensions, n)

	stack := []*Node{root}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if err := b.split(node); err != nil {
			return nil, err
		}
		if node.Left != nil {
			stack = append(stack, node.Left)
		}
		if node.Right != nil {
			stack = append(stack, node.Right)
		}
	}
	return root, nil
}

// BuildParallel replaces the source's ThreadPool/TaskQueue/100ms-poll
// quiescence check with an errgroup.Group plus a buffered channel task
// queue: workers are goroutines capped at `workers` concurrently active,
// each popped node's split pushes its non-nil children back onto the
// channel, and the controller Wait()s on the errgroup instead of
// busy-polling an atomic counter.
func (b *Builder) BuildParallel(datasetPath string, n, workers int) (*Node, error) {
	root := NewRoot(datasetPath, b.cfg.Dimensions, n)

	group, ctx := errgroup.WithContext(context.Background())
	// One slot beyond `workers` holds the dispatcher goroutine below, so up
	// to `workers` splits run at once.
	group.SetLimit(workers + 1)

	var active atomic.Int64
	tasks := make(chan *Node, 4096)

	var enqueue func(*Node)
	enqueue = func(node *Node) {
		active.Add(1)
		select {
		case tasks <- node:
		case <-ctx.Done():
		}
	}

	var spawn func(*Node)
	spawn = func(node *Node) {
		group.Go(func() error {
			defer func() {
				if active.Add(-1) == 0 {
					close(tasks)
				}
			}()
			if err := b.split(node); err != nil {
				return err
			}
			if node.Left != nil {
				enqueue(node.Left)
			}
			if node.Right != nil {
				enqueue(node.Right)
			}
			return nil
		})
	}

	enqueue(root)
	group.Go(func() error {
		for {
			select {
			case node, ok := <-tasks:
				if !ok {
					return nil
				}
				spawn(node)
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	})

	if err := group.Wait(); err != nil {
		return nil, err
	}
	return root, nil
}

// split implements spec.md §4.5: a node finalizes as a LEAF either
// because it is small enough (and not the root) or because its best
// segment has been exhausted, otherwise it becomes INTERNAL with two
// children.
func (b *Builder) split(n *Node) error {
	if n.parent != nil && n.NumPoints <= b.cfg.LeafSize {
		return b.finalizeBySize(n)
	}

	sum, err := summary.Summarize(n.Filename, n.Segmentation, n.NumPoints, summary.Options{
		Dimensions: b.cfg.Dimensions,
		TopK:       b.cfg.TopK,
		Seed:       b.cfg.Seed,
	})
	if err != nil {
		return err
	}

	n.SegmentsMins = sum.SegmentsMins
	n.SegmentsMaxs = sum.SegmentsMaxs
	n.Median = sum.Median
	n.BestSegmentIndex = sum.BestSegmentIndex
	n.BestSegmentDimensions = sum.BestSegmentDimensions
	n.W, n.B, n.Components = sum.W, sum.B, sum.Components
	n.Z, n.ProjectedData = sum.Z, sum.ProjectedData

	bestSeg, err := n.Segmentation.Segment(sum.BestSegmentIndex)
	if err != nil {
		return err
	}
	if bestSeg.Size() <= 1 {
		return b.finalizeBySegmentExhaustion(n)
	}
	return b.becomeInternal(n, sum.ProjectedData)
}

// finalizeBySize renames n's current (possibly temporary) file into its
// stable leaf name without loading it into memory.
func (b *Builder) finalizeBySize(n *Node) error {
	leafName := b.newLeafName()
	dst := filepath.Join(b.indexDir, leafName)
	if err := os.Rename(n.Filename, dst); err != nil {
		return errors.Wrapf(ktreeerr.ErrIO, "renaming %s to %s: %v", n.Filename, dst, err)
	}
	n.Filename = leafName
	n.Kind = LeafKind
	n.isIntermediate = false
	return nil
}

// finalizeBySegmentExhaustion applies spec.md §9 open question #2: the
// node's current file is loaded into memory before being saved under a
// freshly chosen leaf name, instead of the source's bug of serializing a
// null data pointer.
func (b *Builder) finalizeBySegmentExhaustion(n *Node) error {
	data, err := vector.LoadFromFile(n.Filename, b.cfg.Dimensions, true, 0)
	if err != nil {
		return err
	}
	oldFile, oldIntermediate := n.Filename, n.isIntermediate

	leafName := b.newLeafName()
	if err := data.SaveToFile(b.indexDir, leafName); err != nil {
		return err
	}
	if oldIntermediate {
		_ = os.Remove(oldFile)
	}

	n.Data = data
	n.Filename = leafName
	n.Kind = LeafKind
	n.isIntermediate = false
	return nil
}

// becomeInternal refines n's segmentation, partitions its points by the
// learned median, streams its file once more into two child files, and
// attaches the resulting Left/Right children.
func (b *Builder) becomeInternal(n *Node, projected *mat.Dense) error {
	rows, _ := projected.Dims()
	leftSet := make(map[int]struct{}, rows/2)
	rightSet := make(map[int]struct{}, rows/2)
	for i := 0; i < rows; i++ {
		if projected.At(i, 0) < n.Median {
			leftSet[i] = struct{}{}
		} else {
			rightSet[i] = struct{}{}
		}
	}

	childSeg, err := n.Segmentation.SplitSegment(n.BestSegmentIndex)
	if err != nil {
		return err
	}

	leftName := b.newDisposableName(1)
	rightName := b.newDisposableName(2)
	leftPath := filepath.Join(b.indexDir, leftName)
	rightPath := filepath.Join(b.indexDir, rightName)

	leftFile, err := os.Create(leftPath)
	if err != nil {
		return errors.Wrapf(ktreeerr.ErrIO, "creating %s: %v", leftPath, err)
	}
	defer leftFile.Close()
	rightFile, err := os.Create(rightPath)
	if err != nil {
		return errors.Wrapf(ktreeerr.ErrIO, "creating %s: %v", rightPath, err)
	}
	defer rightFile.Close()

	dim := b.cfg.Dimensions
	raw := make([]byte, dim*4)
	numLeft, numRight := 0, 0
	pointIndex := 0
	streamErr := vector.StreamFile(n.Filename, dim, n.NumPoints, func(batch [][]float32) error {
		for _, point := range batch {
			if _, ok := leftSet[pointIndex]; ok {
				vector.EncodePoint(point, raw)
				if _, werr := leftFile.Write(raw); werr != nil {
					return errors.Wrapf(ktreeerr.ErrIO, "writing %s: %v", leftPath, werr)
				}
				numLeft++
			}
			if _, ok := rightSet[pointIndex]; ok {
				vector.EncodePoint(point, raw)
				if _, werr := rightFile.Write(raw); werr != nil {
					return errors.Wrapf(ktreeerr.ErrIO, "writing %s: %v", rightPath, werr)
				}
				numRight++
			}
			pointIndex++
		}
		return nil
	})
	if streamErr != nil {
		return streamErr
	}

	if n.isIntermediate {
		_ = os.Remove(n.Filename)
	}

	n.Kind = InternalKind
	n.Data = nil

	if numLeft > 0 {
		n.Left = &Node{Kind: LeafKind, Filename: leftPath, NumPoints: numLeft, Segmentation: childSeg, parent: n, isIntermediate: true}
	}
	if numRight > 0 {
		n.Right = &Node{Kind: LeafKind, Filename: rightPath, NumPoints: numRight, Segmentation: childSeg, parent: n, isIntermediate: true}
	}
	return nil
}

func (b *Builder) newDisposableName(slot int) string {
	id := b.counter.Add(1)
	return fmt.Sprintf("node_%d_disposable_%s_n_%d.dat", id, randSuffix(), slot)
}

func (b *Builder) newLeafName() string {
	id := b.counter.Add(1)
	return fmt.Sprintf("node_%d_data_%s.dat", id, randSuffix())
}

func randSuffix() string {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "0"
	}
	return fmt.Sprintf("%x", binary.BigEndian.Uint64(buf[:]))
}
