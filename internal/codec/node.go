package codec

import (
	"io"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/ngina/ktreego/internal/ktreeerr"
	"github.com/ngina/ktreego/internal/segmentation"
	"github.com/ngina/ktreego/internal/tree"
	"github.com/ngina/ktreego/internal/vector"
	"github.com/ngina/ktreego/internal/wire"
)

const (
	tagLeaf     = 'L'
	tagInternal = 'I'
	presentYes  = 'Y'
	presentNo   = 'N'
)

// EncodeNode writes n's fields (without Z/ProjectedData, per spec.md §9
// open question #5) followed by its children, depth-first pre-order.
func EncodeNode(w io.Writer, n *tree.Node) error {
	tag := byte(tagLeaf)
	if n.Kind == tree.InternalKind {
		tag = tagInternal
	}
	if err := wire.WriteByte(w, tag); err != nil {
		return err
	}
	if err := wire.WriteFloat32s(w, n.SegmentsMins); err != nil {
		return err
	}
	if err := wire.WriteFloat32s(w, n.SegmentsMaxs); err != nil {
		return err
	}
	if err := wire.WriteInts(w, n.Segmentation.RightIndices()); err != nil {
		return err
	}
	if err := wire.WriteString(w, n.Filename); err != nil {
		return err
	}
	if err := wire.WriteFloat32(w, float32(n.Median)); err != nil {
		return err
	}
	if err := wire.WriteInt64(w, int64(n.BestSegmentIndex)); err != nil {
		return err
	}
	if err := wire.WriteInts(w, n.BestSegmentDimensions); err != nil {
		return err
	}
	if err := wire.WriteMatrix(w, n.W); err != nil {
		return err
	}
	if err := wire.WriteMatrix(w, n.B); err != nil {
		return err
	}
	if err := wire.WriteMatrix(w, n.Components); err != nil {
		return err
	}

	if err := writeChild(w, n.Left); err != nil {
		return err
	}
	return writeChild(w, n.Right)
}

func writeChild(w io.Writer, child *tree.Node) error {
	if child == nil {
		return wire.WriteByte(w, presentNo)
	}
	if err := wire.WriteByte(w, presentYes); err != nil {
		return err
	}
	return EncodeNode(w, child)
}

// DecodeNode is the symmetric counterpart of EncodeNode. dim is the
// configured vector dimensionality, needed to eagerly re-read a decoded
// LEAF's data file from indexDir, per spec.md §4.9.
func DecodeNode(r io.Reader, indexDir string, dim int) (*tree.Node, error) {
	tag, err := wire.ReadByte(r)
	if err != nil {
		return nil, err
	}
	if tag != tagLeaf && tag != tagInternal {
		return nil, errors.Wrapf(ktreeerr.ErrCorruptIndex, "unknown node tag %q", tag)
	}

	mins, err := wire.ReadFloat32s(r)
	if err != nil {
		return nil, err
	}
	maxs, err := wire.ReadFloat32s(r)
	if err != nil {
		return nil, err
	}
	rightIndices, err := wire.ReadInts(r)
	if err != nil {
		return nil, err
	}
	filename, err := wire.ReadString(r)
	if err != nil {
		return nil, err
	}
	median, err := wire.ReadFloat32(r)
	if err != nil {
		return nil, err
	}
	bestSegmentIndex, err := wire.ReadInt64(r)
	if err != nil {
		return nil, err
	}
	bestSegmentDimensions, err := wire.ReadInts(r)
	if err != nil {
		return nil, err
	}
	w, err := wire.ReadMatrix(r)
	if err != nil {
		return nil, err
	}
	b, err := wire.ReadMatrix(r)
	if err != nil {
		return nil, err
	}
	components, err := wire.ReadMatrix(r)
	if err != nil {
		return nil, err
	}

	n := &tree.Node{
		Kind:                  tree.LeafKind,
		Filename:              filename,
		Segmentation:          segmentation.New(rightIndices),
		SegmentsMins:          mins,
		SegmentsMaxs:          maxs,
		Median:                float64(median),
		BestSegmentIndex:      int(bestSegmentIndex),
		BestSegmentDimensions: bestSegmentDimensions,
		W:                     w,
		B:                     b,
		Components:            components,
	}
	if tag == tagInternal {
		n.Kind = tree.InternalKind
	}

	left, err := readChild(r, indexDir, dim)
	if err != nil {
		return nil, err
	}
	right, err := readChild(r, indexDir, dim)
	if err != nil {
		return nil, err
	}
	n.AttachChildren(left, right)

	if n.Kind == tree.LeafKind {
		data, err := vector.LoadFromFile(filepath.Join(indexDir, n.Filename), dim, true, 0)
		if err != nil {
			return nil, err
		}
		n.Data = data
		n.NumPoints = data.Size()
	} else {
		if left != nil {
			n.NumPoints += left.NumPoints
		}
		if right != nil {
			n.NumPoints += right.NumPoints
		}
	}
	return n, nil
}

func readChild(r io.Reader, indexDir string, dim int) (*tree.Node, error) {
	present, err := wire.ReadByte(r)
	if err != nil {
		return nil, err
	}
	if present != presentYes {
		return nil, nil
	}
	return DecodeNode(r, indexDir, dim)
}
