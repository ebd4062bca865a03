package codec

import (
	"io"

	"github.com/ngina/ktreego/internal/tree"
	"github.com/ngina/ktreego/internal/wire"
)

// EncodeTree writes a single root-presence byte followed by the encoded
// root subtree, or just "N" if root is nil.
func EncodeTree(w io.Writer, root *tree.Node) error {
	if root == nil {
		return wire.WriteByte(w, presentNo)
	}
	if err := wire.WriteByte(w, presentYes); err != nil {
		return err
	}
	return EncodeNode(w, root)
}

// DecodeTree is the symmetric counterpart of EncodeTree.
func DecodeTree(r io.Reader, indexDir string, dim int) (*tree.Node, error) {
	present, err := wire.ReadByte(r)
	if err != nil {
		return nil, err
	}
	if present != presentYes {
		return nil, nil
	}
	return DecodeNode(r, indexDir, dim)
}
