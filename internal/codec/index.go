package codec

import (
	"io"

	"github.com/ngina/ktreego/internal/config"
	"github.com/ngina/ktreego/internal/tree"
)

// EncodeIndex writes the persisted configuration subset (dataset_size,
// dimensions, leaf_size, top_k -- QueriesSize excluded, spec.md §9 open
// question #3) followed by the tree, matching spec.md §4.9's "Index
// wrapper serializes a fixed subset of configuration... then the tree".
func EncodeIndex(w io.Writer, cfg *config.Config, root *tree.Node) error {
	if err := cfg.Encode(w); err != nil {
		return err
	}
	return EncodeTree(w, root)
}

// DecodeIndex is the symmetric counterpart of EncodeIndex. It decodes the
// persisted configuration subset into cfg in place (leaving cfg's
// non-persisted fields such as Dataset/Queries/IndexPath/Mode untouched)
// and returns the decoded tree, eagerly re-reading every LEAF's data file
// from indexDir.
func DecodeIndex(r io.Reader, cfg *config.Config, indexDir string) (*tree.Node, error) {
	if err := cfg.Decode(r); err != nil {
		return nil, err
	}
	return DecodeTree(r, indexDir, cfg.Dimensions)
}
