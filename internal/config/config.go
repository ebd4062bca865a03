// Package config carries the shared, read-only configuration that every
// indexing and search component consults. Unlike the teacher's process-wide
// singletons, Config is a plain value constructed once by the driver and
// passed by pointer to every constructor that needs it (REDESIGN note,
// spec.md §9: "pass a Config value by shared immutable reference").
package config

import (
	"io"

	"github.com/pkg/errors"

	"github.com/ngina/ktreego/internal/ktreeerr"
	"github.com/ngina/ktreego/internal/wire"
)

// Mode selects whether the driver is building or querying an index.
type Mode int

const (
	// ModeIndex builds a fresh index from a dataset file.
	ModeIndex Mode = iota
	// ModeQuery loads an existing index and answers queries.
	ModeQuery
)

func (m Mode) String() string {
	if m == ModeQuery {
		return "query"
	}
	return "index"
}

// Config is the immutable configuration consulted by the tree builder,
// the summarizer, the searcher, and the codec.
type Config struct {
	Dataset     string
	Queries     string
	IndexPath   string
	DatasetSize int
	QueriesSize int // 0 means "all queries in file"; never persisted, see Encode.
	Dimensions  int
	LeafSize    int
	TopK        int
	K           int // nearest-neighbor result-set size; independent of TopK, see Validate.
	Mode        Mode

	// Workers selects the parallel build worker pool size. Workers<=1
	// selects the single-threaded stack traversal (spec.md §4.6); Workers>1
	// selects the worker-pool traversal (spec.md §4.7).
	Workers int

	// Seed, if non-nil, seeds the projection kernel's RNG for reproducible
	// builds (spec.md §9 open question #4). A nil Seed draws fresh entropy
	// per node, matching the source's non-deterministic default.
	Seed *int64
}

// Validate checks the numeric and mode invariants spec.md §6 lists for the
// CLI flags. It does not check file existence; that is the build/load
// path's job.
func (c *Config) Validate() error {
	if c.Dimensions <= 0 {
		return invalid("dimensions", c.Dimensions)
	}
	if c.LeafSize <= 0 {
		return invalid("leaf_size", c.LeafSize)
	}
	if c.TopK <= 0 {
		return invalid("top_k", c.TopK)
	}
	if c.Mode == ModeIndex && c.DatasetSize <= 0 {
		return invalid("dataset_size", c.DatasetSize)
	}
	if c.Mode == ModeQuery && c.K <= 0 {
		return invalid("k", c.K)
	}
	return nil
}

// Encode writes the persisted configuration subset spec.md §4.9
// specifies: dataset_size, dimensions, leaf_size, top_k. QueriesSize is
// deliberately excluded (spec.md §9 open question #3).
func (c *Config) Encode(w io.Writer) error {
	for _, v := range []int{c.DatasetSize, c.Dimensions, c.LeafSize, c.TopK} {
		if err := wire.WriteInt64(w, int64(v)); err != nil {
			return err
		}
	}
	return nil
}

// Decode reads the persisted configuration subset into c, leaving every
// other field (Dataset, Queries, IndexPath, QueriesSize, Mode, Workers,
// Seed) untouched.
func (c *Config) Decode(r io.Reader) error {
	datasetSize, err := wire.ReadInt64(r)
	if err != nil {
		return err
	}
	dimensions, err := wire.ReadInt64(r)
	if err != nil {
		return err
	}
	leafSize, err := wire.ReadInt64(r)
	if err != nil {
		return err
	}
	topK, err := wire.ReadInt64(r)
	if err != nil {
		return err
	}
	c.DatasetSize = int(datasetSize)
	c.Dimensions = int(dimensions)
	c.LeafSize = int(leafSize)
	c.TopK = int(topK)
	return nil
}

func invalid(name string, value int) error {
	return errors.Wrapf(ktreeerr.ErrInvalidArgument, "%s = %d", name, value)
}
