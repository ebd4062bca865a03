// Package index sequences build->save and load->search: the driver glue
// spec.md scopes as an external collaborator, but which the source's own
// Index class (ktreelib/index.cpp) implements directly -- constructing a
// tree, driving its build, then serializing it, all in one place.
package index

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/ngina/ktreego/internal/codec"
	"github.com/ngina/ktreego/internal/config"
	"github.com/ngina/ktreego/internal/ktreeerr"
	"github.com/ngina/ktreego/internal/tree"
	"github.com/ngina/ktreego/internal/vector"
)

// binFilename is the fixed name of the on-disk tree+config dump inside
// an index directory.
const binFilename = "index.bin"

// Index owns the in-memory tree built or loaded for one index directory.
type Index struct {
	root *tree.Node
}

// New returns an empty Index.
func New() *Index {
	return &Index{}
}

// Build creates cfg.IndexPath (failing if it already exists) and grows a
// fresh tree over cfg.Dataset, choosing the sequential or worker-pool
// builder depending on cfg.Workers.
func (idx *Index) Build(cfg *config.Config) error {
	if _, err := os.Stat(cfg.IndexPath); err == nil {
		return errors.Wrapf(ktreeerr.ErrIndexExists, "%s", cfg.IndexPath)
	} else if !os.IsNotExist(err) {
		return errors.Wrapf(ktreeerr.ErrIO, "stating %s: %v", cfg.IndexPath, err)
	}

	if err := os.MkdirAll(cfg.IndexPath, 0o755); err != nil {
		return errors.Wrapf(ktreeerr.ErrIndexCreateFailed, "%s: %v", cfg.IndexPath, err)
	}

	log.Info().Str("index_path", cfg.IndexPath).Msg("building index")

	builder := tree.NewBuilder(cfg, cfg.IndexPath)
	var root *tree.Node
	var err error
	if cfg.Workers > 1 {
		root, err = builder.BuildParallel(cfg.Dataset, cfg.DatasetSize, cfg.Workers)
	} else {
		root, err = builder.BuildSequential(cfg.Dataset, cfg.DatasetSize)
	}
	if err != nil {
		return err
	}

	idx.root = root
	leaves, internals := root.Count()
	log.Info().Int("leaves", leaves).Int("internals", internals).Msg("index built")
	return nil
}

// Save writes the built/loaded tree and the persisted configuration
// subset to cfg.IndexPath/index.bin.
func (idx *Index) Save(cfg *config.Config) error {
	path := filepath.Join(cfg.IndexPath, binFilename)
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(ktreeerr.ErrIO, "creating %s: %v", path, err)
	}
	defer f.Close()

	if err := codec.EncodeIndex(f, cfg, idx.root); err != nil {
		return err
	}
	log.Info().Str("path", path).Msg("index saved")
	return nil
}

// Load reads cfg.IndexPath/index.bin, populating idx's tree and merging
// the persisted configuration subset into cfg.
func (idx *Index) Load(cfg *config.Config) error {
	path := filepath.Join(cfg.IndexPath, binFilename)
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(ktreeerr.ErrIO, "opening %s: %v", path, err)
	}
	defer f.Close()

	root, err := codec.DecodeIndex(f, cfg, cfg.IndexPath)
	if err != nil {
		return err
	}
	idx.root = root

	leaves, internals := root.Count()
	log.Info().Int("leaves", leaves).Int("internals", internals).Msg("index loaded")
	return nil
}

// Search loads cfg.Queries (honoring QueriesSize == 0 meaning "all") and
// writes one CSV row per query to w: Query ID, Query Time, Distance
// Computations, Visit Count.
func (idx *Index) Search(cfg *config.Config, w io.Writer) error {
	all := cfg.QueriesSize == 0
	queries, err := vector.LoadFromFile(cfg.Queries, cfg.Dimensions, all, cfg.QueriesSize)
	if err != nil {
		return err
	}

	searcher := tree.NewSearcher(idx.root)

	if _, err := fmt.Fprintln(w, "Query ID, Query Time, Distance Computations, Visit Count"); err != nil {
		return errors.Wrap(ktreeerr.ErrIO, err.Error())
	}

	for i := 0; i < queries.Size(); i++ {
		q := queries.At(i)
		start := time.Now()
		rs, err := searcher.Search(q, cfg.K)
		if err != nil {
			return err
		}
		elapsed := time.Since(start)

		if _, err := fmt.Fprintf(w, "%d, %s, %d, %d\n", i, elapsed, rs.DistanceComputations, rs.VisitCount); err != nil {
			return errors.Wrap(ktreeerr.ErrIO, err.Error())
		}
	}
	return nil
}
