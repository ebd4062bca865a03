// Command ktree builds and queries a disk-resident approximate
// nearest-neighbor index: a binary partitioning tree whose splits come
// from a random-Fourier-feature projection kernel (spec.md). Grounded on
// the source's Args/Config CLI glue, reworked as cobra subcommands in
// the idiom panyam-sdl's cmd/sdl/commands uses.
package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ngina/ktreego/internal/config"
	"github.com/ngina/ktreego/internal/index"
)

var cfg config.Config

var rootCmd = &cobra.Command{
	Use:   "ktree",
	Short: "ktree builds and queries a kernel-PCA binary partitioning index",
}

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build a fresh index from a dataset file",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg.Mode = config.ModeIndex
		if err := cfg.Validate(); err != nil {
			return err
		}
		idx := index.New()
		if err := idx.Build(&cfg); err != nil {
			return err
		}
		return idx.Save(&cfg)
	},
}

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Load an existing index and answer queries from a file",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg.Mode = config.ModeQuery
		idx := index.New()
		if err := idx.Load(&cfg); err != nil {
			return err
		}
		// Dimensions/LeafSize/TopK are now the persisted subset Load just
		// merged in; only K (never persisted) comes from this invocation's
		// flags, so Validate here only really gates it.
		if err := cfg.Validate(); err != nil {
			return err
		}
		return idx.Search(&cfg, os.Stdout)
	},
}

func init() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	for _, cmd := range []*cobra.Command{indexCmd, queryCmd} {
		cmd.Flags().StringVar(&cfg.Dataset, "dataset", "", "input point file (build mode)")
		cmd.Flags().StringVar(&cfg.Queries, "queries", "", "query point file (query mode)")
		cmd.Flags().StringVar(&cfg.IndexPath, "index", "", "index directory")
		cmd.Flags().IntVar(&cfg.DatasetSize, "dataset_size", 0, "number of points to index from dataset")
		cmd.Flags().IntVar(&cfg.QueriesSize, "queries_size", 0, "number of queries to answer; 0 means all")
		cmd.Flags().IntVar(&cfg.Dimensions, "dimensions", 0, "vector dimensionality")
		cmd.Flags().IntVar(&cfg.LeafSize, "leaf_size", 1, "max points per leaf")
		cmd.Flags().IntVar(&cfg.TopK, "top_k", 5, "feature-selection top-k dimensions per split")
		cmd.Flags().IntVar(&cfg.K, "k", 1, "nearest-neighbor result-set size (query mode)")
		cmd.Flags().IntVar(&cfg.Workers, "workers", 1, "parallel build worker count; <=1 is single-threaded")
		rootCmd.AddCommand(cmd)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("ktree failed")
		os.Exit(1)
	}
}
