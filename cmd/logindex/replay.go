package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/datatrails/go-datatrails-common/azblob"
	"github.com/datatrails/go-datatrails-common/logger"
	"github.com/forestrie/go-logindex/archive"
	"github.com/forestrie/go-logindex/bintree"
	"github.com/forestrie/go-logindex/logindex"
	"github.com/forestrie/go-logindex/nodestore"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

type ReplayFlags struct {
	Feed      string
	Store     string
	Path      string
	CacheSize int
	Hasher    string
	Snapshot  string
	Params    string

	MetricsAddr string

	ArchiveContainer string
	IndexName        string
}

var replayFlags ReplayFlags

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Build an index from a block feed",
	Long: `replay reads a feed of blocks, in JSON, and adds each to a new log index.
Nodes dropped from memory are kept in the chosen node store. The final entry
count and root are printed.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logger.Sugar.WithServiceName("logindex")
		return replay(cmd.Context(), log, replayFlags, cmd.OutOrStdout())
	},
}

func init() {
	replayCmd.Flags().StringVar(&replayFlags.Feed, "feed", "-", "block feed, - for stdin")
	replayCmd.Flags().StringVar(&replayFlags.Store, "store", nodestore.KindMemory, "node store: memory|leveldb|pebble|badger")
	replayCmd.Flags().StringVar(&replayFlags.Path, "path", "", "node store location, empty for in memory")
	replayCmd.Flags().IntVar(&replayFlags.CacheSize, "cache-size", nodestore.DefaultCacheSize, "node read cache entries")
	replayCmd.Flags().StringVar(&replayFlags.Hasher, "hasher", "sha256", "node hasher: sha256|blake3")
	replayCmd.Flags().StringVar(&replayFlags.Snapshot, "snapshot", "", "write the final snapshot to this file")
	replayCmd.Flags().StringVar(&replayFlags.Params, "params", "", "JSON file of index parameters, the mainnet defaults if empty")
	replayCmd.Flags().StringVar(&replayFlags.MetricsAddr, "metrics-addr", "", "serve prometheus metrics on this address")
	replayCmd.Flags().StringVar(&replayFlags.ArchiveContainer, "archive-container", "", "commit the final snapshot to this container of the blob store emulator")
	replayCmd.Flags().StringVar(&replayFlags.IndexName, "index-name", "", "name of the index in the archive, a new uuid if empty")
}

func newHasherOption(name string) (logindex.Option, error) {
	switch name {
	case "sha256", "":
		return logindex.WithHasher(bintree.NewSHA256Hasher), nil
	case "blake3":
		return logindex.WithHasher(bintree.NewBlake3Hasher), nil
	}
	return nil, fmt.Errorf("unknown hasher %q", name)
}

// loadParams reads index parameters from a JSON file. Fields absent from the
// file keep their default.
func loadParams(path string) (logindex.Params, error) {
	params := logindex.DefaultParams()
	if path == "" {
		return params, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return params, err
	}
	if err := json.Unmarshal(data, &params); err != nil {
		return params, fmt.Errorf("params %s: %w", path, err)
	}
	return params, params.Validate()
}

func openFeed(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(path)
}

func replay(ctx context.Context, log logger.Logger, flags ReplayFlags, out io.Writer) error {
	hasher, err := newHasherOption(flags.Hasher)
	if err != nil {
		return err
	}
	params, err := loadParams(flags.Params)
	if err != nil {
		return err
	}

	store, err := nodestore.Open(log, flags.Store, flags.Path)
	if err != nil {
		return err
	}
	defer store.Close()
	cached, err := nodestore.NewCachedReader(store, flags.CacheSize)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	metrics := logindex.NewMetrics(reg)
	if flags.MetricsAddr != "" {
		srv := &http.Server{
			Addr:              flags.MetricsAddr,
			Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Infof("metrics server: %v", err)
			}
		}()
		defer srv.Close()
	}

	s, err := logindex.NewState(log,
		logindex.WithParams(params),
		hasher,
		logindex.WithCollapseSink(store),
		logindex.WithNodeReader(cached),
		logindex.WithMetrics(metrics),
	)
	if err != nil {
		return err
	}

	f, err := openFeed(flags.Feed)
	if err != nil {
		return err
	}
	defer f.Close()

	feed := NewFeedReader(f)
	blocks := 0
	for {
		b, err := feed.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		// batch the nodes each block collapses
		store.StartBatch()
		if err := b.Apply(s); err != nil {
			// the index is left part way through the block
			store.DiscardBatch()
			return err
		}
		if err := store.FinishBatch(); err != nil {
			return err
		}
		blocks++
	}

	root, err := s.Root()
	if err != nil {
		return err
	}
	log.Infof("replayed %d blocks, %d resident nodes", blocks, s.ResidentNodes())
	fmt.Fprintf(out, "next_entry: %d\nroot: %s\n", s.NextEntry(), root.Hex())

	if flags.Snapshot == "" && flags.ArchiveContainer == "" {
		return nil
	}
	snap := s.Snapshot()
	if flags.Snapshot != "" {
		data, err := snap.Encode()
		if err != nil {
			return err
		}
		if err := os.WriteFile(flags.Snapshot, data, 0o644); err != nil {
			return err
		}
	}
	if flags.ArchiveContainer != "" {
		return commitArchive(ctx, log, flags, snap, out)
	}
	return nil
}

func commitArchive(ctx context.Context, log logger.Logger, flags ReplayFlags, snap *logindex.Snapshot, out io.Writer) error {
	storer, err := azblob.NewDev(azblob.NewDevConfigFromEnv(), flags.ArchiveContainer)
	if err != nil {
		return fmt.Errorf("failed to connect to blob store emulator: %w", err)
	}
	name := flags.IndexName
	if name == "" {
		name = uuid.NewString()
	}
	if _, err := archive.NewCommitter(log, storer).CommitSnapshot(ctx, name, snap); err != nil {
		return err
	}
	fmt.Fprintf(out, "archived: %s\n", archive.IndexSnapshotPath(name, snap.NextEntry))
	return nil
}
