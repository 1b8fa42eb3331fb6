package main

import (
	"fmt"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/rivetq/rivetsum/internal/manifest"
	"github.com/rivetq/rivetsum/internal/store"
	"github.com/spf13/cobra"
)

// openIndexer opens the manifest store under the data directory.
func (a *app) openIndexer() (*manifest.Indexer, func() error, error) {
	s, err := store.New(filepath.Join(a.cfg.Storage.DataDir, "manifest"))
	if err != nil {
		return nil, nil, err
	}
	ix := manifest.New(s, manifest.Options{
		Workers:   a.cfg.ManifestWorkers(),
		ChunkSize: a.cfg.Manifest.ChunkSize,
	})
	return ix, s.Close, nil
}

func newIndexCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "index <dir>",
		Short: "Record the checksums of every file under a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ix, closeStore, err := a.openIndexer()
			if err != nil {
				return err
			}
			defer closeStore()

			stats, err := ix.Index(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "run %s: %d files, %d bytes, %d removed\n",
				stats.ID, stats.Files, stats.Bytes, stats.Removed)
			return nil
		},
	}
}

func newVerifyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <dir>",
		Short: "Compare a directory against its recorded checksums",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ix, closeStore, err := a.openIndexer()
			if err != nil {
				return err
			}
			defer closeStore()

			mismatches, err := ix.Verify(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			for _, m := range mismatches {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", m.Reason, m.Path)
			}
			if len(mismatches) > 0 {
				return errors.Newf("%d files differ from the manifest", len(mismatches))
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		},
	}
}
