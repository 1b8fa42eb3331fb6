// Package manifest records Adler-32 and CRC-32 values for every file under a
// directory and later verifies the tree against them.
package manifest

import (
	"context"
	"encoding/json"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/rivetq/rivetsum/internal/metrics"
	"github.com/rivetq/rivetsum/internal/store"
	"github.com/rivetq/rivetsum/pkg/checksum"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const (
	entryPrefix = "entry/"
	runPrefix   = "run/"

	DefaultChunkSize = 64 * 1024
)

// Options configures an Indexer.
type Options struct {
	Workers   int // defaults to 1
	ChunkSize int // defaults to DefaultChunkSize
}

// RunStats describes one Index run. It is stored under run/<id>.
type RunStats struct {
	ID              string            `json:"id"`
	Root            string            `json:"root"`
	StartedAt       time.Time         `json:"started_at"`
	FinishedAt      time.Time         `json:"finished_at"`
	Files           int               `json:"files"`
	Bytes           int64             `json:"bytes"`
	Removed         int               `json:"removed"`
	Implementations map[string]string `json:"implementations"`
}

// Reason explains a verification mismatch.
type Reason string

const (
	ReasonChanged Reason = "changed"
	ReasonMissing Reason = "missing"
	ReasonNew     Reason = "new"
)

// Mismatch is a file whose state differs from the manifest.
type Mismatch struct {
	Path     string `json:"path"`
	Reason   Reason `json:"reason"`
	Expected *Entry `json:"expected,omitempty"`
	Actual   *Entry `json:"actual,omitempty"`
}

// Indexer builds and checks manifests in a store.
type Indexer struct {
	store     *store.Store
	workers   int
	chunkSize int
}

// New creates a new Indexer.
func New(s *store.Store, opts Options) *Indexer {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.ChunkSize < 1 {
		opts.ChunkSize = DefaultChunkSize
	}
	return &Indexer{
		store:     s,
		workers:   opts.Workers,
		chunkSize: opts.ChunkSize,
	}
}

// Index checksums every regular file under root, replaces the stored
// entries with the result and records the run.
func (ix *Indexer) Index(ctx context.Context, root string) (*RunStats, error) {
	stats := &RunStats{
		ID:        uuid.New().String(),
		Root:      root,
		StartedAt: time.Now(),
	}

	entries, err := ix.scan(ctx, root)
	if err != nil {
		return nil, err
	}

	previous, err := ix.Entries()
	if err != nil {
		return nil, err
	}

	for _, e := range entries {
		data, err := e.Marshal()
		if err != nil {
			return nil, err
		}
		if err := ix.store.Set(entryKey(e.Path), data); err != nil {
			return nil, errors.Wrapf(err, "failed to store entry %s", e.Path)
		}
		delete(previous, e.Path)
		stats.Files++
		stats.Bytes += e.Size
	}
	metrics.ManifestFilesTotal.WithLabelValues("indexed").Add(float64(len(entries)))

	for path := range previous {
		if err := ix.store.Delete(entryKey(path)); err != nil {
			return nil, errors.Wrapf(err, "failed to remove entry %s", path)
		}
		stats.Removed++
	}
	metrics.ManifestFilesTotal.WithLabelValues("removed").Add(float64(stats.Removed))

	stats.Implementations = implementations()
	stats.FinishedAt = time.Now()
	if err := ix.store.SetJSON([]byte(runPrefix+stats.ID), stats); err != nil {
		return nil, errors.Wrap(err, "failed to store run record")
	}

	log.Info().
		Str("run", stats.ID).
		Str("root", root).
		Int("files", stats.Files).
		Int64("bytes", stats.Bytes).
		Int("removed", stats.Removed).
		Dur("elapsed", stats.FinishedAt.Sub(stats.StartedAt)).
		Msg("Indexed directory")

	return stats, nil
}

// Verify recomputes the checksums under root and reports every file that is
// changed, missing or not yet in the manifest, sorted by path.
func (ix *Indexer) Verify(ctx context.Context, root string) ([]Mismatch, error) {
	expected, err := ix.Entries()
	if err != nil {
		return nil, err
	}

	actual, err := ix.scan(ctx, root)
	if err != nil {
		return nil, err
	}

	var mismatches []Mismatch
	for _, a := range actual {
		e, ok := expected[a.Path]
		switch {
		case !ok:
			mismatches = append(mismatches, Mismatch{Path: a.Path, Reason: ReasonNew, Actual: a})
		case !e.Same(a):
			mismatches = append(mismatches, Mismatch{Path: a.Path, Reason: ReasonChanged, Expected: e, Actual: a})
		default:
			metrics.ManifestFilesTotal.WithLabelValues("ok").Inc()
		}
		delete(expected, a.Path)
	}
	for path, e := range expected {
		mismatches = append(mismatches, Mismatch{Path: path, Reason: ReasonMissing, Expected: e})
	}

	sort.Slice(mismatches, func(i, j int) bool {
		return mismatches[i].Path < mismatches[j].Path
	})
	for _, m := range mismatches {
		metrics.ManifestFilesTotal.WithLabelValues(string(m.Reason)).Inc()
	}
	return mismatches, nil
}

// Entries loads every stored entry keyed by path.
func (ix *Indexer) Entries() (map[string]*Entry, error) {
	entries := make(map[string]*Entry)
	err := ix.store.Scan([]byte(entryPrefix), func(key, value []byte) error {
		var e Entry
		if err := e.Unmarshal(value); err != nil {
			return errors.Wrapf(err, "entry %s", key[len(entryPrefix):])
		}
		entries[e.Path] = &e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Runs loads every stored run record, oldest first.
func (ix *Indexer) Runs() ([]*RunStats, error) {
	var runs []*RunStats
	err := ix.store.Scan([]byte(runPrefix), func(key, value []byte) error {
		run := new(RunStats)
		if err := json.Unmarshal(value, run); err != nil {
			return errors.Wrapf(err, "run %s", key[len(runPrefix):])
		}
		runs = append(runs, run)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].StartedAt.Before(runs[j].StartedAt)
	})
	return runs, nil
}

// scan checksums every regular file under root with a bounded worker pool.
func (ix *Indexer) scan(ctx context.Context, root string) ([]*Entry, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			paths = append(paths, path)
		}
		return ctx.Err()
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to walk %s", root)
	}

	entries := make([]*Entry, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(ix.workers)

	var bufs sync.Pool
	bufs.New = func() interface{} {
		b := make([]byte, ix.chunkSize)
		return &b
	}

	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			buf := bufs.Get().(*[]byte)
			defer bufs.Put(buf)

			e, err := sumFile(ctx, path, *buf)
			if err != nil {
				return err
			}
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return errors.Wrapf(err, "failed to relativize %s", path)
			}
			e.Path = filepath.ToSlash(rel)
			entries[i] = e
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return entries, nil
}

// sumFile folds both checksums over the file one chunk at a time.
func sumFile(ctx context.Context, path string, buf []byte) (*Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", path)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to stat %s", path)
	}

	e := &Entry{
		ModTime: info.ModTime(),
		Adler32: checksum.KindAdler32.Initial(),
		CRC32:   checksum.KindCRC32.Initial(),
	}
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := f.Read(buf)
		if n > 0 {
			e.Adler32 = checksum.Adler32(e.Adler32, buf[:n])
			e.CRC32 = checksum.CRC32(e.CRC32, buf[:n])
			e.Size += int64(n)
		}
		if err == io.EOF {
			return e, nil
		}
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read %s", path)
		}
	}
}

func entryKey(path string) []byte {
	return []byte(entryPrefix + path)
}

func implementations() map[string]string {
	kinds := checksum.Kinds()
	impls := make(map[string]string, len(kinds))
	for _, k := range kinds {
		impls[k.String()] = checksum.Implementation(k)
	}
	return impls
}
