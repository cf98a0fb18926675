package install

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	cottonerrors "github.com/danielhuang/cotton/pkg/errors"
	"github.com/danielhuang/cotton/pkg/layout"
	"github.com/danielhuang/cotton/pkg/registry"
)

// DefaultConcurrency is the installer's default download/materialisation
// fan-out, cores times four per spec §4.G.
func DefaultConcurrency() int {
	return runtime.NumCPU() * 4
}

// Fetcher streams a package tarball; satisfied by *registry.Client.
type Fetcher interface {
	FetchTarball(ctx context.Context, url string, expected registry.Digest) (io.ReadCloser, error)
}

// Store is the subset of *store.Store the installer depends on.
type Store interface {
	Has(digest registry.Digest) bool
	Insert(expected registry.Digest, r io.Reader) (registry.Digest, error)
	Materialise(digest registry.Digest, dest string) error
}

// Installer drives fetch, extract, and link according to a layout plan.
type Installer struct {
	fetcher     Fetcher
	store       Store
	concurrency int
	logger      *log.Logger
}

// New builds an Installer. A concurrency of 0 selects DefaultConcurrency().
func New(fetcher Fetcher, store Store, concurrency int, logger *log.Logger) *Installer {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Installer{fetcher: fetcher, store: store, concurrency: concurrency, logger: logger}
}

// Install fetches every tarball plan needs that isn't already in the
// archive store, then materialises every placement under root.
func (i *Installer) Install(ctx context.Context, root string, plan *layout.Plan) error {
	digests, err := i.fetchMissing(ctx, plan)
	if err != nil {
		return err
	}
	if err := i.unlinkPriorInstalls(root, plan); err != nil {
		return err
	}
	return i.materialiseAll(ctx, root, plan, digests)
}

// fetchMissing concurrently downloads and inserts every tarball the store
// doesn't already have, returning the resolved digest for every placement
// (identical to Record.Integrity unless the record carried no digest, in
// which case it is the digest the store computed and self-addressed by).
func (i *Installer) fetchMissing(ctx context.Context, plan *layout.Plan) (map[string]registry.Digest, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(i.concurrency)

	var mu sync.Mutex
	resolved := make(map[string]registry.Digest, len(plan.Placements))
	seen := make(map[string]bool, len(plan.Placements))

	for _, p := range plan.Placements {
		p := p
		url := p.Record.TarballURL
		if url == "" || seen[url] {
			continue
		}
		seen[url] = true

		expected := p.Record.Integrity
		if !expected.IsZero() && i.store.Has(expected) {
			mu.Lock()
			resolved[url] = expected
			mu.Unlock()
			continue
		}

		g.Go(func() error {
			body, err := i.fetcher.FetchTarball(gctx, url, expected)
			if err != nil {
				return cottonerrors.Wrap(cottonerrors.ErrCodeNetwork, err, "fetch %s", url)
			}
			defer body.Close()

			actual, err := i.store.Insert(expected, body)
			if err != nil {
				return err
			}

			i.logger.Debug("inserted tarball", "url", url, "digest", actual.String())
			mu.Lock()
			resolved[url] = actual
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return resolved, nil
}

// unlinkPriorInstalls atomically moves any existing top-level placement
// directory under root out of the way, renaming it aside and deleting it
// asynchronously so a crash mid-unlink never leaves a mix of old and new
// files; no empty directory is left in its place. Directories outside the set of top-level placement
// names (notably the archive store itself) are left untouched.
func (i *Installer) unlinkPriorInstalls(root string, plan *layout.Plan) error {
	names := map[string]bool{}
	for _, p := range plan.Placements {
		names[topSegment(p.Path)] = true
	}

	topLevel := make([]string, 0, len(names))
	for name := range names {
		topLevel = append(topLevel, name)
	}
	sort.Strings(topLevel)

	for _, name := range topLevel {
		dir := filepath.Join(root, name)
		if _, err := os.Lstat(dir); os.IsNotExist(err) {
			continue
		}
		stale, err := os.MkdirTemp(root, ".cotton-stale-*")
		if err != nil {
			return cottonerrors.Wrap(cottonerrors.ErrCodeInvalidPath, err, "stage removal of %s", dir)
		}
		staleDir := filepath.Join(stale, name)
		if err := os.Rename(dir, staleDir); err != nil {
			return cottonerrors.Wrap(cottonerrors.ErrCodeInternal, err, "unlink prior install of %s", name)
		}
		go func(path string) {
			if err := os.RemoveAll(path); err != nil {
				i.logger.Warn("failed to clean up stale install directory", "path", path, "error", err)
			}
		}(stale)
	}
	return nil
}

// materialiseAll populates every placement's directory from the archive
// store. Placements are disjoint by construction, so they proceed fully
// in parallel up to the installer's concurrency limit.
func (i *Installer) materialiseAll(ctx context.Context, root string, plan *layout.Plan, digests map[string]registry.Digest) error {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return cottonerrors.Wrap(cottonerrors.ErrCodeInvalidPath, err, "create dependency root %s", root)
	}

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(i.concurrency)

	for _, p := range plan.Placements {
		p := p
		g.Go(func() error {
			digest := p.Record.Integrity
			if resolved, ok := digests[p.Record.TarballURL]; ok {
				digest = resolved
			}
			dest := filepath.Join(root, p.Path)
			if err := i.store.Materialise(digest, dest); err != nil {
				return cottonerrors.Wrap(cottonerrors.ErrCodeInternal, err, "materialise %s@%s", p.Pin.Name, p.Pin.Version)
			}
			return nil
		})
	}
	return g.Wait()
}

func topSegment(path string) string {
	if idx := strings.IndexByte(path, filepath.Separator); idx >= 0 {
		return path[:idx]
	}
	return path
}
