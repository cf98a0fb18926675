package resolve

import (
	"context"
	"fmt"
	"sync"

	mastersemver "github.com/Masterminds/semver/v3"
	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/danielhuang/cotton/pkg/depgraph"
	cottonerrors "github.com/danielhuang/cotton/pkg/errors"
	"github.com/danielhuang/cotton/pkg/manifest"
	"github.com/danielhuang/cotton/pkg/registry"
	cottonsemver "github.com/danielhuang/cotton/pkg/semver"
)

// Mode selects how the resolver treats an existing lockfile entry.
type Mode int

const (
	// RespectLockfile reuses a lockfile's pinned version for a (name,
	// range) pair whenever that version still satisfies range.
	RespectLockfile Mode = iota
	// Update ignores the lockfile and re-solves every range against the
	// live registry.
	Update
)

// DefaultConcurrency bounds the number of dependency requests the
// resolver processes in flight at once.
const DefaultConcurrency = 32

// Fetcher is the subset of the registry client the resolver depends on.
type Fetcher interface {
	FetchMetadata(ctx context.Context, name string) (*registry.PackageDoc, error)
}

// LockfileLookup is consulted in [RespectLockfile] mode to short-circuit
// re-solving a range that a prior run already pinned.
type LockfileLookup interface {
	// Lookup returns the version a prior run pinned for (name, rng), and
	// whether that entry exists at all. The resolver independently
	// verifies the returned version still satisfies rng before reusing it.
	Lookup(name, rng string) (version string, ok bool)

	// Record returns the ManifestRecord a prior run recorded for (name,
	// version), letting the resolver expand a reused pin's dependencies
	// without a registry round trip.
	Record(name, version string) (registry.ManifestRecord, bool)
}

// DirectKey identifies one of the project manifest's direct dependencies.
type DirectKey = depgraph.DirectKey

// Result is the resolver's output: the pinned graph, and the concrete
// pin chosen for each of the manifest's direct dependencies.
type Result struct {
	Graph  *depgraph.Graph
	Direct map[DirectKey]depgraph.Pin
}

// Resolver expands a project manifest into a pinned dependency graph.
type Resolver struct {
	fetcher     Fetcher
	concurrency int
	logger      *log.Logger
}

// New constructs a Resolver. A zero concurrency uses [DefaultConcurrency].
func New(fetcher Fetcher, concurrency int, logger *log.Logger) *Resolver {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Resolver{fetcher: fetcher, concurrency: concurrency, logger: logger}
}

// request is one unit of resolver work: a dependency range to solve, on
// behalf of requestor, under the name it was requested as.
type request struct {
	name      string
	rng       string
	requestor depgraph.Pin
	optional  bool
}

// Resolve expands m's dependencies (and optionalDependencies) into a
// pinned graph, consulting lock in RespectLockfile mode.
func (r *Resolver) Resolve(ctx context.Context, m *manifest.Manifest, lock LockfileLookup, mode Mode) (*Result, error) {
	graph := depgraph.New()
	direct := newDirectTracker()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for name, rng := range m.Dependencies {
		req := request{name: name, rng: rng, requestor: depgraph.Root}
		g.Go(func() error { return r.process(gctx, g, graph, lock, mode, req, direct) })
	}
	for name, rng := range m.OptionalDependencies {
		if _, ok := m.Dependencies[name]; ok {
			// dependencies wins over optionalDependencies on a name conflict.
			continue
		}
		req := request{name: name, rng: rng, requestor: depgraph.Root, optional: true}
		g.Go(func() error { return r.process(gctx, g, graph, lock, mode, req, direct) })
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &Result{Graph: graph, Direct: direct.snapshot()}, nil
}

func (r *Resolver) process(
	ctx context.Context,
	g *errgroup.Group,
	graph *depgraph.Graph,
	lock LockfileLookup,
	mode Mode,
	req request,
	direct *directTracker,
) error {
	pin, record, err := r.solve(ctx, lock, mode, req)
	if err != nil {
		if req.optional {
			r.logger.Warn("dropping optional dependency", "name", req.name, "range", req.rng, "error", err)
			return nil
		}
		return fmt.Errorf("resolving %s@%s (requested by %s): %w", req.name, req.rng, describe(req.requestor), err)
	}

	if req.requestor == depgraph.Root {
		direct.set(DirectKey{Name: req.name, Range: req.rng}, pin)
	} else if requestorNode, ok := graph.Get(req.requestor); ok {
		requestorNode.SetEdge(req.name, pin)
	}

	node, created := graph.GetOrCreate(pin)
	if !created {
		return nil
	}

	node.Record = record
	for dep, depRange := range record.Dependencies {
		child := request{name: dep, rng: depRange, requestor: pin}
		g.Go(func() error { return r.process(ctx, g, graph, lock, mode, child, direct) })
	}
	for dep, depRange := range record.OptionalDependencies {
		if _, ok := record.Dependencies[dep]; ok {
			// dependencies wins over optionalDependencies on a name conflict.
			continue
		}
		child := request{name: dep, rng: depRange, requestor: pin, optional: true}
		g.Go(func() error { return r.process(ctx, g, graph, lock, mode, child, direct) })
	}
	node.Close()
	return nil
}

// solve resolves a single (name, range) request to a concrete pin and its
// registry record. In RespectLockfile mode it first tries to satisfy the
// request entirely from lock, without contacting the registry at all;
// only when the lockfile doesn't fully determine the pin does it fall
// through to a live metadata fetch.
func (r *Resolver) solve(ctx context.Context, lock LockfileLookup, mode Mode, req request) (depgraph.Pin, registry.ManifestRecord, error) {
	rng, err := cottonsemver.ParseRange(req.rng)
	if err != nil {
		return depgraph.Pin{}, registry.ManifestRecord{}, cottonerrors.Wrap(cottonerrors.ErrCodeInvalidInput, err, "range %q for %s", req.rng, req.name)
	}

	// Lockfile reuse only applies to ordinary version constraints: a
	// dist-tag or tarball-URL range is "live" by nature, so what it
	// resolved to last time is not evidence of what it resolves to now.
	if mode == RespectLockfile && lock != nil && !rng.IsDistTag() && !rng.IsTarballURL() {
		if pin, record, ok := reuseFromLockfile(lock, rng, req.name); ok {
			return pin, record, nil
		}
	}

	doc, err := r.fetcher.FetchMetadata(ctx, req.name)
	if err != nil {
		return depgraph.Pin{}, registry.ManifestRecord{}, err
	}

	versions := make([]*mastersemver.Version, 0, len(doc.Versions))
	for raw := range doc.Versions {
		v, err := mastersemver.NewVersion(raw)
		if err != nil {
			continue
		}
		versions = append(versions, v)
	}

	v, err := cottonsemver.Solve(rng, cottonsemver.Candidates{Versions: versions, DistTags: doc.DistTags})
	if err != nil {
		return depgraph.Pin{}, registry.ManifestRecord{}, err
	}

	record, ok := doc.Versions[v.Original()]
	if !ok {
		record = doc.Versions[v.String()]
	}
	if rng.IsTarballURL() {
		record = registry.ManifestRecord{
			Name:       req.name,
			Version:    v.String(),
			TarballURL: rng.TarballURL(),
		}
	}
	return depgraph.Pin{Name: req.name, Version: v.String()}, record, nil
}

// reuseFromLockfile reports whether lock fully determines name's pin under
// rng, without any registry round trip: the pinned version must still
// satisfy rng, and the lockfile must carry that version's ManifestRecord.
func reuseFromLockfile(lock LockfileLookup, rng cottonsemver.Range, name string) (depgraph.Pin, registry.ManifestRecord, bool) {
	version, ok := lock.Lookup(name, rng.String())
	if !ok {
		return depgraph.Pin{}, registry.ManifestRecord{}, false
	}
	v, err := mastersemver.NewVersion(version)
	if err != nil || !rng.Contains(v) {
		return depgraph.Pin{}, registry.ManifestRecord{}, false
	}
	record, ok := lock.Record(name, version)
	if !ok {
		return depgraph.Pin{}, registry.ManifestRecord{}, false
	}
	return depgraph.Pin{Name: name, Version: version}, record, true
}

func describe(p depgraph.Pin) string {
	if p == depgraph.Root {
		return "<root>"
	}
	return fmt.Sprintf("%s@%s", p.Name, p.Version)
}

// directTracker collects the project's direct-dependency pins under a
// mutex, since multiple root-level requests resolve concurrently.
type directTracker struct {
	mu sync.Mutex
	m  map[DirectKey]depgraph.Pin
}

func newDirectTracker() *directTracker {
	return &directTracker{m: make(map[DirectKey]depgraph.Pin)}
}

func (d *directTracker) set(key DirectKey, pin depgraph.Pin) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.m[key] = pin
}

func (d *directTracker) snapshot() map[DirectKey]depgraph.Pin {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[DirectKey]depgraph.Pin, len(d.m))
	for k, v := range d.m {
		out[k] = v
	}
	return out
}
