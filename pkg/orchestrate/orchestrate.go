package orchestrate

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/danielhuang/cotton/pkg/cache"
	"github.com/danielhuang/cotton/pkg/depgraph"
	cottonerrors "github.com/danielhuang/cotton/pkg/errors"
	"github.com/danielhuang/cotton/pkg/install"
	"github.com/danielhuang/cotton/pkg/layout"
	"github.com/danielhuang/cotton/pkg/lockfile"
	"github.com/danielhuang/cotton/pkg/manifest"
	"github.com/danielhuang/cotton/pkg/registry"
	"github.com/danielhuang/cotton/pkg/resolve"
	"github.com/danielhuang/cotton/pkg/store"
)

// DependencyDirName is the installed-package directory created at the
// project root (spec §6.4), named to match the module-resolution
// convention every installed package's own code already expects.
const DependencyDirName = "node_modules"

// Options configures one orchestrator run. Fields left zero take the
// defaults documented on each.
type Options struct {
	// ProjectRoot is the directory holding the project manifest,
	// lockfile, and dependency directory. Required.
	ProjectRoot string

	// ManifestFilename defaults to manifest.DefaultFilename.
	ManifestFilename string
	// LockfileFilename defaults to lockfile.DefaultFilename.
	LockfileFilename string
	// DependencyDir defaults to DependencyDirName under ProjectRoot.
	DependencyDir string

	// Mode controls whether resolution trusts the lockfile's prior
	// pins (resolve.RespectLockfile) or re-solves every range
	// (resolve.Update).
	Mode resolve.Mode

	// Concurrency bounds both resolver fan-out and installer fan-out.
	// Zero selects resolve.DefaultConcurrency / install.DefaultConcurrency.
	Concurrency int

	// RegistryBaseURL defaults to registry.DefaultBaseURL.
	RegistryBaseURL string
	// Cache backs registry metadata lookups. Defaults to cache.NewNullCache().
	Cache cache.Cache

	Logger *log.Logger
}

func (o *Options) setDefaults() {
	if o.ManifestFilename == "" {
		o.ManifestFilename = manifest.DefaultFilename
	}
	if o.LockfileFilename == "" {
		o.LockfileFilename = lockfile.DefaultFilename
	}
	if o.DependencyDir == "" {
		o.DependencyDir = filepath.Join(o.ProjectRoot, DependencyDirName)
	}
	if o.RegistryBaseURL == "" {
		o.RegistryBaseURL = registry.DefaultBaseURL
	}
	if o.Cache == nil {
		o.Cache = cache.NewNullCache()
	}
	if o.Logger == nil {
		o.Logger = log.Default()
	}
}

// Stats carries per-stage timing and size information for one run.
type Stats struct {
	PackageCount int
	ResolveTime  time.Duration
	PlanTime     time.Duration
	InstallTime  time.Duration
}

// Result is the output of one orchestrator run.
type Result struct {
	Graph  *depgraph.Graph
	Direct map[depgraph.DirectKey]depgraph.Pin
	Layout *layout.Plan
	Stats  Stats
}

// Orchestrator composes the registry client, resolver, lockfile store,
// layout planner, archive store, and installer behind one entry point.
type Orchestrator struct {
	opts      Options
	client    *registry.Client
	resolver  *resolve.Resolver
	store     *store.Store
	installer *install.Installer
	logger    *log.Logger
}

// New builds an Orchestrator for opts, opening the archive store rooted
// inside the dependency directory.
func New(opts Options) (*Orchestrator, error) {
	opts.setDefaults()
	if opts.ProjectRoot == "" {
		return nil, cottonerrors.New(cottonerrors.ErrCodeInvalidInput, "ProjectRoot is required")
	}
	if err := cottonerrors.ValidateManifestFilename(opts.ManifestFilename); err != nil {
		return nil, err
	}
	if err := cottonerrors.ValidateManifestFilename(opts.LockfileFilename); err != nil {
		return nil, err
	}
	if err := cottonerrors.ValidateURL(opts.RegistryBaseURL); err != nil {
		return nil, err
	}

	client := registry.NewClient(opts.RegistryBaseURL, opts.Cache, opts.Logger)
	resolver := resolve.New(client, resolveConcurrency(opts.Concurrency), opts.Logger)

	archiveRoot := filepath.Join(opts.DependencyDir, store.DirName)
	st, err := store.Open(archiveRoot, opts.Logger)
	if err != nil {
		return nil, err
	}
	installer := install.New(client, st, opts.Concurrency, opts.Logger)

	return &Orchestrator{
		opts:      opts,
		client:    client,
		resolver:  resolver,
		store:     st,
		installer: installer,
		logger:    opts.Logger,
	}, nil
}

func resolveConcurrency(n int) int {
	if n <= 0 {
		return resolve.DefaultConcurrency
	}
	return n
}

// Run executes the full resolve → plan → install pipeline. Any stage's
// unrecoverable error cancels ctx's derived context before returning,
// draining the in-flight work each component's own errgroup already owns.
func (o *Orchestrator) Run(ctx context.Context) (*Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m, err := manifest.Load(filepath.Join(o.opts.ProjectRoot, o.opts.ManifestFilename))
	if err != nil {
		return nil, err
	}

	lockPath := filepath.Join(o.opts.ProjectRoot, o.opts.LockfileFilename)
	lock, err := lockfile.Load(lockPath)
	if err != nil {
		return nil, err
	}

	resolveStart := time.Now()
	resolved, err := o.resolver.Resolve(ctx, m, lock, o.opts.Mode)
	if err != nil {
		return nil, err
	}
	resolveTime := time.Since(resolveStart)
	o.logger.Info("resolved dependencies", "packages", resolved.Graph.Len(), "duration", resolveTime)

	newLock := lockfile.FromGraph(resolved.Graph, resolved.Direct)
	if err := newLock.Save(lockPath); err != nil {
		return nil, err
	}

	planStart := time.Now()
	plan, err := layout.Plan(resolved.Graph)
	if err != nil {
		return nil, err
	}
	planTime := time.Since(planStart)
	o.logger.Info("planned layout", "placements", len(plan.Placements), "duration", planTime)

	installStart := time.Now()
	if err := o.installer.Install(ctx, o.opts.DependencyDir, plan); err != nil {
		return nil, err
	}
	installTime := time.Since(installStart)
	o.logger.Info("installed packages", "duration", installTime)

	return &Result{
		Graph:  resolved.Graph,
		Direct: resolved.Direct,
		Layout: plan,
		Stats: Stats{
			PackageCount: resolved.Graph.Len(),
			ResolveTime:  resolveTime,
			PlanTime:     planTime,
			InstallTime:  installTime,
		},
	}, nil
}

// CleanOptions configures Clean.
type CleanOptions struct {
	// GC also removes archive-store entries no longer referenced by the
	// project's lockfile, rather than only the installed package tree.
	GC bool
}

// Clean removes the project's installed dependency tree (spec's supplemented
// "clean" maintenance operation, §3 Lifecycle), optionally garbage
// collecting archive-store entries the lockfile no longer references.
func (o *Orchestrator) Clean(opts CleanOptions) error {
	entries, err := os.ReadDir(o.opts.DependencyDir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return cottonerrors.Wrap(cottonerrors.ErrCodeInvalidPath, err, "scan dependency directory %s", o.opts.DependencyDir)
	}

	for _, e := range entries {
		if e.Name() == store.DirName {
			continue
		}
		if err := os.RemoveAll(filepath.Join(o.opts.DependencyDir, e.Name())); err != nil {
			return cottonerrors.Wrap(cottonerrors.ErrCodeInternal, err, "remove %s", e.Name())
		}
	}

	if !opts.GC {
		return nil
	}

	lockPath := filepath.Join(o.opts.ProjectRoot, o.opts.LockfileFilename)
	lock, err := lockfile.Load(lockPath)
	if err != nil {
		return err
	}
	return o.store.GC(lock.Digests())
}
