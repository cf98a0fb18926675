// Package cli implements the cotton command-line interface.
package cli

import (
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/danielhuang/cotton/pkg/buildinfo"
	"github.com/danielhuang/cotton/pkg/cache"
	"github.com/danielhuang/cotton/pkg/config"
	cottonerrors "github.com/danielhuang/cotton/pkg/errors"
	"github.com/danielhuang/cotton/pkg/orchestrate"
	"github.com/danielhuang/cotton/pkg/resolve"
)

// appName is the application name used for directories and display.
const appName = "cotton"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
}

// New creates a new CLI instance with a default logger.
func New(level log.Level) *CLI {
	return &CLI{Logger: newLogger(os.Stderr, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	var (
		noCache     bool
		update      bool
		concurrency int
		registryURL string
	)

	root := &cobra.Command{
		Use:          "cotton",
		Short:        "cotton resolves, locks, and installs JavaScript package dependencies",
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}
	root.SetVersionTemplate(buildinfo.Template())

	root.PersistentFlags().BoolVar(&noCache, "no-cache", false, "disable the on-disk metadata cache")
	root.PersistentFlags().BoolVar(&update, "update", false, "re-resolve every dependency range instead of trusting the lockfile")
	root.PersistentFlags().IntVar(&concurrency, "concurrency", 0, "override the default resolver/installer concurrency")
	root.PersistentFlags().StringVar(&registryURL, "registry", "", "override the configured registry base URL")

	root.AddCommand(c.installCommand(&noCache, &update, &concurrency, &registryURL))
	root.AddCommand(c.cleanCommand(&noCache, &concurrency, &registryURL))

	return root
}

// buildOptions assembles orchestrate.Options for projectDir, loading the
// project's cotton.toml (spec §6.3) and layering the shared persistent
// flags over it: a non-zero --concurrency or non-empty --registry wins over
// the config file; a flag left at its zero value keeps the file's setting.
func (c *CLI) buildOptions(projectDir string, noCache bool, update bool, concurrency int, registryURL string) (orchestrate.Options, error) {
	root, err := filepath.Abs(projectDir)
	if err != nil {
		return orchestrate.Options{}, cottonerrors.Wrap(cottonerrors.ErrCodeInvalidPath, err, "resolve project directory %s", projectDir)
	}

	cfg, err := config.Load(filepath.Join(root, config.DefaultFilename))
	if err != nil {
		return orchestrate.Options{}, err
	}

	mode := resolve.RespectLockfile
	if update {
		mode = resolve.Update
	}

	if concurrency == 0 {
		concurrency = cfg.Concurrency
	}
	if registryURL == "" {
		registryURL = cfg.Registry
	}

	var c2 cache.Cache = cache.NewNullCache()
	if !noCache {
		if dir, err := cacheDir(); err == nil {
			if fc, err := cache.NewFileCache(dir); err == nil {
				c2 = fc
			}
		}
	}

	return orchestrate.Options{
		ProjectRoot:     root,
		Mode:            mode,
		Concurrency:     concurrency,
		RegistryBaseURL: registryURL,
		Cache:           c2,
		Logger:          c.Logger,
	}, nil
}

// cacheDir returns the cache directory using XDG standard (~/.cache/cotton/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

func printStats(logger *log.Logger, result *orchestrate.Result) {
	logger.Info("done",
		"packages", result.Stats.PackageCount,
		"resolve", result.Stats.ResolveTime.Round(1e6),
		"plan", result.Stats.PlanTime.Round(1e6),
		"install", result.Stats.InstallTime.Round(1e6))
}
