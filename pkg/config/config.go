package config

import (
	"os"

	"github.com/BurntSushi/toml"

	cottonerrors "github.com/danielhuang/cotton/pkg/errors"
	"github.com/danielhuang/cotton/pkg/registry"
)

// DefaultFilename is the configuration file read from the project root.
const DefaultFilename = "cotton.toml"

// Config is a project's configuration (spec §6.3).
type Config struct {
	AllowInstallScripts bool   `toml:"allow_install_scripts"`
	Concurrency         int    `toml:"concurrency,omitempty"`
	Registry            string `toml:"registry,omitempty"`
}

// Default returns a Config with every option at its spec-mandated default:
// scripts disallowed, concurrency left to the caller's own default, and
// the public registry.
func Default() Config {
	return Config{
		AllowInstallScripts: false,
		Registry:            registry.DefaultBaseURL,
	}
}

// Load reads path, if present, layering its fields over Default(). A
// missing file is not an error: the project simply runs with defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, cottonerrors.Wrap(cottonerrors.ErrCodeInvalidPath, err, "read config %s", path)
	}

	// Decode into a zero-valued struct first so an absent "registry" key
	// doesn't overwrite the default with an empty string.
	var parsed struct {
		AllowInstallScripts *bool   `toml:"allow_install_scripts"`
		Concurrency         *int    `toml:"concurrency"`
		Registry            *string `toml:"registry"`
	}
	if err := toml.Unmarshal(data, &parsed); err != nil {
		return Config{}, cottonerrors.Wrap(cottonerrors.ErrCodeInvalidManifest, err, "parse config %s", path)
	}

	if parsed.AllowInstallScripts != nil {
		cfg.AllowInstallScripts = *parsed.AllowInstallScripts
	}
	if parsed.Concurrency != nil {
		cfg.Concurrency = *parsed.Concurrency
	}
	if parsed.Registry != nil && *parsed.Registry != "" {
		if err := cottonerrors.ValidateURL(*parsed.Registry); err != nil {
			return Config{}, cottonerrors.Wrap(cottonerrors.ErrCodeInvalidManifest, err, "config %s", path)
		}
		cfg.Registry = *parsed.Registry
	}
	return cfg, nil
}
