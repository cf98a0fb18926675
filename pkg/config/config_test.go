package config

import (
	"os"
	"path/filepath"
	"testing"

	cottonerrors "github.com/danielhuang/cotton/pkg/errors"
	"github.com/danielhuang/cotton/pkg/registry"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.AllowInstallScripts {
		t.Error("expected AllowInstallScripts default to be false")
	}
	if cfg.Registry != registry.DefaultBaseURL {
		t.Errorf("Registry = %q, want default %q", cfg.Registry, registry.DefaultBaseURL)
	}
}

func TestLoadOverridesSpecifiedFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultFilename)
	content := `
allow_install_scripts = true
concurrency = 8
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.AllowInstallScripts {
		t.Error("expected AllowInstallScripts to be true")
	}
	if cfg.Concurrency != 8 {
		t.Errorf("Concurrency = %d, want 8", cfg.Concurrency)
	}
	if cfg.Registry != registry.DefaultBaseURL {
		t.Errorf("Registry = %q, want unmodified default %q", cfg.Registry, registry.DefaultBaseURL)
	}
}

func TestLoadOverridesRegistry(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultFilename)
	if err := os.WriteFile(path, []byte(`registry = "https://registry.internal.example.com"`), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Registry != "https://registry.internal.example.com" {
		t.Errorf("Registry = %q", cfg.Registry)
	}
}

func TestLoadRejectsRegistryWithUnsafeScheme(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultFilename)
	if err := os.WriteFile(path, []byte(`registry = "ftp://registry.internal.example.com"`), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	_, err := Load(path)
	if !cottonerrors.Is(err, cottonerrors.ErrCodeInvalidManifest) {
		t.Errorf("expected ErrCodeInvalidManifest, got %v", err)
	}
}
