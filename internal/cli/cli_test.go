package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/danielhuang/cotton/pkg/config"
)

func TestBuildOptionsLoadsProjectConfig(t *testing.T) {
	dir := t.TempDir()
	content := `
concurrency = 9
registry = "https://registry.internal.example.com"
`
	if err := os.WriteFile(filepath.Join(dir, config.DefaultFilename), []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	c := New(LogInfo)
	opts, err := c.buildOptions(dir, false, false, 0, "")
	if err != nil {
		t.Fatalf("buildOptions: %v", err)
	}
	if opts.Concurrency != 9 {
		t.Errorf("Concurrency = %d, want 9 from cotton.toml", opts.Concurrency)
	}
	if opts.RegistryBaseURL != "https://registry.internal.example.com" {
		t.Errorf("RegistryBaseURL = %q, want config value", opts.RegistryBaseURL)
	}
}

func TestBuildOptionsFlagsOverrideProjectConfig(t *testing.T) {
	dir := t.TempDir()
	content := `
concurrency = 9
registry = "https://registry.internal.example.com"
`
	if err := os.WriteFile(filepath.Join(dir, config.DefaultFilename), []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	c := New(LogInfo)
	opts, err := c.buildOptions(dir, false, false, 4, "https://registry.example.org")
	if err != nil {
		t.Fatalf("buildOptions: %v", err)
	}
	if opts.Concurrency != 4 {
		t.Errorf("Concurrency = %d, want the flag value 4", opts.Concurrency)
	}
	if opts.RegistryBaseURL != "https://registry.example.org" {
		t.Errorf("RegistryBaseURL = %q, want the flag value", opts.RegistryBaseURL)
	}
}
