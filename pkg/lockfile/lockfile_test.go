package lockfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/danielhuang/cotton/pkg/depgraph"
	"github.com/danielhuang/cotton/pkg/registry"
)

func buildGraph(t *testing.T) (*depgraph.Graph, map[depgraph.DirectKey]depgraph.Pin) {
	t.Helper()
	g := depgraph.New()
	pin := depgraph.Pin{Name: "left-pad", Version: "1.3.0"}
	node, _ := g.GetOrCreate(pin)
	node.Record = registry.ManifestRecord{
		Name:       "left-pad",
		Version:    "1.3.0",
		TarballURL: "https://registry.example.com/left-pad-1.3.0.tgz",
		Integrity:  registry.Digest{Algorithm: "sha512", Sum: []byte{0xde, 0xad, 0xbe, 0xef}},
	}
	node.Close()
	direct := map[depgraph.DirectKey]depgraph.Pin{
		{Name: "left-pad", Range: "^1.0.0"}: pin,
	}
	return g, direct
}

func TestFromGraphAndSave(t *testing.T) {
	g, direct := buildGraph(t)
	lf := FromGraph(g, direct)

	dir := t.TempDir()
	path := filepath.Join(dir, DefaultFilename)
	if err := lf.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected non-empty lockfile")
	}

	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	version, ok := reloaded.Lookup("left-pad", "^1.0.0")
	if !ok || version != "1.3.0" {
		t.Errorf("Lookup(left-pad, ^1.0.0) = (%q, %v), want (1.3.0, true)", version, ok)
	}
	record, ok := reloaded.Record("left-pad", "1.3.0")
	if !ok {
		t.Fatal("expected Record to find left-pad@1.3.0")
	}
	if record.Integrity.Algorithm != "sha512" {
		t.Errorf("expected sha512 digest, got %s", record.Integrity.Algorithm)
	}
}

func TestLoadMissingFileIsEmpty(t *testing.T) {
	lf, err := Load(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, ok := lf.Lookup("anything", "^1.0.0"); ok {
		t.Error("expected empty lockfile to have no entries")
	}
}

func TestSaveIsIdempotentOnUnchangedContent(t *testing.T) {
	g, direct := buildGraph(t)
	lf := FromGraph(g, direct)

	dir := t.TempDir()
	path := filepath.Join(dir, DefaultFilename)
	if err := lf.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	info1, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}

	if err := lf.Save(path); err != nil {
		t.Fatalf("second Save: %v", err)
	}
	info2, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info1.ModTime() != info2.ModTime() {
		t.Error("expected re-saving unchanged content to leave the file untouched")
	}
}
