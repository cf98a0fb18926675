package install

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/danielhuang/cotton/pkg/depgraph"
	"github.com/danielhuang/cotton/pkg/layout"
	"github.com/danielhuang/cotton/pkg/registry"
)

type fakeFetcher struct {
	mu      sync.Mutex
	fetched []string
}

func (f *fakeFetcher) FetchTarball(ctx context.Context, url string, expected registry.Digest) (io.ReadCloser, error) {
	f.mu.Lock()
	f.fetched = append(f.fetched, url)
	f.mu.Unlock()
	return io.NopCloser(strings.NewReader("tarball:" + url)), nil
}

type fakeStore struct {
	mu        sync.Mutex
	inserted  map[string][]byte
	have      map[string]bool
	materials []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{inserted: map[string][]byte{}, have: map[string]bool{}}
}

func (s *fakeStore) Has(digest registry.Digest) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.have[digest.String()]
}

func (s *fakeStore) Insert(expected registry.Digest, r io.Reader) (registry.Digest, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return registry.Digest{}, err
	}
	digest := expected
	if digest.IsZero() {
		digest = registry.Digest{Algorithm: "sha512", Sum: data}
	}
	s.mu.Lock()
	s.inserted[digest.String()] = data
	s.have[digest.String()] = true
	s.mu.Unlock()
	return digest, nil
}

func (s *fakeStore) Materialise(digest registry.Digest, dest string) error {
	s.mu.Lock()
	s.materials = append(s.materials, dest)
	s.mu.Unlock()
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return err
	}
	data := s.inserted[digest.String()]
	return os.WriteFile(filepath.Join(dest, "payload"), data, 0o644)
}

func planWith(placements ...layout.Placement) *layout.Plan {
	m := make(map[depgraph.Pin]layout.Placement, len(placements))
	for _, p := range placements {
		m[p.Pin] = p
	}
	return &layout.Plan{Placements: m}
}

func TestInstallFetchesAndMaterialisesEachPlacement(t *testing.T) {
	leftPad := depgraph.Pin{Name: "left-pad", Version: "1.3.0"}
	plan := planWith(layout.Placement{
		Pin:  leftPad,
		Path: "left-pad",
		Record: registry.ManifestRecord{
			Name: "left-pad", Version: "1.3.0",
			TarballURL: "https://registry.example.com/left-pad-1.3.0.tgz",
			Integrity:  registry.Digest{Algorithm: "sha512", Sum: []byte{0x01, 0x02}},
		},
	})

	fetcher := &fakeFetcher{}
	store := newFakeStore()
	root := t.TempDir()

	inst := New(fetcher, store, 2, nil)
	if err := inst.Install(context.Background(), root, plan); err != nil {
		t.Fatalf("Install: %v", err)
	}

	if len(fetcher.fetched) != 1 {
		t.Fatalf("expected 1 fetch, got %d", len(fetcher.fetched))
	}
	data, err := os.ReadFile(filepath.Join(root, "left-pad", "payload"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "tarball:https://registry.example.com/left-pad-1.3.0.tgz" {
		t.Errorf("unexpected materialised content: %q", data)
	}
}

func TestInstallSkipsFetchWhenStoreAlreadyHasDigest(t *testing.T) {
	digest := registry.Digest{Algorithm: "sha512", Sum: []byte{0xaa}}
	leftPad := depgraph.Pin{Name: "left-pad", Version: "1.3.0"}
	plan := planWith(layout.Placement{
		Pin:  leftPad,
		Path: "left-pad",
		Record: registry.ManifestRecord{
			TarballURL: "https://registry.example.com/left-pad-1.3.0.tgz",
			Integrity:  digest,
		},
	})

	fetcher := &fakeFetcher{}
	store := newFakeStore()
	store.have[digest.String()] = true
	store.inserted[digest.String()] = []byte("cached")

	inst := New(fetcher, store, 0, nil)
	if err := inst.Install(context.Background(), t.TempDir(), plan); err != nil {
		t.Fatalf("Install: %v", err)
	}
	if len(fetcher.fetched) != 0 {
		t.Errorf("expected no fetches, got %d", len(fetcher.fetched))
	}
}

func TestInstallUnlinksPriorTopLevelDirectory(t *testing.T) {
	leftPad := depgraph.Pin{Name: "left-pad", Version: "2.0.0"}
	plan := planWith(layout.Placement{
		Pin:  leftPad,
		Path: "left-pad",
		Record: registry.ManifestRecord{
			TarballURL: "https://registry.example.com/left-pad-2.0.0.tgz",
		},
	})

	root := t.TempDir()
	staleFile := filepath.Join(root, "left-pad", "old-file")
	if err := os.MkdirAll(filepath.Dir(staleFile), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(staleFile, []byte("old"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	inst := New(&fakeFetcher{}, newFakeStore(), 0, nil)
	if err := inst.Install(context.Background(), root, plan); err != nil {
		t.Fatalf("Install: %v", err)
	}
	if _, err := os.Stat(staleFile); !os.IsNotExist(err) {
		t.Error("expected the old file to be gone after reinstall")
	}
	if _, err := os.Stat(filepath.Join(root, "left-pad", "payload")); err != nil {
		t.Errorf("expected fresh payload to be materialised: %v", err)
	}
}
