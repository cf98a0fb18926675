package store

import (
	"archive/tar"
	"bytes"
	"crypto/sha512"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"

	cottonerrors "github.com/danielhuang/cotton/pkg/errors"
	"github.com/danielhuang/cotton/pkg/registry"
)

func buildTarball(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for name, content := range files {
		hdr := &tar.Header{
			Name: "package/" + name,
			Mode: 0o644,
			Size: int64(len(content)),
		}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("WriteHeader: %v", err)
		}
		if _, err := tw.Write([]byte(content)); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("tar Close: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("gzip Close: %v", err)
	}
	return buf.Bytes()
}

func TestInsertAndMaterialise(t *testing.T) {
	data := buildTarball(t, map[string]string{"index.js": "module.exports = 1;\n"})
	sum := sha512.Sum512(data)
	digest := registry.Digest{Algorithm: "sha512", Sum: sum[:]}

	root := t.TempDir()
	s, err := Open(root, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if s.Has(digest) {
		t.Fatal("expected Has to be false before Insert")
	}

	got, err := s.Insert(digest, bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if got.String() != digest.String() {
		t.Errorf("Insert returned %s, want %s", got.String(), digest.String())
	}
	if !s.Has(digest) {
		t.Fatal("expected Has to be true after Insert")
	}

	dest := filepath.Join(t.TempDir(), "left-pad")
	if err := s.Materialise(digest, dest); err != nil {
		t.Fatalf("Materialise: %v", err)
	}
	content, err := os.ReadFile(filepath.Join(dest, "index.js"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(content) != "module.exports = 1;\n" {
		t.Errorf("content = %q", content)
	}
}

func TestInsertDigestMismatch(t *testing.T) {
	data := buildTarball(t, map[string]string{"index.js": "x"})
	bad := registry.Digest{Algorithm: "sha512", Sum: []byte{0x00, 0x01}}

	s, err := Open(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	_, err = s.Insert(bad, bytes.NewReader(data))
	if !cottonerrors.Is(err, cottonerrors.ErrCodeIntegrityFailure) {
		t.Fatalf("expected ErrCodeIntegrityFailure, got %v", err)
	}
	if s.Has(bad) {
		t.Error("expected failed insert to leave no entry under the bad digest")
	}
}

func TestInsertWithoutExpectedDigestSelfAddresses(t *testing.T) {
	data := buildTarball(t, map[string]string{"index.js": "y"})
	s, err := Open(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	got, err := s.Insert(registry.Digest{}, bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if got.IsZero() {
		t.Fatal("expected a computed digest back")
	}
	if !s.Has(got) {
		t.Error("expected Has(computed digest) to be true")
	}
}

func TestOpenCollectsPartialExtractions(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, tempPrefix+"stale"), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if _, err := Open(root, nil); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, tempPrefix+"stale")); !os.IsNotExist(err) {
		t.Error("expected stale partial extraction directory to be removed")
	}
}
