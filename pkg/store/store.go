package store

import (
	"archive/tar"
	"crypto/sha1"
	"crypto/sha512"
	"encoding/hex"
	"hash"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/klauspost/compress/gzip"

	cottonerrors "github.com/danielhuang/cotton/pkg/errors"
	"github.com/danielhuang/cotton/pkg/registry"
)

// DirName is the archive store's directory name inside the project's
// dependency root, colocated so materialise can hardlink on the common case.
const DirName = ".cotton-store"

// Store is a content-addressed cache of extracted tarball contents, rooted
// at a directory inside the project's dependency root.
type Store struct {
	root   string
	logger *log.Logger
}

// Open prepares the store rooted at root, creating it if necessary and
// garbage-collecting any partial extractions left by a prior interrupted run.
func Open(root string, logger *log.Logger) (*Store, error) {
	if logger == nil {
		logger = log.Default()
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, cottonerrors.Wrap(cottonerrors.ErrCodeInvalidPath, err, "create archive store at %s", root)
	}
	s := &Store{root: root, logger: logger}
	if err := s.collectPartials(); err != nil {
		return nil, err
	}
	return s, nil
}

// collectPartials removes any leftover .tmp-* extraction directories from a
// prior run that was interrupted before the final rename.
func (s *Store) collectPartials() error {
	entries, err := os.ReadDir(s.root)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return cottonerrors.Wrap(cottonerrors.ErrCodeInvalidPath, err, "scan archive store %s", s.root)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), tempPrefix) {
			s.logger.Debug("removing partial extraction", "dir", e.Name())
			if err := os.RemoveAll(filepath.Join(s.root, e.Name())); err != nil {
				return cottonerrors.Wrap(cottonerrors.ErrCodeInternal, err, "remove partial extraction %s", e.Name())
			}
		}
	}
	return nil
}

const tempPrefix = ".tmp-"

// digestDir returns the final directory for a digest's extracted contents.
func (s *Store) digestDir(digest registry.Digest) string {
	return filepath.Join(s.root, digest.Algorithm+"-"+hex.EncodeToString(digest.Sum))
}

// Has reports whether digest's contents are already extracted in the store.
func (s *Store) Has(digest registry.Digest) bool {
	info, err := os.Stat(s.digestDir(digest))
	return err == nil && info.IsDir()
}

// GC removes every store entry whose digest isn't in keep, for the
// project's clean-and-garbage-collect maintenance operation.
func (s *Store) GC(keep []registry.Digest) error {
	wanted := make(map[string]bool, len(keep))
	for _, d := range keep {
		wanted[filepath.Base(s.digestDir(d))] = true
	}

	entries, err := os.ReadDir(s.root)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return cottonerrors.Wrap(cottonerrors.ErrCodeInvalidPath, err, "scan archive store %s", s.root)
	}
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), tempPrefix) || wanted[e.Name()] {
			continue
		}
		s.logger.Debug("garbage collecting unreferenced archive", "dir", e.Name())
		if err := os.RemoveAll(filepath.Join(s.root, e.Name())); err != nil {
			return cottonerrors.Wrap(cottonerrors.ErrCodeInternal, err, "remove unreferenced archive %s", e.Name())
		}
	}
	return nil
}

// Insert streams a gzip-compressed tarball from r, verifying its digest as
// bytes flow and extracting into the store under a temporary directory,
// then atomically renaming into the final digest-named directory on
// success. It is a no-op if the digest is already present.
//
// When expected carries no digest (a direct tarball-URL dependency, whose
// ManifestRecord has nothing to verify against), Insert computes the
// tarball's SHA-512 itself and content-addresses the store entry by that
// computed digest instead, which it returns to the caller.
func (s *Store) Insert(expected registry.Digest, r io.Reader) (registry.Digest, error) {
	if !expected.IsZero() && s.Has(expected) {
		io.Copy(io.Discard, r)
		return expected, nil
	}

	algorithm := expected.Algorithm
	if algorithm == "" {
		algorithm = "sha512"
	}
	h, err := newHasher(algorithm)
	if err != nil {
		return registry.Digest{}, err
	}
	tee := io.TeeReader(r, h)

	gz, err := gzip.NewReader(tee)
	if err != nil {
		return registry.Digest{}, cottonerrors.Wrap(cottonerrors.ErrCodeIntegrityFailure, err, "open gzip stream")
	}
	tr := tar.NewReader(gz)

	tmpDir, err := os.MkdirTemp(s.root, tempPrefix)
	if err != nil {
		return registry.Digest{}, cottonerrors.Wrap(cottonerrors.ErrCodeInvalidPath, err, "create temp extraction dir")
	}
	cleanup := true
	defer func() {
		if cleanup {
			os.RemoveAll(tmpDir)
		}
	}()

	if err := extractTar(tr, tmpDir); err != nil {
		return registry.Digest{}, err
	}
	// Drain any trailing bytes so the digest covers the entire stream, not
	// just the portion gzip happened to consume.
	io.Copy(io.Discard, tee)

	actual := registry.Digest{Algorithm: algorithm, Sum: h.Sum(nil)}
	if !expected.IsZero() && !digestMatches(expected, h) {
		return registry.Digest{}, cottonerrors.New(cottonerrors.ErrCodeIntegrityFailure,
			"tarball digest mismatch: expected %s, computed %s", expected.String(), actual.String())
	}

	final := expected
	if final.IsZero() {
		final = actual
	}
	if s.Has(final) {
		return final, nil
	}
	finalDir := s.digestDir(final)
	if err := os.Rename(tmpDir, finalDir); err != nil {
		return registry.Digest{}, cottonerrors.Wrap(cottonerrors.ErrCodeInternal, err, "finalise extraction to %s", finalDir)
	}
	cleanup = false
	return final, nil
}

// extractTar writes tr's entries into dest, stripping the tarball's
// top-level directory (every registry tarball wraps its contents in one).
func extractTar(tr *tar.Reader, dest string) error {
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return cottonerrors.Wrap(cottonerrors.ErrCodeIntegrityFailure, err, "read tar entry")
		}

		name := stripTopLevel(hdr.Name)
		if name == "" {
			continue
		}
		target := filepath.Join(dest, filepath.FromSlash(name))
		if !withinDir(dest, target) {
			return cottonerrors.New(cottonerrors.ErrCodeIntegrityFailure, "tarball entry %q escapes its extraction directory", hdr.Name)
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return cottonerrors.Wrap(cottonerrors.ErrCodeInternal, err, "create directory %s", target)
			}
		case tar.TypeSymlink:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return cottonerrors.Wrap(cottonerrors.ErrCodeInternal, err, "create parent for symlink %s", target)
			}
			if err := os.Symlink(hdr.Linkname, target); err != nil {
				return cottonerrors.Wrap(cottonerrors.ErrCodeInternal, err, "create symlink %s", target)
			}
		default:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return cottonerrors.Wrap(cottonerrors.ErrCodeInternal, err, "create parent for %s", target)
			}
			f, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, os.FileMode(hdr.Mode)&0o777)
			if err != nil {
				return cottonerrors.Wrap(cottonerrors.ErrCodeInternal, err, "create file %s", target)
			}
			if _, err := io.Copy(f, tr); err != nil {
				f.Close()
				return cottonerrors.Wrap(cottonerrors.ErrCodeInternal, err, "write file %s", target)
			}
			if err := f.Close(); err != nil {
				return cottonerrors.Wrap(cottonerrors.ErrCodeInternal, err, "close file %s", target)
			}
		}
	}
}

// stripTopLevel removes the first path segment of a slash-separated tar
// entry name, returning "" if the entry is the top-level directory itself.
func stripTopLevel(name string) string {
	name = strings.TrimPrefix(name, "./")
	idx := strings.IndexByte(name, '/')
	if idx < 0 {
		return ""
	}
	return name[idx+1:]
}

func withinDir(dir, target string) bool {
	rel, err := filepath.Rel(dir, target)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// Materialise populates dest with digest's stored contents, hardlinking
// files where dest shares a filesystem with the store and copying
// otherwise. dest and any missing parent directories are created.
func (s *Store) Materialise(digest registry.Digest, dest string) error {
	src := s.digestDir(digest)
	if !s.Has(digest) {
		return cottonerrors.New(cottonerrors.ErrCodeInternal, "materialise requested for missing digest %s", digest.String())
	}
	return filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := dest
		if rel != "." {
			target = filepath.Join(dest, rel)
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		switch {
		case info.Mode()&os.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return cottonerrors.Wrap(cottonerrors.ErrCodeInternal, err, "read symlink %s", path)
			}
			return os.Symlink(link, target)
		case d.IsDir():
			return os.MkdirAll(target, 0o755)
		default:
			if err := os.Link(path, target); err != nil {
				return copyFile(path, target, info.Mode())
			}
			return nil
		}
	})
}

func copyFile(src, dest string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return cottonerrors.Wrap(cottonerrors.ErrCodeInternal, err, "open %s for copy", src)
	}
	defer in.Close()

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode)
	if err != nil {
		return cottonerrors.Wrap(cottonerrors.ErrCodeInternal, err, "create %s for copy", dest)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return cottonerrors.Wrap(cottonerrors.ErrCodeInternal, err, "copy to %s", dest)
	}
	return out.Close()
}

func newHasher(algorithm string) (hash.Hash, error) {
	switch algorithm {
	case "sha512", "":
		return sha512.New(), nil
	case "sha1":
		return sha1.New(), nil
	default:
		return nil, cottonerrors.New(cottonerrors.ErrCodeUnsupported, "unsupported digest algorithm %q", algorithm)
	}
}

func digestMatches(expected registry.Digest, h hash.Hash) bool {
	sum := h.Sum(nil)
	if len(sum) != len(expected.Sum) {
		return false
	}
	for i := range sum {
		if sum[i] != expected.Sum[i] {
			return false
		}
	}
	return true
}
