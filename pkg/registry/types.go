package registry

import (
	"encoding/hex"
	"fmt"
)

// Digest is a cryptographic digest of a tarball, algorithm plus raw bytes.
type Digest struct {
	Algorithm string // "sha512" or "sha1"
	Sum       []byte
}

// String renders the digest in the lockfile's "sha512-<lowercase hex>" form.
func (d Digest) String() string {
	if len(d.Sum) == 0 {
		return ""
	}
	return fmt.Sprintf("%s-%s", d.Algorithm, hex.EncodeToString(d.Sum))
}

// IsZero reports whether d carries no digest.
func (d Digest) IsZero() bool { return len(d.Sum) == 0 }

// ManifestRecord is the registry's published record for a single
// (name, version) pin: where to fetch its tarball, its expected digest,
// and the ranges of its runtime and optional dependencies. Peer and dev
// dependencies are not represented; the core resolver never looks at them.
type ManifestRecord struct {
	Name                 string
	Version              string
	TarballURL           string
	Integrity            Digest
	Dependencies         map[string]string
	OptionalDependencies map[string]string
}

// PackageDoc is a registry's per-name document: every published version's
// ManifestRecord, plus the dist-tags mapping (at least "latest").
type PackageDoc struct {
	Name     string
	DistTags map[string]string
	Versions map[string]ManifestRecord
}
