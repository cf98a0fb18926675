package semver

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	mastersemver "github.com/Masterminds/semver/v3"
)

// prereleaseInRangeText matches a dotted version immediately followed by a
// "-" prerelease tag, e.g. the "1.2.3-beta.1" in "^1.2.3-beta.1" but not the
// spaced hyphen of a "1.2.3 - 2.0.0" range.
var prereleaseInRangeText = regexp.MustCompile(`\d+\.\d+\.\d+-[0-9A-Za-z.-]+`)

// Range is a dependency version range as declared in a manifest or
// ManifestRecord. It is exactly one of:
//   - a semver constraint ("^1.2.3", "~1.2.3", ">=1.0.0 <2.0.0", "1.2.3")
//   - a dist-tag name ("latest", "next", any string the registry publishes
//     under dist-tags)
//   - a direct https tarball URL
type Range struct {
	raw        string
	constraint *mastersemver.Constraints
	distTag    string
	tarballURL string
}

// ParseRange classifies and parses raw into a Range.
//
// Classification order: an https:// URL is a tarball range; otherwise the
// raw string is attempted as a semver constraint; if that parse fails, raw
// is treated as a dist-tag name. This means a typo'd constraint silently
// becomes a dist-tag lookup that will fail at resolve time with an
// Unsatisfiable error from the dist-tags table rather than a parse error
// here: anything not already a valid constraint resolves
// from the dist-tags mapping first.
func ParseRange(raw string) (Range, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Range{}, fmt.Errorf("semver: empty range")
	}
	if strings.HasPrefix(trimmed, "https://") {
		return Range{raw: raw, tarballURL: trimmed}, nil
	}
	if c, err := mastersemver.NewConstraint(trimmed); err == nil {
		return Range{raw: raw, constraint: c}, nil
	}
	return Range{raw: raw, distTag: trimmed}, nil
}

// String returns the original range text.
func (r Range) String() string { return r.raw }

// IsTarballURL reports whether r is a direct tarball URL range.
func (r Range) IsTarballURL() bool { return r.tarballURL != "" }

// IsDistTag reports whether r is a dist-tag reference.
func (r Range) IsDistTag() bool { return r.distTag != "" }

// DistTag returns the dist-tag name, valid only when IsDistTag is true.
func (r Range) DistTag() string { return r.distTag }

// TarballURL returns the tarball URL, valid only when IsTarballURL is true.
func (r Range) TarballURL() string { return r.tarballURL }

// Contains reports whether v satisfies a constraint range. It is only
// meaningful for constraint ranges; dist-tag and URL ranges are resolved by
// lookup, not predicate, and Contains always returns false for them.
func (r Range) Contains(v *mastersemver.Version) bool {
	if r.constraint == nil {
		return false
	}
	return r.constraint.Check(v)
}

// referencesPrerelease reports whether the range's own text names a
// pre-release version explicitly (e.g. "1.2.3-beta.1"), in which case
// pre-release candidates are eligible for selection.
func (r Range) referencesPrerelease() bool {
	return r.constraint != nil && prereleaseInRangeText.MatchString(r.raw)
}

// SyntheticVersion derives a stable, unique pseudo-version for a direct
// tarball URL range. Precedence-wise it always sorts as 0.0.0 (build
// metadata does not affect ordering), but the build-metadata suffix makes
// its string identity unique per URL, which is what pin identity relies on.
func SyntheticVersion(url string) *mastersemver.Version {
	sum := sha1.Sum([]byte(url))
	v, err := mastersemver.NewVersion(fmt.Sprintf("0.0.0+url.%s", hex.EncodeToString(sum[:])[:12]))
	if err != nil {
		// sha1 hex is always valid build metadata; this is unreachable.
		panic(err)
	}
	return v
}
