package semver

import (
	cottonerrors "github.com/danielhuang/cotton/pkg/errors"

	mastersemver "github.com/Masterminds/semver/v3"
)

// Candidates is the subset of a registry's per-package document the solver
// needs: every published version, and the dist-tags pointing at specific
// versions.
type Candidates struct {
	// Versions is every version published for the package, order not
	// significant.
	Versions []*mastersemver.Version

	// DistTags maps a tag name (e.g. "latest") to the version it names.
	// The value must also appear in Versions.
	DistTags map[string]string
}

// Solve picks the concrete version r resolves to against candidates.
//
//   - A tarball URL range resolves to its synthetic version unconditionally.
//   - A dist-tag range looks the tag up in candidates.DistTags, then finds
//     the matching published version.
//   - A constraint range picks the greatest version satisfying the
//     constraint, excluding pre-releases unless the range text explicitly
//     names one.
//
// Returns an *errors.Error with ErrCodeUnsatisfiable (or ErrCodeUnknownPackage
// for a dist-tag that names a version absent from Versions) if no
// candidate qualifies.
func Solve(r Range, candidates Candidates) (*mastersemver.Version, error) {
	switch {
	case r.IsTarballURL():
		return SyntheticVersion(r.TarballURL()), nil

	case r.IsDistTag():
		target, ok := candidates.DistTags[r.DistTag()]
		if !ok {
			return nil, cottonerrors.New(cottonerrors.ErrCodeUnsatisfiable,
				"dist-tag %q is not published", r.DistTag())
		}
		for _, v := range candidates.Versions {
			if v.Original() == target || v.String() == target {
				return v, nil
			}
		}
		return nil, cottonerrors.New(cottonerrors.ErrCodeUnknownPackage,
			"dist-tag %q points at unpublished version %q", r.DistTag(), target)

	default:
		allowPrerelease := r.referencesPrerelease()
		var best *mastersemver.Version
		for _, v := range candidates.Versions {
			if !r.Contains(v) {
				continue
			}
			if v.Prerelease() != "" && !allowPrerelease {
				continue
			}
			if best == nil || v.GreaterThan(best) {
				best = v
			}
		}
		if best == nil {
			return nil, cottonerrors.New(cottonerrors.ErrCodeUnsatisfiable,
				"no published version satisfies range %q", r.String())
		}
		return best, nil
	}
}
