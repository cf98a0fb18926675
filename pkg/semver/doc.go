// Package semver implements the version solver (spec component B): given a
// dependency range and a package's published versions, it picks the
// concrete version that satisfies the range.
//
// Range parsing and ordering itself is delegated to
// github.com/Masterminds/semver/v3; this package never reimplements caret,
// tilde, or comparator semantics. It adds exactly three things the solver
// needs on top of a bare constraint: dist-tag ranges ("latest", "next", …),
// direct tarball URL ranges (a single synthetic version), and the
// greatest-satisfying-version-with-prerelease-exclusion selection rule.
package semver
