// Package install implements the installer (spec component G): given a
// layout plan and access to the archive store and registry client, it
// fetches every tarball the store doesn't already have, then materialises
// every placement into the project's dependency root.
//
// The two phases are separated by a strict barrier: no placement is
// materialised until every tarball the plan needs has finished extracting
// into the store, matching the concurrency model's "no placement begins
// before every required digest is in the archive store" rule.
package install
