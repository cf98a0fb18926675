// Package lockfile implements the lockfile store (spec component D): a
// content-stable TOML representation of a resolved dependency graph, read
// back on the next run to short-circuit re-solving unchanged ranges
// (spec §6.2).
//
// Lockfile is built from a [depgraph.Graph] via [FromGraph] and written
// with [Lockfile.Save], which only touches disk when the serialised
// content actually changed (an atomic write-to-temp-then-rename either
// way, to keep partial writes from ever being observed).
package lockfile
