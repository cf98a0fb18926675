// Package orchestrate owns the top-level resolve → plan → install
// pipeline (spec component H): it composes the registry client, resolver,
// lockfile store, layout planner, archive store, and installer behind one
// Options/Result pair, and is responsible for turning an unrecoverable
// error from any stage into an orderly, cancellation-propagated shutdown.
package orchestrate
