// Package layout implements the layout planner (spec component E): it
// turns a pinned dependency graph into a filesystem plan, a mapping from
// each pinned (name, version) to the directory it should be materialised
// into under the project's dependency root.
//
// Plan runs two passes. The hoist pass places each pinned package at the
// shallowest directory that doesn't already hold a different version of
// the same name, descending into the requesting parent's directory on
// conflict. The verification pass then walks every dependency edge back
// up the filesystem tree to confirm the hoisting rule actually produced a
// tree where each requestor resolves its dependency the way Node.js
// module resolution would: by looking in the nearest ancestor directory
// that has the right name.
package layout
