// Package manifest reads a project's package manifest, the JSON document
// declaring its name, version, and dependency ranges (spec §6.1).
//
// Parsing is deliberately permissive: unrecognised top-level fields (e.g.
// scripts, consumed only by the external script-runner collaborator) are
// accepted by the parser and discarded.
package manifest
