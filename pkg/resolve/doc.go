// Package resolve implements the resolver (spec component C): a parallel
// breadth-first expansion from the project manifest that produces a
// pinned dependency graph.
//
// Each dependency request is solved and pinned independently; the first
// goroutine to pin a given (name, version) owns expanding its children,
// every later request for the same pin only records its edge to it. A
// parent signals completion for its own pin as soon as its children's
// requests have been spawned, not once they finish, so dependency cycles
// never deadlock (spec §4.C, §9).
package resolve
