// Package depgraph models the resolved dependency graph (spec §3): a
// directed, possibly cyclic graph of pinned packages with a synthetic root
// for the project manifest. Node identity is (name, version); edges are
// labelled by the dependency name under which the child appears in the
// parent.
//
// Graph is safe for concurrent use, since the resolver's worker pool
// creates and reads nodes from multiple goroutines (spec §5): each node is
// owned exclusively by the task that first creates it, and readers only
// observe a node after it is marked resolved.
package depgraph
