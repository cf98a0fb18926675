package depgraph

import (
	"sync"

	"github.com/danielhuang/cotton/pkg/registry"
)

// Pin identifies a concrete, resolved package: a name and the exact
// version the solver picked for it. Multiple pins may share a name.
type Pin struct {
	Name    string
	Version string
}

// Root is the synthetic pin representing the project manifest itself.
var Root = Pin{Name: "", Version: ""}

// DirectKey identifies one of the project manifest's direct dependencies:
// a name and the exact range text it was requested with. Two manifests
// requesting the same name with textually different but semantically
// equal ranges get distinct entries; range text, not meaning, is the key.
type DirectKey struct {
	Name  string
	Range string
}

// Node is one vertex of the graph: a pin, its registry record, and the
// pins of its resolved children keyed by the dependency name under which
// they were requested.
//
// A Node is owned exclusively by the resolver task that creates it (the
// first to call [Graph.GetOrCreate] for its Pin) until that task closes
// Done; after that the node is read-only and safe for concurrent readers.
type Node struct {
	Pin    Pin
	Record registry.ManifestRecord

	edgesMu sync.Mutex
	edges   map[string]Pin

	done chan struct{}
}

// Done returns a channel that is closed once the node's owning task has
// finished populating Record and enqueuing requests for every child.
// Callers that did not create the node must wait on Done before reading
// Record.
func (n *Node) Done() <-chan struct{} { return n.done }

// SetEdge records that dep resolved to child under this node. Unlike
// Record, edges are written by whichever goroutine resolves each child
// dependency, which may run concurrently with siblings and with the
// owning task's own Close call, so access is independently synchronized.
func (n *Node) SetEdge(dep string, child Pin) {
	n.edgesMu.Lock()
	defer n.edgesMu.Unlock()
	n.edges[dep] = child
}

// Edges returns a snapshot of the dependency-name to child-pin mapping.
// Safe to call only after Done is closed.
func (n *Node) Edges() map[string]Pin {
	n.edgesMu.Lock()
	defer n.edgesMu.Unlock()
	out := make(map[string]Pin, len(n.edges))
	for k, v := range n.edges {
		out[k] = v
	}
	return out
}

// Graph is the shared, concurrency-safe store of pinned packages built up
// by the resolver.
type Graph struct {
	mu    sync.Mutex
	nodes map[Pin]*Node
}

// New returns an empty Graph seeded with the synthetic root node.
func New() *Graph {
	g := &Graph{nodes: make(map[Pin]*Node)}
	g.nodes[Root] = &Node{Pin: Root, edges: map[string]Pin{}, done: closedChan()}
	return g
}

// GetOrCreate returns the node for pin, creating it if absent. created
// reports whether this call created the node: the caller that creates it
// is responsible for populating Record and Edges and then calling
// [Node.Close]; every other caller must wait on [Node.Done] before reading
// them. This is the "first resolver owns expansion" rule (spec §4.C).
func (g *Graph) GetOrCreate(pin Pin) (node *Node, created bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if n, ok := g.nodes[pin]; ok {
		return n, false
	}
	n := &Node{Pin: pin, edges: map[string]Pin{}, done: make(chan struct{})}
	g.nodes[pin] = n
	return n, true
}

// Close marks n as fully populated, releasing any goroutine blocked on
// [Node.Done]. Must be called exactly once, only by the task that created
// n via [Graph.GetOrCreate].
func (n *Node) Close() { close(n.done) }

// Get returns the node for pin without creating it.
func (g *Graph) Get(pin Pin) (*Node, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	n, ok := g.nodes[pin]
	return n, ok
}

// Nodes returns every node in the graph except the synthetic root. The
// order is not guaranteed.
func (g *Graph) Nodes() []*Node {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]*Node, 0, len(g.nodes))
	for pin, n := range g.nodes {
		if pin == Root {
			continue
		}
		out = append(out, n)
	}
	return out
}

// Len returns the number of pinned packages, excluding the root.
func (g *Graph) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.nodes[Root]; ok {
		return len(g.nodes) - 1
	}
	return len(g.nodes)
}

func closedChan() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
