package layout

import (
	"path/filepath"
	"sort"

	"github.com/danielhuang/cotton/pkg/depgraph"
	cottonerrors "github.com/danielhuang/cotton/pkg/errors"
	"github.com/danielhuang/cotton/pkg/registry"
)

// Placement is where one pinned package lands in the dependency tree and
// the registry record the installer needs to fetch and verify it.
type Placement struct {
	Pin    depgraph.Pin
	Path   string // relative to the project's dependency root
	Record registry.ManifestRecord
}

// Plan is the layout planner's output: every pinned package's placement.
type Plan struct {
	Placements map[depgraph.Pin]Placement
}

// planner carries the mutable state of one planning run.
type planner struct {
	graph *depgraph.Graph

	parentOf  map[depgraph.Pin]depgraph.Pin // chosen immediate requestor, if nested
	hasParent map[depgraph.Pin]bool

	topOccupant    map[string]depgraph.Pin
	nestedOccupant map[string]map[string]depgraph.Pin // parentPath -> name -> pin

	placements map[depgraph.Pin]string
	visiting   map[depgraph.Pin]bool
}

// Plan builds a filesystem layout for graph's pinned packages (spec
// §4.E): a two-pass hoist-then-verify placement assigning each pin the
// shallowest directory that doesn't collide with a differently-versioned
// sibling of the same name.
func Plan(graph *depgraph.Graph) (*Plan, error) {
	p := &planner{
		graph:          graph,
		parentOf:       map[depgraph.Pin]depgraph.Pin{},
		hasParent:      map[depgraph.Pin]bool{},
		topOccupant:    map[string]depgraph.Pin{},
		nestedOccupant: map[string]map[string]depgraph.Pin{},
		placements:     map[depgraph.Pin]string{},
		visiting:       map[depgraph.Pin]bool{},
	}

	nodes := graph.Nodes()
	byPin := make(map[depgraph.Pin]*depgraph.Node, len(nodes))
	for _, n := range nodes {
		<-n.Done()
		byPin[n.Pin] = n
	}

	p.indexParents(graph, nodes)

	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].Pin.Name != nodes[j].Pin.Name {
			return nodes[i].Pin.Name < nodes[j].Pin.Name
		}
		return nodes[i].Pin.Version < nodes[j].Pin.Version
	})

	for _, n := range nodes {
		if _, err := p.place(n.Pin); err != nil {
			return nil, err
		}
	}

	if err := p.verify(byPin); err != nil {
		return nil, err
	}

	placements := make(map[depgraph.Pin]Placement, len(nodes))
	for _, n := range nodes {
		placements[n.Pin] = Placement{Pin: n.Pin, Path: p.placements[n.Pin], Record: n.Record}
	}
	return &Plan{Placements: placements}, nil
}

// indexParents records, for every pin with at least one incoming edge,
// the lexicographically-smallest requestor — the deterministic tie-break
// used when a pin must nest and has more than one requestor.
func (p *planner) indexParents(graph *depgraph.Graph, nodes []*depgraph.Node) {
	candidates := map[depgraph.Pin][]depgraph.Pin{}

	root, _ := graph.Get(depgraph.Root)
	for _, child := range root.Edges() {
		candidates[child] = append(candidates[child], depgraph.Root)
	}
	for _, n := range nodes {
		for _, child := range n.Edges() {
			candidates[child] = append(candidates[child], n.Pin)
		}
	}

	for child, parents := range candidates {
		sort.Slice(parents, func(i, j int) bool {
			if parents[i].Name != parents[j].Name {
				return parents[i].Name < parents[j].Name
			}
			return parents[i].Version < parents[j].Version
		})
		p.parentOf[child] = parents[0]
		p.hasParent[child] = true
	}
}

// place assigns pin a directory, recursing onto its chosen parent first
// if the top-level slot for its name is unavailable. Results are memoised
// in p.placements: a pin's directory, once chosen, never moves.
func (p *planner) place(pin depgraph.Pin) (string, error) {
	if path, ok := p.placements[pin]; ok {
		return path, nil
	}
	if p.visiting[pin] {
		return "", cottonerrors.New(cottonerrors.ErrCodeLayoutUnsatisfiable,
			"cyclic nesting requirement involving %s@%s", pin.Name, pin.Version)
	}
	if err := cottonerrors.ValidatePackageName(pin.Name); err != nil {
		return "", err
	}

	p.visiting[pin] = true
	defer delete(p.visiting, pin)

	if occ, taken := p.topOccupant[pin.Name]; !taken || occ == pin {
		p.topOccupant[pin.Name] = pin
		p.placements[pin] = pin.Name
		return pin.Name, nil
	}

	if !p.hasParent[pin] {
		return "", cottonerrors.New(cottonerrors.ErrCodeLayoutUnsatisfiable,
			"%s@%s conflicts with another version at the top level and has no requestor to nest under", pin.Name, pin.Version)
	}
	requestor := p.parentOf[pin]
	if requestor == depgraph.Root {
		return "", cottonerrors.New(cottonerrors.ErrCodeLayoutUnsatisfiable,
			"%s@%s conflicts with another version at the top level; the project's own dependency cannot nest further", pin.Name, pin.Version)
	}

	parentPath, err := p.place(requestor)
	if err != nil {
		return "", err
	}

	childPath := filepath.Join(parentPath, pin.Name)
	slots, ok := p.nestedOccupant[parentPath]
	if !ok {
		slots = map[string]depgraph.Pin{}
		p.nestedOccupant[parentPath] = slots
	}
	slots[pin.Name] = pin // a single parent has at most one edge per name, so this never conflicts
	p.placements[pin] = childPath
	return childPath, nil
}

// verify walks every dependency edge back up the filesystem tree,
// confirming the nearest ancestor directory holding a subdirectory named
// after the dependency is in fact the child's placed directory (spec
// §4.E verification pass).
func (p *planner) verify(byPin map[depgraph.Pin]*depgraph.Node) error {
	check := func(parentPath string, name string, wantPath string) error {
		for dir := parentPath; ; {
			if hasSubdir(p, dir, name) {
				var got string
				if dir == "" {
					got = name
				} else {
					got = filepath.Join(dir, name)
				}
				if got == wantPath {
					return nil
				}
				return cottonerrors.New(cottonerrors.ErrCodeLayoutUnsatisfiable,
					"resolving %q from %q would find %q, not %q", name, parentPath, got, wantPath)
			}
			if dir == "" {
				return cottonerrors.New(cottonerrors.ErrCodeLayoutUnsatisfiable,
					"resolving %q from %q would find nothing", name, parentPath)
			}
			if next := filepath.Dir(dir); next == "." {
				dir = ""
			} else {
				dir = next
			}
		}
	}

	root, _ := p.graph.Get(depgraph.Root)
	for name, child := range root.Edges() {
		if err := check("", name, p.placements[child]); err != nil {
			return err
		}
	}
	for _, n := range byPin {
		parentPath := p.placements[n.Pin]
		for name, child := range n.Edges() {
			if err := check(parentPath, name, p.placements[child]); err != nil {
				return err
			}
		}
	}
	return nil
}

// hasSubdir reports whether dir (a planned directory, not yet materialised
// on disk) holds a directly-placed package named name, according to the
// plan's own bookkeeping rather than the filesystem.
func hasSubdir(p *planner, dir, name string) bool {
	if dir == "" {
		occ, ok := p.topOccupant[name]
		return ok && p.placements[occ] == name
	}
	slots, ok := p.nestedOccupant[dir]
	if !ok {
		return false
	}
	occ, ok := slots[name]
	return ok && p.placements[occ] == filepath.Join(dir, name)
}
