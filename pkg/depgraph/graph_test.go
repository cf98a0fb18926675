package depgraph

import (
	"sync"
	"testing"
)

func TestGetOrCreateOwnership(t *testing.T) {
	g := New()
	pin := Pin{Name: "left-pad", Version: "1.3.0"}

	node, created := g.GetOrCreate(pin)
	if !created {
		t.Fatal("expected first GetOrCreate to create the node")
	}

	same, created2 := g.GetOrCreate(pin)
	if created2 {
		t.Error("expected second GetOrCreate to observe the existing node")
	}
	if same != node {
		t.Error("expected the same node pointer")
	}
}

func TestNodeDoneSignalling(t *testing.T) {
	g := New()
	pin := Pin{Name: "left-pad", Version: "1.3.0"}
	node, _ := g.GetOrCreate(pin)

	var wg sync.WaitGroup
	wg.Add(1)
	observed := make(chan string, 1)
	go func() {
		defer wg.Done()
		<-node.Done()
		observed <- node.Record.Version
	}()

	node.Record.Version = "1.3.0"
	node.Close()
	wg.Wait()

	if got := <-observed; got != "1.3.0" {
		t.Errorf("reader observed Record.Version = %q, want 1.3.0", got)
	}
}

func TestGraphLenExcludesRoot(t *testing.T) {
	g := New()
	if g.Len() != 0 {
		t.Fatalf("expected empty graph, got Len()=%d", g.Len())
	}
	g.GetOrCreate(Pin{Name: "a", Version: "1.0.0"})
	g.GetOrCreate(Pin{Name: "b", Version: "2.0.0"})
	if g.Len() != 2 {
		t.Errorf("Len() = %d, want 2", g.Len())
	}
	nodes := g.Nodes()
	for _, n := range nodes {
		if n.Pin == Root {
			t.Error("Nodes() must not include the synthetic root")
		}
	}
}

func TestRootIsImmediatelyDone(t *testing.T) {
	g := New()
	root, ok := g.Get(Root)
	if !ok {
		t.Fatal("expected root node to exist")
	}
	select {
	case <-root.Done():
	default:
		t.Error("expected root node's Done channel to be pre-closed")
	}
}
