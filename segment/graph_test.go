package segment

import (
	"reflect"
	"testing"
)

func buildLinear(data string) *Graph {
	g := New(data)
	for i := 0; i < len(data); i++ {
		g.AddEdge(NodeId(i), NodeId(i+1))
	}
	return g
}

func TestCheckGraphLinear(t *testing.T) {
	g := buildLinear("nihao")
	if !g.CheckGraph() {
		t.Fatal("CheckGraph() = false for a fully linear graph")
	}
}

func TestSegment(t *testing.T) {
	g := buildLinear("nihao")
	g.AddEdge(0, 2) // "ni" as one edge too
	if got := g.Segment(0, 2); got != "ni" {
		t.Errorf("Segment(0,2) = %q, want %q", got, "ni")
	}
}

func TestMergeReusesCommonPrefix(t *testing.T) {
	discarded := map[NodeId]bool{}
	g1 := New("nihao")
	g1.AddEdge(0, 2)
	g1.AddEdge(2, 5)
	g1.AddEdge(5, 6) // wrong tail, e.g. stale edit

	g2 := New("nihaoan")
	g2.AddEdge(0, 2)
	g2.AddEdge(2, 5)
	g2.AddEdge(5, 6)
	g2.AddEdge(6, 7)

	merged := Merge(g1, g2, func(n NodeId) { discarded[n] = true })
	if merged.End() != 7 {
		t.Fatalf("End() = %d, want 7", merged.End())
	}
	if !reflect.DeepEqual(merged.Next(0), []NodeId{2}) {
		t.Errorf("Next(0) = %v", merged.Next(0))
	}
	if !reflect.DeepEqual(merged.Next(6), []NodeId{7}) {
		t.Errorf("Next(6) = %v", merged.Next(6))
	}
}

func TestBFSOrder(t *testing.T) {
	g := New("ab")
	g.AddEdge(0, 1)
	g.AddEdge(1, 2)
	g.AddEdge(0, 2)
	var order []NodeId
	g.BFS(0, func(n NodeId) { order = append(order, n) })
	if !reflect.DeepEqual(order, []NodeId{0, 1, 2}) {
		t.Errorf("BFS order = %v, want [0 1 2]", order)
	}
}
