// Package segment implements the segment graph: a DAG over the byte
// offsets of a user's raw input, where each edge represents one
// plausible syllable (or shape-code token). It is produced by the
// Pinyin/Shuangpin segmenters in package pinyin and consumed by the
// decoder while building a lattice.
package segment

import "sort"

// NodeId identifies a node by its byte offset into the graph's raw
// data. Node 0 is always the start; NodeId(len(data)) is always the
// end.
type NodeId int

// Edge is one plausible segmentation step, spanning data[From:To].
type Edge struct {
	From, To NodeId
}

// Graph is a DAG with len(data)+1 node slots, one per byte offset.
// Edges always go from a smaller to a larger index.
type Graph struct {
	data string
	// adjacency[i] holds every edge starting at node i, sorted by To.
	adjacency [][]NodeId
}

// New creates an empty graph over data with start and end nodes but
// no edges.
func New(data string) *Graph {
	g := &Graph{data: data}
	g.adjacency = make([][]NodeId, len(data)+1)
	return g
}

// Data returns the raw input the graph was built from.
func (g *Graph) Data() string { return g.data }

// Start returns the start node.
func (g *Graph) Start() NodeId { return 0 }

// End returns the end node.
func (g *Graph) End() NodeId { return NodeId(len(g.data)) }

// AddEdge adds an edge from -> to. from must be < to.
func (g *Graph) AddEdge(from, to NodeId) {
	if from >= to {
		panic("segment: AddEdge requires from < to")
	}
	edges := g.adjacency[from]
	i := sort.Search(len(edges), func(i int) bool { return edges[i] >= to })
	if i < len(edges) && edges[i] == to {
		return // already present
	}
	edges = append(edges, 0)
	copy(edges[i+1:], edges[i:])
	edges[i] = to
	g.adjacency[from] = edges
}

// Next returns every node reachable from node by one edge, sorted
// ascending.
func (g *Graph) Next(node NodeId) []NodeId { return g.adjacency[node] }

// Segment returns the substring data[a:b].
func (g *Graph) Segment(a, b NodeId) string { return g.data[a:b] }

// CheckGraph reports whether every node between start and end (other
// than isolated offsets that simply have no edge at all, e.g. between
// two multi-byte runes) is reachable from the start and can reach the
// end. It is used in tests and assertions, mirroring the debug-only
// invariant checks the original library performs on every public-API
// exit.
func (g *Graph) CheckGraph() bool {
	n := len(g.adjacency)
	reachFromStart := make([]bool, n)
	g.bfs(g.Start(), func(id NodeId) { reachFromStart[id] = true })
	if !reachFromStart[g.End()] {
		return false
	}
	reverse := g.reverseAdjacency()
	reachesEnd := make([]bool, n)
	queue := []NodeId{g.End()}
	reachesEnd[g.End()] = true
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, p := range reverse[cur] {
			if !reachesEnd[p] {
				reachesEnd[p] = true
				queue = append(queue, p)
			}
		}
	}
	for i := range g.adjacency {
		if len(g.adjacency[i]) == 0 && i != int(g.End()) {
			continue
		}
		if reachFromStart[i] && !reachesEnd[NodeId(i)] {
			return false
		}
	}
	return true
}

func (g *Graph) reverseAdjacency() [][]NodeId {
	rev := make([][]NodeId, len(g.adjacency))
	for from, edges := range g.adjacency {
		for _, to := range edges {
			rev[to] = append(rev[to], NodeId(from))
		}
	}
	return rev
}

// BFS walks nodes reachable from start in breadth-first order,
// invoking visit once per node.
func (g *Graph) BFS(start NodeId, visit func(NodeId)) { g.bfs(start, visit) }

func (g *Graph) bfs(start NodeId, visit func(NodeId)) {
	seen := make([]bool, len(g.adjacency))
	queue := []NodeId{start}
	seen[start] = true
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		visit(cur)
		for _, next := range g.adjacency[cur] {
			if !seen[next] {
				seen[next] = true
				queue = append(queue, next)
			}
		}
	}
}

// DFS walks nodes reachable from start in depth-first pre-order.
func (g *Graph) DFS(start NodeId, visit func(NodeId)) {
	seen := make([]bool, len(g.adjacency))
	var walk func(NodeId)
	walk = func(n NodeId) {
		if seen[n] {
			return
		}
		seen[n] = true
		visit(n)
		for _, next := range g.adjacency[n] {
			walk(next)
		}
	}
	walk(start)
}

// Merge reuses the longest common structural prefix between g and
// other (identical edge sets up to some shared node), adopts the
// differing suffix from other, and invokes discard for every node of
// g that is no longer part of the merged graph, so that caches keyed
// by node id can be invalidated. Only when g's raw text is a prefix of
// other's can anything be reused; otherwise (e.g. after a deletion)
// no node is reused and discard is invoked for every node of g. Merge
// returns the merged graph; g and other are not mutated.
func Merge(g, other *Graph, discard func(NodeId)) *Graph {
	if g == nil {
		return other
	}
	common := commonPrefixLen(g, other)
	merged := New(other.data)
	// Nodes [0, common) and their edges are structurally identical in
	// both graphs (that's the definition of commonPrefixLen); reuse
	// them verbatim.
	for from := 0; from < common; from++ {
		for _, to := range g.adjacency[from] {
			if int(to) <= common {
				merged.AddEdge(NodeId(from), to)
			}
		}
	}
	// Adopt the tail of other beyond the shared prefix.
	for from := 0; from < len(other.adjacency); from++ {
		for _, to := range other.adjacency[from] {
			if from >= common || int(to) > common {
				merged.AddEdge(NodeId(from), to)
			}
		}
	}
	if discard != nil {
		for i := common; i < len(g.adjacency); i++ {
			discard(NodeId(i))
		}
	}
	return merged
}

// commonPrefixLen returns the largest offset p such that the edge
// sets of g and other restricted to [0, p) are identical.
func commonPrefixLen(g, other *Graph) int {
	limit := len(g.adjacency)
	if len(other.adjacency) < limit {
		limit = len(other.adjacency)
	}
	if g.data != other.data[:min(len(g.data), len(other.data))] {
		// g's raw text is not a prefix of other's; nothing is shared.
		return 0
	}
	for i := 0; i < limit; i++ {
		if !sameEdges(g.adjacency[i], other.adjacency[i]) {
			return i
		}
	}
	return limit
}

func sameEdges(a, b []NodeId) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
