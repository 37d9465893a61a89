package decoder

import (
	"container/heap"
	"math"
	"sort"

	"github.com/fcitx/libime-go/dictionary"
	"github.com/fcitx/libime-go/lm"
	"github.com/fcitx/libime-go/segment"
)

const (
	BeamSizeDefault       = 20
	FrameSizeDefault      = 200
	MaxBackwardSearchSize = 10000
)

// LanguageModel is the narrow state-scoring contract the decoder
// needs. lm.StaticLanguageModel and lm.UserLanguageModel both satisfy
// it, over their respective opaque state types.
type LanguageModel[S any] interface {
	ScoreWord(in S, word string, out *S) lm.Weight
	ScoreSentenceEnd(in S) lm.Weight
	IsUnknown(word string) bool
}

// MatchPrefixFunc adapts a dictionary's match_prefix to the shape the
// decoder needs: PinyinDictionary threads its own match-state cache
// and fuzzy flags through a closure, TableBasedDictionary's method
// value already matches the signature directly.
type MatchPrefixFunc func(g *segment.Graph, ignore map[segment.NodeId]bool, cb dictionary.MatchCallback)

// Decoder builds and searches a lattice over a segment graph using
// one dictionary and one language model.
type Decoder[S any] struct {
	Match MatchPrefixFunc
	Model LanguageModel[S]
	// NeedSort decides whether a node's candidates are sorted by
	// descending score once the forward pass finishes that node.
	// Overridable: the table decoder only needs this when the start
	// node has multiple successors.
	NeedSort func(g *segment.Graph, n segment.NodeId) bool
}

// NewDecoder creates a Decoder that always sorts.
func NewDecoder[S any](match MatchPrefixFunc, model LanguageModel[S]) *Decoder[S] {
	return &Decoder[S]{
		Match:    match,
		Model:    model,
		NeedSort: func(*segment.Graph, segment.NodeId) bool { return true },
	}
}

type frameEntry[S any] struct {
	node   *LatticeNode[S]
	prelim lm.Weight
}

// frameHeap is a min-heap so Pop always evicts the frame's
// lowest-scoring candidate once it grows past frameSize.
type frameHeap[S any] []frameEntry[S]

func (h frameHeap[S]) Len() int            { return len(h) }
func (h frameHeap[S]) Less(i, j int) bool  { return h[i].prelim < h[j].prelim }
func (h frameHeap[S]) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *frameHeap[S]) Push(x interface{}) { *h = append(*h, x.(frameEntry[S])) }
func (h *frameHeap[S]) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}

type frameKey struct{ begin, end segment.NodeId }

// BuildLattice runs the dictionary's match_prefix over g and keeps, per
// (begin, end) span, the highest-scoring frameSize candidates (scored
// by a context-free single-word estimate: beginState's LM score for
// the word plus the dictionary's own entry cost). It reports false if
// the graph's end node ends up with no candidate at all.
func (d *Decoder[S]) BuildLattice(g *segment.Graph, ignore map[segment.NodeId]bool, beginState S, frameSize int) (*Lattice[S], bool) {
	lat := NewLattice[S]()
	frames := map[frameKey]*frameHeap[S]{}

	d.Match(g, ignore, func(path []segment.NodeId, word string, score float32, payload any) bool {
		begin, end := path[0], path[len(path)-1]
		var scratch S
		prelim := d.Model.ScoreWord(beginState, word, &scratch) + lm.Weight(score)
		node := &LatticeNode[S]{Word: word, Path: append([]segment.NodeId{}, path...), Cost: lm.Weight(score), Payload: payload}

		k := frameKey{begin, end}
		h, ok := frames[k]
		if !ok {
			h = &frameHeap[S]{}
			frames[k] = h
		}
		heap.Push(h, frameEntry[S]{node, prelim})
		if h.Len() > frameSize {
			heap.Pop(h)
		}
		return true
	})

	for _, h := range frames {
		for _, e := range *h {
			lat.addNode(e.node)
		}
	}

	if len(lat.NodesAt(g.End())) == 0 {
		return lat, false
	}
	return lat, true
}

// unknownCacheEntry is the shared (bestScore, bestNode, bestState)
// triple every unknown-word expansion from the same predecessor node
// reuses, since an out-of-vocabulary word's LM score never depends on
// its specific spelling.
type unknownCacheEntry[S any] struct {
	score lm.Weight
	node  *LatticeNode[S]
	state S
}

// Forward runs the Viterbi pass: for every node in ascending graph
// order, every candidate ending there picks the single predecessor
// (among up to beamSize highest-scoring candidates ending at its
// begin node) that maximizes cumulative score, and records it as
// Prev/State/Score. It returns the synthetic end-of-sentence node
// (Path == {g.End()}) whose Prev is the overall best sentence's last
// word — lat.Results[0]'s backtrace, once Backward runs, is this
// node's Prev chain.
func (d *Decoder[S]) Forward(g *segment.Graph, lat *Lattice[S], beginState S, beamSize int) *LatticeNode[S] {
	order := []segment.NodeId{}
	g.BFS(g.Start(), func(n segment.NodeId) { order = append(order, n) })
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })

	start := &LatticeNode[S]{Path: []segment.NodeId{g.Start()}, Score: 0, State: beginState}
	lat.setNodesAt(g.Start(), []*LatticeNode[S]{start})

	unknownCache := map[segment.NodeId]*unknownCacheEntry[S]{}

	for _, n := range order {
		if n == g.Start() {
			continue
		}
		nodes := lat.NodesAt(n)
		for _, x := range nodes {
			p := x.Begin()
			preds := lat.NodesAt(p)
			if len(preds) == 0 {
				continue
			}

			if d.Model.IsUnknown(x.Word) {
				if cached, ok := unknownCache[p]; ok {
					x.Score = cached.score + x.Cost
					x.Prev = cached.node
					x.State = cached.state
					continue
				}
			}

			limit := beamSize
			if limit > len(preds) {
				limit = len(preds)
			}
			var best lm.Weight
			var bestPrev *LatticeNode[S]
			var bestState S
			for _, y := range preds[:limit] {
				var out S
				s := y.Score + d.Model.ScoreWord(y.State, x.Word, &out)
				if bestPrev == nil || s > best {
					best, bestPrev, bestState = s, y, out
				}
			}
			if bestPrev == nil {
				continue
			}
			x.Score = best + x.Cost
			x.Prev = bestPrev
			x.State = bestState

			if d.Model.IsUnknown(x.Word) {
				unknownCache[p] = &unknownCacheEntry[S]{best, bestPrev, bestState}
			}
		}
		if d.NeedSort(g, n) {
			sort.Slice(nodes, func(i, j int) bool { return nodes[i].Score > nodes[j].Score })
		}
	}

	endNodes := lat.NodesAt(g.End())
	eos := &LatticeNode[S]{Path: []segment.NodeId{g.End()}}
	found := false
	for _, y := range endNodes {
		s := y.Score + d.Model.ScoreSentenceEnd(y.State)
		if !found || s > eos.Score {
			eos.Score, eos.Prev, found = s, y, true
		}
	}
	return eos
}

type backState[S any] struct {
	node *LatticeNode[S]
	tail []*LatticeNode[S]
	g, f lm.Weight
}

type backHeap[S any] []backState[S]

func (h backHeap[S]) Len() int            { return len(h) }
func (h backHeap[S]) Less(i, j int) bool  { return h[i].f > h[j].f } // max-heap
func (h backHeap[S]) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *backHeap[S]) Push(x interface{}) { *h = append(*h, x.(backState[S])) }
func (h *backHeap[S]) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}

// Backward performs an A*-like best-first backward search, discovering
// up to nbest distinct sentence surface strings. It seeds one queue
// entry per candidate ending at g.End() (not just the single one
// Forward's greedy backtrace picked), so lower-scoring alternatives
// there are still reachable as N-best results. max/min bound the
// search: a partial whose f has fallen more than max below the best
// discovered f is dropped, and an edge whose forward score (y.Score)
// is below min is never taken. The search stops after
// MaxBackwardSearchSize pops regardless.
func (d *Decoder[S]) Backward(g *segment.Graph, lat *Lattice[S], nbest int, max, min lm.Weight, beamSize int) []SentenceResult[S] {
	endNodes := lat.NodesAt(g.End())
	if len(endNodes) == 0 {
		return nil
	}

	pq := &backHeap[S]{}
	var bestF lm.Weight
	found := false
	for _, y := range endNodes {
		g0 := d.Model.ScoreSentenceEnd(y.State)
		f0 := y.Score + g0
		heap.Push(pq, backState[S]{node: y, tail: nil, g: g0, f: f0})
		if !found || f0 > bestF {
			bestF, found = f0, true
		}
	}

	var results []SentenceResult[S]
	seen := map[string]bool{}
	pops := 0

	for pq.Len() > 0 && len(results) < nbest && pops < MaxBackwardSearchSize {
		cur := heap.Pop(pq).(backState[S])
		pops++
		if cur.f < bestF-max {
			continue
		}

		tail := append([]*LatticeNode[S]{cur.node}, cur.tail...)

		if cur.node.Begin() == g.Start() {
			res := SentenceResult[S]{Nodes: tail, Score: cur.g + cur.node.Score}
			surface := res.Surface()
			if !seen[surface] {
				seen[surface] = true
				results = append(results, res)
			}
			continue
		}

		preds := lat.NodesAt(cur.node.Begin())
		limit := beamSize
		if limit > len(preds) {
			limit = len(preds)
		}
		for _, y := range preds[:limit] {
			if y.Score < min {
				continue
			}
			var scratch S
			edge := d.Model.ScoreWord(y.State, cur.node.Word, &scratch) + cur.node.Cost
			g2 := cur.g + edge
			f2 := g2 + y.Score
			if f2 < bestF-max {
				continue
			}
			if f2 > bestF {
				bestF = f2
			}
			heap.Push(pq, backState[S]{node: y, tail: tail, g: g2, f: f2})
		}
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	lat.Results = results
	return results
}

// Decode runs the three passes (BuildLattice, Forward, Backward) and
// reports whether the lattice built successfully.
func (d *Decoder[S]) Decode(g *segment.Graph, ignore map[segment.NodeId]bool, nbest int, beginState S, max, min lm.Weight, beamSize, frameSize int) (*Lattice[S], bool) {
	if beamSize <= 0 {
		beamSize = BeamSizeDefault
	}
	if frameSize <= 0 {
		frameSize = FrameSizeDefault
	}
	lat, ok := d.BuildLattice(g, ignore, beginState, frameSize)
	if !ok {
		return lat, false
	}
	eos := d.Forward(g, lat, beginState, beamSize)
	if eos.Prev == nil {
		return lat, false
	}
	if max <= 0 {
		max = lm.Weight(math.MaxFloat32)
	}
	if min == 0 {
		min = lm.Weight(-math.MaxFloat32)
	}
	d.Backward(g, lat, nbest, max, min, beamSize)
	return lat, true
}
