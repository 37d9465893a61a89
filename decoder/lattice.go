// Package decoder builds a lattice of candidate word sequences over a
// segment graph and searches it for the best (and next-best)
// sentences: a forward Viterbi pass scores every lattice node against
// a language model, then a backward A*-style search enumerates
// N-best complete sentences from the result.
package decoder

import (
	"github.com/fcitx/libime-go/dictionary"
	"github.com/fcitx/libime-go/lm"
	"github.com/fcitx/libime-go/segment"
)

// LatticeNode is one candidate word spanning Path[0] to
// Path[len(Path)-1] of a segment graph. Score is the best cumulative
// log-probability of reaching this node found so far by the forward
// pass; Prev is the predecessor that achieved it. Payload carries
// dictionary-specific detail (e.g. *dictionary.PinyinPayload).
type LatticeNode[S any] struct {
	Word    string
	Path    []segment.NodeId
	Cost    lm.Weight // the dictionary-reported entry weight
	Score   lm.Weight // best cumulative score from the forward pass
	State   S
	Prev    *LatticeNode[S]
	Payload any
}

// Begin and End are the graph nodes this candidate spans.
func (n *LatticeNode[S]) Begin() segment.NodeId { return n.Path[0] }
func (n *LatticeNode[S]) End() segment.NodeId   { return n.Path[len(n.Path)-1] }

// IsCorrection reports whether this node's payload marks it as
// reached only via a keyboard-adjacency typo correction.
func (n *LatticeNode[S]) IsCorrection() bool {
	p, ok := n.Payload.(*dictionary.PinyinPayload)
	return ok && p.IsCorrection
}

// AnyCorrectionOnPath walks backwards from n reporting whether any
// node on the backtrace, including n itself, required a correction.
func (n *LatticeNode[S]) AnyCorrectionOnPath() bool {
	for cur := n; cur != nil; cur = cur.Prev {
		if cur.IsCorrection() {
			return true
		}
	}
	return false
}

// SentenceResult is one complete candidate sentence discovered by the
// backward search, in forward (left-to-right) node order.
type SentenceResult[S any] struct {
	Nodes []*LatticeNode[S]
	Score lm.Weight
}

// Surface renders the sentence's concatenated surface string, used to
// deduplicate N-best results.
func (r SentenceResult[S]) Surface() string {
	out := ""
	for _, n := range r.Nodes {
		out += n.Word
	}
	return out
}

// Lattice holds every LatticeNode discovered for a segment graph,
// indexed by the node it ends at, plus the ranked N-best results the
// backward search produced.
type Lattice[S any] struct {
	nodes   map[segment.NodeId][]*LatticeNode[S]
	Results []SentenceResult[S]
}

// NewLattice creates an empty lattice.
func NewLattice[S any]() *Lattice[S] {
	return &Lattice[S]{nodes: map[segment.NodeId][]*LatticeNode[S]{}}
}

// NodesAt returns every lattice node ending at graph node n.
func (l *Lattice[S]) NodesAt(n segment.NodeId) []*LatticeNode[S] { return l.nodes[n] }

func (l *Lattice[S]) addNode(n *LatticeNode[S]) {
	end := n.End()
	l.nodes[end] = append(l.nodes[end], n)
}

func (l *Lattice[S]) setNodesAt(n segment.NodeId, nodes []*LatticeNode[S]) {
	l.nodes[n] = nodes
}
