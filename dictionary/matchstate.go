package dictionary

import (
	"github.com/fcitx/libime-go/datrie"
	"github.com/fcitx/libime-go/segment"
)

// PinyinPayload is the per-match detail a PinyinDictionary hands the
// MatchCallback: the encoded-pinyin bytes consumed (the syllable
// sequence, before the separator and hanzi), and a correction flag.
// PinyinDictionary.MatchPrefix always leaves IsCorrection false; it
// does not track whether a match was reached through a Correction
// table entry.
type PinyinPayload struct {
	EncodedPinyin []byte
	IsCorrection  bool
}

// triePos is one live double-array position carried forward while
// walking the segment graph: the trie position itself, the number of
// bytes of key consumed so far (needed to turn Entry.Depth, which
// Foreach reports relative to its start position, back into the
// absolute depth Suffix requires), and how many fuzzy expansions were
// used to reach it (for the fuzzy-match cost penalty).
type triePos struct {
	pos        datrie.Position
	depth      int
	fuzzyCount int
}

// nodeCache holds, for one segment-graph node and one sub-dictionary
// index, every trie position reachable there.
type nodeCache struct {
	positions [][]triePos // indexed by sub-dictionary index
}

// PinyinMatchState is the per-session cache a PinyinContext threads
// through repeated MatchPrefix calls: it remembers, for every segment
// graph node already visited, which trie positions are live in each
// sub-dictionary, so re-matching after a small graph edit only
// recomputes the nodes the edit actually touched. Graph.Merge's
// discard callback should call Invalidate with the discarded nodes.
type PinyinMatchState struct {
	caches map[segment.NodeId]*nodeCache
}

// NewPinyinMatchState creates an empty cache.
func NewPinyinMatchState() *PinyinMatchState {
	return &PinyinMatchState{caches: map[segment.NodeId]*nodeCache{}}
}

// Invalidate drops the cached state for every listed node. Pass this
// as the discard callback to segment.Merge.
func (s *PinyinMatchState) Invalidate(nodes ...segment.NodeId) {
	for _, n := range nodes {
		delete(s.caches, n)
	}
}

// Clear drops the entire cache (e.g. when the match begin-state
// changes, as after PinyinContext.cancel()).
func (s *PinyinMatchState) Clear() {
	s.caches = map[segment.NodeId]*nodeCache{}
}

func (s *PinyinMatchState) ensure(n segment.NodeId, numDicts int) *nodeCache {
	c, ok := s.caches[n]
	if !ok {
		c = &nodeCache{positions: make([][]triePos, numDicts)}
		s.caches[n] = c
	}
	return c
}
