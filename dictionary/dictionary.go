// Package dictionary implements the on-disk and in-memory word
// dictionaries the decoder consults while building a lattice:
// PinyinDictionary (encoded-pinyin keyed tries) and
// TableBasedDictionary (shape-code tries with phrase-generation
// rules), plus their shared match_prefix contract.
package dictionary

import "github.com/fcitx/libime-go/segment"

// Flag marks per-subdictionary behavior. A PinyinDictionary or
// TableBasedDictionary holds several named sub-tries (system, user,
// extra, ...), each with its own Flags.
type Flag uint32

const (
	NoFlag Flag = 0
	// FullMatch restricts a sub-dictionary to only report words whose
	// path spans the entire segment graph.
	FullMatch Flag = 1 << 1
	// Disabled skips a sub-dictionary entirely during matching.
	Disabled Flag = 1 << 2
)

// Has reports whether every bit in want is set in f.
func (f Flag) Has(want Flag) bool { return f&want == want }

// MatchCallback is invoked once per dictionary hit while walking a
// segment graph. path is the node sequence the match spans (from
// path[0] to path[len(path)-1]); word is the matched surface string;
// score is the match's stored log-probability, already demoted for
// any fuzzy expansions used to reach it; payload carries
// dictionary-specific detail (*PinyinPayload for PinyinDictionary,
// *TablePayload for TableBasedDictionary).
type MatchCallback func(path []segment.NodeId, word string, score float32, payload any) bool

// PhraseFlag marks where a TableBasedDictionary entry came from, so a
// TableContext can order, auto-select and commit candidates
// differently depending on provenance (e.g. promote a user-confirmed
// word ahead of a freshly auto-learned phrase).
type PhraseFlag int

const (
	PhraseFlagNone PhraseFlag = iota
	PhraseFlagPinyin
	PhraseFlagPrompt
	PhraseFlagConstructPhrase
	PhraseFlagUser
	PhraseFlagAuto
	PhraseFlagInvalid
)

// TablePayload is the per-match detail a TableBasedDictionary hands
// the MatchCallback: the shape code the match consumed (equal to
// Graph.Segment from the path's start to its end) and which
// sub-dictionary it was found in.
type TablePayload struct {
	Code string
	Flag PhraseFlag
}

// Dictionary is the base contract every concrete dictionary
// implements: given a segment graph and a set of nodes to ignore
// (whose incident edges must not contribute to any reported match),
// invoke cb for every word reachable along some path of the graph.
type Dictionary interface {
	MatchPrefix(g *segment.Graph, ignore map[segment.NodeId]bool, cb MatchCallback)
}
