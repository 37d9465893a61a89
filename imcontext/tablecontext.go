package imcontext

import (
	"regexp"
	"sort"
	"strings"

	"github.com/fcitx/libime-go/decoder"
	"github.com/fcitx/libime-go/dictionary"
	"github.com/fcitx/libime-go/lm"
	"github.com/fcitx/libime-go/segment"
)

// OrderPolicy is the type of TableContext.Order. orderCandidates does
// not read Order, so every policy yields the same ordering, the one
// documented on orderCandidates.
type OrderPolicy int

const (
	// OrderNo is the zero value.
	OrderNo OrderPolicy = iota
	// OrderFast is stored in Order but does not change the ordering.
	OrderFast
	// OrderFreq is stored in Order but does not change the ordering.
	OrderFreq
)

// selectedTable is one committed word: where it started in the raw
// code buffer, how many raw bytes it consumed, the shape code it was
// selected under, and the sub-dictionary provenance of its match.
type selectedTable struct {
	offset int
	length int
	code   string
	word   string
	flag   dictionary.PhraseFlag
}

// TableContext is a stateful shape-code ("Wubi"-style) input session:
// it owns a raw keystroke buffer, matches its unselected tail against
// a TableBasedDictionary on every edit, ranks the resulting
// candidates, and tracks committed words the way PinyinContext does
// for phonetic input.
type TableContext struct {
	inputBuffer

	Dict  *dictionary.TableBasedDictionary
	Model *lm.UserLanguageModel

	// UserDictIndex is the sub-dictionary Learn and auto-phrase
	// promotion write newly confirmed entries into.
	UserDictIndex int

	Order             OrderPolicy
	NoSortInputLength int
	SortByCodeLength  bool

	AutoSelectLength        int
	AutoSelectRegex         *regexp.Regexp
	NoMatchAutoSelectLength int
	NoMatchAutoSelectRegex  *regexp.Regexp

	NBest       int
	BeamSize    int
	FrameSize   int
	MaxDistance lm.Weight
	MinDistance lm.Weight

	dec        *decoder.Decoder[lm.UserState]
	graph      *segment.Graph
	lattice    *decoder.Lattice[lm.UserState]
	candidates []decoder.SentenceResult[lm.UserState]

	selected [][]selectedTable
	consumed int
}

// NewTableContext creates an empty context over dict and model.
func NewTableContext(dict *dictionary.TableBasedDictionary, model *lm.UserLanguageModel) *TableContext {
	c := &TableContext{
		Dict:  dict,
		Model: model,
		NBest: 1,
		graph: segment.New(""),
	}
	c.dec = decoder.NewDecoder[lm.UserState](dict.MatchPrefix, model)
	// A single-edge code graph only ever needs a forward-pass sort
	// when the start node has more than one successor, which never
	// happens here (graphForCode emits exactly one edge); kept
	// explicit rather than always-true to mirror the table decoder's
	// own needSort rule.
	c.dec.NeedSort = func(g *segment.Graph, n segment.NodeId) bool {
		return len(g.Next(g.Start())) != 1
	}
	c.update()
	return c
}

func (c *TableContext) nbest() int {
	if c.NBest <= 0 {
		return 1
	}
	return c.NBest
}

// graphForCode builds the segment graph MatchPrefix walks: a single
// edge spanning the whole unselected tail. TableBasedDictionary's trie
// traversal consumes the edge's bytes one at a time internally and
// reports a match at the resulting node regardless of how many graph
// edges got it there, so one edge per update is enough for prefix
// matching as the user types. The original additionally partitions
// the code into per-character sub-edges when an auto rule applies, to
// let the decoder assemble a multi-word phrase across several
// characters' individual codes within one decode; TableRule here
// carries no per-rule code-length or name lookup to replicate that,
// so that partitioning is left out — a table phrase still gets built,
// just one committed selection at a time rather than within a single
// decode pass.
func graphForCode(tail string) *segment.Graph {
	g := segment.New(tail)
	if len(tail) > 0 {
		g.AddEdge(0, segment.NodeId(len(tail)))
	}
	return g
}

func (c *TableContext) state() lm.UserState {
	s := c.Model.BeginState()
	for _, sel := range c.selected {
		for _, item := range sel {
			if item.word == "" {
				continue
			}
			var out lm.UserState
			c.Model.ScoreWord(s, item.word, &out)
			s = out
		}
	}
	return s
}

func (c *TableContext) currentSegment() string { return c.String()[c.consumed:] }

func (c *TableContext) update() {
	tail := c.currentSegment()
	c.graph = graphForCode(tail)
	if tail == "" {
		c.lattice = decoder.NewLattice[lm.UserState]()
		c.candidates = nil
		return
	}

	lat, ok := c.dec.Decode(c.graph, nil, c.nbest(), c.state(), c.MaxDistance, c.MinDistance, c.BeamSize, c.FrameSize)
	c.lattice = lat
	if !ok {
		c.candidates = nil
		c.checkAutoSelect()
		return
	}
	c.candidates = c.orderCandidates(lat.Results)
	c.checkAutoSelect()
}

func payloadOf(node *decoder.LatticeNode[lm.UserState]) *dictionary.TablePayload {
	p, _ := node.Payload.(*dictionary.TablePayload)
	return p
}

func candidateCode(r decoder.SentenceResult[lm.UserState]) string {
	var sb strings.Builder
	for _, n := range r.Nodes {
		if p := payloadOf(n); p != nil {
			sb.WriteString(p.Code)
		}
	}
	return sb.String()
}

func candidateFlags(r decoder.SentenceResult[lm.UserState]) (isAuto, isPinyin bool) {
	isAuto = len(r.Nodes) > 0
	for _, n := range r.Nodes {
		p := payloadOf(n)
		if p == nil || p.Flag != dictionary.PhraseFlagAuto {
			isAuto = false
		}
		if p != nil && p.Flag == dictionary.PhraseFlagPinyin {
			isPinyin = true
		}
	}
	return
}

// orderCandidates is a simplified TableCandidateCompare: non-auto
// matches sort ahead of auto-phrase matches; within each group,
// "short" non-pinyin codes (at most NoSortInputLength bytes) sort
// ahead of longer ones; SortByCodeLength then breaks ties by code
// length; everything else falls back to descending decode score. The
// original additionally tie-breaks by each entry's raw trie insertion
// index (ascending for System entries, via negation, directly for
// User ones); TablePayload carries no insertion index to replicate
// that, so score is the final tie-break here instead.
func (c *TableContext) orderCandidates(results []decoder.SentenceResult[lm.UserState]) []decoder.SentenceResult[lm.UserState] {
	out := append([]decoder.SentenceResult[lm.UserState]{}, results...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		autoA, pinA := candidateFlags(a)
		autoB, pinB := candidateFlags(b)
		if autoA != autoB {
			return !autoA
		}
		if autoA && autoB {
			return a.Score > b.Score
		}

		codeA, codeB := candidateCode(a), candidateCode(b)
		shortA := len(codeA) <= c.NoSortInputLength && !pinA
		shortB := len(codeB) <= c.NoSortInputLength && !pinB
		if shortA != shortB {
			return shortA
		}
		if c.SortByCodeLength && len(codeA) != len(codeB) {
			return len(codeA) < len(codeB)
		}
		return a.Score > b.Score
	})
	return out
}

// Candidates returns the current ranked candidates.
func (c *TableContext) Candidates() []decoder.SentenceResult[lm.UserState] { return c.candidates }

// CandidateHint renders candidates()[idx]'s shape code, for a caller
// that wants to show the keys that produced it.
func (c *TableContext) CandidateHint(idx int) string {
	if idx < 0 || idx >= len(c.candidates) {
		return ""
	}
	return candidateCode(c.candidates[idx])
}

func (c *TableContext) checkAutoSelect() {
	n := runeLen(c.currentSegment())
	if n == 0 {
		return
	}
	if len(c.candidates) == 0 {
		c.checkNoMatchAutoSelect(n)
		return
	}
	tail := c.currentSegment()
	if (c.AutoSelectLength > 0 && n >= c.AutoSelectLength) ||
		(c.AutoSelectRegex != nil && c.AutoSelectRegex.MatchString(tail)) {
		c.autoSelect()
	}
}

// checkNoMatchAutoSelect commits the raw unselected tail verbatim
// (flagged Invalid, i.e. not yet a dictionary entry) once it has
// reached the configured no-match threshold with still no candidate —
// lets typing continue past a code nothing matches instead of
// jamming.
func (c *TableContext) checkNoMatchAutoSelect(n int) {
	tail := c.currentSegment()
	if !((c.NoMatchAutoSelectLength > 0 && n >= c.NoMatchAutoSelectLength) ||
		(c.NoMatchAutoSelectRegex != nil && c.NoMatchAutoSelectRegex.MatchString(tail))) {
		return
	}
	c.commit([]selectedTable{{offset: c.consumed, length: len(tail), code: tail, word: tail, flag: dictionary.PhraseFlagInvalid}})
}

func (c *TableContext) autoSelect() {
	if len(c.candidates) == 0 {
		return
	}
	c.selectSentence(c.candidates[0])
}

func (c *TableContext) selectSentence(r decoder.SentenceResult[lm.UserState]) {
	if len(r.Nodes) == 0 {
		return
	}
	sel := make([]selectedTable, 0, len(r.Nodes))
	for _, node := range r.Nodes {
		p := payloadOf(node)
		code, flag := "", dictionary.PhraseFlagNone
		if p != nil {
			code, flag = p.Code, p.Flag
		}
		sel = append(sel, selectedTable{
			offset: c.consumed + int(node.Begin()),
			length: int(node.End()) - int(node.Begin()),
			code:   code,
			word:   node.Word,
			flag:   flag,
		})
	}
	c.commit(sel)
}

func (c *TableContext) commit(sel []selectedTable) {
	c.selected = append(c.selected, sel)
	end := 0
	for _, item := range sel {
		if e := item.offset + item.length; e > end {
			end = e
		}
	}
	c.consumed = end
	c.learnAutoPhrase(sel)
	c.update()
}

// learnAutoPhrase is a simplified learnAutoPhrase(): the original
// tracks a whole run of consecutively selected single characters and
// proposes every suffix of it (up to a configured max phrase length)
// as an auto-phrase candidate. Here only the most recent two
// single-character selections are tried, which covers the common
// case of a user repeatedly typing two single characters together,
// without carrying the extra running-buffer state a longer window
// would need.
func (c *TableContext) learnAutoPhrase(sel []selectedTable) {
	if len(sel) != 1 || runeLen(sel[0].word) != 1 || len(c.selected) < 2 {
		return
	}
	prev := c.selected[len(c.selected)-2]
	if len(prev) != 1 || runeLen(prev[0].word) != 1 {
		return
	}
	phrase := prev[0].word + sel[0].word
	code, ok := c.Dict.Generate(phrase)
	if !ok {
		return
	}
	c.Dict.RecordUsage(c.UserDictIndex, code, phrase)
}

// Select commits candidates()[idx] as a new selection.
func (c *TableContext) Select(idx int) {
	if idx < 0 || idx >= len(c.candidates) {
		return
	}
	c.selectSentence(c.candidates[idx])
}

// Type appends s (every byte must be a configured code key) to the
// buffer and re-matches.
func (c *TableContext) Type(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !c.Dict.ValidInput(s[i]) {
			return false
		}
	}
	if !c.inputBuffer.Type(s) {
		return false
	}
	c.update()
	return true
}

func (c *TableContext) unselectFrom(offset int) {
	kept := c.selected[:0:0]
	consumed := 0
	for _, s := range c.selected {
		end := 0
		for _, item := range s {
			if e := item.offset + item.length; e > end {
				end = e
			}
		}
		if end > offset {
			break
		}
		kept = append(kept, s)
		consumed = end
	}
	c.selected = kept
	c.consumed = consumed
}

// Erase removes text[from:to], unselecting any committed word the cut
// reaches into.
func (c *TableContext) Erase(from, to int) {
	if from >= to {
		return
	}
	if from < c.consumed {
		c.unselectFrom(from)
	}
	c.inputBuffer.Erase(from, to)
	c.update()
}

// SetCursor moves the cursor without touching candidates or
// selections.
func (c *TableContext) SetCursor(pos int) { c.inputBuffer.SetCursor(pos) }

// Cancel drops every selection.
func (c *TableContext) Cancel() {
	if len(c.selected) == 0 {
		return
	}
	c.selected = nil
	c.consumed = 0
	c.update()
}

// CancelTill pops selection groups from the end until none of them
// end past pos, reporting whether anything changed.
func (c *TableContext) CancelTill(pos int) bool {
	changed := false
	for len(c.selected) > 0 {
		last := c.selected[len(c.selected)-1]
		end, start := 0, 0
		if len(last) > 0 {
			start = last[0].offset
		}
		for _, item := range last {
			if e := item.offset + item.length; e > end {
				end = e
			}
		}
		if end <= pos {
			break
		}
		c.selected = c.selected[:len(c.selected)-1]
		c.consumed = start
		changed = true
	}
	if changed {
		c.update()
	}
	return changed
}

// Reset clears the buffer and every selection.
func (c *TableContext) Reset() {
	c.inputBuffer.clear()
	c.selected = nil
	c.consumed = 0
	c.update()
}

// Selected reports whether any word has been committed.
func (c *TableContext) Selected() bool { return len(c.selected) > 0 }

// SelectedLength is the number of hanzi runes committed so far.
func (c *TableContext) SelectedLength() int { return runeLen(c.SelectedSentence()) }

// SelectedSentence is the concatenated surface of every committed
// word.
func (c *TableContext) SelectedSentence() string {
	var sb strings.Builder
	for _, s := range c.selected {
		for _, item := range s {
			sb.WriteString(item.word)
		}
	}
	return sb.String()
}

// SelectedWords lists every committed word individually.
func (c *TableContext) SelectedWords() []string {
	var out []string
	for _, s := range c.selected {
		for _, item := range s {
			if item.word != "" {
				out = append(out, item.word)
			}
		}
	}
	return out
}

// SelectedCode renders the shape codes behind every committed word,
// concatenated in commit order.
func (c *TableContext) SelectedCode() string {
	var sb strings.Builder
	for _, s := range c.selected {
		for _, item := range s {
			sb.WriteString(item.code)
		}
	}
	return sb.String()
}

// Preedit renders the committed words followed by the raw unselected
// code; a shape code has no alternate spelling to re-render the way
// Pinyin's preedit does.
func (c *TableContext) Preedit() string {
	return c.SelectedSentence() + c.currentSegment()
}

// Sentence is the committed text followed by the current top
// candidate's uncommitted remainder.
func (c *TableContext) Sentence() string {
	var sb strings.Builder
	sb.WriteString(c.SelectedSentence())
	if len(c.candidates) > 0 {
		sb.WriteString(c.candidates[0].Surface())
	}
	return sb.String()
}

// learnLast persists every PhraseFlagInvalid piece of the most recent
// selection (raw text accepted via checkNoMatchAutoSelect) as a real
// dictionary entry; anything else already came from an existing
// sub-dictionary match and needs no new entry.
func (c *TableContext) learnLast() {
	if len(c.selected) == 0 {
		return
	}
	last := c.selected[len(c.selected)-1]
	for _, item := range last {
		if item.flag != dictionary.PhraseFlagInvalid || item.word == "" || item.code == "" {
			continue
		}
		c.Dict.AddWord(c.UserDictIndex, item.code, item.word, 0)
	}
}

// Learn persists anything in the most recent selection worth
// remembering as a new dictionary entry.
func (c *TableContext) Learn() { c.learnLast() }
