package imcontext

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fcitx/libime-go/decoder"
	"github.com/fcitx/libime-go/dictionary"
	"github.com/fcitx/libime-go/lm"
	"github.com/fcitx/libime-go/pinyin"
	"github.com/fcitx/libime-go/segment"
)

// PinyinPreeditMode selects how PinyinContext.Preedit renders the
// unselected tail of the input: the raw keystrokes, or re-spelled
// syllable-by-syllable against the current top candidate.
type PinyinPreeditMode int

const (
	PinyinPreeditRaw PinyinPreeditMode = iota
	PinyinPreeditPinyin
)

// selectedPinyin is one committed word: where it started in the raw
// buffer, how many raw bytes it consumed, its hanzi surface, and (for
// dictionary-backed words) its encoded full pinyin reading.
type selectedPinyin struct {
	offset        int
	length        int
	word          string
	encodedPinyin []byte
	custom        bool
}

// PinyinContext is a stateful phonetic input session: it owns a raw
// keystroke buffer, segments its unselected tail into a graph on every
// edit, decodes that graph into ranked sentence candidates, and tracks
// the words a caller has already committed.
type PinyinContext struct {
	inputBuffer

	Dict  *dictionary.PinyinDictionary
	Model *lm.UserLanguageModel

	// UserDictIndex is the PinyinDictionary sub-dictionary Learn adds
	// newly confirmed sentences and words to.
	UserDictIndex int

	UseShuangpin      bool
	ShuangpinProfile  *pinyin.ShuangpinProfile
	Fuzzy             pinyin.FuzzyFlag
	MaxSentenceLength int
	NBest             int
	BeamSize          int
	FrameSize         int
	MaxDistance       lm.Weight
	MinDistance       lm.Weight
	PreeditMode       PinyinPreeditMode

	dec        *decoder.Decoder[lm.UserState]
	matchState *dictionary.PinyinMatchState
	graph      *segment.Graph
	lattice    *decoder.Lattice[lm.UserState]
	candidates []decoder.SentenceResult[lm.UserState]

	selected [][]selectedPinyin
	consumed int
}

// NewPinyinContext creates an empty context over dict and model.
func NewPinyinContext(dict *dictionary.PinyinDictionary, model *lm.UserLanguageModel) *PinyinContext {
	c := &PinyinContext{
		Dict:        dict,
		Model:       model,
		Fuzzy:       pinyin.None,
		NBest:       1,
		PreeditMode: PinyinPreeditPinyin,
		matchState:  dictionary.NewPinyinMatchState(),
		graph:       segment.New(""),
	}
	c.dec = decoder.NewDecoder[lm.UserState](c.matchPrefix, model)
	c.update()
	return c
}

func (c *PinyinContext) matchPrefix(g *segment.Graph, ignore map[segment.NodeId]bool, cb dictionary.MatchCallback) {
	c.Dict.MatchPrefix(g, ignore, c.matchState, c.Fuzzy, cb)
}

func (c *PinyinContext) nbest() int {
	if c.NBest <= 0 {
		return 1
	}
	return c.NBest
}

// pinyinSentenceSize counts the syllable boundaries a candidate
// sentence spans, used by the max-sentence-length gate: MatchPrefix's
// path threads through every intermediate syllable node, not just a
// word's two endpoints, so len(Path)-1 is that word's syllable count.
func pinyinSentenceSize(r decoder.SentenceResult[lm.UserState]) int {
	n := 0
	for _, node := range r.Nodes {
		n += len(node.Path) - 1
	}
	return n
}

func decodeFullPinyin(enc []byte) string {
	if len(enc) == 0 {
		return ""
	}
	syllables := pinyin.DecodeFull(enc)
	spellings := make([]string, len(syllables))
	for i, s := range syllables {
		spellings[i] = s.String()
	}
	return pinyin.JoinSpellings(spellings)
}

func parseFullPinyinSpelling(full string) ([]pinyin.Syllable, error) {
	parts := strings.Split(full, "'")
	out := make([]pinyin.Syllable, 0, len(parts))
	for _, p := range parts {
		syls := pinyin.Default.Lookup(p, pinyin.None)
		if len(syls) == 0 {
			return nil, fmt.Errorf("imcontext: unknown pinyin spelling %q", p)
		}
		out = append(out, syls[0])
	}
	return out, nil
}

// Type appends s to the buffer and re-decodes, refusing the keystroke
// (and leaving the buffer untouched) if MaxSentenceLength is set and
// the current top candidate already reaches it.
func (c *PinyinContext) Type(s string) bool {
	if s == "" {
		return false
	}
	if c.MaxSentenceLength > 0 && len(c.candidates) > 0 && pinyinSentenceSize(c.candidates[0]) >= c.MaxSentenceLength {
		return false
	}
	if !c.inputBuffer.Type(s) {
		return false
	}
	c.update()
	return true
}

// unselectFrom drops every trailing selection group overlapping or
// past offset, exposing it again as raw unselected input.
func (c *PinyinContext) unselectFrom(offset int) {
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

// Erase removes text[from:to] from the buffer, first unselecting any
// committed word the cut reaches into.
func (c *PinyinContext) Erase(from, to int) {
	if from >= to {
		return
	}
	if from < c.consumed {
		c.unselectFrom(from)
		c.matchState.Clear()
	}
	c.inputBuffer.Erase(from, to)
	c.update()
}

// SetCursor moves the cursor without touching candidates or
// selections; CandidatesToCursor reads it lazily.
func (c *PinyinContext) SetCursor(pos int) { c.inputBuffer.SetCursor(pos) }

// Cancel drops every selection, restoring the whole buffer as
// unselected input.
func (c *PinyinContext) Cancel() {
	if len(c.selected) == 0 {
		return
	}
	c.selected = nil
	c.consumed = 0
	c.matchState.Clear()
	c.update()
}

// CancelTill pops selection groups from the end until none of them
// end past pos, reporting whether anything changed.
func (c *PinyinContext) CancelTill(pos int) bool {
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
		c.matchState.Clear()
		c.update()
	}
	return changed
}

// Reset clears the buffer and every selection, back to a fresh empty
// context.
func (c *PinyinContext) Reset() {
	c.inputBuffer.clear()
	c.selected = nil
	c.consumed = 0
	c.matchState.Clear()
	c.update()
}

// state replays every selected word through the language model from
// its begin-of-sentence state, producing the state decoding the
// unselected tail should continue from.
func (c *PinyinContext) state() lm.UserState {
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

// State returns the language-model state that decoding the unselected
// tail continues from.
func (c *PinyinContext) State() lm.UserState { return c.state() }

func (c *PinyinContext) update() {
	tail := c.String()[c.consumed:]
	var g *segment.Graph
	if c.UseShuangpin {
		profile := c.ShuangpinProfile
		if profile == nil {
			profile = pinyin.NewXiaoheProfile()
		}
		g = pinyin.ParseUserShuangpin(tail, profile, c.Fuzzy)
	} else {
		g = pinyin.ParseUserPinyin(tail, c.Fuzzy, nil)
	}
	c.graph = segment.Merge(c.graph, g, c.matchState.Invalidate)

	lat, ok := c.dec.Decode(c.graph, nil, c.nbest(), c.state(), c.MaxDistance, c.MinDistance, c.BeamSize, c.FrameSize)
	c.lattice = lat
	if !ok {
		c.candidates = nil
		return
	}
	c.candidates = c.collectCandidates()
}

// collectCandidates seeds from the decoder's N-best sentences, then
// supplements them with every single-word match the matcher found
// (dictionary-rooted matches first, then matches rooted elsewhere in
// the lattice), each deduplicated by surface string. This simplifies
// the original's distance-bounded min/max filtering pass into a
// single dedup-by-surface sweep.
func (c *PinyinContext) collectCandidates() []decoder.SentenceResult[lm.UserState] {
	var out []decoder.SentenceResult[lm.UserState]
	seen := map[string]bool{}
	add := func(r decoder.SentenceResult[lm.UserState]) {
		s := r.Surface()
		if seen[s] {
			return
		}
		seen[s] = true
		out = append(out, r)
	}

	for _, r := range c.lattice.Results {
		add(r)
	}

	var bosExtra, otherExtra []decoder.SentenceResult[lm.UserState]
	for n := int(c.graph.End()); n >= 1; n-- {
		for _, node := range c.lattice.NodesAt(segment.NodeId(n)) {
			r := decoder.SentenceResult[lm.UserState]{Nodes: []*decoder.LatticeNode[lm.UserState]{node}, Score: node.Score}
			if node.Begin() == c.graph.Start() {
				bosExtra = append(bosExtra, r)
			} else {
				otherExtra = append(otherExtra, r)
			}
		}
	}
	for _, r := range bosExtra {
		add(r)
	}
	for _, r := range otherExtra {
		add(r)
	}
	return out
}

// CandidatesToCursor returns candidates covering the unselected tail
// exactly up to the current cursor, rather than to the end of the
// typed text, letting a caller preview a partial selection.
func (c *PinyinContext) CandidatesToCursor() []decoder.SentenceResult[lm.UserState] {
	localCursor := segment.NodeId(c.Cursor() - c.consumed)
	if localCursor == c.graph.End() {
		return c.candidates
	}
	if c.lattice == nil {
		return nil
	}
	nodes := append([]*decoder.LatticeNode[lm.UserState]{}, c.lattice.NodesAt(localCursor)...)
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Score > nodes[j].Score })

	seen := map[string]bool{}
	var out []decoder.SentenceResult[lm.UserState]
	for _, node := range nodes {
		r := decoder.SentenceResult[lm.UserState]{Nodes: []*decoder.LatticeNode[lm.UserState]{node}, Score: node.Score}
		s := r.Surface()
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, r)
	}
	return out
}

func (c *PinyinContext) selectSentence(r decoder.SentenceResult[lm.UserState]) {
	if len(r.Nodes) == 0 {
		return
	}
	sel := make([]selectedPinyin, 0, len(r.Nodes))
	for _, node := range r.Nodes {
		var encoded []byte
		if p, ok := node.Payload.(*dictionary.PinyinPayload); ok {
			encoded = p.EncodedPinyin
		}
		sel = append(sel, selectedPinyin{
			offset:        c.consumed + int(node.Begin()),
			length:        int(node.End()) - int(node.Begin()),
			word:          node.Word,
			encodedPinyin: encoded,
		})
	}
	c.selected = append(c.selected, sel)
	c.consumed += int(r.Nodes[len(r.Nodes)-1].End())
	c.update()
}

// Select commits candidates()[idx] as a new selection.
func (c *PinyinContext) Select(idx int) {
	if idx < 0 || idx >= len(c.candidates) {
		return
	}
	c.selectSentence(c.candidates[idx])
}

// SelectCandidateToCursor commits candidatesToCursor()[idx].
func (c *PinyinContext) SelectCandidateToCursor(idx int) {
	cands := c.CandidatesToCursor()
	if idx < 0 || idx >= len(cands) {
		return
	}
	c.selectSentence(cands[idx])
}

// SelectCustom commits a caller-supplied word spanning inputLength
// raw bytes of the unselected tail, with an explicit reading
// (syllables separated by apostrophes, e.g. "ni'hao") rather than one
// the decoder found.
func (c *PinyinContext) SelectCustom(inputLength int, word, fullPinyin string) error {
	if inputLength <= 0 || inputLength > len(c.String())-c.consumed {
		return fmt.Errorf("imcontext: custom selection length %d out of range", inputLength)
	}
	if word == "" {
		return fmt.Errorf("imcontext: custom selection needs a word")
	}
	syllables, err := parseFullPinyinSpelling(fullPinyin)
	if err != nil {
		return err
	}
	c.selected = append(c.selected, []selectedPinyin{{
		offset:        c.consumed,
		length:        inputLength,
		word:          word,
		encodedPinyin: pinyin.EncodeFull(syllables),
		custom:        true,
	}})
	c.consumed += inputLength
	c.update()
	return nil
}

// Selected reports whether any word has been committed.
func (c *PinyinContext) Selected() bool { return len(c.selected) > 0 }

// SelectedLength is the number of hanzi runes committed so far.
func (c *PinyinContext) SelectedLength() int { return runeLen(c.SelectedSentence()) }

// SelectedSentence is the concatenated surface of every committed
// word.
func (c *PinyinContext) SelectedSentence() string {
	var sb strings.Builder
	for _, s := range c.selected {
		for _, item := range s {
			sb.WriteString(item.word)
		}
	}
	return sb.String()
}

// SelectedWords lists every committed word individually.
func (c *PinyinContext) SelectedWords() []string {
	var out []string
	for _, s := range c.selected {
		for _, item := range s {
			if item.word == "" {
				continue
			}
			out = append(out, item.word)
		}
	}
	return out
}

// SelectedFullPinyin renders the full reading of every committed word,
// apostrophe-joined.
func (c *PinyinContext) SelectedFullPinyin() string {
	var parts []string
	for _, s := range c.selected {
		for _, item := range s {
			if len(item.encodedPinyin) == 0 {
				continue
			}
			parts = append(parts, decodeFullPinyin(item.encodedPinyin))
		}
	}
	return pinyin.JoinSpellings(parts)
}

func candidateFullPinyin(r decoder.SentenceResult[lm.UserState]) string {
	var parts []string
	for _, node := range r.Nodes {
		if p, ok := node.Payload.(*dictionary.PinyinPayload); ok && len(p.EncodedPinyin) > 0 {
			parts = append(parts, decodeFullPinyin(p.EncodedPinyin))
		}
	}
	return pinyin.JoinSpellings(parts)
}

// CandidateFullPinyin renders candidates()[idx]'s full reading.
func (c *PinyinContext) CandidateFullPinyin(idx int) string {
	if idx < 0 || idx >= len(c.candidates) {
		return ""
	}
	return candidateFullPinyin(c.candidates[idx])
}

// Candidates returns the current ranked sentence candidates.
func (c *PinyinContext) Candidates() []decoder.SentenceResult[lm.UserState] { return c.candidates }

// renderSyllableSpelling looks up spanText's canonical (non-fuzzy)
// spelling, falling back to a fuzzy-inclusive lookup so a match typed
// through an active fuzzy rule still renders as its source syllable.
func renderSyllableSpelling(spanText string) (string, bool) {
	if syls := pinyin.Default.Lookup(spanText, pinyin.None); len(syls) > 0 {
		return syls[0].String(), true
	}
	if syls := pinyin.Default.Lookup(spanText, pinyin.All); len(syls) > 0 {
		return syls[0].String(), true
	}
	return spanText, false
}

// Preedit renders the committed words followed by the unselected
// tail, either raw or re-spelled syllable-by-syllable per mode.
func (c *PinyinContext) Preedit(mode PinyinPreeditMode) string {
	s, _ := c.PreeditWithCursor(mode)
	return s
}

// PreeditWithCursor is Preedit plus the cursor's byte offset within
// the rendered string.
func (c *PinyinContext) PreeditWithCursor(mode PinyinPreeditMode) (string, int) {
	var sb strings.Builder
	for _, s := range c.selected {
		for _, item := range s {
			sb.WriteString(item.word)
		}
	}
	selectedLen := sb.Len()
	tail := c.String()[c.consumed:]
	cursorOffset := c.Cursor() - c.consumed

	if mode == PinyinPreeditRaw || len(c.candidates) == 0 {
		sb.WriteString(tail)
		return sb.String(), selectedLen + cursorOffset
	}

	best := c.candidates[0]
	cursor := -1
	covered := 0
	for _, node := range best.Nodes {
		span := tail[int(node.Begin()):int(node.End())]
		rendered, ok := renderSyllableSpelling(span)
		if !ok {
			rendered = span
		}
		if sb.Len() > selectedLen {
			sb.WriteByte('\'')
		}
		if cursor < 0 && cursorOffset <= int(node.End()) {
			cursor = sb.Len() + (cursorOffset - int(node.Begin()))
		}
		sb.WriteString(rendered)
		covered = int(node.End())
	}
	if rest := tail[covered:]; rest != "" {
		if sb.Len() > selectedLen {
			sb.WriteByte('\'')
		}
		if cursor < 0 {
			cursor = sb.Len() + (cursorOffset - covered)
		}
		sb.WriteString(rest)
	}
	if cursor < 0 {
		cursor = sb.Len()
	}
	return sb.String(), cursor
}

// Sentence is the committed text followed by the current top
// candidate's uncommitted remainder, the usual "what would get typed
// if Enter were pressed now" view.
func (c *PinyinContext) Sentence() string {
	var sb strings.Builder
	sb.WriteString(c.SelectedSentence())
	if len(c.candidates) > 0 {
		sb.WriteString(c.candidates[0].Surface())
	}
	return sb.String()
}

// PinyinBeforeCursor and PinyinAfterCursor count the raw bytes of the
// unselected tail before and after the cursor.
func (c *PinyinContext) PinyinBeforeCursor() int { return c.Cursor() - c.consumed }
func (c *PinyinContext) PinyinAfterCursor() int  { return c.Size() - c.Cursor() }

type learnResult int

const (
	learnIgnored learnResult = iota
	learnNormal
	learnCustom
)

// learnWord decides whether the current selection is worth recording
// as a dictionary entry, and does so. A lone already-known single
// word is skipped; a selection whose pieces don't carry a full pinyin
// reading can't be learned at all; a selection in which some group is
// not a single one-syllable word, with no custom piece and a combined reading of more
// than four syllables is skipped as likely noise rather than a genuine
// new phrase.
func (c *PinyinContext) learnWord() learnResult {
	if len(c.selected) == 0 {
		return learnIgnored
	}
	if len(c.selected) == 1 && len(c.selected[0]) == 1 {
		return learnIgnored
	}

	hasCustom := false
	totalSyllables := 0
	isAllSingleWord := true
	for _, s := range c.selected {
		single := len(s) == 0 || (len(s) == 1 && (s[0].word == "" || len(s[0].encodedPinyin) == 2))
		isAllSingleWord = isAllSingleWord && single
		for _, item := range s {
			if item.word == "" {
				continue
			}
			if item.custom {
				hasCustom = true
			}
			if len(item.encodedPinyin) == 0 || len(item.encodedPinyin)%2 != 0 {
				return learnIgnored
			}
			totalSyllables += len(item.encodedPinyin) / 2
		}
	}
	if !isAllSingleWord && !hasCustom && totalSyllables > 4 {
		return learnIgnored
	}

	var hanzi, fullPinyin []string
	for _, s := range c.selected {
		for _, item := range s {
			if item.word == "" {
				continue
			}
			hanzi = append(hanzi, item.word)
			fullPinyin = append(fullPinyin, decodeFullPinyin(item.encodedPinyin))
		}
	}

	cost := float32(0)
	if hasCustom {
		cost = -1
	}
	_ = c.Dict.AddWord(c.UserDictIndex, pinyin.JoinSpellings(fullPinyin), strings.Join(hanzi, ""), cost)
	if hasCustom {
		return learnCustom
	}
	return learnNormal
}

// Learn feeds the committed selection back into the adaptive history
// model: a genuinely new multi-word phrase is added as dictionary
// entry and recorded as one history unit; a freshly learned custom
// word is added to the dictionary but withheld from history until a
// later commit confirms it; anything not worth a dictionary entry
// still records its constituent words as bigram context, provided
// every word carries a pinyin reading.
func (c *PinyinContext) Learn() {
	if !c.Selected() {
		return
	}
	h := c.Model.History()
	switch c.learnWord() {
	case learnNormal:
		if h != nil {
			h.Add([]string{c.SelectedSentence()})
		}
	case learnCustom:
	case learnIgnored:
		for _, s := range c.selected {
			for _, item := range s {
				if item.word != "" && len(item.encodedPinyin) == 0 {
					return
				}
			}
		}
		words := c.SelectedWords()
		if len(words) == 0 || h == nil {
			return
		}
		h.Add(words)
	}
}
