package dictionary

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/golang/glog"
	gopinyin "github.com/mozillazg/go-pinyin"

	"github.com/fcitx/libime-go/datrie"
	"github.com/fcitx/libime-go/pinyin"
	"github.com/fcitx/libime-go/segment"
)

const (
	pinyinDictMagic   uint32 = 0x000fc613
	pinyinDictVersion uint32 = 1
	// pinyinSeparator sits between a key's encoded-syllable run and its
	// hanzi suffix. It must not collide with any legitimate
	// pinyin.Initial byte value, or a lookup could not tell "one more
	// syllable" from "end of reading, start of hanzi".
	pinyinSeparator byte = 0xff
	// fuzzyMatchDemotion is added (it is negative) to a match's score
	// once per fuzzy expansion used to reach it.
	fuzzyMatchDemotionBase = 0.5
)

var fuzzyMatchDemotion = float32(math.Log10(fuzzyMatchDemotionBase))

// PinyinDictionary is a set of named dictionaries (conventionally
// system, user, extra) keyed by encoded full pinyin.
type PinyinDictionary struct {
	tries []*datrie.Trie[float32]
	flags []Flag
	table *pinyin.Table
}

// NewPinyinDictionary creates a dictionary with n empty sub-tries,
// resolving spellings against table (pinyin.Default if nil).
func NewPinyinDictionary(n int, table *pinyin.Table) *PinyinDictionary {
	if table == nil {
		table = pinyin.Default
	}
	d := &PinyinDictionary{
		tries: make([]*datrie.Trie[float32], n),
		flags: make([]Flag, n),
		table: table,
	}
	for i := range d.tries {
		d.tries[i] = datrie.NewFloat32()
	}
	return d
}

// SetFlags sets the behavior flags for sub-dictionary idx.
func (d *PinyinDictionary) SetFlags(idx int, f Flag) { d.flags[idx] = f }

// Flags returns the behavior flags for sub-dictionary idx.
func (d *PinyinDictionary) Flags(idx int) Flag { return d.flags[idx] }

func encodePinyinKey(syllables []pinyin.Syllable, hanzi string) []byte {
	key := pinyin.EncodeFull(syllables)
	key = append(key, pinyinSeparator)
	key = append(key, hanzi...)
	return key
}

// parseFullPinyin splits a full-pinyin string on its syllable
// separators and resolves each part to its canonical (non-fuzzy)
// syllable.
func (d *PinyinDictionary) parseFullPinyin(full string) ([]pinyin.Syllable, error) {
	parts := strings.Split(full, "'")
	out := make([]pinyin.Syllable, 0, len(parts))
	for _, p := range parts {
		syls := d.table.Lookup(p, pinyin.None)
		if len(syls) == 0 {
			return nil, fmt.Errorf("dictionary: unknown pinyin spelling %q", p)
		}
		out = append(out, syls[0])
	}
	return out, nil
}

// AddWord inserts hanzi under fullPinyin (syllables separated by
// apostrophes) into sub-dictionary idx with the given log-probability
// cost.
func (d *PinyinDictionary) AddWord(idx int, fullPinyin, hanzi string, cost float32) error {
	syllables, err := d.parseFullPinyin(fullPinyin)
	if err != nil {
		return err
	}
	d.tries[idx].Set(encodePinyinKey(syllables, hanzi), cost)
	return nil
}

// RemoveWord erases hanzi under fullPinyin from sub-dictionary idx. It
// reports whether the entry had been present.
func (d *PinyinDictionary) RemoveWord(idx int, fullPinyin, hanzi string) bool {
	syllables, err := d.parseFullPinyin(fullPinyin)
	if err != nil {
		return false
	}
	return d.tries[idx].Erase(encodePinyinKey(syllables, hanzi))
}

// LoadText parses the text dictionary format into sub-dictionary idx:
// one entry per line, "hanzi pinyin [cost]" separated by any run of
// whitespace (pinyin syllables separated by apostrophes); lines that
// are empty or start with '#' are ignored; malformed lines are skipped with a
// warning rather than aborting the whole load.
func (d *PinyinDictionary) LoadText(idx int, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			glog.Warningf("pinyindict: skipping malformed line %q", line)
			continue
		}
		hanzi, full := fields[0], fields[1]
		cost := float32(0)
		if len(fields) >= 3 {
			c, err := strconv.ParseFloat(fields[2], 32)
			if err != nil {
				glog.Warningf("pinyindict: bad cost in line %q: %v", line, err)
				continue
			}
			cost = float32(c)
		}
		if err := d.AddWord(idx, full, hanzi, cost); err != nil {
			glog.Warningf("pinyindict: %v", err)
			continue
		}
		checkReadingAgainstGoPinyin(hanzi, full)
	}
	return scanner.Err()
}

var goPinyinArgs = func() gopinyin.Args {
	a := gopinyin.NewArgs()
	a.Heteronym = true
	return a
}()

// checkReadingAgainstGoPinyin cross-checks a dictionary line's
// supplied reading against go-pinyin's own heteronym table for the
// same hanzi, one rune at a time, and warns (never rejects) on a
// syllable go-pinyin never lists as a plausible reading for that
// character. Loanwords, polyphonic idioms and dialectal entries
// legitimately disagree with go-pinyin, so this only flags, it never
// blocks a load.
func checkReadingAgainstGoPinyin(hanzi, full string) {
	syllables := strings.Split(full, "'")
	runes := []rune(hanzi)
	if len(runes) != len(syllables) {
		return
	}
	candidates := gopinyin.Pinyin(hanzi, goPinyinArgs)
	if len(candidates) != len(runes) {
		return
	}
	for i, syl := range syllables {
		if len(candidates[i]) == 0 {
			continue
		}
		matched := false
		for _, c := range candidates[i] {
			if strings.EqualFold(c, syl) {
				matched = true
				break
			}
		}
		if !matched {
			glog.Warningf("pinyindict: %q reading %q for %q not in go-pinyin's heteronym table (%v); keeping it",
				hanzi, syl, string(runes[i]), candidates[i])
		}
	}
}

// LoadTextFile opens path and calls LoadText.
func (d *PinyinDictionary) LoadTextFile(idx int, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return d.LoadText(idx, f)
}

// LoadBinary decodes the magic-0x000fc613 binary format into
// sub-dictionary idx.
func (d *PinyinDictionary) LoadBinary(idx int, r io.Reader) error {
	br := bufio.NewReader(r)
	var header [8]byte
	if _, err := io.ReadFull(br, header[:]); err != nil {
		return err
	}
	magic := be32(header[0:4])
	version := be32(header[4:8])
	if magic != pinyinDictMagic {
		return fmt.Errorf("pinyindict: bad magic %#x", magic)
	}
	if version != pinyinDictVersion {
		return fmt.Errorf("pinyindict: unsupported version %d", version)
	}
	t := datrie.NewFloat32()
	if err := datrie.ReadBinary(br, t); err != nil {
		return err
	}
	d.tries[idx] = t
	return nil
}

// Save writes sub-dictionary idx out in the binary format.
func (d *PinyinDictionary) Save(idx int, w io.Writer) error {
	bw := bufio.NewWriter(w)
	var header [8]byte
	putBE32(header[0:4], pinyinDictMagic)
	putBE32(header[4:8], pinyinDictVersion)
	if _, err := bw.Write(header[:]); err != nil {
		return err
	}
	if err := d.tries[idx].WriteBinary(bw); err != nil {
		return err
	}
	return bw.Flush()
}

func be32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

func putBE32(b []byte, v uint32) {
	b[0] = byte(v >> 24)
	b[1] = byte(v >> 16)
	b[2] = byte(v >> 8)
	b[3] = byte(v)
}

// MatchPrefix implements the Dictionary contract: it walks g in
// breadth-first order, advancing a set of live trie positions per
// sub-dictionary along every non-separator edge by that edge's
// syllable expansions (gated by state's fuzzy flags), and reports a
// match at every node where some position's trie path continues with
// the separator byte and a complete hanzi suffix.
func (d *PinyinDictionary) MatchPrefix(g *segment.Graph, ignore map[segment.NodeId]bool, state *PinyinMatchState, fuzzy pinyin.FuzzyFlag, cb MatchCallback) {
	start := g.Start()
	startCache := state.ensure(start, len(d.tries))
	for i, t := range d.tries {
		if d.flags[i].Has(Disabled) {
			continue
		}
		if len(startCache.positions[i]) == 0 {
			startCache.positions[i] = []triePos{{pos: t.Root(), depth: 0, fuzzyCount: 0}}
		}
	}

	var order []segment.NodeId
	g.BFS(start, func(n segment.NodeId) { order = append(order, n) })

	paths := map[segment.NodeId][]segment.NodeId{start: {start}}

	for _, n := range order {
		if ignore[n] {
			continue
		}
		cache := state.ensure(n, len(d.tries))
		path := paths[n]

		for _, to := range g.Next(n) {
			if ignore[to] {
				continue
			}
			seg := g.Segment(n, to)
			toCache := state.ensure(to, len(d.tries))
			if _, seen := paths[to]; !seen {
				paths[to] = append(append([]segment.NodeId{}, path...), to)
			}
			if seg == "'" {
				// A separator edge passes every live position through
				// unchanged; it consumes no syllable.
				for i := range d.tries {
					toCache.positions[i] = append(toCache.positions[i], cache.positions[i]...)
				}
				continue
			}
			for i, t := range d.tries {
				if d.flags[i].Has(Disabled) {
					continue
				}
				for _, entry := range d.table.LookupEntries(seg, fuzzy) {
					enc := entry.Syllable.Encode()
					for _, tp := range cache.positions[i] {
						next, ok := t.Traverse(tp.pos, enc[:])
						if !ok {
							continue
						}
						fc := tp.fuzzyCount
						if entry.Flags != pinyin.None {
							fc++
						}
						toCache.positions[i] = append(toCache.positions[i], triePos{pos: next, depth: tp.depth + 2, fuzzyCount: fc})
					}
				}
			}
		}

		for i, t := range d.tries {
			if d.flags[i].Has(Disabled) {
				continue
			}
			if d.flags[i].Has(FullMatch) && n != g.End() {
				continue
			}
			for _, tp := range cache.positions[i] {
				sepPos, ok := t.Traverse(tp.pos, []byte{pinyinSeparator})
				if !ok {
					continue
				}
				sepDepth := tp.depth + 1
				abort := false
				t.Foreach(sepPos, func(e datrie.Entry[float32]) bool {
					full := t.Suffix(e.Pos, sepDepth+e.Depth)
					word := string(full[sepDepth:])
					score := e.Value
					if tp.fuzzyCount > 0 {
						score += fuzzyMatchDemotion * float32(tp.fuzzyCount)
					}
					if !cb(path, word, score, &PinyinPayload{
						EncodedPinyin: full[:sepDepth-1],
						IsCorrection:  false,
					}) {
						abort = true
						return false
					}
					return true
				})
				if abort {
					return
				}
			}
		}
	}
}

// MatchWords reports every word in sub-dictionary idx whose full
// pinyin encodes to exactly data.
func (d *PinyinDictionary) MatchWords(idx int, data []byte, cb func(hanzi string, cost float32)) {
	t := d.tries[idx]
	pos, ok := t.Traverse(t.Root(), data)
	if !ok {
		return
	}
	d.matchAtSeparator(t, pos, len(data), cb)
}

// MatchWordsPrefix reports every word in sub-dictionary idx whose
// encoded pinyin has data as a prefix (the word may carry more
// syllables beyond data, not just the separator immediately).
func (d *PinyinDictionary) MatchWordsPrefix(idx int, data []byte, cb func(hanzi string, cost float32)) {
	t := d.tries[idx]
	pos, ok := t.Traverse(t.Root(), data)
	if !ok {
		return
	}
	d.collectSeparators(t, pos, len(data), func(sepPos datrie.Position, sepDepth int) {
		d.matchAtSeparator(t, sepPos, sepDepth, cb)
	})
}

// collectSeparators walks every path beneath pos (depth bytes from
// root already), invoking visit once per reachable separator byte.
// The separator can occur at most once per key, so this never
// double-reports a word.
func (d *PinyinDictionary) collectSeparators(t *datrie.Trie[float32], pos datrie.Position, depth int, visit func(datrie.Position, int)) {
	if sp, ok := t.Traverse(pos, []byte{pinyinSeparator}); ok {
		visit(sp, depth+1)
	}
	for b := 0; b < 256; b++ {
		if byte(b) == pinyinSeparator {
			continue
		}
		if next, ok := t.Traverse(pos, []byte{byte(b)}); ok {
			d.collectSeparators(t, next, depth+1, visit)
		}
	}
}

func (d *PinyinDictionary) matchAtSeparator(t *datrie.Trie[float32], sepPos datrie.Position, sepDepth int, cb func(hanzi string, cost float32)) {
	t.Foreach(sepPos, func(e datrie.Entry[float32]) bool {
		full := t.Suffix(e.Pos, sepDepth+e.Depth)
		cb(string(full[sepDepth:]), e.Value)
		return true
	})
}
