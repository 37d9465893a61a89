package dictionary

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/fcitx/libime-go/datrie"
	"github.com/fcitx/libime-go/segment"
)

const (
	tableDictMagic        uint32 = 0x000fcabe
	tableDictVersion      uint32 = 2
	tableKeySeparator      byte  = 0x01
	defaultAutoPhraseAfter int   = 3
	defaultAutoPhraseSize  int   = 4096
)

// TableBasedDictionary implements shape-code ("Wubi"-style) lookup:
// words are keyed by a short code typed on the keyboard rather than a
// phonetic reading, with rules to auto-derive a multi-character
// phrase's code from its individual characters' own codes.
type TableBasedDictionary struct {
	validInput  map[byte]bool
	codeLength  int
	pinyinKey   byte
	promptKey   byte
	phraseKey   byte
	ignoreChars map[rune]bool

	rules []TableRule

	tries       []*datrie.Trie[float32]
	flags       []Flag
	phraseFlags []PhraseFlag

	// singleCharCode maps a single hanzi rune's string form to its own
	// code, the reverse lookup Generate needs to build a phrase's code
	// out of its characters' codes.
	singleCharCode map[string]string

	deletion            *deletionTrie
	autoPhrase          *AutoPhraseDict
	saveAutoPhraseAfter int
}

// NewTableBasedDictionary creates a dictionary with n empty
// sub-tries (conventionally system, user, extra).
func NewTableBasedDictionary(n int) *TableBasedDictionary {
	return &TableBasedDictionary{
		validInput:          map[byte]bool{},
		ignoreChars:         map[rune]bool{},
		tries:               makeFloatTries(n),
		flags:               make([]Flag, n),
		phraseFlags:         make([]PhraseFlag, n),
		singleCharCode:      map[string]string{},
		deletion:            newDeletionTrie(),
		autoPhrase:          NewAutoPhraseDict(defaultAutoPhraseSize),
		saveAutoPhraseAfter: defaultAutoPhraseAfter,
	}
}

// SetPhraseFlag records where sub-dictionary idx's entries came from
// (System/User/Auto/...), surfaced to MatchPrefix callers via
// TablePayload.Flag.
func (d *TableBasedDictionary) SetPhraseFlag(idx int, f PhraseFlag) { d.phraseFlags[idx] = f }

// PhraseFlagOf reports sub-dictionary idx's configured provenance.
func (d *TableBasedDictionary) PhraseFlagOf(idx int) PhraseFlag { return d.phraseFlags[idx] }

func makeFloatTries(n int) []*datrie.Trie[float32] {
	out := make([]*datrie.Trie[float32], n)
	for i := range out {
		out[i] = datrie.NewFloat32()
	}
	return out
}

func (d *TableBasedDictionary) SetFlags(idx int, f Flag) { d.flags[idx] = f }
func (d *TableBasedDictionary) Flags(idx int) Flag       { return d.flags[idx] }

// ValidInput reports whether b is a configured shape-code key (the
// KeyCode= line of the loaded table), so a TableContext can reject a
// keystroke outside the code alphabet before it ever reaches the
// dictionary.
func (d *TableBasedDictionary) ValidInput(b byte) bool { return d.validInput[b] }

// CodeLength is the table's configured maximum code length (the
// Length= line), 0 if unset.
func (d *TableBasedDictionary) CodeLength() int { return d.codeLength }

// IgnoreChar reports whether r is configured to be dropped rather
// than encoded (the InvalidChar= line).
func (d *TableBasedDictionary) IgnoreChar(r rune) bool { return d.ignoreChars[r] }

// SetSaveAutoPhraseAfter configures how many repeated uses an
// auto-phrase candidate needs before it is promoted into the user
// trie (sub-dictionary idx) by RecordUsage.
func (d *TableBasedDictionary) SetSaveAutoPhraseAfter(n int) { d.saveAutoPhraseAfter = n }

func tableKey(code, word string) []byte {
	key := make([]byte, 0, len(code)+1+len(word))
	key = append(key, code...)
	key = append(key, tableKeySeparator)
	key = append(key, word...)
	return key
}

// AddWord inserts word under code into sub-dictionary idx. Single-rune
// words also populate the reverse code lookup Generate relies on.
func (d *TableBasedDictionary) AddWord(idx int, code, word string, cost float32) {
	d.tries[idx].Set(tableKey(code, word), cost)
	if runeCount(word) == 1 {
		d.singleCharCode[word] = code
	}
}

// RemoveWord erases word under code from sub-dictionary idx.
func (d *TableBasedDictionary) RemoveWord(idx int, code, word string) bool {
	return d.tries[idx].Erase(tableKey(code, word))
}

// Delete masks code|word from matching regardless of which
// sub-dictionary still holds it (used for deleting a system-dictionary
// entry without mutating a possibly read-only trie).
func (d *TableBasedDictionary) Delete(code, word string) { d.deletion.Delete(string(tableKey(code, word))) }

// Undelete removes a previously applied Delete mask.
func (d *TableBasedDictionary) Undelete(code, word string) bool {
	return d.deletion.Undelete(string(tableKey(code, word)))
}

func runeCount(s string) int {
	n := 0
	for range s {
		n++
	}
	return n
}

// Generate derives a code for a multi-character value by applying the
// first matching rule (length-equal, or length-longer-than and
// value is at least that long): for each rule entry, it looks up the
// construct-phrase reverse entry of the selected character and
// extracts the byte at the entry's code index (positive counts from
// the front starting at 1, negative counts from the back).
func (d *TableBasedDictionary) Generate(value string) (string, bool) {
	if len(d.rules) == 0 || value == "" {
		return "", false
	}
	runes := []rune(value)
	n := len(runes)
	for _, rule := range d.rules {
		applies := (rule.Flag == LengthEqual && n == rule.PhraseLength) ||
			(rule.Flag == LengthLongerThan && n >= rule.PhraseLength)
		if !applies {
			continue
		}
		var key strings.Builder
		used := map[[2]int]bool{}
		success := true
		for _, e := range rule.Entries {
			if e.IsPlaceholder() {
				continue
			}
			if e.Character > n {
				success = false
				break
			}
			var idx int
			if e.Flag == FromFront {
				idx = e.Character - 1
			} else {
				idx = n - e.Character
			}
			chr := string(runes[idx])
			entry, ok := d.singleCharCode[chr]
			if !ok || entry == "" {
				success = false
				break
			}
			entryRunes := []rune(entry)
			length := len(entryRunes)
			if length < abs(e.Index) {
				continue
			}
			var codeIdx int
			if e.Index > 0 {
				codeIdx = e.Index - 1
			} else {
				codeIdx = length + e.Index
			}
			uk := [2]int{idx, codeIdx}
			if used[uk] {
				continue
			}
			used[uk] = true
			key.WriteRune(entryRunes[codeIdx])
		}
		if success && key.Len() > 0 {
			return key.String(), true
		}
	}
	return "", false
}

// LoadText parses the header+rule+data text format into sub-dictionary
// idx.
func (d *TableBasedDictionary) LoadText(idx int, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	const (
		phaseHeader = iota
		phaseRule
		phaseData
	)
	phase := phaseHeader
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") {
			continue
		}
		switch phase {
		case phaseHeader:
			switch {
			case strings.HasPrefix(line, "KeyCode="):
				for _, c := range []byte(strings.TrimPrefix(line, "KeyCode=")) {
					d.validInput[c] = true
				}
			case strings.HasPrefix(line, "Length="):
				n, err := strconv.Atoi(strings.TrimPrefix(line, "Length="))
				if err != nil {
					return fmt.Errorf("dictionary: bad Length= line %q: %w", line, err)
				}
				d.codeLength = n
			case strings.HasPrefix(line, "InvalidChar="):
				for _, c := range strings.TrimPrefix(line, "InvalidChar=") {
					d.ignoreChars[c] = true
				}
			case strings.HasPrefix(line, "Pinyin="):
				rest := strings.TrimPrefix(line, "Pinyin=")
				if rest != "" {
					d.pinyinKey = rest[0]
				}
			case strings.HasPrefix(line, "Prompt="):
				rest := strings.TrimPrefix(line, "Prompt=")
				if rest != "" {
					d.promptKey = rest[0]
				}
			case strings.HasPrefix(line, "ConstructPhrase="):
				rest := strings.TrimPrefix(line, "ConstructPhrase=")
				if rest != "" {
					d.phraseKey = rest[0]
				}
			case line == "[Rule]":
				phase = phaseRule
			case line == "[Data]":
				phase = phaseData
			}
		case phaseRule:
			if line == "[Data]" {
				phase = phaseData
				continue
			}
			rule, err := ParseTableRule(line, d.codeLength)
			if err != nil {
				return err
			}
			d.rules = append(d.rules, rule)
		case phaseData:
			fields := strings.Fields(line)
			if len(fields) < 2 {
				continue
			}
			code, word := fields[0], fields[1]
			cost := float32(0)
			if len(fields) >= 3 {
				if c, err := strconv.ParseFloat(fields[2], 32); err == nil {
					cost = float32(c)
				}
			}
			d.AddWord(idx, code, word, cost)
		}
	}
	return scanner.Err()
}

// LoadBinary decodes the magic-0x000fcabe, zstd-compressed binary
// format into sub-dictionary idx.
func (d *TableBasedDictionary) LoadBinary(idx int, r io.Reader) error {
	var header [8]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return err
	}
	if be32(header[0:4]) != tableDictMagic {
		return fmt.Errorf("dictionary: bad table dict magic %#x", be32(header[0:4]))
	}
	if be32(header[4:8]) != tableDictVersion {
		return fmt.Errorf("dictionary: unsupported table dict version %d", be32(header[4:8]))
	}
	zr, err := zstd.NewReader(r)
	if err != nil {
		return err
	}
	defer zr.Close()
	t := datrie.NewFloat32()
	if err := datrie.ReadBinary(bufio.NewReader(zr), t); err != nil {
		return err
	}
	d.tries[idx] = t
	return nil
}

// Save writes sub-dictionary idx out in the binary format.
func (d *TableBasedDictionary) Save(idx int, w io.Writer) error {
	var header [8]byte
	putBE32(header[0:4], tableDictMagic)
	putBE32(header[4:8], tableDictVersion)
	if _, err := w.Write(header[:]); err != nil {
		return err
	}
	zw, err := zstd.NewWriter(w)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(zw)
	if err := d.tries[idx].WriteBinary(bw); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	return zw.Close()
}

// MatchPrefix implements the Dictionary contract for shape-code
// lookup: the segment graph here is over code bytes rather than
// pinyin syllables (TableContext segments raw input one key at a
// time), so matching advances one byte per edge directly. Matches
// masked by the deletion trie are suppressed. The autoPhrase tracker is
// not consulted here: a candidate that RecordUsage has promoted is
// reported as an ordinary match of the sub-dictionary it was added to.
func (d *TableBasedDictionary) MatchPrefix(g *segment.Graph, ignore map[segment.NodeId]bool, cb MatchCallback) {
	start := g.Start()
	var order []segment.NodeId
	g.BFS(start, func(n segment.NodeId) { order = append(order, n) })

	type pos struct {
		p     datrie.Position
		depth int
	}
	perDict := make([]map[segment.NodeId][]pos, len(d.tries))
	for i, t := range d.tries {
		perDict[i] = map[segment.NodeId][]pos{start: {{t.Root(), 0}}}
	}
	paths := map[segment.NodeId][]segment.NodeId{start: {start}}

	for _, n := range order {
		if ignore[n] {
			continue
		}
		path := paths[n]
		for _, to := range g.Next(n) {
			if ignore[to] {
				continue
			}
			if _, seen := paths[to]; !seen {
				paths[to] = append(append([]segment.NodeId{}, path...), to)
			}
			seg := g.Segment(n, to)
			for i, t := range d.tries {
				if d.flags[i].Has(Disabled) {
					continue
				}
				for _, p := range perDict[i][n] {
					next, ok := t.Traverse(p.p, []byte(seg))
					if !ok {
						continue
					}
					perDict[i][to] = append(perDict[i][to], pos{next, p.depth + len(seg)})
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
			for _, p := range perDict[i][n] {
				sepPos, ok := t.Traverse(p.p, []byte{tableKeySeparator})
				if !ok {
					continue
				}
				sepDepth := p.depth + 1
				abort := false
				t.Foreach(sepPos, func(e datrie.Entry[float32]) bool {
					full := t.Suffix(e.Pos, sepDepth+e.Depth)
					code := string(full[:p.depth])
					word := string(full[sepDepth:])
					if d.deletion.IsDeleted(string(tableKey(code, word))) {
						return true
					}
					if !cb(path, word, e.Value, &TablePayload{Code: code, Flag: d.phraseFlags[i]}) {
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

// RecordUsage bumps the autoPhrase hit counter for word under code; if
// it has now crossed SaveAutoPhraseAfter, the word is promoted into
// sub-dictionary idx and dropped from the auto-phrase tracker.
func (d *TableBasedDictionary) RecordUsage(idx int, code, word string) {
	key := string(tableKey(code, word))
	hits := d.autoPhrase.Insert(key, "")
	if hits >= d.saveAutoPhraseAfter {
		d.AddWord(idx, code, word, 0)
		d.autoPhrase.Remove(key)
	}
}
