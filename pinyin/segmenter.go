package pinyin

import (
	"strings"

	"github.com/fcitx/libime-go/segment"
)

// maxSyllableBytes bounds how long a single syllable spelling can be;
// the longest real Pinyin syllable ("zhuang", "shuang"...) is 6 ASCII
// bytes.
const maxSyllableBytes = 6

// innerSplits lists known two-syllable readings of a longer spelling
// (e.g. "xian" read as "xi'an" rather than one syllable), exposed via
// the Inner fuzzy flag. Representative subset, not the full original
// inventory.
var innerSplits = map[string][2]int{
	"xian": {2, 2},
	"jian": {2, 2},
	"lian": {2, 2},
	"nian": {2, 2},
}

// longestMatchLen returns the longest l in [1, maxSyllableBytes] such
// that text[p:p+l] is a recognized spelling under fuzzy, or 0.
func longestMatchLen(text string, p int, fuzzy FuzzyFlag, table *Table) int {
	max := len(text) - p
	if max > maxSyllableBytes {
		max = maxSyllableBytes
	}
	for l := max; l >= 1; l-- {
		if table.Has(text[p:p+l], fuzzy) {
			return l
		}
	}
	return 0
}

// isComplete reports whether spelling is a usable Pinyin syllable on
// its own — present in the table and not one of the three spellings
// (m, n, r) that only mean something once followed by more input.
func isComplete(spelling string, fuzzy FuzzyFlag, table *Table) bool {
	switch spelling {
	case "", "m", "n", "r":
		return false
	}
	return table.Has(spelling, fuzzy)
}

func isAmbiguousSuffix(b byte) bool {
	switch b {
	case 'a', 'e', 'g', 'n', 'o', 'r':
		return true
	}
	return false
}

// ParseUserPinyin segments raw user input into a SegmentGraph,
// applying fuzzy as the active equivalence classes and table as the
// spelling dictionary (Default if table is nil).
//
// It is a single-source longest-match segmenter with one ambiguity
// refinement: a match ending in a/e/g/n/o/r can usually also be read
// one byte shorter (e.g. "xian" vs. "xia'n"), so both readings are
// compared by total matched span before committing to one, with ties
// broken by which continuation is itself a complete syllable (a match
// that runs to the end of the input counts as complete), and genuine
// ties emitted as alternative edges.
func ParseUserPinyin(text string, fuzzy FuzzyFlag, table *Table) *segment.Graph {
	if table == nil {
		table = Default
	}
	text = strings.ToLower(text)
	g := segment.New(text)

	seen := make([]bool, len(text)+1)
	queue := []int{0}
	seen[0] = true

	push := func(q int) {
		if !seen[q] {
			seen[q] = true
			queue = append(queue, q)
		}
	}

	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]
		if p >= len(text) {
			continue
		}

		if text[p] == '\'' {
			q := p + 1
			for q < len(text) && text[q] == '\'' {
				q++
			}
			g.AddEdge(segment.NodeId(p), segment.NodeId(q))
			push(q)
			continue
		}

		bestLen := longestMatchLen(text, p, fuzzy, table)
		if bestLen == 0 {
			// Not a recognizable syllable prefix (stray punctuation,
			// digits...); fall through one byte so the graph stays
			// connected end to end.
			q := p + 1
			g.AddEdge(segment.NodeId(p), segment.NodeId(q))
			push(q)
			continue
		}

		lens := resolveAmbiguity(text, p, bestLen, fuzzy, table)
		for _, l := range lens {
			q := p + l
			g.AddEdge(segment.NodeId(p), segment.NodeId(q))
			push(q)
		}

		if fuzzy.Has(Inner) && bestLen >= 3 {
			if split, ok := innerSplits[text[p:p+bestLen]]; ok {
				mid := p + split[0]
				end := p + split[0] + split[1]
				g.AddEdge(segment.NodeId(p), segment.NodeId(mid))
				g.AddEdge(segment.NodeId(mid), segment.NodeId(end))
				push(mid)
				push(end)
			}
		}
	}
	return g
}

// resolveAmbiguity implements step 5 of the segmenter: when the
// longest match ends in a/e/g/n/o/r, decide between it and the
// one-byte-shorter alternative by comparing how far each lets the
// segmenter reach in total.
func resolveAmbiguity(text string, p, bestLen int, fuzzy FuzzyFlag, table *Table) []int {
	spelling := text[p : p+bestLen]
	if bestLen <= 1 || !isAmbiguousSuffix(spelling[bestLen-1]) {
		return []int{bestLen}
	}

	altLen := bestLen - 1
	altSpelling := spelling[:altLen]
	followedBySeparator := p+bestLen < len(text) && text[p+bestLen] == '\''
	if !table.Has(altSpelling, fuzzy) || followedBySeparator {
		return []int{bestLen}
	}

	thisNext := longestMatchLen(text, p+bestLen, fuzzy, table)
	altNext := longestMatchLen(text, p+altLen, fuzzy, table)
	totalThis := bestLen + thisNext
	totalAlt := altLen + altNext

	switch {
	case totalThis > totalAlt:
		return []int{bestLen}
	case totalAlt > totalThis:
		return []int{altLen}
	}

	thisComplete := p+bestLen == len(text) || isComplete(text[p+bestLen:p+bestLen+thisNext], fuzzy, table)
	altComplete := isComplete(text[p+altLen:p+altLen+altNext], fuzzy, table)
	switch {
	case thisComplete && !altComplete:
		return []int{bestLen}
	case altComplete && !thisComplete:
		return []int{altLen}
	default:
		return []int{bestLen, altLen}
	}
}
