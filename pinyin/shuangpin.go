package pinyin

import "github.com/fcitx/libime-go/segment"

// shuangpinEntry is one candidate reading of a key combination.
type shuangpinEntry struct {
	Syllable Syllable
	Flags    FuzzyFlag
}

// ShuangpinProfile maps one or two ASCII keys to the set of syllables
// they can produce under a two-stroke ("shuangpin") layout. Table
// entries are a set, not a single value, because a key pair is
// frequently overloaded between unrelated finals (the profile itself
// does not disambiguate; candidate generation downstream does, the
// same way fuzzy Pinyin spellings are disambiguated).
type ShuangpinProfile struct {
	table        map[string][]shuangpinEntry
	validInput   map[byte]bool
	validInitial map[byte]bool
}

func newShuangpinProfile() *ShuangpinProfile {
	return &ShuangpinProfile{
		table:        map[string][]shuangpinEntry{},
		validInput:   map[byte]bool{},
		validInitial: map[byte]bool{},
	}
}

func (p *ShuangpinProfile) add(keys string, s Syllable, flags FuzzyFlag) {
	p.table[keys] = append(p.table[keys], shuangpinEntry{s, flags})
	for i := 0; i < len(keys); i++ {
		p.validInput[keys[i]] = true
	}
}

// ValidInput reports whether b can appear anywhere in a shuangpin key
// sequence under this profile.
func (p *ShuangpinProfile) ValidInput(b byte) bool { return p.validInput[b] }

// ValidInitial reports whether b can start a shuangpin key sequence
// (i.e. it keys some initial, including the zero initial).
func (p *ShuangpinProfile) ValidInitial(b byte) bool { return p.validInitial[b] }

// Lookup returns every syllable that the key sequence can mean under
// fuzzy.
func (p *ShuangpinProfile) Lookup(keys string, fuzzy FuzzyFlag) []Syllable {
	var out []Syllable
	for _, e := range p.table[keys] {
		if e.Flags == None || fuzzy.Any(e.Flags) {
			out = append(out, e.Syllable)
		}
	}
	return out
}

var xiaoheInitialKeys = map[byte]Initial{
	'b': InitialB, 'p': InitialP, 'm': InitialM, 'f': InitialF,
	'd': InitialD, 't': InitialT, 'n': InitialN, 'l': InitialL,
	'g': InitialG, 'k': InitialK, 'h': InitialH,
	'j': InitialJ, 'q': InitialQ, 'x': InitialX,
	'z': InitialZ, 'c': InitialC, 's': InitialS,
	'v': InitialZh, 'i': InitialCh, 'u': InitialSh,
	'r': InitialR, 'y': InitialY, 'w': InitialW,
}

var xiaoheFinalKeys = map[byte]Final{
	'a': FinalA, 'o': FinalO, 'e': FinalE, 'i': FinalI, 'u': FinalU,
	'v': FinalV,
	'l': FinalAI, 'z': FinalEI, 'k': FinalAO, 'b': FinalOU,
	'j': FinalAN, 'f': FinalEN, 'h': FinalANG, 'g': FinalENG,
	's': FinalONG, 'w': FinalIA, 'x': FinalIE, 'c': FinalIAO,
	'm': FinalIAN, 'd': FinalIANG, 'n': FinalIN, 'y': FinalING,
	't': FinalUAN, 'r': FinalUN, 'p': FinalUO, 'q': FinalIU,
}

// NewXiaoheProfile builds the builtin "Xiaohe" ("小鹤") double-pinyin
// layout: every syllable is one initial key plus one final key (zero
// initial syllables use the final key doubled). This is a
// representative rendering of the layout's key assignment, not a
// byte-for-byte port of the original table.
func NewXiaoheProfile() *ShuangpinProfile {
	p := newShuangpinProfile()
	for ik, initial := range xiaoheInitialKeys {
		for fk, final := range xiaoheFinalKeys {
			p.add(string([]byte{ik, fk}), Syllable{initial, final}, None)
		}
		p.validInitial[ik] = true
	}
	for fk, final := range xiaoheFinalKeys {
		p.add(string([]byte{fk, fk}), Syllable{InitialZero, final}, None)
		p.validInitial[fk] = true
	}
	return p
}

// ParseUserShuangpin segments raw shuangpin key input: greedily
// consume two bytes at each position if the pair keys some syllable
// under fuzzy, else fall back to one byte (covers single-letter
// finals like the bare "a" syllable and separators).
func ParseUserShuangpin(text string, profile *ShuangpinProfile, fuzzy FuzzyFlag) *segment.Graph {
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

		consumed := false
		if p+2 <= len(text) {
			pair := text[p : p+2]
			if len(profile.Lookup(pair, fuzzy)) > 0 {
				g.AddEdge(segment.NodeId(p), segment.NodeId(p+2))
				push(p + 2)
				consumed = true
			}
		}
		if !consumed {
			// Either a single-key syllable or an unrecognized byte;
			// either way, advance one byte so the graph stays
			// connected end to end.
			q := p + 1
			g.AddEdge(segment.NodeId(p), segment.NodeId(q))
			push(q)
		}
	}
	return g
}
