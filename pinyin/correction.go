package pinyin

// CorrectionProfile supplements the fuzzy-flag machinery with
// keyboard-adjacency typo correction: pairs of ASCII letters that are
// neighbors on a QWERTY keyboard and so are plausible single-key
// substitutions rather than phonetic confusion. Entries added by
// ExpandTable carry the Correction flag and resolve only when it is
// active; the CommonTypo and AdvancedTypo flags are not read.
type CorrectionProfile struct {
	adjacent map[byte][]byte
}

// qwertyRows lists the three letter rows of a QWERTY keyboard; two
// letters are adjacent if they sit next to each other in a row.
var qwertyRows = []string{
	"qwertyuiop",
	"asdfghjkl",
	"zxcvbnm",
}

// NewQwertyCorrectionProfile builds the keyboard-adjacency table used
// by spec.md's correction profile.
func NewQwertyCorrectionProfile() *CorrectionProfile {
	p := &CorrectionProfile{adjacent: map[byte][]byte{}}
	for _, row := range qwertyRows {
		for i := 0; i < len(row); i++ {
			if i > 0 {
				p.addPair(row[i-1], row[i])
			}
		}
	}
	return p
}

func (p *CorrectionProfile) addPair(a, b byte) {
	p.adjacent[a] = append(p.adjacent[a], b)
	p.adjacent[b] = append(p.adjacent[b], a)
}

// Neighbors returns the keys adjacent to b on the keyboard.
func (p *CorrectionProfile) Neighbors(b byte) []byte { return p.adjacent[b] }

// Corrections returns every string reachable from spelling by
// substituting one byte with one of its keyboard neighbors, i.e. the
// candidate spellings a single mistyped key could stand for.
func (p *CorrectionProfile) Corrections(spelling string) []string {
	var out []string
	b := []byte(spelling)
	for i := range b {
		orig := b[i]
		for _, n := range p.adjacent[orig] {
			b[i] = n
			out = append(out, string(b))
		}
		b[i] = orig
	}
	return out
}

// IsCorrection reports whether candidate is reachable from original
// by Corrections, i.e. whether decoding candidate as a reading of
// original required a keyboard-adjacency typo fix.
func (p *CorrectionProfile) IsCorrection(original, candidate string) bool {
	if original == candidate {
		return false
	}
	for _, c := range p.Corrections(original) {
		if c == candidate {
			return true
		}
	}
	return false
}

// ExpandTable re-maps every entry of base the way the original
// correction profile re-maps the whole Pinyin map at construction
// time: for each entry's spelling, for each byte position, for each
// keyboard-adjacent substitute key, add a new entry recording the
// substituted spelling under the same syllable with the Correction
// flag OR'd in. The result contains base's entries unchanged plus
// these additional corrected readings.
func (p *CorrectionProfile) ExpandTable(base *Table) *Table {
	entries := make([]Entry, 0, len(base.bySpelling))
	for spelling, es := range base.bySpelling {
		entries = append(entries, es...)
		b := []byte(spelling)
		for i := range b {
			orig := b[i]
			for _, n := range p.adjacent[orig] {
				b[i] = n
				corrected := string(b)
				for _, e := range es {
					entries = append(entries, Entry{corrected, e.Syllable, e.Flags | Correction})
				}
			}
			b[i] = orig
		}
	}
	return NewTable(entries)
}
