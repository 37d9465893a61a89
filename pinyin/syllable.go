// Package pinyin implements the Pinyin data model: syllables,
// initial/final enumerations, the fuzzy-rule spelling table, the
// typo-tolerant user-input segmenter, the Shuangpin ("double pinyin")
// profile, and full-Pinyin encode/decode.
package pinyin

import "strings"

// Initial is the consonant onset of a syllable. InitialZero means the
// syllable has no consonant onset (e.g. "an", "ou").
type Initial byte

const (
	InitialB Initial = iota
	InitialC
	InitialCh
	InitialD
	InitialF
	InitialG
	InitialH
	InitialJ
	InitialK
	InitialL
	InitialM
	InitialN
	InitialP
	InitialQ
	InitialR
	InitialS
	InitialSh
	InitialT
	InitialW
	InitialX
	InitialY
	InitialZ
	InitialZh
	InitialNG // Only used by a handful of dialectal/fuzzy entries.
	InitialZero
)

var initialNames = [...]string{
	"b", "c", "ch", "d", "f", "g", "h", "j", "k", "l", "m", "n", "p", "q",
	"r", "s", "sh", "t", "w", "x", "y", "z", "zh", "ng", "",
}

func (i Initial) String() string {
	if int(i) < len(initialNames) {
		return initialNames[i]
	}
	return "?"
}

// Final is the vowel rime of a syllable. FinalZero marks finals with
// no further classification needed (reserved for edge entries).
type Final byte

const (
	FinalA Final = iota
	FinalAI
	FinalAN
	FinalANG
	FinalAO
	FinalE
	FinalEI
	FinalEN
	FinalENG
	FinalER
	FinalI
	FinalIA
	FinalIE
	FinalIAO
	FinalIAN
	FinalIANG
	FinalIANG2 // ong spelled through i-final (iong)
	FinalIN
	FinalING
	FinalIU
	FinalO
	FinalONG
	FinalOU
	FinalU
	FinalUA
	FinalUAI
	FinalUAN
	FinalUANG
	FinalUE
	FinalUI
	FinalUN
	FinalUO
	FinalV  // u with umlaut, written "v" in ASCII input (nu, lv...)
	FinalVE // "ve"/"ue" after j/q/x/y
	FinalVN
	FinalNG // syllabic nasal "ng"
	FinalZero
)

var finalNames = [...]string{
	"a", "ai", "an", "ang", "ao", "e", "ei", "en", "eng", "er", "i", "ia",
	"ie", "iao", "ian", "iang", "iong", "in", "ing", "iu", "o", "ong",
	"ou", "u", "ua", "uai", "uan", "uang", "ue", "ui", "un", "uo", "v",
	"ve", "vn", "ng", "",
}

func (f Final) String() string {
	if int(f) < len(finalNames) {
		return finalNames[f]
	}
	return "?"
}

// Syllable is a (initial, final) pair, the atomic unit encoded into
// dictionary keys.
type Syllable struct {
	Initial Initial
	Final   Final
}

// Encode packs the syllable into two bytes, the representation used
// inside dictionary keys (see EncodeFull).
func (s Syllable) Encode() [2]byte { return [2]byte{byte(s.Initial), byte(s.Final)} }

func decodeSyllable(b [2]byte) Syllable { return Syllable{Initial(b[0]), Final(b[1])} }

// EncodeFull encodes a sequence of syllables into the contiguous
// (initial,final) byte-pair representation used as dictionary keys.
func EncodeFull(syllables []Syllable) []byte {
	out := make([]byte, 0, len(syllables)*2)
	for _, s := range syllables {
		b := s.Encode()
		out = append(out, b[0], b[1])
	}
	return out
}

// DecodeFull is the inverse of EncodeFull.
func DecodeFull(key []byte) []Syllable {
	out := make([]Syllable, 0, len(key)/2)
	for i := 0; i+1 < len(key); i += 2 {
		out = append(out, decodeSyllable([2]byte{key[i], key[i+1]}))
	}
	return out
}

// String renders a syllable back to ASCII by joining its initial's and
// final's names, e.g. Syllable{Zh, I} -> "zhi". It does not consult
// any table; Table.SpellingsFor lists a syllable's table spellings.
func (s Syllable) String() string {
	if s.Initial == InitialZero {
		return s.Final.String()
	}
	return s.Initial.String() + s.Final.String()
}

// JoinSpellings renders a full pinyin string with apostrophes
// separating syllables, matching the convention used by the user
// input segmenter ("ni'hao").
func JoinSpellings(spellings []string) string { return strings.Join(spellings, "'") }
